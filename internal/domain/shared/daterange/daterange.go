package daterange

import (
	"errors"
	"math"
	"strings"
	"time"
)

var (
	ErrInvalidRange = errors.New("daterange: end must be after start")
	ErrInvalidDate  = errors.New("daterange: date must be RFC3339 or YYYY-MM-DD")
)

const day = 24 * time.Hour

// DateRange represents a half-open interval [start, end)
type DateRange struct {
	Start time.Time
	End   time.Time
}

func New(start, end time.Time) (DateRange, error) {
	dr := DateRange{Start: start.UTC(), End: end.UTC()}
	if err := dr.Validate(); err != nil {
		return DateRange{}, err
	}
	return dr, nil
}

func (dr DateRange) Validate() error {
	if dr.End.IsZero() || dr.Start.IsZero() {
		return ErrInvalidRange
	}
	if !dr.End.After(dr.Start) {
		return ErrInvalidRange
	}
	return nil
}

// Nights counts started days, so a 25 hour stay is two nights.
func (dr DateRange) Nights() int {
	return int(math.Ceil(float64(dr.End.Sub(dr.Start)) / float64(day)))
}

// Overlaps reports whether the two ranges share any instant. Touching
// boundaries do not overlap: a departure on day D leaves D free.
func (dr DateRange) Overlaps(other DateRange) bool {
	return dr.Start.Before(other.End) && other.Start.Before(dr.End)
}

func (dr DateRange) ContainsDate(t time.Time) bool {
	t = t.UTC()
	return (t.Equal(dr.Start) || t.After(dr.Start)) && t.Before(dr.End)
}

// ParseDate accepts an RFC3339 timestamp or a calendar date, the latter read as
// UTC midnight.
func ParseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		return t, nil
	}
	return time.Time{}, ErrInvalidDate
}
