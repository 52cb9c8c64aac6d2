package occupancy

import (
	"sort"
	"strings"

	"stayhub/internal/domain/shared/daterange"
)

type Kind string

const (
	KindBooking Kind = "booking"
	KindBlock   Kind = "block"
)

// Occupant is anything that consumes room capacity for a window.
// Units is the number of room-equivalents it takes.
type Occupant struct {
	Kind     Kind
	ID       int64
	RoomCode string
	Period   daterange.DateRange
	Units    int
}

type Predicate func(Occupant) bool

func Unassigned(o Occupant) bool {
	return o.RoomCode == ""
}

func WithRoomCode(code string) Predicate {
	return func(o Occupant) bool { return o.RoomCode == code }
}

// WithRoomPrefix matches room codes that start with a room type name,
// so "Single" also claims "SingleDeluxe-1".
func WithRoomPrefix(prefix string) Predicate {
	return func(o Occupant) bool { return strings.HasPrefix(o.RoomCode, prefix) }
}

func Bookings(list []Booking) []Occupant {
	out := make([]Occupant, len(list))
	for i, b := range list {
		out[i] = b.Occupant()
	}
	return out
}

func Blocks(list []Block) []Occupant {
	out := make([]Occupant, len(list))
	for i, b := range list {
		out[i] = b.Occupant()
	}
	return out
}

// Select returns a new slice with the occupants that satisfy pred.
func Select(list []Occupant, pred Predicate) []Occupant {
	out := make([]Occupant, 0, len(list))
	for _, o := range list {
		if pred(o) {
			out = append(out, o)
		}
	}
	return out
}

func Units(list []Occupant) int {
	total := 0
	for _, o := range list {
		total += o.Units
	}
	return total
}

// Chronological merges lists into a new slice ordered by start. Ties keep
// input order, so bookings stay ahead of blocks starting the same instant.
func Chronological(lists ...[]Occupant) []Occupant {
	var out []Occupant
	for _, l := range lists {
		out = append(out, l...)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Period.Start.Before(out[j].Period.Start)
	})
	return out
}
