package occupancy

import (
	"context"
	"errors"
	"time"

	"stayhub/internal/domain/property"
	"stayhub/internal/domain/shared/daterange"
	"stayhub/internal/domain/shared/events"
)

var (
	ErrBlockNotFound   = errors.New("occupancy: block not found")
	ErrInvalidBeds     = errors.New("occupancy: beds blocked must not be negative")
	ErrPropertyMissing = errors.New("occupancy: property id required")
)

// DefaultBedsBlocked applies when a block does not say how many rooms it takes.
const DefaultBedsBlocked = 1

type BookingStatus string

const (
	StatusNew        BookingStatus = "NEW"
	StatusConfirmed  BookingStatus = "CONFIRMED"
	StatusCheckedIn  BookingStatus = "CHECKED_IN"
	StatusCheckedOut BookingStatus = "CHECKED_OUT"
	StatusCancelled  BookingStatus = "CANCELLED"
	StatusRejected   BookingStatus = "REJECTED"
)

// ActiveStatuses are the booking states that hold a room.
var ActiveStatuses = []BookingStatus{StatusNew, StatusConfirmed, StatusCheckedIn}

func (s BookingStatus) Active() bool {
	for _, active := range ActiveStatuses {
		if s == active {
			return true
		}
	}
	return false
}

type Booking struct {
	ID          int64
	PropertyID  property.ID
	Stay        daterange.DateRange
	Status      BookingStatus
	RoomCode    string
	GuestName   string
	TotalAmount *float64
}

// Amount returns the total with a missing value read as zero.
func (b Booking) Amount() float64 {
	if b.TotalAmount == nil {
		return 0
	}
	return *b.TotalAmount
}

func (b Booking) Occupant() Occupant {
	return Occupant{Kind: KindBooking, ID: b.ID, RoomCode: b.RoomCode, Period: b.Stay, Units: 1}
}

// Block is an externally sourced hold: another channel's reservation or a manual hold.
type Block struct {
	ID          int64
	PropertyID  property.ID
	Period      daterange.DateRange
	RoomCode    string
	Source      string
	BedsBlocked int
	events.Recorder
}

// Beds returns the room-equivalents the block consumes. Whole rooms are held,
// not beds inside one room.
func (b Block) Beds() int {
	if b.BedsBlocked <= 0 {
		return DefaultBedsBlocked
	}
	return b.BedsBlocked
}

func (b Block) Occupant() Occupant {
	return Occupant{Kind: KindBlock, ID: b.ID, RoomCode: b.RoomCode, Period: b.Period, Units: b.Beds()}
}

type PlaceParams struct {
	ID          int64
	PropertyID  property.ID
	Period      daterange.DateRange
	RoomCode    string
	Source      string
	BedsBlocked int
}

// NewBlock validates a new or edited block.
func NewBlock(params PlaceParams) (*Block, error) {
	if params.PropertyID <= 0 {
		return nil, ErrPropertyMissing
	}
	if err := params.Period.Validate(); err != nil {
		return nil, err
	}
	if params.BedsBlocked < 0 {
		return nil, ErrInvalidBeds
	}
	b := &Block{
		ID:          params.ID,
		PropertyID:  params.PropertyID,
		Period:      params.Period,
		RoomCode:    params.RoomCode,
		Source:      params.Source,
		BedsBlocked: params.BedsBlocked,
	}
	return b, nil
}

// Placed records BlockPlaced once the block has its id.
func (b *Block) Placed(now time.Time) {
	b.Record(BlockPlaced{
		Base:        blockEvent(BlockPlacedEvent, b.PropertyID, now),
		BlockID:     b.ID,
		PropertyID:  int64(b.PropertyID),
		RoomCode:    b.RoomCode,
		Start:       b.Period.Start,
		End:         b.Period.End,
		Source:      b.Source,
		BedsBlocked: b.Beds(),
	})
}

// Release marks the block as removed.
func (b *Block) Release(now time.Time) {
	b.Record(BlockReleased{
		Base:       blockEvent(BlockReleasedEvent, b.PropertyID, now),
		BlockID:    b.ID,
		PropertyID: int64(b.PropertyID),
		RoomCode:   b.RoomCode,
	})
}

// Query selects occupants of one property that overlap a window.
// An empty RoomCode means every room.
type Query struct {
	PropertyID property.ID
	RoomCode   string
	Window     daterange.DateRange
}

// MatchesBooking applies the active-status, room and overlap rules.
func (q Query) MatchesBooking(b Booking) bool {
	if b.PropertyID != q.PropertyID || !b.Status.Active() {
		return false
	}
	if q.RoomCode != "" && b.RoomCode != q.RoomCode {
		return false
	}
	return b.Stay.Overlaps(q.Window)
}

type BlockQuery struct {
	Query
	ExcludeID int64
}

func (q BlockQuery) MatchesBlock(b Block) bool {
	if b.PropertyID != q.PropertyID {
		return false
	}
	if q.ExcludeID != 0 && b.ID == q.ExcludeID {
		return false
	}
	if q.RoomCode != "" && b.RoomCode != q.RoomCode {
		return false
	}
	return b.Period.Overlaps(q.Window)
}

// BookingRepository returns active bookings ordered by check-in.
type BookingRepository interface {
	FindActiveBookings(ctx context.Context, q Query) ([]Booking, error)
}

// BlockRepository returns overlapping blocks ordered by start.
type BlockRepository interface {
	FindBlocks(ctx context.Context, q BlockQuery) ([]Block, error)
	ByID(ctx context.Context, id int64) (*Block, error)
	// Save inserts when the block has no id yet and assigns one.
	Save(ctx context.Context, b *Block) error
	Delete(ctx context.Context, id int64) error
}
