package availability

import (
	"math"

	"stayhub/internal/domain/occupancy"
	"stayhub/internal/domain/property"
	"stayhub/internal/domain/shared/daterange"
)

var ErrInvalidDateRange = daterange.ErrInvalidRange

// Request describes one availability computation. Window is half-open and its
// end is the checkout instant.
type Request struct {
	PropertyID      property.ID
	Window          daterange.DateRange
	RoomCode        string
	RoomTypePattern string
	ExcludeBlockID  int64
}

func (r Request) Validate() error {
	if err := r.Window.Validate(); err != nil {
		return ErrInvalidDateRange
	}
	return nil
}

func (r Request) BookingQuery() occupancy.Query {
	return occupancy.Query{PropertyID: r.PropertyID, RoomCode: r.RoomCode, Window: r.Window}
}

func (r Request) BlockQuery() occupancy.BlockQuery {
	return occupancy.BlockQuery{Query: r.BookingQuery(), ExcludeID: r.ExcludeBlockID}
}

// Compute aggregates already fetched occupants against the property's room
// types. Bookings and blocks are trusted to be the store's answer to
// BookingQuery and BlockQuery.
func Compute(req Request, prop *property.Property, bookings []occupancy.Booking, blocks []occupancy.Block) (Report, error) {
	if err := req.Validate(); err != nil {
		return Report{}, err
	}
	if prop == nil {
		return Report{}, property.ErrPropertyNotFound
	}

	types := property.ExtractRoomTypes(prop.RoomsSpec, prop.Layout, property.Filter{
		RoomCode:        req.RoomCode,
		RoomTypePattern: req.RoomTypePattern,
	})
	bookingOcc := occupancy.Bookings(bookings)
	blockOcc := occupancy.Blocks(blocks)

	byType := make(map[string]RoomTypeBreakdown, len(types)+1)
	for _, rt := range types {
		byType[rt.Type] = roomTypeBreakdown(rt, bookingOcc, blockOcc, roomTypeMatcher(req.RoomCode, rt))
	}
	// The informational bucket replaces a room type that happens to share its name.
	if req.RoomCode == "" {
		if bucket, ok := unassignedBreakdown(bookingOcc, blockOcc); ok {
			byType[UnassignedRoomType] = bucket
		}
	}

	return Report{
		PropertyID: int64(prop.ID),
		Range:      req.Window,
		Nights:     req.Window.Nights(),
		ByRoomType: byType,
		Summary:    summarize(types, bookingOcc, blockOcc),
		Conflicts:  Conflicts(bookings, blocks),
	}, nil
}

// roomTypeMatcher claims occupants by exact code when the caller asked for one
// room, otherwise by room type prefix.
func roomTypeMatcher(roomCode string, rt property.RoomType) occupancy.Predicate {
	if roomCode != "" {
		return occupancy.WithRoomCode(roomCode)
	}
	return occupancy.WithRoomPrefix(rt.Type)
}

func roomTypeBreakdown(rt property.RoomType, bookings, blocks []occupancy.Occupant, match occupancy.Predicate) RoomTypeBreakdown {
	matchedBookings := occupancy.Select(bookings, match)
	matchedBlocks := occupancy.Select(blocks, match)
	booked := len(matchedBookings)
	blocked := occupancy.Units(matchedBlocks)
	available := remaining(rt.Count, booked, blocked)
	return RoomTypeBreakdown{
		RoomType:               rt.Type,
		TotalRooms:             rt.Count,
		BookedRooms:            booked,
		BlockedRooms:           blocked,
		AvailableRooms:         available,
		AvailabilityPercentage: percentage(available, rt.Count),
		RoomCodes:              append([]string(nil), rt.Codes...),
		Occupants:              occupancy.Chronological(matchedBookings, matchedBlocks),
	}
}

// unassignedBreakdown is visible for transparency only and subtracts from no room type.
func unassignedBreakdown(bookings, blocks []occupancy.Occupant) (RoomTypeBreakdown, bool) {
	unBookings := occupancy.Select(bookings, occupancy.Unassigned)
	unBlocks := occupancy.Select(blocks, occupancy.Unassigned)
	if len(unBookings) == 0 && len(unBlocks) == 0 {
		return RoomTypeBreakdown{}, false
	}
	return RoomTypeBreakdown{
		RoomType:     UnassignedRoomType,
		BookedRooms:  len(unBookings),
		BlockedRooms: occupancy.Units(unBlocks),
		RoomCodes:    []string{},
		Occupants:    occupancy.Chronological(unBookings, unBlocks),
	}, true
}

// summarize takes capacity from the derived room types but occupancy from the
// raw lists. A booking on an unknown room code therefore lowers the summary
// without appearing in any breakdown row.
func summarize(types []property.RoomType, bookings, blocks []occupancy.Occupant) Summary {
	total := 0
	for _, rt := range types {
		total += rt.Count
	}
	booked := len(bookings)
	blocked := occupancy.Units(blocks)
	available := remaining(total, booked, blocked)
	return Summary{
		TotalRooms:                    total,
		TotalBookedRooms:              booked,
		TotalBlockedRooms:             blocked,
		TotalAvailableRooms:           available,
		OverallAvailabilityPercentage: percentage(available, total),
	}
}

func remaining(capacity, booked, blocked int) int {
	return max(0, capacity-booked-blocked)
}

func percentage(available, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(available) / float64(total) * 100))
}
