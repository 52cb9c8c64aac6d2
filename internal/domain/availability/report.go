package availability

import (
	"stayhub/internal/domain/occupancy"
	"stayhub/internal/domain/shared/daterange"
)

// UnassignedRoomType buckets occupants without a room code. It never carries capacity.
const UnassignedRoomType = "Unassigned"

// Report is built fresh for every call and not modified afterwards.
type Report struct {
	PropertyID int64
	Range      daterange.DateRange
	Nights     int
	ByRoomType map[string]RoomTypeBreakdown
	Summary    Summary
	Conflicts  []Conflict
}

func (r Report) HasConflicts() bool {
	return len(r.Conflicts) > 0
}

type RoomTypeBreakdown struct {
	RoomType               string
	TotalRooms             int
	BookedRooms            int
	BlockedRooms           int
	AvailableRooms         int
	AvailabilityPercentage int
	RoomCodes              []string
	// Occupants is informational and ordered by start.
	Occupants []occupancy.Occupant
}

type Summary struct {
	TotalRooms                    int
	TotalBookedRooms              int
	TotalBlockedRooms             int
	TotalAvailableRooms           int
	OverallAvailabilityPercentage int
}

// Conflict is one occupant overlapping the requested window. Booking fields
// are set for bookings and block fields for blocks.
type Conflict struct {
	Kind     occupancy.Kind
	ID       int64
	RoomCode string
	Period   daterange.DateRange

	GuestName   string
	Status      occupancy.BookingStatus
	TotalAmount float64

	Source      string
	BedsBlocked int
}
