package dto

import (
	"time"

	"stayhub/internal/domain/availability"
	"stayhub/internal/domain/occupancy"
)

type AvailabilityReport struct {
	PropertyID   int64                        `json:"propertyId"`
	DateRange    DateRange                    `json:"dateRange"`
	ByRoomType   map[string]RoomTypeBreakdown `json:"byRoomType"`
	Summary      AvailabilitySummary          `json:"summary"`
	HasConflicts bool                         `json:"hasConflicts"`
	Conflicts    []Conflict                   `json:"conflicts"`
}

type DateRange struct {
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
	Nights    int       `json:"nights"`
}

type RoomTypeBreakdown struct {
	RoomType               string     `json:"roomType"`
	TotalRooms             int        `json:"totalRooms"`
	BookedRooms            int        `json:"bookedRooms"`
	BlockedRooms           int        `json:"blockedRooms"`
	AvailableRooms         int        `json:"availableRooms"`
	AvailabilityPercentage int        `json:"availabilityPercentage"`
	RoomCodes              []string   `json:"roomCodes"`
	Occupants              []Occupant `json:"occupants"`
}

type Occupant struct {
	Type      string    `json:"type"`
	ID        int64     `json:"id"`
	RoomCode  *string   `json:"roomCode"`
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
	Rooms     int       `json:"rooms"`
}

type AvailabilitySummary struct {
	TotalRooms                    int `json:"totalRooms"`
	TotalBookedRooms              int `json:"totalBookedRooms"`
	TotalBlockedRooms             int `json:"totalBlockedRooms"`
	TotalAvailableRooms           int `json:"totalAvailableRooms"`
	OverallAvailabilityPercentage int `json:"overallAvailabilityPercentage"`
}

type Conflict struct {
	Type      string    `json:"type"`
	ID        int64     `json:"id"`
	RoomCode  *string   `json:"roomCode"`
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
	Details   any       `json:"details"`
}

type BookingConflictDetails struct {
	GuestName   string  `json:"guestName"`
	Status      string  `json:"status"`
	TotalAmount float64 `json:"totalAmount"`
}

type BlockConflictDetails struct {
	Source      string `json:"source"`
	BedsBlocked int    `json:"bedsBlocked"`
}

func MapAvailability(r availability.Report) AvailabilityReport {
	byType := make(map[string]RoomTypeBreakdown, len(r.ByRoomType))
	for name, b := range r.ByRoomType {
		byType[name] = RoomTypeBreakdown{
			RoomType:               b.RoomType,
			TotalRooms:             b.TotalRooms,
			BookedRooms:            b.BookedRooms,
			BlockedRooms:           b.BlockedRooms,
			AvailableRooms:         b.AvailableRooms,
			AvailabilityPercentage: b.AvailabilityPercentage,
			RoomCodes:              nonNil(b.RoomCodes),
			Occupants:              mapOccupants(b.Occupants),
		}
	}
	conflicts := make([]Conflict, 0, len(r.Conflicts))
	for _, c := range r.Conflicts {
		conflicts = append(conflicts, mapConflict(c))
	}
	return AvailabilityReport{
		PropertyID: r.PropertyID,
		DateRange: DateRange{
			StartDate: r.Range.Start,
			EndDate:   r.Range.End,
			Nights:    r.Nights,
		},
		ByRoomType: byType,
		Summary: AvailabilitySummary{
			TotalRooms:                    r.Summary.TotalRooms,
			TotalBookedRooms:              r.Summary.TotalBookedRooms,
			TotalBlockedRooms:             r.Summary.TotalBlockedRooms,
			TotalAvailableRooms:           r.Summary.TotalAvailableRooms,
			OverallAvailabilityPercentage: r.Summary.OverallAvailabilityPercentage,
		},
		HasConflicts: r.HasConflicts(),
		Conflicts:    conflicts,
	}
}

func mapConflict(c availability.Conflict) Conflict {
	out := Conflict{
		Type:      string(c.Kind),
		ID:        c.ID,
		RoomCode:  optional(c.RoomCode),
		StartDate: c.Period.Start,
		EndDate:   c.Period.End,
	}
	switch c.Kind {
	case occupancy.KindBooking:
		out.Details = BookingConflictDetails{GuestName: c.GuestName, Status: string(c.Status), TotalAmount: c.TotalAmount}
	case occupancy.KindBlock:
		out.Details = BlockConflictDetails{Source: c.Source, BedsBlocked: c.BedsBlocked}
	}
	return out
}

func mapOccupants(list []occupancy.Occupant) []Occupant {
	out := make([]Occupant, 0, len(list))
	for _, o := range list {
		out = append(out, Occupant{
			Type:      string(o.Kind),
			ID:        o.ID,
			RoomCode:  optional(o.RoomCode),
			StartDate: o.Period.Start,
			EndDate:   o.Period.End,
			Rooms:     o.Units,
		})
	}
	return out
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
