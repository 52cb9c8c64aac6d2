package availability

import "stayhub/internal/domain/occupancy"

// Conflicts lists every overlapping occupant, bookings first and then blocks,
// in the order the store returned them.
func Conflicts(bookings []occupancy.Booking, blocks []occupancy.Block) []Conflict {
	out := make([]Conflict, 0, len(bookings)+len(blocks))
	for _, b := range bookings {
		out = append(out, Conflict{
			Kind:        occupancy.KindBooking,
			ID:          b.ID,
			RoomCode:    b.RoomCode,
			Period:      b.Stay,
			GuestName:   b.GuestName,
			Status:      b.Status,
			TotalAmount: b.Amount(),
		})
	}
	for _, b := range blocks {
		out = append(out, Conflict{
			Kind:        occupancy.KindBlock,
			ID:          b.ID,
			RoomCode:    b.RoomCode,
			Period:      b.Period,
			Source:      b.Source,
			BedsBlocked: b.Beds(),
		})
	}
	return out
}
