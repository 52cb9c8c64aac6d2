package occupancy

import (
	"time"

	"stayhub/internal/domain/property"
	"stayhub/internal/domain/shared/events"
)

const (
	BlockPlacedEvent   = "block.placed"
	BlockReleasedEvent = "block.released"
)

type BlockPlaced struct {
	events.Base
	BlockID     int64     `json:"block_id"`
	PropertyID  int64     `json:"property_id"`
	RoomCode    string    `json:"room_code,omitempty"`
	Start       time.Time `json:"start_date"`
	End         time.Time `json:"end_date"`
	Source      string    `json:"source,omitempty"`
	BedsBlocked int       `json:"beds_blocked"`
}

type BlockReleased struct {
	events.Base
	BlockID    int64  `json:"block_id"`
	PropertyID int64  `json:"property_id"`
	RoomCode   string `json:"room_code,omitempty"`
}

// Events are keyed by property so one partition carries a property's history.
func blockEvent(name string, propertyID property.ID, now time.Time) events.Base {
	return events.Base{Name: name, Aggregate: propertyID.String(), Time: now.UTC()}
}
