package dto

import "time"

type PlaceBlockResult struct {
	BlockID     int64     `json:"blockId"`
	PropertyID  int64     `json:"propertyId"`
	RoomCode    string    `json:"roomCode,omitempty"`
	StartDate   time.Time `json:"startDate"`
	EndDate     time.Time `json:"endDate"`
	Source      string    `json:"source,omitempty"`
	BedsBlocked int       `json:"bedsBlocked"`
	// Overbooked is set when the block was accepted past remaining capacity.
	Overbooked bool `json:"overbooked"`
}

type ReleaseBlockResult struct {
	BlockID  int64 `json:"blockId"`
	Released bool  `json:"released"`
}
