package models

import "time"

// RoomType distinguishes physical venues from virtual meeting rooms.
type RoomType string

// Room types.
const (
	RoomPhysical RoomType = "physical"
	RoomVirtual  RoomType = "virtual"
)

// Valid reports whether the room type is a known value.
func (t RoomType) Valid() bool {
	return t == RoomPhysical || t == RoomVirtual
}

// Room is a bookable venue.
type Room struct {
	ID              string    `db:"id" json:"id"`
	Name            string    `db:"name" json:"name"`
	Code            string    `db:"code" json:"code"`
	RoomType        RoomType  `db:"room_type" json:"room_type"`
	Capacity        int       `db:"capacity" json:"capacity"`
	Building        string    `db:"building" json:"building,omitempty"`
	VirtualPlatform string    `db:"virtual_platform" json:"virtual_platform,omitempty"`
	MeetingLink     string    `db:"meeting_link" json:"meeting_link,omitempty"`
	IsAvailable     bool      `db:"is_available" json:"is_available"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// RoomFilter describes query params for listing rooms.
type RoomFilter struct {
	RoomType      RoomType
	AvailableOnly bool
	Page          int
	PageSize      int
}
