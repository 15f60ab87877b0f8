package models

import (
	"fmt"
	"strings"
	"time"
)

// RoomType classifies a teaching room
type RoomType string

const (
	RoomTypeLecture RoomType = "LECTURE"
	RoomTypeLab     RoomType = "LAB"
	RoomTypeSeminar RoomType = "SEMINAR"
)

// ParseRoomType parses a room type case-insensitively.
func ParseRoomType(s string) (RoomType, error) {
	switch rt := RoomType(strings.ToUpper(strings.TrimSpace(s))); rt {
	case RoomTypeLecture, RoomTypeLab, RoomTypeSeminar:
		return rt, nil
	}
	return "", fmt.Errorf("unknown room type %q", s)
}

// Room is a bookable teaching space.
type Room struct {
	ID        int64     `json:"id" db:"id"`
	Building  string    `json:"building" db:"building" example:"ENG"`
	Number    string    `json:"number" db:"number" example:"101"`
	Capacity  int       `json:"capacity" db:"capacity" example:"40"`
	RoomType  RoomType  `json:"roomType" db:"room_type" example:"LECTURE"`
	IsActive  bool      `json:"isActive" db:"is_active"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// Label returns "BUILDING-NUMBER".
func (r *Room) Label() string {
	return r.Building + "-" + r.Number
}
