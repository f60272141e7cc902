package domain

import (
	"errors"

	"github.com/google/uuid"
)

const MaxRoomNameLen = 64

var (
	ErrRoomNameEmpty   = errors.New("room name empty")
	ErrRoomNameTooLong = errors.New("room name too long")
)

type (
	RoomName string
	RoomID   string
)

type Room struct {
	ID   RoomID   `json:"id"`
	Name RoomName `json:"name"`
}

func NewRoom(name RoomName) (*Room, error) {
	if err := ValidateRoomName(name); err != nil {
		return nil, err
	}
	return &Room{ID: RoomID(uuid.NewString()), Name: name}, nil
}

func ValidateRoomName(name RoomName) error {
	if len(name) == 0 {
		return ErrRoomNameEmpty
	}
	if len(name) > MaxRoomNameLen {
		return ErrRoomNameTooLong
	}
	return nil
}
