package domain

import (
	"errors"

	"github.com/google/uuid"
)

const MaxRoomNameLen = 36

var (
	ErrRoomNameEmpty   = errors.New("room name empty")
	ErrRoomNameTooLong = errors.New("room name too long")
	ErrRoomNotFound    = errors.New("room not found")
)

type (
	RoomName string
	RoomID   string
)

// Room is the shared aggregate peers synchronize. Participants live in
// the reconciled state, not here.
type Room struct {
	ID       RoomID       `json:"id"`
	Name     RoomName     `json:"name"`
	Activity ActivityKind `json:"activity"`
}

func NewRoom(name RoomName, activity ActivityKind) (*Room, error) {
	if len(name) == 0 {
		return nil, ErrRoomNameEmpty
	}
	if len(name) > MaxRoomNameLen {
		return nil, ErrRoomNameTooLong
	}
	if err := activity.Validate(); err != nil {
		return nil, err
	}
	return &Room{ID: RoomID(uuid.NewString()), Name: name, Activity: activity}, nil
}
