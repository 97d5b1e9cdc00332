package domain

import (
	"errors"
	"fmt"
)

var ErrActivityRoomEmpty = errors.New("activity room empty")

// ActivityKind names the kind of shared activity a room hosts.
type ActivityKind string

const (
	ActivityWatch  ActivityKind = "watch"
	ActivityListen ActivityKind = "listen"
	ActivityCards  ActivityKind = "cards"
)

func (k ActivityKind) Validate() error {
	switch k {
	case ActivityWatch, ActivityListen, ActivityCards:
		return nil
	}
	return fmt.Errorf("unknown activity kind %q", string(k))
}

// ActivityDescriptor is the closed record handed to the platform when
// requesting session activation. Validated at construction so the
// tracker never sees a partially-filled descriptor.
type ActivityDescriptor struct {
	Room        RoomID        `json:"room"`
	Kind        ActivityKind  `json:"kind"`
	DisplayName string        `json:"display_name"`
	Content     *MediaContent `json:"content,omitempty"`
}

func NewActivityDescriptor(room RoomID, kind ActivityKind, displayName string, content *MediaContent) (*ActivityDescriptor, error) {
	if room == "" {
		return nil, ErrActivityRoomEmpty
	}
	if err := kind.Validate(); err != nil {
		return nil, err
	}
	if len(displayName) > MaxDisplayNameLen {
		return nil, ErrDisplayNameTooLong
	}
	if content != nil {
		if err := content.Validate(); err != nil {
			return nil, err
		}
	}
	return &ActivityDescriptor{Room: room, Kind: kind, DisplayName: displayName, Content: content}, nil
}
