// Package session implements the synchronization core: session
// lifecycle, host/participant role, the typed broadcast protocol, and
// idempotent reconciliation of incoming state changes.
package session

import (
	"encoding/json"
	"fmt"

	"github.com/bholsinger09/layover/internal/domain"
)

// Kind tags for the wire envelope.
const (
	KindRoomCreated     = "room_created"
	KindUserJoined      = "user_joined"
	KindContentSelected = "content_selected"
)

// Message is the closed set of synchronizable events. Exactly three
// variants exist; the reconciler switches on the concrete type.
type Message interface {
	kind() string
}

type RoomCreated struct {
	Room domain.Room `json:"room"`
}

type UserJoined struct {
	User domain.User   `json:"user"`
	Room domain.RoomID `json:"room"`
}

type ContentSelected struct {
	Content domain.MediaContent `json:"content"`
}

func (RoomCreated) kind() string     { return KindRoomCreated }
func (UserJoined) kind() string      { return KindUserJoined }
func (ContentSelected) kind() string { return KindContentSelected }

// envelope is the JSON wire format: a type tag plus the variant payload.
type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func Encode(msg Message) ([]byte, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msg.kind(), err)
	}
	return json.Marshal(envelope{Type: msg.kind(), Payload: payload})
}

func Decode(data []byte) (Message, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}
	switch env.Type {
	case KindRoomCreated:
		var m RoomCreated
		if err := json.Unmarshal(env.Payload, &m); err != nil {
			return nil, fmt.Errorf("unmarshal %s: %w", env.Type, err)
		}
		return m, nil
	case KindUserJoined:
		var m UserJoined
		if err := json.Unmarshal(env.Payload, &m); err != nil {
			return nil, fmt.Errorf("unmarshal %s: %w", env.Type, err)
		}
		return m, nil
	case KindContentSelected:
		var m ContentSelected
		if err := json.Unmarshal(env.Payload, &m); err != nil {
			return nil, fmt.Errorf("unmarshal %s: %w", env.Type, err)
		}
		return m, nil
	default:
		return nil, fmt.Errorf("unknown message type %q", env.Type)
	}
}
