// Package wire defines the control envelopes exchanged between agents
// and the group relay. Data payloads ride through opaque: the relay
// never inspects them, it only fans them out.
package wire

import (
	"encoding/json"

	"github.com/bholsinger09/layover/internal/domain"
)

// Envelope type constants for the relay control protocol.
const (
	TypeHello       = "hello"
	TypeActivate    = "activate"
	TypeJoin        = "join"
	TypeLeave       = "leave"
	TypeData        = "data"
	TypeSession     = "session"
	TypeInvalidated = "invalidated"
	TypeError       = "error"
)

// Envelope is the JSON wire format on the relay websocket.
type Envelope struct {
	Type     string                     `json:"type"`
	Session  string                     `json:"session,omitempty"`
	Name     string                     `json:"name,omitempty"`
	Activity *domain.ActivityDescriptor `json:"activity,omitempty"`
	From     *Peer                      `json:"from,omitempty"`
	Payload  json.RawMessage            `json:"payload,omitempty"`
	Error    string                     `json:"error,omitempty"`
}

// Peer identifies the sending agent on data envelopes.
type Peer struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}
