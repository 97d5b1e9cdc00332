// Package transport defines the boundary to the platform-provided
// group-communication layer. The session core depends only on these
// interfaces; the websocket implementation lives in adapters/wsgroup.
package transport

import (
	"context"

	"github.com/bholsinger09/layover/internal/domain"
)

// PrepareOutcome is the platform's answer to an activation request.
type PrepareOutcome int

const (
	OutcomeUnknown PrepareOutcome = iota
	OutcomePreferred
	OutcomeDisabled
	OutcomeCancelled
)

func (o PrepareOutcome) String() string {
	switch o {
	case OutcomePreferred:
		return "preferred"
	case OutcomeDisabled:
		return "disabled"
	case OutcomeCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// SessionState is emitted on a session's state stream. Invalidated is
// terminal.
type SessionState int

const (
	StateWaiting SessionState = iota
	StateJoined
	StateInvalidated
)

func (s SessionState) String() string {
	switch s {
	case StateWaiting:
		return "waiting"
	case StateJoined:
		return "joined"
	default:
		return "invalidated"
	}
}

// PeerInfo identifies the sender of an inbound payload.
type PeerInfo struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// Messenger is the typed-payload channel bound to one group session.
// Send is best-effort; Receive blocks until a payload arrives, the
// context is done, or the session ends (returning a non-nil error in
// the latter two cases). Payloads from a single sender arrive in send
// order; payloads from different senders carry no relative order.
type Messenger interface {
	Send(ctx context.Context, payload []byte) error
	Receive(ctx context.Context) ([]byte, PeerInfo, error)
}

// GroupSession is an opaque handle to a multi-device communication
// context. Handles are owned by the session tracker; everything else
// reads derived state only.
type GroupSession interface {
	Join()
	Leave()
	// States yields state changes for this handle and closes after the
	// terminal Invalidated state.
	States(ctx context.Context) <-chan SessionState
	Messenger() Messenger
}

// Provider yields zero or more session handles over time and carries
// the activation operations. A handle may appear without any local
// activation request when a remote peer started the session.
type Provider interface {
	Sessions(ctx context.Context) <-chan GroupSession
	PrepareForActivation(ctx context.Context) (PrepareOutcome, error)
	Activate(ctx context.Context, desc *domain.ActivityDescriptor) error
}
