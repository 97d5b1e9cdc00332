package wsgroup

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/bholsinger09/layover/internal/domain"
	"github.com/bholsinger09/layover/internal/transport"
	"github.com/bholsinger09/layover/internal/wire"
)

var ErrSessionInvalidated = errors.New("session invalidated")

type inbound struct {
	payload []byte
	sender  transport.PeerInfo
}

// Session is the websocket-backed session handle. The provider routes
// relay envelopes into it; the session core consumes it through the
// transport interfaces only.
type Session struct {
	p        *Provider
	id       string
	activity *domain.ActivityDescriptor

	states  chan transport.SessionState
	data    chan inbound
	done    chan struct{}
	invOnce sync.Once
}

func newSession(p *Provider, id string, activity *domain.ActivityDescriptor) *Session {
	return &Session{
		p:        p,
		id:       id,
		activity: activity,
		states:   make(chan transport.SessionState, 4),
		data:     make(chan inbound, 64),
		done:     make(chan struct{}),
	}
}

func (s *Session) ID() string { return s.id }

func (s *Session) Activity() *domain.ActivityDescriptor { return s.activity }

func (s *Session) Join() {
	if err := s.p.enqueue(&wire.Envelope{Type: wire.TypeJoin, Session: s.id}); err != nil {
		log.Warn().Err(err).Str("module", "wsgroup").Str("session", s.id).Msg("join failed")
		return
	}
	select {
	case s.states <- transport.StateJoined:
	default:
	}
}

func (s *Session) Leave() {
	if err := s.p.enqueue(&wire.Envelope{Type: wire.TypeLeave, Session: s.id}); err != nil {
		log.Warn().Err(err).Str("module", "wsgroup").Str("session", s.id).Msg("leave failed")
	}
	s.p.forget(s.id)
}

func (s *Session) States(ctx context.Context) <-chan transport.SessionState {
	out := make(chan transport.SessionState, 4)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case st := <-s.states:
				select {
				case out <- st:
				case <-ctx.Done():
					return
				}
				if st == transport.StateInvalidated {
					return
				}
			}
		}
	}()
	return out
}

func (s *Session) Messenger() transport.Messenger { return s }

// Send wraps the payload in a data envelope for the relay. May fail
// when the relay link is down or saturated; callers treat that as
// accepted loss.
func (s *Session) Send(ctx context.Context, payload []byte) error {
	select {
	case <-s.done:
		return ErrSessionInvalidated
	default:
	}
	return s.p.enqueue(&wire.Envelope{Type: wire.TypeData, Session: s.id, Payload: json.RawMessage(payload)})
}

func (s *Session) Receive(ctx context.Context) ([]byte, transport.PeerInfo, error) {
	select {
	case in := <-s.data:
		return in.payload, in.sender, nil
	case <-s.done:
		return nil, transport.PeerInfo{}, ErrSessionInvalidated
	case <-ctx.Done():
		return nil, transport.PeerInfo{}, ctx.Err()
	}
}

func (s *Session) deliver(payload []byte, sender transport.PeerInfo) {
	select {
	case s.data <- inbound{payload: payload, sender: sender}:
	default:
		// Reconciliation is idempotent and periodically corrected;
		// dropping under pressure is safe.
		log.Warn().Str("module", "wsgroup").Str("session", s.id).Msg("inbound queue full, payload dropped")
	}
}

func (s *Session) invalidate() {
	s.invOnce.Do(func() {
		select {
		case s.states <- transport.StateInvalidated:
		default:
		}
		close(s.done)
	})
}
