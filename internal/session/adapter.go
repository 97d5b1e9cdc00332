package session

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/bholsinger09/layover/internal/transport"
)

// Adapter bridges the opaque messenger to typed Messages. It owns the
// single inbound consumption loop and the outbound send path; transport
// failure never escapes it.
type Adapter struct {
	mu        sync.Mutex
	messenger transport.Messenger
	cancel    context.CancelFunc
	done      chan struct{}
}

func NewAdapter() *Adapter {
	return &Adapter{}
}

// Attach binds the adapter to a session's messenger and starts the
// inbound pump. Attaching while already attached detaches the previous
// pump first, so at most one pump exists per attached session.
func (a *Adapter) Attach(ctx context.Context, m transport.Messenger, handle func(Message, transport.PeerInfo)) {
	a.mu.Lock()
	if a.cancel != nil {
		a.cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	a.messenger = m
	a.cancel = cancel
	a.done = done
	a.mu.Unlock()

	go a.readPump(ctx, m, handle, done)
}

// Detach cancels the inbound pump and drops the messenger. Blocks until
// the pump has stopped, so no reconciliation runs against a torn-down
// session afterwards.
func (a *Adapter) Detach() {
	a.mu.Lock()
	cancel := a.cancel
	done := a.done
	a.messenger = nil
	a.cancel = nil
	a.done = nil
	a.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// Send broadcasts msg to the other peers, best-effort. Failures are
// logged and swallowed: reconciliation is idempotent and the poller's
// corrective sweep covers missed deliveries.
func (a *Adapter) Send(ctx context.Context, msg Message) {
	a.mu.Lock()
	m := a.messenger
	a.mu.Unlock()
	if m == nil {
		log.Debug().Str("module", "session.adapter").Str("type", msg.kind()).Msg("send without attached session, dropped")
		return
	}
	data, err := Encode(msg)
	if err != nil {
		log.Error().Err(err).Str("module", "session.adapter").Str("type", msg.kind()).Msg("encode failed, dropped")
		return
	}
	if err := m.Send(ctx, data); err != nil {
		log.Warn().Err(err).Str("module", "session.adapter").Str("type", msg.kind()).Msg("send failed, dropped")
	}
}

func (a *Adapter) readPump(ctx context.Context, m transport.Messenger, handle func(Message, transport.PeerInfo), done chan struct{}) {
	defer close(done)
	for {
		data, sender, err := m.Receive(ctx)
		if err != nil {
			if ctx.Err() == nil {
				log.Warn().Err(err).Str("module", "session.adapter").Msg("inbound pump stopped")
			}
			return
		}
		if ctx.Err() != nil {
			// Detached while this payload was in flight.
			return
		}
		msg, err := Decode(data)
		if err != nil {
			// One malformed payload must not kill the shared loop.
			log.Warn().Err(err).Str("module", "session.adapter").Str("sender", sender.ID).Msg("malformed payload, dropped")
			continue
		}
		handle(msg, sender)
	}
}
