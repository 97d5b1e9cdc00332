package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/bholsinger09/layover/internal/domain"
	"github.com/bholsinger09/layover/internal/playback"
	"github.com/bholsinger09/layover/internal/transport"
)

// Role is assigned exactly once per session lifetime, when the session
// goes from absent to active, and sticks until the session is torn
// down.
type Role int

const (
	RoleNone Role = iota
	RoleHost
	RoleParticipant
)

func (r Role) String() string {
	switch r {
	case RoleHost:
		return "host"
	case RoleParticipant:
		return "participant"
	default:
		return "none"
	}
}

// Tracker owns the single current session handle. Its run loop is the
// designated execution context: session, role and observer state are
// mutated only there, fed by the provider's session stream, the
// handles' state streams and posted commands.
type Tracker struct {
	provider   transport.Provider
	adapter    *Adapter
	reconciler *Reconciler
	registry   *Registry
	player     playback.Coordinator

	cmds chan func()

	mu         sync.RWMutex
	sess       transport.GroupSession
	role       Role
	pending    bool
	leaveEpoch uint64

	stateCancel context.CancelFunc
}

func NewTracker(provider transport.Provider, reconciler *Reconciler, registry *Registry, player playback.Coordinator) *Tracker {
	t := &Tracker{
		provider:   provider,
		adapter:    NewAdapter(),
		reconciler: reconciler,
		registry:   registry,
		player:     player,
		cmds:       make(chan func(), 16),
	}
	reconciler.bindSend(t.adapter.Send)
	return t
}

// Run consumes the platform's session stream until ctx is done. It
// must be running before RequestActivation or Leave are called.
func (t *Tracker) Run(ctx context.Context) {
	sessions := t.provider.Sessions(ctx)
	for {
		select {
		case <-ctx.Done():
			t.teardown()
			return
		case h, ok := <-sessions:
			if !ok {
				sessions = nil
				continue
			}
			t.onSessionObserved(ctx, h)
		case fn := <-t.cmds:
			fn()
		}
	}
}

// post hands fn to the run loop and waits for it to execute.
func (t *Tracker) post(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	select {
	case t.cmds <- func() { fn(); close(done) }:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RequestActivation asks the platform to begin activation. A nil
// return only means the request was accepted: activation is
// asynchronous and callers must await the active signal (AwaitActive)
// rather than assume a session exists.
func (t *Tracker) RequestActivation(ctx context.Context, desc *domain.ActivityDescriptor) error {
	t.mu.RLock()
	epoch := t.leaveEpoch
	t.mu.RUnlock()

	outcome, err := t.provider.PrepareForActivation(ctx)
	if err != nil {
		return fmt.Errorf("prepare activation: %w", err)
	}
	switch outcome {
	case transport.OutcomePreferred:
	case transport.OutcomeDisabled:
		return ErrActivationDisabled
	case transport.OutcomeCancelled:
		return ErrActivationCancelled
	default:
		return ErrActivationUnknown
	}

	// Mark local-activation-pending on the loop so the next observed
	// session is attributed host. A leave that raced us wins: the
	// request fails instead of resurrecting a session.
	var raced bool
	if err := t.post(ctx, func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if t.leaveEpoch != epoch {
			raced = true
			return
		}
		t.pending = true
	}); err != nil {
		return err
	}
	if raced {
		return ErrNoActiveSession
	}

	if err := t.provider.Activate(ctx, desc); err != nil {
		t.mu.Lock()
		t.pending = false
		t.mu.Unlock()
		return fmt.Errorf("activate: %w", err)
	}
	log.Info().Str("module", "session.tracker").Str("room", string(desc.Room)).Str("kind", string(desc.Kind)).Msg("activation requested")
	return nil
}

// AwaitActive waits up to grace for the session to become active.
// Returns false on timeout; that is not a hard failure, the UI shows
// "session not yet established".
func (t *Tracker) AwaitActive(ctx context.Context, grace time.Duration) bool {
	deadline := time.NewTimer(grace)
	defer deadline.Stop()
	tick := time.NewTicker(10 * time.Millisecond)
	defer tick.Stop()
	for {
		if t.Active() {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-deadline.C:
			return t.Active()
		case <-tick.C:
		}
	}
}

// Leave tears the session down on user action. Same cleanup as
// invalidation plus an explicit leave on the handle.
func (t *Tracker) Leave(ctx context.Context) error {
	return t.post(ctx, func() {
		t.mu.Lock()
		t.leaveEpoch++
		t.pending = false
		sess := t.sess
		t.mu.Unlock()
		if sess == nil {
			return
		}
		sess.Leave()
		t.clearSession(sess)
	})
}

// Active reports whether a session is currently tracked. This is the
// authoritative flag the poller reads.
func (t *Tracker) Active() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.sess != nil
}

func (t *Tracker) Role() Role {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.role
}

// syncObservers re-broadcasts the authoritative flag on the designated
// context. Called by the poller when it sees divergence.
func (t *Tracker) syncObservers(ctx context.Context) error {
	return t.post(ctx, func() {
		t.registry.Notify(t.Active())
	})
}

// onSessionObserved runs on the loop. A handle arriving while one is
// already tracked is a transport-internal replacement of the same
// logical room: the handle and pump are swapped, the role sticks.
func (t *Tracker) onSessionObserved(ctx context.Context, h transport.GroupSession) {
	t.mu.Lock()
	replacing := t.sess != nil
	if !replacing {
		if t.pending {
			t.role = RoleHost
		} else {
			t.role = RoleParticipant
		}
	}
	// Every observed handle consumes the pending mark, replacement or
	// not: a request issued while a session was live must not claim
	// host for some later remote session.
	t.pending = false
	t.sess = h
	role := t.role
	t.mu.Unlock()

	log.Info().Str("module", "session.tracker").Str("role", role.String()).Bool("replacing", replacing).Msg("session observed")

	h.Join()
	t.adapter.Attach(ctx, h.Messenger(), t.onMessage)
	t.watchStates(ctx, h)
	if t.player != nil {
		t.player.Attach(h)
	}
	if !replacing {
		t.registry.Notify(true)
	}
}

// watchStates consumes h's state stream and reports invalidation back
// to the loop. The consumer for a replaced handle is cancelled first.
func (t *Tracker) watchStates(ctx context.Context, h transport.GroupSession) {
	t.mu.Lock()
	if t.stateCancel != nil {
		t.stateCancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	t.stateCancel = cancel
	t.mu.Unlock()

	states := h.States(ctx)
	go func() {
		for {
			select {
			case st, ok := <-states:
				if !ok {
					return
				}
				if st != transport.StateInvalidated {
					continue
				}
				select {
				case t.cmds <- func() { t.onInvalidated(h) }:
				case <-ctx.Done():
				}
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// onInvalidated runs on the loop. Stale handles (already replaced or
// left) are ignored.
func (t *Tracker) onInvalidated(h transport.GroupSession) {
	t.mu.RLock()
	current := t.sess == h
	t.mu.RUnlock()
	if !current {
		return
	}
	log.Info().Str("module", "session.tracker").Msg("session invalidated")
	t.clearSession(h)
}

func (t *Tracker) clearSession(h transport.GroupSession) {
	t.mu.Lock()
	if t.sess != h {
		t.mu.Unlock()
		return
	}
	t.sess = nil
	t.role = RoleNone
	cancel := t.stateCancel
	t.stateCancel = nil
	t.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	t.adapter.Detach()
	t.registry.Notify(false)
}

func (t *Tracker) teardown() {
	t.mu.RLock()
	sess := t.sess
	t.mu.RUnlock()
	if sess != nil {
		t.clearSession(sess)
	}
}

// onMessage runs on the adapter's pump; reconciler state carries its
// own lock so dispatch stays off the loop and per-sender order holds.
func (t *Tracker) onMessage(msg Message, sender transport.PeerInfo) {
	log.Debug().Str("module", "session.tracker").Str("sender", sender.ID).Msg("inbound message")
	t.reconciler.Apply(msg)
}
