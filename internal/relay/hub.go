package relay

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/bholsinger09/layover/internal/wire"
)

// Hub routes control envelopes between connected agents. One hub per
// relay process.
type Hub struct {
	Registry *Registry
	Sessions *Manager
	Policy   Policy
	Limiter  *ActivationRateLimiter
}

func NewHub(limiter *ActivationRateLimiter) *Hub {
	return &Hub{
		Registry: NewRegistry(),
		Sessions: NewManager(),
		Policy:   SimplePolicy{},
		Limiter:  limiter,
	}
}

func (h *Hub) handle(cid ClientID, data []byte) {
	var env wire.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Warn().Err(err).Str("module", "relay.hub").Str("cid", string(cid)).Msg("bad envelope")
		h.sendError(cid, "bad_envelope")
		return
	}

	switch env.Type {
	case wire.TypeHello:
		h.handleHello(cid, &env)
	case wire.TypeActivate:
		h.handleActivate(cid, &env)
	case wire.TypeJoin:
		h.handleJoin(cid, &env)
	case wire.TypeLeave:
		h.handleLeave(cid)
	case wire.TypeData:
		h.handleData(cid, &env)
	default:
		log.Warn().Str("module", "relay.hub").Str("type", env.Type).Msg("unknown envelope type")
		h.sendError(cid, "unknown_type")
	}
}

func (h *Hub) handleHello(cid ClientID, env *wire.Envelope) {
	if env.Name == "" {
		return
	}
	h.Registry.SetName(cid, env.Name)
	log.Info().Str("module", "relay.hub").Str("cid", string(cid)).Str("name", env.Name).Msg("hello")
}

// handleActivate creates a session group and announces it to every
// connected client, the sender included. The sender learns the
// session id the same way everyone else does.
func (h *Hub) handleActivate(cid ClientID, env *wire.Envelope) {
	if h.Limiter != nil && !h.Limiter.Allow(cid) {
		log.Warn().Str("module", "relay.hub").Str("cid", string(cid)).Msg("activation rate limited")
		h.sendError(cid, "rate_limited")
		return
	}
	if env.Activity == nil {
		h.sendError(cid, "missing_activity")
		return
	}
	g := h.Sessions.Create(env.Activity)
	log.Info().Str("module", "relay.hub").Str("cid", string(cid)).Str("session", g.ID()).Str("room", string(env.Activity.Room)).Msg("session activated")

	announce := wire.Envelope{Type: wire.TypeSession, Session: g.ID(), Activity: g.Activity()}
	for _, snap := range h.Registry.All() {
		h.sendEnvelope(snap.CID, &announce)
	}
}

func (h *Hub) handleJoin(cid ClientID, env *wire.Envelope) {
	g, ok := h.Sessions.Get(env.Session)
	if !ok {
		log.Warn().Str("module", "relay.hub").Str("cid", string(cid)).Str("session", env.Session).Msg("join for unknown session")
		h.sendError(cid, "session_not_found")
		return
	}
	// Joining a second session implies leaving the first.
	if prev, ok := h.Registry.SessionOf(cid); ok && prev != env.Session {
		h.removeFromSession(cid, prev)
	}
	conn, ok := h.Registry.Conn(cid)
	if !ok {
		return
	}
	g.AddMember(cid, conn)
	h.Registry.SetSession(cid, env.Session)
}

func (h *Hub) handleLeave(cid ClientID) {
	session, ok := h.Registry.SessionOf(cid)
	if !ok {
		return
	}
	h.removeFromSession(cid, session)
	h.Registry.ClearSession(cid)
}

// handleData fans a payload out to the sender's session, excluding
// the sender. Slow members are handled per policy.
func (h *Hub) handleData(cid ClientID, env *wire.Envelope) {
	session, ok := h.Registry.SessionOf(cid)
	if !ok {
		h.sendError(cid, "no_session")
		return
	}
	g, ok := h.Sessions.Get(session)
	if !ok {
		h.sendError(cid, "session_not_found")
		return
	}

	out := wire.Envelope{
		Type:    wire.TypeData,
		Session: session,
		From:    &wire.Peer{ID: string(cid), Name: h.Registry.Name(cid)},
		Payload: env.Payload,
	}
	data, err := json.Marshal(out)
	if err != nil {
		log.Error().Err(err).Str("module", "relay.hub").Msg("marshal data envelope")
		return
	}

	res := g.Broadcast(cid, data)
	if h.Policy == nil {
		return
	}
	for _, slow := range res.Dropped {
		switch h.Policy.OnBackPressure(g, slow) {
		case KickMember:
			h.Drop(slow)
		case MarkSlow, DropFrame, NoAction:
		}
	}
}

// Drop disconnects a client entirely: out of its session, out of the
// registry, pumps cancelled.
func (h *Hub) Drop(cid ClientID) {
	if session, ok := h.Registry.SessionOf(cid); ok {
		h.removeFromSession(cid, session)
	}
	h.Registry.Cancel(cid)
	h.Registry.Unbind(cid)
}

// removeFromSession evicts the group once its last member leaves and
// tells any stragglers their session is gone.
func (h *Hub) removeFromSession(cid ClientID, session string) {
	g, ok := h.Sessions.Get(session)
	if !ok {
		return
	}
	g.RemoveMember(cid)
	if g.MemberCount() > 0 {
		return
	}
	h.Sessions.Evict(session)
	log.Info().Str("module", "relay.hub").Str("session", session).Msg("session evicted")

	invalidated := wire.Envelope{Type: wire.TypeInvalidated, Session: session}
	for _, snap := range h.Registry.MembersOf(session) {
		if snap.CID == cid {
			continue
		}
		h.sendEnvelope(snap.CID, &invalidated)
		h.Registry.ClearSession(snap.CID)
	}
}

func (h *Hub) sendEnvelope(cid ClientID, env *wire.Envelope) {
	conn, ok := h.Registry.Conn(cid)
	if !ok {
		return
	}
	data, err := json.Marshal(env)
	if err != nil {
		log.Error().Err(err).Str("module", "relay.hub").Msg("marshal envelope")
		return
	}
	if err := conn.TrySend(data); err != nil {
		log.Warn().Err(err).Str("module", "relay.hub").Str("cid", string(cid)).Str("type", env.Type).Msg("send failed")
	}
}

func (h *Hub) sendError(cid ClientID, code string) {
	h.sendEnvelope(cid, &wire.Envelope{Type: wire.TypeError, Error: code})
}
