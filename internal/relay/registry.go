package relay

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

type ClientID string

// sender is the slice of Conn the hub needs to fan frames out.
type sender interface {
	TrySend(Frame) error
}

type clientEntry struct {
	Name    string
	Conn    sender
	Session string
	Cancel  context.CancelFunc
}

// Registry tracks connected agents and their session binding.
type Registry struct {
	mu      sync.RWMutex
	clients map[ClientID]*clientEntry
}

func NewRegistry() *Registry {
	return &Registry{clients: make(map[ClientID]*clientEntry)}
}

func (r *Registry) Bind(cid ClientID, name string, conn sender, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[cid] = &clientEntry{Name: name, Conn: conn, Cancel: cancel}
	log.Info().Str("module", "relay.registry").Str("cid", string(cid)).Msg("bound client")
}

func (r *Registry) Unbind(cid ClientID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.clients, cid)
	log.Info().Str("module", "relay.registry").Str("cid", string(cid)).Msg("unbound client")
}

func (r *Registry) SetName(cid ClientID, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.clients[cid]; ok {
		e.Name = name
	}
}

func (r *Registry) Name(cid ClientID) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.clients[cid]; ok {
		return e.Name
	}
	return ""
}

func (r *Registry) Conn(cid ClientID) (sender, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.clients[cid]; ok {
		return e.Conn, true
	}
	return nil, false
}

func (r *Registry) SetSession(cid ClientID, session string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.clients[cid]
	if !ok {
		return false
	}
	e.Session = session
	log.Info().Str("module", "relay.registry").Str("cid", string(cid)).Str("session", session).Msg("session binding updated")
	return true
}

func (r *Registry) SessionOf(cid ClientID) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.clients[cid]
	if !ok || e.Session == "" {
		return "", false
	}
	return e.Session, true
}

func (r *Registry) ClearSession(cid ClientID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.clients[cid]; ok {
		e.Session = ""
	}
}

type clientSnap struct {
	CID  ClientID
	Name string
	Conn sender
}

// MembersOf returns every client bound to session.
func (r *Registry) MembersOf(session string) []clientSnap {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]clientSnap, 0, len(r.clients))
	for cid, e := range r.clients {
		if e.Session == session {
			out = append(out, clientSnap{CID: cid, Name: e.Name, Conn: e.Conn})
		}
	}
	return out
}

// All returns every connected client.
func (r *Registry) All() []clientSnap {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]clientSnap, 0, len(r.clients))
	for cid, e := range r.clients {
		out = append(out, clientSnap{CID: cid, Name: e.Name, Conn: e.Conn})
	}
	return out
}

func (r *Registry) Cancel(cid ClientID) bool {
	r.mu.RLock()
	e, ok := r.clients[cid]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	if e.Cancel != nil {
		e.Cancel()
	}
	log.Info().Str("module", "relay.registry").Str("cid", string(cid)).Msg("cancelled client")
	return true
}
