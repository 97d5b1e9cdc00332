package relay

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/bholsinger09/layover/internal/domain"
)

// PublishResult reports delivery stats/backpressure to the hub.
type PublishResult struct {
	SentTo  int
	Dropped []ClientID
}

// Group is one live session's membership set. It owns no transport
// resources; connections belong to the hub.
type Group struct {
	id       string
	activity *domain.ActivityDescriptor

	mu       sync.RWMutex
	byClient map[ClientID]sender
}

func NewGroup(id string, activity *domain.ActivityDescriptor) *Group {
	return &Group{
		id:       id,
		activity: activity,
		byClient: make(map[ClientID]sender),
	}
}

func (g *Group) ID() string { return g.id }

func (g *Group) Activity() *domain.ActivityDescriptor { return g.activity }

func (g *Group) MemberCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.byClient)
}

func (g *Group) AddMember(cid ClientID, conn sender) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.byClient[cid] = conn
	log.Info().Str("module", "relay.group").Str("session", g.id).Str("cid", string(cid)).Msg("member added")
}

func (g *Group) RemoveMember(cid ClientID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.byClient, cid)
	log.Info().Str("module", "relay.group").Str("session", g.id).Str("cid", string(cid)).Msg("member removed")
}

func (g *Group) HasMember(cid ClientID) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.byClient[cid]
	return ok
}

func (g *Group) Members() []ClientID {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]ClientID, 0, len(g.byClient))
	for cid := range g.byClient {
		out = append(out, cid)
	}
	return out
}

// Broadcast fans data out to every member except from.
func (g *Group) Broadcast(from ClientID, data Frame) PublishResult {
	g.mu.RLock()
	defer g.mu.RUnlock()
	res := PublishResult{}
	for cid, conn := range g.byClient {
		if cid == from {
			continue
		}
		if err := conn.TrySend(data); err != nil {
			res.Dropped = append(res.Dropped, cid)
			continue
		}
		res.SentTo++
	}
	log.Debug().Str("module", "relay.group").Str("session", g.id).Str("from", string(from)).Int("sent_to", res.SentTo).Int("dropped", len(res.Dropped)).Msg("broadcast result")
	return res
}
