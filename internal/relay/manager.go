package relay

import (
	"sync"

	"github.com/google/uuid"

	"github.com/bholsinger09/layover/internal/domain"
)

// Manager owns the live session groups.
type Manager struct {
	mu     sync.RWMutex
	groups map[string]*Group
}

func NewManager() *Manager {
	return &Manager{groups: make(map[string]*Group)}
}

func (m *Manager) Create(activity *domain.ActivityDescriptor) *Group {
	g := NewGroup(uuid.NewString(), activity)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.groups[g.ID()] = g
	return g
}

func (m *Manager) Get(id string) (*Group, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.groups[id]
	return g, ok
}

func (m *Manager) List() []*Group {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Group, 0, len(m.groups))
	for _, g := range m.groups {
		out = append(out, g)
	}
	return out
}

func (m *Manager) Evict(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.groups, id)
}
