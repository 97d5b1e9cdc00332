package session

import "sync"

// Registry fans the session-active signal out to independently-lifecycled
// subscribers. A subscriber is replayed the current value on subscribe,
// then invoked exactly once per genuine transition. Subscribers live for
// the life of the owning service; there is no removal path.
//
// Callbacks run under the registry's lock, which is what keeps the
// replay ordered before any later notify. A callback must not call
// back into the Registry.
type Registry struct {
	mu     sync.Mutex
	active bool
	subs   []func(bool)
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Subscribe registers cb and immediately replays the current state.
// The replay happens-before any notify cb receives afterwards.
func (r *Registry) Subscribe(cb func(active bool)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs = append(r.subs, cb)
	cb(r.active)
}

// Notify broadcasts active to every subscriber. Repeated calls with an
// unchanged value are collapsed.
func (r *Registry) Notify(active bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if active == r.active {
		return
	}
	r.active = active
	for _, cb := range r.subs {
		cb(active)
	}
}

// Last returns the value most recently broadcast (false before any
// broadcast). The poller compares this against the tracker's
// authoritative flag.
func (r *Registry) Last() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

func (r *Registry) SubscriberCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}
