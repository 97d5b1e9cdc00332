package relay

import (
	"sync"
	"time"
)

// ActivationRateLimiter caps how often a single client may start
// sessions, sliding-window per client.
type ActivationRateLimiter struct {
	mu       sync.Mutex
	history  map[ClientID][]time.Time
	limit    int
	interval time.Duration
}

func NewActivationRateLimiter(limit int, interval time.Duration) *ActivationRateLimiter {
	return &ActivationRateLimiter{
		history:  make(map[ClientID][]time.Time),
		limit:    limit,
		interval: interval,
	}
}

func (rl *ActivationRateLimiter) Allow(cid ClientID) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	windowStart := now.Add(-rl.interval)

	attempts := rl.history[cid]
	fresh := make([]time.Time, 0, len(attempts))
	for _, t := range attempts {
		if t.After(windowStart) {
			fresh = append(fresh, t)
		}
	}

	if len(fresh) >= rl.limit {
		rl.history[cid] = fresh
		return false
	}

	fresh = append(fresh, now)
	rl.history[cid] = fresh
	return true
}
