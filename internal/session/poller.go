package session

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

const DefaultPollInterval = time.Second

// Poller is the corrective sweep behind the event-driven notifications:
// the platform's edge-triggered delivery is not contractually reliable,
// so on a fixed interval the tracker's authoritative flag is compared
// against the last value the registry broadcast and divergence is
// forced back in line.
type Poller struct {
	tracker  *Tracker
	registry *Registry
	interval time.Duration
}

func NewPoller(tracker *Tracker, registry *Registry, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{tracker: tracker, registry: registry, interval: interval}
}

// Run polls until ctx is done. Sweeps are skipped while nothing is
// subscribed.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.sweep(ctx)
		}
	}
}

func (p *Poller) sweep(ctx context.Context) {
	if p.registry.SubscriberCount() == 0 {
		return
	}
	authoritative := p.tracker.Active()
	if p.registry.Last() == authoritative {
		return
	}
	log.Warn().Str("module", "session.poller").Bool("active", authoritative).Msg("observer state diverged, forcing notify")
	if err := p.tracker.syncObservers(ctx); err != nil {
		log.Warn().Err(err).Str("module", "session.poller").Msg("sync failed")
	}
}
