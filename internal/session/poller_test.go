package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPollerCorrectsDivergence(t *testing.T) {
	f := newTrackerFixture(t)

	rec := &boolRecorder{}
	f.registry.Subscribe(rec.record)

	f.provider.sessions <- newFakeSession()
	require.True(t, f.tracker.AwaitActive(context.Background(), time.Second))
	waitFor(t, func() bool { return f.registry.Last() })

	// Simulate a lost edge-triggered notification: the registry thinks
	// the session went away while the tracker still holds it.
	f.registry.Notify(false)
	require.False(t, f.registry.Last())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p := NewPoller(f.tracker, f.registry, 10*time.Millisecond)
	go p.Run(ctx)

	waitFor(t, func() bool { return f.registry.Last() })
	assert.Equal(t, []bool{false, true, false, true}, rec.snapshot())
}

func TestPollerSkipsWithoutSubscribers(t *testing.T) {
	f := newTrackerFixture(t)

	f.provider.sessions <- newFakeSession()
	require.True(t, f.tracker.AwaitActive(context.Background(), time.Second))
	// Notify(true) already happened with zero subscribers; force the
	// registry out of sync again.
	f.registry.Notify(false)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p := NewPoller(f.tracker, f.registry, 10*time.Millisecond)
	go p.Run(ctx)

	time.Sleep(60 * time.Millisecond)
	assert.False(t, f.registry.Last(), "no subscribers, no sweep")
}

func TestPollerStopsOnCancel(t *testing.T) {
	f := newTrackerFixture(t)
	f.registry.Subscribe(func(bool) {})

	ctx, cancel := context.WithCancel(context.Background())
	p := NewPoller(f.tracker, f.registry, 10*time.Millisecond)
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop on cancellation")
	}
}

func TestPollerDefaultInterval(t *testing.T) {
	p := NewPoller(nil, NewRegistry(), 0)
	assert.Equal(t, DefaultPollInterval, p.interval)
}
