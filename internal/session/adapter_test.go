package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bholsinger09/layover/internal/domain"
	"github.com/bholsinger09/layover/internal/transport"
)

func collectMessages() (func(Message, transport.PeerInfo), func() []Message) {
	var mu sync.Mutex
	var got []Message
	handle := func(m Message, _ transport.PeerInfo) {
		mu.Lock()
		got = append(got, m)
		mu.Unlock()
	}
	snapshot := func() []Message {
		mu.Lock()
		defer mu.Unlock()
		out := make([]Message, len(got))
		copy(out, got)
		return out
	}
	return handle, snapshot
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestAdapterDeliversDecodedMessages(t *testing.T) {
	a := NewAdapter()
	m := newFakeMessenger()
	handle, got := collectMessages()
	a.Attach(context.Background(), m, handle)
	defer a.Detach()

	data, err := Encode(RoomCreated{Room: testRoom("r1", "Movie Night")})
	require.NoError(t, err)
	m.push(data)

	waitFor(t, func() bool { return len(got()) == 1 })
	created, ok := got()[0].(RoomCreated)
	require.True(t, ok)
	assert.Equal(t, domain.RoomID("r1"), created.Room.ID)
}

func TestAdapterDropsMalformedPayloads(t *testing.T) {
	a := NewAdapter()
	m := newFakeMessenger()
	handle, got := collectMessages()
	a.Attach(context.Background(), m, handle)
	defer a.Detach()

	m.push([]byte("garbage"))
	data, err := Encode(UserJoined{User: testUser("u1", "ben"), Room: "r1"})
	require.NoError(t, err)
	m.push(data)

	// The loop survives the malformed payload and delivers the next one.
	waitFor(t, func() bool { return len(got()) == 1 })
	_, ok := got()[0].(UserJoined)
	assert.True(t, ok)
}

func TestAdapterReattachStopsPreviousPump(t *testing.T) {
	a := NewAdapter()
	first := newFakeMessenger()
	second := newFakeMessenger()
	handle, got := collectMessages()

	a.Attach(context.Background(), first, handle)
	a.Attach(context.Background(), second, handle)
	defer a.Detach()

	data, err := Encode(RoomCreated{Room: testRoom("r1", "A")})
	require.NoError(t, err)

	// The first messenger is detached: nothing pulls from it anymore.
	first.push(data)
	second.push(data)
	waitFor(t, func() bool { return len(got()) == 1 })
	time.Sleep(50 * time.Millisecond)
	assert.Len(t, got(), 1)
}

func TestAdapterSendSwallowsFailures(t *testing.T) {
	a := NewAdapter()
	m := newFakeMessenger()
	m.sendErr = errors.New("transport down")
	a.Attach(context.Background(), m, func(Message, transport.PeerInfo) {})
	defer a.Detach()

	// Must not panic or surface anything.
	a.Send(context.Background(), RoomCreated{Room: testRoom("r1", "A")})
	assert.Empty(t, m.sentPayloads())
}

func TestAdapterSendWithoutAttachIsNoOp(t *testing.T) {
	a := NewAdapter()
	a.Send(context.Background(), RoomCreated{Room: testRoom("r1", "A")})
}

func TestAdapterDetachStopsDelivery(t *testing.T) {
	a := NewAdapter()
	m := newFakeMessenger()
	handle, got := collectMessages()
	a.Attach(context.Background(), m, handle)
	a.Detach()

	data, err := Encode(RoomCreated{Room: testRoom("r1", "A")})
	require.NoError(t, err)
	select {
	case m.inbound <- inboundFrame{payload: data}:
	default:
	}
	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, got())
}
