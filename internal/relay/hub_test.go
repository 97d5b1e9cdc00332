package relay

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bholsinger09/layover/internal/domain"
	"github.com/bholsinger09/layover/internal/wire"
)

type fakeConn struct {
	mu      sync.Mutex
	frames  []Frame
	sendErr error
}

func (c *fakeConn) TrySend(f Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return c.sendErr
	}
	c.frames = append(c.frames, f)
	return nil
}

func (c *fakeConn) envelopes(t *testing.T) []wire.Envelope {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]wire.Envelope, 0, len(c.frames))
	for _, f := range c.frames {
		var env wire.Envelope
		require.NoError(t, json.Unmarshal(f, &env))
		out = append(out, env)
	}
	return out
}

func newTestHub() *Hub {
	return NewHub(nil)
}

func bindClient(h *Hub, cid ClientID, name string) *fakeConn {
	conn := &fakeConn{}
	h.Registry.Bind(cid, name, conn, nil)
	return conn
}

func activity(t *testing.T) *domain.ActivityDescriptor {
	t.Helper()
	desc, err := domain.NewActivityDescriptor("r1", domain.ActivityWatch, "Movie Night", nil)
	require.NoError(t, err)
	return desc
}

func envelopesOfType(envs []wire.Envelope, typ string) []wire.Envelope {
	var out []wire.Envelope
	for _, e := range envs {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

func mustMarshal(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

func TestActivateAnnouncesToAllClients(t *testing.T) {
	h := newTestHub()
	a := bindClient(h, "a", "alice")
	b := bindClient(h, "b", "bob")

	h.handle("a", mustMarshal(t, wire.Envelope{Type: wire.TypeActivate, Activity: activity(t)}))

	for _, conn := range []*fakeConn{a, b} {
		sessions := envelopesOfType(conn.envelopes(t), wire.TypeSession)
		require.Len(t, sessions, 1)
		assert.NotEmpty(t, sessions[0].Session)
		require.NotNil(t, sessions[0].Activity)
		assert.Equal(t, domain.RoomID("r1"), sessions[0].Activity.Room)
	}
}

func TestDataBroadcastExcludesSender(t *testing.T) {
	h := newTestHub()
	a := bindClient(h, "a", "alice")
	b := bindClient(h, "b", "bob")

	h.handle("a", mustMarshal(t, wire.Envelope{Type: wire.TypeActivate, Activity: activity(t)}))
	session := envelopesOfType(a.envelopes(t), wire.TypeSession)[0].Session
	h.handle("a", mustMarshal(t, wire.Envelope{Type: wire.TypeJoin, Session: session}))
	h.handle("b", mustMarshal(t, wire.Envelope{Type: wire.TypeJoin, Session: session}))

	payload := json.RawMessage(`{"type":"room_created","payload":{}}`)
	h.handle("a", mustMarshal(t, wire.Envelope{Type: wire.TypeData, Payload: payload}))

	got := envelopesOfType(b.envelopes(t), wire.TypeData)
	require.Len(t, got, 1)
	require.NotNil(t, got[0].From)
	assert.Equal(t, "a", got[0].From.ID)
	assert.Equal(t, "alice", got[0].From.Name)
	assert.JSONEq(t, string(payload), string(got[0].Payload))

	assert.Empty(t, envelopesOfType(a.envelopes(t), wire.TypeData), "sender never receives its own payload")
}

func TestDataWithoutSessionFails(t *testing.T) {
	h := newTestHub()
	a := bindClient(h, "a", "alice")

	h.handle("a", mustMarshal(t, wire.Envelope{Type: wire.TypeData, Payload: json.RawMessage(`{}`)}))
	errs := envelopesOfType(a.envelopes(t), wire.TypeError)
	require.Len(t, errs, 1)
	assert.Equal(t, "no_session", errs[0].Error)
}

func TestLastLeaveEvictsSession(t *testing.T) {
	h := newTestHub()
	a := bindClient(h, "a", "alice")

	h.handle("a", mustMarshal(t, wire.Envelope{Type: wire.TypeActivate, Activity: activity(t)}))
	session := envelopesOfType(a.envelopes(t), wire.TypeSession)[0].Session
	h.handle("a", mustMarshal(t, wire.Envelope{Type: wire.TypeJoin, Session: session}))
	require.Len(t, h.Sessions.List(), 1)

	h.handle("a", mustMarshal(t, wire.Envelope{Type: wire.TypeLeave}))
	assert.Empty(t, h.Sessions.List())
}

func TestBackpressureKicksSlowMember(t *testing.T) {
	h := newTestHub()
	a := bindClient(h, "a", "alice")
	slow := bindClient(h, "b", "bob")
	slow.sendErr = errors.New("queue full")

	h.handle("a", mustMarshal(t, wire.Envelope{Type: wire.TypeActivate, Activity: activity(t)}))
	session := envelopesOfType(a.envelopes(t), wire.TypeSession)[0].Session
	h.handle("a", mustMarshal(t, wire.Envelope{Type: wire.TypeJoin, Session: session}))
	h.handle("b", mustMarshal(t, wire.Envelope{Type: wire.TypeJoin, Session: session}))

	h.handle("a", mustMarshal(t, wire.Envelope{Type: wire.TypeData, Payload: json.RawMessage(`{}`)}))

	g, ok := h.Sessions.Get(session)
	require.True(t, ok)
	assert.False(t, g.HasMember("b"), "slow member kicked")
	_, bound := h.Registry.Conn("b")
	assert.False(t, bound, "kicked member unbound")
}

func TestActivationRateLimit(t *testing.T) {
	h := NewHub(NewActivationRateLimiter(1, time.Minute))
	a := bindClient(h, "a", "alice")

	h.handle("a", mustMarshal(t, wire.Envelope{Type: wire.TypeActivate, Activity: activity(t)}))
	h.handle("a", mustMarshal(t, wire.Envelope{Type: wire.TypeActivate, Activity: activity(t)}))

	assert.Len(t, h.Sessions.List(), 1)
	errs := envelopesOfType(a.envelopes(t), wire.TypeError)
	require.Len(t, errs, 1)
	assert.Equal(t, "rate_limited", errs[0].Error)
}

func TestMalformedEnvelope(t *testing.T) {
	h := newTestHub()
	a := bindClient(h, "a", "alice")
	h.handle("a", []byte("garbage"))
	errs := envelopesOfType(a.envelopes(t), wire.TypeError)
	require.Len(t, errs, 1)
	assert.Equal(t, "bad_envelope", errs[0].Error)
}
