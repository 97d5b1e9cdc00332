package session

import (
	"context"
	"sync"

	"github.com/bholsinger09/layover/internal/domain"
	"github.com/bholsinger09/layover/internal/transport"
)

type inboundFrame struct {
	payload []byte
	sender  transport.PeerInfo
}

type fakeMessenger struct {
	mu      sync.Mutex
	sent    [][]byte
	sendErr error
	inbound chan inboundFrame
}

func newFakeMessenger() *fakeMessenger {
	return &fakeMessenger{inbound: make(chan inboundFrame, 16)}
}

func (m *fakeMessenger) Send(ctx context.Context, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent = append(m.sent, payload)
	return nil
}

func (m *fakeMessenger) Receive(ctx context.Context) ([]byte, transport.PeerInfo, error) {
	select {
	case f := <-m.inbound:
		return f.payload, f.sender, nil
	case <-ctx.Done():
		return nil, transport.PeerInfo{}, ctx.Err()
	}
}

func (m *fakeMessenger) push(payload []byte) {
	m.inbound <- inboundFrame{payload: payload, sender: transport.PeerInfo{ID: "peer-1"}}
}

func (m *fakeMessenger) sentPayloads() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.sent))
	copy(out, m.sent)
	return out
}

type fakeSession struct {
	messenger *fakeMessenger
	states    chan transport.SessionState

	mu     sync.Mutex
	joined int
	left   int
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		messenger: newFakeMessenger(),
		states:    make(chan transport.SessionState, 4),
	}
}

func (s *fakeSession) Join() {
	s.mu.Lock()
	s.joined++
	s.mu.Unlock()
}

func (s *fakeSession) Leave() {
	s.mu.Lock()
	s.left++
	s.mu.Unlock()
}

func (s *fakeSession) States(ctx context.Context) <-chan transport.SessionState {
	return s.states
}

func (s *fakeSession) Messenger() transport.Messenger { return s.messenger }

func (s *fakeSession) invalidate() {
	s.states <- transport.StateInvalidated
	close(s.states)
}

type fakeProvider struct {
	sessions    chan transport.GroupSession
	outcome     transport.PrepareOutcome
	prepErr     error
	activateErr error
	prepareHook func()

	mu        sync.Mutex
	activated []*domain.ActivityDescriptor
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		sessions: make(chan transport.GroupSession, 4),
		outcome:  transport.OutcomePreferred,
	}
}

func (p *fakeProvider) Sessions(ctx context.Context) <-chan transport.GroupSession {
	return p.sessions
}

func (p *fakeProvider) PrepareForActivation(ctx context.Context) (transport.PrepareOutcome, error) {
	if p.prepareHook != nil {
		p.prepareHook()
	}
	return p.outcome, p.prepErr
}

func (p *fakeProvider) Activate(ctx context.Context, desc *domain.ActivityDescriptor) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.activateErr != nil {
		return p.activateErr
	}
	p.activated = append(p.activated, desc)
	return nil
}

// boolRecorder captures observer notifications delivered from the
// tracker loop so tests can poll them safely.
type boolRecorder struct {
	mu    sync.Mutex
	calls []bool
}

func (r *boolRecorder) record(v bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, v)
}

func (r *boolRecorder) snapshot() []bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]bool, len(r.calls))
	copy(out, r.calls)
	return out
}

type recordingPlayer struct {
	mu     sync.Mutex
	loaded []domain.MediaContent
	onLoad func(domain.MediaContent)
}

func (p *recordingPlayer) Attach(transport.GroupSession) {}

func (p *recordingPlayer) Load(content domain.MediaContent) error {
	p.mu.Lock()
	p.loaded = append(p.loaded, content)
	hook := p.onLoad
	p.mu.Unlock()
	if hook != nil {
		hook(content)
	}
	return nil
}

func (p *recordingPlayer) loadedContent() []domain.MediaContent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.MediaContent, len(p.loaded))
	copy(out, p.loaded)
	return out
}
