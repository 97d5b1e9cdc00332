// Package wsgroup implements the transport boundary over a websocket
// connection to layoverd. It is the only package that knows how session
// handles and payloads actually move.
package wsgroup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/bholsinger09/layover/internal/domain"
	"github.com/bholsinger09/layover/internal/transport"
	"github.com/bholsinger09/layover/internal/wire"
)

var (
	ErrNotConnected = errors.New("not connected to relay")
	ErrSendQueue    = errors.New("send queue full")
)

type Provider struct {
	url        string
	deviceName string
	token      string
	pingPeriod time.Duration

	mu        sync.Mutex
	ws        *websocket.Conn
	connected bool
	send      chan []byte
	sessions  chan transport.GroupSession
	bySession map[string]*Session
}

type Option func(*Provider)

func WithPingPeriod(d time.Duration) Option {
	return func(p *Provider) { p.pingPeriod = d }
}

func New(url, deviceName, token string, opts ...Option) *Provider {
	p := &Provider{
		url:        url,
		deviceName: deviceName,
		token:      token,
		pingPeriod: 54 * time.Second,
		sessions:   make(chan transport.GroupSession, 4),
		bySession:  make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Connect dials the relay and starts the read/write pumps. The pumps
// stop, and every live session handle is locally invalidated, when the
// connection drops or ctx is done.
func (p *Provider) Connect(ctx context.Context) error {
	target, err := p.dialURL()
	if err != nil {
		return err
	}
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, target, nil)
	if err != nil {
		return fmt.Errorf("dial relay: %w", err)
	}

	p.mu.Lock()
	p.ws = ws
	p.connected = true
	p.send = make(chan []byte, 32)
	p.mu.Unlock()

	go p.writePump(ctx, ws)
	go p.readPump(ctx, ws)

	p.enqueue(&wire.Envelope{Type: wire.TypeHello, Name: p.deviceName})
	log.Info().Str("module", "wsgroup").Str("url", p.url).Msg("connected to relay")
	return nil
}

// dialURL attaches token and device name as escaped query parameters;
// device names carry arbitrary user text.
func (p *Provider) dialURL() (string, error) {
	u, err := url.Parse(p.url)
	if err != nil {
		return "", fmt.Errorf("parse relay url: %w", err)
	}
	q := u.Query()
	q.Set("token", p.token)
	if p.deviceName != "" {
		q.Set("name", p.deviceName)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (p *Provider) Sessions(ctx context.Context) <-chan transport.GroupSession {
	return p.sessions
}

// PrepareForActivation maps the relay connection state onto the
// platform outcome set. A disconnected agent is not in a valid group
// context.
func (p *Provider) PrepareForActivation(ctx context.Context) (transport.PrepareOutcome, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.connected {
		return transport.OutcomeDisabled, nil
	}
	return transport.OutcomePreferred, nil
}

// Activate asks the relay to start a session. The resulting handle
// arrives asynchronously through Sessions, on this agent and every
// other connected agent alike.
func (p *Provider) Activate(ctx context.Context, desc *domain.ActivityDescriptor) error {
	return p.enqueue(&wire.Envelope{Type: wire.TypeActivate, Activity: desc})
}

func (p *Provider) enqueue(env *wire.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.connected {
		return ErrNotConnected
	}
	select {
	case p.send <- data:
		return nil
	default:
		return ErrSendQueue
	}
}

func (p *Provider) writePump(ctx context.Context, ws *websocket.Conn) {
	ping := time.NewTicker(p.pingPeriod)
	defer ping.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ping.C:
			if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				log.Warn().Err(err).Str("module", "wsgroup").Msg("ping failed")
				return
			}
		case data, ok := <-p.send:
			if !ok {
				return
			}
			if err := ws.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
				return
			}
			if err := ws.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Warn().Err(err).Str("module", "wsgroup").Msg("write failed")
				return
			}
		}
	}
}

func (p *Provider) readPump(ctx context.Context, ws *websocket.Conn) {
	defer p.disconnect()
	for {
		if ctx.Err() != nil {
			return
		}
		_, data, err := ws.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				log.Warn().Err(err).Str("module", "wsgroup").Msg("relay connection lost")
			}
			return
		}
		p.dispatch(data)
	}
}

func (p *Provider) dispatch(data []byte) {
	var env wire.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Warn().Err(err).Str("module", "wsgroup").Msg("bad envelope from relay, dropped")
		return
	}

	switch env.Type {
	case wire.TypeSession:
		p.onSession(&env)
	case wire.TypeData:
		p.onData(&env)
	case wire.TypeInvalidated:
		p.onInvalidated(env.Session)
	case wire.TypeError:
		log.Warn().Str("module", "wsgroup").Str("error", env.Error).Msg("relay error")
	default:
		log.Warn().Str("module", "wsgroup").Str("type", env.Type).Msg("unknown envelope from relay, dropped")
	}
}

func (p *Provider) onSession(env *wire.Envelope) {
	p.mu.Lock()
	if _, known := p.bySession[env.Session]; known {
		p.mu.Unlock()
		return
	}
	s := newSession(p, env.Session, env.Activity)
	p.bySession[env.Session] = s
	p.mu.Unlock()

	select {
	case p.sessions <- s:
	default:
		log.Warn().Str("module", "wsgroup").Str("session", env.Session).Msg("session stream full, handle dropped")
	}
}

func (p *Provider) onData(env *wire.Envelope) {
	p.mu.Lock()
	s, ok := p.bySession[env.Session]
	p.mu.Unlock()
	if !ok {
		log.Debug().Str("module", "wsgroup").Str("session", env.Session).Msg("data for unknown session, dropped")
		return
	}
	peer := transport.PeerInfo{}
	if env.From != nil {
		peer = transport.PeerInfo{ID: env.From.ID, Name: env.From.Name}
	}
	s.deliver(env.Payload, peer)
}

func (p *Provider) onInvalidated(id string) {
	p.mu.Lock()
	s, ok := p.bySession[id]
	delete(p.bySession, id)
	p.mu.Unlock()
	if ok {
		s.invalidate()
	}
}

// forget drops a session the local agent left; the relay stops routing
// to us either way.
func (p *Provider) forget(id string) {
	p.mu.Lock()
	delete(p.bySession, id)
	p.mu.Unlock()
}

// disconnect invalidates every live handle: with the relay gone there
// is no session to speak of.
func (p *Provider) disconnect() {
	p.mu.Lock()
	if !p.connected {
		p.mu.Unlock()
		return
	}
	p.connected = false
	ws := p.ws
	p.ws = nil
	stale := make([]*Session, 0, len(p.bySession))
	for _, s := range p.bySession {
		stale = append(stale, s)
	}
	p.bySession = make(map[string]*Session)
	p.mu.Unlock()

	if ws != nil {
		_ = ws.Close()
	}
	for _, s := range stale {
		s.invalidate()
	}
	log.Info().Str("module", "wsgroup").Msg("disconnected from relay")
}
