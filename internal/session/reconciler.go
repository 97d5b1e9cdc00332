package session

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/bholsinger09/layover/internal/domain"
	"github.com/bholsinger09/layover/internal/playback"
)

// RoomView is a read-only snapshot of a reconciled room.
type RoomView struct {
	Room         domain.Room   `json:"room"`
	Participants []domain.User `json:"participants"`
}

type roomEntry struct {
	room         domain.Room
	participants []domain.User
	byUser       map[domain.UserID]struct{}
}

// Reconciler applies inbound messages and local-origin events to the
// room list. Every apply is idempotent: the transport gives no
// exactly-once guarantee, so replaying a message must equal applying it
// once.
type Reconciler struct {
	player playback.Coordinator

	mu            sync.RWMutex
	order         []domain.RoomID
	rooms         map[domain.RoomID]*roomEntry
	suppressEcho  bool
	send          func(context.Context, Message)
	onRoomCreated func(domain.Room)
}

type ReconcilerOption func(*Reconciler)

// WithRoomCreatedHook installs a callback fired when a new room enters
// the list, local or remote. The UI uses it to navigate.
func WithRoomCreatedHook(fn func(domain.Room)) ReconcilerOption {
	return func(r *Reconciler) { r.onRoomCreated = fn }
}

func NewReconciler(player playback.Coordinator, opts ...ReconcilerOption) *Reconciler {
	r := &Reconciler{
		player: player,
		rooms:  make(map[domain.RoomID]*roomEntry),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// bindSend wires the outbound broadcast path. Installed by the tracker
// at construction; nil until then, which makes local-origin events
// silently local-only (useful in tests).
func (r *Reconciler) bindSend(send func(context.Context, Message)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.send = send
}

// Apply dispatches an inbound message to the matching rule.
func (r *Reconciler) Apply(msg Message) {
	switch m := msg.(type) {
	case RoomCreated:
		r.ApplyRoomCreated(m.Room)
	case UserJoined:
		r.ApplyUserJoined(m.User, m.Room)
	case ContentSelected:
		r.ApplyContentSelected(m.Content)
	}
}

// ApplyRoomCreated inserts room iff no entry with the same identifier
// exists. First writer wins; duplicates from retransmission or
// concurrent creation collapse to the first seen.
func (r *Reconciler) ApplyRoomCreated(room domain.Room) {
	r.mu.Lock()
	if _, ok := r.rooms[room.ID]; ok {
		r.mu.Unlock()
		log.Debug().Str("module", "session.reconcile").Str("room", string(room.ID)).Msg("duplicate room_created, ignored")
		return
	}
	r.insertLocked(room)
	hook := r.onRoomCreated
	r.mu.Unlock()

	log.Info().Str("module", "session.reconcile").Str("room", string(room.ID)).Str("name", string(room.Name)).Msg("room added")
	if hook != nil {
		hook(room)
	}
}

// ApplyUserJoined adds user to the room's participant set iff both the
// room is known and the user is not already present. An unknown room
// means the message arrived before its room_created; that is accepted
// loss, never queued.
func (r *Reconciler) ApplyUserJoined(user domain.User, roomID domain.RoomID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.rooms[roomID]
	if !ok {
		log.Debug().Str("module", "session.reconcile").Str("room", string(roomID)).Str("user", string(user.ID)).Msg("user_joined for unknown room, ignored")
		return
	}
	if _, ok := entry.byUser[user.ID]; ok {
		return
	}
	entry.byUser[user.ID] = struct{}{}
	entry.participants = append(entry.participants, user)
	log.Info().Str("module", "session.reconcile").Str("room", string(roomID)).Str("user", string(user.ID)).Msg("participant added")
}

// ApplyContentSelected delivers a peer's selection to the local player.
// The echo-suppression flag stays set for the whole load so a player
// change notification cannot re-broadcast the selection back.
func (r *Reconciler) ApplyContentSelected(content domain.MediaContent) {
	r.mu.Lock()
	r.suppressEcho = true
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.suppressEcho = false
		r.mu.Unlock()
	}()

	if r.player == nil {
		return
	}
	if err := r.player.Load(content); err != nil {
		log.Warn().Err(err).Str("module", "session.reconcile").Str("content", string(content.ID)).Msg("load failed")
	}
}

// CreateRoom records a locally-created room and broadcasts it. The
// dedup rule is the same as for inbound creates.
func (r *Reconciler) CreateRoom(ctx context.Context, room domain.Room) {
	r.mu.Lock()
	if _, ok := r.rooms[room.ID]; ok {
		r.mu.Unlock()
		return
	}
	r.insertLocked(room)
	send := r.send
	hook := r.onRoomCreated
	r.mu.Unlock()

	log.Info().Str("module", "session.reconcile").Str("room", string(room.ID)).Msg("local room created")
	if hook != nil {
		hook(room)
	}
	if send != nil {
		send(ctx, RoomCreated{Room: room})
	}
}

// JoinRoom records the local user joining and broadcasts it.
func (r *Reconciler) JoinRoom(ctx context.Context, user domain.User, roomID domain.RoomID) error {
	r.mu.Lock()
	entry, ok := r.rooms[roomID]
	if !ok {
		r.mu.Unlock()
		return domain.ErrRoomNotFound
	}
	if _, dup := entry.byUser[user.ID]; !dup {
		entry.byUser[user.ID] = struct{}{}
		entry.participants = append(entry.participants, user)
	}
	send := r.send
	r.mu.Unlock()

	if send != nil {
		send(ctx, UserJoined{User: user, Room: roomID})
	}
	return nil
}

// SelectContent loads content locally and broadcasts the selection,
// unless the selection itself came from a peer (echo suppression).
func (r *Reconciler) SelectContent(ctx context.Context, content domain.MediaContent) {
	r.mu.RLock()
	suppressed := r.suppressEcho
	send := r.send
	r.mu.RUnlock()
	if suppressed {
		log.Debug().Str("module", "session.reconcile").Str("content", string(content.ID)).Msg("selection echo suppressed")
		return
	}

	if r.player != nil {
		if err := r.player.Load(content); err != nil {
			log.Warn().Err(err).Str("module", "session.reconcile").Str("content", string(content.ID)).Msg("load failed")
		}
	}
	if send != nil {
		send(ctx, ContentSelected{Content: content})
	}
}

// Rooms returns a snapshot of the reconciled room list in arrival order.
func (r *Reconciler) Rooms() []RoomView {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]RoomView, 0, len(r.order))
	for _, id := range r.order {
		entry := r.rooms[id]
		participants := make([]domain.User, len(entry.participants))
		copy(participants, entry.participants)
		out = append(out, RoomView{Room: entry.room, Participants: participants})
	}
	return out
}

// Room returns a single room snapshot.
func (r *Reconciler) Room(id domain.RoomID) (RoomView, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.rooms[id]
	if !ok {
		return RoomView{}, false
	}
	participants := make([]domain.User, len(entry.participants))
	copy(participants, entry.participants)
	return RoomView{Room: entry.room, Participants: participants}, true
}

func (r *Reconciler) insertLocked(room domain.Room) {
	r.rooms[room.ID] = &roomEntry{
		room:   room,
		byUser: make(map[domain.UserID]struct{}),
	}
	r.order = append(r.order, room.ID)
}
