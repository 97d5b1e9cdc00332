package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bholsinger09/layover/internal/domain"
)

func testRoom(id, name string) domain.Room {
	return domain.Room{ID: domain.RoomID(id), Name: domain.RoomName(name), Activity: domain.ActivityWatch}
}

func testUser(id, name string) domain.User {
	return domain.User{ID: domain.UserID(id), DisplayName: name}
}

func TestApplyRoomCreatedIdempotent(t *testing.T) {
	r := NewReconciler(nil)
	room := testRoom("r1", "Movie Night")
	for i := 0; i < 5; i++ {
		r.ApplyRoomCreated(room)
	}
	rooms := r.Rooms()
	require.Len(t, rooms, 1)
	assert.Equal(t, domain.RoomID("r1"), rooms[0].Room.ID)
	assert.Equal(t, domain.RoomName("Movie Night"), rooms[0].Room.Name)
}

func TestApplyRoomCreatedFirstWriterWins(t *testing.T) {
	r := NewReconciler(nil)
	r.ApplyRoomCreated(testRoom("r1", "First"))
	r.ApplyRoomCreated(testRoom("r1", "Second"))
	rooms := r.Rooms()
	require.Len(t, rooms, 1)
	assert.Equal(t, domain.RoomName("First"), rooms[0].Room.Name)
}

func TestApplyUserJoinedIdempotent(t *testing.T) {
	r := NewReconciler(nil)
	r.ApplyRoomCreated(testRoom("r1", "Movie Night"))
	u := testUser("u1", "ben")
	r.ApplyUserJoined(u, "r1")
	r.ApplyUserJoined(u, "r1")
	room, ok := r.Room("r1")
	require.True(t, ok)
	require.Len(t, room.Participants, 1)
	assert.Equal(t, domain.UserID("u1"), room.Participants[0].ID)
}

func TestApplyUserJoinedUnknownRoomIsNoOp(t *testing.T) {
	r := NewReconciler(nil)
	u := testUser("u1", "ben")
	r.ApplyUserJoined(u, "r1")
	assert.Empty(t, r.Rooms())

	// The room arriving later does not retroactively include the user.
	r.ApplyRoomCreated(testRoom("r1", "Movie Night"))
	room, ok := r.Room("r1")
	require.True(t, ok)
	assert.Empty(t, room.Participants)
}

func TestApplyContentSelectedDeliversToPlayer(t *testing.T) {
	player := &recordingPlayer{}
	r := NewReconciler(player)
	content := domain.MediaContent{ID: "c1", Title: "Layover", Kind: domain.MediaVideo}
	r.ApplyContentSelected(content)
	loaded := player.loadedContent()
	require.Len(t, loaded, 1)
	assert.Equal(t, domain.ContentID("c1"), loaded[0].ID)
}

func TestEchoSuppression(t *testing.T) {
	player := &recordingPlayer{}
	r := NewReconciler(player)

	var sent []Message
	r.bindSend(func(_ context.Context, m Message) { sent = append(sent, m) })

	// The player reports every load back as a local selection, the way
	// a player-state observer would.
	player.onLoad = func(c domain.MediaContent) {
		r.SelectContent(context.Background(), c)
	}

	r.ApplyContentSelected(domain.MediaContent{ID: "c1", Kind: domain.MediaVideo})
	assert.Empty(t, sent, "inbound selection must not be re-broadcast")

	// A genuinely local selection still goes out.
	player.onLoad = nil
	r.SelectContent(context.Background(), domain.MediaContent{ID: "c2", Kind: domain.MediaVideo})
	require.Len(t, sent, 1)
	selected, ok := sent[0].(ContentSelected)
	require.True(t, ok)
	assert.Equal(t, domain.ContentID("c2"), selected.Content.ID)
}

func TestLocalCreateRoomBroadcasts(t *testing.T) {
	r := NewReconciler(nil)
	var sent []Message
	r.bindSend(func(_ context.Context, m Message) { sent = append(sent, m) })

	room := testRoom("r1", "Movie Night")
	r.CreateRoom(context.Background(), room)
	require.Len(t, sent, 1)
	created, ok := sent[0].(RoomCreated)
	require.True(t, ok)
	assert.Equal(t, room.ID, created.Room.ID)

	// Duplicate local create neither duplicates nor re-broadcasts.
	r.CreateRoom(context.Background(), room)
	assert.Len(t, sent, 1)
	assert.Len(t, r.Rooms(), 1)
}

func TestLocalJoinRoom(t *testing.T) {
	r := NewReconciler(nil)
	var sent []Message
	r.bindSend(func(_ context.Context, m Message) { sent = append(sent, m) })

	err := r.JoinRoom(context.Background(), testUser("u1", "ben"), "missing")
	assert.ErrorIs(t, err, domain.ErrRoomNotFound)
	assert.Empty(t, sent)

	r.ApplyRoomCreated(testRoom("r1", "Movie Night"))
	require.NoError(t, r.JoinRoom(context.Background(), testUser("u1", "ben"), "r1"))
	require.Len(t, sent, 1)
	joined, ok := sent[0].(UserJoined)
	require.True(t, ok)
	assert.Equal(t, domain.RoomID("r1"), joined.Room)
}

func TestRoomCreatedHook(t *testing.T) {
	var hooked []domain.Room
	r := NewReconciler(nil, WithRoomCreatedHook(func(room domain.Room) { hooked = append(hooked, room) }))
	r.ApplyRoomCreated(testRoom("r1", "Movie Night"))
	r.ApplyRoomCreated(testRoom("r1", "Movie Night"))
	require.Len(t, hooked, 1, "hook fires once per distinct room")
}
