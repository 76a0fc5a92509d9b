package history

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "relay.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestArchiveAndQuery(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	payload := []byte(`{"type":"collaboration","project_id":"p1","op":"edit"}`)
	require.NoError(t, store.Archive(ctx, "p1", "alice", "collaboration", payload))
	require.NoError(t, store.Archive(ctx, "p1", "bob", "collaboration", []byte(`{"type":"collaboration","project_id":"p1","op":"cursor"}`)))
	require.NoError(t, store.Archive(ctx, "p2", "carol", "collaboration", []byte(`{"type":"collaboration","project_id":"p2"}`)))

	entries, err := store.RoomHistory(ctx, "p1", 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// Oldest first, payload byte-identical.
	assert.Equal(t, "alice", entries[0].ActorID)
	assert.Equal(t, payload, []byte(entries[0].Payload))
	assert.Equal(t, "bob", entries[1].ActorID)
	assert.False(t, entries[0].CreatedAt.IsZero())
}

func TestRoomHistoryLimit(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, store.Archive(ctx, "p1", "alice", "collaboration", []byte(`{}`)))
	}

	entries, err := store.RoomHistory(ctx, "p1", 3)
	require.NoError(t, err)
	assert.Len(t, entries, 3)

	// The most recent entries are kept, still ordered oldest first.
	assert.Less(t, entries[0].ID, entries[2].ID)
}

func TestRoomHistoryEmpty(t *testing.T) {
	store := newTestStore(t)

	entries, err := store.RoomHistory(context.Background(), "nope", 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestArchiveDirectChatWithoutRoom(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Archive(ctx, "", "alice", "chat", []byte(`{"type":"chat","content":"hi"}`)))
	require.NoError(t, store.Archive(ctx, "", "alice", "ai_response", []byte(`{"type":"ai_response","content":"hello"}`)))

	// Direct traffic is archived under the empty room id.
	entries, err := store.RoomHistory(ctx, "", 10)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
	assert.Equal(t, "chat", entries[0].Kind)
	assert.Equal(t, "ai_response", entries[1].Kind)
}
