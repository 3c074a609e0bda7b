package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// blockingStore holds AppendTurn for one user until release is closed
type blockingStore struct {
	*InMemoryStore
	slowUser string
	entered  chan struct{}
	release  chan struct{}
}

func (b *blockingStore) AppendTurn(ctx context.Context, turn Turn) error {
	if turn.UserID == b.slowUser {
		close(b.entered)
		<-b.release
	}
	return b.InMemoryStore.AppendTurn(ctx, turn)
}

type failingStore struct {
	*InMemoryStore
	appendErr error
}

func (f *failingStore) AppendTurn(ctx context.Context, turn Turn) error {
	return f.appendErr
}

func TestManagerPersistAndHistory(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	m := NewManager(store, zaptest.NewLogger(t))

	require.NoError(t, m.Persist(ctx, TurnRecord{
		UserID:      "u1",
		SessionID:   "s1",
		UserMessage: "there is garbage near my house",
		BotResponse: "I've logged your garbage collection complaint.",
		Language:    "english",
		Intent:      "topic:garbage",
	}))

	turns, err := m.Turns(ctx, "u1", 0)
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.NotEmpty(t, turns[0].ID)
	assert.Equal(t, "s1", turns[0].SessionID)
	assert.Equal(t, "topic:garbage", turns[0].Intent)

	history, err := m.FormattedHistory(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "User: there is garbage near my house\nAssistant: I've logged your garbage collection complaint.\n", history)
	assert.Equal(t, 1, m.CachedUsers())
}

func TestManagerLoadsExistingTurnsIntoBuffer(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	require.NoError(t, store.AppendTurn(ctx, Turn{ID: "t1", UserID: "u2", UserMessage: "bill", BotResponse: "pay online"}))

	m := NewManager(store, nil)
	history, err := m.FormattedHistory(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, "User: bill\nAssistant: pay online\n", history)
}

func TestManagerEmptyHistory(t *testing.T) {
	m := NewManager(NewInMemoryStore(), nil)
	history, err := m.FormattedHistory(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Equal(t, "No previous conversation.", history)
}

func TestManagerPersistRequiresUser(t *testing.T) {
	m := NewManager(NewInMemoryStore(), nil)
	err := m.Persist(context.Background(), TurnRecord{UserMessage: "hi", BotResponse: "hello"})
	assert.Error(t, err)
}

func TestManagerPersistPropagatesStoreError(t *testing.T) {
	boom := errors.New("disk full")
	m := NewManager(&failingStore{InMemoryStore: NewInMemoryStore(), appendErr: boom}, nil)

	err := m.Persist(context.Background(), TurnRecord{UserID: "u", UserMessage: "a", BotResponse: "b"})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	// the failed turn must not leak into the buffer
	history, err := m.FormattedHistory(context.Background(), "u")
	require.NoError(t, err)
	assert.Equal(t, "No previous conversation.", history)
}

func TestManagerClearUser(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewInMemoryStore(), nil)
	require.NoError(t, m.Persist(ctx, TurnRecord{UserID: "u3", UserMessage: "tax", BotResponse: "pay by June"}))

	require.NoError(t, m.ClearUser(ctx, "u3"))
	assert.Equal(t, 0, m.CachedUsers())

	turns, err := m.Turns(ctx, "u3", 0)
	require.NoError(t, err)
	assert.Empty(t, turns)
}

func TestManagerEvictsLeastRecentlyUsedBuffers(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewInMemoryStore(), nil, WithMaxCachedUsers(2))

	for _, user := range []string{"u1", "u2", "u3"} {
		require.NoError(t, m.Persist(ctx, TurnRecord{UserID: user, UserMessage: "water", BotResponse: "registered " + user}))
	}
	assert.Equal(t, 2, m.CachedUsers())

	// u1 was evicted and comes back from the store
	history, err := m.FormattedHistory(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "User: water\nAssistant: registered u1\n", history)
	assert.Equal(t, 2, m.CachedUsers())
}

func TestManagerSlowStoreOnlyBlocksThatUser(t *testing.T) {
	ctx := context.Background()
	store := &blockingStore{
		InMemoryStore: NewInMemoryStore(),
		slowUser:      "slow",
		entered:       make(chan struct{}),
		release:       make(chan struct{}),
	}
	m := NewManager(store, nil)

	slowDone := make(chan error, 1)
	go func() {
		slowDone <- m.Persist(ctx, TurnRecord{UserID: "slow", UserMessage: "tax", BotResponse: "due in June"})
	}()
	<-store.entered

	fastDone := make(chan error, 1)
	go func() {
		fastDone <- m.Persist(ctx, TurnRecord{UserID: "fast", UserMessage: "road", BotResponse: "logged"})
	}()
	select {
	case err := <-fastDone:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("persist for another user waited on the slow store call")
	}

	history, err := m.FormattedHistory(ctx, "fast")
	require.NoError(t, err)
	assert.Equal(t, "User: road\nAssistant: logged\n", history)

	close(store.release)
	require.NoError(t, <-slowDone)
	history, err = m.FormattedHistory(ctx, "slow")
	require.NoError(t, err)
	assert.Equal(t, "User: tax\nAssistant: due in June\n", history)
}
