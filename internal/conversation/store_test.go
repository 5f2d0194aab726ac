package conversation

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/speakup-coach/backend/internal/llm"
	"github.com/speakup-coach/backend/internal/logger"
)

func newSession(id string, userID int64, at time.Time) *Session {
	return &Session{
		ID:           id,
		UserID:       userID,
		Scenario:     "Travel",
		SystemPrompt: SystemPromptFor("Travel"),
		Messages:     []llm.Message{{Role: llm.RoleAssistant, Content: "Welcome to Paris!"}},
		CreatedAt:    at,
		UpdatedAt:    at,
	}
}

func newRedisStore(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisStore(client, ttl), mr
}

// exercises the behaviour both stores share
func testStoreContract(t *testing.T, store Store) {
	ctx := context.Background()
	now := time.Now()

	_, err := store.Get(ctx, 1)
	assert.ErrorIs(t, err, ErrNoActiveConversation)

	require.NoError(t, store.Create(ctx, newSession("a", 1, now)))
	got, err := store.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "a", got.ID)
	assert.Equal(t, "Travel", got.Scenario)
	require.Len(t, got.Messages, 1)

	got.Messages = append(got.Messages, llm.Message{Role: llm.RoleUser, Content: "Where is the Louvre?"})
	require.NoError(t, store.Save(ctx, got))
	got, err = store.Get(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, got.Messages, 2)

	// starting again replaces the old conversation
	require.NoError(t, store.Create(ctx, newSession("b", 1, now)))
	assert.ErrorIs(t, store.Save(ctx, got), ErrNoActiveConversation)
	got, err = store.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "b", got.ID)
	assert.Len(t, got.Messages, 1)

	// other users are untouched
	_, err = store.Get(ctx, 2)
	assert.ErrorIs(t, err, ErrNoActiveConversation)

	require.NoError(t, store.Delete(ctx, 1))
	_, err = store.Get(ctx, 1)
	assert.ErrorIs(t, err, ErrNoActiveConversation)
	assert.ErrorIs(t, store.Save(ctx, got), ErrNoActiveConversation)
	assert.NoError(t, store.Delete(ctx, 1))
}

func TestMemoryStore(t *testing.T) {
	testStoreContract(t, NewMemoryStore(time.Hour))
}

func TestRedisStore(t *testing.T) {
	store, _ := newRedisStore(t, time.Hour)
	testStoreContract(t, store)
}

func TestMemoryStore_Expiry(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)
	store := NewMemoryStore(30 * time.Minute)
	store.now = func() time.Time { return start.Add(10 * time.Minute) }

	require.NoError(t, store.Create(ctx, newSession("fresh", 1, start)))
	require.NoError(t, store.Create(ctx, newSession("stale", 2, start.Add(-time.Hour))))

	_, err := store.Get(ctx, 1)
	assert.NoError(t, err)
	_, err = store.Get(ctx, 2)
	assert.ErrorIs(t, err, ErrNoActiveConversation)

	expired, err := store.Expired(ctx, start.Add(10*time.Minute))
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, "stale", expired[0].ID)
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Hour)
	sess := newSession("a", 1, time.Now())
	require.NoError(t, store.Create(ctx, sess))

	sess.Messages[0].Content = "mutated"
	got, err := store.Get(ctx, 1)
	require.NoError(t, err)
	got.Messages = append(got.Messages, llm.Message{Role: llm.RoleUser, Content: "hi"})

	again, err := store.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Welcome to Paris!", again.Messages[0].Content)
	assert.Len(t, again.Messages, 1)
}

func TestRedisStore_TTL(t *testing.T) {
	ctx := context.Background()
	store, mr := newRedisStore(t, 30*time.Minute)

	sess := newSession("a", 1, time.Now())
	require.NoError(t, store.Create(ctx, sess))
	assert.Equal(t, 30*time.Minute, mr.TTL(redisKey(1)))

	mr.FastForward(20 * time.Minute)
	require.NoError(t, store.Save(ctx, sess))
	assert.Equal(t, 30*time.Minute, mr.TTL(redisKey(1)))

	mr.FastForward(31 * time.Minute)
	_, err := store.Get(ctx, 1)
	assert.ErrorIs(t, err, ErrNoActiveConversation)

	expired, err := store.Expired(ctx, time.Now())
	assert.NoError(t, err)
	assert.Empty(t, expired)
}

func TestSweeper(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)
	store := NewMemoryStore(30 * time.Minute)
	store.now = func() time.Time { return now }

	require.NoError(t, store.Create(ctx, newSession("fresh", 1, now.Add(-time.Minute))))
	require.NoError(t, store.Create(ctx, newSession("stale", 2, now.Add(-time.Hour))))
	require.NoError(t, store.Create(ctx, newSession("older", 3, now.Add(-2*time.Hour))))

	sw := NewSweeper(store, time.Minute, logger.Nop())
	sw.now = func() time.Time { return now }

	assert.Equal(t, 2, sw.sweep(ctx))
	assert.Len(t, store.sessions, 1)
	_, err := store.Get(ctx, 1)
	assert.NoError(t, err)
	assert.Equal(t, 0, sw.sweep(ctx))
}

func TestSweeper_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sw := NewSweeper(NewMemoryStore(time.Minute), time.Millisecond, logger.Nop())

	done := make(chan struct{})
	go func() {
		sw.run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
