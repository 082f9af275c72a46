package session

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comigor/chat-relay/internal/config"
	"github.com/comigor/chat-relay/internal/history"
)

// exerciseStore runs the contract every backend must honour.
func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	_, err := store.Get(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)

	a, err := store.Create(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, a.ID)
	require.Zero(t, a.Transcript.Len())

	b, err := store.Create(ctx)
	require.NoError(t, err)
	require.NotEqual(t, a.ID, b.ID)

	a.Transcript.Append(history.UserTurn("hello"), history.ModelTurn("hi there"))
	require.NoError(t, store.Save(ctx, a))
	b.Transcript.Append(history.UserTurn("other"))
	require.NoError(t, store.Save(ctx, b))

	a.Transcript.Append(history.UserTurn("second"))
	require.NoError(t, store.Save(ctx, a))

	got, err := store.Get(ctx, a.ID)
	require.NoError(t, err)
	turns := got.Transcript.Turns()
	require.Len(t, turns, 3)
	require.Equal(t, history.RoleUser, turns[0].Role)
	require.Equal(t, "hello", turns[0].Text())
	require.Equal(t, history.RoleModel, turns[1].Role)
	require.Equal(t, "hi there", turns[1].Text())
	require.Equal(t, "second", turns[2].Text())

	other, err := store.Get(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, other.Transcript.Turns(), 1)
	require.Equal(t, "other", other.Transcript.Turns()[0].Text())
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore(0)
	exerciseStore(t, store)
	require.NoError(t, store.Close())
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Minute)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	sess, err := store.Create(ctx)
	require.NoError(t, err)

	now = now.Add(30 * time.Second)
	_, err = store.Get(ctx, sess.ID)
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = store.Get(ctx, sess.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreConcurrentGetSave(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(24 * time.Hour)
	sess, err := store.Create(ctx)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := store.Get(ctx, sess.ID)
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			assert.NoError(t, store.Save(ctx, sess))
		}()
	}
	wg.Wait()

	got, err := store.Get(ctx, sess.ID)
	require.NoError(t, err)
	require.Equal(t, sess.ID, got.ID)
}

func TestMemoryStoreSweepsAbandonedSessions(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Minute)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	for i := 0; i < 1000; i++ {
		_, err := store.Create(ctx)
		require.NoError(t, err)
	}
	require.Len(t, store.sessions, 1000)

	now = now.Add(time.Hour)
	fresh, err := store.Create(ctx)
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, fresh))

	require.Len(t, store.sessions, 1, "expired sessions nobody asked for again must be dropped")
	_, err = store.Get(ctx, fresh.ID)
	require.NoError(t, err)
}

func TestSQLiteStore_File(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "sessions.db")

	store, err := NewSQLiteStore(ctx, path)
	require.NoError(t, err)
	exerciseStore(t, store)
	require.NoError(t, store.Close())
}

func TestSQLiteStore_InMemory(t *testing.T) {
	store, err := NewSQLiteStore(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	exerciseStore(t, store)
}

func TestSQLiteStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "sessions.db")

	store, err := NewSQLiteStore(ctx, path)
	require.NoError(t, err)
	sess, err := store.Create(ctx)
	require.NoError(t, err)
	sess.Transcript.Append(history.UserTurn("persist me"))
	require.NoError(t, store.Save(ctx, sess))
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStore(ctx, path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })

	got, err := reopened.Get(ctx, sess.ID)
	require.NoError(t, err)
	require.Equal(t, "persist me", got.Transcript.Turns()[0].Text())
}

func TestRedisStore(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}
	store, err := NewRedisStore(context.Background(), url, time.Minute)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	exerciseStore(t, store)
}

func TestNewStore(t *testing.T) {
	ctx := context.Background()

	store, err := NewStore(ctx, config.SessionConfig{Backend: config.BackendMemory})
	require.NoError(t, err)
	require.IsType(t, &MemoryStore{}, store)

	store, err = NewStore(ctx, config.SessionConfig{Backend: config.BackendSQLite, SQLitePath: ":memory:"})
	require.NoError(t, err)
	require.IsType(t, &SQLiteStore{}, store)
	require.NoError(t, store.Close())

	_, err = NewStore(ctx, config.SessionConfig{Backend: "etcd"})
	require.Error(t, err)
}
