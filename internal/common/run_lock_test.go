package common

import (
	"context"
	"testing"
	"time"

	"fraternitybase/registry/internal/constants"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalRunLock_Contention(t *testing.T) {
	lock := NewLocalRunLock()
	ctx := context.Background()
	key := ImportLockKey("Sigma Chi", "Iota Psi")

	release, err := lock.Acquire(ctx, key, time.Minute)
	require.NoError(t, err)

	_, err = lock.Acquire(ctx, key, time.Minute)
	assert.ErrorIs(t, err, constants.ErrRunInProgress)

	// other chapters are independent
	releaseOther, err := lock.Acquire(ctx, ImportLockKey("Sigma Chi", "Alpha"), time.Minute)
	require.NoError(t, err)
	releaseOther()

	release()
	release()

	again, err := lock.Acquire(ctx, key, time.Minute)
	require.NoError(t, err)
	again()
}

func TestLocalRunLock_Expires(t *testing.T) {
	lock := NewLocalRunLock()
	now := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)
	lock.now = func() time.Time { return now }
	ctx := context.Background()

	staleRelease, err := lock.Acquire(ctx, "k", time.Second)
	require.NoError(t, err)

	now = now.Add(2 * time.Second)
	freshRelease, err := lock.Acquire(ctx, "k", time.Minute)
	require.NoError(t, err)

	// the expired holder must not free the new holder's lock
	staleRelease()
	_, err = lock.Acquire(ctx, "k", time.Minute)
	assert.ErrorIs(t, err, constants.ErrRunInProgress)

	freshRelease()
}

func TestLocalRunLock_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewLocalRunLock().Acquire(ctx, "k", time.Minute)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestImportLockKey_FollowsChapterIdentity(t *testing.T) {
	assert.Equal(t, ImportLockKey("Sigma Chi", " Iota Psi "), ImportLockKey("Sigma Chi", "Iota Psi"))
	assert.Equal(t, "import:Sigma Chi:Iota Psi", ImportLockKey("Sigma Chi", "Iota Psi"))

	// distinct chapters, distinct locks
	assert.NotEqual(t, ImportLockKey("Sigma Chi", "Iota Psi"), ImportLockKey("Sigma Chi", "iota psi"))
}

func TestRedisRunLock_UnreachableServer(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })

	_, err := NewRedisRunLock(client).Acquire(context.Background(), "k", time.Minute)
	require.Error(t, err)
	assert.NotErrorIs(t, err, constants.ErrRunInProgress)
}

func TestGetString(t *testing.T) {
	cache := NewCacheService(60, 120)
	cache.Set("a", "chapter-id", time.Minute)
	cache.Set("b", 42, time.Minute)

	v, ok := GetString(cache, "a")
	assert.True(t, ok)
	assert.Equal(t, "chapter-id", v)

	_, ok = GetString(cache, "b")
	assert.False(t, ok)
	_, ok = GetString(cache, "missing")
	assert.False(t, ok)
	_, ok = GetString(nil, "a")
	assert.False(t, ok)
}
