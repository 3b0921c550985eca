package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLocker(t *testing.T) (*Locker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewLocker(client, "test:"), mr
}

func TestTryLockAcquireRelease(t *testing.T) {
	ctx := context.Background()
	locker, mr := newTestLocker(t)

	unlock, ok, err := locker.TryLock(ctx, "claim:run-1", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, mr.Exists("test:claim:run-1"))

	require.NoError(t, unlock(ctx))
	assert.False(t, mr.Exists("test:claim:run-1"))
}

func TestTryLockContention(t *testing.T) {
	ctx := context.Background()
	locker, _ := newTestLocker(t)

	unlock, ok, err := locker.TryLock(ctx, "claim:run-1", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	// A second acquisition fails without error while the lease is held.
	_, ok, err = locker.TryLock(ctx, "claim:run-1", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	// An unrelated key is unaffected.
	_, ok, err = locker.TryLock(ctx, "claim:run-2", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, unlock(ctx))
	_, ok, err = locker.TryLock(ctx, "claim:run-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestTryLockExpiry(t *testing.T) {
	ctx := context.Background()
	locker, mr := newTestLocker(t)

	_, ok, err := locker.TryLock(ctx, "claim:run-1", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Minute)

	_, ok, err = locker.TryLock(ctx, "claim:run-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "expired lease is acquirable")
}

// Unlocking after expiry must not delete a lease someone else has since
// acquired.
func TestUnlockDoesNotStealNewLease(t *testing.T) {
	ctx := context.Background()
	locker, mr := newTestLocker(t)

	unlockFirst, ok, err := locker.TryLock(ctx, "claim:run-1", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Minute)

	_, ok, err = locker.TryLock(ctx, "claim:run-1", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, unlockFirst(ctx))
	assert.True(t, mr.Exists("test:claim:run-1"), "second holder's lease survives")
}

func TestTryLockBackendDown(t *testing.T) {
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	locker := NewLocker(client, "test:")

	mr.Close()

	_, ok, err := locker.TryLock(context.Background(), "claim:run-1", time.Minute)
	assert.Error(t, err)
	assert.False(t, ok)
}
