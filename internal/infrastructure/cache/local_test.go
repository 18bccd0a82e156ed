package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalLocker_ExclusiveUntilUnlock(t *testing.T) {
	ctx := context.Background()
	l := NewLocalLocker()

	token, ok, err := l.TryLock(ctx, "dept:cse", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = l.TryLock(ctx, "dept:cse", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "second holder must be refused")

	// A stale token does not release someone else's lease
	require.NoError(t, l.Unlock(ctx, "dept:cse", "not-the-token"))
	_, ok, _ = l.TryLock(ctx, "dept:cse", time.Minute)
	assert.False(t, ok)

	require.NoError(t, l.Unlock(ctx, "dept:cse", token))
	_, ok, err = l.TryLock(ctx, "dept:cse", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLocalLocker_LeaseExpires(t *testing.T) {
	ctx := context.Background()
	l := NewLocalLocker()
	now := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	_, ok, _ := l.TryLock(ctx, "all", time.Minute)
	require.True(t, ok)

	now = now.Add(2 * time.Minute)
	_, ok, _ = l.TryLock(ctx, "all", time.Minute)
	assert.True(t, ok, "expired lease can be retaken")
}
