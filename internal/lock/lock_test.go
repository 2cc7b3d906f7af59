package lock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalLockerIsExclusive(t *testing.T) {
	l := NewLocalLocker()
	ctx := context.Background()

	lease, err := l.Obtain(ctx, "reconcile", time.Minute)
	require.NoError(t, err)

	_, err = l.Obtain(ctx, "reconcile", time.Minute)
	assert.ErrorIs(t, err, ErrNotObtained)

	other, err := l.Obtain(ctx, "other", time.Minute)
	require.NoError(t, err)
	require.NoError(t, other.Release(ctx))

	require.NoError(t, lease.Release(ctx))
	again, err := l.Obtain(ctx, "reconcile", time.Minute)
	require.NoError(t, err)
	require.NoError(t, again.Release(ctx))
}

func TestLocalLockerExpiredLeaseCanBeTaken(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	l := NewLocalLocker()
	l.now = func() time.Time { return now }
	ctx := context.Background()

	stale, err := l.Obtain(ctx, "reconcile", time.Second)
	require.NoError(t, err)

	now = now.Add(2 * time.Second)
	fresh, err := l.Obtain(ctx, "reconcile", time.Minute)
	require.NoError(t, err)

	// releasing the stale lease must not free the fresh one
	require.NoError(t, stale.Release(ctx))
	_, err = l.Obtain(ctx, "reconcile", time.Minute)
	assert.ErrorIs(t, err, ErrNotObtained)

	require.NoError(t, fresh.Release(ctx))
}
