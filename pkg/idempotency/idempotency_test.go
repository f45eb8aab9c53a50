package idempotency

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caseforge/caseforge/pkg/kv"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	server, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(server.Close)

	store := kv.NewStore(kv.Config{Addr: server.Addr()})
	t.Cleanup(func() { _ = store.Close() })
	return NewCache(store, time.Minute, time.Hour)
}

func TestCache_ReserveFirstCallerWins(t *testing.T) {
	cache := newTestCache(t)
	key := KeyForCase("case-1", "supervised", 2, false)

	reserved, status, raw, err := cache.Reserve(context.Background(), key)
	require.NoError(t, err)
	assert.True(t, reserved)
	assert.Equal(t, StatusInProgress, status)
	assert.Nil(t, raw)
}

func TestCache_ReserveSecondCallerSeesInProgress(t *testing.T) {
	cache := newTestCache(t)
	key := KeyForCase("case-1", "supervised", 2, false)
	ctx := context.Background()

	reserved, _, _, err := cache.Reserve(ctx, key)
	require.NoError(t, err)
	require.True(t, reserved)

	reserved, status, _, err := cache.Reserve(ctx, key)
	require.NoError(t, err)
	assert.False(t, reserved)
	assert.Equal(t, StatusInProgress, status)
}

func TestCache_CompleteCachesResultForDuplicateSubmission(t *testing.T) {
	cache := newTestCache(t)
	key := KeyForCase("case-1", "supervised", 2, false)
	ctx := context.Background()

	reserved, _, _, err := cache.Reserve(ctx, key)
	require.NoError(t, err)
	require.True(t, reserved)

	require.NoError(t, cache.Complete(ctx, key, map[string]string{"status": "completed"}))

	reserved, status, raw, err := cache.Reserve(ctx, key)
	require.NoError(t, err)
	assert.False(t, reserved)
	assert.Equal(t, StatusCompleted, status)
	assert.JSONEq(t, `{"status":"completed"}`, string(raw))
}

func TestCache_FailReleasesReservationAsFailedNotGone(t *testing.T) {
	cache := newTestCache(t)
	key := KeyForCase("case-1", "supervised", 2, false)
	ctx := context.Background()

	reserved, _, _, err := cache.Reserve(ctx, key)
	require.NoError(t, err)
	require.True(t, reserved)

	require.NoError(t, cache.Fail(ctx, key))

	reserved, status, _, err := cache.Reserve(ctx, key)
	require.NoError(t, err)
	assert.False(t, reserved)
	assert.Equal(t, StatusFailed, status)
}

func TestKeyForCase_DifferentRequestsDoNotCollide(t *testing.T) {
	a := KeyForCase("case-1", "supervised", 2, false)
	b := KeyForCase("case-1", "autonomous", 2, false)
	c := KeyForCase("case-1", "supervised", 2, false)

	assert.NotEqual(t, a, b)
	assert.Equal(t, a, c)
}
