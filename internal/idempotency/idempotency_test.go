package idempotency

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Hour)

	result, err := store.Reserve(ctx, "user-1:abc", "fp-a")
	require.NoError(t, err)
	assert.Empty(t, result)

	_, err = store.Reserve(ctx, "user-1:abc", "fp-a")
	assert.ErrorIs(t, err, ErrInProgress)

	require.NoError(t, store.Complete(ctx, "user-1:abc", "fp-a", "booking-42"))
	result, err = store.Reserve(ctx, "user-1:abc", "fp-a")
	require.NoError(t, err)
	assert.Equal(t, "booking-42", result)

	result, err = store.Reserve(ctx, "user-2:abc", "fp-b")
	require.NoError(t, err)
	assert.Empty(t, result, "keys are independent")
}

func TestMemoryStoreReleaseAllowsRetry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Hour)

	_, err := store.Reserve(ctx, "k", "fp")
	require.NoError(t, err)
	require.NoError(t, store.Release(ctx, "k"))

	result, err := store.Reserve(ctx, "k", "fp")
	require.NoError(t, err)
	assert.Empty(t, result)
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Minute)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	_, err := store.Reserve(ctx, "k", "fp")
	require.NoError(t, err)
	require.NoError(t, store.Complete(ctx, "k", "fp", "booking-1"))

	now = now.Add(2 * time.Minute)
	result, err := store.Reserve(ctx, "k", "fp")
	require.NoError(t, err)
	assert.Empty(t, result, "expired keys can be reused")
}

func TestMemoryStoreEvictsExpiredKeys(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Minute)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	for _, k := range []string{"a", "b", "c"} {
		_, err := store.Reserve(ctx, k, "fp")
		require.NoError(t, err)
	}
	require.NoError(t, store.Complete(ctx, "a", "fp", "booking-1"))
	assert.Len(t, store.keys, 3)

	now = now.Add(2 * time.Minute)
	_, err := store.Reserve(ctx, "d", "fp")
	require.NoError(t, err)
	assert.Len(t, store.keys, 1, "unrelated expired keys are dropped")
	assert.Contains(t, store.keys, "d")
}

func TestMemoryStoreRejectsDifferentRequest(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Hour)

	_, err := store.Reserve(ctx, "k", "fp-a")
	require.NoError(t, err)
	_, err = store.Reserve(ctx, "k", "fp-b")
	assert.ErrorIs(t, err, ErrKeyReused)

	require.NoError(t, store.Complete(ctx, "k", "fp-a", "booking-1"))
	_, err = store.Reserve(ctx, "k", "fp-b")
	assert.ErrorIs(t, err, ErrKeyReused)

	result, err := store.Reserve(ctx, "k", "fp-a")
	require.NoError(t, err)
	assert.Equal(t, "booking-1", result)
}

func TestFingerprint(t *testing.T) {
	type body struct {
		Flight string `json:"flight"`
		Seats  int    `json:"seats"`
	}
	a, err := Fingerprint(body{"f1", 2})
	require.NoError(t, err)
	b, err := Fingerprint(body{"f1", 2})
	require.NoError(t, err)
	c, err := Fingerprint(body{"f1", 3})
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}

func TestRedisStoreWrapsConnectionErrors(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()
	store := NewRedisStore(client, 0)

	_, err := store.Reserve(context.Background(), "k", "fp")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis get")
	assert.Equal(t, "idempotency:booking:k", store.key("k"))
	assert.Equal(t, DefaultTTL, store.ttl)
}
