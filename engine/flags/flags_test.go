package flags

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePercent(t *testing.T) {
	t.Run("Should accept the inclusive bounds", func(t *testing.T) {
		require.NoError(t, ValidatePercent(0))
		require.NoError(t, ValidatePercent(100))
	})

	t.Run("Should reject out-of-range values", func(t *testing.T) {
		require.Error(t, ValidatePercent(-1))
		require.Error(t, ValidatePercent(101))
	})
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()

	t.Run("Should start at the initial percent", func(t *testing.T) {
		s, err := NewMemoryStore(5)
		require.NoError(t, err)
		got, err := s.Get(ctx)
		require.NoError(t, err)
		assert.Equal(t, 5, got)
	})

	t.Run("Should set and read back", func(t *testing.T) {
		s, err := NewMemoryStore(5)
		require.NoError(t, err)
		require.NoError(t, s.Set(ctx, 50))
		got, err := s.Get(ctx)
		require.NoError(t, err)
		assert.Equal(t, 50, got)
	})

	t.Run("Should reject out-of-range writes", func(t *testing.T) {
		s, err := NewMemoryStore(5)
		require.NoError(t, err)
		require.Error(t, s.Set(ctx, 120))
	})

	t.Run("Should swap only when the expected value matches", func(t *testing.T) {
		s, err := NewMemoryStore(5)
		require.NoError(t, err)

		ok, err := s.CompareAndSwap(ctx, 5, 50)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = s.CompareAndSwap(ctx, 5, 100)
		require.NoError(t, err)
		assert.False(t, ok, "stale expectation must be rejected")

		got, err := s.Get(ctx)
		require.NoError(t, err)
		assert.Equal(t, 50, got)
	})
}

func newTestRedisStore(t *testing.T, initial int) *RedisStore {
	t.Helper()
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	store, err := NewRedisStore(client, initial)
	require.NoError(t, err)
	return store
}

func TestRedisStore(t *testing.T) {
	ctx := context.Background()

	t.Run("Should report the initial percent before any write", func(t *testing.T) {
		store := newTestRedisStore(t, 5)
		got, err := store.Get(ctx)
		require.NoError(t, err)
		assert.Equal(t, 5, got)
	})

	t.Run("Should set and read back", func(t *testing.T) {
		store := newTestRedisStore(t, 5)
		require.NoError(t, store.Set(ctx, 0))
		got, err := store.Get(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, got)
	})

	t.Run("Should swap against the initial value when the key is unset", func(t *testing.T) {
		store := newTestRedisStore(t, 5)
		ok, err := store.CompareAndSwap(ctx, 5, 50)
		require.NoError(t, err)
		assert.True(t, ok)
		got, err := store.Get(ctx)
		require.NoError(t, err)
		assert.Equal(t, 50, got)
	})

	t.Run("Should reject a stale swap", func(t *testing.T) {
		store := newTestRedisStore(t, 5)
		require.NoError(t, store.Set(ctx, 50))
		ok, err := store.CompareAndSwap(ctx, 5, 100)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}
