package memstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/kairei-project/kairei/memstore"
	"github.com/kairei-project/kairei/value"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestInMemorySetGet(t *testing.T) {
	s := memstore.NewInMemory(10)
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "k", value.OfString("hello"), 0, "text/plain", nil))

	v, meta, err := s.Get(ctx, "k")
	require.NoError(t, err)
	str, ok := v.String()
	require.True(t, ok)
	require.Equal(t, "hello", str)
	require.Equal(t, "text/plain", meta.ContentType)
}

func TestInMemoryLRUEviction(t *testing.T) {
	s := memstore.NewInMemory(2)
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "a", value.OfInt(1), 0, "", nil))
	require.NoError(t, s.Set(ctx, "b", value.OfInt(2), 0, "", nil))
	_, _, _ = s.Get(ctx, "a") // touch a, making b the LRU victim
	require.NoError(t, s.Set(ctx, "c", value.OfInt(3), 0, "", nil))

	_, _, err := s.Get(ctx, "b")
	require.ErrorIs(t, err, memstore.ErrNotFound)
	_, _, err = s.Get(ctx, "a")
	require.NoError(t, err)
	_, _, err = s.Get(ctx, "c")
	require.NoError(t, err)
}

func TestInMemoryTTLExpiry(t *testing.T) {
	s := memstore.NewInMemory(10)
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "k", value.OfInt(1), 10*time.Millisecond, "", nil))
	time.Sleep(30 * time.Millisecond)
	_, _, err := s.Get(ctx, "k")
	require.ErrorIs(t, err, memstore.ErrNotFound)
}

func TestRedisStoreRoundTrip(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	store := memstore.NewRedis(client, "kairei-test")
	ctx := context.Background()

	v := value.OfMap(map[string]value.Value{"count": value.OfInt(42)})
	require.NoError(t, store.Set(ctx, "agentA/state", v, time.Minute, "application/json", map[string]string{"env": "test"}))

	got, meta, err := store.Get(ctx, "agentA/state")
	require.NoError(t, err)
	require.True(t, value.Equal(v, got))
	require.Equal(t, "application/json", meta.ContentType)
	require.Equal(t, "test", meta.Tags["env"])

	keys, err := store.Keys(ctx, "agentA/*")
	require.NoError(t, err)
	require.Contains(t, keys, "agentA/state")

	exists, err := store.Exists(ctx, "agentA/state")
	require.NoError(t, err)
	require.True(t, exists)

	require.NoError(t, store.Delete(ctx, "agentA/state"))
	_, _, err = store.Get(ctx, "agentA/state")
	require.ErrorIs(t, err, memstore.ErrNotFound)

	exists, err = store.Exists(ctx, "agentA/state")
	require.NoError(t, err)
	require.False(t, exists)
}

func TestInMemoryKeysGlobAndExists(t *testing.T) {
	s := memstore.NewInMemory(10)
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "agentA/status", value.OfInt(1), 0, "", nil))
	require.NoError(t, s.Set(ctx, "agentA/stats", value.OfInt(2), 0, "", nil))
	require.NoError(t, s.Set(ctx, "agentB/status", value.OfInt(3), 0, "", nil))

	keys, err := s.Keys(ctx, "agentA/stat?s")
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"agentA/status"}, keys)

	keys, err = s.Keys(ctx, "agent?/status")
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"agentA/status", "agentB/status"}, keys)

	exists, err := s.Exists(ctx, "agentA/status")
	require.NoError(t, err)
	require.True(t, exists)

	exists, err = s.Exists(ctx, "agentA/missing")
	require.NoError(t, err)
	require.False(t, exists)
}
