package presence

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pairchat/internal/domain/service"
)

var (
	_ service.PresenceRegistry = (*MemoryRegistry)(nil)
	_ service.PresenceRegistry = (*RedisRegistry)(nil)
)

func exerciseRegistry(t *testing.T, registry service.PresenceRegistry) {
	ctx := context.Background()

	online, err := registry.IsOnline(ctx, 1)
	require.NoError(t, err)
	assert.False(t, online)

	require.NoError(t, registry.MarkOnline(ctx, 1))
	require.NoError(t, registry.MarkOnline(ctx, 1))

	online, err = registry.IsOnline(ctx, 1)
	require.NoError(t, err)
	assert.True(t, online)

	require.NoError(t, registry.MarkOffline(ctx, 1))
	online, err = registry.IsOnline(ctx, 1)
	require.NoError(t, err)
	assert.True(t, online, "second connection still open")

	require.NoError(t, registry.MarkOffline(ctx, 1))
	online, err = registry.IsOnline(ctx, 1)
	require.NoError(t, err)
	assert.False(t, online)

	require.NoError(t, registry.MarkOffline(ctx, 1))
	online, err = registry.IsOnline(ctx, 1)
	require.NoError(t, err)
	assert.False(t, online, "extra offline must not go negative")

	require.NoError(t, registry.MarkOnline(ctx, 1))
	online, err = registry.IsOnline(ctx, 1)
	require.NoError(t, err)
	assert.True(t, online)
}

func TestMemoryRegistry(t *testing.T) {
	registry := NewMemoryRegistry()
	exerciseRegistry(t, registry)
	assert.Equal(t, []int64{1}, registry.OnlineUsers())
}

func newMiniredisRegistry(t *testing.T, ttl time.Duration) (*RedisRegistry, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisRegistry(client, "pairchat", ttl), mr
}

func TestRedisRegistry(t *testing.T) {
	registry, mr := newMiniredisRegistry(t, time.Minute)
	exerciseRegistry(t, registry)
	assert.True(t, mr.Exists("pairchat:presence:1"))
}

func TestRedisRegistryExpires(t *testing.T) {
	registry, mr := newMiniredisRegistry(t, 30*time.Second)
	ctx := context.Background()

	require.NoError(t, registry.MarkOnline(ctx, 7))
	mr.FastForward(20 * time.Second)
	require.NoError(t, registry.Touch(ctx, 7))
	mr.FastForward(20 * time.Second)

	online, err := registry.IsOnline(ctx, 7)
	require.NoError(t, err)
	assert.True(t, online)

	mr.FastForward(31 * time.Second)
	online, err = registry.IsOnline(ctx, 7)
	require.NoError(t, err)
	assert.False(t, online)
}

func TestRedisRegistryReportsFailure(t *testing.T) {
	registry, mr := newMiniredisRegistry(t, time.Minute)
	mr.Close()

	_, err := registry.IsOnline(context.Background(), 1)
	assert.Error(t, err)
}
