package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/Guwen-Annotator/internal/infrastructure/monitoring/logging"
	pkgerrors "github.com/turtacn/Guwen-Annotator/pkg/errors"
)

func newMiniredisClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := NewClient(&RedisConfig{Mode: "standalone", Addr: mr.Addr()}, logging.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func TestNewClient_Standalone(t *testing.T) {
	client, _ := newMiniredisClient(t)
	assert.NoError(t, client.Ping(context.Background()))
}

func TestNewClient_ConnectionFailed(t *testing.T) {
	cfg := &RedisConfig{Addr: "127.0.0.1:1", DialTimeout: 200 * time.Millisecond}
	client, err := NewClient(cfg, nil)
	assert.Nil(t, client)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrCodeCacheError))
}

func TestApplyDefaults(t *testing.T) {
	cfg := &RedisConfig{}
	applyDefaults(cfg)
	assert.Equal(t, "standalone", cfg.Mode)
	assert.Equal(t, "localhost:6379", cfg.Addr)
	assert.Equal(t, -1, cfg.MaxRetries)
	assert.Equal(t, 5*time.Second, cfg.DialTimeout)
}

func TestClient_Operations(t *testing.T) {
	client, mr := newMiniredisClient(t)
	ctx := context.Background()

	require.NoError(t, client.Set(ctx, "foo", "bar", time.Minute).Err())
	val, err := client.Get(ctx, "foo").Result()
	require.NoError(t, err)
	assert.Equal(t, "bar", val)
	assert.Equal(t, time.Minute, mr.TTL("foo"))

	deleted, err := client.Del(ctx, "foo").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
}

func TestClient_CloseIsIdempotent(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := NewClient(&RedisConfig{Addr: mr.Addr()}, logging.NewNopLogger())
	require.NoError(t, err)

	assert.NoError(t, client.Close())
	assert.NoError(t, client.Close())

	ctx := context.Background()
	assert.Equal(t, ErrClientClosed, client.Ping(ctx))
	assert.Equal(t, ErrClientClosed, client.Get(ctx, "foo").Err())
	assert.Equal(t, ErrClientClosed, client.Set(ctx, "foo", "bar", 0).Err())
	assert.Equal(t, ErrClientClosed, client.Del(ctx, "foo").Err())
	assert.Equal(t, ErrClientClosed, client.Scan(ctx, 0, "*", 10).Err())
}

func TestRedisCache_AgainstMiniredis(t *testing.T) {
	client, mr := newMiniredisClient(t)
	cache := NewRedisCache(client, nil, WithPrefix("guwen:test:"))
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "llm:a", answer{Result: "甲"}, time.Minute))
	require.NoError(t, cache.Set(ctx, "llm:b", answer{Result: "乙"}, time.Minute))
	require.NoError(t, cache.Set(ctx, "other", answer{Result: "丙"}, time.Minute))
	assert.True(t, mr.Exists("guwen:test:llm:a"))

	n, err := cache.DeleteByPrefix(ctx, "llm:")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	var got answer
	require.NoError(t, cache.Get(ctx, "other", &got))
	assert.Equal(t, "丙", got.Result)
}
