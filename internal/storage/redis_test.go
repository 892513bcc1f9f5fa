package storage

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Set LEARN_TEST_REDIS_ADDR to run against a live server.
func TestRedisBackend(t *testing.T) {
	addr := os.Getenv("LEARN_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("LEARN_TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	defer rdb.Close()
	require.NoError(t, rdb.Ping(ctx).Err())

	prefix := "learn-test-" + uuid.NewString()
	b := NewRedisBackend(rdb, prefix, AreaSession, time.Minute)

	require.NoError(t, b.Set(ctx, "quiz_session_id", "s1"))
	v, err := b.Get(ctx, "quiz_session_id")
	require.NoError(t, err)
	assert.Equal(t, "s1", v)

	keys, err := b.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"quiz_session_id"}, keys)

	ttl, err := rdb.TTL(ctx, prefix+":"+AreaSession+":quiz_session_id").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	require.NoError(t, b.Delete(ctx, "quiz_session_id"))
	_, err = b.Get(ctx, "quiz_session_id")
	assert.ErrorIs(t, err, ErrNotFound)
}
