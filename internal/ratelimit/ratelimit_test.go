package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/mensalidade/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return srv, client
}

func TestLockerIsExclusive(t *testing.T) {
	srv, client := newRedis(t)
	locker := NewLocker(client)
	ctx := context.Background()

	token, ok, err := locker.TryLock(ctx, "collection:dispatch", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	require.NotEmpty(t, token)

	_, ok, err = locker.TryLock(ctx, "collection:dispatch", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	// a stale token must not release someone else's lock
	require.NoError(t, locker.Release(ctx, "collection:dispatch", "not-the-owner"))
	assert.True(t, srv.Exists("collection:dispatch"))

	require.NoError(t, locker.Release(ctx, "collection:dispatch", token))
	assert.False(t, srv.Exists("collection:dispatch"))

	_, ok, err = locker.TryLock(ctx, "collection:dispatch", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLockerExpires(t *testing.T) {
	srv, client := newRedis(t)
	locker := NewLocker(client)
	ctx := context.Background()

	_, ok, err := locker.TryLock(ctx, "job", time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	srv.FastForward(2 * time.Second)

	_, ok, err = locker.TryLock(ctx, "job", time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestNilLocker(t *testing.T) {
	locker := NewLocker(nil)
	assert.Nil(t, locker)
	assert.False(t, locker.Enabled())

	_, _, err := locker.TryLock(context.Background(), "job", time.Second)
	assert.ErrorIs(t, err, ErrLockNotConfigured)
	assert.NoError(t, locker.Release(context.Background(), "job", "token"))
}

func TestTokenBucketDrainsBurst(t *testing.T) {
	_, client := newRedis(t)
	bucket := NewTokenBucket(client)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res, err := bucket.Allow(ctx, "bucket", 0.001, 3)
		require.NoError(t, err)
		assert.True(t, res.Allowed, "attempt %d", i)
	}

	res, err := bucket.Allow(ctx, "bucket", 0.001, 3)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Positive(t, res.RetryAfter)
}

func TestSendThrottle(t *testing.T) {
	_, client := newRedis(t)
	ctx := context.Background()

	var disabled *SendThrottle
	ok, err := disabled.Allow(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	cfg := config.Config{WhatsApp: config.WhatsAppConfig{SendRate: 0.001, SendBurst: 1}}
	throttle := NewSendThrottle(client, cfg)
	require.NotNil(t, throttle)

	ok, err = throttle.Allow(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = throttle.Allow(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Nil(t, NewSendThrottle(nil, cfg))
}
