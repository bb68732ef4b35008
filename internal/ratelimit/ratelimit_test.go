package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/talentloop/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestLockerExclusive(t *testing.T) {
	mr, client := newTestRedis(t)
	locker := NewLocker(client)
	ctx := context.Background()

	token, ok, err := locker.TryLock(ctx, "entitlement:u@x.com", time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = locker.TryLock(ctx, "entitlement:u@x.com", time.Second)
	require.NoError(t, err)
	assert.False(t, ok)

	// A foreign token must not release the lock.
	require.NoError(t, locker.Release(ctx, "entitlement:u@x.com", "other"))
	assert.True(t, mr.Exists("entitlement:u@x.com"))

	require.NoError(t, locker.Release(ctx, "entitlement:u@x.com", token))
	assert.False(t, mr.Exists("entitlement:u@x.com"))
}

func TestLockerExpires(t *testing.T) {
	mr, client := newTestRedis(t)
	locker := NewLocker(client)
	ctx := context.Background()

	_, ok, err := locker.TryLock(ctx, "k", time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Second)

	_, ok, err = locker.TryLock(ctx, "k", time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestWithLock(t *testing.T) {
	_, client := newTestRedis(t)
	locker := NewLocker(client)
	ctx := context.Background()

	ran := false
	err := locker.WithLock(ctx, "k", time.Second, func(ctx context.Context) error {
		ran = true
		inner := locker.WithLock(ctx, "k", time.Second, func(context.Context) error { return nil })
		assert.ErrorIs(t, inner, ErrLockBusy)
		return errors.New("boom")
	})
	assert.True(t, ran)
	assert.EqualError(t, err, "boom")

	// Released after fn returned.
	assert.NoError(t, locker.WithLock(ctx, "k", time.Second, func(context.Context) error { return nil }))
}

func TestNilLocker(t *testing.T) {
	assert.Nil(t, NewLocker(nil))
	var locker *Locker
	_, _, err := locker.TryLock(context.Background(), "k", time.Second)
	assert.Error(t, err)
	assert.NoError(t, locker.Release(context.Background(), "k", "t"))
}

func TestTokenBucketDeniesAfterBurst(t *testing.T) {
	_, client := newTestRedis(t)
	bucket := NewTokenBucket(client)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res, err := bucket.Allow(ctx, "forum:write:u1", 0.001, 3)
		require.NoError(t, err)
		assert.True(t, res.Allowed, "request %d", i)
	}

	res, err := bucket.Allow(ctx, "forum:write:u1", 0.001, 3)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Positive(t, res.RetryAfter)

	// Other subjects have their own bucket.
	res, err = bucket.Allow(ctx, "forum:write:u2", 0.001, 3)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestTokenBucketValidatesInput(t *testing.T) {
	_, client := newTestRedis(t)
	bucket := NewTokenBucket(client)

	_, err := bucket.Allow(context.Background(), "", 1, 1)
	assert.Error(t, err)
	_, err = bucket.Allow(context.Background(), "k", 0, 1)
	assert.Error(t, err)
	_, err = bucket.Allow(context.Background(), "k", 1, 0)
	assert.Error(t, err)
}

func TestForumWriteLimiter(t *testing.T) {
	_, client := newTestRedis(t)

	disabled, err := NewForumWriteLimiter(config.Config{}, client)
	require.NoError(t, err)
	assert.False(t, disabled.Enabled())
	res, err := disabled.Allow(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	_, err = NewForumWriteLimiter(config.Config{RateLimit: config.RateLimitConfig{Enabled: true, ForumWriteRate: 1, ForumWriteBurst: 1}}, nil)
	assert.Error(t, err)

	limiter, err := NewForumWriteLimiter(config.Config{RateLimit: config.RateLimitConfig{
		Enabled:         true,
		ForumWriteRate:  0.01,
		ForumWriteBurst: 1,
	}}, client)
	require.NoError(t, err)

	res, err = limiter.Allow(context.Background(), "U1")
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	res, err = limiter.Allow(context.Background(), "u1")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
}
