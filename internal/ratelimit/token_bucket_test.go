package ratelimit

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBucket(t *testing.T) (*TokenBucket, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewTokenBucket(client), mr
}

func TestTokenBucketExhaustsBurst(t *testing.T) {
	bucket, _ := newTestBucket(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res, err := bucket.Allow(ctx, "promo:validate:ip:10.0.0.1", 1, 3)
		require.NoError(t, err)
		assert.True(t, res.Allowed, "request %d within burst should pass", i)
	}

	res, err := bucket.Allow(ctx, "promo:validate:ip:10.0.0.1", 1, 3)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Positive(t, res.RetryAfter)
}

func TestTokenBucketIsolatesKeys(t *testing.T) {
	bucket, _ := newTestBucket(t)
	ctx := context.Background()

	res, err := bucket.Allow(ctx, "promo:validate:ip:10.0.0.1", 1, 1)
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	res, err = bucket.Allow(ctx, "promo:validate:ip:10.0.0.1", 1, 1)
	require.NoError(t, err)
	assert.False(t, res.Allowed)

	// A different client address has its own bucket.
	res, err = bucket.Allow(ctx, "promo:validate:ip:10.0.0.2", 1, 1)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestTokenBucketValidation(t *testing.T) {
	bucket, _ := newTestBucket(t)
	ctx := context.Background()

	_, err := bucket.Allow(ctx, "", 1, 1)
	assert.Error(t, err)
	_, err = bucket.Allow(ctx, "key", 0, 1)
	assert.Error(t, err)

	var nilBucket *TokenBucket
	_, err = nilBucket.Allow(ctx, "key", 1, 1)
	assert.Error(t, err)
}

func TestValidateLimiterDisabledAllowsAll(t *testing.T) {
	var limiter *ValidateLimiter
	res, err := limiter.Allow(context.Background(), "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}
