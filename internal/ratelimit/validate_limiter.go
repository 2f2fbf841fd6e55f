package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/smallbiznis/innkeep/internal/config"
)

const keyPromotionValidate = "promo:validate:ip:%s"

// Defaults sized for a public endpoint hit by booking widgets: a small
// steady rate with room for a short burst per client address.
const (
	defaultValidateRate  = 5.0
	defaultValidateBurst = 10
)

// ValidateLimiter throttles the public promotion validation endpoint per
// client address. A nil limiter (no redis configured) allows everything.
type ValidateLimiter struct {
	bucket *TokenBucket
	rate   float64
	burst  int
}

func NewValidateLimiter(cfg config.Config) *ValidateLimiter {
	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" {
		return nil
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	return &ValidateLimiter{
		bucket: NewTokenBucket(client),
		rate:   defaultValidateRate,
		burst:  defaultValidateBurst,
	}
}

// NewValidateLimiterWithClient builds a limiter on an existing client,
// for tests.
func NewValidateLimiterWithClient(client *redis.Client, rate float64, burst int) *ValidateLimiter {
	return &ValidateLimiter{
		bucket: NewTokenBucket(client),
		rate:   rate,
		burst:  burst,
	}
}

func (l *ValidateLimiter) Enabled() bool {
	return l != nil && l.bucket != nil
}

func (l *ValidateLimiter) Allow(ctx context.Context, clientIP string) (Result, error) {
	if !l.Enabled() {
		return Result{Allowed: true}, nil
	}
	key := fmt.Sprintf(keyPromotionValidate, strings.TrimSpace(clientIP))
	return l.bucket.Allow(ctx, key, l.rate, l.burst)
}

// RetryAfterSeconds rounds a retry delay up to whole seconds for the
// Retry-After header.
func RetryAfterSeconds(d time.Duration) int {
	secs := int((d + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}
