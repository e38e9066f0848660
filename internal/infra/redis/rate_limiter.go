package redis

import (
	"context"
	"fmt"
	"time"
)

// Limiter is what the web layer depends on; NoopLimiter serves deployments
// without redis configured.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

type RateLimiter struct {
	client RedisClient
}

func NewRateLimiter(client RedisClient) *RateLimiter {
	return &RateLimiter{client: client}
}

// Allow implements a fixed-window counter: first hit sets the TTL, hits past
// the limit inside the window are rejected. A device hammering /api/activate
// to brute-force code strings gets throttled here, not in the ledger.
func (r *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	count, err := r.client.Incr(ctx, key)
	if err != nil {
		return false, err
	}

	if count == 1 {
		err = r.client.Expire(ctx, key, window)
		if err != nil {
			return false, err
		}
	}

	if count > int64(limit) {
		return false, nil
	}

	return true, nil
}

type NoopLimiter struct{}

func (NoopLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	return true, nil
}

func DeviceOpKey(deviceID, op string) string {
	return fmt.Sprintf("rate_limit:%s:%s", deviceID, op)
}
