package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/udhaarpay/backend/internal/models"
)

// RequestLimiter caps how many connection requests one customer can open per
// window. A nil limiter, or one without Redis, allows everything.
type RequestLimiter struct {
	redis  *redis.Client
	max    int
	window time.Duration
}

func NewRequestLimiter(rdb *redis.Client, max int, window time.Duration) *RequestLimiter {
	if rdb == nil {
		return nil
	}
	return &RequestLimiter{redis: rdb, max: max, window: window}
}

func (l *RequestLimiter) Check(ctx context.Context, customerID string) error {
	if l == nil {
		return nil
	}
	count, err := l.redis.Get(ctx, l.key(customerID)).Int()
	if err != nil && err != redis.Nil {
		log.Printf("[RATELIMIT] lookup failed for %s: %v", customerID, err)
		return nil
	}
	if count >= l.max {
		return fmt.Errorf("%w: at most %d connection requests per %s", models.ErrRateLimited, l.max, l.window)
	}
	return nil
}

func (l *RequestLimiter) Record(ctx context.Context, customerID string) {
	if l == nil {
		return
	}
	key := l.key(customerID)
	pipe := l.redis.Pipeline()
	pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("[RATELIMIT] failed to record request for %s: %v", customerID, err)
	}
}

func (l *RequestLimiter) key(customerID string) string {
	return fmt.Sprintf("connreq:ratelimit:%s", customerID)
}
