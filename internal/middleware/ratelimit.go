package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/escrow-ledger/backend/internal/http/dto"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// RateLimitMiddleware allows limit requests per window for each path and
// client IP. Counters live in redis so replicas share them; with a nil client
// each process keeps its own token buckets.
func RateLimitMiddleware(rdb *redis.Client, limit int, window time.Duration) fiber.Handler {
	if rdb == nil {
		return localRateLimit(limit, window)
	}

	return func(c *fiber.Ctx) error {
		key := fmt.Sprintf("rl:%s:%s", c.Path(), c.IP())

		ctx := context.Background()
		count, err := rdb.Incr(ctx, key).Result()
		if err != nil {
			return c.Next() // fail open
		}

		if count == 1 {
			rdb.Expire(ctx, key, window)
		}

		if count > int64(limit) {
			return tooManyRequests(c)
		}

		return c.Next()
	}
}

func localRateLimit(limit int, window time.Duration) fiber.Handler {
	var (
		mu       sync.Mutex
		limiters = make(map[string]*rate.Limiter)
	)
	every := rate.Every(window / time.Duration(max(limit, 1)))

	return func(c *fiber.Ctx) error {
		key := c.Path() + "|" + c.IP()

		mu.Lock()
		l, ok := limiters[key]
		if !ok {
			l = rate.NewLimiter(every, limit)
			limiters[key] = l
		}
		mu.Unlock()

		if !l.Allow() {
			return tooManyRequests(c)
		}
		return c.Next()
	}
}

func tooManyRequests(c *fiber.Ctx) error {
	return c.Status(fiber.StatusTooManyRequests).JSON(dto.ErrorResponse{
		Error:     "rate limit exceeded",
		Code:      "rate_limited",
		RequestID: GetRequestID(c),
	})
}
