package services

import (
	"context"
	"fmt"
	"time"

	"gyanburu-backend/internal/models"

	"github.com/redis/go-redis/v9"
)

// SpinPolicy combines a per-identity window counter with a minimum interval
// between accepted actions. It is evaluated inside the settlement transaction.
type SpinPolicy struct {
	Window   time.Duration
	Limit    int
	Cooldown time.Duration
}

// TTL is how long the window document should outlive its last write.
func (p SpinPolicy) TTL() time.Duration {
	ttl := p.Window
	if p.Cooldown > ttl {
		ttl = p.Cooldown
	}
	return ttl + TTLMargin
}

// Apply returns the updated window for an accepted action at now, or a
// *RateLimitError. The input window is not modified.
func (p SpinPolicy) Apply(w models.RateLimitWindow, now time.Time) (models.RateLimitWindow, error) {
	if p.Cooldown > 0 && !w.LastActionAt.IsZero() {
		if elapsed := now.Sub(w.LastActionAt); elapsed < p.Cooldown {
			return w, &RateLimitError{Reason: "spins are too frequent", RetryAfter: p.Cooldown - elapsed}
		}
	}

	next := w
	if !w.WindowStart.IsZero() && now.Sub(w.WindowStart) < p.Window {
		if w.Count >= p.Limit {
			return w, &RateLimitError{
				Reason:     "spin window exhausted",
				RetryAfter: w.WindowStart.Add(p.Window).Sub(now),
			}
		}
		next.Count++
	} else {
		next.WindowStart = now
		next.Count = 1
	}
	next.LastActionAt = now
	return next, nil
}

// fixedWindowScript refuses without incrementing once the bucket is full, so
// the stored count never passes the limit.
var fixedWindowScript = redis.NewScript(`
	local key = KEYS[1]
	local limit = tonumber(ARGV[1])
	local ttl = tonumber(ARGV[2])

	local count = tonumber(redis.call("GET", key) or "0")
	if count >= limit then
		return -1
	end

	count = redis.call("INCR", key)
	if count == 1 then
		redis.call("EXPIRE", key, ttl)
	end
	return count
`)

// FixedWindowLimiter counts actions per (identity, floor(now/window)).
type FixedWindowLimiter struct {
	client *redis.Client
	window time.Duration
	limit  int
	now    func() time.Time
}

func NewFixedWindowLimiter(redisService *RedisService, window time.Duration, limit int) *FixedWindowLimiter {
	return &FixedWindowLimiter{
		client: redisService.client,
		window: window,
		limit:  limit,
		now:    time.Now,
	}
}

// WithClock replaces the time source.
func (l *FixedWindowLimiter) WithClock(now func() time.Time) *FixedWindowLimiter {
	l.now = now
	return l
}

// Allow returns nil when the action is within budget, a *RateLimitError when
// it is not, and a wrapped ErrUpstream when the counter store fails.
func (l *FixedWindowLimiter) Allow(ctx context.Context, identity string) error {
	now := l.now()
	bucket := now.UnixMilli() / l.window.Milliseconds()
	key := fmt.Sprintf(KeyFixedWindow, identity, bucket)
	ttl := int64((l.window + TTLMargin) / time.Second)

	n, err := fixedWindowScript.Run(ctx, l.client, []string{key}, l.limit, ttl).Int64()
	if err != nil {
		return upstream("fixed window", err)
	}
	if n < 0 {
		windowEnd := time.UnixMilli((bucket + 1) * l.window.Milliseconds())
		return &RateLimitError{Reason: "too many requests", RetryAfter: windowEnd.Sub(now)}
	}
	return nil
}
