package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// windowTTLSeconds keeps a counter alive one second past its window so
// in-flight checks against the previous second still resolve.
const windowTTLSeconds = 2

// counterScript atomically increments the window counter and stamps its
// expiry on first use.
var counterScript = redis.NewScript(`
local hits = redis.call("INCR", KEYS[1])
if hits == 1 then
  redis.call("EXPIRE", KEYS[1], ARGV[1])
end
return hits
`)

// RedisLimiter is the fixed-window limiter shared across API replicas. Keys
// carry the window second, so counters retire on their own once the TTL runs
// out.
type RedisLimiter struct {
	client *redis.Client
	prefix string
}

// NewRedisLimiter constructs a RedisLimiter namespaced by prefix.
func NewRedisLimiter(client *redis.Client, prefix string) *RedisLimiter {
	return &RedisLimiter{client: client, prefix: prefix}
}

// Allow records a hit for key and reports whether it fits the per-second
// budget. A non-positive limit disables limiting.
func (l *RedisLimiter) Allow(ctx context.Context, key string, limit int, now time.Time) (Result, error) {
	if l == nil || l.client == nil || limit <= 0 || key == "" {
		return Result{Allowed: true}, nil
	}
	epoch := now.Unix()
	reset := time.Unix(epoch+1, 0).UTC()

	counterKey := fmt.Sprintf("ratelimit:%s:%d", key, epoch)
	if l.prefix != "" {
		counterKey = l.prefix + ":" + counterKey
	}

	raw, errRun := counterScript.Run(ctx, l.client, []string{counterKey}, windowTTLSeconds).Result()
	if errRun != nil {
		return Result{}, fmt.Errorf("ratelimit: redis incr: %w", errRun)
	}
	hits, okCast := raw.(int64)
	if !okCast {
		return Result{}, fmt.Errorf("ratelimit: unexpected script reply %T", raw)
	}

	if hits > int64(limit) {
		return Result{Allowed: false, Reset: reset}, nil
	}
	remaining := limit - int(hits)
	if remaining < 0 {
		remaining = 0
	}
	return Result{Allowed: true, Remaining: remaining, Reset: reset}, nil
}
