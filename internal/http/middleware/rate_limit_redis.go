package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisLimiter enforces the sustained window with a sorted-set log shared by
// every API instance. Bursts are bounded by the same window.
type RedisLimiter struct {
	client redis.UniversalClient
	prefix string
	now    func() time.Time
}

func NewRedisLimiter(client redis.UniversalClient, prefix string) *RedisLimiter {
	if prefix == "" {
		prefix = "siteops:rl"
	}
	return &RedisLimiter{client: client, prefix: prefix, now: time.Now}
}

var slidingWindowScript = redis.NewScript(`
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', now - window)
local count = redis.call('ZCARD', KEYS[1])
if count >= limit then
  local oldest = redis.call('ZRANGE', KEYS[1], 0, 0, 'WITHSCORES')
  local retry = window
  if oldest[2] then
    retry = tonumber(oldest[2]) + window - now
  end
  return {0, 0, retry}
end
redis.call('ZADD', KEYS[1], now, ARGV[4])
redis.call('PEXPIRE', KEYS[1], window)
return {1, limit - count - 1, window}
`)

func (l *RedisLimiter) Allow(ctx context.Context, key string, policy RateLimitPolicy) (Decision, error) {
	policy = normalizePolicy(policy)
	now := l.now()
	windowMS := policy.SustainedWindow.Milliseconds()
	raw, err := slidingWindowScript.Run(ctx, l.client,
		[]string{fmt.Sprintf("%s:%s", l.prefix, key)},
		now.UnixMilli(), windowMS, policy.SustainedLimit, uuid.NewString(),
	).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit script: %w", err)
	}
	if len(raw) != 3 {
		return Decision{}, fmt.Errorf("rate limit script: unexpected reply of %d values", len(raw))
	}
	wait := time.Duration(raw[2]) * time.Millisecond
	d := Decision{
		Allowed:   raw[0] == 1,
		Remaining: int(raw[1]),
		ResetAt:   now.Add(wait),
	}
	if !d.Allowed {
		d.RetryAfter = wait
		d.Reason = "window"
	}
	return d, nil
}
