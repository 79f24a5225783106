package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// incrWindow increments the counter and starts its expiry on the first hit, atomically.
var incrWindow = redis.NewScript(`
local n = redis.call('INCR', KEYS[1])
if n == 1 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return {n, redis.call('PTTL', KEYS[1])}
`)

// RedisLimiter shares fixed windows across instances through Redis.
type RedisLimiter struct {
	rdb    *redis.Client
	policy FailPolicy
	now    func() time.Time
}

// NewRedisLimiter returns a limiter backed by rdb. A nil client always fails open.
func NewRedisLimiter(rdb *redis.Client, policy FailPolicy) *RedisLimiter {
	return &RedisLimiter{rdb: rdb, policy: policy, now: time.Now}
}

// ErrStoreUnavailable is returned when a FailClosed limiter cannot reach Redis.
var ErrStoreUnavailable = errors.New("rate limit store unavailable")

// Allow increments rl:<policy>:<key> and compares it against the policy maximum.
func (l *RedisLimiter) Allow(ctx context.Context, policy Policy, key string) (Decision, error) {
	if l.rdb == nil {
		return Decision{Allowed: true, Limit: policy.Max, Remaining: policy.Max}, nil
	}

	redisKey := fmt.Sprintf("rl:%s", windowKey(policy, key))
	vals, err := incrWindow.Run(ctx, l.rdb, []string{redisKey}, policy.Window.Milliseconds()).Int64Slice()
	if err != nil || len(vals) != 2 {
		if err == nil {
			err = fmt.Errorf("unexpected script reply length %d", len(vals))
		}
		if l.policy == FailClosed {
			return Decision{Allowed: false, Limit: policy.Max}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		return Decision{Allowed: true, Limit: policy.Max, Remaining: policy.Max}, nil
	}

	count, ttl := vals[0], vals[1]
	resetAt := l.now().Add(policy.Window)
	if ttl > 0 {
		resetAt = l.now().Add(time.Duration(ttl) * time.Millisecond)
	}

	remaining := policy.Max - int(count)
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:   count <= int64(policy.Max),
		Limit:     policy.Max,
		Remaining: remaining,
		ResetAt:   resetAt,
	}, nil
}
