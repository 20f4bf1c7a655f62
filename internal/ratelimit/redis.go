package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// KEYS[1] window key, ARGV[1] window ms. Returns the new count.
const fixedWindowScript = `
local current = redis.call('INCR', KEYS[1])
if current == 1 then
    redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return current
`

// RedisLimiter shares counters across instances.
type RedisLimiter struct {
	client redis.Scripter
	rule   Rule
	prefix string
	script *redis.Script
	now    func() time.Time
}

// NewRedisLimiter uses client for the counters. Keys are namespaced by prefix.
func NewRedisLimiter(client redis.Scripter, rule Rule, prefix string) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		rule:   rule,
		prefix: prefix,
		script: redis.NewScript(fixedWindowScript),
		now:    time.Now,
	}
}

func (l *RedisLimiter) windowKey(key string, start time.Time) string {
	return l.prefix + ":" + key + ":" + strconv.FormatInt(start.UnixMilli(), 10)
}

// Allow increments the key's counter for the current window.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (Result, error) {
	now := l.now()
	start, end := windowBounds(now, l.rule.Window)

	count, err := l.script.Run(ctx, l.client, []string{l.windowKey(key, start)}, l.rule.Window.Milliseconds()).Int()
	if err != nil {
		return Result{}, fmt.Errorf("rate limit script: %w", err)
	}
	return result(l.rule, count, now, end), nil
}
