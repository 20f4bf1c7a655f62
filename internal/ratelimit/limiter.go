// Package ratelimit implements fixed-window request limiting per key.
// Windows are aligned on multiples of the window length.
package ratelimit

import (
	"context"
	"time"
)

// Result is the outcome of one Allow call.
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
	ResetAt    time.Time
}

// Limiter admits or rejects a request for key.
type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}

// Rule is the limit applied to every key.
type Rule struct {
	Requests int
	Window   time.Duration
}

func windowBounds(now time.Time, window time.Duration) (start, end time.Time) {
	start = now.Truncate(window)
	return start, start.Add(window)
}

func result(rule Rule, count int, now, end time.Time) Result {
	r := Result{
		Allowed: count <= rule.Requests,
		Limit:   rule.Requests,
		ResetAt: end,
	}
	if remaining := rule.Requests - count; remaining > 0 {
		r.Remaining = remaining
	}
	if !r.Allowed {
		r.RetryAfter = end.Sub(now)
	}
	return r
}
