package ratelimit

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// MemoryLimiter counts requests in a bounded LRU whose entries expire with
// their window. It is local to one process.
type MemoryLimiter struct {
	rule   Rule
	mu     sync.Mutex
	counts *expirable.LRU[string, int]
	now    func() time.Time
}

// NewMemoryLimiter keeps at most size active keys.
func NewMemoryLimiter(rule Rule, size int) *MemoryLimiter {
	return &MemoryLimiter{
		rule:   rule,
		counts: expirable.NewLRU[string, int](size, nil, rule.Window),
		now:    time.Now,
	}
}

// Allow increments the key's counter for the current window.
func (l *MemoryLimiter) Allow(_ context.Context, key string) (Result, error) {
	now := l.now()
	start, end := windowBounds(now, l.rule.Window)
	slot := key + ":" + strconv.FormatInt(start.UnixMilli(), 10)

	l.mu.Lock()
	count, _ := l.counts.Get(slot)
	count++
	l.counts.Add(slot, count)
	l.mu.Unlock()

	return result(l.rule, count, now, end), nil
}
