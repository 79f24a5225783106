package ratelimit

import (
	"context"
	"sync"
	"time"
)

type window struct {
	count   int
	resetAt time.Time
}

// MemoryLimiter keeps fixed windows in process memory. State is per instance and
// is lost on restart.
type MemoryLimiter struct {
	mu      sync.Mutex
	windows map[string]*window
	now     func() time.Time
}

// MemoryOption configures a MemoryLimiter.
type MemoryOption func(*MemoryLimiter)

// WithClock overrides the time source.
func WithClock(now func() time.Time) MemoryOption {
	return func(l *MemoryLimiter) {
		l.now = now
	}
}

// NewMemoryLimiter returns an empty in-memory limiter.
func NewMemoryLimiter(opts ...MemoryOption) *MemoryLimiter {
	l := &MemoryLimiter{
		windows: make(map[string]*window),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow resets the window when it is missing or expired, otherwise increments it while
// under the policy maximum. The check and the increment happen under one lock.
func (l *MemoryLimiter) Allow(_ context.Context, policy Policy, key string) (Decision, error) {
	now := l.now()
	k := windowKey(policy, key)

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[k]
	if !ok || now.After(w.resetAt) {
		w = &window{count: 1, resetAt: now.Add(policy.Window)}
		l.windows[k] = w
		return Decision{Allowed: true, Limit: policy.Max, Remaining: policy.Max - 1, ResetAt: w.resetAt}, nil
	}

	if w.count < policy.Max {
		w.count++
		return Decision{Allowed: true, Limit: policy.Max, Remaining: policy.Max - w.count, ResetAt: w.resetAt}, nil
	}

	return Decision{Allowed: false, Limit: policy.Max, Remaining: 0, ResetAt: w.resetAt}, nil
}

// Sweep drops expired windows and returns how many were removed.
func (l *MemoryLimiter) Sweep() int {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for k, w := range l.windows {
		if now.After(w.resetAt) {
			delete(l.windows, k)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked windows.
func (l *MemoryLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}

// Run sweeps expired windows every interval until ctx is done.
func (l *MemoryLimiter) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Sweep()
		}
	}
}
