// Package ratelimit provides fixed-window request limiting behind a swappable Limiter.
package ratelimit

import (
	"context"
	"time"
)

// Policy is a named fixed-window budget: Max requests per Window.
type Policy struct {
	Name   string
	Max    int
	Window time.Duration
}

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfter returns how long the caller should wait before the window resets.
func (d Decision) RetryAfter(now time.Time) time.Duration {
	if d.ResetAt.IsZero() || !d.ResetAt.After(now) {
		return 0
	}
	return d.ResetAt.Sub(now)
}

// Limiter counts requests for key under policy and decides whether to allow them.
type Limiter interface {
	Allow(ctx context.Context, policy Policy, key string) (Decision, error)
}

// FailPolicy defines the behavior when the backing store is unavailable.
type FailPolicy int

const (
	// FailOpen allows the request to proceed if the store is unavailable.
	FailOpen FailPolicy = iota
	// FailClosed rejects the request if the store is unavailable.
	FailClosed
)

func windowKey(policy Policy, key string) string {
	return policy.Name + ":" + key
}
