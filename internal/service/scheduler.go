package service

import (
	"context"
	"log/slog"
	"time"

	"inkwell/internal/middleware"
)

// PublishScheduler runs the publish sweep on a fixed interval until its context ends.
type PublishScheduler struct {
	posts    *PostService
	interval time.Duration
}

// NewPublishScheduler creates a scheduler; a non-positive interval defaults to one minute.
func NewPublishScheduler(posts *PostService, interval time.Duration) *PublishScheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	return &PublishScheduler{posts: posts, interval: interval}
}

// Run sweeps once immediately and then on every tick. It blocks until ctx is done.
func (s *PublishScheduler) Run(ctx context.Context) {
	middleware.Logger.Info("publish scheduler started", slog.Duration("interval", s.interval))
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			middleware.Logger.Info("publish scheduler stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *PublishScheduler) tick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			middleware.Logger.Error("publish sweep panicked", slog.Any("panic", r))
		}
	}()
	// Errors are already logged by Sweep; the next tick retries.
	_, _ = s.posts.Sweep(ctx)
}
