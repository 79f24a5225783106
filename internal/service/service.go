// Package service implements the blog's business operations on top of the repositories.
package service

import (
	"context"
	"log/slog"
	"time"

	"inkwell/internal/cache"
	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/notifications"
	"inkwell/internal/repository"
)

// clock is embedded by services that stamp times, so tests can pin "now".
type clock struct {
	now func() time.Time
}

func newClock() clock {
	return clock{now: func() time.Time { return time.Now().UTC() }}
}

// SetClock replaces the time source.
func (c *clock) SetClock(now func() time.Time) {
	c.now = func() time.Time { return now().UTC() }
}

// internalError logs err with full detail and returns a generic error for the caller.
func internalError(ctx context.Context, op string, err error) error {
	middleware.Logger.ErrorContext(ctx, "storage failure",
		slog.String("operation", op), slog.String("error", err.Error()))
	return models.NewInternalError(err)
}

// broadcast publishes best effort; failures are logged and never fail the write.
func broadcast(ctx context.Context, b notifications.Broadcaster, topic, eventType string, payload any) {
	if b == nil {
		return
	}
	if err := b.Publish(ctx, topic, notifications.NewEvent(eventType, payload)); err != nil {
		middleware.Logger.WarnContext(ctx, "broadcast failed",
			slog.String("topic", topic), slog.String("event", eventType), slog.String("error", err.Error()))
	}
}

// invalidatePost drops cached renderings of a post whose counters or content changed.
func invalidatePost(ctx context.Context, inv cache.Invalidator, postID string) {
	if inv != nil {
		inv.InvalidatePost(ctx, postID)
	}
}

// visiblePost loads a post that ordinary readers may see; anything else is NotFound.
func visiblePost(ctx context.Context, posts repository.PostRepository, id string, now time.Time) (*models.Post, error) {
	post, err := posts.GetByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, models.NewNotFoundError("Post", id)
		}
		return nil, internalError(ctx, "get post", err)
	}
	if !post.IsPubliclyVisible(now) {
		return nil, models.NewNotFoundError("Post", id)
	}
	return post, nil
}
