// Package seed provides database seeding utilities for development and demos.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"inkwell/internal/models"
	"inkwell/internal/observability"

	"gorm.io/gorm"
)

// Options configures a seeding run.
type Options struct {
	Published   int
	Scheduled   int
	Drafts      int
	Comments    int
	Subscribers int
	ShouldClean bool
	// RandSeed makes runs reproducible; zero picks a time-based seed.
	RandSeed int64
}

// Summary reports what a run inserted.
type Summary struct {
	Posts       int
	Comments    int
	Likes       int
	Subscribers int
}

// DefaultOptions is the preset used by the CLI when no counts are given.
var DefaultOptions = Options{Published: 12, Scheduled: 3, Drafts: 2, Comments: 4, Subscribers: 10}

// Seed populates db with fake posts, comments, likes and subscribers. Scheduled posts are
// due between one hour and one week after now.
func Seed(ctx context.Context, db *gorm.DB, opts Options, now time.Time) (*Summary, error) {
	logger := observability.GlobalLogger.With(slog.String("component", "seed"))
	logger.InfoContext(ctx, "seeding database",
		"published", opts.Published, "scheduled", opts.Scheduled, "drafts", opts.Drafts)

	if opts.ShouldClean {
		if err := clearData(ctx, db); err != nil {
			return nil, fmt.Errorf("failed to clear data: %w", err)
		}
	}

	f := NewFactory(opts.RandSeed, now)
	sum := &Summary{}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var posts []*models.Post
		for i := 0; i < opts.Published; i++ {
			posts = append(posts, f.PublishedPost())
		}
		for i := 0; i < opts.Scheduled; i++ {
			posts = append(posts, f.ScheduledPost())
		}
		for i := 0; i < opts.Drafts; i++ {
			posts = append(posts, f.DraftPost())
		}
		if len(posts) > 0 {
			if err := tx.CreateInBatches(posts, 50).Error; err != nil {
				return fmt.Errorf("create posts: %w", err)
			}
		}
		sum.Posts = len(posts)

		for _, p := range posts {
			if !p.IsPubliclyVisible(now) {
				continue
			}
			comments := f.Comments(p, opts.Comments)
			likes := f.Likes(p)
			if len(comments) > 0 {
				if err := tx.Create(&comments).Error; err != nil {
					return fmt.Errorf("create comments for %s: %w", p.ID, err)
				}
			}
			if len(likes) > 0 {
				if err := tx.Create(&likes).Error; err != nil {
					return fmt.Errorf("create likes for %s: %w", p.ID, err)
				}
			}
			if err := tx.Model(&models.Post{}).Where("id = ?", p.ID).Updates(map[string]any{
				"comments_count": len(comments),
				"likes_count":    len(likes),
			}).Error; err != nil {
				return fmt.Errorf("update counters for %s: %w", p.ID, err)
			}
			sum.Comments += len(comments)
			sum.Likes += len(likes)
		}

		subs := f.Subscribers(opts.Subscribers)
		if len(subs) > 0 {
			if err := tx.Create(&subs).Error; err != nil {
				return fmt.Errorf("create subscribers: %w", err)
			}
		}
		sum.Subscribers = len(subs)
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.InfoContext(ctx, "seeding complete",
		"posts", sum.Posts, "comments", sum.Comments, "likes", sum.Likes, "subscribers", sum.Subscribers)
	return sum, nil
}

// clearData removes every row of the application tables, children first.
func clearData(ctx context.Context, db *gorm.DB) error {
	tables := []any{
		&models.Like{}, &models.ShareEvent{}, &models.Comment{},
		&models.ChatMessage{}, &models.ChatPresence{}, &models.Subscriber{}, &models.Post{},
	}
	for _, m := range tables {
		if err := db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(m).Error; err != nil {
			return err
		}
	}
	return nil
}
