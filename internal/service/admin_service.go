package service

import (
	"context"
	"log/slog"
	"time"

	"inkwell/internal/models"

	"gorm.io/gorm"
)

// PostCounts breaks posts down by lifecycle state.
type PostCounts struct {
	Draft     int64 `json:"draft"`
	Scheduled int64 `json:"scheduled"`
	Published int64 `json:"published"`
}

// AdminOverview aggregates dashboard numbers. A failed section leaves a warning
// instead of failing the whole overview.
type AdminOverview struct {
	Posts           PostCounts `json:"posts"`
	Comments        int64      `json:"comments"`
	DeletedComments int64      `json:"deleted_comments"`
	ChatMessages    int64      `json:"chat_messages"`
	Subscribers     int64      `json:"subscribers"`
	Unsubscribed    int64      `json:"unsubscribed"`
	Likes           int64      `json:"likes"`
	Shares          int64      `json:"shares"`
	NextScheduledAt *time.Time `json:"next_scheduled_at,omitempty"`
	GeneratedAt     time.Time  `json:"generated_at"`
	Warnings        []string   `json:"warnings,omitempty"`
}

// AdminService answers read-only dashboard queries directly against the database.
type AdminService struct {
	clock
	db *gorm.DB
}

// NewAdminService returns a new AdminService.
func NewAdminService(db *gorm.DB) *AdminService {
	return &AdminService{clock: newClock(), db: db}
}

// Overview returns the dashboard numbers at the current instant.
func (s *AdminService) Overview(ctx context.Context) *AdminOverview {
	now := s.now()
	out := &AdminOverview{GeneratedAt: now}
	db := s.db.WithContext(ctx)

	count := func(section string, dest *int64, q *gorm.DB) {
		if err := q.Count(dest).Error; err != nil {
			slog.WarnContext(ctx, "admin overview section failed", "section", section, "err", err)
			out.Warnings = append(out.Warnings, "Partial data: "+section+" could not be counted.")
		}
	}

	count("draft posts", &out.Posts.Draft,
		db.Model(&models.Post{}).Where("status = ?", models.PostStatusDraft))
	count("scheduled posts", &out.Posts.Scheduled,
		db.Model(&models.Post{}).Where("status = ? AND publish_at > ?", models.PostStatusPublished, now))
	count("published posts", &out.Posts.Published,
		db.Model(&models.Post{}).Where("status = ? AND (publish_at IS NULL OR publish_at <= ?)", models.PostStatusPublished, now))
	count("comments", &out.Comments, db.Model(&models.Comment{}).Where("is_deleted = ?", false))
	count("deleted comments", &out.DeletedComments, db.Model(&models.Comment{}).Where("is_deleted = ?", true))
	count("chat messages", &out.ChatMessages, db.Model(&models.ChatMessage{}).Where("is_deleted = ?", false))
	count("subscribers", &out.Subscribers, db.Model(&models.Subscriber{}).Where("subscribed = ?", true))
	count("unsubscribed", &out.Unsubscribed, db.Model(&models.Subscriber{}).Where("subscribed = ?", false))
	count("likes", &out.Likes, db.Model(&models.Like{}))
	count("shares", &out.Shares, db.Model(&models.ShareEvent{}))

	var next models.Post
	err := db.Where("status = ? AND publish_at > ?", models.PostStatusPublished, now).
		Order("publish_at ASC").Limit(1).Find(&next).Error
	switch {
	case err != nil:
		slog.WarnContext(ctx, "admin overview section failed", "section", "next scheduled", "err", err)
		out.Warnings = append(out.Warnings, "Partial data: next scheduled post could not be loaded.")
	case next.ID != "":
		out.NextScheduledAt = next.PublishAt
	}

	return out
}
