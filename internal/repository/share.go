package repository

import (
	"context"

	"inkwell/internal/models"
	"inkwell/internal/observability"

	"gorm.io/gorm"
)

// ShareRepository appends share events.
type ShareRepository interface {
	Log(ctx context.Context, event *models.ShareEvent) (int, error)
}

type shareRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewShareRepository creates a new share repository
func NewShareRepository(db *gorm.DB) ShareRepository {
	return &shareRepository{db: db, log: observability.NewRepoLogger("share_events")}
}

// Log inserts event and bumps posts.shares_count in one transaction, returning the new count.
func (r *shareRepository) Log(ctx context.Context, event *models.ShareEvent) (int, error) {
	defer observability.TrackQuery("create", "share_events")()
	var count int
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(event).Error; err != nil {
			return err
		}
		if err := incrementCounter(tx, "posts", "shares_count", event.PostID); err != nil {
			return err
		}
		return tx.Model(&models.Post{}).Where("id = ?", event.PostID).
			Select("shares_count").Scan(&count).Error
	})
	if err != nil {
		r.log.LogError(ctx, err, "create")
		return 0, err
	}
	r.log.LogCreate(ctx, map[string]any{"post_id": event.PostID, "channel": event.Channel})
	return count, nil
}
