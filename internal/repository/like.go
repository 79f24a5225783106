package repository

import (
	"context"
	"time"

	"inkwell/internal/models"
	"inkwell/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ToggleResult is the state after a like toggle.
type ToggleResult struct {
	Liked      bool
	LikesCount int
	// Changed is false when a concurrent writer already produced the same state.
	Changed bool
}

// LikeRepository stores likes and keeps posts.likes_count in step with them.
type LikeRepository interface {
	Toggle(ctx context.Context, postID string, actor models.Actor, now time.Time, guard time.Duration) (ToggleResult, error)
	Exists(ctx context.Context, postID string, actor models.Actor) (bool, error)
}

type likeRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewLikeRepository creates a new like repository
func NewLikeRepository(db *gorm.DB) LikeRepository {
	return &likeRepository{db: db, log: observability.NewRepoLogger("post_likes")}
}

// Toggle removes the actor's like if present, otherwise adds it. The row change and
// the counter change commit together. An insert that loses a race to the unique index
// is a no-op that reports liked. A like younger than guard is kept, so a double submit
// settles on liked whether or not the two requests overlap.
func (r *likeRepository) Toggle(
	ctx context.Context, postID string, actor models.Actor, now time.Time, guard time.Duration,
) (ToggleResult, error) {
	defer observability.TrackQuery("toggle", "post_likes")()
	var out ToggleResult

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		del := tx.Where("post_id = ? AND actor_kind = ? AND actor_id = ? AND created_at <= ?",
			postID, actor.Kind, actor.ID, now.Add(-guard)).
			Delete(&models.Like{})
		if del.Error != nil {
			return del.Error
		}

		switch {
		case del.RowsAffected > 0:
			if err := decrementCounter(tx, "posts", "likes_count", postID); err != nil {
				return err
			}
			out.Liked, out.Changed = false, true
		default:
			like := models.Like{PostID: postID, ActorKind: actor.Kind, ActorID: actor.ID, CreatedAt: now}
			ins := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&like)
			if ins.Error != nil {
				return ins.Error
			}
			out.Liked = true
			if ins.RowsAffected > 0 {
				if err := incrementCounter(tx, "posts", "likes_count", postID); err != nil {
					return err
				}
				out.Changed = true
			}
		}

		return tx.Model(&models.Post{}).Where("id = ?", postID).
			Select("likes_count").Scan(&out.LikesCount).Error
	})
	if err != nil {
		if IsDuplicateKey(err) {
			// The whole transaction lost to a concurrent like; report the settled state.
			count, cerr := r.count(ctx, postID)
			return ToggleResult{Liked: true, LikesCount: count}, cerr
		}
		r.log.LogError(ctx, err, "toggle")
		return ToggleResult{}, err
	}
	r.log.LogUpdate(ctx, map[string]any{"post_id": postID, "actor": actor.String(), "liked": out.Liked, "changed": out.Changed})
	return out, nil
}

func (r *likeRepository) count(ctx context.Context, postID string) (int, error) {
	var n int
	err := r.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", postID).
		Select("likes_count").Scan(&n).Error
	return n, err
}

func (r *likeRepository) Exists(ctx context.Context, postID string, actor models.Actor) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Like{}).
		Where("post_id = ? AND actor_kind = ? AND actor_id = ?", postID, actor.Kind, actor.ID).
		Count(&count).Error
	return count > 0, err
}
