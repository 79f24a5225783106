package repository

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"inkwell/internal/models"
	"inkwell/internal/observability"

	"gorm.io/gorm"
)

// MaxPageSize bounds list queries.
const MaxPageSize = 100

// visibleClause is the visibility predicate in SQL form.
const visibleClause = "status = ? AND (publish_at IS NULL OR publish_at <= ?)"

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id string) (*models.Post, error)
	Exists(ctx context.Context, id string) (bool, error)
	ListVisible(ctx context.Context, now time.Time, limit, offset int, tag string) ([]*models.Post, error)
	ListAll(ctx context.Context, limit, offset int) ([]*models.Post, error)
	Update(ctx context.Context, post *models.Post) error
	Delete(ctx context.Context, id string) (bool, error)
	DueIDs(ctx context.Context, now time.Time) ([]string, error)
	NextPublishAt(ctx context.Context, now time.Time) (*time.Time, error)
	MarkPublishedIfDue(ctx context.Context, id string, now time.Time) (bool, error)
}

// postRepository implements PostRepository
type postRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db, log: observability.NewRepoLogger("posts")}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	defer observability.TrackQuery("create", "posts")()
	if err := r.db.WithContext(ctx).Create(post).Error; err != nil {
		if !IsDuplicateKey(err) {
			r.log.LogError(ctx, err, "create")
		}
		return err
	}
	r.log.LogCreate(ctx, map[string]any{"id": post.ID, "status": post.Status})
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id string) (*models.Post, error) {
	defer observability.TrackQuery("get", "posts")()
	var post models.Post
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&post).Error; err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *postRepository) Exists(ctx context.Context, id string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

func (r *postRepository) ListVisible(ctx context.Context, now time.Time, limit, offset int, tag string) ([]*models.Post, error) {
	defer observability.TrackQuery("list_visible", "posts")()
	limit, offset = clampPage(limit, offset, MaxPageSize)

	q := r.db.WithContext(ctx).Where(visibleClause, models.PostStatusPublished, now)
	if tag != "" {
		q = q.Where(`tags LIKE ? ESCAPE '\'`, tagPattern(tag))
	}

	var posts []*models.Post
	err := q.Order("publish_date DESC").Order("created_at DESC").
		Limit(limit).Offset(offset).Find(&posts).Error
	return posts, err
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// tagPattern matches tag as one element of the JSON array column. The tag is encoded
// the way the serializer stores it, so escaped characters compare equal.
func tagPattern(tag string) string {
	encoded, err := json.Marshal(tag)
	if err != nil {
		encoded = []byte(`"` + tag + `"`)
	}
	return "%" + likeEscaper.Replace(string(encoded)) + "%"
}

func (r *postRepository) ListAll(ctx context.Context, limit, offset int) ([]*models.Post, error) {
	defer observability.TrackQuery("list_all", "posts")()
	limit, offset = clampPage(limit, offset, MaxPageSize)

	var posts []*models.Post
	err := r.db.WithContext(ctx).Order("updated_at DESC").Order("created_at DESC").
		Limit(limit).Offset(offset).Find(&posts).Error
	return posts, err
}

// Update writes every column of post. Counters are excluded so concurrent likes and
// comments are never overwritten by an edit.
func (r *postRepository) Update(ctx context.Context, post *models.Post) error {
	defer observability.TrackQuery("update", "posts")()
	err := r.db.WithContext(ctx).Model(post).
		Select("*").
		Omit("id", "created_at", "comments_count", "likes_count", "shares_count").
		Updates(post).Error
	if err != nil {
		r.log.LogError(ctx, err, "update")
		return err
	}
	r.log.LogUpdate(ctx, map[string]any{"id": post.ID, "status": post.Status})
	return nil
}

// Delete removes the post and its engagement rows in one transaction.
func (r *postRepository) Delete(ctx context.Context, id string) (bool, error) {
	defer observability.TrackQuery("delete", "posts")()
	var deleted bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, child := range []any{&models.Comment{}, &models.Like{}, &models.ShareEvent{}} {
			if err := tx.Where("post_id = ?", id).Delete(child).Error; err != nil {
				return err
			}
		}
		res := tx.Where("id = ?", id).Delete(&models.Post{})
		deleted = res.RowsAffected > 0
		return res.Error
	})
	if err != nil {
		r.log.LogError(ctx, err, "delete")
		return false, err
	}
	if deleted {
		r.log.LogDelete(ctx, map[string]any{"id": id})
	}
	return deleted, nil
}

// DueIDs returns scheduled posts whose publish time has arrived and that have not been
// published yet.
func (r *postRepository) DueIDs(ctx context.Context, now time.Time) ([]string, error) {
	defer observability.TrackQuery("due", "posts")()
	var ids []string
	err := r.db.WithContext(ctx).Model(&models.Post{}).
		Where("status = ? AND publish_at IS NOT NULL AND publish_at <= ? AND published_at IS NULL",
			models.PostStatusPublished, now).
		Order("publish_at ASC").
		Pluck("id", &ids).Error
	return ids, err
}

// NextPublishAt returns the earliest publish time still in the future, or nil when
// nothing is scheduled.
func (r *postRepository) NextPublishAt(ctx context.Context, now time.Time) (*time.Time, error) {
	defer observability.TrackQuery("next_publish_at", "posts")()
	var post models.Post
	err := r.db.WithContext(ctx).Select("publish_at").
		Where("status = ? AND publish_at > ?", models.PostStatusPublished, now).
		Order("publish_at ASC").
		Take(&post).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return post.PublishAt, nil
}

// MarkPublishedIfDue stamps published_at on one due post. The guard makes concurrent
// sweeps publish each post once; false means another writer got there first or the
// post is no longer due.
func (r *postRepository) MarkPublishedIfDue(ctx context.Context, id string, now time.Time) (bool, error) {
	defer observability.TrackQuery("publish_due", "posts")()
	res := r.db.WithContext(ctx).Model(&models.Post{}).
		Where("id = ? AND status = ? AND publish_at IS NOT NULL AND publish_at <= ? AND published_at IS NULL",
			id, models.PostStatusPublished, now).
		UpdateColumns(map[string]any{
			"published_at": now,
			"publish_date": now,
			"updated_at":   now,
		})
	if res.Error != nil {
		r.log.LogError(ctx, res.Error, "publish_due")
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
