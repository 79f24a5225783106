package cache

import (
	"context"
	"encoding/json"

	"inkwell/internal/middleware"

	"github.com/redis/go-redis/v9"
)

// Invalidator purges cached renderings after a mutation that changes what readers see.
type Invalidator interface {
	InvalidatePost(ctx context.Context, postID string)
}

// InvalidationEvent is published on InvalidationChannel for external renderers.
type InvalidationEvent struct {
	PostID string   `json:"post_id"`
	Paths  []string `json:"paths"`
}

// RedisInvalidator drops cached post entries and announces the affected paths.
type RedisInvalidator struct {
	store *Store
	rdb   *redis.Client
}

// NewInvalidator returns an Invalidator over rdb, which may be nil.
func NewInvalidator(rdb *redis.Client) *RedisInvalidator {
	return &RedisInvalidator{store: NewStore(rdb), rdb: rdb}
}

// InvalidatePost deletes the post entry and every cached listing, then publishes the
// post's paths. It never fails the caller's mutation.
func (i *RedisInvalidator) InvalidatePost(ctx context.Context, postID string) {
	if i.rdb == nil {
		return
	}
	i.store.Delete(ctx, PostKey(postID))
	i.store.DeletePattern(ctx, PostListPattern)

	payload, err := json.Marshal(InvalidationEvent{PostID: postID, Paths: PostPaths(postID)})
	if err != nil {
		return
	}
	if err := i.rdb.Publish(ctx, InvalidationChannel, payload).Err(); err != nil {
		middleware.Logger.WarnContext(ctx, "cache invalidation publish failed", "post_id", postID, "error", err)
	}
}
