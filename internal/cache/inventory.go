package cache

import (
	"fmt"
	"time"
)

const (
	PostKeyPrefix     = "post:%s"
	PostListKeyPrefix = "posts:list:%d:%d:%s"
	PostListPattern   = "posts:list:*"

	// InvalidationChannel carries logical paths whose rendering must be refreshed.
	InvalidationChannel = "cache:invalidate"
)

const (
	PostTTL     = 5 * time.Minute
	PostListTTL = time.Minute
)

func PostKey(postID string) string {
	return fmt.Sprintf(PostKeyPrefix, postID)
}

func PostListKey(limit, offset int, tag string) string {
	return fmt.Sprintf(PostListKeyPrefix, limit, offset, tag)
}

// PostPaths returns the rendered pages that show a post.
func PostPaths(postID string) []string {
	return []string{"/", "/blog", "/blog/" + postID}
}
