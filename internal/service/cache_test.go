package service

import (
	"context"
	"testing"
	"time"

	"inkwell/internal/cache"
	"inkwell/internal/models"
	"inkwell/internal/observability"
	"inkwell/internal/repository"
	"inkwell/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	dto "github.com/prometheus/client_model/go"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newCachedStack is newStack with posts, engagement and comments sharing a Redis cache.
// Tests using it stay sequential because they read the global lookup counters.
func newCachedStack(t *testing.T) (*stack, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	s := newStack(t)
	postRepo := repository.NewPostRepository(s.db)
	inv := cache.NewInvalidator(rdb)

	s.posts = NewPostService(postRepo, PostServiceConfig{Cache: cache.NewStore(rdb), Invalidator: inv})
	s.posts.SetClock(s.clock.Now)
	s.engagement = NewEngagementService(postRepo, repository.NewLikeRepository(s.db),
		repository.NewShareRepository(s.db), inv)
	s.engagement.SetClock(s.clock.Now)
	s.comments = NewCommentService(repository.NewCommentRepository(s.db), postRepo, nil, nil, nil, inv)
	s.comments.SetClock(s.clock.Now)
	return s, mr
}

func lookups(t *testing.T, result string) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, observability.CacheLookups.WithLabelValues(result).Write(&m))
	return m.GetCounter().GetValue()
}

func TestCachedPostTracksEngagementCounters(t *testing.T) {
	s, mr := newCachedStack(t)
	ctx := context.Background()
	testutil.CreatePost(t, s.db, "p", testutil.Published(baseNow.Add(-time.Hour)))
	reader := client("client_1_abcdef012")
	listKey := cache.PostListKey(DefaultPageSize, 0, "")

	warm := func() {
		t.Helper()
		_, err := s.posts.GetPublic(ctx, "p")
		require.NoError(t, err)
		_, err = s.posts.ListPublic(ctx, 0, 0, "")
		require.NoError(t, err)
		require.True(t, mr.Exists(cache.PostKey("p")))
		require.True(t, mr.Exists(listKey))
	}
	counts := func() (*models.Post, *models.Post) {
		t.Helper()
		post, err := s.posts.GetPublic(ctx, "p")
		require.NoError(t, err)
		list, err := s.posts.ListPublic(ctx, 0, 0, "")
		require.NoError(t, err)
		require.Len(t, list, 1)
		return post, list[0]
	}

	warm()
	_, err := s.engagement.ToggleLike(ctx, "p", reader)
	require.NoError(t, err)
	assert.False(t, mr.Exists(cache.PostKey("p")))
	assert.False(t, mr.Exists(listKey))
	post, listed := counts()
	assert.Equal(t, 1, post.LikesCount)
	assert.Equal(t, 1, listed.LikesCount)

	warm()
	comment, err := s.comments.Create(ctx, CreateCommentInput{PostID: "p", Content: "Nice", Principal: reader})
	require.NoError(t, err)
	post, listed = counts()
	assert.Equal(t, 1, post.CommentsCount)
	assert.Equal(t, 1, listed.CommentsCount)

	warm()
	require.NoError(t, s.comments.Delete(ctx, comment.ID, reader))
	post, _ = counts()
	assert.Equal(t, 0, post.CommentsCount)

	warm()
	_, err = s.engagement.LogShare(ctx, ShareInput{PostID: "p", Channel: "x", Principal: reader})
	require.NoError(t, err)
	post, _ = counts()
	assert.Equal(t, 1, post.SharesCount)

	// A toggle inside the double-submit window changes nothing and keeps the cache.
	s.engagement.SetLikeGuard(time.Hour)
	_, err = s.engagement.ToggleLike(ctx, "p", client("client_2_abcdef012"))
	require.NoError(t, err)
	warm()
	_, err = s.engagement.ToggleLike(ctx, "p", client("client_2_abcdef012"))
	require.NoError(t, err)
	assert.True(t, mr.Exists(cache.PostKey("p")))
}

func TestPostLookupsCountedOnce(t *testing.T) {
	s, _ := newCachedStack(t)
	ctx := context.Background()
	testutil.CreatePost(t, s.db, "p", testutil.Published(baseNow.Add(-time.Hour)))

	hits, misses := lookups(t, "hit"), lookups(t, "miss")
	_, err := s.posts.GetPublic(ctx, "p")
	require.NoError(t, err)
	_, err = s.posts.GetPublic(ctx, "p")
	require.NoError(t, err)
	assert.Equal(t, misses+1, lookups(t, "miss"))
	assert.Equal(t, hits+1, lookups(t, "hit"))

	hits, misses = lookups(t, "hit"), lookups(t, "miss")
	_, err = s.posts.ListPublic(ctx, 0, 0, "")
	require.NoError(t, err)
	_, err = s.posts.ListPublic(ctx, 0, 0, "")
	require.NoError(t, err)
	assert.Equal(t, misses+1, lookups(t, "miss"))
	assert.Equal(t, hits+1, lookups(t, "hit"))
}

func TestListCacheExpiresWhenScheduledPostGoesLive(t *testing.T) {
	s, mr := newCachedStack(t)
	ctx := context.Background()
	testutil.CreatePost(t, s.db, "live", testutil.Published(baseNow.Add(-time.Hour)))
	listKey := cache.PostListKey(DefaultPageSize, 0, "")

	_, err := s.posts.ListPublic(ctx, 0, 0, "")
	require.NoError(t, err)
	assert.Equal(t, cache.PostListTTL, mr.TTL(listKey), "nothing scheduled")

	mr.Del(listKey)
	testutil.CreatePost(t, s.db, "soon", testutil.Scheduled(baseNow.Add(20*time.Second)))
	posts, err := s.posts.ListPublic(ctx, 0, 0, "")
	require.NoError(t, err)
	require.Len(t, posts, 1)
	ttl := mr.TTL(listKey)
	assert.Positive(t, ttl)
	assert.LessOrEqual(t, ttl, 20*time.Second)

	// No sweep runs: the post appears once its time passes and the page expires.
	s.clock.Advance(30 * time.Second)
	mr.FastForward(30 * time.Second)
	posts, err = s.posts.ListPublic(ctx, 0, 0, "")
	require.NoError(t, err)
	ids := make([]string, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}
	assert.ElementsMatch(t, []string{"live", "soon"}, ids)
}
