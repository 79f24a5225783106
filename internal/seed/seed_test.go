package seed

import (
	"context"
	"testing"
	"time"

	"inkwell/internal/models"
	"inkwell/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var seedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestSeed(t *testing.T) {
	db := testutil.NewDB(t)
	opts := Options{Published: 5, Scheduled: 2, Drafts: 1, Comments: 3, Subscribers: 4, RandSeed: 42}

	sum, err := Seed(context.Background(), db, opts, seedNow)
	require.NoError(t, err)
	assert.Equal(t, 8, sum.Posts)
	assert.Equal(t, 15, sum.Comments)
	assert.Equal(t, 4, sum.Subscribers)

	var posts []models.Post
	require.NoError(t, db.Find(&posts).Error)
	require.Len(t, posts, 8)

	states := map[models.PublicationState]int{}
	for _, p := range posts {
		states[p.State(seedNow)]++
		if p.State(seedNow) == models.StatePublished {
			var comments int64
			require.NoError(t, db.Model(&models.Comment{}).Where("post_id = ?", p.ID).Count(&comments).Error)
			assert.Equal(t, int64(p.CommentsCount), comments, p.ID)

			var likes int64
			require.NoError(t, db.Model(&models.Like{}).Where("post_id = ?", p.ID).Count(&likes).Error)
			assert.Equal(t, int64(p.LikesCount), likes, p.ID)
		}
	}
	assert.Equal(t, 5, states[models.StatePublished])
	assert.Equal(t, 2, states[models.StateScheduled])
	assert.Equal(t, 1, states[models.StateDraft])
}

func TestSeed_Clean(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	testutil.CreatePost(t, db, "existing")

	_, err := Seed(ctx, db, Options{Published: 1, ShouldClean: true, RandSeed: 7}, seedNow)
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.Model(&models.Post{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
	require.NoError(t, db.Model(&models.Post{}).Where("id = ?", "existing").Count(&count).Error)
	assert.Zero(t, count)
}

func TestFactory_UniqueIDs(t *testing.T) {
	f := NewFactory(1, seedNow)
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		p := f.DraftPost()
		assert.False(t, seen[p.ID], p.ID)
		seen[p.ID] = true
	}

	p := f.ScheduledPost()
	assert.True(t, p.PublishAt.After(seedNow))
	assert.Nil(t, p.PublishedAt)
}
