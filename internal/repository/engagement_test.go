package repository

import (
	"context"
	"testing"
	"time"

	"inkwell/internal/models"
	"inkwell/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLikeRepository_Toggle(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewLikeRepository(db)
	ctx := context.Background()
	testutil.CreatePost(t, db, "liked", testutil.Published(now))
	actor := models.ClientActor("client_1_abcdef123")

	res, err := repo.Toggle(ctx, "liked", actor, now, 0)
	require.NoError(t, err)
	assert.Equal(t, ToggleResult{Liked: true, LikesCount: 1, Changed: true}, res)

	exists, err := repo.Exists(ctx, "liked", actor)
	require.NoError(t, err)
	assert.True(t, exists)

	res, err = repo.Toggle(ctx, "liked", actor, now.Add(time.Second), 0)
	require.NoError(t, err)
	assert.Equal(t, ToggleResult{Liked: false, LikesCount: 0, Changed: true}, res)
}

func TestLikeRepository_GuardKeepsFreshLike(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewLikeRepository(db)
	ctx := context.Background()
	testutil.CreatePost(t, db, "guarded", testutil.Published(now))
	actor := models.UserActor("42")

	_, err := repo.Toggle(ctx, "guarded", actor, now, 2*time.Second)
	require.NoError(t, err)

	res, err := repo.Toggle(ctx, "guarded", actor, now.Add(500*time.Millisecond), 2*time.Second)
	require.NoError(t, err)
	assert.Equal(t, ToggleResult{Liked: true, LikesCount: 1, Changed: false}, res)

	res, err = repo.Toggle(ctx, "guarded", actor, now.Add(3*time.Second), 2*time.Second)
	require.NoError(t, err)
	assert.False(t, res.Liked)
	assert.Equal(t, 0, res.LikesCount)
}

func TestShareRepository_Log(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewShareRepository(db)
	ctx := context.Background()
	testutil.CreatePost(t, db, "shared", testutil.Published(now))

	for i := 1; i <= 2; i++ {
		ev := &models.ShareEvent{PostID: "shared", Channel: models.ShareX}
		count, err := repo.Log(ctx, ev)
		require.NoError(t, err)
		assert.Equal(t, i, count, "identical shares are distinct events")
	}
}

func TestCommentRepository_Lifecycle(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewCommentRepository(db)
	ctx := context.Background()
	testutil.CreatePost(t, db, "discussed", testutil.Published(now))

	first := &models.Comment{PostID: "discussed", Content: "first", Author: models.ClientActor("client_1_abcdef123")}
	second := &models.Comment{PostID: "discussed", Content: "second", Author: models.UserActor("9")}
	require.NoError(t, repo.Create(ctx, first))
	require.NoError(t, repo.Create(ctx, second))

	list, err := repo.ListByPost(ctx, "discussed")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "first", list[0].Content)
	assert.Equal(t, models.ClientActor("client_1_abcdef123"), list[0].Author)

	changed, err := repo.SoftDelete(ctx, first)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = repo.SoftDelete(ctx, first)
	require.NoError(t, err)
	assert.False(t, changed, "a repeated delete must not decrement twice")

	list, err = repo.ListByPost(ctx, "discussed")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = repo.GetByID(ctx, first.ID)
	assert.True(t, IsNotFound(err))

	var post models.Post
	require.NoError(t, db.First(&post, "id = ?", "discussed").Error)
	assert.Equal(t, 1, post.CommentsCount)
}

func TestChatRepository_HistoryCursors(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewChatRepository(db)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Create(ctx, &models.ChatMessage{
			Channel:   "general",
			Nickname:  "nick",
			Content:   string(rune('a' + i)),
			Author:    models.ClientActor("client_1_abcdef123"),
			CreatedAt: now.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, repo.Create(ctx, &models.ChatMessage{
		Channel: "other", Nickname: "nick", Content: "elsewhere",
		Author: models.ClientActor("client_1_abcdef123"), CreatedAt: now,
	}))

	page, err := repo.History(ctx, HistoryQuery{Channel: "general", Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "e", page[0].Content, "newest first")

	before := now.Add(2 * time.Minute)
	page, err = repo.History(ctx, HistoryQuery{Channel: "general", Limit: 10, Before: &before})
	require.NoError(t, err)
	assert.Len(t, page, 2)

	after := now.Add(2 * time.Minute)
	page, err = repo.History(ctx, HistoryQuery{Channel: "general", Limit: 10, After: &after})
	require.NoError(t, err)
	assert.Len(t, page, 2)

	ok, err := repo.SoftDelete(ctx, page[0].ID)
	require.NoError(t, err)
	assert.True(t, ok)
	page, err = repo.History(ctx, HistoryQuery{Channel: "general", Limit: 10})
	require.NoError(t, err)
	assert.Len(t, page, 4)

	n, err := repo.Count(ctx, "general")
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
	n, err = repo.Count(ctx, "other")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestChatRepository_Presence(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewChatRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.UpsertPresence(ctx, &models.ChatPresence{Channel: "general", ClientID: "client_a", Nickname: "alpha", LastSeen: now.Add(-10 * time.Minute)}))
	require.NoError(t, repo.UpsertPresence(ctx, &models.ChatPresence{Channel: "general", ClientID: "client_b", Nickname: "bravo", LastSeen: now}))
	require.NoError(t, repo.UpsertPresence(ctx, &models.ChatPresence{Channel: "general", ClientID: "client_a", Nickname: "alpha2", LastSeen: now}))

	online, err := repo.Online(ctx, "general", now.Add(-models.PresenceWindow))
	require.NoError(t, err)
	require.Len(t, online, 2)
	assert.Equal(t, "alpha2", online[0].Nickname)

	pruned, err := repo.PrunePresence(ctx, now.Add(time.Minute))
	require.NoError(t, err)
	assert.EqualValues(t, 2, pruned)
}

func TestSubscriberRepository_UpsertIsIdempotent(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewSubscriberRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, &models.Subscriber{Kind: models.ContactEmail, Contact: "Foo@Example.com", NormalizedContact: "foo@example.com", Subscribed: true}))
	require.NoError(t, repo.Upsert(ctx, &models.Subscriber{Kind: models.ContactEmail, Contact: "foo@example.com", NormalizedContact: "foo@example.com", Subscribed: false}))

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	s, err := repo.GetByContact(ctx, "foo@example.com")
	require.NoError(t, err)
	assert.False(t, s.Subscribed)
	assert.Equal(t, "foo@example.com", s.Contact)
}
