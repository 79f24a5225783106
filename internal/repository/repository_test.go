package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"testing"
	"time"

	"inkwell/internal/models"
	"inkwell/internal/testutil"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

func TestIsDuplicateKey(t *testing.T) {
	t.Parallel()
	assert.True(t, IsDuplicateKey(gorm.ErrDuplicatedKey))
	assert.True(t, IsDuplicateKey(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})))
	assert.False(t, IsDuplicateKey(&pgconn.PgError{Code: "23503"}))
	assert.False(t, IsDuplicateKey(errors.New("boom")))
	assert.True(t, IsNotFound(fmt.Errorf("get: %w", gorm.ErrRecordNotFound)))
}

func TestPostRepository_DueIDs(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT "id" FROM "posts" WHERE status = $1 AND publish_at IS NOT NULL AND publish_at <= $2 AND published_at IS NULL ORDER BY publish_at ASC`)).
		WithArgs(models.PostStatusPublished, now).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("first").AddRow("second"))

	ids, err := repo.DueIDs(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_MarkPublishedIfDue(t *testing.T) {
	tests := []struct {
		name     string
		affected int64
		want     bool
	}{
		{"wins the guard", 1, true},
		{"already published by another sweep", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := setupMockDB(t)
			repo := NewPostRepository(db)

			mock.ExpectBegin()
			mock.ExpectExec(regexp.QuoteMeta(`UPDATE "posts" SET`)).
				WillReturnResult(sqlmock.NewResult(0, tt.affected))
			mock.ExpectCommit()

			got, err := repo.MarkPublishedIfDue(context.Background(), "hello", now)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPostRepository_GetByIDNotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "posts" WHERE id = $1`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetByID(context.Background(), "missing")
	assert.True(t, IsNotFound(err))
}

func TestPostRepository_CreateDuplicate(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	first := &models.Post{ID: "hello-world", Title: "Hello World", Excerpt: "e", Content: "c", Status: models.PostStatusDraft, AuthorName: "A"}
	require.NoError(t, repo.Create(ctx, first))

	second := &models.Post{ID: "hello-world", Title: "Other", Excerpt: "e", Content: "c", Status: models.PostStatusDraft, AuthorName: "B"}
	err := repo.Create(ctx, second)
	require.Error(t, err)
	assert.True(t, IsDuplicateKey(err))

	stored, err := repo.GetByID(ctx, "hello-world")
	require.NoError(t, err)
	assert.Equal(t, "Hello World", stored.Title)
}

func TestPostRepository_StoresEveryField(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	publishAt := now.Add(time.Hour)
	want := &models.Post{
		ID:         "full-post",
		Title:      "Full Post",
		Excerpt:    "Summary",
		Content:    "Body text",
		Tags:       models.TagList{"Go", "Databases"},
		ReadTime:   1,
		AuthorName: "Ada",
		CoverImage: "https://example.com/cover.png",
		Status:     models.PostStatusPublished,
		PublishAt:  &publishAt,
	}
	require.NoError(t, repo.Create(ctx, want))

	got, err := repo.GetByID(ctx, "full-post")
	require.NoError(t, err)

	opts := []cmp.Option{
		cmpopts.IgnoreFields(models.Post{}, "CreatedAt", "UpdatedAt"),
		cmpopts.EquateApproxTime(time.Millisecond),
	}
	assert.Empty(t, cmp.Diff(want, got, opts...))
}

func TestPostRepository_ListVisible(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	testutil.CreatePost(t, db, "draft")
	testutil.CreatePost(t, db, "old", testutil.Published(now.Add(-48*time.Hour)))
	testutil.CreatePost(t, db, "new", testutil.Published(now.Add(-time.Hour)))
	testutil.CreatePost(t, db, "future", testutil.Scheduled(now.Add(time.Hour)))
	testutil.CreatePost(t, db, "due", testutil.Scheduled(now))

	posts, err := repo.ListVisible(ctx, now, 10, 0, "")
	require.NoError(t, err)

	var ids []string
	for _, p := range posts {
		ids = append(ids, p.ID)
	}
	assert.ElementsMatch(t, []string{"old", "new", "due"}, ids)
	assert.Equal(t, "new", ids[0], "newest publish_date first")

	tagged, err := repo.ListVisible(ctx, now, 10, 0, "rust")
	require.NoError(t, err)
	assert.Empty(t, tagged)
}

func TestPostRepository_ListVisible_TagMatching(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	testutil.CreatePost(t, db, "cc", testutil.Published(now), testutil.Tagged("C&C"))
	testutil.CreatePost(t, db, "percent", testutil.Published(now), testutil.Tagged("100%"))
	testutil.CreatePost(t, db, "hundred", testutil.Published(now), testutil.Tagged("1000"))
	testutil.CreatePost(t, db, "underscore", testutil.Published(now), testutil.Tagged("go_lang"))
	testutil.CreatePost(t, db, "golang", testutil.Published(now), testutil.Tagged("goXlang"))
	testutil.CreatePost(t, db, "slash", testutil.Published(now), testutil.Tagged(`a\b`))

	tests := []struct {
		tag  string
		want []string
	}{
		{"C&C", []string{"cc"}},
		{"100%", []string{"percent"}},
		{"go_lang", []string{"underscore"}},
		{`a\b`, []string{"slash"}},
		{"%", nil},
		{"C", nil},
	}
	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			posts, err := repo.ListVisible(ctx, now, 10, 0, tt.tag)
			require.NoError(t, err)
			var ids []string
			for _, p := range posts {
				ids = append(ids, p.ID)
			}
			assert.ElementsMatch(t, tt.want, ids)
		})
	}
}

func TestPostRepository_NextPublishAt(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	next, err := repo.NextPublishAt(ctx, now)
	require.NoError(t, err)
	assert.Nil(t, next)

	testutil.CreatePost(t, db, "past", testutil.Scheduled(now.Add(-time.Minute)))
	testutil.CreatePost(t, db, "later", testutil.Scheduled(now.Add(2*time.Hour)))
	testutil.CreatePost(t, db, "soon", testutil.Scheduled(now.Add(30*time.Second)))
	draft := testutil.CreatePost(t, db, "draft")
	soonest := now.Add(time.Second)
	draft.PublishAt = &soonest
	require.NoError(t, repo.Update(ctx, draft))

	next, err = repo.NextPublishAt(ctx, now)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.WithinDuration(t, now.Add(30*time.Second), *next, time.Millisecond)
}

func TestPostRepository_UpdateKeepsCounters(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	post := testutil.CreatePost(t, db, "counted", testutil.Published(now))
	require.NoError(t, db.Model(&models.Post{}).Where("id = ?", "counted").UpdateColumn("likes_count", 3).Error)

	post.Title = "Edited"
	require.NoError(t, repo.Update(ctx, post))

	stored, err := repo.GetByID(ctx, "counted")
	require.NoError(t, err)
	assert.Equal(t, "Edited", stored.Title)
	assert.Equal(t, 3, stored.LikesCount)
}

func TestPostRepository_DeleteCascades(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	testutil.CreatePost(t, db, "doomed", testutil.Published(now))
	require.NoError(t, NewCommentRepository(db).Create(ctx, &models.Comment{PostID: "doomed", Content: "hi", Author: models.ClientActor("client_1_abcdef123")}))
	_, err := NewLikeRepository(db).Toggle(ctx, "doomed", models.ClientActor("client_1_abcdef123"), now, 0)
	require.NoError(t, err)

	deleted, err := repo.Delete(ctx, "doomed")
	require.NoError(t, err)
	assert.True(t, deleted)

	var remaining int64
	require.NoError(t, db.Model(&models.Comment{}).Where("post_id = ?", "doomed").Count(&remaining).Error)
	assert.Zero(t, remaining)
	require.NoError(t, db.Model(&models.Like{}).Where("post_id = ?", "doomed").Count(&remaining).Error)
	assert.Zero(t, remaining)

	deleted, err = repo.Delete(ctx, "doomed")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestPostRepository_SweepGuard(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	testutil.CreatePost(t, db, "scheduled", testutil.Scheduled(now.Add(-time.Minute)))

	ids, err := repo.DueIDs(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, []string{"scheduled"}, ids)

	ok, err := repo.MarkPublishedIfDue(ctx, "scheduled", now)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.MarkPublishedIfDue(ctx, "scheduled", now.Add(time.Second))
	require.NoError(t, err)
	assert.False(t, ok, "a second sweep must not republish")

	ids, err = repo.DueIDs(ctx, now.Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, ids)
}
