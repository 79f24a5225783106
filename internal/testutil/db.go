// Package testutil provides shared fixtures for package tests.
package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"inkwell/internal/database"
	"inkwell/internal/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var dbSeq atomic.Int64

// NewDB returns a migrated in-memory sqlite database private to the test. All access
// goes through one connection, so transactions run one at a time.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:inkwell_test_%d?mode=memory&cache=shared&_busy_timeout=5000", dbSeq.Add(1))

	db, err := database.Open(sqlite.Open(dsn))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// PostOption customizes a fixture post.
type PostOption func(*models.Post)

// Published makes the fixture visible since at.
func Published(at time.Time) PostOption {
	return func(p *models.Post) {
		p.Status = models.PostStatusPublished
		p.PublishedAt = &at
		p.PublishDate = &at
	}
}

// Scheduled makes the fixture a scheduled post due at.
func Scheduled(at time.Time) PostOption {
	return func(p *models.Post) {
		p.Status = models.PostStatusPublished
		p.PublishAt = &at
	}
}

// Tagged replaces the fixture's tags.
func Tagged(tags ...string) PostOption {
	return func(p *models.Post) {
		p.Tags = models.TagList(tags)
	}
}

// CreatePost inserts a post fixture with id, draft unless options say otherwise.
func CreatePost(t testing.TB, db *gorm.DB, id string, opts ...PostOption) *models.Post {
	t.Helper()
	p := &models.Post{
		ID:         id,
		Title:      "Title " + id,
		Excerpt:    "Excerpt " + id,
		Content:    "Some content for " + id,
		Tags:       models.TagList{"go"},
		ReadTime:   1,
		AuthorName: models.DefaultAuthorName,
		Status:     models.PostStatusDraft,
	}
	for _, opt := range opts {
		opt(p)
	}
	if err := db.Create(p).Error; err != nil {
		t.Fatalf("create post %s: %v", id, err)
	}
	return p
}
