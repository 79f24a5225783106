// Package models contains data structures for the application's domain models.
package models

import (
	"errors"
	"math"
	"strings"
	"time"
)

// PostStatus is the stored publication status of a post.
type PostStatus string

const (
	PostStatusDraft     PostStatus = "draft"
	PostStatusPublished PostStatus = "published"
)

// PublicationState is the derived lifecycle state of a post at a given instant.
type PublicationState string

const (
	StateDraft     PublicationState = "draft"
	StateScheduled PublicationState = "scheduled"
	StatePublished PublicationState = "published"
)

// WordsPerMinute is the reading speed used for ReadTime.
const WordsPerMinute = 200

// DefaultAuthorName is shown when a post is saved without an author.
const DefaultAuthorName = "Anonymous"

// ErrAlreadyLive is returned when a live post is given a future publish time.
var ErrAlreadyLive = errors.New("post is already live; move it back to draft before rescheduling")

// TagList is an ordered tag set persisted as a JSON array.
type TagList []string

// Post represents a blog post and its publication lifecycle.
type Post struct {
	ID         string  `gorm:"primaryKey;size:100" json:"id"`
	Title      string  `gorm:"size:300;not null" json:"title"`
	Excerpt    string  `gorm:"type:text;not null" json:"excerpt"`
	Content    string  `gorm:"type:text;not null" json:"content"`
	Tags       TagList `gorm:"type:text;serializer:json" json:"tags"`
	ReadTime   int     `gorm:"not null;default:1" json:"read_time"`
	AuthorName string  `gorm:"size:120;not null" json:"author_name"`
	CoverImage string  `gorm:"size:500" json:"cover_image,omitempty"`

	Status      PostStatus `gorm:"size:16;not null;index:idx_posts_visibility,priority:1" json:"status"`
	PublishAt   *time.Time `gorm:"index:idx_posts_visibility,priority:2" json:"publish_at"`
	PublishedAt *time.Time `json:"published_at"`
	PublishDate *time.Time `gorm:"index" json:"publish_date"`

	CommentsCount int `gorm:"not null;default:0" json:"comments_count"`
	LikesCount    int `gorm:"not null;default:0" json:"likes_count"`
	SharesCount   int `gorm:"not null;default:0" json:"shares_count"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// State returns the lifecycle state of the post at now.
func (p *Post) State(now time.Time) PublicationState {
	switch {
	case p.Status != PostStatusPublished:
		return StateDraft
	case p.PublishAt != nil && p.PublishAt.After(now):
		return StateScheduled
	default:
		return StatePublished
	}
}

// IsPubliclyVisible reports whether ordinary readers may see the post at now.
// A publish_at equal to now counts as due.
func (p *Post) IsPubliclyVisible(now time.Time) bool {
	return p.Status == PostStatusPublished && (p.PublishAt == nil || !p.PublishAt.After(now))
}

// IsDue reports whether the post is scheduled, its time has arrived, and visibility
// has not yet been recorded.
func (p *Post) IsDue(now time.Time) bool {
	return p.Status == PostStatusPublished &&
		p.PublishAt != nil && !p.PublishAt.After(now) &&
		p.PublishedAt == nil
}

// MarkDraft moves the post back to draft and clears every scheduling field.
func (p *Post) MarkDraft() {
	p.Status = PostStatusDraft
	p.PublishAt = nil
	p.PublishedAt = nil
	p.PublishDate = nil
}

// MarkPublished publishes the post. A future publishAt schedules it instead; a nil or
// past publishAt makes it visible immediately and stamps published_at once.
func (p *Post) MarkPublished(now time.Time, publishAt *time.Time) error {
	if publishAt != nil {
		at := publishAt.UTC()
		publishAt = &at
	}

	if publishAt != nil && publishAt.After(now) {
		if p.Status == PostStatusPublished && p.PublishedAt != nil {
			return ErrAlreadyLive
		}
		p.Status = PostStatusPublished
		p.PublishAt = publishAt
		p.PublishedAt = nil
		p.PublishDate = publishAt
		return nil
	}

	p.Status = PostStatusPublished
	p.PublishAt = publishAt
	if p.PublishedAt == nil {
		stamp := now
		p.PublishedAt = &stamp
	}
	sortDate := now
	if publishAt != nil {
		sortDate = *publishAt
	}
	p.PublishDate = &sortDate
	return nil
}

// MarkSwept records that a scheduled post became visible at now.
func (p *Post) MarkSwept(now time.Time) {
	stamp := now
	p.PublishedAt = &stamp
	p.PublishDate = &stamp
}

// ReadTime estimates minutes to read content at WordsPerMinute, never less than one.
func ReadTime(content string) int {
	words := len(strings.Fields(content))
	minutes := int(math.Ceil(float64(words) / WordsPerMinute))
	if minutes < 1 {
		return 1
	}
	return minutes
}

// CanonicalTags trims tags, drops empties and removes case-insensitive duplicates,
// keeping the first spelling and the original order.
func CanonicalTags(tags []string) TagList {
	out := make(TagList, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		t := strings.TrimSpace(tag)
		if t == "" {
			continue
		}
		key := strings.ToLower(t)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}
	return out
}
