package models

import "time"

// Comment limits.
const (
	MaxCommentLength  = 1000
	MaxNicknameLength = 64
)

// Comment is a reader comment on a post. Replies reference a top-level comment only.
type Comment struct {
	ID        uint    `gorm:"primaryKey" json:"id"`
	PostID    string  `gorm:"size:100;not null;index:idx_comments_post_created,priority:1" json:"post_id"`
	ParentID  *uint   `gorm:"index" json:"parent_id"`
	Nickname  *string `gorm:"size:64" json:"nickname"`
	Content   string  `gorm:"type:text;not null" json:"content"`
	Author    Actor   `gorm:"embedded;embeddedPrefix:author_" json:"-"`
	IsDeleted bool    `gorm:"not null;default:false" json:"-"`
	// Own is computed per request: true when the caller authored the comment.
	Own       bool      `gorm:"-" json:"own"`
	CreatedAt time.Time `gorm:"index:idx_comments_post_created,priority:2" json:"created_at"`
}

// DisplayName returns the nickname, or "Anonymous" when none was given.
func (c *Comment) DisplayName() string {
	if c.Nickname == nil || *c.Nickname == "" {
		return DefaultAuthorName
	}
	return *c.Nickname
}

// IsTopLevel reports whether the comment has no parent.
func (c *Comment) IsTopLevel() bool {
	return c.ParentID == nil
}
