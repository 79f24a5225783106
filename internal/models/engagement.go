package models

import (
	"strings"
	"time"
)

// Like records one actor's like of one post. (post_id, actor) is unique.
type Like struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	PostID    string    `gorm:"size:100;not null;uniqueIndex:idx_post_likes_actor,priority:1" json:"post_id"`
	ActorKind ActorKind `gorm:"size:16;not null;uniqueIndex:idx_post_likes_actor,priority:2" json:"-"`
	ActorID   string    `gorm:"size:128;not null;uniqueIndex:idx_post_likes_actor,priority:3" json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name for Like.
func (Like) TableName() string {
	return "post_likes"
}

// ShareChannel is where a post was shared to.
type ShareChannel string

const (
	ShareCopy     ShareChannel = "copy"
	ShareX        ShareChannel = "x"
	ShareLinkedIn ShareChannel = "linkedin"
	ShareFacebook ShareChannel = "facebook"
	ShareEmail    ShareChannel = "email"
	ShareNative   ShareChannel = "native"
	ShareOther    ShareChannel = "other"
)

// ParseShareChannel lowercases raw and maps it onto a known channel. "twitter" is accepted as x.
func ParseShareChannel(raw string) (ShareChannel, bool) {
	switch ch := ShareChannel(strings.ToLower(strings.TrimSpace(raw))); ch {
	case ShareCopy, ShareX, ShareLinkedIn, ShareFacebook, ShareEmail, ShareNative, ShareOther:
		return ch, true
	case "twitter":
		return ShareX, true
	default:
		return "", false
	}
}

// ShareEvent is an append-only record of a share.
type ShareEvent struct {
	ID        uint         `gorm:"primaryKey" json:"id"`
	PostID    string       `gorm:"size:100;not null;index" json:"post_id"`
	Channel   ShareChannel `gorm:"size:16;not null" json:"channel"`
	ActorKind *ActorKind   `gorm:"size:16" json:"-"`
	ActorID   *string      `gorm:"size:128" json:"-"`
	IPHash    string       `gorm:"size:64" json:"-"`
	CreatedAt time.Time    `json:"created_at"`
}

// SetActor attaches an optional actor to the event.
func (e *ShareEvent) SetActor(a *Actor) {
	if a == nil || !a.Valid() {
		e.ActorKind, e.ActorID = nil, nil
		return
	}
	kind, id := a.Kind, a.ID
	e.ActorKind, e.ActorID = &kind, &id
}
