package models

import "time"

// Chat limits.
const (
	MinChatNicknameLength = 2
	MaxChatNicknameLength = 30
	DefaultChatChannel    = "general"
	DefaultHistoryLimit   = 50
	MaxHistoryLimit       = 100
	PresenceWindow        = 5 * time.Minute
)

// ChatMessage is an immutable discussion message; it may only be soft-deleted.
type ChatMessage struct {
	ID        uint    `gorm:"primaryKey" json:"id"`
	Channel   string  `gorm:"size:120;not null;index:idx_chat_channel_created,priority:1" json:"channel"`
	Nickname  string  `gorm:"size:30;not null" json:"nickname"`
	Content   string  `gorm:"type:text;not null" json:"content"`
	Author    Actor   `gorm:"embedded;embeddedPrefix:author_" json:"-"`
	PostID    *string `gorm:"size:100" json:"post_id,omitempty"`
	IsDeleted bool    `gorm:"not null;default:false" json:"-"`
	// Own is computed per request: true when the caller authored the message.
	Own       bool      `gorm:"-" json:"own"`
	CreatedAt time.Time `gorm:"index:idx_chat_channel_created,priority:2" json:"created_at"`
}

// ChatPresence tracks the last heartbeat of a client in a channel.
type ChatPresence struct {
	Channel  string    `gorm:"primaryKey;size:120" json:"channel"`
	ClientID string    `gorm:"primaryKey;size:128" json:"-"`
	Nickname string    `gorm:"size:30;not null" json:"nickname"`
	LastSeen time.Time `gorm:"not null;index" json:"last_seen"`
}

// TableName returns the database table name for ChatPresence.
func (ChatPresence) TableName() string {
	return "chat_presence"
}
