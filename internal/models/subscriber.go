package models

import "time"

// ContactKind classifies a mailing list contact.
type ContactKind string

const (
	ContactEmail ContactKind = "email"
	ContactPhone ContactKind = "phone"
)

// Subscriber is a mailing list entry keyed by its normalized contact.
type Subscriber struct {
	ID                uint        `gorm:"primaryKey" json:"id"`
	Kind              ContactKind `gorm:"size:8;not null" json:"kind"`
	Contact           string      `gorm:"size:320;not null" json:"contact"`
	NormalizedContact string      `gorm:"size:320;not null;uniqueIndex" json:"normalized_contact"`
	Subscribed        bool        `gorm:"not null" json:"subscribed"`
	CreatedAt         time.Time   `json:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at"`
}
