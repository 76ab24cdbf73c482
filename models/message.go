package models

import "gorm.io/gorm"

// Message is immutable once created and is never deleted; per-user clears only
// move the membership horizon.
type Message struct {
	gorm.Model
	ConversationID uint   `gorm:"index;not null"`
	UserID         uint   `gorm:"index;not null"`
	Content        string `gorm:"type:text;not null"`
}
