package models

import (
	"time"

	"gorm.io/gorm"
)

// Membership carries per-user visibility and read/clear state for one
// conversation. Hidden suppresses the conversation from that user's list
// without touching other members. LastClearedAt is a horizon: messages created
// at or before it are never shown to this user again, even after the
// conversation is revived by a new message.
type Membership struct {
	gorm.Model
	ConversationID uint       `gorm:"not null;uniqueIndex:idx_member_conv_user"`
	UserID         uint       `gorm:"not null;uniqueIndex:idx_member_conv_user;index"`
	Hidden         bool       `gorm:"not null;default:false"`
	LastReadAt     *time.Time
	LastClearedAt  *time.Time
}
