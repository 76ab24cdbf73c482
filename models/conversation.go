package models

import "gorm.io/gorm"

const (
	ConversationDirect = "direct"
	ConversationGroup  = "group"
)

// DefaultGroupTitle is used when a group is created or renamed with an empty title.
const DefaultGroupTitle = "unnamed group"

type Conversation struct {
	gorm.Model
	Type      string       `gorm:"size:10;not null;index"`
	Title     *string      `gorm:"size:200"` // nil for direct conversations
	CreatedBy uint         `gorm:"not null"`
	Members   []Membership `gorm:"constraint:OnDelete:CASCADE"`
	Messages  []Message    `gorm:"constraint:OnDelete:CASCADE"`
}

func (c *Conversation) IsDirect() bool { return c.Type == ConversationDirect }
