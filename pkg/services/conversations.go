package services

import (
	"ChatCore/models"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
)

var (
	ErrNotMember       = errors.New("not a member of this conversation")
	ErrNotFound        = errors.New("conversation not found")
	ErrNoParticipants  = errors.New("at least one other participant is required")
	ErrNotGroup        = errors.New("operation only applies to group conversations")
	ErrEmptyMessage    = errors.New("message content is required")
	ErrUnknownUsers    = errors.New("one or more participants do not exist")
)

// ConversationService owns conversation, membership and message state. All
// mutators persist first; in-memory views are always re-derived from a fresh
// read, never patched in place.
type ConversationService struct {
	db    *gorm.DB
	guard snapshotGuard
}

func NewConversationService(db *gorm.DB) *ConversationService {
	return &ConversationService{db: db, guard: snapshotGuard{gens: map[uint]uint64{}}}
}

// DB exposes the underlying handle for callers that need direct lookups.
func (s *ConversationService) DB() *gorm.DB { return s.db }

// CreateConversation creates a direct or group conversation with memberships
// for every participant including the creator. A direct conversation between
// the same two users is deduplicated: the existing one is returned with
// created=false.
func (s *ConversationService) CreateConversation(creatorID uint, participantIDs []uint, typ, title string) (*models.Conversation, bool, error) {
	others := dedupeIDs(participantIDs, creatorID)
	if len(others) == 0 {
		return nil, false, ErrNoParticipants
	}

	var count int64
	if err := s.db.Model(&models.User{}).Where("id IN ?", others).Count(&count).Error; err != nil {
		return nil, false, err
	}
	if count != int64(len(others)) {
		return nil, false, ErrUnknownUsers
	}

	// more than one other participant always resolves to a group
	isGroup := typ == models.ConversationGroup || len(others) > 1

	if !isGroup {
		if existing, err := s.findDirectBetween(creatorID, others[0]); err != nil {
			return nil, false, err
		} else if existing != nil {
			return existing, false, nil
		}
	}

	conv := models.Conversation{
		Type:      models.ConversationDirect,
		CreatedBy: creatorID,
	}
	if isGroup {
		conv.Type = models.ConversationGroup
		t := strings.TrimSpace(title)
		if t == "" {
			t = models.DefaultGroupTitle
		}
		conv.Title = &t
	}

	memberIDs := append([]uint{creatorID}, others...)
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&conv).Error; err != nil {
			return err
		}
		for _, uid := range memberIDs {
			m := models.Membership{ConversationID: conv.ID, UserID: uid}
			if err := tx.Create(&m).Error; err != nil {
				return err
			}
			// callers fan out membership changes to every participant
			conv.Members = append(conv.Members, m)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return &conv, true, nil
}

// findDirectBetween locates the direct conversation whose member set is
// exactly {a, b}, if one exists.
func (s *ConversationService) findDirectBetween(a, b uint) (*models.Conversation, error) {
	var convIDs []uint
	err := s.db.Model(&models.Membership{}).
		Select("conversation_id").
		Where("user_id IN ?", []uint{a, b}).
		Group("conversation_id").
		Having("COUNT(DISTINCT user_id) = 2").
		Scan(&convIDs).Error
	if err != nil {
		return nil, err
	}
	if len(convIDs) == 0 {
		return nil, nil
	}
	var conv models.Conversation
	err = s.db.Where("id IN ? AND type = ?", convIDs, models.ConversationDirect).First(&conv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

func (s *ConversationService) GetConversation(userID, convID uint) (*models.Conversation, error) {
	var conv models.Conversation
	if err := s.db.Preload("Members").First(&conv, convID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	for _, m := range conv.Members {
		if m.UserID == userID {
			return &conv, nil
		}
	}
	return nil, ErrNotMember
}

func (s *ConversationService) membership(userID, convID uint) (*models.Membership, error) {
	var m models.Membership
	err := s.db.Where("conversation_id = ? AND user_id = ?", convID, userID).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotMember
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// AddMembers invites users into a group conversation. Existing members are
// skipped. Direct conversations cannot grow.
func (s *ConversationService) AddMembers(callerID, convID uint, userIDs []uint) error {
	conv, err := s.GetConversation(callerID, convID)
	if err != nil {
		return err
	}
	if conv.IsDirect() {
		return ErrNotGroup
	}
	existing := map[uint]struct{}{}
	for _, m := range conv.Members {
		existing[m.UserID] = struct{}{}
	}
	for _, uid := range dedupeIDs(userIDs, 0) {
		if _, ok := existing[uid]; ok {
			continue
		}
		var count int64
		if err := s.db.Model(&models.User{}).Where("id = ?", uid).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrUnknownUsers
		}
		if err := s.db.Create(&models.Membership{ConversationID: convID, UserID: uid}).Error; err != nil {
			return err
		}
	}
	return nil
}

// HideOrLeave removes the conversation from the caller's list. Groups are
// left for good: the membership row is deleted and only a re-invitation can
// bring the user back. Direct chats are soft-hidden with the clear horizon
// moved to now, so a later incoming message revives the chat without exposing
// anything sent before the clear.
func (s *ConversationService) HideOrLeave(userID, convID uint) error {
	var conv models.Conversation
	if err := s.db.First(&conv, convID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	m, err := s.membership(userID, convID)
	if err != nil {
		return err
	}
	if conv.IsDirect() {
		now := time.Now()
		return s.db.Model(m).Updates(map[string]any{
			"hidden":          true,
			"last_cleared_at": now,
		}).Error
	}
	return s.db.Unscoped().Delete(m).Error
}

// Rename updates a group title; an empty title falls back to the default
// label. Direct conversations have no title.
func (s *ConversationService) Rename(userID, convID uint, title string) (string, error) {
	conv, err := s.GetConversation(userID, convID)
	if err != nil {
		return "", err
	}
	if conv.IsDirect() {
		return "", ErrNotGroup
	}
	t := strings.TrimSpace(title)
	if t == "" {
		t = models.DefaultGroupTitle
	}
	if err := s.db.Model(conv).Update("title", t).Error; err != nil {
		return "", err
	}
	return t, nil
}

// MarkRead sets last_read_at to now and un-hides the conversation; opening a
// chat always brings it back into the list. Last write wins, no ordering is
// needed since this only gates the unread badge.
func (s *ConversationService) MarkRead(userID, convID uint) error {
	m, err := s.membership(userID, convID)
	if err != nil {
		return err
	}
	now := time.Now()
	return s.db.Model(m).Updates(map[string]any{
		"last_read_at": now,
		"hidden":       false,
	}).Error
}

// SendMessage persists a message from userID and marks the sender's own
// membership as read. Fan-out to other members is the hub's job.
func (s *ConversationService) SendMessage(userID, convID uint, content string) (*models.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyMessage
	}
	if _, err := s.membership(userID, convID); err != nil {
		return nil, err
	}
	msg := models.Message{ConversationID: convID, UserID: userID, Content: content}
	if err := s.db.Create(&msg).Error; err != nil {
		return nil, err
	}
	if err := s.MarkRead(userID, convID); err != nil {
		return nil, err
	}
	return &msg, nil
}

// DeliverIncoming applies the new-message arrival policy and returns the ids
// of users the message must be delivered to, plus the ids whose hidden direct
// membership was revived by it:
//   - direct + hidden membership: un-hide unconditionally, deliver.
//   - group + hidden membership (or no membership at all): stay silent.
func (s *ConversationService) DeliverIncoming(msg *models.Message) (recipients, revived []uint, err error) {
	var conv models.Conversation
	if err := s.db.First(&conv, msg.ConversationID).Error; err != nil {
		return nil, nil, err
	}
	var members []models.Membership
	if err := s.db.Where("conversation_id = ?", conv.ID).Find(&members).Error; err != nil {
		return nil, nil, err
	}
	for _, m := range members {
		if m.Hidden {
			if !conv.IsDirect() {
				continue
			}
			if err := s.db.Model(&m).Update("hidden", false).Error; err != nil {
				return nil, nil, err
			}
			revived = append(revived, m.UserID)
		}
		recipients = append(recipients, m.UserID)
	}
	return recipients, revived, nil
}

func dedupeIDs(ids []uint, drop uint) []uint {
	seen := map[uint]struct{}{}
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id == drop || id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
