package services

import (
	"ChatCore/models"
	"sort"
	"sync"
	"time"
)

// ConversationSummary is one row of a user's conversation list.
type ConversationSummary struct {
	ID            uint            `json:"id"`
	Type          string          `json:"type"`
	Title         *string         `json:"title"`
	CreatedBy     uint            `json:"created_by"`
	CreatedAt     time.Time       `json:"created_at"`
	LastMessageAt time.Time       `json:"last_message_at"`
	Unread        bool            `json:"unread"`
	Members       []MemberInfo    `json:"members"`
	OtherUser     *models.Profile `json:"other_user,omitempty"` // direct only
}

type MemberInfo struct {
	UserID     uint            `json:"user_id"`
	LastReadAt *time.Time      `json:"last_read_at,omitempty"`
	Profile    *models.Profile `json:"profile,omitempty"`
}

// VisibleConversations computes the ordered conversation list for a user:
// every conversation with a non-hidden membership, annotated with the latest
// message timestamp (conversation creation time when empty), the unread flag
// and, for direct chats, the other participant's profile. Ordered by most
// recent activity first.
func (s *ConversationService) VisibleConversations(userID uint) ([]ConversationSummary, error) {
	var mine []models.Membership
	if err := s.db.Where("user_id = ? AND hidden = ?", userID, false).Find(&mine).Error; err != nil {
		return nil, err
	}
	if len(mine) == 0 {
		return []ConversationSummary{}, nil
	}

	myByConv := make(map[uint]models.Membership, len(mine))
	convIDs := make([]uint, 0, len(mine))
	for _, m := range mine {
		myByConv[m.ConversationID] = m
		convIDs = append(convIDs, m.ConversationID)
	}

	var convs []models.Conversation
	if err := s.db.Preload("Members").Where("id IN ?", convIDs).Find(&convs).Error; err != nil {
		return nil, err
	}

	lastByConv, err := s.latestMessageTimes(convIDs)
	if err != nil {
		return nil, err
	}

	profiles, err := s.memberProfiles(convs)
	if err != nil {
		return nil, err
	}

	out := make([]ConversationSummary, 0, len(convs))
	for _, conv := range convs {
		mine := myByConv[conv.ID]

		summary := ConversationSummary{
			ID:        conv.ID,
			Type:      conv.Type,
			Title:     conv.Title,
			CreatedBy: conv.CreatedBy,
			CreatedAt: conv.CreatedAt,
		}

		lastAt, hasMessages := lastByConv[conv.ID]
		if hasMessages {
			summary.LastMessageAt = lastAt
			summary.Unread = mine.LastReadAt == nil || lastAt.After(*mine.LastReadAt)
		} else {
			summary.LastMessageAt = conv.CreatedAt
		}

		for _, m := range conv.Members {
			info := MemberInfo{UserID: m.UserID, LastReadAt: m.LastReadAt}
			if p, ok := profiles[m.UserID]; ok {
				cp := p
				info.Profile = &cp
			}
			summary.Members = append(summary.Members, info)
			if conv.IsDirect() && m.UserID != userID {
				if p, ok := profiles[m.UserID]; ok {
					cp := p
					summary.OtherUser = &cp
				}
			}
		}

		out = append(out, summary)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[j].LastMessageAt.Before(out[i].LastMessageAt)
	})
	return out, nil
}

func (s *ConversationService) latestMessageTimes(convIDs []uint) (map[uint]time.Time, error) {
	var rows []models.Message
	err := s.db.Select("conversation_id", "created_at").
		Where("conversation_id IN ?", convIDs).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[uint]time.Time, len(convIDs))
	for _, r := range rows {
		if r.CreatedAt.After(out[r.ConversationID]) {
			out[r.ConversationID] = r.CreatedAt
		}
	}
	return out, nil
}

func (s *ConversationService) memberProfiles(convs []models.Conversation) (map[uint]models.Profile, error) {
	idSet := map[uint]struct{}{}
	for _, conv := range convs {
		for _, m := range conv.Members {
			idSet[m.UserID] = struct{}{}
		}
	}
	ids := make([]uint, 0, len(idSet))
	for id := range idSet {
		ids = append(ids, id)
	}
	var users []models.User
	if err := s.db.Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	out := make(map[uint]models.Profile, len(users))
	for _, u := range users {
		out[u.ID] = u.Profile()
	}
	return out, nil
}

// snapshotGuard hands out per-user monotonic generations so that a slow
// recomputation never overwrites the result of a later-triggered one.
type snapshotGuard struct {
	mu   sync.Mutex
	gens map[uint]uint64
}

// NextGeneration reserves a new recomputation generation for the user.
func (s *ConversationService) NextGeneration(userID uint) uint64 {
	s.guard.mu.Lock()
	defer s.guard.mu.Unlock()
	s.guard.gens[userID]++
	return s.guard.gens[userID]
}

// IsCurrentGeneration reports whether gen is still the latest reserved
// generation for the user; stale recomputations must be discarded.
func (s *ConversationService) IsCurrentGeneration(userID uint, gen uint64) bool {
	s.guard.mu.Lock()
	defer s.guard.mu.Unlock()
	return s.guard.gens[userID] == gen
}
