package services

import (
	"ChatCore/models"
	"log"
	"time"
)

// FeedMessage is one message of a conversation history, joined with its
// sender's profile.
type FeedMessage struct {
	ID             uint           `json:"id"`
	ConversationID uint           `json:"conversation_id"`
	Content        string         `json:"content"`
	CreatedAt      time.Time      `json:"created_at"`
	Sender         models.Profile `json:"sender"`
}

// anonymousProfile stands in when a sender lookup fails; the message itself
// is never dropped.
func anonymousProfile(userID uint) models.Profile {
	return models.Profile{ID: userID, Username: "unknown"}
}

// Feed loads the caller's view of a conversation history: every message
// created strictly after the caller's clear horizon (all of them when the
// caller never cleared), ascending by creation time.
func (s *ConversationService) Feed(userID, convID uint) ([]FeedMessage, error) {
	m, err := s.membership(userID, convID)
	if err != nil {
		return nil, err
	}

	q := s.db.Where("conversation_id = ?", convID).Order("created_at ASC")
	if m.LastClearedAt != nil {
		q = q.Where("created_at > ?", *m.LastClearedAt)
	}
	var msgs []models.Message
	if err := q.Find(&msgs).Error; err != nil {
		return nil, err
	}

	senderIDs := map[uint]struct{}{}
	for _, msg := range msgs {
		senderIDs[msg.UserID] = struct{}{}
	}
	profiles := s.profilesByID(senderIDs)

	out := make([]FeedMessage, 0, len(msgs))
	for _, msg := range msgs {
		out = append(out, s.toFeedMessage(&msg, profiles))
	}
	return out, nil
}

// FeedMessageFor resolves a single stored message into its feed form.
func (s *ConversationService) FeedMessageFor(msg *models.Message) FeedMessage {
	return s.toFeedMessage(msg, s.profilesByID(map[uint]struct{}{msg.UserID: {}}))
}

func (s *ConversationService) toFeedMessage(msg *models.Message, profiles map[uint]models.Profile) FeedMessage {
	sender, ok := profiles[msg.UserID]
	if !ok {
		sender = anonymousProfile(msg.UserID)
	}
	return FeedMessage{
		ID:             msg.ID,
		ConversationID: msg.ConversationID,
		Content:        msg.Content,
		CreatedAt:      msg.CreatedAt,
		Sender:         sender,
	}
}

func (s *ConversationService) profilesByID(idSet map[uint]struct{}) map[uint]models.Profile {
	ids := make([]uint, 0, len(idSet))
	for id := range idSet {
		ids = append(ids, id)
	}
	var users []models.User
	if err := s.db.Where("id IN ?", ids).Find(&users).Error; err != nil {
		// degrade to anonymous senders rather than failing the feed
		log.Printf("[feed] sender lookup failed: %v", err)
		return map[uint]models.Profile{}
	}
	out := make(map[uint]models.Profile, len(users))
	for _, u := range users {
		out[u.ID] = u.Profile()
	}
	return out
}
