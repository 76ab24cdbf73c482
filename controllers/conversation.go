package controllers

import (
	"ChatCore/middleware"
	"ChatCore/models"
	"ChatCore/pkg/hub"
	svc "ChatCore/pkg/services"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

func convID(c *gin.Context) uint {
	id, _ := strconv.Atoi(c.Param("conversation_id"))
	return uint(id)
}

func serviceStatus(err error) int {
	switch {
	case errors.Is(err, svc.ErrNotFound), errors.Is(err, svc.ErrNotMember):
		// membership is not disclosed to outsiders
		return http.StatusNotFound
	case errors.Is(err, svc.ErrNoParticipants),
		errors.Is(err, svc.ErrNotGroup),
		errors.Is(err, svc.ErrEmptyMessage),
		errors.Is(err, svc.ErrUnknownUsers):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// ListConversations returns the caller's visible conversations, most recent
// activity first, each with its unread flag.
func ListConversations(s *svc.ConversationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := middleware.CurrentUserID(c)
		list, err := s.VisibleConversations(uid)
		if err != nil {
			log.Printf("[conversations] list failed (user %d): %v", uid, err)
			c.JSON(http.StatusInternalServerError, gin.H{"msg": "db error"})
			return
		}
		c.JSON(http.StatusOK, list)
	}
}

// CreateConversation creates a direct or group conversation. An existing
// direct chat with the same two participants is returned instead of a
// duplicate.
func CreateConversation(s *svc.ConversationService, h *hub.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := middleware.CurrentUserID(c)
		var body struct {
			ParticipantIDs []uint `json:"participant_ids"`
			Type           string `json:"type"`
			Title          string `json:"title"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid request"})
			return
		}

		conv, created, err := s.CreateConversation(uid, body.ParticipantIDs, body.Type, body.Title)
		if err != nil {
			log.Printf("[conversations] create failed (user %d): %v", uid, err)
			c.JSON(serviceStatus(err), gin.H{"msg": err.Error()})
			return
		}

		status := http.StatusOK
		if created {
			status = http.StatusCreated
			// new memberships change every participant's list
			for _, m := range conv.Members {
				h.RequestSnapshot(m.UserID)
			}
		}
		c.JSON(status, gin.H{
			"conversation_id": conv.ID,
			"type":            conv.Type,
			"title":           conv.Title,
			"created":         created,
		})
	}
}

func GetConversation(s *svc.ConversationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := middleware.CurrentUserID(c)
		conv, err := s.GetConversation(uid, convID(c))
		if err != nil {
			c.JSON(serviceStatus(err), gin.H{"msg": "conversation not found"})
			return
		}

		members := make([]gin.H, 0, len(conv.Members))
		for _, m := range conv.Members {
			var u models.User
			member := gin.H{"user_id": m.UserID, "hidden": m.Hidden, "last_read_at": m.LastReadAt}
			if err := s.DB().First(&u, m.UserID).Error; err == nil {
				member["profile"] = u.Profile()
			}
			members = append(members, member)
		}
		c.JSON(http.StatusOK, gin.H{
			"conversation_id": conv.ID,
			"type":            conv.Type,
			"title":           conv.Title,
			"created_by":      conv.CreatedBy,
			"created_at":      conv.CreatedAt,
			"members":         members,
		})
	}
}

// DeleteConversation hides a direct chat for the caller only, or leaves a
// group for good.
func DeleteConversation(s *svc.ConversationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := middleware.CurrentUserID(c)
		if err := s.HideOrLeave(uid, convID(c)); err != nil {
			log.Printf("[conversations] delete failed (user %d): %v", uid, err)
			c.JSON(serviceStatus(err), gin.H{"msg": "failed to remove conversation"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"msg": "conversation removed"})
	}
}

// RenameConversation updates a group title, falling back to the default label
// when empty.
func RenameConversation(s *svc.ConversationService, h *hub.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := middleware.CurrentUserID(c)
		var body struct {
			Title string `json:"title"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid request"})
			return
		}
		title, err := s.Rename(uid, convID(c), body.Title)
		if err != nil {
			c.JSON(serviceStatus(err), gin.H{"msg": err.Error()})
			return
		}
		// other members learn the new title through their next snapshot
		if conv, err := s.GetConversation(uid, convID(c)); err == nil {
			for _, m := range conv.Members {
				h.RequestSnapshot(m.UserID)
			}
		}
		c.JSON(http.StatusOK, gin.H{"title": title})
	}
}

// AddMembers invites users into a group.
func AddMembers(s *svc.ConversationService, h *hub.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := middleware.CurrentUserID(c)
		var body struct {
			UserIDs []uint `json:"user_ids"`
		}
		if err := c.ShouldBindJSON(&body); err != nil || len(body.UserIDs) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"msg": "user_ids is required"})
			return
		}
		if err := s.AddMembers(uid, convID(c), body.UserIDs); err != nil {
			c.JSON(serviceStatus(err), gin.H{"msg": err.Error()})
			return
		}
		for _, id := range body.UserIDs {
			h.RequestSnapshot(id)
		}
		c.JSON(http.StatusOK, gin.H{"msg": "members added"})
	}
}

// MarkRead updates the caller's read marker and un-hides the conversation.
func MarkRead(s *svc.ConversationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := middleware.CurrentUserID(c)
		if err := s.MarkRead(uid, convID(c)); err != nil {
			c.JSON(serviceStatus(err), gin.H{"msg": "failed to mark read"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"msg": "read"})
	}
}

// GetMessages returns the caller's view of the history, bounded by their
// clear horizon.
func GetMessages(s *svc.ConversationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := middleware.CurrentUserID(c)
		feed, err := s.Feed(uid, convID(c))
		if err != nil {
			log.Printf("[conversations] feed failed (user %d): %v", uid, err)
			c.JSON(serviceStatus(err), gin.H{"msg": "failed to load messages"})
			return
		}
		c.JSON(http.StatusOK, feed)
	}
}

// SendMessage persists a message and hands it to the hub for fan-out.
func SendMessage(s *svc.ConversationService, h *hub.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := middleware.CurrentUserID(c)
		var body struct {
			Content string `json:"content"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"msg": "invalid request"})
			return
		}
		if !middleware.DuplicateGuard(uid, body.Content) {
			c.JSON(http.StatusConflict, gin.H{"msg": "duplicate message ignored"})
			return
		}
		msg, err := s.SendMessage(uid, convID(c), body.Content)
		if err != nil {
			log.Printf("[conversations] send failed (user %d): %v", uid, err)
			c.JSON(serviceStatus(err), gin.H{"msg": err.Error()})
			return
		}
		h.Publish(msg)
		c.JSON(http.StatusCreated, s.FeedMessageFor(msg))
	}
}
