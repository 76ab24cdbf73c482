package hub

import (
	"ChatCore/models"
	"ChatCore/pkg/cache"
	"ChatCore/pkg/services"
	"encoding/json"
	"log"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
)

// Hub fans out persisted messages and conversation-list snapshots to
// connected clients. A single goroutine owns all client maps, so the arrival
// policy and snapshot pushes never race with registration.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	messages   chan *models.Message
	snapshots  chan uint // user ids whose conversation list must be re-pushed

	svc      *services.ConversationService
	profiles *cache.Cache
	profTTL  time.Duration
}

func New(svc *services.ConversationService) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		messages:   make(chan *models.Message, 64),
		snapshots:  make(chan uint, 64),
		svc:        svc,
		profiles:   cache.Default(),
		profTTL:    10 * time.Minute,
	}
}

// SetProfileCacheTTL overrides how long sender profiles are reused in fan-out.
func (h *Hub) SetProfileCacheTTL(ttl time.Duration) { h.profTTL = ttl }

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.closeSend()
			}
		case msg := <-h.messages:
			h.handleMessage(msg)
		case uid := <-h.snapshots:
			h.pushSnapshot(uid)
		}
	}
}

// ServeWs registers an upgraded connection for an authenticated user.
func (h *Hub) ServeWs(conn *websocket.Conn, userID uint) {
	client := &Client{hub: h, conn: conn, send: make(chan []byte, 256), userID: userID}
	h.register <- client
	go client.writePump()
	go client.readPump()
}

// Publish hands a freshly persisted message to the hub for fan-out.
func (h *Hub) Publish(msg *models.Message) {
	h.messages <- msg
}

// RequestSnapshot asks the hub to recompute and push a user's conversation
// list.
func (h *Hub) RequestSnapshot(userID uint) {
	select {
	case h.snapshots <- userID:
	default:
		// queue full; the next event will push a fresh snapshot anyway
	}
}

func (h *Hub) handleMessage(msg *models.Message) {
	recipients, _, err := h.svc.DeliverIncoming(msg)
	if err != nil {
		log.Printf("[hub] arrival policy failed for message %d: %v", msg.ID, err)
		return
	}

	feedMsg := services.FeedMessage{
		ID:             msg.ID,
		ConversationID: msg.ConversationID,
		Content:        msg.Content,
		CreatedAt:      msg.CreatedAt,
		Sender:         h.senderProfile(msg.UserID),
	}
	buf, _ := json.Marshal(outbound{Type: "message", ConversationID: msg.ConversationID, Data: feedMsg})

	recipientSet := make(map[uint]bool, len(recipients))
	for _, uid := range recipients {
		recipientSet[uid] = true
	}

	for client := range h.clients {
		if !recipientSet[client.userID] {
			continue
		}
		h.deliver(client, buf)
		// a message arriving in the open conversation is read immediately
		if client.active() == msg.ConversationID && client.userID != msg.UserID {
			if err := h.svc.MarkRead(client.userID, msg.ConversationID); err != nil {
				log.Printf("[hub] mark read failed (user %d): %v", client.userID, err)
			} else {
				client.enqueue(outbound{Type: "read", ConversationID: msg.ConversationID})
			}
		}
	}

	// every recipient's list ordering or unread badge may have changed,
	// and revived users regain the conversation itself
	for _, uid := range recipients {
		h.pushSnapshot(uid)
	}
}

// pushSnapshot recomputes a user's visible-conversation list and sends it to
// all of that user's connections. The generation guard drops the result of a
// recomputation that was overtaken by a later one; on read failure clients
// simply keep their previous list.
func (h *Hub) pushSnapshot(userID uint) {
	if !h.hasClient(userID) {
		return
	}
	gen := h.svc.NextGeneration(userID)
	list, err := h.svc.VisibleConversations(userID)
	if err != nil {
		log.Printf("[hub] snapshot recomputation failed (user %d): %v", userID, err)
		return
	}
	if !h.svc.IsCurrentGeneration(userID, gen) {
		return
	}
	buf, _ := json.Marshal(outbound{Type: "conversations", Data: list})
	for client := range h.clients {
		if client.userID == userID {
			h.deliver(client, buf)
		}
	}
}

func (h *Hub) hasClient(userID uint) bool {
	for client := range h.clients {
		if client.userID == userID {
			return true
		}
	}
	return false
}

func (h *Hub) deliver(client *Client, buf []byte) {
	if !client.push(buf) {
		client.closeSend()
		delete(h.clients, client)
	}
}

func (h *Hub) senderProfile(userID uint) models.Profile {
	key := cache.KeyFromStrings("profile", strconv.Itoa(int(userID)))
	if v, ok := h.profiles.Get(key); ok {
		if p, ok := v.(models.Profile); ok {
			return p
		}
	}
	var user models.User
	if err := h.svc.DB().First(&user, userID).Error; err != nil {
		log.Printf("[hub] sender lookup failed (user %d): %v", userID, err)
		return models.Profile{ID: userID, Username: "unknown"}
	}
	p := user.Profile()
	h.profiles.Set(key, p, h.profTTL)
	return p
}
