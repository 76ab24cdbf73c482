package hub

import (
	"ChatCore/middleware"
	"encoding/json"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMsgSize = 1 << 20 // 1MB
)

// Client is one authenticated WebSocket connection. It tracks at most one
// open conversation; selecting a new one replaces the previous selection.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	userID uint

	mu         sync.Mutex
	activeConv uint
	closed     bool
}

// inbound is the client-to-server frame format.
type inbound struct {
	Type           string `json:"type"`
	ConversationID uint   `json:"conversation_id,omitempty"`
	Content        string `json:"content,omitempty"`
}

// outbound is the server-to-client frame format.
type outbound struct {
	Type           string `json:"type"`
	ConversationID uint   `json:"conversation_id,omitempty"`
	Data           any    `json:"data,omitempty"`
	Error          string `json:"error,omitempty"`
}

func (c *Client) active() uint {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeConv
}

func (c *Client) setActive(convID uint) {
	c.mu.Lock()
	c.activeConv = convID
	c.mu.Unlock()
}

// push queues buf without blocking. It reports false when the client is
// closed or its buffer is full. The mutex excludes a concurrent closeSend, so
// no write can hit a closed channel.
func (c *Client) push(buf []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- buf:
		return true
	default:
		return false
	}
}

// closeSend closes the send channel exactly once, after which push refuses
// all further writes.
func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *Client) enqueue(frame outbound) {
	buf, err := json.Marshal(frame)
	if err != nil {
		return
	}
	if !c.push(buf) {
		// slow or gone consumer; dropping the frame is safe, every view
		// is re-derived from the store on the next read
		log.Printf("[ws] dropped frame for user %d", c.userID)
	}
}

func (c *Client) sendError(msg string) {
	c.enqueue(outbound{Type: "error", Error: msg})
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMsgSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var req inbound
		if err := c.conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[ws] read error (user %d): %v", c.userID, err)
			}
			return
		}
		c.handle(req)
	}
}

func (c *Client) handle(req inbound) {
	switch strings.ToLower(strings.TrimSpace(req.Type)) {
	case "open":
		if req.ConversationID == 0 {
			c.sendError("conversation_id is required")
			return
		}
		// replaces any previously selected conversation
		c.setActive(req.ConversationID)
		if err := c.hub.svc.MarkRead(c.userID, req.ConversationID); err != nil {
			c.sendError("failed to open conversation")
			return
		}
		c.enqueue(outbound{Type: "read", ConversationID: req.ConversationID})
		c.hub.RequestSnapshot(c.userID)

	case "close":
		c.setActive(0)

	case "send":
		if req.ConversationID == 0 || strings.TrimSpace(req.Content) == "" {
			c.sendError("conversation_id and content are required")
			return
		}
		if !middleware.DuplicateGuard(c.userID, req.Content) {
			c.sendError("duplicate message ignored")
			return
		}
		release := middleware.AcquireUserSlot(c.userID)
		msg, err := c.hub.svc.SendMessage(c.userID, req.ConversationID, req.Content)
		release()
		if err != nil {
			c.sendError(err.Error())
			return
		}
		c.hub.Publish(msg)

	default:
		c.sendError("unknown frame type: " + req.Type)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case buf, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, buf); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
