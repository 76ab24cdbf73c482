package controllers

import (
	"ChatCore/middleware"
	"ChatCore/pkg/hub"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// CORS handled at HTTP level; allow WS here
		return true
	},
}

// ChatWS upgrades an authenticated connection and registers it with the hub.
// Browsers cannot set headers on WebSocket requests, so the session token is
// passed as ?token=JWT.
//
// Client protocol (JSON frames):
//
//	-> {type: "open", conversation_id: number}   select the open conversation
//	-> {type: "close"}                           deselect
//	-> {type: "send", conversation_id, content}  persist + fan out a message
//	<- {type: "message", conversation_id, data}  new message for a visible chat
//	<- {type: "conversations", data}             refreshed conversation list
//	<- {type: "read", conversation_id}           read marker advanced
//	<- {type: "error", error}
func ChatWS(h *hub.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := strings.TrimSpace(c.Query("token"))
		if tokenStr == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"msg": "missing token query"})
			return
		}
		uid, _, err := middleware.ParseSessionToken(tokenStr)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"msg": err.Error()})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("[ws] upgrade error: %v", err)
			return
		}
		h.ServeWs(conn, uid)
	}
}
