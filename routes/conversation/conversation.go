package conversation

import (
	"ChatCore/controllers"
	"ChatCore/middleware"
	"ChatCore/pkg/hub"
	"ChatCore/pkg/services"

	"github.com/gin-gonic/gin"
)

// Register registers conversation routes (protected)
func Register(g *gin.RouterGroup, svc *services.ConversationService, h *hub.Hub) {
	g.GET("/conversations", controllers.ListConversations(svc))
	g.POST("/conversations", controllers.CreateConversation(svc, h))
	g.GET("/conversations/:conversation_id", controllers.GetConversation(svc))
	g.DELETE("/conversations/:conversation_id", controllers.DeleteConversation(svc))
	g.PUT("/conversations/:conversation_id/title", controllers.RenameConversation(svc, h))
	g.POST("/conversations/:conversation_id/members", controllers.AddMembers(svc, h))
	g.POST("/conversations/:conversation_id/read", controllers.MarkRead(svc))
	g.GET("/conversations/:conversation_id/messages", controllers.GetMessages(svc))
	// rate limiting only on the write-heavy send endpoint
	g.POST("/conversations/:conversation_id/messages", middleware.RateLimit(), controllers.SendMessage(svc, h))
}
