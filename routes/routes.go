package routes

import (
	"ChatCore/middleware"
	"ChatCore/pkg/hub"
	"ChatCore/pkg/services"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	authRoutes "ChatCore/routes/auth"
	convRoutes "ChatCore/routes/conversation"
	profileRoutes "ChatCore/routes/profile"
	websocketRoutes "ChatCore/routes/websocket"
)

func RegisterRoutes(r *gin.Engine, db *gorm.DB, svc *services.ConversationService, h *hub.Hub) {
	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"msg": "messaging backend running"})
	})

	websocketRoutes.Register(r, h)
	authRoutes.RegisterPublic(r, db)

	protected := r.Group("/")
	protected.Use(middleware.AuthMiddleware())
	authRoutes.RegisterProtected(protected, db)
	profileRoutes.Register(protected, db)
	convRoutes.Register(protected, svc, h)
}
