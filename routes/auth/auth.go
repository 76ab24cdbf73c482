package auth

import (
	"ChatCore/controllers"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// RegisterPublic registers public auth routes: /register, /login, reset flow
func RegisterPublic(r *gin.Engine, db *gorm.DB) {
	r.POST("/register", controllers.Register(db))
	r.POST("/login", controllers.Login(db))
	r.POST("/password/forgot", controllers.ForgotPassword(db))
	r.POST("/password/reset", controllers.ResetPassword(db))
}

// RegisterProtected registers protected auth routes (logout, session, password change)
func RegisterProtected(g *gin.RouterGroup, db *gorm.DB) {
	g.POST("/logout", controllers.Logout())
	g.GET("/session", controllers.Session(db))
	g.PUT("/password", controllers.UpdatePassword(db))
}
