package main

import (
	"ChatCore/middleware"
	"ChatCore/models"
	"ChatCore/pkg/cache"
	"ChatCore/pkg/config"
	"ChatCore/pkg/hub"
	"ChatCore/pkg/services"
	"ChatCore/routes"
	"log"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func openDB() (*gorm.DB, error) {
	if config.DatabaseURL != "" {
		return gorm.Open(postgres.Open(config.DatabaseURL), &gorm.Config{})
	}
	return gorm.Open(sqlite.Open(config.SQLitePath), &gorm.Config{})
}

func main() {
	// config loaded in init of pkg/config

	db, err := openDB()
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}

	if err := db.AutoMigrate(&models.User{}, &models.Conversation{}, &models.Membership{}, &models.Message{}); err != nil {
		log.Fatalf("failed migrate: %v", err)
	}

	// apply runtime tunables
	middleware.SetRateLimitConfig(
		time.Duration(config.RateLimitWindowSeconds)*time.Second,
		config.RateLimitCapacity,
		config.UserConcurrencyLimit,
	)
	middleware.SetDuplicateTTL(time.Duration(config.DuplicateWindowSeconds) * time.Second)
	cache.Default().SetMaxItems(config.ProfileCacheMaxItems)

	svc := services.NewConversationService(db)
	h := hub.New(svc)
	h.SetProfileCacheTTL(time.Duration(config.ProfileCacheTTLSeconds) * time.Second)
	go h.Run()

	r := gin.Default()

	// CORS configuration
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000", "http://127.0.0.1:3000", "http://localhost:5173", "http://127.0.0.1:5173"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	routes.RegisterRoutes(r, db, svc, h)
	r.Run(":" + config.Port)
}
