package config

import (
	"log"
	"os"
	"slices"
	"strconv"

	"github.com/joho/godotenv"
)

var (
	AppEnv       string
	IsStaging    bool
	IsProduction bool

	JWTSecret string
	Port      string

	// DatabaseURL selects the Postgres backend when set; empty falls back to
	// a local sqlite file.
	DatabaseURL string
	SQLitePath  string

	// runtime tunables
	RateLimitWindowSeconds  int
	RateLimitCapacity       int
	UserConcurrencyLimit    int
	DuplicateWindowSeconds  int
	ProfileCacheTTLSeconds  int
	ProfileCacheMaxItems    int
	ResetTokenTTLSeconds    int
)

// loadAppEnv loads .env only outside production; production reads the host
// environment exclusively.
func loadAppEnv() {
	AppEnv = os.Getenv("APP_ENV")
	if AppEnv == "production" {
		return
	}
	if err := godotenv.Load(); err != nil {
		log.Printf("[config] no .env file loaded: %v", err)
	}
}

func init() {
	loadAppEnv()

	AppEnv = os.Getenv("APP_ENV")
	if AppEnv == "" {
		AppEnv = "staging"
	}
	if !slices.Contains([]string{"staging", "production"}, AppEnv) {
		log.Fatal("environment variable APP_ENV must be 'staging' or 'production'")
	}
	IsStaging = AppEnv == "staging"
	IsProduction = AppEnv == "production"

	JWTSecret = os.Getenv("JWT_SECRET_KEY")
	Port = os.Getenv("PORT")
	if Port == "" {
		Port = "5000"
	}

	DatabaseURL = os.Getenv("DATABASE_URL")
	SQLitePath = os.Getenv("SQLITE_PATH")
	if SQLitePath == "" {
		SQLitePath = "app.db"
	}

	RateLimitWindowSeconds = atoiOr(os.Getenv("RATE_LIMIT_WINDOW_SECONDS"), 10)
	RateLimitCapacity = atoiOr(os.Getenv("RATE_LIMIT_CAPACITY"), 10)
	UserConcurrencyLimit = atoiOr(os.Getenv("USER_CONCURRENCY_LIMIT"), 2)
	DuplicateWindowSeconds = atoiOr(os.Getenv("DUPLICATE_WINDOW_SECONDS"), 2)
	ProfileCacheTTLSeconds = atoiOr(os.Getenv("PROFILE_CACHE_TTL_SECONDS"), 600)
	ProfileCacheMaxItems = atoiOr(os.Getenv("PROFILE_CACHE_MAX_ITEMS"), 500)
	ResetTokenTTLSeconds = atoiOr(os.Getenv("RESET_TOKEN_TTL_SECONDS"), 900)

	if IsProduction && JWTSecret == "" {
		log.Fatal("JWT_SECRET_KEY must be set in production")
	}

	log.Printf("[config] AppEnv=%s IsStaging=%v IsProduction=%v", AppEnv, IsStaging, IsProduction)
	log.Printf("[config] DatabaseURLPresent=%v SQLitePath=%s", DatabaseURL != "", SQLitePath)
	log.Printf("[config] RateLimit window=%ds capacity=%d userConc=%d dupWindow=%ds profileCacheTTL=%ds profileCacheMax=%d",
		RateLimitWindowSeconds, RateLimitCapacity, UserConcurrencyLimit, DuplicateWindowSeconds, ProfileCacheTTLSeconds, ProfileCacheMaxItems)
}

func atoiOr(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return def
}
