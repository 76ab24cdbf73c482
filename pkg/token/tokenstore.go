package tokenstore

import (
	"sync"
	"time"
)

// in-memory token state. For a multi-instance deployment move this to Redis or DB.
var (
	mu            sync.RWMutex
	revokedTokens = map[string]struct{}{}

	resetMu     sync.Mutex
	resetTokens = map[string]resetEntry{}
)

type resetEntry struct {
	userID uint
	exp    time.Time
}

// RevokeToken marks a JWT jti as revoked (logout).
func RevokeToken(jti string) {
	if jti == "" {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	revokedTokens[jti] = struct{}{}
}

func IsRevoked(jti string) bool {
	if jti == "" {
		return false
	}
	mu.RLock()
	defer mu.RUnlock()
	_, ok := revokedTokens[jti]
	return ok
}

// IssueResetToken stores a one-time password-reset token for userID.
func IssueResetToken(token string, userID uint, ttl time.Duration) {
	if token == "" {
		return
	}
	resetMu.Lock()
	defer resetMu.Unlock()
	resetTokens[token] = resetEntry{userID: userID, exp: time.Now().Add(ttl)}
}

// ConsumeResetToken returns the user the token was issued for and invalidates
// it. Expired or unknown tokens return ok=false.
func ConsumeResetToken(token string) (uint, bool) {
	resetMu.Lock()
	defer resetMu.Unlock()
	e, ok := resetTokens[token]
	if !ok {
		return 0, false
	}
	delete(resetTokens, token)
	if time.Now().After(e.exp) {
		return 0, false
	}
	return e.userID, true
}
