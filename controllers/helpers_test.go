package controllers_test

import (
	"ChatCore/models"
	"ChatCore/pkg/hub"
	"ChatCore/pkg/services"
	"ChatCore/routes"
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type testApp struct {
	router *gin.Engine
	svc    *services.ConversationService
	db     *gorm.DB
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Conversation{}, &models.Membership{}, &models.Message{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	svc := services.NewConversationService(db)
	h := hub.New(svc)
	go h.Run()

	r := gin.New()
	routes.RegisterRoutes(r, db, svc, h)
	return &testApp{router: r, svc: svc, db: db}
}

func (a *testApp) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	a.router.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), out); err != nil {
		t.Fatalf("failed to decode response %q: %v", rr.Body.String(), err)
	}
}

// signUp registers and logs in a user, returning the session token and id.
func (a *testApp) signUp(t *testing.T, name string) (string, uint) {
	t.Helper()
	rr := a.do(t, http.MethodPost, "/register", "", gin.H{
		"email":            name + "@example.com",
		"username":         name,
		"password":         "secret1",
		"confirm_password": "secret1",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("register failed: %d %s", rr.Code, rr.Body.String())
	}
	rr = a.do(t, http.MethodPost, "/login", "", gin.H{
		"email":    name + "@example.com",
		"password": "secret1",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("login failed: %d %s", rr.Code, rr.Body.String())
	}
	var resp struct {
		AccessToken string `json:"access_token"`
		UserID      uint   `json:"user_id"`
	}
	decode(t, rr, &resp)
	if resp.AccessToken == "" || resp.UserID == 0 {
		t.Fatalf("missing token or user id in login response: %s", rr.Body.String())
	}
	return resp.AccessToken, resp.UserID
}
