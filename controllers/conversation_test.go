package controllers_test

import (
	"ChatCore/pkg/services"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

type convResp struct {
	ConversationID uint    `json:"conversation_id"`
	Type           string  `json:"type"`
	Title          *string `json:"title"`
	Created        bool    `json:"created"`
}

func createConv(t *testing.T, app *testApp, token string, body gin.H, want int) convResp {
	t.Helper()
	rr := app.do(t, http.MethodPost, "/conversations", token, body)
	if rr.Code != want {
		t.Fatalf("create conversation: got %d want %d (%s)", rr.Code, want, rr.Body.String())
	}
	var resp convResp
	decode(t, rr, &resp)
	return resp
}

func listConvs(t *testing.T, app *testApp, token string) []services.ConversationSummary {
	t.Helper()
	rr := app.do(t, http.MethodGet, "/conversations", token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("list conversations: got %d (%s)", rr.Code, rr.Body.String())
	}
	var list []services.ConversationSummary
	decode(t, rr, &list)
	return list
}

func sendMsg(t *testing.T, app *testApp, token string, convID uint, content string) {
	t.Helper()
	rr := app.do(t, http.MethodPost, convPath(convID, "/messages"), token, gin.H{"content": content})
	if rr.Code != http.StatusCreated {
		t.Fatalf("send message: got %d (%s)", rr.Code, rr.Body.String())
	}
}

func convPath(id uint, suffix string) string {
	return "/conversations/" + strconv.Itoa(int(id)) + suffix
}

func TestCreateDirectConversationDedup(t *testing.T) {
	app := newTestApp(t)
	aliceTok, _ := app.signUp(t, "alice")
	_, bobID := app.signUp(t, "bob")

	first := createConv(t, app, aliceTok, gin.H{"participant_ids": []uint{bobID}}, http.StatusCreated)
	if !first.Created || first.Type != "direct" {
		t.Fatalf("unexpected first create response: %+v", first)
	}

	second := createConv(t, app, aliceTok, gin.H{"participant_ids": []uint{bobID}}, http.StatusOK)
	if second.Created {
		t.Fatal("duplicate direct chat should not be created")
	}
	if second.ConversationID != first.ConversationID {
		t.Fatalf("expected existing conversation %d, got %d", first.ConversationID, second.ConversationID)
	}
}

func TestHideDirectAndRevival(t *testing.T) {
	app := newTestApp(t)
	aliceTok, _ := app.signUp(t, "alice")
	bobTok, bobID := app.signUp(t, "bob")

	conv := createConv(t, app, aliceTok, gin.H{"participant_ids": []uint{bobID}}, http.StatusCreated)
	sendMsg(t, app, bobTok, conv.ConversationID, "before the hide")

	rr := app.do(t, http.MethodDelete, convPath(conv.ConversationID, ""), aliceTok, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("delete conversation: got %d (%s)", rr.Code, rr.Body.String())
	}
	if list := listConvs(t, app, aliceTok); len(list) != 0 {
		t.Fatalf("hidden conversation still listed: %+v", list)
	}

	// a new incoming message brings the chat back
	sendMsg(t, app, bobTok, conv.ConversationID, "after the hide")
	time.Sleep(200 * time.Millisecond)

	list := listConvs(t, app, aliceTok)
	if len(list) != 1 || list[0].ID != conv.ConversationID {
		t.Fatalf("expected revived conversation, got %+v", list)
	}
	if !list[0].Unread {
		t.Fatal("revived conversation should be unread")
	}

	// the clear horizon survives revival
	rr = app.do(t, http.MethodGet, convPath(conv.ConversationID, "/messages"), aliceTok, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("feed: got %d (%s)", rr.Code, rr.Body.String())
	}
	var feed []services.FeedMessage
	decode(t, rr, &feed)
	if len(feed) != 1 || feed[0].Content != "after the hide" {
		t.Fatalf("expected only post-hide messages, got %+v", feed)
	}
}

func TestGroupLeaveIsPermanent(t *testing.T) {
	app := newTestApp(t)
	aliceTok, _ := app.signUp(t, "alice")
	bobTok, bobID := app.signUp(t, "bob")
	_, caraID := app.signUp(t, "cara")

	conv := createConv(t, app, aliceTok,
		gin.H{"participant_ids": []uint{bobID, caraID}, "type": "group", "title": "team"},
		http.StatusCreated)

	rr := app.do(t, http.MethodDelete, convPath(conv.ConversationID, ""), bobTok, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("leave group: got %d (%s)", rr.Code, rr.Body.String())
	}

	sendMsg(t, app, aliceTok, conv.ConversationID, "meeting moved to noon")
	time.Sleep(200 * time.Millisecond)

	if list := listConvs(t, app, bobTok); len(list) != 0 {
		t.Fatalf("departed member should not see the group, got %+v", list)
	}
	rr = app.do(t, http.MethodGet, convPath(conv.ConversationID, "/messages"), bobTok, nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("departed member feed: got %d want 404", rr.Code)
	}
	rr = app.do(t, http.MethodPost, convPath(conv.ConversationID, "/messages"), bobTok, gin.H{"content": "can I come back"})
	if rr.Code != http.StatusNotFound {
		t.Fatalf("departed member send: got %d want 404", rr.Code)
	}
}

func TestRenameGroupFallsBackToDefault(t *testing.T) {
	app := newTestApp(t)
	aliceTok, _ := app.signUp(t, "alice")
	_, bobID := app.signUp(t, "bob")
	_, caraID := app.signUp(t, "cara")

	conv := createConv(t, app, aliceTok,
		gin.H{"participant_ids": []uint{bobID, caraID}, "type": "group", "title": "team"},
		http.StatusCreated)

	rr := app.do(t, http.MethodPut, convPath(conv.ConversationID, "/title"), aliceTok, gin.H{"title": "   "})
	if rr.Code != http.StatusOK {
		t.Fatalf("rename: got %d (%s)", rr.Code, rr.Body.String())
	}
	var resp struct {
		Title string `json:"title"`
	}
	decode(t, rr, &resp)
	if resp.Title != "unnamed group" {
		t.Fatalf("expected default title, got %q", resp.Title)
	}

	// direct chats have no title to rename
	direct := createConv(t, app, aliceTok, gin.H{"participant_ids": []uint{bobID}}, http.StatusCreated)
	rr = app.do(t, http.MethodPut, convPath(direct.ConversationID, "/title"), aliceTok, gin.H{"title": "nope"})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("rename direct: got %d want 400", rr.Code)
	}
}

func TestMarkReadClearsUnread(t *testing.T) {
	app := newTestApp(t)
	aliceTok, _ := app.signUp(t, "alice")
	bobTok, bobID := app.signUp(t, "bob")

	conv := createConv(t, app, aliceTok, gin.H{"participant_ids": []uint{bobID}}, http.StatusCreated)
	sendMsg(t, app, bobTok, conv.ConversationID, "ping from bob")

	list := listConvs(t, app, aliceTok)
	if len(list) != 1 || !list[0].Unread {
		t.Fatalf("expected one unread conversation, got %+v", list)
	}

	rr := app.do(t, http.MethodPost, convPath(conv.ConversationID, "/read"), aliceTok, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("mark read: got %d (%s)", rr.Code, rr.Body.String())
	}
	list = listConvs(t, app, aliceTok)
	if len(list) != 1 || list[0].Unread {
		t.Fatalf("expected read conversation, got %+v", list)
	}
}

func TestDuplicateMessageRejected(t *testing.T) {
	app := newTestApp(t)
	aliceTok, _ := app.signUp(t, "alice")
	_, bobID := app.signUp(t, "bob")

	conv := createConv(t, app, aliceTok, gin.H{"participant_ids": []uint{bobID}}, http.StatusCreated)
	sendMsg(t, app, aliceTok, conv.ConversationID, "only once please")

	rr := app.do(t, http.MethodPost, convPath(conv.ConversationID, "/messages"), aliceTok, gin.H{"content": "only once please"})
	if rr.Code != http.StatusConflict {
		t.Fatalf("duplicate send: got %d want 409", rr.Code)
	}
}

func TestConversationRoutesRequireAuth(t *testing.T) {
	app := newTestApp(t)
	rr := app.do(t, http.MethodGet, "/conversations", "", nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated list: got %d want 401", rr.Code)
	}
	rr = app.do(t, http.MethodGet, "/conversations", "not-a-token", nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("garbage token: got %d want 401", rr.Code)
	}
}
