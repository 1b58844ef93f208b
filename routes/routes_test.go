package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"inkdesk-backend/config"
	"inkdesk-backend/realtime"
	"inkdesk-backend/services"
	"inkdesk-backend/testutil"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type server struct {
	t      *testing.T
	router *gin.Engine
}

// newServer wires the router on an in-memory database with no PDF renderer.
func newServer(t *testing.T) *server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()
	db := testutil.NewDB(t)

	cfg := config.Default()
	cfg.JWTSecret = "test-secret"
	cfg.Uploads.Dir = t.TempDir()

	hub := realtime.NewHub(logger)
	users := services.NewUserService(db, logger)
	chat := services.NewChatService(db, users, hub, logger)
	cascade := services.NewCascade(db, chat, services.NopPublisher{}, logger)
	outbox := services.NewOutboxService(db, cascade, 3, logger)
	events := services.NewEventService(db, logger)
	reminders := services.NewReminderService(db, services.NewNotifier(cfg.Twilio), events, logger)
	quotes := services.NewQuoteService(services.QuoteDeps{
		DB:        db,
		Users:     users,
		Chat:      chat,
		Cascade:   cascade,
		Outbox:    outbox,
		Reminders: reminders,
		Push:      hub,
		Logger:    logger,
		Settings:  cfg.Quotes,
	})

	router := SetupRouter(Dependencies{
		Config:    cfg,
		DB:        db,
		Logger:    logger,
		Users:     users,
		Pages:     services.NewPageService(db, users, logger),
		Chat:      chat,
		Quotes:    quotes,
		Clients:   services.NewClientService(db, logger),
		Projects:  services.NewProjectService(db, logger),
		Events:    events,
		Reminders: reminders,
		Store:     services.NewDiskStore(cfg.Uploads.Dir, cfg.Uploads.PublicPath, cfg.Uploads.MaxFileSize),
		Hub:       hub,
	})
	return &server{t: t, router: router}
}

func (s *server) do(method, path, token string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequestWithContext(context.Background(), method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

// register creates an account and returns its token.
func (s *server) register(email, name, role string) string {
	s.t.Helper()
	w := s.do(http.MethodPost, "/api/auth/register", "", gin.H{
		"email": email, "password": "password123", "name": name, "role": role,
	})
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())
	return decode(s.t, w)["token"].(string)
}

func TestHealth(t *testing.T) {
	s := newServer(t)
	w := s.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestRegisterLoginAndMe(t *testing.T) {
	s := newServer(t)
	token := s.register("carl@example.com", "Carl", "client")

	w := s.do(http.MethodPost, "/api/auth/register", "", gin.H{"email": "carl@example.com", "password": "password123", "name": "Carl"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(http.MethodPost, "/api/auth/register", "", gin.H{"email": "short@example.com", "password": "short", "name": "Short"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": "carl@example.com", "password": "password123"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, decode(t, w)["token"])
	assert.NotEmpty(t, w.Result().Cookies())

	w = s.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": "carl@example.com", "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	user := decode(t, w)["user"].(map[string]any)
	assert.Equal(t, "carl@example.com", user["email"])
	assert.NotContains(t, user, "password")

	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/api/auth/me", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/api/auth/me", "garbage", nil).Code)
}

func TestRoleGuards(t *testing.T) {
	s := newServer(t)
	artist := s.register("ana@example.com", "Ana Ink", "tattoo_artist")
	client := s.register("carl@example.com", "Carl", "client")

	assert.Equal(t, http.StatusForbidden, s.do(http.MethodPost, "/api/quotes", client, gin.H{"title": "x", "amount": 10}).Code)
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodGet, "/api/clients", client, nil).Code)
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodGet, "/api/dashboard", client, nil).Code)
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodGet, "/api/pages/me", client, nil).Code)
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodPost, "/api/chat/conversations", artist, gin.H{"artist": "ana-ink"}).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/api/quotes/not-a-uuid", artist, nil).Code)
}

func TestQuoteLifecycleOverHTTP(t *testing.T) {
	s := newServer(t)
	artist := s.register("ana@example.com", "Ana Ink", "tattoo_artist")
	client := s.register("carl@example.com", "Carl", "client")

	w := s.do(http.MethodPost, "/api/chat/conversations", client, gin.H{"artist": "ana-ink", "bodyZone": "forearm", "description": "A swallow"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	conv := decode(t, w)["conversation"].(map[string]any)

	w = s.do(http.MethodPost, "/api/quotes", artist, gin.H{
		"kind":           "itemized",
		"clientEmail":    "carl@example.com",
		"conversationId": conv["id"],
		"title":          "Swallow",
		"items":          []gin.H{{"description": "Design", "quantity": 1, "unitPrice": 150}, {"description": "Session", "quantity": 2, "unitPrice": 50}},
		"taxRate":        10,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	quote := decode(t, w)
	id := quote["id"].(string)
	assert.Equal(t, 275.0, quote["totalAmount"])
	assert.Equal(t, "draft", quote["status"])

	w = s.do(http.MethodPost, "/api/quotes/"+id+"/accept", client, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code, "drafts cannot be accepted")

	w = s.do(http.MethodPost, "/api/quotes/"+id+"/send", artist, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(http.MethodGet, "/api/quotes?status=sent", client, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["quotes"], 1)

	w = s.do(http.MethodPut, "/api/quotes/"+id, artist, gin.H{"title": "Swallow", "amount": 300})
	assert.Equal(t, http.StatusBadRequest, w.Code, "sent quotes are frozen")

	w = s.do(http.MethodPost, "/api/quotes/"+id+"/accept", client, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "accepted", body["quote"].(map[string]any)["status"])
	project := body["project"].(map[string]any)
	assert.Equal(t, "pending", project["status"])
	assert.Equal(t, "to be defined", project["style"])

	w = s.do(http.MethodPost, "/api/quotes/"+id+"/accept", client, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodGet, "/api/projects", client, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["projects"], 1)

	w = s.do(http.MethodGet, "/api/clients", artist, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["clients"], 1)

	w = s.do(http.MethodGet, "/api/chat/conversations/"+conv["id"].(string)+"/messages", client, nil)
	require.Equal(t, http.StatusOK, w.Code)
	msgs := decode(t, w)["messages"].([]any)
	types := make([]string, len(msgs))
	for i, m := range msgs {
		types[i] = m.(map[string]any)["type"].(string)
	}
	assert.Equal(t, []string{"project", "quote", "project"}, types)

	w = s.do(http.MethodGet, "/api/quotes/"+id+"/view-pdf", client, nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = s.do(http.MethodGet, "/api/dashboard", artist, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	dash := decode(t, w)
	assert.Equal(t, 1.0, dash["activeProjects"])
	assert.Equal(t, 0.0, dash["pendingQuotes"])

	w = s.do(http.MethodGet, "/api/reports", artist, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestRejectQuoteOverHTTP(t *testing.T) {
	s := newServer(t)
	artist := s.register("ana@example.com", "Ana Ink", "tattoo_artist")
	client := s.register("carl@example.com", "Carl", "client")

	w := s.do(http.MethodPost, "/api/quotes", artist, gin.H{"clientEmail": "carl@example.com", "title": "Flash", "amount": 90})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id := decode(t, w)["id"].(string)
	require.Equal(t, http.StatusOK, s.do(http.MethodPost, "/api/quotes/"+id+"/send", artist, nil).Code)

	w = s.do(http.MethodPost, "/api/quotes/"+id+"/reject", client, gin.H{"reason": "too expensive"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	quote := decode(t, w)["quote"].(map[string]any)
	assert.Equal(t, "declined", quote["status"])
	assert.Equal(t, "too expensive", quote["declineReason"])

	w = s.do(http.MethodGet, "/api/projects", artist, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode(t, w)["projects"])
}

func TestPublicPageVisibility(t *testing.T) {
	s := newServer(t)
	artist := s.register("ana@example.com", "Ana Ink", "tattoo_artist")

	w := s.do(http.MethodPut, "/api/pages/me", artist, gin.H{"headline": "Fine line"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(http.MethodGet, "/api/pages/ana-ink", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, decode(t, w)["page"])

	w = s.do(http.MethodGet, "/api/pages/ana-ink", artist, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotNil(t, decode(t, w)["page"])

	w = s.do(http.MethodPut, "/api/pages/me", artist, gin.H{"published": true})
	require.Equal(t, http.StatusOK, w.Code)
	w = s.do(http.MethodGet, "/api/artists", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["artists"], 1)

	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/api/pages/nobody", "", nil).Code)
}

func TestEventsOverHTTP(t *testing.T) {
	s := newServer(t)
	artist := s.register("ana@example.com", "Ana Ink", "tattoo_artist")

	w := s.do(http.MethodPost, "/api/events", artist, gin.H{"title": "Convention", "startsAt": "2025-10-02T10:00:00Z"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(http.MethodGet, "/api/events?from=2025-10-01&to=2025-11-01", artist, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Len(t, decode(t, w)["events"], 1)

	w = s.do(http.MethodGet, "/api/events?from=2025-11-01&to=2025-10-01", artist, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
