package router_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gorillaws "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pairchat/internal/adapter/api"
	"pairchat/internal/adapter/api/handler"
	"pairchat/internal/adapter/api/middleware"
	"pairchat/internal/adapter/api/router"
	"pairchat/internal/adapter/repository"
	"pairchat/internal/infrastructure/events"
	"pairchat/internal/infrastructure/presence"
	"pairchat/internal/infrastructure/ratelimit"
	"pairchat/internal/infrastructure/token"
	"pairchat/internal/infrastructure/websocket"
	"pairchat/internal/usecase"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type testServer struct {
	e *echo.Echo
}

func newTestServer(t *testing.T, limits map[string]ratelimit.Policy) *testServer {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	db := repository.NewMemoryDatabase()
	users := repository.NewMemoryUserRepository(db)
	conversations := repository.NewMemoryConversationRepository(db)
	messages := repository.NewMemoryMessageRepository(db)
	registry := presence.NewMemoryRegistry()

	wsManager := websocket.NewManager(registry, conversations)
	wsManager.Start(ctx)
	notifier := events.NewFanout().Add("websocket", wsManager)

	tokens := token.NewJWTManager("router-test", time.Hour)
	handler.Setup(
		usecase.NewAuthUseCase(users, tokens),
		usecase.NewUserUseCase(users, registry),
		usecase.NewMessageUseCase(conversations, messages, users, registry, notifier),
		usecase.NewConversationUseCase(conversations, messages, users, registry),
	)

	if limits == nil {
		limits = map[string]ratelimit.Policy{}
	}
	limiter := ratelimit.NewRateLimiter(limits, ratelimit.Policy{PerSecond: 1000, Burst: 1000})

	e := echo.New()
	e.Validator = api.NewValidator()
	e.HTTPErrorHandler = api.ErrorHandler

	authMiddleware := middleware.NewAuthMiddleware(tokens)
	router.Setup(e, authMiddleware, limiter,
		handler.NewWebSocketHandler(wsManager, authMiddleware),
		handler.NewHealthHandler(nil))

	return &testServer{e: e}
}

func (s *testServer) do(t *testing.T, method, path, bearer string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if bearer != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		_ = json.Unmarshal(rec.Body.Bytes(), &env)
	}
	return rec, env
}

type session struct {
	Token string `json:"token"`
	User  struct {
		ID       int64  `json:"id"`
		Username string `json:"username"`
	} `json:"user"`
}

func (s *testServer) register(t *testing.T, username string) session {
	t.Helper()
	rec, env := s.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "secret1",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var out session
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

func TestHealthCheck(t *testing.T) {
	s := newTestServer(t, nil)

	rec, _ := s.do(t, http.MethodGet, "/health", "", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, nil)

	rec, _ := s.do(t, http.MethodGet, "/metrics", "", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t, nil)
	thomas := s.register(t, "thomas")
	assert.NotEmpty(t, thomas.Token)

	rec, env := s.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"username": "thomas", "email": "again@example.com", "password": "secret1",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "CONFLICT", env.Error.Code)

	rec, env = s.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"username": "short", "email": "short@example.com", "password": "12345",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)

	rec, _ = s.do(t, http.MethodPost, "/auth/login", "", map[string]string{"username": "thomas", "password": "secret1"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, env = s.do(t, http.MethodPost, "/auth/login", "", map[string]string{"username": "thomas", "password": "wrong1"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "UNAUTHORIZED", env.Error.Code)

	rec, env = s.do(t, http.MethodGet, "/auth/user", thomas.Token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(env.Data), `"username":"thomas"`)

	rec, env = s.do(t, http.MethodGet, "/auth/user", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{}`, string(env.Data))

	rec, _ = s.do(t, http.MethodDelete, "/auth/logout", thomas.Token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRegisterRejectsUnsafeUsernames(t *testing.T) {
	s := newTestServer(t, nil)

	for _, name := range []string{"team/thomas", "thomas lee", strings.Repeat("a", 65)} {
		rec, env := s.do(t, http.MethodPost, "/auth/register", "", map[string]string{
			"username": name, "email": "thomas@example.com", "password": "secret1",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code, name)
		require.NotNil(t, env.Error, name)
		assert.Equal(t, "VALIDATION_ERROR", env.Error.Code, name)
	}

	rec, _ := s.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"username": "thomas.lee_2-x", "email": "team/thomas@example.com", "password": "secret1",
	})
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestAPIRequiresToken(t *testing.T) {
	s := newTestServer(t, nil)

	rec, env := s.do(t, http.MethodGet, "/api/conversations", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "UNAUTHORIZED", env.Error.Code)

	rec, _ = s.do(t, http.MethodGet, "/api/conversations", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAccessTokenHeader(t *testing.T) {
	s := newTestServer(t, nil)
	thomas := s.register(t, "thomas")

	req := httptest.NewRequest(http.MethodGet, "/api/conversations", nil)
	req.Header.Set("x-access-token", thomas.Token)
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMessagingFlow(t *testing.T) {
	s := newTestServer(t, nil)
	thomas := s.register(t, "thomas")
	santiago := s.register(t, "santiago")
	chiumbo := s.register(t, "chiumbo")

	rec, env := s.do(t, http.MethodPost, "/api/messages", thomas.Token, map[string]interface{}{
		"recipient_id": santiago.User.ID,
		"text":         "hola",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var sent usecase.SendResult
	require.NoError(t, json.Unmarshal(env.Data, &sent))
	assert.True(t, sent.UnseenSynced)

	rec, env = s.do(t, http.MethodGet, "/api/conversations", santiago.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var views []map[string]interface{}
	require.NoError(t, json.Unmarshal(env.Data, &views))
	require.Len(t, views, 1)
	assert.Equal(t, float64(1), views[0]["unseen_count"])
	assert.Equal(t, "hola", views[0]["latest_message_text"])

	viewed := fmt.Sprintf("/api/conversations/viewed/%d/%d", sent.ConversationID, thomas.User.ID)

	rec, env = s.do(t, http.MethodPatch, viewed, thomas.Token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "FORBIDDEN", env.Error.Code)

	rec, _ = s.do(t, http.MethodPatch, viewed, chiumbo.Token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, env = s.do(t, http.MethodPatch, viewed, santiago.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(env.Data), `"unseen_count":0`)

	seen := fmt.Sprintf("/api/conversations/markSeen/%d/%d/%d", sent.ConversationID, thomas.User.ID, sent.Message.ID)
	rec, env = s.do(t, http.MethodPatch, seen, santiago.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(env.Data), fmt.Sprintf(`"last_read_message_id":%d`, sent.Message.ID))

	rec, _ = s.do(t, http.MethodPatch, "/api/conversations/markSeen/abc/1/1", santiago.Token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, env = s.do(t, http.MethodPost, "/api/messages", thomas.Token, map[string]interface{}{
		"recipient_id": thomas.User.ID,
		"text":         "me",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_ARGUMENT", env.Error.Code)
}

func TestUserSearch(t *testing.T) {
	s := newTestServer(t, nil)
	thomas := s.register(t, "thomas")
	s.register(t, "santiago")
	s.register(t, "hualing")

	rec, env := s.do(t, http.MethodGet, "/api/users/a", thomas.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var found []struct {
		Username string `json:"username"`
		Online   bool   `json:"online"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &found))
	require.Len(t, found, 2)
	assert.Equal(t, "hualing", found[0].Username)
	assert.Equal(t, "santiago", found[1].Username)
}

func TestSendMessageRateLimited(t *testing.T) {
	s := newTestServer(t, map[string]ratelimit.Policy{
		ratelimit.ActionSendMessage: {PerSecond: 0.001, Burst: 2},
	})
	thomas := s.register(t, "thomas")
	santiago := s.register(t, "santiago")

	body := map[string]interface{}{"recipient_id": santiago.User.ID, "text": "spam"}
	for i := 0; i < 2; i++ {
		rec, _ := s.do(t, http.MethodPost, "/api/messages", thomas.Token, body)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec, env := s.do(t, http.MethodPost, "/api/messages", thomas.Token, body)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "TOO_MANY_REQUESTS", env.Error.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	rec, _ = s.do(t, http.MethodPost, "/api/messages", santiago.Token, map[string]interface{}{
		"recipient_id": thomas.User.ID, "text": "not me",
	})
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func dialWS(t *testing.T, server *httptest.Server, tok string) *gorillaws.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws?token=" + tok
	conn, _, err := gorillaws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readUntil(t *testing.T, conn *gorillaws.Conn, messageType string) websocket.WSMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		var msg websocket.WSMessage
		require.NoError(t, conn.ReadJSON(&msg))
		if msg.Type == messageType {
			return msg
		}
	}
}

func TestWebSocketDelivery(t *testing.T) {
	s := newTestServer(t, nil)
	thomas := s.register(t, "thomas")
	santiago := s.register(t, "santiago")

	server := httptest.NewServer(s.e)
	t.Cleanup(server.Close)

	resp, err := http.Get(server.URL + "/ws")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	conn := dialWS(t, server, santiago.Token)
	readUntil(t, conn, websocket.MessageTypeOnlineUsers)

	rec, _ := s.do(t, http.MethodPost, "/api/messages", thomas.Token, map[string]interface{}{
		"recipient_id": santiago.User.ID,
		"text":         "live",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	msg := readUntil(t, conn, websocket.MessageTypeNewMessage)
	raw, err := json.Marshal(msg.Data)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"text":"live"`)
}
