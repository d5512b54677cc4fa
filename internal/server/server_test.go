package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sessionboard-backend/internal/auth"
	"sessionboard-backend/internal/config"
	"sessionboard-backend/internal/logging"
	"sessionboard-backend/internal/model"
	"sessionboard-backend/internal/protocol"
	"sessionboard-backend/internal/store"
)

const secret = "test-secret"

func testConfig() *config.Config {
	return &config.Config{
		Server:    config.ServerConfig{Port: ":0", InstanceID: "test"},
		WebSocket: config.WebSocketConfig{ReadBufferSize: 1024, WriteBufferSize: 1024, HandshakeTimeout: time.Second, WriteTimeout: time.Second},
		CORS:      config.CORSConfig{AllowOrigins: "*", AllowHeaders: "Origin, Content-Type, Accept, Authorization"},
		Auth: config.AuthConfig{
			JWTSecret:         secret,
			AccessTokenExpiry: time.Hour,
			JoinRateLimit:     100,
			JoinRateWindow:    time.Minute,
		},
		Sync: config.SyncConfig{
			HubQueueSize:     64,
			PresenceTTL:      time.Minute,
			PresenceSweepGap: time.Minute,
		},
	}
}

type harness struct {
	srv    *Server
	tokens map[int64]string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	srv := New(ctx, testConfig(), store.NewMemoryStore(), nil, logging.Nop())
	srv.SetupRoutes()

	jwt := auth.NewJWTManager(secret, time.Hour)
	h := &harness{srv: srv, tokens: make(map[int64]string)}
	for id, name := range map[int64]string{1: "alice", 2: "bob", 3: "carol"} {
		token, err := jwt.GenerateAccessToken(id, name)
		require.NoError(t, err)
		h.tokens[id] = token
	}
	return h
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Code    string          `json:"code"`
	Privacy string          `json:"privacy"`
}

func (h *harness) do(t *testing.T, user int64, method, path string, body any) (int, envelope) {
	t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if user != 0 {
		req.Header.Set("Authorization", "Bearer "+h.tokens[user])
	}

	resp, err := h.srv.App().Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &env)
	}
	return resp.StatusCode, env
}

func (h *harness) createSession(t *testing.T, body map[string]any) model.Session {
	t.Helper()
	status, env := h.do(t, 1, http.MethodPost, "/api/sessions", body)
	require.Equal(t, fiber.StatusCreated, status, env.Error)
	var s model.Session
	require.NoError(t, json.Unmarshal(env.Data, &s))
	return s
}

func TestRequiresToken(t *testing.T) {
	h := newHarness(t)
	status, _ := h.do(t, 0, http.MethodGet, "/api/sessions", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestHealth(t *testing.T) {
	h := newHarness(t)
	resp, err := h.srv.App().Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = h.srv.App().Test(httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestSessionAccessOverHTTP(t *testing.T) {
	h := newHarness(t)
	s := h.createSession(t, map[string]any{"title": "Retro", "privacy": "private"})

	status, env := h.do(t, 1, http.MethodGet, "/api/sessions/"+s.ID, nil)
	require.Equal(t, fiber.StatusOK, status)
	var got struct {
		Session model.Session `json:"session"`
		Access  struct {
			Level       string `json:"level"`
			CanWrite    bool   `json:"can_write"`
			Facilitator bool   `json:"facilitator"`
		} `json:"access"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, "full", got.Access.Level)
	assert.True(t, got.Access.Facilitator)

	status, env = h.do(t, 2, http.MethodGet, "/api/sessions/"+s.ID, nil)
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.False(t, env.Success)
	assert.Equal(t, protocol.CodeAccessDenied, env.Code)
	assert.Equal(t, "private", env.Privacy)

	status, env = h.do(t, 2, http.MethodGet, "/api/sessions/does-not-exist", nil)
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, protocol.CodeNotFound, env.Code)
}

func TestJoinWithPassword(t *testing.T) {
	h := newHarness(t)
	s := h.createSession(t, map[string]any{"title": "Planning", "privacy": "password-protected", "password": "bee123"})

	status, env := h.do(t, 2, http.MethodPost, "/api/sessions/"+s.ID+"/join", map[string]any{"password": "nope"})
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, protocol.CodeInvalidPassword, env.Code)

	status, _ = h.do(t, 2, http.MethodPost, "/api/sessions/"+s.ID+"/join", map[string]any{"password": "bee123"})
	assert.Equal(t, fiber.StatusOK, status)

	status, env = h.do(t, 2, http.MethodPost, "/api/sessions/"+s.ID+"/join", map[string]any{"password": "bee123"})
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, protocol.CodeStateConflict, env.Code)
}

func TestBoardLockOverHTTP(t *testing.T) {
	h := newHarness(t)
	s := h.createSession(t, map[string]any{"title": "Ideas", "privacy": "public"})
	status, _ := h.do(t, 2, http.MethodPost, "/api/sessions/"+s.ID+"/join", nil)
	require.Equal(t, fiber.StatusOK, status)

	status, env := h.do(t, 2, http.MethodPost, "/api/sessions/"+s.ID+"/facilitator/lock", nil)
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.Equal(t, protocol.CodeAccessDenied, env.Code)

	status, _ = h.do(t, 1, http.MethodPost, "/api/sessions/"+s.ID+"/facilitator/lock", nil)
	require.Equal(t, fiber.StatusOK, status)

	status, env = h.do(t, 2, http.MethodPost, "/api/sessions/"+s.ID+"/elements", map[string]any{"content": map[string]any{"text": "hi"}})
	assert.Equal(t, fiber.StatusLocked, status)
	assert.Equal(t, protocol.CodeLocked, env.Code)

	status, _ = h.do(t, 1, http.MethodPost, "/api/sessions/"+s.ID+"/elements", map[string]any{"content": map[string]any{"text": "hi"}})
	assert.Equal(t, fiber.StatusCreated, status)

	status, env = h.do(t, 3, http.MethodPost, "/api/sessions/"+s.ID+"/elements", map[string]any{})
	assert.Equal(t, fiber.StatusForbidden, status, "public outsiders are read-only")
	assert.Equal(t, "public", env.Privacy)

	status, env = h.do(t, 3, http.MethodGet, "/api/sessions/"+s.ID+"/elements", nil)
	assert.Equal(t, fiber.StatusOK, status)
	var elements []model.CanvasElement
	require.NoError(t, json.Unmarshal(env.Data, &elements))
	assert.Len(t, elements, 1)
}

func TestValidationStatus(t *testing.T) {
	h := newHarness(t)
	status, env := h.do(t, 1, http.MethodPost, "/api/sessions", map[string]any{"title": ""})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, protocol.CodeValidation, env.Code)
}

func TestPresenceEndpoint(t *testing.T) {
	h := newHarness(t)
	s := h.createSession(t, map[string]any{"title": "Count", "privacy": "private"})

	status, env := h.do(t, 1, http.MethodGet, "/api/sessions/"+s.ID+"/presence", nil)
	require.Equal(t, fiber.StatusOK, status)
	var p protocol.ViewerCountPayload
	require.NoError(t, json.Unmarshal(env.Data, &p))
	assert.Equal(t, int64(0), p.Count)

	status, _ = h.do(t, 2, http.MethodGet, "/api/sessions/"+s.ID+"/presence", nil)
	assert.Equal(t, fiber.StatusForbidden, status)
}

// listen serves the app on a loopback port for websocket tests
func (h *harness) listen(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = h.srv.App().Listener(ln) }()
	t.Cleanup(func() { _ = h.srv.App().Shutdown() })
	return ln.Addr().String()
}

func dial(t *testing.T, addr, token string) *websocket.Conn {
	t.Helper()
	conn, resp, err := websocket.DefaultDialer.Dial("ws://"+addr+"/ws/board?token="+token, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// await reads until an event of the given type arrives
func await(t *testing.T, conn *websocket.Conn, kind string) protocol.Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		var ev protocol.Event
		require.NoError(t, conn.ReadJSON(&ev), "waiting for %s", kind)
		if ev.Type == kind {
			return ev
		}
	}
}

func TestBoardSocket(t *testing.T) {
	h := newHarness(t)
	s := h.createSession(t, map[string]any{"title": "Live", "privacy": "private"})
	addr := h.listen(t)

	owner := dial(t, addr, h.tokens[1])
	require.NoError(t, owner.WriteJSON(protocol.Event{Type: protocol.TypeJoin, SessionID: s.ID}))

	joined := await(t, owner, protocol.TypeJoined)
	var ack protocol.JoinedPayload
	require.NoError(t, joined.Decode(&ack))
	assert.True(t, ack.CanWrite)
	assert.True(t, ack.Facilitator)

	count := await(t, owner, protocol.KindViewerCount)
	var vc protocol.ViewerCountPayload
	require.NoError(t, count.Decode(&vc))
	assert.Equal(t, int64(1), vc.Count)

	t.Run("outsider is refused on a private session", func(t *testing.T) {
		outsider := dial(t, addr, h.tokens[2])
		require.NoError(t, outsider.WriteJSON(protocol.Event{Type: protocol.TypeJoin, SessionID: s.ID}))
		ev := await(t, outsider, protocol.TypeError)
		assert.Equal(t, protocol.CodeAccessDenied, ev.Code)
	})

	t.Run("REST writes are broadcast", func(t *testing.T) {
		status, _ := h.do(t, 1, http.MethodPost, "/api/sessions/"+s.ID+"/elements", map[string]any{"content": map[string]any{"text": "sticky"}})
		require.Equal(t, fiber.StatusCreated, status)

		ev := await(t, owner, protocol.KindCanvas)
		assert.Equal(t, protocol.ActionAdd, ev.Action)
		var el model.CanvasElement
		require.NoError(t, ev.Decode(&el))
		assert.Equal(t, "sticky", el.Content.Text)
	})

	t.Run("ping refreshes presence", func(t *testing.T) {
		require.NoError(t, owner.WriteJSON(protocol.Event{Type: protocol.TypePing}))
		await(t, owner, protocol.TypePong)
	})
}

func TestLockedBoardRefusesRelayedGestures(t *testing.T) {
	h := newHarness(t)
	s := h.createSession(t, map[string]any{"title": "Live", "privacy": "public"})
	status, _ := h.do(t, 2, http.MethodPost, "/api/sessions/"+s.ID+"/join", nil)
	require.Equal(t, fiber.StatusOK, status)
	addr := h.listen(t)

	owner, guest := dial(t, addr, h.tokens[1]), dial(t, addr, h.tokens[2])
	for _, c := range []*websocket.Conn{owner, guest} {
		require.NoError(t, c.WriteJSON(protocol.Event{Type: protocol.TypeJoin, SessionID: s.ID}))
		await(t, c, protocol.TypeJoined)
	}

	status, _ = h.do(t, 1, http.MethodPost, "/api/sessions/"+s.ID+"/facilitator/lock", nil)
	require.Equal(t, fiber.StatusOK, status)
	await(t, guest, protocol.KindFacilitator)

	drag, err := protocol.NewEvent(protocol.KindCanvas, protocol.ActionDrag, s.ID, protocol.DragPayload{ID: "el-1"})
	require.NoError(t, err)
	require.NoError(t, guest.WriteJSON(drag))
	ev := await(t, guest, protocol.TypeError)
	assert.Equal(t, protocol.CodeLocked, ev.Code)

	require.NoError(t, owner.WriteJSON(drag))
	got := await(t, guest, protocol.KindCanvas)
	assert.Equal(t, protocol.ActionDrag, got.Action)
}
