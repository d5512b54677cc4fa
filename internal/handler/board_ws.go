package handler

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"sessionboard-backend/internal/presence"
	"sessionboard-backend/internal/protocol"
	"sessionboard-backend/internal/realtime"
	"sessionboard-backend/internal/service"
)

// BoardHub 보드 소켓이 사용하는 허브 기능
type BoardHub interface {
	Join(ctx context.Context, sessionID string, sub realtime.Subscriber) (realtime.Grant, error)
	Leave(sessionID, subID string) bool
	LeaveAll(subID string) []string
	Relay(sessionID, subID string, ev protocol.Event) error
}

// PresenceTracker 보드 소켓이 사용하는 접속자 추적 기능
type PresenceTracker interface {
	Join(ctx context.Context, sessionID string, e presence.Entry) (int64, error)
	Leave(ctx context.Context, sessionID string, e presence.Entry) (int64, error)
	Heartbeat(ctx context.Context, sessionID string, e presence.Entry) error
}

// BoardWSHandler 세션 보드 WebSocket 핸들러
type BoardWSHandler struct {
	hub          BoardHub
	tracker      PresenceTracker
	writeTimeout time.Duration
	opTimeout    time.Duration
	log          zerolog.Logger
}

// NewBoardWSHandler BoardWSHandler 생성
func NewBoardWSHandler(hub BoardHub, tracker PresenceTracker, writeTimeout time.Duration, log zerolog.Logger) *BoardWSHandler {
	if writeTimeout <= 0 {
		writeTimeout = 5 * time.Second
	}
	return &BoardWSHandler{
		hub:          hub,
		tracker:      tracker,
		writeTimeout: writeTimeout,
		opTimeout:    5 * time.Second,
		log:          log.With().Str("component", "BoardWS").Logger(),
	}
}

// frameWriter 소켓 쓰기 (websocket.Conn이 구현)
type frameWriter interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
}

// boardConn 하나의 WebSocket 연결 (탭마다 별도 ID)
type boardConn struct {
	id       string
	userID   int64
	nickname string

	mu           sync.Mutex
	ws           frameWriter
	writeTimeout time.Duration

	// 읽기 루프에서만 접근
	joined map[string]struct{}
}

func (bc *boardConn) ID() string    { return bc.id }
func (bc *boardConn) UserID() int64 { return bc.userID }

// Send 이벤트 전송 (허브 토픽 고루틴과 읽기 루프가 동시에 호출)
func (bc *boardConn) Send(ev protocol.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	bc.mu.Lock()
	defer bc.mu.Unlock()
	if err := bc.ws.SetWriteDeadline(time.Now().Add(bc.writeTimeout)); err != nil {
		return err
	}
	return bc.ws.WriteMessage(websocket.TextMessage, data)
}

func (bc *boardConn) entry() presence.Entry {
	return presence.Entry{ConnID: bc.id, UserID: bc.userID, Nickname: bc.nickname}
}

// HandleWebSocket WebSocket 연결 처리
func (h *BoardWSHandler) HandleWebSocket(c *websocket.Conn) {
	userID, ok1 := c.Locals("userID").(int64)
	nickname, ok2 := c.Locals("nickname").(string)
	if !ok1 || !ok2 {
		c.WriteMessage(websocket.TextMessage, []byte(`{"type":"error","error":"invalid session","code":"ACCESS_DENIED"}`))
		c.Close()
		return
	}

	conn := &boardConn{
		id:           uuid.NewString(),
		userID:       userID,
		nickname:     nickname,
		ws:           c,
		writeTimeout: h.writeTimeout,
		joined:       make(map[string]struct{}),
	}
	log := h.log.With().Str("conn", conn.id).Int64("user", userID).Logger()
	log.Debug().Msg("connected")

	// 연결 해제 시 모든 세션에서 퇴장
	defer func() {
		h.disconnect(conn)
		c.Close()
		log.Debug().Msg("disconnected")
	}()

	// 메시지 수신 루프
	for {
		_, msgBytes, err := c.ReadMessage()
		if err != nil {
			break
		}

		var ev protocol.Event
		if err := json.Unmarshal(msgBytes, &ev); err != nil {
			h.reply(conn, protocol.Event{Type: protocol.TypeError, Error: "malformed message", Code: protocol.CodeValidation})
			continue
		}
		h.dispatch(conn, ev)
	}
}

func (h *BoardWSHandler) dispatch(conn *boardConn, ev protocol.Event) {
	switch ev.Type {
	case protocol.TypeJoin:
		h.join(conn, ev.SessionID)
	case protocol.TypeLeave:
		h.leave(conn, ev.SessionID)
		h.reply(conn, protocol.Event{Type: protocol.TypeLeft, SessionID: ev.SessionID})
	case protocol.TypePing:
		h.heartbeat(conn)
		h.reply(conn, protocol.Event{Type: protocol.TypePong})
	default:
		if err := h.hub.Relay(ev.SessionID, conn.id, ev); err != nil {
			h.fail(conn, ev.SessionID, err)
		}
	}
}

// join 허브가 접근 권한을 다시 확인한 뒤 구독, 이후 접속자 등록
func (h *BoardWSHandler) join(conn *boardConn, sessionID string) {
	if sessionID == "" {
		h.fail(conn, "", service.ErrValidation)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), h.opTimeout)
	defer cancel()

	grant, err := h.hub.Join(ctx, sessionID, conn)
	if err != nil {
		h.fail(conn, sessionID, err)
		return
	}

	ack, _ := protocol.NewEvent(protocol.TypeJoined, "", sessionID, protocol.JoinedPayload{
		ConnectionID: conn.id,
		CanWrite:     grant.CanWrite,
		Facilitator:  grant.Facilitator,
	})
	h.reply(conn, ack)

	if _, again := conn.joined[sessionID]; again {
		return
	}
	conn.joined[sessionID] = struct{}{}
	if _, err := h.tracker.Join(ctx, sessionID, conn.entry()); err != nil {
		h.log.Warn().Err(err).Str("session", sessionID).Str("conn", conn.id).Msg("presence join failed")
	}
}

func (h *BoardWSHandler) leave(conn *boardConn, sessionID string) {
	if _, ok := conn.joined[sessionID]; !ok {
		return
	}
	delete(conn.joined, sessionID)
	h.hub.Leave(sessionID, conn.id)

	ctx, cancel := context.WithTimeout(context.Background(), h.opTimeout)
	defer cancel()
	if _, err := h.tracker.Leave(ctx, sessionID, conn.entry()); err != nil {
		h.log.Warn().Err(err).Str("session", sessionID).Str("conn", conn.id).Msg("presence leave failed")
	}
}

func (h *BoardWSHandler) disconnect(conn *boardConn) {
	h.hub.LeaveAll(conn.id)
	for sessionID := range conn.joined {
		h.leave(conn, sessionID)
	}
}

func (h *BoardWSHandler) heartbeat(conn *boardConn) {
	ctx, cancel := context.WithTimeout(context.Background(), h.opTimeout)
	defer cancel()
	for sessionID := range conn.joined {
		if err := h.tracker.Heartbeat(ctx, sessionID, conn.entry()); err != nil {
			h.log.Warn().Err(err).Str("session", sessionID).Str("conn", conn.id).Msg("heartbeat failed")
		}
	}
}

func (h *BoardWSHandler) reply(conn *boardConn, ev protocol.Event) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	if err := conn.Send(ev); err != nil {
		h.log.Debug().Err(err).Str("conn", conn.id).Msg("reply failed")
	}
}

func (h *BoardWSHandler) fail(conn *boardConn, sessionID string, err error) {
	h.reply(conn, protocol.Event{
		Type:      protocol.TypeError,
		SessionID: sessionID,
		Error:     err.Error(),
		Code:      socketCode(err),
	})
}

// socketCode 허브 에러 → 에러 코드
func socketCode(err error) string {
	switch {
	case errors.Is(err, realtime.ErrNotJoined), errors.Is(err, realtime.ErrReadOnly):
		return protocol.CodeAccessDenied
	case errors.Is(err, realtime.ErrBadKind):
		return protocol.CodeValidation
	case errors.Is(err, realtime.ErrLocked):
		return protocol.CodeLocked
	default:
		return service.Code(err)
	}
}
