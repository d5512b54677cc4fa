package handler

import (
	"github.com/gofiber/fiber/v2"

	"sessionboard-backend/internal/model"
	"sessionboard-backend/internal/service"
)

// SessionHandler 세션 핸들러
type SessionHandler struct {
	board *service.Board
}

// NewSessionHandler SessionHandler 생성
func NewSessionHandler(board *service.Board) *SessionHandler {
	return &SessionHandler{board: board}
}

// AccessResponse 요청자의 세션 접근 수준
type AccessResponse struct {
	Level       string `json:"level"`
	CanWrite    bool   `json:"can_write"`
	Facilitator bool   `json:"facilitator"`
}

// SessionResponse 세션 조회 응답
type SessionResponse struct {
	Session *model.Session `json:"session"`
	Access  AccessResponse `json:"access"`
}

// JoinSessionRequest 세션 참가 요청
type JoinSessionRequest struct {
	Password string `json:"password"`
}

// SessionListResponse 세션 목록 응답
type SessionListResponse struct {
	Sessions []model.Session `json:"sessions"`
	Total    int64           `json:"total"`
	Limit    int             `json:"limit"`
	Offset   int             `json:"offset"`
}

func toAccessResponse(a service.Access) AccessResponse {
	return AccessResponse{
		Level:       a.Level.String(),
		CanWrite:    a.CanWrite(),
		Facilitator: a.Facilitator,
	}
}

// CreateSession 세션 생성
func (h *SessionHandler) CreateSession(c *fiber.Ctx) error {
	var req service.SessionInput
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	session, err := h.board.CreateSession(requestContext(c), caller(c), req)
	if err != nil {
		return respondError(c, err)
	}
	return created(c, session)
}

// ListSessions 내 세션 목록 (?status=&limit=&offset=)
func (h *SessionHandler) ListSessions(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 20)
	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}

	sessions, total, err := h.board.ListSessions(c.UserContext(), caller(c), model.SessionStatus(c.Query("status")), limit, offset)
	if err != nil {
		return respondError(c, err)
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return ok(c, SessionListResponse{
		Sessions: sessions,
		Total:    total,
		Limit:    limit,
		Offset:   offset,
	})
}

// GetSession 세션 조회 (보드 잠금/타이머 상태 포함)
func (h *SessionHandler) GetSession(c *fiber.Ctx) error {
	session, access, err := h.board.GetSession(c.UserContext(), caller(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return ok(c, SessionResponse{Session: session, Access: toAccessResponse(access)})
}

// UpdateSession 세션 수정 (진행자)
func (h *SessionHandler) UpdateSession(c *fiber.Ctx) error {
	var req service.SessionPatch
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	session, err := h.board.UpdateSession(requestContext(c), caller(c), c.Params("id"), req)
	if err != nil {
		return respondError(c, err)
	}
	return ok(c, session)
}

// StartSession 세션 시작
func (h *SessionHandler) StartSession(c *fiber.Ctx) error {
	session, err := h.board.StartSession(requestContext(c), caller(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return ok(c, session)
}

// EndSession 세션 종료
func (h *SessionHandler) EndSession(c *fiber.Ctx) error {
	session, err := h.board.EndSession(requestContext(c), caller(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return ok(c, session)
}

// DeleteSession 세션 삭제 (생성자)
func (h *SessionHandler) DeleteSession(c *fiber.Ctx) error {
	if err := h.board.DeleteSession(requestContext(c), caller(c), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// JoinSession 세션 참가 (비밀번호 보호 세션은 password 필요)
func (h *SessionHandler) JoinSession(c *fiber.Ctx) error {
	var req JoinSessionRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid request body")
		}
	}

	session, err := h.board.JoinSession(requestContext(c), caller(c), c.Params("id"), req.Password)
	if err != nil {
		return respondError(c, err)
	}
	return ok(c, session)
}

// LeaveSession 세션 나가기
func (h *SessionHandler) LeaveSession(c *fiber.Ctx) error {
	if err := h.board.LeaveSession(requestContext(c), caller(c), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
