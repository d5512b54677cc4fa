package handler

import (
	"github.com/gofiber/fiber/v2"

	"sessionboard-backend/internal/presence"
	"sessionboard-backend/internal/protocol"
)

// PresenceHandler 접속자 수 핸들러 (라우트에 RequireRead 적용)
type PresenceHandler struct {
	tracker *presence.Tracker
}

// NewPresenceHandler PresenceHandler 생성
func NewPresenceHandler(tracker *presence.Tracker) *PresenceHandler {
	return &PresenceHandler{tracker: tracker}
}

// GetPresence 현재 접속 연결 수
func (h *PresenceHandler) GetPresence(c *fiber.Ctx) error {
	count, err := h.tracker.Count(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return ok(c, protocol.ViewerCountPayload{Count: count})
}
