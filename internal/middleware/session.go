package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"sessionboard-backend/internal/auth"
	"sessionboard-backend/internal/model"
	"sessionboard-backend/internal/service"
)

const (
	sessionKey = "session"
	accessKey  = "sessionAccess"
)

// SessionMiddleware 세션 접근 권한 미들웨어
type SessionMiddleware struct {
	board *service.Board
}

// NewSessionMiddleware SessionMiddleware 생성
func NewSessionMiddleware(board *service.Board) *SessionMiddleware {
	return &SessionMiddleware{board: board}
}

// RequireRead 세션 읽기 권한 필수 (공개 세션은 비회원도 허용)
func (m *SessionMiddleware) RequireRead() fiber.Handler {
	return m.require(func(service.Access) bool { return true }, "")
}

// RequireFacilitator 진행자 권한 필수
func (m *SessionMiddleware) RequireFacilitator() fiber.Handler {
	return m.require(func(a service.Access) bool { return a.Facilitator }, "facilitator permission required")
}

func (m *SessionMiddleware) require(allow func(service.Access) bool, reason string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, err := auth.GetClaimsFromContext(c)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"error":   "unauthorized",
			})
		}

		sessionID := c.Params("id")
		if sessionID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"success": false,
				"error":   "session ID is required",
			})
		}

		session, access, err := m.board.GetSession(c.UserContext(), claims.Identity(), sessionID)
		if err != nil {
			return reject(c, err)
		}
		if !allow(access) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"success": false,
				"error":   reason,
				"code":    service.Code(service.ErrAccessDenied),
				"privacy": access.Privacy,
			})
		}

		// 세션과 접근 수준을 컨텍스트에 저장
		c.Locals(sessionKey, session)
		c.Locals(accessKey, access)
		return c.Next()
	}
}

func reject(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, service.ErrAccessDenied):
		status = fiber.StatusForbidden
	}
	body := fiber.Map{
		"success": false,
		"error":   err.Error(),
		"code":    service.Code(err),
	}
	if p := service.PrivacyOf(err); p != "" {
		body["privacy"] = p
	}
	return c.Status(status).JSON(body)
}

// SessionFrom RequireRead/RequireFacilitator가 저장한 세션
func SessionFrom(c *fiber.Ctx) (*model.Session, bool) {
	s, ok := c.Locals(sessionKey).(*model.Session)
	return s, ok && s != nil
}

// AccessFrom RequireRead/RequireFacilitator가 저장한 접근 수준
func AccessFrom(c *fiber.Ctx) service.Access {
	a, _ := c.Locals(accessKey).(service.Access)
	return a
}
