package handler

import (
	"github.com/gofiber/fiber/v2"

	"sessionboard-backend/internal/service"
)

// IdeaHandler 아이디어, 우선순위 영역 핸들러
type IdeaHandler struct {
	board *service.Board
}

// NewIdeaHandler IdeaHandler 생성
func NewIdeaHandler(board *service.Board) *IdeaHandler {
	return &IdeaHandler{board: board}
}

// AddIdeaRequest 아이디어 등록 요청
type AddIdeaRequest struct {
	Text string `json:"text"`
}

// ListIdeas 아이디어 목록
func (h *IdeaHandler) ListIdeas(c *fiber.Ctx) error {
	ideas, err := h.board.ListIdeas(c.UserContext(), caller(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return ok(c, ideas)
}

// AddIdea 아이디어 등록
func (h *IdeaHandler) AddIdea(c *fiber.Ctx) error {
	var req AddIdeaRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	idea, err := h.board.AddIdea(requestContext(c), caller(c), c.Params("id"), req.Text)
	if err != nil {
		return respondError(c, err)
	}
	return created(c, idea)
}

// ListZones 우선순위 영역 목록
func (h *IdeaHandler) ListZones(c *fiber.Ctx) error {
	zones, err := h.board.ListZones(c.UserContext(), caller(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return ok(c, zones)
}

// AddZone 우선순위 영역 추가
func (h *IdeaHandler) AddZone(c *fiber.Ctx) error {
	var req service.ZoneInput
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	zone, err := h.board.AddZone(requestContext(c), caller(c), c.Params("id"), req)
	if err != nil {
		return respondError(c, err)
	}
	return created(c, zone)
}

// RemoveZone 우선순위 영역 삭제
func (h *IdeaHandler) RemoveZone(c *fiber.Ctx) error {
	if err := h.board.RemoveZone(requestContext(c), caller(c), c.Params("id"), c.Params("zoneId")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
