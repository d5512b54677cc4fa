package handler

import (
	"github.com/gofiber/fiber/v2"

	"sessionboard-backend/internal/model"
	"sessionboard-backend/internal/service"
)

// CanvasHandler 캔버스 요소 핸들러
type CanvasHandler struct {
	board *service.Board
}

// NewCanvasHandler CanvasHandler 생성
func NewCanvasHandler(board *service.Board) *CanvasHandler {
	return &CanvasHandler{board: board}
}

// VoteRequest 투표 요청
type VoteRequest struct {
	Type model.VoteType `json:"type"`
}

// ZoneAssignRequest 우선순위 영역 지정 요청 (null이면 해제)
type ZoneAssignRequest struct {
	Zone *model.ZoneKind `json:"zone"`
}

// LockRequest 요소 잠금 요청
type LockRequest struct {
	Locked bool `json:"locked"`
}

// ListElements 캔버스 요소 목록 (생성 순)
func (h *CanvasHandler) ListElements(c *fiber.Ctx) error {
	elements, err := h.board.ListElements(c.UserContext(), caller(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return ok(c, elements)
}

// CreateElement 요소 생성
func (h *CanvasHandler) CreateElement(c *fiber.Ctx) error {
	var req model.CanvasElement
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	element, err := h.board.CreateElement(requestContext(c), caller(c), c.Params("id"), req)
	if err != nil {
		return respondError(c, err)
	}
	return created(c, element)
}

// UpdateElement 요소 부분 수정
func (h *CanvasHandler) UpdateElement(c *fiber.Ctx) error {
	var req model.ElementPatch
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	element, err := h.board.UpdateElement(requestContext(c), caller(c), c.Params("id"), c.Params("elementId"), req)
	if err != nil {
		return respondError(c, err)
	}
	return ok(c, element)
}

// DeleteElement 요소 삭제
func (h *CanvasHandler) DeleteElement(c *fiber.Ctx) error {
	if err := h.board.DeleteElement(requestContext(c), caller(c), c.Params("id"), c.Params("elementId")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// DeleteAllElements 캔버스 비우기
func (h *CanvasHandler) DeleteAllElements(c *fiber.Ctx) error {
	n, err := h.board.DeleteAllElements(requestContext(c), caller(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return ok(c, fiber.Map{"deleted": n})
}

// VoteElement 요소 투표
func (h *CanvasHandler) VoteElement(c *fiber.Ctx) error {
	var req VoteRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	element, err := h.board.VoteElement(requestContext(c), caller(c), c.Params("id"), c.Params("elementId"), req.Type)
	if err != nil {
		return respondError(c, err)
	}
	return ok(c, element)
}

// RetractVote 투표 취소
func (h *CanvasHandler) RetractVote(c *fiber.Ctx) error {
	element, err := h.board.RetractVote(requestContext(c), caller(c), c.Params("id"), c.Params("elementId"))
	if err != nil {
		return respondError(c, err)
	}
	return ok(c, element)
}

// AssignZone 우선순위 영역 지정
func (h *CanvasHandler) AssignZone(c *fiber.Ctx) error {
	var req ZoneAssignRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	element, err := h.board.AssignZone(requestContext(c), caller(c), c.Params("id"), c.Params("elementId"), req.Zone)
	if err != nil {
		return respondError(c, err)
	}
	return ok(c, element)
}

// SetElementLock 요소 잠금/해제 (진행자)
func (h *CanvasHandler) SetElementLock(c *fiber.Ctx) error {
	var req LockRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	element, err := h.board.SetElementLock(requestContext(c), caller(c), c.Params("id"), c.Params("elementId"), req.Locked)
	if err != nil {
		return respondError(c, err)
	}
	return ok(c, element)
}
