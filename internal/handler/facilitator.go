package handler

import (
	"github.com/gofiber/fiber/v2"

	"sessionboard-backend/internal/model"
	"sessionboard-backend/internal/service"
)

// FacilitatorHandler 진행자 제어 핸들러 (라우트에 RequireFacilitator 적용)
type FacilitatorHandler struct {
	board *service.Board
}

// NewFacilitatorHandler FacilitatorHandler 생성
func NewFacilitatorHandler(board *service.Board) *FacilitatorHandler {
	return &FacilitatorHandler{board: board}
}

// StartTimerRequest 타이머 시작 요청 (초, 0이면 제한 없음)
type StartTimerRequest struct {
	Duration int `json:"duration"`
}

func (h *FacilitatorHandler) reply(c *fiber.Ctx, state *model.BoardState, err error) error {
	if err != nil {
		return respondError(c, err)
	}
	return ok(c, state)
}

// LockBoard 보드 잠금
func (h *FacilitatorHandler) LockBoard(c *fiber.Ctx) error {
	state, err := h.board.LockBoard(requestContext(c), caller(c), c.Params("id"))
	return h.reply(c, state, err)
}

// UnlockBoard 보드 잠금 해제
func (h *FacilitatorHandler) UnlockBoard(c *fiber.Ctx) error {
	state, err := h.board.UnlockBoard(requestContext(c), caller(c), c.Params("id"))
	return h.reply(c, state, err)
}

// StartTimer 타이머 시작
func (h *FacilitatorHandler) StartTimer(c *fiber.Ctx) error {
	var req StartTimerRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid request body")
		}
	}
	state, err := h.board.StartTimer(requestContext(c), caller(c), c.Params("id"), req.Duration)
	return h.reply(c, state, err)
}

// StopTimer 타이머 정지
func (h *FacilitatorHandler) StopTimer(c *fiber.Ctx) error {
	state, err := h.board.StopTimer(requestContext(c), caller(c), c.Params("id"))
	return h.reply(c, state, err)
}
