package handler

import (
	"github.com/gofiber/fiber/v2"

	"sessionboard-backend/internal/service"
)

// ChatHandler 세션 채팅 핸들러
type ChatHandler struct {
	board *service.Board
}

// NewChatHandler ChatHandler 생성
func NewChatHandler(board *service.Board) *ChatHandler {
	return &ChatHandler{board: board}
}

// EditMessageRequest 메시지 수정 요청
type EditMessageRequest struct {
	Text string `json:"message"`
}

// ReactionRequest 리액션 요청
type ReactionRequest struct {
	Emoji string `json:"emoji"`
}

// ListMessages 채팅 목록 (오래된 순)
func (h *ChatHandler) ListMessages(c *fiber.Ctx) error {
	messages, err := h.board.ListMessages(c.UserContext(), caller(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return ok(c, messages)
}

// PostMessage 메시지 전송
func (h *ChatHandler) PostMessage(c *fiber.Ctx) error {
	var req service.MessageInput
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	msg, err := h.board.PostMessage(requestContext(c), caller(c), c.Params("id"), req)
	if err != nil {
		return respondError(c, err)
	}
	return created(c, msg)
}

// EditMessage 메시지 수정 (작성자)
func (h *ChatHandler) EditMessage(c *fiber.Ctx) error {
	var req EditMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	msg, err := h.board.EditMessage(requestContext(c), caller(c), c.Params("id"), c.Params("messageId"), req.Text)
	if err != nil {
		return respondError(c, err)
	}
	return ok(c, msg)
}

// DeleteMessage 메시지 삭제 (작성자 또는 진행자)
func (h *ChatHandler) DeleteMessage(c *fiber.Ctx) error {
	if err := h.board.DeleteMessage(requestContext(c), caller(c), c.Params("id"), c.Params("messageId")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ReactMessage 리액션 토글
func (h *ChatHandler) ReactMessage(c *fiber.Ctx) error {
	var req ReactionRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	msg, err := h.board.ReactMessage(requestContext(c), caller(c), c.Params("id"), c.Params("messageId"), req.Emoji)
	if err != nil {
		return respondError(c, err)
	}
	return ok(c, msg)
}
