package handler

import (
	"github.com/gofiber/fiber/v2"

	"sessionboard-backend/internal/service"
)

// QuestionHandler Q&A 핸들러
type QuestionHandler struct {
	board *service.Board
}

// NewQuestionHandler QuestionHandler 생성
func NewQuestionHandler(board *service.Board) *QuestionHandler {
	return &QuestionHandler{board: board}
}

// AnswerRequest 답변 요청
type AnswerRequest struct {
	Text string `json:"text"`
}

// ListQuestions 질문 목록 (오래된 순, 익명 질문은 작성자 가림)
func (h *QuestionHandler) ListQuestions(c *fiber.Ctx) error {
	questions, err := h.board.ListQuestions(c.UserContext(), caller(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return ok(c, questions)
}

// AskQuestion 질문 등록
func (h *QuestionHandler) AskQuestion(c *fiber.Ctx) error {
	var req service.QuestionInput
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	q, err := h.board.AskQuestion(requestContext(c), caller(c), c.Params("id"), req)
	if err != nil {
		return respondError(c, err)
	}
	return created(c, q)
}

// AnswerQuestion 질문 답변
func (h *QuestionHandler) AnswerQuestion(c *fiber.Ctx) error {
	var req AnswerRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	q, err := h.board.AnswerQuestion(requestContext(c), caller(c), c.Params("id"), c.Params("questionId"), req.Text)
	if err != nil {
		return respondError(c, err)
	}
	return ok(c, q)
}

// VoteQuestion 질문 투표
func (h *QuestionHandler) VoteQuestion(c *fiber.Ctx) error {
	var req VoteRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	q, err := h.board.VoteQuestion(requestContext(c), caller(c), c.Params("id"), c.Params("questionId"), req.Type)
	if err != nil {
		return respondError(c, err)
	}
	return ok(c, q)
}

// ArchiveQuestion 질문 보관 (진행자)
func (h *QuestionHandler) ArchiveQuestion(c *fiber.Ctx) error {
	q, err := h.board.ArchiveQuestion(requestContext(c), caller(c), c.Params("id"), c.Params("questionId"))
	if err != nil {
		return respondError(c, err)
	}
	return ok(c, q)
}
