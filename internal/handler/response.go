package handler

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"sessionboard-backend/internal/auth"
	"sessionboard-backend/internal/model"
	"sessionboard-backend/internal/service"
	"sessionboard-backend/internal/store"
)

// ErrorResponse 에러 응답 본문
type ErrorResponse struct {
	Success bool          `json:"success"`
	Error   string        `json:"error"`
	Code    string        `json:"code"`
	Privacy model.Privacy `json:"privacy,omitempty"`
}

// StatusOf 서비스 에러 → HTTP 상태 코드
func StatusOf(err error) int {
	switch {
	case service.IsInvalidPassword(err):
		return fiber.StatusUnauthorized
	case errors.Is(err, service.ErrAccessDenied):
		return fiber.StatusForbidden
	case errors.Is(err, service.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, service.ErrLocked):
		return fiber.StatusLocked
	case errors.Is(err, service.ErrValidation):
		return fiber.StatusBadRequest
	case errors.Is(err, service.ErrCapacity), errors.Is(err, service.ErrStateConflict):
		return fiber.StatusConflict
	case errors.Is(err, store.ErrConflict):
		return fiber.StatusConflict
	}
	return fiber.StatusInternalServerError
}

// respondError 서비스 에러를 JSON 응답으로 변환
func respondError(c *fiber.Ctx, err error) error {
	status := StatusOf(err)
	msg := err.Error()
	if status == fiber.StatusInternalServerError {
		// 내부 에러 메시지는 노출하지 않음
		msg = "internal server error"
	}
	return c.Status(status).JSON(ErrorResponse{
		Success: false,
		Error:   msg,
		Code:    service.Code(err),
		Privacy: service.PrivacyOf(err),
	})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
		Success: false,
		Error:   msg,
		Code:    service.Code(service.ErrValidation),
	})
}

func respond(c *fiber.Ctx, status int, data any) error {
	return c.Status(status).JSON(fiber.Map{
		"success": true,
		"data":    data,
	})
}

func ok(c *fiber.Ctx, data any) error {
	return respond(c, fiber.StatusOK, data)
}

func created(c *fiber.Ctx, data any) error {
	return respond(c, fiber.StatusCreated, data)
}

// caller 요청자 신원
func caller(c *fiber.Ctx) model.Identity {
	return auth.IdentityFrom(c)
}

// requestContext 활동 로그용 요청 메타데이터를 담은 컨텍스트
func requestContext(c *fiber.Ctx) context.Context {
	return service.WithMetadata(c.UserContext(), model.ActivityMetadata{
		ClientID:  c.Get("X-Client-ID"),
		UserAgent: c.Get(fiber.HeaderUserAgent),
		IPAddress: c.IP(),
	})
}
