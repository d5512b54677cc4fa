package service

import (
	"errors"
	"fmt"

	"sessionboard-backend/internal/model"
	"sessionboard-backend/internal/protocol"
	"sessionboard-backend/internal/store"
)

// 서비스 에러 분류 (errors.Is로 판별)
var (
	ErrNotFound      = store.ErrNotFound
	ErrAccessDenied  = errors.New("access denied")
	ErrLocked        = errors.New("locked")
	ErrValidation    = errors.New("validation failed")
	ErrCapacity      = errors.New("session is full")
	ErrStateConflict = errors.New("state conflict")
)

// AccessError 접근 거부 (세션 공개 범위를 함께 전달, 내용은 전달하지 않음)
type AccessError struct {
	Privacy         model.Privacy
	Reason          string
	InvalidPassword bool
}

func (e *AccessError) Error() string {
	if e.Reason == "" {
		return ErrAccessDenied.Error()
	}
	return ErrAccessDenied.Error() + ": " + e.Reason
}

func (e *AccessError) Is(target error) bool {
	return target == ErrAccessDenied
}

func denied(privacy model.Privacy, reason string) error {
	return &AccessError{Privacy: privacy, Reason: reason}
}

func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func conflictf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrStateConflict, fmt.Sprintf(format, args...))
}

func lockedf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrLocked, fmt.Sprintf(format, args...))
}

// Code 에러를 응답 코드 문자열로 변환
func Code(err error) string {
	var accessErr *AccessError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &accessErr) && accessErr.InvalidPassword:
		return protocol.CodeInvalidPassword
	case errors.Is(err, ErrAccessDenied):
		return protocol.CodeAccessDenied
	case errors.Is(err, ErrNotFound):
		return protocol.CodeNotFound
	case errors.Is(err, ErrLocked):
		return protocol.CodeLocked
	case errors.Is(err, ErrValidation):
		return protocol.CodeValidation
	case errors.Is(err, ErrCapacity):
		return protocol.CodeCapacity
	case errors.Is(err, ErrStateConflict), errors.Is(err, store.ErrConflict):
		return protocol.CodeStateConflict
	default:
		return protocol.CodeServerError
	}
}

// PrivacyOf 접근 거부 에러에 담긴 공개 범위 (없으면 빈 값)
func PrivacyOf(err error) model.Privacy {
	var accessErr *AccessError
	if errors.As(err, &accessErr) {
		return accessErr.Privacy
	}
	return ""
}
