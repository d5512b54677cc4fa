package client

import (
	"errors"
	"fmt"

	"sessionboard-backend/internal/model"
	"sessionboard-backend/internal/protocol"
)

// Error classes reconstructed from the server's error code
var (
	ErrNotFound      = errors.New("not found")
	ErrAccessDenied  = errors.New("access denied")
	ErrLocked        = errors.New("locked")
	ErrValidation    = errors.New("validation failed")
	ErrCapacity      = errors.New("session is full")
	ErrStateConflict = errors.New("state conflict")
	ErrServer        = errors.New("server error")
)

// APIError is a non-2xx response from the board API
type APIError struct {
	Status  int
	Code    string
	Message string
	Privacy model.Privacy
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("board api: %d %s", e.Status, e.Code)
	}
	return fmt.Sprintf("board api: %s", e.Message)
}

// Is matches the error class sentinels
func (e *APIError) Is(target error) bool {
	return target == e.class()
}

func (e *APIError) class() error {
	switch e.Code {
	case protocol.CodeNotFound:
		return ErrNotFound
	case protocol.CodeAccessDenied, protocol.CodeInvalidPassword:
		return ErrAccessDenied
	case protocol.CodeLocked:
		return ErrLocked
	case protocol.CodeValidation:
		return ErrValidation
	case protocol.CodeCapacity:
		return ErrCapacity
	case protocol.CodeStateConflict:
		return ErrStateConflict
	default:
		return ErrServer
	}
}

// PrivacyOf returns the session privacy carried by an access denial
func PrivacyOf(err error) model.Privacy {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Privacy
	}
	return ""
}
