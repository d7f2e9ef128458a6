package pushbullet

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinels for errors.Is classification.
var (
	ErrAuth       = errors.New("pushbullet: authentication failed")
	ErrValidation = errors.New("pushbullet: request rejected")
	ErrService    = errors.New("pushbullet: service error")
)

// AuthError is returned when the access token is invalid, expired or lacks permission.
type AuthError struct {
	Op         string
	StatusCode int
	Type       string
	Message    string
}

func (e *AuthError) Error() string {
	return formatError(e.Op, "authentication failed", e.StatusCode, e.Message)
}

// Is matches ErrAuth.
func (e *AuthError) Is(target error) bool { return target == ErrAuth }

// ValidationError is returned when the server rejects a well-formed request,
// for example an unknown device iden, email or channel tag.
type ValidationError struct {
	Op         string
	StatusCode int
	Type       string
	Message    string
}

func (e *ValidationError) Error() string {
	return formatError(e.Op, "request rejected", e.StatusCode, e.Message)
}

// Is matches ErrValidation.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// ServiceError covers every other failure: unexpected status codes, network
// failures and response bodies that do not decode.
type ServiceError struct {
	Op         string
	StatusCode int // zero when no response was received
	Type       string
	Message    string
	Err        error
}

func (e *ServiceError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	return formatError(e.Op, "service error", e.StatusCode, msg)
}

// Is matches ErrService.
func (e *ServiceError) Is(target error) bool { return target == ErrService }

func (e *ServiceError) Unwrap() error { return e.Err }

// ErrorFromStatus maps a non-2xx status code to the matching error type.
// errType and message come from the server's error body and may be empty.
func ErrorFromStatus(op string, status int, errType, message string) error {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return &AuthError{Op: op, StatusCode: status, Type: errType, Message: message}
	case http.StatusBadRequest, http.StatusNotFound, http.StatusUnprocessableEntity:
		return &ValidationError{Op: op, StatusCode: status, Type: errType, Message: message}
	default:
		return &ServiceError{Op: op, StatusCode: status, Type: errType, Message: message}
	}
}

func formatError(op, kind string, status int, msg string) string {
	s := "pushbullet"
	if op != "" {
		s += " " + op
	}
	s += ": " + kind
	if status != 0 {
		s += fmt.Sprintf(" (status %d)", status)
	}
	if msg != "" {
		s += ": " + msg
	}
	return s
}
