// Package errors defines the API error taxonomy and its HTTP mapping.
package errors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/weiwangfds/love-agent/plugin/ai"
)

// ErrorCode identifies an API failure class.
type ErrorCode string

const (
	// ErrCodeInvalidArgument indicates invalid input parameters.
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
	// ErrCodeRateLimitExceeded indicates rate limit has been exceeded.
	ErrCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"
	// ErrCodeServiceUnavailable indicates the completion service is not reachable.
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	// ErrCodeTurnFailed indicates turn processing failed for another reason.
	ErrCodeTurnFailed ErrorCode = "TURN_FAILED"
)

// APIError is a structured error carried to the HTTP response.
type APIError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Cause   error     `json:"-"`
}

func (e *APIError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Cause
}

// HTTPStatus maps the error class to an HTTP status code.
func (e *APIError) HTTPStatus() int {
	switch e.Code {
	case ErrCodeInvalidArgument:
		return http.StatusBadRequest
	case ErrCodeRateLimitExceeded:
		return http.StatusTooManyRequests
	case ErrCodeServiceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// InvalidArgument creates an invalid argument error.
func InvalidArgument(format string, args ...any) *APIError {
	return &APIError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf(format, args...)}
}

// RateLimitExceeded creates a rate limit error.
func RateLimitExceeded() *APIError {
	return &APIError{Code: ErrCodeRateLimitExceeded, Message: "too many requests"}
}

// FromTurn classifies an orchestrator failure. An unavailable completion
// service maps to 503; everything else is an internal turn failure.
func FromTurn(err error) *APIError {
	if errors.Is(err, ai.ErrUnavailable) {
		return &APIError{Code: ErrCodeServiceUnavailable, Message: "completion service unavailable", Cause: err}
	}
	return &APIError{Code: ErrCodeTurnFailed, Message: "turn processing failed", Cause: err}
}
