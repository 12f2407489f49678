// Package apperror carries HTTP-aware application errors from services to the
// Fiber error handler.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError is an error with the status, machine code and safe message the
// API returns. Err keeps the underlying cause for logs only.
type AppError struct {
	Status  int
	Code    string
	Message string
	Detail  map[string]any
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail returns a copy of e carrying an extra detail entry.
func (e *AppError) WithDetail(key string, value any) *AppError {
	cp := *e
	cp.Detail = make(map[string]any, len(e.Detail)+1)
	for k, v := range e.Detail {
		cp.Detail[k] = v
	}
	cp.Detail[key] = value
	return &cp
}

// Wrap returns a copy of e with err as its cause.
func (e *AppError) Wrap(err error) *AppError {
	cp := *e
	cp.Err = err
	return &cp
}

// Is matches on status and code so sentinel AppErrors work with errors.Is
// even after WithDetail or Wrap produced a copy.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Status == t.Status && e.Code == t.Code
}

func New(status int, code, message string) *AppError {
	return &AppError{Status: status, Code: code, Message: message}
}

func BadRequest(code, message string) *AppError {
	return New(http.StatusBadRequest, code, message)
}

func Unauthorized(code, message string) *AppError {
	return New(http.StatusUnauthorized, code, message)
}

func Forbidden(code, message string) *AppError {
	return New(http.StatusForbidden, code, message)
}

func NotFound(code, message string) *AppError {
	return New(http.StatusNotFound, code, message)
}

func Conflict(code, message string) *AppError {
	return New(http.StatusConflict, code, message)
}

func Gone(code, message string) *AppError {
	return New(http.StatusGone, code, message)
}

func TooManyRequests(code, message string) *AppError {
	return New(http.StatusTooManyRequests, code, message)
}

func Unavailable(code, message string) *AppError {
	return New(http.StatusServiceUnavailable, code, message)
}

// Internal hides err behind a generic message.
func Internal(err error) *AppError {
	return &AppError{
		Status:  http.StatusInternalServerError,
		Code:    "INTERNAL_ERROR",
		Message: "internal server error",
		Err:     err,
	}
}

// Validation reports field-level problems under detail.fields.
func Validation(fields map[string]string) *AppError {
	return &AppError{
		Status:  http.StatusBadRequest,
		Code:    "VALIDATION_ERROR",
		Message: "request validation failed",
		Detail:  map[string]any{"fields": fields},
	}
}

// As extracts an *AppError from err.
func As(err error) (*AppError, bool) {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}
