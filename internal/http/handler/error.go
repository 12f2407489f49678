package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"llouest/internal/apperror"
	"llouest/internal/http/middleware"
	"llouest/internal/logger"
)

// errorPayload defines the standardized error response body.
type errorPayload struct {
	RequestID string        `json:"request_id"`
	Error     errorEnvelope `json:"error"`
}

type errorEnvelope struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Detail  map[string]any `json:"detail,omitempty"`
}

// requestIDFromCtx extracts request_id previously stored by middleware.RequestID.
func requestIDFromCtx(c *fiber.Ctx) string {
	if v := c.Locals(middleware.RequestIDLocalKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// writeError writes a standardized JSON error response without leaking internal errors.
//
// Parameters:
// - status: HTTP status code to return
// - code: machine-readable short error code (e.g., "INVALID_ID", "NOT_FOUND", "INTERNAL_ERROR")
// - message: human-readable safe message (no internal details)
// - detail: optional structured hints (redirect, attempts_left, fields)
func writeError(c *fiber.Ctx, status int, code, message string, detail map[string]any) error {
	res := errorPayload{
		RequestID: requestIDFromCtx(c),
		Error: errorEnvelope{
			Code:    code,
			Message: message,
			Detail:  detail,
		},
	}
	return c.Status(status).JSON(res)
}

// ErrorHandler returns a Fiber global error handler that standardizes error responses.
// Services return *apperror.AppError; its wrapped cause is logged for 5xx and never sent.
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		if ae, ok := apperror.As(err); ok {
			if ae.Status >= fiber.StatusInternalServerError {
				logger.FromContext(c.UserContext()).Error().
					Err(ae.Err).
					Str("code", ae.Code).
					Str("method", c.Method()).
					Str("path", c.Path()).
					Msg("request failed")
			}
			return writeError(c, ae.Status, ae.Code, ae.Message, ae.Detail)
		}

		status := fiber.StatusInternalServerError
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		}

		switch status {
		case fiber.StatusBadRequest:
			return writeError(c, status, "BAD_REQUEST", "bad request", nil)
		case fiber.StatusNotFound:
			return writeError(c, status, "NOT_FOUND", "resource not found", nil)
		case fiber.StatusMethodNotAllowed:
			return writeError(c, status, "METHOD_NOT_ALLOWED", "method not allowed", nil)
		case fiber.StatusRequestEntityTooLarge:
			return writeError(c, status, "PAYLOAD_TOO_LARGE", "request body too large", nil)
		case fiber.StatusTooManyRequests:
			return writeError(c, status, "RATE_LIMITED", "too many requests, try again later", nil)
		case fiber.StatusUnsupportedMediaType:
			return writeError(c, status, "UNSUPPORTED_MEDIA_TYPE", "unsupported media type", nil)
		default:
			logger.FromContext(c.UserContext()).Error().Err(err).
				Str("method", c.Method()).
				Str("path", c.Path()).
				Msg("unhandled error")
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error", nil)
		}
	}
}
