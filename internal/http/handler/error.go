package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"safetyagent/internal/http/middleware"
	"safetyagent/internal/service"
)

// errorPayload defines the standardized error response body.
type errorPayload struct {
	Success   bool          `json:"success"`
	RequestID string        `json:"request_id"`
	Error     errorEnvelope `json:"error"`
}

type errorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// successPayload wraps every successful response.
type successPayload struct {
	Success bool `json:"success"`
	Data    any  `json:"data,omitempty"`
}

func writeData(c *fiber.Ctx, status int, data any) error {
	return c.Status(status).JSON(successPayload{Success: true, Data: data})
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

// writeError writes a standardized JSON error response.
// message must be safe to show to clients.
func writeError(c *fiber.Ctx, status int, code, message string) error {
	res := errorPayload{
		RequestID: requestIDFromCtx(c),
		Error: errorEnvelope{
			Code:    code,
			Message: message,
		},
	}
	return c.Status(status).JSON(res)
}

// writeServiceError maps service sentinel errors to HTTP responses.
// Internal errors are logged with the request id and never echoed.
func writeServiceError(c *fiber.Ctx, log *zap.Logger, err error) error {
	switch {
	case errors.Is(err, service.ErrValidation), errors.Is(err, service.ErrReaderNil):
		return writeError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", err.Error())
	case errors.Is(err, service.ErrNotFound):
		return writeError(c, fiber.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, service.ErrInvalidStateTransition):
		return writeError(c, fiber.StatusConflict, "INVALID_STATE_TRANSITION", err.Error())
	}
	log.Error("request_failed",
		zap.String("request_id", requestIDFromCtx(c)),
		zap.String("path", c.Path()),
		zap.Error(err),
	)
	return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
}

// ErrorHandler returns a Fiber global error handler that standardizes error responses.
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		message := ""
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
			message = fe.Message
		}

		switch status {
		case fiber.StatusBadRequest:
			if message == "" || message == fiber.ErrBadRequest.Message {
				message = "bad request"
			}
			return writeError(c, status, "BAD_REQUEST", message)
		case fiber.StatusNotFound:
			return writeError(c, status, "NOT_FOUND", "resource not found")
		case fiber.StatusMethodNotAllowed:
			return writeError(c, status, "METHOD_NOT_ALLOWED", "method not allowed")
		case fiber.StatusRequestEntityTooLarge:
			return writeError(c, status, "PAYLOAD_TOO_LARGE", "upload exceeds the size limit")
		default:
			return writeError(c, status, "INTERNAL_ERROR", "internal server error")
		}
	}
}
