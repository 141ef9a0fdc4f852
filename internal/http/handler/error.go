package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"docrepo/internal/http/middleware"
	"docrepo/internal/service"
)

// errorPayload is the body of every error response.
type errorPayload struct {
	RequestID string        `json:"request_id"`
	Error     errorEnvelope `json:"error"`
}

type errorEnvelope struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func writeError(c *fiber.Ctx, status int, code, message string) error {
	return writeFieldError(c, status, code, message, nil)
}

func writeFieldError(c *fiber.Ctx, status int, code, message string, fields map[string]string) error {
	return c.Status(status).JSON(errorPayload{
		RequestID: middleware.RequestIDFromCtx(c),
		Error: errorEnvelope{
			Code:    code,
			Message: message,
			Fields:  fields,
		},
	})
}

var kindStatus = map[service.Kind]int{
	service.KindPermissionDenied: fiber.StatusForbidden,
	service.KindDepartmentScope:  fiber.StatusForbidden,
	service.KindNotFound:         fiber.StatusNotFound,
	service.KindValidation:       fiber.StatusUnprocessableEntity,
	service.KindStorageCleanup:   fiber.StatusInternalServerError,
}

// writeServiceError maps a service error to its status and code. Unclassified errors are
// logged and answered with a generic 500 so internals never reach the client.
func writeServiceError(c *fiber.Ctx, log *zap.Logger, err error) error {
	se, ok := service.AsError(err)
	if !ok || se.Kind == service.KindInternal {
		log.Error("request failed",
			zap.String("request_id", middleware.RequestIDFromCtx(c)),
			zap.String("path", c.Path()),
			zap.Error(err),
		)
		return writeError(c, fiber.StatusInternalServerError, string(service.KindInternal), "internal server error")
	}

	status := kindStatus[se.Kind]
	if se.Kind == service.KindStorageCleanup {
		log.Warn("storage cleanup failed", zap.String("request_id", middleware.RequestIDFromCtx(c)), zap.Error(err))
	}
	return writeFieldError(c, status, string(se.Kind), se.Message, se.Fields)
}

// ErrorHandler returns a Fiber global error handler that standardizes error responses.
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		}

		switch status {
		case fiber.StatusBadRequest:
			return writeError(c, status, "BAD_REQUEST", "bad request")
		case fiber.StatusUnauthorized:
			return writeError(c, status, "UNAUTHORIZED", fe.Message)
		case fiber.StatusNotFound:
			return writeError(c, status, "NOT_FOUND", "resource not found")
		case fiber.StatusMethodNotAllowed:
			return writeError(c, status, "METHOD_NOT_ALLOWED", "method not allowed")
		case fiber.StatusRequestEntityTooLarge:
			return writeError(c, status, "PAYLOAD_TOO_LARGE", "request body too large")
		case fiber.StatusTooManyRequests:
			return writeError(c, status, "RATE_LIMITED", "too many requests")
		default:
			return writeError(c, status, "INTERNAL_ERROR", "internal server error")
		}
	}
}
