package serverutils

import (
	"errors"

	"ai-docchat-be/internal/apperr"
	"ai-docchat-be/internal/pkg/logger"

	"github.com/gofiber/fiber/v2"
)

// NewErrorHandler maps domain sentinels to HTTP statuses so controllers can
// return service errors unwrapped.
func NewErrorHandler(log logger.ILogger) fiber.ErrorHandler {
	return func(ctx *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError

		var fiberErr *fiber.Error
		switch {
		case errors.As(err, &fiberErr):
			status = fiberErr.Code
		case errors.Is(err, apperr.ErrNotFound):
			status = fiber.StatusNotFound
		case errors.Is(err, apperr.ErrRemoteUnavailable):
			status = fiber.StatusServiceUnavailable
		case errors.Is(err, apperr.ErrGenerationFailed):
			status = fiber.StatusBadGateway
		}

		if status >= fiber.StatusInternalServerError {
			log.Error("http", "request failed", map[string]interface{}{
				"path":   ctx.Path(),
				"status": status,
				"error":  err.Error(),
			})
		}

		return ctx.Status(status).JSON(BaseResponse[any]{
			Success: false,
			Message: err.Error(),
		})
	}
}
