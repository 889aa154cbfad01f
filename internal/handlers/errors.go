package handlers

import (
	"errors"
	"log/slog"

	"github.com/familyassistant/safety-engine/internal/apperr"
	"github.com/familyassistant/safety-engine/internal/dto"
	"github.com/gofiber/fiber/v2"
)

// respondError maps a service error to an HTTP status. Storage and
// unknown failures are logged and returned as opaque 500s.
func respondError(c *fiber.Ctx, err error) error {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		switch ae.Kind {
		case apperr.KindValidation:
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error: true, Message: ae.Message, Field: ae.Field,
			})
		case apperr.KindNotFound:
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
				Error: true, Message: ae.Message,
			})
		case apperr.KindForbidden:
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
				Error: true, Message: ae.Message,
			})
		case apperr.KindConflict:
			return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{
				Error: true, Message: ae.Message,
			})
		}
	}

	slog.Error("request failed", "method", c.Method(), "path", c.Path(), "error", err.Error())
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
		Error: true, Message: "Internal server error",
	})
}
