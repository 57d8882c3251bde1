package handlers

import (
	"errors"
	"log/slog"
	"strconv"

	"github.com/ahmetk3436/promptdesk/internal/services"
	"github.com/gofiber/fiber/v2"
)

// respondError writes the JSON error body for err, choosing the status from
// the service error kind.
func respondError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrUnauthorized):
		status = fiber.StatusUnauthorized
	case errors.Is(err, services.ErrNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, services.ErrInvalidRequest):
		status = fiber.StatusBadRequest
	case errors.Is(err, services.ErrGenerationUnavailable):
		status = fiber.StatusServiceUnavailable
	}

	message := "Internal server error"
	var svcErr *services.Error
	if errors.As(err, &svcErr) {
		message = svcErr.Message
	}
	if status == fiber.StatusInternalServerError {
		slog.Error("Request failed", "method", c.Method(), "path", c.Path(), "error", err)
		message = "Internal server error"
	}

	return c.Status(status).JSON(fiber.Map{
		"error":   true,
		"message": message,
	})
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error":   true,
		"message": message,
	})
}

// queryInt reads a non-negative integer query parameter.
func queryInt(c *fiber.Ctx, key string, def int) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
