package handlers

import (
	"context"
	"log/slog"
	"time"

	"github.com/ahmetk3436/promptdesk/internal/config"
	"github.com/gofiber/fiber/v2"
)

var startTime = time.Now()
var Version = "1.0.0"

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type SystemHandler struct {
	store             Pinger
	cfg               *config.Config
	generationEnabled bool
}

func NewSystemHandler(store Pinger, cfg *config.Config, generationEnabled bool) *SystemHandler {
	return &SystemHandler{
		store:             store,
		cfg:               cfg,
		generationEnabled: generationEnabled,
	}
}

func (h *SystemHandler) Health(c *fiber.Ctx) error {
	storeStatus := "ok"
	statusCode := fiber.StatusOK

	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()
	if err := h.store.Ping(ctx); err != nil {
		slog.Warn("Store ping failed", "error", err)
		storeStatus = "unreachable"
		statusCode = fiber.StatusServiceUnavailable
	}

	overall := "ok"
	if statusCode != fiber.StatusOK {
		overall = "degraded"
	}

	return c.Status(statusCode).JSON(fiber.Map{
		"status":      overall,
		"service":     "promptdesk",
		"version":     Version,
		"environment": h.cfg.Environment,
		"time":        time.Now().UTC().Format(time.RFC3339),
		"uptime":      time.Since(startTime).String(),
		"store":       storeStatus,
	})
}

// Info describes the running configuration to authenticated clients.
func (h *SystemHandler) Info(c *fiber.Ctx) error {
	provider := h.cfg.CompletionProvider
	if !h.generationEnabled {
		provider = "none"
	}

	return c.JSON(fiber.Map{
		"version":             Version,
		"uptime":              time.Since(startTime).String(),
		"store_driver":        h.cfg.StoreDriver,
		"completion_provider": provider,
		"generation_enabled":  h.generationEnabled,
	})
}
