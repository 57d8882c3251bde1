package handlers

import (
	"github.com/ahmetk3436/promptdesk/internal/services"
	"github.com/gofiber/fiber/v2"
)

const defaultStatusLimit = 1000

type StatusHandler struct {
	checks *services.StatusService
}

func NewStatusHandler(checks *services.StatusService) *StatusHandler {
	return &StatusHandler{checks: checks}
}

func (h *StatusHandler) CreateStatusCheck(c *fiber.Ctx) error {
	var req struct {
		ClientName string `json:"client_name"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	sc, err := h.checks.Create(c.UserContext(), req.ClientName)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(sc)
}

func (h *StatusHandler) ListStatusChecks(c *fiber.Ctx) error {
	skip, ok := queryInt(c, "skip", 0)
	if !ok {
		return badRequest(c, "skip must be a non-negative integer")
	}
	limit, ok := queryInt(c, "limit", defaultStatusLimit)
	if !ok {
		return badRequest(c, "limit must be a non-negative integer")
	}

	checks, err := h.checks.List(c.UserContext(), skip, limit)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(checks)
}
