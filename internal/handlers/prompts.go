package handlers

import (
	"strconv"

	"github.com/ahmetk3436/promptdesk/internal/middleware"
	"github.com/ahmetk3436/promptdesk/internal/models"
	"github.com/ahmetk3436/promptdesk/internal/services"
	"github.com/gofiber/fiber/v2"
)

const (
	defaultPromptLimit       = 100
	defaultConversationLimit = 50
)

type PromptHandler struct {
	threads *services.ThreadManager
}

func NewPromptHandler(threads *services.ThreadManager) *PromptHandler {
	return &PromptHandler{threads: threads}
}

// ─── Turns ──────────────────────────────────────────────────────────────────

func (h *PromptHandler) CreatePrompt(c *fiber.Ctx) error {
	var req struct {
		Content        string `json:"content"`
		ConversationID string `json:"conversation_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	p, err := h.threads.CreateTurn(c.UserContext(), middleware.UserID(c), req.Content, req.ConversationID)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(p)
}

func (h *PromptHandler) ListPrompts(c *fiber.Ctx) error {
	skip, ok := queryInt(c, "skip", 0)
	if !ok {
		return badRequest(c, "skip must be a non-negative integer")
	}
	limit, ok := queryInt(c, "limit", defaultPromptLimit)
	if !ok {
		return badRequest(c, "limit must be a non-negative integer")
	}

	prompts, err := h.threads.ListTurns(c.UserContext(), middleware.UserID(c), c.Query("conversation_id"), skip, limit)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(prompts)
}

func (h *PromptHandler) GetPrompt(c *fiber.Ctx) error {
	p, err := h.threads.GetTurn(c.UserContext(), middleware.UserID(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(p)
}

func (h *PromptHandler) DeletePrompt(c *fiber.Ctx) error {
	if err := h.threads.DeleteTurn(c.UserContext(), middleware.UserID(c), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ─── Conversations ──────────────────────────────────────────────────────────

func (h *PromptHandler) ListConversations(c *fiber.Ctx) error {
	limit, ok := queryInt(c, "limit", defaultConversationLimit)
	if !ok {
		return badRequest(c, "limit must be a non-negative integer")
	}

	var archived *bool
	if raw := c.Query("archived"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return badRequest(c, "archived must be true or false")
		}
		archived = &v
	}

	convs, err := h.threads.ListConversations(c.UserContext(), middleware.UserID(c), limit, archived)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(convs)
}

func (h *PromptHandler) UpdateConversation(c *fiber.Ctx) error {
	var patch models.ConversationPatch
	if err := c.BodyParser(&patch); err != nil {
		return badRequest(c, "Invalid request body")
	}

	n, err := h.threads.UpdateConversation(c.UserContext(), middleware.UserID(c), c.Params("id"), patch)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"message":       "Conversation updated successfully",
		"updated_count": n,
	})
}

func (h *PromptHandler) DeleteConversation(c *fiber.Ctx) error {
	if err := h.threads.DeleteConversation(c.UserContext(), middleware.UserID(c), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// DeleteConversations takes a JSON array of conversation ids.
func (h *PromptHandler) DeleteConversations(c *fiber.Ctx) error {
	var ids []string
	if err := c.BodyParser(&ids); err != nil {
		return badRequest(c, "Request body must be a JSON array of conversation IDs")
	}

	if err := h.threads.DeleteConversations(c.UserContext(), middleware.UserID(c), ids); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
