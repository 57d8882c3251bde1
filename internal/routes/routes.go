package routes

import (
	"github.com/ahmetk3436/promptdesk/internal/config"
	"github.com/ahmetk3436/promptdesk/internal/handlers"
	"github.com/ahmetk3436/promptdesk/internal/middleware"
	"github.com/gofiber/fiber/v2"
)

func Setup(
	app *fiber.App,
	cfg *config.Config,
	users middleware.UserLookup,
	authHandler *handlers.AuthHandler,
	promptHandler *handlers.PromptHandler,
	statusHandler *handlers.StatusHandler,
	systemHandler *handlers.SystemHandler,
) {
	// ─── Public ──────────────────────────────────────────────────────────
	app.Get("/api/health", systemHandler.Health)
	app.Post("/api/status", statusHandler.CreateStatusCheck)
	app.Get("/api/status", statusHandler.ListStatusChecks)

	// ─── Auth ────────────────────────────────────────────────────────────
	app.Post("/api/auth/register", authHandler.Register)
	app.Post("/api/auth/login", authHandler.Login)
	app.Post("/api/auth/refresh", authHandler.Refresh)

	// ─── Protected routes ────────────────────────────────────────────────
	api := app.Group("/api", middleware.JWTProtected(cfg.JWTSecret, users))

	// Auth (protected)
	api.Get("/auth/me", authHandler.Me)
	api.Put("/auth/password", authHandler.ChangePassword)

	// System
	api.Get("/system/info", systemHandler.Info)

	// Prompts. Conversation routes come first so "conversations" is never read as a prompt id.
	prompts := api.Group("/prompts")
	prompts.Get("/conversations", promptHandler.ListConversations)
	prompts.Delete("/conversations", promptHandler.DeleteConversations)
	prompts.Patch("/conversations/:id", promptHandler.UpdateConversation)
	prompts.Delete("/conversations/:id", promptHandler.DeleteConversation)

	prompts.Post("/", promptHandler.CreatePrompt)
	prompts.Get("/", promptHandler.ListPrompts)
	prompts.Get("/:id", promptHandler.GetPrompt)
	prompts.Delete("/:id", promptHandler.DeletePrompt)
}
