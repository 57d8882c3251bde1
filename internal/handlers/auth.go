package handlers

import (
	"log/slog"
	"time"

	"github.com/ahmetk3436/promptdesk/internal/config"
	"github.com/ahmetk3436/promptdesk/internal/middleware"
	"github.com/ahmetk3436/promptdesk/internal/models"
	"github.com/ahmetk3436/promptdesk/internal/services"
	"github.com/gofiber/fiber/v2"
)

type AuthHandler struct {
	cfg   *config.Config
	users *services.UserService
}

func NewAuthHandler(cfg *config.Config, users *services.UserService) *AuthHandler {
	return &AuthHandler{cfg: cfg, users: users}
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req services.RegisterInput
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	user, err := h.users.Register(c.UserContext(), req)
	if err != nil {
		return respondError(c, err)
	}

	slog.Info("User registered", "user_id", user.ID)
	return c.Status(fiber.StatusCreated).JSON(user)
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	user, err := h.users.Authenticate(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return respondError(c, err)
	}
	return h.issueTokens(c, user.ID)
}

func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	claims, err := middleware.ParseToken(req.RefreshToken, h.cfg.JWTSecret, middleware.TokenTypeRefresh)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error":   true,
			"message": "Invalid or expired refresh token",
		})
	}

	user, err := h.users.ActiveUser(c.UserContext(), claims.Subject)
	if err != nil {
		return respondError(c, err)
	}
	return h.issueTokens(c, user.ID)
}

func (h *AuthHandler) issueTokens(c *fiber.Ctx, userID string) error {
	ttl := time.Duration(h.cfg.AccessTokenExpireMinutes) * time.Minute
	access, refresh, err := middleware.GenerateTokens(userID, h.cfg.JWTSecret, ttl)
	if err != nil {
		slog.Error("Failed to generate tokens", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   true,
			"message": "Failed to generate tokens",
		})
	}

	return c.JSON(fiber.Map{
		"access_token":  access,
		"refresh_token": refresh,
		"token_type":    "bearer",
	})
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	user, ok := c.Locals("user").(*models.User)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error":   true,
			"message": "Could not validate credentials",
		})
	}
	return c.JSON(user)
}

func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	var req struct {
		OldPassword string `json:"old_password"`
		NewPassword string `json:"new_password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	userID := middleware.UserID(c)
	if err := h.users.ChangePassword(c.UserContext(), userID, req.OldPassword, req.NewPassword); err != nil {
		return respondError(c, err)
	}

	slog.Info("Password changed", "user_id", userID)
	return c.JSON(fiber.Map{
		"message": "Password changed successfully",
	})
}
