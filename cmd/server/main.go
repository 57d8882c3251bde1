package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"

	"github.com/ahmetk3436/promptdesk/internal/config"
	"github.com/ahmetk3436/promptdesk/internal/database"
	"github.com/ahmetk3436/promptdesk/internal/handlers"
	"github.com/ahmetk3436/promptdesk/internal/middleware"
	"github.com/ahmetk3436/promptdesk/internal/routes"
	"github.com/ahmetk3436/promptdesk/internal/services"
	"github.com/ahmetk3436/promptdesk/internal/store"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

func main() {
	// ─── Config ──────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	// JSON structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	slog.Info("Starting PromptDesk", "version", handlers.Version, "environment", cfg.Environment)

	// ─── Store ───────────────────────────────────────────────────────────
	st, err := openStore(context.Background(), cfg)
	if err != nil {
		slog.Error("Store initialization failed", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}

	// ─── Completion provider ────────────────────────────────────────────
	provider := newProvider(cfg)

	// ─── Services ───────────────────────────────────────────────────────
	userService := services.NewUserService(st)
	threadManager := services.NewThreadManager(st, provider, cfg.GenerationTimeout)
	statusService := services.NewStatusService(st)

	// ─── Handlers ───────────────────────────────────────────────────────
	authHandler := handlers.NewAuthHandler(cfg, userService)
	promptHandler := handlers.NewPromptHandler(threadManager)
	statusHandler := handlers.NewStatusHandler(statusService)
	systemHandler := handlers.NewSystemHandler(st, cfg, threadManager.GenerationEnabled())

	// ─── Fiber App ──────────────────────────────────────────────────────
	app := fiber.New(fiber.Config{
		AppName:      "promptdesk v" + handlers.Version,
		ServerHeader: "promptdesk",
		BodyLimit:    1 * 1024 * 1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			message := "Internal server error"
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
				message = e.Message
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": message,
			})
		},
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(cfg.CORSOriginList(), ","),
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET, POST, PUT, DELETE, PATCH, OPTIONS",
		AllowCredentials: !slices.Contains(cfg.CORSOriginList(), "*"),
	}))

	app.Use(recover.New(recover.Config{
		EnableStackTrace: false,
	}))

	app.Use(middleware.SecurityHeaders())
	app.Use(middleware.RequestLogger())

	// ─── Routes ─────────────────────────────────────────────────────────
	routes.Setup(app, cfg, userService, authHandler, promptHandler, statusHandler, systemHandler)

	// ─── Graceful Shutdown ──────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		slog.Info("Shutting down PromptDesk...")

		if err := app.Shutdown(); err != nil {
			slog.Error("Fiber shutdown error", "error", err)
		}
		if err := st.Close(); err != nil {
			slog.Error("Store close error", "error", err)
		}
	}()

	// ─── Start ──────────────────────────────────────────────────────────
	listenAddr := ":" + cfg.Port
	slog.Info("PromptDesk listening", "addr", listenAddr)

	if err := app.Listen(listenAddr); err != nil {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}
}

func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	if cfg.StoreDriver == "mongo" {
		client, err := database.ConnectMongo(ctx, cfg)
		if err != nil {
			return nil, err
		}
		ms := store.NewMongoStore(client, cfg.MongoDB)
		if err := ms.EnsureIndexes(ctx); err != nil {
			ms.Close()
			return nil, fmt.Errorf("ensuring indexes: %w", err)
		}
		return ms, nil
	}

	db, err := database.Connect(cfg)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		return nil, fmt.Errorf("database migration failed: %w", err)
	}
	return store.NewGormStore(db), nil
}

func newProvider(cfg *config.Config) services.CompletionProvider {
	switch cfg.CompletionProvider {
	case "openai":
		slog.Info("Completion provider configured", "provider", "openai", "model", cfg.OpenAIModel)
		return services.NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel, cfg.GenerationTimeout)
	case "none":
		slog.Warn("COMPLETION_PROVIDER=none, prompts will be stored with a placeholder response")
		return nil
	default:
		slog.Info("Completion provider configured", "provider", "ollama", "url", cfg.OllamaBaseURL, "model", cfg.OllamaModel)
		return services.NewOllamaProvider(cfg.OllamaBaseURL, cfg.OllamaModel, cfg.GenerationTimeout)
	}
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}
