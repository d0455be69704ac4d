package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-admin-query/internal/access"
	"github.com/noah-isme/gema-admin-query/internal/config"
	"github.com/noah-isme/gema-admin-query/internal/handler"
	"github.com/noah-isme/gema-admin-query/internal/middleware"
	"github.com/noah-isme/gema-admin-query/internal/repository"
	"github.com/noah-isme/gema-admin-query/internal/router"
	"github.com/noah-isme/gema-admin-query/internal/service"
	"github.com/noah-isme/gema-admin-query/pkg/ai"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", cfg.AppName).Logger()
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		logger = logger.Level(level)
	}

	dataset, err := repository.OpenDatasetRepository(cfg.DataFile, logger)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.DataFile).Msg("failed to load dataset")
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	directory, err := access.NewDirectory(cfg.Admins, validate)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid admin directory")
	}

	factory := service.OpenAIModelFactory(ai.OpenAIConfig{
		Model:       cfg.OpenAIModel,
		BaseURL:     cfg.OpenAIBaseURL,
		Temperature: cfg.OpenAITemperature,
		Timeout:     cfg.OpenAITimeout,
		Logger:      logger,
	})

	sessions := service.NewSessionService(dataset, directory, service.AgentConfig{
		MaxQueryLength: cfg.QueryMaxLength,
		MaxRounds:      cfg.QueryMaxRounds,
		Timeout:        cfg.OpenAITimeout,
		Window: service.ToolWindow{
			DaysBack:  cfg.QueryDaysBack,
			DaysAhead: cfg.QueryDaysAhead,
		},
	}, factory, logger)

	sessionHandler := handler.NewSessionHandler(
		sessions,
		middleware.RateLimit("queries", cfg.QueryRateLimit, time.Minute),
		logger,
	).WithDefaultCredential(cfg.OpenAIAPIKey)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger, AccessLog: cfg.AppEnv == "development"})
	router.Register(app, cfg, router.Dependencies{
		Dataset:        dataset,
		SessionHandler: sessionHandler,
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	waitForShutdown(app, logger)
}

func waitForShutdown(app *fiber.App, logger zerolog.Logger) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("server stopped")
}
