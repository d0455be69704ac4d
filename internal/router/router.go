package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/gema-admin-query/internal/config"
	"github.com/noah-isme/gema-admin-query/internal/handler"
	"github.com/noah-isme/gema-admin-query/internal/observability"
	"github.com/noah-isme/gema-admin-query/internal/repository"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	Dataset        repository.DatasetRepository
	SessionHandler *handler.SessionHandler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.Dataset))

	if deps.SessionHandler != nil {
		deps.SessionHandler.Register(api)
	}
}
