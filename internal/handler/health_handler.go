package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/gema-admin-query/internal/config"
	"github.com/noah-isme/gema-admin-query/internal/repository"
	"github.com/noah-isme/gema-admin-query/internal/utils"
)

// HealthResponse represents the payload returned by the health endpoint.
type HealthResponse struct {
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
	Service     string    `json:"service"`
	Environment string    `json:"environment"`
	Students    int       `json:"students"`
	Quizzes     int       `json:"quizzes"`
}

// HealthCheck returns a handler that reports service health and dataset size.
func HealthCheck(cfg config.Config, repo repository.DatasetRepository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		payload := HealthResponse{
			Status:      "ok",
			Timestamp:   time.Now().UTC(),
			Service:     cfg.AppName,
			Environment: cfg.AppEnv,
		}
		if repo != nil {
			payload.Students, payload.Quizzes = repo.Counts()
		}

		return utils.OK(c, payload, "service healthy", nil)
	}
}
