package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"
)

// accessLogFormat adds the correlation header to fiber's default line.
const accessLogFormat = "${time} | ${status} | ${latency} | ${method} ${path} | ${respHeader:" + CorrelationHeader + "}\n"

// Config customises the middleware pipeline.
type Config struct {
	// Logger receives per-request api logs; nil disables them.
	Logger *zerolog.Logger
	// AccessLog enables fiber's plain-text access log, for local development.
	AccessLog bool
	// AllowOrigins is passed to CORS; empty allows any origin.
	AllowOrigins string
}

// Register attaches the middlewares shared by every route.
func Register(app *fiber.App, cfg Config) {
	requestLogger := zerolog.Nop()
	if cfg.Logger != nil {
		requestLogger = cfg.Logger.With().Str("component", "http").Logger()
	}
	origins := cfg.AllowOrigins
	if origins == "" {
		origins = "*"
	}

	app.Use(recover.New())
	app.Use(CorrelationID())
	app.Use(Observability(requestLogger))
	if cfg.AccessLog {
		app.Use(logger.New(logger.Config{Format: accessLogFormat}))
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:  origins,
		AllowHeaders:  "Origin, Content-Type, Accept, " + CorrelationHeader,
		AllowMethods:  "GET,POST,PUT,DELETE,OPTIONS",
		ExposeHeaders: CorrelationHeader,
	}))
}
