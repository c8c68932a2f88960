package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/lyycrypto/jebalrepository/internal/config"
	"github.com/lyycrypto/jebalrepository/internal/handler"
	"github.com/lyycrypto/jebalrepository/internal/middleware"
	"github.com/lyycrypto/jebalrepository/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	AssignmentHandler    *handler.AssignmentHandler
	ViewHandler          *handler.ViewHandler
	SubjectHandler       *handler.SubjectHandler
	ScheduleImageHandler *handler.ScheduleImageHandler
	LiveHandler          *handler.LiveHandler
	SessionHandler       *handler.SessionHandler
	Loaded               func() bool
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.Loaded))

	var writeLimiter fiber.Handler
	if cfg.RateLimitMax > 0 {
		writeLimiter = middleware.RateLimit("writes", cfg.RateLimitMax, cfg.RateLimitWindow)
	}

	if deps.SubjectHandler != nil {
		deps.SubjectHandler.Register(api.Group("/subjects"))
	}

	if deps.AssignmentHandler != nil {
		deps.AssignmentHandler.Register(api.Group("/assignments"), writeLimiter)
	}

	if deps.ViewHandler != nil {
		deps.ViewHandler.Register(api.Group("/views"))
	}

	if deps.ScheduleImageHandler != nil {
		deps.ScheduleImageHandler.Register(api.Group("/schedule-image"), writeLimiter)
	}

	if deps.LiveHandler != nil {
		deps.LiveHandler.Register(api.Group("/live"))
	}

	if deps.SessionHandler != nil {
		deps.SessionHandler.Register(api.Group("/sessions"), writeLimiter)
	}
}
