package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/lyycrypto/jebalrepository/internal/config"
	"github.com/lyycrypto/jebalrepository/internal/utils"
)

// HealthResponse represents the payload returned by the health endpoint.
type HealthResponse struct {
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
	Service     string    `json:"service"`
	Environment string    `json:"environment"`
	StoreDriver string    `json:"storeDriver"`
	Loaded      bool      `json:"loaded"`
}

// HealthCheck returns a handler that reports application health information.
// loaded reports whether the first store snapshot has arrived; until then the
// status is "loading".
func HealthCheck(cfg config.Config, loaded func() bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		payload := HealthResponse{
			Status:      "ok",
			Timestamp:   time.Now().UTC(),
			Service:     cfg.AppName,
			Environment: cfg.AppEnv,
			StoreDriver: cfg.StoreDriver,
			Loaded:      true,
		}
		if loaded != nil && !loaded() {
			payload.Status = "loading"
			payload.Loaded = false
		}

		return utils.SendSuccess(c, "service healthy", payload)
	}
}
