package middleware

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

// SessionHeader carries the board session id of the calling client.
const SessionHeader = "X-Board-Session"

// RateLimit creates a per-client rate limiter middleware instance. Clients are
// keyed by the board session resolved by CorrelationID, then the raw header,
// then the remote IP.
func RateLimit(identifier string, max int, window time.Duration) fiber.Handler {
	if max <= 0 {
		max = 10
	}
	if window <= 0 {
		window = time.Second
	}

	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: window,
		KeyGenerator: func(c *fiber.Ctx) string {
			client := GetSessionID(c)
			if client == "" {
				client = strings.TrimSpace(c.Get(SessionHeader))
			}
			if client == "" {
				client = c.IP()
			}
			return fmt.Sprintf("%s:%s", identifier, client)
		},
	})
}
