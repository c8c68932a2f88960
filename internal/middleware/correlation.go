package middleware

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	// CorrelationHeader carries the request correlation id in both directions.
	CorrelationHeader = "X-Correlation-ID"

	correlationLocal = "correlation_id"
	sessionLocal     = "board_session"
)

type requestIDsKey struct{}

// requestIDs travels on the user context so services can tag logs and
// board events without seeing the fiber request.
type requestIDs struct {
	correlation string
	session     string
}

// CorrelationID binds a correlation id (incoming X-Correlation-ID or
// X-Request-ID, otherwise a new uuid) and the board session id, when the
// client sends one, to the request.
func CorrelationID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		incoming := strings.TrimSpace(c.Get(CorrelationHeader))
		if incoming == "" {
			incoming = strings.TrimSpace(c.Get("X-Request-ID"))
		}
		if incoming == "" {
			incoming = uuid.NewString()
		}

		session := strings.TrimSpace(c.Get(SessionHeader))

		c.Locals(correlationLocal, incoming)
		if session != "" {
			c.Locals(sessionLocal, session)
		}
		c.Set(CorrelationHeader, incoming)

		c.SetUserContext(context.WithValue(c.UserContext(), requestIDsKey{}, requestIDs{
			correlation: incoming,
			session:     session,
		}))

		return c.Next()
	}
}

func idsFromContext(ctx context.Context) requestIDs {
	if ctx == nil {
		return requestIDs{}
	}
	ids, _ := ctx.Value(requestIDsKey{}).(requestIDs)
	return ids
}

// CorrelationIDFromContext returns the correlation id stored on ctx, if any.
func CorrelationIDFromContext(ctx context.Context) string {
	return idsFromContext(ctx).correlation
}

// SessionIDFromContext returns the board session id stored on ctx, if any.
func SessionIDFromContext(ctx context.Context) string {
	return idsFromContext(ctx).session
}

// GetCorrelationID returns the correlation id bound to the active request.
func GetCorrelationID(c *fiber.Ctx) string {
	if c == nil {
		return ""
	}
	if id, ok := c.Locals(correlationLocal).(string); ok {
		return id
	}
	return CorrelationIDFromContext(c.UserContext())
}

// GetSessionID returns the board session id sent with the request, if any.
func GetSessionID(c *fiber.Ctx) string {
	if c == nil {
		return ""
	}
	if id, ok := c.Locals(sessionLocal).(string); ok {
		return id
	}
	return ""
}

// ContextWithCorrelation copies the request ids of c onto ctx. An empty
// correlation id leaves ctx untouched.
func ContextWithCorrelation(ctx context.Context, correlationID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	correlationID = strings.TrimSpace(correlationID)
	if correlationID == "" {
		return ctx
	}

	ids := idsFromContext(ctx)
	ids.correlation = correlationID
	return context.WithValue(ctx, requestIDsKey{}, ids)
}
