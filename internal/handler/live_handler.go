package handler

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/lyycrypto/jebalrepository/internal/middleware"
	"github.com/lyycrypto/jebalrepository/internal/service"
)

// LiveHandler streams board snapshots over websocket and server-sent events.
type LiveHandler struct {
	service   service.LiveService
	logger    zerolog.Logger
	keepalive time.Duration
}

// NewLiveHandler constructs a handler instance.
func NewLiveHandler(service service.LiveService, keepalive time.Duration, logger zerolog.Logger) *LiveHandler {
	return &LiveHandler{
		service:   service,
		logger:    logger.With().Str("component", "live_handler").Logger(),
		keepalive: keepalive,
	}
}

// Register binds the live routes.
func (h *LiveHandler) Register(router fiber.Router) {
	router.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("request_ctx", requestContext(c))
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	router.Get("/ws", websocket.New(h.handleConnection))
	router.Get("/stream", h.stream)
}

func (h *LiveHandler) handleConnection(conn *websocket.Conn) {
	clientID := strings.TrimSpace(conn.Query("session"))
	correlation := fmt.Sprint(conn.Locals("correlation_id"))
	baseCtx, _ := conn.Locals("request_ctx").(context.Context)

	opts := service.LiveConnectionOptions{
		ClientID:      clientID,
		CorrelationID: correlation,
		Context:       baseCtx,
	}

	h.logger.Info().Str("client_id", clientID).Str("correlation_id", correlation).Msg("live websocket connected")
	h.service.ServeConnection(conn, opts)
	h.logger.Info().Str("client_id", clientID).Str("correlation_id", correlation).Msg("live websocket disconnected")
}

func (h *LiveHandler) stream(c *fiber.Ctx) error {
	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	ctx := middleware.ContextWithCorrelation(context.Background(), middleware.GetCorrelationID(c))
	ctx, cancel := context.WithCancel(ctx)

	stream, cleanup := h.service.Subscribe()

	keepAliveInterval := h.keepalive
	if keepAliveInterval <= 0 {
		keepAliveInterval = 30 * time.Second
	}

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer func() {
			cleanup()
			cancel()
		}()

		ticker := time.NewTicker(keepAliveInterval / 2)
		defer ticker.Stop()

		for {
			select {
			case snapshot, ok := <-stream:
				if !ok {
					return
				}
				if err := writeSnapshotEvent(w, snapshot); err != nil {
					h.logger.Debug().Err(err).Msg("failed to write snapshot event")
					return
				}
			case <-ticker.C:
				if err := writeKeepAlive(w); err != nil {
					h.logger.Debug().Err(err).Msg("failed to write stream keepalive")
					return
				}
			case <-ctx.Done():
				return
			}
		}
	})

	return nil
}

func writeSnapshotEvent(w *bufio.Writer, snapshot interface{}) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "event: snapshot\n"); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
		return err
	}
	return w.Flush()
}

func writeKeepAlive(w *bufio.Writer) error {
	if _, err := fmt.Fprintf(w, ": keep-alive %s\n\n", time.Now().UTC().Format(time.RFC3339)); err != nil {
		return err
	}
	return w.Flush()
}
