package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/lyycrypto/jebalrepository/internal/dto"
	"github.com/lyycrypto/jebalrepository/internal/middleware"
	"github.com/lyycrypto/jebalrepository/internal/observability"
)

// EventPublisher announces board writes to whoever listens outside the service.
type EventPublisher interface {
	Publish(ctx context.Context, event dto.BoardEvent) error
}

type natsEventPublisher struct {
	conn    *nats.Conn
	subject string
	nodeID  string
	logger  zerolog.Logger
}

// NewEventPublisher publishes on "{base}.assignments". A nil connection yields a
// publisher that drops every event.
func NewEventPublisher(conn *nats.Conn, subjectBase string, logger zerolog.Logger) EventPublisher {
	subject := ""
	if subjectBase != "" {
		subject = strings.ReplaceAll(subjectBase, ":", ".") + ".assignments"
	}

	return &natsEventPublisher{
		conn:    conn,
		subject: subject,
		nodeID:  uuid.NewString(),
		logger:  logger.With().Str("component", "event_publisher").Logger(),
	}
}

func (p *natsEventPublisher) Publish(_ context.Context, event dto.BoardEvent) error {
	if p.conn == nil || p.subject == "" {
		return nil
	}

	event.Source = p.nodeID
	if event.SentAt.IsZero() {
		event.SentAt = time.Now().UTC()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if err := p.conn.Publish(p.subject, payload); err != nil {
		return err
	}

	observability.EventsPublished().WithLabelValues(event.Type).Inc()
	p.logger.Debug().Str("event_type", event.Type).Msg("board event published")
	return nil
}

// withRequestIDs tags event with the correlation and board session ids the
// request middleware left on ctx.
func withRequestIDs(ctx context.Context, event dto.BoardEvent) dto.BoardEvent {
	if event.CorrelationID == "" {
		event.CorrelationID = middleware.CorrelationIDFromContext(ctx)
	}
	if event.SessionID == "" {
		event.SessionID = middleware.SessionIDFromContext(ctx)
	}
	return event
}
