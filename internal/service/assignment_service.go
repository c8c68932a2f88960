package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/lyycrypto/jebalrepository/internal/dto"
	"github.com/lyycrypto/jebalrepository/internal/observability"
	"github.com/lyycrypto/jebalrepository/internal/repository"
	"github.com/lyycrypto/jebalrepository/internal/store"
)

var (
	// ErrAssignmentNotFound indicates the requested assignment does not exist.
	ErrAssignmentNotFound = errors.New("assignment not found")
	// ErrDraftIncomplete indicates a draft without name or due date; nothing is written.
	ErrDraftIncomplete = errors.New("name and due date are required")
)

// AssignmentService exposes the assignment write paths.
type AssignmentService interface {
	List(ctx context.Context) []dto.AssignmentResponse
	Create(ctx context.Context, payload dto.AssignmentCreateRequest) ([]dto.AssignmentResponse, error)
	Toggle(ctx context.Context, id string) (dto.AssignmentResponse, error)
	SetCompleted(ctx context.Context, id string, completed bool) (dto.AssignmentResponse, error)
	Delete(ctx context.Context, id string) error
}

type assignmentService struct {
	store     store.Store
	repo      *repository.AssignmentRepository
	ids       *IDGenerator
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	events    EventPublisher
	logger    zerolog.Logger
	tracer    trace.Tracer
}

// NewAssignmentService builds a new assignment service.
func NewAssignmentService(st store.Store, repo *repository.AssignmentRepository, ids *IDGenerator, validate *validator.Validate, events EventPublisher, logger zerolog.Logger) AssignmentService {
	if ids == nil {
		ids = NewIDGenerator(nil)
	}
	if events == nil {
		events = NewEventPublisher(nil, "", logger)
	}

	return &assignmentService{
		store:     st,
		repo:      repo,
		ids:       ids,
		validator: validate,
		sanitizer: bluemonday.StrictPolicy(),
		events:    events,
		logger:    logger.With().Str("component", "assignment_service").Logger(),
		tracer:    otel.Tracer("github.com/lyycrypto/jebalrepository/internal/service/assignment"),
	}
}

func (s *assignmentService) List(_ context.Context) []dto.AssignmentResponse {
	return dto.NewAssignmentResponseSlice(sortedAssignments(s.repo))
}

func (s *assignmentService) Create(ctx context.Context, payload dto.AssignmentCreateRequest) ([]dto.AssignmentResponse, error) {
	payload.Subject = strings.TrimSpace(payload.Subject)
	payload.DueDate = strings.TrimSpace(payload.DueDate)
	payload.Name = s.plainText(payload.Name)
	payload.Description = s.plainText(payload.Description)
	if !payload.IsRepeating {
		payload.RepeatCount = 1
	}

	draft := payload.Draft()
	if !draft.Complete() {
		return nil, ErrDraftIncomplete
	}

	if err := s.validator.Struct(payload); err != nil {
		return nil, err
	}

	base, err := s.ids.Reserve(ctx)
	if err != nil {
		return nil, err
	}

	records := Expand(draft, base)
	if len(records) == 0 {
		return nil, ErrDraftIncomplete
	}

	spanCtx, span := s.tracer.Start(ctx, "assignments.create", trace.WithAttributes(
		attribute.String("assignment.subject", draft.Subject),
		attribute.Bool("assignment.repeating", draft.IsRepeating),
		attribute.Int("assignment.count", len(records)),
	))
	defer span.End()

	ids := make([]string, 0, len(records))
	for _, record := range records {
		if err := s.store.PutAssignment(spanCtx, record.ID, record.Record()); err != nil {
			observability.StoreWrites().WithLabelValues("put_assignment", "error").Inc()
			span.RecordError(err)
			s.rollback(context.WithoutCancel(spanCtx), ids)
			return nil, fmt.Errorf("failed to write assignment %s: %w", record.ID, err)
		}
		observability.StoreWrites().WithLabelValues("put_assignment", "ok").Inc()
		ids = append(ids, record.ID)
	}

	s.publish(spanCtx, dto.BoardEvent{Type: dto.EventAssignmentCreated, AssignmentIDs: ids})
	s.logger.Info().Strs("assignment_ids", ids).Str("subject", draft.Subject).Msg("assignments created")

	return dto.NewAssignmentResponseSlice(records), nil
}

func (s *assignmentService) Toggle(ctx context.Context, id string) (dto.AssignmentResponse, error) {
	assignment, ok := s.repo.Get(id)
	if !ok {
		return dto.AssignmentResponse{}, ErrAssignmentNotFound
	}

	return s.SetCompleted(ctx, id, !assignment.Completed)
}

func (s *assignmentService) SetCompleted(ctx context.Context, id string, completed bool) (dto.AssignmentResponse, error) {
	assignment, ok := s.repo.Get(id)
	if !ok {
		return dto.AssignmentResponse{}, ErrAssignmentNotFound
	}

	spanCtx, span := s.tracer.Start(ctx, "assignments.set_completed", trace.WithAttributes(
		attribute.String("assignment.id", id),
		attribute.Bool("assignment.completed", completed),
	))
	defer span.End()

	if err := s.store.SetCompleted(spanCtx, id, completed); err != nil {
		observability.StoreWrites().WithLabelValues("set_completed", "error").Inc()
		if errors.Is(err, store.ErrNotFound) {
			return dto.AssignmentResponse{}, ErrAssignmentNotFound
		}
		span.RecordError(err)
		return dto.AssignmentResponse{}, err
	}
	observability.StoreWrites().WithLabelValues("set_completed", "ok").Inc()

	s.publish(spanCtx, dto.BoardEvent{Type: dto.EventAssignmentCompleted, AssignmentIDs: []string{id}, Completed: &completed})
	s.logger.Info().Str("assignment_id", id).Bool("completed", completed).Msg("assignment completion updated")

	assignment.Completed = completed
	return dto.NewAssignmentResponse(assignment), nil
}

func (s *assignmentService) Delete(ctx context.Context, id string) error {
	if _, ok := s.repo.Get(id); !ok {
		return ErrAssignmentNotFound
	}

	spanCtx, span := s.tracer.Start(ctx, "assignments.delete", trace.WithAttributes(attribute.String("assignment.id", id)))
	defer span.End()

	if err := s.store.DeleteAssignment(spanCtx, id); err != nil {
		observability.StoreWrites().WithLabelValues("delete_assignment", "error").Inc()
		span.RecordError(err)
		return err
	}
	observability.StoreWrites().WithLabelValues("delete_assignment", "ok").Inc()

	s.publish(spanCtx, dto.BoardEvent{Type: dto.EventAssignmentDeleted, AssignmentIDs: []string{id}})
	s.logger.Info().Str("assignment_id", id).Msg("assignment deleted")
	return nil
}

// plainText strips markup but keeps the characters the user typed; the API
// returns JSON and escaping happens where it is rendered.
func (s *assignmentService) plainText(value string) string {
	return strings.TrimSpace(html.UnescapeString(s.sanitizer.Sanitize(value)))
}

// rollback removes the records of a create that failed partway, so a retried
// submit does not duplicate them.
func (s *assignmentService) rollback(ctx context.Context, ids []string) {
	for _, id := range ids {
		if err := s.store.DeleteAssignment(ctx, id); err != nil {
			observability.StoreWrites().WithLabelValues("delete_assignment", "error").Inc()
			s.logger.Error().Err(err).Str("assignment_id", id).Msg("failed to roll back partial create")
			continue
		}
		observability.StoreWrites().WithLabelValues("delete_assignment", "ok").Inc()
	}
	if len(ids) > 0 {
		s.logger.Warn().Strs("assignment_ids", ids).Msg("partial create rolled back")
	}
}

func (s *assignmentService) publish(ctx context.Context, event dto.BoardEvent) {
	if err := s.events.Publish(ctx, withRequestIDs(ctx, event)); err != nil {
		s.logger.Warn().Err(err).Str("event_type", event.Type).Msg("failed to publish board event")
	}
}
