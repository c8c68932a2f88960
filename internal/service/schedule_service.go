package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/lyycrypto/jebalrepository/internal/dto"
	"github.com/lyycrypto/jebalrepository/internal/observability"
	"github.com/lyycrypto/jebalrepository/internal/repository"
	"github.com/lyycrypto/jebalrepository/internal/store"
)

var (
	// ErrImageRequired indicates an upload without a file.
	ErrImageRequired = errors.New("image file is required")
	// ErrImageTooLarge indicates the image exceeded the configured limit.
	ErrImageTooLarge = errors.New("image exceeds maximum allowed size")
	// ErrImageTypeNotAllowed indicates the payload is not an image.
	ErrImageTypeNotAllowed = errors.New("only image files are allowed")
	// ErrInvalidDataURI indicates a value that is not a base64 image data URI.
	ErrInvalidDataURI = errors.New("value is not a base64 image data URI")
)

// ScheduleService manages the single timetable image slot.
type ScheduleService interface {
	Current() dto.ScheduleImageResponse
	Upload(ctx context.Context, file *multipart.FileHeader) (dto.ScheduleImageResponse, error)
	SetDataURI(ctx context.Context, value string) (dto.ScheduleImageResponse, error)
	Remove(ctx context.Context) error
}

type scheduleService struct {
	store   store.Store
	repo    *repository.ScheduleImageRepository
	events  EventPublisher
	maxSize int64
	logger  zerolog.Logger
	tracer  trace.Tracer
}

// NewScheduleService constructs the schedule image service.
func NewScheduleService(st store.Store, repo *repository.ScheduleImageRepository, events EventPublisher, maxSizeMB int, logger zerolog.Logger) ScheduleService {
	if maxSizeMB <= 0 {
		maxSizeMB = 5
	}
	if events == nil {
		events = NewEventPublisher(nil, "", logger)
	}

	return &scheduleService{
		store:   st,
		repo:    repo,
		events:  events,
		maxSize: int64(maxSizeMB) * 1024 * 1024,
		logger:  logger.With().Str("component", "schedule_service").Logger(),
		tracer:  otel.Tracer("github.com/lyycrypto/jebalrepository/internal/service/schedule"),
	}
}

func (s *scheduleService) Current() dto.ScheduleImageResponse {
	value, ok := s.repo.Current()
	if !ok {
		return dto.ScheduleImageResponse{}
	}

	response := dto.ScheduleImageResponse{Present: true, DataURI: value}
	if mime, _, err := parseImageDataURI(value); err == nil {
		response.MimeType = mime
	}
	return response
}

func (s *scheduleService) Upload(ctx context.Context, file *multipart.FileHeader) (dto.ScheduleImageResponse, error) {
	ctx, span := s.tracer.Start(ctx, "schedule.upload")
	defer span.End()

	span.SetAttributes(attribute.Int64("upload.max_bytes", s.maxSize))
	if file == nil {
		span.RecordError(ErrImageRequired)
		span.SetStatus(codes.Error, "validation failed")
		return dto.ScheduleImageResponse{}, ErrImageRequired
	}
	span.SetAttributes(
		attribute.String("upload.original_name", strings.TrimSpace(file.Filename)),
		attribute.Int64("upload.request_size", file.Size),
	)

	if file.Size > s.maxSize {
		span.RecordError(ErrImageTooLarge)
		span.SetStatus(codes.Error, "payload too large")
		return dto.ScheduleImageResponse{}, ErrImageTooLarge
	}

	handle, err := file.Open()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "open failed")
		return dto.ScheduleImageResponse{}, err
	}
	defer handle.Close()

	buf := bytes.NewBuffer(nil)
	if _, err := io.Copy(buf, io.LimitReader(handle, s.maxSize+1)); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "read failed")
		return dto.ScheduleImageResponse{}, err
	}
	if int64(buf.Len()) > s.maxSize {
		span.RecordError(ErrImageTooLarge)
		span.SetStatus(codes.Error, "payload too large")
		return dto.ScheduleImageResponse{}, ErrImageTooLarge
	}

	mime := mimetype.Detect(buf.Bytes()).String()
	mime = strings.TrimSpace(strings.Split(mime, ";")[0])
	span.SetAttributes(attribute.String("upload.detected_mime", mime))
	if !strings.HasPrefix(mime, "image/") {
		span.RecordError(ErrImageTypeNotAllowed)
		span.SetStatus(codes.Error, "type not allowed")
		return dto.ScheduleImageResponse{}, ErrImageTypeNotAllowed
	}

	dataURI := "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
	if err := s.write(ctx, dataURI); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "store failed")
		return dto.ScheduleImageResponse{}, err
	}

	span.SetStatus(codes.Ok, "stored")
	return dto.ScheduleImageResponse{Present: true, DataURI: dataURI, MimeType: mime}, nil
}

func (s *scheduleService) SetDataURI(ctx context.Context, value string) (dto.ScheduleImageResponse, error) {
	ctx, span := s.tracer.Start(ctx, "schedule.set_data_uri")
	defer span.End()

	value = strings.TrimSpace(value)
	mime, payload, err := parseImageDataURI(value)
	if err != nil {
		span.RecordError(err)
		return dto.ScheduleImageResponse{}, err
	}
	if int64(len(payload)) > s.maxSize {
		span.RecordError(ErrImageTooLarge)
		return dto.ScheduleImageResponse{}, ErrImageTooLarge
	}

	if err := s.write(ctx, value); err != nil {
		span.RecordError(err)
		return dto.ScheduleImageResponse{}, err
	}

	return dto.ScheduleImageResponse{Present: true, DataURI: value, MimeType: mime}, nil
}

func (s *scheduleService) Remove(ctx context.Context) error {
	ctx, span := s.tracer.Start(ctx, "schedule.remove")
	defer span.End()

	if err := s.store.RemoveScheduleImage(ctx); err != nil {
		observability.StoreWrites().WithLabelValues("remove_schedule_image", "error").Inc()
		span.RecordError(err)
		return err
	}
	observability.StoreWrites().WithLabelValues("remove_schedule_image", "ok").Inc()

	s.publish(ctx, dto.BoardEvent{Type: dto.EventScheduleRemoved})
	s.logger.Info().Msg("schedule image removed")
	return nil
}

func (s *scheduleService) write(ctx context.Context, dataURI string) error {
	if err := s.store.SetScheduleImage(ctx, dataURI); err != nil {
		observability.StoreWrites().WithLabelValues("set_schedule_image", "error").Inc()
		return fmt.Errorf("failed to write schedule image: %w", err)
	}
	observability.StoreWrites().WithLabelValues("set_schedule_image", "ok").Inc()

	s.publish(ctx, dto.BoardEvent{Type: dto.EventScheduleUpdated})
	s.logger.Info().Int("bytes", len(dataURI)).Msg("schedule image updated")
	return nil
}

func (s *scheduleService) publish(ctx context.Context, event dto.BoardEvent) {
	if err := s.events.Publish(ctx, withRequestIDs(ctx, event)); err != nil {
		s.logger.Warn().Err(err).Str("event_type", event.Type).Msg("failed to publish board event")
	}
}

// parseImageDataURI accepts "data:image/<type>;base64,<payload>" and returns
// the media type together with the decoded bytes.
func parseImageDataURI(value string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(value, "data:")
	if !ok {
		return "", nil, ErrInvalidDataURI
	}

	header, encoded, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, ErrInvalidDataURI
	}

	mime, ok := strings.CutSuffix(header, ";base64")
	if !ok || !strings.HasPrefix(mime, "image/") {
		return "", nil, ErrInvalidDataURI
	}

	payload, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil || len(payload) == 0 {
		return "", nil, ErrInvalidDataURI
	}

	return mime, payload, nil
}
