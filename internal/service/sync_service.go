package service

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/lyycrypto/jebalrepository/internal/models"
	"github.com/lyycrypto/jebalrepository/internal/observability"
	"github.com/lyycrypto/jebalrepository/internal/repository"
	"github.com/lyycrypto/jebalrepository/internal/store"
)

// SyncService keeps the projections mirrored on the store and tells live
// clients about every change.
type SyncService interface {
	Start(ctx context.Context) error
	Stop()
}

type syncService struct {
	store       store.Store
	assignments *repository.AssignmentRepository
	images      *repository.ScheduleImageRepository
	board       BoardService
	live        LiveService
	logger      zerolog.Logger

	mu    sync.Mutex
	stops []func()
}

// NewSyncService wires store subscriptions to the projections. live may be nil.
func NewSyncService(st store.Store, assignments *repository.AssignmentRepository, images *repository.ScheduleImageRepository, board BoardService, live LiveService, logger zerolog.Logger) SyncService {
	return &syncService{
		store:       st,
		assignments: assignments,
		images:      images,
		board:       board,
		live:        live,
		logger:      logger.With().Str("component", "sync_service").Logger(),
	}
}

func (s *syncService) Start(ctx context.Context) error {
	stopAssignments, err := s.store.SubscribeAssignments(ctx, s.onAssignments)
	if err != nil {
		return err
	}

	stopImage, err := s.store.SubscribeScheduleImage(ctx, s.onScheduleImage)
	if err != nil {
		stopAssignments()
		return err
	}

	s.mu.Lock()
	s.stops = append(s.stops, stopAssignments, stopImage)
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	s.logger.Info().Msg("store sync started")
	return nil
}

func (s *syncService) Stop() {
	s.mu.Lock()
	stops := s.stops
	s.stops = nil
	s.mu.Unlock()

	for _, stop := range stops {
		stop()
	}
}

func (s *syncService) onAssignments(raw map[string]models.AssignmentRecord) {
	s.assignments.ApplySnapshot(raw)
	observability.SnapshotsApplied().WithLabelValues(store.PathAssignments).Inc()

	completed := 0
	for _, record := range raw {
		if record.Completed {
			completed++
		}
	}
	observability.BoardAssignments().WithLabelValues("open").Set(float64(len(raw) - completed))
	observability.BoardAssignments().WithLabelValues("completed").Set(float64(completed))
	s.logger.Debug().Int("assignments", len(raw)).Uint64("version", s.assignments.Version()).Msg("assignments snapshot applied")
	s.broadcast()
}

func (s *syncService) onScheduleImage(value string) {
	s.images.Apply(value)
	observability.SnapshotsApplied().WithLabelValues(store.PathScheduleImage).Inc()
	s.logger.Debug().Bool("present", value != "").Msg("schedule image snapshot applied")
	s.broadcast()
}

func (s *syncService) broadcast() {
	if s.live == nil || s.board == nil {
		return
	}
	s.live.Broadcast(s.board.Snapshot())
}
