package service

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/lyycrypto/jebalrepository/internal/dto"
	"github.com/lyycrypto/jebalrepository/internal/repository"
	"github.com/lyycrypto/jebalrepository/internal/store"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

type recordingPublisher struct {
	events chan dto.BoardEvent
}

func newRecordingPublisher() *recordingPublisher {
	return &recordingPublisher{events: make(chan dto.BoardEvent, 64)}
}

func (p *recordingPublisher) Publish(_ context.Context, event dto.BoardEvent) error {
	p.events <- event
	return nil
}

type boardFixture struct {
	redis       *miniredis.Miniredis
	client      *redis.Client
	store       store.Store
	assignments *repository.AssignmentRepository
	images      *repository.ScheduleImageRepository
	events      *recordingPublisher
	live        LiveService
	board       BoardService
	service     AssignmentService
	schedule    ScheduleService
	sync        SyncService
}

func newBoardFixture(t *testing.T) *boardFixture {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	st, err := store.NewRedisStore(ctx, client, "test", testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	f := &boardFixture{
		redis:       mr,
		client:      client,
		store:       st,
		assignments: repository.NewAssignmentRepository(),
		images:      repository.NewScheduleImageRepository(),
		events:      newRecordingPublisher(),
	}

	f.board = NewBoardService(f.assignments, f.images, time.UTC, testLogger())
	f.live = NewLiveService(f.board.Snapshot, time.Second, testLogger())
	f.service = NewAssignmentService(st, f.assignments, NewIDGenerator(nil), validator.New(validator.WithRequiredStructEnabled()), f.events, testLogger())
	f.schedule = NewScheduleService(st, f.images, f.events, 1, testLogger())
	f.sync = NewSyncService(st, f.assignments, f.images, f.board, f.live, testLogger())

	require.NoError(t, f.sync.Start(ctx))
	require.Eventually(t, f.assignments.Loaded, time.Second, 5*time.Millisecond)

	return f
}

func (f *boardFixture) waitForCount(t *testing.T, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return len(f.assignments.All()) == n
	}, 2*time.Second, 5*time.Millisecond)
}

func (f *boardFixture) nextEvent(t *testing.T) dto.BoardEvent {
	t.Helper()
	select {
	case event := <-f.events.events:
		return event
	case <-time.After(time.Second):
		t.Fatal("expected a board event")
		return dto.BoardEvent{}
	}
}
