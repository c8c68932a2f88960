package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/lyycrypto/jebalrepository/internal/dto"
	"github.com/lyycrypto/jebalrepository/internal/middleware"
	"github.com/lyycrypto/jebalrepository/internal/models"
	"github.com/lyycrypto/jebalrepository/internal/repository"
	"github.com/lyycrypto/jebalrepository/internal/store"
)

func TestAssignmentServiceCreateRepeating(t *testing.T) {
	f := newBoardFixture(t)

	ctx := middleware.ContextWithCorrelation(context.Background(), "corr-42")
	created, err := f.service.Create(ctx, dto.AssignmentCreateRequest{
		Subject:     "수학공통",
		DueDate:     "2024-03-04",
		Name:        "HW",
		IsRepeating: true,
		RepeatCount: 3,
	})
	require.NoError(t, err)
	require.Len(t, created, 3)
	require.Equal(t, "HW(1)", created[0].Name)
	require.Equal(t, "2024-03-18", created[2].DueDate)
	require.Equal(t, models.StyleFor("수학공통"), created[0].Style)

	f.waitForCount(t, 3)
	event := f.nextEvent(t)
	require.Equal(t, dto.EventAssignmentCreated, event.Type)
	require.Len(t, event.AssignmentIDs, 3)
	require.Equal(t, "corr-42", event.CorrelationID)

	listed := f.service.List(context.Background())
	require.Equal(t, []string{"2024-03-04", "2024-03-11", "2024-03-18"}, []string{listed[0].DueDate, listed[1].DueDate, listed[2].DueDate})
}

func TestAssignmentServiceCreateStripsMarkupAndDefaultsSubject(t *testing.T) {
	f := newBoardFixture(t)

	created, err := f.service.Create(context.Background(), dto.AssignmentCreateRequest{
		DueDate:     "2024-03-05",
		Name:        "<b>Quiz</b>",
		Description: "<script>alert(1)</script>chapter 2",
		RepeatCount: 9,
	})
	require.NoError(t, err)
	require.Len(t, created, 1)
	require.Equal(t, "Quiz", created[0].Name)
	require.Equal(t, "chapter 2", created[0].Description)
	require.Equal(t, "국어", created[0].Subject)
	require.False(t, created[0].Completed)
}

func TestAssignmentServiceCreateStoresTextAsTyped(t *testing.T) {
	f := newBoardFixture(t)
	ctx := context.Background()

	created, err := f.service.Create(ctx, dto.AssignmentCreateRequest{
		Subject:     "수학공통",
		DueDate:     "2024-05-01",
		Name:        "p.3 & p.4 (x < 3)",
		Description: "Tom's notes",
	})
	require.NoError(t, err)
	require.Len(t, created, 1)
	require.Equal(t, "p.3 & p.4 (x < 3)", created[0].Name)
	require.Equal(t, "Tom's notes", created[0].Description)

	stored, err := f.client.HGetAll(ctx, "test:assignments:"+created[0].ID).Result()
	require.NoError(t, err)
	require.Equal(t, "p.3 & p.4 (x < 3)", stored["name"])
	require.Equal(t, "Tom's notes", stored["description"])

	repeated, err := f.service.Create(ctx, dto.AssignmentCreateRequest{
		Subject:     "영어",
		DueDate:     "2024-05-01",
		Name:        "A&B",
		IsRepeating: true,
		RepeatCount: 2,
	})
	require.NoError(t, err)
	require.Equal(t, "A&B(1)", repeated[0].Name)
	require.Equal(t, "A&B(2)", repeated[1].Name)
}

func TestAssignmentServiceCreateRequiresRepeatCountWhenRepeating(t *testing.T) {
	f := newBoardFixture(t)

	_, err := f.service.Create(context.Background(), dto.AssignmentCreateRequest{
		DueDate:     "2024-03-05",
		Name:        "HW",
		IsRepeating: true,
	})
	var validationErrors validator.ValidationErrors
	require.True(t, errors.As(err, &validationErrors))

	time.Sleep(50 * time.Millisecond)
	require.Empty(t, f.assignments.All())
}

type failingPutStore struct {
	store.Store
	mu        sync.Mutex
	failAfter int
	written   []string
}

func (s *failingPutStore) PutAssignment(ctx context.Context, id string, record models.AssignmentRecord) error {
	s.mu.Lock()
	if len(s.written) >= s.failAfter {
		s.mu.Unlock()
		return errors.New("store unavailable")
	}
	s.written = append(s.written, id)
	s.mu.Unlock()
	return s.Store.PutAssignment(ctx, id, record)
}

func TestAssignmentServiceCreateRollsBackPartialWrites(t *testing.T) {
	f := newBoardFixture(t)
	ctx := context.Background()

	flaky := &failingPutStore{Store: f.store, failAfter: 2}
	svc := NewAssignmentService(flaky, f.assignments, NewIDGenerator(nil), validator.New(validator.WithRequiredStructEnabled()), f.events, testLogger())

	_, err := svc.Create(ctx, dto.AssignmentCreateRequest{
		Subject:     "국어",
		DueDate:     "2024-03-04",
		Name:        "HW",
		IsRepeating: true,
		RepeatCount: 4,
	})
	require.Error(t, err)
	require.Len(t, flaky.written, 2)

	members, err := f.client.SMembers(ctx, "test:assignments").Result()
	require.NoError(t, err)
	require.Empty(t, members)
	for _, id := range flaky.written {
		exists, err := f.client.Exists(ctx, "test:assignments:"+id).Result()
		require.NoError(t, err)
		require.Zero(t, exists, id)
	}

	f.waitForCount(t, 0)
	select {
	case event := <-f.events.events:
		t.Fatalf("unexpected event %s", event.Type)
	default:
	}
}

func TestAssignmentServiceCreateRejectsIncompleteDraft(t *testing.T) {
	f := newBoardFixture(t)

	_, err := f.service.Create(context.Background(), dto.AssignmentCreateRequest{DueDate: "2024-03-05"})
	require.ErrorIs(t, err, ErrDraftIncomplete)

	_, err = f.service.Create(context.Background(), dto.AssignmentCreateRequest{Name: "x"})
	require.ErrorIs(t, err, ErrDraftIncomplete)

	time.Sleep(50 * time.Millisecond)
	require.Empty(t, f.assignments.All())
}

func TestAssignmentServiceCreateValidatesPayload(t *testing.T) {
	f := newBoardFixture(t)

	_, err := f.service.Create(context.Background(), dto.AssignmentCreateRequest{
		DueDate:     "2024/03/05",
		Name:        "HW",
		IsRepeating: true,
		RepeatCount: 2,
	})
	var validationErrors validator.ValidationErrors
	require.True(t, errors.As(err, &validationErrors))

	_, err = f.service.Create(context.Background(), dto.AssignmentCreateRequest{
		DueDate:     "2024-03-05",
		Name:        "HW",
		IsRepeating: true,
		RepeatCount: 21,
	})
	require.True(t, errors.As(err, &validationErrors))
}

func TestAssignmentServiceToggleAndDelete(t *testing.T) {
	f := newBoardFixture(t)
	ctx := context.Background()

	created, err := f.service.Create(ctx, dto.AssignmentCreateRequest{DueDate: "2024-03-05", Name: "Essay", Subject: "영어"})
	require.NoError(t, err)
	f.waitForCount(t, 1)
	f.nextEvent(t)

	id := created[0].ID
	toggled, err := f.service.Toggle(ctx, id)
	require.NoError(t, err)
	require.True(t, toggled.Completed)

	require.Eventually(t, func() bool {
		a, ok := f.assignments.Get(id)
		return ok && a.Completed
	}, 2*time.Second, 5*time.Millisecond)

	stored, _ := f.assignments.Get(id)
	require.Equal(t, "Essay", stored.Name)
	require.Equal(t, "영어", stored.Subject)

	event := f.nextEvent(t)
	require.Equal(t, dto.EventAssignmentCompleted, event.Type)
	require.NotNil(t, event.Completed)
	require.True(t, *event.Completed)

	updated, err := f.service.SetCompleted(ctx, id, false)
	require.NoError(t, err)
	require.False(t, updated.Completed)

	require.NoError(t, f.service.Delete(ctx, id))
	f.waitForCount(t, 0)

	_, err = f.service.Toggle(ctx, id)
	require.ErrorIs(t, err, ErrAssignmentNotFound)
	require.ErrorIs(t, f.service.Delete(ctx, id), ErrAssignmentNotFound)
}

type failingStore struct {
	store.Store
	err error
}

func (s failingStore) PutAssignment(context.Context, string, models.AssignmentRecord) error {
	return s.err
}

func (s failingStore) SetCompleted(context.Context, string, bool) error {
	return store.ErrNotFound
}

func TestAssignmentServiceSurfacesStoreErrors(t *testing.T) {
	repo := repository.NewAssignmentRepository()
	repo.ApplySnapshot(map[string]models.AssignmentRecord{
		"1": {Subject: "국어", DueDate: "2024-03-05", Name: "gone"},
	})

	boom := errors.New("store unavailable")
	svc := NewAssignmentService(failingStore{err: boom}, repo, nil, validator.New(validator.WithRequiredStructEnabled()), nil, testLogger())

	_, err := svc.Create(context.Background(), dto.AssignmentCreateRequest{DueDate: "2024-03-05", Name: "HW"})
	require.ErrorIs(t, err, boom)

	_, err = svc.SetCompleted(context.Background(), "1", true)
	require.ErrorIs(t, err, ErrAssignmentNotFound)
}
