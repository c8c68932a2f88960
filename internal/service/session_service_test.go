package service

import (
	"context"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/lyycrypto/jebalrepository/internal/board"
)

func TestSessionServiceLifecycle(t *testing.T) {
	f := newBoardFixture(t)
	svc := NewSessionService(NewRedisSessionStore(f.client, "test", time.Hour), f.service, f.board, testLogger())
	ctx := context.Background()

	session, err := svc.Create(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, session.ID)
	require.False(t, session.ModalOpen)
	require.False(t, session.CanSubmit)
	require.Equal(t, "국어", session.Draft.Subject)

	opened, err := svc.Open(ctx, session.ID)
	require.NoError(t, err)
	require.True(t, opened.ModalOpen)

	name := "HW"
	blocked, err := svc.UpdateDraft(ctx, session.ID, board.DraftPatch{Name: &name})
	require.NoError(t, err)
	require.False(t, blocked.CanSubmit)

	noop, err := svc.Submit(ctx, session.ID)
	require.NoError(t, err)
	require.False(t, noop.Submitted)
	require.Empty(t, noop.Created)
	require.True(t, noop.Session.ModalOpen)

	closed, err := svc.Close(ctx, session.ID)
	require.NoError(t, err)
	require.False(t, closed.ModalOpen)
	require.Equal(t, "HW", closed.Draft.Name)

	due := "2024-03-04"
	repeating := true
	count := 2
	ready, err := svc.UpdateDraft(ctx, session.ID, board.DraftPatch{DueDate: &due, IsRepeating: &repeating, RepeatCount: &count})
	require.NoError(t, err)
	require.True(t, ready.CanSubmit)

	result, err := svc.Submit(ctx, session.ID)
	require.NoError(t, err)
	require.True(t, result.Submitted)
	require.Len(t, result.Created, 2)
	require.Equal(t, "HW(2)", result.Created[1].Name)
	require.False(t, result.Session.ModalOpen)
	require.Empty(t, result.Session.Draft.Name)
	require.Equal(t, 1, result.Session.Draft.RepeatCount)

	f.waitForCount(t, 2)

	require.NoError(t, svc.Delete(ctx, session.ID))
	_, err = svc.Get(ctx, session.ID)
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionServiceNavigation(t *testing.T) {
	boardService, _, _ := newTestBoardService(t, time.Date(2024, time.January, 15, 9, 0, 0, 0, time.UTC), time.UTC)
	svc := NewSessionService(NewMemorySessionStore(time.Hour), nil, boardService, testLogger())
	ctx := context.Background()

	session, err := svc.Create(ctx)
	require.NoError(t, err)
	require.Equal(t, "2024-01", session.Month)

	shifted, err := svc.ShiftMonth(ctx, session.ID, -1)
	require.NoError(t, err)
	require.Equal(t, "2023-12", shifted.Month)

	tab, err := svc.SelectTab(ctx, session.ID, 3)
	require.NoError(t, err)
	require.Equal(t, 3, tab.ActiveTab)

	_, err = svc.SelectTab(ctx, session.ID, 9)
	require.ErrorIs(t, err, board.ErrInvalidTab)

	selected, err := svc.SelectDate(ctx, session.ID, "2023-12-24")
	require.NoError(t, err)
	require.Equal(t, "2023-12-24", selected.SelectedDate)

	_, err = svc.SelectDate(ctx, session.ID, "yesterday")
	require.ErrorIs(t, err, board.ErrInvalidDate)

	_, err = svc.Open(ctx, "missing")
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRedisSessionStoreExpires(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := NewRedisSessionStore(client, "", time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, board.NewSession("abc", time.Now())))
	require.True(t, mr.Exists("homework:sessions:abc"))

	loaded, err := store.Get(ctx, "abc")
	require.NoError(t, err)
	require.Equal(t, "abc", loaded.ID)

	mr.FastForward(2 * time.Minute)
	_, err = store.Get(ctx, "abc")
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestMemorySessionStoreExpires(t *testing.T) {
	store := NewMemorySessionStore(time.Minute).(*memorySessionStore)
	now := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, board.NewSession("abc", now)))
	_, err := store.Get(ctx, "abc")
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = store.Get(ctx, "abc")
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionServiceSubmitsADraftOnceUnderConcurrency(t *testing.T) {
	cases := map[string]func(f *boardFixture) SessionStore{
		"redis": func(f *boardFixture) SessionStore {
			return NewRedisSessionStore(f.client, "test", time.Hour)
		},
		"memory": func(*boardFixture) SessionStore {
			return NewMemorySessionStore(time.Hour)
		},
	}

	for name, newStore := range cases {
		t.Run(name, func(t *testing.T) {
			f := newBoardFixture(t)
			svc := NewSessionService(newStore(f), f.service, f.board, testLogger())
			ctx := context.Background()

			session, err := svc.Create(ctx)
			require.NoError(t, err)

			subject, due, title := "영어", "2024-03-04", "Vocab"
			repeating, count := true, 2
			ready, err := svc.UpdateDraft(ctx, session.ID, board.DraftPatch{
				Subject:     &subject,
				DueDate:     &due,
				Name:        &title,
				IsRepeating: &repeating,
				RepeatCount: &count,
			})
			require.NoError(t, err)
			require.True(t, ready.CanSubmit)

			var (
				wg        sync.WaitGroup
				mu        sync.Mutex
				submitted int
				failures  []error
			)
			for i := 0; i < 8; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					result, err := svc.Submit(ctx, session.ID)
					mu.Lock()
					defer mu.Unlock()
					if err != nil {
						failures = append(failures, err)
						return
					}
					if result.Submitted {
						submitted++
					}
				}()
			}
			wg.Wait()

			require.Empty(t, failures)
			require.Equal(t, 1, submitted)
			f.waitForCount(t, 2)
			time.Sleep(50 * time.Millisecond)
			require.Len(t, f.assignments.All(), 2)
		})
	}
}

func TestRedisSessionStoreLockIsExclusive(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := NewRedisSessionStore(client, "test", time.Minute)
	ctx := context.Background()

	unlock, err := store.Lock(ctx, "abc")
	require.NoError(t, err)
	require.True(t, mr.Exists("test:session-locks:abc"))

	waiting, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	_, err = store.Lock(waiting, "abc")
	require.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()
	require.False(t, mr.Exists("test:session-locks:abc"))

	again, err := store.Lock(ctx, "abc")
	require.NoError(t, err)
	again()
}
