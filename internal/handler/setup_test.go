package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/lyycrypto/jebalrepository/internal/config"
	"github.com/lyycrypto/jebalrepository/internal/handler"
	"github.com/lyycrypto/jebalrepository/internal/middleware"
	"github.com/lyycrypto/jebalrepository/internal/repository"
	"github.com/lyycrypto/jebalrepository/internal/router"
	"github.com/lyycrypto/jebalrepository/internal/service"
	"github.com/lyycrypto/jebalrepository/internal/store"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

type testBoard struct {
	app         *fiber.App
	assignments *repository.AssignmentRepository
	images      *repository.ScheduleImageRepository
	store       store.Store
}

func setupBoardApp(t *testing.T) *testBoard {
	t.Helper()
	return setupBoardAppWithConfig(t, config.Config{AppName: "Test", AppEnv: "test", StoreDriver: config.StoreDriverRedis})
}

func setupBoardAppWithConfig(t *testing.T, cfg config.Config) *testBoard {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	logger := zerolog.New(io.Discard)
	validate := validator.New(validator.WithRequiredStructEnabled())

	st, err := store.NewRedisStore(ctx, client, "test", logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	assignments := repository.NewAssignmentRepository()
	images := repository.NewScheduleImageRepository()

	boardService := service.NewBoardService(assignments, images, time.UTC, logger)
	liveService := service.NewLiveService(boardService.Snapshot, time.Second, logger)
	assignmentService := service.NewAssignmentService(st, assignments, nil, validate, nil, logger)
	scheduleService := service.NewScheduleService(st, images, nil, 1, logger)
	sessionService := service.NewSessionService(service.NewRedisSessionStore(client, "test", time.Hour), assignmentService, boardService, logger)
	syncService := service.NewSyncService(st, assignments, images, boardService, liveService, logger)
	require.NoError(t, syncService.Start(ctx))
	require.Eventually(t, assignments.Loaded, time.Second, 5*time.Millisecond)

	app := fiber.New()
	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		AssignmentHandler:    handler.NewAssignmentHandler(assignmentService, validate, logger),
		ViewHandler:          handler.NewViewHandler(boardService, logger),
		SubjectHandler:       handler.NewSubjectHandler(),
		ScheduleImageHandler: handler.NewScheduleImageHandler(scheduleService, validate, logger),
		LiveHandler:          handler.NewLiveHandler(liveService, time.Second, logger),
		SessionHandler:       handler.NewSessionHandler(sessionService, validate, logger),
		Loaded:               assignments.Loaded,
	})

	return &testBoard{app: app, assignments: assignments, images: images, store: st}
}

func (b *testBoard) do(t *testing.T, method, path string, body interface{}) (*http.Response, envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := b.app.Test(req, 5000)
	require.NoError(t, err)

	var decoded envelope
	decodeResponse(t, resp, &decoded)
	return resp, decoded
}

func (b *testBoard) waitForAssignments(t *testing.T, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return len(b.assignments.All()) == n
	}, fiberWait, pollInterval)
}

func decodeResponse(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.NoError(t, json.Unmarshal(data, target))
}

func decodeData(t *testing.T, body envelope, target interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(body.Data, target))
}

func startFiberServer(t *testing.T, app *fiber.App) (string, func()) {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		if err := app.Listener(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			t.Logf("fiber listener stopped: %v", err)
		}
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)

	shutdown := func() {
		_ = app.Shutdown()
		_ = listener.Close()
		select {
		case <-done:
		case <-time.After(100 * time.Millisecond):
		}
	}

	return "http://" + listener.Addr().String(), shutdown
}

const (
	fiberWait    = 2 * time.Second
	pollInterval = 5 * time.Millisecond
)

func configForHealth() config.Config {
	return config.Config{AppName: "Test", AppEnv: "test", StoreDriver: config.StoreDriverBolt}
}

func newRequest(method, path string) *http.Request {
	return httptest.NewRequest(method, path, nil)
}
