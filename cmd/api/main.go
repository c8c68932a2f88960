package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/lyycrypto/jebalrepository/internal/config"
	"github.com/lyycrypto/jebalrepository/internal/database"
	"github.com/lyycrypto/jebalrepository/internal/handler"
	"github.com/lyycrypto/jebalrepository/internal/middleware"
	"github.com/lyycrypto/jebalrepository/internal/repository"
	"github.com/lyycrypto/jebalrepository/internal/router"
	"github.com/lyycrypto/jebalrepository/internal/service"
	"github.com/lyycrypto/jebalrepository/internal/store"
)

const defaultSQLitePath = "homework.sqlite"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", cfg.AppName).Logger()

	location, err := cfg.Location()
	if err != nil {
		log.Fatalf("failed to load timezone: %v", err)
	}

	syncCtx, stopSync := context.WithCancel(context.Background())
	defer stopSync()

	var redisClient *redis.Client
	if cfg.StoreDriver == config.StoreDriverRedis {
		redisClient, err = database.ConnectRedis(syncCtx, cfg.RedisURL, cfg.AppName)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
	}

	boardStore, err := openStore(syncCtx, cfg, redisClient, logger)
	if err != nil {
		log.Fatalf("failed to open %s store: %v", cfg.StoreDriver, err)
	}

	natsConn, err := database.ConnectNATS(cfg.NATSURL, cfg.AppName)
	if err != nil {
		logger.Warn().Err(err).Msg("nats unavailable, board events disabled")
	}
	if natsConn != nil {
		defer natsConn.Drain()
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	assignmentRepo := repository.NewAssignmentRepository()
	imageRepo := repository.NewScheduleImageRepository()

	var sessionStore service.SessionStore
	if redisClient != nil {
		sessionStore = service.NewRedisSessionStore(redisClient, cfg.StoreNamespace, cfg.SessionTTL)
	} else {
		sessionStore = service.NewMemorySessionStore(cfg.SessionTTL)
	}

	events := service.NewEventPublisher(natsConn, cfg.NATSSubjectBase, logger)
	boardService := service.NewBoardService(assignmentRepo, imageRepo, location, logger)
	liveService := service.NewLiveService(boardService.Snapshot, cfg.LiveKeepAlive, logger)
	ids := service.NewIDGenerator(nil)
	if redisClient != nil {
		ids.WithClaimer(service.NewRedisIDClaimer(redisClient, cfg.StoreNamespace))
	}
	assignmentService := service.NewAssignmentService(boardStore, assignmentRepo, ids, validate, events, logger)
	scheduleService := service.NewScheduleService(boardStore, imageRepo, events, cfg.MaxImageMB, logger)
	sessionService := service.NewSessionService(sessionStore, assignmentService, boardService, logger)
	syncService := service.NewSyncService(boardStore, assignmentRepo, imageRepo, boardService, liveService, logger)

	if err := syncService.Start(syncCtx); err != nil {
		log.Fatalf("failed to subscribe to store: %v", err)
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		BodyLimit:    (cfg.MaxImageMB + 1) * 1024 * 1024 * 2,
	})

	middleware.Register(app, middleware.Config{
		Logger:       &logger,
		AllowOrigins: cfg.AllowOrigins,
		AccessLog:    os.Stdout,
	})
	router.Register(app, cfg, router.Dependencies{
		AssignmentHandler:    handler.NewAssignmentHandler(assignmentService, validate, logger),
		ViewHandler:          handler.NewViewHandler(boardService, logger),
		SubjectHandler:       handler.NewSubjectHandler(),
		ScheduleImageHandler: handler.NewScheduleImageHandler(scheduleService, validate, logger),
		LiveHandler:          handler.NewLiveHandler(liveService, cfg.LiveKeepAlive, logger),
		SessionHandler:       handler.NewSessionHandler(sessionService, validate, logger),
		Loaded:               assignmentRepo.Loaded,
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	logger.Info().Str("address", cfg.HTTPAddress()).Str("store_driver", cfg.StoreDriver).Msg("homework board started")

	waitForShutdown(app)

	stopSync()
	syncService.Stop()
	if err := boardStore.Close(); err != nil {
		logger.Warn().Err(err).Msg("failed to close store")
	}
}

func openStore(ctx context.Context, cfg config.Config, redisClient *redis.Client, logger zerolog.Logger) (store.Store, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverRedis:
		return store.NewRedisStore(ctx, redisClient, cfg.StoreNamespace, logger)
	case config.StoreDriverBolt:
		db, err := database.OpenBolt(cfg.BoltPath)
		if err != nil {
			return nil, err
		}
		return store.NewBoltStore(db, logger)
	case config.StoreDriverPostgres:
		db, err := database.ConnectPostgres(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return store.NewSQLStore(db, logger)
	case config.StoreDriverSQLite:
		path := cfg.DatabaseURL
		if path == "" {
			path = defaultSQLitePath
		}
		db, err := database.ConnectSQLite(path)
		if err != nil {
			return nil, err
		}
		return store.NewSQLStore(db, logger)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
