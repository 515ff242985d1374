package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/clinic-queue/internal/api/http"
	"github.com/spec-kit/clinic-queue/internal/api/http/handlers"
	"github.com/spec-kit/clinic-queue/internal/auth"
	"github.com/spec-kit/clinic-queue/internal/config"
	"github.com/spec-kit/clinic-queue/internal/events"
	"github.com/spec-kit/clinic-queue/internal/feed"
	"github.com/spec-kit/clinic-queue/internal/observability"
	"github.com/spec-kit/clinic-queue/internal/persistence"
	"github.com/spec-kit/clinic-queue/internal/repository"
	"github.com/spec-kit/clinic-queue/internal/service"
	"github.com/spec-kit/clinic-queue/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	var (
		queueRepo    repository.QueueRepository
		providerRepo repository.ProviderRepository
		scheduleRepo repository.ScheduleRepository
		staffRepo    repository.StaffRepository
	)
	if pool := pg.PoolHandle(); pool != nil {
		queueRepo = repository.NewQueueRepository(pool)
		providerRepo = repository.NewProviderRepository(pool)
		scheduleRepo = repository.NewScheduleRepository(pool)
		staffRepo = repository.NewStaffRepository(pool)
	} else {
		logger.Warn("running with in-memory store; state will not survive restarts")
		store := repository.NewMemoryStore()
		queueRepo = store
		providerRepo = store.Providers()
		scheduleRepo = store.Schedules()
		staffRepo = store.Staff()
	}

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	events.RegisterNotificationLogger(dispatcher, logger)

	queueService := service.NewQueueService(service.QueueDependencies{
		QueueRepo:    queueRepo,
		ProviderRepo: providerRepo,
		Dispatcher:   dispatcher,
		Metrics:      metrics,
		Logger:       logger,
	})
	scheduleService := service.NewScheduleService(scheduleRepo, providerRepo, dispatcher)
	authService := service.NewAuthService(cfg.Auth, staffRepo, logger)

	if err := authService.EnsureDefaultAdmin(ctx); err != nil {
		logger.Fatal("failed to seed default admin", zap.Error(err))
	}

	queueFeed := feed.New(queueService, redis.Client, logger)
	queueFeed.RegisterHandlers(dispatcher)
	go queueFeed.ListenRemote(ctx)

	reconciler := worker.NewReconciler(queueRepo, dispatcher, metrics, logger, cfg.Reconciler.Interval())
	go reconciler.Run(ctx)

	authMiddleware := auth.NewMiddleware(authService.TokenManager(), staffRepo)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis, metrics),
		Queue:          handlers.NewQueueHandler(queueService),
		Providers:      handlers.NewProviderHandler(scheduleService),
		Staff:          handlers.NewStaffHandler(authService),
		Feed:           handlers.NewFeedHandler(queueFeed, logger),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)
	cancel()

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
