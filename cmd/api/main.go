package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/queue-service/internal/api/http"
	"github.com/spec-kit/queue-service/internal/api/http/handlers"
	"github.com/spec-kit/queue-service/internal/config"
	"github.com/spec-kit/queue-service/internal/events"
	"github.com/spec-kit/queue-service/internal/notify"
	"github.com/spec-kit/queue-service/internal/observability"
	"github.com/spec-kit/queue-service/internal/persistence"
	"github.com/spec-kit/queue-service/internal/repository"
	"github.com/spec-kit/queue-service/internal/service"
	"github.com/spec-kit/queue-service/internal/worker"
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

	var appointmentRepo repository.AppointmentRepository
	if pool := pg.PoolHandle(); pool != nil {
		appointmentRepo = repository.NewAppointmentRepository(pool)
	} else {
		logger.Warn("using in-memory appointment store; data will not survive restarts")
		appointmentRepo = repository.NewMemoryRepository()
	}

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()

	sender := notify.NewFromConfig(cfg.Notification, logger)
	notificationService := service.NewNotificationService(dispatcher, sender, logger, metrics)
	notificationService.RegisterHandlers()

	queueService := service.NewQueueService(service.QueueDependencies{
		AppointmentRepo: appointmentRepo,
		Dispatcher:      dispatcher,
		Metrics:         metrics,
	})

	lease := worker.NewTickLease(redis.Client, cfg.Reminder.LeaseTTL(), logger)
	reminderWorker := worker.NewReminderWorker(appointmentRepo, dispatcher, lease, logger, metrics, worker.ReminderWorkerConfig{
		HoursBefore: cfg.Reminder.HoursBefore,
		Interval:    cfg.Reminder.TickInterval(),
	})
	go reminderWorker.Run(ctx)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	healthHandler := handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis)
	appointmentsHandler := handlers.NewAppointmentsHandler(queueService)

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:       healthHandler,
		Appointments: appointmentsHandler,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = app.ShutdownWithContext(shutdownCtx)
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
