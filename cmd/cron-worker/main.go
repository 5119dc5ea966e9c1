package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/occasionbuddy/occasionbuddy-backend/internal/cron"
	"github.com/occasionbuddy/occasionbuddy-backend/internal/notifications"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/config"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/db"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/instance"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/logger"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/metrics"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/migrate"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/outbox"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/redis"
)

const serviceKind = "cron-worker"

func main() {
	bootLog := logger.New(logger.Options{ServiceName: serviceKind})
	if err := godotenv.Load(); err != nil {
		bootLog.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		bootLog.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = serviceKind

	logg := logger.New(logger.Options{
		ServiceName: serviceKind,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": serviceKind,
		"instance":    instance.ID(),
	})

	if err := run(ctx, cfg, logg); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "cron worker shut down")
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) error {
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("bootstrap database: %w", err)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()
	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return fmt.Errorf("dev migrations: %w", err)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return fmt.Errorf("bootstrap redis: %w", err)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "error closing redis", err)
		}
	}()

	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey(lockName(cfg.App.Env)), cfg.Cron.LockTTL)
	if err != nil {
		return fmt.Errorf("cron lock: %w", err)
	}

	cleanup, err := cron.NewNotificationCleanupJob(cron.NotificationCleanupJobParams{
		Logger:     logg,
		DB:         dbClient,
		Repository: notifications.NewRepository(dbClient.DB()),
		Retention:  cfg.Cron.NotificationRetention,
	})
	if err != nil {
		return err
	}
	retention, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:          logg,
		Outbox:          outbox.NewRepository(dbClient.DB()),
		DLQ:             outbox.NewDLQRepository(dbClient.DB()),
		OutboxRetention: cfg.Cron.OutboxRetention,
		DLQRetention:    cfg.Cron.DLQRetention,
	})
	if err != nil {
		return err
	}

	jobs, err := cron.NewRegistry(cleanup, retention)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: jobs,
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(reg),
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		return err
	}
	metrics.ServeInBackground(ctx, cfg.Service.MetricsAddr, reg, logg)

	logg.Info(ctx, "starting cron worker")
	return service.Run(ctx)
}

// lockName scopes the cron lock per environment so staging and prod never contend.
func lockName(env string) string {
	if env == "" {
		env = "local"
	}
	return "cron-worker:" + env
}
