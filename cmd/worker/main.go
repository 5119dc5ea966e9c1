package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/occasionbuddy/occasionbuddy-backend/internal/analytics/router"
	"github.com/occasionbuddy/occasionbuddy-backend/internal/analytics/worker"
	"github.com/occasionbuddy/occasionbuddy-backend/internal/analytics/writer"
	"github.com/occasionbuddy/occasionbuddy-backend/internal/notifications"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/bigquery"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/config"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/db"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/instance"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/logger"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/migrate"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/outbox/idempotency"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/outbox/registry"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/pubsub"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/redis"
)

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	cfg.Service.Kind = "worker"

	logg = logger.New(logger.Options{
		ServiceName: "worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		requireResource(ctx, logg, "dev migrations", err)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "failed to close redis client", err)
		}
	}()

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, pubsub.RoleSubscriber, logg)
	requireResource(ctx, logg, "pubsub", err)
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(ctx, "failed to close pubsub client", err)
		}
	}()

	bqClient, err := bigquery.NewClient(ctx, cfg.GCP, cfg.BigQuery, logg)
	requireResource(ctx, logg, "bigquery client", err)
	defer func() {
		if err := bqClient.Close(); err != nil {
			logg.Error(ctx, "failed to close bigquery client", err)
		}
	}()

	events, err := registry.NewEventRegistry(cfg.PubSub)
	requireResource(ctx, logg, "event registry", err)

	manager, err := idempotency.NewManager(redisClient, cfg.Eventing.OutboxIdempotencyTTL)
	requireResource(ctx, logg, "idempotency manager", err)

	notificationSub := pubsubClient.NotificationSubscription()
	if notificationSub == nil {
		requireResource(ctx, logg, "notification subscription", errors.New("subscription not configured"))
	}
	notificationConsumer, err := notifications.NewConsumer(
		notifications.NewRepository(dbClient.DB()),
		notificationSub,
		events,
		manager,
		logg,
	)
	requireResource(ctx, logg, "notification consumer", err)

	analyticsSub := pubsubClient.AnalyticsSubscription()
	if analyticsSub == nil {
		requireResource(ctx, logg, "analytics subscription", errors.New("subscription not configured"))
	}
	analyticsWriter, err := writer.New(bqClient, writer.Config{
		BookingTable: bqClient.BookingEventsTable(),
		BatchSize:    cfg.BigQuery.BatchSize,
	})
	requireResource(ctx, logg, "analytics bigquery writer", err)

	bookingRouter, err := router.New(events, analyticsWriter)
	requireResource(ctx, logg, "analytics router", err)

	analyticsConsumer, err := worker.NewService(analyticsSub, bookingRouter, manager, logg)
	requireResource(ctx, logg, "analytics worker service", err)

	service, err := NewService(ServiceParams{
		Logger: logg,
		Dependencies: []dependency{
			{name: "database", ping: dbClient.Ping},
			{name: "redis", ping: redisClient.Ping},
			{name: "pubsub", ping: pubsubClient.Ping},
			{name: "bigquery", ping: bqClient.Ping},
		},
		NotificationConsumer: notificationConsumer,
		AnalyticsConsumer:    analyticsConsumer,
		Flush:                analyticsWriter.Flush,
	})
	requireResource(ctx, logg, "worker service", err)

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"instance":    instance.ID(),
	})
	logg.Info(runCtx, "starting worker")

	if err := service.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(runCtx, "worker stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(runCtx, "worker shutting down gracefully")
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
