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

	"github.com/occasionbuddy/occasionbuddy-backend/pkg/config"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/db"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/instance"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/logger"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/metrics"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/migrate"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/outbox"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/outbox/registry"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/pubsub"
)

const serviceKind = "outbox-publisher"

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
		logg.Error(ctx, "outbox publisher stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "outbox publisher shut down")
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

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, pubsub.RolePublisher, logg)
	if err != nil {
		return fmt.Errorf("bootstrap pubsub: %w", err)
	}
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(ctx, "error closing pubsub client", err)
		}
	}()

	events, err := registry.NewEventRegistry(cfg.PubSub)
	if err != nil {
		return fmt.Errorf("event registry: %w", err)
	}

	reg := prometheus.NewRegistry()
	relay, err := NewRelay(RelayParams{
		Outbox:     cfg.Outbox,
		Logger:     logg,
		DB:         dbClient,
		PubSub:     pubsubClient,
		Claims:     outbox.NewRepository(dbClient.DB()),
		DeadLetter: outbox.NewDLQRepository(dbClient.DB()),
		Resolver:   events,
		Metrics:    metrics.NewOutboxMetrics(reg),
	})
	if err != nil {
		return err
	}
	metrics.ServeInBackground(ctx, cfg.Service.MetricsAddr, reg, logg)

	logg.Info(ctx, "starting outbox publisher")
	return relay.Run(ctx)
}
