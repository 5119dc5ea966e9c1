package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/occasionbuddy/occasionbuddy-backend/api/routes"
	"github.com/occasionbuddy/occasionbuddy-backend/internal/auth"
	"github.com/occasionbuddy/occasionbuddy-backend/internal/authsession"
	"github.com/occasionbuddy/occasionbuddy-backend/internal/notifications"
	"github.com/occasionbuddy/occasionbuddy-backend/internal/orders"
	products "github.com/occasionbuddy/occasionbuddy-backend/internal/products"
	"github.com/occasionbuddy/occasionbuddy-backend/internal/support"
	"github.com/occasionbuddy/occasionbuddy-backend/internal/toasts"
	"github.com/occasionbuddy/occasionbuddy-backend/internal/users"
	"github.com/occasionbuddy/occasionbuddy-backend/internal/wishlist"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/auth/session"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/config"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/db"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/logger"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/metrics"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/migrate"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/outbox"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = "api"

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	hub := toasts.NewHub(cfg.Toasts.DefaultDuration, logg)
	defer hub.Close()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		return err
	}

	userRepo := users.NewRepository(dbClient.DB())
	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       userRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
		Logger:         logg,
	})
	if err != nil {
		return err
	}

	productService, err := products.NewService(products.NewRepository(dbClient.DB()))
	if err != nil {
		return err
	}

	orderService, err := orders.NewService(orders.ServiceParams{
		Repo:     orders.NewRepository(dbClient.DB()),
		Tx:       dbClient,
		Outbox:   outboxService,
		Products: productService,
		Profiles: userRepo,
		Policy:   orders.PolicyFromConfig(cfg.Orders),
		Metrics:  metrics.NewOrderMetrics(registry),
		Toasts:   hub,
		Logger:   logg,
	})
	if err != nil {
		return err
	}

	supportService, err := support.NewService(support.ServiceParams{
		Repo:   support.NewRepository(dbClient.DB()),
		Tx:     dbClient,
		Outbox: outboxService,
		Toasts: hub,
		Logger: logg,
	})
	if err != nil {
		return err
	}

	notificationService, err := notifications.NewService(notifications.NewRepository(dbClient.DB()))
	if err != nil {
		return err
	}

	wishlistService, err := wishlist.NewService(wishlist.ServiceParams{
		Store:    redisClient,
		Products: productService,
	})
	if err != nil {
		return err
	}

	handler := routes.NewRouter(routes.Params{
		Config:         cfg,
		Logger:         logg,
		DB:             dbClient,
		Redis:          redisClient,
		Sessions:       sessionManager,
		Profiles:       authsession.RepositoryLookup(userRepo),
		Auth:           authService,
		Products:       productService,
		Orders:         orderService,
		Support:        supportService,
		Notifications:  notificationService,
		Wishlist:       wishlistService,
		Toasts:         hub,
		HTTPMetrics:    metrics.NewHTTPMetrics(registry),
		MetricsHandler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	logCtx := logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(logCtx, "starting api server")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logg.Info(logCtx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
