package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/occasionbuddy/occasionbuddy-backend/pkg/logger"
)

const listenerShutdownTimeout = 5 * time.Second

// Handler exposes gatherer in the Prometheus text format.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// ServeInBackground starts a /metrics listener for processes without an API
// server. It stops when ctx is cancelled. An empty addr is a no-op.
func ServeInBackground(ctx context.Context, addr string, gatherer prometheus.Gatherer, logg *logger.Logger) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "metrics.listener.failed", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), listenerShutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	logg.Info(logg.WithField(ctx, "addr", addr), "metrics.listener.started")
}
