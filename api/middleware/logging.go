package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/occasionbuddy/occasionbuddy-backend/pkg/logger"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/metrics"
)

const unmatchedRoute = "unmatched"

// Logging writes one request.complete line per request and feeds the HTTP
// metrics. 5xx responses log at warn. Both logg and m may be nil.
func Logging(logg *logger.Logger, m *metrics.HTTPMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if logg != nil {
				ctx = logg.WithFields(ctx, map[string]any{"method": r.Method, "path": r.URL.Path})
			}
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			started := time.Now()

			next.ServeHTTP(ww, r.WithContext(ctx))

			done := completion{
				status:  ww.Status(),
				bytes:   ww.BytesWritten(),
				elapsed: time.Since(started),
				route:   routePattern(r),
			}
			if done.status == 0 {
				done.status = http.StatusOK
			}
			m.Observe(r.Method, done.route, done.status, done.elapsed)
			done.log(ctx, logg)
		})
	}
}

type completion struct {
	status  int
	bytes   int
	elapsed time.Duration
	route   string
}

func (c completion) log(ctx context.Context, logg *logger.Logger) {
	if logg == nil {
		return
	}
	ctx = logg.WithFields(ctx, map[string]any{
		"status":      c.status,
		"route":       c.route,
		"bytes":       c.bytes,
		"duration_ms": c.elapsed.Milliseconds(),
	})
	if c.status >= http.StatusInternalServerError {
		logg.Warn(ctx, "request.complete")
		return
	}
	logg.Info(ctx, "request.complete")
}

// routePattern reads the matched chi pattern. It must run after next.ServeHTTP.
func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil || rctx.RoutePattern() == "" {
		return unmatchedRoute
	}
	return rctx.RoutePattern()
}
