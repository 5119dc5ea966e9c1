package db

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/occasionbuddy/occasionbuddy-backend/pkg/logger"
)

// queryLogger routes gorm's own diagnostics into the service logger. Only
// failed statements and statements slower than slow are reported.
type queryLogger struct {
	logg *logger.Logger
	slow time.Duration
	mode gormlogger.LogLevel
}

func newQueryLogger(logg *logger.Logger, slow time.Duration) gormlogger.Interface {
	if logg == nil {
		return gormlogger.Discard
	}
	return &queryLogger{logg: logg, slow: slow, mode: gormlogger.Warn}
}

func (q *queryLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *q
	clone.mode = level
	return &clone
}

func (q *queryLogger) Info(ctx context.Context, msg string, _ ...any) {
	if q.mode >= gormlogger.Info {
		q.logg.Info(q.logg.WithField(ctx, "gorm", msg), "db.info")
	}
}

func (q *queryLogger) Warn(ctx context.Context, msg string, _ ...any) {
	if q.mode >= gormlogger.Warn {
		q.logg.Warn(q.logg.WithField(ctx, "gorm", msg), "db.warn")
	}
}

func (q *queryLogger) Error(ctx context.Context, msg string, _ ...any) {
	if q.mode >= gormlogger.Error {
		q.logg.Error(ctx, "db.error", errors.New(msg))
	}
}

func (q *queryLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if q.mode <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	failed := err != nil && !errors.Is(err, gorm.ErrRecordNotFound)
	slow := q.slow > 0 && elapsed > q.slow
	if !failed && !slow {
		return
	}

	query, rows := fc()
	ctx = q.logg.WithFields(ctx, map[string]any{
		"sql":         query,
		"rows":        rows,
		"duration_ms": elapsed.Milliseconds(),
	})
	if failed {
		q.logg.Error(ctx, "db.query_failed", err)
		return
	}
	q.logg.Warn(ctx, "db.slow_query")
}
