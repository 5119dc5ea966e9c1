package cron

import (
	"context"
	"errors"
	"time"

	"github.com/occasionbuddy/occasionbuddy-backend/pkg/logger"
)

const (
	defaultOutboxRetention = 7 * 24 * time.Hour
	defaultDLQRetention    = 30 * 24 * time.Hour
)

type publishedOutboxRepo interface {
	DeletePublishedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type dlqRetentionRepo interface {
	DeleteFailedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type OutboxRetentionJobParams struct {
	Logger          *logger.Logger
	Outbox          publishedOutboxRepo
	DLQ             dlqRetentionRepo
	OutboxRetention time.Duration
	DLQRetention    time.Duration
}

// NewOutboxRetentionJob prunes published outbox rows (7 days by default) and
// dead letters (30 days by default).
func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	switch {
	case params.Logger == nil:
		return nil, errors.New("logger required")
	case params.Outbox == nil:
		return nil, errors.New("outbox repository required")
	case params.DLQ == nil:
		return nil, errors.New("dlq repository required")
	}

	return newRetentionJob("outbox-retention", params.Logger,
		sweep{
			label:     "outbox",
			retention: orDefault(params.OutboxRetention, defaultOutboxRetention),
			purge:     params.Outbox.DeletePublishedBefore,
		},
		sweep{
			label:     "dlq",
			retention: orDefault(params.DLQRetention, defaultDLQRetention),
			purge:     params.DLQ.DeleteFailedBefore,
		},
	), nil
}
