package cron

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/occasionbuddy/occasionbuddy-backend/pkg/logger"
)

const defaultNotificationRetention = 30 * 24 * time.Hour

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type notificationsCleanupRepo interface {
	DeleteReadBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}

type NotificationCleanupJobParams struct {
	Logger     *logger.Logger
	DB         txRunner
	Repository notificationsCleanupRepo
	// Retention defaults to 30 days.
	Retention time.Duration
}

// NewNotificationCleanupJob deletes read notifications older than the
// retention window. Unread notifications are never touched.
func NewNotificationCleanupJob(params NotificationCleanupJobParams) (Job, error) {
	switch {
	case params.Logger == nil:
		return nil, errors.New("logger required")
	case params.DB == nil:
		return nil, errors.New("db runner required")
	case params.Repository == nil:
		return nil, errors.New("notifications repository required")
	}

	return newRetentionJob("notification-cleanup", params.Logger, sweep{
		label:     "notifications",
		retention: orDefault(params.Retention, defaultNotificationRetention),
		purge: func(ctx context.Context, cutoff time.Time) (deleted int64, err error) {
			err = params.DB.WithTx(ctx, func(tx *gorm.DB) error {
				deleted, err = params.Repository.DeleteReadBefore(ctx, tx, cutoff)
				return err
			})
			return deleted, err
		},
	}), nil
}
