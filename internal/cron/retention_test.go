package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/occasionbuddy/occasionbuddy-backend/pkg/logger"
)

func TestOutboxRetentionJobDeletesPublishedAndDeadLetterRows(t *testing.T) {
	now := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	outboxRepo := &fakePublishedRepo{deleted: 12}
	dlqRepo := &fakeDLQRepo{deleted: 2}
	job := newOutboxRetentionJob(t, outboxRepo, dlqRepo)
	job.now = func() time.Time { return now }

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, now.Add(-7*24*time.Hour), outboxRepo.lastCutoff)
	assert.Equal(t, now.Add(-30*24*time.Hour), dlqRepo.lastCutoff)
	assert.Equal(t, 1, outboxRepo.called)
	assert.Equal(t, 1, dlqRepo.called)
}

func TestOutboxRetentionJobRunsBothStepsAndCombinesErrors(t *testing.T) {
	outboxRepo := &fakePublishedRepo{err: errors.New("outbox locked")}
	dlqRepo := &fakeDLQRepo{err: errors.New("dlq locked")}
	job := newOutboxRetentionJob(t, outboxRepo, dlqRepo)

	err := job.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, dlqRepo.called, "dlq cleanup should still run")
	assert.Len(t, multierr.Errors(errors.Unwrap(err)), 2)
	assert.Contains(t, err.Error(), "outbox locked")
	assert.Contains(t, err.Error(), "dlq locked")
}

func TestOutboxRetentionJobSingleFailure(t *testing.T) {
	job := newOutboxRetentionJob(t, &fakePublishedRepo{}, &fakeDLQRepo{err: errors.New("boom")})
	require.Error(t, job.Run(context.Background()))
}

func TestOutboxRetentionJobHonorsConfiguredWindows(t *testing.T) {
	now := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	outboxRepo := &fakePublishedRepo{}
	dlqRepo := &fakeDLQRepo{}
	jobIface, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:          logger.New(logger.Options{ServiceName: "test"}),
		Outbox:          outboxRepo,
		DLQ:             dlqRepo,
		OutboxRetention: time.Hour,
		DLQRetention:    2 * time.Hour,
	})
	require.NoError(t, err)
	job := jobIface.(*retentionJob)
	job.now = func() time.Time { return now }

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, "outbox-retention", job.Name())
	assert.Equal(t, now.Add(-time.Hour), outboxRepo.lastCutoff)
	assert.Equal(t, now.Add(-2*time.Hour), dlqRepo.lastCutoff)
}

func TestNewOutboxRetentionJobRequiresRepositories(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "test"})
	_, err := NewOutboxRetentionJob(OutboxRetentionJobParams{Logger: logg, DLQ: &fakeDLQRepo{}})
	require.Error(t, err)
	_, err = NewOutboxRetentionJob(OutboxRetentionJobParams{Logger: logg, Outbox: &fakePublishedRepo{}})
	require.Error(t, err)
}

func newOutboxRetentionJob(t *testing.T, outboxRepo *fakePublishedRepo, dlqRepo *fakeDLQRepo) *retentionJob {
	t.Helper()
	jobIface, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger: logger.New(logger.Options{ServiceName: "test"}),
		Outbox: outboxRepo,
		DLQ:    dlqRepo,
	})
	require.NoError(t, err)
	job, ok := jobIface.(*retentionJob)
	require.True(t, ok)
	return job
}

type fakePublishedRepo struct {
	lastCutoff time.Time
	deleted    int64
	err        error
	called     int
}

func (f *fakePublishedRepo) DeletePublishedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	f.called++
	f.lastCutoff = cutoff
	return f.deleted, f.err
}

type fakeDLQRepo struct {
	lastCutoff time.Time
	deleted    int64
	err        error
	called     int
}

func (f *fakeDLQRepo) DeleteFailedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	f.called++
	f.lastCutoff = cutoff
	return f.deleted, f.err
}

func TestNotificationCleanupJobDeletesReadNotificationsPastRetention(t *testing.T) {
	now := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)
	repo := &fakeNotificationRepo{deletedRows: 42}
	runner := &countingTxRunner{}
	jobIface, err := NewNotificationCleanupJob(NotificationCleanupJobParams{
		Logger:     logger.New(logger.Options{ServiceName: "test"}),
		DB:         runner,
		Repository: repo,
	})
	require.NoError(t, err)
	job := jobIface.(*retentionJob)
	job.now = func() time.Time { return now }

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, "notification-cleanup", job.Name())
	assert.Equal(t, now.Add(-defaultNotificationRetention), repo.lastCutoff)
	assert.Equal(t, 1, repo.called)
	assert.Equal(t, 1, runner.calls)
}

func TestNotificationCleanupJobHonorsConfiguredRetention(t *testing.T) {
	now := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)
	repo := &fakeNotificationRepo{}
	jobIface, err := NewNotificationCleanupJob(NotificationCleanupJobParams{
		Logger:     logger.New(logger.Options{ServiceName: "test"}),
		DB:         &countingTxRunner{},
		Repository: repo,
		Retention:  48 * time.Hour,
	})
	require.NoError(t, err)
	job := jobIface.(*retentionJob)
	job.now = func() time.Time { return now }

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, time.Date(2026, 1, 29, 0, 0, 0, 0, time.UTC), repo.lastCutoff)
}

func TestNotificationCleanupJobPropagatesErrors(t *testing.T) {
	jobIface, err := NewNotificationCleanupJob(NotificationCleanupJobParams{
		Logger:     logger.New(logger.Options{ServiceName: "test"}),
		DB:         &countingTxRunner{},
		Repository: &fakeNotificationRepo{err: errors.New("boom")},
	})
	require.NoError(t, err)
	require.ErrorContains(t, jobIface.Run(context.Background()), "notifications: boom")
}

func TestNewNotificationCleanupJobRequiresDependencies(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "test"})
	_, err := NewNotificationCleanupJob(NotificationCleanupJobParams{Logger: logg, Repository: &fakeNotificationRepo{}})
	require.Error(t, err)
	_, err = NewNotificationCleanupJob(NotificationCleanupJobParams{Logger: logg, DB: &countingTxRunner{}})
	require.Error(t, err)
}

type fakeNotificationRepo struct {
	lastCutoff  time.Time
	deletedRows int64
	err         error
	called      int
}

func (f *fakeNotificationRepo) DeleteReadBefore(_ context.Context, _ *gorm.DB, cutoff time.Time) (int64, error) {
	f.called++
	f.lastCutoff = cutoff
	return f.deletedRows, f.err
}

type countingTxRunner struct{ calls int }

func (c *countingTxRunner) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	c.calls++
	return fn(nil)
}
