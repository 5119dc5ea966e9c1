package cron

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/occasionbuddy/occasionbuddy-backend/pkg/logger"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/metrics"
)

type countingLock struct {
	held     bool
	releases int
}

func (l *countingLock) Acquire(context.Context) (bool, error) {
	if l.held {
		return false, nil
	}
	l.held = true
	return true, nil
}

func (l *countingLock) Release(context.Context) error {
	l.held = false
	l.releases++
	return nil
}

type recordingJob struct {
	name string
	err  error
	runs int
}

func (j *recordingJob) Name() string { return j.name }

func (j *recordingJob) Run(context.Context) error {
	j.runs++
	return j.err
}

func newTestService(t *testing.T, lock Lock, reg prometheus.Registerer, jobs ...Job) *Service {
	t.Helper()
	registry, err := NewRegistry(jobs...)
	require.NoError(t, err)
	svc, err := NewService(ServiceParams{
		Logger:   logger.New(logger.Options{ServiceName: "cron-test", Output: io.Discard}),
		Registry: registry,
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(reg),
	})
	require.NoError(t, err)
	return svc
}

func TestRunCycleRunsEveryJobAndCombinesFailures(t *testing.T) {
	ok := &recordingJob{name: "notification-cleanup"}
	failing := &recordingJob{name: "outbox-retention", err: errors.New("boom")}
	last := &recordingJob{name: "after-failure"}
	lock := &countingLock{}
	svc := newTestService(t, lock, nil, ok, failing, last)

	err := svc.runCycle(context.Background())
	require.Error(t, err)
	require.Len(t, multierr.Errors(err), 1)
	require.ErrorContains(t, err, "outbox-retention: boom")

	require.Equal(t, 1, ok.runs)
	require.Equal(t, 1, failing.runs)
	require.Equal(t, 1, last.runs)
	require.Equal(t, 1, lock.releases)
	require.False(t, lock.held)
}

func TestRunCycleSkipsWhenLockHeldElsewhere(t *testing.T) {
	reg := prometheus.NewRegistry()
	job := &recordingJob{name: "outbox-retention"}
	svc := newTestService(t, &countingLock{held: true}, reg, job)

	require.NoError(t, svc.runCycle(context.Background()))
	require.Zero(t, job.runs)

	want := `
# HELP occasionbuddy_cron_job_runs_total Cron job executions by outcome.
# TYPE occasionbuddy_cron_job_runs_total counter
occasionbuddy_cron_job_runs_total{job="outbox-retention",outcome="skipped"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(want), "occasionbuddy_cron_job_runs_total"))
}

type brokenLock struct{}

func (brokenLock) Acquire(context.Context) (bool, error) { return false, errors.New("redis down") }
func (brokenLock) Release(context.Context) error         { return nil }

func TestRunCycleReportsLockError(t *testing.T) {
	job := &recordingJob{name: "outbox-retention"}
	svc := newTestService(t, brokenLock{}, nil, job)
	require.ErrorContains(t, svc.runCycle(context.Background()), "redis down")
	require.Zero(t, job.runs)
}

func TestRunStopsOnCancelAfterFirstCycle(t *testing.T) {
	job := &recordingJob{name: "notification-cleanup"}
	svc := newTestService(t, &countingLock{}, nil, job)
	svc.interval = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, svc.Run(ctx), context.Canceled)
	require.Equal(t, 1, job.runs)
}

func TestNewServiceRequiresLockAndLogger(t *testing.T) {
	_, err := NewService(ServiceParams{Lock: &countingLock{}})
	require.Error(t, err)
	_, err = NewService(ServiceParams{Logger: logger.New(logger.Options{Output: io.Discard})})
	require.Error(t, err)
}
