package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/occasionbuddy/occasionbuddy-backend/pkg/logger"
	"github.com/occasionbuddy/occasionbuddy-backend/pkg/metrics"
)

const defaultInterval = time.Hour

type ServiceParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Lock     Lock
	Metrics  *metrics.CronJobMetrics
	Interval time.Duration
}

// Service runs every registered job once per interval while holding Lock.
// A failing job never stops the jobs after it.
type Service struct {
	logg     *logger.Logger
	jobs     []Job
	lock     Lock
	metrics  *metrics.CronJobMetrics
	interval time.Duration
	now      func() time.Time
}

func NewService(p ServiceParams) (*Service, error) {
	if p.Logger == nil {
		return nil, errors.New("logger required")
	}
	if p.Lock == nil {
		return nil, errors.New("lock required")
	}
	var jobs []Job
	if p.Registry != nil {
		jobs = p.Registry.Jobs()
	}
	interval := p.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Service{
		logg:     p.Logger,
		jobs:     jobs,
		lock:     p.Lock,
		metrics:  p.Metrics,
		interval: interval,
		now:      time.Now,
	}, nil
}

// Run fires one cycle immediately, then one per tick, until ctx ends.
func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if err := s.runCycle(ctx); err != nil {
			s.logg.Error(ctx, "cron.cycle.failed", err)
		}
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "cron.stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// runCycle returns the combined job failures so one log line covers the cycle.
func (s *Service) runCycle(ctx context.Context) (err error) {
	held, err := s.lock.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("lock acquire: %w", err)
	}
	if !held {
		s.logg.Info(ctx, "cron.cycle.skipped")
		for _, job := range s.jobs {
			s.metrics.IncSkipped(job.Name())
		}
		return nil
	}
	defer func() {
		if relErr := s.lock.Release(context.WithoutCancel(ctx)); relErr != nil {
			s.logg.Error(ctx, "cron.lock.release_failed", relErr)
		}
	}()

	for _, job := range s.jobs {
		if jobErr := s.runJob(ctx, job); jobErr != nil {
			err = multierr.Append(err, fmt.Errorf("%s: %w", job.Name(), jobErr))
		}
	}
	return err
}

func (s *Service) runJob(ctx context.Context, job Job) error {
	name := job.Name()
	ctx = s.logg.WithField(ctx, "job", name)
	s.logg.Debug(ctx, "cron.job.start")

	started := s.now()
	err := job.Run(ctx)
	elapsed := s.now().Sub(started)
	s.metrics.ObserveDuration(name, elapsed)

	ctx = s.logg.WithField(ctx, "duration_ms", elapsed.Milliseconds())
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "cron.job.failed")
		s.metrics.IncFailure(name)
		return err
	}
	s.logg.Info(ctx, "cron.job.completed")
	s.metrics.IncSuccess(name)
	return nil
}
