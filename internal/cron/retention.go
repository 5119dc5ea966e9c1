package cron

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/multierr"

	"github.com/occasionbuddy/occasionbuddy-backend/pkg/logger"
)

// sweep deletes rows older than now minus retention.
type sweep struct {
	label     string
	retention time.Duration
	purge     func(ctx context.Context, cutoff time.Time) (int64, error)
}

// retentionJob runs every sweep on each tick. A failing sweep does not stop
// the ones after it; all failures are returned together.
type retentionJob struct {
	name   string
	logg   *logger.Logger
	sweeps []sweep
	now    func() time.Time
}

func newRetentionJob(name string, logg *logger.Logger, sweeps ...sweep) *retentionJob {
	return &retentionJob{name: name, logg: logg, sweeps: sweeps, now: time.Now}
}

func (j *retentionJob) Name() string { return j.name }

func (j *retentionJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	fields := make(map[string]any, 2*len(j.sweeps))

	var errs error
	for _, s := range j.sweeps {
		cutoff := now.Add(-s.retention)
		fields[s.label+"_cutoff"] = cutoff
		deleted, err := s.purge(ctx, cutoff)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", s.label, err))
			continue
		}
		fields[s.label+"_deleted"] = deleted
	}
	if errs != nil {
		return fmt.Errorf("%s: %w", j.name, errs)
	}

	j.logg.Info(j.logg.WithFields(ctx, fields), "cron."+strings.ReplaceAll(j.name, "-", "_")+".complete")
	return nil
}

func orDefault(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}
