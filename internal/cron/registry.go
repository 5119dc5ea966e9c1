package cron

import (
	"context"
	"fmt"
)

// Job is one maintenance task. Name doubles as its metrics label.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Registry keeps jobs in registration order with unique names.
type Registry struct {
	order []Job
	names map[string]struct{}
}

func NewRegistry(jobs ...Job) (*Registry, error) {
	r := &Registry{names: make(map[string]struct{}, len(jobs))}
	for _, job := range jobs {
		if err := r.Register(job); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) Register(job Job) error {
	if job == nil {
		return fmt.Errorf("nil cron job")
	}
	name := job.Name()
	if name == "" {
		return fmt.Errorf("cron job name is required")
	}
	if _, dup := r.names[name]; dup {
		return fmt.Errorf("cron job %q registered twice", name)
	}
	r.names[name] = struct{}{}
	r.order = append(r.order, job)
	return nil
}

// Jobs returns a copy, callers may reorder it freely.
func (r *Registry) Jobs() []Job {
	return append([]Job(nil), r.order...)
}
