package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/occasionbuddy/occasionbuddy-backend/pkg/logger"
)

type runner interface {
	Run(ctx context.Context) error
}

type dependency struct {
	name string
	ping func(context.Context) error
}

type ServiceParams struct {
	Logger               *logger.Logger
	Dependencies         []dependency
	NotificationConsumer runner
	AnalyticsConsumer    runner
	Flush                func(context.Context) error
}

// Service runs the Pub/Sub consumers side by side and stops when either exits.
type Service struct {
	logg         *logger.Logger
	dependencies []dependency
	consumers    map[string]runner
	flush        func(context.Context) error
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.NotificationConsumer == nil {
		return nil, errors.New("notification consumer is required")
	}
	if params.AnalyticsConsumer == nil {
		return nil, errors.New("analytics consumer is required")
	}
	return &Service{
		logg:         params.Logger,
		dependencies: params.Dependencies,
		consumers: map[string]runner{
			"notifications": params.NotificationConsumer,
			"analytics":     params.AnalyticsConsumer,
		},
		flush: params.Flush,
	}, nil
}

func (s *Service) ensureReadiness(ctx context.Context) error {
	for _, dep := range s.dependencies {
		if err := dep.ping(ctx); err != nil {
			s.logg.Error(ctx, fmt.Sprintf("%s ping failed", dep.name), err)
			return fmt.Errorf("%s ping failed: %w", dep.name, err)
		}
	}
	s.logg.Info(ctx, "all worker dependencies are ready")
	return nil
}

func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := s.ensureReadiness(ctx); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	type result struct {
		name string
		err  error
	}
	results := make(chan result, len(s.consumers))
	for name, consumer := range s.consumers {
		go func() {
			results <- result{name: name, err: consumer.Run(runCtx)}
		}()
	}

	first := <-results
	cancel()
	for range len(s.consumers) - 1 {
		<-results
	}

	if s.flush != nil {
		if err := s.flush(context.WithoutCancel(ctx)); err != nil {
			s.logg.Error(ctx, "analytics flush failed", err)
		}
	}

	if first.err != nil && !errors.Is(first.err, context.Canceled) {
		s.logg.Error(s.logg.WithField(ctx, "consumer", first.name), "consumer stopped unexpectedly", first.err)
		return first.err
	}
	if ctx.Err() != nil {
		s.logg.Info(ctx, "worker context canceled")
		return ctx.Err()
	}
	return first.err
}
