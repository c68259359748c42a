package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const defaultInterval = time.Minute

// ServiceParams configure the cron service.
type ServiceParams struct {
	Logger   *zap.Logger
	Registry *Registry
	Lock     Lock
	Metrics  *JobMetrics
	Interval time.Duration
}

// Service executes registered jobs on a fixed cadence while holding Lock.
type Service struct {
	logger   *zap.Logger
	registry *Registry
	lock     Lock
	metrics  *JobMetrics
	interval time.Duration
}

// NewService builds a cron service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	if params.Lock == nil {
		return nil, errors.New("lock required")
	}
	registry := params.Registry
	if registry == nil {
		registry = NewRegistry()
	}
	interval := params.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Service{
		logger:   params.Logger,
		registry: registry,
		lock:     params.Lock,
		metrics:  params.Metrics,
		interval: interval,
	}, nil
}

// Run executes a cycle immediately and then on every tick until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	if err := s.RunOnce(ctx); err != nil {
		s.logger.Error("scheduled run failed", zap.Error(err))
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("cron service context canceled")
			return ctx.Err()
		case <-ticker.C:
			if err := s.RunOnce(ctx); err != nil {
				s.logger.Error("scheduled run failed", zap.Error(err))
			}
		}
	}
}

// RunOnce runs every job once if the lock can be taken. Every job runs even when an
// earlier one fails; the failures are combined.
func (s *Service) RunOnce(ctx context.Context) (err error) {
	locked, lockErr := s.lock.Acquire(ctx)
	if lockErr != nil {
		return fmt.Errorf("lock acquire: %w", lockErr)
	}
	if !locked {
		s.metrics.IncSkipped()
		s.logger.Info("another instance holds the cron lock; skipping this cycle")
		return nil
	}
	defer func() {
		if relErr := s.lock.Release(context.WithoutCancel(ctx)); relErr != nil {
			s.logger.Error("failed to release cron lock", zap.Error(relErr))
		}
	}()

	for _, job := range s.registry.Jobs() {
		if jobErr := s.runJob(ctx, job); jobErr != nil {
			err = multierr.Append(err, fmt.Errorf("%s: %w", job.Name(), jobErr))
		}
	}
	return err
}

func (s *Service) runJob(ctx context.Context, job Job) error {
	log := s.logger.With(zap.String("job", job.Name()), zap.String("event", "cron.job"))
	log.Debug("job start")
	start := time.Now()
	err := job.Run(ctx)
	duration := time.Since(start)
	s.metrics.ObserveDuration(job.Name(), duration)
	if err != nil {
		log.Error("job failed", zap.Duration("duration", duration), zap.Error(err))
		s.metrics.IncFailure(job.Name())
		return err
	}
	log.Info("job completed", zap.Duration("duration", duration))
	s.metrics.IncSuccess(job.Name())
	return nil
}
