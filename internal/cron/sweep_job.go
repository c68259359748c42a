package cron

import (
	"context"
	"errors"
	"time"

	"github.com/noah-isme/sisacad-enrollment/internal/models"
)

// SweepJobName labels the expiry sweep in logs and metrics.
const SweepJobName = "expired-holds-sweep"

type sweeper interface {
	Sweep(ctx context.Context, now time.Time) (*models.SweepResult, error)
}

type sweepJob struct {
	sweeper sweeper
	now     func() time.Time
}

// NewSweepJob wraps the expiry sweeper as a cron job using the current time as cutoff.
func NewSweepJob(s sweeper) (Job, error) {
	if s == nil {
		return nil, errors.New("sweeper required")
	}
	return &sweepJob{sweeper: s, now: func() time.Time { return time.Now().UTC() }}, nil
}

func (j *sweepJob) Name() string { return SweepJobName }

func (j *sweepJob) Run(ctx context.Context) error {
	_, err := j.sweeper.Sweep(ctx, j.now())
	return err
}
