package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/noah-isme/sisacad-enrollment/internal/models"
)

type fakeLock struct {
	acquired bool
	releases int
	err      error
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if f.acquired {
		return false, nil
	}
	f.acquired = true
	return true, nil
}

func (f *fakeLock) Release(context.Context) error {
	f.acquired = false
	f.releases++
	return nil
}

type testJob struct {
	name string
	err  error
	runs int
}

func (t *testJob) Name() string { return t.name }

func (t *testJob) Run(context.Context) error {
	t.runs++
	return t.err
}

func TestRunOnceRunsAllJobsEvenOnFailure(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewJobMetrics(reg)
	success := &testJob{name: "success"}
	failA := &testJob{name: "fail-a", err: errors.New("boom")}
	failB := &testJob{name: "fail-b", err: errors.New("bang")}
	lock := &fakeLock{}
	svc, err := NewService(ServiceParams{
		Logger:   zap.NewNop(),
		Registry: NewRegistry(success, failA, failB),
		Lock:     lock,
		Metrics:  metrics,
	})
	require.NoError(t, err)

	err = svc.RunOnce(context.Background())
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 2)
	assert.Contains(t, err.Error(), "fail-a: boom")

	assert.Equal(t, 1, success.runs)
	assert.Equal(t, 1, failA.runs)
	assert.Equal(t, 1, failB.runs)
	assert.Equal(t, 1, lock.releases)
	assert.False(t, lock.acquired)

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.success.WithLabelValues("success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.failure.WithLabelValues("fail-a")))
}

func TestRunOnceSkipsWhenLockHeld(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewJobMetrics(reg)
	job := &testJob{name: "sweep"}
	svc, err := NewService(ServiceParams{
		Logger:   zap.NewNop(),
		Registry: NewRegistry(job),
		Lock:     &fakeLock{acquired: true},
		Metrics:  metrics,
	})
	require.NoError(t, err)

	require.NoError(t, svc.RunOnce(context.Background()))
	assert.Zero(t, job.runs)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.skipped))
}

func TestRunOnceLockError(t *testing.T) {
	svc, err := NewService(ServiceParams{Logger: zap.NewNop(), Lock: &fakeLock{err: errors.New("redis down")}})
	require.NoError(t, err)
	assert.ErrorContains(t, svc.RunOnce(context.Background()), "lock acquire")
}

func TestRunStopsOnCancel(t *testing.T) {
	job := &testJob{name: "sweep"}
	svc, err := NewService(ServiceParams{
		Logger:   zap.NewNop(),
		Registry: NewRegistry(job),
		Lock:     &LocalLock{},
		Interval: 5 * time.Millisecond,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 40*time.Millisecond)
	defer cancel()
	err = svc.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.GreaterOrEqual(t, job.runs, 2)
}

func TestNewServiceValidates(t *testing.T) {
	_, err := NewService(ServiceParams{Lock: &fakeLock{}})
	assert.Error(t, err)
	_, err = NewService(ServiceParams{Logger: zap.NewNop()})
	assert.Error(t, err)
}

type fakeSweeper struct {
	cutoffs []time.Time
	err     error
}

func (f *fakeSweeper) Sweep(_ context.Context, now time.Time) (*models.SweepResult, error) {
	f.cutoffs = append(f.cutoffs, now)
	if f.err != nil {
		return nil, f.err
	}
	return &models.SweepResult{Cutoff: now}, nil
}

func TestSweepJobUsesCurrentTime(t *testing.T) {
	sweeper := &fakeSweeper{}
	job, err := NewSweepJob(sweeper)
	require.NoError(t, err)
	fixed := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	job.(*sweepJob).now = func() time.Time { return fixed }

	assert.Equal(t, SweepJobName, job.Name())
	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, []time.Time{fixed}, sweeper.cutoffs)

	sweeper.err = errors.New("db down")
	assert.Error(t, job.Run(context.Background()))

	_, err = NewSweepJob(nil)
	assert.Error(t, err)
}
