package service

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sisacad-enrollment/internal/models"
	appErrors "github.com/noah-isme/sisacad-enrollment/pkg/errors"
	"github.com/noah-isme/sisacad-enrollment/pkg/jobs"
)

type attemptRepository interface {
	CreateAttempt(ctx context.Context, attempt *models.EnrollmentAttempt) error
	ListAttempts(ctx context.Context, filter models.EnrollmentAttemptFilter) ([]models.EnrollmentAttempt, int, error)
}

// AttemptService exposes the enrollment audit feed and records failed operations
// out-of-band, after their transaction has rolled back.
type AttemptService struct {
	repo    attemptRepository
	queue   *jobs.Queue[models.EnrollmentAttempt]
	metrics *MetricsService
	logger  *zap.Logger
}

// NewAttemptService constructs AttemptService with its own failure queue.
func NewAttemptService(repo attemptRepository, queueCfg jobs.QueueConfig, metrics *MetricsService, log *zap.Logger) *AttemptService {
	if log == nil {
		log = zap.NewNop()
	}
	s := &AttemptService{repo: repo, metrics: metrics, logger: log}
	if queueCfg.Logger == nil {
		queueCfg.Logger = log
	}
	s.queue = jobs.NewQueue("enrollment-attempts", s.persist, queueCfg)
	return s
}

// Start launches the audit workers.
func (s *AttemptService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains queued audit records.
func (s *AttemptService) Stop() {
	s.queue.Stop()
}

// List returns audit records with pagination metadata.
func (s *AttemptService) List(ctx context.Context, filter models.EnrollmentAttemptFilter) ([]models.EnrollmentAttempt, *models.Pagination, error) {
	if s.repo == nil {
		return nil, nil, appErrors.Clone(appErrors.ErrModelUnavailable, "attempt store is not configured")
	}
	attempts, total, err := s.repo.ListAttempts(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollment attempts")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return attempts, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// RecordFailure queues an attempt describing cause. It never fails the caller.
func (s *AttemptService) RecordFailure(studentID, termID, action string, payload interface{}, cause error) {
	if s == nil || cause == nil {
		return
	}
	appErr := appErrors.FromError(cause)
	attempt := models.EnrollmentAttempt{
		StudentID: studentID,
		TermID:    termID,
		Action:    action,
		Payload:   mustJSON(payload),
		Result:    mustJSON(map[string]string{"status": "FAILED", "code": appErr.Code, "message": appErr.Message}),
		CreatedAt: time.Now().UTC(),
	}
	if err := s.queue.Enqueue(attempt); err != nil {
		s.metrics.RecordAuditDropped()
		s.logger.Warn("failed to queue enrollment attempt",
			zap.String("action", action),
			zap.String("student_id", studentID),
			zap.Error(err))
	}
}

func (s *AttemptService) persist(ctx context.Context, job jobs.Job[models.EnrollmentAttempt]) error {
	if s.repo == nil {
		return nil
	}
	attempt := job.Payload
	return s.repo.CreateAttempt(ctx, &attempt)
}

// mustJSON encodes v, falling back to an empty object.
func mustJSON(v interface{}) json.RawMessage {
	if v == nil {
		return json.RawMessage(`{}`)
	}
	raw, err := json.Marshal(v)
	if err != nil || string(raw) == "null" {
		return json.RawMessage(`{}`)
	}
	return raw
}
