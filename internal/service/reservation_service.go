package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sisacad-enrollment/internal/models"
	appErrors "github.com/noah-isme/sisacad-enrollment/pkg/errors"
	"github.com/noah-isme/sisacad-enrollment/pkg/logger"
)

type reservationLocker interface {
	capacityStore
	LockSection(ctx context.Context, id string) (*models.CourseSection, error)
	FindTermRule(ctx context.Context, termID string) (*models.TermRule, error)
	FindReservation(ctx context.Context, sectionID, studentID, termID string) (*models.CapReservation, error)
	UpsertReservation(ctx context.Context, reservation *models.CapReservation) error
	DeleteReservation(ctx context.Context, sectionID, studentID, termID string) (int64, error)
}

// ReservationService grants and releases time-bounded seat holds.
type ReservationService struct {
	capacity    *CapacityService
	defaultHold time.Duration
	metrics     *MetricsService
	logger      *zap.Logger
}

// NewReservationService constructs ReservationService. defaultHold applies when the
// term has no hold rule.
func NewReservationService(capacity *CapacityService, defaultHold time.Duration, metrics *MetricsService, log *zap.Logger) *ReservationService {
	if capacity == nil {
		capacity = NewCapacityService(nil, log)
	}
	if defaultHold <= 0 {
		defaultHold = models.DefaultHoldMinutes * time.Minute
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ReservationService{capacity: capacity, defaultHold: defaultHold, metrics: metrics, logger: log}
}

// Reserve locks the section and creates or renews the student's hold. A student whose
// hold is still active may renew it even when the section reads full.
func (s *ReservationService) Reserve(ctx context.Context, store reservationLocker, studentID, termID, sectionID string, now time.Time) (*models.CapReservation, error) {
	section, err := store.LockSection(ctx, sectionID)
	if err != nil {
		return nil, notFoundAs(err, "section not found")
	}

	seats, err := s.capacity.AvailableSeats(ctx, store, section, studentID, now)
	if err != nil {
		return nil, err
	}
	if seats <= 0 {
		existing, err := store.FindReservation(ctx, sectionID, studentID, termID)
		if err != nil {
			return nil, err
		}
		if existing == nil || !existing.Active(now) {
			s.metrics.RecordReservation(false)
			logger.FromContext(ctx, s.logger).Info("reservation rejected",
				zap.String("section_id", sectionID), zap.String("student_id", studentID))
			return nil, appErrors.Clone(appErrors.ErrCapacityExceeded, fmt.Sprintf("section %s has no available seats", sectionID))
		}
	}

	rule, err := store.FindTermRule(ctx, termID)
	if err != nil {
		return nil, err
	}

	reservation := &models.CapReservation{
		SectionID:     sectionID,
		StudentID:     studentID,
		TermID:        termID,
		ReservedUntil: now.Add(rule.HoldDuration(s.defaultHold)),
	}
	if err := store.UpsertReservation(ctx, reservation); err != nil {
		return nil, err
	}
	s.metrics.RecordReservation(true)
	return reservation, nil
}

// Release drops the student's hold. A missing hold is not an error.
func (s *ReservationService) Release(ctx context.Context, store reservationLocker, studentID, termID, sectionID string) error {
	_, err := store.DeleteReservation(ctx, sectionID, studentID, termID)
	return err
}
