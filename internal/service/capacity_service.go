package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sisacad-enrollment/internal/models"
	appErrors "github.com/noah-isme/sisacad-enrollment/pkg/errors"
	"github.com/noah-isme/sisacad-enrollment/pkg/logger"
)

type capacityStore interface {
	CountEnrolled(ctx context.Context, sectionID string) (int, error)
	CountOutstanding(ctx context.Context, sectionID, excludeStudentID string, now time.Time) (int, error)
}

// CapacityService computes seat availability. Figures are read fresh inside the
// caller's transaction and never cached.
type CapacityService struct {
	tx     TxRunner
	logger *zap.Logger
	now    func() time.Time
}

// NewCapacityService constructs CapacityService. tx is only needed for Availability.
func NewCapacityService(tx TxRunner, log *zap.Logger) *CapacityService {
	if log == nil {
		log = zap.NewNop()
	}
	return &CapacityService{tx: tx, logger: log, now: func() time.Time { return time.Now().UTC() }}
}

// AvailableSeats returns capacity minus enrollments minus unexpired holds of other
// students. Callers hold the section row lock. Negative values are logged and floored at 0.
func (s *CapacityService) AvailableSeats(ctx context.Context, store capacityStore, section *models.CourseSection, studentID string, now time.Time) (int, error) {
	enrolled, err := store.CountEnrolled(ctx, section.ID)
	if err != nil {
		return 0, err
	}
	holds, err := store.CountOutstanding(ctx, section.ID, studentID, now)
	if err != nil {
		return 0, err
	}
	raw := section.Capacity - enrolled - holds
	if raw < 0 {
		logger.FromContext(ctx, s.logger).Warn("section over capacity",
			zap.String("section_id", section.ID),
			zap.Int("capacity", section.Capacity),
			zap.Int("enrolled", enrolled),
			zap.Int("holds", holds),
			zap.Int("available_raw", raw))
		return 0, nil
	}
	return raw, nil
}

// Availability reports live seat accounting for display.
func (s *CapacityService) Availability(ctx context.Context, sectionID string) (*models.SectionAvailability, error) {
	if s.tx == nil {
		return nil, appErrors.Clone(appErrors.ErrModelUnavailable, "section store is not configured")
	}
	now := s.now()
	var result *models.SectionAvailability
	err := s.tx.WithinTx(ctx, func(ctx context.Context, store Store) error {
		section, err := store.FindSection(ctx, sectionID)
		if err != nil {
			return notFoundAs(err, "section not found")
		}
		enrolled, err := store.CountEnrolled(ctx, section.ID)
		if err != nil {
			return err
		}
		holds, err := store.CountOutstanding(ctx, section.ID, "", now)
		if err != nil {
			return err
		}
		result = &models.SectionAvailability{
			SectionID:        section.ID,
			Capacity:         section.Capacity,
			Enrolled:         enrolled,
			OutstandingHolds: holds,
		}
		if raw := section.Capacity - enrolled - holds; raw >= 0 {
			result.AvailableSeats = raw
		} else {
			result.OverCapacityBy = -raw
		}
		return nil
	})
	if err != nil {
		return nil, asAppError(err, "failed to load section availability")
	}
	return result, nil
}
