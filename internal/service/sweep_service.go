package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sisacad-enrollment/internal/models"
	appErrors "github.com/noah-isme/sisacad-enrollment/pkg/errors"
	"github.com/noah-isme/sisacad-enrollment/pkg/logger"
)

// SweepService releases holds whose reserved_until is at or before the cutoff.
type SweepService struct {
	tx      TxRunner
	metrics *MetricsService
	logger  *zap.Logger
}

// NewSweepService constructs SweepService.
func NewSweepService(tx TxRunner, metrics *MetricsService, log *zap.Logger) *SweepService {
	if log == nil {
		log = zap.NewNop()
	}
	return &SweepService{tx: tx, metrics: metrics, logger: log}
}

// Sweep deletes expired reservations and cart items in one transaction. Rows locked by
// an in-flight confirm are left for the next run.
func (s *SweepService) Sweep(ctx context.Context, now time.Time) (*models.SweepResult, error) {
	if s.tx == nil {
		return nil, appErrors.Clone(appErrors.ErrModelUnavailable, "reservation store is not configured")
	}
	result := &models.SweepResult{Cutoff: now}
	err := s.tx.WithinTx(ctx, func(ctx context.Context, store Store) error {
		var err error
		if result.ReservationsReleased, err = store.DeleteExpiredReservations(ctx, now); err != nil {
			return err
		}
		result.ItemsReleased, err = store.DeleteExpiredCartItems(ctx, now)
		return err
	})
	if err != nil {
		return nil, asAppError(err, "failed to sweep expired holds")
	}

	s.metrics.RecordSweep(result.ReservationsReleased, result.ItemsReleased)
	if result.ReservationsReleased > 0 || result.ItemsReleased > 0 {
		logger.FromContext(ctx, s.logger).Info("expired holds released",
			zap.Int64("reservations", result.ReservationsReleased),
			zap.Int64("cart_items", result.ItemsReleased),
			zap.Time("cutoff", now))
	}
	return result, nil
}
