package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/sisacad-enrollment/internal/models"
	appErrors "github.com/noah-isme/sisacad-enrollment/pkg/errors"
	"github.com/noah-isme/sisacad-enrollment/pkg/logger"
)

// errItemGone marks a cart item removed by a concurrent sweep after it was loaded.
var errItemGone = errors.New("cart item no longer present")

// ConfirmService converts valid cart holds into enrollments.
type ConfirmService struct {
	tx       TxRunner
	capacity *CapacityService
	attempts *AttemptService
	metrics  *MetricsService
	logger   *zap.Logger
	now      func() time.Time
}

// NewConfirmService constructs ConfirmService.
func NewConfirmService(tx TxRunner, capacity *CapacityService, attempts *AttemptService, metrics *MetricsService, log *zap.Logger) *ConfirmService {
	if log == nil {
		log = zap.NewNop()
	}
	if capacity == nil {
		capacity = NewCapacityService(nil, log)
	}
	return &ConfirmService{
		tx:       tx,
		capacity: capacity,
		attempts: attempts,
		metrics:  metrics,
		logger:   log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Confirm enrolls the student in every valid cart section that still has a seat. Sections
// that fail keep their cart item and hold in the still active cart; when none fail the
// cart is deactivated in the same transaction.
func (s *ConfirmService) Confirm(ctx context.Context, studentID, termID string) (*models.ConfirmResult, error) {
	if termID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "term is required")
	}
	if s.tx == nil {
		return nil, appErrors.Clone(appErrors.ErrModelUnavailable, "cart store is not configured")
	}

	now := s.now()
	var result *models.ConfirmResult
	err := s.tx.WithinTx(ctx, func(ctx context.Context, store Store) error {
		if _, err := store.FindTerm(ctx, termID); err != nil {
			return notFoundAs(err, "term not found")
		}
		cart, err := store.LockActiveCart(ctx, studentID, termID)
		if err != nil {
			return err
		}
		if cart == nil {
			return appErrors.ErrEmptyCart
		}
		items, err := store.ListCartItems(ctx, cart.ID)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return appErrors.ErrEmptyCart
		}

		result = &models.ConfirmResult{CartID: cart.ID, ConfirmedAt: now}
		valid := make([]models.CartItem, 0, len(items))
		for _, item := range items {
			if item.Expired(now) {
				result.Expired++
				result.Outcomes = append(result.Outcomes, models.SectionOutcome{
					SectionID: item.SectionID, Status: models.OutcomeExpired, Reason: "hold expired",
				})
				continue
			}
			valid = append(valid, item)
		}
		if len(valid) == 0 {
			return appErrors.ErrNoValidItems
		}
		sort.Slice(valid, func(i, j int) bool { return valid[i].SectionID < valid[j].SectionID })
		result.Requested = len(valid)

		credits := 0
		for i, item := range valid {
			sectionCredits := 0
			err := store.Savepoint(ctx, fmt.Sprintf("confirm_item_%d", i), func() error {
				var err error
				sectionCredits, err = s.enrollItem(ctx, store, cart.ID, studentID, termID, item, now)
				return err
			})
			switch {
			case err == nil:
				result.Enrolled++
				credits += sectionCredits
				result.Outcomes = append(result.Outcomes, models.SectionOutcome{SectionID: item.SectionID, Status: models.OutcomeEnrolled})
			case errors.Is(err, errItemGone):
				result.Expired++
				result.Outcomes = append(result.Outcomes, models.SectionOutcome{
					SectionID: item.SectionID, Status: models.OutcomeExpired, Reason: "hold released before confirmation",
				})
			case errors.Is(err, appErrors.ErrCapacityExceeded):
				result.CartOpen = true
				result.Outcomes = append(result.Outcomes, models.SectionOutcome{
					SectionID: item.SectionID, Status: models.OutcomeCapacityExceeded, Reason: "no available seats",
				})
			default:
				return err
			}
		}

		// Sections refused for capacity stay in the cart, which remains active.
		if !result.CartOpen {
			if err := store.DeactivateCart(ctx, cart.ID, now); err != nil {
				return err
			}
		}

		if result.Enrolled > 0 {
			rule, err := store.FindTermRule(ctx, termID)
			if err != nil {
				return err
			}
			fee := decimal.Zero
			if rule != nil {
				fee = rule.CreditFee
			}
			order := &models.PaymentOrder{
				StudentID: studentID,
				TermID:    termID,
				Amount:    fee.Mul(decimal.NewFromInt(int64(credits))),
				CreatedAt: now,
			}
			if err := store.CreatePaymentOrder(ctx, order); err != nil {
				return err
			}
			result.PaymentOrder = order
		}

		return store.CreateAttempt(ctx, &models.EnrollmentAttempt{
			StudentID: studentID,
			TermID:    termID,
			Action:    models.AttemptActionConfirm,
			Payload:   mustJSON(map[string]string{"cart_id": cart.ID}),
			Result: mustJSON(map[string]interface{}{
				"enrolled":  result.Enrolled,
				"requested": result.Requested,
				"expired":   result.Expired,
				"failed":    result.Failed(),
			}),
			CreatedAt: now,
		})
	})
	if err != nil {
		err = asAppError(err, "failed to confirm cart")
		s.attempts.RecordFailure(studentID, termID, models.AttemptActionConfirm, map[string]string{"term_id": termID}, err)
		return nil, err
	}

	for _, outcome := range result.Outcomes {
		s.metrics.RecordConfirmOutcome(outcome.Status)
	}
	logger.FromContext(ctx, s.logger).Info("cart confirmed",
		zap.String("student_id", studentID),
		zap.String("term_id", termID),
		zap.Int("enrolled", result.Enrolled),
		zap.Int("requested", result.Requested))
	return result, nil
}

// enrollItem runs inside a savepoint. Any error undoes the item's changes.
func (s *ConfirmService) enrollItem(ctx context.Context, store Store, cartID, studentID, termID string, item models.CartItem, now time.Time) (int, error) {
	deleted, err := store.DeleteCartItem(ctx, cartID, item.SectionID)
	if err != nil {
		return 0, err
	}
	if deleted == 0 {
		return 0, errItemGone
	}

	section, err := store.LockSection(ctx, item.SectionID)
	if err != nil {
		return 0, err
	}

	already, err := store.EnrollmentExists(ctx, studentID, section.ID)
	if err != nil {
		return 0, err
	}
	if !already {
		seats, err := s.capacity.AvailableSeats(ctx, store, section, studentID, now)
		if err != nil {
			return 0, err
		}
		if seats <= 0 {
			return 0, appErrors.ErrCapacityExceeded
		}
		if _, err := store.CreateEnrollment(ctx, &models.Enrollment{StudentID: studentID, SectionID: section.ID, CreatedAt: now}); err != nil {
			return 0, err
		}
	}

	if _, err := store.DeleteReservation(ctx, section.ID, studentID, termID); err != nil {
		return 0, err
	}
	if already {
		return 0, nil
	}
	return store.SectionCredits(ctx, section.ID)
}
