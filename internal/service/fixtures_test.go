package service

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/sisacad-enrollment/internal/models"
	"github.com/noah-isme/sisacad-enrollment/pkg/jobs"
)

const testTerm = "term-2025-1"

type enrollmentFixture struct {
	db       *memDB
	clock    *testClock
	audit    *recordingAttemptRepo
	attempts *AttemptService
	metrics  *MetricsService
	capacity *CapacityService
	carts    *CartService
	confirm  *ConfirmService
	sweeper  *SweepService
}

func newEnrollmentFixture(t *testing.T) *enrollmentFixture {
	t.Helper()
	db := newMemDB()
	db.addTerm(testTerm, &models.TermRule{
		HoldMinutes: 15,
		MinCredits:  12,
		MaxCredits:  20,
		CreditFee:   decimal.RequireFromString("25.50"),
	})

	clock := newTestClock()
	metrics := NewMetricsService()
	audit := &recordingAttemptRepo{}
	attempts := NewAttemptService(audit, jobs.QueueConfig{Workers: 1, RetryDelay: time.Millisecond}, metrics, zap.NewNop())
	attempts.Start(context.Background())
	t.Cleanup(attempts.Stop)

	capacity := NewCapacityService(db, zap.NewNop())
	capacity.now = clock.Now
	reservations := NewReservationService(capacity, 0, metrics, zap.NewNop())
	carts := NewCartService(db, reservations, attempts, validator.New(), zap.NewNop())
	carts.now = clock.Now
	confirm := NewConfirmService(db, capacity, attempts, metrics, zap.NewNop())
	confirm.now = clock.Now

	return &enrollmentFixture{
		db:       db,
		clock:    clock,
		audit:    audit,
		attempts: attempts,
		metrics:  metrics,
		capacity: capacity,
		carts:    carts,
		confirm:  confirm,
		sweeper:  NewSweepService(db, metrics, zap.NewNop()),
	}
}

func (f *enrollmentFixture) add(t *testing.T, studentID, sectionID string) (*models.CartItem, error) {
	t.Helper()
	return f.carts.AddToCart(context.Background(), studentID, AddToCartRequest{SectionID: sectionID, TermID: testTerm})
}
