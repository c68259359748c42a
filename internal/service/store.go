package service

import (
	"context"
	"time"

	"github.com/noah-isme/sisacad-enrollment/internal/models"
	"github.com/noah-isme/sisacad-enrollment/internal/repository"
)

type sectionStore interface {
	FindSection(ctx context.Context, id string) (*models.CourseSection, error)
	LockSection(ctx context.Context, id string) (*models.CourseSection, error)
	CountEnrolled(ctx context.Context, sectionID string) (int, error)
	SectionCredits(ctx context.Context, sectionID string) (int, error)
}

type termStore interface {
	FindTerm(ctx context.Context, id string) (*models.Term, error)
	FindTermRule(ctx context.Context, termID string) (*models.TermRule, error)
}

type reservationStore interface {
	FindReservation(ctx context.Context, sectionID, studentID, termID string) (*models.CapReservation, error)
	CountOutstanding(ctx context.Context, sectionID, excludeStudentID string, now time.Time) (int, error)
	UpsertReservation(ctx context.Context, reservation *models.CapReservation) error
	DeleteReservation(ctx context.Context, sectionID, studentID, termID string) (int64, error)
	DeleteExpiredReservations(ctx context.Context, cutoff time.Time) (int64, error)
}

type cartStore interface {
	UpsertActiveCart(ctx context.Context, studentID, termID string, now time.Time) (*models.Cart, error)
	LockActiveCart(ctx context.Context, studentID, termID string) (*models.Cart, error)
	FindActiveCart(ctx context.Context, studentID, termID string) (*models.Cart, error)
	LockCart(ctx context.Context, studentID, termID string) (*models.Cart, error)
	DeactivateCart(ctx context.Context, cartID string, confirmedAt time.Time) error
	ListCartItems(ctx context.Context, cartID string) ([]models.CartItem, error)
	ListCartItemDetails(ctx context.Context, cartID string) ([]models.CartItemDetail, error)
	UpsertCartItem(ctx context.Context, item *models.CartItem) error
	DeleteCartItem(ctx context.Context, cartID, sectionID string) (int64, error)
	DeleteExpiredCartItems(ctx context.Context, cutoff time.Time) (int64, error)
}

type enrollmentStore interface {
	EnrollmentExists(ctx context.Context, studentID, sectionID string) (bool, error)
	CreateEnrollment(ctx context.Context, enrollment *models.Enrollment) (bool, error)
	ListStudentEnrollments(ctx context.Context, studentID string) ([]models.Enrollment, error)
}

// Store is the transaction-bound data access used by the cart workflows.
type Store interface {
	sectionStore
	termStore
	reservationStore
	cartStore
	enrollmentStore
	CreateAttempt(ctx context.Context, attempt *models.EnrollmentAttempt) error
	CreatePaymentOrder(ctx context.Context, order *models.PaymentOrder) error
	Savepoint(ctx context.Context, name string, fn func() error) error
}

// TxRunner runs fn with a Store bound to a single transaction.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, store Store) error) error
}

type txManagerRunner struct {
	manager *repository.TxManager
}

// NewTxRunner adapts the repository transaction manager. A nil manager yields a nil runner.
func NewTxRunner(manager *repository.TxManager) TxRunner {
	if manager == nil {
		return nil
	}
	return &txManagerRunner{manager: manager}
}

func (r *txManagerRunner) WithinTx(ctx context.Context, fn func(ctx context.Context, store Store) error) error {
	return r.manager.WithinTx(ctx, func(ctx context.Context, store *repository.Store) error {
		return fn(ctx, store)
	})
}
