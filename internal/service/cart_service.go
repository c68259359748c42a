package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sisacad-enrollment/internal/models"
	appErrors "github.com/noah-isme/sisacad-enrollment/pkg/errors"
	"github.com/noah-isme/sisacad-enrollment/pkg/logger"
)

// AddToCartRequest describes a section selection.
type AddToCartRequest struct {
	SectionID string `json:"section_id" validate:"required"`
	TermID    string `json:"term_id" validate:"required"`
}

// CartService manages a student's cart and keeps cart items and seat holds in step.
type CartService struct {
	tx           TxRunner
	reservations *ReservationService
	attempts     *AttemptService
	validator    *validator.Validate
	logger       *zap.Logger
	now          func() time.Time
}

// NewCartService constructs CartService.
func NewCartService(tx TxRunner, reservations *ReservationService, attempts *AttemptService, validate *validator.Validate, log *zap.Logger) *CartService {
	if validate == nil {
		validate = validator.New()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &CartService{
		tx:           tx,
		reservations: reservations,
		attempts:     attempts,
		validator:    validate,
		logger:       log,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (s *CartService) ready() error {
	if s.tx == nil || s.reservations == nil {
		return appErrors.Clone(appErrors.ErrModelUnavailable, "cart store is not configured")
	}
	return nil
}

// GetOrCreateActiveCart returns the student's cart for the term, creating it or
// reactivating a confirmed one.
func (s *CartService) GetOrCreateActiveCart(ctx context.Context, studentID, termID string) (*models.Cart, error) {
	if termID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "term is required")
	}
	if err := s.ready(); err != nil {
		return nil, err
	}
	var cart *models.Cart
	err := s.tx.WithinTx(ctx, func(ctx context.Context, store Store) error {
		var err error
		cart, err = s.openCart(ctx, store, studentID, termID, s.now())
		return err
	})
	if err != nil {
		return nil, asAppError(err, "failed to open cart")
	}
	return cart, nil
}

// openCart upserts the active (student, term) cart inside the caller's transaction.
func (s *CartService) openCart(ctx context.Context, store Store, studentID, termID string, now time.Time) (*models.Cart, error) {
	if _, err := store.FindTerm(ctx, termID); err != nil {
		return nil, notFoundAs(err, "term not found")
	}
	return store.UpsertActiveCart(ctx, studentID, termID, now)
}

// AddToCart holds a seat and adds the section to the cart. Adding a section already in
// the cart renews its hold.
func (s *CartService) AddToCart(ctx context.Context, studentID string, req AddToCartRequest) (*models.CartItem, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid cart item payload")
	}
	if err := s.ready(); err != nil {
		return nil, err
	}

	now := s.now()
	var item *models.CartItem
	err := s.tx.WithinTx(ctx, func(ctx context.Context, store Store) error {
		if _, err := store.FindSection(ctx, req.SectionID); err != nil {
			return notFoundAs(err, "section not found")
		}
		cart, err := s.openCart(ctx, store, studentID, req.TermID, now)
		if err != nil {
			return err
		}
		reservation, err := s.reservations.Reserve(ctx, store, studentID, req.TermID, req.SectionID, now)
		if err != nil {
			return err
		}
		item = &models.CartItem{CartID: cart.ID, SectionID: req.SectionID, ReservedUntil: reservation.ReservedUntil}
		if err := store.UpsertCartItem(ctx, item); err != nil {
			return err
		}
		return store.CreateAttempt(ctx, &models.EnrollmentAttempt{
			StudentID: studentID,
			TermID:    req.TermID,
			Action:    models.AttemptActionAddToCart,
			Payload:   mustJSON(map[string]string{"section_id": req.SectionID}),
			Result:    mustJSON(map[string]interface{}{"status": "OK", "reserved_until": item.ReservedUntil}),
			CreatedAt: now,
		})
	})
	if err != nil {
		err = asAppError(err, "failed to add section to cart")
		s.attempts.RecordFailure(studentID, req.TermID, models.AttemptActionAddToCart, map[string]string{"section_id": req.SectionID}, err)
		return nil, err
	}

	logger.FromContext(ctx, s.logger).Info("section added to cart",
		zap.String("student_id", studentID),
		zap.String("section_id", req.SectionID),
		zap.Time("reserved_until", item.ReservedUntil))
	return item, nil
}

// RemoveFromCart drops the section from the cart and releases its hold. Removing a
// section that is not in the cart succeeds.
func (s *CartService) RemoveFromCart(ctx context.Context, studentID, termID, sectionID string) error {
	if termID == "" || sectionID == "" {
		return appErrors.Clone(appErrors.ErrValidation, "term and section are required")
	}
	if err := s.ready(); err != nil {
		return err
	}

	now := s.now()
	err := s.tx.WithinTx(ctx, func(ctx context.Context, store Store) error {
		var removed int64
		cart, err := store.LockCart(ctx, studentID, termID)
		if err != nil {
			return err
		}
		if cart != nil {
			if removed, err = store.DeleteCartItem(ctx, cart.ID, sectionID); err != nil {
				return err
			}
		}
		if err := s.reservations.Release(ctx, store, studentID, termID, sectionID); err != nil {
			return err
		}
		return store.CreateAttempt(ctx, &models.EnrollmentAttempt{
			StudentID: studentID,
			TermID:    termID,
			Action:    models.AttemptActionRemoveFromCart,
			Payload:   mustJSON(map[string]string{"section_id": sectionID}),
			Result:    mustJSON(map[string]interface{}{"status": "OK", "removed": removed > 0}),
			CreatedAt: now,
		})
	})
	if err != nil {
		err = asAppError(err, "failed to remove section from cart")
		s.attempts.RecordFailure(studentID, termID, models.AttemptActionRemoveFromCart, map[string]string{"section_id": sectionID}, err)
		return err
	}
	return nil
}

// ActiveCart returns the active cart with display details. A student without an active
// cart gets an empty view.
func (s *CartService) ActiveCart(ctx context.Context, studentID, termID string) (*models.CartView, error) {
	if termID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "term is required")
	}
	if err := s.ready(); err != nil {
		return nil, err
	}

	now := s.now()
	view := &models.CartView{Items: []models.CartItemDetail{}}
	err := s.tx.WithinTx(ctx, func(ctx context.Context, store Store) error {
		if _, err := store.FindTerm(ctx, termID); err != nil {
			return notFoundAs(err, "term not found")
		}
		rule, err := store.FindTermRule(ctx, termID)
		if err != nil {
			return err
		}
		if rule != nil {
			view.MinCredits = rule.MinCredits
			view.MaxCredits = rule.MaxCredits
			if !rule.GPAThreshold.IsZero() {
				gpa := rule.GPAThreshold
				view.GPAThreshold = &gpa
			}
		}
		cart, err := store.FindActiveCart(ctx, studentID, termID)
		if err != nil || cart == nil {
			return err
		}
		view.Cart = cart
		items, err := store.ListCartItemDetails(ctx, cart.ID)
		if err != nil {
			return err
		}
		for i := range items {
			items[i].IsExpired = items[i].Expired(now)
			if !items[i].IsExpired {
				view.TotalCredits += items[i].Credits
			}
		}
		if items != nil {
			view.Items = items
		}
		return nil
	})
	if err != nil {
		return nil, asAppError(err, "failed to load cart")
	}
	return view, nil
}

// MyEnrollments lists the student's confirmed enrollments.
func (s *CartService) MyEnrollments(ctx context.Context, studentID string) ([]models.Enrollment, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	var enrollments []models.Enrollment
	err := s.tx.WithinTx(ctx, func(ctx context.Context, store Store) error {
		var err error
		enrollments, err = store.ListStudentEnrollments(ctx, studentID)
		return err
	})
	if err != nil {
		return nil, asAppError(err, "failed to list enrollments")
	}
	if enrollments == nil {
		enrollments = []models.Enrollment{}
	}
	return enrollments, nil
}
