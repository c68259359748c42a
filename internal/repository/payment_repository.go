package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sisacad-enrollment/internal/models"
)

// PaymentRepository records payment orders raised by confirmations.
type PaymentRepository struct {
	db sqlx.ExtContext
}

// NewPaymentRepository constructs the repository.
func NewPaymentRepository(db sqlx.ExtContext) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// CreatePaymentOrder inserts a payment order.
func (r *PaymentRepository) CreatePaymentOrder(ctx context.Context, order *models.PaymentOrder) error {
	if order.ID == "" {
		order.ID = uuid.NewString()
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO payment_orders (id, student_id, term_id, amount, created_at)
        VALUES (:id, :student_id, :term_id, :amount, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.db, query, order); err != nil {
		return fmt.Errorf("create payment order: %w", err)
	}
	return nil
}
