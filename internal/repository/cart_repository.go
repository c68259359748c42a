package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sisacad-enrollment/internal/models"
)

const cartColumns = `id, student_id, term_id, is_active, confirmed_at, created_at`

// CartRepository persists enrollment carts and their items.
type CartRepository struct {
	db sqlx.ExtContext
}

// NewCartRepository constructs the repository.
func NewCartRepository(db sqlx.ExtContext) *CartRepository {
	return &CartRepository{db: db}
}

// UpsertActiveCart returns the (student, term) cart, creating it or reactivating a
// confirmed one. The row stays locked until the transaction ends.
func (r *CartRepository) UpsertActiveCart(ctx context.Context, studentID, termID string, now time.Time) (*models.Cart, error) {
	query := `INSERT INTO enrollment_carts (id, student_id, term_id, is_active, created_at)
        VALUES ($1, $2, $3, TRUE, $4)
        ON CONFLICT (student_id, term_id) DO UPDATE SET is_active = TRUE, confirmed_at = NULL
        RETURNING ` + cartColumns
	var cart models.Cart
	if err := sqlx.GetContext(ctx, r.db, &cart, query, uuid.NewString(), studentID, termID, now); err != nil {
		return nil, fmt.Errorf("upsert cart: %w", err)
	}
	return &cart, nil
}

// LockActiveCart returns the active cart under a row lock, or nil when there is none.
func (r *CartRepository) LockActiveCart(ctx context.Context, studentID, termID string) (*models.Cart, error) {
	return r.findCart(ctx, studentID, termID, true, true)
}

// FindActiveCart returns the active cart without locking, or nil when there is none.
func (r *CartRepository) FindActiveCart(ctx context.Context, studentID, termID string) (*models.Cart, error) {
	return r.findCart(ctx, studentID, termID, true, false)
}

// LockCart returns the (student, term) cart under a row lock whether or not it is
// active, or nil when the student never opened one.
func (r *CartRepository) LockCart(ctx context.Context, studentID, termID string) (*models.Cart, error) {
	return r.findCart(ctx, studentID, termID, false, true)
}

func (r *CartRepository) findCart(ctx context.Context, studentID, termID string, activeOnly, lock bool) (*models.Cart, error) {
	query := `SELECT ` + cartColumns + ` FROM enrollment_carts WHERE student_id = $1 AND term_id = $2`
	if activeOnly {
		query += ` AND is_active = TRUE`
	}
	if lock {
		query += ` FOR UPDATE`
	}
	var cart models.Cart
	if err := sqlx.GetContext(ctx, r.db, &cart, query, studentID, termID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get cart: %w", err)
	}
	return &cart, nil
}

// DeactivateCart marks the cart confirmed.
func (r *CartRepository) DeactivateCart(ctx context.Context, cartID string, confirmedAt time.Time) error {
	const query = `UPDATE enrollment_carts SET is_active = FALSE, confirmed_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, cartID, confirmedAt); err != nil {
		return fmt.Errorf("deactivate cart: %w", err)
	}
	return nil
}

// ListCartItems returns the cart's items ordered by section ID.
func (r *CartRepository) ListCartItems(ctx context.Context, cartID string) ([]models.CartItem, error) {
	const query = `SELECT id, cart_id, section_id, reserved_until FROM cart_items WHERE cart_id = $1 ORDER BY section_id`
	var items []models.CartItem
	if err := sqlx.SelectContext(ctx, r.db, &items, query, cartID); err != nil {
		return nil, fmt.Errorf("list cart items: %w", err)
	}
	return items, nil
}

// ListCartItemDetails returns cart items joined with course data for display.
func (r *CartRepository) ListCartItemDetails(ctx context.Context, cartID string) ([]models.CartItemDetail, error) {
	const query = `SELECT i.id, i.cart_id, i.section_id, i.reserved_until,
        c.code AS course_code, c.name AS course_name, s.section, c.credits
        FROM cart_items i
        JOIN course_sections s ON s.id = i.section_id
        JOIN courses c ON c.id = s.course_id
        WHERE i.cart_id = $1
        ORDER BY c.code, s.section`
	var items []models.CartItemDetail
	if err := sqlx.SelectContext(ctx, r.db, &items, query, cartID); err != nil {
		return nil, fmt.Errorf("list cart item details: %w", err)
	}
	return items, nil
}

// UpsertCartItem adds the section to the cart or renews its hold.
func (r *CartRepository) UpsertCartItem(ctx context.Context, item *models.CartItem) error {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	const query = `INSERT INTO cart_items (id, cart_id, section_id, reserved_until)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (cart_id, section_id) DO UPDATE SET reserved_until = EXCLUDED.reserved_until
        RETURNING id`
	if err := sqlx.GetContext(ctx, r.db, &item.ID, query, item.ID, item.CartID, item.SectionID, item.ReservedUntil); err != nil {
		return fmt.Errorf("upsert cart item: %w", err)
	}
	return nil
}

// DeleteCartItem removes a section from the cart and reports how many rows went away.
func (r *CartRepository) DeleteCartItem(ctx context.Context, cartID, sectionID string) (int64, error) {
	const query = `DELETE FROM cart_items WHERE cart_id = $1 AND section_id = $2`
	res, err := r.db.ExecContext(ctx, query, cartID, sectionID)
	if err != nil {
		return 0, fmt.Errorf("delete cart item: %w", err)
	}
	return res.RowsAffected()
}

// DeleteExpiredCartItems removes items with reserved_until <= cutoff, skipping rows held
// by in-flight transactions.
func (r *CartRepository) DeleteExpiredCartItems(ctx context.Context, cutoff time.Time) (int64, error) {
	const query = `DELETE FROM cart_items WHERE id IN (
        SELECT id FROM cart_items WHERE reserved_until <= $1 FOR UPDATE SKIP LOCKED)`
	res, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete expired cart items: %w", err)
	}
	return res.RowsAffected()
}
