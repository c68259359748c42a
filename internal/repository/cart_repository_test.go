package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sisacad-enrollment/internal/models"
)

var cartRowColumns = []string{"id", "student_id", "term_id", "is_active", "confirmed_at", "created_at"}

func TestCartRepositoryUpsertActiveCartReactivates(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewCartRepository(db)
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (student_id, term_id) DO UPDATE SET is_active = TRUE, confirmed_at = NULL")).
		WithArgs(sqlmock.AnyArg(), "stu-1", "term-1", now).
		WillReturnRows(sqlmock.NewRows(cartRowColumns).AddRow("cart-1", "stu-1", "term-1", true, nil, now.Add(-time.Hour)))

	cart, err := repo.UpsertActiveCart(context.Background(), "stu-1", "term-1", now)
	require.NoError(t, err)
	assert.Equal(t, "cart-1", cart.ID)
	assert.True(t, cart.IsActive)
	assert.Nil(t, cart.ConfirmedAt)
}

func TestCartRepositoryLockActiveCart(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewCartRepository(db)

	mock.ExpectQuery(`is_active = TRUE FOR UPDATE$`).
		WithArgs("stu-1", "term-1").
		WillReturnError(sql.ErrNoRows)

	cart, err := repo.LockActiveCart(context.Background(), "stu-1", "term-1")
	require.NoError(t, err)
	assert.Nil(t, cart)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCartRepositoryLockCartIgnoresActiveFlag(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewCartRepository(db)
	confirmedAt := time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)

	mock.ExpectQuery(`FROM enrollment_carts WHERE student_id = \$1 AND term_id = \$2 FOR UPDATE$`).
		WithArgs("stu-1", "term-1").
		WillReturnRows(sqlmock.NewRows(cartRowColumns).AddRow("cart-1", "stu-1", "term-1", false, confirmedAt, confirmedAt.Add(-time.Hour)))

	cart, err := repo.LockCart(context.Background(), "stu-1", "term-1")
	require.NoError(t, err)
	require.NotNil(t, cart)
	assert.False(t, cart.IsActive)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCartRepositoryListCartItemsOrdered(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewCartRepository(db)
	until := time.Now().Add(10 * time.Minute)

	mock.ExpectQuery(regexp.QuoteMeta("FROM cart_items WHERE cart_id = $1 ORDER BY section_id")).
		WithArgs("cart-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "cart_id", "section_id", "reserved_until"}).
			AddRow("item-1", "cart-1", "sec-a", until).
			AddRow("item-2", "cart-1", "sec-b", until))

	items, err := repo.ListCartItems(context.Background(), "cart-1")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "sec-a", items[0].SectionID)
}

func TestCartRepositoryUpsertCartItem(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewCartRepository(db)
	until := time.Date(2025, 3, 1, 9, 15, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (cart_id, section_id) DO UPDATE SET reserved_until = EXCLUDED.reserved_until")).
		WithArgs(sqlmock.AnyArg(), "cart-1", "sec-1", until).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("item-1"))

	item := &models.CartItem{CartID: "cart-1", SectionID: "sec-1", ReservedUntil: until}
	require.NoError(t, repo.UpsertCartItem(context.Background(), item))
	assert.Equal(t, "item-1", item.ID)
}

func TestCartRepositoryDeactivateCart(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewCartRepository(db)
	at := time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE enrollment_carts SET is_active = FALSE, confirmed_at = $2 WHERE id = $1")).
		WithArgs("cart-1", at).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.DeactivateCart(context.Background(), "cart-1", at))
}

func TestCartRepositoryDeleteExpiredCartItems(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewCartRepository(db)
	cutoff := time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("SELECT id FROM cart_items WHERE reserved_until <= $1 FOR UPDATE SKIP LOCKED")).
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 2))

	deleted, err := repo.DeleteExpiredCartItems(context.Background(), cutoff)
	require.NoError(t, err)
	assert.EqualValues(t, 2, deleted)
}
