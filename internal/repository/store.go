package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sisacad-enrollment/pkg/database"
)

// Store binds every enrollment repository to one executor, normally a transaction.
type Store struct {
	*SectionRepository
	*TermRepository
	*ReservationRepository
	*CartRepository
	*EnrollmentRepository
	*AttemptRepository
	*PaymentRepository

	exec sqlx.ExtContext
}

// NewStore builds a Store over exec.
func NewStore(exec sqlx.ExtContext) *Store {
	return &Store{
		SectionRepository:     NewSectionRepository(exec),
		TermRepository:        NewTermRepository(exec),
		ReservationRepository: NewReservationRepository(exec),
		CartRepository:        NewCartRepository(exec),
		EnrollmentRepository:  NewEnrollmentRepository(exec),
		AttemptRepository:     NewAttemptRepository(exec),
		PaymentRepository:     NewPaymentRepository(exec),
		exec:                  exec,
	}
}

// Savepoint runs fn inside a named savepoint of the store's transaction.
func (s *Store) Savepoint(ctx context.Context, name string, fn func() error) error {
	return database.Savepoint(ctx, s.exec, name, fn)
}

// TxManager opens transactions and hands out transaction-bound stores.
type TxManager struct {
	db *sqlx.DB
}

// NewTxManager constructs a TxManager.
func NewTxManager(db *sqlx.DB) *TxManager {
	return &TxManager{db: db}
}

// WithinTx runs fn with a Store bound to a new transaction.
func (m *TxManager) WithinTx(ctx context.Context, fn func(ctx context.Context, store *Store) error) error {
	return database.WithTx(ctx, m.db, func(tx *sqlx.Tx) error {
		return fn(ctx, NewStore(tx))
	})
}
