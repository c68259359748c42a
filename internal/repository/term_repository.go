package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sisacad-enrollment/internal/models"
)

// TermRepository reads terms and their enrollment rules.
type TermRepository struct {
	db sqlx.ExtContext
}

// NewTermRepository constructs the repository.
func NewTermRepository(db sqlx.ExtContext) *TermRepository {
	return &TermRepository{db: db}
}

// FindTerm returns a term by ID or sql.ErrNoRows.
func (r *TermRepository) FindTerm(ctx context.Context, id string) (*models.Term, error) {
	const query = `SELECT id, name, start_date, end_date, created_at FROM terms WHERE id = $1`
	var term models.Term
	if err := sqlx.GetContext(ctx, r.db, &term, query, id); err != nil {
		return nil, err
	}
	return &term, nil
}

// FindTermRule returns the rule for a term, or nil when the term has none.
func (r *TermRepository) FindTermRule(ctx context.Context, termID string) (*models.TermRule, error) {
	const query = `SELECT term_id, cart_hold_minutes, min_credits, max_credits, gpa_threshold, credit_fee
        FROM term_rules WHERE term_id = $1`
	var rule models.TermRule
	if err := sqlx.GetContext(ctx, r.db, &rule, query, termID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get term rule: %w", err)
	}
	return &rule, nil
}
