package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultHoldMinutes applies when a term has no explicit cart hold rule.
const DefaultHoldMinutes = 15

// Term models an enrollment period.
type Term struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	StartDate time.Time `db:"start_date" json:"start_date"`
	EndDate   time.Time `db:"end_date" json:"end_date"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// TermRule holds staff-managed enrollment rules for a term.
type TermRule struct {
	TermID       string          `db:"term_id" json:"term_id"`
	HoldMinutes  int             `db:"cart_hold_minutes" json:"cart_hold_minutes"`
	MinCredits   int             `db:"min_credits" json:"min_credits"`
	MaxCredits   int             `db:"max_credits" json:"max_credits"`
	GPAThreshold decimal.Decimal `db:"gpa_threshold" json:"gpa_threshold"`
	CreditFee    decimal.Decimal `db:"credit_fee" json:"credit_fee"`
}

// HoldDuration returns the cart hold for the rule, or fallback when unset.
func (r *TermRule) HoldDuration(fallback time.Duration) time.Duration {
	if r != nil && r.HoldMinutes > 0 {
		return time.Duration(r.HoldMinutes) * time.Minute
	}
	if fallback > 0 {
		return fallback
	}
	return DefaultHoldMinutes * time.Minute
}
