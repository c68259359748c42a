package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Cart is a student's in-progress selection for a term. One row per (student, term).
type Cart struct {
	ID          string     `db:"id" json:"id"`
	StudentID   string     `db:"student_id" json:"student_id"`
	TermID      string     `db:"term_id" json:"term_id"`
	IsActive    bool       `db:"is_active" json:"is_active"`
	ConfirmedAt *time.Time `db:"confirmed_at" json:"confirmed_at,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
}

// CartItem is a section held in a cart until ReservedUntil.
type CartItem struct {
	ID            string    `db:"id" json:"id"`
	CartID        string    `db:"cart_id" json:"cart_id"`
	SectionID     string    `db:"section_id" json:"section_id"`
	ReservedUntil time.Time `db:"reserved_until" json:"reserved_until"`
}

// Expired reports whether the hold has lapsed at now. The boundary counts as expired.
func (i CartItem) Expired(now time.Time) bool {
	return !i.ReservedUntil.After(now)
}

// CartItemDetail enriches a cart item with catalog data for display.
type CartItemDetail struct {
	CartItem
	CourseCode string `db:"course_code" json:"course_code"`
	CourseName string `db:"course_name" json:"course_name"`
	Section    string `db:"section" json:"section"`
	Credits    int    `db:"credits" json:"credits"`
	IsExpired  bool   `db:"-" json:"expired"`
}

// CartView is the active cart with items and the term's credit bounds.
type CartView struct {
	Cart         *Cart            `json:"cart"`
	Items        []CartItemDetail `json:"items"`
	TotalCredits int              `json:"total_credits"`
	MinCredits   int              `json:"min_credits"`
	MaxCredits   int              `json:"max_credits"`
	GPAThreshold *decimal.Decimal `json:"gpa_threshold,omitempty"`
}
