package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Enrollment is the durable record of a student in a section.
type Enrollment struct {
	ID        string    `db:"id" json:"id"`
	StudentID string    `db:"student_id" json:"student_id"`
	SectionID string    `db:"section_id" json:"section_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Attempt actions recorded in the audit feed.
const (
	AttemptActionAddToCart      = "ADD_TO_CART"
	AttemptActionRemoveFromCart = "REMOVE_FROM_CART"
	AttemptActionConfirm        = "CONFIRM"
)

// EnrollmentAttempt is an append-only audit record of a cart action.
type EnrollmentAttempt struct {
	ID        string          `db:"id" json:"id"`
	StudentID string          `db:"student_id" json:"student_id"`
	TermID    string          `db:"term_id" json:"term_id"`
	Action    string          `db:"action" json:"action"`
	Payload   json.RawMessage `db:"payload" json:"payload,omitempty"`
	Result    json.RawMessage `db:"result" json:"result,omitempty"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}

// EnrollmentAttemptFilter narrows the audit feed.
type EnrollmentAttemptFilter struct {
	StudentID string
	TermID    string
	Action    string
	Since     *time.Time
	Page      int
	PageSize  int
}

// PaymentOrder is raised for each confirmation that enrolled at least one section.
type PaymentOrder struct {
	ID        string          `db:"id" json:"id"`
	StudentID string          `db:"student_id" json:"student_id"`
	TermID    string          `db:"term_id" json:"term_id"`
	Amount    decimal.Decimal `db:"amount" json:"amount"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}

// Section outcome statuses reported by a confirmation.
const (
	OutcomeEnrolled         = "ENROLLED"
	OutcomeExpired          = "EXPIRED"
	OutcomeCapacityExceeded = "CAPACITY_EXCEEDED"
)

// SectionOutcome describes what happened to one cart item during confirmation.
type SectionOutcome struct {
	SectionID string `json:"section_id"`
	Status    string `json:"status"`
	Reason    string `json:"reason,omitempty"`
}

// ConfirmResult summarises a confirmation: Enrolled of Requested valid items. CartOpen
// reports that sections refused for capacity are still held in the active cart.
type ConfirmResult struct {
	CartID       string           `json:"cart_id"`
	CartOpen     bool             `json:"cart_open"`
	Enrolled     int              `json:"enrolled"`
	Requested    int              `json:"requested"`
	Expired      int              `json:"expired"`
	Outcomes     []SectionOutcome `json:"outcomes"`
	PaymentOrder *PaymentOrder    `json:"payment_order,omitempty"`
	ConfirmedAt  time.Time        `json:"confirmed_at"`
}

// Failed returns outcomes that did not enroll.
func (r *ConfirmResult) Failed() []SectionOutcome {
	var failed []SectionOutcome
	for _, o := range r.Outcomes {
		if o.Status != OutcomeEnrolled {
			failed = append(failed, o)
		}
	}
	return failed
}
