package models

import "time"

// CapReservation is a time-bounded hold on one seat, keyed by (section, student, term).
type CapReservation struct {
	ID            string    `db:"id" json:"id"`
	SectionID     string    `db:"section_id" json:"section_id"`
	StudentID     string    `db:"student_id" json:"student_id"`
	TermID        string    `db:"term_id" json:"term_id"`
	ReservedUntil time.Time `db:"reserved_until" json:"reserved_until"`
}

// Active reports whether the hold is still valid at now.
func (r CapReservation) Active(now time.Time) bool {
	return r.ReservedUntil.After(now)
}

// SweepResult counts rows released by one sweep.
type SweepResult struct {
	ReservationsReleased int64     `json:"reservations_released"`
	ItemsReleased        int64     `json:"items_released"`
	Cutoff               time.Time `json:"cutoff"`
}
