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

// ReservationRepository persists capacity holds.
type ReservationRepository struct {
	db sqlx.ExtContext
}

// NewReservationRepository constructs the repository.
func NewReservationRepository(db sqlx.ExtContext) *ReservationRepository {
	return &ReservationRepository{db: db}
}

// FindReservation returns the hold for (section, student, term), or nil when absent.
func (r *ReservationRepository) FindReservation(ctx context.Context, sectionID, studentID, termID string) (*models.CapReservation, error) {
	const query = `SELECT id, section_id, student_id, term_id, reserved_until FROM cap_reservations
        WHERE section_id = $1 AND student_id = $2 AND term_id = $3`
	var reservation models.CapReservation
	if err := sqlx.GetContext(ctx, r.db, &reservation, query, sectionID, studentID, termID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get reservation: %w", err)
	}
	return &reservation, nil
}

// CountOutstanding counts unexpired holds on a section, ignoring excludeStudentID's own hold.
func (r *ReservationRepository) CountOutstanding(ctx context.Context, sectionID, excludeStudentID string, now time.Time) (int, error) {
	const query = `SELECT COUNT(*) FROM cap_reservations WHERE section_id = $1 AND reserved_until > $2 AND student_id <> $3`
	var count int
	if err := sqlx.GetContext(ctx, r.db, &count, query, sectionID, now, excludeStudentID); err != nil {
		return 0, fmt.Errorf("count reservations: %w", err)
	}
	return count, nil
}

// UpsertReservation creates the hold or extends the existing one.
func (r *ReservationRepository) UpsertReservation(ctx context.Context, reservation *models.CapReservation) error {
	if reservation.ID == "" {
		reservation.ID = uuid.NewString()
	}
	const query = `INSERT INTO cap_reservations (id, section_id, student_id, term_id, reserved_until)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (section_id, student_id, term_id) DO UPDATE SET reserved_until = EXCLUDED.reserved_until
        RETURNING id`
	if err := sqlx.GetContext(ctx, r.db, &reservation.ID, query,
		reservation.ID, reservation.SectionID, reservation.StudentID, reservation.TermID, reservation.ReservedUntil); err != nil {
		return fmt.Errorf("upsert reservation: %w", err)
	}
	return nil
}

// DeleteReservation removes the hold and reports how many rows went away.
func (r *ReservationRepository) DeleteReservation(ctx context.Context, sectionID, studentID, termID string) (int64, error) {
	const query = `DELETE FROM cap_reservations WHERE section_id = $1 AND student_id = $2 AND term_id = $3`
	res, err := r.db.ExecContext(ctx, query, sectionID, studentID, termID)
	if err != nil {
		return 0, fmt.Errorf("delete reservation: %w", err)
	}
	return res.RowsAffected()
}

// DeleteExpiredReservations removes holds with reserved_until <= cutoff. Rows locked by
// in-flight transactions are skipped and picked up by a later sweep.
func (r *ReservationRepository) DeleteExpiredReservations(ctx context.Context, cutoff time.Time) (int64, error) {
	const query = `DELETE FROM cap_reservations WHERE id IN (
        SELECT id FROM cap_reservations WHERE reserved_until <= $1 FOR UPDATE SKIP LOCKED)`
	res, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete expired reservations: %w", err)
	}
	return res.RowsAffected()
}
