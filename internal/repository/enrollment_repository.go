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

// EnrollmentRepository persists confirmed enrollments.
type EnrollmentRepository struct {
	db sqlx.ExtContext
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db sqlx.ExtContext) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// EnrollmentExists reports whether the student is already enrolled in the section.
func (r *EnrollmentRepository) EnrollmentExists(ctx context.Context, studentID, sectionID string) (bool, error) {
	const query = `SELECT 1 FROM enrollments WHERE student_id = $1 AND section_id = $2 LIMIT 1`
	var exists int
	if err := sqlx.GetContext(ctx, r.db, &exists, query, studentID, sectionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check enrollment: %w", err)
	}
	return true, nil
}

// CreateEnrollment inserts the enrollment unless the pair already exists. It reports
// whether a new row was written.
func (r *EnrollmentRepository) CreateEnrollment(ctx context.Context, enrollment *models.Enrollment) (bool, error) {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	if enrollment.CreatedAt.IsZero() {
		enrollment.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO enrollments (id, student_id, section_id, created_at)
        VALUES (:id, :student_id, :section_id, :created_at)
        ON CONFLICT (student_id, section_id) DO NOTHING`
	res, err := sqlx.NamedExecContext(ctx, r.db, query, enrollment)
	if err != nil {
		return false, fmt.Errorf("create enrollment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("create enrollment: %w", err)
	}
	return affected > 0, nil
}

// ListStudentEnrollments returns a student's enrollments, oldest first.
func (r *EnrollmentRepository) ListStudentEnrollments(ctx context.Context, studentID string) ([]models.Enrollment, error) {
	const query = `SELECT id, student_id, section_id, created_at FROM enrollments WHERE student_id = $1 ORDER BY created_at`
	var enrollments []models.Enrollment
	if err := sqlx.SelectContext(ctx, r.db, &enrollments, query, studentID); err != nil {
		return nil, fmt.Errorf("list student enrollments: %w", err)
	}
	return enrollments, nil
}
