package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sisacad-enrollment/internal/models"
)

// AttemptRepository appends to and reads the enrollment audit feed.
type AttemptRepository struct {
	db sqlx.ExtContext
}

// NewAttemptRepository constructs the repository.
func NewAttemptRepository(db sqlx.ExtContext) *AttemptRepository {
	return &AttemptRepository{db: db}
}

// CreateAttempt appends an audit record.
func (r *AttemptRepository) CreateAttempt(ctx context.Context, attempt *models.EnrollmentAttempt) error {
	if attempt.ID == "" {
		attempt.ID = uuid.NewString()
	}
	if attempt.CreatedAt.IsZero() {
		attempt.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO enrollment_attempts (id, student_id, term_id, action, payload, result, created_at)
        VALUES (:id, :student_id, :term_id, :action, :payload, :result, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.db, query, attempt); err != nil {
		return fmt.Errorf("create enrollment attempt: %w", err)
	}
	return nil
}

// ListAttempts returns audit records matching the filter, newest first, with the total count.
func (r *AttemptRepository) ListAttempts(ctx context.Context, filter models.EnrollmentAttemptFilter) ([]models.EnrollmentAttempt, int, error) {
	var conditions []string
	var args []interface{}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.TermID != "" {
		conditions = append(conditions, fmt.Sprintf("term_id = $%d", len(args)+1))
		args = append(args, filter.TermID)
	}
	if filter.Action != "" {
		conditions = append(conditions, fmt.Sprintf("action = $%d", len(args)+1))
		args = append(args, filter.Action)
	}
	if filter.Since != nil {
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", len(args)+1))
		args = append(args, *filter.Since)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT id, student_id, term_id, action, payload, result, created_at
        FROM enrollment_attempts%s ORDER BY created_at DESC LIMIT %d OFFSET %d`, clause, size, offset)
	var attempts []models.EnrollmentAttempt
	if err := sqlx.SelectContext(ctx, r.db, &attempts, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list enrollment attempts: %w", err)
	}

	var total int
	if err := sqlx.GetContext(ctx, r.db, &total, "SELECT COUNT(*) FROM enrollment_attempts"+clause, args...); err != nil {
		return nil, 0, fmt.Errorf("count enrollment attempts: %w", err)
	}
	return attempts, total, nil
}
