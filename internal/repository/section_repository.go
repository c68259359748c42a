package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sisacad-enrollment/internal/models"
)

const sectionColumns = `s.id, s.course_id, s.section, s.is_lab, s.capacity`

// SectionRepository reads catalog sections and serialises seat checks through row locks.
type SectionRepository struct {
	db sqlx.ExtContext
}

// NewSectionRepository constructs the repository.
func NewSectionRepository(db sqlx.ExtContext) *SectionRepository {
	return &SectionRepository{db: db}
}

// FindSection returns a section by ID or sql.ErrNoRows.
func (r *SectionRepository) FindSection(ctx context.Context, id string) (*models.CourseSection, error) {
	query := `SELECT ` + sectionColumns + ` FROM course_sections s WHERE s.id = $1`
	var section models.CourseSection
	if err := sqlx.GetContext(ctx, r.db, &section, query, id); err != nil {
		return nil, err
	}
	return &section, nil
}

// LockSection reads the section under an exclusive row lock held until the transaction ends.
func (r *SectionRepository) LockSection(ctx context.Context, id string) (*models.CourseSection, error) {
	query := `SELECT ` + sectionColumns + ` FROM course_sections s WHERE s.id = $1 FOR UPDATE`
	var section models.CourseSection
	if err := sqlx.GetContext(ctx, r.db, &section, query, id); err != nil {
		return nil, err
	}
	return &section, nil
}

// CountEnrolled returns the number of enrollments in a section.
func (r *SectionRepository) CountEnrolled(ctx context.Context, sectionID string) (int, error) {
	const query = `SELECT COUNT(*) FROM enrollments WHERE section_id = $1`
	var count int
	if err := sqlx.GetContext(ctx, r.db, &count, query, sectionID); err != nil {
		return 0, fmt.Errorf("count enrollments: %w", err)
	}
	return count, nil
}

// SectionCredits returns the credits of the section's course.
func (r *SectionRepository) SectionCredits(ctx context.Context, sectionID string) (int, error) {
	const query = `SELECT c.credits FROM course_sections s JOIN courses c ON c.id = s.course_id WHERE s.id = $1`
	var credits int
	if err := sqlx.GetContext(ctx, r.db, &credits, query, sectionID); err != nil {
		return 0, fmt.Errorf("section credits: %w", err)
	}
	return credits, nil
}

// ListOfferings returns every section joined with its course, ordered by course code and section.
func (r *SectionRepository) ListOfferings(ctx context.Context) ([]models.SectionOffering, error) {
	query := `SELECT ` + sectionColumns + `, c.code AS course_code, c.name AS course_name, c.credits
        FROM course_sections s
        JOIN courses c ON c.id = s.course_id
        ORDER BY c.code, s.section`
	var offerings []models.SectionOffering
	if err := sqlx.SelectContext(ctx, r.db, &offerings, query); err != nil {
		return nil, fmt.Errorf("list offerings: %w", err)
	}
	return offerings, nil
}
