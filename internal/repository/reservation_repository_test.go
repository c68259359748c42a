package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sisacad-enrollment/internal/models"
)

func TestReservationRepositoryFindMissingReturnsNil(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewReservationRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM cap_reservations")).
		WithArgs("sec-1", "stu-1", "term-1").
		WillReturnError(sql.ErrNoRows)

	reservation, err := repo.FindReservation(context.Background(), "sec-1", "stu-1", "term-1")
	require.NoError(t, err)
	assert.Nil(t, reservation)
}

func TestReservationRepositoryCountOutstandingExcludesRequester(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewReservationRepository(db)
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE section_id = $1 AND reserved_until > $2 AND student_id <> $3")).
		WithArgs("sec-1", now, "stu-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	count, err := repo.CountOutstanding(context.Background(), "sec-1", "stu-1", now)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestReservationRepositoryUpsertRenews(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewReservationRepository(db)
	until := time.Date(2025, 3, 1, 10, 15, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (section_id, student_id, term_id) DO UPDATE SET reserved_until = EXCLUDED.reserved_until")).
		WithArgs(sqlmock.AnyArg(), "sec-1", "stu-1", "term-1", until).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("existing-res"))

	reservation := &models.CapReservation{SectionID: "sec-1", StudentID: "stu-1", TermID: "term-1", ReservedUntil: until}
	require.NoError(t, repo.UpsertReservation(context.Background(), reservation))
	assert.Equal(t, "existing-res", reservation.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReservationRepositoryDeleteExpiredUsesInclusiveCutoff(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewReservationRepository(db)
	cutoff := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("WHERE reserved_until <= $1 FOR UPDATE SKIP LOCKED")).
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 4))

	deleted, err := repo.DeleteExpiredReservations(context.Background(), cutoff)
	require.NoError(t, err)
	assert.EqualValues(t, 4, deleted)
}

func TestReservationRepositoryDeleteIsIdempotent(t *testing.T) {
	db, mock := newRepoMock(t)
	repo := NewReservationRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM cap_reservations WHERE section_id = $1 AND student_id = $2 AND term_id = $3")).
		WithArgs("sec-1", "stu-1", "term-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	deleted, err := repo.DeleteReservation(context.Background(), "sec-1", "stu-1", "term-1")
	require.NoError(t, err)
	assert.Zero(t, deleted)
}
