package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unitrack/unitrack-api/internal/models"
)

func newSessionMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

var sessionDetailTestColumns = []string{
	"id", "course_assignment_id", "title", "description", "room_id", "custom_location",
	"session_date", "start_time", "end_time", "is_recurring", "recurrence_pattern", "recurrence_end_date",
	"parent_session_id", "is_active", "is_cancelled", "cancellation_reason", "max_capacity",
	"created_by", "created_at", "updated_at",
	"lecturer_id", "course_code", "department_id", "level",
}

func sessionDetailRow(rows *sqlmock.Rows, id, start, end string) *sqlmock.Rows {
	now := time.Now()
	return rows.AddRow(id, "ca-1", "Session "+id, "", nil, "Lab 2",
		"2026-09-01", start, end, false, "none", nil,
		nil, true, false, "", nil,
		"user-1", now, now,
		"lect-1", "CSC101", "dept-1", "300")
}

func TestSessionRepositoryListByRoomAndDate(t *testing.T) {
	db, mock, cleanup := newSessionMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	rows := sessionDetailRow(sqlmock.NewRows(sessionDetailTestColumns), "s-1", "09:00", "11:00")
	mock.ExpectQuery(`s\.room_id = \$1 AND s\.session_date = \$2 AND s\.is_active = TRUE AND s\.is_cancelled = FALSE`).
		WithArgs("room-1", "2026-09-01").
		WillReturnRows(rows)

	sessions, err := repo.ListByRoomAndDate(context.Background(), nil, "room-1", "2026-09-01")
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "s-1", sessions[0].ID)
	assert.Equal(t, "CSC101", sessions[0].CourseCode)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryListByLecturerAndDate(t *testing.T) {
	db, mock, cleanup := newSessionMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	rows := sessionDetailRow(sqlmock.NewRows(sessionDetailTestColumns), "s-1", "09:00", "11:00")
	rows = sessionDetailRow(rows, "s-2", "13:00", "15:00")
	mock.ExpectQuery(`ca\.lecturer_id = \$1 AND s\.session_date = \$2`).
		WithArgs("lect-1", "2026-09-01").
		WillReturnRows(rows)

	sessions, err := repo.ListByLecturerAndDate(context.Background(), nil, "lect-1", "2026-09-01")
	require.NoError(t, err)
	assert.Len(t, sessions, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryListByCohortAndDate(t *testing.T) {
	db, mock, cleanup := newSessionMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	rows := sessionDetailRow(sqlmock.NewRows(sessionDetailTestColumns), "s-1", "09:00", "11:00")
	mock.ExpectQuery(`c\.department_id = \$1 AND c\.level = \$2 AND s\.session_date = \$3`).
		WithArgs("dept-1", "300", "2026-09-01").
		WillReturnRows(rows)

	sessions, err := repo.ListByCohortAndDate(context.Background(), nil, "dept-1", "300", "2026-09-01")
	require.NoError(t, err)
	assert.Len(t, sessions, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryCreateAssignsID(t *testing.T) {
	db, mock, cleanup := newSessionMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	mock.ExpectExec("INSERT INTO sessions").
		WillReturnResult(sqlmock.NewResult(1, 1))

	session := &models.Session{
		CourseAssignmentID: "ca-1",
		Title:              "Algorithms lecture",
		SessionDate:        "2026-09-01",
		StartTime:          "09:00",
		EndTime:            "11:00",
		RecurrencePattern:  models.RecurrenceNone,
		IsActive:           true,
	}
	require.NoError(t, repo.Create(context.Background(), nil, session))
	assert.NotEmpty(t, session.ID)
	assert.False(t, session.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryCreateInsideTx(t *testing.T) {
	db, mock, cleanup := newSessionMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO sessions").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)

	session := &models.Session{CourseAssignmentID: "ca-1", Title: "T", SessionDate: "2026-09-01",
		StartTime: "09:00", EndTime: "10:00", RecurrencePattern: models.RecurrenceNone, IsActive: true}
	require.NoError(t, repo.Create(context.Background(), tx, session))
	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryUpdateNotFound(t *testing.T) {
	db, mock, cleanup := newSessionMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	mock.ExpectExec("UPDATE sessions SET").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), nil, &models.Session{ID: "missing"})
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryCancel(t *testing.T) {
	db, mock, cleanup := newSessionMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	mock.ExpectExec(`UPDATE sessions SET is_cancelled = TRUE`).
		WithArgs("s-1", "lecturer unavailable", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.Cancel(context.Background(), nil, "s-1", "lecturer unavailable"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryCancelByParent(t *testing.T) {
	db, mock, cleanup := newSessionMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	mock.ExpectExec(`parent_session_id = \$1`).
		WithArgs("parent-1", "cohort trip", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 3))

	affected, err := repo.CancelByParent(context.Background(), nil, "parent-1", "cohort trip")
	require.NoError(t, err)
	assert.Equal(t, int64(3), affected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositoryCancelByParentRowsAffectedError(t *testing.T) {
	db, mock, cleanup := newSessionMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	mock.ExpectExec(`parent_session_id = \$1`).
		WithArgs("parent-1", "cohort trip", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewErrorResult(errors.New("driver does not report rows")))

	affected, err := repo.CancelByParent(context.Background(), nil, "parent-1", "cohort trip")
	require.Error(t, err)
	assert.Zero(t, affected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepositorySoftDeleteNotFound(t *testing.T) {
	db, mock, cleanup := newSessionMock(t)
	defer cleanup()
	repo := NewSessionRepository(db)

	mock.ExpectExec(`UPDATE sessions SET is_active = FALSE`).
		WithArgs("missing", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SoftDelete(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseAssignmentRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newSessionMock(t)
	defer cleanup()
	repo := NewCourseAssignmentRepository(db)

	rows := sqlmock.NewRows([]string{"id", "course_id", "lecturer_id", "course_code", "course_title",
		"department_id", "level", "academic_year", "semester", "is_active", "assigned_at"}).
		AddRow("ca-1", "course-1", "lect-1", "CSC101", "Algorithms", "dept-1", "300", "2026/2027", "first", true, time.Now())
	mock.ExpectQuery(`ca\.id = \$1 AND ca\.is_active = TRUE`).
		WithArgs("ca-1").
		WillReturnRows(rows)

	assignment, err := repo.FindByID(context.Background(), "ca-1")
	require.NoError(t, err)
	assert.Equal(t, "lect-1", assignment.LecturerID)

	dept, level := assignment.CohortKey()
	assert.Equal(t, "dept-1", dept)
	assert.Equal(t, "300", level)
	assert.NoError(t, mock.ExpectationsWereMet())
}
