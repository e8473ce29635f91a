package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/unitrack/unitrack-api/internal/models"
)

const sessionDetailColumns = `s.id, s.course_assignment_id, s.title, s.description, s.room_id, s.custom_location,
	s.session_date, s.start_time, s.end_time, s.is_recurring, s.recurrence_pattern, s.recurrence_end_date,
	s.parent_session_id, s.is_active, s.is_cancelled, s.cancellation_reason, s.max_capacity,
	s.created_by, s.created_at, s.updated_at,
	ca.lecturer_id, c.code AS course_code, c.department_id, c.level`

const sessionDetailJoins = ` FROM sessions s
	JOIN course_assignments ca ON ca.id = s.course_assignment_id
	JOIN courses c ON c.id = ca.course_id`

// SessionRepository provides persistence for class sessions.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository creates a new session repository.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) executor(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// List returns sessions with optional filtering and pagination.
// Soft-deleted sessions are always excluded; cancelled ones stay listable
// for history unless IncludeCancelled is false.
func (r *SessionRepository) List(ctx context.Context, filter models.SessionFilter) ([]models.SessionDetail, int, error) {
	base := sessionDetailJoins + " WHERE s.is_active = TRUE"
	var conditions []string
	var args []interface{}

	if !filter.IncludeCancelled {
		conditions = append(conditions, "s.is_cancelled = FALSE")
	}
	if filter.CourseAssignmentID != "" {
		conditions = append(conditions, fmt.Sprintf("s.course_assignment_id = $%d", len(args)+1))
		args = append(args, filter.CourseAssignmentID)
	}
	if filter.LecturerID != "" {
		conditions = append(conditions, fmt.Sprintf("ca.lecturer_id = $%d", len(args)+1))
		args = append(args, filter.LecturerID)
	}
	if filter.RoomID != "" {
		conditions = append(conditions, fmt.Sprintf("s.room_id = $%d", len(args)+1))
		args = append(args, filter.RoomID)
	}
	if filter.Date != "" {
		conditions = append(conditions, fmt.Sprintf("s.session_date = $%d", len(args)+1))
		args = append(args, filter.Date)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]string{
		"session_date": "s.session_date",
		"start_time":   "s.start_time",
		"created_at":   "s.created_at",
	}
	column, ok := allowedSorts[sortBy]
	if !ok {
		column = "s.session_date"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
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

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s, s.start_time ASC LIMIT %d OFFSET %d", sessionDetailColumns, base, column, order, size, offset)
	var sessions []models.SessionDetail
	if err := r.db.SelectContext(ctx, &sessions, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list sessions: %w", err)
	}

	countQuery := "SELECT COUNT(*)" + base
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count sessions: %w", err)
	}

	return sessions, total, nil
}

// FindByID loads an active session with its assignment context.
func (r *SessionRepository) FindByID(ctx context.Context, id string) (*models.SessionDetail, error) {
	query := "SELECT " + sessionDetailColumns + sessionDetailJoins + " WHERE s.id = $1 AND s.is_active = TRUE"
	var session models.SessionDetail
	if err := r.db.GetContext(ctx, &session, query, id); err != nil {
		return nil, err
	}
	return &session, nil
}

// ListByRoomAndDate returns bookable-conflict candidates sharing a room and date.
// Only active, non-cancelled sessions participate in conflict scans.
func (r *SessionRepository) ListByRoomAndDate(ctx context.Context, exec sqlx.ExtContext, roomID, date string) ([]models.SessionDetail, error) {
	query := "SELECT " + sessionDetailColumns + sessionDetailJoins +
		" WHERE s.room_id = $1 AND s.session_date = $2 AND s.is_active = TRUE AND s.is_cancelled = FALSE ORDER BY s.start_time ASC"
	var sessions []models.SessionDetail
	if err := sqlx.SelectContext(ctx, r.executor(exec), &sessions, query, roomID, date); err != nil {
		return nil, fmt.Errorf("list sessions by room: %w", err)
	}
	return sessions, nil
}

// ListByLecturerAndDate returns a lecturer's active, non-cancelled sessions on a date.
func (r *SessionRepository) ListByLecturerAndDate(ctx context.Context, exec sqlx.ExtContext, lecturerID, date string) ([]models.SessionDetail, error) {
	query := "SELECT " + sessionDetailColumns + sessionDetailJoins +
		" WHERE ca.lecturer_id = $1 AND s.session_date = $2 AND s.is_active = TRUE AND s.is_cancelled = FALSE ORDER BY s.start_time ASC"
	var sessions []models.SessionDetail
	if err := sqlx.SelectContext(ctx, r.executor(exec), &sessions, query, lecturerID, date); err != nil {
		return nil, fmt.Errorf("list sessions by lecturer: %w", err)
	}
	return sessions, nil
}

// ListByCohortAndDate returns sessions whose course shares (department, level) on a date.
func (r *SessionRepository) ListByCohortAndDate(ctx context.Context, exec sqlx.ExtContext, departmentID, level, date string) ([]models.SessionDetail, error) {
	query := "SELECT " + sessionDetailColumns + sessionDetailJoins +
		" WHERE c.department_id = $1 AND c.level = $2 AND s.session_date = $3 AND s.is_active = TRUE AND s.is_cancelled = FALSE ORDER BY s.start_time ASC"
	var sessions []models.SessionDetail
	if err := sqlx.SelectContext(ctx, r.executor(exec), &sessions, query, departmentID, level, date); err != nil {
		return nil, fmt.Errorf("list sessions by cohort: %w", err)
	}
	return sessions, nil
}

// ListByParent returns child occurrences of a recurring template.
func (r *SessionRepository) ListByParent(ctx context.Context, parentID string) ([]models.Session, error) {
	const query = `SELECT id, course_assignment_id, title, description, room_id, custom_location,
		session_date, start_time, end_time, is_recurring, recurrence_pattern, recurrence_end_date,
		parent_session_id, is_active, is_cancelled, cancellation_reason, max_capacity,
		created_by, created_at, updated_at
		FROM sessions WHERE parent_session_id = $1 AND is_active = TRUE ORDER BY session_date ASC`
	var sessions []models.Session
	if err := r.db.SelectContext(ctx, &sessions, query, parentID); err != nil {
		return nil, fmt.Errorf("list sessions by parent: %w", err)
	}
	return sessions, nil
}

// Create stores a new session record, optionally inside a transaction.
func (r *SessionRepository) Create(ctx context.Context, exec sqlx.ExtContext, session *models.Session) error {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.UpdatedAt = now

	const query = `INSERT INTO sessions (id, course_assignment_id, title, description, room_id, custom_location,
		session_date, start_time, end_time, is_recurring, recurrence_pattern, recurrence_end_date,
		parent_session_id, is_active, is_cancelled, cancellation_reason, max_capacity, created_by, created_at, updated_at)
		VALUES (:id, :course_assignment_id, :title, :description, :room_id, :custom_location,
		:session_date, :start_time, :end_time, :is_recurring, :recurrence_pattern, :recurrence_end_date,
		:parent_session_id, :is_active, :is_cancelled, :cancellation_reason, :max_capacity, :created_by, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.executor(exec), query, session); err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// Update replaces the mutable fields of a session.
func (r *SessionRepository) Update(ctx context.Context, exec sqlx.ExtContext, session *models.Session) error {
	session.UpdatedAt = time.Now().UTC()
	const query = `UPDATE sessions SET course_assignment_id = :course_assignment_id, title = :title,
		description = :description, room_id = :room_id, custom_location = :custom_location,
		session_date = :session_date, start_time = :start_time, end_time = :end_time,
		is_recurring = :is_recurring, recurrence_pattern = :recurrence_pattern,
		recurrence_end_date = :recurrence_end_date, max_capacity = :max_capacity, updated_at = :updated_at
		WHERE id = :id AND is_active = TRUE`
	result, err := sqlx.NamedExecContext(ctx, r.executor(exec), query, session)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Cancel soft-cancels a session, recording the reason. The row stays
// queryable for history but leaves all conflict scans.
func (r *SessionRepository) Cancel(ctx context.Context, exec sqlx.ExtContext, id, reason string) error {
	const query = `UPDATE sessions SET is_cancelled = TRUE, cancellation_reason = $2, updated_at = $3 WHERE id = $1 AND is_active = TRUE`
	result, err := r.executor(exec).ExecContext(ctx, query, id, reason, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("cancel session: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CancelByParent soft-cancels all children of a recurring template.
func (r *SessionRepository) CancelByParent(ctx context.Context, exec sqlx.ExtContext, parentID, reason string) (int64, error) {
	const query = `UPDATE sessions SET is_cancelled = TRUE, cancellation_reason = $2, updated_at = $3
		WHERE parent_session_id = $1 AND is_active = TRUE AND is_cancelled = FALSE`
	result, err := r.executor(exec).ExecContext(ctx, query, parentID, reason, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("cancel sessions by parent: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("cancel sessions by parent: %w", err)
	}
	return affected, nil
}

// SoftDelete deactivates a session. Terminal: the row is excluded from all
// further queries including conflict detection.
func (r *SessionRepository) SoftDelete(ctx context.Context, id string) error {
	const query = `UPDATE sessions SET is_active = FALSE, updated_at = $2 WHERE id = $1 AND is_active = TRUE`
	result, err := r.db.ExecContext(ctx, query, id, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
