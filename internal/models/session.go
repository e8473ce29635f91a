package models

import "time"

// RecurrencePattern enumerates the supported repetition rules.
type RecurrencePattern string

// Recurrence patterns.
const (
	RecurrenceNone     RecurrencePattern = "none"
	RecurrenceDaily    RecurrencePattern = "daily"
	RecurrenceWeekly   RecurrencePattern = "weekly"
	RecurrenceBiweekly RecurrencePattern = "biweekly"
	RecurrenceMonthly  RecurrencePattern = "monthly"
)

// Valid reports whether the pattern is one of the known values.
func (p RecurrencePattern) Valid() bool {
	switch p {
	case RecurrenceNone, RecurrenceDaily, RecurrenceWeekly, RecurrenceBiweekly, RecurrenceMonthly:
		return true
	}
	return false
}

// Session represents a scheduled class occurrence or recurring template.
type Session struct {
	ID                 string            `db:"id" json:"id"`
	CourseAssignmentID string            `db:"course_assignment_id" json:"course_assignment_id"`
	Title              string            `db:"title" json:"title"`
	Description        string            `db:"description" json:"description,omitempty"`
	RoomID             *string           `db:"room_id" json:"room_id,omitempty"`
	CustomLocation     string            `db:"custom_location" json:"custom_location,omitempty"`
	SessionDate        string            `db:"session_date" json:"session_date"`
	StartTime          string            `db:"start_time" json:"start_time"`
	EndTime            string            `db:"end_time" json:"end_time"`
	IsRecurring        bool              `db:"is_recurring" json:"is_recurring"`
	RecurrencePattern  RecurrencePattern `db:"recurrence_pattern" json:"recurrence_pattern"`
	RecurrenceEndDate  *string           `db:"recurrence_end_date" json:"recurrence_end_date,omitempty"`
	ParentSessionID    *string           `db:"parent_session_id" json:"parent_session_id,omitempty"`
	IsActive           bool              `db:"is_active" json:"is_active"`
	IsCancelled        bool              `db:"is_cancelled" json:"is_cancelled"`
	CancellationReason string            `db:"cancellation_reason" json:"cancellation_reason,omitempty"`
	MaxCapacity        *int              `db:"max_capacity" json:"max_capacity,omitempty"`
	CreatedBy          string            `db:"created_by" json:"created_by,omitempty"`
	CreatedAt          time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time         `db:"updated_at" json:"updated_at"`
}

// StartMinutes returns the start time in minutes since midnight.
// Times are validated at the service boundary; malformed values map to 0.
func (s *Session) StartMinutes() int {
	m, _ := ParseClock(s.StartTime)
	return m
}

// EndMinutes returns the end time in minutes since midnight.
func (s *Session) EndMinutes() int {
	m, _ := ParseClock(s.EndTime)
	return m
}

// SessionDetail enriches a session with lecturer and course context.
type SessionDetail struct {
	Session
	LecturerID   string `db:"lecturer_id" json:"lecturer_id"`
	CourseCode   string `db:"course_code" json:"course_code"`
	DepartmentID string `db:"department_id" json:"department_id"`
	Level        string `db:"level" json:"level"`
}

// SessionFilter describes query params for listing sessions.
type SessionFilter struct {
	CourseAssignmentID string
	LecturerID         string
	RoomID             string
	Date               string
	IncludeCancelled   bool
	Page               int
	PageSize           int
	SortBy             string
	SortOrder          string
}

// ConflictKind tags the cause of a scheduling conflict.
type ConflictKind string

// Conflict kinds, in detection order.
const (
	ConflictRoom     ConflictKind = "room"
	ConflictLecturer ConflictKind = "lecturer"
	ConflictCohort   ConflictKind = "cohort"
)

// SessionConflict describes an existing session that collides with a candidate.
type SessionConflict struct {
	Kind         ConflictKind `json:"kind"`
	SessionID    string       `json:"session_id"`
	SessionTitle string       `json:"session_title"`
	CourseCode   string       `json:"course_code"`
	StartTime    string       `json:"start_time"`
	EndTime      string       `json:"end_time"`
	Message      string       `json:"message"`
}

// SessionConflictError is returned when a candidate collides with existing sessions.
type SessionConflictError struct {
	Message   string            `json:"message"`
	Conflicts []SessionConflict `json:"conflicts"`
}

// Error implements the error interface for conflict errors.
func (e *SessionConflictError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}

// FreeSlot is a contiguous unbooked interval within a lecturer's working day.
type FreeSlot struct {
	StartTime       string `json:"start_time"`
	EndTime         string `json:"end_time"`
	DurationMinutes int    `json:"duration_minutes"`
}

// TimeSuggestion ranks a candidate interval by the rooms free to host it.
type TimeSuggestion struct {
	StartTime       string `json:"start_time"`
	EndTime         string `json:"end_time"`
	DurationMinutes int    `json:"duration_minutes"`
	AvailableRooms  []Room `json:"available_rooms"`
	Score           int    `json:"score"`
}
