package dto

import "github.com/unitrack/unitrack-api/internal/models"

// CreateSessionRequest describes payload for scheduling a session.
type CreateSessionRequest struct {
	CourseAssignmentID string  `json:"course_assignment_id" validate:"required"`
	Title              string  `json:"title" validate:"required,max=300"`
	Description        string  `json:"description"`
	RoomID             *string `json:"room_id"`
	CustomLocation     string  `json:"custom_location"`
	SessionDate        string  `json:"session_date" validate:"required,datetime=2006-01-02"`
	StartTime          string  `json:"start_time" validate:"required,datetime=15:04"`
	EndTime            string  `json:"end_time" validate:"required,datetime=15:04"`
	IsRecurring        bool    `json:"is_recurring"`
	RecurrencePattern  string  `json:"recurrence_pattern"`
	RecurrenceEndDate  *string `json:"recurrence_end_date" validate:"omitempty,datetime=2006-01-02"`
	MaxCapacity        *int    `json:"max_capacity" validate:"omitempty,min=1"`
}

// UpdateSessionRequest replaces the mutable fields of a session.
type UpdateSessionRequest struct {
	Title          string  `json:"title" validate:"required,max=300"`
	Description    string  `json:"description"`
	RoomID         *string `json:"room_id"`
	CustomLocation string  `json:"custom_location"`
	SessionDate    string  `json:"session_date" validate:"required,datetime=2006-01-02"`
	StartTime      string  `json:"start_time" validate:"required,datetime=15:04"`
	EndTime        string  `json:"end_time" validate:"required,datetime=15:04"`
	MaxCapacity    *int    `json:"max_capacity" validate:"omitempty,min=1"`
}

// CancelSessionRequest soft-cancels a session, optionally cascading to a
// recurring template's children.
type CancelSessionRequest struct {
	Reason  string `json:"reason" validate:"required"`
	Cascade bool   `json:"cascade"`
}

// CheckConflictsRequest dry-runs conflict detection for a candidate interval.
type CheckConflictsRequest struct {
	CourseAssignmentID string  `json:"course_assignment_id" validate:"required"`
	RoomID             *string `json:"room_id"`
	SessionDate        string  `json:"session_date" validate:"required,datetime=2006-01-02"`
	StartTime          string  `json:"start_time" validate:"required,datetime=15:04"`
	EndTime            string  `json:"end_time" validate:"required,datetime=15:04"`
	ExcludeSessionID   string  `json:"exclude_session_id"`
}

// CheckConflictsResponse lists detected collisions for a candidate.
type CheckConflictsResponse struct {
	HasConflicts bool                     `json:"has_conflicts"`
	Conflicts    []models.SessionConflict `json:"conflicts"`
}

// FreeSlotsResponse pairs free windows with the sessions that bound them.
type FreeSlotsResponse struct {
	Date         string                 `json:"date"`
	FreeSlots    []models.FreeSlot      `json:"free_slots"`
	BusySessions []models.SessionDetail `json:"busy_sessions"`
}

// SuggestTimesQuery asks for ranked time+room combinations.
type SuggestTimesQuery struct {
	CourseAssignmentID string `form:"course_assignment_id" validate:"required"`
	Date               string `form:"date" validate:"required,datetime=2006-01-02"`
	RequiredMinutes    int    `form:"required_minutes" validate:"required,min=1"`
	RoomType           string `form:"room_type" validate:"required,oneof=physical virtual"`
}

// CreateSessionResponse carries the created session plus any recurring
// expansion results.
type CreateSessionResponse struct {
	Session      *models.SessionDetail `json:"session"`
	Children     []models.Session      `json:"children,omitempty"`
	SkippedDates []string              `json:"skipped_dates,omitempty"`
}

// CreateRoomRequest describes payload for registering a room.
type CreateRoomRequest struct {
	Name            string `json:"name" validate:"required,max=100"`
	Code            string `json:"code" validate:"required,max=20"`
	RoomType        string `json:"room_type" validate:"required,oneof=physical virtual"`
	Capacity        int    `json:"capacity" validate:"required,min=1"`
	Building        string `json:"building"`
	VirtualPlatform string `json:"virtual_platform"`
	MeetingLink     string `json:"meeting_link" validate:"omitempty,url"`
	IsAvailable     *bool  `json:"is_available"`
}

// RoomAvailabilityQuery checks a single room for an interval.
type RoomAvailabilityQuery struct {
	RoomID    string `form:"room_id" validate:"required"`
	Date      string `form:"date" validate:"required,datetime=2006-01-02"`
	StartTime string `form:"start_time" validate:"required,datetime=15:04"`
	EndTime   string `form:"end_time" validate:"required,datetime=15:04"`
}

// RoomAvailabilityResponse reports the outcome of an availability check.
type RoomAvailabilityResponse struct {
	Available bool                     `json:"available"`
	Conflicts []models.SessionConflict `json:"conflicts,omitempty"`
}
