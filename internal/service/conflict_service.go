package service

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/unitrack/unitrack-api/internal/models"
)

// conflictSessionLister provides the booked sessions sharing a resource on a date.
type conflictSessionLister interface {
	ListByRoomAndDate(ctx context.Context, exec sqlx.ExtContext, roomID, date string) ([]models.SessionDetail, error)
	ListByLecturerAndDate(ctx context.Context, exec sqlx.ExtContext, lecturerID, date string) ([]models.SessionDetail, error)
	ListByCohortAndDate(ctx context.Context, exec sqlx.ExtContext, departmentID, level, date string) ([]models.SessionDetail, error)
}

// ConflictCandidate captures everything conflict detection needs to know
// about a session that may or may not exist yet.
type ConflictCandidate struct {
	RoomID       *string
	RoomCode     string
	LecturerID   string
	DepartmentID string
	Level        string
	Date         string
	StartMinutes int
	EndMinutes   int
}

// ConflictService finds existing sessions that collide with a candidate
// interval. Checks run in a fixed order: room, then lecturer, then cohort.
type ConflictService struct {
	sessions conflictSessionLister
	metrics  *MetricsService
	logger   *zap.Logger
}

// NewConflictService constructs a conflict service.
func NewConflictService(sessions conflictSessionLister, metrics *MetricsService, logger *zap.Logger) *ConflictService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConflictService{sessions: sessions, metrics: metrics, logger: logger}
}

// Detect returns every active, non-cancelled session colliding with the
// candidate. excludeID skips the session being rescheduled so it never
// conflicts with itself. Passing a transaction as exec makes the reads part
// of the caller's isolation scope; nil falls back to the pool.
func (s *ConflictService) Detect(ctx context.Context, exec sqlx.ExtContext, cand ConflictCandidate, excludeID string) ([]models.SessionConflict, error) {
	var conflicts []models.SessionConflict

	if cand.RoomID != nil && *cand.RoomID != "" {
		roomConflicts, err := s.RoomConflicts(ctx, exec, *cand.RoomID, cand.RoomCode, cand.Date, cand.StartMinutes, cand.EndMinutes, excludeID)
		if err != nil {
			return nil, err
		}
		conflicts = append(conflicts, roomConflicts...)
	}

	booked, err := s.sessions.ListByLecturerAndDate(ctx, exec, cand.LecturerID, cand.Date)
	if err != nil {
		return nil, err
	}
	for _, other := range s.overlapping(booked, cand, excludeID) {
		conflicts = append(conflicts, conflictRecord(models.ConflictLecturer, other,
			fmt.Sprintf("Lecturer has another class: %s", other.CourseCode)))
	}

	booked, err = s.sessions.ListByCohortAndDate(ctx, exec, cand.DepartmentID, cand.Level, cand.Date)
	if err != nil {
		return nil, err
	}
	for _, other := range s.overlapping(booked, cand, excludeID) {
		conflicts = append(conflicts, conflictRecord(models.ConflictCohort, other,
			fmt.Sprintf("Students have a conflicting class: %s", other.CourseCode)))
	}

	if len(conflicts) > 0 {
		byKind := map[models.ConflictKind]int{}
		for _, c := range conflicts {
			byKind[c.Kind]++
		}
		for kind, n := range byKind {
			s.metrics.RecordConflicts(string(kind), n)
		}
		s.logger.Debug("conflicts detected",
			zap.String("date", cand.Date),
			zap.String("lecturer_id", cand.LecturerID),
			zap.Int("count", len(conflicts)))
	}
	return conflicts, nil
}

// RoomConflicts returns the sessions blocking a room for the given interval.
// It backs both the full candidate scan and the standalone room
// availability check.
func (s *ConflictService) RoomConflicts(ctx context.Context, exec sqlx.ExtContext, roomID, roomCode, date string, startMinutes, endMinutes int, excludeID string) ([]models.SessionConflict, error) {
	booked, err := s.sessions.ListByRoomAndDate(ctx, exec, roomID, date)
	if err != nil {
		return nil, err
	}
	cand := ConflictCandidate{Date: date, StartMinutes: startMinutes, EndMinutes: endMinutes}
	var conflicts []models.SessionConflict
	for _, other := range s.overlapping(booked, cand, excludeID) {
		conflicts = append(conflicts, conflictRecord(models.ConflictRoom, other,
			fmt.Sprintf("Room %s is already booked", roomCode)))
	}
	return conflicts, nil
}

// overlapping filters booked sessions down to those intersecting the
// candidate interval, dropping duplicates of the excluded session.
func (s *ConflictService) overlapping(booked []models.SessionDetail, cand ConflictCandidate, excludeID string) []models.SessionDetail {
	var out []models.SessionDetail
	for _, other := range booked {
		if excludeID != "" && other.ID == excludeID {
			continue
		}
		if models.Overlaps(cand.StartMinutes, cand.EndMinutes, other.StartMinutes(), other.EndMinutes()) {
			out = append(out, other)
		}
	}
	return out
}

func conflictRecord(kind models.ConflictKind, other models.SessionDetail, message string) models.SessionConflict {
	return models.SessionConflict{
		Kind:         kind,
		SessionID:    other.ID,
		SessionTitle: other.Title,
		CourseCode:   other.CourseCode,
		StartTime:    other.StartTime,
		EndTime:      other.EndTime,
		Message:      message,
	}
}
