package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/unitrack/unitrack-api/internal/dto"
	"github.com/unitrack/unitrack-api/internal/models"
	appErrors "github.com/unitrack/unitrack-api/pkg/errors"
)

type suggestionAssignmentReader interface {
	FindByID(ctx context.Context, id string) (*models.CourseAssignment, error)
}

type suggestionRoomLister interface {
	ListAvailableByType(ctx context.Context, roomType models.RoomType) ([]models.Room, error)
}

type suggestionSessionLister interface {
	ListByCohortAndDate(ctx context.Context, exec sqlx.ExtContext, departmentID, level, date string) ([]models.SessionDetail, error)
	ListByRoomAndDate(ctx context.Context, exec sqlx.ExtContext, roomID, date string) ([]models.SessionDetail, error)
}

type freeSlotProvider interface {
	FreeSlots(ctx context.Context, lecturerID, date string, requiredMinutes int) (*dto.FreeSlotsResponse, error)
}

// SuggestionService ranks candidate intervals for a course assignment by the
// number of rooms free to host them.
type SuggestionService struct {
	assignments  suggestionAssignmentReader
	rooms        suggestionRoomLister
	sessions     suggestionSessionLister
	availability freeSlotProvider
	metrics      *MetricsService
	limit        int
	validate     *validator.Validate
	logger       *zap.Logger
}

// NewSuggestionService constructs a suggestion service. limit caps how many
// suggestions are returned; non-positive values default to 5.
func NewSuggestionService(assignments suggestionAssignmentReader, rooms suggestionRoomLister, sessions suggestionSessionLister, availability freeSlotProvider, metrics *MetricsService, limit int, validate *validator.Validate, logger *zap.Logger) *SuggestionService {
	if limit <= 0 {
		limit = 5
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SuggestionService{
		assignments:  assignments,
		rooms:        rooms,
		sessions:     sessions,
		availability: availability,
		metrics:      metrics,
		limit:        limit,
		validate:     validate,
		logger:       logger,
	}
}

// Suggest proposes up to the configured number of (interval, rooms) pairs
// where the lecturer is free, the cohort has no other class and at least one
// room of the requested type is unbooked. Results are ordered by room count
// descending, earliest start breaking ties.
func (s *SuggestionService) Suggest(ctx context.Context, req dto.SuggestTimesQuery) ([]models.TimeSuggestion, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid suggestion query")
	}
	assignment, err := s.assignments.FindByID(ctx, req.CourseAssignmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course assignment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course assignment")
	}

	free, err := s.availability.FreeSlots(ctx, assignment.LecturerID, req.Date, req.RequiredMinutes)
	if err != nil {
		return nil, err
	}

	departmentID, level := assignment.CohortKey()
	cohortSessions, err := s.sessions.ListByCohortAndDate(ctx, nil, departmentID, level, req.Date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list cohort sessions")
	}

	rooms, err := s.rooms.ListAvailableByType(ctx, models.RoomType(req.RoomType))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list rooms")
	}

	roomBookings := make(map[string][]models.SessionDetail, len(rooms))
	for _, room := range rooms {
		booked, err := s.sessions.ListByRoomAndDate(ctx, nil, room.ID, req.Date)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list room sessions")
		}
		roomBookings[room.ID] = booked
	}

	var suggestions []models.TimeSuggestion
	for _, slot := range free.FreeSlots {
		slotStart, err := models.ParseClock(slot.StartTime)
		if err != nil {
			continue
		}
		slotEnd, _ := models.ParseClock(slot.EndTime)
		// One trial interval per qualifying slot, anchored at the slot start.
		end := slotStart + req.RequiredMinutes
		if end > slotEnd {
			continue
		}
		if s.cohortBusy(cohortSessions, slotStart, end) {
			continue
		}
		openRooms := s.openRooms(rooms, roomBookings, slotStart, end)
		if len(openRooms) == 0 {
			continue
		}
		suggestions = append(suggestions, models.TimeSuggestion{
			StartTime:       models.FormatClock(slotStart),
			EndTime:         models.FormatClock(end),
			DurationMinutes: req.RequiredMinutes,
			AvailableRooms:  openRooms,
			Score:           len(openRooms),
		})
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		if suggestions[i].Score != suggestions[j].Score {
			return suggestions[i].Score > suggestions[j].Score
		}
		return suggestions[i].StartTime < suggestions[j].StartTime
	})
	if len(suggestions) > s.limit {
		suggestions = suggestions[:s.limit]
	}

	s.metrics.RecordSuggestionsServed(len(suggestions))
	s.logger.Debug("time suggestions computed",
		zap.String("course_assignment_id", req.CourseAssignmentID),
		zap.String("date", req.Date),
		zap.Int("count", len(suggestions)))
	return suggestions, nil
}

func (s *SuggestionService) cohortBusy(cohortSessions []models.SessionDetail, start, end int) bool {
	for _, sess := range cohortSessions {
		if models.Overlaps(start, end, sess.StartMinutes(), sess.EndMinutes()) {
			return true
		}
	}
	return false
}

func (s *SuggestionService) openRooms(rooms []models.Room, bookings map[string][]models.SessionDetail, start, end int) []models.Room {
	var open []models.Room
	for _, room := range rooms {
		busy := false
		for _, sess := range bookings[room.ID] {
			if models.Overlaps(start, end, sess.StartMinutes(), sess.EndMinutes()) {
				busy = true
				break
			}
		}
		if !busy {
			open = append(open, room)
		}
	}
	return open
}
