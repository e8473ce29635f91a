package service

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/unitrack/unitrack-api/internal/dto"
	"github.com/unitrack/unitrack-api/internal/models"
)

type mockSuggestionDeps struct {
	assignment     *models.CourseAssignment
	rooms          []models.Room
	roomSessions   map[string][]models.SessionDetail
	cohortSessions []models.SessionDetail
	freeSlots      []models.FreeSlot
}

func (m *mockSuggestionDeps) FindByID(ctx context.Context, id string) (*models.CourseAssignment, error) {
	return m.assignment, nil
}

func (m *mockSuggestionDeps) ListAvailableByType(ctx context.Context, roomType models.RoomType) ([]models.Room, error) {
	return m.rooms, nil
}

func (m *mockSuggestionDeps) ListByCohortAndDate(ctx context.Context, exec sqlx.ExtContext, departmentID, level, date string) ([]models.SessionDetail, error) {
	return m.cohortSessions, nil
}

func (m *mockSuggestionDeps) ListByRoomAndDate(ctx context.Context, exec sqlx.ExtContext, roomID, date string) ([]models.SessionDetail, error) {
	return m.roomSessions[roomID], nil
}

func (m *mockSuggestionDeps) FreeSlots(ctx context.Context, lecturerID, date string, requiredMinutes int) (*dto.FreeSlotsResponse, error) {
	return &dto.FreeSlotsResponse{Date: date, FreeSlots: m.freeSlots}, nil
}

func newSuggestion(deps *mockSuggestionDeps, limit int) *SuggestionService {
	return NewSuggestionService(deps, deps, deps, deps, nil, limit, nil, zap.NewNop())
}

func baseQuery() dto.SuggestTimesQuery {
	return dto.SuggestTimesQuery{
		CourseAssignmentID: "ca-1",
		Date:               "2026-09-01",
		RequiredMinutes:    60,
		RoomType:           "physical",
	}
}

func TestSuggestRanksByRoomCount(t *testing.T) {
	deps := &mockSuggestionDeps{
		assignment: &models.CourseAssignment{ID: "ca-1", LecturerID: "lect-1", DepartmentID: "dept-1", Level: "300"},
		rooms: []models.Room{
			{ID: "room-1", Code: "LT1"},
			{ID: "room-2", Code: "LT2"},
		},
		roomSessions: map[string][]models.SessionDetail{
			// room-2 is taken from 09:00 so only the 10:00 trial gets both rooms.
			"room-2": {detailWith("s-1", "CSC101", "09:00", "10:00")},
		},
		freeSlots: []models.FreeSlot{
			{StartTime: "09:00", EndTime: "10:00", DurationMinutes: 60},
			{StartTime: "10:00", EndTime: "11:00", DurationMinutes: 60},
		},
	}
	svc := newSuggestion(deps, 5)

	suggestions, err := svc.Suggest(context.Background(), baseQuery())
	require.NoError(t, err)
	require.Len(t, suggestions, 2)

	assert.Equal(t, "10:00", suggestions[0].StartTime)
	assert.Equal(t, 2, suggestions[0].Score)
	assert.Len(t, suggestions[0].AvailableRooms, 2)

	assert.Equal(t, "09:00", suggestions[1].StartTime)
	assert.Equal(t, 1, suggestions[1].Score)
	assert.Equal(t, "room-1", suggestions[1].AvailableRooms[0].ID)
}

func TestSuggestEarlierStartBreaksTies(t *testing.T) {
	deps := &mockSuggestionDeps{
		assignment: &models.CourseAssignment{ID: "ca-1", LecturerID: "lect-1", DepartmentID: "dept-1", Level: "300"},
		rooms:      []models.Room{{ID: "room-1", Code: "LT1"}},
		freeSlots: []models.FreeSlot{
			{StartTime: "13:00", EndTime: "14:00", DurationMinutes: 60},
			{StartTime: "09:00", EndTime: "10:00", DurationMinutes: 60},
		},
	}
	svc := newSuggestion(deps, 5)

	suggestions, err := svc.Suggest(context.Background(), baseQuery())
	require.NoError(t, err)
	require.Len(t, suggestions, 2)
	assert.Equal(t, "09:00", suggestions[0].StartTime)
	assert.Equal(t, "13:00", suggestions[1].StartTime)
}

func TestSuggestRejectsCohortClashes(t *testing.T) {
	deps := &mockSuggestionDeps{
		assignment: &models.CourseAssignment{ID: "ca-1", LecturerID: "lect-1", DepartmentID: "dept-1", Level: "300"},
		rooms:      []models.Room{{ID: "room-1", Code: "LT1"}},
		cohortSessions: []models.SessionDetail{
			detailWith("s-cohort", "CSC301", "09:00", "10:00"),
		},
		freeSlots: []models.FreeSlot{
			{StartTime: "09:00", EndTime: "10:00", DurationMinutes: 60},
			{StartTime: "10:00", EndTime: "11:00", DurationMinutes: 60},
		},
	}
	svc := newSuggestion(deps, 5)

	suggestions, err := svc.Suggest(context.Background(), baseQuery())
	require.NoError(t, err)
	require.Len(t, suggestions, 1, "the 09:00 trial clashes with the cohort's other class")
	assert.Equal(t, "10:00", suggestions[0].StartTime)
}

func TestSuggestDropsTrialsWithoutRooms(t *testing.T) {
	deps := &mockSuggestionDeps{
		assignment: &models.CourseAssignment{ID: "ca-1", LecturerID: "lect-1", DepartmentID: "dept-1", Level: "300"},
		rooms:      []models.Room{{ID: "room-1", Code: "LT1"}},
		roomSessions: map[string][]models.SessionDetail{
			"room-1": {detailWith("s-1", "CSC101", "08:00", "18:00")},
		},
		freeSlots: []models.FreeSlot{
			{StartTime: "09:00", EndTime: "12:00", DurationMinutes: 180},
		},
	}
	svc := newSuggestion(deps, 5)

	suggestions, err := svc.Suggest(context.Background(), baseQuery())
	require.NoError(t, err)
	assert.Empty(t, suggestions)
}

func TestSuggestHonoursLimit(t *testing.T) {
	deps := &mockSuggestionDeps{
		assignment: &models.CourseAssignment{ID: "ca-1", LecturerID: "lect-1", DepartmentID: "dept-1", Level: "300"},
		rooms:      []models.Room{{ID: "room-1", Code: "LT1"}},
		freeSlots: []models.FreeSlot{
			{StartTime: "08:00", EndTime: "09:00", DurationMinutes: 60},
			{StartTime: "09:30", EndTime: "10:30", DurationMinutes: 60},
			{StartTime: "11:00", EndTime: "12:00", DurationMinutes: 60},
			{StartTime: "13:00", EndTime: "14:00", DurationMinutes: 60},
		},
	}
	svc := newSuggestion(deps, 3)

	suggestions, err := svc.Suggest(context.Background(), baseQuery())
	require.NoError(t, err)
	assert.Len(t, suggestions, 3)
}

func TestSuggestOneTrialPerFreeSlot(t *testing.T) {
	deps := &mockSuggestionDeps{
		assignment: &models.CourseAssignment{ID: "ca-1", LecturerID: "lect-1", DepartmentID: "dept-1", Level: "300"},
		rooms:      []models.Room{{ID: "room-1", Code: "LT1"}},
		freeSlots: []models.FreeSlot{
			{StartTime: "08:00", EndTime: "18:00", DurationMinutes: 600},
		},
	}
	svc := newSuggestion(deps, 5)

	query := baseQuery()
	query.RequiredMinutes = 120
	suggestions, err := svc.Suggest(context.Background(), query)
	require.NoError(t, err)
	require.Len(t, suggestions, 1, "an empty day yields a single trial at the slot start")
	assert.Equal(t, "08:00", suggestions[0].StartTime)
	assert.Equal(t, "10:00", suggestions[0].EndTime)
	assert.Equal(t, 1, suggestions[0].Score)
}

func TestSuggestSkipsSlotsShorterThanRequired(t *testing.T) {
	deps := &mockSuggestionDeps{
		assignment: &models.CourseAssignment{ID: "ca-1", LecturerID: "lect-1", DepartmentID: "dept-1", Level: "300"},
		rooms:      []models.Room{{ID: "room-1", Code: "LT1"}},
		freeSlots: []models.FreeSlot{
			{StartTime: "09:00", EndTime: "09:30", DurationMinutes: 30},
		},
	}
	svc := newSuggestion(deps, 5)

	suggestions, err := svc.Suggest(context.Background(), baseQuery())
	require.NoError(t, err)
	assert.Empty(t, suggestions)
}

func TestSuggestValidatesQuery(t *testing.T) {
	svc := newSuggestion(&mockSuggestionDeps{}, 5)

	_, err := svc.Suggest(context.Background(), dto.SuggestTimesQuery{
		CourseAssignmentID: "ca-1",
		Date:               "2026-09-01",
		RequiredMinutes:    60,
		RoomType:           "hologram",
	})
	assert.Error(t, err)
}
