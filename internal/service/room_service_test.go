package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/unitrack/unitrack-api/internal/dto"
	"github.com/unitrack/unitrack-api/internal/models"
	appErrors "github.com/unitrack/unitrack-api/pkg/errors"
)

type mockRoomRepo struct {
	rooms   map[string]models.Room
	created *models.Room
}

func (m *mockRoomRepo) List(ctx context.Context, filter models.RoomFilter) ([]models.Room, int, error) {
	var out []models.Room
	for _, r := range m.rooms {
		out = append(out, r)
	}
	return out, len(out), nil
}

func (m *mockRoomRepo) FindByID(ctx context.Context, id string) (*models.Room, error) {
	if r, ok := m.rooms[id]; ok {
		return &r, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockRoomRepo) Create(ctx context.Context, room *models.Room) error {
	if room.ID == "" {
		room.ID = "room-new"
	}
	if m.rooms == nil {
		m.rooms = make(map[string]models.Room)
	}
	m.rooms[room.ID] = *room
	m.created = room
	return nil
}

type mockRoomConflicts struct {
	conflicts []models.SessionConflict
}

func (m *mockRoomConflicts) RoomConflicts(ctx context.Context, exec sqlx.ExtContext, roomID, roomCode, date string, startMinutes, endMinutes int, excludeID string) ([]models.SessionConflict, error) {
	return m.conflicts, nil
}

func TestRoomCreateVirtualRequiresLink(t *testing.T) {
	svc := NewRoomService(&mockRoomRepo{}, &mockRoomConflicts{}, nil, zap.NewNop())

	_, err := svc.Create(context.Background(), dto.CreateRoomRequest{
		Name:     "Zoom Room",
		Code:     "VR1",
		RoomType: "virtual",
		Capacity: 100,
	})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	room, err := svc.Create(context.Background(), dto.CreateRoomRequest{
		Name:            "Zoom Room",
		Code:            "VR1",
		RoomType:        "virtual",
		Capacity:        100,
		VirtualPlatform: "zoom",
		MeetingLink:     "https://zoom.example.com/j/1",
	})
	require.NoError(t, err)
	assert.True(t, room.IsAvailable, "rooms default to available")
}

func TestRoomCreatePhysicalRequiresBuilding(t *testing.T) {
	svc := NewRoomService(&mockRoomRepo{}, &mockRoomConflicts{}, nil, zap.NewNop())

	_, err := svc.Create(context.Background(), dto.CreateRoomRequest{
		Name:     "Lecture Theatre 1",
		Code:     "LT1",
		RoomType: "physical",
		Capacity: 200,
	})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestRoomCheckAvailability(t *testing.T) {
	repo := &mockRoomRepo{rooms: map[string]models.Room{
		"room-1": {ID: "room-1", Code: "LT1", IsAvailable: true},
		"room-2": {ID: "room-2", Code: "LT2", IsAvailable: false},
	}}
	conflicts := &mockRoomConflicts{}
	svc := NewRoomService(repo, conflicts, nil, zap.NewNop())

	query := dto.RoomAvailabilityQuery{RoomID: "room-1", Date: "2026-09-01", StartTime: "09:00", EndTime: "11:00"}

	result, err := svc.CheckAvailability(context.Background(), query)
	require.NoError(t, err)
	assert.True(t, result.Available)

	conflicts.conflicts = []models.SessionConflict{{Kind: models.ConflictRoom, SessionID: "s-1"}}
	result, err = svc.CheckAvailability(context.Background(), query)
	require.NoError(t, err)
	assert.False(t, result.Available)
	assert.Len(t, result.Conflicts, 1)

	query.RoomID = "room-2"
	result, err = svc.CheckAvailability(context.Background(), query)
	require.NoError(t, err)
	assert.False(t, result.Available, "withdrawn rooms are never available")

	query.RoomID = "missing"
	_, err = svc.CheckAvailability(context.Background(), query)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestRoomCheckAvailabilityRejectsInvertedInterval(t *testing.T) {
	svc := NewRoomService(&mockRoomRepo{}, &mockRoomConflicts{}, nil, zap.NewNop())

	_, err := svc.CheckAvailability(context.Background(), dto.RoomAvailabilityQuery{
		RoomID: "room-1", Date: "2026-09-01", StartTime: "11:00", EndTime: "09:00",
	})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
