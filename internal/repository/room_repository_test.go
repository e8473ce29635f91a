package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unitrack/unitrack-api/internal/models"
)

var roomTestColumns = []string{"id", "name", "code", "room_type", "capacity", "building", "virtual_platform", "meeting_link", "is_available", "created_at"}

func TestRoomRepositoryListWithFilter(t *testing.T) {
	db, mock, cleanup := newSessionMock(t)
	defer cleanup()
	repo := NewRoomRepository(db)

	rows := sqlmock.NewRows(roomTestColumns).
		AddRow("room-1", "Lecture Theatre 1", "LT1", "physical", 200, "Science Block", "", "", true, time.Now())
	mock.ExpectQuery(`room_type = \$1 AND is_available = TRUE ORDER BY room_type ASC, name ASC`).
		WithArgs(models.RoomPhysical).
		WillReturnRows(rows)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM rooms`).
		WithArgs(models.RoomPhysical).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	rooms, total, err := repo.List(context.Background(), models.RoomFilter{RoomType: models.RoomPhysical, AvailableOnly: true})
	require.NoError(t, err)
	assert.Len(t, rooms, 1)
	assert.Equal(t, 1, total)
	assert.Equal(t, models.RoomPhysical, rooms[0].RoomType)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoomRepositoryListAvailableByType(t *testing.T) {
	db, mock, cleanup := newSessionMock(t)
	defer cleanup()
	repo := NewRoomRepository(db)

	rows := sqlmock.NewRows(roomTestColumns).
		AddRow("room-9", "Zoom Room", "VR1", "virtual", 500, "", "zoom", "https://zoom.example.com/j/1", true, time.Now())
	mock.ExpectQuery(`room_type = \$1 AND is_available = TRUE ORDER BY name ASC`).
		WithArgs(models.RoomVirtual).
		WillReturnRows(rows)

	rooms, err := repo.ListAvailableByType(context.Background(), models.RoomVirtual)
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, "VR1", rooms[0].Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRoomRepositoryCreateAssignsID(t *testing.T) {
	db, mock, cleanup := newSessionMock(t)
	defer cleanup()
	repo := NewRoomRepository(db)

	mock.ExpectExec("INSERT INTO rooms").
		WillReturnResult(sqlmock.NewResult(1, 1))

	room := &models.Room{Name: "Lecture Theatre 1", Code: "LT1", RoomType: models.RoomPhysical, Capacity: 200, Building: "Science Block", IsAvailable: true}
	require.NoError(t, repo.Create(context.Background(), room))
	assert.NotEmpty(t, room.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
