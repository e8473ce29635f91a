package service

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/unitrack/unitrack-api/internal/models"
	"github.com/unitrack/unitrack-api/pkg/config"
)

type mockAvailabilityLister struct {
	sessions []models.SessionDetail
}

func (m *mockAvailabilityLister) ListByLecturerAndDate(ctx context.Context, exec sqlx.ExtContext, lecturerID, date string) ([]models.SessionDetail, error) {
	return m.sessions, nil
}

func newAvailability(sessions ...models.SessionDetail) *AvailabilityService {
	return NewAvailabilityService(
		&mockAvailabilityLister{sessions: sessions},
		nil,
		config.SchedulerConfig{DayStart: "08:00", DayEnd: "18:00"},
		zap.NewNop(),
	)
}

func TestFreeSlotsEmptyDay(t *testing.T) {
	svc := newAvailability()

	resp, err := svc.FreeSlots(context.Background(), "lect-1", "2026-09-01", 0)
	require.NoError(t, err)
	require.Len(t, resp.FreeSlots, 1)
	assert.Equal(t, "08:00", resp.FreeSlots[0].StartTime)
	assert.Equal(t, "18:00", resp.FreeSlots[0].EndTime)
	assert.Equal(t, 600, resp.FreeSlots[0].DurationMinutes)
}

func TestFreeSlotsBetweenSessions(t *testing.T) {
	svc := newAvailability(
		detailWith("s-1", "CSC101", "09:00", "11:00"),
		detailWith("s-2", "CSC102", "13:00", "15:00"),
	)

	resp, err := svc.FreeSlots(context.Background(), "lect-1", "2026-09-01", 0)
	require.NoError(t, err)
	require.Len(t, resp.FreeSlots, 3)

	assert.Equal(t, models.FreeSlot{StartTime: "08:00", EndTime: "09:00", DurationMinutes: 60}, resp.FreeSlots[0])
	assert.Equal(t, models.FreeSlot{StartTime: "11:00", EndTime: "13:00", DurationMinutes: 120}, resp.FreeSlots[1])
	assert.Equal(t, models.FreeSlot{StartTime: "15:00", EndTime: "18:00", DurationMinutes: 180}, resp.FreeSlots[2])
}

func TestFreeSlotsRequiredMinutesFilter(t *testing.T) {
	svc := newAvailability(
		detailWith("s-1", "CSC101", "09:00", "11:00"),
		detailWith("s-2", "CSC102", "13:00", "15:00"),
	)

	resp, err := svc.FreeSlots(context.Background(), "lect-1", "2026-09-01", 90)
	require.NoError(t, err)
	require.Len(t, resp.FreeSlots, 2)
	assert.Equal(t, "11:00", resp.FreeSlots[0].StartTime)
	assert.Equal(t, "15:00", resp.FreeSlots[1].StartTime)
}

func TestFreeSlotsBackToBackSessions(t *testing.T) {
	svc := newAvailability(
		detailWith("s-1", "CSC101", "08:00", "10:00"),
		detailWith("s-2", "CSC102", "10:00", "12:00"),
		detailWith("s-3", "CSC103", "12:00", "18:00"),
	)

	resp, err := svc.FreeSlots(context.Background(), "lect-1", "2026-09-01", 0)
	require.NoError(t, err)
	assert.Empty(t, resp.FreeSlots, "a fully tiled day has no free slots")
}

func TestFreeSlotsOverlappingSessions(t *testing.T) {
	svc := newAvailability(
		detailWith("s-1", "CSC101", "09:00", "12:00"),
		detailWith("s-2", "CSC102", "10:00", "11:00"),
	)

	resp, err := svc.FreeSlots(context.Background(), "lect-1", "2026-09-01", 0)
	require.NoError(t, err)
	require.Len(t, resp.FreeSlots, 2)
	assert.Equal(t, "08:00", resp.FreeSlots[0].StartTime)
	assert.Equal(t, "09:00", resp.FreeSlots[0].EndTime)
	assert.Equal(t, "12:00", resp.FreeSlots[1].StartTime)
	assert.Equal(t, "18:00", resp.FreeSlots[1].EndTime)
}

func TestFreeSlotsSessionOutsideWorkingDay(t *testing.T) {
	svc := newAvailability(
		detailWith("s-1", "CSC101", "06:00", "07:00"),
		detailWith("s-2", "CSC102", "17:00", "20:00"),
	)

	resp, err := svc.FreeSlots(context.Background(), "lect-1", "2026-09-01", 0)
	require.NoError(t, err)
	require.Len(t, resp.FreeSlots, 1)
	assert.Equal(t, "08:00", resp.FreeSlots[0].StartTime)
	assert.Equal(t, "17:00", resp.FreeSlots[0].EndTime)
}

func TestFreeSlotsNeverOverlapBookings(t *testing.T) {
	sessions := []models.SessionDetail{
		detailWith("s-1", "CSC101", "08:30", "09:45"),
		detailWith("s-2", "CSC102", "09:15", "10:00"),
		detailWith("s-3", "CSC103", "12:00", "12:01"),
		detailWith("s-4", "CSC104", "16:59", "18:00"),
	}
	svc := newAvailability(sessions...)

	resp, err := svc.FreeSlots(context.Background(), "lect-1", "2026-09-01", 0)
	require.NoError(t, err)
	require.NotEmpty(t, resp.FreeSlots)

	for _, slot := range resp.FreeSlots {
		slotStart, err := models.ParseClock(slot.StartTime)
		require.NoError(t, err)
		slotEnd, err := models.ParseClock(slot.EndTime)
		require.NoError(t, err)
		assert.Less(t, slotStart, slotEnd)
		for _, sess := range sessions {
			assert.False(t,
				models.Overlaps(slotStart, slotEnd, sess.StartMinutes(), sess.EndMinutes()),
				"slot %s-%s overlaps session %s", slot.StartTime, slot.EndTime, sess.ID)
		}
	}
}

func TestFreeSlotsRejectsBadInput(t *testing.T) {
	svc := newAvailability()

	_, err := svc.FreeSlots(context.Background(), "lect-1", "01-09-2026", 0)
	assert.Error(t, err)

	_, err = svc.FreeSlots(context.Background(), "lect-1", "2026-09-01", -5)
	assert.Error(t, err)
}

func TestWorkingDayFallback(t *testing.T) {
	svc := NewAvailabilityService(&mockAvailabilityLister{}, nil, config.SchedulerConfig{DayStart: "bogus", DayEnd: "07:00"}, zap.NewNop())
	start, end := svc.WorkingDay()
	assert.Equal(t, 480, start)
	assert.Equal(t, 1080, end)
}
