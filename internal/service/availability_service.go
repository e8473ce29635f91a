package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/unitrack/unitrack-api/internal/dto"
	"github.com/unitrack/unitrack-api/internal/models"
	"github.com/unitrack/unitrack-api/pkg/config"
	appErrors "github.com/unitrack/unitrack-api/pkg/errors"
)

// availabilitySessionLister provides the booked sessions bounding free slots.
type availabilitySessionLister interface {
	ListByLecturerAndDate(ctx context.Context, exec sqlx.ExtContext, lecturerID, date string) ([]models.SessionDetail, error)
}

// AvailabilityService computes free slots inside the configured working day.
type AvailabilityService struct {
	sessions availabilitySessionLister
	cache    *CacheService
	dayStart int
	dayEnd   int
	logger   *zap.Logger
}

// NewAvailabilityService constructs an availability service. Malformed
// working-hour settings fall back to 08:00..18:00.
func NewAvailabilityService(sessions availabilitySessionLister, cache *CacheService, cfg config.SchedulerConfig, logger *zap.Logger) *AvailabilityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	dayStart, err := models.ParseClock(cfg.DayStart)
	if err != nil {
		dayStart = 8 * 60
	}
	dayEnd, err := models.ParseClock(cfg.DayEnd)
	if err != nil || dayEnd <= dayStart {
		dayEnd = 18 * 60
	}
	return &AvailabilityService{sessions: sessions, cache: cache, dayStart: dayStart, dayEnd: dayEnd, logger: logger}
}

// WorkingDay exposes the configured bookable window in minutes since midnight.
func (s *AvailabilityService) WorkingDay() (int, int) {
	return s.dayStart, s.dayEnd
}

// FreeSlots returns the gaps between a lecturer's booked sessions on the
// given date, clipped to the working day. requiredMinutes drops slots
// shorter than the requested duration; zero keeps every gap.
func (s *AvailabilityService) FreeSlots(ctx context.Context, lecturerID, date string, requiredMinutes int) (*dto.FreeSlotsResponse, error) {
	if _, err := models.ParseDate(date); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid date, expected YYYY-MM-DD")
	}
	if requiredMinutes < 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "required_minutes must not be negative")
	}

	cacheKey := fmt.Sprintf("sessions:freeslots:%s:%s:%d", lecturerID, date, requiredMinutes)
	var cached dto.FreeSlotsResponse
	if hit, _ := s.cache.Get(ctx, cacheKey, &cached); hit {
		return &cached, nil
	}

	booked, err := s.sessions.ListByLecturerAndDate(ctx, nil, lecturerID, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list lecturer sessions")
	}

	resp := &dto.FreeSlotsResponse{
		Date:         date,
		FreeSlots:    s.gaps(booked, requiredMinutes),
		BusySessions: booked,
	}

	if err := s.cache.Set(ctx, cacheKey, resp, 0); err != nil {
		s.logger.Debug("free slot cache write skipped", zap.Error(err))
	}
	return resp, nil
}

// gaps walks the booked sessions in start order with a cursor, emitting each
// uncovered interval. Sessions outside the working day still advance the
// cursor so the emitted slots never overlap a booking.
func (s *AvailabilityService) gaps(booked []models.SessionDetail, requiredMinutes int) []models.FreeSlot {
	sorted := make([]models.SessionDetail, len(booked))
	copy(sorted, booked)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].StartMinutes() < sorted[j].StartMinutes()
	})

	slots := []models.FreeSlot{}
	cursor := s.dayStart
	for _, sess := range sorted {
		start, end := sess.StartMinutes(), sess.EndMinutes()
		if start > cursor {
			s.appendSlot(&slots, cursor, min(start, s.dayEnd), requiredMinutes)
		}
		if end > cursor {
			cursor = end
		}
		if cursor >= s.dayEnd {
			return slots
		}
	}
	s.appendSlot(&slots, cursor, s.dayEnd, requiredMinutes)
	return slots
}

func (s *AvailabilityService) appendSlot(slots *[]models.FreeSlot, start, end, requiredMinutes int) {
	duration := end - start
	if duration <= 0 || duration < requiredMinutes {
		return
	}
	*slots = append(*slots, models.FreeSlot{
		StartTime:       models.FormatClock(start),
		EndTime:         models.FormatClock(end),
		DurationMinutes: duration,
	})
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
