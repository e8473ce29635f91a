package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/unitrack/unitrack-api/internal/dto"
	"github.com/unitrack/unitrack-api/internal/models"
	appErrors "github.com/unitrack/unitrack-api/pkg/errors"
)

type roomRepository interface {
	List(ctx context.Context, filter models.RoomFilter) ([]models.Room, int, error)
	FindByID(ctx context.Context, id string) (*models.Room, error)
	Create(ctx context.Context, room *models.Room) error
}

type roomConflictChecker interface {
	RoomConflicts(ctx context.Context, exec sqlx.ExtContext, roomID, roomCode, date string, startMinutes, endMinutes int, excludeID string) ([]models.SessionConflict, error)
}

// RoomService manages the room catalogue and availability checks.
type RoomService struct {
	rooms     roomRepository
	conflicts roomConflictChecker
	validate  *validator.Validate
	logger    *zap.Logger
}

// NewRoomService constructs a room service.
func NewRoomService(rooms roomRepository, conflicts roomConflictChecker, validate *validator.Validate, logger *zap.Logger) *RoomService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RoomService{rooms: rooms, conflicts: conflicts, validate: validate, logger: logger}
}

// List returns rooms matching the filter with pagination metadata.
func (s *RoomService) List(ctx context.Context, filter models.RoomFilter) ([]models.Room, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 100 {
		filter.PageSize = 20
	}
	rooms, total, err := s.rooms.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list rooms")
	}
	return rooms, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Get loads a single room.
func (s *RoomService) Get(ctx context.Context, id string) (*models.Room, error) {
	room, err := s.rooms.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "room not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load room")
	}
	return room, nil
}

// Create registers a room. Virtual rooms must carry a meeting link.
func (s *RoomService) Create(ctx context.Context, req dto.CreateRoomRequest) (*models.Room, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid room payload")
	}
	roomType := models.RoomType(req.RoomType)
	if roomType == models.RoomVirtual && strings.TrimSpace(req.MeetingLink) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "virtual rooms require a meeting link")
	}
	if roomType == models.RoomPhysical && strings.TrimSpace(req.Building) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "physical rooms require a building")
	}

	available := true
	if req.IsAvailable != nil {
		available = *req.IsAvailable
	}
	room := &models.Room{
		Name:            req.Name,
		Code:            req.Code,
		RoomType:        roomType,
		Capacity:        req.Capacity,
		Building:        req.Building,
		VirtualPlatform: req.VirtualPlatform,
		MeetingLink:     req.MeetingLink,
		IsAvailable:     available,
	}
	if err := s.rooms.Create(ctx, room); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create room")
	}
	s.logger.Info("room created", zap.String("room_id", room.ID), zap.String("code", room.Code))
	return room, nil
}

// CheckAvailability reports whether a room is free for the given interval.
// Rooms withdrawn by administration are reported unavailable without a scan.
func (s *RoomService) CheckAvailability(ctx context.Context, q dto.RoomAvailabilityQuery) (*dto.RoomAvailabilityResponse, error) {
	if err := s.validate.Struct(q); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid availability query")
	}
	startMinutes, err := models.ParseClock(q.StartTime)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid start time, expected HH:MM")
	}
	endMinutes, err := models.ParseClock(q.EndTime)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid end time, expected HH:MM")
	}
	if endMinutes <= startMinutes {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end time must be after start time")
	}

	room, err := s.Get(ctx, q.RoomID)
	if err != nil {
		return nil, err
	}
	if !room.IsAvailable {
		return &dto.RoomAvailabilityResponse{
			Available: false,
			Conflicts: []models.SessionConflict{{
				Kind:    models.ConflictRoom,
				Message: fmt.Sprintf("Room %s is not available for booking", room.Code),
			}},
		}, nil
	}

	conflicts, err := s.conflicts.RoomConflicts(ctx, nil, room.ID, room.Code, q.Date, startMinutes, endMinutes, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "room availability check failed")
	}
	return &dto.RoomAvailabilityResponse{Available: len(conflicts) == 0, Conflicts: conflicts}, nil
}
