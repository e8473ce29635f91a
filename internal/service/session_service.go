package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/unitrack/unitrack-api/internal/dto"
	"github.com/unitrack/unitrack-api/internal/models"
	appErrors "github.com/unitrack/unitrack-api/pkg/errors"
)

type sessionRepository interface {
	List(ctx context.Context, filter models.SessionFilter) ([]models.SessionDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.SessionDetail, error)
	ListByParent(ctx context.Context, parentID string) ([]models.Session, error)
	Create(ctx context.Context, exec sqlx.ExtContext, session *models.Session) error
	Update(ctx context.Context, exec sqlx.ExtContext, session *models.Session) error
	Cancel(ctx context.Context, exec sqlx.ExtContext, id, reason string) error
	CancelByParent(ctx context.Context, exec sqlx.ExtContext, parentID, reason string) (int64, error)
	SoftDelete(ctx context.Context, id string) error
}

type sessionAssignmentReader interface {
	FindByID(ctx context.Context, id string) (*models.CourseAssignment, error)
}

type sessionRoomReader interface {
	FindByID(ctx context.Context, id string) (*models.Room, error)
}

type sessionEventWriter interface {
	Insert(ctx context.Context, exec sqlx.ExtContext, event *models.SessionEvent) error
}

type conflictDetector interface {
	Detect(ctx context.Context, exec sqlx.ExtContext, cand ConflictCandidate, excludeID string) ([]models.SessionConflict, error)
}

type txBeginner interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

// SessionService orchestrates session scheduling. Mutations take per-resource
// locks, re-run conflict detection inside a serializable transaction and
// record an outbox event in the same transaction.
type SessionService struct {
	sessions    sessionRepository
	assignments sessionAssignmentReader
	rooms       sessionRoomReader
	events      sessionEventWriter
	conflicts   conflictDetector
	cache       *CacheService
	metrics     *MetricsService
	db          txBeginner
	locks       *keyedMutex
	validate    *validator.Validate
	logger      *zap.Logger
}

// NewSessionService constructs a session service.
func NewSessionService(
	sessions sessionRepository,
	assignments sessionAssignmentReader,
	rooms sessionRoomReader,
	events sessionEventWriter,
	conflicts conflictDetector,
	cache *CacheService,
	metrics *MetricsService,
	db txBeginner,
	validate *validator.Validate,
	logger *zap.Logger,
) *SessionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionService{
		sessions:    sessions,
		assignments: assignments,
		rooms:       rooms,
		events:      events,
		conflicts:   conflicts,
		cache:       cache,
		metrics:     metrics,
		db:          db,
		locks:       newKeyedMutex(),
		validate:    validate,
		logger:      logger,
	}
}

const sessionCachePattern = "sessions:*"

// List returns sessions matching the filter with pagination metadata.
func (s *SessionService) List(ctx context.Context, filter models.SessionFilter) ([]models.SessionDetail, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 100 {
		filter.PageSize = 20
	}

	type listPayload struct {
		Sessions   []models.SessionDetail `json:"sessions"`
		Pagination models.Pagination      `json:"pagination"`
	}
	cacheKey := fmt.Sprintf("sessions:list:%s:%s:%s:%s:%t:%d:%d:%s:%s",
		filter.CourseAssignmentID, filter.LecturerID, filter.RoomID, filter.Date,
		filter.IncludeCancelled, filter.Page, filter.PageSize, filter.SortBy, filter.SortOrder)
	var cached listPayload
	if hit, _ := s.cache.Get(ctx, cacheKey, &cached); hit {
		return cached.Sessions, &cached.Pagination, nil
	}

	sessions, total, err := s.sessions.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sessions")
	}
	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}

	if err := s.cache.Set(ctx, cacheKey, listPayload{Sessions: sessions, Pagination: *pagination}, 0); err != nil {
		s.logger.Debug("session list cache write skipped", zap.Error(err))
	}
	return sessions, pagination, nil
}

// Get loads a single active session.
func (s *SessionService) Get(ctx context.Context, id string) (*models.SessionDetail, error) {
	detail, err := s.sessions.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	return detail, nil
}

// ListChildren returns the generated occurrences of a recurring template.
func (s *SessionService) ListChildren(ctx context.Context, id string) ([]models.Session, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	children, err := s.sessions.ListByParent(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list child sessions")
	}
	return children, nil
}

// Create schedules a session. Recurring templates are expanded immediately;
// occurrences that would conflict are skipped and reported back.
func (s *SessionService) Create(ctx context.Context, req dto.CreateSessionRequest, createdBy string) (*dto.CreateSessionResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid session payload")
	}
	startMinutes, endMinutes, err := s.validateInterval(req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}
	if err := s.validateRecurrence(&req); err != nil {
		return nil, err
	}
	if (req.RoomID == nil || *req.RoomID == "") && strings.TrimSpace(req.CustomLocation) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "either room_id or custom_location is required")
	}

	assignment, err := s.loadAssignment(ctx, req.CourseAssignmentID)
	if err != nil {
		return nil, err
	}
	room, err := s.loadRoom(ctx, req.RoomID)
	if err != nil {
		return nil, err
	}

	session := &models.Session{
		CourseAssignmentID: req.CourseAssignmentID,
		Title:              req.Title,
		Description:        req.Description,
		RoomID:             req.RoomID,
		CustomLocation:     req.CustomLocation,
		SessionDate:        req.SessionDate,
		StartTime:          req.StartTime,
		EndTime:            req.EndTime,
		IsRecurring:        req.IsRecurring,
		RecurrencePattern:  models.RecurrencePattern(req.RecurrencePattern),
		RecurrenceEndDate:  req.RecurrenceEndDate,
		IsActive:           true,
		MaxCapacity:        req.MaxCapacity,
		CreatedBy:          createdBy,
	}
	if !session.IsRecurring {
		session.RecurrencePattern = models.RecurrenceNone
		session.RecurrenceEndDate = nil
	}

	cand := s.candidateFor(assignment, room, session.SessionDate, startMinutes, endMinutes)
	conflicts, err := s.persistGuarded(ctx, cand, "", func(ctx context.Context, exec sqlx.ExtContext) error {
		if err := s.sessions.Create(ctx, exec, session); err != nil {
			return err
		}
		return s.events.Insert(ctx, exec, s.buildEvent(models.EventSessionCreated, session, assignment))
	})
	if err != nil {
		return nil, err
	}
	if len(conflicts) > 0 {
		return nil, &models.SessionConflictError{Message: "scheduling conflict detected", Conflicts: conflicts}
	}

	resp := &dto.CreateSessionResponse{}
	if session.IsRecurring {
		children, skipped, err := s.expandRecurring(ctx, assignment, room, session)
		if err != nil {
			return nil, err
		}
		resp.Children = children
		resp.SkippedDates = skipped
	}

	s.invalidateCache(ctx)
	detail, err := s.Get(ctx, session.ID)
	if err != nil {
		return nil, err
	}
	resp.Session = detail

	s.logger.Info("session created",
		zap.String("session_id", session.ID),
		zap.String("date", session.SessionDate),
		zap.Bool("recurring", session.IsRecurring),
		zap.Int("children", len(resp.Children)),
		zap.Int("skipped", len(resp.SkippedDates)))
	return resp, nil
}

// Update replaces the mutable fields of a session after re-running conflict
// detection with the session itself excluded.
func (s *SessionService) Update(ctx context.Context, id string, req dto.UpdateSessionRequest) (*models.SessionDetail, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid session payload")
	}
	startMinutes, endMinutes, err := s.validateInterval(req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}

	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing.IsCancelled {
		return nil, appErrors.Clone(appErrors.ErrValidation, "cancelled sessions cannot be modified")
	}
	if (req.RoomID == nil || *req.RoomID == "") && strings.TrimSpace(req.CustomLocation) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "either room_id or custom_location is required")
	}

	assignment, err := s.loadAssignment(ctx, existing.CourseAssignmentID)
	if err != nil {
		return nil, err
	}
	room, err := s.loadRoom(ctx, req.RoomID)
	if err != nil {
		return nil, err
	}

	updated := existing.Session
	updated.Title = req.Title
	updated.Description = req.Description
	updated.RoomID = req.RoomID
	updated.CustomLocation = req.CustomLocation
	updated.SessionDate = req.SessionDate
	updated.StartTime = req.StartTime
	updated.EndTime = req.EndTime
	updated.MaxCapacity = req.MaxCapacity

	cand := s.candidateFor(assignment, room, updated.SessionDate, startMinutes, endMinutes)
	conflicts, err := s.persistGuarded(ctx, cand, id, func(ctx context.Context, exec sqlx.ExtContext) error {
		if err := s.sessions.Update(ctx, exec, &updated); err != nil {
			return err
		}
		return s.events.Insert(ctx, exec, s.buildEvent(models.EventSessionUpdated, &updated, assignment))
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, err
	}
	if len(conflicts) > 0 {
		return nil, &models.SessionConflictError{Message: "scheduling conflict detected", Conflicts: conflicts}
	}

	s.invalidateCache(ctx)
	return s.Get(ctx, id)
}

// Cancel soft-cancels a session, optionally cascading to recurring children.
func (s *SessionService) Cancel(ctx context.Context, id string, req dto.CancelSessionRequest) error {
	if err := s.validate.Struct(req); err != nil {
		return appErrors.Clone(appErrors.ErrValidation, "cancellation reason is required")
	}

	detail, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if detail.IsCancelled {
		return appErrors.Clone(appErrors.ErrValidation, "session is already cancelled")
	}

	assignment, err := s.loadAssignment(ctx, detail.CourseAssignmentID)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.sessions.Cancel(ctx, tx, id, req.Reason); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel session")
	}

	var cascaded int64
	if req.Cascade && detail.IsRecurring {
		cascaded, err = s.sessions.CancelByParent(ctx, tx, id, req.Reason)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel child sessions")
		}
	}

	cancelled := detail.Session
	cancelled.IsCancelled = true
	cancelled.CancellationReason = req.Reason
	if err := s.events.Insert(ctx, tx, s.buildEvent(models.EventSessionCancelled, &cancelled, assignment)); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record session event")
	}

	if err := tx.Commit(); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit cancellation")
	}

	s.invalidateCache(ctx)
	s.logger.Info("session cancelled",
		zap.String("session_id", id),
		zap.Bool("cascade", req.Cascade),
		zap.Int64("children_cancelled", cascaded))
	return nil
}

// Delete deactivates a session. The row is kept for history but leaves every
// listing and conflict scan.
func (s *SessionService) Delete(ctx context.Context, id string) error {
	if err := s.sessions.SoftDelete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete session")
	}
	s.invalidateCache(ctx)
	s.logger.Info("session deleted", zap.String("session_id", id))
	return nil
}

// CheckConflicts dry-runs conflict detection without persisting anything.
func (s *SessionService) CheckConflicts(ctx context.Context, req dto.CheckConflictsRequest) (*dto.CheckConflictsResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid conflict check payload")
	}
	startMinutes, endMinutes, err := s.validateInterval(req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}

	assignment, err := s.loadAssignment(ctx, req.CourseAssignmentID)
	if err != nil {
		return nil, err
	}
	room, err := s.loadRoom(ctx, req.RoomID)
	if err != nil {
		return nil, err
	}

	cand := s.candidateFor(assignment, room, req.SessionDate, startMinutes, endMinutes)
	conflicts, err := s.conflicts.Detect(ctx, nil, cand, req.ExcludeSessionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "conflict detection failed")
	}
	if conflicts == nil {
		conflicts = []models.SessionConflict{}
	}
	return &dto.CheckConflictsResponse{HasConflicts: len(conflicts) > 0, Conflicts: conflicts}, nil
}

// persistGuarded runs op and the conflict scan atomically: per-resource locks
// serialise in-process writers, the serializable transaction guards against
// concurrent writers on other instances. Detected conflicts abort the
// transaction and are returned with a nil error.
func (s *SessionService) persistGuarded(ctx context.Context, cand ConflictCandidate, excludeID string, op func(ctx context.Context, exec sqlx.ExtContext) error) ([]models.SessionConflict, error) {
	unlock := s.locks.Lock(s.lockKeys(cand)...)
	defer unlock()

	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() { _ = tx.Rollback() }()

	conflicts, err := s.conflicts.Detect(ctx, tx, cand, excludeID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "conflict detection failed")
	}
	if len(conflicts) > 0 {
		return conflicts, nil
	}

	if err := op(ctx, tx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist session")
	}
	if err := tx.Commit(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit session")
	}
	return nil, nil
}

// expandRecurring generates child occurrences until the recurrence end date.
// Occurrences colliding with existing sessions are skipped, not failed.
func (s *SessionService) expandRecurring(ctx context.Context, assignment *models.CourseAssignment, room *models.Room, parent *models.Session) ([]models.Session, []string, error) {
	start, err := models.ParseDate(parent.SessionDate)
	if err != nil {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "invalid session date")
	}
	end, err := models.ParseDate(*parent.RecurrenceEndDate)
	if err != nil {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "invalid recurrence end date")
	}

	children := []models.Session{}
	skipped := []string{}
	for d := nextOccurrence(start, parent.RecurrencePattern); !d.After(end); d = nextOccurrence(d, parent.RecurrencePattern) {
		child := *parent
		child.ID = ""
		child.SessionDate = d.Format(models.DateLayout)
		child.IsRecurring = false
		child.RecurrencePattern = models.RecurrenceNone
		child.RecurrenceEndDate = nil
		child.ParentSessionID = &parent.ID
		child.CreatedAt = time.Time{}

		cand := s.candidateFor(assignment, room, child.SessionDate, parent.StartMinutes(), parent.EndMinutes())
		conflicts, err := s.persistGuarded(ctx, cand, "", func(ctx context.Context, exec sqlx.ExtContext) error {
			return s.sessions.Create(ctx, exec, &child)
		})
		if err != nil {
			return children, skipped, err
		}
		if len(conflicts) > 0 {
			skipped = append(skipped, child.SessionDate)
			continue
		}
		children = append(children, child)
	}

	s.metrics.RecordRecurrenceExpansion(len(children), len(skipped))
	return children, skipped, nil
}

// nextOccurrence advances a date by one recurrence step. Monthly steps are
// calendar-aware; Feb 28 + 1 month lands on Mar 28, and overflow days
// normalise the way time.AddDate does.
func nextOccurrence(d time.Time, pattern models.RecurrencePattern) time.Time {
	switch pattern {
	case models.RecurrenceDaily:
		return d.AddDate(0, 0, 1)
	case models.RecurrenceWeekly:
		return d.AddDate(0, 0, 7)
	case models.RecurrenceBiweekly:
		return d.AddDate(0, 0, 14)
	case models.RecurrenceMonthly:
		return d.AddDate(0, 1, 0)
	}
	return d
}

func (s *SessionService) validateInterval(startTime, endTime string) (int, int, error) {
	startMinutes, err := models.ParseClock(startTime)
	if err != nil {
		return 0, 0, appErrors.Clone(appErrors.ErrValidation, "invalid start time, expected HH:MM")
	}
	endMinutes, err := models.ParseClock(endTime)
	if err != nil {
		return 0, 0, appErrors.Clone(appErrors.ErrValidation, "invalid end time, expected HH:MM")
	}
	if endMinutes <= startMinutes {
		return 0, 0, appErrors.Clone(appErrors.ErrValidation, "end time must be after start time")
	}
	return startMinutes, endMinutes, nil
}

func (s *SessionService) validateRecurrence(req *dto.CreateSessionRequest) error {
	if !req.IsRecurring {
		return nil
	}
	pattern := models.RecurrencePattern(req.RecurrencePattern)
	if !pattern.Valid() || pattern == models.RecurrenceNone {
		return appErrors.Clone(appErrors.ErrValidation, "recurring sessions require a recurrence pattern")
	}
	if req.RecurrenceEndDate == nil || *req.RecurrenceEndDate == "" {
		return appErrors.Clone(appErrors.ErrValidation, "recurring sessions require a recurrence end date")
	}
	sessionDate, err := models.ParseDate(req.SessionDate)
	if err != nil {
		return appErrors.Clone(appErrors.ErrValidation, "invalid session date, expected YYYY-MM-DD")
	}
	endDate, err := models.ParseDate(*req.RecurrenceEndDate)
	if err != nil {
		return appErrors.Clone(appErrors.ErrValidation, "invalid recurrence end date, expected YYYY-MM-DD")
	}
	if !endDate.After(sessionDate) {
		return appErrors.Clone(appErrors.ErrValidation, "recurrence end date must be after the session date")
	}
	return nil
}

func (s *SessionService) loadAssignment(ctx context.Context, id string) (*models.CourseAssignment, error) {
	assignment, err := s.assignments.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course assignment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course assignment")
	}
	return assignment, nil
}

// loadRoom resolves the optional room reference and rejects rooms marked
// unavailable by administration.
func (s *SessionService) loadRoom(ctx context.Context, roomID *string) (*models.Room, error) {
	if roomID == nil || *roomID == "" {
		return nil, nil
	}
	room, err := s.rooms.FindByID(ctx, *roomID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "room not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load room")
	}
	if !room.IsAvailable {
		return nil, appErrors.Clone(appErrors.ErrRoomUnavailable, fmt.Sprintf("room %s is not available for booking", room.Code))
	}
	return room, nil
}

func (s *SessionService) candidateFor(assignment *models.CourseAssignment, room *models.Room, date string, startMinutes, endMinutes int) ConflictCandidate {
	cand := ConflictCandidate{
		LecturerID:   assignment.LecturerID,
		DepartmentID: assignment.DepartmentID,
		Level:        assignment.Level,
		Date:         date,
		StartMinutes: startMinutes,
		EndMinutes:   endMinutes,
	}
	if room != nil {
		cand.RoomID = &room.ID
		cand.RoomCode = room.Code
	}
	return cand
}

func (s *SessionService) lockKeys(cand ConflictCandidate) []string {
	keys := []string{
		"lecturer:" + cand.LecturerID + ":" + cand.Date,
		"cohort:" + cand.DepartmentID + ":" + cand.Level + ":" + cand.Date,
	}
	if cand.RoomID != nil && *cand.RoomID != "" {
		keys = append(keys, "room:"+*cand.RoomID+":"+cand.Date)
	}
	return keys
}

func (s *SessionService) buildEvent(eventType models.SessionEventType, session *models.Session, assignment *models.CourseAssignment) *models.SessionEvent {
	payload, _ := json.Marshal(session)
	recipients, _ := json.Marshal(map[string]string{
		"lecturer_id":   assignment.LecturerID,
		"department_id": assignment.DepartmentID,
		"level":         assignment.Level,
	})
	return &models.SessionEvent{
		EventType:  eventType,
		SessionID:  session.ID,
		Payload:    types.JSONText(payload),
		Recipients: types.JSONText(recipients),
	}
}

func (s *SessionService) invalidateCache(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, sessionCachePattern); err != nil {
		s.logger.Warn("session cache invalidation failed", zap.Error(err))
	}
}
