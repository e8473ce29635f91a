package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/unitrack/unitrack-api/internal/dto"
	"github.com/unitrack/unitrack-api/internal/models"
	"github.com/unitrack/unitrack-api/internal/service"
	appErrors "github.com/unitrack/unitrack-api/pkg/errors"
	"github.com/unitrack/unitrack-api/pkg/response"
)

// SessionHandler exposes session scheduling endpoints.
type SessionHandler struct {
	sessions    *service.SessionService
	suggestions *service.SuggestionService
}

// NewSessionHandler constructs a session handler.
func NewSessionHandler(sessions *service.SessionService, suggestions *service.SuggestionService) *SessionHandler {
	return &SessionHandler{sessions: sessions, suggestions: suggestions}
}

// writeError renders conflict errors as 409 with the colliding sessions in
// the meta block; everything else goes through the common error envelope.
func writeError(c *gin.Context, err error) {
	var conflictErr *models.SessionConflictError
	if errors.As(err, &conflictErr) {
		response.ErrorWithMeta(c,
			appErrors.Clone(appErrors.ErrConflict, conflictErr.Message),
			map[string]interface{}{"conflicts": conflictErr.Conflicts})
		return
	}
	response.Error(c, err)
}

// List godoc
// @Summary List sessions
// @Tags Sessions
// @Produce json
// @Param course_assignment_id query string false "Filter by course assignment"
// @Param lecturer_id query string false "Filter by lecturer"
// @Param room_id query string false "Filter by room"
// @Param date query string false "Filter by date (YYYY-MM-DD)"
// @Param include_cancelled query bool false "Include cancelled sessions"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /sessions [get]
func (h *SessionHandler) List(c *gin.Context) {
	var filter models.SessionFilter
	filter.CourseAssignmentID = c.Query("course_assignment_id")
	filter.LecturerID = c.Query("lecturer_id")
	filter.RoomID = c.Query("room_id")
	filter.Date = c.Query("date")
	filter.IncludeCancelled = c.Query("include_cancelled") == "true"
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	sessions, pagination, err := h.sessions.List(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sessions, pagination)
}

// Get godoc
// @Summary Get session detail
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /sessions/{id} [get]
func (h *SessionHandler) Get(c *gin.Context) {
	detail, err := h.sessions.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Children godoc
// @Summary List occurrences generated from a recurring session
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Router /sessions/{id}/children [get]
func (h *SessionHandler) Children(c *gin.Context) {
	children, err := h.sessions.ListChildren(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	response.JSON(c, http.StatusOK, children, nil)
}

// Create godoc
// @Summary Schedule a session
// @Tags Sessions
// @Accept json
// @Produce json
// @Param payload body dto.CreateSessionRequest true "Session payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /sessions [post]
func (h *SessionHandler) Create(c *gin.Context) {
	var req dto.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	created, err := h.sessions.Create(c.Request.Context(), req, c.GetString("user_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Created(c, created)
}

// Update godoc
// @Summary Reschedule or edit a session
// @Tags Sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param payload body dto.UpdateSessionRequest true "Session payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /sessions/{id} [put]
func (h *SessionHandler) Update(c *gin.Context) {
	var req dto.UpdateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	updated, err := h.sessions.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		writeError(c, err)
		return
	}
	response.JSON(c, http.StatusOK, updated, nil)
}

// Cancel godoc
// @Summary Cancel a session
// @Tags Sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param payload body dto.CancelSessionRequest true "Cancellation payload"
// @Success 204
// @Router /sessions/{id}/cancel [post]
func (h *SessionHandler) Cancel(c *gin.Context) {
	var req dto.CancelSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.sessions.Cancel(c.Request.Context(), c.Param("id"), req); err != nil {
		writeError(c, err)
		return
	}
	response.NoContent(c)
}

// Delete godoc
// @Summary Delete a session
// @Tags Sessions
// @Param id path string true "Session ID"
// @Success 204
// @Router /sessions/{id} [delete]
func (h *SessionHandler) Delete(c *gin.Context) {
	if err := h.sessions.Delete(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	response.NoContent(c)
}

// CheckConflicts godoc
// @Summary Dry-run conflict detection for a candidate interval
// @Tags Sessions
// @Accept json
// @Produce json
// @Param payload body dto.CheckConflictsRequest true "Candidate interval"
// @Success 200 {object} response.Envelope
// @Router /sessions/check-conflicts [post]
func (h *SessionHandler) CheckConflicts(c *gin.Context) {
	var req dto.CheckConflictsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.sessions.CheckConflicts(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// SuggestTimes godoc
// @Summary Suggest conflict-free time and room combinations
// @Tags Sessions
// @Produce json
// @Param course_assignment_id query string true "Course assignment"
// @Param date query string true "Date (YYYY-MM-DD)"
// @Param required_minutes query int true "Required duration in minutes"
// @Param room_type query string true "Room type (physical or virtual)"
// @Success 200 {object} response.Envelope
// @Router /sessions/suggest-times [get]
func (h *SessionHandler) SuggestTimes(c *gin.Context) {
	var query dto.SuggestTimesQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		writeError(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}
	suggestions, err := h.suggestions.Suggest(c.Request.Context(), query)
	if err != nil {
		writeError(c, err)
		return
	}
	response.JSON(c, http.StatusOK, suggestions, nil)
}
