package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/unitrack/unitrack-api/internal/service"
	appErrors "github.com/unitrack/unitrack-api/pkg/errors"
	"github.com/unitrack/unitrack-api/pkg/response"
)

// AvailabilityHandler exposes lecturer free-time lookups.
type AvailabilityHandler struct {
	availability *service.AvailabilityService
}

// NewAvailabilityHandler constructs an availability handler.
func NewAvailabilityHandler(availability *service.AvailabilityService) *AvailabilityHandler {
	return &AvailabilityHandler{availability: availability}
}

// FreeTimes godoc
// @Summary List a lecturer's free slots on a date
// @Tags Lecturers
// @Produce json
// @Param id path string true "Lecturer ID"
// @Param date query string true "Date (YYYY-MM-DD)"
// @Param required_minutes query int false "Minimum slot duration in minutes"
// @Success 200 {object} response.Envelope
// @Router /lecturers/{id}/free-times [get]
func (h *AvailabilityHandler) FreeTimes(c *gin.Context) {
	lecturerID := c.Param("id")
	date := c.Query("date")
	if date == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "date query parameter is required"))
		return
	}
	requiredMinutes := 0
	if raw := c.Query("required_minutes"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "required_minutes must be an integer"))
			return
		}
		requiredMinutes = parsed
	}

	slots, err := h.availability.FreeSlots(c.Request.Context(), lecturerID, date, requiredMinutes)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slots, nil)
}
