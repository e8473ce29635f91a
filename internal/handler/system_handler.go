package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/unitrack/unitrack-api/internal/service"
	"github.com/unitrack/unitrack-api/pkg/response"
)

// SystemHandler exposes operational status endpoints.
type SystemHandler struct {
	metrics *service.MetricsService
}

// NewSystemHandler constructs a system handler.
func NewSystemHandler(metrics *service.MetricsService) *SystemHandler {
	return &SystemHandler{metrics: metrics}
}

// Status godoc
// @Summary Aggregate runtime metrics snapshot
// @Tags System
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /system/status [get]
func (h *SystemHandler) Status(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.metrics.Snapshot(), nil)
}
