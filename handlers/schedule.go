package handlers

import (
	"net/http"

	"parishly/models"
	"parishly/services/availability"
	"parishly/services/schedule"

	"github.com/gin-gonic/gin"
)

// ScheduleHandler exposes staff schedule authoring.
type ScheduleHandler struct {
	Svc          *schedule.Service
	Availability *availability.Service
}

func NewScheduleHandler(svc *schedule.Service, avail *availability.Service) *ScheduleHandler {
	return &ScheduleHandler{Svc: svc, Availability: avail}
}

// CreateScheduleHandler validates and persists a new schedule. Rule-shape
// problems are rejected here so they never reach booking time.
func (h *ScheduleHandler) CreateScheduleHandler(c *gin.Context) {
	var input models.Schedule
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}

	if err := h.Svc.Create(c.Request.Context(), &input); err != nil {
		respondError(c, err)
		return
	}
	h.Availability.InvalidateService(c.Request.Context(), input.ServiceID)
	c.JSON(http.StatusCreated, input)
}

// UpdateScheduleHandler replaces a schedule's configuration.
func (h *ScheduleHandler) UpdateScheduleHandler(c *gin.Context) {
	var input models.Schedule
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}
	input.ID = c.Param("scheduleID")

	if err := h.Svc.Update(c.Request.Context(), &input); err != nil {
		respondError(c, err)
		return
	}
	h.Availability.InvalidateService(c.Request.Context(), input.ServiceID)
	c.JSON(http.StatusOK, input)
}

// DeleteScheduleHandler removes a schedule unless active appointments still
// reference it on a future date.
func (h *ScheduleHandler) DeleteScheduleHandler(c *gin.Context) {
	id := c.Param("scheduleID")
	if err := h.Svc.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"scheduleId": id, "deleted": true})
}
