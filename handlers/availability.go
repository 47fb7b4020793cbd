package handlers

import (
	"net/http"

	"parishly/services/availability"

	"github.com/gin-gonic/gin"
)

// AvailabilityHandler serves the read side of booking.
type AvailabilityHandler struct {
	Svc *availability.Service
}

func NewAvailabilityHandler(svc *availability.Service) *AvailabilityHandler {
	return &AvailabilityHandler{Svc: svc}
}

// ListOccurrencesHandler returns the occurrence dates of a service within
// [from, to), both "2006-01-02".
func (h *AvailabilityHandler) ListOccurrencesHandler(c *gin.Context) {
	serviceID := c.Param("serviceID")
	from := c.Query("from")
	to := c.Query("to")
	if from == "" || to == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "from and to query parameters are required"})
		return
	}

	dates, err := h.Svc.ListOccurrences(c.Request.Context(), serviceID, from, to)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"serviceId": serviceID, "dates": dates})
}

// ListSlotRemainingHandler returns each time-slot of a schedule with its
// remaining capacity on one date.
func (h *AvailabilityHandler) ListSlotRemainingHandler(c *gin.Context) {
	scheduleID := c.Param("scheduleID")
	date := c.Param("date")

	slots, err := h.Svc.ListSlotRemaining(c.Request.Context(), scheduleID, date)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"scheduleId": scheduleID, "date": date, "slots": slots})
}
