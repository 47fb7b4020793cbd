package handlers

import (
	"net/http"

	"parishly/models"
	"parishly/services/reschedule"

	"github.com/gin-gonic/gin"
)

// RescheduleHandler exposes the reschedule flow and its payment callback.
type RescheduleHandler struct {
	Orc *reschedule.Orchestrator
}

func NewRescheduleHandler(orc *reschedule.Orchestrator) *RescheduleHandler {
	return &RescheduleHandler{Orc: orc}
}

// RescheduleAppointmentHandler moves an appointment to a new slot. When the
// plan charges for the move, the response carries a checkout session instead
// of a committed result.
func (h *RescheduleHandler) RescheduleAppointmentHandler(c *gin.Context) {
	var target models.RescheduleTarget
	if err := c.ShouldBindJSON(&target); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}

	outcome, err := h.Orc.Reschedule(c.Request.Context(), c.Param("appointmentID"), target)
	if err != nil {
		respondError(c, err)
		return
	}
	if outcome.Committed {
		c.JSON(http.StatusOK, outcome)
		return
	}
	c.JSON(http.StatusAccepted, outcome)
}

// PaymentCallbackHandler receives the asynchronous payment result for a
// suspended reschedule, keyed by sessionRef.
func (h *RescheduleHandler) PaymentCallbackHandler(c *gin.Context) {
	var input struct {
		SessionRef string `json:"sessionRef" binding:"required"`
		Status     string `json:"status" binding:"required"` // "paid" or "failed"
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}

	var err error
	switch input.Status {
	case "paid":
		err = h.Orc.Confirm(c.Request.Context(), input.SessionRef)
	case "failed":
		err = h.Orc.Abort(c.Request.Context(), input.SessionRef)
	default:
		// An unrecognized status must not release a hold whose checkout may
		// still be open.
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": "status must be \"paid\" or \"failed\""})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessionRef": input.SessionRef, "status": input.Status})
}
