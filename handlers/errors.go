package handlers

import (
	"errors"
	"net/http"

	"parishly/models"
	"parishly/utils"

	"github.com/gin-gonic/gin"
)

// respondError maps engine errors to HTTP statuses. Messages keep the
// offending slot/date or timing rule, never a bare "failed".
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrScheduleNotFound),
		errors.Is(err, models.ErrAppointmentNotFound),
		errors.Is(err, models.ErrRescheduleHoldNotFound):
		utils.JSONError(c, http.StatusNotFound, "not found", err.Error())
	case errors.Is(err, models.ErrInvalidRecurrenceRule),
		errors.Is(err, models.ErrInvalidSchedule),
		errors.Is(err, models.ErrTimeSlotNotFound),
		errors.Is(err, models.ErrNotAnOccurrence),
		errors.Is(err, models.ErrPastOccurrence),
		errors.Is(err, models.ErrSameDateReschedule):
		utils.JSONError(c, http.StatusBadRequest, "invalid request", err.Error())
	case errors.Is(err, models.ErrTooLateToReschedule):
		utils.JSONError(c, http.StatusUnprocessableEntity, "too late to reschedule", err.Error())
	case errors.Is(err, models.ErrSlotUnavailable),
		errors.Is(err, models.ErrSlotFull):
		utils.JSONError(c, http.StatusConflict, "slot unavailable", err.Error())
	case errors.Is(err, models.ErrInvalidTransition),
		errors.Is(err, models.ErrScheduleInUse):
		utils.JSONError(c, http.StatusConflict, "conflict", err.Error())
	default:
		utils.JSONError(c, http.StatusInternalServerError, "internal error", err.Error())
	}
}
