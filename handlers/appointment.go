package handlers

import (
	"context"
	"net/http"

	"parishly/services/appointment"

	"github.com/gin-gonic/gin"
)

// AppointmentHandler exposes the appointment lifecycle.
type AppointmentHandler struct {
	Svc *appointment.Service
}

func NewAppointmentHandler(svc *appointment.Service) *AppointmentHandler {
	return &AppointmentHandler{Svc: svc}
}

// CreateAppointmentHandler books a slot and creates a Pending appointment.
func (h *AppointmentHandler) CreateAppointmentHandler(c *gin.Context) {
	var input appointment.CreateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}

	appt, err := h.Svc.Create(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, appt)
}

// ApproveAppointmentHandler confirms a pending appointment.
func (h *AppointmentHandler) ApproveAppointmentHandler(c *gin.Context) {
	h.applyTransition(c, h.Svc.Approve)
}

// RejectAppointmentHandler declines a pending appointment and frees its slot.
func (h *AppointmentHandler) RejectAppointmentHandler(c *gin.Context) {
	h.applyTransition(c, h.Svc.Reject)
}

// CancelAppointmentHandler cancels a pending or approved appointment.
func (h *AppointmentHandler) CancelAppointmentHandler(c *gin.Context) {
	h.applyTransition(c, h.Svc.Cancel)
}

// CompleteAppointmentHandler marks an approved appointment as rendered.
func (h *AppointmentHandler) CompleteAppointmentHandler(c *gin.Context) {
	h.applyTransition(c, h.Svc.Complete)
}

// ListUserAppointmentsHandler returns a user's appointments.
func (h *AppointmentHandler) ListUserAppointmentsHandler(c *gin.Context) {
	appointments, err := h.Svc.ListByUser(c.Request.Context(), c.Param("userID"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"appointments": appointments})
}

func (h *AppointmentHandler) applyTransition(c *gin.Context, fn func(ctx context.Context, id string) error) {
	id := c.Param("appointmentID")
	if err := fn(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"appointmentId": id})
}
