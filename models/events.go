package models

import "time"

// AppointmentEventType enumerates the events the engine emits to the
// notification collaborator. Delivery and formatting happen elsewhere.
type AppointmentEventType string

const (
	EventAppointmentCreated AppointmentEventType = "AppointmentCreated"
	EventStatusChanged      AppointmentEventType = "StatusChanged"
	EventRescheduled        AppointmentEventType = "Rescheduled"
)

// AppointmentEvent is the payload handed to the notification queue.
type AppointmentEvent struct {
	Type           AppointmentEventType `json:"type"`
	AppointmentID  string               `json:"appointmentId"`
	UserID         string               `json:"userId"`
	ServiceID      string               `json:"serviceId"`
	ServiceName    string               `json:"serviceName,omitempty"`
	OccurrenceDate string               `json:"occurrenceDate"`
	OldStatus      AppointmentStatus    `json:"oldStatus,omitempty"`
	NewStatus      AppointmentStatus    `json:"newStatus,omitempty"`
	OldDate        string               `json:"oldDate,omitempty"` // set for Rescheduled
	EmittedAt      time.Time            `json:"emittedAt"`
}
