package models

import "time"

// RescheduleTarget is where an appointment should move to.
type RescheduleTarget struct {
	ScheduleID string `json:"targetScheduleId" binding:"required"`
	TimeSlotID string `json:"targetTimeSlotId" binding:"required"`
	Date       string `json:"targetDate" binding:"required"` // "2006-01-02"
}

// RescheduleHold records an in-flight payment-gated reschedule: the target
// slot's reservation is held alongside the appointment's original one until
// the payment callback commits or the sweep releases it.
type RescheduleHold struct {
	ID            string    `bson:"id" json:"id"`
	AppointmentID string    `bson:"appointmentId" json:"appointmentId"`
	ScheduleID    string    `bson:"scheduleId" json:"scheduleId"`
	TimeSlotID    string    `bson:"timeSlotId" json:"timeSlotId"`
	Date          string    `bson:"date" json:"date"`
	ReservationID string    `bson:"reservationId" json:"reservationId"` // the held target reservation
	SessionRef    string    `bson:"sessionRef" json:"sessionRef"`       // payment session reference
	CreatedAt     time.Time `bson:"createdAt" json:"createdAt"`
}

// Target returns the hold's destination as a RescheduleTarget.
func (h *RescheduleHold) Target() RescheduleTarget {
	return RescheduleTarget{ScheduleID: h.ScheduleID, TimeSlotID: h.TimeSlotID, Date: h.Date}
}
