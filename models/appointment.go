package models

import "time"

// AppointmentStatus is the lifecycle state of an appointment. Transitions are
// one-way: Pending to Approved/Rejected/Cancelled, Approved to Completed/Cancelled.
type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "Pending"
	StatusApproved  AppointmentStatus = "Approved"
	StatusRejected  AppointmentStatus = "Rejected"
	StatusCancelled AppointmentStatus = "Cancelled"
	StatusCompleted AppointmentStatus = "Completed"
)

// HoldsReservation reports whether an appointment in this status still owns
// a capacity reservation.
func (s AppointmentStatus) HoldsReservation() bool {
	return s == StatusPending || s == StatusApproved
}

// Appointment is the booked unit. It holds exactly one capacity reservation
// while Pending or Approved; the reservation is released exactly once on the
// transition out of that set (Completed keeps the slot spent).
type Appointment struct {
	ID             string            `bson:"id" json:"id"`
	UserID         string            `bson:"userId" json:"userId"`
	ServiceID      string            `bson:"serviceId" json:"serviceId"`
	SubServiceID   string            `bson:"subServiceId,omitempty" json:"subServiceId,omitempty"`
	ScheduleID     string            `bson:"scheduleId" json:"scheduleId"`
	TimeSlotID     string            `bson:"timeSlotId" json:"timeSlotId"`
	OccurrenceDate string            `bson:"occurrenceDate" json:"occurrenceDate"` // "2006-01-02"
	Status         AppointmentStatus `bson:"status" json:"status"`
	ReservationID  string            `bson:"reservationId,omitempty" json:"-"`
	Notes          string            `bson:"notes,omitempty" json:"notes,omitempty"`
	CreatedAt      time.Time         `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time         `bson:"updatedAt" json:"updatedAt"`
}
