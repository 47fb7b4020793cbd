package appointmentRepo

import (
	"context"
	"time"

	"parishly/models"
)

// Repository persists appointments. Appointments are never hard-deleted;
// all lifecycle movement goes through TransitionStatus so the status check
// and the write commit together.
type Repository interface {
	Create(ctx context.Context, appointment *models.Appointment) error
	GetByID(ctx context.Context, id string) (*models.Appointment, error)
	ListByUser(ctx context.Context, userID string) ([]models.Appointment, error)

	// TransitionStatus performs an optimistic status CAS: the update only
	// applies while the stored status still equals from. A lost race (or a
	// stale client) surfaces as models.ErrInvalidTransition.
	TransitionStatus(ctx context.Context, id string, from, to models.AppointmentStatus) error

	// ApplyReschedule moves an appointment to a new slot, swapping in the
	// reservation that backs the new slot. Status is untouched.
	ApplyReschedule(ctx context.Context, id string, target models.RescheduleTarget, reservationID string) error

	// ListStalePending returns Pending appointments created before the
	// cutoff, for the expiry sweep.
	ListStalePending(ctx context.Context, cutoff time.Time) ([]models.Appointment, error)

	// CountActiveOnSchedule counts Pending/Approved appointments for a
	// schedule on or after the given date. Guards schedule deletion.
	CountActiveOnSchedule(ctx context.Context, scheduleID, fromDate string) (int64, error)

	// HasActiveBefore reports whether any Pending/Approved appointment
	// still references an occurrence before the cutoff date. Gates counter
	// garbage collection.
	HasActiveBefore(ctx context.Context, cutoffDate string) (bool, error)
}
