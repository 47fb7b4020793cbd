// Package appointment owns the appointment lifecycle state machine. The
// manager is the sole authority on status: every transition is an optimistic
// compare-and-set against the stored status, so stale clients and racing
// sweeps lose cleanly with ErrInvalidTransition.
package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	appointmentRepo "parishly/database/repository/appointment"
	ledgerRepo "parishly/database/repository/ledger"
	scheduleRepo "parishly/database/repository/schedule"
	"parishly/models"
	"parishly/services/notification"
	"parishly/services/recurrence"
	"parishly/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CreateInput is a booking request from the presentation layer.
type CreateInput struct {
	UserID     string `json:"userId" binding:"required"`
	ScheduleID string `json:"scheduleId" binding:"required"`
	TimeSlotID string `json:"timeSlotId" binding:"required"`
	Date       string `json:"date" binding:"required"` // "2006-01-02"
	Notes      string `json:"notes,omitempty"`
}

// Service drives appointment creation, approval, rejection, cancellation,
// completion and the pending-expiry sweep.
type Service struct {
	Appointments appointmentRepo.Repository
	Schedules    scheduleRepo.Repository
	Ledger       ledgerRepo.Ledger
	Notifier     notification.Emitter
	Logger       *zap.Logger
	PendingTTL   time.Duration    // pending appointments lapse after this
	Now          func() time.Time // injectable clock
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// Create validates the target slot against the schedule's recurrence and
// validity window, reserves one unit of capacity, and persists a Pending
// appointment holding that reservation.
func (s *Service) Create(ctx context.Context, input CreateInput) (*models.Appointment, error) {
	schedule, err := s.Schedules.GetByID(ctx, input.ScheduleID)
	if err != nil {
		return nil, err
	}
	slot := schedule.SlotByID(input.TimeSlotID)
	if slot == nil {
		return nil, fmt.Errorf("%w: slot %s on schedule %s", models.ErrTimeSlotNotFound, input.TimeSlotID, schedule.ID)
	}

	day, err := utils.ParseDate(input.Date)
	if err != nil {
		return nil, err
	}
	if !day.After(utils.Midnight(s.now())) {
		return nil, fmt.Errorf("%w: %s", models.ErrPastOccurrence, input.Date)
	}
	if !OccurrenceAllowed(schedule, day) {
		return nil, fmt.Errorf("%w: %s on schedule %s", models.ErrNotAnOccurrence, input.Date, schedule.ID)
	}

	key := models.SlotKey{ScheduleID: schedule.ID, TimeSlotID: slot.ID, Date: input.Date}
	reservation, err := s.Ledger.TryReserve(ctx, key, schedule.SlotCapacity)
	if errors.Is(err, models.ErrSlotFull) {
		return nil, fmt.Errorf("%w: %s-%s on %s", models.ErrSlotUnavailable,
			utils.MinutesToClock(slot.Start), utils.MinutesToClock(slot.End), input.Date)
	}
	if err != nil {
		return nil, err
	}

	appointment := &models.Appointment{
		ID:             uuid.New().String(),
		UserID:         input.UserID,
		ServiceID:      schedule.ServiceID,
		SubServiceID:   schedule.SubServiceID,
		ScheduleID:     schedule.ID,
		TimeSlotID:     slot.ID,
		OccurrenceDate: input.Date,
		Status:         models.StatusPending,
		ReservationID:  reservation.ID,
		Notes:          input.Notes,
		CreatedAt:      s.now(),
		UpdatedAt:      s.now(),
	}
	if err := s.Appointments.Create(ctx, appointment); err != nil {
		// Hand the unit back; the reservation must not outlive a failed insert.
		if relErr := s.Ledger.Release(ctx, reservation.ID); relErr != nil {
			s.Logger.Error("failed to release reservation after insert failure",
				zap.String("reservationId", reservation.ID), zap.Error(relErr))
		}
		return nil, err
	}

	s.Notifier.Emit(ctx, models.AppointmentEvent{
		Type:           models.EventAppointmentCreated,
		AppointmentID:  appointment.ID,
		UserID:         appointment.UserID,
		ServiceID:      appointment.ServiceID,
		ServiceName:    schedule.ServiceName,
		OccurrenceDate: appointment.OccurrenceDate,
		NewStatus:      models.StatusPending,
	})

	s.Logger.Info("appointment created",
		zap.String("appointmentId", appointment.ID),
		zap.String("scheduleId", schedule.ID),
		zap.String("date", input.Date),
	)
	return appointment, nil
}

// Approve moves Pending to Approved. The reservation persists: it now backs a
// committed booking instead of a soft hold.
func (s *Service) Approve(ctx context.Context, appointmentID string) error {
	return s.transition(ctx, appointmentID, models.StatusPending, models.StatusApproved, false)
}

// Reject moves Pending to Rejected and returns the held capacity to the pool.
func (s *Service) Reject(ctx context.Context, appointmentID string) error {
	return s.transition(ctx, appointmentID, models.StatusPending, models.StatusRejected, true)
}

// Complete moves Approved to Completed. The slot stays spent: the service
// was rendered, so the unit is never returned to the pool.
func (s *Service) Complete(ctx context.Context, appointmentID string) error {
	return s.transition(ctx, appointmentID, models.StatusApproved, models.StatusCompleted, false)
}

// Cancel moves a Pending or Approved appointment to Cancelled and releases
// its reservation synchronously before returning.
func (s *Service) Cancel(ctx context.Context, appointmentID string) error {
	appointment, err := s.Appointments.GetByID(ctx, appointmentID)
	if err != nil {
		return err
	}
	if !appointment.Status.HoldsReservation() {
		return fmt.Errorf("%w: cannot cancel from %s", models.ErrInvalidTransition, appointment.Status)
	}
	return s.transition(ctx, appointmentID, appointment.Status, models.StatusCancelled, true)
}

// ExpirePending cancels Pending appointments older than PendingTTL. The pass
// is idempotent and safe to run concurrently: the status CAS decides every
// race, and losing to an in-flight Approve just skips that appointment.
func (s *Service) ExpirePending(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.PendingTTL)
	stale, err := s.Appointments.ListStalePending(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	expired := 0
	for i := range stale {
		appt := &stale[i]
		err := s.Appointments.TransitionStatus(ctx, appt.ID, models.StatusPending, models.StatusCancelled)
		if errors.Is(err, models.ErrInvalidTransition) {
			continue // approved or already swept in the meantime
		}
		if err != nil {
			return expired, err
		}
		if err := s.Ledger.Release(ctx, appt.ReservationID); err != nil {
			return expired, err
		}
		s.emitStatusChange(ctx, appt, models.StatusPending, models.StatusCancelled)
		expired++
	}
	if expired > 0 {
		s.Logger.Info("expired stale pending appointments", zap.Int("count", expired))
	}
	return expired, nil
}

// ListByUser returns a user's appointments ordered by occurrence date.
func (s *Service) ListByUser(ctx context.Context, userID string) ([]models.Appointment, error) {
	return s.Appointments.ListByUser(ctx, userID)
}

func (s *Service) transition(ctx context.Context, appointmentID string, from, to models.AppointmentStatus, release bool) error {
	appointment, err := s.Appointments.GetByID(ctx, appointmentID)
	if err != nil {
		return err
	}
	if err := s.Appointments.TransitionStatus(ctx, appointmentID, from, to); err != nil {
		if errors.Is(err, models.ErrInvalidTransition) {
			return fmt.Errorf("%w: cannot move from %s to %s", models.ErrInvalidTransition, appointment.Status, to)
		}
		return err
	}
	if release {
		if err := s.Ledger.Release(ctx, appointment.ReservationID); err != nil {
			return err
		}
	}
	s.emitStatusChange(ctx, appointment, from, to)
	s.Logger.Info("appointment status changed",
		zap.String("appointmentId", appointmentID),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
	)
	return nil
}

func (s *Service) emitStatusChange(ctx context.Context, appointment *models.Appointment, from, to models.AppointmentStatus) {
	s.Notifier.Emit(ctx, models.AppointmentEvent{
		Type:           models.EventStatusChanged,
		AppointmentID:  appointment.ID,
		UserID:         appointment.UserID,
		ServiceID:      appointment.ServiceID,
		OccurrenceDate: appointment.OccurrenceDate,
		OldStatus:      from,
		NewStatus:      to,
	})
}

// OccurrenceAllowed reports whether a date is a real occurrence of the
// schedule: the recurrence rule matches and the date sits inside the
// schedule's validity window.
func OccurrenceAllowed(schedule *models.Schedule, day time.Time) bool {
	if schedule.ValidityStart != "" {
		if start, err := utils.ParseDate(schedule.ValidityStart); err == nil && day.Before(start) {
			return false
		}
	}
	if schedule.ValidityEnd != "" {
		if end, err := utils.ParseDate(schedule.ValidityEnd); err == nil && !day.Before(end) {
			return false
		}
	}
	return recurrence.Matches(schedule.Recurrence, day)
}
