// Package reschedule coordinates moving an appointment to a new slot. A
// payment-gated move deliberately holds two reservations at once: the
// original (never touched until commit) and the target (so nobody can take
// it mid-checkout). Abandoned holds are compensated by the sweep.
package reschedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	appointmentRepo "parishly/database/repository/appointment"
	holdRepo "parishly/database/repository/hold"
	ledgerRepo "parishly/database/repository/ledger"
	scheduleRepo "parishly/database/repository/schedule"
	"parishly/models"
	"parishly/services/appointment"
	"parishly/services/notification"
	"parishly/services/payment"
	"parishly/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Outcome reports how a reschedule request ended: committed immediately, or
// suspended awaiting payment confirmation.
type Outcome struct {
	Committed bool             `json:"committed"`
	Payment   *payment.Session `json:"payment,omitempty"`
}

// Orchestrator runs the reschedule flow and its compensation.
type Orchestrator struct {
	Appointments appointmentRepo.Repository
	Schedules    scheduleRepo.Repository
	Holds        holdRepo.Repository
	Ledger       ledgerRepo.Ledger
	Payments     payment.Gateway
	Notifier     notification.Emitter
	Logger       *zap.Logger
	CutoffDays   int              // minimum lead time before the target date
	HoldTTL      time.Duration    // unconfirmed holds lapse after this
	Now          func() time.Time // injectable clock
}

func (o *Orchestrator) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now().UTC()
}

// Reschedule moves an appointment to the target slot, or suspends the move
// behind a payment session when the schedule's plan charges for it. On any
// failure the original reservation is untouched.
func (o *Orchestrator) Reschedule(ctx context.Context, appointmentID string, target models.RescheduleTarget) (*Outcome, error) {
	appt, err := o.Appointments.GetByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if !appt.Status.HoldsReservation() {
		return nil, fmt.Errorf("%w: cannot reschedule from %s", models.ErrInvalidTransition, appt.Status)
	}
	if target.Date == appt.OccurrenceDate {
		return nil, fmt.Errorf("%w: %s", models.ErrSameDateReschedule, target.Date)
	}

	targetDay, err := utils.ParseDate(target.Date)
	if err != nil {
		return nil, err
	}
	earliest := utils.Midnight(o.now()).AddDate(0, 0, o.CutoffDays)
	if !targetDay.After(earliest) {
		return nil, fmt.Errorf("%w: %s is within %d days of today", models.ErrTooLateToReschedule, target.Date, o.CutoffDays)
	}

	schedule, err := o.Schedules.GetByID(ctx, target.ScheduleID)
	if err != nil {
		return nil, err
	}
	slot := schedule.SlotByID(target.TimeSlotID)
	if slot == nil {
		return nil, fmt.Errorf("%w: slot %s on schedule %s", models.ErrTimeSlotNotFound, target.TimeSlotID, schedule.ID)
	}
	if !appointment.OccurrenceAllowed(schedule, targetDay) {
		return nil, fmt.Errorf("%w: %s on schedule %s", models.ErrNotAnOccurrence, target.Date, schedule.ID)
	}

	key := models.SlotKey{ScheduleID: schedule.ID, TimeSlotID: slot.ID, Date: target.Date}
	reservation, err := o.Ledger.TryReserve(ctx, key, schedule.SlotCapacity)
	if errors.Is(err, models.ErrSlotFull) {
		return nil, fmt.Errorf("%w: %s-%s on %s", models.ErrSlotUnavailable,
			utils.MinutesToClock(slot.Start), utils.MinutesToClock(slot.End), target.Date)
	}
	if err != nil {
		return nil, err
	}

	if !schedule.PaidReschedule {
		moved, err := o.commit(ctx, appt, target, reservation.ID)
		if err != nil {
			// Only give the target unit back when the move never applied;
			// once applied, the appointment owns that reservation.
			if !moved {
				o.releaseQuietly(ctx, reservation.ID)
			}
			return nil, err
		}
		return &Outcome{Committed: true}, nil
	}

	// Payment-gated: keep both reservations and suspend until the callback.
	holdID := uuid.New().String()
	description := fmt.Sprintf("Reschedule fee for %s", schedule.ServiceName)
	session, err := o.Payments.CreateSession(ctx, schedule.RescheduleAmount, description, holdID)
	if err != nil {
		o.releaseQuietly(ctx, reservation.ID)
		return nil, fmt.Errorf("failed to start payment for reschedule: %w", err)
	}

	hold := &models.RescheduleHold{
		ID:            holdID,
		AppointmentID: appt.ID,
		ScheduleID:    target.ScheduleID,
		TimeSlotID:    target.TimeSlotID,
		Date:          target.Date,
		ReservationID: reservation.ID,
		SessionRef:    session.Ref,
		CreatedAt:     o.now(),
	}
	if err := o.Holds.Create(ctx, hold); err != nil {
		o.releaseQuietly(ctx, reservation.ID)
		return nil, err
	}

	o.Logger.Info("reschedule suspended pending payment",
		zap.String("appointmentId", appt.ID),
		zap.String("holdId", hold.ID),
		zap.String("sessionRef", session.Ref),
	)
	return &Outcome{Payment: session}, nil
}

// Confirm finalizes a payment-gated reschedule after the provider reports
// the session paid.
func (o *Orchestrator) Confirm(ctx context.Context, sessionRef string) error {
	hold, err := o.Holds.GetBySessionRef(ctx, sessionRef)
	if err != nil {
		return err
	}
	appt, err := o.Appointments.GetByID(ctx, hold.AppointmentID)
	if err != nil {
		return err
	}
	moved, err := o.commit(ctx, appt, hold.Target(), hold.ReservationID)
	if err != nil {
		// The appointment left the active set mid-checkout; give the target
		// slot back rather than moving a dead appointment. If the move did
		// apply, the appointment owns the target reservation and it must
		// stay live.
		if !moved {
			o.releaseQuietly(ctx, hold.ReservationID)
		}
		// The hold must not survive either way: once the move applied, a
		// later sweep of it would release the appointment's own reservation.
		if delErr := o.Holds.Delete(ctx, hold.ID); delErr != nil {
			o.Logger.Error("failed to delete reschedule hold", zap.String("holdId", hold.ID), zap.Error(delErr))
		}
		return err
	}
	return o.Holds.Delete(ctx, hold.ID)
}

// Abort releases a payment-gated hold after a failed or cancelled payment.
// The appointment keeps its original slot. Unknown sessions are a no-op so
// retried callbacks stay safe.
func (o *Orchestrator) Abort(ctx context.Context, sessionRef string) error {
	hold, err := o.Holds.GetBySessionRef(ctx, sessionRef)
	if errors.Is(err, models.ErrRescheduleHoldNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := o.Ledger.Release(ctx, hold.ReservationID); err != nil {
		return err
	}
	return o.Holds.Delete(ctx, hold.ID)
}

// ReleaseStaleHolds compensates abandoned payment-gated reschedules: holds
// older than HoldTTL lose their target reservation and disappear, leaving
// the appointment exactly as it was.
func (o *Orchestrator) ReleaseStaleHolds(ctx context.Context) (int, error) {
	stale, err := o.Holds.ListStale(ctx, o.now().Add(-o.HoldTTL))
	if err != nil {
		return 0, err
	}

	released := 0
	for i := range stale {
		hold := &stale[i]
		if err := o.Ledger.Release(ctx, hold.ReservationID); err != nil {
			return released, err
		}
		if err := o.Holds.Delete(ctx, hold.ID); err != nil && !errors.Is(err, models.ErrRescheduleHoldNotFound) {
			return released, err
		}
		released++
	}
	if released > 0 {
		o.Logger.Info("released stale reschedule holds", zap.Int("count", released))
	}
	return released, nil
}

// commit swaps the appointment onto the target slot and releases the old
// reservation. Status is never touched. moved reports whether the swap
// applied: callers may compensate the target reservation only when it did
// not, because after the swap that reservation belongs to the appointment.
func (o *Orchestrator) commit(ctx context.Context, appt *models.Appointment, target models.RescheduleTarget, newReservationID string) (moved bool, err error) {
	if err := o.Appointments.ApplyReschedule(ctx, appt.ID, target, newReservationID); err != nil {
		if errors.Is(err, models.ErrInvalidTransition) {
			return false, fmt.Errorf("%w: appointment %s is no longer active", models.ErrInvalidTransition, appt.ID)
		}
		return false, err
	}
	if err := o.Ledger.Release(ctx, appt.ReservationID); err != nil {
		// The move is committed; the old unit stays consumed until the
		// release can be retried. Never unwind the target here.
		o.Logger.Error("failed to release old reservation after reschedule",
			zap.String("appointmentId", appt.ID),
			zap.String("reservationId", appt.ReservationID),
			zap.Error(err),
		)
		return true, err
	}

	o.Notifier.Emit(ctx, models.AppointmentEvent{
		Type:           models.EventRescheduled,
		AppointmentID:  appt.ID,
		UserID:         appt.UserID,
		ServiceID:      appt.ServiceID,
		OccurrenceDate: target.Date,
		OldDate:        appt.OccurrenceDate,
	})
	o.Logger.Info("appointment rescheduled",
		zap.String("appointmentId", appt.ID),
		zap.String("from", appt.OccurrenceDate),
		zap.String("to", target.Date),
	)
	return true, nil
}

func (o *Orchestrator) releaseQuietly(ctx context.Context, reservationID string) {
	if err := o.Ledger.Release(ctx, reservationID); err != nil {
		o.Logger.Error("failed to release reservation", zap.String("reservationId", reservationID), zap.Error(err))
	}
}
