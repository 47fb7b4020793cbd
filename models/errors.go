package models

import "errors"

// Authoring-time errors.
var (
	ErrInvalidRecurrenceRule = errors.New("invalid recurrence rule")
	ErrInvalidSchedule       = errors.New("invalid schedule definition")
	ErrScheduleInUse         = errors.New("schedule has active appointments on future dates")
)

// Booking-time errors. SlotFull is the ledger-level signal; SlotUnavailable
// is what callers of the lifecycle manager see.
var (
	ErrSlotFull        = errors.New("slot is fully booked")
	ErrSlotUnavailable = errors.New("requested slot is unavailable")
)

// Lifecycle and reschedule errors.
var (
	ErrInvalidTransition      = errors.New("invalid appointment status transition")
	ErrSameDateReschedule     = errors.New("reschedule target date matches the current date")
	ErrTooLateToReschedule    = errors.New("reschedule target is within the cutoff window")
	ErrNotAnOccurrence        = errors.New("date is not an occurrence of the schedule")
	ErrPastOccurrence         = errors.New("occurrence date is not in the future")
	ErrAppointmentNotFound    = errors.New("appointment not found")
	ErrScheduleNotFound       = errors.New("schedule not found")
	ErrTimeSlotNotFound       = errors.New("time slot does not belong to the schedule")
	ErrRescheduleHoldNotFound = errors.New("reschedule hold not found")
)

// ErrLedgerCorruption is a fatal invariant breach: a counter observed
// negative or over capacity. It is logged loudly and never auto-repaired.
var ErrLedgerCorruption = errors.New("capacity ledger corruption detected")
