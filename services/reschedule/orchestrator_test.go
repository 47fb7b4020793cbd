package reschedule

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	ledgerRepo "parishly/database/repository/ledger"
	"parishly/models"
	"parishly/services/payment"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeAppointmentRepo struct {
	mu   sync.Mutex
	byID map[string]*models.Appointment
}

func newFakeAppointmentRepo() *fakeAppointmentRepo {
	return &fakeAppointmentRepo{byID: make(map[string]*models.Appointment)}
}

func (r *fakeAppointmentRepo) Create(_ context.Context, appointment *models.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *appointment
	r.byID[appointment.ID] = &cp
	return nil
}

func (r *fakeAppointmentRepo) GetByID(_ context.Context, id string) (*models.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	appt, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrAppointmentNotFound, id)
	}
	cp := *appt
	return &cp, nil
}

func (r *fakeAppointmentRepo) ListByUser(_ context.Context, userID string) ([]models.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Appointment
	for _, appt := range r.byID {
		if appt.UserID == userID {
			out = append(out, *appt)
		}
	}
	return out, nil
}

func (r *fakeAppointmentRepo) TransitionStatus(_ context.Context, id string, from, to models.AppointmentStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	appt, ok := r.byID[id]
	if !ok || appt.Status != from {
		return models.ErrInvalidTransition
	}
	appt.Status = to
	return nil
}

func (r *fakeAppointmentRepo) ApplyReschedule(_ context.Context, id string, target models.RescheduleTarget, reservationID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	appt, ok := r.byID[id]
	if !ok || !appt.Status.HoldsReservation() {
		return models.ErrInvalidTransition
	}
	appt.ScheduleID = target.ScheduleID
	appt.TimeSlotID = target.TimeSlotID
	appt.OccurrenceDate = target.Date
	appt.ReservationID = reservationID
	return nil
}

func (r *fakeAppointmentRepo) ListStalePending(_ context.Context, cutoff time.Time) ([]models.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Appointment
	for _, appt := range r.byID {
		if appt.Status == models.StatusPending && appt.CreatedAt.Before(cutoff) {
			out = append(out, *appt)
		}
	}
	return out, nil
}

func (r *fakeAppointmentRepo) CountActiveOnSchedule(_ context.Context, scheduleID, fromDate string) (int64, error) {
	return 0, nil
}

func (r *fakeAppointmentRepo) HasActiveBefore(_ context.Context, cutoffDate string) (bool, error) {
	return false, nil
}

type fakeScheduleRepo struct {
	byID map[string]*models.Schedule
}

func newFakeScheduleRepo(schedules ...*models.Schedule) *fakeScheduleRepo {
	r := &fakeScheduleRepo{byID: make(map[string]*models.Schedule)}
	for _, s := range schedules {
		r.byID[s.ID] = s
	}
	return r
}

func (r *fakeScheduleRepo) Create(_ context.Context, schedule *models.Schedule) error {
	r.byID[schedule.ID] = schedule
	return nil
}

func (r *fakeScheduleRepo) GetByID(_ context.Context, id string) (*models.Schedule, error) {
	s, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrScheduleNotFound, id)
	}
	cp := *s
	return &cp, nil
}

func (r *fakeScheduleRepo) ListByService(_ context.Context, serviceID string) ([]models.Schedule, error) {
	var out []models.Schedule
	for _, s := range r.byID {
		if s.ServiceID == serviceID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (r *fakeScheduleRepo) Update(_ context.Context, schedule *models.Schedule) error {
	r.byID[schedule.ID] = schedule
	return nil
}

func (r *fakeScheduleRepo) Delete(_ context.Context, id string) error {
	delete(r.byID, id)
	return nil
}

type fakeHoldRepo struct {
	mu   sync.Mutex
	byID map[string]*models.RescheduleHold
}

func newFakeHoldRepo() *fakeHoldRepo {
	return &fakeHoldRepo{byID: make(map[string]*models.RescheduleHold)}
}

func (r *fakeHoldRepo) Create(_ context.Context, hold *models.RescheduleHold) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *hold
	r.byID[hold.ID] = &cp
	return nil
}

func (r *fakeHoldRepo) GetBySessionRef(_ context.Context, sessionRef string) (*models.RescheduleHold, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, hold := range r.byID {
		if hold.SessionRef == sessionRef {
			cp := *hold
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("%w: session %s", models.ErrRescheduleHoldNotFound, sessionRef)
}

func (r *fakeHoldRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return fmt.Errorf("%w: %s", models.ErrRescheduleHoldNotFound, id)
	}
	delete(r.byID, id)
	return nil
}

func (r *fakeHoldRepo) ListStale(_ context.Context, cutoff time.Time) ([]models.RescheduleHold, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.RescheduleHold
	for _, hold := range r.byID {
		if hold.CreatedAt.Before(cutoff) {
			out = append(out, *hold)
		}
	}
	return out, nil
}

func (r *fakeHoldRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}

type fakeGateway struct {
	sessions   int
	lastAmount int64
	failNext   bool
}

func (g *fakeGateway) CreateSession(_ context.Context, amount int64, description, reference string) (*payment.Session, error) {
	if g.failNext {
		return nil, fmt.Errorf("payment provider unavailable")
	}
	g.sessions++
	g.lastAmount = amount
	return &payment.Session{
		Ref:         "sess-" + reference,
		CheckoutURL: "https://pay.test/c/" + reference,
	}, nil
}

type fakeEmitter struct {
	mu     sync.Mutex
	events []models.AppointmentEvent
}

func (e *fakeEmitter) Emit(_ context.Context, event models.AppointmentEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, event)
}

// Saturday June 1st 2024.
var testNow = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

type fixture struct {
	orc          *Orchestrator
	appointments *fakeAppointmentRepo
	holds        *fakeHoldRepo
	ledger       *ledgerRepo.MemoryLedger
	gateway      *fakeGateway
	emitter      *fakeEmitter
	appt         *models.Appointment
	origKey      models.SlotKey
}

// newFixture books an approved Sunday appointment on 2024-06-02 and offers a
// Wednesday schedule as the reschedule target.
func newFixture(t *testing.T, paid bool) *fixture {
	t.Helper()
	ctx := context.Background()
	logger := zaptest.NewLogger(t)

	sunday := &models.Schedule{
		ID:          "sched-sun",
		ServiceID:   "svc-1",
		ServiceName: "Counseling",
		Recurrence: models.RecurrenceRule{
			Type: models.RecurrenceWeekly, AnchorDate: "2024-01-07", DayOfWeek: 0,
		},
		TimeSlots:    []models.TimeSlot{{ID: "ts-sun", Start: 540, End: 600}},
		SlotCapacity: 1,
	}
	wednesday := &models.Schedule{
		ID:          "sched-wed",
		ServiceID:   "svc-1",
		ServiceName: "Counseling",
		Recurrence: models.RecurrenceRule{
			Type: models.RecurrenceWeekly, AnchorDate: "2024-01-03", DayOfWeek: 3,
		},
		TimeSlots:        []models.TimeSlot{{ID: "ts-wed", Start: 840, End: 900}},
		SlotCapacity:     1,
		PaidReschedule:   paid,
		RescheduleAmount: 1500,
	}

	appointments := newFakeAppointmentRepo()
	holds := newFakeHoldRepo()
	ledger := ledgerRepo.NewMemoryLedger(logger)
	gateway := &fakeGateway{}
	emitter := &fakeEmitter{}

	origKey := models.SlotKey{ScheduleID: "sched-sun", TimeSlotID: "ts-sun", Date: "2024-06-02"}
	reservation, err := ledger.TryReserve(ctx, origKey, sunday.SlotCapacity)
	require.NoError(t, err)

	appt := &models.Appointment{
		ID:             "appt-1",
		UserID:         "user-1",
		ServiceID:      "svc-1",
		ScheduleID:     sunday.ID,
		TimeSlotID:     "ts-sun",
		OccurrenceDate: "2024-06-02",
		Status:         models.StatusApproved,
		ReservationID:  reservation.ID,
		CreatedAt:      testNow,
	}
	require.NoError(t, appointments.Create(ctx, appt))

	orc := &Orchestrator{
		Appointments: appointments,
		Schedules:    newFakeScheduleRepo(sunday, wednesday),
		Holds:        holds,
		Ledger:       ledger,
		Payments:     gateway,
		Notifier:     emitter,
		Logger:       logger,
		CutoffDays:   3,
		HoldTTL:      72 * time.Hour,
		Now:          func() time.Time { return testNow },
	}
	return &fixture{
		orc:          orc,
		appointments: appointments,
		holds:        holds,
		ledger:       ledger,
		gateway:      gateway,
		emitter:      emitter,
		appt:         appt,
		origKey:      origKey,
	}
}

func wednesdayTarget(date string) models.RescheduleTarget {
	return models.RescheduleTarget{ScheduleID: "sched-wed", TimeSlotID: "ts-wed", Date: date}
}

func (f *fixture) remaining(t *testing.T, key models.SlotKey) int {
	t.Helper()
	n, err := f.ledger.Remaining(context.Background(), key, 1)
	require.NoError(t, err)
	return n
}

func TestRescheduleRejectsSameDate(t *testing.T) {
	f := newFixture(t, false)

	target := models.RescheduleTarget{ScheduleID: "sched-sun", TimeSlotID: "ts-sun", Date: "2024-06-02"}
	_, err := f.orc.Reschedule(context.Background(), "appt-1", target)
	assert.ErrorIs(t, err, models.ErrSameDateReschedule)
}

func TestRescheduleEnforcesCutoff(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	// Two days out: inside the three-day window.
	_, err := f.orc.Reschedule(ctx, "appt-1", wednesdayTarget("2024-06-03"))
	assert.ErrorIs(t, err, models.ErrTooLateToReschedule)

	// Exactly three days out is still too late; the window is strict.
	_, err = f.orc.Reschedule(ctx, "appt-1", wednesdayTarget("2024-06-04"))
	assert.ErrorIs(t, err, models.ErrTooLateToReschedule)

	// Four days out clears the cutoff.
	outcome, err := f.orc.Reschedule(ctx, "appt-1", wednesdayTarget("2024-06-05"))
	require.NoError(t, err)
	assert.True(t, outcome.Committed)
}

func TestRescheduleRejectsNonOccurrenceTarget(t *testing.T) {
	f := newFixture(t, false)

	// 2024-06-06 is a Thursday, not on the Wednesday schedule.
	_, err := f.orc.Reschedule(context.Background(), "appt-1", wednesdayTarget("2024-06-06"))
	assert.ErrorIs(t, err, models.ErrNotAnOccurrence)

	// The original reservation was never touched.
	assert.Equal(t, 0, f.remaining(t, f.origKey))
}

func TestRescheduleRejectsInactiveAppointment(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	require.NoError(t, f.appointments.TransitionStatus(ctx, "appt-1", models.StatusApproved, models.StatusCompleted))

	_, err := f.orc.Reschedule(ctx, "appt-1", wednesdayTarget("2024-06-05"))
	assert.ErrorIs(t, err, models.ErrInvalidTransition)
}

func TestRescheduleFailsWhenTargetFull(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	// Another booking already owns the target's only unit.
	targetKey := models.SlotKey{ScheduleID: "sched-wed", TimeSlotID: "ts-wed", Date: "2024-06-05"}
	_, err := f.ledger.TryReserve(ctx, targetKey, 1)
	require.NoError(t, err)

	_, err = f.orc.Reschedule(ctx, "appt-1", wednesdayTarget("2024-06-05"))
	assert.ErrorIs(t, err, models.ErrSlotUnavailable)
	assert.Equal(t, 0, f.remaining(t, f.origKey), "original reservation untouched")
}

func TestFreeRescheduleCommitsImmediately(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	outcome, err := f.orc.Reschedule(ctx, "appt-1", wednesdayTarget("2024-06-05"))
	require.NoError(t, err)
	assert.True(t, outcome.Committed)
	assert.Nil(t, outcome.Payment)

	moved, err := f.appointments.GetByID(ctx, "appt-1")
	require.NoError(t, err)
	assert.Equal(t, "sched-wed", moved.ScheduleID)
	assert.Equal(t, "2024-06-05", moved.OccurrenceDate)
	assert.Equal(t, models.StatusApproved, moved.Status, "status survives the move")

	// Old unit freed, new unit held.
	assert.Equal(t, 1, f.remaining(t, f.origKey))
	targetKey := models.SlotKey{ScheduleID: "sched-wed", TimeSlotID: "ts-wed", Date: "2024-06-05"}
	assert.Equal(t, 0, f.remaining(t, targetKey))

	require.Len(t, f.emitter.events, 1)
	assert.Equal(t, models.EventRescheduled, f.emitter.events[0].Type)
	assert.Equal(t, "2024-06-02", f.emitter.events[0].OldDate)
	assert.Equal(t, "2024-06-05", f.emitter.events[0].OccurrenceDate)
}

func TestPaidRescheduleSuspendsOnPayment(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	outcome, err := f.orc.Reschedule(ctx, "appt-1", wednesdayTarget("2024-06-05"))
	require.NoError(t, err)
	assert.False(t, outcome.Committed)
	require.NotNil(t, outcome.Payment)
	assert.NotEmpty(t, outcome.Payment.CheckoutURL)
	assert.Equal(t, int64(1500), f.gateway.lastAmount)
	assert.Equal(t, 1, f.gateway.sessions)

	// Both reservations are held while checkout is open.
	assert.Equal(t, 0, f.remaining(t, f.origKey))
	targetKey := models.SlotKey{ScheduleID: "sched-wed", TimeSlotID: "ts-wed", Date: "2024-06-05"}
	assert.Equal(t, 0, f.remaining(t, targetKey))

	// The appointment itself has not moved.
	appt, err := f.appointments.GetByID(ctx, "appt-1")
	require.NoError(t, err)
	assert.Equal(t, "2024-06-02", appt.OccurrenceDate)
	assert.Equal(t, 1, f.holds.count())
}

func TestPaidRescheduleReleasesTargetWhenGatewayFails(t *testing.T) {
	f := newFixture(t, true)
	f.gateway.failNext = true

	_, err := f.orc.Reschedule(context.Background(), "appt-1", wednesdayTarget("2024-06-05"))
	require.Error(t, err)

	targetKey := models.SlotKey{ScheduleID: "sched-wed", TimeSlotID: "ts-wed", Date: "2024-06-05"}
	assert.Equal(t, 1, f.remaining(t, targetKey), "target unit returned")
	assert.Equal(t, 0, f.remaining(t, f.origKey), "original reservation untouched")
	assert.Zero(t, f.holds.count())
}

func TestConfirmCommitsPaidReschedule(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	outcome, err := f.orc.Reschedule(ctx, "appt-1", wednesdayTarget("2024-06-05"))
	require.NoError(t, err)
	require.NotNil(t, outcome.Payment)

	require.NoError(t, f.orc.Confirm(ctx, outcome.Payment.Ref))

	moved, err := f.appointments.GetByID(ctx, "appt-1")
	require.NoError(t, err)
	assert.Equal(t, "2024-06-05", moved.OccurrenceDate)
	assert.Equal(t, 1, f.remaining(t, f.origKey))
	assert.Zero(t, f.holds.count())
}

func TestAbortKeepsOriginalSlot(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	outcome, err := f.orc.Reschedule(ctx, "appt-1", wednesdayTarget("2024-06-05"))
	require.NoError(t, err)

	require.NoError(t, f.orc.Abort(ctx, outcome.Payment.Ref))

	appt, err := f.appointments.GetByID(ctx, "appt-1")
	require.NoError(t, err)
	assert.Equal(t, "2024-06-02", appt.OccurrenceDate)
	assert.Equal(t, 0, f.remaining(t, f.origKey), "original still held")
	targetKey := models.SlotKey{ScheduleID: "sched-wed", TimeSlotID: "ts-wed", Date: "2024-06-05"}
	assert.Equal(t, 1, f.remaining(t, targetKey), "target returned")
	assert.Zero(t, f.holds.count())

	// A retried callback for the same session is a no-op.
	assert.NoError(t, f.orc.Abort(ctx, outcome.Payment.Ref))
}

// losingApplyRepo simulates an appointment leaving the active set between the
// orchestrator's status read and the move, so every ApplyReschedule loses.
type losingApplyRepo struct {
	*fakeAppointmentRepo
}

func (r *losingApplyRepo) ApplyReschedule(context.Context, string, models.RescheduleTarget, string) error {
	return models.ErrInvalidTransition
}

// flakyReleaseLedger fails the first release of one reservation, as a
// transient storage error would.
type flakyReleaseLedger struct {
	*ledgerRepo.MemoryLedger
	failID string
	failed bool
}

func (l *flakyReleaseLedger) Release(ctx context.Context, reservationID string) error {
	if reservationID == l.failID && !l.failed {
		l.failed = true
		return fmt.Errorf("transient storage error")
	}
	return l.MemoryLedger.Release(ctx, reservationID)
}

func TestFreeRescheduleReleasesTargetWhenMoveLoses(t *testing.T) {
	f := newFixture(t, false)
	f.orc.Appointments = &losingApplyRepo{f.appointments}

	_, err := f.orc.Reschedule(context.Background(), "appt-1", wednesdayTarget("2024-06-05"))
	assert.ErrorIs(t, err, models.ErrInvalidTransition)

	// The fresh target reservation must not outlive the failed move; there is
	// no hold row, so no sweep could ever recover it.
	targetKey := models.SlotKey{ScheduleID: "sched-wed", TimeSlotID: "ts-wed", Date: "2024-06-05"}
	assert.Equal(t, 1, f.remaining(t, targetKey))
	assert.Equal(t, 0, f.remaining(t, f.origKey), "original reservation untouched")
}

func TestConfirmReleasesTargetWhenAppointmentInactive(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	outcome, err := f.orc.Reschedule(ctx, "appt-1", wednesdayTarget("2024-06-05"))
	require.NoError(t, err)

	// The appointment is cancelled while checkout is open.
	require.NoError(t, f.appointments.TransitionStatus(ctx, "appt-1", models.StatusApproved, models.StatusCancelled))

	err = f.orc.Confirm(ctx, outcome.Payment.Ref)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)

	targetKey := models.SlotKey{ScheduleID: "sched-wed", TimeSlotID: "ts-wed", Date: "2024-06-05"}
	assert.Equal(t, 1, f.remaining(t, targetKey), "target returned")
	assert.Zero(t, f.holds.count())
}

func TestConfirmKeepsTargetWhenOldReleaseFails(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	outcome, err := f.orc.Reschedule(ctx, "appt-1", wednesdayTarget("2024-06-05"))
	require.NoError(t, err)

	// The old reservation's release hits a transient failure during commit.
	f.orc.Ledger = &flakyReleaseLedger{MemoryLedger: f.ledger, failID: f.appt.ReservationID}

	err = f.orc.Confirm(ctx, outcome.Payment.Ref)
	require.Error(t, err)

	// The move applied, so the moved appointment keeps its target
	// reservation; releasing it would let someone double-book the slot.
	moved, err := f.appointments.GetByID(ctx, "appt-1")
	require.NoError(t, err)
	assert.Equal(t, "2024-06-05", moved.OccurrenceDate)
	assert.Equal(t, models.StatusApproved, moved.Status)

	targetKey := models.SlotKey{ScheduleID: "sched-wed", TimeSlotID: "ts-wed", Date: "2024-06-05"}
	assert.Equal(t, 0, f.remaining(t, targetKey), "target stays held by the appointment")
	assert.Zero(t, f.holds.count(), "hold removed so no sweep can touch the live reservation")

	// The old unit stays consumed until the release is retried.
	assert.Equal(t, 0, f.remaining(t, f.origKey))
}

func TestReleaseStaleHoldsCompensatesAbandonedCheckout(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	_, err := f.orc.Reschedule(ctx, "appt-1", wednesdayTarget("2024-06-05"))
	require.NoError(t, err)

	// Not stale yet.
	released, err := f.orc.ReleaseStaleHolds(ctx)
	require.NoError(t, err)
	assert.Zero(t, released)

	// 73 hours later the checkout is considered abandoned.
	f.orc.Now = func() time.Time { return testNow.Add(73 * time.Hour) }
	released, err = f.orc.ReleaseStaleHolds(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, released)

	targetKey := models.SlotKey{ScheduleID: "sched-wed", TimeSlotID: "ts-wed", Date: "2024-06-05"}
	assert.Equal(t, 1, f.remaining(t, targetKey))
	assert.Equal(t, 0, f.remaining(t, f.origKey), "appointment keeps its slot")
	assert.Zero(t, f.holds.count())

	appt, err := f.appointments.GetByID(ctx, "appt-1")
	require.NoError(t, err)
	assert.Equal(t, "2024-06-02", appt.OccurrenceDate)
}
