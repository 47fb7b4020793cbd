package ledgerRepo

import (
	"context"
	"sync"
	"time"

	"parishly/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type counterState struct {
	capacity int
	reserved int
}

// MemoryLedger implements Ledger with an in-process lock instead of the
// database-level conditional update. Used by tests and single-node
// deployments.
type MemoryLedger struct {
	mu           sync.Mutex
	counters     map[models.SlotKey]*counterState
	reservations map[string]*models.Reservation
	logger       *zap.Logger
}

func NewMemoryLedger(logger *zap.Logger) *MemoryLedger {
	return &MemoryLedger{
		counters:     make(map[models.SlotKey]*counterState),
		reservations: make(map[string]*models.Reservation),
		logger:       logger,
	}
}

func (l *MemoryLedger) Remaining(_ context.Context, key models.SlotKey, capacity int) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	counter, ok := l.counters[key]
	if !ok {
		return capacity, nil
	}
	if counter.reserved < 0 || counter.reserved > counter.capacity {
		l.logger.Error("capacity counter out of bounds",
			zap.String("scheduleId", key.ScheduleID),
			zap.String("timeSlotId", key.TimeSlotID),
			zap.String("date", key.Date),
			zap.Int("reservedCount", counter.reserved),
			zap.Int("capacity", counter.capacity),
		)
		return 0, models.ErrLedgerCorruption
	}
	return counter.capacity - counter.reserved, nil
}

func (l *MemoryLedger) TryReserve(_ context.Context, key models.SlotKey, capacity int) (*models.Reservation, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	counter, ok := l.counters[key]
	if !ok {
		counter = &counterState{capacity: capacity}
		l.counters[key] = counter
	}
	if counter.reserved >= counter.capacity {
		return nil, models.ErrSlotFull
	}
	counter.reserved++

	reservation := &models.Reservation{
		ID:        uuid.New().String(),
		SlotKey:   key,
		CreatedAt: time.Now().UTC(),
	}
	l.reservations[reservation.ID] = reservation
	return reservation, nil
}

func (l *MemoryLedger) Release(_ context.Context, reservationID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	reservation, ok := l.reservations[reservationID]
	if !ok || reservation.Released {
		return nil
	}
	reservation.Released = true

	counter, ok := l.counters[reservation.SlotKey]
	if !ok || counter.reserved <= 0 {
		l.logger.Error("reservation release found no capacity to return",
			zap.String("reservationId", reservationID),
			zap.String("scheduleId", reservation.ScheduleID),
			zap.String("timeSlotId", reservation.TimeSlotID),
			zap.String("date", reservation.Date),
		)
		return models.ErrLedgerCorruption
	}
	counter.reserved--
	return nil
}

func (l *MemoryLedger) PurgeBefore(_ context.Context, cutoffDate string) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var purged int64
	for key := range l.counters {
		if key.Date < cutoffDate {
			delete(l.counters, key)
			purged++
		}
	}
	for id, reservation := range l.reservations {
		if reservation.Date < cutoffDate && reservation.Released {
			delete(l.reservations, id)
		}
	}
	return purged, nil
}
