package ledgerRepo

import (
	"context"

	"parishly/models"
)

// Ledger tracks reserved capacity per (schedule, time-slot, date) key.
// Counters are created lazily on the first reservation attempt and are only
// ever mutated through TryReserve/Release; remaining capacity must never be
// derived by read-then-write.
type Ledger interface {
	// Remaining returns capacity minus the reserved count for the key.
	// A key with no counter yet has the full capacity remaining.
	Remaining(ctx context.Context, key models.SlotKey, capacity int) (int, error)

	// TryReserve atomically claims one unit of capacity. Concurrent callers
	// racing for the last unit see exactly one success; the rest get
	// models.ErrSlotFull.
	TryReserve(ctx context.Context, key models.SlotKey, capacity int) (*models.Reservation, error)

	// Release returns a reservation's unit to the pool. Releasing an
	// already-released reservation is a no-op so retried compensation
	// logic stays safe.
	Release(ctx context.Context, reservationID string) error

	// PurgeBefore garbage-collects counters and released reservations whose
	// date is strictly before the given "2006-01-02" cutoff.
	PurgeBefore(ctx context.Context, cutoffDate string) (int64, error)
}
