package holdRepo

import (
	"context"
	"time"

	"parishly/models"
)

// Repository persists in-flight payment-gated reschedule holds.
type Repository interface {
	Create(ctx context.Context, hold *models.RescheduleHold) error
	GetBySessionRef(ctx context.Context, sessionRef string) (*models.RescheduleHold, error)
	Delete(ctx context.Context, id string) error
	// ListStale returns holds created before the cutoff whose payment never
	// confirmed, for the compensation sweep.
	ListStale(ctx context.Context, cutoff time.Time) ([]models.RescheduleHold, error)
}
