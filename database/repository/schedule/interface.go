package scheduleRepo

import (
	"context"

	"parishly/models"
)

// Repository persists bookable schedules and their embedded time-slots.
type Repository interface {
	Create(ctx context.Context, schedule *models.Schedule) error
	GetByID(ctx context.Context, id string) (*models.Schedule, error)
	ListByService(ctx context.Context, serviceID string) ([]models.Schedule, error)
	Update(ctx context.Context, schedule *models.Schedule) error
	// Delete removes a schedule. The caller must have verified no active
	// appointments reference it on a future date (models.ErrScheduleInUse).
	Delete(ctx context.Context, id string) error
}
