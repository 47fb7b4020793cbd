// Package schedule covers staff authoring of bookable schedules. Rule shape
// is rejected here, at creation time, so booking-time evaluation never sees
// an invalid rule.
package schedule

import (
	"context"
	"fmt"
	"time"

	appointmentRepo "parishly/database/repository/appointment"
	scheduleRepo "parishly/database/repository/schedule"
	"parishly/models"
	"parishly/services/recurrence"
	"parishly/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service manages schedule authoring.
type Service struct {
	Schedules    scheduleRepo.Repository
	Appointments appointmentRepo.Repository
	Logger       *zap.Logger
	Now          func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// Create validates and persists a new schedule.
func (s *Service) Create(ctx context.Context, schedule *models.Schedule) error {
	if err := validate(schedule); err != nil {
		return err
	}
	if schedule.ID == "" {
		schedule.ID = uuid.New().String()
	}
	for i := range schedule.TimeSlots {
		if schedule.TimeSlots[i].ID == "" {
			schedule.TimeSlots[i].ID = uuid.New().String()
		}
	}
	schedule.CreatedAt = s.now()
	schedule.UpdatedAt = s.now()
	if err := s.Schedules.Create(ctx, schedule); err != nil {
		return err
	}
	s.Logger.Info("schedule created",
		zap.String("scheduleId", schedule.ID),
		zap.String("serviceId", schedule.ServiceID),
	)
	return nil
}

// Update revalidates and replaces an existing schedule.
func (s *Service) Update(ctx context.Context, schedule *models.Schedule) error {
	if err := validate(schedule); err != nil {
		return err
	}
	for i := range schedule.TimeSlots {
		if schedule.TimeSlots[i].ID == "" {
			schedule.TimeSlots[i].ID = uuid.New().String()
		}
	}
	schedule.UpdatedAt = s.now()
	return s.Schedules.Update(ctx, schedule)
}

// Delete removes a schedule unless active appointments still reference it on
// a future date.
func (s *Service) Delete(ctx context.Context, scheduleID string) error {
	today := utils.FormatDate(s.now())
	active, err := s.Appointments.CountActiveOnSchedule(ctx, scheduleID, today)
	if err != nil {
		return err
	}
	if active > 0 {
		return fmt.Errorf("%w: %d active appointments", models.ErrScheduleInUse, active)
	}
	return s.Schedules.Delete(ctx, scheduleID)
}

func validate(schedule *models.Schedule) error {
	if err := recurrence.Validate(schedule.Recurrence); err != nil {
		return err
	}
	if schedule.SlotCapacity <= 0 {
		return fmt.Errorf("%w: slotCapacity must be positive", models.ErrInvalidSchedule)
	}
	if len(schedule.TimeSlots) == 0 {
		return fmt.Errorf("%w: at least one time slot is required", models.ErrInvalidSchedule)
	}
	for _, slot := range schedule.TimeSlots {
		if slot.Start < 0 || slot.End > 24*60 || slot.Start >= slot.End {
			return fmt.Errorf("%w: time slot %s-%s is not a valid window", models.ErrInvalidSchedule,
				utils.MinutesToClock(slot.Start), utils.MinutesToClock(slot.End))
		}
	}
	return nil
}
