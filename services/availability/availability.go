// Package availability answers the read side of booking: which dates a
// service occurs on, and how much capacity each time-slot still has on a
// date. Month expansions are cached in Redis with a short TTL; remaining
// counts on the reservation path always go to the ledger.
package availability

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	ledgerRepo "parishly/database/repository/ledger"
	scheduleRepo "parishly/database/repository/schedule"
	"parishly/models"
	"parishly/services/appointment"
	"parishly/services/recurrence"
	"parishly/utils"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// Service computes occurrence dates and per-slot remaining capacity.
type Service struct {
	Schedules scheduleRepo.Repository
	Ledger    ledgerRepo.Ledger
	Cache     *redis.Client
	CacheTTL  time.Duration
	Logger    *zap.Logger
}

// ListOccurrences enumerates the distinct occurrence dates of every schedule
// of a service within [from, to), as sorted "2006-01-02" strings.
func (s *Service) ListOccurrences(ctx context.Context, serviceID, from, to string) ([]string, error) {
	rangeStart, err := utils.ParseDate(from)
	if err != nil {
		return nil, err
	}
	rangeEnd, err := utils.ParseDate(to)
	if err != nil {
		return nil, err
	}

	if cached, ok := s.cacheGet(ctx, serviceID, from, to); ok {
		return cached, nil
	}

	schedules, err := s.Schedules.ListByService(ctx, serviceID)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	for i := range schedules {
		schedule := &schedules[i]
		for day := range recurrence.Occurrences(schedule.Recurrence, rangeStart, rangeEnd) {
			if !appointment.OccurrenceAllowed(schedule, day) {
				continue
			}
			seen[utils.FormatDate(day)] = struct{}{}
		}
	}

	dates := make([]string, 0, len(seen))
	for date := range seen {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	s.cacheSet(ctx, serviceID, from, to, dates)
	return dates, nil
}

// ListSlotRemaining reports each time-slot of a schedule with its remaining
// capacity on the given date. A date that is not an occurrence yields an
// empty list, not an error.
func (s *Service) ListSlotRemaining(ctx context.Context, scheduleID, date string) ([]models.SlotRemaining, error) {
	day, err := utils.ParseDate(date)
	if err != nil {
		return nil, err
	}
	schedule, err := s.Schedules.GetByID(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	if !appointment.OccurrenceAllowed(schedule, day) {
		return []models.SlotRemaining{}, nil
	}

	out := make([]models.SlotRemaining, 0, len(schedule.TimeSlots))
	for _, slot := range schedule.TimeSlots {
		key := models.SlotKey{ScheduleID: schedule.ID, TimeSlotID: slot.ID, Date: date}
		remaining, err := s.Ledger.Remaining(ctx, key, schedule.SlotCapacity)
		if err != nil {
			return nil, err
		}
		out = append(out, models.SlotRemaining{
			TimeSlotID: slot.ID,
			Start:      slot.Start,
			End:        slot.End,
			Remaining:  remaining,
		})
	}
	return out, nil
}

// InvalidateService drops cached occurrence expansions for a service after
// a schedule mutation.
func (s *Service) InvalidateService(ctx context.Context, serviceID string) {
	if s.Cache == nil {
		return
	}
	iter := s.Cache.Scan(ctx, 0, fmt.Sprintf("occ:%s:*", serviceID), 100).Iterator()
	for iter.Next(ctx) {
		if err := s.Cache.Del(ctx, iter.Val()).Err(); err != nil {
			s.Logger.Warn("failed to invalidate occurrence cache", zap.Error(err))
		}
	}
	if err := iter.Err(); err != nil {
		s.Logger.Warn("failed to scan occurrence cache", zap.Error(err))
	}
}

func cacheKey(serviceID, from, to string) string {
	return fmt.Sprintf("occ:%s:%s:%s", serviceID, from, to)
}

func (s *Service) cacheGet(ctx context.Context, serviceID, from, to string) ([]string, bool) {
	if s.Cache == nil {
		return nil, false
	}
	data, err := s.Cache.Get(ctx, cacheKey(serviceID, from, to)).Result()
	if err != nil {
		return nil, false
	}
	var dates []string
	if err := json.Unmarshal([]byte(data), &dates); err != nil {
		return nil, false
	}
	return dates, true
}

func (s *Service) cacheSet(ctx context.Context, serviceID, from, to string, dates []string) {
	if s.Cache == nil {
		return
	}
	data, err := json.Marshal(dates)
	if err != nil {
		return
	}
	if err := s.Cache.Set(ctx, cacheKey(serviceID, from, to), data, s.CacheTTL).Err(); err != nil {
		s.Logger.Warn("failed to cache occurrence expansion", zap.Error(err))
	}
}
