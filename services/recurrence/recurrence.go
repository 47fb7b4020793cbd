// Package recurrence expands structured recurrence rules into concrete
// calendar dates. Rules are validated once at schedule-authoring time;
// evaluation never fails, a date that does not match is just an empty result.
package recurrence

import (
	"fmt"
	"iter"
	"time"

	"parishly/models"
	"parishly/utils"
)

// compiled is a rule with its date strings parsed to UTC midnights.
type compiled struct {
	typ     models.RecurrenceType
	anchor  time.Time
	end     time.Time // zero when open-ended
	weekday time.Weekday
	week    int
}

func compile(rule models.RecurrenceRule) (compiled, error) {
	c := compiled{typ: rule.Type, weekday: time.Weekday(rule.DayOfWeek), week: rule.WeekOfMonth}

	anchor, err := utils.ParseDate(rule.AnchorDate)
	if err != nil {
		return c, fmt.Errorf("%w: anchorDate: %v", models.ErrInvalidRecurrenceRule, err)
	}
	c.anchor = anchor

	if rule.EndDate != "" {
		end, err := utils.ParseDate(rule.EndDate)
		if err != nil {
			return c, fmt.Errorf("%w: endDate: %v", models.ErrInvalidRecurrenceRule, err)
		}
		if !end.After(anchor) {
			return c, fmt.Errorf("%w: endDate %s is not after anchorDate %s", models.ErrInvalidRecurrenceRule, rule.EndDate, rule.AnchorDate)
		}
		c.end = end
	}

	switch rule.Type {
	case models.RecurrenceOneTime:
		// anchorDate is the only required field.
	case models.RecurrenceWeekly:
		if rule.DayOfWeek < 0 || rule.DayOfWeek > 6 {
			return c, fmt.Errorf("%w: dayOfWeek %d out of range 0-6", models.ErrInvalidRecurrenceRule, rule.DayOfWeek)
		}
	case models.RecurrenceMonthlyNth:
		if rule.DayOfWeek < 0 || rule.DayOfWeek > 6 {
			return c, fmt.Errorf("%w: dayOfWeek %d out of range 0-6", models.ErrInvalidRecurrenceRule, rule.DayOfWeek)
		}
		if rule.WeekOfMonth < 1 || rule.WeekOfMonth > 5 {
			return c, fmt.Errorf("%w: weekOfMonth %d out of range 1-5", models.ErrInvalidRecurrenceRule, rule.WeekOfMonth)
		}
	default:
		return c, fmt.Errorf("%w: unknown type %q", models.ErrInvalidRecurrenceRule, rule.Type)
	}

	return c, nil
}

// Validate rejects rules whose shape does not fit their type. Schedules with
// invalid rules must never be persisted; everything downstream assumes valid
// rules.
func Validate(rule models.RecurrenceRule) error {
	_, err := compile(rule)
	return err
}

// Matches reports whether the rule produces an occurrence on the given date.
// An invalid rule matches nothing.
func Matches(rule models.RecurrenceRule, date time.Time) bool {
	c, err := compile(rule)
	if err != nil {
		return false
	}
	return c.matches(utils.Midnight(date))
}

func (c compiled) matches(day time.Time) bool {
	if day.Before(c.anchor) {
		return false
	}
	if !c.end.IsZero() && !day.Before(c.end) {
		return false
	}

	switch c.typ {
	case models.RecurrenceOneTime:
		return day.Equal(c.anchor)
	case models.RecurrenceWeekly:
		return day.Weekday() == c.weekday
	case models.RecurrenceMonthlyNth:
		if day.Weekday() != c.weekday {
			return false
		}
		if c.week == 5 {
			// Last occurrence of the weekday: no same weekday a week later
			// in the same month.
			return day.Day()+7 > daysInMonth(day.Year(), day.Month())
		}
		return (day.Day()-1)/7+1 == c.week
	}
	return false
}

// Occurrences returns the rule's occurrence dates within [rangeStart,
// rangeEnd) as a lazy, restartable sequence. The walk is analytic: weekly
// rules stride seven days from the first match, monthlyNth rules test one
// candidate per month, oneTime yields at most its anchor. A month without
// the Nth weekday simply contributes nothing.
func Occurrences(rule models.RecurrenceRule, rangeStart, rangeEnd time.Time) iter.Seq[time.Time] {
	c, err := compile(rule)
	if err != nil {
		return func(yield func(time.Time) bool) {}
	}

	lo := utils.Midnight(rangeStart)
	if lo.Before(c.anchor) {
		lo = c.anchor
	}
	hi := utils.Midnight(rangeEnd)
	if !c.end.IsZero() && c.end.Before(hi) {
		hi = c.end
	}

	return func(yield func(time.Time) bool) {
		if !lo.Before(hi) {
			return
		}
		switch c.typ {
		case models.RecurrenceOneTime:
			if !c.anchor.Before(lo) && c.anchor.Before(hi) {
				yield(c.anchor)
			}
		case models.RecurrenceWeekly:
			first := lo.AddDate(0, 0, int((c.weekday-lo.Weekday()+7)%7))
			for d := first; d.Before(hi); d = d.AddDate(0, 0, 7) {
				if !yield(d) {
					return
				}
			}
		case models.RecurrenceMonthlyNth:
			year, month := lo.Year(), lo.Month()
			for {
				candidate, ok := nthWeekday(year, month, c.weekday, c.week)
				if ok && !candidate.Before(lo) {
					if !candidate.Before(hi) {
						return
					}
					if !yield(candidate) {
						return
					}
				}
				month++
				if month > time.December {
					year, month = year+1, time.January
				}
				if time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).After(hi) {
					return
				}
			}
		}
	}
}

// nthWeekday returns the date of the nth (1-4) weekday of a month, or the
// last one when n is 5. ok is false when the month has no nth occurrence.
func nthWeekday(year int, month time.Month, weekday time.Weekday, n int) (time.Time, bool) {
	last := daysInMonth(year, month)

	if n == 5 {
		d := time.Date(year, month, last, 0, 0, 0, 0, time.UTC)
		return d.AddDate(0, 0, -int((d.Weekday()-weekday+7)%7)), true
	}

	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	day := 1 + int((weekday-first.Weekday()+7)%7) + (n-1)*7
	if day > last {
		return time.Time{}, false
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC), true
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
