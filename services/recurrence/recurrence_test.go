package recurrence

import (
	"slices"
	"testing"
	"time"

	"parishly/models"
	"parishly/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := utils.ParseDate(s)
	require.NoError(t, err)
	return d
}

func collectDates(rule models.RecurrenceRule, from, to time.Time) []string {
	var out []string
	for d := range Occurrences(rule, from, to) {
		out = append(out, utils.FormatDate(d))
	}
	return out
}

func TestValidateRejectsMalformedRules(t *testing.T) {
	cases := []struct {
		name string
		rule models.RecurrenceRule
	}{
		{"unknown type", models.RecurrenceRule{Type: "fortnightly", AnchorDate: "2024-01-01"}},
		{"bad anchor date", models.RecurrenceRule{Type: models.RecurrenceWeekly, AnchorDate: "01/01/2024", DayOfWeek: 1}},
		{"end before anchor", models.RecurrenceRule{Type: models.RecurrenceWeekly, AnchorDate: "2024-06-01", EndDate: "2024-01-01", DayOfWeek: 1}},
		{"end equals anchor", models.RecurrenceRule{Type: models.RecurrenceOneTime, AnchorDate: "2024-01-01", EndDate: "2024-01-01"}},
		{"weekday out of range", models.RecurrenceRule{Type: models.RecurrenceWeekly, AnchorDate: "2024-01-01", DayOfWeek: 7}},
		{"week of month zero", models.RecurrenceRule{Type: models.RecurrenceMonthlyNth, AnchorDate: "2024-01-01", DayOfWeek: 1, WeekOfMonth: 0}},
		{"week of month six", models.RecurrenceRule{Type: models.RecurrenceMonthlyNth, AnchorDate: "2024-01-01", DayOfWeek: 1, WeekOfMonth: 6}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(tc.rule)
			assert.ErrorIs(t, err, models.ErrInvalidRecurrenceRule)
		})
	}
}

func TestValidateAcceptsWellFormedRules(t *testing.T) {
	assert.NoError(t, Validate(models.RecurrenceRule{Type: models.RecurrenceOneTime, AnchorDate: "2024-03-15"}))
	assert.NoError(t, Validate(models.RecurrenceRule{Type: models.RecurrenceWeekly, AnchorDate: "2024-01-01", DayOfWeek: 0}))
	assert.NoError(t, Validate(models.RecurrenceRule{
		Type: models.RecurrenceMonthlyNth, AnchorDate: "2024-01-01", EndDate: "2025-01-01", DayOfWeek: 5, WeekOfMonth: 5,
	}))
}

func TestWeeklyOccurrencesInJanuary(t *testing.T) {
	// Every Sunday, anchored on Monday 2024-01-01.
	rule := models.RecurrenceRule{Type: models.RecurrenceWeekly, AnchorDate: "2024-01-01", DayOfWeek: 0}

	got := collectDates(rule, mustDate(t, "2024-01-01"), mustDate(t, "2024-02-01"))
	assert.Equal(t, []string{"2024-01-07", "2024-01-14", "2024-01-21", "2024-01-28"}, got)
}

func TestWeeklyOccurrencesClampToRuleWindow(t *testing.T) {
	rule := models.RecurrenceRule{
		Type:       models.RecurrenceWeekly,
		AnchorDate: "2024-01-10",
		EndDate:    "2024-01-25",
		DayOfWeek:  3, // Wednesday
	}

	// Query range is wider than the rule window on both sides.
	got := collectDates(rule, mustDate(t, "2023-12-01"), mustDate(t, "2024-03-01"))
	assert.Equal(t, []string{"2024-01-10", "2024-01-17", "2024-01-24"}, got)
}

func TestLastFridayOfFebruary2024(t *testing.T) {
	// WeekOfMonth 5 means the last such weekday: February 2024 has five
	// Thursdays but only four Fridays, and the last Friday is the 23rd.
	rule := models.RecurrenceRule{
		Type:        models.RecurrenceMonthlyNth,
		AnchorDate:  "2024-01-01",
		DayOfWeek:   5,
		WeekOfMonth: 5,
	}

	got := collectDates(rule, mustDate(t, "2024-02-01"), mustDate(t, "2024-03-01"))
	assert.Equal(t, []string{"2024-02-23"}, got)
	assert.True(t, Matches(rule, mustDate(t, "2024-02-23")))
	assert.False(t, Matches(rule, mustDate(t, "2024-02-16")))
}

func TestMonthlyNthAcrossMonths(t *testing.T) {
	// Second Tuesday of every month.
	rule := models.RecurrenceRule{
		Type:        models.RecurrenceMonthlyNth,
		AnchorDate:  "2024-01-01",
		DayOfWeek:   2,
		WeekOfMonth: 2,
	}

	got := collectDates(rule, mustDate(t, "2024-01-01"), mustDate(t, "2024-04-01"))
	assert.Equal(t, []string{"2024-01-09", "2024-02-13", "2024-03-12"}, got)
}

func TestMonthlyLastWeekdayEveryMonth(t *testing.T) {
	// The last occurrence always exists, so every month contributes exactly
	// one date.
	rule := models.RecurrenceRule{
		Type:        models.RecurrenceMonthlyNth,
		AnchorDate:  "2024-01-01",
		DayOfWeek:   1, // Monday
		WeekOfMonth: 5,
	}

	got := collectDates(rule, mustDate(t, "2024-01-01"), mustDate(t, "2025-01-01"))
	require.Len(t, got, 12)
	assert.Equal(t, "2024-01-29", got[0])
	assert.Equal(t, "2024-02-26", got[1])
	assert.Equal(t, "2024-12-30", got[11])
	for _, s := range got {
		d := mustDate(t, s)
		assert.Equal(t, time.Monday, d.Weekday())
		assert.Greater(t, d.Day(), 21)
	}
}

func TestOneTimeOccurrence(t *testing.T) {
	rule := models.RecurrenceRule{Type: models.RecurrenceOneTime, AnchorDate: "2024-05-20"}

	assert.Equal(t, []string{"2024-05-20"}, collectDates(rule, mustDate(t, "2024-05-01"), mustDate(t, "2024-06-01")))
	assert.Empty(t, collectDates(rule, mustDate(t, "2024-06-01"), mustDate(t, "2024-07-01")))
	assert.True(t, Matches(rule, mustDate(t, "2024-05-20")))
	assert.False(t, Matches(rule, mustDate(t, "2024-05-21")))
}

func TestMatchesRespectsAnchorAndEnd(t *testing.T) {
	rule := models.RecurrenceRule{
		Type:       models.RecurrenceWeekly,
		AnchorDate: "2024-01-07", // a Sunday
		EndDate:    "2024-02-04",
		DayOfWeek:  0,
	}

	assert.False(t, Matches(rule, mustDate(t, "2023-12-31")), "before anchor")
	assert.True(t, Matches(rule, mustDate(t, "2024-01-07")), "anchor itself")
	assert.True(t, Matches(rule, mustDate(t, "2024-01-28")))
	assert.False(t, Matches(rule, mustDate(t, "2024-02-04")), "endDate is exclusive")
	assert.False(t, Matches(rule, mustDate(t, "2024-01-08")), "wrong weekday")
}

func TestOccurrencesSequenceIsRestartable(t *testing.T) {
	rule := models.RecurrenceRule{Type: models.RecurrenceWeekly, AnchorDate: "2024-01-01", DayOfWeek: 1}
	seq := Occurrences(rule, mustDate(t, "2024-01-01"), mustDate(t, "2024-02-01"))

	first := slices.Collect(seq)
	second := slices.Collect(seq)
	assert.Equal(t, first, second)
	require.Len(t, first, 5)
	assert.Equal(t, "2024-01-01", utils.FormatDate(first[0]))
}

func TestOccurrencesEmptyForInvalidRuleOrEmptyRange(t *testing.T) {
	bad := models.RecurrenceRule{Type: "fortnightly", AnchorDate: "2024-01-01"}
	assert.Empty(t, collectDates(bad, mustDate(t, "2024-01-01"), mustDate(t, "2024-12-31")))

	ok := models.RecurrenceRule{Type: models.RecurrenceWeekly, AnchorDate: "2024-01-01", DayOfWeek: 1}
	assert.Empty(t, collectDates(ok, mustDate(t, "2024-02-01"), mustDate(t, "2024-02-01")))
	assert.Empty(t, collectDates(ok, mustDate(t, "2024-02-01"), mustDate(t, "2024-01-01")))
}
