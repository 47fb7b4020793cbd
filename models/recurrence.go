package models

// RecurrenceType selects how a schedule repeats.
type RecurrenceType string

const (
	RecurrenceOneTime    RecurrenceType = "oneTime"
	RecurrenceWeekly     RecurrenceType = "weekly"
	RecurrenceMonthlyNth RecurrenceType = "monthlyNth"
)

// RecurrenceRule describes how a Schedule repeats. Exactly one shape is valid
// per type: OneTime needs only AnchorDate, Weekly adds DayOfWeek, MonthlyNth
// adds DayOfWeek and WeekOfMonth.
type RecurrenceRule struct {
	Type       RecurrenceType `bson:"type" json:"type"`
	AnchorDate string         `bson:"anchorDate" json:"anchorDate"`                   // "2006-01-02"; start of validity, the only date for oneTime
	EndDate    string         `bson:"endDate,omitempty" json:"endDate,omitempty"`     // exclusive upper bound; empty = open-ended
	DayOfWeek  int            `bson:"dayOfWeek,omitempty" json:"dayOfWeek,omitempty"` // 0 = Sunday … 6 = Saturday
	// WeekOfMonth counts the Nth occurrence of DayOfWeek within a month,
	// 1–4 strict, 5 = the last occurrence in the month.
	WeekOfMonth int `bson:"weekOfMonth,omitempty" json:"weekOfMonth,omitempty"`
}
