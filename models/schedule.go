package models

import "time"

// TimeSlot represents one bookable window inside a schedule.
type TimeSlot struct {
	ID    string `bson:"id" json:"id"`
	Start int    `bson:"start" json:"start"` // minutes from midnight (e.g., 540 for 9:00 AM)
	End   int    `bson:"end" json:"end"`     // minutes from midnight; always > Start
}

// Schedule is a bookable configuration for a service (or sub-service).
// Capacity applies per time-slot per occurrence date.
type Schedule struct {
	ID            string         `bson:"id" json:"id"`
	ServiceID     string         `bson:"serviceId" json:"serviceId"`
	SubServiceID  string         `bson:"subServiceId,omitempty" json:"subServiceId,omitempty"`
	ServiceName   string         `bson:"serviceName,omitempty" json:"serviceName,omitempty"`
	Recurrence    RecurrenceRule `bson:"recurrence" json:"recurrence"`
	TimeSlots     []TimeSlot     `bson:"timeSlots" json:"timeSlots"`
	SlotCapacity  int            `bson:"slotCapacity" json:"slotCapacity"`
	ValidityStart string         `bson:"validityStart,omitempty" json:"validityStart,omitempty"` // "2006-01-02"
	ValidityEnd   string         `bson:"validityEnd,omitempty" json:"validityEnd,omitempty"`     // exclusive

	// Plans behind some services charge again when an appointment is moved;
	// the reschedule flow suspends on payment when this is set.
	PaidReschedule   bool  `bson:"paidReschedule,omitempty" json:"paidReschedule,omitempty"`
	RescheduleAmount int64 `bson:"rescheduleAmount,omitempty" json:"rescheduleAmount,omitempty"` // minor units

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// SlotByID returns the embedded time-slot with the given id, nil when absent.
func (s *Schedule) SlotByID(timeSlotID string) *TimeSlot {
	for i := range s.TimeSlots {
		if s.TimeSlots[i].ID == timeSlotID {
			return &s.TimeSlots[i]
		}
	}
	return nil
}

// SlotRemaining pairs a time-slot with its remaining capacity on one date.
type SlotRemaining struct {
	TimeSlotID string `json:"timeSlotId"`
	Start      int    `json:"start"`
	End        int    `json:"end"`
	Remaining  int    `json:"remaining"`
}
