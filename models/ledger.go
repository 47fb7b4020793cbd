package models

import "time"

// SlotKey identifies one capacity counter: a schedule's time-slot on one
// concrete occurrence date.
type SlotKey struct {
	ScheduleID string `bson:"scheduleId" json:"scheduleId"`
	TimeSlotID string `bson:"timeSlotId" json:"timeSlotId"`
	Date       string `bson:"date" json:"date"` // "2006-01-02"
}

// CapacityCounter is the single source of truth for remaining capacity on a
// slot key. Rows are created lazily on the first reservation attempt;
// 0 <= ReservedCount <= Capacity at all times.
type CapacityCounter struct {
	SlotKey       `bson:",inline"`
	Capacity      int `bson:"capacity" json:"capacity"` // denormalized from the schedule at first reserve
	ReservedCount int `bson:"reservedCount" json:"reservedCount"`
}

// Reservation is one unit of consumed capacity. Its identity is what makes
// release idempotent: a second release of the same reservation is a no-op.
type Reservation struct {
	ID        string `bson:"id" json:"id"`
	SlotKey   `bson:",inline"`
	Released  bool      `bson:"released" json:"released"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}
