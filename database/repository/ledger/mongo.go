package ledgerRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"parishly/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// MongoLedger stores capacity counters and reservation rows in MongoDB.
// The reserve path is a single conditional UpdateOne, so the capacity check
// and the increment commit together.
type MongoLedger struct {
	counters     *mongo.Collection
	reservations *mongo.Collection
	logger       *zap.Logger
}

func NewMongoLedger(db *mongo.Database, logger *zap.Logger) *MongoLedger {
	l := &MongoLedger{
		counters:     db.Collection("capacity_counters"),
		reservations: db.Collection("reservations"),
		logger:       logger,
	}
	l.ensureIndexes()
	return l
}

func (l *MongoLedger) ensureIndexes() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := l.counters.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "scheduleId", Value: 1}, {Key: "timeSlotId", Value: 1}, {Key: "date", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		l.logger.Warn("failed to ensure capacity counter index", zap.Error(err))
	}

	_, err = l.reservations.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		l.logger.Warn("failed to ensure reservation index", zap.Error(err))
	}
}

func keyFilter(key models.SlotKey) bson.M {
	return bson.M{"scheduleId": key.ScheduleID, "timeSlotId": key.TimeSlotID, "date": key.Date}
}

func (l *MongoLedger) Remaining(ctx context.Context, key models.SlotKey, capacity int) (int, error) {
	var counter models.CapacityCounter
	err := l.counters.FindOne(ctx, keyFilter(key)).Decode(&counter)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return capacity, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read capacity counter: %w", err)
	}
	if counter.ReservedCount < 0 || counter.ReservedCount > counter.Capacity {
		l.logger.Error("capacity counter out of bounds",
			zap.String("scheduleId", key.ScheduleID),
			zap.String("timeSlotId", key.TimeSlotID),
			zap.String("date", key.Date),
			zap.Int("reservedCount", counter.ReservedCount),
			zap.Int("capacity", counter.Capacity),
		)
		return 0, models.ErrLedgerCorruption
	}
	return counter.Capacity - counter.ReservedCount, nil
}

func (l *MongoLedger) TryReserve(ctx context.Context, key models.SlotKey, capacity int) (*models.Reservation, error) {
	// Ensure the counter row exists; the unique index makes racing upserts
	// collapse to a single row.
	_, err := l.counters.UpdateOne(ctx, keyFilter(key), bson.M{
		"$setOnInsert": bson.M{"capacity": capacity, "reservedCount": 0},
	}, options.Update().SetUpsert(true))
	if err != nil && !mongo.IsDuplicateKeyError(err) {
		return nil, fmt.Errorf("failed to ensure capacity counter: %w", err)
	}

	// The capacity check and the increment must be one conditional update;
	// MatchedCount == 0 means the slot is already full.
	filter := keyFilter(key)
	filter["reservedCount"] = bson.M{"$lt": capacity}
	res, err := l.counters.UpdateOne(ctx, filter, bson.M{"$inc": bson.M{"reservedCount": 1}})
	if err != nil {
		return nil, fmt.Errorf("failed to reserve capacity: %w", err)
	}
	if res.MatchedCount == 0 {
		if _, err := l.Remaining(ctx, key, capacity); errors.Is(err, models.ErrLedgerCorruption) {
			return nil, err
		}
		return nil, models.ErrSlotFull
	}

	reservation := &models.Reservation{
		ID:        uuid.New().String(),
		SlotKey:   key,
		Released:  false,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := l.reservations.InsertOne(ctx, reservation); err != nil {
		// The unit is claimed but the identity row failed; hand the unit back.
		if _, decErr := l.counters.UpdateOne(ctx, keyFilter(key), bson.M{"$inc": bson.M{"reservedCount": -1}}); decErr != nil {
			l.logger.Error("failed to compensate orphaned reservation",
				zap.String("scheduleId", key.ScheduleID), zap.Error(decErr))
		}
		return nil, fmt.Errorf("failed to record reservation: %w", err)
	}
	return reservation, nil
}

func (l *MongoLedger) Release(ctx context.Context, reservationID string) error {
	// Flip released exactly once; a lost race here means someone else (or a
	// retry of ourselves) already returned the unit.
	var reservation models.Reservation
	err := l.reservations.FindOneAndUpdate(ctx,
		bson.M{"id": reservationID, "released": false},
		bson.M{"$set": bson.M{"released": true}},
	).Decode(&reservation)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to release reservation %s: %w", reservationID, err)
	}

	filter := keyFilter(reservation.SlotKey)
	filter["reservedCount"] = bson.M{"$gt": 0}
	res, err := l.counters.UpdateOne(ctx, filter, bson.M{"$inc": bson.M{"reservedCount": -1}})
	if err != nil {
		return fmt.Errorf("failed to decrement capacity counter: %w", err)
	}
	if res.MatchedCount == 0 {
		// A live reservation pointed at a counter that was already at zero.
		l.logger.Error("reservation release found no capacity to return",
			zap.String("reservationId", reservationID),
			zap.String("scheduleId", reservation.ScheduleID),
			zap.String("timeSlotId", reservation.TimeSlotID),
			zap.String("date", reservation.Date),
		)
		return models.ErrLedgerCorruption
	}
	return nil
}

func (l *MongoLedger) PurgeBefore(ctx context.Context, cutoffDate string) (int64, error) {
	res, err := l.counters.DeleteMany(ctx, bson.M{"date": bson.M{"$lt": cutoffDate}})
	if err != nil {
		return 0, fmt.Errorf("failed to purge capacity counters: %w", err)
	}
	if _, err := l.reservations.DeleteMany(ctx, bson.M{"date": bson.M{"$lt": cutoffDate}, "released": true}); err != nil {
		return res.DeletedCount, fmt.Errorf("failed to purge reservations: %w", err)
	}
	return res.DeletedCount, nil
}
