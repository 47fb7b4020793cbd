package appointmentRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"parishly/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const queryTimeout = 5 * time.Second

// MongoAppointmentRepo stores appointments in the "appointments" collection.
type MongoAppointmentRepo struct {
	coll *mongo.Collection
}

func NewMongoAppointmentRepo(db *mongo.Database) *MongoAppointmentRepo {
	repo := &MongoAppointmentRepo{coll: db.Collection("appointments")}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, _ = repo.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "userId", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "createdAt", Value: 1}}},
		{Keys: bson.D{{Key: "scheduleId", Value: 1}, {Key: "occurrenceDate", Value: 1}}},
	})
	return repo
}

func (r *MongoAppointmentRepo) Create(ctx context.Context, appointment *models.Appointment) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if _, err := r.coll.InsertOne(ctx, appointment); err != nil {
		return fmt.Errorf("failed to insert appointment: %w", err)
	}
	return nil
}

func (r *MongoAppointmentRepo) GetByID(ctx context.Context, id string) (*models.Appointment, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var appointment models.Appointment
	err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&appointment)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.ErrAppointmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch appointment %s: %w", id, err)
	}
	return &appointment, nil
}

func (r *MongoAppointmentRepo) ListByUser(ctx context.Context, userID string) ([]models.Appointment, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	cursor, err := r.coll.Find(ctx, bson.M{"userId": userID},
		options.Find().SetSort(bson.D{{Key: "occurrenceDate", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments for user %s: %w", userID, err)
	}
	defer cursor.Close(ctx)

	var appointments []models.Appointment
	if err := cursor.All(ctx, &appointments); err != nil {
		return nil, fmt.Errorf("failed to decode appointments: %w", err)
	}
	return appointments, nil
}

func (r *MongoAppointmentRepo) TransitionStatus(ctx context.Context, id string, from, to models.AppointmentStatus) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	res, err := r.coll.UpdateOne(ctx,
		bson.M{"id": id, "status": from},
		bson.M{"$set": bson.M{"status": to, "updatedAt": time.Now().UTC()}},
	)
	if err != nil {
		return fmt.Errorf("failed to transition appointment %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return models.ErrInvalidTransition
	}
	return nil
}

func (r *MongoAppointmentRepo) ApplyReschedule(ctx context.Context, id string, target models.RescheduleTarget, reservationID string) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	res, err := r.coll.UpdateOne(ctx,
		bson.M{"id": id, "status": bson.M{"$in": []models.AppointmentStatus{models.StatusPending, models.StatusApproved}}},
		bson.M{"$set": bson.M{
			"scheduleId":     target.ScheduleID,
			"timeSlotId":     target.TimeSlotID,
			"occurrenceDate": target.Date,
			"reservationId":  reservationID,
			"updatedAt":      time.Now().UTC(),
		}},
	)
	if err != nil {
		return fmt.Errorf("failed to apply reschedule for appointment %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return models.ErrInvalidTransition
	}
	return nil
}

func (r *MongoAppointmentRepo) ListStalePending(ctx context.Context, cutoff time.Time) ([]models.Appointment, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	cursor, err := r.coll.Find(ctx, bson.M{
		"status":    models.StatusPending,
		"createdAt": bson.M{"$lt": cutoff},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list stale pending appointments: %w", err)
	}
	defer cursor.Close(ctx)

	var appointments []models.Appointment
	if err := cursor.All(ctx, &appointments); err != nil {
		return nil, fmt.Errorf("failed to decode stale pending appointments: %w", err)
	}
	return appointments, nil
}

func (r *MongoAppointmentRepo) CountActiveOnSchedule(ctx context.Context, scheduleID, fromDate string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	count, err := r.coll.CountDocuments(ctx, bson.M{
		"scheduleId":     scheduleID,
		"status":         bson.M{"$in": []models.AppointmentStatus{models.StatusPending, models.StatusApproved}},
		"occurrenceDate": bson.M{"$gte": fromDate},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count active appointments for schedule %s: %w", scheduleID, err)
	}
	return count, nil
}

func (r *MongoAppointmentRepo) HasActiveBefore(ctx context.Context, cutoffDate string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	count, err := r.coll.CountDocuments(ctx, bson.M{
		"status":         bson.M{"$in": []models.AppointmentStatus{models.StatusPending, models.StatusApproved}},
		"occurrenceDate": bson.M{"$lt": cutoffDate},
	}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("failed to probe active appointments before %s: %w", cutoffDate, err)
	}
	return count > 0, nil
}
