package scheduleRepo

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

// MongoScheduleRepo stores schedules in the "schedules" collection.
type MongoScheduleRepo struct {
	coll *mongo.Collection
}

func NewMongoScheduleRepo(db *mongo.Database) *MongoScheduleRepo {
	repo := &MongoScheduleRepo{coll: db.Collection("schedules")}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, _ = repo.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "serviceId", Value: 1}}},
	})
	return repo
}

func (r *MongoScheduleRepo) Create(ctx context.Context, schedule *models.Schedule) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if _, err := r.coll.InsertOne(ctx, schedule); err != nil {
		return fmt.Errorf("failed to insert schedule: %w", err)
	}
	return nil
}

func (r *MongoScheduleRepo) GetByID(ctx context.Context, id string) (*models.Schedule, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var schedule models.Schedule
	err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&schedule)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.ErrScheduleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch schedule %s: %w", id, err)
	}
	return &schedule, nil
}

func (r *MongoScheduleRepo) ListByService(ctx context.Context, serviceID string) ([]models.Schedule, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	cursor, err := r.coll.Find(ctx, bson.M{"serviceId": serviceID})
	if err != nil {
		return nil, fmt.Errorf("failed to list schedules for service %s: %w", serviceID, err)
	}
	defer cursor.Close(ctx)

	var schedules []models.Schedule
	if err := cursor.All(ctx, &schedules); err != nil {
		return nil, fmt.Errorf("failed to decode schedules: %w", err)
	}
	return schedules, nil
}

func (r *MongoScheduleRepo) Update(ctx context.Context, schedule *models.Schedule) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	schedule.UpdatedAt = time.Now().UTC()
	res, err := r.coll.ReplaceOne(ctx, bson.M{"id": schedule.ID}, schedule)
	if err != nil {
		return fmt.Errorf("failed to update schedule %s: %w", schedule.ID, err)
	}
	if res.MatchedCount == 0 {
		return models.ErrScheduleNotFound
	}
	return nil
}

func (r *MongoScheduleRepo) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	res, err := r.coll.DeleteOne(ctx, bson.M{"id": id})
	if err != nil {
		return fmt.Errorf("failed to delete schedule %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return models.ErrScheduleNotFound
	}
	return nil
}
