package appointmentRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"garagehub/database/repository"
	"garagehub/models"
)

// MongoAppointmentRepo implements AppointmentRepository using MongoDB.
type MongoAppointmentRepo struct {
	coll *mongo.Collection
}

// NewMongoAppointmentRepo constructs the repository over the given database
// handle and ensures its indexes.
func NewMongoAppointmentRepo(db *mongo.Database) (*MongoAppointmentRepo, error) {
	repo := &MongoAppointmentRepo{coll: db.Collection("appointments")}
	if err := repo.ensureIndexes(); err != nil {
		return nil, err
	}
	return repo, nil
}

func (r *MongoAppointmentRepo) GetByID(ctx context.Context, id string) (*models.Appointment, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var appt models.Appointment
	if err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&appt); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("error fetching appointment %s: %w", id, err)
	}
	return &appt, nil
}

// Cancel transitions a confirmed appointment to cancelled. The filter on
// status makes the transition conditional; a lost race is reported as
// ErrNotActive rather than silently re-cancelling.
func (r *MongoAppointmentRepo) Cancel(ctx context.Context, id string) error {
	return r.transition(ctx, id, models.StatusCancelled)
}

// Complete transitions a confirmed appointment to completed.
func (r *MongoAppointmentRepo) Complete(ctx context.Context, id string) error {
	return r.transition(ctx, id, models.StatusCompleted)
}

func (r *MongoAppointmentRepo) transition(ctx context.Context, id, to string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{"id": id, "status": models.StatusConfirmed}
	update := bson.M{"$set": bson.M{"status": to}}
	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to set appointment %s to %s: %w", id, to, err)
	}
	if res.MatchedCount == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return repository.ErrNotActive
	}
	return nil
}

func (r *MongoAppointmentRepo) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := r.coll.DeleteOne(ctx, bson.M{"id": id})
	if err != nil {
		return fmt.Errorf("failed to delete appointment %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// MarkReminderSent flips the reminder flag if and only if it is still
// false. The conditional filter keeps the flag monotonic under concurrent
// sweeps.
func (r *MongoAppointmentRepo) MarkReminderSent(ctx context.Context, id string, at time.Time) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{"id": id, "reminder_sent": false, "status": models.StatusConfirmed}
	update := bson.M{"$set": bson.M{"reminder_sent": true, "reminder_sent_at": at}}
	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("failed to mark reminder sent for %s: %w", id, err)
	}
	return res.ModifiedCount > 0, nil
}

func (r *MongoAppointmentRepo) FindReminderCandidates(ctx context.Context, windowStart, windowEnd time.Time) ([]models.Appointment, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	filter := bson.M{
		"status":        models.StatusConfirmed,
		"reminder_sent": false,
		"scheduled_at":  bson.M{"$gte": windowStart, "$lte": windowEnd},
	}
	return r.findAll(ctx, filter, options.Find().SetSort(bson.D{{Key: "scheduled_at", Value: 1}}))
}

func (r *MongoAppointmentRepo) ListByUser(ctx context.Context, userID string) ([]models.Appointment, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	filter := bson.M{"user_id": userID}
	return r.findAll(ctx, filter, options.Find().SetSort(bson.D{{Key: "scheduled_at", Value: -1}}))
}

func (r *MongoAppointmentRepo) ListBetween(ctx context.Context, from, to time.Time) ([]models.Appointment, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	filter := bson.M{"scheduled_at": bson.M{"$gte": from, "$lt": to}}
	return r.findAll(ctx, filter, options.Find().SetSort(bson.D{{Key: "scheduled_at", Value: 1}}))
}

func (r *MongoAppointmentRepo) findAll(ctx context.Context, filter bson.M, opts ...*options.FindOptions) ([]models.Appointment, error) {
	cursor, err := r.coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, fmt.Errorf("error querying appointments: %w", err)
	}
	defer cursor.Close(ctx)

	var appts []models.Appointment
	if err := cursor.All(ctx, &appts); err != nil {
		return nil, fmt.Errorf("error decoding appointments: %w", err)
	}
	return appts, nil
}
