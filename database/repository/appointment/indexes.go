package appointmentRepo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"garagehub/models"
)

// ensureIndexes creates the indexes the appointment queries rely on. The
// partial unique index on scheduled_at enforces slot uniqueness at the
// storage layer even if a write bypasses the booking transaction.
func (r *MongoAppointmentRepo) ensureIndexes() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("unique_id"),
		},
		// One confirmed appointment per instant.
		{
			Keys: bson.D{{Key: "scheduled_at", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetName("unique_confirmed_slot").
				SetPartialFilterExpression(bson.D{{Key: "status", Value: models.StatusConfirmed}}),
		},
		// Reminder sweep query pattern.
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "reminder_sent", Value: 1}, {Key: "scheduled_at", Value: 1}},
			Options: options.Index().SetName("status_reminder_scheduled_idx"),
		},
		// Per-user listing.
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "scheduled_at", Value: -1}},
			Options: options.Index().SetName("user_scheduled_idx"),
		},
	}

	if _, err := r.coll.Indexes().CreateMany(ctx, indexModels); err != nil {
		return fmt.Errorf("failed to create appointment indexes: %w", err)
	}
	return nil
}
