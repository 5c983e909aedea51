package appointmentRepo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"garagehub/database/repository"
	"garagehub/models"
)

// BookSlot performs the slot ledger's check-then-insert inside one
// transaction: find any confirmed appointment at exactly the requested
// instant, abort with ErrSlotTaken if present, otherwise insert the new
// record as confirmed. The partial unique index on scheduled_at backstops
// the check; a duplicate-key error maps to ErrSlotTaken as well.
func (r *MongoAppointmentRepo) BookSlot(ctx context.Context, appt *models.Appointment) error {
	err := r.runTxn(ctx, func(sc mongo.SessionContext) error {
		filter := bson.M{
			"scheduled_at": appt.ScheduledAt,
			"status":       models.StatusConfirmed,
		}
		if err := r.coll.FindOne(sc, filter).Err(); err == nil {
			return repository.ErrSlotTaken
		} else if !errors.Is(err, mongo.ErrNoDocuments) {
			return fmt.Errorf("slot check failed: %w", err)
		}

		if _, err := r.coll.InsertOne(sc, appt); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return repository.ErrSlotTaken
			}
			return fmt.Errorf("insert appointment failed: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrSlotTaken) || errors.Is(err, repository.ErrStoreContention) {
			return err
		}
		return fmt.Errorf("booking transaction failed: %w", err)
	}
	return nil
}

// ApplyChange applies an edit to a confirmed appointment. A scheduled-time
// change is a slot claim on the new instant, so the free-slot check and the
// update run in the same transaction. The update filter pins the pre-change
// snapshot (status and scheduled time), so a concurrently moved or closed
// appointment surfaces as ErrNotActive instead of being overwritten.
func (r *MongoAppointmentRepo) ApplyChange(ctx context.Context, current *models.Appointment, change models.AppointmentChange) (*models.Appointment, error) {
	set := bson.M{}
	updated := *current
	if change.ScheduledAt != nil {
		set["scheduled_at"] = *change.ScheduledAt
		updated.ScheduledAt = *change.ScheduledAt
	}
	if change.ServiceType != nil {
		set["service_type"] = *change.ServiceType
		updated.ServiceType = *change.ServiceType
	}
	if change.Notes != nil {
		set["notes"] = *change.Notes
		updated.Notes = *change.Notes
	}
	if change.Vehicle != nil {
		set["vehicle"] = *change.Vehicle
		updated.Vehicle = *change.Vehicle
	}
	if len(set) == 0 {
		return current, nil
	}

	err := r.runTxn(ctx, func(sc mongo.SessionContext) error {
		if change.ScheduledAt != nil && !change.ScheduledAt.Equal(current.ScheduledAt) {
			slotFilter := bson.M{
				"scheduled_at": *change.ScheduledAt,
				"status":       models.StatusConfirmed,
				"id":           bson.M{"$ne": current.ID},
			}
			if err := r.coll.FindOne(sc, slotFilter).Err(); err == nil {
				return repository.ErrSlotTaken
			} else if !errors.Is(err, mongo.ErrNoDocuments) {
				return fmt.Errorf("slot check failed: %w", err)
			}
		}

		filter := bson.M{
			"id":           current.ID,
			"status":       models.StatusConfirmed,
			"scheduled_at": current.ScheduledAt,
		}
		res, err := r.coll.UpdateOne(sc, filter, bson.M{"$set": set})
		if err != nil {
			return fmt.Errorf("update appointment failed: %w", err)
		}
		if res.MatchedCount == 0 {
			return repository.ErrNotActive
		}
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrSlotTaken),
			errors.Is(err, repository.ErrNotActive),
			errors.Is(err, repository.ErrStoreContention):
			return nil, err
		}
		return nil, fmt.Errorf("modification transaction failed: %w", err)
	}
	return &updated, nil
}

func (r *MongoAppointmentRepo) runTxn(ctx context.Context, fn func(mongo.SessionContext) error) error {
	return repository.RunTxn(ctx, r.coll.Database().Client(), fn)
}
