package loyaltyRepo

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

// errAlreadyCredited signals the duplicate-credit no-op path inside the
// transaction closure.
var errAlreadyCredited = errors.New("appointment already credited")

// MongoLoyaltyRepo implements LoyaltyRepository using MongoDB. The ledger
// collection and the users collection are written in one transaction so
// the cached balance and the log always agree at rest.
type MongoLoyaltyRepo struct {
	coll     *mongo.Collection
	userColl *mongo.Collection
}

// NewMongoLoyaltyRepo constructs the repository over the given database
// handle and ensures its indexes.
func NewMongoLoyaltyRepo(db *mongo.Database) (*MongoLoyaltyRepo, error) {
	repo := &MongoLoyaltyRepo{
		coll:     db.Collection("loyalty_transactions"),
		userColl: db.Collection("users"),
	}
	if err := repo.ensureIndexes(); err != nil {
		return nil, err
	}
	return repo, nil
}

func (r *MongoLoyaltyRepo) ensureIndexes() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}, Options: options.Index().SetName("user_created_idx")},
		// One credit per appointment, enforced at the storage layer as
		// well as in the transaction.
		{
			Keys: bson.D{{Key: "appointment_id", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetName("unique_appointment_credit").
				SetPartialFilterExpression(bson.D{{Key: "type", Value: models.LoyaltyAppointmentCredit}}),
		},
	}

	if _, err := r.coll.Indexes().CreateMany(ctx, indexModels); err != nil {
		return fmt.Errorf("failed to create loyalty indexes: %w", err)
	}
	return nil
}

func (r *MongoLoyaltyRepo) Append(ctx context.Context, tx *models.LoyaltyTransaction) (bool, error) {
	client := r.coll.Database().Client()

	err := repository.RunTxn(ctx, client, func(sc mongo.SessionContext) error {
		if tx.Type == models.LoyaltyAppointmentCredit && tx.AppointmentID != "" {
			dupFilter := bson.M{
				"appointment_id": tx.AppointmentID,
				"type":           models.LoyaltyAppointmentCredit,
			}
			if err := r.coll.FindOne(sc, dupFilter).Err(); err == nil {
				return errAlreadyCredited
			} else if !errors.Is(err, mongo.ErrNoDocuments) {
				return fmt.Errorf("duplicate credit check failed: %w", err)
			}
		}

		if tx.Points < 0 {
			var user models.User
			if err := r.userColl.FindOne(sc, bson.M{"id": tx.UserID}).Decode(&user); err != nil {
				if errors.Is(err, mongo.ErrNoDocuments) {
					return repository.ErrNotFound
				}
				return fmt.Errorf("balance check failed: %w", err)
			}
			if user.LoyaltyPoints+tx.Points < 0 {
				return repository.ErrInsufficientBalance
			}
		}

		if _, err := r.coll.InsertOne(sc, tx); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return errAlreadyCredited
			}
			return fmt.Errorf("insert loyalty transaction failed: %w", err)
		}

		res, err := r.userColl.UpdateOne(sc,
			bson.M{"id": tx.UserID},
			bson.M{"$inc": bson.M{"loyalty_points": tx.Points}},
		)
		if err != nil {
			return fmt.Errorf("balance update failed: %w", err)
		}
		if res.MatchedCount == 0 {
			return repository.ErrNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, errAlreadyCredited) {
			return false, nil
		}
		switch {
		case errors.Is(err, repository.ErrInsufficientBalance),
			errors.Is(err, repository.ErrNotFound),
			errors.Is(err, repository.ErrStoreContention):
			return false, err
		}
		return false, fmt.Errorf("loyalty transaction failed: %w", err)
	}
	return true, nil
}

func (r *MongoLoyaltyRepo) ListByUser(ctx context.Context, userID string) ([]models.LoyaltyTransaction, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.coll.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("error querying loyalty transactions: %w", err)
	}
	defer cursor.Close(ctx)

	var txs []models.LoyaltyTransaction
	if err := cursor.All(ctx, &txs); err != nil {
		return nil, fmt.Errorf("error decoding loyalty transactions: %w", err)
	}
	return txs, nil
}

func (r *MongoLoyaltyRepo) SumByUser(ctx context.Context, userID string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.D{{Key: "user_id", Value: userID}}}},
		bson.D{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$user_id"},
			{Key: "total", Value: bson.D{{Key: "$sum", Value: "$points"}}},
		}}},
	}
	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, fmt.Errorf("error aggregating loyalty balance: %w", err)
	}
	defer cursor.Close(ctx)

	var results []struct {
		Total int64 `bson:"total"`
	}
	if err := cursor.All(ctx, &results); err != nil {
		return 0, fmt.Errorf("error decoding loyalty balance: %w", err)
	}
	if len(results) == 0 {
		return 0, nil
	}
	return results[0].Total, nil
}
