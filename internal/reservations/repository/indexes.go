package repository

import (
	"context"
	"fmt"

	"yoyaku/pkg/config"
	"yoyaku/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes creates the indexes the reservation core relies on. The
// partial unique index on (date, time, customer_name) for confirmed rows is
// the storage-level backstop for the duplicate invariant; the query indexes
// back the range and fingerprint lookups.
func EnsureIndexes(ctx context.Context, cfg *config.Config) error {
	collection := cfg.Client.Mongo.Database(cfg.MongoDatabaseName).Collection(BookingCollection)

	_, err := collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "date", Value: 1},
				{Key: "time", Value: 1},
				{Key: "customer_name", Value: 1},
			},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"status": model.StatusConfirmed}),
		},
		{
			Keys: bson.D{
				{Key: "date", Value: 1},
				{Key: "time", Value: 1},
				{Key: "status", Value: 1},
			},
			Options: options.Index(),
		},
		{
			Keys: bson.D{
				{Key: "client_fingerprint", Value: 1},
				{Key: "status", Value: 1},
			},
			Options: options.Index(),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create booking indexes: %w", err)
	}

	// TTL index reaps advisory locks whose holder died before releasing.
	locks := cfg.Client.Mongo.Database(cfg.MongoDatabaseName).Collection(SlotLockCollection)
	_, err = locks.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expires_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0),
	})
	if err != nil {
		return fmt.Errorf("failed to create slot lock index: %w", err)
	}

	cfg.Log.Info("Booking indexes ensured", "collection", BookingCollection)
	return nil
}
