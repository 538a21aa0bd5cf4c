package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	reserrors "yoyaku/internal/reservations/errors"
	"yoyaku/pkg/config"
	"yoyaku/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	SettingsCollection = "Settings"

	businessHoursDocID = "business_hours"
)

type BusinessHoursRepository interface {
	// Get returns the stored hours, or ErrNotFound when the admin has
	// never overridden the defaults.
	Get(ctx context.Context) (*model.BusinessHours, error)
	// Upsert replaces the single hours document, last-write-wins.
	Upsert(ctx context.Context, hours *model.BusinessHours) error
}

type mongoBusinessHoursRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoBusinessHoursRepository(cfg *config.Config) BusinessHoursRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoBusinessHoursRepository{
		cfg:        cfg,
		collection: db.Collection(SettingsCollection),
	}
}

func (r *mongoBusinessHoursRepository) Get(ctx context.Context) (*model.BusinessHours, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var hours model.BusinessHours
	err := r.collection.FindOne(ctx, bson.M{"_id": businessHoursDocID}).Decode(&hours)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, reserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to read business hours: %w", err)
	}

	return &hours, nil
}

func (r *mongoBusinessHoursRepository) Upsert(ctx context.Context, hours *model.BusinessHours) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	update := bson.M{
		"$set": bson.M{
			"opening_time": hours.OpeningTime,
			"closing_time": hours.ClosingTime,
			"updated_by":   hours.UpdatedBy,
			"updated_at":   time.Now().UTC(),
		},
	}

	_, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": businessHoursDocID},
		update,
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert business hours: %w", err)
	}

	return nil
}
