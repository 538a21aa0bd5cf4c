package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"yoyaku/pkg/config"
	"yoyaku/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	SlotStatusCollection = "Slot_statuses"
)

type SlotStatusRepository interface {
	// Get returns the override for a slot, defaulting to available when no
	// record exists.
	Get(ctx context.Context, key model.SlotKey) (model.SlotState, error)
	// ListByDate returns every override recorded for a date, keyed by slot
	// time. Corrupted records are dropped.
	ListByDate(ctx context.Context, date string) (map[string]model.SlotState, error)
	// Upsert writes the new state in a single atomic operation,
	// last-write-wins. No read-then-create fallback.
	Upsert(ctx context.Context, key model.SlotKey, state model.SlotState, updatedBy string) error
}

type mongoSlotStatusRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoSlotStatusRepository(cfg *config.Config) SlotStatusRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoSlotStatusRepository{
		cfg:        cfg,
		collection: db.Collection(SlotStatusCollection),
	}
}

func (r *mongoSlotStatusRepository) Get(ctx context.Context, key model.SlotKey) (model.SlotState, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var status model.SlotStatus
	err := r.collection.FindOne(ctx, bson.M{"_id": key.String()}).Decode(&status)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return model.SlotAvailable, nil
		}
		return "", fmt.Errorf("failed to read slot status: %w", err)
	}

	if !status.State.IsValid() {
		r.cfg.Log.Warn("Dropping corrupted slot status record",
			"slot", key.String(),
			"state", string(status.State),
		)
		return model.SlotAvailable, nil
	}

	return status.State, nil
}

func (r *mongoSlotStatusRepository) ListByDate(ctx context.Context, date string) (map[string]model.SlotState, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	cursor, err := r.collection.Find(ctx, bson.M{"date": date})
	if err != nil {
		return nil, fmt.Errorf("failed to list slot statuses: %w", err)
	}
	defer cursor.Close(ctx)

	var statuses []*model.SlotStatus
	if err = cursor.All(ctx, &statuses); err != nil {
		return nil, fmt.Errorf("failed to decode slot statuses: %w", err)
	}

	states := make(map[string]model.SlotState, len(statuses))
	for _, status := range statuses {
		if !status.State.IsValid() {
			r.cfg.Log.Warn("Dropping corrupted slot status record",
				"slot", status.ID,
				"state", string(status.State),
			)
			continue
		}
		states[status.Time] = status.State
	}

	return states, nil
}

func (r *mongoSlotStatusRepository) Upsert(ctx context.Context, key model.SlotKey, state model.SlotState, updatedBy string) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	update := bson.M{
		"$set": bson.M{
			"date":       key.Date,
			"time":       key.Time,
			"state":      state,
			"updated_by": updatedBy,
			"updated_at": time.Now().UTC(),
		},
	}

	_, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": key.String()},
		update,
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert slot status: %w", err)
	}

	return nil
}
