package repository

import (
	"context"
	"fmt"
	"time"

	reserrors "yoyaku/internal/reservations/errors"
	"yoyaku/pkg/config"
	"yoyaku/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	SlotLockCollection = "Slot_locks"

	// slotLockTTL bounds how long a crashed holder can block a slot.
	slotLockTTL = 10 * time.Second
)

// SlotLockRepository provides per-slot advisory locks. Reservations for the
// same slot serialize on the lock so the capacity re-check inside the
// transaction always observes the latest committed count; snapshot reads
// alone cannot see a concurrent insert of a different document.
type SlotLockRepository interface {
	// Acquire takes the lock for a slot or fails with ErrSlotLocked when
	// another reservation holds it.
	Acquire(ctx context.Context, key model.SlotKey) (string, error)
	Release(ctx context.Context, lockID string) error
}

type mongoSlotLockRepository struct {
	collection *mongo.Collection
}

func NewMongoSlotLockRepository(cfg *config.Config) SlotLockRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoSlotLockRepository{
		collection: db.Collection(SlotLockCollection),
	}
}

// Acquire inserts a lock document keyed by the slot. The unique _id makes
// the insert the atomic test-and-set; a duplicate key means another request
// holds the slot.
func (r *mongoSlotLockRepository) Acquire(ctx context.Context, key model.SlotKey) (string, error) {
	lock := &model.SlotLock{
		ID:        "slot_lock_" + key.String(),
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(slotLockTTL),
	}

	_, err := r.collection.InsertOne(ctx, lock)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", reserrors.ErrSlotLocked
		}
		return "", fmt.Errorf("failed to acquire slot lock: %w", err)
	}

	return lock.ID, nil
}

func (r *mongoSlotLockRepository) Release(ctx context.Context, lockID string) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": lockID})
	return err
}
