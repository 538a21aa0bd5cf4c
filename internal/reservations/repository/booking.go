package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	reserrors "yoyaku/internal/reservations/errors"
	"yoyaku/pkg/config"
	mongotx "yoyaku/pkg/db/mongo"
	"yoyaku/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	BookingCollection = "Bookings"
)

type BookingRepository interface {
	// ReserveAtomically re-checks capacity and duplicates and inserts the
	// booking inside one transaction. Conflicting transactions are retried
	// up to the configured attempt limit before ErrConflict surfaces.
	ReserveAtomically(ctx context.Context, booking *model.Booking, capacity int) error
	FindByID(ctx context.Context, id string) (*model.Booking, error)
	FindByDate(ctx context.Context, date string) ([]*model.Booking, error)
	FindByRange(ctx context.Context, startDate, endDate string) ([]*model.Booking, error)
	CountConfirmed(ctx context.Context, key model.SlotKey) (int64, error)
	HasDuplicate(ctx context.Context, key model.SlotKey, customerName string) (bool, error)
	CountByFingerprint(ctx context.Context, fingerprint string) (int64, error)
	CountsByRange(ctx context.Context, startDate, endDate string) ([]*model.SlotCount, error)
	Delete(ctx context.Context, id string) error
}

type mongoBookingRepository struct {
	cfg        *config.Config
	db         *mongo.Database
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
	locks      SlotLockRepository
}

func NewMongoBookingRepository(cfg *config.Config) BookingRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoBookingRepository{
		cfg:        cfg,
		db:         db,
		collection: db.Collection(BookingCollection),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
		locks:      NewMongoSlotLockRepository(cfg),
	}
}

// withTimeout wraps the context with a timeout if not already in a transaction.
// SessionContext cannot be wrapped without breaking transaction semantics, so
// it is returned unchanged with a no-op cancel.
func (r *mongoBookingRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}

	deadline, hasDeadline := ctx.Deadline()
	if !hasDeadline {
		return context.WithTimeout(ctx, timeout)
	}

	remaining := time.Until(deadline)
	if remaining < timeout {
		return context.WithTimeout(ctx, remaining)
	}

	return context.WithTimeout(ctx, timeout)
}

func confirmedSlotFilter(key model.SlotKey) bson.M {
	return bson.M{
		"date":   key.Date,
		"time":   key.Time,
		"status": model.StatusConfirmed,
	}
}

func (r *mongoBookingRepository) ReserveAtomically(ctx context.Context, booking *model.Booking, capacity int) error {
	var lastErr error

	for attempt := 1; attempt <= r.cfg.ReserveMaxAttempts; attempt++ {
		// The advisory lock serializes writers contending for the same
		// slot. Transaction snapshots alone are not enough: two inserts of
		// distinct documents never write the same document, so Mongo
		// raises no write conflict and both would commit past capacity.
		lockID, err := r.locks.Acquire(ctx, booking.SlotKey())
		if err != nil {
			if !errors.Is(err, reserrors.ErrSlotLocked) {
				return err
			}
			lastErr = err
			r.cfg.Log.Warn("Slot lock held by a concurrent reservation, retrying",
				"slot", booking.SlotKey().String(),
				"attempt", attempt,
			)
			time.Sleep(r.cfg.ReserveBackoff * time.Duration(attempt))
			continue
		}

		err = r.txManager.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
			count, err := r.CountConfirmed(sessCtx, booking.SlotKey())
			if err != nil {
				return err
			}
			if count >= int64(capacity) {
				return reserrors.ErrCapacityFull
			}

			dup, err := r.HasDuplicate(sessCtx, booking.SlotKey(), booking.CustomerName)
			if err != nil {
				return err
			}
			if dup {
				return reserrors.ErrDuplicateBooking
			}

			return r.insert(sessCtx, booking)
		})
		if releaseErr := r.locks.Release(ctx, lockID); releaseErr != nil {
			r.cfg.Log.Warn("Failed to release slot lock", "lock_id", lockID, "error", releaseErr)
		}
		if err == nil {
			return nil
		}

		// Domain rejections are final, only transaction conflicts retry.
		if errors.Is(err, reserrors.ErrCapacityFull) || errors.Is(err, reserrors.ErrDuplicateBooking) {
			return err
		}
		if mongo.IsDuplicateKeyError(err) {
			// The unique index caught a concurrent insert of the same
			// (date, time, customer_name); that is a duplicate, not a
			// transient failure.
			return reserrors.ErrDuplicateBooking
		}
		if !mongotx.IsTransient(err) {
			return err
		}

		lastErr = err
		r.cfg.Log.Warn("Reservation transaction conflicted, retrying",
			"slot", booking.SlotKey().String(),
			"attempt", attempt,
		)
		time.Sleep(r.cfg.ReserveBackoff * time.Duration(attempt))
	}

	return fmt.Errorf("%w: %v", reserrors.ErrConflict, lastErr)
}

func (r *mongoBookingRepository) insert(ctx context.Context, booking *model.Booking) error {
	booking.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	result, err := r.collection.InsertOne(ctx, booking)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return err
		}
		return fmt.Errorf("failed to create booking: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		booking.ID = oid.Hex()
	}
	return nil
}

func (r *mongoBookingRepository) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", reserrors.ErrInvalidID, id)
	}

	var booking model.Booking
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&booking)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, reserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find booking: %w", err)
	}

	return &booking, nil
}

func (r *mongoBookingRepository) FindByDate(ctx context.Context, date string) ([]*model.Booking, error) {
	return r.findSorted(ctx, bson.M{"date": date})
}

func (r *mongoBookingRepository) FindByRange(ctx context.Context, startDate, endDate string) ([]*model.Booking, error) {
	filter := bson.M{
		"date": bson.M{"$gte": startDate, "$lte": endDate},
	}
	return r.findSorted(ctx, filter)
}

func (r *mongoBookingRepository) findSorted(ctx context.Context, filter bson.M) ([]*model.Booking, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "date", Value: 1}, {Key: "time", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find bookings: %w", err)
	}
	defer cursor.Close(ctx)

	var bookings []*model.Booking
	if err = cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("failed to decode bookings: %w", err)
	}

	return bookings, nil
}

func (r *mongoBookingRepository) CountConfirmed(ctx context.Context, key model.SlotKey) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, confirmedSlotFilter(key))
	if err != nil {
		return 0, fmt.Errorf("failed to count slot bookings: %w", err)
	}
	return count, nil
}

func (r *mongoBookingRepository) HasDuplicate(ctx context.Context, key model.SlotKey, customerName string) (bool, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := confirmedSlotFilter(key)
	filter["customer_name"] = customerName

	count, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return false, fmt.Errorf("failed to check duplicate booking: %w", err)
	}
	return count > 0, nil
}

func (r *mongoBookingRepository) CountByFingerprint(ctx context.Context, fingerprint string) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"client_fingerprint": fingerprint,
		"status":             model.StatusConfirmed,
	}

	count, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count bookings by fingerprint: %w", err)
	}
	return count, nil
}

func (r *mongoBookingRepository) CountsByRange(ctx context.Context, startDate, endDate string) ([]*model.SlotCount, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"date":   bson.M{"$gte": startDate, "$lte": endDate},
			"status": model.StatusConfirmed,
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":   bson.M{"date": "$date", "time": "$time"},
			"count": bson.M{"$sum": 1},
		}}},
		{{Key: "$project", Value: bson.M{
			"_id":   0,
			"date":  "$_id.date",
			"time":  "$_id.time",
			"count": 1,
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "date", Value: 1}, {Key: "time", Value: 1}}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate slot counts: %w", err)
	}
	defer cursor.Close(ctx)

	var counts []*model.SlotCount
	if err = cursor.All(ctx, &counts); err != nil {
		return nil, fmt.Errorf("failed to decode slot counts: %w", err)
	}
	return counts, nil
}

func (r *mongoBookingRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", reserrors.ErrInvalidID, id)
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return fmt.Errorf("failed to delete booking: %w", err)
	}

	if result.DeletedCount == 0 {
		return reserrors.ErrNotFound
	}

	return nil
}
