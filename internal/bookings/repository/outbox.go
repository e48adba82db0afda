package repository

import (
	"context"
	"fmt"
	"time"
	bookingserrors "tourbook/internal/bookings/errors"
	"tourbook/pkg/config"
	"tourbook/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const OutboxCollectionName = "Notification_outbox"

// OutboxRepository keeps notification jobs that could not be enqueued when
// their booking was committed.
type OutboxRepository interface {
	Add(ctx context.Context, job model.NotificationJob) error
	// FindPending returns pending entries with fewer than maxAttempts
	// attempts, oldest first.
	FindPending(ctx context.Context, maxAttempts int, limit int) ([]*model.OutboxEntry, error)
	MarkSent(ctx context.Context, id string) error
	RecordFailure(ctx context.Context, id string, cause string) error
}

type mongoOutboxRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoOutboxRepository(cfg *config.Config) OutboxRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoOutboxRepository{
		cfg:        cfg,
		collection: db.Collection(OutboxCollectionName),
	}
}

func (r *mongoOutboxRepository) Add(ctx context.Context, job model.NotificationJob) error {
	ctx, cancel := withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	entry := model.OutboxEntry{
		Job:       job,
		Status:    model.OutboxStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if _, err := r.collection.InsertOne(ctx, entry); err != nil {
		return fmt.Errorf("failed to store outbox entry for booking %s: %w", job.BookingID, err)
	}
	return nil
}

func (r *mongoOutboxRepository) FindPending(ctx context.Context, maxAttempts int, limit int) ([]*model.OutboxEntry, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"status":   model.OutboxStatusPending,
		"attempts": bson.M{"$lt": maxAttempts},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}}).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find pending outbox entries: %w", err)
	}
	defer cursor.Close(ctx)

	entries := make([]*model.OutboxEntry, 0)
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode outbox entries: %w", err)
	}
	return entries, nil
}

func (r *mongoOutboxRepository) MarkSent(ctx context.Context, id string) error {
	return r.update(ctx, id, bson.M{
		"$set": bson.M{
			"status":     model.OutboxStatusSent,
			"updated_at": time.Now().UTC(),
		},
	})
}

func (r *mongoOutboxRepository) RecordFailure(ctx context.Context, id string, cause string) error {
	return r.update(ctx, id, bson.M{
		"$inc": bson.M{"attempts": 1},
		"$set": bson.M{
			"last_error": cause,
			"updated_at": time.Now().UTC(),
		},
	})
}

func (r *mongoOutboxRepository) update(ctx context.Context, id string, update bson.M) error {
	ctx, cancel := withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", bookingserrors.ErrOutboxEntryNotFound, id)
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return fmt.Errorf("failed to update outbox entry %s: %w", id, err)
	}
	if result.MatchedCount == 0 {
		return bookingserrors.ErrOutboxEntryNotFound
	}
	return nil
}
