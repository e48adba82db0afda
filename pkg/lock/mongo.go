package lock

import (
	"context"
	"fmt"
	"time"
	"tourbook/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const CollectionName = "Booking_locks"

// MongoLocker keeps locks as documents keyed by _id. A TTL index on
// expires_at removes abandoned documents, but expiry is decided by the
// acquire filter, not by the index sweeper.
type MongoLocker struct {
	collection *mongo.Collection
	now        func() time.Time
}

func NewMongoLocker(db *mongo.Database) *MongoLocker {
	return &MongoLocker{
		collection: db.Collection(CollectionName),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Acquire upserts the lock document with a filter that only matches an expired
// one. While a live document exists the upsert tries to insert a second
// document with the same _id and the server rejects it as a duplicate key.
func (l *MongoLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if err := validate(key, ttl); err != nil {
		return "", err
	}

	now := l.now()
	lock := model.Lock{
		ID:        key,
		Token:     NewToken(),
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}

	filter := bson.M{
		"_id":        key,
		"expires_at": bson.M{"$lte": now},
	}
	update := bson.M{
		"$set": bson.M{
			"token":      lock.Token,
			"expires_at": lock.ExpiresAt,
			"created_at": lock.CreatedAt,
		},
	}

	_, err := l.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", ErrBusy
		}
		return "", fmt.Errorf("%w: acquire %s: %v", ErrUnavailable, key, err)
	}
	return lock.Token, nil
}

// Release is a single filtered delete, so ownership check and removal happen
// in one server-side operation.
func (l *MongoLocker) Release(ctx context.Context, key, token string) (bool, error) {
	if key == "" {
		return false, ErrInvalidKey
	}

	result, err := l.collection.DeleteOne(ctx, bson.M{"_id": key, "token": token})
	if err != nil {
		return false, fmt.Errorf("%w: release %s: %v", ErrUnavailable, key, err)
	}
	return result.DeletedCount == 1, nil
}
