package repository

import (
	"context"
	"errors"
	"fmt"
	"time"
	tourserrors "tourbook/internal/tours/errors"
	"tourbook/pkg/config"
	"tourbook/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Tours"
)

type TourRepository interface {
	Create(ctx context.Context, tour *model.Tour) error
	FindByID(ctx context.Context, id string) (*model.Tour, error)
	FindAll(ctx context.Context) ([]*model.Tour, error)
	Update(ctx context.Context, id string, tour *model.Tour) error
	Delete(ctx context.Context, id string) error
}

type mongoTourRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoTourRepository(cfg *config.Config) TourRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoTourRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

// withTimeout bounds a call by timeout without extending an earlier deadline
// already set on ctx.
func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < timeout {
		return context.WithDeadline(ctx, deadline)
	}
	return context.WithTimeout(ctx, timeout)
}

func objectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %s", tourserrors.ErrInvalidID, id)
	}
	return oid, nil
}

func (r *mongoTourRepository) Create(ctx context.Context, tour *model.Tour) error {
	ctx, cancel := withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	tour.CreatedAt = now
	tour.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, tour)
	if err != nil {
		return fmt.Errorf("failed to create tour: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		tour.ID = oid.Hex()
	}
	return nil
}

func (r *mongoTourRepository) FindByID(ctx context.Context, id string) (*model.Tour, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}

	var tour model.Tour
	if err := r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&tour); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, tourserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find tour: %w", err)
	}
	return &tour, nil
}

func (r *mongoTourRepository) FindAll(ctx context.Context) ([]*model.Tour, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find tours: %w", err)
	}
	defer cursor.Close(ctx)

	tours := make([]*model.Tour, 0)
	if err := cursor.All(ctx, &tours); err != nil {
		return nil, fmt.Errorf("failed to decode tours: %w", err)
	}
	return tours, nil
}

func (r *mongoTourRepository) Update(ctx context.Context, id string, tour *model.Tour) error {
	ctx, cancel := withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	oid, err := objectID(id)
	if err != nil {
		return err
	}

	tour.UpdatedAt = time.Now().UTC().Truncate(time.Millisecond)
	update := bson.M{
		"$set": bson.M{
			"name":            tour.Name,
			"description":     tour.Description,
			"price":           tour.Price,
			"destination":     tour.Destination,
			"duration_days":   tour.DurationDays,
			"available_slots": tour.AvailableSlots,
			"updated_at":      tour.UpdatedAt,
		},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return fmt.Errorf("failed to update tour: %w", err)
	}
	if result.MatchedCount == 0 {
		return tourserrors.ErrNotFound
	}
	return nil
}

func (r *mongoTourRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	oid, err := objectID(id)
	if err != nil {
		return err
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("failed to delete tour: %w", err)
	}
	if result.DeletedCount == 0 {
		return tourserrors.ErrNotFound
	}
	return nil
}
