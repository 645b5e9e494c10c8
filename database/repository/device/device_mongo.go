package deviceRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"nudge/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// MongoDeviceRepo implements DeviceRepository using MongoDB.
type MongoDeviceRepo struct {
	coll *mongo.Collection
}

// NewMongoDeviceRepo creates a new instance of DeviceRepository using MongoDB.
func NewMongoDeviceRepo(db *mongo.Database) DeviceRepository {
	repo := &MongoDeviceRepo{coll: db.Collection("devices")}

	if err := repo.ensureIndexes(); err != nil {
		zap.L().Warn("devices: failed to create indexes", zap.Error(err))
	}
	return repo
}

// newContext bounds a single repository call when the caller passed no deadline.
func newContext(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := parent.Deadline(); ok {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, timeout)
}

// ensureIndexes creates indexes for fields frequently used in queries.
func (r *MongoDeviceRepo) ensureIndexes() error {
	ctx, cancel := newContext(context.Background(), 10*time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "token", Value: 1}}},
	}

	if _, err := r.coll.Indexes().CreateMany(ctx, indexModels); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

func (r *MongoDeviceRepo) Upsert(ctx context.Context, device models.Device) error {
	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()

	set := bson.M{
		"token":     device.Token,
		"platform":  device.Platform,
		"updatedAt": device.UpdatedAt,
	}
	if device.OwnerID != "" {
		set["ownerId"] = device.OwnerID
	}

	_, err := r.coll.UpdateOne(ctx,
		bson.M{"id": device.ID},
		bson.M{"$set": set, "$setOnInsert": bson.M{"id": device.ID}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert device %s: %w", device.ID, err)
	}
	return nil
}

func (r *MongoDeviceRepo) Delete(ctx context.Context, id string) error {
	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()

	if _, err := r.coll.DeleteOne(ctx, bson.M{"id": id}); err != nil {
		return fmt.Errorf("failed to delete device %s: %w", id, err)
	}
	return nil
}

func (r *MongoDeviceRepo) DeleteByToken(ctx context.Context, token string) (int64, error) {
	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()

	res, err := r.coll.DeleteMany(ctx, bson.M{"token": token})
	if err != nil {
		return 0, fmt.Errorf("failed to delete devices by token: %w", err)
	}
	return res.DeletedCount, nil
}

func (r *MongoDeviceRepo) GetByID(ctx context.Context, id string) (*models.Device, error) {
	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()

	var device models.Device
	if err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&device); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("device %s: %w", id, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to fetch device with id %s: %w", id, err)
	}
	return &device, nil
}

func (r *MongoDeviceRepo) ListTokens(ctx context.Context) ([]string, error) {
	ctx, cancel := newContext(ctx, 10*time.Second)
	defer cancel()

	opts := options.Find().SetProjection(bson.M{"token": 1, "_id": 0})
	cursor, err := r.coll.Find(ctx, bson.M{"token": bson.M{"$nin": bson.A{"", nil}}}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list device tokens: %w", err)
	}
	defer cursor.Close(ctx)

	var tokens []string
	for cursor.Next(ctx) {
		var d models.Device
		if err := cursor.Decode(&d); err != nil {
			return nil, fmt.Errorf("failed to decode device: %w", err)
		}
		tokens = append(tokens, d.Token)
	}
	return tokens, cursor.Err()
}
