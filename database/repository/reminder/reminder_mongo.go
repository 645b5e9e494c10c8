package reminderRepo

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

// MongoReminderRepo implements ReminderRepository using MongoDB.
type MongoReminderRepo struct {
	coll *mongo.Collection
}

// NewMongoReminderRepo creates a new instance of ReminderRepository using MongoDB.
func NewMongoReminderRepo(db *mongo.Database) ReminderRepository {
	repo := &MongoReminderRepo{coll: db.Collection("reminders")}

	if err := repo.ensureIndexes(); err != nil {
		zap.L().Warn("reminders: failed to create indexes", zap.Error(err))
	}
	return repo
}

func newContext(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := parent.Deadline(); ok {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, timeout)
}

func (r *MongoReminderRepo) ensureIndexes() error {
	ctx, cancel := newContext(context.Background(), 10*time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "sent", Value: 1}, {Key: "scheduledAt", Value: 1}}},
		{Keys: bson.D{{Key: "payload.taskId", Value: 1}, {Key: "sent", Value: 1}}},
		{Keys: bson.D{{Key: "payload.noteId", Value: 1}, {Key: "sent", Value: 1}}},
	}

	if _, err := r.coll.Indexes().CreateMany(ctx, indexModels); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

func (r *MongoReminderRepo) Create(ctx context.Context, rem *models.Reminder) error {
	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()

	if _, err := r.coll.InsertOne(ctx, rem); err != nil {
		return fmt.Errorf("failed to insert reminder: %w", err)
	}
	return nil
}

func (r *MongoReminderRepo) GetByID(ctx context.Context, id string) (*models.Reminder, error) {
	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()

	var rem models.Reminder
	if err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&rem); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("reminder %s: %w", id, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to fetch reminder %s: %w", id, err)
	}
	return &rem, nil
}

func (r *MongoReminderRepo) FindDue(ctx context.Context, now time.Time, limit int) ([]models.Reminder, error) {
	ctx, cancel := newContext(ctx, 10*time.Second)
	defer cancel()

	filter := bson.M{
		"sent":        false,
		"scheduledAt": bson.M{"$lte": now},
	}
	cursor, err := r.coll.Find(ctx, filter, options.Find().SetLimit(int64(limit)))
	if err != nil {
		return nil, fmt.Errorf("failed to query due reminders: %w", err)
	}
	defer cursor.Close(ctx)

	var due []models.Reminder
	if err := cursor.All(ctx, &due); err != nil {
		return nil, fmt.Errorf("failed to decode due reminders: %w", err)
	}
	return due, nil
}

func (r *MongoReminderRepo) updateUnsent(ctx context.Context, filter bson.M, update bson.M) (bool, error) {
	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()

	filter["sent"] = false
	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

func (r *MongoReminderRepo) MarkSent(ctx context.Context, id string, sentAt time.Time) (bool, error) {
	ok, err := r.updateUnsent(ctx, bson.M{"id": id}, bson.M{
		"$set":   bson.M{"sent": true, "sentAt": sentAt},
		"$unset": bson.M{"lastError": ""},
	})
	if err != nil {
		return false, fmt.Errorf("failed to mark reminder %s sent: %w", id, err)
	}
	return ok, nil
}

func (r *MongoReminderRepo) MarkFailed(ctx context.Context, id string, lastError string) (bool, error) {
	ok, err := r.updateUnsent(ctx, bson.M{"id": id}, bson.M{
		"$set": bson.M{"sent": true, "lastError": lastError},
	})
	if err != nil {
		return false, fmt.Errorf("failed to mark reminder %s failed: %w", id, err)
	}
	return ok, nil
}

func (r *MongoReminderRepo) Advance(ctx context.Context, id string, from, next time.Time) (bool, error) {
	ok, err := r.updateUnsent(ctx, bson.M{"id": id, "scheduledAt": from}, bson.M{
		"$set":   bson.M{"scheduledAt": next},
		"$unset": bson.M{"lastError": ""},
	})
	if err != nil {
		return false, fmt.Errorf("failed to advance reminder %s: %w", id, err)
	}
	return ok, nil
}

func (r *MongoReminderRepo) Delete(ctx context.Context, id string) error {
	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()

	if _, err := r.coll.DeleteOne(ctx, bson.M{"id": id}); err != nil {
		return fmt.Errorf("failed to delete reminder %s: %w", id, err)
	}
	return nil
}

func (r *MongoReminderRepo) DeleteUnsentBySource(ctx context.Context, field models.SourceField, value, ownerID string) (int64, error) {
	ctx, cancel := newContext(ctx, 10*time.Second)
	defer cancel()

	filter := bson.M{
		"payload." + string(field): value,
		"sent":                     false,
	}
	if ownerID != "" {
		filter["ownerId"] = ownerID
	}

	res, err := r.coll.DeleteMany(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to delete reminders by %s: %w", field, err)
	}
	return res.DeletedCount, nil
}
