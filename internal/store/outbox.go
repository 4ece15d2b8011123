package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/healthcareclinic/clinic-api/internal/models"
)

// Outbox persists notification intents so appointment mutations never wait
// on the mail relay. A background worker drains it.
type Outbox struct {
	coll *mongo.Collection
}

func NewOutbox(db *mongo.Database) *Outbox {
	return &Outbox{coll: db.Collection("outbox")}
}

// Enqueue stores a pending notification, due immediately.
func (o *Outbox) Enqueue(ctx context.Context, n *models.Notification) error {
	now := time.Now()
	if n.ID.IsZero() {
		n.ID = primitive.NewObjectID()
	}
	if n.Key == "" {
		n.Key = uuid.NewString()
	}
	n.Status = models.NotificationPending
	n.Attempts = 0
	n.NextAttemptAt = now
	n.CreatedAt = now
	_, err := o.coll.InsertOne(ctx, n)
	return wrapErr(err)
}

// Due returns pending notifications whose next attempt time has passed.
func (o *Outbox) Due(ctx context.Context, now time.Time, limit int64) ([]models.Notification, error) {
	filter := bson.M{
		"status":        models.NotificationPending,
		"nextAttemptAt": bson.M{"$lte": now},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "nextAttemptAt", Value: 1}}).
		SetLimit(limit)
	cursor, err := o.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	due := make([]models.Notification, 0)
	if err := cursor.All(ctx, &due); err != nil {
		return nil, err
	}
	return due, nil
}

func (o *Outbox) MarkSent(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	_, err := o.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"status": models.NotificationSent,
		"sentAt": at,
	}})
	return err
}

// MarkRetry records a failed delivery and schedules the next attempt.
func (o *Outbox) MarkRetry(ctx context.Context, id primitive.ObjectID, attempts int, next time.Time, sendErr string) error {
	_, err := o.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"attempts":      attempts,
		"nextAttemptAt": next,
		"lastError":     sendErr,
	}})
	return err
}

// MarkFailed parks a notification that exhausted its retries.
func (o *Outbox) MarkFailed(ctx context.Context, id primitive.ObjectID, sendErr string) error {
	_, err := o.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"status":    models.NotificationFailed,
		"lastError": sendErr,
	}})
	return err
}
