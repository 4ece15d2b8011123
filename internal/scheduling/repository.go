package scheduling

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/healthcareclinic/clinic-api/internal/models"
)

// Repository is the Mongo-backed appointment store. It implements the
// Store interface for the Manager and additionally serves the read paths
// used by handlers (listings, counts, export).
type Repository struct {
	coll *mongo.Collection
}

func NewRepository(db *mongo.Database) *Repository {
	return &Repository{coll: db.Collection("appointments")}
}

func (r *Repository) Insert(ctx context.Context, apt *models.Appointment) error {
	now := time.Now()
	apt.CreatedAt = now
	apt.UpdatedAt = now
	_, err := r.coll.InsertOne(ctx, apt)
	return err
}

func (r *Repository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Appointment, error) {
	var apt models.Appointment
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&apt)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &apt, nil
}

// UpdateDate moves the appointment, guarded by the caller's observed
// revision. Revision 0 skips the guard (admin moderation).
func (r *Repository) UpdateDate(ctx context.Context, id primitive.ObjectID, observedRevision int64, date time.Time) error {
	return r.guardedUpdate(ctx, id, observedRevision, bson.M{"date": date})
}

func (r *Repository) UpdateStatus(ctx context.Context, id primitive.ObjectID, observedRevision int64, status string) error {
	return r.guardedUpdate(ctx, id, observedRevision, bson.M{"status": status})
}

func (r *Repository) guardedUpdate(ctx context.Context, id primitive.ObjectID, observedRevision int64, set bson.M) error {
	filter := bson.M{"_id": id}
	if observedRevision > 0 {
		filter["revision"] = observedRevision
	}
	set["updatedAt"] = time.Now()

	res, err := r.coll.UpdateOne(ctx, filter, bson.M{
		"$set": set,
		"$inc": bson.M{"revision": 1},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		// Distinguish a vanished record from a lost race.
		if _, findErr := r.FindByID(ctx, id); findErr != nil {
			return findErr
		}
		return ErrStaleRevision
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) ListByPatient(ctx context.Context, patientID primitive.ObjectID) ([]models.Appointment, error) {
	return r.list(ctx, bson.M{"patient": patientID}, 0)
}

func (r *Repository) ListByDoctor(ctx context.Context, doctorID primitive.ObjectID) ([]models.Appointment, error) {
	return r.list(ctx, bson.M{"doctor": doctorID}, 0)
}

// ListRecent returns the newest appointments for the admin dashboard.
func (r *Repository) ListRecent(ctx context.Context, limit int64) ([]models.Appointment, error) {
	return r.list(ctx, bson.M{}, limit)
}

func (r *Repository) ListAll(ctx context.Context) ([]models.Appointment, error) {
	return r.list(ctx, bson.M{}, 0)
}

func (r *Repository) CountAll(ctx context.Context) (int64, error) {
	return r.coll.CountDocuments(ctx, bson.M{})
}

// CountToday counts appointments scheduled within the current local day.
func (r *Repository) CountToday(ctx context.Context, now time.Time) (int64, error) {
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)
	return r.coll.CountDocuments(ctx, bson.M{
		"date": bson.M{"$gte": dayStart, "$lt": dayEnd},
	})
}

func (r *Repository) CountByDoctor(ctx context.Context, doctorID primitive.ObjectID) (int64, error) {
	return r.coll.CountDocuments(ctx, bson.M{"doctor": doctorID})
}

// DistinctPatients lists the unique patient IDs a doctor has appointments
// with, for the document-upload patient picker and doctor analytics.
func (r *Repository) DistinctPatients(ctx context.Context, doctorID primitive.ObjectID) ([]primitive.ObjectID, error) {
	raw, err := r.coll.Distinct(ctx, "patient", bson.M{"doctor": doctorID})
	if err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, 0, len(raw))
	for _, v := range raw {
		if id, ok := v.(primitive.ObjectID); ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (r *Repository) list(ctx context.Context, filter bson.M, limit int64) ([]models.Appointment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	appointments := make([]models.Appointment, 0)
	if err := cursor.All(ctx, &appointments); err != nil {
		return nil, err
	}
	return appointments, nil
}
