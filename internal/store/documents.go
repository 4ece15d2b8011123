package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/healthcareclinic/clinic-api/internal/models"
)

type Documents struct {
	coll *mongo.Collection
}

func NewDocuments(db *mongo.Database) *Documents {
	return &Documents{coll: db.Collection("documents")}
}

func (d *Documents) Insert(ctx context.Context, doc *models.Document) error {
	if doc.ID.IsZero() {
		doc.ID = primitive.NewObjectID()
	}
	doc.CreatedAt = time.Now()
	_, err := d.coll.InsertOne(ctx, doc)
	return wrapErr(err)
}

func (d *Documents) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Document, error) {
	var doc models.Document
	err := d.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		return nil, wrapErr(err)
	}
	return &doc, nil
}

func (d *Documents) ListByPatient(ctx context.Context, patientID primitive.ObjectID) ([]models.Document, error) {
	return d.list(ctx, bson.M{"patient": patientID})
}

func (d *Documents) ListByDoctor(ctx context.Context, doctorID primitive.ObjectID) ([]models.Document, error) {
	return d.list(ctx, bson.M{"doctor": doctorID})
}

func (d *Documents) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := d.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (d *Documents) list(ctx context.Context, filter bson.M) ([]models.Document, error) {
	cursor, err := d.coll.Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	docs := make([]models.Document, 0)
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}
