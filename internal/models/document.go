package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	FileKindImage = "image"
	FileKindPDF   = "pdf"
)

// Document is an uploaded file a doctor attached to a patient. The bytes
// live in object storage; only the public URL is kept here.
type Document struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name      string             `bson:"name" json:"name"`
	URL       string             `bson:"url" json:"url"`
	Patient   primitive.ObjectID `bson:"patient" json:"patient"`
	Doctor    primitive.ObjectID `bson:"doctor" json:"doctor"`
	FileKind  string             `bson:"fileType" json:"fileType"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}
