package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	StatusPending  = "pending"
	StatusAccepted = "accepted"
	StatusRejected = "rejected"
)

// Appointment links a patient to a doctor with a contact snapshot taken at
// booking time. Revision guards concurrent reschedule/status updates:
// every mutation increments it and must match the revision the caller saw.
type Appointment struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Patient  primitive.ObjectID `bson:"patient" json:"patient"`
	Doctor   primitive.ObjectID `bson:"doctor" json:"doctor"`
	Name     string             `bson:"name" json:"name"`
	Email    string             `bson:"email" json:"email"`
	Mobile   string             `bson:"mobile" json:"mobile"`
	Gender   string             `bson:"gender" json:"gender"`
	Address  string             `bson:"address" json:"address"`
	Age      int                `bson:"age" json:"age"`
	Disease  string             `bson:"disease" json:"disease"`
	Date     time.Time          `bson:"date" json:"date"`
	Message  string             `bson:"message,omitempty" json:"message,omitempty"`
	Status   string             `bson:"status" json:"status"`
	Revision int64              `bson:"revision" json:"revision"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}
