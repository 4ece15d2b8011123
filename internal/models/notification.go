package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Notification kinds, matching the appointment transitions that raise them.
const (
	NotifyBooked      = "booked"
	NotifyRescheduled = "rescheduled"
	NotifyConfirmed   = "confirmed"
	NotifyRejected    = "rejected"
	NotifyCancelled   = "cancelled"
)

const (
	NotificationPending = "pending"
	NotificationSent    = "sent"
	NotificationFailed  = "failed"
)

// Notification is an outbox entry. Appointment mutations enqueue one and a
// background worker delivers it; a delivery failure never rolls back the
// mutation that raised it. The appointment details are snapshotted so the
// mail can still be rendered after the appointment is deleted (cancel).
type Notification struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Key         string             `bson:"key" json:"key"` // uuid, for log correlation
	Kind        string             `bson:"kind" json:"kind"`
	Recipient   string             `bson:"recipient" json:"recipient"`
	DoctorName  string             `bson:"doctorName" json:"doctorName"`
	Appointment Appointment        `bson:"appointment" json:"appointment"`

	Status        string    `bson:"status" json:"status"`
	Attempts      int       `bson:"attempts" json:"attempts"`
	NextAttemptAt time.Time `bson:"nextAttemptAt" json:"nextAttemptAt"`
	LastError     string    `bson:"lastError,omitempty" json:"lastError,omitempty"`
	CreatedAt     time.Time `bson:"createdAt" json:"createdAt"`
	SentAt        time.Time `bson:"sentAt,omitempty" json:"sentAt,omitempty"`
}
