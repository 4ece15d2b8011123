package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Admin is the back-office account. It follows the same OTP login flow as
// users but is kept in a separate collection with its own update path.
type Admin struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email    string             `bson:"email" json:"email"`
	Password string             `bson:"password" json:"-"`
	Mobile   string             `bson:"mobile" json:"mobile"`
	Role     string             `bson:"role" json:"role"`

	OTPCode     string    `bson:"otp,omitempty" json:"-"`
	OTPExpires  time.Time `bson:"otpExpires,omitempty" json:"-"`
	OTPAttempts int       `bson:"otpAttempts,omitempty" json:"-"`
}
