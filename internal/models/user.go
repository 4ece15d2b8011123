package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	RolePatient = "patient"
	RoleDoctor  = "doctor"
	RoleAdmin   = "admin"
)

// User is a patient or doctor account. Admins live in their own
// collection, see Admin.
type User struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name       string             `bson:"name" json:"name"`
	Age        int                `bson:"age" json:"age"`
	Gender     string             `bson:"gender" json:"gender"`
	Role       string             `bson:"role" json:"role"`
	Email      string             `bson:"email" json:"email"` // stored lowercased, unique
	Mobile     string             `bson:"mobile" json:"mobile"`
	NationalID string             `bson:"nationalId" json:"nationalId"` // 12 digits, unique
	Password   string             `bson:"password" json:"-"`
	Blocked    bool               `bson:"blocked" json:"blocked"`

	// Doctor profile fields, empty for patients.
	ImageURL       string `bson:"img,omitempty" json:"img,omitempty"`
	ShortDesc      string `bson:"shortDesc,omitempty" json:"shortDesc,omitempty"`
	Specialty      string `bson:"specialty,omitempty" json:"specialty,omitempty"`
	Experience     string `bson:"experience,omitempty" json:"experience,omitempty"`
	Qualifications string `bson:"qualifications,omitempty" json:"qualifications,omitempty"`

	// Pending OTP challenge, cleared after verification.
	OTPCode     string    `bson:"otp,omitempty" json:"-"`
	OTPExpires  time.Time `bson:"otpExpires,omitempty" json:"-"`
	OTPAttempts int       `bson:"otpAttempts,omitempty" json:"-"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// DoctorSummary is the public listing shape returned by GET /auth/doctors.
type DoctorSummary struct {
	ID        primitive.ObjectID `bson:"_id" json:"id"`
	Name      string             `bson:"name" json:"name"`
	Specialty string             `bson:"specialty,omitempty" json:"specialty,omitempty"`
	ShortDesc string             `bson:"shortDesc,omitempty" json:"shortDesc,omitempty"`
	ImageURL  string             `bson:"img,omitempty" json:"img,omitempty"`
}
