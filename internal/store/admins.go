package store

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/healthcareclinic/clinic-api/internal/models"
	"github.com/healthcareclinic/clinic-api/internal/otp"
)

type Admins struct {
	coll *mongo.Collection
}

func NewAdmins(db *mongo.Database) *Admins {
	return &Admins{coll: db.Collection("admins")}
}

// EnsureSeed creates the back-office account on first boot. The password
// must already be hashed by the caller.
func (a *Admins) EnsureSeed(ctx context.Context, email, passwordHash, mobile string) error {
	email = strings.ToLower(email)
	err := a.coll.FindOne(ctx, bson.M{"email": email}).Err()
	if err == nil {
		return nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return err
	}

	admin := models.Admin{
		ID:       primitive.NewObjectID(),
		Email:    email,
		Password: passwordHash,
		Mobile:   mobile,
		Role:     models.RoleAdmin,
	}
	_, err = a.coll.InsertOne(ctx, admin)
	return wrapErr(err)
}

func (a *Admins) FindByEmail(ctx context.Context, email string) (*models.Admin, error) {
	var admin models.Admin
	err := a.coll.FindOne(ctx, bson.M{"email": strings.ToLower(email)}).Decode(&admin)
	if err != nil {
		return nil, wrapErr(err)
	}
	return &admin, nil
}

func (a *Admins) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Admin, error) {
	var admin models.Admin
	err := a.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&admin)
	if err != nil {
		return nil, wrapErr(err)
	}
	return &admin, nil
}

func (a *Admins) SetChallenge(ctx context.Context, id primitive.ObjectID, ch otp.Challenge) error {
	return a.updateOne(ctx, id, bson.M{"$set": bson.M{
		"otp":         ch.Code,
		"otpExpires":  ch.ExpiresAt,
		"otpAttempts": ch.Attempts,
	}})
}

func (a *Admins) RecordAttempt(ctx context.Context, id primitive.ObjectID, attempts int) error {
	return a.updateOne(ctx, id, bson.M{"$set": bson.M{"otpAttempts": attempts}})
}

func (a *Admins) ClearChallenge(ctx context.Context, id primitive.ObjectID) error {
	return a.updateOne(ctx, id, bson.M{"$unset": bson.M{
		"otp": "", "otpExpires": "", "otpAttempts": "",
	}})
}

// UpdateDetails changes password hash and/or mobile; empty values are left
// untouched.
func (a *Admins) UpdateDetails(ctx context.Context, id primitive.ObjectID, passwordHash, mobile string) error {
	set := bson.M{}
	if passwordHash != "" {
		set["password"] = passwordHash
	}
	if mobile != "" {
		set["mobile"] = mobile
	}
	if len(set) == 0 {
		return nil
	}
	return a.updateOne(ctx, id, bson.M{"$set": set})
}

func (a *Admins) updateOne(ctx context.Context, id primitive.ObjectID, update bson.M) error {
	res, err := a.coll.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
