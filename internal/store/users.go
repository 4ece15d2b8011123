package store

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/healthcareclinic/clinic-api/internal/models"
	"github.com/healthcareclinic/clinic-api/internal/otp"
)

type Users struct {
	coll *mongo.Collection
}

func NewUsers(db *mongo.Database) *Users {
	return &Users{coll: db.Collection("users")}
}

// EnsureIndexes creates the unique email and national-id indexes. Email is
// stored lowercased, which makes the unique index case-insensitive.
func (u *Users) EnsureIndexes(ctx context.Context) error {
	_, err := u.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "nationalId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	})
	return err
}

func (u *Users) Insert(ctx context.Context, user *models.User) error {
	user.Email = strings.ToLower(user.Email)
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	_, err := u.coll.InsertOne(ctx, user)
	return wrapErr(err)
}

func (u *Users) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var user models.User
	err := u.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if err != nil {
		return nil, wrapErr(err)
	}
	return &user, nil
}

func (u *Users) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := u.coll.FindOne(ctx, bson.M{"email": strings.ToLower(email)}).Decode(&user)
	if err != nil {
		return nil, wrapErr(err)
	}
	return &user, nil
}

func (u *Users) FindByEmailAndRole(ctx context.Context, email, role string) (*models.User, error) {
	var user models.User
	err := u.coll.FindOne(ctx, bson.M{"email": strings.ToLower(email), "role": role}).Decode(&user)
	if err != nil {
		return nil, wrapErr(err)
	}
	return &user, nil
}

func (u *Users) EmailExists(ctx context.Context, email string) (bool, error) {
	n, err := u.coll.CountDocuments(ctx, bson.M{"email": strings.ToLower(email)})
	return n > 0, err
}

func (u *Users) NationalIDExists(ctx context.Context, nationalID string) (bool, error) {
	n, err := u.coll.CountDocuments(ctx, bson.M{"nationalId": nationalID})
	return n > 0, err
}

// SetChallenge stores a fresh OTP challenge on the account, replacing any
// pending one.
func (u *Users) SetChallenge(ctx context.Context, id primitive.ObjectID, ch otp.Challenge) error {
	return u.updateOne(ctx, id, bson.M{"$set": bson.M{
		"otp":         ch.Code,
		"otpExpires":  ch.ExpiresAt,
		"otpAttempts": ch.Attempts,
		"updatedAt":   time.Now(),
	}})
}

// RecordAttempt persists the incremented failure counter after a wrong
// submission.
func (u *Users) RecordAttempt(ctx context.Context, id primitive.ObjectID, attempts int) error {
	return u.updateOne(ctx, id, bson.M{"$set": bson.M{"otpAttempts": attempts}})
}

// ClearChallenge removes the pending OTP after a successful verification.
func (u *Users) ClearChallenge(ctx context.Context, id primitive.ObjectID) error {
	return u.updateOne(ctx, id, bson.M{
		"$unset": bson.M{"otp": "", "otpExpires": "", "otpAttempts": ""},
		"$set":   bson.M{"updatedAt": time.Now()},
	})
}

func (u *Users) UpdatePassword(ctx context.Context, id primitive.ObjectID, hash string) error {
	return u.updateOne(ctx, id, bson.M{
		"$set":   bson.M{"password": hash, "updatedAt": time.Now()},
		"$unset": bson.M{"otp": "", "otpExpires": "", "otpAttempts": ""},
	})
}

// ListDoctorSummaries is the public doctor directory.
func (u *Users) ListDoctorSummaries(ctx context.Context) ([]models.DoctorSummary, error) {
	opts := options.Find().SetProjection(bson.M{
		"name": 1, "specialty": 1, "shortDesc": 1, "img": 1,
	})
	cursor, err := u.coll.Find(ctx, bson.M{"role": models.RoleDoctor}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	doctors := make([]models.DoctorSummary, 0)
	if err := cursor.All(ctx, &doctors); err != nil {
		return nil, err
	}
	return doctors, nil
}

func (u *Users) ListByRole(ctx context.Context, role string) ([]models.User, error) {
	cursor, err := u.coll.Find(ctx, bson.M{"role": role},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	users := make([]models.User, 0)
	if err := cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (u *Users) CountByRole(ctx context.Context, role string) (int64, error) {
	return u.coll.CountDocuments(ctx, bson.M{"role": role})
}

// SetBlocked flips the moderation flag. Repeating the call is a no-op,
// which keeps block/unblock idempotent.
func (u *Users) SetBlocked(ctx context.Context, id primitive.ObjectID, role string, blocked bool) error {
	res, err := u.coll.UpdateOne(ctx,
		bson.M{"_id": id, "role": role},
		bson.M{"$set": bson.M{"blocked": blocked, "updatedAt": time.Now()}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (u *Users) DeleteByRole(ctx context.Context, id primitive.ObjectID, role string) error {
	res, err := u.coll.DeleteOne(ctx, bson.M{"_id": id, "role": role})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateDoctorProfile applies the admin-editable profile fields. Only
// non-nil fields are written.
func (u *Users) UpdateDoctorProfile(ctx context.Context, id primitive.ObjectID, fields bson.M) error {
	if len(fields) == 0 {
		return nil
	}
	fields["updatedAt"] = time.Now()
	res, err := u.coll.UpdateOne(ctx,
		bson.M{"_id": id, "role": models.RoleDoctor},
		bson.M{"$set": fields})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (u *Users) updateOne(ctx context.Context, id primitive.ObjectID, update bson.M) error {
	res, err := u.coll.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
