package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"formini/internal/model"
)

const colUsers = "users"

type mongoUserRepository struct {
	col *mongo.Collection
}

// NewMongoUserRepository builds a MongoDB-backed repository on db.
func NewMongoUserRepository(db *mongo.Database) UserRepository {
	return &mongoUserRepository{col: db.Collection(colUsers)}
}

// EnsureMongoIndexes creates the unique and lookup indexes of the users collection.
func EnsureMongoIndexes(ctx context.Context, db *mongo.Database) error {
	type idx struct {
		keys   bson.D
		unique bool
		sparse bool
	}

	indexes := []idx{
		{bson.D{{Key: "email", Value: 1}}, true, false},
		{bson.D{{Key: "google_id", Value: 1}}, true, true},
		{bson.D{{Key: "facebook_id", Value: 1}}, true, true},
		{bson.D{{Key: "role", Value: 1}}, false, false},
		{bson.D{{Key: "instructor.registration_status", Value: 1}, {Key: "instructor.requested_at", Value: -1}}, false, false},
	}

	col := db.Collection(colUsers)
	for _, i := range indexes {
		m := mongo.IndexModel{Keys: i.keys}
		if i.unique {
			m.Options = options.Index().SetUnique(true).SetSparse(i.sparse)
		}
		if _, err := col.Indexes().CreateOne(ctx, m); err != nil {
			return fmt.Errorf("create index on %s: %w", colUsers, err)
		}
	}
	return nil
}

func wrapMongoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	return err
}

func (r *mongoUserRepository) findOne(ctx context.Context, filter bson.D) (*model.User, error) {
	var user model.User
	if err := r.col.FindOne(ctx, filter).Decode(&user); err != nil {
		return nil, wrapMongoError(err)
	}
	return &user, nil
}

func (r *mongoUserRepository) Create(ctx context.Context, user *model.User) error {
	user.Normalize()
	_, err := r.col.InsertOne(ctx, user)
	return wrapMongoError(err)
}

func (r *mongoUserRepository) Update(ctx context.Context, user *model.User) error {
	user.Normalize()
	user.UpdatedAt = time.Now()
	res, err := r.col.ReplaceOne(ctx, bson.D{{Key: "_id", Value: user.ID}}, user)
	if err != nil {
		return wrapMongoError(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoUserRepository) Delete(ctx context.Context, id string) error {
	res, err := r.col.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return wrapMongoError(err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoUserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	return r.findOne(ctx, bson.D{{Key: "_id", Value: id}})
}

func (r *mongoUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.findOne(ctx, bson.D{{Key: "email", Value: model.NormalizeEmail(email)}})
}

func (r *mongoUserRepository) FindByEmailOrFacebookID(ctx context.Context, email, facebookID string) (*model.User, error) {
	email = model.NormalizeEmail(email)
	if facebookID == "" {
		return r.FindByEmail(ctx, email)
	}
	return r.findOne(ctx, bson.D{{Key: "$or", Value: bson.A{
		bson.D{{Key: "email", Value: email}},
		bson.D{{Key: "facebook_id", Value: facebookID}},
	}}})
}

func (r *mongoUserRepository) ConsumeVerificationCode(ctx context.Context, email, code string, now time.Time) (*model.User, error) {
	filter := bson.D{
		{Key: "email", Value: model.NormalizeEmail(email)},
		{Key: "verification_code", Value: code},
		{Key: "verification_code_expires", Value: bson.D{{Key: "$gt", Value: now}}},
	}
	update := bson.D{
		{Key: "$set", Value: bson.D{
			{Key: "is_verified", Value: true},
			{Key: "updated_at", Value: now},
		}},
		{Key: "$unset", Value: bson.D{
			{Key: "verification_code", Value: ""},
			{Key: "verification_code_expires", Value: ""},
		}},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var user model.User
	if err := r.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&user); err != nil {
		return nil, wrapMongoError(err)
	}
	return &user, nil
}

func (r *mongoUserRepository) ListPendingInstructors(ctx context.Context) ([]*model.User, error) {
	filter := bson.D{
		{Key: "role", Value: model.RoleInstructor},
		{Key: "instructor.registration_status", Value: model.RegistrationPending},
	}
	opts := options.Find().SetSort(bson.D{{Key: "instructor.requested_at", Value: -1}})

	cursor, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, wrapMongoError(err)
	}
	defer cursor.Close(ctx)

	users := []*model.User{}
	for cursor.Next(ctx) {
		var u model.User
		if err := cursor.Decode(&u); err != nil {
			return nil, err
		}
		users = append(users, &u)
	}
	return users, cursor.Err()
}

func (r *mongoUserRepository) CountByRole(ctx context.Context, role model.Role) (int64, error) {
	n, err := r.col.CountDocuments(ctx, bson.D{{Key: "role", Value: role}})
	return n, wrapMongoError(err)
}

func (r *mongoUserRepository) DeleteStrayAdmins(ctx context.Context, keepEmail string) (int64, error) {
	res, err := r.col.DeleteMany(ctx, bson.D{
		{Key: "role", Value: model.RoleAdmin},
		{Key: "email", Value: bson.D{{Key: "$ne", Value: model.NormalizeEmail(keepEmail)}}},
	})
	if err != nil {
		return 0, wrapMongoError(err)
	}
	return res.DeletedCount, nil
}

func (r *mongoUserRepository) ClearInstructorFieldsForNonInstructors(ctx context.Context) (int64, error) {
	res, err := r.col.UpdateMany(ctx,
		bson.D{
			{Key: "role", Value: bson.D{{Key: "$ne", Value: model.RoleInstructor}}},
			{Key: "instructor", Value: bson.D{{Key: "$exists", Value: true}}},
		},
		bson.D{{Key: "$unset", Value: bson.D{{Key: "instructor", Value: ""}}}},
	)
	if err != nil {
		return 0, wrapMongoError(err)
	}
	return res.ModifiedCount, nil
}
