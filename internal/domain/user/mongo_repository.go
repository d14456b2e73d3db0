package user

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/arkvault/userstore/internal/domain/shared"
)

// MongoRepository implements Repository on a MongoDB collection with one
// document per user aggregate
type MongoRepository struct {
	coll *mongo.Collection
}

// NewMongoRepository creates a new MongoDB-backed user repository
func NewMongoRepository(db *mongo.Database, collection string) *MongoRepository {
	return &MongoRepository{
		coll: db.Collection(collection),
	}
}

// EnsureIndexes creates the unique secondary indexes the query adapter
// relies on. Safe to call on every startup.
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	models := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true),
		},
		{
			Keys: bson.D{{Key: "logins.provider", Value: 1}, {Key: "logins.key", Value: 1}},
		},
	}

	if _, err := r.coll.Indexes().CreateMany(ctx, models); err != nil {
		return shared.ClassifyStoreError(err)
	}

	return nil
}

// Create inserts a new user document
func (r *MongoRepository) Create(ctx context.Context, u *User) error {
	if u == nil {
		return shared.ErrInvalidInput("user cannot be nil")
	}

	if _, err := r.coll.InsertOne(ctx, u); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return shared.ErrAlreadyExists("user")
		}
		return shared.ClassifyStoreError(err)
	}

	return nil
}

// Replace performs a full-document overwrite conditioned on the version the
// aggregate was read at. The write carries version+1; a zero-document match
// is disambiguated into CONFLICT (still present, version moved) or NOT_FOUND
// (document gone).
func (r *MongoRepository) Replace(ctx context.Context, u *User) (*User, error) {
	if u == nil {
		return nil, shared.ErrInvalidInput("user cannot be nil")
	}

	next := u.Clone()
	next.Version = u.Version + 1

	filter := bson.M{"_id": u.ID.String(), "version": u.Version}

	previous := &User{}
	err := r.coll.FindOneAndReplace(ctx, filter, next).Decode(previous)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			count, countErr := r.coll.CountDocuments(ctx, bson.M{"_id": u.ID.String()})
			if countErr != nil {
				return nil, shared.ClassifyStoreError(countErr)
			}
			if count > 0 {
				return nil, shared.ErrConflict("user")
			}
			return nil, shared.ErrNotFound("user")
		}
		return nil, shared.ClassifyStoreError(err)
	}

	u.Version = next.Version
	return previous, nil
}

// Delete removes a user document by ID. Absent documents are a no-op.
func (r *MongoRepository) Delete(ctx context.Context, id UserID) error {
	if _, err := r.coll.DeleteOne(ctx, bson.M{"_id": id.String()}); err != nil {
		return shared.ClassifyStoreError(err)
	}

	return nil
}

// GetByID retrieves a user by ID
func (r *MongoRepository) GetByID(ctx context.Context, id UserID) (*User, error) {
	if _, err := ParseUserID(id.String()); err != nil {
		return nil, err
	}

	return r.findOne(ctx, bson.M{"_id": id.String()})
}

// GetByUsername retrieves a user by exact username
func (r *MongoRepository) GetByUsername(ctx context.Context, username string) (*User, error) {
	if username == "" {
		return nil, shared.ErrInvalidInput("username cannot be empty")
	}

	return r.findOne(ctx, bson.M{"username": username})
}

// GetByEmail retrieves a user by exact email
func (r *MongoRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	if email == "" {
		return nil, shared.ErrInvalidInput("email cannot be empty")
	}

	return r.findOne(ctx, bson.M{"email": email})
}

// GetByLogin retrieves the user holding the (provider, key) login pair.
// Both fields must match inside the same array element.
func (r *MongoRepository) GetByLogin(ctx context.Context, provider, key string) (*User, error) {
	if provider == "" || key == "" {
		return nil, shared.ErrInvalidInput("login provider and key cannot be empty")
	}

	filter := bson.M{
		"logins": bson.M{
			"$elemMatch": bson.M{"provider": provider, "key": key},
		},
	}

	return r.findOne(ctx, filter)
}

func (r *MongoRepository) findOne(ctx context.Context, filter bson.M) (*User, error) {
	u := &User{}
	err := r.coll.FindOne(ctx, filter).Decode(u)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, shared.ClassifyStoreError(fmt.Errorf("find user: %w", err))
	}

	return u, nil
}
