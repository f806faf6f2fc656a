package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/hockeyunion/membership/internal/core/domain"
)

const identityCollection = "identities"

type MongoIdentityRepository struct {
	coll *mongo.Collection
}

func NewIdentityRepository(db *mongo.Database) *MongoIdentityRepository {
	return &MongoIdentityRepository{coll: db.Collection(identityCollection)}
}

type mongoIdentity struct {
	ID           string                  `bson:"_id"`
	Email        string                  `bson:"email"`
	PasswordHash string                  `bson:"password_hash"`
	Metadata     domain.IdentityMetadata `bson:"user_metadata"`
	CreatedAt    int64                   `bson:"created_at"`
}

// EnsureIndexes creates the unique email index sign-up relies on.
func (r *MongoIdentityRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("uniq_email"),
	})
	if err != nil {
		return fmt.Errorf("create identity indexes: %w", err)
	}
	return nil
}

func (r *MongoIdentityRepository) Create(ctx context.Context, identity *domain.Identity) (*domain.Identity, error) {
	doc := mongoIdentity{
		ID:           identity.ID,
		Email:        identity.Email,
		PasswordHash: identity.PasswordHash,
		Metadata:     identity.Metadata,
		CreatedAt:    identity.CreatedAt.Unix(),
	}

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrUserExists
		}
		return nil, fmt.Errorf("insert identity: %w", err)
	}
	return toIdentity(doc), nil
}

func (r *MongoIdentityRepository) FindByEmail(ctx context.Context, email string) (*domain.Identity, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *MongoIdentityRepository) FindByID(ctx context.Context, id string) (*domain.Identity, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *MongoIdentityRepository) findOne(ctx context.Context, filter bson.M) (*domain.Identity, error) {
	var doc mongoIdentity
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find identity: %w", err)
	}
	return toIdentity(doc), nil
}

func toIdentity(doc mongoIdentity) *domain.Identity {
	return &domain.Identity{
		ID:           doc.ID,
		Email:        doc.Email,
		PasswordHash: doc.PasswordHash,
		Metadata:     doc.Metadata,
		CreatedAt:    unixToTime(doc.CreatedAt),
	}
}

func unixToTime(ts int64) time.Time {
	if ts == 0 {
		return time.Time{}
	}
	return time.Unix(ts, 0).UTC()
}
