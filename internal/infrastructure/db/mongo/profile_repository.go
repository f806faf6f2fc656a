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
	"github.com/hockeyunion/membership/internal/core/ports"
)

const profileCollection = "profiles"

type MongoProfileRepository struct {
	coll *mongo.Collection
	now  func() time.Time
}

func NewProfileRepository(db *mongo.Database) *MongoProfileRepository {
	return &MongoProfileRepository{
		coll: db.Collection(profileCollection),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

type mongoProfile struct {
	ID        string  `bson:"_id"`
	FullName  string  `bson:"full_name"`
	Email     string  `bson:"email"`
	AvatarURL string  `bson:"avatar_url"`
	Role      string  `bson:"role"`
	TeamID    *string `bson:"team_id,omitempty"`
	CreatedAt int64   `bson:"created_at"`
	UpdatedAt int64   `bson:"updated_at"`
}

// EnsureIndexes creates the listing indexes used by the admin profile route.
func (r *MongoProfileRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "team_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("team_created"),
		},
		{
			Keys:    bson.D{{Key: "role", Value: 1}},
			Options: options.Index().SetName("role"),
		},
	})
	if err != nil {
		return fmt.Errorf("create profile indexes: %w", err)
	}
	return nil
}

func (r *MongoProfileRepository) FindByID(ctx context.Context, id string) (*domain.Profile, error) {
	var doc mongoProfile
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrProfileNotFound
		}
		return nil, fmt.Errorf("find profile: %w", err)
	}
	return toProfile(doc), nil
}

func (r *MongoProfileRepository) Create(ctx context.Context, p *domain.Profile) error {
	now := r.now()
	createdAt, updatedAt := p.CreatedAt, p.UpdatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	if updatedAt.IsZero() {
		updatedAt = now
	}

	doc := mongoProfile{
		ID:        p.ID,
		FullName:  p.FullName,
		Email:     p.Email,
		AvatarURL: p.AvatarURL,
		Role:      p.Role,
		TeamID:    p.TeamID,
		CreatedAt: createdAt.Unix(),
		UpdatedAt: updatedAt.Unix(),
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrProfileExists
		}
		return fmt.Errorf("insert profile: %w", err)
	}
	return nil
}

// Update sets only the provided fields and returns the document after the
// update.
func (r *MongoProfileRepository) Update(ctx context.Context, id string, f domain.ProfileUpdate) (*domain.Profile, error) {
	set := bson.M{"updated_at": r.now().Unix()}
	if f.FullName != nil {
		set["full_name"] = *f.FullName
	}
	if f.AvatarURL != nil {
		set["avatar_url"] = *f.AvatarURL
	}
	if f.Role != nil {
		set["role"] = *f.Role
	}
	if f.TeamID != nil {
		set["team_id"] = *f.TeamID
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc mongoProfile
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrProfileNotFound
		}
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return toProfile(doc), nil
}

// List pages through profiles ordered by creation time, newest first.
func (r *MongoProfileRepository) List(ctx context.Context, f ports.ListProfilesFilter) ([]*domain.Profile, int64, error) {
	filter := bson.M{}
	if f.TeamID != "" {
		filter["team_id"] = f.TeamID
	}
	if f.Role != "" {
		filter["role"] = f.Role
	}

	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count profiles: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}}).
		SetSkip(int64((f.Page - 1) * f.Limit)).
		SetLimit(int64(f.Limit))

	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("list profiles: %w", err)
	}
	defer cur.Close(ctx)

	var docs []mongoProfile
	if err := cur.All(ctx, &docs); err != nil {
		return nil, 0, fmt.Errorf("decode profiles: %w", err)
	}

	items := make([]*domain.Profile, 0, len(docs))
	for _, doc := range docs {
		items = append(items, toProfile(doc))
	}
	return items, total, nil
}

func toProfile(doc mongoProfile) *domain.Profile {
	return &domain.Profile{
		ID:        doc.ID,
		FullName:  doc.FullName,
		Email:     doc.Email,
		AvatarURL: doc.AvatarURL,
		Role:      doc.Role,
		TeamID:    doc.TeamID,
		CreatedAt: unixToTime(doc.CreatedAt),
		UpdatedAt: unixToTime(doc.UpdatedAt),
	}
}
