package store

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/harentsoaR/medibook/internal/models"
)

// CreateProfile inserts a user profile keyed by the identity uid.
func (s *Store) CreateProfile(ctx context.Context, p models.Profile) error {
	now := time.Now().UTC()
	p.Email = strings.ToLower(strings.TrimSpace(p.Email))
	p.CreatedAt = now
	p.UpdatedAt = now

	if _, err := s.db.Collection(usersCollection).InsertOne(ctx, p); err != nil {
		return mapError(err)
	}
	return nil
}

func (s *Store) ProfileByUID(ctx context.Context, uid string) (models.Profile, error) {
	var p models.Profile
	err := s.db.Collection(usersCollection).FindOne(ctx, bson.M{"_id": uid}).Decode(&p)
	if err != nil {
		return models.Profile{}, mapError(err)
	}
	return p, nil
}

func (s *Store) ProfileByEmail(ctx context.Context, email string) (models.Profile, error) {
	var p models.Profile
	filter := bson.M{"email": strings.ToLower(strings.TrimSpace(email))}
	err := s.db.Collection(usersCollection).FindOne(ctx, filter).Decode(&p)
	if err != nil {
		return models.Profile{}, mapError(err)
	}
	return p, nil
}

// UpdateProfile sets the provided fields; empty strings are skipped so
// partial updates stay partial.
func (s *Store) UpdateProfile(ctx context.Context, uid string, updates map[string]string) error {
	set := bson.M{"updatedAt": time.Now().UTC()}
	for field, value := range updates {
		if value == "" {
			continue
		}
		switch field {
		case "name", "phone", "photoURL":
			set[field] = value
		case "email":
			set[field] = strings.ToLower(strings.TrimSpace(value))
		}
	}

	res, err := s.db.Collection(usersCollection).UpdateOne(ctx, bson.M{"_id": uid}, bson.M{"$set": set})
	if err != nil {
		return mapError(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateProfileRole changes a user's role. Admin-only at the API layer.
func (s *Store) UpdateProfileRole(ctx context.Context, uid string, role models.Role) error {
	update := bson.M{"$set": bson.M{"role": role, "updatedAt": time.Now().UTC()}}
	res, err := s.db.Collection(usersCollection).UpdateOne(ctx, bson.M{"_id": uid}, update)
	if err != nil {
		return mapError(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdatePassword replaces the stored password hash.
func (s *Store) UpdatePassword(ctx context.Context, uid string, hash string) error {
	update := bson.M{"$set": bson.M{"passwordHash": hash, "updatedAt": time.Now().UTC()}}
	res, err := s.db.Collection(usersCollection).UpdateOne(ctx, bson.M{"_id": uid}, update)
	if err != nil {
		return mapError(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Profiles returns all user profiles, newest first.
func (s *Store) Profiles(ctx context.Context) ([]models.Profile, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := s.db.Collection(usersCollection).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, mapError(err)
	}
	defer cursor.Close(ctx)

	profiles := make([]models.Profile, 0)
	if err := cursor.All(ctx, &profiles); err != nil {
		return nil, mapError(err)
	}
	return profiles, nil
}

// EnsureIndexes creates the unique email index the auth flow relies on.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	index := mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	_, err := s.db.Collection(usersCollection).Indexes().CreateOne(ctx, index)
	return err
}
