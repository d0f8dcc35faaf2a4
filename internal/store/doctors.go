package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/harentsoaR/medibook/internal/models"
)

// AddDoctor inserts a new doctor document and returns it with the
// store-assigned id and timestamps filled in.
func (s *Store) AddDoctor(ctx context.Context, d models.Doctor) (models.Doctor, error) {
	now := time.Now().UTC()
	d.ID = primitive.NewObjectID().Hex()
	d.CreatedAt = now
	d.UpdatedAt = now

	if _, err := s.db.Collection(doctorsCollection).InsertOne(ctx, d); err != nil {
		return models.Doctor{}, mapError(err)
	}
	return d, nil
}

// UpdateDoctor replaces every mutable field of an existing doctor.
func (s *Store) UpdateDoctor(ctx context.Context, d models.Doctor) error {
	update := bson.M{"$set": bson.M{
		"name":       d.Name,
		"specialty":  d.Specialty,
		"image":      d.Image,
		"bio":        d.Bio,
		"experience": d.Experience,
		"rating":     d.Rating,
		"patients":   d.Patients,
		"location":   d.Location,
		"available":  d.Available,
		"updatedAt":  time.Now().UTC(),
	}}

	res, err := s.db.Collection(doctorsCollection).UpdateOne(ctx, bson.M{"_id": d.ID}, update)
	if err != nil {
		return mapError(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) DeleteDoctor(ctx context.Context, id string) error {
	res, err := s.db.Collection(doctorsCollection).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return mapError(err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) DoctorByID(ctx context.Context, id string) (models.Doctor, error) {
	var d models.Doctor
	err := s.db.Collection(doctorsCollection).FindOne(ctx, bson.M{"_id": id}).Decode(&d)
	if err != nil {
		return models.Doctor{}, mapError(err)
	}
	return d, nil
}

// Doctors returns the full doctor list ordered by name ascending. The
// ordering is part of the wrapper contract; callers do not re-sort.
func (s *Store) Doctors(ctx context.Context) ([]models.Doctor, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	cursor, err := s.db.Collection(doctorsCollection).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, mapError(err)
	}
	defer cursor.Close(ctx)

	doctors := make([]models.Doctor, 0)
	if err := cursor.All(ctx, &doctors); err != nil {
		return nil, mapError(err)
	}
	return doctors, nil
}

// WatchDoctors delivers the ordered doctor list to fn immediately and again
// after every change to the collection, until cancelled.
func (s *Store) WatchDoctors(ctx context.Context, fn func([]models.Doctor)) (CancelFunc, error) {
	return watchCollection(ctx, s, s.db.Collection(doctorsCollection), func(ctx context.Context) error {
		doctors, err := s.Doctors(ctx)
		if err != nil {
			return err
		}
		fn(doctors)
		return nil
	})
}
