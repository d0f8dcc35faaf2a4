package store

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/harentsoaR/medibook/internal/models"
)

// AddAppointment inserts a new appointment and returns it with the
// store-assigned id and creation timestamp. Status is stored as given; the
// sync layer and the API both force Pending before calling here.
func (s *Store) AddAppointment(ctx context.Context, a models.Appointment) (models.Appointment, error) {
	a.ID = primitive.NewObjectID().Hex()
	a.PatientEmail = strings.ToLower(strings.TrimSpace(a.PatientEmail))
	a.CreatedAt = time.Now().UTC()

	if _, err := s.db.Collection(appointmentsCollection).InsertOne(ctx, a); err != nil {
		return models.Appointment{}, mapError(err)
	}
	return a, nil
}

// UpdateAppointmentStatus sets the status field, the only mutation allowed
// after creation.
func (s *Store) UpdateAppointmentStatus(ctx context.Context, id string, status models.AppointmentStatus) error {
	update := bson.M{"$set": bson.M{
		"status":    status,
		"updatedAt": time.Now().UTC(),
	}}

	res, err := s.db.Collection(appointmentsCollection).UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return mapError(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) DeleteAppointment(ctx context.Context, id string) error {
	res, err := s.db.Collection(appointmentsCollection).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return mapError(err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) AppointmentByID(ctx context.Context, id string) (models.Appointment, error) {
	var a models.Appointment
	err := s.db.Collection(appointmentsCollection).FindOne(ctx, bson.M{"_id": id}).Decode(&a)
	if err != nil {
		return models.Appointment{}, mapError(err)
	}
	return a, nil
}

// Appointments returns every appointment ordered by creation time descending
// (newest first).
func (s *Store) Appointments(ctx context.Context) ([]models.Appointment, error) {
	return s.findAppointments(ctx, bson.M{})
}

// AppointmentsByPatient returns the appointments whose patientEmail matches,
// newest first.
func (s *Store) AppointmentsByPatient(ctx context.Context, email string) ([]models.Appointment, error) {
	return s.findAppointments(ctx, bson.M{"patientEmail": strings.ToLower(strings.TrimSpace(email))})
}

func (s *Store) findAppointments(ctx context.Context, filter bson.M) ([]models.Appointment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := s.db.Collection(appointmentsCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, mapError(err)
	}
	defer cursor.Close(ctx)

	appointments := make([]models.Appointment, 0)
	if err := cursor.All(ctx, &appointments); err != nil {
		return nil, mapError(err)
	}
	return appointments, nil
}

// WatchAppointments delivers the full appointment list (admin view) to fn on
// subscribe and after every collection change, until cancelled.
func (s *Store) WatchAppointments(ctx context.Context, fn func([]models.Appointment)) (CancelFunc, error) {
	return watchCollection(ctx, s, s.db.Collection(appointmentsCollection), func(ctx context.Context) error {
		appointments, err := s.Appointments(ctx)
		if err != nil {
			return err
		}
		fn(appointments)
		return nil
	})
}

// WatchPatientAppointments is the role-scoped variant: only appointments
// whose patientEmail matches are delivered. The change stream still observes
// the whole collection; scoping happens in the requery, so deletes and
// cross-patient updates are reflected correctly.
func (s *Store) WatchPatientAppointments(ctx context.Context, email string, fn func([]models.Appointment)) (CancelFunc, error) {
	return watchCollection(ctx, s, s.db.Collection(appointmentsCollection), func(ctx context.Context) error {
		appointments, err := s.AppointmentsByPatient(ctx, email)
		if err != nil {
			return err
		}
		fn(appointments)
		return nil
	})
}
