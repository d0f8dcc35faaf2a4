// Package store is the translation layer between domain operations and the
// MongoDB collections backing them. One function per (entity, operation)
// pair; no business logic, no retries. Errors are passed through except for
// the not-found and duplicate cases, which are mapped to sentinels so callers
// can branch without importing driver internals.
package store

import (
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const (
	doctorsCollection      = "doctors"
	appointmentsCollection = "appointments"
	usersCollection        = "users"
)

var (
	ErrNotFound  = errors.New("document not found")
	ErrDuplicate = errors.New("document already exists")
)

// CancelFunc tears down a live subscription. Safe to call more than once.
type CancelFunc func()

type Store struct {
	db  *mongo.Database
	log *zap.Logger
}

func New(db *mongo.Database, log *zap.Logger) *Store {
	return &Store{db: db, log: log}
}

func mapError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return ErrDuplicate
	default:
		return err
	}
}
