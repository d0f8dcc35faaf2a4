package models

import "time"

// Doctor is a document in the "doctors" collection. The ID is assigned by
// the store layer on creation.
type Doctor struct {
	ID         string    `bson:"_id,omitempty" json:"id"`
	Name       string    `bson:"name" json:"name"`
	Specialty  string    `bson:"specialty" json:"specialty"`
	Image      string    `bson:"image" json:"image"`
	Bio        string    `bson:"bio" json:"bio"`
	Experience int       `bson:"experience" json:"experience"`
	Rating     float64   `bson:"rating" json:"rating"`
	Patients   int       `bson:"patients" json:"patients"`
	Location   string    `bson:"location" json:"location"`
	Available  bool      `bson:"available" json:"available"`
	CreatedAt  time.Time `bson:"createdAt,omitempty" json:"createdAt,omitempty"`
	UpdatedAt  time.Time `bson:"updatedAt,omitempty" json:"updatedAt,omitempty"`
}
