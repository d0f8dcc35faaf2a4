package models

import "time"

// AppointmentStatus is the moderation state of a booking. Appointments are
// created Pending; an administrator later approves or rejects them. Status is
// the only field mutated after creation.
type AppointmentStatus string

const (
	StatusPending  AppointmentStatus = "Pending"
	StatusApproved AppointmentStatus = "Approved"
	StatusRejected AppointmentStatus = "Rejected"
)

func (s AppointmentStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Appointment is a document in the "appointments" collection. DoctorID is a
// weak reference: a dangling id is stored as-is and rendered with a
// placeholder by clients. ID and CreatedAt are assigned by the store layer.
type Appointment struct {
	ID           string            `bson:"_id,omitempty" json:"id"`
	DoctorID     string            `bson:"doctorId" json:"doctorId"`
	PatientName  string            `bson:"patientName" json:"patientName"`
	PatientEmail string            `bson:"patientEmail" json:"patientEmail"`
	PatientPhone string            `bson:"patientPhone" json:"patientPhone"`
	Date         string            `bson:"date" json:"date"` // YYYY-MM-DD
	Time         string            `bson:"time" json:"time"`
	Status       AppointmentStatus `bson:"status" json:"status"`
	Notes        string            `bson:"notes" json:"notes"`
	CreatedAt    time.Time         `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time         `bson:"updatedAt,omitempty" json:"updatedAt,omitempty"`
}
