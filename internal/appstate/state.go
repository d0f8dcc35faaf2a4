package appstate

import (
	"github.com/harentsoaR/medibook/internal/auth"
	"github.com/harentsoaR/medibook/internal/models"
)

// State is the local mirror of remote data. It is a derived cache; the
// document store stays authoritative. Appointment scope depends on the
// resolved role: admins mirror the whole collection, patients only their own
// bookings.
type State struct {
	// Profile is the resolved application user, nil when signed out. A
	// session whose profile is still resolving is not exposed here.
	Profile *models.Profile
	// Session is the raw identity handle from the provider.
	Session *auth.Identity

	Doctors      []models.Doctor
	Appointments []models.Appointment

	Loading         bool
	AuthInitialized bool
}

// clone returns an independent copy so observers can read without racing the
// update loop.
func (s State) clone() State {
	out := s
	out.Doctors = append([]models.Doctor(nil), s.Doctors...)
	out.Appointments = append([]models.Appointment(nil), s.Appointments...)
	if s.Profile != nil {
		p := *s.Profile
		out.Profile = &p
	}
	if s.Session != nil {
		id := *s.Session
		out.Session = &id
	}
	return out
}
