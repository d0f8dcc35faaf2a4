package appstate

import (
	"context"

	"github.com/harentsoaR/medibook/internal/auth"
	"github.com/harentsoaR/medibook/internal/models"
	"github.com/harentsoaR/medibook/internal/store"
)

// The container depends on narrow slices of the store and identity layers so
// it can be driven by in-memory implementations in tests. *store.Store and
// *auth.Service satisfy these.

type DoctorStore interface {
	AddDoctor(ctx context.Context, d models.Doctor) (models.Doctor, error)
	UpdateDoctor(ctx context.Context, d models.Doctor) error
	DeleteDoctor(ctx context.Context, id string) error
	WatchDoctors(ctx context.Context, fn func([]models.Doctor)) (store.CancelFunc, error)
}

type AppointmentStore interface {
	AddAppointment(ctx context.Context, a models.Appointment) (models.Appointment, error)
	UpdateAppointmentStatus(ctx context.Context, id string, status models.AppointmentStatus) error
	WatchAppointments(ctx context.Context, fn func([]models.Appointment)) (store.CancelFunc, error)
	WatchPatientAppointments(ctx context.Context, email string, fn func([]models.Appointment)) (store.CancelFunc, error)
}

type ProfileStore interface {
	CreateProfile(ctx context.Context, p models.Profile) error
	ProfileByUID(ctx context.Context, uid string) (models.Profile, error)
	UpdateProfile(ctx context.Context, uid string, updates map[string]string) error
}

type AuthProvider interface {
	SignIn(ctx context.Context, email, password string) (auth.Identity, error)
	SignUp(ctx context.Context, email, password, name string, role models.Role) (auth.Identity, error)
	SignOut(ctx context.Context) error
	Restore(ctx context.Context) error
	StateChanges() (<-chan *auth.Identity, store.CancelFunc)
}
