// Package appstate holds the client-side synchronization core: a state
// container that mirrors the remote doctors/appointments collections and the
// authentication lifecycle, and exposes command functions that write
// remotely. Mirrors are only ever updated by subscription callbacks, so the
// local view cannot diverge from the store; the cost is a round-trip between
// a write and its reflection, acceptable for human-paced booking actions.
//
// All mirror mutation is serialized through a single event loop. Concurrent
// sources (auth stream, doctor stream, role-scoped appointment stream,
// command results) enqueue closures; the loop runs them one at a time.
package appstate

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/harentsoaR/medibook/internal/auth"
	"github.com/harentsoaR/medibook/internal/models"
	"github.com/harentsoaR/medibook/internal/policy"
	"github.com/harentsoaR/medibook/internal/store"
)

// StatusAll is the wildcard accepted by AppointmentsByStatus.
const StatusAll = "All"

type Config struct {
	Doctors      DoctorStore
	Appointments AppointmentStore
	Profiles     ProfileStore
	Auth         AuthProvider
	Roles        *policy.RolePolicy
	Logger       *zap.Logger
}

type Container struct {
	doctors      DoctorStore
	appointments AppointmentStore
	profiles     ProfileStore
	auth         AuthProvider
	roles        *policy.RolePolicy
	log          *zap.Logger

	events chan func()
	done   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc

	// Everything below is owned by the event loop.
	state       State
	watchers    map[int]chan State
	nextWatcher int

	// Appointment subscription identity: (role, email) of the resolved
	// profile. apptGen fences deliveries from superseded subscriptions.
	apptKey     string
	apptGen     int
	cancelAppts store.CancelFunc

	cancelDoctors store.CancelFunc
	cancelAuth    store.CancelFunc
}

func New(cfg Config) *Container {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Container{
		doctors:      cfg.Doctors,
		appointments: cfg.Appointments,
		profiles:     cfg.Profiles,
		auth:         cfg.Auth,
		roles:        cfg.Roles,
		log:          log,
		events:       make(chan func(), 64),
		done:         make(chan struct{}),
		watchers:     make(map[int]chan State),
		state: State{
			Doctors:      []models.Doctor{},
			Appointments: []models.Appointment{},
		},
	}
}

// Start launches the event loop, the lifetime doctor subscription, and the
// auth-state stream, then replays any persisted session.
func (c *Container) Start(ctx context.Context) error {
	c.ctx, c.cancel = context.WithCancel(ctx)
	go c.run()

	cancelDoctors, err := c.doctors.WatchDoctors(c.ctx, func(doctors []models.Doctor) {
		c.dispatch(func() {
			c.state.Doctors = doctors
			c.publish()
		})
	})
	if err != nil {
		c.cancel()
		<-c.done
		return fmt.Errorf("subscribing to doctors: %w", err)
	}
	c.cancelDoctors = cancelDoctors

	authCh, cancelAuth := c.auth.StateChanges()
	c.cancelAuth = cancelAuth
	go func() {
		for id := range authCh {
			c.handleAuthEvent(id)
		}
	}()

	if err := c.auth.Restore(c.ctx); err != nil {
		// Degraded start: the user signs in manually.
		c.log.Warn("session restore failed", zap.Error(err))
	}
	return nil
}

// Stop tears the container down. Pending deliveries after Stop are dropped.
// Stopping a container that was never started is a no-op.
func (c *Container) Stop() {
	if c.cancel == nil {
		return
	}
	c.cancel()
	<-c.done
	if c.cancelAuth != nil {
		c.cancelAuth()
	}
	if c.cancelDoctors != nil {
		c.cancelDoctors()
	}
	if c.cancelAppts != nil {
		c.cancelAppts()
	}
}

func (c *Container) run() {
	defer close(c.done)
	for {
		select {
		case fn := <-c.events:
			fn()
		case <-c.ctx.Done():
			return
		}
	}
}

// dispatch hands a closure to the event loop. Closures submitted after Stop
// are silently dropped.
func (c *Container) dispatch(fn func()) {
	select {
	case c.events <- fn:
	case <-c.done:
	}
}

// --- auth reconciliation ---

func (c *Container) handleAuthEvent(id *auth.Identity) {
	if id == nil {
		c.dispatch(func() {
			c.clearSession()
			c.publish()
		})
		return
	}
	// Resolving: the session is not exposed until the profile lookup
	// settles one way or the other.
	profile := c.resolveProfile(c.ctx, *id)
	c.dispatch(func() {
		c.applySession(*id, profile)
		c.publish()
	})
}

// resolveProfile fetches the stored profile for an identity. A missing
// profile is bootstrapped from the allow-list policy; a failing lookup
// degrades to the same heuristic profile instead of blocking sign-in.
func (c *Container) resolveProfile(ctx context.Context, id auth.Identity) models.Profile {
	p, err := c.profiles.ProfileByUID(ctx, id.UID)
	switch {
	case err == nil:
		return p
	case errors.Is(err, store.ErrNotFound):
		p = c.roles.FallbackProfile(id.UID, id.Email, id.DisplayName)
		if createErr := c.profiles.CreateProfile(ctx, p); createErr != nil {
			c.log.Warn("creating bootstrap profile failed",
				zap.String("uid", id.UID), zap.Error(createErr))
		}
		return p
	default:
		c.log.Warn("profile lookup failed, deriving role from allow-list",
			zap.String("uid", id.UID), zap.Error(err))
		return c.roles.FallbackProfile(id.UID, id.Email, id.DisplayName)
	}
}

// applySession runs in the event loop. The appointment subscription is keyed
// on (role, email); it is recreated only when that key changes.
func (c *Container) applySession(id auth.Identity, profile models.Profile) {
	c.state.Session = &id
	c.state.Profile = &profile
	c.state.AuthInitialized = true

	key := string(profile.Role) + "|" + profile.Email
	if key != c.apptKey {
		c.apptKey = key
		c.resubscribeAppointments(&profile)
	}
}

// clearSession runs in the event loop.
func (c *Container) clearSession() {
	c.state.Session = nil
	c.state.Profile = nil
	c.state.Appointments = []models.Appointment{}
	c.state.AuthInitialized = true
	c.apptKey = ""
	c.resubscribeAppointments(nil)
}

// resubscribeAppointments runs in the event loop. The old subscription is
// cancelled before the new one is established; c.apptGen fences out
// deliveries from any superseded subscription, so the mirror only ever
// reflects the current (role, email) scope. The store calls happen off-loop
// because subscribing performs IO.
func (c *Container) resubscribeAppointments(profile *models.Profile) {
	c.apptGen++
	gen := c.apptGen
	old := c.cancelAppts
	c.cancelAppts = nil

	var scoped *models.Profile
	if profile != nil {
		p := *profile
		scoped = &p
	}

	go func() {
		if old != nil {
			old()
		}
		if scoped == nil {
			return
		}

		deliver := func(appointments []models.Appointment) {
			c.dispatch(func() {
				if c.apptGen != gen {
					return // superseded subscription
				}
				c.state.Appointments = appointments
				c.publish()
			})
		}

		var cancel store.CancelFunc
		var err error
		if scoped.Role == models.RoleAdmin {
			cancel, err = c.appointments.WatchAppointments(c.ctx, deliver)
		} else {
			cancel, err = c.appointments.WatchPatientAppointments(c.ctx, scoped.Email, deliver)
		}
		if err != nil {
			c.log.Error("subscribing to appointments failed",
				zap.String("role", string(scoped.Role)), zap.Error(err))
			return
		}

		c.dispatch(func() {
			if c.apptGen != gen {
				cancel()
				return
			}
			c.cancelAppts = cancel
		})
	}()
}

// --- commands ---

// SignIn authenticates and resolves the profile immediately so callers can
// route on the role without waiting for the auth stream to echo. Failures
// leave the mirror untouched; map them with auth.Message for display.
func (c *Container) SignIn(ctx context.Context, email, password string) (models.Role, error) {
	c.setLoading(true)
	defer c.setLoading(false)

	id, err := c.auth.SignIn(ctx, email, password)
	if err != nil {
		return "", err
	}

	profile := c.resolveProfile(ctx, id)
	c.dispatch(func() {
		c.applySession(id, profile)
		c.publish()
	})
	return profile.Role, nil
}

// Register creates the identity and its profile document. Role membership
// comes from the allow-list.
func (c *Container) Register(ctx context.Context, email, password, name string) (models.Role, error) {
	c.setLoading(true)
	defer c.setLoading(false)

	role := c.roles.RoleFor(email)
	id, err := c.auth.SignUp(ctx, email, password, name, role)
	if err != nil {
		return "", err
	}

	profile := models.Profile{UID: id.UID, Email: id.Email, Name: id.DisplayName, Role: role}
	c.dispatch(func() {
		c.applySession(id, profile)
		c.publish()
	})
	return role, nil
}

// SignOut is best-effort: local state is cleared and the role-scoped
// subscription torn down even if the provider call fails.
func (c *Container) SignOut(ctx context.Context) {
	c.setLoading(true)
	defer c.setLoading(false)

	if err := c.auth.SignOut(ctx); err != nil {
		c.log.Warn("provider sign-out failed", zap.Error(err))
	}
	c.dispatch(func() {
		c.clearSession()
		c.publish()
	})
}

// UpdateUser applies the edit to the profile mirror immediately and writes
// it remotely fire-and-forget, matching how profile edits behave in the UI.
// An email change alters the appointment subscription identity, so the
// role-scoped subscription is recreated under the new key.
func (c *Container) UpdateUser(name, email string) {
	c.dispatch(func() {
		if c.state.Profile == nil {
			return
		}
		p := *c.state.Profile
		p.Name = name
		p.Email = email
		c.state.Profile = &p

		if key := string(p.Role) + "|" + p.Email; key != c.apptKey {
			c.apptKey = key
			c.resubscribeAppointments(&p)
		}
		c.publish()

		uid := p.UID
		go func() {
			updates := map[string]string{"name": name, "email": email}
			if err := c.profiles.UpdateProfile(c.ctx, uid, updates); err != nil {
				c.log.Warn("remote profile update failed",
					zap.String("uid", uid), zap.Error(err))
			}
		}()
	})
}

// AddDoctor writes a new doctor. The mirror updates when the doctor
// subscription reflects the committed document, not here.
func (c *Container) AddDoctor(ctx context.Context, d models.Doctor) error {
	d.ID = ""
	_, err := c.doctors.AddDoctor(ctx, d)
	return err
}

func (c *Container) UpdateDoctor(ctx context.Context, d models.Doctor) error {
	return c.doctors.UpdateDoctor(ctx, d)
}

func (c *Container) DeleteDoctor(ctx context.Context, id string) error {
	return c.doctors.DeleteDoctor(ctx, id)
}

// AddAppointment books for the signed-in patient. Status is forced to
// Pending; the appointment appears in the mirror via the subscription the
// caller is enrolled in.
func (c *Container) AddAppointment(ctx context.Context, a models.Appointment) error {
	if c.Snapshot().Profile == nil {
		return auth.ErrNotSignedIn
	}
	a.ID = ""
	a.Status = models.StatusPending
	_, err := c.appointments.AddAppointment(ctx, a)
	return err
}

func (c *Container) UpdateAppointmentStatus(ctx context.Context, id string, status models.AppointmentStatus) error {
	if !status.IsValid() {
		return fmt.Errorf("invalid appointment status %q", status)
	}
	return c.appointments.UpdateAppointmentStatus(ctx, id, status)
}

// --- queries ---

// Snapshot returns a copy of the current mirror state.
func (c *Container) Snapshot() State {
	reply := make(chan State, 1)
	c.dispatch(func() { reply <- c.state.clone() })
	select {
	case s := <-reply:
		return s
	case <-c.done:
		return c.state.clone()
	}
}

// DoctorByID looks a doctor up in the mirror. A missing doctor is not an
// error; callers render a placeholder.
func (c *Container) DoctorByID(id string) (models.Doctor, bool) {
	for _, d := range c.Snapshot().Doctors {
		if d.ID == id {
			return d, true
		}
	}
	return models.Doctor{}, false
}

func (c *Container) AppointmentsByUser(email string) []models.Appointment {
	var out []models.Appointment
	for _, a := range c.Snapshot().Appointments {
		if a.PatientEmail == email {
			out = append(out, a)
		}
	}
	return out
}

func (c *Container) AppointmentsByStatus(status string) []models.Appointment {
	snap := c.Snapshot()
	if status == StatusAll {
		return snap.Appointments
	}
	var out []models.Appointment
	for _, a := range snap.Appointments {
		if string(a.Status) == status {
			out = append(out, a)
		}
	}
	return out
}

// Subscribe registers an observer of mirror state. Delivery is latest-wins:
// a slow observer skips intermediate states rather than stalling the loop.
func (c *Container) Subscribe() (<-chan State, store.CancelFunc) {
	ch := make(chan State, 4)
	registered := make(chan int, 1)
	c.dispatch(func() {
		key := c.nextWatcher
		c.nextWatcher++
		c.watchers[key] = ch
		ch <- c.state.clone()
		registered <- key
	})

	select {
	case key := <-registered:
		return ch, func() {
			c.dispatch(func() { delete(c.watchers, key) })
		}
	case <-c.done:
		return ch, func() {}
	}
}

func (c *Container) setLoading(loading bool) {
	c.dispatch(func() {
		c.state.Loading = loading
		c.publish()
	})
}

// publish runs in the event loop.
func (c *Container) publish() {
	snap := c.state.clone()
	for _, ch := range c.watchers {
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}
