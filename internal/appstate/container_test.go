package appstate_test

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/harentsoaR/medibook/internal/appstate"
	"github.com/harentsoaR/medibook/internal/auth"
	"github.com/harentsoaR/medibook/internal/models"
	"github.com/harentsoaR/medibook/internal/policy"
	"github.com/harentsoaR/medibook/internal/store"
)

// --- in-memory fakes implementing the container's ports ---

type fakeDoctorStore struct {
	mu      sync.Mutex
	docs    map[string]models.Doctor
	nextID  int
	watch   func([]models.Doctor)
	watchOn bool
}

func newFakeDoctorStore() *fakeDoctorStore {
	return &fakeDoctorStore{docs: make(map[string]models.Doctor)}
}

func (f *fakeDoctorStore) snapshotLocked() []models.Doctor {
	out := make([]models.Doctor, 0, len(f.docs))
	for _, d := range f.docs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (f *fakeDoctorStore) broadcast() {
	f.mu.Lock()
	var fn func([]models.Doctor)
	if f.watchOn {
		fn = f.watch
	}
	snap := f.snapshotLocked()
	f.mu.Unlock()
	if fn != nil {
		fn(snap)
	}
}

func (f *fakeDoctorStore) AddDoctor(_ context.Context, d models.Doctor) (models.Doctor, error) {
	f.mu.Lock()
	f.nextID++
	d.ID = fmt.Sprintf("doc-%d", f.nextID)
	f.docs[d.ID] = d
	f.mu.Unlock()
	f.broadcast()
	return d, nil
}

func (f *fakeDoctorStore) UpdateDoctor(_ context.Context, d models.Doctor) error {
	f.mu.Lock()
	if _, ok := f.docs[d.ID]; !ok {
		f.mu.Unlock()
		return store.ErrNotFound
	}
	f.docs[d.ID] = d
	f.mu.Unlock()
	f.broadcast()
	return nil
}

func (f *fakeDoctorStore) DeleteDoctor(_ context.Context, id string) error {
	f.mu.Lock()
	if _, ok := f.docs[id]; !ok {
		f.mu.Unlock()
		return store.ErrNotFound
	}
	delete(f.docs, id)
	f.mu.Unlock()
	f.broadcast()
	return nil
}

func (f *fakeDoctorStore) WatchDoctors(_ context.Context, fn func([]models.Doctor)) (store.CancelFunc, error) {
	f.mu.Lock()
	f.watch = fn
	f.watchOn = true
	snap := f.snapshotLocked()
	f.mu.Unlock()
	fn(snap)
	return func() {
		f.mu.Lock()
		f.watchOn = false
		f.mu.Unlock()
	}, nil
}

type apptWatcher struct {
	fn     func([]models.Appointment)
	email  string
	all    bool
	active bool
}

type fakeAppointmentStore struct {
	mu       sync.Mutex
	appts    map[string]models.Appointment
	nextID   int
	base     time.Time
	watchers []*apptWatcher
}

func newFakeAppointmentStore() *fakeAppointmentStore {
	return &fakeAppointmentStore{
		appts: make(map[string]models.Appointment),
		base:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (f *fakeAppointmentStore) scopedLocked(w *apptWatcher) []models.Appointment {
	out := make([]models.Appointment, 0, len(f.appts))
	for _, a := range f.appts {
		if w.all || a.PatientEmail == w.email {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (f *fakeAppointmentStore) broadcast() {
	type delivery struct {
		fn   func([]models.Appointment)
		snap []models.Appointment
	}
	f.mu.Lock()
	var deliveries []delivery
	for _, w := range f.watchers {
		if w.active {
			deliveries = append(deliveries, delivery{w.fn, f.scopedLocked(w)})
		}
	}
	f.mu.Unlock()
	for _, d := range deliveries {
		d.fn(d.snap)
	}
}

func (f *fakeAppointmentStore) AddAppointment(_ context.Context, a models.Appointment) (models.Appointment, error) {
	f.mu.Lock()
	f.nextID++
	a.ID = fmt.Sprintf("apt-%d", f.nextID)
	a.CreatedAt = f.base.Add(time.Duration(f.nextID) * time.Second)
	f.appts[a.ID] = a
	f.mu.Unlock()
	f.broadcast()
	return a, nil
}

func (f *fakeAppointmentStore) UpdateAppointmentStatus(_ context.Context, id string, status models.AppointmentStatus) error {
	f.mu.Lock()
	a, ok := f.appts[id]
	if !ok {
		f.mu.Unlock()
		return store.ErrNotFound
	}
	a.Status = status
	f.appts[id] = a
	f.mu.Unlock()
	f.broadcast()
	return nil
}

func (f *fakeAppointmentStore) register(w *apptWatcher) (store.CancelFunc, error) {
	f.mu.Lock()
	f.watchers = append(f.watchers, w)
	snap := f.scopedLocked(w)
	f.mu.Unlock()
	w.fn(snap)
	return func() {
		f.mu.Lock()
		w.active = false
		f.mu.Unlock()
	}, nil
}

func (f *fakeAppointmentStore) WatchAppointments(_ context.Context, fn func([]models.Appointment)) (store.CancelFunc, error) {
	return f.register(&apptWatcher{fn: fn, all: true, active: true})
}

func (f *fakeAppointmentStore) WatchPatientAppointments(_ context.Context, email string, fn func([]models.Appointment)) (store.CancelFunc, error) {
	return f.register(&apptWatcher{fn: fn, email: email, active: true})
}

type fakeProfileStore struct {
	mu        sync.Mutex
	profiles  map[string]models.Profile
	lookupErr error
	created   int
}

func newFakeProfileStore() *fakeProfileStore {
	return &fakeProfileStore{profiles: make(map[string]models.Profile)}
}

func (f *fakeProfileStore) CreateProfile(_ context.Context, p models.Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.profiles[p.UID]; ok {
		return store.ErrDuplicate
	}
	f.profiles[p.UID] = p
	f.created++
	return nil
}

func (f *fakeProfileStore) ProfileByUID(_ context.Context, uid string) (models.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lookupErr != nil {
		return models.Profile{}, f.lookupErr
	}
	p, ok := f.profiles[uid]
	if !ok {
		return models.Profile{}, store.ErrNotFound
	}
	return p, nil
}

func (f *fakeProfileStore) UpdateProfile(_ context.Context, uid string, updates map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[uid]
	if !ok {
		return store.ErrNotFound
	}
	if v := updates["name"]; v != "" {
		p.Name = v
	}
	if v := updates["email"]; v != "" {
		p.Email = v
	}
	f.profiles[uid] = p
	return nil
}

type fakeAccount struct {
	uid      string
	password string
	name     string
}

type fakeAuth struct {
	mu       sync.Mutex
	accounts map[string]fakeAccount
	profiles *fakeProfileStore
	current  *auth.Identity
	subs     []chan *auth.Identity
	nextUID  int
}

func newFakeAuth(profiles *fakeProfileStore) *fakeAuth {
	return &fakeAuth{accounts: make(map[string]fakeAccount), profiles: profiles}
}

func (f *fakeAuth) emit(id *auth.Identity) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.current = id
	for _, ch := range f.subs {
		ch <- id
	}
}

func (f *fakeAuth) SignIn(_ context.Context, email, password string) (auth.Identity, error) {
	f.mu.Lock()
	acc, ok := f.accounts[email]
	f.mu.Unlock()
	if !ok || acc.password != password {
		return auth.Identity{}, auth.ErrInvalidCredentials
	}
	id := auth.Identity{UID: acc.uid, Email: email, DisplayName: acc.name}
	f.emit(&id)
	return id, nil
}

func (f *fakeAuth) SignUp(ctx context.Context, email, password, name string, role models.Role) (auth.Identity, error) {
	f.mu.Lock()
	if _, ok := f.accounts[email]; ok {
		f.mu.Unlock()
		return auth.Identity{}, auth.ErrEmailInUse
	}
	f.nextUID++
	uid := fmt.Sprintf("uid-%d", f.nextUID)
	f.accounts[email] = fakeAccount{uid: uid, password: password, name: name}
	f.mu.Unlock()

	if err := f.profiles.CreateProfile(ctx, models.Profile{UID: uid, Email: email, Name: name, Role: role}); err != nil {
		return auth.Identity{}, err
	}
	id := auth.Identity{UID: uid, Email: email, DisplayName: name}
	f.emit(&id)
	return id, nil
}

func (f *fakeAuth) SignOut(context.Context) error {
	f.emit(nil)
	return nil
}

func (f *fakeAuth) Restore(context.Context) error {
	f.mu.Lock()
	current := f.current
	subs := f.subs
	f.mu.Unlock()
	for _, ch := range subs {
		ch <- current
	}
	return nil
}

func (f *fakeAuth) StateChanges() (<-chan *auth.Identity, store.CancelFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan *auth.Identity, 32)
	ch <- f.current
	f.subs = append(f.subs, ch)
	return ch, func() {}
}

// --- harness ---

type fixture struct {
	doctors   *fakeDoctorStore
	appts     *fakeAppointmentStore
	profiles  *fakeProfileStore
	authStub  *fakeAuth
	container *appstate.Container
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	doctors := newFakeDoctorStore()
	appts := newFakeAppointmentStore()
	profiles := newFakeProfileStore()
	authStub := newFakeAuth(profiles)

	c := appstate.New(appstate.Config{
		Doctors:      doctors,
		Appointments: appts,
		Profiles:     profiles,
		Auth:         authStub,
		Roles:        policy.NewRolePolicy(nil),
	})
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("starting container: %v", err)
	}
	t.Cleanup(c.Stop)

	return &fixture{doctors: doctors, appts: appts, profiles: profiles, authStub: authStub, container: c}
}

func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

// --- tests ---

func TestDoctorMirrorConvergence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, name := range []string{"Dr. Chen", "Dr. Adams", "Dr. Brown"} {
		if err := f.container.AddDoctor(ctx, models.Doctor{Name: name, Specialty: "Cardiology"}); err != nil {
			t.Fatalf("AddDoctor(%s): %v", name, err)
		}
	}

	eventually(t, func() bool {
		return len(f.container.Snapshot().Doctors) == 3
	}, "doctor mirror did not reach 3 entries")

	doctors := f.container.Snapshot().Doctors
	wantOrder := []string{"Dr. Adams", "Dr. Brown", "Dr. Chen"}
	for i, want := range wantOrder {
		if doctors[i].Name != want {
			t.Fatalf("doctor order: got %s at %d, want %s", doctors[i].Name, i, want)
		}
	}

	// Update one, delete one; the mirror converges to exactly the stored set.
	target := doctors[0]
	target.Specialty = "Neurology"
	if err := f.container.UpdateDoctor(ctx, target); err != nil {
		t.Fatalf("UpdateDoctor: %v", err)
	}
	if err := f.container.DeleteDoctor(ctx, doctors[2].ID); err != nil {
		t.Fatalf("DeleteDoctor: %v", err)
	}

	eventually(t, func() bool {
		ds := f.container.Snapshot().Doctors
		return len(ds) == 2 && ds[0].Specialty == "Neurology"
	}, "doctor mirror did not converge after update and delete")
}

func TestDoctorRoundTrip(t *testing.T) {
	f := newFixture(t)

	want := models.Doctor{
		Name:       "Dr. Sarah Johnson",
		Specialty:  "Cardiologist",
		Image:      "https://example.com/sarah.jpg",
		Bio:        "Board-certified cardiologist.",
		Experience: 15,
		Rating:     4.9,
		Patients:   2340,
		Location:   "Heart Care Center, New York",
		Available:  true,
	}
	if err := f.container.AddDoctor(context.Background(), want); err != nil {
		t.Fatalf("AddDoctor: %v", err)
	}

	eventually(t, func() bool {
		return len(f.container.Snapshot().Doctors) == 1
	}, "doctor never reflected through the subscription")

	got := f.container.Snapshot().Doctors[0]
	if got.ID == "" {
		t.Fatal("store-assigned id is empty")
	}
	want.ID = got.ID
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("round-trip mismatch:\n got %+v\nwant %+v", got, want)
	}
}

func TestRegisterRoles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	role, err := f.container.Register(ctx, "admin@test.com", "secret123", "Admin")
	if err != nil {
		t.Fatalf("Register admin: %v", err)
	}
	if role != models.RoleAdmin {
		t.Fatalf("admin@test.com got role %s, want admin", role)
	}

	f.container.SignOut(ctx)
	eventually(t, func() bool {
		return f.container.Snapshot().Profile == nil
	}, "sign-out did not clear profile")

	role, err = f.container.Register(ctx, "patient@example.com", "secret123", "Pat")
	if err != nil {
		t.Fatalf("Register patient: %v", err)
	}
	if role != models.RoleUser {
		t.Fatalf("patient@example.com got role %s, want user", role)
	}
}

func TestPatientScopedAppointmentMirror(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	seed := func(email string) {
		_, err := f.appts.AddAppointment(ctx, models.Appointment{
			DoctorID: "doc-1", PatientEmail: email, Status: models.StatusPending,
		})
		if err != nil {
			t.Fatalf("seeding appointment: %v", err)
		}
	}
	seed("pat@example.com")
	seed("other@example.com")
	seed("pat@example.com")

	if _, err := f.container.Register(ctx, "pat@example.com", "secret123", "Pat"); err != nil {
		t.Fatalf("Register: %v", err)
	}

	eventually(t, func() bool {
		return len(f.container.Snapshot().Appointments) == 2
	}, "patient mirror did not scope to own appointments")

	for _, a := range f.container.Snapshot().Appointments {
		if a.PatientEmail != "pat@example.com" {
			t.Fatalf("foreign appointment leaked into patient mirror: %+v", a)
		}
	}

	// Booking through the container lands in the patient's own mirror.
	err := f.container.AddAppointment(ctx, models.Appointment{
		DoctorID:     "doc-1",
		PatientName:  "Pat",
		PatientEmail: "pat@example.com",
		Date:         "2026-09-01",
		Time:         "10:00",
	})
	if err != nil {
		t.Fatalf("AddAppointment: %v", err)
	}
	eventually(t, func() bool {
		return len(f.container.Snapshot().Appointments) == 3
	}, "new booking never reflected in the patient mirror")
}

func TestAdminSeesAllNewestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, email := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		if _, err := f.appts.AddAppointment(ctx, models.Appointment{PatientEmail: email, Status: models.StatusPending}); err != nil {
			t.Fatalf("seeding appointment: %v", err)
		}
	}

	if _, err := f.container.Register(ctx, "admin@test.com", "secret123", "Admin"); err != nil {
		t.Fatalf("Register: %v", err)
	}

	eventually(t, func() bool {
		return len(f.container.Snapshot().Appointments) == 3
	}, "admin mirror did not receive the full appointment set")

	appointments := f.container.Snapshot().Appointments
	for i := 1; i < len(appointments); i++ {
		if appointments[i].CreatedAt.After(appointments[i-1].CreatedAt) {
			t.Fatal("admin mirror not ordered newest-first")
		}
	}
	if appointments[0].PatientEmail != "c@example.com" {
		t.Fatalf("newest appointment first: got %s", appointments[0].PatientEmail)
	}
}

func TestStatusUpdateIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.appts.AddAppointment(ctx, models.Appointment{PatientEmail: "a@example.com", Status: models.StatusPending})
	if err != nil {
		t.Fatalf("seeding appointment: %v", err)
	}
	if _, err := f.container.Register(ctx, "admin@test.com", "secret123", "Admin"); err != nil {
		t.Fatalf("Register: %v", err)
	}

	apply := func() {
		if err := f.container.UpdateAppointmentStatus(ctx, created.ID, models.StatusApproved); err != nil {
			t.Fatalf("UpdateAppointmentStatus: %v", err)
		}
	}

	apply()
	eventually(t, func() bool {
		as := f.container.Snapshot().Appointments
		return len(as) == 1 && as[0].Status == models.StatusApproved
	}, "status update never reflected")
	first := f.container.Snapshot().Appointments

	apply()
	eventually(t, func() bool {
		return f.container.Snapshot().Appointments[0].Status == models.StatusApproved
	}, "second status update lost")
	second := f.container.Snapshot().Appointments

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("double update diverged:\nfirst  %+v\nsecond %+v", first, second)
	}
}

func TestSignOutTearsDownSubscription(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.container.Register(ctx, "pat@example.com", "secret123", "Pat"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := f.container.AddAppointment(ctx, models.Appointment{DoctorID: "doc-1", PatientEmail: "pat@example.com", Date: "2026-09-01", Time: "09:00"}); err != nil {
		t.Fatalf("AddAppointment: %v", err)
	}
	eventually(t, func() bool {
		return len(f.container.Snapshot().Appointments) == 1
	}, "booking never reflected")

	f.container.SignOut(ctx)
	eventually(t, func() bool {
		snap := f.container.Snapshot()
		return snap.Profile == nil && snap.Session == nil && len(snap.Appointments) == 0
	}, "sign-out did not clear the mirror")

	// New store activity must not reach the torn-down mirror.
	if _, err := f.appts.AddAppointment(ctx, models.Appointment{PatientEmail: "pat@example.com"}); err != nil {
		t.Fatalf("seeding appointment: %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	if got := len(f.container.Snapshot().Appointments); got != 0 {
		t.Fatalf("mirror received %d appointments after sign-out", got)
	}
}

func TestProfileLookupFallback(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.container.Register(ctx, "admin@test.com", "secret123", "Admin"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	f.container.SignOut(ctx)
	eventually(t, func() bool {
		return f.container.Snapshot().Profile == nil
	}, "sign-out did not clear profile")

	// Profile reads fail from here on: sign-in must still succeed with the
	// heuristic profile.
	f.profiles.mu.Lock()
	f.profiles.lookupErr = errors.New("network unreachable")
	f.profiles.mu.Unlock()

	role, err := f.container.SignIn(ctx, "admin@test.com", "secret123")
	if err != nil {
		t.Fatalf("SignIn with degraded profile store: %v", err)
	}
	if role != models.RoleAdmin {
		t.Fatalf("fallback role: got %s, want admin", role)
	}

	eventually(t, func() bool {
		p := f.container.Snapshot().Profile
		return p != nil && p.Role == models.RoleAdmin
	}, "fallback profile never published")
}

func TestProfileBootstrapOnFirstAuth(t *testing.T) {
	f := newFixture(t)

	// An identity with no stored profile (e.g. profile doc lost) gets one
	// bootstrapped from the allow-list policy.
	f.authStub.emit(&auth.Identity{UID: "uid-ghost", Email: "ghost@example.com", DisplayName: "Ghost"})

	eventually(t, func() bool {
		p := f.container.Snapshot().Profile
		return p != nil && p.UID == "uid-ghost"
	}, "bootstrapped profile never published")

	p := f.container.Snapshot().Profile
	if p.Role != models.RoleUser || p.Name != "Ghost" {
		t.Fatalf("bootstrap profile: %+v", p)
	}
	if _, err := f.profiles.ProfileByUID(context.Background(), "uid-ghost"); err != nil {
		t.Fatalf("bootstrap profile not persisted: %v", err)
	}
}

func TestAddAppointmentForcesPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.container.Register(ctx, "pat@example.com", "secret123", "Pat"); err != nil {
		t.Fatalf("Register: %v", err)
	}

	err := f.container.AddAppointment(ctx, models.Appointment{
		DoctorID:     "doc-404", // dangling reference is stored, not rejected
		PatientEmail: "pat@example.com",
		Status:       models.StatusApproved,
	})
	if err != nil {
		t.Fatalf("AddAppointment: %v", err)
	}

	eventually(t, func() bool {
		as := f.container.Snapshot().Appointments
		return len(as) == 1 && as[0].Status == models.StatusPending
	}, "appointment not stored as Pending")

	if _, ok := f.container.DoctorByID("doc-404"); ok {
		t.Fatal("DoctorByID found a doctor that does not exist")
	}
}

func TestAddAppointmentRequiresSession(t *testing.T) {
	f := newFixture(t)

	err := f.container.AddAppointment(context.Background(), models.Appointment{DoctorID: "doc-1"})
	if !errors.Is(err, auth.ErrNotSignedIn) {
		t.Fatalf("got %v, want ErrNotSignedIn", err)
	}
}

func TestSubscribeObservesUpdates(t *testing.T) {
	f := newFixture(t)

	states, cancel := f.container.Subscribe()
	defer cancel()

	// Initial snapshot arrives immediately.
	select {
	case <-states:
	case <-time.After(time.Second):
		t.Fatal("no initial state delivered")
	}

	if err := f.container.AddDoctor(context.Background(), models.Doctor{Name: "Dr. New"}); err != nil {
		t.Fatalf("AddDoctor: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for {
		select {
		case s := <-states:
			if len(s.Doctors) == 1 && s.Doctors[0].Name == "Dr. New" {
				return
			}
		case <-deadline:
			t.Fatal("observer never saw the doctor update")
		}
	}
}

func TestAppointmentsByStatusFilter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.container.Register(ctx, "admin@test.com", "secret123", "Admin"); err != nil {
		t.Fatalf("Register: %v", err)
	}

	a1, _ := f.appts.AddAppointment(ctx, models.Appointment{PatientEmail: "a@example.com", Status: models.StatusPending})
	if _, err := f.appts.AddAppointment(ctx, models.Appointment{PatientEmail: "b@example.com", Status: models.StatusPending}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := f.container.UpdateAppointmentStatus(ctx, a1.ID, models.StatusRejected); err != nil {
		t.Fatalf("UpdateAppointmentStatus: %v", err)
	}

	eventually(t, func() bool {
		return len(f.container.AppointmentsByStatus(string(models.StatusRejected))) == 1
	}, "status filter never converged")

	if got := len(f.container.AppointmentsByStatus(appstate.StatusAll)); got != 2 {
		t.Fatalf("StatusAll returned %d appointments, want 2", got)
	}
}

func TestUpdateUserOptimisticMirror(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.container.Register(ctx, "pat@example.com", "secret123", "Pat"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	eventually(t, func() bool {
		return f.container.Snapshot().Profile != nil
	}, "profile never published")

	f.container.UpdateUser("Patricia", "pat@example.com")

	eventually(t, func() bool {
		p := f.container.Snapshot().Profile
		return p != nil && p.Name == "Patricia"
	}, "profile edit not reflected in the mirror")
}

func TestUpdateUserEmailRescopesAppointments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.container.Register(ctx, "pat@example.com", "secret123", "Pat"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := f.appts.AddAppointment(ctx, models.Appointment{DoctorID: "doc-1", PatientEmail: "pat@example.com"}); err != nil {
		t.Fatalf("seeding appointment: %v", err)
	}
	eventually(t, func() bool {
		return len(f.container.Snapshot().Appointments) == 1
	}, "old-email appointment never mirrored")

	// Changing the email changes the subscription identity: the mirror must
	// track the new address, not the one signed up with.
	f.container.UpdateUser("Pat", "new@example.com")

	if _, err := f.appts.AddAppointment(ctx, models.Appointment{DoctorID: "doc-1", PatientEmail: "new@example.com"}); err != nil {
		t.Fatalf("seeding appointment: %v", err)
	}

	eventually(t, func() bool {
		as := f.container.Snapshot().Appointments
		return len(as) == 1 && as[0].PatientEmail == "new@example.com"
	}, "mirror still scoped to the old email after the profile edit")
}

func TestStopBeforeStart(t *testing.T) {
	c := appstate.New(appstate.Config{
		Doctors:      newFakeDoctorStore(),
		Appointments: newFakeAppointmentStore(),
		Profiles:     newFakeProfileStore(),
		Auth:         newFakeAuth(newFakeProfileStore()),
		Roles:        policy.NewRolePolicy(nil),
	})
	c.Stop() // must not panic or block
}
