package scheduling

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/healthcareclinic/clinic-api/internal/logger"
	"github.com/healthcareclinic/clinic-api/internal/models"
)

// fakeStore mimics the repository's revision semantics in memory.
type fakeStore struct {
	appointments map[primitive.ObjectID]*models.Appointment
}

func newFakeStore() *fakeStore {
	return &fakeStore{appointments: map[primitive.ObjectID]*models.Appointment{}}
}

func (f *fakeStore) Insert(_ context.Context, apt *models.Appointment) error {
	cp := *apt
	f.appointments[apt.ID] = &cp
	return nil
}

func (f *fakeStore) FindByID(_ context.Context, id primitive.ObjectID) (*models.Appointment, error) {
	apt, ok := f.appointments[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *apt
	return &cp, nil
}

func (f *fakeStore) UpdateDate(_ context.Context, id primitive.ObjectID, rev int64, date time.Time) error {
	apt, ok := f.appointments[id]
	if !ok {
		return ErrNotFound
	}
	if rev > 0 && apt.Revision != rev {
		return ErrStaleRevision
	}
	apt.Date = date
	apt.Revision++
	return nil
}

func (f *fakeStore) UpdateStatus(_ context.Context, id primitive.ObjectID, rev int64, status string) error {
	apt, ok := f.appointments[id]
	if !ok {
		return ErrNotFound
	}
	if rev > 0 && apt.Revision != rev {
		return ErrStaleRevision
	}
	apt.Status = status
	apt.Revision++
	return nil
}

func (f *fakeStore) Delete(_ context.Context, id primitive.ObjectID) error {
	if _, ok := f.appointments[id]; !ok {
		return ErrNotFound
	}
	delete(f.appointments, id)
	return nil
}

type fakeDirectory struct {
	users map[primitive.ObjectID]*models.User
}

func (f *fakeDirectory) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, errors.New("no such user")
	}
	return u, nil
}

type fakeNotifier struct {
	enqueued []models.Notification
	err      error
}

func (f *fakeNotifier) Enqueue(_ context.Context, n *models.Notification) error {
	if f.err != nil {
		return f.err
	}
	f.enqueued = append(f.enqueued, *n)
	return nil
}

type fixture struct {
	manager  *Manager
	store    *fakeStore
	notifier *fakeNotifier
	now      time.Time
	doctorID primitive.ObjectID
}

func setup(t *testing.T) *fixture {
	t.Helper()
	doctorID := primitive.NewObjectID()
	store := newFakeStore()
	notifier := &fakeNotifier{}
	dir := &fakeDirectory{users: map[primitive.ObjectID]*models.User{
		doctorID: {ID: doctorID, Name: "Dr. Rao", Role: models.RoleDoctor},
	}}

	m := NewManager(store, dir, notifier, logger.New("panic"))
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	return &fixture{manager: m, store: store, notifier: notifier, now: now, doctorID: doctorID}
}

func validInput(f *fixture) CreateInput {
	return CreateInput{
		DoctorID: f.doctorID,
		Name:     "Asha Verma",
		Email:    "asha@example.com",
		Mobile:   "9876543210",
		Gender:   "female",
		Address:  "14 Lake Road",
		Age:      28,
		Disease:  "migraine",
		Date:     f.now.Add(5 * 24 * time.Hour),
	}
}

func TestCreatePendingWithNotification(t *testing.T) {
	f := setup(t)
	patientID := primitive.NewObjectID()

	apt, err := f.manager.Create(context.Background(), patientID, validInput(f))
	require.NoError(t, err)

	assert.Equal(t, models.StatusPending, apt.Status)
	assert.Equal(t, int64(1), apt.Revision)
	assert.Equal(t, patientID, apt.Patient)

	stored, err := f.store.FindByID(context.Background(), apt.ID)
	require.NoError(t, err)
	assert.Equal(t, apt.Date, stored.Date)

	require.Len(t, f.notifier.enqueued, 1)
	n := f.notifier.enqueued[0]
	assert.Equal(t, models.NotifyBooked, n.Kind)
	assert.Equal(t, "asha@example.com", n.Recipient)
	assert.Equal(t, "Dr. Rao", n.DoctorName)
}

func TestCreateDateWindow(t *testing.T) {
	f := setup(t)

	cases := []struct {
		name string
		date time.Time
		ok   bool
	}{
		{"past", f.now.Add(-time.Hour), false},
		{"now", f.now, true},
		{"window edge", f.now.Add(BookingWindow), true},
		{"beyond window", f.now.Add(BookingWindow + 24*time.Hour), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := validInput(f)
			in.Date = tc.date
			_, err := f.manager.Create(context.Background(), primitive.NewObjectID(), in)
			if tc.ok {
				assert.NoError(t, err)
			} else {
				var verr *ValidationError
				require.ErrorAs(t, err, &verr)
				assert.Equal(t, "date", verr.Field)
			}
		})
	}
}

func TestCreateRejectsNoRecordOnBadDate(t *testing.T) {
	f := setup(t)
	in := validInput(f)
	in.Date = f.now.Add(BookingWindow + 24*time.Hour)

	_, err := f.manager.Create(context.Background(), primitive.NewObjectID(), in)
	require.Error(t, err)
	assert.Empty(t, f.store.appointments)
	assert.Empty(t, f.notifier.enqueued)
}

func TestCreateFieldValidation(t *testing.T) {
	f := setup(t)

	cases := []struct {
		field  string
		mutate func(*CreateInput)
	}{
		{"email", func(in *CreateInput) { in.Email = "not-an-email" }},
		{"mobile", func(in *CreateInput) { in.Mobile = "12345" }},
		{"age", func(in *CreateInput) { in.Age = 151 }},
		{"age", func(in *CreateInput) { in.Age = -1 }},
		{"gender", func(in *CreateInput) { in.Gender = "unknown" }},
		{"", func(in *CreateInput) { in.Disease = "" }},
	}
	for _, tc := range cases {
		in := validInput(f)
		tc.mutate(&in)
		_, err := f.manager.Create(context.Background(), primitive.NewObjectID(), in)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, tc.field, verr.Field)
	}
}

func mustCreate(t *testing.T, f *fixture) (*models.Appointment, primitive.ObjectID) {
	t.Helper()
	patientID := primitive.NewObjectID()
	apt, err := f.manager.Create(context.Background(), patientID, validInput(f))
	require.NoError(t, err)
	f.notifier.enqueued = nil
	return apt, patientID
}

func TestUpdateStatusDoctorOnly(t *testing.T) {
	f := setup(t)
	apt, patientID := mustCreate(t, f)

	_, err := f.manager.UpdateStatus(context.Background(), apt.ID,
		Actor{ID: patientID, Role: models.RolePatient}, models.StatusAccepted, apt.Revision)
	assert.ErrorIs(t, err, ErrForbidden)

	updated, err := f.manager.UpdateStatus(context.Background(), apt.ID,
		Actor{ID: f.doctorID, Role: models.RoleDoctor}, models.StatusAccepted, apt.Revision)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAccepted, updated.Status)

	require.Len(t, f.notifier.enqueued, 1)
	assert.Equal(t, models.NotifyConfirmed, f.notifier.enqueued[0].Kind)
}

func TestUpdateStatusRejectedNotifies(t *testing.T) {
	f := setup(t)
	apt, _ := mustCreate(t, f)

	_, err := f.manager.UpdateStatus(context.Background(), apt.ID,
		Actor{ID: f.doctorID, Role: models.RoleDoctor}, models.StatusRejected, apt.Revision)
	require.NoError(t, err)
	require.Len(t, f.notifier.enqueued, 1)
	assert.Equal(t, models.NotifyRejected, f.notifier.enqueued[0].Kind)
}

func TestUpdateStatusInvalidValue(t *testing.T) {
	f := setup(t)
	apt, _ := mustCreate(t, f)

	_, err := f.manager.UpdateStatus(context.Background(), apt.ID,
		Actor{ID: f.doctorID, Role: models.RoleDoctor}, "pending", apt.Revision)
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestUpdateStatusAdminBypass(t *testing.T) {
	f := setup(t)
	apt, _ := mustCreate(t, f)

	_, err := f.manager.UpdateStatus(context.Background(), apt.ID,
		Actor{ID: primitive.NewObjectID(), Role: models.RoleAdmin}, models.StatusAccepted, 0)
	assert.NoError(t, err)
}

func TestRescheduleWindowAnchoredToStoredDate(t *testing.T) {
	f := setup(t)
	apt, patientID := mustCreate(t, f)
	actor := Actor{ID: patientID, Role: models.RolePatient}

	// 31 days past the stored date: rejected, record unchanged.
	_, err := f.manager.Reschedule(context.Background(), apt.ID, actor,
		apt.Date.Add(31*24*time.Hour), apt.Revision)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	unchanged, _ := f.store.FindByID(context.Background(), apt.ID)
	assert.Equal(t, apt.Date, unchanged.Date)
	assert.Empty(t, f.notifier.enqueued)

	// 30 days past the stored date: accepted.
	first := apt.Date.Add(30 * 24 * time.Hour)
	updated, err := f.manager.Reschedule(context.Background(), apt.ID, actor, first, apt.Revision)
	require.NoError(t, err)
	assert.Equal(t, first, updated.Date)
	require.Len(t, f.notifier.enqueued, 1)
	assert.Equal(t, models.NotifyRescheduled, f.notifier.enqueued[0].Kind)

	// The window re-anchors: a date 30 days past the *new* stored date is
	// fine even though it is far outside the original window.
	second := first.Add(30 * 24 * time.Hour)
	updated, err = f.manager.Reschedule(context.Background(), apt.ID, actor, second, updated.Revision)
	require.NoError(t, err)
	assert.Equal(t, second, updated.Date)
}

func TestRescheduleRejectsPastDate(t *testing.T) {
	f := setup(t)
	apt, patientID := mustCreate(t, f)

	_, err := f.manager.Reschedule(context.Background(), apt.ID,
		Actor{ID: patientID, Role: models.RolePatient}, f.now.Add(-time.Hour), apt.Revision)
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestRescheduleStaleRevision(t *testing.T) {
	f := setup(t)
	apt, patientID := mustCreate(t, f)
	actor := Actor{ID: patientID, Role: models.RolePatient}

	// Concurrent writer bumps the revision first.
	_, err := f.manager.Reschedule(context.Background(), apt.ID, actor,
		apt.Date.Add(24*time.Hour), apt.Revision)
	require.NoError(t, err)

	_, err = f.manager.Reschedule(context.Background(), apt.ID, actor,
		apt.Date.Add(48*time.Hour), apt.Revision)
	assert.ErrorIs(t, err, ErrStaleRevision)
}

func TestRescheduleForbiddenForStranger(t *testing.T) {
	f := setup(t)
	apt, _ := mustCreate(t, f)

	_, err := f.manager.Reschedule(context.Background(), apt.ID,
		Actor{ID: primitive.NewObjectID(), Role: models.RolePatient},
		apt.Date.Add(24*time.Hour), apt.Revision)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestCancelSnapshotsBeforeDelete(t *testing.T) {
	f := setup(t)
	apt, patientID := mustCreate(t, f)

	err := f.manager.Cancel(context.Background(), apt.ID,
		Actor{ID: patientID, Role: models.RolePatient})
	require.NoError(t, err)

	_, err = f.store.FindByID(context.Background(), apt.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	// The cancellation notice still carries the deleted appointment.
	require.Len(t, f.notifier.enqueued, 1)
	n := f.notifier.enqueued[0]
	assert.Equal(t, models.NotifyCancelled, n.Kind)
	assert.Equal(t, apt.ID, n.Appointment.ID)
	assert.Equal(t, "Asha Verma", n.Appointment.Name)
}

func TestCancelEitherParty(t *testing.T) {
	f := setup(t)
	apt, _ := mustCreate(t, f)

	err := f.manager.Cancel(context.Background(), apt.ID,
		Actor{ID: f.doctorID, Role: models.RoleDoctor})
	assert.NoError(t, err)
}

func TestCancelForbiddenForStranger(t *testing.T) {
	f := setup(t)
	apt, _ := mustCreate(t, f)

	err := f.manager.Cancel(context.Background(), apt.ID,
		Actor{ID: primitive.NewObjectID(), Role: models.RoleDoctor})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestNotifierFailureDoesNotFailMutation(t *testing.T) {
	f := setup(t)
	f.notifier.err = errors.New("outbox down")

	apt, err := f.manager.Create(context.Background(), primitive.NewObjectID(), validInput(f))
	require.NoError(t, err)

	_, err = f.store.FindByID(context.Background(), apt.ID)
	assert.NoError(t, err)
}

func TestUpdateStatusNotFound(t *testing.T) {
	f := setup(t)
	_, err := f.manager.UpdateStatus(context.Background(), primitive.NewObjectID(),
		Actor{ID: f.doctorID, Role: models.RoleDoctor}, models.StatusAccepted, 1)
	assert.ErrorIs(t, err, ErrNotFound)
}
