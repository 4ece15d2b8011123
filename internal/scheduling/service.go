// Package scheduling owns the appointment lifecycle: booking, status
// changes, rescheduling and cancellation, with the 30-day date windows and
// the notification side effects of each transition.
package scheduling

import (
	"context"
	"regexp"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/healthcareclinic/clinic-api/internal/models"
)

// BookingWindow bounds how far ahead an appointment may be created, and how
// far past the currently stored date it may be rescheduled.
const BookingWindow = 30 * 24 * time.Hour

var (
	emailRx  = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	mobileRx = regexp.MustCompile(`^\d{10}$`)
)

// Store is the appointment persistence the manager drives. Mutations take
// the revision the caller observed; a zero revision skips the concurrency
// check (used by admin moderation, which may clobber).
type Store interface {
	Insert(ctx context.Context, apt *models.Appointment) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Appointment, error)
	UpdateDate(ctx context.Context, id primitive.ObjectID, observedRevision int64, date time.Time) error
	UpdateStatus(ctx context.Context, id primitive.ObjectID, observedRevision int64, status string) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// UserDirectory resolves doctor names for notifications.
type UserDirectory interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}

// Notifier accepts notification intents. Delivery happens elsewhere;
// enqueue failures are logged and never fail the mutation.
type Notifier interface {
	Enqueue(ctx context.Context, n *models.Notification) error
}

// Actor is the authenticated requester of a mutation.
type Actor struct {
	ID   primitive.ObjectID
	Role string
}

func (a Actor) isAdmin() bool { return a.Role == models.RoleAdmin }

// CreateInput is the validated booking request.
type CreateInput struct {
	DoctorID primitive.ObjectID
	Name     string
	Email    string
	Mobile   string
	Gender   string
	Address  string
	Age      int
	Disease  string
	Date     time.Time
	Message  string
}

type Manager struct {
	store    Store
	users    UserDirectory
	notifier Notifier
	log      *logrus.Logger
	now      func() time.Time
}

func NewManager(store Store, users UserDirectory, notifier Notifier, log *logrus.Logger) *Manager {
	return &Manager{store: store, users: users, notifier: notifier, log: log, now: time.Now}
}

// Create books a pending appointment for the patient. The date must fall
// inside [now, now+30d].
func (m *Manager) Create(ctx context.Context, patientID primitive.ObjectID, in CreateInput) (*models.Appointment, error) {
	if err := m.validateCreate(in); err != nil {
		return nil, err
	}

	apt := &models.Appointment{
		ID:       primitive.NewObjectID(),
		Patient:  patientID,
		Doctor:   in.DoctorID,
		Name:     in.Name,
		Email:    in.Email,
		Mobile:   in.Mobile,
		Gender:   in.Gender,
		Address:  in.Address,
		Age:      in.Age,
		Disease:  in.Disease,
		Date:     in.Date,
		Message:  in.Message,
		Status:   models.StatusPending,
		Revision: 1,
	}
	if err := m.store.Insert(ctx, apt); err != nil {
		return nil, err
	}

	m.notify(ctx, apt, models.NotifyBooked)
	m.log.WithFields(logrus.Fields{
		"appointment": apt.ID.Hex(),
		"doctor":      apt.Doctor.Hex(),
		"date":        apt.Date.Format(time.RFC3339),
	}).Info("appointment booked")
	return apt, nil
}

// UpdateStatus moves a pending appointment to accepted or rejected. Only
// the assigned doctor may decide; admin moderation bypasses the check.
func (m *Manager) UpdateStatus(ctx context.Context, id primitive.ObjectID, actor Actor, status string, observedRevision int64) (*models.Appointment, error) {
	if status != models.StatusAccepted && status != models.StatusRejected {
		return nil, invalid("status", "Invalid status value.")
	}

	apt, err := m.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.isAdmin() && actor.ID != apt.Doctor {
		return nil, ErrForbidden
	}

	if err := m.store.UpdateStatus(ctx, id, observedRevision, status); err != nil {
		return nil, err
	}
	apt.Status = status
	apt.Revision++

	kind := models.NotifyConfirmed
	if status == models.StatusRejected {
		kind = models.NotifyRejected
	}
	m.notify(ctx, apt, kind)
	m.log.WithFields(logrus.Fields{
		"appointment": apt.ID.Hex(),
		"status":      status,
	}).Info("appointment status updated")
	return apt, nil
}

// Reschedule moves the appointment date. The new date must fall inside
// [now, storedDate+30d]. The window is anchored to the currently stored
// date, so repeated reschedules shift it forward each time. Either the
// patient or the doctor may reschedule.
func (m *Manager) Reschedule(ctx context.Context, id primitive.ObjectID, actor Actor, newDate time.Time, observedRevision int64) (*models.Appointment, error) {
	apt, err := m.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.isAdmin() && actor.ID != apt.Patient && actor.ID != apt.Doctor {
		return nil, ErrForbidden
	}

	now := m.now()
	if newDate.Before(now) || newDate.After(apt.Date.Add(BookingWindow)) {
		return nil, invalid("date", "Appointment date must be within 30 days from the original date.")
	}

	if err := m.store.UpdateDate(ctx, id, observedRevision, newDate); err != nil {
		return nil, err
	}
	apt.Date = newDate
	apt.Revision++

	m.notify(ctx, apt, models.NotifyRescheduled)
	m.log.WithFields(logrus.Fields{
		"appointment": apt.ID.Hex(),
		"date":        newDate.Format(time.RFC3339),
	}).Info("appointment rescheduled")
	return apt, nil
}

// Cancel deletes the appointment. The cancellation notice is enqueued
// first so it carries the snapshot of the record being removed.
func (m *Manager) Cancel(ctx context.Context, id primitive.ObjectID, actor Actor) error {
	apt, err := m.store.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if !actor.isAdmin() && actor.ID != apt.Patient && actor.ID != apt.Doctor {
		return ErrForbidden
	}

	m.notify(ctx, apt, models.NotifyCancelled)

	if err := m.store.Delete(ctx, id); err != nil {
		return err
	}
	m.log.WithField("appointment", apt.ID.Hex()).Info("appointment cancelled")
	return nil
}

func (m *Manager) validateCreate(in CreateInput) error {
	switch {
	case in.DoctorID.IsZero():
		return invalid("doctorId", "Invalid doctor or patient ID.")
	case in.Name == "" || in.Address == "" || in.Disease == "" || in.Date.IsZero():
		return invalid("", "All required fields must be provided.")
	case !emailRx.MatchString(in.Email):
		return invalid("email", "Invalid email format.")
	case !mobileRx.MatchString(in.Mobile):
		return invalid("mobile", "Mobile number must be 10 digits.")
	case in.Gender != "male" && in.Gender != "female" && in.Gender != "other":
		return invalid("gender", "Invalid gender.")
	case in.Age < 0 || in.Age > 150:
		return invalid("age", "Invalid age.")
	}

	now := m.now()
	if in.Date.Before(now) || in.Date.After(now.Add(BookingWindow)) {
		return invalid("date", "Appointment date must be within the next 30 days.")
	}
	return nil
}

// notify snapshots the appointment into an outbox entry. Failures are
// logged and swallowed: the data mutation already committed.
func (m *Manager) notify(ctx context.Context, apt *models.Appointment, kind string) {
	if apt.Email == "" {
		m.log.WithField("appointment", apt.ID.Hex()).
			Warn("notification skipped: appointment has no contact email")
		return
	}

	n := &models.Notification{
		Kind:        kind,
		Recipient:   apt.Email,
		DoctorName:  m.doctorName(ctx, apt.Doctor),
		Appointment: *apt,
	}
	if err := m.notifier.Enqueue(ctx, n); err != nil {
		m.log.WithError(err).WithFields(logrus.Fields{
			"appointment": apt.ID.Hex(),
			"kind":        kind,
		}).Error("failed to enqueue notification")
	}
}

func (m *Manager) doctorName(ctx context.Context, doctorID primitive.ObjectID) string {
	doctor, err := m.users.FindByID(ctx, doctorID)
	if err != nil {
		return "N/A"
	}
	return doctor.Name
}
