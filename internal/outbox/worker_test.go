package outbox

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

type fakeQueue struct {
	pending []models.Notification

	sent    []primitive.ObjectID
	retried map[primitive.ObjectID]retryMark
	failed  map[primitive.ObjectID]string
}

type retryMark struct {
	attempts int
	next     time.Time
}

func newFakeQueue(pending ...models.Notification) *fakeQueue {
	return &fakeQueue{
		pending: pending,
		retried: map[primitive.ObjectID]retryMark{},
		failed:  map[primitive.ObjectID]string{},
	}
}

func (q *fakeQueue) Due(_ context.Context, now time.Time, _ int64) ([]models.Notification, error) {
	due := make([]models.Notification, 0)
	for _, n := range q.pending {
		if !n.NextAttemptAt.After(now) {
			due = append(due, n)
		}
	}
	return due, nil
}

func (q *fakeQueue) MarkSent(_ context.Context, id primitive.ObjectID, _ time.Time) error {
	q.sent = append(q.sent, id)
	return nil
}

func (q *fakeQueue) MarkRetry(_ context.Context, id primitive.ObjectID, attempts int, next time.Time, _ string) error {
	q.retried[id] = retryMark{attempts: attempts, next: next}
	return nil
}

func (q *fakeQueue) MarkFailed(_ context.Context, id primitive.ObjectID, sendErr string) error {
	q.failed[id] = sendErr
	return nil
}

type fakeSender struct {
	err   error
	sends []string
}

func (s *fakeSender) Send(to, subject, body string) error {
	if s.err != nil {
		return s.err
	}
	s.sends = append(s.sends, to)
	return nil
}

func pendingNotification(attempts int) models.Notification {
	return models.Notification{
		ID:        primitive.NewObjectID(),
		Key:       "test-key",
		Kind:      models.NotifyBooked,
		Recipient: "asha@example.com",
		Attempts:  attempts,
		Appointment: models.Appointment{
			Name:   "Asha Verma",
			Email:  "asha@example.com",
			Date:   time.Now().Add(48 * time.Hour),
			Status: models.StatusPending,
		},
	}
}

func TestProcessDueDeliversAndMarksSent(t *testing.T) {
	n := pendingNotification(0)
	queue := newFakeQueue(n)
	sender := &fakeSender{}
	w := NewWorker(queue, sender, logger.New("panic"), 30*time.Second, 5)

	require.NoError(t, w.ProcessDue(context.Background(), time.Now()))

	assert.Equal(t, []string{"asha@example.com"}, sender.sends)
	assert.Equal(t, []primitive.ObjectID{n.ID}, queue.sent)
	assert.Empty(t, queue.retried)
	assert.Empty(t, queue.failed)
}

func TestProcessDueBackoffProgression(t *testing.T) {
	now := time.Now()
	base := 30 * time.Second

	cases := []struct {
		priorAttempts int
		wantDelay     time.Duration
	}{
		{0, 30 * time.Second},
		{1, time.Minute},
		{2, 2 * time.Minute},
		{3, 4 * time.Minute},
	}
	for _, tc := range cases {
		n := pendingNotification(tc.priorAttempts)
		queue := newFakeQueue(n)
		sender := &fakeSender{err: errors.New("relay down")}
		w := NewWorker(queue, sender, logger.New("panic"), base, 5)

		require.NoError(t, w.ProcessDue(context.Background(), now))

		mark, ok := queue.retried[n.ID]
		require.True(t, ok)
		assert.Equal(t, tc.priorAttempts+1, mark.attempts)
		assert.Equal(t, now.Add(tc.wantDelay), mark.next)
	}
}

func TestProcessDueExhaustedRetriesParksEntry(t *testing.T) {
	n := pendingNotification(4)
	queue := newFakeQueue(n)
	sender := &fakeSender{err: errors.New("relay down")}
	w := NewWorker(queue, sender, logger.New("panic"), 30*time.Second, 5)

	require.NoError(t, w.ProcessDue(context.Background(), time.Now()))

	assert.Empty(t, queue.retried)
	assert.Equal(t, "relay down", queue.failed[n.ID])
}

func TestProcessDueSkipsNotYetDue(t *testing.T) {
	n := pendingNotification(1)
	n.NextAttemptAt = time.Now().Add(time.Hour)
	queue := newFakeQueue(n)
	sender := &fakeSender{}
	w := NewWorker(queue, sender, logger.New("panic"), 30*time.Second, 5)

	require.NoError(t, w.ProcessDue(context.Background(), time.Now()))
	assert.Empty(t, sender.sends)
}

func TestProcessDueUnknownKind(t *testing.T) {
	n := pendingNotification(0)
	n.Kind = "mystery"
	queue := newFakeQueue(n)
	sender := &fakeSender{}
	w := NewWorker(queue, sender, logger.New("panic"), 30*time.Second, 5)

	require.NoError(t, w.ProcessDue(context.Background(), time.Now()))

	assert.Empty(t, sender.sends)
	assert.Equal(t, "unknown notification kind", queue.failed[n.ID])
}
