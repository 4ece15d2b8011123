// Package outbox drains queued appointment notifications on a schedule,
// retrying failed sends with exponential backoff so mail-relay hiccups
// never surface as request failures.
package outbox

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/healthcareclinic/clinic-api/internal/mail"
	"github.com/healthcareclinic/clinic-api/internal/models"
)

const defaultBatchSize = 50

// Queue is the persistence side of the outbox; store.Outbox implements it.
type Queue interface {
	Due(ctx context.Context, now time.Time, limit int64) ([]models.Notification, error)
	MarkSent(ctx context.Context, id primitive.ObjectID, at time.Time) error
	MarkRetry(ctx context.Context, id primitive.ObjectID, attempts int, next time.Time, sendErr string) error
	MarkFailed(ctx context.Context, id primitive.ObjectID, sendErr string) error
}

type Worker struct {
	queue       Queue
	sender      mail.Sender
	log         *logrus.Logger
	baseBackoff time.Duration
	maxAttempts int
	batchSize   int64
}

func NewWorker(queue Queue, sender mail.Sender, log *logrus.Logger, baseBackoff time.Duration, maxAttempts int) *Worker {
	return &Worker{
		queue:       queue,
		sender:      sender,
		log:         log,
		baseBackoff: baseBackoff,
		maxAttempts: maxAttempts,
		batchSize:   defaultBatchSize,
	}
}

// Start schedules the drain loop and returns the scheduler so main can
// stop it on shutdown.
func (w *Worker) Start(interval time.Duration) *gocron.Scheduler {
	scheduler := gocron.NewScheduler(time.Local)

	scheduler.Every(interval).Do(func() {
		if err := w.ProcessDue(context.Background(), time.Now()); err != nil {
			w.log.WithError(err).Error("outbox drain failed")
		}
	})

	scheduler.StartAsync()
	w.log.WithField("interval", interval.String()).Info("outbox worker started")
	return scheduler
}

// ProcessDue delivers every pending notification whose retry time has
// passed. Per-notification failures are recorded and do not stop the
// batch.
func (w *Worker) ProcessDue(ctx context.Context, now time.Time) error {
	due, err := w.queue.Due(ctx, now, w.batchSize)
	if err != nil {
		return err
	}

	for i := range due {
		w.deliver(ctx, &due[i], now)
	}
	return nil
}

func (w *Worker) deliver(ctx context.Context, n *models.Notification, now time.Time) {
	log := w.log.WithFields(logrus.Fields{
		"notification": n.Key,
		"kind":         n.Kind,
		"recipient":    n.Recipient,
	})

	subject, body, ok := mail.AppointmentMessage(n)
	if !ok {
		log.Error("unknown notification kind, parking entry")
		if err := w.queue.MarkFailed(ctx, n.ID, "unknown notification kind"); err != nil {
			log.WithError(err).Error("failed to park notification")
		}
		return
	}

	sendErr := w.sender.Send(n.Recipient, subject, body)
	if sendErr == nil {
		if err := w.queue.MarkSent(ctx, n.ID, now); err != nil {
			log.WithError(err).Error("failed to mark notification sent")
		}
		log.Info("notification delivered")
		return
	}

	attempts := n.Attempts + 1
	if attempts >= w.maxAttempts {
		log.WithError(sendErr).WithField("attempts", attempts).
			Error("notification exhausted retries")
		if err := w.queue.MarkFailed(ctx, n.ID, sendErr.Error()); err != nil {
			log.WithError(err).Error("failed to park notification")
		}
		return
	}

	next := now.Add(w.baseBackoff << (attempts - 1))
	log.WithError(sendErr).WithFields(logrus.Fields{
		"attempts":    attempts,
		"nextAttempt": next.Format(time.RFC3339),
	}).Warn("notification send failed, will retry")
	if err := w.queue.MarkRetry(ctx, n.ID, attempts, next, sendErr.Error()); err != nil {
		log.WithError(err).Error("failed to schedule notification retry")
	}
}
