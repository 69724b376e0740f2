package notify

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"campusmarket/internal/logger"
	"campusmarket/internal/metrics"
	"campusmarket/internal/transaction"
	"campusmarket/internal/user"

	"github.com/redis/go-redis/v9"
)

const (
	queueKey        = "emails"
	failedKey       = "emails:failed"
	maxTries        = 3
	popTimeout      = 2 * time.Second
	maxErrorBackoff = 30 * time.Second
)

type Job struct {
	To            string    `json:"to"`
	Name          string    `json:"name"`
	Subject       string    `json:"subject"`
	Body          string    `json:"body"`
	Event         string    `json:"event"`
	TransactionID string    `json:"transaction_id"`
	Tries         int       `json:"tries"`
	Created       time.Time `json:"created"`
}

// Sender delivers one email.
type Sender interface {
	Send(job Job) error
}

// UserLookup resolves the recipients of a transaction.
type UserLookup interface {
	FindByID(ctx context.Context, id string) (*user.User, error)
}

// Queue turns transaction events into emails, queues them in Redis and
// delivers them from a background worker.
type Queue struct {
	redis        *redis.Client
	users        UserLookup
	sender       Sender
	retryDelay   time.Duration
	errorBackoff time.Duration
}

func NewQueue(rdb *redis.Client, users UserLookup, sender Sender) *Queue {
	return &Queue{
		redis:        rdb,
		users:        users,
		sender:       sender,
		retryDelay:   5 * time.Second,
		errorBackoff: time.Second,
	}
}

// Notify queues the emails for event. Failures are logged only: the
// transaction change has already been committed.
func (q *Queue) Notify(ctx context.Context, event transaction.Event, t *transaction.Transaction) {
	for _, m := range messagesFor(event, t) {
		u, err := q.users.FindByID(ctx, m.userID)
		if err != nil {
			logger.Warn("notification recipient not found",
				"event", event,
				"transaction_id", t.ID,
				"user_id", m.userID,
				"error", err,
			)
			metrics.RecordNotification(string(event), "skipped")
			continue
		}

		job := Job{
			To:            u.Email,
			Name:          u.Name,
			Subject:       m.subject,
			Body:          render(u.Name, m.body),
			Event:         string(event),
			TransactionID: t.ID,
		}
		if err := q.Enqueue(ctx, job); err != nil {
			metrics.RecordNotification(string(event), "enqueue_failed")
			continue
		}
		metrics.RecordNotification(string(event), "queued")
	}
}

func (q *Queue) Enqueue(ctx context.Context, job Job) error {
	job.Tries = 0
	job.Created = time.Now()

	data, err := json.Marshal(job)
	if err != nil {
		logger.Errorf("Failed to marshal email job: %v", err)
		return err
	}

	if err := q.redis.LPush(ctx, queueKey, data).Err(); err != nil {
		logger.Errorf("Failed to queue email to %s: %v", job.To, err)
		return err
	}

	logger.Infof("Email queued: %s to %s", job.Subject, job.To)
	return nil
}

// Start runs the delivery worker until ctx ends. While Redis is unreachable
// the worker waits between attempts, doubling the wait up to maxErrorBackoff.
func (q *Queue) Start(ctx context.Context) {
	logger.Info("Notification worker started")

	backoff := q.errorBackoff
	for ctx.Err() == nil {
		err := q.processNext(ctx)
		switch {
		case err == nil:
			backoff = q.errorBackoff
			metrics.NotificationQueueDepth.Set(float64(q.QueueLength(ctx)))
		case errors.Is(err, redis.Nil):
			backoff = q.errorBackoff
		case ctx.Err() != nil:
		default:
			logger.Warn("notification queue unavailable", "error", err, "retry_in", backoff.String())
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
			}
			backoff = min(backoff*2, maxErrorBackoff)
		}
	}
	logger.Info("Notification worker stopped")
}

// processNext delivers one job. redis.Nil means the pop timed out on an
// empty queue.
func (q *Queue) processNext(ctx context.Context) error {
	result, err := q.redis.BRPop(ctx, popTimeout, queueKey).Result()
	if err != nil {
		return err
	}

	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		logger.Errorf("Bad email data: %v", err)
		return nil
	}
	q.deliver(ctx, job)
	return nil
}

func (q *Queue) deliver(ctx context.Context, job Job) {
	job.Tries++
	logger.Infof("Sending email to %s (attempt %d)", job.To, job.Tries)

	err := q.sender.Send(job)
	if err == nil {
		metrics.RecordNotification(job.Event, "sent")
		logger.Infof("Email sent to %s", job.To)
		return
	}

	logger.Errorf("Failed to send email to %s: %v", job.To, err)
	if job.Tries >= maxTries {
		metrics.RecordNotification(job.Event, "failed")
		q.saveFailed(ctx, job, err)
		return
	}

	select {
	case <-time.After(q.retryDelay):
	case <-ctx.Done():
	}
	data, _ := json.Marshal(job)
	// The worker context may already be cancelled; the retry must still land.
	if err := q.redis.LPush(context.WithoutCancel(ctx), queueKey, data).Err(); err != nil {
		logger.Errorf("Failed to requeue email to %s: %v", job.To, err)
		return
	}
	metrics.RecordNotification(job.Event, "retried")
	logger.Infof("Retrying email to %s (attempt %d)", job.To, job.Tries+1)
}

func (q *Queue) saveFailed(ctx context.Context, job Job, err error) {
	failed := map[string]interface{}{
		"job":   job,
		"error": err.Error(),
		"time":  time.Now(),
	}
	data, _ := json.Marshal(failed)
	q.redis.LPush(context.WithoutCancel(ctx), failedKey, data)
	logger.Errorf("Email moved to failed queue: %s", job.To)
}

func (q *Queue) QueueLength(ctx context.Context) int64 {
	length, _ := q.redis.LLen(ctx, queueKey).Result()
	return length
}
