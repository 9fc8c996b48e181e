package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	EventBookingCreated  = "booking.created"
	EventBookingAccepted = "booking.accepted"
	EventBookingDeclined = "booking.declined"
)

// Notification is a push message for one principal's device.
type Notification struct {
	RecipientID uint
	Token       string
	Title       string
	Body        string
	Data        map[string]string
}

// BookingEvent describes a booking change for live clients and downstream consumers.
type BookingEvent struct {
	Type        string    `json:"type"`
	BookingID   string    `json:"bookingId"`
	RequesterID uint      `json:"requesterId"`
	ProviderID  uint      `json:"providerId"`
	Status      string    `json:"status"`
	Reason      string    `json:"reason,omitempty"`
	OccurredAt  time.Time `json:"occurredAt"`
}

// PushSender delivers a push message to a device token.
type PushSender interface {
	Send(ctx context.Context, token, title, body string, data map[string]string) error
}

// EventPublisher fans a booking event out to one sink.
type EventPublisher interface {
	PublishBookingEvent(ctx context.Context, e BookingEvent) error
}

var ErrNotifierClosed = errors.New("notifier closed")

// Notifier runs side effects on a bounded queue served by a fixed pool of
// workers. Callers never wait for delivery and never see its errors.
type Notifier struct {
	push       PushSender
	publishers []EventPublisher
	timeout    time.Duration
	log        logrus.FieldLogger

	jobs   chan job
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
}

type job struct {
	name string
	run  func(ctx context.Context) error
}

// NewNotifier starts workers goroutines draining a queue of queueSize jobs.
// push may be nil, in which case push messages are skipped.
func NewNotifier(push PushSender, workers, queueSize int, timeout time.Duration, log logrus.FieldLogger, publishers ...EventPublisher) *Notifier {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	n := &Notifier{
		push:       push,
		publishers: publishers,
		timeout:    timeout,
		log:        log,
		jobs:       make(chan job, queueSize),
	}
	for i := 0; i < workers; i++ {
		n.wg.Add(1)
		go n.work()
	}
	return n
}

func (n *Notifier) work() {
	defer n.wg.Done()
	for j := range n.jobs {
		ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
		err := j.run(ctx)
		cancel()
		if err != nil {
			n.log.WithError(err).WithField("job", j.name).Warn("notification failed")
		}
	}
}

// Notify queues a push message. It reports whether the message was queued.
func (n *Notifier) Notify(msg Notification) bool {
	log := n.log.WithField("recipient_id", msg.RecipientID)
	if msg.Token == "" {
		log.Debug("recipient has no push token, skipping")
		return false
	}
	if n.push == nil {
		log.Debug("push sender not configured, skipping")
		return false
	}

	return n.enqueue(job{
		name: "push",
		run: func(ctx context.Context) error {
			if err := n.push.Send(ctx, msg.Token, msg.Title, msg.Body, msg.Data); err != nil {
				return err
			}
			log.WithField("title", msg.Title).Debug("push sent")
			return nil
		},
	})
}

// Publish queues a booking event for every configured sink.
func (n *Notifier) Publish(e BookingEvent) bool {
	if len(n.publishers) == 0 {
		return false
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}

	return n.enqueue(job{
		name: e.Type,
		run: func(ctx context.Context) error {
			var errs []error
			for _, p := range n.publishers {
				if err := p.PublishBookingEvent(ctx, e); err != nil {
					errs = append(errs, err)
				}
			}
			return errors.Join(errs...)
		},
	})
}

func (n *Notifier) enqueue(j job) bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.closed {
		n.log.WithField("job", j.name).Warn("notifier closed, dropping job")
		return false
	}

	select {
	case n.jobs <- j:
		return true
	default:
		n.log.WithField("job", j.name).Warn("notification queue full, dropping job")
		return false
	}
}

// Shutdown stops accepting jobs and waits for queued ones until ctx is done.
func (n *Notifier) Shutdown(ctx context.Context) error {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return ErrNotifierClosed
	}
	n.closed = true
	close(n.jobs)
	n.mu.Unlock()

	done := make(chan struct{})
	go func() {
		n.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
