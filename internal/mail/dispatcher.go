// Package mail delivers account emails. Dispatcher decouples delivery from
// request handling; SMTPMailer and LogMailer are the transports.
package mail

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/msomdec/contacts-api/internal/domain"
	"github.com/msomdec/contacts-api/internal/metrics"
)

// ErrQueueFull is returned when the dispatcher cannot accept more work.
var ErrQueueFull = errors.New("mail queue full")

// ErrClosed is returned for sends after Close.
var ErrClosed = errors.New("mail dispatcher closed")

const (
	kindConfirmation  = "confirmation"
	kindPasswordReset = "password_reset"
)

type task struct {
	kind     string
	to       string
	username string
	token    string
}

// Dispatcher implements domain.Mailer by queueing messages for a pool of
// workers that deliver them through another Mailer. Sends never block:
// when the queue is full the message is dropped. Delivery failures are
// logged and counted, never returned to the sender.
type Dispatcher struct {
	mailer  domain.Mailer
	queue   chan task
	timeout time.Duration
	logger  *slog.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher starts workers goroutines draining a queue of queueSize.
func NewDispatcher(mailer domain.Mailer, workers, queueSize int, logger *slog.Logger) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	if logger == nil {
		logger = slog.Default()
	}
	d := &Dispatcher{
		mailer:  mailer,
		queue:   make(chan task, queueSize),
		timeout: 30 * time.Second,
		logger:  logger,
	}
	d.wg.Add(workers)
	for range workers {
		go d.work()
	}
	return d
}

func (d *Dispatcher) SendConfirmation(_ context.Context, to, username, token string) error {
	return d.enqueue(task{kind: kindConfirmation, to: to, username: username, token: token})
}

func (d *Dispatcher) SendPasswordReset(_ context.Context, to, username, token string) error {
	return d.enqueue(task{kind: kindPasswordReset, to: to, username: username, token: token})
}

func (d *Dispatcher) enqueue(t task) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrClosed
	}
	select {
	case d.queue <- t:
		return nil
	default:
		metrics.RecordMailDelivery(t.kind, metrics.DeliveryDropped)
		return ErrQueueFull
	}
}

// Close stops accepting messages, delivers everything already queued and
// waits for the workers to exit.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()
	d.wg.Wait()
	return nil
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for t := range d.queue {
		d.deliver(t)
	}
}

func (d *Dispatcher) deliver(t task) {
	// Delivery outlives the request that queued it.
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	var err error
	switch t.kind {
	case kindConfirmation:
		err = d.mailer.SendConfirmation(ctx, t.to, t.username, t.token)
	case kindPasswordReset:
		err = d.mailer.SendPasswordReset(ctx, t.to, t.username, t.token)
	}
	if err != nil {
		metrics.RecordMailDelivery(t.kind, metrics.DeliveryFailed)
		d.logger.Error("deliver email", "kind", t.kind, "to", t.to, "error", err)
		return
	}
	metrics.RecordMailDelivery(t.kind, metrics.DeliverySent)
	d.logger.Info("email delivered", "kind", t.kind, "to", t.to)
}
