// Package notification delivers service alerts (finished backtests,
// tripped circuit breakers) to external channels.
package notification

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"
)

// AlertLevel represents the severity of an alert.
type AlertLevel string

const (
	AlertInfo     AlertLevel = "INFO"
	AlertWarning  AlertLevel = "WARNING"
	AlertCritical AlertLevel = "CRITICAL"
)

// Alert represents a notification to be sent.
type Alert struct {
	Level   AlertLevel     `json:"level"`
	Title   string         `json:"title"`
	Message string         `json:"message"`
	Fields  map[string]any `json:"fields,omitempty"`
}

// Notifier is the interface for all notification backends.
type Notifier interface {
	// Send delivers an alert. Returns error if delivery fails.
	Send(ctx context.Context, alert Alert) error
}

// LogNotifier logs alerts instead of delivering them.
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier { return &LogNotifier{} }

func (n *LogNotifier) Send(ctx context.Context, alert Alert) error {
	log.Printf("[notify] [%s] %s: %s", alert.Level, alert.Title, alert.Message)
	return nil
}

// Multi fans an alert out to every backend and joins their errors.
type Multi []Notifier

func (m Multi) Send(ctx context.Context, alert Alert) error {
	var errs []error
	for _, n := range m {
		if err := n.Send(ctx, alert); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ErrQueueFull is returned by Dispatcher.Send when alerts arrive faster
// than they can be delivered.
var ErrQueueFull = errors.New("notification queue full")

// Dispatcher delivers alerts from a bounded queue on one background
// goroutine so callers never wait on a slow channel.
type Dispatcher struct {
	next    Notifier
	queue   chan Alert
	timeout time.Duration
	wg      sync.WaitGroup
	once    sync.Once
}

// NewDispatcher starts a dispatcher in front of next.
func NewDispatcher(next Notifier, size int) *Dispatcher {
	if size <= 0 {
		size = 64
	}
	d := &Dispatcher{next: next, queue: make(chan Alert, size), timeout: 10 * time.Second}
	d.wg.Add(1)
	go d.run()
	return d
}

// Send enqueues alert without blocking. ctx is not used for delivery.
func (d *Dispatcher) Send(_ context.Context, alert Alert) error {
	select {
	case d.queue <- alert:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops accepting alerts and waits for queued ones to be delivered.
// Send must not be called after Close.
func (d *Dispatcher) Close() {
	d.once.Do(func() { close(d.queue) })
	d.wg.Wait()
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for alert := range d.queue {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		if err := d.next.Send(ctx, alert); err != nil {
			log.Printf("[notify] delivery failed for %q: %v", alert.Title, err)
		}
		cancel()
	}
}
