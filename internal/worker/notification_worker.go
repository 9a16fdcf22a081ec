package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/coverage-service/internal/events"
)

// ErrQueueFull is returned when the worker cannot accept more events.
var ErrQueueFull = errors.New("notification queue full")

// Notifier delivers notifications for one event.
type Notifier interface {
	Notify(ctx context.Context, event events.Event) error
}

// NotifierFunc adapts a plain function, such as a publisher's Handle method.
type NotifierFunc func(ctx context.Context, event events.Event) error

// Notify calls f.
func (f NotifierFunc) Notify(ctx context.Context, event events.Event) error {
	return f(ctx, event)
}

// NotificationWorker moves event delivery (mail, Kafka) off the request path.
// Events are queued by the dispatcher and delivered by a single goroutine, so
// per-worker ordering is preserved.
type NotificationWorker struct {
	notifier    Notifier
	logger      *zap.Logger
	queue       chan events.Event
	sendTimeout time.Duration
	wg          sync.WaitGroup
}

// NewNotificationWorker creates a worker with the given queue capacity.
func NewNotificationWorker(notifier Notifier, logger *zap.Logger, capacity int) *NotificationWorker {
	if capacity <= 0 {
		capacity = 256
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationWorker{
		notifier:    notifier,
		logger:      logger,
		queue:       make(chan events.Event, capacity),
		sendTimeout: 30 * time.Second,
	}
}

// Register subscribes the worker to the given event types.
func (w *NotificationWorker) Register(d events.Dispatcher, types ...events.EventType) {
	for _, t := range types {
		d.Subscribe(t, w.Enqueue)
	}
}

// Enqueue accepts an event without blocking.
func (w *NotificationWorker) Enqueue(_ context.Context, event events.Event) error {
	select {
	case w.queue <- event:
		return nil
	default:
		w.logger.Warn("queued event dropped",
			zap.String("event_id", event.ID),
			zap.String("escalation_id", event.EscalationID))
		return ErrQueueFull
	}
}

// Start launches the delivery loop. It drains queued events after ctx is
// cancelled and returns once Wait is satisfied.
func (w *NotificationWorker) Start(ctx context.Context) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		for {
			select {
			case event := <-w.queue:
				w.deliver(event)
			case <-ctx.Done():
				w.drain()
				return
			}
		}
	}()
}

// Wait blocks until the delivery loop has exited.
func (w *NotificationWorker) Wait() {
	w.wg.Wait()
}

func (w *NotificationWorker) drain() {
	for {
		select {
		case event := <-w.queue:
			w.deliver(event)
		default:
			return
		}
	}
}

func (w *NotificationWorker) deliver(event events.Event) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("panic in event worker recovered", zap.Any("panic", r))
		}
	}()
	ctx, cancel := context.WithTimeout(context.Background(), w.sendTimeout)
	defer cancel()
	if err := w.notifier.Notify(ctx, event); err != nil {
		w.logger.Warn("event delivery failed",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)),
			zap.Error(err))
	}
}
