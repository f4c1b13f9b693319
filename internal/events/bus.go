// internal/events/bus.go
package events

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrBusClosed is returned by Publish after Shutdown.
	ErrBusClosed = errors.New("event bus is shutting down")
	// ErrBusFull is returned by Publish when the buffer is full; the event is dropped.
	ErrBusFull = errors.New("event channel full")
)

// Bus delivers trade events to subscribers. Asynchronous events are
// dispatched by a single goroutine in publish order, so a sink such as the
// trade journal sees a buy before the sell of the same mint.
type Bus struct {
	logger *zap.Logger

	mu       sync.RWMutex
	handlers map[EventType]map[string]Handler
	closed   bool

	queue chan Event
	stop  chan struct{}
	done  chan struct{}
	once  sync.Once
}

// NewBus starts the dispatcher with a queue of bufferSize events.
func NewBus(logger *zap.Logger, bufferSize int) *Bus {
	b := &Bus{
		logger:   logger.Named("event_bus"),
		handlers: make(map[EventType]map[string]Handler),
		queue:    make(chan Event, bufferSize),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go b.dispatch()
	return b
}

// Subscribe registers handler for eventType. AllEvents matches every type.
func (b *Bus) Subscribe(eventType EventType, handler Handler) Subscription {
	id := uuid.New().String()

	b.mu.Lock()
	if b.handlers[eventType] == nil {
		b.handlers[eventType] = make(map[string]Handler)
	}
	b.handlers[eventType][id] = handler
	b.mu.Unlock()

	b.logger.Debug("Handler subscribed",
		zap.String("event_type", string(eventType)),
		zap.String("subscription_id", id))
	return &subscription{id: id, bus: b, typ: eventType}
}

// Publish queues event without blocking. A full queue drops the event.
func (b *Bus) Publish(event Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrBusClosed
	}

	select {
	case b.queue <- event:
		return nil
	default:
		b.logger.Warn("Event queue full, dropping event",
			zap.String("event_type", string(event.Type())),
			zap.Int("capacity", cap(b.queue)))
		return ErrBusFull
	}
}

// PublishSync runs every matching handler in the caller's goroutine and
// joins their errors.
func (b *Bus) PublishSync(ctx context.Context, event Event) error {
	var errs []error
	for id, h := range b.matching(event.Type()) {
		if err := h.Handle(ctx, event); err != nil {
			b.logger.Error("Handler error",
				zap.String("event_type", string(event.Type())),
				zap.String("handler_id", id),
				zap.Error(err))
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("handlers failed: %w", errors.Join(errs...))
	}
	return nil
}

// matching copies the handlers for t so they run without the lock held.
func (b *Bus) matching(t EventType) map[string]Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make(map[string]Handler, len(b.handlers[t])+len(b.handlers[AllEvents]))
	for id, h := range b.handlers[t] {
		out[id] = h
	}
	for id, h := range b.handlers[AllEvents] {
		out[id] = h
	}
	return out
}

func (b *Bus) dispatch() {
	defer close(b.done)
	ctx := context.Background()

	for {
		select {
		case event := <-b.queue:
			_ = b.PublishSync(ctx, event)
		case <-b.stop:
			// Досылаем всё, что успели поставить в очередь.
			for {
				select {
				case event := <-b.queue:
					_ = b.PublishSync(ctx, event)
				default:
					return
				}
			}
		}
	}
}

func (b *Bus) unsubscribe(id string, eventType EventType) {
	b.mu.Lock()
	defer b.mu.Unlock()

	handlers, ok := b.handlers[eventType]
	if !ok {
		return
	}
	delete(handlers, id)
	if len(handlers) == 0 {
		delete(b.handlers, eventType)
	}
	b.logger.Debug("Handler unsubscribed",
		zap.String("event_type", string(eventType)),
		zap.String("subscription_id", id))
}

// Shutdown rejects new events and waits until the queued ones are delivered
// or ctx expires.
func (b *Bus) Shutdown(ctx context.Context) error {
	b.once.Do(func() {
		b.mu.Lock()
		b.closed = true
		b.mu.Unlock()
		b.logger.Info("Shutting down event bus", zap.Int("pending", b.Pending()))
		close(b.stop)
	})

	select {
	case <-b.done:
		b.logger.Debug("Event bus drained")
		return nil
	case <-ctx.Done():
		b.logger.Warn("Event bus shutdown timeout", zap.Int("undelivered", b.Pending()))
		return ctx.Err()
	}
}

// Pending returns the number of queued, not yet delivered events.
func (b *Bus) Pending() int {
	return len(b.queue)
}
