// internal/events/handler.go
package events

import "context"

// Handler реагирует на торговые события. Обработчик вызывается из
// горутины шины и не должен блокировать её надолго.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc adapts a plain function to Handler.
type HandlerFunc func(ctx context.Context, event Event) error

func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Only wraps h so that it sees just the listed event types. Useful for sinks
// subscribed to AllEvents that care about a subset.
func Only(h Handler, types ...EventType) Handler {
	allowed := make(map[EventType]struct{}, len(types))
	for _, t := range types {
		allowed[t] = struct{}{}
	}
	return HandlerFunc(func(ctx context.Context, event Event) error {
		if _, ok := allowed[event.Type()]; !ok {
			return nil
		}
		return h.Handle(ctx, event)
	})
}

// Subscription is returned by Bus.Subscribe.
type Subscription interface {
	Unsubscribe()
}

type subscription struct {
	id  string
	bus *Bus
	typ EventType
}

func (s *subscription) Unsubscribe() {
	s.bus.unsubscribe(s.id, s.typ)
}
