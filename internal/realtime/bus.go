package realtime

import (
	"context"

	"github.com/rs/zerolog/log"

	"chatcore/internal/domain"
)

// EventHandler consumes bridged domain events.
type EventHandler interface {
	HandleEvent(ctx context.Context, ev domain.Event)
}

// Bus is the fire-and-forget pipe between collaborators and the bridge. One
// goroutine drains the channel, so events are handled in publication order.
// The channel is the only buffer: when it is full the event is dropped and
// logged, keeping Publish non-blocking for publishers. At-most-once, no
// acknowledgement back.
type Bus struct {
	ch      chan domain.Event
	handler EventHandler
	done    chan struct{}
}

func NewBus(size int, handler EventHandler) *Bus {
	if size <= 0 {
		size = 256
	}
	return &Bus{
		ch:      make(chan domain.Event, size),
		handler: handler,
		done:    make(chan struct{}),
	}
}

var _ domain.EventPublisher = (*Bus)(nil)

// Publish enqueues ev without blocking.
func (b *Bus) Publish(ev domain.Event) {
	select {
	case b.ch <- ev:
	default:
		log.Warn().Str("module", "realtime.bus").
			Str("update_type", string(ev.Type)).
			Msg("event buffer full, dropping event")
	}
}

// Run drains the bus until ctx is canceled.
func (b *Bus) Run(ctx context.Context) {
	defer close(b.done)
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-b.ch:
			b.dispatch(ctx, ev)
		}
	}
}

// dispatch fences the handler call: a panicking handler must not take the
// bus loop down with it.
func (b *Bus) dispatch(ctx context.Context, ev domain.Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("module", "realtime.bus").
				Str("update_type", string(ev.Type)).
				Interface("panic", r).
				Msg("event handler panicked")
		}
	}()
	b.handler.HandleEvent(ctx, ev)
}

// Wait blocks until Run has returned.
func (b *Bus) Wait() {
	<-b.done
}
