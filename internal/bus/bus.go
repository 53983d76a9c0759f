// Package bus provides a generic, type-indexed event bus. A subclass-style
// Classifier maps raw wire tokens to typed event tags and builds typed
// payloads from positional string arguments; listeners and middleware are
// registered per tag and invoked in registration order.
package bus

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Context carries a single dispatched event through middleware and listeners.
// Data holds the typed payload produced by the Classifier (or passed directly
// to EmitEvent); its concrete type is determined by the event tag.
type Context[E comparable, M any] struct {
	Event E
	Data  any
	Meta  M
}

// Middleware runs before any listener, once per dispatched event.
// Returning false aborts dispatch for that event.
type Middleware[E comparable, M any] func(c *Context[E, M]) bool

// Listener processes a dispatched event. The returned error is collected and
// logged by the bus; it is never silently discarded.
type Listener[M any] func(ctx context.Context, data any, meta M) error

// Classifier supplies the domain knowledge the bus itself does not have:
// mapping raw tokens to event tags and extracting typed payloads.
type Classifier[E comparable, M any] interface {
	// Event maps a raw wire token to an event tag. ok=false means the token
	// is not modeled and the emit is dropped without error.
	Event(raw string) (e E, ok bool)

	// Parse builds the typed payload for an event from positional arguments.
	// A shape mismatch (e.g. a non-numeric capture) is a hard error.
	Parse(event E, meta M, args []string) (any, error)
}

// Bus dispatches classified events to registered listeners. Registries are
// populated once at startup; Emit may then be called from the transport read
// loop. Listeners run on their own goroutines so a slow listener never blocks
// the read loop; ordering is only guaranteed among listeners of the same
// dispatch.
type Bus[E comparable, M any] struct {
	classifier  Classifier[E, M]
	logger      *slog.Logger
	name        string
	mu          sync.RWMutex
	middlewares []Middleware[E, M]
	listeners   map[E][]Listener[M]
	inflight    sync.WaitGroup
}

// New creates a bus around the given classifier. The name is used in log
// records to tell multiple buses apart.
func New[E comparable, M any](name string, c Classifier[E, M], logger *slog.Logger) *Bus[E, M] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus[E, M]{
		classifier: c,
		logger:     logger,
		name:       name,
		listeners:  make(map[E][]Listener[M]),
	}
}

// Use registers a middleware. Middleware run in registration order before any
// listener of every dispatched event.
func (b *Bus[E, M]) Use(mw Middleware[E, M]) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.middlewares = append(b.middlewares, mw)
}

// On registers a listener for an event tag. Listeners for the same tag are
// started in registration order.
func (b *Bus[E, M]) On(event E, l Listener[M]) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners[event] = append(b.listeners[event], l)
}

// Listen registers a listener with a concrete payload type. A payload of the
// wrong type is reported through the bus error log rather than panicking.
func Listen[D any, E comparable, M any](b *Bus[E, M], event E, fn func(ctx context.Context, data D, meta M) error) {
	b.On(event, func(ctx context.Context, data any, meta M) error {
		typed, ok := data.(D)
		if !ok {
			return fmt.Errorf("bus: event %v: payload is %T, want %T", event, data, typed)
		}
		return fn(ctx, typed, meta)
	})
}

// Emit classifies a raw wire token and dispatches the resulting event. A token
// with no mapping is dropped silently (the bus is intentionally lossy). A
// payload parse failure is returned to the caller and nothing is dispatched.
func (b *Bus[E, M]) Emit(ctx context.Context, raw string, args []string, meta M) error {
	event, ok := b.classifier.Event(raw)
	if !ok {
		return nil
	}

	data, err := b.classifier.Parse(event, meta, args)
	if err != nil {
		return fmt.Errorf("bus %s: parse %v: %w", b.name, event, err)
	}

	b.dispatch(ctx, &Context[E, M]{Event: event, Data: data, Meta: meta})
	return nil
}

// EmitEvent dispatches an already-typed event, bypassing classification.
func (b *Bus[E, M]) EmitEvent(ctx context.Context, event E, data any, meta M) {
	b.dispatch(ctx, &Context[E, M]{Event: event, Data: data, Meta: meta})
}

func (b *Bus[E, M]) dispatch(ctx context.Context, c *Context[E, M]) {
	b.mu.RLock()
	middlewares := b.middlewares
	listeners := b.listeners[c.Event]
	b.mu.RUnlock()

	for _, mw := range middlewares {
		if !mw(c) {
			return
		}
	}

	for _, l := range listeners {
		b.inflight.Add(1)
		go func(l Listener[M]) {
			defer b.inflight.Done()
			// Every listener outcome is observed here; failures must not
			// vanish inside a forgotten goroutine.
			if err := l(ctx, c.Data, c.Meta); err != nil {
				b.logger.Error("event listener failed",
					"bus", b.name,
					"event", fmt.Sprint(c.Event),
					"error", err,
				)
			}
		}(l)
	}
}

// Wait blocks until all in-flight listeners have returned. Used by shutdown
// and by tests that need deterministic listener completion.
func (b *Bus[E, M]) Wait() {
	b.inflight.Wait()
}
