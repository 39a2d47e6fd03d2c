// Package eventbus provides a process-wide, named, typed event registry
// used for startup/shutdown coordination and router hooks.
//
// The bus is intentionally small: handlers are plain functions keyed by
// event name, invocation is serialised per emit, and errors from async
// handlers are aggregated rather than aborting sibling handlers.
package eventbus

import (
	"context"
	"errors"
	"sync"
)

// Handler receives the arguments passed to Emit/EmitAsync for the event
// it was registered against. Handlers for synchronous events (Emit) must
// not return an error that needs handling — any error is logged by the
// caller, not surfaced.
type Handler func(ctx context.Context, args ...any) error

// Well-known event names used by the engine's own components. Embedders
// may register additional names freely (the "mws.*" family is reserved
// for middleware-contributed hooks).
const (
	EventExit              = "exit"
	EventListenerInit      = "listen.router.init"
	EventRequestMiddleware = "request.middleware"
	EventRequestStreamer   = "request.streamer"
	EventRequestState      = "request.state"
	EventRequestHandle     = "request.handle"
	EventRequestFallback   = "request.fallback"

	// EventSSEOpened and EventSSEClosed fire around a single Server-Sent
	// Events stream's lifetime (SPEC_FULL.md §4.11); the metrics registry
	// subscribes to both to keep wikihost_sse_connections_active accurate.
	EventSSEOpened = "sse.opened"
	EventSSEClosed = "sse.closed"
)

// Bus is a registry of named events and their subscribed handlers.
//
// A Bus is safe for concurrent use. Handler invocation for a single
// Emit/EmitAsync call is serialised (handlers run one at a time, in
// registration order) so that ordering guarantees (spec §5) hold even
// when handlers touch shared state such as metrics counters.
type Bus struct {
	mu       sync.Mutex
	handlers map[string][]Handler
}

// New creates an empty event bus.
func New() *Bus {
	return &Bus{handlers: make(map[string][]Handler)}
}

var (
	defaultMu  sync.Mutex
	defaultBus *Bus
)

// Default returns the process-wide bus, creating it on first use.
//
// The engine's own components (Listener Set, Router) use Default()
// unless a Bus is explicitly supplied, so that embedders who never
// think about the event bus still get startup/shutdown coordination
// for free. Tests should prefer New() to avoid cross-test leakage.
func Default() *Bus {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultBus == nil {
		defaultBus = New()
	}
	return defaultBus
}

// On subscribes handler to the named event. Handlers are invoked in the
// order they were registered.
func (b *Bus) On(name string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[name] = append(b.handlers[name], handler)
}

// Off removes a previously registered handler. Handlers are compared by
// address; pass the exact func value given to On.
func (b *Bus) Off(name string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	list := b.handlers[name]
	for i := range list {
		if sameFunc(list[i], handler) {
			b.handlers[name] = append(list[:i:i], list[i+1:]...)
			return
		}
	}
}

// Emit fires an event fire-and-forget: handlers run synchronously, in
// order, but any error a handler returns is swallowed (a misbehaving
// handler must not break the caller's control flow). Use EmitAsync when
// the caller needs to observe handler failures.
func (b *Bus) Emit(ctx context.Context, name string, args ...any) {
	for _, h := range b.snapshot(name) {
		_ = h(ctx, args...)
	}
}

// EmitAsync awaits each handler for name serially (in registration
// order) and aggregates every returned error into a single composite
// error. A composite error does not stop later handlers from running —
// all handlers always run; the aggregate is returned for the caller to
// log or rethrow.
func (b *Bus) EmitAsync(ctx context.Context, name string, args ...any) error {
	var errs []error
	for _, h := range b.snapshot(name) {
		if err := h(ctx, args...); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errors.Join(errs...)
}

// snapshot returns a copy of the handler slice for name so that handlers
// registered or removed mid-emit don't race the iteration.
func (b *Bus) snapshot(name string) []Handler {
	b.mu.Lock()
	defer b.mu.Unlock()
	list := b.handlers[name]
	out := make([]Handler, len(list))
	copy(out, list)
	return out
}

func sameFunc(a, b Handler) bool {
	return funcPointer(a) == funcPointer(b)
}
