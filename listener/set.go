package listener

import (
	"context"

	"github.com/wikihost/engine/eventbus"
	"github.com/wikihost/engine/router"
)

// Set owns every configured Listener and runs them together — the
// collection spec.md §2 calls "C2 Listener Set". Grounded on bolt's
// App.Run (core/app.go): a background goroutine per server plus an
// error channel, generalized here from bolt's single address to the
// engine's N-listener configuration.
type Set struct {
	listeners []*Listener
}

// NewSet constructs one Listener per config, sharing rtr and bus.
func NewSet(configs []Config, rtr *router.Router, bus *eventbus.Bus) *Set {
	listeners := make([]*Listener, len(configs))
	for i, cfg := range configs {
		listeners[i] = New(cfg, rtr, bus)
	}
	return &Set{listeners: listeners}
}

// Listeners returns the constructed listeners, e.g. so a caller can
// read back OS-chosen ports after Serve has bound them.
func (s *Set) Listeners() []*Listener { return s.listeners }

// Serve starts every listener concurrently and blocks until all of them
// have stopped (normally via the "exit" event reaching each one). It
// returns the first non-nil error any listener produced.
func (s *Set) Serve(ctx context.Context) error {
	if len(s.listeners) == 0 {
		return nil
	}

	errs := make(chan error, len(s.listeners))
	for _, l := range s.listeners {
		l := l
		go func() { errs <- l.Serve(ctx) }()
	}

	var firstErr error
	for range s.listeners {
		if err := <-errs; err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
