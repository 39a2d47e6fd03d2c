package state

import "errors"

// ErrStreamEnded is the sentinel every sender method returns once a
// response has been fully written. Handlers return (or, for nested
// helpers, propagate) this exact value to tell the Router the request
// is complete; it is the typed-runtime realization of spec.md §9's
// "cross-cutting stream-ended sentinel" design note — a concrete result
// value stood in for the source's thrown-symbol idiom.
//
// A handler that returns nil without having called a sender is a bug:
// the Router surfaces it as REQUEST_DROPPED (500), per spec.md §4.5
// step 6. Any other error is handed to the Router's recovery handler.
var ErrStreamEnded = errors.New("state: response stream ended")

// IsStreamEnded reports whether err is the stream-ended sentinel.
func IsStreamEnded(err error) bool {
	return errors.Is(err, ErrStreamEnded)
}
