package state

import (
	"context"
	"fmt"
	"sync"

	"github.com/gin-contrib/sse"
	"github.com/goccy/go-json"

	"github.com/wikihost/engine/eventbus"
)

// SSEOptions configures a server-sent events stream (spec.md §4.3).
type SSEOptions struct {
	// RetryMillis sets the client's reconnection delay via the SSE
	// "retry" field; 0 omits it.
	RetryMillis int
	// There is no automatic heartbeat: callers drive their own ticker
	// and call EmitComment.
}

// SSEStream is the long-lived handle SendSSE returns. Its EmitEvent /
// EmitComment calls are safe to use from any goroutine, but only one
// should be active per RequestState — SSE is inherently exclusive use of
// the response body.
type SSEStream struct {
	mu      sync.Mutex
	s       *RequestState
	closed  bool
	onClose []func()
}

// SendSSE begins a Server-Sent Events stream: sends the five headers
// spec.md §4.3 lists (Content-Type, Cache-Control, Content-Encoding,
// Connection, X-Accel-Buffering), writes an unconditional preamble
// comment, optionally writes an initial retry directive, subscribes to
// the bus's exit event so shutdown closes the stream cleanly, and
// returns a handle for emitting further events.
func (s *RequestState) SendSSE(opts SSEOptions) (*SSEStream, error) {
	s.res.Header().Set("Content-Type", "text/event-stream")
	s.res.Header().Set("Cache-Control", "no-cache, max-age=0")
	s.res.Header().Set("Content-Encoding", "identity") // SSE is never compressed (spec.md §4.4 scope)
	s.res.Header().Set("Connection", "keep-alive")
	s.res.Header().Set("X-Accel-Buffering", "no") // defeats nginx-style proxy buffering of the stream

	if _, ok := s.beginSendRaw(200); !ok {
		return nil, ErrStreamEnded
	}

	stream := &SSEStream{s: s}
	s.sse = stream

	fmt.Fprintf(responseWriterAdapter{s.res}, ": stream opened\n\n")

	if opts.RetryMillis > 0 {
		sse.Encode(responseWriterAdapter{s.res}, sse.Event{Retry: uint(opts.RetryMillis)})
	}
	s.res.Flush()

	if s.bus != nil {
		s.bus.On(eventbus.EventExit, stream.onBusExit)
		s.bus.Emit(context.Background(), eventbus.EventSSEOpened, s)
	}

	return stream, nil
}

// beginSendRaw is like beginSend but without content-encoding
// negotiation — SSE owns its own framing and must never be wrapped in a
// compressor the client didn't ask an event stream for.
func (s *RequestState) beginSendRaw(status int) (struct{}, bool) {
	if !s.markHeadersSent() {
		return struct{}{}, false
	}
	s.res.WriteHeader(status)
	return struct{}{}, true
}

func (h *SSEStream) onBusExit(ctx context.Context, args ...any) error {
	h.Close()
	return nil
}

// EmitEvent writes one SSE event. name may be empty for an unnamed
// "message" event; id, if non-empty, sets the event's id field so the
// client can resume with Last-Event-ID.
func (h *SSEStream) EmitEvent(name, id string, data any) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrStreamEnded
	}
	// gin-contrib/sse only JSON-marshals struct/slice/map kinds on its
	// own — a bare string would be written raw instead of quoted — so
	// every payload is stringified here to satisfy spec.md §4.3's "data
	// is JSON-stringified" regardless of its Go type.
	encoded, err := json.Marshal(data)
	if err != nil {
		return err
	}
	err = sse.Encode(responseWriterAdapter{h.s.res}, sse.Event{
		Event: name,
		Id:    id,
		Data:  json.RawMessage(encoded),
	})
	if err != nil {
		return err
	}
	h.s.res.Flush()
	return nil
}

// EmitComment writes an SSE comment line (a heartbeat/keep-alive, per
// spec.md §4.3), which clients ignore but which keeps intermediaries
// from timing out the connection.
func (h *SSEStream) EmitComment(comment string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrStreamEnded
	}
	_, err := fmt.Fprintf(responseWriterAdapter{h.s.res}, ": %s\n\n", comment)
	if err != nil {
		return err
	}
	h.s.res.Flush()
	return nil
}

// OnClose registers fn to run when the stream closes, whether via
// Close() or process shutdown (the bus's exit event). The request
// context ending does not close the stream.
func (h *SSEStream) OnClose(fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onClose = append(h.onClose, fn)
}

// Close ends the SSE stream and unsubscribes from shutdown
// notifications. It returns ErrStreamEnded so a handler can simply
// `return handle.Close()` as its final statement.
func (h *SSEStream) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return ErrStreamEnded
	}
	h.closed = true
	callbacks := h.onClose
	h.mu.Unlock()

	if h.s.bus != nil {
		h.s.bus.Off(eventbus.EventExit, h.onBusExit)
		h.s.bus.Emit(context.Background(), eventbus.EventSSEClosed, h.s)
	}
	for _, fn := range callbacks {
		fn()
	}
	return ErrStreamEnded
}
