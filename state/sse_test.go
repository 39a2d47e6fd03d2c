package state

import (
	"context"
	"strings"
	"testing"

	"github.com/wikihost/engine/eventbus"
)

func TestSendSSEWritesRequiredHeadersAndPreamble(t *testing.T) {
	s, res := newTestState("GET", "/events")

	stream, err := s.SendSSE(SSEOptions{})
	if err != nil {
		t.Fatalf("SendSSE: %v", err)
	}
	defer stream.Close()

	if ct := res.header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Content-Type = %q, want text/event-stream", ct)
	}
	if cc := res.header.Get("Cache-Control"); cc != "no-cache, max-age=0" {
		t.Fatalf("Cache-Control = %q, want %q", cc, "no-cache, max-age=0")
	}
	if ce := res.header.Get("Content-Encoding"); ce != "identity" {
		t.Fatalf("Content-Encoding = %q, want identity", ce)
	}
	if conn := res.header.Get("Connection"); conn != "keep-alive" {
		t.Fatalf("Connection = %q, want keep-alive", conn)
	}
	if buf := res.header.Get("X-Accel-Buffering"); buf != "no" {
		t.Fatalf("X-Accel-Buffering = %q, want no", buf)
	}
	if res.status != 200 {
		t.Fatalf("status = %d, want 200", res.status)
	}
	if !strings.HasPrefix(res.body.String(), ":") {
		t.Fatalf("body = %q, want it to start with an unconditional preamble comment", res.body.String())
	}
}

func TestEmitEventJSONStringifiesAPlainString(t *testing.T) {
	s, res := newTestState("GET", "/events")

	stream, err := s.SendSSE(SSEOptions{})
	if err != nil {
		t.Fatalf("SendSSE: %v", err)
	}
	defer stream.Close()

	if err := stream.EmitEvent("message", "", "hello"); err != nil {
		t.Fatalf("EmitEvent: %v", err)
	}
	if !strings.Contains(res.body.String(), `data:"hello"`) {
		t.Fatalf("body = %q, want a JSON-quoted string in the data field", res.body.String())
	}
}

func TestEmitEventJSONStringifiesAStruct(t *testing.T) {
	s, res := newTestState("GET", "/events")

	stream, err := s.SendSSE(SSEOptions{})
	if err != nil {
		t.Fatalf("SendSSE: %v", err)
	}
	defer stream.Close()

	if err := stream.EmitEvent("update", "", map[string]string{"page": "Home"}); err != nil {
		t.Fatalf("EmitEvent: %v", err)
	}
	if !strings.Contains(res.body.String(), `"page":"Home"`) {
		t.Fatalf("body = %q, want the marshaled map", res.body.String())
	}
}

// TestSSEThreeEventsThenClose covers spec.md §8 scenario S6: emitting
// three events then closing yields three ordered data: frames followed
// by the stream-ended sentinel (the handler's FIN signal).
func TestSSEThreeEventsThenClose(t *testing.T) {
	s, res := newTestState("GET", "/events")

	stream, err := s.SendSSE(SSEOptions{})
	if err != nil {
		t.Fatalf("SendSSE: %v", err)
	}

	for i, payload := range []string{"one", "two", "three"} {
		if err := stream.EmitEvent("tick", "", payload); err != nil {
			t.Fatalf("EmitEvent #%d: %v", i, err)
		}
	}

	if err := stream.Close(); err != ErrStreamEnded {
		t.Fatalf("Close = %v, want ErrStreamEnded", err)
	}

	body := res.body.String()
	for _, want := range []string{`data:"one"`, `data:"two"`, `data:"three"`} {
		if !strings.Contains(body, want) {
			t.Fatalf("body missing %q; got %q", want, body)
		}
	}
	if strings.Index(body, `"one"`) > strings.Index(body, `"two"`) ||
		strings.Index(body, `"two"`) > strings.Index(body, `"three"`) {
		t.Fatalf("events out of order: %q", body)
	}

	// A second Close (or write) after the stream has ended must not
	// succeed again — spec.md §8 invariant 1's "exactly one transition".
	if err := stream.Close(); err != ErrStreamEnded {
		t.Fatalf("second Close = %v, want ErrStreamEnded", err)
	}
	if err := stream.EmitEvent("late", "", "too late"); err != ErrStreamEnded {
		t.Fatalf("EmitEvent after close = %v, want ErrStreamEnded", err)
	}
}

func TestSendSSEEmitsLifecycleEventsOnBus(t *testing.T) {
	bus := eventbus.New()
	s, _ := newTestState("GET", "/events")
	s.bus = bus

	var opened, closed int
	bus.On(eventbus.EventSSEOpened, func(ctx context.Context, args ...any) error {
		opened++
		return nil
	})
	bus.On(eventbus.EventSSEClosed, func(ctx context.Context, args ...any) error {
		closed++
		return nil
	})

	stream, err := s.SendSSE(SSEOptions{})
	if err != nil {
		t.Fatalf("SendSSE: %v", err)
	}
	if opened != 1 {
		t.Fatalf("opened = %d, want 1 after SendSSE", opened)
	}
	if err := stream.Close(); err != ErrStreamEnded {
		t.Fatalf("Close = %v, want ErrStreamEnded", err)
	}
	if closed != 1 {
		t.Fatalf("closed = %d, want 1 after Close", closed)
	}
}
