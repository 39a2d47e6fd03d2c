package state

import "testing"

func TestWriteEarlyHintsNoopsWithoutHTTP2(t *testing.T) {
	s, res := newTestState("GET", "/wiki/Home")
	res.earlyHints = false

	if err := s.WriteEarlyHints(map[string][]string{"Link": {"</style.css>; rel=preload"}}); err != nil {
		t.Fatalf("WriteEarlyHints = %v, want nil no-op on a non-HTTP/2 connection", err)
	}
	if res.status != 0 {
		t.Fatalf("status = %d, want untouched (0)", res.status)
	}
}

func TestWriteEarlyHintsSends103OverHTTP2(t *testing.T) {
	s, res := newTestState("GET", "/wiki/Home")
	res.earlyHints = true

	if err := s.WriteEarlyHints(map[string][]string{"Link": {"</style.css>; rel=preload"}}); err != nil {
		t.Fatalf("WriteEarlyHints: %v", err)
	}
	if res.status != 103 {
		t.Fatalf("status = %d, want 103", res.status)
	}
	if s.HeadersSent() {
		t.Fatal("early hints must not mark the final response as sent")
	}
}
