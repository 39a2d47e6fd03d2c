package state

import "github.com/wikihost/engine/senderror"

// WriteEarlyHints sends a 103 Early Hints informational response with
// the given headers (typically Link preload hints), if and only if the
// underlying connection supports it (HTTP/2 only, per spec.md §4.3).
// On any other protocol it is a silent no-op — callers are not expected
// to branch on HTTP version before calling this. It does not mark
// headers as sent — a real final response must still follow.
func (s *RequestState) WriteEarlyHints(headers map[string][]string) error {
	if !s.res.SupportsEarlyHints() {
		return nil
	}
	s.mu.Lock()
	alreadySent := s.headersSent
	s.mu.Unlock()
	if alreadySent {
		return senderror.New(senderror.ReasonRequestDropped, 500).WithDetails("early hints must precede the final response")
	}

	for name, values := range headers {
		for _, v := range values {
			s.res.Header().Add(name, v)
		}
	}
	s.res.WriteHeader(103)
	s.res.Flush()

	// 103 is informational; restore a clean header map for the real
	// response that follows (net/http does not clear on WriteHeader(1xx)).
	for name := range headers {
		s.res.Header().Del(name)
	}
	return nil
}
