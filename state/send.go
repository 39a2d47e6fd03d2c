package state

import (
	"io"
	"net/url"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/wikihost/engine/compress"
)

// beginSend marks headers as sent and negotiates a content-encoding
// stream. It returns (nil, false) if a response was already sent, in
// which case callers must still return ErrStreamEnded — the first
// sender already owns the wire.
func (s *RequestState) beginSend(status int) (*compress.Stream, bool) {
	if !s.markHeadersSent() {
		return nil, false
	}

	encoding := compress.Negotiate(s.Header("accept-encoding"), s.compressWhitelist)
	if encoding != compress.Identity {
		s.res.Header().Set("Content-Encoding", string(encoding))
		s.res.Header().Del("Content-Length") // length is unknown once encoded
	}

	s.res.WriteHeader(status)

	stream, err := compress.NewStream(responseWriterAdapter{s.res}, encoding)
	if err != nil {
		// Negotiate only ever returns encodings stream.go knows how to
		// build, so this is unreachable in practice; fall back to
		// identity rather than panic mid-response.
		stream, _ = compress.NewStream(responseWriterAdapter{s.res}, compress.Identity)
	}
	s.compressStream = stream
	return stream, true
}

// responseWriterAdapter lets compress.Stream write through the
// transport.ResponseWriter without importing transport itself.
type responseWriterAdapter struct {
	w interface{ Write([]byte) (int, error) }
}

func (a responseWriterAdapter) Write(p []byte) (int, error) { return a.w.Write(p) }

// SendEmpty writes only a status code and no body.
func (s *RequestState) SendEmpty(status int) error {
	if _, ok := s.beginSend(status); !ok {
		return ErrStreamEnded
	}
	s.compressStream.Close()
	return ErrStreamEnded
}

// SendString writes body as the full response, as text/plain unless the
// caller already set a Content-Type.
func (s *RequestState) SendString(status int, body string) error {
	return s.sendBytes(status, "text/plain; charset=utf-8", []byte(body))
}

// SendBuffer writes body as the full response, as
// application/octet-stream unless the caller already set a Content-Type.
func (s *RequestState) SendBuffer(status int, body []byte) error {
	return s.sendBytes(status, "application/octet-stream", body)
}

// SendJSON marshals v with goccy/go-json and writes it as the full
// response body with a Content-Type of application/json.
func (s *RequestState) SendJSON(status int, v any) error {
	buf, err := json.Marshal(v)
	if err != nil {
		return s.sendBytes(500, "application/json; charset=utf-8", []byte(`{"reason":"INTERNAL_SERVER_ERROR"}`))
	}
	return s.sendBytes(status, "application/json; charset=utf-8", buf)
}

func (s *RequestState) sendBytes(status int, defaultContentType string, body []byte) error {
	if s.res.Header().Get("Content-Type") == "" {
		s.res.Header().Set("Content-Type", defaultContentType)
	}
	if compress.Negotiate(s.Header("accept-encoding"), s.compressWhitelist) == compress.Identity {
		s.res.Header().Set("Content-Length", strconv.Itoa(len(body)))
	}

	stream, ok := s.beginSend(status)
	if !ok {
		return ErrStreamEnded
	}
	stream.Write(body)
	stream.Close()
	return ErrStreamEnded
}

// SendStream pipes src to the response body until EOF or error, applying
// negotiated content-encoding as it goes. On a HEAD request the source
// is never read; the connection's write side is destroyed immediately
// after headers, matching spec.md §4.3.
func (s *RequestState) SendStream(status int, src io.Reader) error {
	stream, ok := s.beginSend(status)
	if !ok {
		return ErrStreamEnded
	}
	defer stream.Close()

	if s.method == "HEAD" {
		s.res.Destroy()
		return ErrStreamEnded
	}

	buf := compress.AcquireBuffer()
	defer compress.ReleaseBuffer(buf)

	chunk := make([]byte, 32*1024)
	for {
		n, err := src.Read(chunk)
		if n > 0 {
			stream.Write(chunk[:n])
			s.res.Flush()
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}
	}
	return ErrStreamEnded
}

// SendSimple is the common case: write a status and a body of whichever
// concrete type v is (string, []byte, or anything else, JSON-encoded),
// mirroring the source API's overloaded "send whatever you have" helper.
func (s *RequestState) SendSimple(status int, v any) error {
	switch body := v.(type) {
	case nil:
		return s.SendEmpty(status)
	case string:
		return s.SendString(status, body)
	case []byte:
		return s.SendBuffer(status, body)
	case io.Reader:
		return s.SendStream(status, body)
	default:
		return s.SendJSON(status, body)
	}
}

// Redirect sends a redirect response to target with the given status
// (expected to be a 3xx code; the caller is responsible for picking the
// right one, matching spec.md §4.3's thin redirect helper).
func (s *RequestState) Redirect(status int, target string) error {
	if u, err := url.Parse(target); err == nil {
		target = u.String()
	}
	s.res.Header().Set("Location", target)
	return s.SendEmpty(status)
}
