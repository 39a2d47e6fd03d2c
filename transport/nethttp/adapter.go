// Package nethttp adapts net/http (for HTTP/1.1 and TLS+ALPN HTTP/2) and
// golang.org/x/net/http2/h2c (for cleartext HTTP/2) to the engine's
// transport.Request/transport.ResponseWriter capability set.
package nethttp

import (
	"context"
	"crypto/tls"
	"io"
	"net/http"
	"net/url"

	"github.com/wikihost/engine/transport"
)

// request adapts *http.Request.
type request struct {
	r *http.Request
}

// WrapRequest returns a transport.Request backed by r.
func WrapRequest(r *http.Request) transport.Request {
	return request{r: r}
}

func (q request) Method() string    { return q.r.Method }
func (q request) URL() *url.URL     { return q.r.URL }
func (q request) Host() string      { return q.r.Host }
func (q request) RemoteAddr() string { return q.r.RemoteAddr }
func (q request) ProtoMajor() int   { return q.r.ProtoMajor }
func (q request) Context() context.Context { return q.r.Context() }
func (q request) Body() io.ReadCloser      { return q.r.Body }

func (q request) TLSState() *tls.ConnectionState { return q.r.TLS }

func (q request) Header() transport.Header {
	return transport.Header(q.r.Header)
}

// responseWriter adapts http.ResponseWriter.
type responseWriter struct {
	w          http.ResponseWriter
	protoMajor int
}

// WrapResponseWriter returns a transport.ResponseWriter backed by w. The
// protoMajor of the originating request determines whether Early Hints
// are meaningful (spec.md §4.3: HTTP/2 only).
func WrapResponseWriter(w http.ResponseWriter, protoMajor int) transport.ResponseWriter {
	return &responseWriter{w: w, protoMajor: protoMajor}
}

func (rw *responseWriter) Header() transport.Header {
	return transport.Header(rw.w.Header())
}

func (rw *responseWriter) WriteHeader(status int) { rw.w.WriteHeader(status) }

func (rw *responseWriter) Write(p []byte) (int, error) { return rw.w.Write(p) }

func (rw *responseWriter) Flush() {
	if f, ok := rw.w.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *responseWriter) Destroy() error {
	// net/http has no direct "abort this stream" verb; hijacking is
	// HTTP/1-only and would itself violate the HTTP/2 contract, so the
	// portable approach is to stop writing and let the framework's own
	// connection teardown (client disconnect, handler return) reclaim
	// the socket. Callers (sendStream on HEAD) simply stop piping.
	return nil
}

func (rw *responseWriter) SupportsEarlyHints() bool {
	return rw.protoMajor >= 2
}
