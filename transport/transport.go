// Package transport defines the capability set the rest of the engine
// needs from an underlying HTTP implementation, so that HTTP/1.1 and
// HTTP/2 (cleartext or TLS) look identical above this layer (spec.md §9
// design note: "define a GenericRequest/GenericResponse capability set
// ... and adapt each underlying protocol to it").
//
// The only adapter shipped here targets net/http + golang.org/x/net/http2
// (package nethttp), since that pair already covers both protocols and
// TLS ALPN negotiation with an HTTP/1 fallback — reimplementing the wire
// protocol itself is explicitly out of scope (spec.md §1).
package transport

import (
	"context"
	"crypto/tls"
	"io"
	"net/url"
)

// Request is the read side of one HTTP request, independent of whether
// it arrived over HTTP/1.1 or HTTP/2.
type Request interface {
	Method() string
	URL() *url.URL
	Host() string
	Header() Header
	Body() io.ReadCloser
	RemoteAddr() string
	TLSState() *tls.ConnectionState
	ProtoMajor() int
	Context() context.Context
}

// ResponseWriter is the write side of one HTTP response.
type ResponseWriter interface {
	// Header returns the header map that will be sent, mutable until
	// WriteHeader or Write is first called.
	Header() Header

	// WriteHeader sends the response header with the given status code.
	// It is a no-op (but logged) on a second call — the engine itself
	// also enforces headers-sent-once above this layer.
	WriteHeader(status int)

	// Write writes body bytes, implicitly calling WriteHeader(200) if
	// it has not been called yet.
	Write(p []byte) (int, error)

	// Flush pushes any buffered bytes to the client immediately.
	Flush()

	// Destroy aborts the underlying connection/stream where the adapter
	// can; the net/http adapter cannot, and its Destroy is a no-op. Used
	// by SendStream on HEAD requests (spec.md §4.3: "on HEAD destroys
	// the source").
	Destroy() error

	// SupportsEarlyHints reports whether 103 Early Hints is meaningful
	// on this connection (true only for HTTP/2, per spec.md §4.3).
	SupportsEarlyHints() bool
}

// Header is a minimal multi-value header map, matching net/http.Header's
// shape without forcing every adapter to actually be one.
type Header map[string][]string

// Get returns the first value stored under exactly key. Unlike
// net/http.Header.Get it does not canonicalise key; callers pass the
// key as stored (the RequestState layer above lowercases request
// headers per spec.md §3).
func (h Header) Get(key string) string {
	v := h[key]
	if len(v) == 0 {
		return ""
	}
	return v[0]
}

// Values returns every value associated with key.
func (h Header) Values(key string) []string {
	return h[key]
}

// Set replaces any existing values for key.
func (h Header) Set(key, value string) {
	h[key] = []string{value}
}

// Add appends value to any existing values for key.
func (h Header) Add(key, value string) {
	h[key] = append(h[key], value)
}

// Del removes key entirely.
func (h Header) Del(key string) {
	delete(h, key)
}
