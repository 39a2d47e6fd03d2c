package state

import (
	"bytes"
	"context"
	"crypto/tls"
	"io"
	"net/url"

	"github.com/wikihost/engine/transport"
)

// fakeRequest is a minimal transport.Request for unit tests.
type fakeRequest struct {
	method string
	url    *url.URL
	host   string
	header transport.Header
	body   io.ReadCloser
	tls    *tls.ConnectionState
	proto  int
}

func newFakeRequest(method, rawURL string) *fakeRequest {
	u, _ := url.Parse(rawURL)
	return &fakeRequest{
		method: method,
		url:    u,
		host:   "example.test",
		header: transport.Header{},
		body:   io.NopCloser(bytes.NewReader(nil)),
		proto:  1,
	}
}

func (r *fakeRequest) Method() string                    { return r.method }
func (r *fakeRequest) URL() *url.URL                      { return r.url }
func (r *fakeRequest) Host() string                       { return r.host }
func (r *fakeRequest) Header() transport.Header           { return r.header }
func (r *fakeRequest) Body() io.ReadCloser                { return r.body }
func (r *fakeRequest) RemoteAddr() string                 { return "127.0.0.1:1234" }
func (r *fakeRequest) TLSState() *tls.ConnectionState     { return r.tls }
func (r *fakeRequest) ProtoMajor() int                    { return r.proto }
func (r *fakeRequest) Context() context.Context           { return context.Background() }

// fakeResponseWriter is a minimal transport.ResponseWriter for unit
// tests, recording everything written to it.
type fakeResponseWriter struct {
	header      transport.Header
	status      int
	body        bytes.Buffer
	flushes     int
	destroyed   bool
	earlyHints  bool
}

func newFakeResponseWriter() *fakeResponseWriter {
	return &fakeResponseWriter{header: transport.Header{}}
}

func (w *fakeResponseWriter) Header() transport.Header { return w.header }
func (w *fakeResponseWriter) WriteHeader(status int)    { w.status = status }
func (w *fakeResponseWriter) Write(p []byte) (int, error) {
	if w.status == 0 {
		w.status = 200
	}
	return w.body.Write(p)
}
func (w *fakeResponseWriter) Flush()              { w.flushes++ }
func (w *fakeResponseWriter) Destroy() error       { w.destroyed = true; return nil }
func (w *fakeResponseWriter) SupportsEarlyHints() bool { return w.earlyHints }

func newTestState(method, rawURL string) (*RequestState, *fakeResponseWriter) {
	req := newFakeRequest(method, rawURL)
	res := newFakeResponseWriter()
	s := New(Options{Request: req, Response: res})
	return s, res
}
