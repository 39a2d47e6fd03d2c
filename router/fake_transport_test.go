package router

import (
	"bytes"
	"context"
	"crypto/tls"
	"io"
	"net/url"

	"github.com/wikihost/engine/transport"
)

type fakeRequest struct {
	method string
	url    *url.URL
	host   string
	header transport.Header
	body   io.ReadCloser
}

func newFakeRequest(method, rawURL string) *fakeRequest {
	u, _ := url.Parse(rawURL)
	return &fakeRequest{
		method: method,
		url:    u,
		host:   "example.test",
		header: transport.Header{},
		body:   io.NopCloser(bytes.NewReader(nil)),
	}
}

func (r *fakeRequest) Method() string                { return r.method }
func (r *fakeRequest) URL() *url.URL                  { return r.url }
func (r *fakeRequest) Host() string                    { return r.host }
func (r *fakeRequest) Header() transport.Header        { return r.header }
func (r *fakeRequest) Body() io.ReadCloser              { return r.body }
func (r *fakeRequest) RemoteAddr() string               { return "127.0.0.1:1234" }
func (r *fakeRequest) TLSState() *tls.ConnectionState   { return nil }
func (r *fakeRequest) ProtoMajor() int                  { return 1 }
func (r *fakeRequest) Context() context.Context         { return context.Background() }

type fakeResponseWriter struct {
	header    transport.Header
	status    int
	body      bytes.Buffer
	destroyed bool
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
func (w *fakeResponseWriter) Flush()                   {}
func (w *fakeResponseWriter) Destroy() error           { w.destroyed = true; return nil }
func (w *fakeResponseWriter) SupportsEarlyHints() bool { return false }
