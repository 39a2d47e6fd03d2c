package validate

import (
	"bytes"
	"context"
	"crypto/tls"
	"io"
	"net/url"

	"github.com/wikihost/engine/transport"
)

type fakeRequestForRoute struct {
	method string
	url    *url.URL
	header transport.Header
}

func newFakeRequestForRoute(method, rawURL string) *fakeRequestForRoute {
	u, _ := url.Parse(rawURL)
	return &fakeRequestForRoute{method: method, url: u, header: transport.Header{}}
}

func (r *fakeRequestForRoute) Method() string                { return r.method }
func (r *fakeRequestForRoute) URL() *url.URL                  { return r.url }
func (r *fakeRequestForRoute) Host() string                   { return "example.test" }
func (r *fakeRequestForRoute) Header() transport.Header       { return r.header }
func (r *fakeRequestForRoute) Body() io.ReadCloser             { return io.NopCloser(bytes.NewReader(nil)) }
func (r *fakeRequestForRoute) RemoteAddr() string             { return "127.0.0.1:1234" }
func (r *fakeRequestForRoute) TLSState() *tls.ConnectionState { return nil }
func (r *fakeRequestForRoute) ProtoMajor() int                { return 1 }
func (r *fakeRequestForRoute) Context() context.Context       { return context.Background() }

type fakeResponseWriterForRoute struct {
	header transport.Header
	status int
	body   bytes.Buffer
}

func newFakeResponseWriterForRoute() *fakeResponseWriterForRoute {
	return &fakeResponseWriterForRoute{header: transport.Header{}}
}

func (w *fakeResponseWriterForRoute) Header() transport.Header { return w.header }
func (w *fakeResponseWriterForRoute) WriteHeader(status int)    { w.status = status }
func (w *fakeResponseWriterForRoute) Write(p []byte) (int, error) {
	if w.status == 0 {
		w.status = 200
	}
	return w.body.Write(p)
}
func (w *fakeResponseWriterForRoute) Flush()              {}
func (w *fakeResponseWriterForRoute) Destroy() error       { return nil }
func (w *fakeResponseWriterForRoute) SupportsEarlyHints() bool { return false }
