// Package state implements RequestState (spec.md calls it "the
// Streamer"): the per-request facade the Router constructs once a
// request has been parsed and matched, combining parsed inputs (method,
// URL, headers, cookies, path/query params) with every way a handler
// can produce a response (buffered writes, file serving, SSE, multipart
// ingestion) behind transparent content-encoding negotiation.
//
// A RequestState is owned by exactly one dispatching goroutine for
// exactly one request; see spec.md §5 for the concurrency model this
// assumes.
package state

import (
	"net/url"
	"runtime"
	"sync"

	"github.com/wikihost/engine/compress"
	"github.com/wikihost/engine/eventbus"
	"github.com/wikihost/engine/logging"
	"github.com/wikihost/engine/transport"
	"go.uber.org/zap"
)

// RequestState is the per-request facade described above. Exported
// fields are intentionally few — nearly everything is reached through
// accessor methods so construction (Router) and consumption (handlers)
// stay decoupled from the struct's internal layout.
type RequestState struct {
	req transport.Request
	res transport.ResponseWriter
	bus *eventbus.Bus

	method string
	host   string

	urlInfo    *url.URL // full parsed URL, including the path prefix
	url        string   // prefix-stripped path, always starts with "/"
	pathPrefix string

	headers transport.Header // lowercased keys, as received
	cookies map[string][]string

	pathParams  map[string]string
	queryParams map[string][]string

	bodyFormat BodyFormat
	dataBuffer []byte
	data       any

	// user is the collaborator slot spec.md §3/§6 reserves for an
	// externally-supplied session/auth handle (e.g. an authenticated
	// wiki user). The engine never inspects it; it only carries it.
	user any

	routePath string

	expectSecure bool

	mu          sync.Mutex
	headersSent bool
	sentAt      string // first call site, for the "already sent" diagnostic

	compressWhitelist []compress.Encoding
	compressStream    *compress.Stream

	sse *SSEStream
}

// Options configures a RequestState at construction time. The Router
// supplies these once it has parsed and matched the request.
type Options struct {
	Request    transport.Request
	Response   transport.ResponseWriter
	Bus        *eventbus.Bus
	PathPrefix string
	RoutePath  string
	// CompressWhitelist restricts which encodings the negotiator may
	// choose for this route (spec.md §4.4 acceptsEncoding).
	CompressWhitelist []compress.Encoding
}

var pool = sync.Pool{
	New: func() any { return &RequestState{} },
}

// New constructs a RequestState for one request. The Router is the only
// intended caller; handlers receive the already-built value.
//
// New records req.URL() as received (the Router supplies the
// prefix-stripped path afterwards via SetURL), parses cookies, and
// lower-cases request headers into the per-request header map — the
// normalisation spec.md §3 requires of every RequestState regardless of
// which listener or protocol produced the request.
func New(opts Options) *RequestState {
	s := pool.Get().(*RequestState)
	s.reset()

	s.req = opts.Request
	s.res = opts.Response
	s.bus = opts.Bus
	s.pathPrefix = opts.PathPrefix
	s.routePath = opts.RoutePath
	s.compressWhitelist = opts.CompressWhitelist

	s.method = opts.Request.Method()
	s.host = opts.Request.Host()
	s.urlInfo = opts.Request.URL()
	s.expectSecure = opts.Request.TLSState() != nil

	s.headers = lowercaseHeaders(opts.Request.Header())
	s.cookies = parseCookies(s.headers.Get("cookie"))

	return s
}

// Release returns s to the pool. The Router calls this once the
// response stream has ended (or the socket has closed); handlers must
// not retain a RequestState beyond that point.
func Release(s *RequestState) {
	pool.Put(s)
}

func (s *RequestState) reset() {
	s.req = nil
	s.res = nil
	s.bus = nil
	s.method = ""
	s.host = ""
	s.urlInfo = nil
	s.url = ""
	s.pathPrefix = ""
	s.headers = nil
	s.cookies = nil
	s.pathParams = nil
	s.queryParams = nil
	s.bodyFormat = ""
	s.dataBuffer = nil
	s.data = nil
	s.user = nil
	s.routePath = ""
	s.expectSecure = false
	s.headersSent = false
	s.sentAt = ""
	s.compressWhitelist = nil
	s.compressStream = nil
	s.sse = nil
}

// --- Introspection (spec.md §4.3) ---

// Method returns the HTTP method, pseudo-header-translated if needed
// (HTTP/2's :method maps to this the same way net/http already handles
// it upstream of this package).
func (s *RequestState) Method() string { return s.method }

// Host returns the request's authority. HTTP/2's :authority pseudo
// header is translated to this by the transport adapter before
// RequestState is ever constructed (spec.md §3 invariant).
func (s *RequestState) Host() string { return s.host }

// URL returns the path-prefix-stripped URL path (always starts with "/").
func (s *RequestState) URL() string { return s.url }

// SetURL is used by the Router once prefix-stripping has produced the
// routable path; not part of the public handler-facing contract.
func (s *RequestState) SetURL(u string) { s.url = u }

// URLInfo returns the fully parsed URL (including any configured path
// prefix) as received.
func (s *RequestState) URLInfo() *url.URL { return s.urlInfo }

// PathPrefix returns the listener's configured path-mount prefix
// ("" if none).
func (s *RequestState) PathPrefix() string { return s.pathPrefix }

// Header returns a single request header value by (case-insensitive) name.
func (s *RequestState) Header(name string) string {
	return s.headers.Get(lowercaseKey(name))
}

// Headers returns every request header, lowercased, multi-valued.
func (s *RequestState) Headers() transport.Header { return s.headers }

// Cookies returns every cookie sent with the request, as a multi-map
// (a client may legally repeat a cookie name).
func (s *RequestState) Cookies() map[string][]string { return s.cookies }

// Cookie returns the first value of the named cookie, or "" if absent.
func (s *RequestState) Cookie(name string) string {
	v := s.cookies[name]
	if len(v) == 0 {
		return ""
	}
	return v[0]
}

// PathParams returns the path parameters the Router's match contributed,
// innermost route wins on name collision (spec.md §3).
func (s *RequestState) PathParams() map[string]string { return s.pathParams }

// PathParam returns a single path parameter by name.
func (s *RequestState) PathParam(name string) string { return s.pathParams[name] }

// SetPathParams is used by the Router while walking the route tree.
func (s *RequestState) SetPathParams(p map[string]string) { s.pathParams = p }

// QueryParams returns every query parameter, multi-valued.
func (s *RequestState) QueryParams() map[string][]string {
	if s.queryParams == nil {
		s.queryParams = s.urlInfo.Query()
	}
	return s.queryParams
}

// QueryParam returns the first value of the named query parameter.
func (s *RequestState) QueryParam(name string) string {
	v := s.QueryParams()[name]
	if len(v) == 0 {
		return ""
	}
	return v[0]
}

// ExpectSecure reports whether the request arrived over TLS.
func (s *RequestState) ExpectSecure() bool { return s.expectSecure }

// BodyFormat returns the body format the matched route declared.
func (s *RequestState) BodyFormat() BodyFormat { return s.bodyFormat }

// SetBodyFormat is used by the Router once a route has matched.
func (s *RequestState) SetBodyFormat(f BodyFormat) { s.bodyFormat = f }

// DataBuffer returns the raw decoded body buffer, if the body format
// requested one (buffer/string/json/form).
func (s *RequestState) DataBuffer() []byte { return s.dataBuffer }

// SetDataBuffer is used by the Router's body-preparation step.
func (s *RequestState) SetDataBuffer(b []byte) { s.dataBuffer = b }

// Data returns the parsed body value (json/form), if any.
func (s *RequestState) Data() any { return s.data }

// SetData is used by the Router's body-preparation step.
func (s *RequestState) SetData(v any) { s.data = v }

// User returns the externally-supplied session/auth handle, or nil if
// no collaborator (e.g. a security Check) has set one yet.
func (s *RequestState) User() any { return s.user }

// SetUser sets the session/auth handle. Conventionally called by a
// security Check (e.g. bearerJWT) on successful authentication.
func (s *RequestState) SetUser(v any) { s.user = v }

// RoutePath returns the dispatch-time route path the matched node chain
// represents, useful for logging/metrics labels.
func (s *RequestState) RoutePath() string { return s.routePath }

// SetRoutePath is used by the Router once matching has completed — the
// matched path isn't known until the tree walk finishes, unlike the
// other Options fields which are available at construction time.
func (s *RequestState) SetRoutePath(p string) { s.routePath = p }

// HeadersSent reports whether a response has already begun.
func (s *RequestState) HeadersSent() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.headersSent
}

// markHeadersSent enforces "exactly one headers-sent transition" (spec.md
// §8 invariant 1). A second attempt is logged with the first call site
// and otherwise ignored — there is no clean recovery on the wire once
// headers are out (spec.md §7).
func (s *RequestState) markHeadersSent() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.headersSent {
		logging.L().Warn("state: headers already sent, ignoring second send",
			zap.String("route", s.routePath),
			zap.String("first_send_site", s.sentAt),
			zap.String("second_send_site", callerSite(3)),
		)
		return false
	}
	s.headersSent = true
	s.sentAt = callerSite(3)
	return true
}

func callerSite(skip int) string {
	_, file, line, ok := runtime.Caller(skip)
	if !ok {
		return "unknown"
	}
	return file + ":" + itoa(line)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
