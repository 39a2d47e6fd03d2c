// Package router implements the engine's route tree and its eight-phase
// dispatch algorithm (spec.md §4.5): parse, middleware hook, depth-first
// match, body preparation, security checks, handle, recovery, fallback.
package router

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wikihost/engine/compress"
	"github.com/wikihost/engine/eventbus"
	"github.com/wikihost/engine/logging"
	"github.com/wikihost/engine/security"
	"github.com/wikihost/engine/senderror"
	"github.com/wikihost/engine/state"
	"github.com/wikihost/engine/transport"
	"go.uber.org/zap"
)

// statusRecorder wraps a transport.ResponseWriter to remember which
// status code was actually sent, for the completion-time
// request.handle emission Metrics.Attach subscribes to (see the
// comment on that emit below).
type statusRecorder struct {
	transport.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(status int) {
	if w.status == 0 {
		w.status = status
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusRecorder) Write(p []byte) (int, error) {
	if w.status == 0 {
		w.status = 200
	}
	return w.ResponseWriter.Write(p)
}

// Options configures a Router at construction time.
type Options struct {
	// Bus is the event bus the router emits lifecycle events on.
	// eventbus.Default() is used if nil.
	Bus *eventbus.Bus
	// Security is the named security-check registry consulted during
	// the security-checks dispatch phase. security.NewRegistry() (empty)
	// is used if nil.
	Security *security.Registry
	// PathPrefix is the listener's configured URL mount point ("" or a
	// string starting with "/", never ending with "/").
	PathPrefix string
	// MaxBodyBytes bounds body-preparation reads (spec.md §4.5 step 4).
	// Defaults to 100 MiB, spec.md's stated default.
	MaxBodyBytes int64
	// CompressWhitelist restricts which encodings RequestState may
	// negotiate for responses dispatched through this router.
	CompressWhitelist []compress.Encoding
	// Recover overrides the router's default recovery rendering
	// (dispatch phase 7). DefaultRecover is used if nil.
	Recover RecoveryHandler
	// Fallback overrides the router's default no-match response
	// (dispatch phase 8). DefaultFallback is used if nil.
	Fallback func(s *state.RequestState) error
}

const defaultMaxBodyBytes = 100 << 20 // 100 MiB, spec.md §4.5's stated default

// Router owns the immutable route tree and drives dispatch for every
// request a Listener hands it (spec.md §4.5, §5 "the route tree is
// immutable after startup; read-only access is safe from any task").
type Router struct {
	root     *Node
	bus      *eventbus.Bus
	security *security.Registry

	pathPrefix        string
	maxBodyBytes      int64
	compressWhitelist []compress.Encoding

	recover  RecoveryHandler
	fallback func(s *state.RequestState) error
}

// New constructs a Router with an empty route tree. Use Root to build
// routes before traffic arrives.
func New(opts Options) *Router {
	bus := opts.Bus
	if bus == nil {
		bus = eventbus.Default()
	}
	reg := opts.Security
	if reg == nil {
		reg = security.NewRegistry()
	}
	maxBody := opts.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBodyBytes
	}
	recover := opts.Recover
	if recover == nil {
		recover = DefaultRecover
	}
	fallback := opts.Fallback
	if fallback == nil {
		fallback = DefaultFallback
	}

	r := &Router{
		root:              NewRoot(),
		bus:               bus,
		security:          reg,
		pathPrefix:        opts.PathPrefix,
		maxBodyBytes:      maxBody,
		compressWhitelist: opts.CompressWhitelist,
		recover:           recover,
		fallback:          fallback,
	}
	bus.Emit(context.Background(), eventbus.EventListenerInit, r)
	return r
}

// Root returns the tree's root node, for registering routes.
func (r *Router) Root() *Node { return r.root }

// DefaultRecover renders an uncaught SendError as its JSON form; any
// other error is treated as an opaque internal server error (spec.md
// §7: "any other throw is treated as an internal server error").
// Detail payloads for internal errors are never forwarded to the
// client — only the reason and status are.
func DefaultRecover(s *state.RequestState, err error) error {
	se, ok := senderror.AsSendError(err)
	if !ok {
		se = senderror.Internal(nil)
	}
	body := se
	if se.Reason == senderror.ReasonInternalServerError {
		body = senderror.New(se.Reason, se.Status)
	}
	sendErr := s.SendJSON(se.Status, body)
	if state.IsStreamEnded(sendErr) {
		return nil
	}
	return sendErr
}

// DefaultFallback sends a plain 404 when no route matched (spec.md §4.5
// step 8).
func DefaultFallback(s *state.RequestState) error {
	return s.SendSimple(404, "Not Found")
}

// Handle runs the full eight-phase dispatch for one request (spec.md
// §4.5). The Listener Set is the intended caller; ctx governs the
// request's lifetime (cancelled on client disconnect or graceful
// shutdown per spec.md §5).
func (r *Router) Handle(ctx context.Context, req transport.Request, res transport.ResponseWriter) error {
	started := time.Now()
	rec := &statusRecorder{ResponseWriter: res}
	defer func() {
		status := rec.status
		if status == 0 {
			status = 200
		}
		// Realizes SPEC_FULL.md §4.11: metrics observes completion, not
		// the pre-invocation moment spec.md §4.5 step 6 describes — the
		// same event name carries both signals; onRequestHandled ignores
		// the phase-6 (single-argument) emit below since it only reads a
		// 3-argument (method, status, started) payload.
		r.bus.Emit(context.Background(), eventbus.EventRequestHandle, req.Method(), status, started)
	}()

	// --- Phase 1: parse ---
	rawPath := req.URL().Path
	routable, status, location, refuseBody := r.applyPrefix(rawPath)
	if status == 302 {
		rec.Header().Set("Location", location)
		rec.WriteHeader(302)
		return nil
	}
	if status == 500 {
		rec.Header().Set("Content-Type", "text/plain; charset=utf-8")
		rec.WriteHeader(500)
		_, _ = rec.Write([]byte(refuseBody))
		return nil
	}

	s := state.New(state.Options{
		Request:           req,
		Response:          rec,
		Bus:               r.bus,
		PathPrefix:        r.pathPrefix,
		CompressWhitelist: r.compressWhitelist,
	})
	s.SetURL(routable)
	defer state.Release(s)

	// The Streamer now exists (spec.md's data-flow step "construct
	// RequestState"); request.streamer fires once per request, before
	// any routing or middleware has had a chance to touch it.
	r.bus.Emit(ctx, eventbus.EventRequestStreamer, s)

	// --- Phase 2: middleware hook ---
	if err := r.bus.EmitAsync(ctx, eventbus.EventRequestMiddleware, s); err != nil {
		logging.L().Warn("router: middleware hook reported an error", zap.Error(err))
	}
	if s.HeadersSent() {
		return nil
	}

	// --- Phase 3: match ---
	match := r.match(s.Method(), routable)
	if match == nil {
		r.bus.Emit(ctx, eventbus.EventRequestFallback, s)
		return r.renderFallback(s)
	}
	s.SetPathParams(match.captures)
	s.SetRoutePath(match.routePath)
	s.SetBodyFormat(match.node.bodyFormat)

	// --- Phase 4: body preparation ---
	if err := r.prepareBody(ctx, s, match.node.bodyFormat); err != nil {
		return r.renderRecovery(s, match.node, err)
	}

	// The Streamer's state is now fully populated (path/query/body) and
	// matched to a route; request.state fires once that's settled, ahead
	// of any security checks or handler invocation.
	r.bus.Emit(ctx, eventbus.EventRequestState, s)

	// --- Phase 5: security checks ---
	if len(match.security) > 0 {
		if err := r.security.Evaluate(s, match.security); err != nil {
			return r.renderRecovery(s, match.node, err)
		}
	}

	// --- Phase 6: handle ---
	// spec.md's pre-invocation signal: any 1-argument subscriber can
	// still react to "a handler is about to run" here; onRequestHandled
	// no-ops on this shape.
	r.bus.Emit(ctx, eventbus.EventRequestHandle, s)
	for _, h := range match.node.handlers {
		err := h(s)
		if state.IsStreamEnded(err) {
			return nil
		}
		if err != nil {
			return r.renderRecovery(s, match.node, err)
		}
	}
	// Every handler returned nil without ending the stream: a bug in
	// the handler, surfaced as spec.md §8 invariant 2 requires.
	return r.renderRecovery(s, match.node, senderror.New(senderror.ReasonRequestDropped, 500).
		WithDetails("handler completed without sending a response"))
}

// applyPrefix implements spec.md §3's path-prefix invariant and
// scenarios S1/S2 verbatim: a request exactly equal to the prefix is
// redirected to prefix+"/"; a request outside the prefix is refused
// with 500 and the exact diagnostic text S2 specifies; otherwise the
// prefix is stripped and the remaining (always "/"-prefixed) path is
// returned for routing.
func (r *Router) applyPrefix(rawPath string) (routable string, status int, location string, body string) {
	if r.pathPrefix == "" {
		return rawPath, 0, "", ""
	}
	if rawPath == r.pathPrefix {
		return "", 302, r.pathPrefix + "/", ""
	}
	if !strings.HasPrefix(rawPath, r.pathPrefix+"/") {
		return "", 500, "", fmt.Sprintf(
			"The server is setup with a path prefix %s, but this request is outside of that prefix.",
			r.pathPrefix,
		)
	}
	stripped := strings.TrimPrefix(rawPath, r.pathPrefix)
	if stripped == "" {
		stripped = "/"
	}
	return stripped, 0, "", ""
}

func (r *Router) renderFallback(s *state.RequestState) error {
	err := r.fallback(s)
	if state.IsStreamEnded(err) {
		return nil
	}
	return err
}

// renderRecovery implements spec.md §4.5 phase 7: the nearest recovery
// handler along the matched chain (leaf first) renders err if headers
// are unsent; otherwise the error is only logged (spec.md §7: "errors
// after headers are sent are strictly logged").
func (r *Router) renderRecovery(s *state.RequestState, leaf *Node, err error) error {
	if s.HeadersSent() {
		logging.L().Error("router: error after headers sent, dropping",
			zap.String("route", s.RoutePath()),
			zap.Error(err),
		)
		return nil
	}

	recover := r.recover
	for n := leaf; n != nil; n = n.parent {
		if n.recovery != nil {
			recover = n.recovery
			break
		}
	}

	rerr := recover(s, err)
	if state.IsStreamEnded(rerr) {
		return nil
	}
	return rerr
}

func (r *Router) prepareBody(ctx context.Context, s *state.RequestState, format state.BodyFormat) error {
	switch format {
	case state.BodyIgnore, state.BodyStream, state.BodyMultipart, "":
		return nil
	default:
		_, err := s.ReadBuffer(ctx, r.maxBodyBytes)
		return err
	}
}
