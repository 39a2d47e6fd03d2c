// Package listener implements the Listener Set (spec.md §4.2): one
// bound socket per configured endpoint, forwarding accepted requests to
// a Router and participating in the event bus's graceful-shutdown
// protocol.
package listener

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/wikihost/engine/eventbus"
	"github.com/wikihost/engine/logging"
	"github.com/wikihost/engine/router"
	"github.com/wikihost/engine/transport/nethttp"
	"go.uber.org/zap"
)

// gracefulShutdownGrace is spec.md §5's "in-flight requests are given
// up to 5 seconds to complete before the process force-exits".
const gracefulShutdownGrace = 5 * time.Second

const defaultPort = "8080"

// Config is one listener's bind configuration (spec.md §3 Listener,
// §6 "Listener configuration").
type Config struct {
	Host   string
	Port   string // "0" -> OS-chosen; numeric string -> parsed; "" or invalid -> 8080
	Prefix string
	Secure bool
	// CertFile/KeyFile are required when Secure is true.
	CertFile string
	KeyFile  string
	// RedirectPort, when set on a Secure listener, binds a second,
	// plaintext socket on that port that 301-redirects every request to
	// the same host on Port (spec.md §3/§6's optional "redirect-port").
	RedirectPort string
}

// ResolvePort applies spec.md §4.2's port-handling rule verbatim: "0"
// means OS-chosen, a numeric string is parsed, and anything missing or
// invalid falls back to 8080.
func ResolvePort(raw string) string {
	if raw == "" {
		return defaultPort
	}
	if raw == "0" {
		return "0"
	}
	if _, err := strconv.Atoi(raw); err != nil {
		return defaultPort
	}
	return raw
}

// Listener owns one bound socket and forwards accepted requests to a
// Router (spec.md §4.2). Lifecycle: constructed at startup, bound once
// by Serve, closed exactly once on the "exit" event.
type Listener struct {
	cfg    Config
	router *router.Router
	bus    *eventbus.Bus

	srv *http.Server
	ln  net.Listener

	redirectSrv *http.Server
	redirectLn  net.Listener
}

// New constructs a Listener. Call Serve to bind and start accepting.
func New(cfg Config, rtr *router.Router, bus *eventbus.Bus) *Listener {
	if bus == nil {
		bus = eventbus.Default()
	}
	cfg.Port = ResolvePort(cfg.Port)
	return &Listener{cfg: cfg, router: rtr, bus: bus}
}

// Addr returns the actual bound address. Only meaningful after Serve
// has successfully opened its socket — useful when Port was "0".
func (l *Listener) Addr() net.Addr {
	if l.ln == nil {
		return nil
	}
	return l.ln.Addr()
}

// Serve binds the configured socket and blocks, serving requests until
// the "exit" event fires or a fatal error occurs.
//
// EACCES and EADDRINUSE are fatal per spec.md §4.2: a diagnostic is
// logged and the process exits with code 4; any other listen error is
// returned to the caller to handle as it sees fit ("other listen errors
// are rethrown").
func (l *Listener) Serve(ctx context.Context) error {
	addr := net.JoinHostPort(l.cfg.Host, l.cfg.Port)

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		if errors.Is(err, syscall.EACCES) || errors.Is(err, syscall.EADDRINUSE) {
			logging.L().Error("listener: fatal bind error, exiting", zap.String("addr", addr), zap.Error(err))
			os.Exit(4)
		}
		return fmt.Errorf("listener: listen %s: %w", addr, err)
	}
	l.ln = ln

	l.srv = &http.Server{Handler: l.buildHandler()}

	onExit := func(_ context.Context, _ ...any) error {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), gracefulShutdownGrace)
		defer cancel()
		var errs []error
		if err := l.srv.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
		if l.redirectSrv != nil {
			if err := l.redirectSrv.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}
	l.bus.On(eventbus.EventExit, onExit)
	defer l.bus.Off(eventbus.EventExit, onExit)

	logging.L().Info("listener: serving",
		zap.String("addr", ln.Addr().String()),
		zap.Bool("secure", l.cfg.Secure),
		zap.String("prefix", l.cfg.Prefix),
	)

	redirectErr := make(chan error, 1)
	if l.cfg.Secure && l.cfg.RedirectPort != "" {
		if err := l.serveRedirect(redirectErr); err != nil {
			return fmt.Errorf("listener: redirect listen: %w", err)
		}
	} else {
		redirectErr <- nil
	}

	var serveErr error
	if l.cfg.Secure {
		serveErr = l.srv.ServeTLS(ln, l.cfg.CertFile, l.cfg.KeyFile)
	} else {
		serveErr = l.srv.Serve(ln)
	}
	if err := <-redirectErr; err != nil && !errors.Is(err, http.ErrServerClosed) {
		logging.L().Warn("listener: redirect server stopped with an error", zap.Error(err))
	}
	if errors.Is(serveErr, http.ErrServerClosed) {
		return nil
	}
	return serveErr
}

// serveRedirect binds l.cfg.RedirectPort and starts a plaintext server
// that 301-redirects every request to the same host on the TLS
// listener's real port, reporting its eventual exit on done.
func (l *Listener) serveRedirect(done chan<- error) error {
	addr := net.JoinHostPort(l.cfg.Host, l.cfg.RedirectPort)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	l.redirectLn = ln

	targetPort := l.cfg.Port
	l.redirectSrv = &http.Server{Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host, _, err := net.SplitHostPort(r.Host)
		if err != nil {
			host = r.Host
		}
		target := "https://" + net.JoinHostPort(host, targetPort) + r.URL.RequestURI()
		http.Redirect(w, r, target, http.StatusMovedPermanently)
	})}

	logging.L().Info("listener: serving plaintext redirect", zap.String("addr", ln.Addr().String()), zap.String("target_port", targetPort))
	go func() { done <- l.redirectSrv.Serve(ln) }()
	return nil
}

// buildHandler bridges net/http to the engine's transport and Router,
// assigning each request a UUID trace ID (SPEC_FULL.md §4.10's
// request-scoped logging fields) and wrapping with h2c support for
// cleartext HTTP/2 on non-TLS listeners — TLS listeners get HTTP/2 for
// free via net/http's ALPN negotiation once ServeTLS is used.
func (l *Listener) buildHandler() http.Handler {
	base := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		w.Header().Set("X-Request-Id", reqID)

		logger := logging.L().With(
			zap.String("request_id", reqID),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
		)

		req := nethttp.WrapRequest(r)
		res := nethttp.WrapResponseWriter(w, r.ProtoMajor)

		if err := l.router.Handle(r.Context(), req, res); err != nil {
			logger.Error("listener: dispatch returned an error", zap.Error(err))
		}
	})

	if l.cfg.Secure {
		return base
	}
	return h2c.NewHandler(base, &http2.Server{})
}
