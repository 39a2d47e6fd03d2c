// Command wikihostd is the demonstration entrypoint for the request
// engine (SPEC_FULL.md §4.13): it wires the Config Loader, the Listener
// Set, the Router, structured logging and metrics together and mounts a
// handful of illustrative routes. The business routes of an actual wiki
// deployment are out of scope here — this binary only proves the engine
// wires up end to end.
package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"

	"github.com/wikihost/engine/config"
	"github.com/wikihost/engine/eventbus"
	"github.com/wikihost/engine/filesend"
	"github.com/wikihost/engine/listener"
	"github.com/wikihost/engine/logging"
	"github.com/wikihost/engine/metrics"
	"github.com/wikihost/engine/router"
	"github.com/wikihost/engine/state"
	"go.uber.org/zap"
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "wikihostd",
		Short:   "Embedded request-handling engine for a multi-tenant wiki server",
		Version: "0.1.0",
		Args:    cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
		},
	}
	addServeCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func addServeCommand(parent *cobra.Command) {
	var configPath string
	var portOverride string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the engine and serve its configured listeners.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), configPath, portOverride)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "path to a YAML configuration file")
	cmd.Flags().StringVar(&portOverride, "port", "", "override the first listener's port")
	parent.AddCommand(cmd)
}

func serve(ctx context.Context, configPath, portOverride string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("wikihostd: loading configuration: %w", err)
	}
	if portOverride != "" {
		cfg.Listeners[0].Port = portOverride
	}

	if err := logging.Configure(cfg.Debug); err != nil {
		return fmt.Errorf("wikihostd: configuring logger: %w", err)
	}
	defer logging.Sync()

	bus := eventbus.Default()

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(prometheus.NewGoCollector(), prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	metrics.New(promReg).Attach(bus)

	rtr := buildRouter(bus, cfg.BodySizeLimit, promReg)

	listenerConfigs := make([]listener.Config, len(cfg.Listeners))
	for i, lc := range cfg.Listeners {
		listenerConfigs[i] = listener.Config{
			Host:         lc.Host,
			Port:         lc.Port,
			Prefix:       lc.Prefix,
			Secure:       lc.Secure,
			CertFile:     lc.Cert,
			KeyFile:      lc.Key,
			RedirectPort: lc.Redirect,
		}
	}
	set := listener.NewSet(listenerConfigs, rtr, bus)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() { serveErr <- set.Serve(ctx) }()

	select {
	case <-ctx.Done():
		logging.L().Info("wikihostd: shutdown signal received, draining listeners")
		bus.Emit(context.Background(), eventbus.EventExit)
		select {
		case err := <-serveErr:
			return err
		case <-time.After(6 * time.Second):
			logging.L().Warn("wikihostd: listeners did not drain within the grace window, exiting anyway")
			return nil
		}
	case err := <-serveErr:
		return err
	}
}

// buildRouter mounts a small set of demonstration routes proving the
// engine's routing, static file serving, and SSE surfaces work end to
// end. A real wiki server's routes are wired here in place of these.
func buildRouter(bus *eventbus.Bus, maxBodyBytes int64, promReg *prometheus.Registry) *router.Router {
	rtr := router.New(router.Options{
		Bus:          bus,
		MaxBodyBytes: maxBodyBytes,
	})

	rtr.Root().Route(router.Literal("/healthz")).
		Handle("GET", state.BodyIgnore, func(s *state.RequestState) error {
			return s.SendJSON(200, map[string]string{"status": "ok"})
		})

	rtr.Root().Route(router.Literal("/metrics")).
		Handle("GET", state.BodyIgnore, func(s *state.RequestState) error {
			body, err := gatherMetrics(promReg)
			if err != nil {
				return err
			}
			s.SetHeader("Content-Type", string(expfmt.FmtText))
			return s.SendStream(200, bytes.NewReader(body))
		})

	static := os.DirFS(".")
	rtr.Root().Route(router.Literal("/static")).
		Route(router.MustRegex(`^/(?P<path>.+)`)).
		Handle("GET", state.BodyIgnore, func(s *state.RequestState) error {
			return s.SendFile(filesend.Options{
				FS:         static,
				Path:       s.PathParam("path"),
				IndexNames: []string{"index.html"},
				MaxAge:     3600,
			})
		})

	rtr.Root().Route(router.Literal("/events")).
		Handle("GET", state.BodyIgnore, func(s *state.RequestState) error {
			stream, err := s.SendSSE(state.SSEOptions{RetryMillis: 2000})
			if err != nil {
				return err
			}
			if err := stream.EmitEvent("connected", "", map[string]string{"engine": "wikihostd"}); err != nil {
				return stream.Close()
			}
			return stream.Close()
		})

	logging.L().Info("wikihostd: router mounted", zap.Int("routes", 4))
	return rtr
}

// gatherMetrics renders reg's current samples in the Prometheus text
// exposition format, the way promhttp.Handler would if the router's
// transport abstraction let us hand it a bare http.ResponseWriter.
func gatherMetrics(reg *prometheus.Registry) ([]byte, error) {
	families, err := reg.Gather()
	if err != nil {
		return nil, fmt.Errorf("wikihostd: gathering metrics: %w", err)
	}

	var buf bytes.Buffer
	enc := expfmt.NewEncoder(&buf, expfmt.FmtText)
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return nil, fmt.Errorf("wikihostd: encoding metrics: %w", err)
		}
	}
	return buf.Bytes(), nil
}
