// Command gcshipper reads JVM garbage-collection events and posts each one as
// a JSON document to an HTTP collector.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/obsidianstack/gcshipper/agent/internal/config"
	"github.com/obsidianstack/gcshipper/agent/internal/encoder"
	"github.com/obsidianstack/gcshipper/agent/internal/metrics"
	"github.com/obsidianstack/gcshipper/agent/internal/pipeline"
	"github.com/obsidianstack/gcshipper/agent/internal/shipper"
	"github.com/obsidianstack/gcshipper/agent/internal/source"
)

// envArgs is read when --args is not given.
const envArgs = "GCSHIPPER_ARGS"

type options struct {
	args          string
	configPath    string
	source        string
	fromStart     bool
	natsURL       string
	natsSubject   string
	metricsAddr   string
	logLevel      string
	logFormat     string
	shutdownGrace time.Duration
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		slog.Error("gcshipper: exiting", "err", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "gcshipper",
		Short: "Ship JVM GC events to an HTTP collector",
		Long: `gcshipper subscribes to JVM garbage-collection events (GC phase pauses,
promotion/evacuation failures, metaspace and heap summaries, collections)
and POSTs each one as a JSON document to a collector URI.

The URI may contain %h (host name), %l (label), %y, %m and %d (current date).

  gcshipper --args 'uri=http://collector:9200/gc-%y.%m.%d/_doc,label=blue'
  gcshipper --config gcshipper.yaml --source file:/var/log/app/gc.ndjson`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts, cmd.InOrStdin(), cmd.ErrOrStderr())
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.args, "args", "", "configuration string: uri=...,label=...,connect_timeout=ms,request_timeout=ms (env "+envArgs+")")
	f.StringVar(&opts.configPath, "config", "", "path to a YAML config file (alternative to --args)")
	f.StringVar(&opts.source, "source", "stdin", "event source: stdin, file:<path> or nats")
	f.BoolVar(&opts.fromStart, "from-start", false, "file source: read existing content before tailing")
	f.StringVar(&opts.natsURL, "nats-url", "", "nats source: server URL (default nats://127.0.0.1:4222)")
	f.StringVar(&opts.natsSubject, "nats-subject", "jfr.gc", "nats source: subject to subscribe to")
	f.StringVar(&opts.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (disabled if empty)")
	f.StringVar(&opts.logLevel, "log-level", "info", "log level: debug, info, warn, error")
	f.StringVar(&opts.logFormat, "log-format", "json", "log format: json or text")
	f.DurationVar(&opts.shutdownGrace, "shutdown-grace", 5*time.Second, "how long to wait for in-flight deliveries on exit")
	return cmd
}

// run wires the pipeline and blocks until the source ends or a signal arrives.
func run(ctx context.Context, opts *options, stdin io.Reader, stderr io.Writer) error {
	logger, err := newLogger(opts.logLevel, opts.logFormat, os.Stdout)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	uri, err := cfg.URI()
	if err != nil {
		return fmt.Errorf("gcshipper: %w", err)
	}

	stream, err := source.New(source.Options{
		Location:    opts.source,
		FromStart:   opts.fromStart,
		NATSURL:     opts.natsURL,
		NATSSubject: opts.natsSubject,
		Stdin:       stdin,
	})
	if err != nil {
		return err
	}

	m := metrics.New()
	ship := shipper.New(cfg, m)
	driver := pipeline.New(stream, encoder.New(cfg), ship, m)

	slog.Info("gcshipper: starting",
		"uri", uri.String(),
		"host", cfg.HostName(),
		"source", stream.Name(),
		"connect_timeout", cfg.ConnectTimeout(),
		"request_timeout", cfg.RequestTimeout(),
	)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// The source ending is a normal shutdown for everything else.
		defer stop()
		return driver.Run(gctx)
	})

	if opts.metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", m.Handler())
		srv := &http.Server{Addr: opts.metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

		g.Go(func() error {
			slog.Info("gcshipper: serving metrics", "addr", opts.metricsAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("gcshipper: metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	runErr := g.Wait()
	slog.Info("gcshipper: shutting down")

	flushCtx, cancel := context.WithTimeout(context.Background(), opts.shutdownGrace)
	defer cancel()
	if err := ship.Flush(flushCtx); err != nil {
		slog.Warn("gcshipper: deliveries still in flight at exit", "err", err)
	}
	if err := m.WriteText(stderr); err != nil {
		slog.Warn("gcshipper: writing final metrics failed", "err", err)
	}
	return runErr
}

// loadConfig builds the configuration from --config, --args or the
// environment, in that order. Exactly one source must be given.
func loadConfig(opts *options) (*config.Config, error) {
	if opts.configPath != "" && opts.args != "" {
		return nil, errors.New("gcshipper: --args and --config are mutually exclusive")
	}
	if opts.configPath != "" {
		return config.Load(opts.configPath)
	}

	args := opts.args
	if args == "" {
		args = os.Getenv(envArgs)
	}
	if args == "" {
		return nil, fmt.Errorf("gcshipper: one of --args, --config or %s is required", envArgs)
	}
	return config.Parse(args)
}

func newLogger(level, format string, w io.Writer) (*slog.Logger, error) {
	hopts := &slog.HandlerOptions{Level: parseLevel(level)}
	switch format {
	case "json":
		return slog.New(slog.NewJSONHandler(w, hopts)), nil
	case "text":
		return slog.New(slog.NewTextHandler(w, hopts)), nil
	default:
		return nil, fmt.Errorf("gcshipper: unknown log format %q", format)
	}
}

// parseLevel maps a level name to a slog.Level, defaulting to info.
func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
