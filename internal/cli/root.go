package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/harun/fdstream/internal/config"
	"github.com/harun/fdstream/internal/logger"
	"github.com/harun/fdstream/internal/observability"
	"github.com/harun/fdstream/internal/tracing"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const version = "0.1.0"

var (
	cfgFile     string
	logLevel    string
	chunkSize   int
	metricsAddr string
	auditLog    string
)

// app holds what PersistentPreRunE set up for the running command
var app struct {
	cfg     *config.Config
	log     *logger.Logger
	metrics *http.Server
}

var rootCmd = &cobra.Command{
	Use:   "fdstream",
	Short: "fdstream - stream files and named pipes as readable streams",
	Long: `fdstream reads regular files and named pipes chunk by chunk without
blocking, with backpressure, detach/re-attach without data loss, and
staleness detection for files that disappear while open.`,
	Version:           version,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.fdstream/fdstream.json)")
	flags.StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	flags.IntVar(&chunkSize, "chunk-size", 0, "bytes per read (1-16384, default from config)")
	flags.StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9102")
	flags.StringVar(&auditLog, "audit-log", "", "append lifecycle audit events to this file")

	// Finalizers run even when the command fails.
	cobra.OnFinalize(func() {
		if err := teardown(); err != nil {
			log.Warn().Err(err).Msg("Shutdown incomplete")
		}
	})

	rootCmd.SetVersionTemplate(`{{with .Name}}{{printf "%s " .}}{{end}}{{printf "version %s" .Version}}
`)
}

// GetRootCmd returns the root command for testing
func GetRootCmd() *cobra.Command {
	return rootCmd
}

// GetVersion returns the current version
func GetVersion() string {
	return version
}

// loadConfig reads the config file and applies flags the user set explicitly
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Logging.Level = logLevel
	}
	if flags.Changed("chunk-size") {
		cfg.Stream.ChunkSize = chunkSize
	}
	if flags.Changed("metrics-addr") {
		cfg.Metrics.Addr = metricsAddr
	}
	if flags.Changed("audit-log") {
		cfg.AuditLog = auditLog
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setup(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	app.cfg = cfg

	l, err := logger.New(logger.Config{
		Level:     cfg.Logging.Level,
		File:      cfg.Logging.File,
		Console:   true,
		Pretty:    cfg.Logging.Pretty,
		Redaction: cfg.Logging.Redaction,
		MaxSize:   cfg.Logging.MaxSize,
		MaxAge:    cfg.Logging.MaxAge,
		Compress:  cfg.Logging.Compress,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	app.log = l

	if cfg.AuditLog != "" {
		if err := observability.InitAuditLogger(cfg.AuditLog); err != nil {
			return fmt.Errorf("failed to open audit log: %w", err)
		}
	}

	if cfg.Tracing.Enabled {
		if err := tracing.InitOpenTelemetry(cfg.Tracing.ServiceName, version, cfg.Tracing.SampleRatio); err != nil {
			return fmt.Errorf("failed to initialize tracing: %w", err)
		}
	}

	if cfg.Metrics.Addr != "" {
		srv, err := serveMetrics(cfg.Metrics.Addr, cfg.Metrics.Path)
		if err != nil {
			return err
		}
		app.metrics = srv
	}

	return nil
}

func serveMetrics(addr, path string) (*http.Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle(path, observability.MetricsHandler())
	srv := &http.Server{
		Addr:              ln.Addr().String(),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Str("addr", addr).Msg("Metrics server failed")
		}
	}()
	log.Info().Str("addr", srv.Addr).Str("path", path).Msg("Serving metrics")
	return srv, nil
}

func teardown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var errs []error
	if app.metrics != nil {
		errs = append(errs, app.metrics.Shutdown(ctx))
		app.metrics = nil
	}
	if app.cfg != nil && app.cfg.Tracing.Enabled {
		errs = append(errs, tracing.ShutdownOpenTelemetry(ctx))
	}
	errs = append(errs, observability.GetAuditLogger().Close())
	if app.log != nil {
		errs = append(errs, app.log.Close())
		app.log = nil
	}
	return errors.Join(errs...)
}
