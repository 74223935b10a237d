// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package main runs the mcsniff proxy.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/absmach/mcsniff"
	"github.com/absmach/mcsniff/examples/simple"
	"github.com/absmach/mcsniff/pkg/admin"
	"github.com/absmach/mcsniff/pkg/breaker"
	"github.com/absmach/mcsniff/pkg/metrics"
	"github.com/absmach/mcsniff/pkg/proxy"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

// flags override the environment configuration when set.
type flags struct {
	listen    string
	upstream  string
	admin     string
	logLevel  string
	logFormat string
}

func newRootCmd() *cobra.Command {
	var f flags

	rootCmd := &cobra.Command{
		Use:   "mcsniff",
		Short: "Transparent proxy that inspects game login traffic",
		Long: `mcsniff relays client connections to an upstream game server.

It follows the handshake, status and login phases of every connection,
mirrors the compression the server negotiates and then forwards traffic
untouched. Configuration is read from MCSNIFF_* environment variables and
an optional .env file; flags take precedence.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// .env is optional
			_ = godotenv.Load()

			cfg, err := mcsniff.NewConfig(env.Options{Prefix: mcsniff.EnvPrefix})
			if err != nil {
				return fmt.Errorf("failed to parse config: %w", err)
			}
			f.apply(cmd, &cfg)
			return run(cmd.Context(), cfg, os.Stdout)
		},
	}

	rootCmd.Flags().StringVar(&f.listen, "listen", "", "Listen address (host:port)")
	rootCmd.Flags().StringVar(&f.upstream, "upstream", "", "Upstream server address (host:port)")
	rootCmd.Flags().StringVar(&f.admin, "admin", "", "Admin HTTP address, empty to disable")
	rootCmd.Flags().StringVar(&f.logLevel, "log-level", "", "Log level: debug, info, warn or error")
	rootCmd.Flags().StringVar(&f.logFormat, "log-format", "", "Log format: json or text")

	rootCmd.AddCommand(versionCmd())
	return rootCmd
}

func (f flags) apply(cmd *cobra.Command, cfg *mcsniff.Config) {
	changed := cmd.Flags().Changed
	if changed("listen") {
		cfg.ListenAddress = f.listen
	}
	if changed("upstream") {
		cfg.UpstreamAddress = f.upstream
	}
	if changed("admin") {
		cfg.AdminAddress = f.admin
	}
	if changed("log-level") {
		cfg.LogLevel = f.logLevel
	}
	if changed("log-format") {
		cfg.LogFormat = f.logFormat
	}
}

func run(ctx context.Context, cfg mcsniff.Config, out io.Writer) error {
	logger := setupLogger(out, cfg.LogLevel, cfg.LogFormat)

	tlsCfg, err := cfg.TLSConfig()
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New("mcsniff", reg)

	var tracer trace.Tracer
	if cfg.Tracing {
		tp := newTracerProvider(logger)
		defer func() {
			if err := tp.Shutdown(context.Background()); err != nil {
				logger.Warn("failed to flush spans", slog.String("error", err.Error()))
			}
		}()
		tracer = tp.Tracer(tracerName)
	}

	p, err := proxy.New(proxy.Config{
		Address:         cfg.ListenAddress,
		Upstream:        cfg.UpstreamAddress,
		ClientValidator: simple.ClientValidator(logger),
		ServerValidator: simple.ServerValidator(logger),
		TLSConfig:       tlsCfg,
		ShutdownTimeout: cfg.ShutdownTimeout,
		DialTimeout:     cfg.DialTimeout,
		IdleTimeout:     cfg.IdleTimeout,
		Breaker: breaker.Config{
			MaxFailures:  cfg.BreakerMaxFailures,
			ResetTimeout: cfg.BreakerResetTimeout,
			Timeout:      cfg.DialTimeout,
		},
		RateLimit: proxy.RateLimitConfig{
			Burst:    cfg.RateLimitBurst,
			Rate:     cfg.RateLimitRate,
			MaxHosts: cfg.RateLimitMaxHosts,
		},
		Metrics: m,
		Tracer:  tracer,
		Logger:  logger,
	}, simple.New(logger))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return p.Listen(ctx)
	})

	if cfg.AdminAddress != "" {
		a := admin.New(admin.Config{
			Address:     cfg.AdminAddress,
			Gatherer:    reg,
			Health:      p.Health(),
			EnablePprof: cfg.EnablePprof,
			Logger:      logger,
		})
		g.Go(func() error {
			return a.Listen(ctx)
		})
	}

	g.Go(func() error {
		return StopSignalHandler(ctx, cancel, logger)
	})

	logger.Info("mcsniff started",
		slog.String("version", version),
		slog.String("listen", cfg.ListenAddress),
		slog.String("upstream", cfg.UpstreamAddress),
		slog.String("admin", cfg.AdminAddress))

	if err := g.Wait(); err != nil {
		logger.Error(fmt.Sprintf("mcsniff terminated with error: %s", err))
		return err
	}
	logger.Info("mcsniff stopped")
	return nil
}

// setupLogger creates a structured logger with the specified level and format.
func setupLogger(out io.Writer, level, format string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: logLevel,
	}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	return slog.New(handler)
}

// StopSignalHandler cancels ctx on SIGINT or SIGTERM.
func StopSignalHandler(ctx context.Context, cancel context.CancelFunc, logger *slog.Logger) error {
	c := make(chan os.Signal, 2)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(c)
	select {
	case sig := <-c:
		logger.Info("received shutdown signal", slog.String("signal", sig.String()))
		cancel()
		return nil
	case <-ctx.Done():
		return nil
	}
}
