// Package cmd provides the CLI commands for aigatewayd.
package cmd

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/Sentinel-Gate/aigatewayd/internal/adapter/inbound/gatewayhttp"
	"github.com/Sentinel-Gate/aigatewayd/internal/adapter/outbound/metrics"
	"github.com/Sentinel-Gate/aigatewayd/internal/adapter/outbound/tracing"
	"github.com/Sentinel-Gate/aigatewayd/internal/config"
	"github.com/Sentinel-Gate/aigatewayd/internal/service/forwarding"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the gateway",
	Long: `Start the aigatewayd reverse-proxy gateway.

Examples:
  # Start with the default ./aigatewayd.yaml
  aigatewayd start

  # Start with a specific config file
  aigatewayd start --config /etc/aigatewayd/config.yaml`,
	RunE: runStart,
}

func init() {
	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logLevel := parseLogLevel(cfg.LogLevel)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	logger.Info("config loaded", "file", cfgFile, "routes", len(cfg.Routes))

	_, shutdownTracing, err := tracing.NewTracerProvider()
	if err != nil {
		return fmt.Errorf("start tracer: %w", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Warn("tracer shutdown failed", "error", err)
		}
	}()

	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics(reg)

	pipeline, err := forwarding.Build(cfg, logger, m)
	if err != nil {
		return fmt.Errorf("build forwarding pipeline: %w", err)
	}

	var cert *tls.Certificate
	if cfg.Server.TLS.Enabled() {
		c, err := cfg.Server.TLS.LoadServerTLS()
		if err != nil {
			return fmt.Errorf("load server TLS material: %w", err)
		}
		cert = &c
	}

	server := gatewayhttp.NewServer(cfg.Server.ListenAddr, cert, pipeline, reg, m, logger)

	ctx, stop := signal.NotifyContext(context.Background(), gracefulSignals()...)
	go func() {
		<-ctx.Done()
		stop()
	}()

	if err := server.Run(ctx); err != nil {
		return fmt.Errorf("gateway listener stopped: %w", err)
	}

	logger.Info("aigatewayd stopped")
	return nil
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
