package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"shiftchain/config"
	"shiftchain/observability/logging"
	"shiftchain/observability/otel"
)

const serviceName = "shiftd"

// version is stamped at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configFile); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", serviceName, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configFile string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, logCloser, err := logging.Setup(logging.Options{
		Service:     serviceName,
		Environment: cfg.Log.Environment,
		Level:       cfg.Log.Level,
		File:        cfg.Log.File,
		MaxSizeMB:   cfg.Log.MaxSizeMB,
		MaxBackups:  cfg.Log.MaxBackups,
		MaxAgeDays:  cfg.Log.MaxAgeDays,
		Compress:    cfg.Log.Compress,
	})
	if err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}
	defer logCloser.Close()

	programKey, err := cfg.LoadProgramKey()
	if err != nil {
		return fmt.Errorf("load program key: %w", err)
	}

	shutdownTelemetry, err := otel.Init(ctx, otel.Config{
		ServiceName:    serviceName,
		ServiceVersion: version,
		Environment:    cfg.Log.Environment,
		Network:        cfg.NetworkName,
		ProgramID:      programKey.Address().String(),
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		Headers:        cfg.Telemetry.Headers,
		Metrics:        cfg.Telemetry.Metrics,
		Traces:         cfg.Telemetry.Traces,
		SampleRatio:    cfg.Telemetry.SampleRatio,
		MetricInterval: time.Duration(cfg.Telemetry.MetricIntervalSeconds) * time.Second,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(flushCtx); err != nil {
			logger.Warn("telemetry shutdown", slog.Any("error", err))
		}
	}()

	n, err := newNode(cfg, programKey, logger)
	if err != nil {
		return err
	}
	defer n.Close()

	logger.Info("node started",
		slog.String("version", version),
		slog.String("network", cfg.NetworkName),
		slog.String("program", n.programID.String()),
		slog.Uint64("slot", n.runtime.Clock().Slot()))

	if err := n.server.ListenAndServe(ctx, cfg.ListenAddress); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("rpc server: %w", err)
	}
	logger.Info("node stopped")
	return nil
}
