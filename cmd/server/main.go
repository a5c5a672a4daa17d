package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Kamalbura/micstream/internal/config"
	"github.com/Kamalbura/micstream/internal/metrics"
	"github.com/Kamalbura/micstream/internal/server"
	"github.com/Kamalbura/micstream/internal/source"
	"github.com/Kamalbura/micstream/internal/stream"
)

const (
	defaultConfigPath = "configs/config.yaml"
	serviceName       = "micstream"
	serviceVersion    = "1.0.0"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger based on configuration
	logger := initLogger(cfg.Logging)

	// Log service startup
	logger.Info("Service starting",
		slog.String("service", serviceName),
		slog.String("version", serviceVersion),
		slog.String("config_path", *configPath),
	)

	// Log configuration summary
	logger.Info("Configuration loaded",
		slog.String("source_kind", cfg.Source.Kind),
		slog.Int("sample_rate", cfg.Audio.SampleRate),
		slog.Int("block_size", cfg.Audio.BlockSize),
		slog.Duration("read_timeout", cfg.Audio.GetReadTimeout()),
		slog.Duration("cycle_delay", cfg.Audio.GetCycleDelay()),
		slog.Float64("lowpass_alpha", cfg.DSP.LowpassAlpha),
		slog.Float64("calm_threshold", cfg.Classifier.CalmThreshold),
		slog.Float64("noisy_threshold", cfg.Classifier.NoisyThreshold),
		slog.String("log_level", cfg.Logging.Level),
	)

	// Create cancellable context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize Prometheus metrics
	appMetrics := metrics.NewMetrics()
	logger.Info("Prometheus metrics initialized")

	// Open the acquisition source
	src, err := newSource(cfg)
	if err != nil {
		logger.Error("Failed to open acquisition source", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("Acquisition source opened", slog.String("kind", cfg.Source.Kind))

	// Initialize the consumer hub
	hub := server.NewHub(cfg.Publish.GetWriteTimeout(), logger, appMetrics)

	// Initialize the capture engine
	engine, err := stream.NewEngine(cfg, src, hub, logger, appMetrics)
	if err != nil {
		logger.Error("Failed to create capture engine", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Initialize HTTP API server (if enabled)
	var httpServer *server.HTTPServer
	if cfg.HTTP.Enabled {
		httpServer = server.NewHTTPServer(cfg.HTTP, logger, cfg, engine, hub, appMetrics)
		logger.Info("HTTP API server initialized",
			slog.String("address", fmt.Sprintf("%s:%d", cfg.HTTP.Address, cfg.HTTP.Port)),
		)
	}

	// Start the capture loop
	engine.Start(ctx)

	// Start HTTP server (if enabled)
	if httpServer != nil {
		if err := httpServer.Start(); err != nil {
			logger.Error("Failed to start HTTP server", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	logger.Info("Service started successfully, waiting for signals...")

	// Wait for shutdown signal
	select {
	case sig := <-sigChan:
		logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
	case <-ctx.Done():
		logger.Info("Context cancelled, shutting down")
	}

	logger.Info("Starting graceful shutdown...")

	// Stop HTTP server first (stop accepting new requests)
	if httpServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := httpServer.Stop(shutdownCtx); err != nil {
			logger.Error("Error stopping HTTP server", slog.String("error", err.Error()))
		}
	}

	// Stop the capture loop, then release the source and the consumer
	engine.Stop()

	if err := src.Close(); err != nil {
		logger.Error("Error closing acquisition source", slog.String("error", err.Error()))
	}

	hub.Close()

	// Get final statistics
	stats := engine.GetStats()
	logger.Info("Final capture statistics",
		slog.Uint64("cycles_total", stats.CyclesTotal),
		slog.Uint64("cycles_skipped", stats.CyclesSkipped),
		slog.Uint64("short_reads", stats.ShortReads),
		slog.Uint64("frames_published", stats.FramesPublished),
		slog.Uint64("publish_errors", stats.PublishErrors),
		slog.String("last_environment", stats.LastEnvironment),
	)

	logger.Info("Service stopped")
}

// newSource opens the acquisition source selected by the configuration
func newSource(cfg *config.Config) (source.Source, error) {
	switch cfg.Source.Kind {
	case "serial":
		return source.NewSerialSource(cfg.Source.Serial.Device,
			cfg.Audio.BlockSize, cfg.Audio.GetReadTimeout())
	case "udp":
		return source.NewUDPSource(cfg.Source.UDP.BindAddress, cfg.Source.UDP.Port,
			cfg.Source.UDP.BufferSize, cfg.Audio.BlockSize, cfg.Audio.GetReadTimeout())
	case "tone":
		return source.NewToneSource(cfg.Source.Tone.FrequencyHz, cfg.Source.Tone.Amplitude,
			cfg.Audio.SampleRate, cfg.Audio.BlockSize)
	default:
		return nil, fmt.Errorf("unknown source kind %q", cfg.Source.Kind)
	}
}

// initLogger creates and configures the structured logger based on configuration
func initLogger(cfg config.LoggingConfig) *slog.Logger {
	// Parse log level
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo // default fallback
	}

	// Configure handler options
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug, // Add source info for debug level
	}

	// Determine output destination
	var output *os.File
	switch cfg.Output {
	case "stderr":
		output = os.Stderr
	case "stdout", "":
		output = os.Stdout
	default:
		// Assume it's a file path
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file %s: %v, falling back to stdout\n", cfg.Output, err)
			output = os.Stdout
		} else {
			output = file
		}
	}

	// Create handler based on format
	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(output, opts)
	case "text", "":
		handler = slog.NewTextHandler(output, opts)
	default:
		// Default to text format
		handler = slog.NewTextHandler(output, opts)
	}

	return slog.New(handler)
}
