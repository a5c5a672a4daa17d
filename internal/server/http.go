package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Kamalbura/micstream/internal/config"
	"github.com/Kamalbura/micstream/internal/metrics"
	"github.com/Kamalbura/micstream/internal/stream"
)

// HTTPServer provides HTTP API endpoints for monitoring and management,
// plus the /ws stream endpoint
type HTTPServer struct {
	server  *http.Server
	logger  *slog.Logger
	config  *config.Config
	engine  *stream.Engine
	hub     *Hub
	metrics *metrics.Metrics

	// Server state
	startTime time.Time
	mu        sync.RWMutex
}

// NewHTTPServer creates a new HTTP API server
func NewHTTPServer(cfg config.HTTPConfig, logger *slog.Logger,
	appConfig *config.Config, engine *stream.Engine, hub *Hub, m *metrics.Metrics) *HTTPServer {

	h := &HTTPServer{
		logger:    logger,
		config:    appConfig,
		engine:    engine,
		hub:       hub,
		metrics:   m,
		startTime: time.Now(),
	}

	// Create HTTP server with routes
	mux := http.NewServeMux()
	h.setupRoutes(mux)

	h.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Address, cfg.Port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return h
}

// setupRoutes configures HTTP API routes
func (h *HTTPServer) setupRoutes(mux *http.ServeMux) {
	// Stream endpoint; the hub tracks its own metrics
	mux.HandleFunc("/ws", h.hub.HandleWS)

	// Health check endpoint
	mux.HandleFunc("/health", h.withMetrics("/health", h.handleHealth))

	// Consumer monitoring endpoint
	mux.HandleFunc("/consumer", h.withMetrics("/consumer", h.handleConsumer))

	// Configuration endpoint
	mux.HandleFunc("/config", h.withMetrics("/config", h.handleConfig))

	// Statistics endpoint
	mux.HandleFunc("/stats", h.withMetrics("/stats", h.handleStats))

	// Prometheus metrics endpoint (no metrics needed for metrics endpoint)
	mux.Handle("/metrics", promhttp.Handler())

	// Root endpoint with API documentation
	mux.HandleFunc("/", h.withMetrics("/", h.handleRoot))
}

// withMetrics wraps an HTTP handler with metrics collection
func (h *HTTPServer) withMetrics(endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()

		// Create a response writer wrapper to capture status code
		ww := &responseWriter{ResponseWriter: w, statusCode: 200}

		// Call the original handler
		handler(ww, r)

		// Record metrics
		duration := time.Since(startTime).Seconds()
		statusCode := fmt.Sprintf("%d", ww.statusCode)

		h.metrics.RecordHTTPRequest(r.Method, endpoint, statusCode, duration)

		// Record error if status code indicates an error
		if ww.statusCode >= 400 {
			errorType := "client_error"
			if ww.statusCode >= 500 {
				errorType = "server_error"
			}
			h.metrics.RecordHTTPError(r.Method, endpoint, errorType)
		}
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Start starts the HTTP server
func (h *HTTPServer) Start() error {
	h.logger.Info("Starting HTTP API server",
		slog.String("address", h.server.Addr),
	)

	go func() {
		if err := h.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			h.logger.Error("HTTP server error", slog.String("error", err.Error()))
		}
	}()

	return nil
}

// Stop gracefully stops the HTTP server
func (h *HTTPServer) Stop(ctx context.Context) error {
	h.logger.Info("Stopping HTTP API server...")

	return h.server.Shutdown(ctx)
}

// handleHealth implements the /health endpoint
func (h *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	uptime := time.Since(h.startTime)
	engineStats := h.engine.GetStats()
	hubStats := h.hub.GetStats()

	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"uptime":    uptime.String(),
		"service": map[string]interface{}{
			"name":    "micstream",
			"version": "1.0.0",
		},
		"components": map[string]interface{}{
			"capture_loop": map[string]interface{}{
				"status":         "running",
				"cycles_total":   engineStats.CyclesTotal,
				"cycles_skipped": engineStats.CyclesSkipped,
				"short_reads":    engineStats.ShortReads,
			},
			"consumer": map[string]interface{}{
				"attached":    hubStats.Attached,
				"frames_sent": hubStats.FramesSent,
				"send_errors": hubStats.SendErrors,
			},
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(health)
}

// handleConsumer implements the /consumer endpoint
func (h *HTTPServer) handleConsumer(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]interface{}{
		"timestamp": time.Now().UTC(),
		"consumer":  h.hub.GetStats(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// handleConfig implements the /config endpoint
func (h *HTTPServer) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sanitizedConfig := map[string]interface{}{
		"source": map[string]interface{}{
			"kind":          h.config.Source.Kind,
			"serial_device": h.config.Source.Serial.Device,
			"udp_bind":      h.config.Source.UDP.BindAddress,
			"udp_port":      h.config.Source.UDP.Port,
		},
		"audio": map[string]interface{}{
			"sample_rate":     h.config.Audio.SampleRate,
			"block_size":      h.config.Audio.BlockSize,
			"read_timeout_ms": h.config.Audio.ReadTimeoutMs,
			"cycle_delay_ms":  h.config.Audio.CycleDelayMs,
		},
		"dsp": map[string]interface{}{
			"lowpass_alpha": h.config.DSP.LowpassAlpha,
			"dc_block":      h.config.DSP.DCBlock,
		},
		"classifier": map[string]interface{}{
			"calm_threshold":       h.config.Classifier.CalmThreshold,
			"noisy_threshold":      h.config.Classifier.NoisyThreshold,
			"derivative_threshold": h.config.Classifier.DerivativeThreshold,
		},
		"publish": map[string]interface{}{
			"waveform_points":  h.config.Publish.WaveformPoints,
			"write_timeout_ms": h.config.Publish.WriteTimeoutMs,
		},
		"logging": map[string]interface{}{
			"level":  h.config.Logging.Level,
			"format": h.config.Logging.Format,
			"output": h.config.Logging.Output,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sanitizedConfig)
}

// handleStats implements the /stats endpoint
func (h *HTTPServer) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	engineStats := h.engine.GetStats()
	hubStats := h.hub.GetStats()
	uptime := time.Since(h.startTime)

	stats := map[string]interface{}{
		"uptime":    uptime.String(),
		"timestamp": time.Now().UTC(),
		"capture":   engineStats,
		"consumer":  hubStats,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}

// handleRoot implements the / endpoint with API documentation
func (h *HTTPServer) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	apiDoc := map[string]interface{}{
		"service": "Microphone Streaming Service",
		"version": "1.0.0",
		"endpoints": map[string]interface{}{
			"GET /":         "API documentation",
			"GET /ws":       "WebSocket stream (text features + binary PCM)",
			"GET /health":   "Service health check",
			"GET /consumer": "Current consumer information",
			"GET /config":   "Get service configuration",
			"GET /stats":    "Get service statistics",
			"GET /metrics":  "Prometheus metrics",
		},
		"timestamp": time.Now().UTC(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(apiDoc)
}
