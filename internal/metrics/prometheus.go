// Package metrics defines the Prometheus instrumentation for the mic
// streaming service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the capture-and-stream loop
type Metrics struct {
	// Capture loop metrics
	CyclesTotal   prometheus.Counter
	CyclesSkipped *prometheus.CounterVec
	ShortReads    prometheus.Counter
	CycleDuration prometheus.Histogram

	// Feature metrics
	BlockRMS        prometheus.Gauge
	BlockPeak       prometheus.Gauge
	Classifications *prometheus.CounterVec

	// Publisher metrics
	FramesPublished    prometheus.Counter
	PublishErrors      prometheus.Counter
	ConsumersConnected prometheus.Gauge

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPErrors          *prometheus.CounterVec
}

// NewMetrics creates all metrics on the default Prometheus registry
func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer)
}

// NewMetricsWith creates all metrics on the given registerer; tests use a
// private registry to avoid duplicate registration
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		CyclesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "micstream_cycles_total",
			Help: "Total number of completed capture cycles",
		}),
		CyclesSkipped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "micstream_cycles_skipped_total",
			Help: "Total number of cycles skipped due to acquisition failures",
		}, []string{"reason"}),
		ShortReads: factory.NewCounter(prometheus.CounterOpts{
			Name: "micstream_short_reads_total",
			Help: "Total number of acquisition reads zero-padded to full block size",
		}),
		CycleDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "micstream_cycle_duration_seconds",
			Help:    "Duration of one acquisition-to-publish cycle",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 10), // 1ms to ~1s
		}),

		BlockRMS: factory.NewGauge(prometheus.GaugeOpts{
			Name: "micstream_block_rms",
			Help: "RMS of the most recent filtered block",
		}),
		BlockPeak: factory.NewGauge(prometheus.GaugeOpts{
			Name: "micstream_block_peak",
			Help: "Peak magnitude of the most recent filtered block",
		}),
		Classifications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "micstream_environment_classifications_total",
			Help: "Total number of environment classifications by label",
		}, []string{"label"}),

		FramesPublished: factory.NewCounter(prometheus.CounterOpts{
			Name: "micstream_frames_published_total",
			Help: "Total number of (text, binary) frame pairs sent to the consumer",
		}),
		PublishErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "micstream_publish_errors_total",
			Help: "Total number of failed consumer sends",
		}),
		ConsumersConnected: factory.NewGauge(prometheus.GaugeOpts{
			Name: "micstream_consumers_connected",
			Help: "Whether a consumer is currently attached (0 or 1)",
		}),

		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "micstream_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status_code"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "micstream_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
		HTTPErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "micstream_http_errors_total",
			Help: "Total number of HTTP errors",
		}, []string{"method", "endpoint", "error_type"}),
	}
}

// RecordCycle records a completed cycle and its duration
func (m *Metrics) RecordCycle(durationSeconds float64) {
	m.CyclesTotal.Inc()
	m.CycleDuration.Observe(durationSeconds)
}

// RecordCycleSkipped records a skipped cycle with the acquisition status
// as the reason
func (m *Metrics) RecordCycleSkipped(reason string) {
	m.CyclesSkipped.WithLabelValues(reason).Inc()
}

// RecordShortRead records a zero-padded acquisition read
func (m *Metrics) RecordShortRead() {
	m.ShortReads.Inc()
}

// RecordFeatures records the feature gauges and the classification label
func (m *Metrics) RecordFeatures(rms, peak float64, label string) {
	m.BlockRMS.Set(rms)
	m.BlockPeak.Set(peak)
	m.Classifications.WithLabelValues(label).Inc()
}

// RecordPublish records a successful (text, binary) pair send
func (m *Metrics) RecordPublish() {
	m.FramesPublished.Inc()
}

// RecordPublishError records a failed consumer send
func (m *Metrics) RecordPublishError() {
	m.PublishErrors.Inc()
}

// SetConsumerConnected reflects the current connection state
func (m *Metrics) SetConsumerConnected(connected bool) {
	if connected {
		m.ConsumersConnected.Set(1)
	} else {
		m.ConsumersConnected.Set(0)
	}
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, durationSeconds float64) {
	m.HTTPRequests.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(durationSeconds)
}

// RecordHTTPError records an HTTP error
func (m *Metrics) RecordHTTPError(method, endpoint, errorType string) {
	m.HTTPErrors.WithLabelValues(method, endpoint, errorType).Inc()
}
