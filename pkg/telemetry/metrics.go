package telemetry

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Metrics provides Prometheus metrics for sassdata. A nil *Metrics and a
// disabled one are both valid and record nothing.
type Metrics struct {
	config MetricsConfig

	// Importer metrics
	imports        *prometheus.CounterVec
	importDuration *prometheus.HistogramVec

	// Oracle metrics
	oracleProbes    *prometheus.CounterVec
	oracleCacheHits prometheus.Counter

	// Loader metrics
	loads *prometheus.CounterVec

	// Watch metrics
	rebuilds *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics creates a new metrics collector with the given configuration.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		return &Metrics{config: cfg}, nil
	}

	namespace := cfg.Namespace
	buckets := cfg.DefaultHistogramBuckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		imports: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "imports_total",
				Help:      "Total number of import requests by file kind and outcome",
			},
			[]string{"kind", "status"},
		),
		importDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "import_duration_seconds",
				Help:      "Duration of import requests in seconds",
				Buckets:   buckets,
			},
			[]string{"kind"},
		),

		oracleProbes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "oracle_probes_total",
				Help:      "Total number of compiler probes by probe type and verdict",
			},
			[]string{"probe", "result"},
		),
		oracleCacheHits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "oracle_cache_hits_total",
				Help:      "Total number of probe verdicts served from cache",
			},
		),

		loads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "loads_total",
				Help:      "Total number of data file loads by format and outcome",
			},
			[]string{"format", "status"},
		),

		rebuilds: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rebuilds_total",
				Help:      "Total number of watch mode rebuilds by outcome",
			},
			[]string{"status"},
		),
	}

	registry.MustRegister(
		m.imports,
		m.importDuration,
		m.oracleProbes,
		m.oracleCacheHits,
		m.loads,
		m.rebuilds,
	)

	return m, nil
}

// Registry returns the private registry, or nil when metrics are disabled.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordImport records a finished import request.
func (m *Metrics) RecordImport(kind, status string, duration time.Duration) {
	if m == nil || m.imports == nil {
		return
	}
	m.imports.WithLabelValues(kind, status).Inc()
	m.importDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordOracleProbe records a probe that reached the compiler.
func (m *Metrics) RecordOracleProbe(probe string, accepted bool) {
	if m == nil || m.oracleProbes == nil {
		return
	}
	result := "rejected"
	if accepted {
		result = "accepted"
	}
	m.oracleProbes.WithLabelValues(probe, result).Inc()
}

// RecordOracleCacheHit records a verdict served from the probe cache.
func (m *Metrics) RecordOracleCacheHit() {
	if m == nil || m.oracleCacheHits == nil {
		return
	}
	m.oracleCacheHits.Inc()
}

// RecordLoad records a data file load.
func (m *Metrics) RecordLoad(format, status string) {
	if m == nil || m.loads == nil {
		return
	}
	m.loads.WithLabelValues(format, status).Inc()
}

// RecordRebuild records a watch mode rebuild.
func (m *Metrics) RecordRebuild(status string) {
	if m == nil || m.rebuilds == nil {
		return
	}
	m.rebuilds.WithLabelValues(status).Inc()
}

// Timer provides a convenient way to time operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the elapsed time since the timer was created.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// StartMetricsServer serves metrics until ctx is cancelled. It returns
// immediately; listener errors are logged.
func (m *Metrics) StartMetricsServer(ctx context.Context, log zerolog.Logger) error {
	if m == nil || !m.config.Enabled {
		return nil
	}

	path := m.config.Path
	if path == "" {
		path = "/metrics"
	}
	mux := http.NewServeMux()
	mux.Handle(path, m.Handler())

	server := &http.Server{
		Addr:              m.config.ListenAddress,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	go func() {
		log.Info().Str("addr", server.Addr).Str("path", path).Msg("Serving metrics")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Metrics server error")
		}
	}()

	return nil
}
