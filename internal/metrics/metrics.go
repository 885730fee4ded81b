package metrics

import (
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	globalMetrics *Metrics
	globalMu      sync.RWMutex
)

// Metrics holds the Prometheus metrics of one pca run
type Metrics struct {
	// Remote object counters
	ObjectsCreatedTotal *prometheus.CounterVec
	ObjectsDeletedTotal *prometheus.CounterVec
	NameCollisionsTotal *prometheus.CounterVec

	// API metrics
	APIRequestsTotal          *prometheus.CounterVec
	APIRequestDurationSeconds *prometheus.HistogramVec

	// Export
	ExportedTargets   prometheus.Gauge
	ExportedCampaigns prometheus.Gauge
	ExportedClicks    prometheus.Gauge

	// Runs
	RunsTotal        *prometheus.CounterVec
	LastRunTimestamp *prometheus.GaugeVec

	registry *prometheus.Registry
}

// New creates a new Metrics instance with all metrics registered
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		ObjectsCreatedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pca_objects_created_total",
				Help: "Total number of objects created on the Gophish server",
			},
			[]string{"kind"},
		),
		ObjectsDeletedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pca_objects_deleted_total",
				Help: "Total number of objects deleted from the Gophish server",
			},
			[]string{"kind"},
		),
		NameCollisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pca_name_collisions_total",
				Help: "Total number of create requests rejected because the name was in use",
			},
			[]string{"kind"},
		),

		APIRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pca_api_requests_total",
				Help: "Total number of Gophish API requests",
			},
			[]string{"method", "status"},
		),
		APIRequestDurationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pca_api_request_duration_seconds",
				Help:    "Gophish API request duration in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"method"},
		),

		ExportedTargets: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "pca_exported_targets",
				Help: "Number of targets in the last export",
			},
		),
		ExportedCampaigns: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "pca_exported_campaigns",
				Help: "Number of campaigns in the last export",
			},
		),
		ExportedClicks: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "pca_exported_clicks",
				Help: "Number of click events in the last export",
			},
		),

		RunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pca_runs_total",
				Help: "Total number of command runs",
			},
			[]string{"command", "result"},
		),
		LastRunTimestamp: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "pca_last_run_timestamp_seconds",
				Help: "Unix time of the last run of a command",
			},
			[]string{"command"},
		),

		registry: reg,
	}

	reg.MustRegister(
		m.ObjectsCreatedTotal,
		m.ObjectsDeletedTotal,
		m.NameCollisionsTotal,
		m.APIRequestsTotal,
		m.APIRequestDurationSeconds,
		m.ExportedTargets,
		m.ExportedCampaigns,
		m.ExportedClicks,
		m.RunsTotal,
		m.LastRunTimestamp,
	)

	return m
}

// Registry returns the Prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes the metrics in the text exposition format for the
// node_exporter textfile collector. The file is replaced atomically.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

// SetGlobal sets the global metrics instance
func SetGlobal(m *Metrics) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalMetrics = m
}

// Global returns the global metrics instance
func Global() *Metrics {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalMetrics
}

// IncObjectsCreated increments the created object counter
func IncObjectsCreated(kind string) {
	m := Global()
	if m != nil {
		m.ObjectsCreatedTotal.WithLabelValues(kind).Inc()
	}
}

// IncObjectsDeleted increments the deleted object counter
func IncObjectsDeleted(kind string) {
	m := Global()
	if m != nil {
		m.ObjectsDeletedTotal.WithLabelValues(kind).Inc()
	}
}

// IncNameCollisions increments the name collision counter
func IncNameCollisions(kind string) {
	m := Global()
	if m != nil {
		m.NameCollisionsTotal.WithLabelValues(kind).Inc()
	}
}

// ObserveAPIRequest records one Gophish API request
func ObserveAPIRequest(method string, status int, d time.Duration) {
	m := Global()
	if m != nil {
		m.APIRequestsTotal.WithLabelValues(method, fmt.Sprintf("%d", status)).Inc()
		m.APIRequestDurationSeconds.WithLabelValues(method).Observe(d.Seconds())
	}
}

// SetExported records the size of the last export
func SetExported(targets, campaigns, clicks int) {
	m := Global()
	if m != nil {
		m.ExportedTargets.Set(float64(targets))
		m.ExportedCampaigns.Set(float64(campaigns))
		m.ExportedClicks.Set(float64(clicks))
	}
}

// RecordRun counts a finished command run
func RecordRun(command string, err error) {
	m := Global()
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	m.RunsTotal.WithLabelValues(command, result).Inc()
	m.LastRunTimestamp.WithLabelValues(command).SetToCurrentTime()
}
