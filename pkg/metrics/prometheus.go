package metrics

import (
	"time"

	"MarketBrief/internal/domain/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	providerCalls *prometheus.CounterVec
	providerTime  *prometheus.HistogramVec
	errorsTotal   *prometheus.CounterVec
	diagnostics   *prometheus.CounterVec
	snapshotAsOf  prometheus.Gauge
	sectionSize   *prometheus.GaugeVec
	latency       *prometheus.HistogramVec
}

// New creates a recorder registered with the default Prometheus registry.
func New() *Recorder {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a recorder registered with reg.
func NewWithRegistry(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		providerCalls: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketbrief_provider_calls_total",
				Help: "Provider fetches by outcome",
			},
			[]string{"provider", "outcome"},
		),
		providerTime: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "marketbrief_provider_duration_seconds",
				Help:    "Duration of provider fetches in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"provider"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketbrief_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		diagnostics: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketbrief_parse_diagnostics_total",
				Help: "Diagnostics raised while parsing snapshots",
			},
			[]string{"kind"},
		),
		snapshotAsOf: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "marketbrief_snapshot_timestamp_seconds",
				Help: "Unix time of the latest snapshot",
			},
		),
		sectionSize: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "marketbrief_snapshot_section_records",
				Help: "Records per section in the latest snapshot",
			},
			[]string{"section"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "marketbrief_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordProviderCall records one provider fetch.
func (r *Recorder) RecordProviderCall(provider string, err error, seconds float64) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	r.providerCalls.WithLabelValues(provider, outcome).Inc()
	r.providerTime.WithLabelValues(provider).Observe(seconds)
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordDiagnostics counts diagnostics by kind.
func (r *Recorder) RecordDiagnostics(diags []models.Diagnostic) {
	for kind, n := range models.CountByKind(diags) {
		r.diagnostics.WithLabelValues(string(kind)).Add(float64(n))
	}
}

// RecordSnapshot records the snapshot time and the size of each section.
func (r *Recorder) RecordSnapshot(asOf time.Time, sections map[string]int) {
	if !asOf.IsZero() {
		r.snapshotAsOf.Set(float64(asOf.Unix()))
	}
	for name, n := range sections {
		r.sectionSize.WithLabelValues(name).Set(float64(n))
	}
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// Nop discards every measurement.
type Nop struct{}

func (Nop) RecordProviderCall(string, error, float64) {}
func (Nop) RecordError(string) {}
func (Nop) RecordDiagnostics([]models.Diagnostic) {}
func (Nop) RecordSnapshot(time.Time, map[string]int) {}
func (Nop) RecordLatency(string, float64) {}
