// Package observe provides application-wide observability primitives for
// revoice: OpenTelemetry metrics, tracing, and trace-enriched structured
// logging.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so batch runs can expose a
// scrapeable /metrics endpoint. A package-level default [Metrics] instance
// ([DefaultMetrics]) is provided for convenience; tests should use
// [NewMetrics] with a custom [metric.MeterProvider] to avoid cross-test
// pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all revoice metrics.
const meterName = "github.com/prosodylab/revoice"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms per pipeline stage ---

	// StretchDuration tracks the full time-stretch stage latency, including
	// the engine round-trip.
	StretchDuration metric.Float64Histogram

	// ShiftDuration tracks the full pitch-shift stage latency, including
	// the engine round-trip.
	ShiftDuration metric.Float64Histogram

	// VocodeDuration tracks end-to-end single-invocation latency.
	VocodeDuration metric.Float64Histogram

	// --- Counters ---

	// ItemsProcessed counts batch items completed. Use with attribute:
	//   attribute.String("status", "ok"|"error")
	ItemsProcessed metric.Int64Counter

	// VocodeErrors counts failed invocations. Use with attribute:
	//   attribute.String("stage", ...)
	VocodeErrors metric.Int64Counter

	// --- Gauges ---

	// ActiveWorkspaces tracks the number of live invocation workspaces.
	ActiveWorkspaces metric.Int64UpDownCounter
}

// latencyBuckets defines histogram bucket boundaries (in seconds). The
// resynthesis round-trip dominates, so buckets reach into tens of seconds.
var latencyBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.StretchDuration, err = m.Float64Histogram("revoice.stretch.duration",
		metric.WithDescription("Latency of the time-stretch stage."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ShiftDuration, err = m.Float64Histogram("revoice.shift.duration",
		metric.WithDescription("Latency of the pitch-shift stage."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.VocodeDuration, err = m.Float64Histogram("revoice.vocode.duration",
		metric.WithDescription("End-to-end latency of one vocode invocation."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.ItemsProcessed, err = m.Int64Counter("revoice.batch.items",
		metric.WithDescription("Total batch items processed by status."),
	); err != nil {
		return nil, err
	}
	if met.VocodeErrors, err = m.Int64Counter("revoice.vocode.errors",
		metric.WithDescription("Total failed vocode invocations by stage."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveWorkspaces, err = m.Int64UpDownCounter("revoice.active_workspaces",
		metric.WithDescription("Number of live invocation workspaces."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it
// on first call using [otel.GetMeterProvider]. Subsequent calls return the
// same pointer. Panics if instrument creation fails (should not happen with
// the global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordItem records a batch item completion with the standard status
// attribute.
func (m *Metrics) RecordItem(ctx context.Context, status string) {
	m.ItemsProcessed.Add(ctx, 1,
		metric.WithAttributes(attribute.String("status", status)),
	)
}

// RecordError records a failed invocation with the stage it failed in.
func (m *Metrics) RecordError(ctx context.Context, stage string) {
	m.VocodeErrors.Add(ctx, 1,
		metric.WithAttributes(attribute.String("stage", stage)),
	)
}
