package telemetry

import (
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName = "github.com/wolfeidau/assetgraph"
)

// Metrics holds all the OpenTelemetry metric instruments
type Metrics struct {
	// Graph metrics
	ModulesTransformedTotal metric.Int64Counter
	TransformErrorsTotal    metric.Int64Counter
	TransformDuration       metric.Float64Histogram

	// Emit metrics
	ChunksEmittedTotal metric.Int64Counter
	ChunkBytes         metric.Int64Histogram

	// Build metrics
	BuildsTotal        metric.Int64Counter
	BuildFailuresTotal metric.Int64Counter
	BuildDuration      metric.Float64Histogram
}

var (
	once    sync.Once
	metrics *Metrics
)

// GetMetrics returns the singleton Metrics instance, initializing it if necessary
func GetMetrics() *Metrics {
	once.Do(func() {
		metrics = initMetrics()
	})
	return metrics
}

// initMetrics creates and registers all metric instruments
func initMetrics() *Metrics {
	meter := otel.GetMeterProvider().Meter(meterName)

	m := &Metrics{}

	m.ModulesTransformedTotal, _ = meter.Int64Counter(
		"assetgraph.modules.transformed.total",
		metric.WithDescription("Total number of modules read and transformed"),
		metric.WithUnit("{module}"),
	)

	m.TransformErrorsTotal, _ = meter.Int64Counter(
		"assetgraph.modules.transform_errors.total",
		metric.WithDescription("Total number of failed module transforms"),
		metric.WithUnit("{error}"),
	)

	m.TransformDuration, _ = meter.Float64Histogram(
		"assetgraph.modules.transform.duration",
		metric.WithDescription("Duration of the transform pipeline and post-transform hooks for a module, excluding the file read"),
		metric.WithUnit("ms"),
	)

	m.ChunksEmittedTotal, _ = meter.Int64Counter(
		"assetgraph.chunks.emitted.total",
		metric.WithDescription("Total number of chunks written"),
		metric.WithUnit("{chunk}"),
	)

	m.ChunkBytes, _ = meter.Int64Histogram(
		"assetgraph.chunks.size",
		metric.WithDescription("Size of emitted chunks"),
		metric.WithUnit("By"),
	)

	m.BuildsTotal, _ = meter.Int64Counter(
		"assetgraph.builds.total",
		metric.WithDescription("Total number of builds started"),
		metric.WithUnit("{build}"),
	)

	m.BuildFailuresTotal, _ = meter.Int64Counter(
		"assetgraph.builds.failures.total",
		metric.WithDescription("Total number of failed builds by error kind"),
		metric.WithUnit("{build}"),
	)

	m.BuildDuration, _ = meter.Float64Histogram(
		"assetgraph.builds.duration",
		metric.WithDescription("Duration of complete builds"),
		metric.WithUnit("ms"),
	)

	return m
}

// Milliseconds converts d for the duration histograms, keeping sub-millisecond
// precision.
func Milliseconds(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}
