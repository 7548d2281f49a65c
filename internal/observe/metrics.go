// Package observe provides the observability primitives for the function
// host: OpenTelemetry metrics, distributed tracing, trace-aware structured
// logging, and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is installed by [InitProvider] so that metrics can be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all metrics.
const meterName = "github.com/MrWong99/aiagentdata"

// Invocation status attribute values.
const (
	StatusOK       = "ok"
	StatusError    = "error"
	StatusNotFound = "not_found"
	StatusPanic    = "panic"
)

// Metrics holds all OpenTelemetry metric instruments for the application.
// The underlying OTel types handle their own synchronisation.
type Metrics struct {
	// Invocations counts function invocations. Attributes:
	//   attribute.String("function", ...), attribute.String("trigger", ...), attribute.String("status", ...)
	Invocations metric.Int64Counter

	// InvocationDuration tracks handler latency per function.
	InvocationDuration metric.Float64Histogram

	// ActiveInvocations tracks the number of in-flight invocations.
	ActiveInvocations metric.Int64UpDownCounter

	// AgentDuration tracks the latency of agent calls. Attribute:
	//   attribute.String("agent", ...)
	AgentDuration metric.Float64Histogram

	// ProviderRequests counts provider API calls. Attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...), attribute.String("status", ...)
	ProviderRequests metric.Int64Counter

	// ProviderErrors counts provider errors. Attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...)
	ProviderErrors metric.Int64Counter

	// ConfigReloads counts configuration reloads. Attribute:
	//   attribute.String("status", ...)
	ConfigReloads metric.Int64Counter

	// HTTPRequestDuration tracks HTTP request processing time. Attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds). Agent
// calls are dominated by model latency, so the upper range extends to 60s.
var latencyBuckets = []float64{
	0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider].
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.Invocations, err = m.Int64Counter("aiagentdata.function.invocations",
		metric.WithDescription("Total function invocations by function, trigger and status."),
	); err != nil {
		return nil, err
	}
	if met.InvocationDuration, err = m.Float64Histogram("aiagentdata.function.duration",
		metric.WithDescription("Latency of function handlers."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ActiveInvocations, err = m.Int64UpDownCounter("aiagentdata.function.active",
		metric.WithDescription("Number of in-flight function invocations."),
	); err != nil {
		return nil, err
	}
	if met.AgentDuration, err = m.Float64Histogram("aiagentdata.agent.duration",
		metric.WithDescription("Latency of agent calls."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ProviderRequests, err = m.Int64Counter("aiagentdata.provider.requests",
		metric.WithDescription("Total provider API requests by provider, kind, and status."),
	); err != nil {
		return nil, err
	}
	if met.ProviderErrors, err = m.Int64Counter("aiagentdata.provider.errors",
		metric.WithDescription("Total provider errors by provider and kind."),
	); err != nil {
		return nil, err
	}
	if met.ConfigReloads, err = m.Int64Counter("aiagentdata.config.reloads",
		metric.WithDescription("Total configuration reloads by status."),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("aiagentdata.http.request.duration",
		metric.WithDescription("HTTP request latency by method and route."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Panics if instrument creation
// fails.
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

// RecordInvocation records one completed invocation: the counter increment
// and the handler duration.
func (m *Metrics) RecordInvocation(ctx context.Context, function, trigger, status string, d time.Duration) {
	m.Invocations.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("function", function),
			attribute.String("trigger", trigger),
			attribute.String("status", status),
		),
	)
	m.InvocationDuration.Record(ctx, d.Seconds(),
		metric.WithAttributes(attribute.String("function", function)),
	)
}

// RecordAgentCall records the latency of one agent call.
func (m *Metrics) RecordAgentCall(ctx context.Context, agent string, d time.Duration) {
	m.AgentDuration.Record(ctx, d.Seconds(),
		metric.WithAttributes(attribute.String("agent", agent)),
	)
}

// RecordProviderRequest records a provider request counter increment with
// the standard attribute set.
func (m *Metrics) RecordProviderRequest(ctx context.Context, provider, kind, status string) {
	m.ProviderRequests.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
			attribute.String("status", status),
		),
	)
}

// RecordProviderError records a provider error counter increment.
func (m *Metrics) RecordProviderError(ctx context.Context, provider, kind string) {
	m.ProviderErrors.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
		),
	)
}

// RecordConfigReload records a configuration reload attempt.
func (m *Metrics) RecordConfigReload(ctx context.Context, status string) {
	m.ConfigReloads.Add(ctx, 1,
		metric.WithAttributes(attribute.String("status", status)),
	)
}
