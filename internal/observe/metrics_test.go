package observe

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// newTestMetrics returns a Metrics instance backed by a ManualReader for
// programmatic metric inspection.
func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return rm
}

// findMetric searches for a metric by name across all scope metrics.
func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

// sumWhere returns the value of the first int64 sum data point carrying the
// attribute key=value.
func sumWhere(t *testing.T, rm metricdata.ResourceMetrics, name, key, value string) (int64, bool) {
	t.Helper()
	met := findMetric(rm, name)
	if met == nil {
		t.Fatalf("metric %q not found", name)
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("metric %q is not a sum", name)
	}
	for _, dp := range sum.DataPoints {
		if v, ok := dp.Attributes.Value(attribute.Key(key)); ok && v.AsString() == value {
			return dp.Value, true
		}
	}
	return 0, false
}

func TestNewMetrics_CreatesWithoutError(t *testing.T) {
	m, _ := newTestMetrics(t)
	if m == nil {
		t.Fatal("NewMetrics returned nil")
	}
}

func TestRecordInvocation(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordInvocation(ctx, "get_aiagentdata", "mcpToolTrigger", StatusOK, 120*time.Millisecond)
	m.RecordInvocation(ctx, "get_aiagentdata", "mcpToolTrigger", StatusOK, 80*time.Millisecond)
	m.RecordInvocation(ctx, "get_aiagentdata", "mcpToolTrigger", StatusError, 10*time.Millisecond)

	rm := collect(t, reader)

	if v, ok := sumWhere(t, rm, "aiagentdata.function.invocations", "status", StatusOK); !ok || v != 2 {
		t.Errorf("ok invocations = %d (found=%v), want 2", v, ok)
	}
	if v, ok := sumWhere(t, rm, "aiagentdata.function.invocations", "status", StatusError); !ok || v != 1 {
		t.Errorf("error invocations = %d (found=%v), want 1", v, ok)
	}

	met := findMetric(rm, "aiagentdata.function.duration")
	if met == nil {
		t.Fatal("duration metric not found")
	}
	hist, ok := met.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatal("duration metric is not a histogram")
	}
	if len(hist.DataPoints) != 1 || hist.DataPoints[0].Count != 3 {
		t.Errorf("duration data points = %+v, want one point with 3 samples", hist.DataPoints)
	}
}

func TestRecordAgentCall(t *testing.T) {
	m, reader := newTestMetrics(t)
	m.RecordAgentCall(context.Background(), "ai_default_agent", 2*time.Second)

	rm := collect(t, reader)
	met := findMetric(rm, "aiagentdata.agent.duration")
	if met == nil {
		t.Fatal("metric not found")
	}
	hist, ok := met.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatal("metric is not a histogram")
	}
	if len(hist.DataPoints) == 0 {
		t.Fatal("no data points")
	}
	if got := hist.DataPoints[0].Sum; got != 2 {
		t.Errorf("sum = %v, want 2", got)
	}
}

func TestProviderCounters(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordProviderRequest(ctx, "openai", "llm", StatusOK)
	m.RecordProviderRequest(ctx, "openai", "llm", StatusOK)
	m.RecordProviderRequest(ctx, "openai", "llm", StatusError)
	m.RecordProviderError(ctx, "openai", "llm")

	rm := collect(t, reader)
	if v, ok := sumWhere(t, rm, "aiagentdata.provider.requests", "status", StatusOK); !ok || v != 2 {
		t.Errorf("ok requests = %d (found=%v), want 2", v, ok)
	}
	if v, ok := sumWhere(t, rm, "aiagentdata.provider.errors", "provider", "openai"); !ok || v != 1 {
		t.Errorf("errors = %d (found=%v), want 1", v, ok)
	}
}

func TestActiveInvocations(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.ActiveInvocations.Add(ctx, 1)
	m.ActiveInvocations.Add(ctx, 1)
	m.ActiveInvocations.Add(ctx, -1)

	rm := collect(t, reader)
	met := findMetric(rm, "aiagentdata.function.active")
	if met == nil {
		t.Fatal("metric not found")
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatal("metric is not a sum")
	}
	if len(sum.DataPoints) == 0 || sum.DataPoints[0].Value != 1 {
		t.Errorf("active = %+v, want 1", sum.DataPoints)
	}
}

func TestRecordConfigReload(t *testing.T) {
	m, reader := newTestMetrics(t)
	m.RecordConfigReload(context.Background(), StatusOK)

	rm := collect(t, reader)
	if v, ok := sumWhere(t, rm, "aiagentdata.config.reloads", "status", StatusOK); !ok || v != 1 {
		t.Errorf("reloads = %d (found=%v), want 1", v, ok)
	}
}

func TestHTTPRequestDuration(t *testing.T) {
	m, reader := newTestMetrics(t)

	m.HTTPRequestDuration.Record(context.Background(), 0.05,
		metric.WithAttributes(
			attribute.String("method", "GET"),
			attribute.String("path", "/healthz"),
		),
	)

	rm := collect(t, reader)
	met := findMetric(rm, "aiagentdata.http.request.duration")
	if met == nil {
		t.Fatal("metric not found")
	}
	hist, ok := met.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatal("metric is not a histogram")
	}
	if len(hist.DataPoints) == 0 {
		t.Fatal("no data points")
	}
	if got := hist.DataPoints[0].Count; got != 1 {
		t.Errorf("sample count = %d, want 1", got)
	}
}

func TestDefaultMetrics_ReturnsSameInstance(t *testing.T) {
	a := DefaultMetrics()
	b := DefaultMetrics()
	if a != b {
		t.Error("DefaultMetrics returned different pointers")
	}
}
