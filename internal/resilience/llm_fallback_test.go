package resilience

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/MrWong99/aiagentdata/internal/observe"
	"github.com/MrWong99/aiagentdata/pkg/provider/llm"
	llmmock "github.com/MrWong99/aiagentdata/pkg/provider/llm/mock"
)

func newTestMetrics(t *testing.T) (*observe.Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

func newTestFallback(t *testing.T, primary, secondary llm.Provider) (*LLMFallback, *sdkmetric.ManualReader) {
	t.Helper()
	m, reader := newTestMetrics(t)
	fb := NewLLMFallback(primary, "primary", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3, ResetTimeout: time.Hour},
	}, m)
	if secondary != nil {
		fb.AddFallback("secondary", secondary)
	}
	return fb, reader
}

var userQuery = llm.CompletionRequest{
	Messages: []llm.Message{{Role: llm.RoleUser, Content: "Seattle weather"}},
}

func TestLLMFallback_Complete_PrimarySuccess(t *testing.T) {
	t.Parallel()
	primary := &llmmock.Provider{CompleteResponse: &llm.CompletionResponse{Content: "from primary"}}
	secondary := &llmmock.Provider{CompleteResponse: &llm.CompletionResponse{Content: "from secondary"}}
	fb, _ := newTestFallback(t, primary, secondary)

	resp, err := fb.Complete(context.Background(), userQuery)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "from primary" {
		t.Fatalf("content = %q, want 'from primary'", resp.Content)
	}
	if len(primary.Calls()) != 1 {
		t.Fatalf("primary called %d times, want 1", len(primary.Calls()))
	}
	if len(secondary.Calls()) != 0 {
		t.Fatalf("secondary called %d times, want 0", len(secondary.Calls()))
	}
	if got := primary.Calls()[0].Req.Messages[0].Content; got != "Seattle weather" {
		t.Errorf("forwarded query = %q", got)
	}
}

func TestLLMFallback_Complete_Failover(t *testing.T) {
	t.Parallel()
	primary := &llmmock.Provider{CompleteErr: errors.New("primary down")}
	secondary := &llmmock.Provider{CompleteResponse: &llm.CompletionResponse{Content: "from secondary"}}
	fb, _ := newTestFallback(t, primary, secondary)

	resp, err := fb.Complete(context.Background(), userQuery)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "from secondary" {
		t.Fatalf("content = %q, want 'from secondary'", resp.Content)
	}
}

func TestLLMFallback_Complete_NilResponseFailsOver(t *testing.T) {
	t.Parallel()
	primary := &llmmock.Provider{}
	secondary := &llmmock.Provider{CompleteResponse: &llm.CompletionResponse{Content: "ok"}}
	fb, _ := newTestFallback(t, primary, secondary)

	resp, err := fb.Complete(context.Background(), userQuery)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "ok" {
		t.Fatalf("content = %q, want ok", resp.Content)
	}
}

func TestLLMFallback_Complete_AllFail(t *testing.T) {
	t.Parallel()
	primary := &llmmock.Provider{CompleteErr: errors.New("primary down")}
	secondary := &llmmock.Provider{CompleteErr: errors.New("secondary down")}
	fb, _ := newTestFallback(t, primary, secondary)

	_, err := fb.Complete(context.Background(), userQuery)
	if !errors.Is(err, ErrAllFailed) {
		t.Fatalf("err = %v, want ErrAllFailed", err)
	}
}

func TestLLMFallback_Healthy(t *testing.T) {
	t.Parallel()
	primary := &llmmock.Provider{CompleteErr: errors.New("down")}
	fb, _ := newTestFallback(t, primary, nil)

	if err := fb.Healthy(); err != nil {
		t.Fatalf("fresh fallback unhealthy: %v", err)
	}
	for range 3 {
		_, _ = fb.Complete(context.Background(), userQuery)
	}
	if err := fb.Healthy(); err == nil {
		t.Fatal("expected unhealthy after breaker opened")
	}
}

func TestLLMFallback_RecordsProviderMetrics(t *testing.T) {
	t.Parallel()
	primary := &llmmock.Provider{CompleteErr: errors.New("down")}
	secondary := &llmmock.Provider{CompleteResponse: &llm.CompletionResponse{Content: "ok"}}
	fb, reader := newTestFallback(t, primary, secondary)

	if _, err := fb.Complete(context.Background(), userQuery); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}

	requests := map[string]int64{}
	errorsByProvider := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				provider, _ := dp.Attributes.Value(attribute.Key("provider"))
				status, _ := dp.Attributes.Value(attribute.Key("status"))
				switch m.Name {
				case "aiagentdata.provider.requests":
					requests[provider.AsString()+"/"+status.AsString()] += dp.Value
				case "aiagentdata.provider.errors":
					errorsByProvider[provider.AsString()] += dp.Value
				}
			}
		}
	}

	if requests["primary/error"] != 1 || requests["secondary/ok"] != 1 {
		t.Errorf("requests = %v, want primary/error=1 secondary/ok=1", requests)
	}
	if errorsByProvider["primary"] != 1 || errorsByProvider["secondary"] != 0 {
		t.Errorf("errors = %v, want primary=1", errorsByProvider)
	}
}

func TestLLMFallback_Capabilities(t *testing.T) {
	t.Parallel()
	primary := &llmmock.Provider{ModelCapabilities: llm.ModelCapabilities{ContextWindow: 8_192}}
	secondary := &llmmock.Provider{ModelCapabilities: llm.ModelCapabilities{ContextWindow: 1}}
	fb, _ := newTestFallback(t, primary, secondary)

	if got := fb.Capabilities().ContextWindow; got != 8_192 {
		t.Errorf("context window = %d, want primary's 8192", got)
	}
	if !slices.Equal(fb.Providers(), []string{"primary", "secondary"}) {
		t.Errorf("Providers() = %v", fb.Providers())
	}
}
