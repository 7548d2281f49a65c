package agent_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/MrWong99/aiagentdata/internal/agent"
	agentmock "github.com/MrWong99/aiagentdata/internal/agent/mock"
	"github.com/MrWong99/aiagentdata/pkg/provider/llm"
	llmmock "github.com/MrWong99/aiagentdata/pkg/provider/llm/mock"
)

func TestNewDefault_RequiresProvider(t *testing.T) {
	t.Parallel()
	if _, err := agent.NewDefault(nil); !errors.Is(err, agent.ErrNoProvider) {
		t.Errorf("err = %v, want ErrNoProvider", err)
	}
}

func TestDefault_Name(t *testing.T) {
	t.Parallel()
	p := &llmmock.Provider{}
	a, _ := agent.NewDefault(p)
	if a.Name() != agent.DefaultName {
		t.Errorf("Name = %q, want %q", a.Name(), agent.DefaultName)
	}
	b, _ := agent.NewDefault(p, agent.WithName("weather"))
	if b.Name() != "weather" {
		t.Errorf("Name = %q, want weather", b.Name())
	}
	c, _ := agent.NewDefault(p, agent.WithName(""))
	if c.Name() != agent.DefaultName {
		t.Errorf("empty WithName should keep the default, got %q", c.Name())
	}
}

func TestDefault_Ask(t *testing.T) {
	t.Parallel()
	p := &llmmock.Provider{CompleteResponse: &llm.CompletionResponse{Content: "Sunny, 72F"}}
	a, err := agent.NewDefault(p, agent.WithSettings(agent.Settings{
		SystemPrompt: "You are a weather bot.",
		Temperature:  0.2,
		MaxTokens:    64,
	}))
	if err != nil {
		t.Fatalf("NewDefault: %v", err)
	}

	got, err := a.Ask(context.Background(), "Seattle weather")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if got != "Sunny, 72F" {
		t.Errorf("answer = %q, want Sunny, 72F", got)
	}

	calls := p.Calls()
	if len(calls) != 1 {
		t.Fatalf("provider calls = %d, want 1", len(calls))
	}
	req := calls[0].Req
	if req.SystemPrompt != "You are a weather bot." || req.Temperature != 0.2 || req.MaxTokens != 64 {
		t.Errorf("request settings = %+v", req)
	}
	if len(req.Messages) != 1 || req.Messages[0].Role != llm.RoleUser || req.Messages[0].Content != "Seattle weather" {
		t.Errorf("messages = %+v, want one user message with the query", req.Messages)
	}
}

func TestDefault_AskEmptyQuery(t *testing.T) {
	t.Parallel()
	p := &llmmock.Provider{CompleteResponse: &llm.CompletionResponse{Content: "?"}}
	a, _ := agent.NewDefault(p)
	if _, err := a.Ask(context.Background(), ""); err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if got := p.Calls()[0].Req.Messages[0].Content; got != "" {
		t.Errorf("query = %q, want empty", got)
	}
}

func TestDefault_ProviderError(t *testing.T) {
	t.Parallel()
	errUpstream := errors.New("upstream 500")
	a, _ := agent.NewDefault(&llmmock.Provider{CompleteErr: errUpstream})
	if _, err := a.Ask(context.Background(), "q"); !errors.Is(err, errUpstream) {
		t.Errorf("err = %v, want wrapped provider error", err)
	}
}

func TestDefault_NilResponse(t *testing.T) {
	t.Parallel()
	a, _ := agent.NewDefault(&llmmock.Provider{})
	if _, err := a.Ask(context.Background(), "q"); !errors.Is(err, llm.ErrEmptyResponse) {
		t.Errorf("err = %v, want ErrEmptyResponse", err)
	}
}

func TestDefault_Timeout(t *testing.T) {
	t.Parallel()
	p := &llmmock.Provider{
		CompleteFunc: func(ctx context.Context, _ llm.CompletionRequest) (*llm.CompletionResponse, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	a, _ := agent.NewDefault(p, agent.WithTimeout(20*time.Millisecond))

	start := time.Now()
	_, err := a.Ask(context.Background(), "q")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want DeadlineExceeded", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Ask took %v, timeout not applied", elapsed)
	}
}

func TestDefault_Update(t *testing.T) {
	t.Parallel()
	p := &llmmock.Provider{CompleteResponse: &llm.CompletionResponse{Content: "ok"}}
	a, _ := agent.NewDefault(p, agent.WithSettings(agent.Settings{SystemPrompt: "old"}))

	a.Update(agent.Settings{SystemPrompt: "new", MaxTokens: 10})
	if s := a.Settings(); s.SystemPrompt != "new" || s.MaxTokens != 10 {
		t.Errorf("Settings = %+v", s)
	}
	_, _ = a.Ask(context.Background(), "q")
	if got := p.Calls()[0].Req.SystemPrompt; got != "new" {
		t.Errorf("system prompt = %q, want new", got)
	}
}

func TestDefault_ConcurrentUpdateAndAsk(t *testing.T) {
	t.Parallel()
	p := &llmmock.Provider{CompleteResponse: &llm.CompletionResponse{Content: "ok"}}
	a, _ := agent.NewDefault(p)

	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			a.Update(agent.Settings{MaxTokens: i})
		}()
		go func() {
			defer wg.Done()
			if _, err := a.Ask(context.Background(), "q"); err != nil {
				t.Errorf("Ask: %v", err)
			}
		}()
	}
	wg.Wait()
	if n := len(p.Calls()); n != 10 {
		t.Errorf("provider calls = %d, want 10", n)
	}
}

func TestFunc(t *testing.T) {
	t.Parallel()
	f := agent.Func{Fn: func(_ context.Context, q string) (string, error) { return "echo:" + q, nil }}
	if f.Name() != agent.DefaultName {
		t.Errorf("Name = %q", f.Name())
	}
	got, err := f.Ask(context.Background(), "x")
	if err != nil || got != "echo:x" {
		t.Errorf("Ask = (%q, %v)", got, err)
	}
}

func TestMockAgent(t *testing.T) {
	t.Parallel()
	m := &agentmock.Agent{Response: "r"}
	_, _ = m.Ask(context.Background(), "a")
	_, _ = m.Ask(context.Background(), "b")
	if q := m.Queries(); len(q) != 2 || q[0] != "a" || q[1] != "b" {
		t.Errorf("Queries = %v", q)
	}
	m.Reset()
	if len(m.Queries()) != 0 {
		t.Error("Reset did not clear calls")
	}
}
