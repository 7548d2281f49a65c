package agent

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/MrWong99/aiagentdata/internal/observe"
	"github.com/MrWong99/aiagentdata/pkg/provider/llm"
)

// Settings are the tunables of a [Default] agent. They can be swapped at
// runtime with [Default.Update].
type Settings struct {
	// SystemPrompt is sent ahead of the query when non-empty.
	SystemPrompt string

	// Temperature is forwarded to the provider. Zero means provider default.
	Temperature float64

	// MaxTokens caps the completion length. Zero means provider default.
	MaxTokens int

	// Timeout bounds a single Ask call. Zero means no agent-level timeout;
	// the caller's context still applies.
	Timeout time.Duration
}

// Default is the "ai_default_agent": it sends the query as a single user
// message to an [llm.Provider] and returns the completion text.
type Default struct {
	name     string
	provider llm.Provider
	settings atomic.Pointer[Settings]
	metrics  *observe.Metrics
}

var _ Agent = (*Default)(nil)

// DefaultOption configures a [Default] agent.
type DefaultOption func(*Default)

// WithName overrides the agent name. Defaults to [DefaultName].
func WithName(name string) DefaultOption {
	return func(d *Default) {
		if name != "" {
			d.name = name
		}
	}
}

// WithSettings sets the initial [Settings].
func WithSettings(s Settings) DefaultOption {
	return func(d *Default) {
		d.settings.Store(&s)
	}
}

// WithTimeout sets the per-call timeout of the initial settings.
func WithTimeout(timeout time.Duration) DefaultOption {
	return func(d *Default) {
		s := *d.settings.Load()
		s.Timeout = timeout
		d.settings.Store(&s)
	}
}

// WithMetrics sets the metrics sink. Defaults to [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) DefaultOption {
	return func(d *Default) {
		d.metrics = m
	}
}

// NewDefault creates a [Default] agent over provider.
func NewDefault(provider llm.Provider, opts ...DefaultOption) (*Default, error) {
	if provider == nil {
		return nil, ErrNoProvider
	}
	d := &Default{name: DefaultName, provider: provider}
	d.settings.Store(&Settings{})
	for _, o := range opts {
		o(d)
	}
	if d.metrics == nil {
		d.metrics = observe.DefaultMetrics()
	}
	return d, nil
}

// Name implements [Agent].
func (d *Default) Name() string { return d.name }

// Settings returns a copy of the current settings.
func (d *Default) Settings() Settings { return *d.settings.Load() }

// Update replaces the settings. Calls already in flight keep the settings
// they started with.
func (d *Default) Update(s Settings) {
	d.settings.Store(&s)
}

// Ask implements [Agent].
func (d *Default) Ask(ctx context.Context, query string) (string, error) {
	s := d.settings.Load()
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	ctx, span := observe.StartSpan(ctx, "agent.ask")
	defer span.End()

	start := time.Now()
	resp, err := d.provider.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: s.SystemPrompt,
		Messages:     []llm.Message{{Role: llm.RoleUser, Content: query}},
		Temperature:  s.Temperature,
		MaxTokens:    s.MaxTokens,
	})
	d.metrics.RecordAgentCall(ctx, d.name, time.Since(start))
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("agent: %s: %w", d.name, err)
	}
	if resp == nil {
		return "", fmt.Errorf("agent: %s: %w", d.name, llm.ErrEmptyResponse)
	}

	observe.Logger(ctx).Debug("agent answered",
		"agent", d.name,
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
	)
	return resp.Content, nil
}
