package main

import (
	"fmt"
	"log/slog"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/MrWong99/aiagentdata/internal/app"
	"github.com/MrWong99/aiagentdata/internal/config"
	"github.com/MrWong99/aiagentdata/pkg/provider/llm"
	"github.com/MrWong99/aiagentdata/pkg/provider/llm/anyllm"
	"github.com/MrWong99/aiagentdata/pkg/provider/llm/azopenai"
	"github.com/MrWong99/aiagentdata/pkg/provider/llm/openai"
)

// registerBuiltinProviders wires all built-in LLM provider factories into
// reg.
func registerBuiltinProviders(reg *config.Registry) {
	// Every any-llm backend shares the same pattern: optional APIKey and
	// optional BaseURL. ollama and the llama servers simply leave the key
	// empty.
	for _, name := range anyllm.Backends() {
		reg.RegisterLLM(name, func(entry config.ProviderEntry) (llm.Provider, error) {
			var opts []anyllmlib.Option
			if entry.APIKey != "" {
				opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
			}
			if entry.BaseURL != "" {
				opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
			}
			p, err := anyllm.New(name, entry.Model, opts...)
			if err != nil {
				return nil, err
			}
			return p, nil
		})
	}

	// Any server speaking the OpenAI chat completions API.
	reg.RegisterLLM("openai-compatible", func(entry config.ProviderEntry) (llm.Provider, error) {
		opts := []openai.Option{openai.WithBaseURL(entry.BaseURL)}
		if org := optString(entry.Options, "organization"); org != "" {
			opts = append(opts, openai.WithOrganization(org))
		}
		if d := optDuration(entry.Options, "timeout"); d > 0 {
			opts = append(opts, openai.WithTimeout(d))
		}
		if n := optInt(entry.Options, "context_window"); n > 0 {
			opts = append(opts, openai.WithContextWindow(n))
		}
		p, err := openai.New(entry.APIKey, entry.Model, opts...)
		if err != nil {
			return nil, err
		}
		return p, nil
	})

	reg.RegisterLLM("azure-openai", func(entry config.ProviderEntry) (llm.Provider, error) {
		p, err := azopenai.New(entry.BaseURL, entry.APIKey, entry.Model)
		if err != nil {
			return nil, err
		}
		return p, nil
	})

	for _, name := range reg.LLMNames() {
		slog.Debug("registered provider", "kind", "llm", "name", name)
	}
}

// buildProviders instantiates the primary and fallback LLM providers named in
// cfg using the registry.
func buildProviders(cfg *config.Config, reg *config.Registry) (*app.Providers, error) {
	ps := &app.Providers{}

	p, err := reg.CreateLLM(cfg.Providers.LLM)
	if err != nil {
		return nil, fmt.Errorf("create llm provider %q: %w", cfg.Providers.LLM.Name, err)
	}
	ps.LLM = app.NamedLLM{Name: cfg.Providers.LLM.Name, Provider: p}
	slog.Info("provider created", "kind", "llm", "name", cfg.Providers.LLM.Name, "model", cfg.Providers.LLM.Model)

	for i, entry := range cfg.Providers.LLMFallbacks {
		p, err := reg.CreateLLM(entry)
		if err != nil {
			return nil, fmt.Errorf("create llm fallback %d %q: %w", i, entry.Name, err)
		}
		// Names must be unique within the failover chain for logs and metrics.
		name := fmt.Sprintf("%s#%d", entry.Name, i+1)
		ps.Fallbacks = append(ps.Fallbacks, app.NamedLLM{Name: name, Provider: p})
		slog.Info("provider created", "kind", "llm_fallback", "name", name, "model", entry.Model)
	}
	return ps, nil
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// optString extracts a string value from a provider Options map.
// Returns "" if the map is nil, the key is absent, or the value is not a string.
func optString(opts map[string]any, key string) string {
	s, _ := opts[key].(string)
	return s
}

// optInt extracts an integer value. YAML decodes integers as int, TOML as
// int64.
func optInt(opts map[string]any, key string) int {
	switch v := opts[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

// optDuration parses a duration string such as "30s". Invalid values yield 0.
func optDuration(opts map[string]any, key string) time.Duration {
	d, err := time.ParseDuration(optString(opts, key))
	if err != nil {
		return 0
	}
	return d
}
