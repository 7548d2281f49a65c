package config_test

import (
	"slices"
	"testing"
	"time"

	"github.com/MrWong99/aiagentdata/internal/config"
)

func baseConfig() *config.Config {
	cfg := &config.Config{
		Providers: config.ProvidersConfig{LLM: config.ProviderEntry{Name: "openai", Model: "gpt-4o-mini"}},
		Agent:     config.AgentConfig{SystemPrompt: "p", Temperature: 0.5},
	}
	config.ApplyDefaults(cfg)
	return cfg
}

func TestDiff_NoChanges(t *testing.T) {
	t.Parallel()
	if d := config.Diff(baseConfig(), baseConfig()); !d.Empty() {
		t.Errorf("diff = %+v, want empty", d)
	}
}

func TestDiff_LogLevel(t *testing.T) {
	t.Parallel()
	old, new := baseConfig(), baseConfig()
	new.Server.LogLevel = config.LogDebug
	d := config.Diff(old, new)
	if !d.LogLevelChanged || d.NewLogLevel != config.LogDebug {
		t.Errorf("diff = %+v", d)
	}
	if len(d.RestartRequired) != 0 {
		t.Errorf("log level must be live: %v", d.RestartRequired)
	}
}

func TestDiff_AgentSettings(t *testing.T) {
	t.Parallel()
	mutations := map[string]func(*config.Config){
		"system prompt": func(c *config.Config) { c.Agent.SystemPrompt = "q" },
		"temperature":   func(c *config.Config) { c.Agent.Temperature = 1 },
		"max tokens":    func(c *config.Config) { c.Agent.MaxTokens = 10 },
		"timeout":       func(c *config.Config) { c.Agent.Timeout = time.Second },
	}
	for name, mutate := range mutations {
		old, new := baseConfig(), baseConfig()
		mutate(new)
		d := config.Diff(old, new)
		if !d.AgentChanged {
			t.Errorf("%s: AgentChanged = false", name)
		}
		if len(d.RestartRequired) != 0 {
			t.Errorf("%s: RestartRequired = %v, want none", name, d.RestartRequired)
		}
	}
}

func TestDiff_RestartRequired(t *testing.T) {
	t.Parallel()
	old, new := baseConfig(), baseConfig()
	new.Server.ListenAddr = ":9000"
	new.Providers.LLM.Model = "gpt-4o"
	new.MCP.Stateless = true
	new.Function.Keys = []string{"k"}
	new.Agent.CircuitBreaker.MaxFailures = 9

	d := config.Diff(old, new)
	want := []string{"agent.circuit_breaker", "function", "mcp", "providers", "server.listen_addr"}
	if !slices.Equal(d.RestartRequired, want) {
		t.Errorf("RestartRequired = %v, want %v", d.RestartRequired, want)
	}
	if d.AgentChanged || d.LogLevelChanged {
		t.Errorf("unexpected live changes: %+v", d)
	}
}

func TestDiff_TLS(t *testing.T) {
	t.Parallel()
	old, new := baseConfig(), baseConfig()
	new.Server.TLS = &config.TLSConfig{CertFile: "c", KeyFile: "k"}
	if d := config.Diff(old, new); !slices.Contains(d.RestartRequired, "server.tls") {
		t.Errorf("RestartRequired = %v, want server.tls", d.RestartRequired)
	}
	old.Server.TLS = &config.TLSConfig{CertFile: "c", KeyFile: "k"}
	if d := config.Diff(old, new); !d.Empty() {
		t.Errorf("equal TLS configs should not differ: %+v", d)
	}
}
