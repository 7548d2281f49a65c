// Package config provides the configuration schema, loader, watcher and
// provider registry for the aiagentdata function host.
//
// Configuration files are YAML by default; files ending in .toml are decoded
// as TOML. Unknown keys are rejected in both formats.
package config

import (
	"log/slog"
	"time"

	"github.com/MrWong99/aiagentdata/internal/mcp"
)

// LogLevel controls log verbosity for the host.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Level converts l to a [slog.Level]. Unknown values map to [slog.LevelInfo].
func (l LogLevel) Level() slog.Level {
	switch l {
	case LogDebug:
		return slog.LevelDebug
	case LogWarn:
		return slog.LevelWarn
	case LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LogFormat selects the slog handler.
type LogFormat string

const (
	LogFormatText LogFormat = "text"
	LogFormatJSON LogFormat = "json"
)

// IsValid reports whether f is a recognised log format.
func (f LogFormat) IsValid() bool {
	return f == LogFormatText || f == LogFormatJSON
}

// Defaults applied by [ApplyDefaults].
const (
	DefaultListenAddr      = ":7071"
	DefaultShutdownTimeout = 15 * time.Second
	DefaultAuthLevel       = "anonymous"
	DefaultRoutePrefix     = "api"
	DefaultAgentName       = "ai_default_agent"
)

// Config is the root configuration structure.
// It is typically loaded from a file using [Load] or [LoadFromReader].
type Config struct {
	Server    ServerConfig    `yaml:"server" toml:"server"`
	Function  FunctionConfig  `yaml:"function" toml:"function"`
	Providers ProvidersConfig `yaml:"providers" toml:"providers"`
	Agent     AgentConfig     `yaml:"agent" toml:"agent"`
	MCP       MCPConfig       `yaml:"mcp" toml:"mcp"`
}

// ServerConfig holds network and logging settings.
type ServerConfig struct {
	// ListenAddr is the TCP address the HTTP server listens on.
	ListenAddr string `yaml:"listen_addr" toml:"listen_addr"`

	// LogLevel controls verbosity. Can be changed without a restart.
	LogLevel LogLevel `yaml:"log_level" toml:"log_level"`

	// LogFormat selects text or JSON log output.
	LogFormat LogFormat `yaml:"log_format" toml:"log_format"`

	// TLS configures TLS for the server. When nil, the server runs plain HTTP.
	TLS *TLSConfig `yaml:"tls" toml:"tls"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" toml:"shutdown_timeout"`
}

// TLSConfig holds TLS certificate paths for enabling HTTPS.
type TLSConfig struct {
	// CertFile is the path to the PEM-encoded TLS certificate.
	CertFile string `yaml:"cert_file" toml:"cert_file"`

	// KeyFile is the path to the PEM-encoded TLS private key.
	KeyFile string `yaml:"key_file" toml:"key_file"`
}

// FunctionConfig controls how functions are exposed over HTTP.
type FunctionConfig struct {
	// AuthLevel is "anonymous" or "function".
	AuthLevel string `yaml:"auth_level" toml:"auth_level"`

	// Keys are the accepted function keys when AuthLevel is "function".
	Keys []string `yaml:"keys" toml:"keys"`

	// RoutePrefix is the path prefix of the invocation routes.
	RoutePrefix string `yaml:"route_prefix" toml:"route_prefix"`
}

// ProvidersConfig declares the LLM backends behind the default agent.
type ProvidersConfig struct {
	// LLM is the primary provider.
	LLM ProviderEntry `yaml:"llm" toml:"llm"`

	// LLMFallbacks are tried in order when the primary fails or its circuit
	// breaker is open.
	LLMFallbacks []ProviderEntry `yaml:"llm_fallbacks" toml:"llm_fallbacks"`
}

// ProviderEntry is the common configuration block shared by all providers.
// The Name field is used to look up the constructor in the [Registry].
type ProviderEntry struct {
	// Name selects the registered provider implementation (e.g., "openai",
	// "azure-openai").
	Name string `yaml:"name" toml:"name"`

	// APIKey is the authentication key for the provider's API if any.
	APIKey string `yaml:"api_key" toml:"api_key"`

	// BaseURL overrides the provider's default API endpoint. For
	// "azure-openai" it is the resource endpoint.
	BaseURL string `yaml:"base_url" toml:"base_url"`

	// Model selects a specific model (the deployment name for "azure-openai").
	Model string `yaml:"model" toml:"model"`

	// Options holds provider-specific values not covered by the fields above.
	Options map[string]any `yaml:"options" toml:"options"`
}

// AgentConfig configures the default agent.
type AgentConfig struct {
	// Name identifies the agent in logs and metrics.
	Name string `yaml:"name" toml:"name"`

	// SystemPrompt is sent ahead of every query when non-empty.
	SystemPrompt string `yaml:"system_prompt" toml:"system_prompt"`

	// Temperature in [0, 2]. Zero means provider default.
	Temperature float64 `yaml:"temperature" toml:"temperature"`

	// MaxTokens caps the completion length. Zero means provider default.
	MaxTokens int `yaml:"max_tokens" toml:"max_tokens"`

	// Timeout bounds a single agent call. Zero disables the agent timeout.
	Timeout time.Duration `yaml:"timeout" toml:"timeout"`

	// CircuitBreaker tunes the per-provider circuit breakers.
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker" toml:"circuit_breaker"`
}

// CircuitBreakerConfig mirrors resilience.CircuitBreakerConfig. Zero values
// select the resilience package defaults.
type CircuitBreakerConfig struct {
	MaxFailures  int           `yaml:"max_failures" toml:"max_failures"`
	ResetTimeout time.Duration `yaml:"reset_timeout" toml:"reset_timeout"`
	HalfOpenMax  int           `yaml:"half_open_max" toml:"half_open_max"`
}

// MCPConfig configures the MCP server surface.
type MCPConfig struct {
	// Transport is "streamable-http" (default) or "stdio".
	Transport mcp.Transport `yaml:"transport" toml:"transport"`

	// Path is the HTTP path of the streamable transport.
	Path string `yaml:"path" toml:"path"`

	// Stateless disables MCP session tracking for the HTTP transport.
	Stateless bool `yaml:"stateless" toml:"stateless"`
}

// ApplyDefaults fills zero-valued fields with their defaults.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = DefaultListenAddr
	}
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = LogInfo
	}
	if cfg.Server.LogFormat == "" {
		cfg.Server.LogFormat = LogFormatText
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Function.AuthLevel == "" {
		cfg.Function.AuthLevel = DefaultAuthLevel
	}
	if cfg.Function.RoutePrefix == "" {
		cfg.Function.RoutePrefix = DefaultRoutePrefix
	}
	if cfg.Agent.Name == "" {
		cfg.Agent.Name = DefaultAgentName
	}
	if cfg.MCP.Transport == "" {
		cfg.MCP.Transport = mcp.TransportStreamableHTTP
	}
	if cfg.MCP.Path == "" {
		cfg.MCP.Path = mcp.DefaultPath
	}
}
