package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/MrWong99/aiagentdata/internal/mcp"
)

// Format is a configuration file encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatForPath returns [FormatTOML] for .toml files and [FormatYAML]
// otherwise.
func FormatForPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return FormatTOML
	}
	return FormatYAML
}

// ValidProviderNames lists the LLM provider names the host ships with.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = []string{
	"openai", "anthropic", "gemini", "ollama", "deepseek", "mistral", "groq",
	"llamacpp", "llamafile", "openai-compatible", "azure-openai",
}

// Load reads the configuration file at path and returns a validated [Config]
// with defaults applied. The format is chosen by [FormatForPath].
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	cfg, err := Decode(bytes.NewReader(data), FormatForPath(path))
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults and validates
// the result. Useful in tests where configs are constructed from string
// literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	return Decode(r, FormatYAML)
}

// Decode decodes a config in the given format, applies defaults and
// validates the result.
func Decode(r io.Reader, format Format) (*Config, error) {
	cfg := &Config{}
	switch format {
	case FormatTOML:
		md, err := toml.NewDecoder(r).Decode(cfg)
		if err != nil {
			return nil, fmt.Errorf("config: decode toml: %w", err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			return nil, fmt.Errorf("config: decode toml: unknown keys: %s", strings.Join(keys, ", "))
		}
	case FormatYAML, "":
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("config: decode yaml: %w", err)
		}
	default:
		return nil, fmt.Errorf("config: unsupported format %q", format)
	}

	ApplyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Server.LogFormat != "" && !cfg.Server.LogFormat.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_format %q is invalid; valid values: text, json", cfg.Server.LogFormat))
	}
	if cfg.Server.ShutdownTimeout < 0 {
		errs = append(errs, errors.New("server.shutdown_timeout must not be negative"))
	}
	if tls := cfg.Server.TLS; tls != nil && (tls.CertFile == "" || tls.KeyFile == "") {
		errs = append(errs, errors.New("server.tls requires both cert_file and key_file"))
	}

	// Function
	switch cfg.Function.AuthLevel {
	case "", "anonymous":
	case "function":
		if len(slices.DeleteFunc(slices.Clone(cfg.Function.Keys), func(k string) bool { return k == "" })) == 0 {
			errs = append(errs, errors.New("function.keys must contain at least one key when auth_level is function"))
		}
	default:
		errs = append(errs, fmt.Errorf("function.auth_level %q is invalid; valid values: anonymous, function", cfg.Function.AuthLevel))
	}
	if strings.Contains(strings.Trim(cfg.Function.RoutePrefix, "/"), "/") {
		errs = append(errs, fmt.Errorf("function.route_prefix %q must be a single path segment", cfg.Function.RoutePrefix))
	}

	// Providers
	if cfg.Providers.LLM.Name == "" {
		errs = append(errs, errors.New("providers.llm.name is required"))
	} else {
		errs = append(errs, validateProvider("providers.llm", cfg.Providers.LLM)...)
	}
	for i, fb := range cfg.Providers.LLMFallbacks {
		prefix := fmt.Sprintf("providers.llm_fallbacks[%d]", i)
		if fb.Name == "" {
			errs = append(errs, fmt.Errorf("%s.name is required", prefix))
			continue
		}
		errs = append(errs, validateProvider(prefix, fb)...)
	}

	// Agent
	if cfg.Agent.Temperature < 0 || cfg.Agent.Temperature > 2 {
		errs = append(errs, fmt.Errorf("agent.temperature %.2f is out of range [0, 2]", cfg.Agent.Temperature))
	}
	if cfg.Agent.MaxTokens < 0 {
		errs = append(errs, errors.New("agent.max_tokens must not be negative"))
	}
	if cfg.Agent.Timeout < 0 {
		errs = append(errs, errors.New("agent.timeout must not be negative"))
	}
	cb := cfg.Agent.CircuitBreaker
	if cb.MaxFailures < 0 || cb.ResetTimeout < 0 || cb.HalfOpenMax < 0 {
		errs = append(errs, errors.New("agent.circuit_breaker values must not be negative"))
	}

	// MCP
	if _, err := mcp.ParseTransport(string(cfg.MCP.Transport)); err != nil {
		errs = append(errs, fmt.Errorf("mcp.transport: %w", err))
	}
	if cfg.MCP.Path != "" && !strings.HasPrefix(cfg.MCP.Path, "/") {
		errs = append(errs, fmt.Errorf("mcp.path %q must start with /", cfg.MCP.Path))
	}
	if cfg.MCP.Transport == mcp.TransportStdio && cfg.MCP.Stateless {
		slog.Warn("mcp.stateless has no effect with the stdio transport")
	}

	return errors.Join(errs...)
}

// validateProvider checks provider-specific required fields and logs a
// warning for unknown provider names.
func validateProvider(prefix string, e ProviderEntry) []error {
	var errs []error
	switch e.Name {
	case "openai-compatible":
		if e.BaseURL == "" {
			errs = append(errs, fmt.Errorf("%s.base_url is required for openai-compatible", prefix))
		}
		if e.Model == "" {
			errs = append(errs, fmt.Errorf("%s.model is required for openai-compatible", prefix))
		}
	case "azure-openai":
		if e.BaseURL == "" {
			errs = append(errs, fmt.Errorf("%s.base_url (resource endpoint) is required for azure-openai", prefix))
		}
		if e.APIKey == "" {
			errs = append(errs, fmt.Errorf("%s.api_key is required for azure-openai", prefix))
		}
		if e.Model == "" {
			errs = append(errs, fmt.Errorf("%s.model (deployment name) is required for azure-openai", prefix))
		}
	}
	if !slices.Contains(ValidProviderNames, e.Name) {
		slog.Warn("unknown provider name; may be a typo or a custom registration",
			"field", prefix+".name",
			"name", e.Name,
			"known", ValidProviderNames,
		)
	}
	return errs
}
