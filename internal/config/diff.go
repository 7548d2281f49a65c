package config

import (
	"reflect"
	"slices"
)

// ConfigDiff describes what changed between two configs.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// AgentChanged is true when a live-applicable agent setting (system
	// prompt, temperature, max tokens, timeout) changed.
	AgentChanged bool

	// RestartRequired lists the changed sections that only take effect after
	// a restart, e.g. "server.listen_addr" or "providers".
	RestartRequired []string
}

// Empty reports whether nothing changed.
func (d ConfigDiff) Empty() bool {
	return !d.LogLevelChanged && !d.AgentChanged && len(d.RestartRequired) == 0
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	oa, na := old.Agent, new.Agent
	if oa.SystemPrompt != na.SystemPrompt || oa.Temperature != na.Temperature ||
		oa.MaxTokens != na.MaxTokens || oa.Timeout != na.Timeout {
		d.AgentChanged = true
	}

	restart := func(name string, changed bool) {
		if changed {
			d.RestartRequired = append(d.RestartRequired, name)
		}
	}
	restart("server.listen_addr", old.Server.ListenAddr != new.Server.ListenAddr)
	restart("server.log_format", old.Server.LogFormat != new.Server.LogFormat)
	restart("server.tls", !reflect.DeepEqual(old.Server.TLS, new.Server.TLS))
	restart("server.shutdown_timeout", old.Server.ShutdownTimeout != new.Server.ShutdownTimeout)
	restart("function", !reflect.DeepEqual(old.Function, new.Function))
	restart("providers", !reflect.DeepEqual(old.Providers, new.Providers))
	restart("agent.name", oa.Name != na.Name)
	restart("agent.circuit_breaker", oa.CircuitBreaker != na.CircuitBreaker)
	restart("mcp", old.MCP != new.MCP)

	slices.Sort(d.RestartRequired)
	return d
}
