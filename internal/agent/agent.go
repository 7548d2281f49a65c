// Package agent defines the AI agent the query handler delegates to.
//
// An [Agent] is opaque to its callers: one string goes in, one string comes
// out. [Default] is the concrete "ai_default_agent", backed by a single
// [llm.Provider] completion. [Func] adapts a plain function and is mostly
// useful in tests and when embedding the host in another program.
//
// This package lives under internal/ because the agent wiring is private to
// the function host.
package agent

import (
	"context"
	"errors"
)

// DefaultName is the name of the agent the query handler uses when the
// configuration does not override it.
const DefaultName = "ai_default_agent"

// ErrNoProvider is returned by [NewDefault] when no LLM provider is given.
var ErrNoProvider = errors.New("agent: llm provider is required")

// Agent answers a single free-form query.
//
// Implementations must be safe for concurrent use and must honour context
// cancellation.
type Agent interface {
	// Name identifies the agent in logs and metrics.
	Name() string

	// Ask returns the agent's answer to query. The query is passed through
	// unmodified; an empty query is valid.
	Ask(ctx context.Context, query string) (string, error)
}

// Func adapts an ordinary function to the [Agent] interface.
type Func struct {
	// AgentName is returned by [Func.Name]. Empty means [DefaultName].
	AgentName string

	// Fn answers the query.
	Fn func(ctx context.Context, query string) (string, error)
}

var _ Agent = Func{}

// Name implements [Agent].
func (f Func) Name() string {
	if f.AgentName == "" {
		return DefaultName
	}
	return f.AgentName
}

// Ask implements [Agent] by calling Fn.
func (f Func) Ask(ctx context.Context, query string) (string, error) {
	return f.Fn(ctx, query)
}
