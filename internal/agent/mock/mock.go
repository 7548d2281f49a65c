// Package mock provides an in-memory implementation of [agent.Agent] for use
// in unit tests.
//
// The mock is safe for concurrent use, records every query and exposes
// exported fields for configuring return values.
//
// Example:
//
//	a := &mock.Agent{Response: "Sunny, 72F"}
//	out, err := a.Ask(ctx, "Seattle weather")
//	// a.Queries() == []string{"Seattle weather"}
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/aiagentdata/internal/agent"
)

var _ agent.Agent = (*Agent)(nil)

// AskCall records the arguments of a single [Agent.Ask] invocation.
type AskCall struct {
	// Ctx is the context passed to Ask.
	Ctx context.Context
	// Query is the query passed to Ask.
	Query string
}

// Agent is a mock implementation of [agent.Agent].
type Agent struct {
	mu sync.Mutex

	// NameResult is returned by [Agent.Name]. Empty means [agent.DefaultName].
	NameResult string

	// Response is returned by [Agent.Ask] when AskFunc is nil.
	Response string

	// Err is returned by [Agent.Ask] when AskFunc is nil.
	Err error

	// AskFunc, when set, overrides Response and Err.
	AskFunc func(ctx context.Context, query string) (string, error)

	// AskCalls records all Ask invocations.
	AskCalls []AskCall
}

// Name implements [agent.Agent].
func (a *Agent) Name() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.NameResult == "" {
		return agent.DefaultName
	}
	return a.NameResult
}

// Ask implements [agent.Agent]. It records the call and returns the
// configured response.
func (a *Agent) Ask(ctx context.Context, query string) (string, error) {
	a.mu.Lock()
	a.AskCalls = append(a.AskCalls, AskCall{Ctx: ctx, Query: query})
	fn, resp, err := a.AskFunc, a.Response, a.Err
	a.mu.Unlock()

	if fn != nil {
		return fn(ctx, query)
	}
	return resp, err
}

// Queries returns the queries of all recorded Ask calls in order.
func (a *Agent) Queries() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, len(a.AskCalls))
	for i, c := range a.AskCalls {
		out[i] = c.Query
	}
	return out
}

// Reset clears all recorded calls.
func (a *Agent) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.AskCalls = nil
}
