// Package mcpserver exposes the registered mcpToolTrigger functions as tools of
// an MCP server built on the official MCP Go SDK
// (github.com/modelcontextprotocol/go-sdk).
//
// Every tool call is turned into a tool context payload and run through
// [trigger.Registry.Invoke]. A failing function yields a tool result with
// IsError set and a generic message; the detailed error is only logged.
//
// Usage:
//
//	srv, err := mcpserver.New(reg)
//	mux.Handle(mcp.DefaultPath, srv.Handler(false))
//	// or
//	err = srv.RunStdio(ctx)
package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/MrWong99/aiagentdata/internal/observe"
	"github.com/MrWong99/aiagentdata/internal/trigger"
	"github.com/MrWong99/aiagentdata/pkg/toolprop"
)

// ErrNoTools is returned by [New] when the registry holds no MCP tools.
var ErrNoTools = errors.New("mcpserver: no mcpToolTrigger functions registered")

// Server serves the registry's MCP tools.
type Server struct {
	reg     *trigger.Registry
	server  *mcpsdk.Server
	tools   []string
	name    string
	version string
}

// Option configures a [Server].
type Option func(*Server)

// WithImplementation sets the server name and version reported to clients.
func WithImplementation(name, version string) Option {
	return func(s *Server) {
		s.name = name
		s.version = version
	}
}

// New creates a [Server] advertising one tool per mcpToolTrigger binding in
// reg. The tool list is fixed at construction.
func New(reg *trigger.Registry, opts ...Option) (*Server, error) {
	s := &Server{reg: reg, name: "aiagentdata", version: "dev"}
	for _, o := range opts {
		o(s)
	}
	s.server = mcpsdk.NewServer(&mcpsdk.Implementation{Name: s.name, Version: s.version}, nil)

	for _, b := range reg.Bindings() {
		if b.Type != trigger.TypeMCPTool {
			continue
		}
		props, err := b.Properties()
		if err != nil {
			return nil, fmt.Errorf("mcpserver: tool %q: %w", b.ToolName, err)
		}
		s.server.AddTool(&mcpsdk.Tool{
			Name:        b.ToolName,
			Description: b.Description,
			InputSchema: toolprop.InputSchema(props...),
		}, s.callTool)
		s.tools = append(s.tools, b.ToolName)
	}
	if len(s.tools) == 0 {
		return nil, ErrNoTools
	}
	return s, nil
}

// Tools returns the advertised tool names sorted by function name.
func (s *Server) Tools() []string {
	out := make([]string, len(s.tools))
	copy(out, s.tools)
	return out
}

// Serve runs a single MCP session over t until ctx is cancelled or the
// client disconnects. A client disconnect returns nil.
func (s *Server) Serve(ctx context.Context, t mcpsdk.Transport) error {
	return s.server.Run(ctx, t)
}

// Handler returns the Streamable HTTP handler. In stateless mode no session
// is kept between requests.
func (s *Server) Handler(stateless bool) http.Handler {
	return mcpsdk.NewStreamableHTTPHandler(func(*http.Request) *mcpsdk.Server {
		return s.server
	}, &mcpsdk.StreamableHTTPOptions{Stateless: stateless})
}

// RunStdio serves a single client over stdin/stdout until ctx is cancelled
// or the client closes stdin.
func (s *Server) RunStdio(ctx context.Context) error {
	if err := s.Serve(ctx, &mcpsdk.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("mcpserver: stdio: %w", err)
	}
	return nil
}

// callTool resolves the requested tool to its function and invokes it.
func (s *Server) callTool(ctx context.Context, req *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
	if req.Params == nil {
		return nil, errors.New("mcpserver: call without params")
	}
	b, ok := s.reg.LookupTool(req.Params.Name)
	if !ok {
		return nil, fmt.Errorf("mcpserver: unknown tool %q", req.Params.Name)
	}
	payload, err := trigger.NewToolContext(b.ToolName, req.Params.Arguments)
	if err != nil {
		return nil, err
	}

	res, err := s.reg.Invoke(ctx, b.Function, payload)
	if err != nil {
		observe.Logger(ctx).Error("mcp tool call failed",
			slog.String("tool", b.ToolName),
			slog.String("function", b.Function),
			slog.String("invocation_id", res.InvocationID),
			slog.Any("error", err),
		)
		return errorResult(b.Function), nil
	}
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: res.Output}},
	}, nil
}

func errorResult(function string) *mcpsdk.CallToolResult {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: trigger.FailureMessage(function)}},
		IsError: true,
	}
}
