// Package mcp holds the types shared by the MCP hosting surface.
package mcp

import "fmt"

// Transport selects how the MCP server is reached by clients.
type Transport string

const (
	// TransportStdio serves a single client over stdin/stdout.
	TransportStdio Transport = "stdio"

	// TransportStreamableHTTP serves clients via the MCP Streamable HTTP
	// protocol on the host's HTTP listener.
	TransportStreamableHTTP Transport = "streamable-http"
)

// DefaultPath is the HTTP path the streamable transport is mounted at.
const DefaultPath = "/runtime/webhooks/mcp"

// IsValid reports whether t is a recognised transport.
func (t Transport) IsValid() bool {
	return t == TransportStdio || t == TransportStreamableHTTP
}

// ParseTransport converts s to a [Transport]. An empty string selects
// [TransportStreamableHTTP].
func ParseTransport(s string) (Transport, error) {
	if s == "" {
		return TransportStreamableHTTP, nil
	}
	t := Transport(s)
	if !t.IsValid() {
		return "", fmt.Errorf("mcp: unknown transport %q (want %q or %q)", s, TransportStdio, TransportStreamableHTTP)
	}
	return t, nil
}
