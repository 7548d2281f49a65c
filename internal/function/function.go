// Package function contains the functions served by the host. Currently that
// is get_aiagentdata, an MCP tool that forwards a free-form query to the
// default agent and wraps the answer in a fixed greeting.
package function

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/MrWong99/aiagentdata/internal/agent"
	"github.com/MrWong99/aiagentdata/internal/observe"
	"github.com/MrWong99/aiagentdata/internal/trigger"
	"github.com/MrWong99/aiagentdata/pkg/toolprop"
)

const (
	// Name is the function name and the advertised MCP tool name.
	Name = "get_aiagentdata"

	// Description is the advertised tool description.
	Description = "Retrieve data from ai agents."

	// ArgName is the handler parameter receiving the tool context.
	ArgName = "context"

	// QueryProperty is the tool argument carrying the query.
	QueryProperty = "query"

	responseFormat = "Hello, %s. This HTTP triggered function executed successfully."
)

var (
	// ErrMalformedPayload is returned when the payload is not a UTF-8 encoded
	// JSON object.
	ErrMalformedPayload = errors.New("function: malformed context payload")

	// ErrMissingArguments is returned when the payload has no "arguments" key.
	ErrMissingArguments = errors.New("function: missing arguments")

	// ErrInvalidArguments is returned when "arguments" is null or not an object.
	ErrInvalidArguments = errors.New("function: arguments must be an object")

	// ErrInvalidQuery is returned when "arguments.query" is not a string.
	ErrInvalidQuery = errors.New("function: query must be a string")
)

// QueryProperties are the tool properties advertised for get_aiagentdata.
var QueryProperties = []toolprop.ToolProperty{
	toolprop.New(QueryProperty, "string", "Whats the weather in Seattle today?"),
}

// Handler implements get_aiagentdata over an [agent.Agent].
type Handler struct {
	agent agent.Agent
}

// New returns a [Handler] that delegates to a.
func New(a agent.Agent) *Handler {
	return &Handler{agent: a}
}

// Binding returns the trigger binding of get_aiagentdata.
func Binding() trigger.Binding {
	return trigger.Binding{
		Function:       Name,
		ArgName:        ArgName,
		Type:           trigger.TypeMCPTool,
		ToolName:       Name,
		Description:    Description,
		ToolProperties: toolprop.MustMarshalList(QueryProperties...),
	}
}

// Register adds get_aiagentdata, backed by a, to reg.
func Register(reg *trigger.Registry, a agent.Agent) error {
	if err := reg.Register(Binding(), New(a).Handle); err != nil {
		return fmt.Errorf("function: register %s: %w", Name, err)
	}
	return nil
}

// Handle parses the context payload, asks the agent for arguments.query and
// formats the answer. A missing or null query is sent as "".
func (h *Handler) Handle(ctx context.Context, payload []byte) (string, error) {
	query, err := parseQuery(payload)
	if err != nil {
		return "", err
	}

	answer, err := h.agent.Ask(ctx, query)
	if err != nil {
		return "", fmt.Errorf("function: %s: %w", h.agent.Name(), err)
	}

	log := observe.Logger(ctx)
	log.Info("data returned from agent", "agent", h.agent.Name(), "response", answer)
	log.Info("retrieved agent data", "response", answer)
	return fmt.Sprintf(responseFormat, answer), nil
}

func parseQuery(payload []byte) (string, error) {
	// encoding/json would silently replace invalid bytes with U+FFFD.
	if !utf8.Valid(payload) {
		return "", fmt.Errorf("%w: payload is not valid UTF-8", ErrMalformedPayload)
	}
	var content map[string]json.RawMessage
	if err := json.Unmarshal(payload, &content); err != nil || content == nil {
		if err == nil {
			err = errors.New("payload is null")
		}
		return "", fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}

	rawArgs, ok := content["arguments"]
	if !ok {
		return "", ErrMissingArguments
	}
	rawArgs = bytes.TrimSpace(rawArgs)
	if len(rawArgs) == 0 || rawArgs[0] != '{' {
		return "", ErrInvalidArguments
	}

	var args map[string]json.RawMessage
	if err := json.Unmarshal(rawArgs, &args); err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidArguments, err)
	}

	rawQuery, ok := args[QueryProperty]
	if !ok || string(bytes.TrimSpace(rawQuery)) == "null" {
		return "", nil
	}
	var query string
	if err := json.Unmarshal(rawQuery, &query); err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidQuery, err)
	}
	return query, nil
}
