// Package trigger is the generic trigger mechanism of the function host.
//
// A function is registered as a [Binding] (the trigger metadata: argument
// name, trigger type, tool name, description and tool properties) paired with
// a [Handler]. Hosting surfaces such as the MCP server and the HTTP trigger
// endpoint look functions up in a [Registry] and run them through
// [Registry.Invoke], which assigns an invocation ID, traces, meters and
// contains panics.
package trigger

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/MrWong99/aiagentdata/pkg/toolprop"
)

// TypeMCPTool is the trigger type for functions exposed as MCP tools.
const TypeMCPTool = "mcpToolTrigger"

// ErrInvalidBinding is returned by [Registry.Register] for malformed bindings.
var ErrInvalidBinding = errors.New("trigger: invalid binding")

// Binding is the trigger metadata attached to a function.
type Binding struct {
	// Function is the unique function name.
	Function string `json:"function"`

	// ArgName is the handler parameter that receives the trigger payload
	// (e.g. "context").
	ArgName string `json:"argName"`

	// Type is the trigger type, e.g. [TypeMCPTool].
	Type string `json:"type"`

	// ToolName is the tool name advertised to clients. Required for
	// [TypeMCPTool].
	ToolName string `json:"toolName,omitempty"`

	// Description is the tool description advertised to clients.
	Description string `json:"description,omitempty"`

	// ToolProperties is the JSON array of property descriptors produced by
	// [toolprop.MarshalList].
	ToolProperties string `json:"toolProperties,omitempty"`
}

// Validate checks the binding and returns all problems joined together.
func (b Binding) Validate() error {
	var errs []error
	if b.Function == "" {
		errs = append(errs, fmt.Errorf("%w: function name is required", ErrInvalidBinding))
	}
	if b.ArgName == "" {
		errs = append(errs, fmt.Errorf("%w: %s: argName is required", ErrInvalidBinding, b.Function))
	}
	switch b.Type {
	case "":
		errs = append(errs, fmt.Errorf("%w: %s: type is required", ErrInvalidBinding, b.Function))
	case TypeMCPTool:
		if b.ToolName == "" {
			errs = append(errs, fmt.Errorf("%w: %s: toolName is required for %s", ErrInvalidBinding, b.Function, TypeMCPTool))
		}
		if _, err := b.Properties(); err != nil {
			errs = append(errs, fmt.Errorf("%w: %s: %w", ErrInvalidBinding, b.Function, err))
		}
	}
	return errors.Join(errs...)
}

// Properties decodes ToolProperties. An empty string yields no properties.
func (b Binding) Properties() ([]toolprop.ToolProperty, error) {
	if b.ToolProperties == "" {
		return nil, nil
	}
	return toolprop.ParseList(b.ToolProperties)
}

// ToolContext is the payload handed to an MCP tool handler.
type ToolContext struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// NewToolContext builds the context payload for a call of toolName with the
// raw JSON arguments. Empty or null arguments become {}. Anything else is
// passed through unchanged; the handler decides whether it is acceptable.
func NewToolContext(toolName string, arguments json.RawMessage) ([]byte, error) {
	if len(arguments) == 0 || string(arguments) == "null" {
		arguments = json.RawMessage("{}")
	}
	data, err := json.Marshal(ToolContext{Name: toolName, Arguments: arguments})
	if err != nil {
		return nil, fmt.Errorf("trigger: build tool context: %w", err)
	}
	return data, nil
}

// Metadata describes a registered function the way the admin endpoint lists
// it.
type Metadata struct {
	Name     string            `json:"name"`
	Bindings []BindingMetadata `json:"bindings"`
}

// BindingMetadata is one binding of a function in [Metadata].
type BindingMetadata struct {
	Name           string                  `json:"name"`
	Type           string                  `json:"type"`
	Direction      string                  `json:"direction"`
	ToolName       string                  `json:"toolName,omitempty"`
	Description    string                  `json:"description,omitempty"`
	ToolProperties []toolprop.ToolProperty `json:"toolProperties,omitempty"`
}

// Metadata returns the admin listing entry for b. The binding must be valid.
func (b Binding) Metadata() Metadata {
	props, _ := b.Properties()
	return Metadata{
		Name: b.Function,
		Bindings: []BindingMetadata{{
			Name:           b.ArgName,
			Type:           b.Type,
			Direction:      "in",
			ToolName:       b.ToolName,
			Description:    b.Description,
			ToolProperties: props,
		}},
	}
}
