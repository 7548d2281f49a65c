// Package toolprop describes the input arguments accepted by a registered tool.
//
// A [ToolProperty] is static metadata: a property name, a type tag and a
// human-readable description. Properties are built once at start-up, handed to
// the trigger registry as a JSON array (see [MarshalList]) and turned into the
// JSON Schema that MCP clients see (see [InputSchema]).
//
// The serialized form is an ordered object with exactly three keys:
//
//	{"propertyName": "...", "propertyType": "...", "description": "..."}
package toolprop

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Serialized key names, in output order.
const (
	KeyPropertyName = "propertyName"
	KeyPropertyType = "propertyType"
	KeyDescription  = "description"
)

// ErrInvalidProperty is returned when decoding an object that is not a
// well-formed property descriptor.
var ErrInvalidProperty = errors.New("toolprop: invalid property descriptor")

// ToolProperty is an immutable descriptor of one named tool argument.
// The zero value describes an unnamed, untyped property.
type ToolProperty struct {
	name        string
	typ         string
	description string
}

// New returns a descriptor for the given name, type tag and description.
// No validation is performed.
func New(name, typ, description string) ToolProperty {
	return ToolProperty{name: name, typ: typ, description: description}
}

// Name returns the property name (e.g. "query").
func (p ToolProperty) Name() string { return p.name }

// Type returns the property type tag (e.g. "string").
func (p ToolProperty) Type() string { return p.typ }

// Description returns the human-readable description.
func (p ToolProperty) Description() string { return p.description }

// ToMap converts p into an ordered mapping holding exactly the keys
// propertyName, propertyType and description, in that order.
func (p ToolProperty) ToMap() *orderedmap.OrderedMap[string, string] {
	m := orderedmap.New[string, string](3)
	m.Set(KeyPropertyName, p.name)
	m.Set(KeyPropertyType, p.typ)
	m.Set(KeyDescription, p.description)
	return m
}

// MarshalJSON implements [json.Marshaler] using the key order of [ToolProperty.ToMap].
func (p ToolProperty) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.ToMap())
}

// UnmarshalJSON implements [json.Unmarshaler]. All three keys must be present
// with string values and no other keys are accepted.
func (p *ToolProperty) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidProperty, err)
	}
	if raw == nil {
		return fmt.Errorf("%w: null", ErrInvalidProperty)
	}
	if len(raw) != 3 {
		return fmt.Errorf("%w: want 3 keys, got %d", ErrInvalidProperty, len(raw))
	}

	var out ToolProperty
	for key, dst := range map[string]*string{
		KeyPropertyName: &out.name,
		KeyPropertyType: &out.typ,
		KeyDescription:  &out.description,
	} {
		v, ok := raw[key]
		if !ok {
			return fmt.Errorf("%w: missing key %q", ErrInvalidProperty, key)
		}
		if err := json.Unmarshal(v, dst); err != nil {
			return fmt.Errorf("%w: key %q: %v", ErrInvalidProperty, key, err)
		}
	}
	*p = out
	return nil
}

// MarshalList encodes props as a JSON array of descriptors. The result is the
// toolProperties string carried by a trigger binding. An empty list encodes
// as "[]".
func MarshalList(props ...ToolProperty) (string, error) {
	if props == nil {
		props = []ToolProperty{}
	}
	data, err := json.Marshal(props)
	if err != nil {
		return "", fmt.Errorf("toolprop: marshal list: %w", err)
	}
	return string(data), nil
}

// MustMarshalList is like [MarshalList] but panics on error. It is intended
// for package-level binding declarations.
func MustMarshalList(props ...ToolProperty) string {
	s, err := MarshalList(props...)
	if err != nil {
		panic(err)
	}
	return s
}

// ParseList decodes a JSON array produced by [MarshalList].
func ParseList(s string) ([]ToolProperty, error) {
	var props []ToolProperty
	if err := json.Unmarshal([]byte(s), &props); err != nil {
		return nil, fmt.Errorf("toolprop: parse list: %w", err)
	}
	if props == nil {
		return nil, fmt.Errorf("%w: list is null", ErrInvalidProperty)
	}
	return props, nil
}

// InputSchema builds the object schema advertised for a tool whose arguments
// are described by props. Each descriptor becomes one property whose JSON
// Schema type is the descriptor's type tag. No property is marked required:
// handlers apply their own defaults.
func InputSchema(props ...ToolProperty) *jsonschema.Schema {
	schema := &jsonschema.Schema{
		Type:       "object",
		Properties: make(map[string]*jsonschema.Schema, len(props)),
	}
	for _, p := range props {
		schema.Properties[p.name] = &jsonschema.Schema{
			Type:        p.typ,
			Description: p.description,
		}
	}
	return schema
}
