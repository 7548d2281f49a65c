package toolprop

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestToMap_ExactKeysInOrder(t *testing.T) {
	t.Parallel()
	p := New("query", "string", "Whats the weather in Seattle today?")
	m := p.ToMap()

	if m.Len() != 3 {
		t.Fatalf("len = %d, want 3", m.Len())
	}

	want := []struct{ key, value string }{
		{KeyPropertyName, "query"},
		{KeyPropertyType, "string"},
		{KeyDescription, "Whats the weather in Seattle today?"},
	}
	i := 0
	for pair := m.Oldest(); pair != nil; pair = pair.Next() {
		if pair.Key != want[i].key || pair.Value != want[i].value {
			t.Errorf("pair %d = (%q, %q), want (%q, %q)", i, pair.Key, pair.Value, want[i].key, want[i].value)
		}
		i++
	}
}

func TestToMap_ArbitraryStrings(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name, typ, desc string
	}{
		{"", "", ""},
		{"snippetname", "string", "The name of the snippet."},
		{"n with spaces", "not-a-real-type", "unicode ✓ and \"quotes\""},
	}
	for _, tt := range tests {
		m := New(tt.name, tt.typ, tt.desc).ToMap()
		if v, _ := m.Get(KeyPropertyName); v != tt.name {
			t.Errorf("propertyName = %q, want %q", v, tt.name)
		}
		if v, _ := m.Get(KeyPropertyType); v != tt.typ {
			t.Errorf("propertyType = %q, want %q", v, tt.typ)
		}
		if v, _ := m.Get(KeyDescription); v != tt.desc {
			t.Errorf("description = %q, want %q", v, tt.desc)
		}
	}
}

func TestAccessors(t *testing.T) {
	t.Parallel()
	p := New("snippet", "string", "The content of the snippet.")
	if p.Name() != "snippet" || p.Type() != "string" || p.Description() != "The content of the snippet." {
		t.Errorf("accessors = (%q, %q, %q)", p.Name(), p.Type(), p.Description())
	}
}

func TestMarshalJSON_KeyOrder(t *testing.T) {
	t.Parallel()
	data, err := json.Marshal(New("query", "string", "q"))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"propertyName":"query","propertyType":"string","description":"q"}`
	if string(data) != want {
		t.Errorf("got %s, want %s", data, want)
	}
}

func TestMarshalList(t *testing.T) {
	t.Parallel()
	got, err := MarshalList(
		New("snippetname", "string", "The name of the snippet."),
		New("snippet", "string", "The content of the snippet."),
	)
	if err != nil {
		t.Fatalf("MarshalList: %v", err)
	}
	want := `[{"propertyName":"snippetname","propertyType":"string","description":"The name of the snippet."},` +
		`{"propertyName":"snippet","propertyType":"string","description":"The content of the snippet."}]`
	if got != want {
		t.Errorf("got %s\nwant %s", got, want)
	}
}

func TestMarshalList_Empty(t *testing.T) {
	t.Parallel()
	got, err := MarshalList()
	if err != nil {
		t.Fatalf("MarshalList: %v", err)
	}
	if got != "[]" {
		t.Errorf("got %q, want []", got)
	}
}

func TestParseList_RoundTrip(t *testing.T) {
	t.Parallel()
	in := []ToolProperty{
		New("query", "string", "Whats the weather in Seattle today?"),
		New("limit", "integer", "Maximum results."),
	}
	s := MustMarshalList(in...)

	out, err := ParseList(s)
	if err != nil {
		t.Fatalf("ParseList: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("len = %d, want %d", len(out), len(in))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Errorf("[%d] = %+v, want %+v", i, out[i], in[i])
		}
	}
}

func TestParseList_Rejects(t *testing.T) {
	t.Parallel()
	tests := map[string]string{
		"not json":      `nope`,
		"null":          `null`,
		"object":        `{"propertyName":"a"}`,
		"missing key":   `[{"propertyName":"a","propertyType":"string"}]`,
		"extra key":     `[{"propertyName":"a","propertyType":"string","description":"d","required":true}]`,
		"non-string":    `[{"propertyName":"a","propertyType":1,"description":"d"}]`,
		"renamed key":   `[{"name":"a","propertyType":"string","description":"d"}]`,
		"null element":  `[null]`,
		"array element": `[[]]`,
	}
	for name, input := range tests {
		if _, err := ParseList(input); err == nil {
			t.Errorf("%s: expected error for %s", name, input)
		}
	}
}

func TestUnmarshalJSON_WrapsSentinel(t *testing.T) {
	t.Parallel()
	var p ToolProperty
	err := json.Unmarshal([]byte(`{"propertyName":"a"}`), &p)
	if !errors.Is(err, ErrInvalidProperty) {
		t.Errorf("err = %v, want ErrInvalidProperty", err)
	}
}

func TestInputSchema(t *testing.T) {
	t.Parallel()
	s := InputSchema(
		New("query", "string", "The question."),
		New("limit", "integer", "Maximum results."),
	)
	if s.Type != "object" {
		t.Errorf("type = %q, want object", s.Type)
	}
	if len(s.Properties) != 2 {
		t.Fatalf("properties = %d, want 2", len(s.Properties))
	}
	q := s.Properties["query"]
	if q == nil || q.Type != "string" || q.Description != "The question." {
		t.Errorf("query schema = %+v", q)
	}
	if l := s.Properties["limit"]; l == nil || l.Type != "integer" {
		t.Errorf("limit schema = %+v", l)
	}
	if len(s.Required) != 0 {
		t.Errorf("required = %v, want none", s.Required)
	}
}

func TestInputSchema_NoProperties(t *testing.T) {
	t.Parallel()
	s := InputSchema()
	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m["type"] != "object" {
		t.Errorf("type = %v, want object", m["type"])
	}
}
