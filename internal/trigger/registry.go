package trigger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/MrWong99/aiagentdata/internal/observe"
)

var (
	// ErrFunctionNotFound is returned by [Registry.Invoke] for unknown functions.
	ErrFunctionNotFound = errors.New("trigger: function not found")

	// ErrDuplicateFunction is returned when a function name is registered twice.
	ErrDuplicateFunction = errors.New("trigger: duplicate function")

	// ErrDuplicateTool is returned when two bindings advertise the same tool name.
	ErrDuplicateTool = errors.New("trigger: duplicate tool name")

	// ErrHandlerPanic is returned by [Registry.Invoke] when a handler panicked.
	ErrHandlerPanic = errors.New("trigger: handler panicked")
)

// Handler runs one invocation of a function. payload is the raw trigger
// payload (for MCP tools, the JSON document built by [NewToolContext]).
type Handler func(ctx context.Context, payload []byte) (string, error)

// Result describes a completed invocation.
type Result struct {
	// InvocationID uniquely identifies the invocation. It is set even when
	// the handler failed.
	InvocationID string

	// Output is the handler's return value. Empty on failure.
	Output string

	// Duration is the handler's wall time.
	Duration time.Duration
}

type entry struct {
	binding Binding
	handler Handler
}

// Registry holds the registered functions. It is safe for concurrent use and
// is normally populated once at start-up.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]entry  // key: function name
	tools   map[string]string // key: tool name, value: function name
	metrics *observe.Metrics
}

// Option configures a [Registry].
type Option func(*Registry)

// WithMetrics sets the metrics sink. Defaults to [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(r *Registry) {
		r.metrics = m
	}
}

// NewRegistry creates an empty [Registry].
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		entries: make(map[string]entry),
		tools:   make(map[string]string),
	}
	for _, o := range opts {
		o(r)
	}
	if r.metrics == nil {
		r.metrics = observe.DefaultMetrics()
	}
	return r
}

// Register validates b and stores it together with h. Function names and
// tool names must be unique within the registry.
func (r *Registry) Register(b Binding, h Handler) error {
	if err := b.Validate(); err != nil {
		return err
	}
	if h == nil {
		return fmt.Errorf("%w: %s: handler is nil", ErrInvalidBinding, b.Function)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[b.Function]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateFunction, b.Function)
	}
	if b.ToolName != "" {
		if owner, exists := r.tools[b.ToolName]; exists {
			return fmt.Errorf("%w: %q already used by %q", ErrDuplicateTool, b.ToolName, owner)
		}
		r.tools[b.ToolName] = b.Function
	}
	r.entries[b.Function] = entry{binding: b, handler: h}
	return nil
}

// Lookup returns the binding and handler registered for function.
func (r *Registry) Lookup(function string) (Binding, Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[function]
	return e.binding, e.handler, ok
}

// LookupTool returns the binding that advertises toolName.
func (r *Registry) LookupTool(toolName string) (Binding, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.tools[toolName]
	if !ok {
		return Binding{}, false
	}
	return r.entries[fn].binding, true
}

// Bindings returns all bindings sorted by function name.
func (r *Registry) Bindings() []Binding {
	r.mu.RLock()
	out := make([]Binding, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.binding)
	}
	r.mu.RUnlock()

	slices.SortFunc(out, func(a, b Binding) int { return strings.Compare(a.Function, b.Function) })
	return out
}

// Len returns the number of registered functions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Invoke runs function with payload. The handler's context carries the
// invocation ID (see [InvocationID]) and a logger scope (see [observe.Logger]).
// A handler panic is recovered and reported as [ErrHandlerPanic].
func (r *Registry) Invoke(ctx context.Context, function string, payload []byte) (Result, error) {
	b, h, ok := r.Lookup(function)
	if !ok {
		r.metrics.RecordInvocation(ctx, function, "", observe.StatusNotFound, 0)
		return Result{}, fmt.Errorf("%w: %q", ErrFunctionNotFound, function)
	}

	id := uuid.NewString()
	ctx = WithInvocationID(ctx, id)
	ctx = observe.WithLogAttrs(ctx,
		slog.String("invocation_id", id),
		slog.String("function", function),
	)
	ctx, span := observe.StartSpan(ctx, "function.invoke "+function)
	defer span.End()
	span.SetAttributes(
		attribute.String("function", function),
		attribute.String("trigger", b.Type),
		attribute.String("invocation_id", id),
	)

	r.metrics.ActiveInvocations.Add(ctx, 1)
	defer r.metrics.ActiveInvocations.Add(ctx, -1)

	log := observe.Logger(ctx)
	log.Debug("invoking function", "trigger", b.Type, "payload_bytes", len(payload))

	start := time.Now()
	out, err := safeCall(ctx, h, payload)
	res := Result{InvocationID: id, Duration: time.Since(start)}

	status := observe.StatusOK
	switch {
	case errors.Is(err, ErrHandlerPanic):
		status = observe.StatusPanic
	case err != nil:
		status = observe.StatusError
	}
	r.metrics.RecordInvocation(ctx, function, b.Type, status, res.Duration)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Debug("function failed", "duration", res.Duration, "error", err)
		return res, err
	}
	res.Output = out
	log.Debug("function completed", "duration", res.Duration)
	return res, nil
}

func safeCall(ctx context.Context, h Handler, payload []byte) (out string, err error) {
	defer func() {
		if v := recover(); v != nil {
			observe.Logger(ctx).Error("function handler panicked",
				"panic", v,
				"stack", string(debug.Stack()))
			out, err = "", fmt.Errorf("%w: %v", ErrHandlerPanic, v)
		}
	}()
	return h(ctx, payload)
}

// FailureMessage is the caller-visible text for a failed invocation of
// function. Hosts log the detailed error instead of returning it.
func FailureMessage(function string) string {
	return "Exception while executing function: " + function
}

type invocationIDKey struct{}

// WithInvocationID returns a copy of ctx carrying id.
func WithInvocationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, invocationIDKey{}, id)
}

// InvocationID returns the invocation ID stored in ctx, or "" outside an
// invocation.
func InvocationID(ctx context.Context) string {
	id, _ := ctx.Value(invocationIDKey{}).(string)
	return id
}
