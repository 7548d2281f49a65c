// Package httptrigger serves registered functions over plain HTTP.
//
//   - POST /{prefix}/{function}: runs the function with the request body as
//     its payload and replies with the output as text/plain. The invocation ID
//     is returned in the X-Invocation-Id header.
//   - GET /admin/functions: lists the registered functions and their
//     bindings as JSON.
//
// With [AuthFunction], both routes require one of the configured function
// keys in the x-functions-key header or the code query parameter.
package httptrigger

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/MrWong99/aiagentdata/internal/observe"
	"github.com/MrWong99/aiagentdata/internal/trigger"
)

const (
	// MaxBodyBytes caps the size of an invocation payload.
	MaxBodyBytes = 1 << 20

	// DefaultRoutePrefix is the path prefix of invocation routes.
	DefaultRoutePrefix = "api"

	// InvocationIDHeader carries the invocation ID of a successful call.
	InvocationIDHeader = "X-Invocation-Id"

	keyHeader = "x-functions-key"
	keyQuery  = "code"
)

// AuthLevel controls who may call the HTTP routes.
type AuthLevel string

const (
	// AuthAnonymous allows every caller.
	AuthAnonymous AuthLevel = "anonymous"

	// AuthFunction requires a function key.
	AuthFunction AuthLevel = "function"
)

// ParseAuthLevel converts s to an [AuthLevel]. An empty string selects
// [AuthAnonymous].
func ParseAuthLevel(s string) (AuthLevel, error) {
	switch AuthLevel(s) {
	case "", AuthAnonymous:
		return AuthAnonymous, nil
	case AuthFunction:
		return AuthFunction, nil
	default:
		return "", fmt.Errorf("httptrigger: unknown auth level %q (want %q or %q)", s, AuthAnonymous, AuthFunction)
	}
}

// Handler serves the HTTP trigger routes for a [trigger.Registry].
type Handler struct {
	reg    *trigger.Registry
	prefix string
	level  AuthLevel
	keys   [][]byte
}

// Option configures a [Handler].
type Option func(*Handler)

// WithRoutePrefix sets the invocation route prefix. Defaults to
// [DefaultRoutePrefix].
func WithRoutePrefix(prefix string) Option {
	return func(h *Handler) {
		if p := strings.Trim(prefix, "/"); p != "" {
			h.prefix = p
		}
	}
}

// WithAuth sets the auth level and the accepted function keys.
func WithAuth(level AuthLevel, keys ...string) Option {
	return func(h *Handler) {
		h.level = level
		h.keys = h.keys[:0]
		for _, k := range keys {
			if k != "" {
				h.keys = append(h.keys, []byte(k))
			}
		}
	}
}

// New creates a [Handler] for reg.
func New(reg *trigger.Registry, opts ...Option) *Handler {
	h := &Handler{reg: reg, prefix: DefaultRoutePrefix, level: AuthAnonymous}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Register adds the invocation and admin routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.Handle("POST /"+h.prefix+"/{function}", h.authorize(http.HandlerFunc(h.Invoke)))
	mux.Handle("GET /admin/functions", h.authorize(http.HandlerFunc(h.ListFunctions)))
}

// Invoke runs the function named by the {function} path value.
func (h *Handler) Invoke(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("function")
	log := observe.Logger(r.Context())

	if _, _, ok := h.reg.Lookup(name); !ok {
		http.Error(w, fmt.Sprintf("function %q not found", name), http.StatusNotFound)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}

	res, err := h.reg.Invoke(r.Context(), name, body)
	if err != nil {
		if errors.Is(err, trigger.ErrFunctionNotFound) {
			http.Error(w, fmt.Sprintf("function %q not found", name), http.StatusNotFound)
			return
		}
		log.Error("http trigger invocation failed",
			slog.String("function", name),
			slog.String("invocation_id", res.InvocationID),
			slog.Any("error", err),
		)
		w.Header().Set(InvocationIDHeader, res.InvocationID)
		http.Error(w, trigger.FailureMessage(name), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set(InvocationIDHeader, res.InvocationID)
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, res.Output)
}

// ListFunctions writes the metadata of every registered function.
func (h *Handler) ListFunctions(w http.ResponseWriter, _ *http.Request) {
	bindings := h.reg.Bindings()
	out := make([]trigger.Metadata, 0, len(bindings))
	for _, b := range bindings {
		out = append(out, b.Metadata())
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(out)
}

func (h *Handler) authorize(next http.Handler) http.Handler {
	if h.level != AuthFunction {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(keyHeader)
		if key == "" {
			key = r.URL.Query().Get(keyQuery)
		}
		if !h.validKey(key) {
			observe.Logger(r.Context()).Warn("rejected request without valid function key",
				"path", r.URL.Path)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) validKey(key string) bool {
	if key == "" {
		return false
	}
	ok := false
	for _, k := range h.keys {
		if subtle.ConstantTimeCompare([]byte(key), k) == 1 {
			ok = true
		}
	}
	return ok
}
