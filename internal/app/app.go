// Package app wires all aiagentdata subsystems into a running function host.
//
// The App struct owns the full lifecycle: New builds the provider failover
// chain, the default agent, the trigger registry and the hosting surfaces;
// Run serves HTTP (and optionally MCP over stdio) until the context is
// cancelled; Shutdown drains and stops everything.
//
// For testing, inject doubles via functional options (WithAgent,
// WithMetrics). When an option is not provided, New builds real
// implementations from the config and the given providers.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/aiagentdata/internal/agent"
	"github.com/MrWong99/aiagentdata/internal/config"
	"github.com/MrWong99/aiagentdata/internal/function"
	"github.com/MrWong99/aiagentdata/internal/health"
	"github.com/MrWong99/aiagentdata/internal/httptrigger"
	"github.com/MrWong99/aiagentdata/internal/mcp"
	"github.com/MrWong99/aiagentdata/internal/mcp/mcpserver"
	"github.com/MrWong99/aiagentdata/internal/observe"
	"github.com/MrWong99/aiagentdata/internal/resilience"
	"github.com/MrWong99/aiagentdata/internal/trigger"
	"github.com/MrWong99/aiagentdata/pkg/provider/llm"
)

// ErrNoLLM is returned by [New] when neither an agent nor an LLM provider is
// available.
var ErrNoLLM = errors.New("app: no llm provider configured")

// NamedLLM is an LLM provider together with its configured name.
type NamedLLM struct {
	Name     string
	Provider llm.Provider
}

// Providers holds the instantiated LLM providers. Populated by main.go via
// the config registry.
type Providers struct {
	// LLM is the primary provider.
	LLM NamedLLM

	// Fallbacks are tried in order when the primary fails.
	Fallbacks []NamedLLM
}

// App owns all subsystem lifetimes of the function host.
type App struct {
	cfg       *config.Config
	providers *Providers
	version   string

	metrics   *observe.Metrics
	telemetry *observe.Telemetry
	logLevel  *slog.LevelVar

	// Subsystems, initialised in New.
	llm      *resilience.LLMFallback
	agent    agent.Agent
	settable *agent.Default
	registry *trigger.Registry
	mcp      *mcpserver.Server
	health   *health.Handler
	handler  http.Handler

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
	ready    chan struct{}

	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithAgent injects an agent instead of building the default agent from the
// providers.
func WithAgent(a agent.Agent) Option {
	return func(app *App) { app.agent = a }
}

// WithMetrics sets the metrics sink. Defaults to [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(app *App) { app.metrics = m }
}

// WithTelemetry enables GET /metrics served from t.
func WithTelemetry(t *observe.Telemetry) Option {
	return func(app *App) { app.telemetry = t }
}

// WithLogLevel lets [App.Reload] change the log level at runtime.
func WithLogLevel(lv *slog.LevelVar) Option {
	return func(app *App) { app.logLevel = lv }
}

// WithVersion sets the version reported to MCP clients.
func WithVersion(v string) Option {
	return func(app *App) { app.version = v }
}

// ─── New ─────────────────────────────────────────────────────────────────────

// New creates an App by wiring all subsystems together. cfg must have
// defaults applied (see [config.ApplyDefaults]).
func New(ctx context.Context, cfg *config.Config, providers *Providers, opts ...Option) (*App, error) {
	a := &App{
		cfg:       cfg,
		providers: providers,
		version:   "dev",
		ready:     make(chan struct{}),
	}
	for _, o := range opts {
		o(a)
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}

	// ── 1. Agent ─────────────────────────────────────────────────────────
	if err := a.initAgent(); err != nil {
		return nil, fmt.Errorf("app: init agent: %w", err)
	}

	// ── 2. Functions ─────────────────────────────────────────────────────
	a.registry = trigger.NewRegistry(trigger.WithMetrics(a.metrics))
	if err := function.Register(a.registry, a.agent); err != nil {
		return nil, fmt.Errorf("app: register functions: %w", err)
	}

	// ── 3. MCP server ────────────────────────────────────────────────────
	srv, err := mcpserver.New(a.registry, mcpserver.WithImplementation("aiagentdata", a.version))
	if err != nil {
		return nil, fmt.Errorf("app: init mcp: %w", err)
	}
	a.mcp = srv

	// ── 4. HTTP surface ──────────────────────────────────────────────────
	if err := a.initHTTP(); err != nil {
		return nil, fmt.Errorf("app: init http: %w", err)
	}

	slog.InfoContext(ctx, "function host initialised",
		"agent", a.agent.Name(),
		"functions", a.registry.Len(),
		"mcp_tools", a.mcp.Tools(),
		"mcp_transport", a.cfg.MCP.Transport,
	)
	return a, nil
}

// ─── Init helpers ────────────────────────────────────────────────────────────

// initAgent builds the failover chain and the default agent unless an agent
// was injected.
func (a *App) initAgent() error {
	if a.agent != nil {
		return nil
	}
	if a.providers == nil || a.providers.LLM.Provider == nil {
		return ErrNoLLM
	}

	cb := a.cfg.Agent.CircuitBreaker
	fbCfg := resilience.FallbackConfig{CircuitBreaker: resilience.CircuitBreakerConfig{
		MaxFailures:  cb.MaxFailures,
		ResetTimeout: cb.ResetTimeout,
		HalfOpenMax:  cb.HalfOpenMax,
	}}
	a.llm = resilience.NewLLMFallback(a.providers.LLM.Provider, a.providers.LLM.Name, fbCfg, a.metrics)
	for _, fb := range a.providers.Fallbacks {
		if fb.Provider == nil {
			continue
		}
		a.llm.AddFallback(fb.Name, fb.Provider)
	}

	d, err := agent.NewDefault(a.llm,
		agent.WithName(a.cfg.Agent.Name),
		agent.WithSettings(agentSettings(a.cfg.Agent)),
		agent.WithMetrics(a.metrics),
	)
	if err != nil {
		return err
	}
	a.agent = d
	a.settable = d
	slog.Info("default agent ready", "agent", d.Name(), "providers", a.llm.Providers())
	return nil
}

// initHTTP assembles the HTTP routes and middleware.
func (a *App) initHTTP() error {
	level, err := httptrigger.ParseAuthLevel(a.cfg.Function.AuthLevel)
	if err != nil {
		return err
	}

	checkers := []health.Checker{{
		Name: "functions",
		Check: func(context.Context) error {
			if a.registry.Len() == 0 {
				return errors.New("no functions registered")
			}
			return nil
		},
	}}
	if a.llm != nil {
		checkers = append(checkers, health.Checker{
			Name:  "agent",
			Check: func(context.Context) error { return a.llm.Healthy() },
		})
	}
	a.health = health.New(checkers...)

	mux := http.NewServeMux()
	a.health.Register(mux)
	httptrigger.New(a.registry,
		httptrigger.WithRoutePrefix(a.cfg.Function.RoutePrefix),
		httptrigger.WithAuth(level, a.cfg.Function.Keys...),
	).Register(mux)
	if a.cfg.MCP.Transport == mcp.TransportStreamableHTTP {
		mux.Handle(a.cfg.MCP.Path, a.mcp.Handler(a.cfg.MCP.Stateless))
	}
	if a.telemetry != nil {
		mux.Handle("GET /metrics", a.telemetry.MetricsHandler())
	}

	a.handler = observe.Middleware(a.metrics)(mux)
	return nil
}

func agentSettings(c config.AgentConfig) agent.Settings {
	return agent.Settings{
		SystemPrompt: c.SystemPrompt,
		Temperature:  c.Temperature,
		MaxTokens:    c.MaxTokens,
		Timeout:      c.Timeout,
	}
}

// ─── Accessors ───────────────────────────────────────────────────────────────

// Handler returns the root HTTP handler.
func (a *App) Handler() http.Handler { return a.handler }

// Registry returns the trigger registry.
func (a *App) Registry() *trigger.Registry { return a.registry }

// Agent returns the agent the functions delegate to.
func (a *App) Agent() agent.Agent { return a.agent }

// Ready is closed once the HTTP listener accepts connections.
func (a *App) Ready() <-chan struct{} { return a.ready }

// Addr returns the bound listener address, or nil before [App.Ready].
func (a *App) Addr() net.Addr {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.listener == nil {
		return nil
	}
	return a.listener.Addr()
}

// ─── Run ─────────────────────────────────────────────────────────────────────

// Run serves HTTP on cfg.Server.ListenAddr, and MCP over stdio when that
// transport is configured, until ctx is cancelled or the stdio client closes
// stdin. It then shuts down gracefully within cfg.Server.ShutdownTimeout.
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.cfg.Server.ListenAddr)
	if err != nil {
		return fmt.Errorf("app: listen %q: %w", a.cfg.Server.ListenAddr, err)
	}
	srv := &http.Server{
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	a.mu.Lock()
	a.server = srv
	a.listener = ln
	a.mu.Unlock()
	close(a.ready)

	runCtx, stop := context.WithCancel(ctx)
	defer stop()
	g, gctx := errgroup.WithContext(runCtx)

	g.Go(func() error {
		slog.Info("http server listening", "addr", ln.Addr().String(), "tls", a.cfg.Server.TLS != nil)
		var err error
		if tls := a.cfg.Server.TLS; tls != nil {
			err = srv.ServeTLS(ln, tls.CertFile, tls.KeyFile)
		} else {
			err = srv.Serve(ln)
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("app: serve: %w", err)
	})

	if a.cfg.MCP.Transport == mcp.TransportStdio {
		g.Go(func() error {
			// The host lives as long as its stdio client.
			defer stop()
			slog.Info("mcp server serving on stdio")
			err := a.mcp.RunStdio(gctx)
			if err == nil && ctx.Err() == nil {
				slog.Info("mcp stdio client disconnected")
			}
			return err
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
		defer cancel()
		return a.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// ─── Reload ──────────────────────────────────────────────────────────────────

// Reload applies the live-reloadable parts of next: log level and agent
// settings. Changes that need a restart are logged.
func (a *App) Reload(ctx context.Context, next *config.Config) {
	d := config.Diff(a.cfg, next)
	if d.Empty() {
		return
	}

	if d.LogLevelChanged && a.logLevel != nil {
		a.logLevel.Set(d.NewLogLevel.Level())
		slog.InfoContext(ctx, "log level changed", "level", d.NewLogLevel)
	}
	if d.AgentChanged {
		if a.settable != nil {
			a.settable.Update(agentSettings(next.Agent))
			slog.InfoContext(ctx, "agent settings updated", "agent", a.settable.Name())
		} else {
			slog.WarnContext(ctx, "agent settings changed but the agent does not support live updates")
		}
	}
	if len(d.RestartRequired) > 0 {
		slog.WarnContext(ctx, "config changes require a restart", "sections", d.RestartRequired)
	}

	a.cfg.Server.LogLevel = next.Server.LogLevel
	a.cfg.Agent.SystemPrompt = next.Agent.SystemPrompt
	a.cfg.Agent.Temperature = next.Agent.Temperature
	a.cfg.Agent.MaxTokens = next.Agent.MaxTokens
	a.cfg.Agent.Timeout = next.Agent.Timeout
	a.metrics.RecordConfigReload(ctx, observe.StatusOK)
}

// ─── Shutdown ────────────────────────────────────────────────────────────────

// Shutdown marks the host as draining and stops the HTTP server, waiting for
// in-flight invocations until ctx expires. It is safe to call more than once.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down")
		a.health.SetDraining()

		a.mu.Lock()
		srv := a.server
		a.mu.Unlock()
		if srv != nil {
			if err := srv.Shutdown(ctx); err != nil {
				slog.Warn("http shutdown error", "err", err)
				shutdownErr = err
			}
		}
		slog.Info("shutdown complete")
	})
	return shutdownErr
}
