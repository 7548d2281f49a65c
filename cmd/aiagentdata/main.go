// Command aiagentdata is the function host serving get_aiagentdata as an MCP
// tool and as an HTTP-triggered function.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MrWong99/aiagentdata/internal/agent"
	"github.com/MrWong99/aiagentdata/internal/app"
	"github.com/MrWong99/aiagentdata/internal/config"
	"github.com/MrWong99/aiagentdata/internal/function"
	"github.com/MrWong99/aiagentdata/internal/observe"
	"github.com/MrWong99/aiagentdata/internal/trigger"
)

// version is overridden at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	fs := flag.NewFlagSet("aiagentdata", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "config.yaml", "path to the YAML or TOML configuration file")
	describe := fs.Bool("describe", false, "print the function manifest as JSON and exit")
	watch := fs.Bool("watch", false, "reload live settings when the configuration file changes")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *describe {
		return printManifest(stdout, stderr)
	}

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(stderr, "aiagentdata: config file %q not found; copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(stderr, "aiagentdata: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	var level slog.LevelVar
	level.Set(cfg.Server.LogLevel.Level())
	slog.SetDefault(newLogger(stderr, cfg.Server.LogFormat, &level))

	slog.Info("aiagentdata starting",
		"version", version,
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	tel, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceVersion: version})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()
	metrics, err := observe.NewMetrics(tel.MeterProvider)
	if err != nil {
		slog.Error("failed to create metrics", "err", err)
		return 1
	}

	// ── Providers ─────────────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	providers, err := buildProviders(cfg, reg)
	if err != nil {
		slog.Error("failed to build providers", "err", err)
		return 1
	}

	printStartupSummary(stderr, cfg)

	application, err := app.New(ctx, cfg, providers,
		app.WithMetrics(metrics),
		app.WithTelemetry(tel),
		app.WithLogLevel(&level),
		app.WithVersion(version),
	)
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}

	// ── Config watcher (optional) ─────────────────────────────────────────────
	if *watch {
		w, err := config.NewWatcher(*configPath,
			func(_, next *config.Config) { application.Reload(ctx, next) },
			config.WithErrorHandler(func(error) {
				metrics.RecordConfigReload(ctx, observe.StatusError)
			}),
		)
		if err != nil {
			slog.Error("failed to start config watcher", "err", err)
			return 1
		}
		defer w.Stop()
		slog.Info("watching configuration for changes", "path", *configPath)
	}

	slog.Info("server ready; press Ctrl+C to shut down")

	if err := application.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// printManifest writes the function manifest without loading a config. The
// agent is never called.
func printManifest(stdout, stderr io.Writer) int {
	reg := trigger.NewRegistry()
	placeholder := agent.Func{Fn: func(context.Context, string) (string, error) {
		return "", errors.New("describe mode")
	}}
	if err := function.Register(reg, placeholder); err != nil {
		fmt.Fprintf(stderr, "aiagentdata: %v\n", err)
		return 1
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(app.Describe(reg)); err != nil {
		fmt.Fprintf(stderr, "aiagentdata: %v\n", err)
		return 1
	}
	return 0
}

// ── Startup summary ───────────────────────────────────────────────────────────

// printStartupSummary goes to stderr so stdout stays free for the stdio MCP
// transport.
func printStartupSummary(w io.Writer, cfg *config.Config) {
	fmt.Fprintln(w, "╔═══════════════════════════════════════╗")
	fmt.Fprintln(w, "║      aiagentdata - startup summary    ║")
	fmt.Fprintln(w, "╠═══════════════════════════════════════╣")
	printRow(w, "LLM", providerLabel(cfg.Providers.LLM))
	printRow(w, "Fallbacks", fmt.Sprint(len(cfg.Providers.LLMFallbacks)))
	printRow(w, "Agent", cfg.Agent.Name)
	printRow(w, "MCP", string(cfg.MCP.Transport))
	printRow(w, "Auth level", cfg.Function.AuthLevel)
	printRow(w, "Listen addr", cfg.Server.ListenAddr)
	fmt.Fprintln(w, "╚═══════════════════════════════════════╝")
}

func providerLabel(e config.ProviderEntry) string {
	if e.Model == "" {
		return e.Name
	}
	return e.Name + " / " + e.Model
}

func printRow(w io.Writer, key, value string) {
	if value == "" {
		value = "(not configured)"
	}
	if r := []rune(value); len(r) > 19 {
		value = string(r[:16]) + "…"
	}
	fmt.Fprintf(w, "║  %-12s    : %-19s ║\n", key, value)
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func newLogger(w io.Writer, format config.LogFormat, level *slog.LevelVar) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if format == config.LogFormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
