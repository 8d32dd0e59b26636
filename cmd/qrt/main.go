// Command qrt is the host binary for the QRT scripting language: it loads
// a .qrt source file, feeds it to the evaluator, and renders the result or
// error envelope to the terminal.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/qrtlang/qrt/internal/config"
	"github.com/qrtlang/qrt/internal/display"
	"github.com/qrtlang/qrt/internal/evaluator"
	"github.com/qrtlang/qrt/internal/hotreload"
	"github.com/qrtlang/qrt/internal/linecache"
	"github.com/qrtlang/qrt/internal/obslog"
	"github.com/qrtlang/qrt/internal/obsmetrics"
	"github.com/qrtlang/qrt/internal/obstracing"
	"github.com/qrtlang/qrt/internal/replloop"
	"github.com/qrtlang/qrt/internal/tracestore"
	"github.com/qrtlang/qrt/internal/value"
	"github.com/qrtlang/qrt/internal/wsrepl"
)

const version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:     "qrt",
		Short:   "QRT is a small embeddable stack-based scripting language",
		Version: version,
	}
	rootCmd.SetVersionTemplate("qrt v{{.Version}}\n")

	runCmd := &cobra.Command{
		Use:   "run <file>",
		Short: "Run a .qrt source file",
		Args:  cobra.ExactArgs(1),
		RunE:  runRun,
	}
	runCmd.Flags().IntP("debug", "d", 0, "Debug level 0-3 (bit0=stack, bit1=variable table) printed on error")
	runCmd.Flags().BoolP("watch", "w", false, "Re-run the file whenever it changes on disk")
	runCmd.Flags().StringP("config", "c", "", "Path to a qrt.yaml configuration file (enables trace-store recording)")

	replCmd := &cobra.Command{
		Use:   "repl",
		Short: "Start an interactive QRT REPL",
		RunE:  runRepl,
	}
	replCmd.Flags().IntP("debug", "d", 0, "Debug level 0-3 printed on error")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a websocket REPL and metrics over HTTP",
		RunE:  runServe,
	}
	serveCmd.Flags().StringP("config", "c", "", "Path to a qrt.yaml configuration file")
	serveCmd.Flags().Int("port", 0, "Override the listen port from the config file")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("qrt v%s\n", version)
		},
	}

	rootCmd.AddCommand(runCmd, replCmd, serveCmd, versionCmd)

	if err := rootCmd.Execute(); err != nil {
		display.PrintWarning(os.Stderr, "%v", err)
		os.Exit(1)
	}
}

// resolveSourcePath appends the .qrt suffix when the caller passed only a
// basename, matching the CLI's documented argument convention.
func resolveSourcePath(arg string) string {
	if filepath.Ext(arg) == ".qrt" {
		return arg
	}
	return arg + ".qrt"
}

func runRun(cmd *cobra.Command, args []string) error {
	debugLevel, _ := cmd.Flags().GetInt("debug")
	watch, _ := cmd.Flags().GetBool("watch")
	configPath, _ := cmd.Flags().GetString("config")
	path := resolveSourcePath(args[0])

	logger := obslog.New(obslog.Config{MinLevel: obslog.Warn})
	defer logger.Close()

	var store tracestore.Store
	var cache *linecache.Cache
	if configPath != "" {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		tracingProvider, err := obstracing.Init(obstracing.Config{
			Enabled:      cfg.Tracing.Enabled,
			ExporterType: cfg.Tracing.Exporter,
			OTLPEndpoint: cfg.Tracing.OTLPEndpoint,
			SamplingRate: cfg.Tracing.SamplingRate,
		})
		if err != nil {
			return err
		}
		defer tracingProvider.Shutdown(context.Background())
		if cfg.TraceStore.Enabled {
			store, err = tracestore.Open(cfg.TraceStore.DSN)
			if err != nil {
				return err
			}
			if err := store.Connect(context.Background()); err != nil {
				return err
			}
			defer store.Close()
		}
		if cfg.LineCache.Enabled {
			cache, err = linecache.New(context.Background(), linecache.Config{Address: cfg.LineCache.Address})
			if err != nil {
				return err
			}
			defer cache.Close()
		}
	}

	metrics := obsmetrics.New(obsmetrics.DefaultConfig())

	execute := func() {
		if err := evaluateFile(path, debugLevel, logger, store, cache, metrics); err != nil {
			display.PrintWarning(os.Stderr, "%v", err)
		}
	}

	execute()
	if !watch {
		return nil
	}

	display.PrintInfo(os.Stdout, "watching %s for changes", path)
	return hotreload.Watch(path, execute, func(err error) {
		display.PrintWarning(os.Stderr, "%v", err)
	})
}

func evaluateFile(path string, debugLevel int, logger *obslog.Logger, store tracestore.Store, cache *linecache.Cache, metrics *obsmetrics.Metrics) error {
	program, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("cannot read %s: %w", path, err)
	}

	runID := obslog.NewRunID()
	started := time.Now()

	ctx, span := obstracing.StartEvaluation(context.Background(), runID, len(program))
	defer span.End()
	spans := obstracing.NewSpanStack(ctx)
	hooks := evaluator.Hooks{
		OnInvokeStart: func(offset int) { spans.Push(offset) },
		OnInvokeEnd:   func(offset int, failed bool) { spans.Pop(failed) },
	}

	result, stats, evalErr := evaluator.EvaluateWithHooks(program, value.Void{}, hooks)
	elapsedMS := time.Since(started).Milliseconds()
	metrics.ObserveStats(stats.LoopKills, stats.Invocations, stats.MaxStackDepth)

	if evalErr != nil {
		obstracing.RecordFailure(span, evalErr.Message, evalErr.Offset, evalErr.Line)
		metrics.ObserveEvaluation(float64(elapsedMS)/1000, evalErr.Message)
		logger.Warn(runID, "evaluation failed", map[string]interface{}{
			"offset": evalErr.Offset, "line": evalErr.Line,
		})
		recordRun(store, logger, tracestore.Run{
			ID: uuid.NewString(), RunID: runID, StartedAt: started,
			DurationMS: elapsedMS, ProgramLen: len(program),
			Outcome: "error", ErrorKind: evalErr.Message,
			Offset: evalErr.Offset, Line: evalErr.Line,
		})
		display.PrintErrorCached(context.Background(), os.Stdout, evalErr, debugLevel, program, cache)
		return nil
	}

	metrics.ObserveEvaluation(float64(elapsedMS)/1000, "")
	logger.Info(runID, "evaluation succeeded", nil)
	logger.Debug(runID, "evaluation stats", map[string]interface{}{
		"loop_kills": stats.LoopKills, "invocations": stats.Invocations, "max_stack_depth": stats.MaxStackDepth,
	})
	recordRun(store, logger, tracestore.Run{
		ID: uuid.NewString(), RunID: runID, StartedAt: started,
		DurationMS: elapsedMS, ProgramLen: len(program), Outcome: "ok",
	})
	display.PrintSuccess(os.Stdout, value.Render(result))
	return nil
}

// recordRun persists run to store when one is configured. Persistence
// failures are logged, not surfaced — a trace-store outage must never fail
// the evaluation it's merely recording.
func recordRun(store tracestore.Store, logger *obslog.Logger, run tracestore.Run) {
	if store == nil {
		return
	}
	if err := store.RecordRun(context.Background(), run); err != nil {
		logger.Warn(run.RunID, "trace store record failed", map[string]interface{}{"error": err.Error()})
	}
}

func runRepl(cmd *cobra.Command, args []string) error {
	debugLevel, _ := cmd.Flags().GetInt("debug")
	r := replloop.New(os.Stdin, os.Stdout, debugLevel)
	return r.Start()
}

func runServe(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	portOverride, _ := cmd.Flags().GetInt("port")

	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if portOverride != 0 {
		cfg.Port = portOverride
	}

	logger := obslog.New(obslog.Config{MinLevel: levelFromString(cfg.Logging.Level)})
	defer logger.Close()

	metrics := obsmetrics.New(obsmetrics.DefaultConfig())

	tracingProvider, err := obstracing.Init(obstracing.Config{
		Enabled:      cfg.Tracing.Enabled,
		ExporterType: cfg.Tracing.Exporter,
		OTLPEndpoint: cfg.Tracing.OTLPEndpoint,
		SamplingRate: cfg.Tracing.SamplingRate,
	})
	if err != nil {
		return err
	}
	defer tracingProvider.Shutdown(context.Background())

	var store tracestore.Store
	if cfg.TraceStore.Enabled {
		store, err = tracestore.Open(cfg.TraceStore.DSN)
		if err != nil {
			return err
		}
		if err := store.Connect(context.Background()); err != nil {
			return err
		}
		defer store.Close()
	}

	mux := http.NewServeMux()
	mux.Handle("/ws", wsrepl.New(logger, metrics, store))
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "{\"session\":%q,\"status\":\"ok\"}", uuid.NewString())
	})

	addr := ":" + strconv.Itoa(cfg.Port)
	display.PrintInfo(os.Stdout, "qrt serve listening on %s (ws /ws, metrics /metrics)", addr)

	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
	logger.Info("serve", "starting HTTP listener", map[string]interface{}{"addr": addr})
	if store != nil {
		logger.Info("serve", "trace store connected", map[string]interface{}{"dsn": cfg.TraceStore.DSN})
	}
	return srv.ListenAndServe()
}

func levelFromString(s string) obslog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return obslog.Debug
	case "warn":
		return obslog.Warn
	case "error":
		return obslog.Error
	default:
		return obslog.Info
	}
}
