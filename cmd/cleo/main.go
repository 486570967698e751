// Command cleo is CLEO's CLI entry point: it wires the store, engines,
// and dispatch registry together, then either serves them over the RPC
// surface or runs a single verb and exits. Grounded on cmd/factory/main.go:
// flag-based parsing, a single slog logger construction, and a
// signal.Notify(SIGINT, SIGTERM)-driven graceful shutdown.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/cleodev/cleo/internal/audit"
	"github.com/cleodev/cleo/internal/config"
	"github.com/cleodev/cleo/internal/dispatch"
	"github.com/cleodev/cleo/internal/lifecycle"
	"github.com/cleodev/cleo/internal/orchestrate"
	"github.com/cleodev/cleo/internal/rpc"
	"github.com/cleodev/cleo/internal/session"
	"github.com/cleodev/cleo/internal/store"
	"github.com/cleodev/cleo/internal/task"
	"github.com/cleodev/cleo/internal/validate"
)

var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

const banner = `
   ____ _     _____ ___
  / ___| |   | ____/ _ \
 | |   | |   |  _|| | | |
 | |___| |___| |__| |_| |
  \____|_____|_____\___/   task graph & RCASD-ICR pipeline
`

func main() {
	var (
		dbPath    = flag.String("db", "", "path to the CLEO sqlite database (overrides config)")
		rpcAddr   = flag.String("rpc-addr", "", "address to serve the dispatch RPC on (overrides config)")
		serveRPC  = flag.Bool("serve", false, "serve the RPC surface instead of running a single verb")
		logLevel  = flag.String("log-level", "", "log level: debug, info, warn, error")
		showVer   = flag.Bool("version", false, "print version information and exit")
	)
	flag.Parse()

	if *showVer {
		fmt.Printf("cleo %s (commit %s, built %s)\n", version, commit, buildTime)
		return
	}

	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintln(os.Stderr, "cleo: resolve working directory:", err)
		os.Exit(1)
	}
	cfg, err := config.Load(cwd, config.Config{DBPath: *dbPath, RPCAddr: *rpcAddr, LogLevel: *logLevel})
	if err != nil {
		fmt.Fprintln(os.Stderr, "cleo: load config:", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}))

	if isatty.IsTerminal(os.Stdout.Fd()) {
		fmt.Println(banner)
	}

	db, err := store.Open(cfg.DBPath)
	if err != nil {
		logger.Error("open store", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if _, err := store.ImportLegacyJSON(context.Background(), db, cfg.ArtifactRoot+"/board.json"); err != nil {
		logger.Warn("legacy import skipped", "error", err)
	}

	auditPersist := store.NewAuditStore(db)
	auditLogger := audit.NewLogger(auditPersist)

	taskStore := store.NewTaskStore(db)
	taskEngine := task.NewEngine(taskStore)
	taskEngine.SetAuditLogger(auditLogger)

	artifacts := lifecycle.NewArtifactStore(cfg.ArtifactRoot)
	decisionPersist := store.NewDecisionStore(db)
	decisions := lifecycle.NewDecisionStore(decisionPersist)
	lifecycleStore := store.NewLifecycleStore(db)
	lifecycleEngine := lifecycle.NewEngine(lifecycleStore, lifecycle.Deps{
		Tasks: taskEngine, Decisions: decisions, Artifacts: artifacts,
	})
	taskDecisionStore := store.NewTaskDecisionStore(db)
	decisions.SetCascade(taskDecisionStore, lifecycleEngine)

	sessionStore := store.NewSessionStore(db)
	sessionEngine := session.NewEngine(sessionStore)

	tagStore := store.NewTagStore(db)
	manifestStore := store.NewManifestStore(db)
	manifestLog := validate.NewManifestLog(manifestStore)
	complianceStore := store.NewComplianceStore(db)
	complianceLog := validate.NewComplianceLog(complianceStore)

	orchestrator := orchestrate.NewOrchestrator(taskEngine)

	registry := dispatch.NewRegistry()
	registerHandlers(registry, taskEngine, lifecycleEngine, decisions, sessionEngine, orchestrator, tagStore, manifestLog, complianceLog)

	accessor := store.NewAccessor(db)
	mw := dispatch.NewMiddleware(accessor, auditLogger, logger)
	schemas := validate.NewSchemaRegistry()
	registerSchemas(schemas)
	dispatcher := dispatch.NewDispatcher(registry, mw, schemas)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go runMaintenanceSweep(ctx, taskEngine, logger)

	if *serveRPC {
		runServer(ctx, dispatcher, cfg.RPCAddr, logger)
		return
	}

	runCLI(ctx, dispatcher, flag.Args(), logger)
}

func runServer(ctx context.Context, d *dispatch.Dispatcher, addr string, logger *slog.Logger) {
	srv := rpc.NewServer(d, logger)
	httpSrv := &http.Server{Addr: addr, Handler: srv}

	go func() {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		httpSrv.Shutdown(shutdownCtx)
	}()

	logger.Info("serving dispatch RPC", "addr", addr)
	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("rpc server exited", "error", err)
		os.Exit(1)
	}
}

// runMaintenanceSweep periodically archives retention-eligible tasks,
// the same registerAgent(type, interval, runFunc) ticker shape the
// teacher's background.go used for worktree pool cleanup, repointed at
// task retention instead of git worktrees.
func runMaintenanceSweep(ctx context.Context, engine *task.Engine, logger *slog.Logger) {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := engine.SweepRetention(ctx, time.Now())
			if err != nil {
				logger.Warn("retention sweep failed", "error", err)
				continue
			}
			if n > 0 {
				logger.Info("retention sweep archived tasks", "count", n)
			}
		}
	}
}

func runCLI(ctx context.Context, d *dispatch.Dispatcher, args []string, logger *slog.Logger) {
	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: cleo <domain> <operation> [key=value ...]")
		os.Exit(2)
	}
	domain, operation := args[0], args[1]
	params := dispatch.Params{}
	for _, kv := range args[2:] {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			params[kv] = true
			continue
		}
		params[k] = v
	}

	kind := dispatch.KindQuery
	if isMutatingVerb(operation) {
		kind = dispatch.KindMutate
	}

	result, err := d.Dispatch(ctx, kind, dispatch.Domain(domain), operation, params, dispatch.RequestContext{AgentID: "cli"})
	code := dispatch.ExitCode(err)
	if err != nil {
		fmt.Fprintln(os.Stderr, "cleo:", err)
		os.Exit(code)
	}
	fmt.Printf("%+v\n", result)
}

func isMutatingVerb(op string) bool {
	switch op {
	case "add", "update", "complete", "cancel", "uncancel", "delete", "archive",
		"start", "stop", "setgate", "advance", "skip", "propose", "accept", "supersede",
		"begin", "suspend", "resume", "end", "link", "tag", "untag", "manifest":
		return true
	default:
		return false
	}
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
