// Package internal provides the App struct that wires all components of the
// ohno engine together and initializes the CLI layer.
package internal

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/srstomp/ohno/internal/cli"
	"github.com/srstomp/ohno/internal/core"
	"github.com/srstomp/ohno/internal/integration"
	"github.com/srstomp/ohno/internal/observability"
	"github.com/srstomp/ohno/internal/storage"
	"github.com/srstomp/ohno/pkg/models"
)

// App holds all service dependencies for the ohno engine.
type App struct {
	BasePath string

	// Configuration
	ConfigLoader core.ConfigLoader
	Config       *models.EngineConfig

	// Storage layer
	AuditLog     storage.AuditLog
	TaskStore    storage.TaskStoreManager
	EdgeStore    storage.EdgeStoreManager
	SessionStore storage.SessionStoreManager

	// Core services
	IDGen      core.TaskIDGenerator
	Graph      *core.DependencyGraph
	Hooks      *core.HookRunner
	Spikes     *core.SpikeTimer
	Sessions   *core.SessionManager
	Classifier *core.SkillClassifier
	Driver     *core.Driver

	// Integration services
	Executor core.ActionExecutor
	BoardExp *integration.BoardExporter

	// Observability
	EventLog    observability.EventLog
	AlertEngine observability.AlertEngine
	MetricsCalc observability.MetricsCalculator
}

// NewApp creates and wires all components of the ohno engine. basePath is
// the project data directory, normally the directory containing .ohnorc.
func NewApp(basePath string) (*App, error) {
	app := &App{BasePath: basePath}

	// --- Configuration ---
	app.ConfigLoader = core.NewConfigLoader(basePath)
	cfg, err := app.ConfigLoader.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := app.ConfigLoader.Validate(cfg); err != nil {
		return nil, err
	}
	app.Config = cfg

	// --- Storage layer ---
	auditPath := filepath.Join(basePath, ".ohno_audit.jsonl")
	app.AuditLog, err = storage.NewJSONLAuditLog(auditPath)
	if err != nil {
		// Non-fatal: the task store tolerates a nil audit log.
		app.AuditLog = nil
	}
	app.TaskStore = storage.NewTaskStoreManager(basePath, app.AuditLog)
	_ = app.TaskStore.Load() // Non-fatal: empty store on first use.
	app.EdgeStore = storage.NewEdgeStoreManager(basePath)
	_ = app.EdgeStore.Load()
	app.SessionStore = storage.NewSessionStoreManager(basePath)

	// --- Observability ---
	eventLogPath := filepath.Join(basePath, ".ohno_events.jsonl")
	app.EventLog, err = observability.NewJSONLEventLog(eventLogPath)
	if err != nil {
		// Non-fatal: disable observability if the log can't be created.
		app.EventLog = nil
	}
	thresholds := observability.DefaultAlertThresholds()
	if cfg.BlockedAlertHours > 0 {
		thresholds.BlockedHours = cfg.BlockedAlertHours
	}
	if cfg.MaxPendingAlertCount > 0 {
		thresholds.MaxPendingSize = cfg.MaxPendingAlertCount
	}
	app.AlertEngine = observability.NewAlertEngine(app.TaskStore, thresholds)
	if app.EventLog != nil {
		app.MetricsCalc = observability.NewMetricsCalculator(app.EventLog)
	}

	// --- Core services ---
	app.IDGen = core.NewTaskIDGenerator(basePath, cfg.TaskIDPrefix, cfg.TaskIDPadWidth)
	app.Graph = core.NewDependencyGraph(app.TaskStore, app.EdgeStore)
	app.Spikes = core.NewSpikeTimer(app.TaskStore, app.IDGen, cfg.SpikeDefaultHours)
	app.Sessions = core.NewSessionManager(app.SessionStore, app.TaskStore)
	// Re-adopt the session a previous process left behind, so per-command
	// invocations share one session. Non-fatal: a stale snapshot falls back
	// to no active session, recoverable via an explicit restore.
	_, _ = app.Sessions.Resume()
	app.Classifier = core.NewSkillClassifier(cfg.ClassifierRules)

	// --- Integration services ---
	app.Executor = integration.NewActionExecutor(app.TaskStore, app.Graph, app.Classifier, basePath)
	app.BoardExp = integration.NewBoardExporter(app.TaskStore)

	// --- Hook runner and driver ---
	app.Hooks = core.NewHookRunner(cfg.Hooks, app.Executor, cfg.ActionTimeout)

	var events core.EventLogger
	if app.EventLog != nil {
		events = observability.NewEngineLogger(app.EventLog)
	}
	app.Driver = core.NewDriver(app.TaskStore, app.Graph, app.Hooks, app.Spikes, app.Sessions, events)

	// --- Wire CLI package-level variables ---
	cli.BasePath = basePath
	cli.Engine = app.Driver
	cli.Tasks = app.TaskStore
	cli.Graph = app.Graph
	cli.Sessions = app.Sessions
	cli.IDGen = app.IDGen
	cli.Config = cfg
	cli.BoardExp = app.BoardExp
	cli.AlertEngine = app.AlertEngine
	cli.MetricsCalc = app.MetricsCalc
	cli.ReloadStores = func() error {
		if err := app.TaskStore.Load(); err != nil {
			return err
		}
		return app.EdgeStore.Load()
	}

	return app, nil
}

// Close releases resources held by the App, such as log file handles.
func (a *App) Close() error {
	if a.AuditLog != nil {
		_ = a.AuditLog.Close()
	}
	if a.EventLog != nil {
		return a.EventLog.Close()
	}
	return nil
}

// ResolveBasePath determines the project data directory. It checks the
// OHNO_HOME env var, then walks up from the current directory looking for a
// .ohnorc file, and falls back to the current directory.
func ResolveBasePath() string {
	if home := os.Getenv("OHNO_HOME"); home != "" {
		return home
	}
	dir, err := os.Getwd()
	if err != nil {
		return "."
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, ".ohnorc")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	cwd, _ := os.Getwd()
	return cwd
}
