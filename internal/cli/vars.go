package cli

import (
	"github.com/srstomp/ohno/internal/core"
	"github.com/srstomp/ohno/internal/integration"
	"github.com/srstomp/ohno/internal/observability"
	"github.com/srstomp/ohno/pkg/models"
)

// Package-level dependencies wired by internal.NewApp before Execute runs.
var (
	// BasePath is the project data directory.
	BasePath string

	// Engine holds the wired driver loop.
	Engine *core.Driver

	// Tasks is the task store.
	Tasks core.TaskStore

	// Graph is the dependency graph.
	Graph *core.DependencyGraph

	// Sessions is the session manager.
	Sessions *core.SessionManager

	// IDGen issues sequential task IDs.
	IDGen core.TaskIDGenerator

	// Config is the resolved engine configuration.
	Config *models.EngineConfig

	// BoardExp renders read-only board snapshots.
	BoardExp *integration.BoardExporter

	// AlertEngine evaluates alert conditions. May be nil.
	AlertEngine observability.AlertEngine

	// MetricsCalc derives metrics from the event log. May be nil.
	MetricsCalc observability.MetricsCalculator

	// ReloadStores re-reads the durable stores from disk, letting read-only
	// views pick up writes from a concurrent session.
	ReloadStores func() error

	// ServerVersion is passed to the MCP server implementation info.
	ServerVersion string
)
