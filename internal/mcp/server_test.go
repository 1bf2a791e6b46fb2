package mcp

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/srstomp/ohno/internal/core"
	"github.com/srstomp/ohno/internal/observability"
	"github.com/srstomp/ohno/internal/storage"
	"github.com/srstomp/ohno/pkg/models"
)

func newTestServer(t *testing.T) (*Server, storage.TaskStoreManager) {
	t.Helper()
	dir := t.TempDir()

	tasks := storage.NewTaskStoreManager(dir, nil)
	graph := core.NewDependencyGraph(tasks, storage.NewEdgeStoreManager(dir))
	hooks := core.NewHookRunner(models.HookTable{}, noopExecutor{}, time.Minute)
	ids := core.NewTaskIDGenerator(dir, "TASK", 5)
	spikes := core.NewSpikeTimer(tasks, ids, 4)
	sessions := core.NewSessionManager(storage.NewSessionStoreManager(dir), tasks)
	driver := core.NewDriver(tasks, graph, hooks, spikes, sessions, nil)
	alerts := observability.NewAlertEngine(tasks, observability.DefaultAlertThresholds())

	return NewServer(driver, tasks, ids, graph, sessions, alerts, "test"), tasks
}

type noopExecutor struct{}

func (noopExecutor) Execute(_ context.Context, spec models.ActionSpec, _ core.HookContext) models.ActionResult {
	return models.ActionResult{Action: spec.Name, Status: "success"}
}

func seedServerTask(t *testing.T, tasks storage.TaskStoreManager, id string) {
	t.Helper()
	if _, _, err := tasks.Create(models.Task{
		ID:       id,
		Title:    "Task " + id,
		Type:     models.TaskTypeFeature,
		Priority: models.P2,
	}); err != nil {
		t.Fatalf("seeding %s: %v", id, err)
	}
}

func TestNewServer(t *testing.T) {
	server, _ := newTestServer(t)
	if server.MCPServer() == nil {
		t.Fatal("expected underlying MCP server")
	}
}

func TestHandleGetTask(t *testing.T) {
	server, tasks := newTestServer(t)
	seedServerTask(t, tasks, "TASK-00001")

	result, out, err := server.handleGetTask(context.Background(), nil, getTaskInput{TaskID: "TASK-00001"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != nil {
		t.Fatalf("expected no error result, got %+v", result)
	}
	if out.ID != "TASK-00001" || out.Status != "pending" {
		t.Fatalf("unexpected output: %+v", out)
	}
}

func TestHandleGetTask_NotFoundHasHint(t *testing.T) {
	server, _ := newTestServer(t)

	result, _, err := server.handleGetTask(context.Background(), nil, getTaskInput{TaskID: "TASK-99999"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result == nil || !result.IsError {
		t.Fatal("expected an error result")
	}
}

func TestHandleStartAndCompleteTask(t *testing.T) {
	server, tasks := newTestServer(t)
	seedServerTask(t, tasks, "TASK-00001")

	result, started, err := server.handleStartTask(context.Background(), nil, startTaskInput{TaskID: "TASK-00001"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != nil {
		t.Fatalf("expected no error result, got %+v", result)
	}
	if started.Task.Status != "in_progress" {
		t.Fatalf("expected in_progress, got %s", started.Task.Status)
	}

	result, completed, err := server.handleCompleteTask(context.Background(), nil, completeTaskInput{TaskID: "TASK-00001", Note: "done"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != nil {
		t.Fatalf("expected no error result, got %+v", result)
	}
	if completed.Task.Status != "done" {
		t.Fatalf("expected done, got %s", completed.Task.Status)
	}
	// No session active: the driver defaults to supervised and pauses.
	if !completed.Pause {
		t.Fatal("expected pause in default supervised mode")
	}
}

func TestHandleCreateTask(t *testing.T) {
	server, _ := newTestServer(t)

	result, out, err := server.handleCreateTask(context.Background(), nil, createTaskInput{Title: "Build parser"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != nil {
		t.Fatalf("expected no error result, got %+v", result)
	}
	if out.Task.ID != "TASK-00001" {
		t.Fatalf("expected generated ID TASK-00001, got %s", out.Task.ID)
	}
	if out.Task.Type != "feature" || out.Task.Priority != "P2" || out.Task.Status != "pending" {
		t.Fatalf("expected defaults applied, got %+v", out.Task)
	}
}

func TestHandleCreateTask_WithDependency(t *testing.T) {
	server, tasks := newTestServer(t)
	seedServerTask(t, tasks, "TASK-00099")

	result, out, err := server.handleCreateTask(context.Background(), nil, createTaskInput{
		Title:     "Follow-up work",
		Priority:  "P1",
		DependsOn: "TASK-00099",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != nil {
		t.Fatalf("expected no error result, got %+v", result)
	}

	// The new task must not surface as ready while its dependency is open.
	_, next, err := server.handleNextTask(context.Background(), nil, nextTaskInput{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if next.Task == nil || next.Task.ID == out.Task.ID {
		t.Fatalf("expected dependency to gate %s, got %+v", out.Task.ID, next.Task)
	}
}

func TestHandleCreateTask_InvalidType(t *testing.T) {
	server, _ := newTestServer(t)

	result, _, err := server.handleCreateTask(context.Background(), nil, createTaskInput{Title: "x", Type: "epic"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result == nil || !result.IsError {
		t.Fatal("expected an error result for invalid type")
	}
}

func TestHandleNextTask_Empty(t *testing.T) {
	server, _ := newTestServer(t)

	_, out, err := server.handleNextTask(context.Background(), nil, nextTaskInput{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Task != nil || out.Message == "" {
		t.Fatalf("expected empty-queue message, got %+v", out)
	}
}

func TestHandleConcludeSpike_InvalidDecision(t *testing.T) {
	server, _ := newTestServer(t)

	result, _, err := server.handleConcludeSpike(context.Background(), nil, concludeSpikeInput{TaskID: "TASK-00001", Decision: "MAYBE"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result == nil || !result.IsError {
		t.Fatal("expected an error result for invalid decision")
	}
}

func TestHandleGetSession_NoSession(t *testing.T) {
	server, _ := newTestServer(t)

	_, out, err := server.handleGetSession(context.Background(), nil, getSessionInput{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Message != "no active session" {
		t.Fatalf("expected no-session message, got %+v", out)
	}
}

func TestDescribeErr_AppendsRemediation(t *testing.T) {
	err := &core.AlreadyInProgressError{ActiveTaskID: "TASK-00001", RequestedTaskID: "TASK-00002"}

	msg := describeErr(err)
	if !strings.Contains(msg, "complete or block TASK-00001") {
		t.Fatalf("expected remediation hint appended, got %q", msg)
	}
}
