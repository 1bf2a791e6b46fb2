// Package mcp provides an MCP (Model Context Protocol) server that exposes
// the ohno engine as MCP tools for AI coding assistants.
package mcp

import (
	"context"
	"fmt"
	"time"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/srstomp/ohno/internal/core"
	"github.com/srstomp/ohno/internal/observability"
	"github.com/srstomp/ohno/pkg/models"
)

// Server wraps the engine driver and exposes it as MCP tools.
type Server struct {
	server      *gomcp.Server
	driver      *core.Driver
	tasks       core.TaskStore
	ids         core.TaskIDGenerator
	graph       *core.DependencyGraph
	sessions    *core.SessionManager
	alertEngine observability.AlertEngine
}

// NewServer creates an MCP server over the engine. alertEngine may be nil
// if observability is disabled.
func NewServer(driver *core.Driver, tasks core.TaskStore, ids core.TaskIDGenerator, graph *core.DependencyGraph, sessions *core.SessionManager, alertEngine observability.AlertEngine, version string) *Server {
	if version == "" {
		version = "dev"
	}

	s := &Server{
		driver:      driver,
		tasks:       tasks,
		ids:         ids,
		graph:       graph,
		sessions:    sessions,
		alertEngine: alertEngine,
	}

	s.server = gomcp.NewServer(
		&gomcp.Implementation{Name: "ohno", Version: version},
		nil,
	)

	s.registerTools()

	return s
}

// Run starts the MCP server on stdio, blocking until the client disconnects
// or the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &gomcp.StdioTransport{})
}

// MCPServer returns the underlying mcp.Server for testing purposes.
func (s *Server) MCPServer() *gomcp.Server {
	return s.server
}

// --- Tool input/output types ---

type getTaskInput struct {
	TaskID string `json:"task_id" jsonschema:"required,the unique task identifier (e.g. TASK-00042)"`
}

type taskOutput struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	Type          string `json:"type"`
	Status        string `json:"status"`
	Priority      string `json:"priority"`
	StoryID       string `json:"story_id,omitempty"`
	EpicID        string `json:"epic_id,omitempty"`
	BlockedReason string `json:"blocked_reason,omitempty"`
	SpikeDecision string `json:"spike_decision,omitempty"`
	Created       string `json:"created"`
	Updated       string `json:"updated"`
}

type listTasksInput struct {
	Status string `json:"status,omitempty" jsonschema:"filter tasks by status (pending, in_progress, blocked, done)"`
	Story  string `json:"story,omitempty" jsonschema:"filter tasks by story ID"`
	Epic   string `json:"epic,omitempty" jsonschema:"filter tasks by epic ID"`
}

type listTasksOutput struct {
	Tasks []taskOutput `json:"tasks"`
	Count int          `json:"count"`
}

type createTaskInput struct {
	Title        string  `json:"title" jsonschema:"required,short task title"`
	Type         string  `json:"type,omitempty" jsonschema:"task type (feature, bug, chore, docs, spike, research, security), defaults to feature"`
	Priority     string  `json:"priority,omitempty" jsonschema:"priority (P0-P3), defaults to P2"`
	Story        string  `json:"story,omitempty" jsonschema:"story ID this task belongs to"`
	Epic         string  `json:"epic,omitempty" jsonschema:"epic ID this task belongs to"`
	TimeBoxHours float64 `json:"time_box_hours,omitempty" jsonschema:"time box for spike/research tasks, in hours"`
	DependsOn    string  `json:"depends_on,omitempty" jsonschema:"task ID that must be done before this one"`
}

type createTaskOutput struct {
	Task    taskOutput `json:"task"`
	Warning string     `json:"warning,omitempty"`
}

type nextTaskInput struct{}

type nextTaskOutput struct {
	Task    *taskOutput `json:"task,omitempty"`
	Message string      `json:"message,omitempty"`
}

type startTaskInput struct {
	TaskID string `json:"task_id" jsonschema:"required,the task to start"`
}

type completeTaskInput struct {
	TaskID string `json:"task_id" jsonschema:"required,the task to complete"`
	Note   string `json:"note,omitempty" jsonschema:"optional completion note appended to the task"`
}

type completeTaskOutput struct {
	Task           taskOutput `json:"task"`
	StoryCompleted bool       `json:"story_completed"`
	EpicCompleted  bool       `json:"epic_completed"`
	Pause          bool       `json:"pause"`
	PauseBoundary  string     `json:"pause_boundary,omitempty"`
	Warnings       []string   `json:"warnings,omitempty"`
}

type transitionOutput struct {
	Task     taskOutput `json:"task"`
	Warnings []string   `json:"warnings,omitempty"`
}

type setBlockerInput struct {
	TaskID string `json:"task_id" jsonschema:"required,the task to block"`
	Reason string `json:"reason" jsonschema:"required,why the task cannot proceed"`
}

type concludeSpikeInput struct {
	TaskID   string `json:"task_id" jsonschema:"required,the spike task to conclude"`
	Decision string `json:"decision" jsonschema:"required,one of GO, NO-GO, PIVOT, MORE-INFO"`
	Summary  string `json:"summary,omitempty" jsonschema:"optional summary of what the spike learned"`
}

type concludeSpikeOutput struct {
	Task     taskOutput  `json:"task"`
	FollowUp *taskOutput `json:"follow_up,omitempty"`
}

type getSessionInput struct{}

type sessionOutput struct {
	SessionID     string   `json:"session_id"`
	Mode          string   `json:"mode"`
	StartedAt     string   `json:"started_at"`
	CurrentTaskID string   `json:"current_task_id,omitempty"`
	Blockers      []string `json:"blockers,omitempty"`
	Cancelled     bool     `json:"cancelled,omitempty"`
	Message       string   `json:"message,omitempty"`
}

type getAlertsInput struct{}

type alertOutput struct {
	ID          string `json:"id"`
	Condition   string `json:"condition"`
	Severity    string `json:"severity"`
	Message     string `json:"message"`
	TriggeredAt string `json:"triggered_at"`
}

type getAlertsOutput struct {
	Alerts []alertOutput `json:"alerts"`
	Count  int           `json:"count"`
}

// --- Tool registration ---

func (s *Server) registerTools() {
	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_task",
		Description: "Get task details by ID, including status, priority, blockers, and spike decision.",
	}, s.handleGetTask)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "list_tasks",
		Description: "List tasks with optional status, story, and epic filters.",
	}, s.handleListTasks)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "create_task",
		Description: "Create a new task with an auto-generated ID. Spike and research tasks get a time box.",
	}, s.handleCreateTask)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "next_task",
		Description: "Return the highest-priority ready task: pending with all dependencies done.",
	}, s.handleNextTask)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "start_task",
		Description: "Start a task. Runs pre-task hooks first; a fatal hook failure leaves the task pending.",
	}, s.handleStartTask)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "complete_task",
		Description: "Complete the in-progress task. Runs post-task hooks and reports story/epic boundary status and whether to pause.",
	}, s.handleCompleteTask)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "set_blocker",
		Description: "Mark a task blocked with a reason and fire the on-blocker hook.",
	}, s.handleSetBlocker)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "conclude_spike",
		Description: "Record a spike decision (GO, NO-GO, PIVOT, MORE-INFO). MORE-INFO spawns at most one follow-up spike per lineage.",
	}, s.handleConcludeSpike)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_session_context",
		Description: "Get the active session context: mode, current task, and blockers hit so far.",
	}, s.handleGetSession)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_alerts",
		Description: "Evaluate and return active alerts (blocked tasks, overdue spikes, pending backlog size).",
	}, s.handleGetAlerts)
}

// --- Tool handlers ---

func (s *Server) handleGetTask(_ context.Context, _ *gomcp.CallToolRequest, input getTaskInput) (*gomcp.CallToolResult, taskOutput, error) {
	if input.TaskID == "" {
		return errorResult("task_id is required"), taskOutput{}, nil
	}

	task, err := s.tasks.Get(input.TaskID)
	if err != nil {
		return errorResult(describeErr(err)), taskOutput{}, nil
	}
	return nil, taskToOutput(task), nil
}

func (s *Server) handleListTasks(_ context.Context, _ *gomcp.CallToolRequest, input listTasksInput) (*gomcp.CallToolResult, listTasksOutput, error) {
	filter := models.TaskFilter{StoryID: input.Story, EpicID: input.Epic}
	if input.Status != "" {
		filter.Status = []models.TaskStatus{models.TaskStatus(input.Status)}
	}

	tasks, err := s.tasks.List(filter)
	if err != nil {
		return errorResult(fmt.Sprintf("listing tasks: %s", err)), listTasksOutput{}, nil
	}

	out := listTasksOutput{
		Tasks: make([]taskOutput, len(tasks)),
		Count: len(tasks),
	}
	for i := range tasks {
		out.Tasks[i] = taskToOutput(&tasks[i])
	}
	return nil, out, nil
}

func (s *Server) handleCreateTask(_ context.Context, _ *gomcp.CallToolRequest, input createTaskInput) (*gomcp.CallToolResult, createTaskOutput, error) {
	if input.Title == "" {
		return errorResult("title is required"), createTaskOutput{}, nil
	}

	taskType := models.TaskTypeFeature
	if input.Type != "" {
		taskType = models.TaskType(input.Type)
		if !models.ValidTaskTypes[taskType] {
			return errorResult(fmt.Sprintf("invalid type %q: must be one of feature, bug, chore, docs, spike, research, security", input.Type)), createTaskOutput{}, nil
		}
	}

	priority := models.P2
	if input.Priority != "" {
		priority = models.Priority(input.Priority)
		if !models.ValidPriorities[priority] {
			return errorResult(fmt.Sprintf("invalid priority %q: must be one of P0, P1, P2, P3", input.Priority)), createTaskOutput{}, nil
		}
	}

	id, err := s.ids.GenerateTaskID()
	if err != nil {
		return errorResult(fmt.Sprintf("generating task id: %s", err)), createTaskOutput{}, nil
	}

	task := models.Task{
		ID:       id,
		Title:    input.Title,
		Type:     taskType,
		Status:   models.StatusPending,
		Priority: priority,
		StoryID:  input.Story,
		EpicID:   input.Epic,
	}
	if taskType == models.TaskTypeSpike || taskType == models.TaskTypeResearch {
		// A zero time box picks up the configured default when the clock starts.
		task.Spike = &models.SpikeBudget{TimeBoxHours: input.TimeBoxHours}
	}

	created, warning, err := s.tasks.Create(task)
	if err != nil {
		return errorResult(describeErr(err)), createTaskOutput{}, nil
	}

	if input.DependsOn != "" {
		if err := s.graph.AddEdge(input.DependsOn, created.ID); err != nil {
			return errorResult(describeErr(err)), createTaskOutput{}, nil
		}
	}

	return nil, createTaskOutput{Task: taskToOutput(created), Warning: warning}, nil
}

func (s *Server) handleNextTask(_ context.Context, _ *gomcp.CallToolRequest, _ nextTaskInput) (*gomcp.CallToolResult, nextTaskOutput, error) {
	task, err := s.driver.NextTask()
	if err != nil {
		return errorResult(describeErr(err)), nextTaskOutput{}, nil
	}
	if task == nil {
		return nil, nextTaskOutput{Message: "no ready tasks"}, nil
	}
	out := taskToOutput(task)
	return nil, nextTaskOutput{Task: &out}, nil
}

func (s *Server) handleStartTask(ctx context.Context, _ *gomcp.CallToolRequest, input startTaskInput) (*gomcp.CallToolResult, transitionOutput, error) {
	if input.TaskID == "" {
		return errorResult("task_id is required"), transitionOutput{}, nil
	}

	task, hookResult, err := s.driver.Start(ctx, input.TaskID)
	if err != nil {
		return errorResult(describeErr(err)), transitionOutput{}, nil
	}
	return nil, transitionOutput{Task: taskToOutput(task), Warnings: warningsOf(hookResult)}, nil
}

func (s *Server) handleCompleteTask(ctx context.Context, _ *gomcp.CallToolRequest, input completeTaskInput) (*gomcp.CallToolResult, completeTaskOutput, error) {
	if input.TaskID == "" {
		return errorResult("task_id is required"), completeTaskOutput{}, nil
	}

	task, boundary, hookResults, err := s.driver.Done(ctx, input.TaskID, input.Note)
	if err != nil {
		return errorResult(describeErr(err)), completeTaskOutput{}, nil
	}

	out := completeTaskOutput{Task: taskToOutput(task)}
	if boundary != nil {
		out.StoryCompleted = boundary.StoryCompleted
		out.EpicCompleted = boundary.EpicCompleted
		out.Pause = boundary.Pause
		out.PauseBoundary = string(boundary.PauseBoundary)
	}
	for i := range hookResults {
		out.Warnings = append(out.Warnings, hookResults[i].Warnings...)
	}
	return nil, out, nil
}

func (s *Server) handleSetBlocker(ctx context.Context, _ *gomcp.CallToolRequest, input setBlockerInput) (*gomcp.CallToolResult, transitionOutput, error) {
	if input.TaskID == "" {
		return errorResult("task_id is required"), transitionOutput{}, nil
	}
	if input.Reason == "" {
		return errorResult("reason is required"), transitionOutput{}, nil
	}

	task, hookResult, err := s.driver.Block(ctx, input.TaskID, input.Reason)
	if err != nil {
		return errorResult(describeErr(err)), transitionOutput{}, nil
	}
	return nil, transitionOutput{Task: taskToOutput(task), Warnings: warningsOf(hookResult)}, nil
}

func (s *Server) handleConcludeSpike(_ context.Context, _ *gomcp.CallToolRequest, input concludeSpikeInput) (*gomcp.CallToolResult, concludeSpikeOutput, error) {
	if input.TaskID == "" {
		return errorResult("task_id is required"), concludeSpikeOutput{}, nil
	}
	decision := models.SpikeDecision(input.Decision)
	if !models.ValidSpikeDecisions[decision] {
		return errorResult(fmt.Sprintf("invalid decision %q: must be one of GO, NO-GO, PIVOT, MORE-INFO", input.Decision)), concludeSpikeOutput{}, nil
	}

	concluded, followUp, err := s.driver.ConcludeSpike(input.TaskID, decision, input.Summary)
	if err != nil {
		return errorResult(describeErr(err)), concludeSpikeOutput{}, nil
	}

	out := concludeSpikeOutput{Task: taskToOutput(concluded)}
	if followUp != nil {
		fu := taskToOutput(followUp)
		out.FollowUp = &fu
	}
	return nil, out, nil
}

func (s *Server) handleGetSession(_ context.Context, _ *gomcp.CallToolRequest, _ getSessionInput) (*gomcp.CallToolResult, sessionOutput, error) {
	sess := s.sessions.Current()
	if sess == nil {
		return nil, sessionOutput{Message: "no active session"}, nil
	}

	out := sessionOutput{
		SessionID:     sess.SessionID,
		Mode:          string(sess.Mode),
		StartedAt:     sess.StartedAt.Format(time.RFC3339),
		CurrentTaskID: sess.CurrentTaskID,
		Cancelled:     sess.Cancelled,
	}
	for _, b := range sess.Blockers {
		out.Blockers = append(out.Blockers, fmt.Sprintf("%s: %s", b.TaskID, b.Reason))
	}
	return nil, out, nil
}

func (s *Server) handleGetAlerts(_ context.Context, _ *gomcp.CallToolRequest, _ getAlertsInput) (*gomcp.CallToolResult, getAlertsOutput, error) {
	if s.alertEngine == nil {
		return errorResult("alert engine not available (observability may be disabled)"), getAlertsOutput{}, nil
	}

	alerts, err := s.alertEngine.Evaluate()
	if err != nil {
		return errorResult(fmt.Sprintf("evaluating alerts: %s", err)), getAlertsOutput{}, nil
	}

	out := getAlertsOutput{
		Alerts: make([]alertOutput, len(alerts)),
		Count:  len(alerts),
	}
	for i, a := range alerts {
		out.Alerts[i] = alertOutput{
			ID:          a.ID,
			Condition:   a.Condition,
			Severity:    string(a.Severity),
			Message:     a.Message,
			TriggeredAt: a.TriggeredAt.Format(time.RFC3339),
		}
	}
	return nil, out, nil
}

// --- Helpers ---

func taskToOutput(t *models.Task) taskOutput {
	out := taskOutput{
		ID:            t.ID,
		Title:         t.Title,
		Type:          string(t.Type),
		Status:        string(t.Status),
		Priority:      string(t.Priority),
		StoryID:       t.StoryID,
		EpicID:        t.EpicID,
		BlockedReason: t.BlockedReason,
		Created:       t.Created.Format(time.RFC3339),
		Updated:       t.Updated.Format(time.RFC3339),
	}
	if t.Spike.Concluded() {
		out.SpikeDecision = string(t.Spike.Decision)
	}
	return out
}

func warningsOf(r *models.HookResult) []string {
	if r == nil {
		return nil
	}
	return r.Warnings
}

// describeErr appends the remediation hint when the error carries one, so
// assistant clients can self-correct.
func describeErr(err error) string {
	if hint := core.RemediationFor(err); hint != "" {
		return fmt.Sprintf("%s (%s)", err, hint)
	}
	return err.Error()
}

func errorResult(msg string) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: msg}},
		IsError: true,
	}
}
