// Package integration contains the adapters that touch the outside world:
// the shell action executor behind hook points and the read-only board
// snapshot export.
package integration

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/srstomp/ohno/internal/core"
	"github.com/srstomp/ohno/pkg/models"
)

// builtinCommands maps well-known action names to their default shell
// commands, used when the project config does not override them. Actions
// like sync, suggest-skills, and detect-spike are computed in-process by
// the executor instead.
var builtinCommands = map[string]string{
	"verify-clean": "git status --porcelain",
	"commit":       `git add -A && git commit -m "ohno: ${OHNO_TASK_ID}"`,
	"lint":         "make lint",
	"test":         "make test",
	"audit":        "make audit",
}

// Classifier provides skill suggestions for the suggest-skills action.
type Classifier interface {
	Classify(task *models.Task) []string
}

// shellActionExecutor implements core.ActionExecutor by shelling out. The
// configured command runs under sh -c with OHNO_* environment variables
// carrying the hook context.
type shellActionExecutor struct {
	tasks      core.TaskReader
	graph      *core.DependencyGraph
	classifier Classifier
	workdir    string
}

// NewActionExecutor creates the production action executor. workdir is the
// directory commands run in, normally the project root.
func NewActionExecutor(tasks core.TaskReader, graph *core.DependencyGraph, classifier Classifier, workdir string) core.ActionExecutor {
	return &shellActionExecutor{
		tasks:      tasks,
		graph:      graph,
		classifier: classifier,
		workdir:    workdir,
	}
}

// Execute runs one action. In-process actions are dispatched by name;
// everything else resolves to a shell command. An action with neither a
// command nor an in-process handler is reported as skipped, not failed.
func (e *shellActionExecutor) Execute(ctx context.Context, spec models.ActionSpec, hctx core.HookContext) models.ActionResult {
	switch spec.Name {
	case "check-blockers":
		return e.checkBlockers(hctx)
	case "suggest-skills":
		return e.suggestSkills(hctx)
	case "detect-spike":
		return e.detectSpike(hctx)
	case "sync":
		if spec.Command == "" {
			return e.syncBoard()
		}
	case "session-summary":
		if spec.Command == "" {
			return e.sessionSummary()
		}
	}

	command := spec.Command
	if command == "" {
		command = builtinCommands[spec.Name]
	}
	if command == "" {
		return models.ActionResult{Status: "skipped", Output: "no command configured"}
	}
	return e.runShell(ctx, command, hctx)
}

// checkBlockers fails when any direct dependency of the task is not done.
func (e *shellActionExecutor) checkBlockers(hctx core.HookContext) models.ActionResult {
	if hctx.TaskID == "" {
		return models.ActionResult{Status: "skipped", Output: "no task in context"}
	}
	blocked, err := e.graph.IsBlocked(hctx.TaskID)
	if err != nil {
		return models.ActionResult{Status: "failed", Err: err.Error()}
	}
	if blocked {
		deps, _ := e.graph.Dependencies(hctx.TaskID)
		return models.ActionResult{
			Status: "failed",
			Err:    fmt.Sprintf("unfinished dependencies: %s", strings.Join(deps, ", ")),
		}
	}
	return models.ActionResult{Status: "success"}
}

// suggestSkills surfaces matching skills as advisory output.
func (e *shellActionExecutor) suggestSkills(hctx core.HookContext) models.ActionResult {
	if hctx.TaskID == "" || e.classifier == nil {
		return models.ActionResult{Status: "skipped"}
	}
	task, err := e.tasks.Get(hctx.TaskID)
	if err != nil {
		return models.ActionResult{Status: "failed", Err: err.Error()}
	}
	skills := e.classifier.Classify(task)
	if len(skills) == 0 {
		return models.ActionResult{Status: "success", Output: "no skill suggestions"}
	}
	return models.ActionResult{Status: "success", Output: "suggested skills: " + strings.Join(skills, ", ")}
}

// detectSpike flags non-spike tasks whose notes suggest open-ended
// investigation, hinting that a time-boxed spike should be split out.
func (e *shellActionExecutor) detectSpike(hctx core.HookContext) models.ActionResult {
	if hctx.TaskID == "" {
		return models.ActionResult{Status: "skipped"}
	}
	task, err := e.tasks.Get(hctx.TaskID)
	if err != nil {
		return models.ActionResult{Status: "failed", Err: err.Error()}
	}
	if core.IsSpike(task) {
		return models.ActionResult{Status: "success"}
	}

	markers := []string{"investigate", "unknown", "not sure", "explore", "experiment"}
	var text strings.Builder
	text.WriteString(strings.ToLower(task.Title))
	for _, n := range task.Notes {
		text.WriteByte(' ')
		text.WriteString(strings.ToLower(n.Text))
	}
	for _, m := range markers {
		if strings.Contains(text.String(), m) {
			return models.ActionResult{
				Status: "warning",
				Output: fmt.Sprintf("task text mentions %q, consider splitting out a spike", m),
			}
		}
	}
	return models.ActionResult{Status: "success"}
}

// syncBoard reconciles the exported board file with the current store
// state. The export is a full rewrite, so re-running it after crash
// recovery converges rather than duplicating.
func (e *shellActionExecutor) syncBoard() models.ActionResult {
	path := filepath.Join(e.workdir, "board.md")
	if err := NewBoardExporter(e.tasks).Export(path); err != nil {
		return models.ActionResult{Status: "failed", Err: err.Error()}
	}
	return models.ActionResult{Status: "success", Output: "board synced to " + path}
}

// sessionSummary reports task counts per status at session end.
func (e *shellActionExecutor) sessionSummary() models.ActionResult {
	var parts []string
	for _, status := range boardColumns {
		tasks, err := e.tasks.List(models.TaskFilter{Status: []models.TaskStatus{status}})
		if err != nil {
			return models.ActionResult{Status: "failed", Err: err.Error()}
		}
		parts = append(parts, fmt.Sprintf("%s=%d", status, len(tasks)))
	}
	return models.ActionResult{Status: "success", Output: "session summary: " + strings.Join(parts, " ")}
}

func (e *shellActionExecutor) runShell(ctx context.Context, command string, hctx core.HookContext) models.ActionResult {
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = e.workdir
	cmd.Env = buildEnv(os.Environ(), hctx)

	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	start := time.Now()
	err := cmd.Run()
	result := models.ActionResult{
		Output:   output.String(),
		Duration: time.Since(start),
	}

	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		result.Status = "timeout"
		result.Err = fmt.Sprintf("command timed out after %s", result.Duration.Round(time.Second))
	case err != nil:
		result.Status = "failed"
		result.Err = err.Error()
	default:
		result.Status = "success"
	}
	return result
}

// buildEnv appends OHNO_* variables carrying the hook context, so configured
// commands can act on the current task and session.
func buildEnv(base []string, hctx core.HookContext) []string {
	env := make([]string, len(base), len(base)+4+len(hctx.Extra))
	copy(env, base)
	env = append(env,
		"OHNO_HOOK_POINT="+string(hctx.Point),
		"OHNO_MODE="+string(hctx.Mode),
		"OHNO_SESSION_ID="+hctx.SessionID,
		"OHNO_TASK_ID="+hctx.TaskID,
	)
	for k, v := range hctx.Extra {
		env = append(env, "OHNO_"+strings.ToUpper(strings.ReplaceAll(k, "-", "_"))+"="+v)
	}
	return env
}
