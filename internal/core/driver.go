package core

import (
	"context"
	"fmt"

	"github.com/srstomp/ohno/pkg/models"
)

// EventLogger receives structured engine events. The observability package
// provides the JSONL-backed implementation; a nil logger disables logging.
type EventLogger interface {
	Log(event string, fields map[string]any)
}

// Driver is the engine's top-level loop surface: picking the next task,
// moving tasks through the state machine with hooks enforced, and
// checkpointing the session around it. Each external command invocation maps
// to one Driver call.
type Driver struct {
	tasks    TaskStore
	graph    *DependencyGraph
	hooks    *HookRunner
	spikes   *SpikeTimer
	sessions *SessionManager
	events   EventLogger
}

// NewDriver wires the engine components into a Driver.
func NewDriver(tasks TaskStore, graph *DependencyGraph, hooks *HookRunner, spikes *SpikeTimer, sessions *SessionManager, events EventLogger) *Driver {
	return &Driver{
		tasks:    tasks,
		graph:    graph,
		hooks:    hooks,
		spikes:   spikes,
		sessions: sessions,
		events:   events,
	}
}

// NextTask returns the highest-ranked ready task, or nil when nothing is
// ready to start.
func (d *Driver) NextTask() (*models.Task, error) {
	ready, err := d.graph.ReadyTasks()
	if err != nil {
		return nil, fmt.Errorf("selecting next task: %w", err)
	}
	if len(ready) == 0 {
		return nil, nil
	}
	next := ready[0]
	return &next, nil
}

// Start moves a pending task to in_progress. Pre-task hooks run first; a
// fatal hook failure aborts the transition and the task stays pending. At
// most one task may be in_progress, and a cancelled session accepts no new
// tasks.
func (d *Driver) Start(ctx context.Context, taskID string) (*models.Task, *models.HookResult, error) {
	if d.sessions.Cancelled() {
		return nil, nil, fmt.Errorf("starting %s: session cancelled, no new tasks", taskID)
	}

	task, err := d.tasks.Get(taskID)
	if err != nil {
		return nil, nil, err
	}
	if active := d.tasks.ActiveTaskID(); active != "" && active != taskID {
		return nil, nil, &AlreadyInProgressError{ActiveTaskID: active, RequestedTaskID: taskID}
	}
	if blocked, err := d.graph.IsBlocked(taskID); err != nil {
		return nil, nil, err
	} else if blocked {
		return nil, nil, fmt.Errorf("starting %s: unfinished dependencies remain", taskID)
	}

	hookResult, err := d.hooks.Run(ctx, models.HookPreTask, d.hookContext(taskID, nil))
	if err != nil {
		d.logEvent("task.start.aborted", map[string]any{"task_id": taskID, "error": err.Error()})
		return nil, hookResult, err
	}

	started, err := d.tasks.Update(taskID, func(t *models.Task) error {
		t.Status = models.StatusInProgress
		t.BlockedReason = ""
		return nil
	})
	if err != nil {
		return nil, hookResult, err
	}

	if IsSpike(task) {
		if started, err = d.spikes.Start(taskID); err != nil {
			return nil, hookResult, err
		}
	}

	d.sessions.SetCurrentTask(taskID)
	d.sessions.RecordActivity("task.started", taskID, "")
	d.logEvent("task.started", map[string]any{"task_id": taskID})
	return started, hookResult, nil
}

// Done completes an in_progress task. A spike must have a recorded decision
// first. Post-task hooks run before the status commits, so a fatal failure
// leaves the task in_progress. When the task closes out its story or epic,
// the matching boundary hooks run and the returned BoundaryStatus says
// whether the driver should pause for the session's mode.
func (d *Driver) Done(ctx context.Context, taskID string, note string) (*models.Task, *models.BoundaryStatus, []models.HookResult, error) {
	task, err := d.tasks.Get(taskID)
	if err != nil {
		return nil, nil, nil, err
	}
	if task.Status != models.StatusInProgress {
		return nil, nil, nil, fmt.Errorf("completing %s: status is %s, only an in_progress task can complete", taskID, task.Status)
	}
	if err := d.spikes.RequireDecision(task); err != nil {
		return nil, nil, nil, err
	}

	var results []models.HookResult

	postTask, err := d.hooks.Run(ctx, models.HookPostTask, d.hookContext(taskID, nil))
	if postTask != nil {
		results = append(results, *postTask)
	}
	if err != nil {
		d.logEvent("task.done.aborted", map[string]any{"task_id": taskID, "error": err.Error()})
		return nil, nil, results, err
	}

	done, err := d.tasks.Update(taskID, func(t *models.Task) error {
		t.Status = models.StatusDone
		t.BlockedReason = ""
		return nil
	})
	if err != nil {
		return nil, nil, results, err
	}
	if note != "" {
		if done, err = d.tasks.AppendNote(taskID, note); err != nil {
			return nil, nil, results, err
		}
	}

	boundary, boundaryResults, err := d.crossBoundaries(ctx, done)
	results = append(results, boundaryResults...)
	if err != nil {
		return done, boundary, results, err
	}

	d.sessions.SetCurrentTask("")
	d.sessions.RecordActivity("task.done", taskID, note)
	d.logEvent("task.done", map[string]any{
		"task_id":         taskID,
		"story_completed": boundary.StoryCompleted,
		"epic_completed":  boundary.EpicCompleted,
		"pause":           boundary.Pause,
	})
	return done, boundary, results, nil
}

// crossBoundaries detects which boundaries the completed task closed out,
// runs their hooks, and resolves the pause decision for the session mode.
func (d *Driver) crossBoundaries(ctx context.Context, task *models.Task) (*models.BoundaryStatus, []models.HookResult, error) {
	status := &models.BoundaryStatus{
		TaskID:  task.ID,
		StoryID: task.StoryID,
		EpicID:  task.EpicID,
	}

	var err error
	if task.StoryID != "" {
		status.StoryCompleted, err = d.groupDone(models.TaskFilter{StoryID: task.StoryID})
		if err != nil {
			return status, nil, err
		}
	}
	if task.EpicID != "" {
		status.EpicCompleted, err = d.groupDone(models.TaskFilter{EpicID: task.EpicID})
		if err != nil {
			return status, nil, err
		}
	}

	var results []models.HookResult
	if status.StoryCompleted {
		r, err := d.hooks.Run(ctx, models.HookPostStory, d.hookContext(task.ID, map[string]string{"story_id": task.StoryID}))
		if r != nil {
			results = append(results, *r)
		}
		if err != nil {
			return status, results, err
		}
	}
	if status.EpicCompleted {
		r, err := d.hooks.Run(ctx, models.HookPostEpic, d.hookContext(task.ID, map[string]string{"epic_id": task.EpicID}))
		if r != nil {
			results = append(results, *r)
		}
		if err != nil {
			return status, results, err
		}
	}

	widest := models.BoundaryTask
	if status.StoryCompleted {
		widest = models.BoundaryStory
	}
	if status.EpicCompleted {
		widest = models.BoundaryEpic
	}
	status.PauseBoundary = widest
	status.Pause = ShouldPause(d.mode(), widest)
	return status, results, nil
}

// groupDone reports whether every task matched by the filter is done.
func (d *Driver) groupDone(filter models.TaskFilter) (bool, error) {
	members, err := d.tasks.List(filter)
	if err != nil {
		return false, fmt.Errorf("checking boundary completion: %w", err)
	}
	for _, m := range members {
		if m.Status != models.StatusDone {
			return false, nil
		}
	}
	return len(members) > 0, nil
}

// Block moves a task to blocked with a mandatory reason and fires the
// on-blocker hook. Blocking never fails on hook errors; the actions there
// are advisory notifications.
func (d *Driver) Block(ctx context.Context, taskID, reason string) (*models.Task, *models.HookResult, error) {
	if reason == "" {
		return nil, nil, fmt.Errorf("blocking %s: a reason is required", taskID)
	}

	blocked, err := d.tasks.Update(taskID, func(t *models.Task) error {
		if t.Status == models.StatusDone {
			return fmt.Errorf("task is done")
		}
		t.Status = models.StatusBlocked
		t.BlockedReason = reason
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	d.sessions.RecordBlocker(taskID, reason)
	d.sessions.RecordActivity("task.blocked", taskID, reason)
	d.logEvent("task.blocked", map[string]any{"task_id": taskID, "reason": reason})

	hookResult, err := d.hooks.Run(ctx, models.HookOnBlocker, d.hookContext(taskID, map[string]string{"reason": reason}))
	if err != nil {
		// on-blocker actions cannot undo the block; surface as warning only
		d.logEvent("hook.on-blocker.failed", map[string]any{"task_id": taskID, "error": err.Error()})
	}
	return blocked, hookResult, nil
}

// Unblock returns a blocked task to pending and clears the reason.
func (d *Driver) Unblock(taskID string) (*models.Task, error) {
	task, err := d.tasks.Update(taskID, func(t *models.Task) error {
		if t.Status != models.StatusBlocked {
			return fmt.Errorf("status is %s, only a blocked task can unblock", t.Status)
		}
		t.Status = models.StatusPending
		t.BlockedReason = ""
		return nil
	})
	if err != nil {
		return nil, err
	}
	d.sessions.RecordActivity("task.unblocked", taskID, "")
	d.logEvent("task.unblocked", map[string]any{"task_id": taskID})
	return task, nil
}

// ForceComplete marks a task done without running post-task hooks or the
// spike decision gate. The override and its reason are recorded on the task
// so the bypass stays visible.
func (d *Driver) ForceComplete(taskID, reason string) (*models.Task, error) {
	if reason == "" {
		return nil, fmt.Errorf("force-completing %s: a reason is required", taskID)
	}

	done, err := d.tasks.Update(taskID, func(t *models.Task) error {
		t.Status = models.StatusDone
		t.BlockedReason = ""
		return nil
	})
	if err != nil {
		return nil, err
	}
	if done, err = d.tasks.AppendNote(taskID, fmt.Sprintf("force-completed: %s", reason)); err != nil {
		return nil, err
	}

	d.sessions.SetCurrentTask("")
	d.sessions.RecordActivity("task.force_completed", taskID, reason)
	d.logEvent("task.force_completed", map[string]any{"task_id": taskID, "reason": reason})
	return done, nil
}

// ConcludeSpike records a spike decision and returns the follow-up task a
// MORE-INFO conclusion spawned, if any.
func (d *Driver) ConcludeSpike(taskID string, decision models.SpikeDecision, summary string) (*models.Task, *models.Task, error) {
	concluded, child, err := d.spikes.Conclude(taskID, decision, summary)
	if err != nil {
		return nil, nil, err
	}
	d.sessions.RecordActivity("spike.concluded", taskID, string(decision))
	fields := map[string]any{"task_id": taskID, "decision": string(decision)}
	if child != nil {
		fields["follow_up"] = child.ID
	}
	d.logEvent("spike.concluded", fields)
	return concluded, child, nil
}

// SpikeStatus returns the point-in-time clock view of a running spike.
func (d *Driver) SpikeStatus(taskID string) (*models.SpikeStatus, error) {
	return d.spikes.Status(taskID)
}

// RunHook executes the actions at a lifecycle point on demand, outside any
// task transition. Fatal failures surface as HookFailed but no task state is
// affected.
func (d *Driver) RunHook(ctx context.Context, point models.HookPoint, taskID string) (*models.HookResult, error) {
	result, err := d.hooks.Run(ctx, point, d.hookContext(taskID, nil))
	d.sessions.RecordActivity("hook.run", taskID, string(point))
	if err != nil {
		d.logEvent("hook.failed", map[string]any{"point": string(point), "error": err.Error()})
		return result, err
	}
	d.logEvent("hook.run", map[string]any{"point": string(point)})
	return result, nil
}

// StartSession opens a session and runs pre-session hooks.
func (d *Driver) StartSession(ctx context.Context, mode models.Mode) (*models.SessionContext, *models.HookResult, error) {
	sess, err := d.sessions.Start(mode)
	if err != nil {
		return nil, nil, err
	}
	d.logEvent("session.started", map[string]any{"session_id": sess.SessionID, "mode": string(mode)})

	hookResult, err := d.hooks.Run(ctx, models.HookPreSession, d.hookContext("", nil))
	if err != nil {
		return sess, hookResult, err
	}
	return sess, hookResult, nil
}

// EndSession runs post-session hooks, checkpoints, and archives the session.
func (d *Driver) EndSession(ctx context.Context) (*models.HookResult, error) {
	sess := d.sessions.Current()
	if sess == nil {
		return nil, fmt.Errorf("ending session: no active session")
	}

	hookResult, err := d.hooks.Run(ctx, models.HookPostSession, d.hookContext(sess.CurrentTaskID, nil))
	if err != nil {
		// post-session actions are advisory by default; a configured fatal
		// action still blocks the clean shutdown
		return hookResult, err
	}

	if err := d.sessions.End(); err != nil {
		return hookResult, err
	}
	d.logEvent("session.ended", map[string]any{"session_id": sess.SessionID})
	return hookResult, nil
}

// Checkpoint persists the current session context.
func (d *Driver) Checkpoint() (*models.SessionSnapshot, error) {
	snapshot, err := d.sessions.Checkpoint()
	if err != nil {
		return nil, err
	}
	d.logEvent("session.checkpoint", map[string]any{"session_id": snapshot.SessionID})
	return snapshot, nil
}

// Restore resumes a checkpointed session. An empty ID restores the latest.
func (d *Driver) Restore(sessionID string) (*models.SessionContext, error) {
	sess, err := d.sessions.Restore(sessionID)
	if err != nil {
		return nil, err
	}
	d.logEvent("session.restored", map[string]any{"session_id": sess.SessionID})
	return sess, nil
}

// Cancel stops the session from picking up new tasks. In-flight work is
// left to finish.
func (d *Driver) Cancel() {
	d.sessions.Cancel()
	d.logEvent("session.cancelled", nil)
}

func (d *Driver) mode() models.Mode {
	return d.sessions.Mode(models.ModeSupervised)
}

func (d *Driver) hookContext(taskID string, extra map[string]string) HookContext {
	hctx := HookContext{
		Mode:   d.mode(),
		TaskID: taskID,
		Extra:  extra,
	}
	if sess := d.sessions.Current(); sess != nil {
		hctx.SessionID = sess.SessionID
	}
	return hctx
}

func (d *Driver) logEvent(event string, fields map[string]any) {
	if d.events != nil {
		d.events.Log(event, fields)
	}
}
