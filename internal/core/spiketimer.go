package core

import (
	"fmt"
	"time"

	"github.com/srstomp/ohno/pkg/models"
)

// TaskStore is the full task store surface core components mutate through.
type TaskStore interface {
	TaskReader
	Create(task models.Task) (*models.Task, string, error)
	Update(taskID string, mutate func(t *models.Task) error) (*models.Task, error)
	AppendNote(taskID string, text string) (*models.Task, error)
}

// SpikeTimer manages the time box attached to spike tasks. It never kills
// work on its own: an expired box only flags the spike as overdue and forces
// a decision before the task can complete.
type SpikeTimer struct {
	tasks        TaskStore
	ids          TaskIDGenerator
	defaultHours float64
	now          func() time.Time
}

// NewSpikeTimer creates a SpikeTimer. defaultHours is used when a spike task
// carries no explicit time box. The clock defaults to time.Now.
func NewSpikeTimer(tasks TaskStore, ids TaskIDGenerator, defaultHours float64) *SpikeTimer {
	if defaultHours <= 0 {
		defaultHours = 4
	}
	return &SpikeTimer{
		tasks:        tasks,
		ids:          ids,
		defaultHours: defaultHours,
		now:          time.Now,
	}
}

// WithClock replaces the timer's clock. Intended for tests.
func (t *SpikeTimer) WithClock(now func() time.Time) *SpikeTimer {
	t.now = now
	return t
}

// IsSpike reports whether the task type participates in time boxing.
func IsSpike(task *models.Task) bool {
	return task.Type == models.TaskTypeSpike || task.Type == models.TaskTypeResearch
}

// Start begins the time box for a spike task. The checkpoint lands at the
// 50% mark of the box. Starting an already started spike is a no-op.
func (t *SpikeTimer) Start(taskID string) (*models.Task, error) {
	task, err := t.tasks.Get(taskID)
	if err != nil {
		return nil, err
	}
	if !IsSpike(task) {
		return nil, fmt.Errorf("starting spike clock: %s is a %s task, not a spike", taskID, task.Type)
	}
	if task.Spike.Started() {
		return task, nil
	}

	now := t.now()
	return t.tasks.Update(taskID, func(task *models.Task) error {
		if task.Spike == nil {
			task.Spike = &models.SpikeBudget{TimeBoxHours: t.defaultHours}
		}
		if task.Spike.TimeBoxHours <= 0 {
			task.Spike.TimeBoxHours = t.defaultHours
		}
		box := hoursToDuration(task.Spike.TimeBoxHours)
		task.Spike.StartedAt = now
		task.Spike.CheckpointAt = now.Add(box / 2)
		task.Spike.MustConclude = now.Add(box)
		return nil
	})
}

// Status returns the point-in-time view of a spike's clock.
func (t *SpikeTimer) Status(taskID string) (*models.SpikeStatus, error) {
	task, err := t.tasks.Get(taskID)
	if err != nil {
		return nil, err
	}
	if !task.Spike.Started() {
		return nil, fmt.Errorf("spike status: clock not started for %s", taskID)
	}

	now := t.now()
	elapsed := now.Sub(task.Spike.StartedAt)
	remaining := task.Spike.MustConclude.Sub(now)
	return &models.SpikeStatus{
		TaskID:         taskID,
		OnTrack:        remaining >= 0,
		PastCheckpoint: !now.Before(task.Spike.CheckpointAt),
		Overdue:        remaining < 0,
		Remaining:      remaining,
		Elapsed:        elapsed,
	}, nil
}

// RequireDecision guards the done transition for spike tasks: a spike cannot
// complete until a decision has been recorded. Non-spike tasks always pass.
func (t *SpikeTimer) RequireDecision(task *models.Task) error {
	if !IsSpike(task) || task.Spike.Concluded() {
		return nil
	}
	var elapsed time.Duration
	if task.Spike.Started() {
		elapsed = t.now().Sub(task.Spike.StartedAt)
	}
	return &DecisionRequiredError{TaskID: task.ID, Elapsed: elapsed}
}

// Conclude records the spike decision. A MORE-INFO decision spawns exactly
// one follow-up spike; a second respike in the same lineage is rejected with
// MaxRespikeExceeded so an inconclusive line of inquiry cannot chain forever.
// The follow-up task, if any, is returned alongside the concluded one.
func (t *SpikeTimer) Conclude(taskID string, decision models.SpikeDecision, summary string) (*models.Task, *models.Task, error) {
	if !models.ValidSpikeDecisions[decision] {
		return nil, nil, fmt.Errorf("concluding spike %s: invalid decision %q", taskID, decision)
	}

	task, err := t.tasks.Get(taskID)
	if err != nil {
		return nil, nil, err
	}
	if !IsSpike(task) {
		return nil, nil, fmt.Errorf("concluding spike: %s is a %s task, not a spike", taskID, task.Type)
	}
	if task.Spike.Concluded() {
		return nil, nil, fmt.Errorf("concluding spike %s: decision %s already recorded", taskID, task.Spike.Decision)
	}

	if decision == models.DecisionMoreInfo && task.Spike != nil && task.Spike.ParentSpikeID != "" {
		return nil, nil, &MaxRespikeExceededError{TaskID: taskID, ParentSpikeID: task.Spike.ParentSpikeID}
	}

	var child *models.Task
	if decision == models.DecisionMoreInfo {
		child, err = t.spawnFollowUp(task)
		if err != nil {
			return nil, nil, err
		}
	}

	concluded, err := t.tasks.Update(taskID, func(task *models.Task) error {
		if task.Spike == nil {
			task.Spike = &models.SpikeBudget{TimeBoxHours: t.defaultHours}
		}
		task.Spike.Decision = decision
		if child != nil {
			task.Spike.ChildSpikeID = child.ID
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	if summary != "" {
		concluded, err = t.tasks.AppendNote(taskID, fmt.Sprintf("spike decision %s: %s", decision, summary))
		if err != nil {
			return nil, nil, err
		}
	}
	return concluded, child, nil
}

func (t *SpikeTimer) spawnFollowUp(parent *models.Task) (*models.Task, error) {
	id, err := t.ids.GenerateTaskID()
	if err != nil {
		return nil, fmt.Errorf("spawning follow-up spike for %s: %w", parent.ID, err)
	}

	hours := t.defaultHours
	if parent.Spike != nil && parent.Spike.TimeBoxHours > 0 {
		hours = parent.Spike.TimeBoxHours
	}

	child, _, err := t.tasks.Create(models.Task{
		ID:       id,
		Title:    fmt.Sprintf("Follow-up: %s", parent.Title),
		Type:     models.TaskTypeSpike,
		Status:   models.StatusPending,
		Priority: parent.Priority,
		StoryID:  parent.StoryID,
		EpicID:   parent.EpicID,
		Spike: &models.SpikeBudget{
			TimeBoxHours:  hours,
			ParentSpikeID: parent.ID,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("spawning follow-up spike for %s: %w", parent.ID, err)
	}
	return child, nil
}

func hoursToDuration(hours float64) time.Duration {
	return time.Duration(hours * float64(time.Hour))
}
