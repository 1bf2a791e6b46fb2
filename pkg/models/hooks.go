package models

import "time"

// HookPoint is a named lifecycle point where configured actions run.
type HookPoint string

const (
	HookPreSession  HookPoint = "pre-session"
	HookPreTask     HookPoint = "pre-task"
	HookPostTask    HookPoint = "post-task"
	HookPostStory   HookPoint = "post-story"
	HookPostEpic    HookPoint = "post-epic"
	HookPostSession HookPoint = "post-session"
	HookPreCommit   HookPoint = "pre-commit"
	HookOnBlocker   HookPoint = "on-blocker"
)

// ValidHookPoints is the set of recognised lifecycle points.
var ValidHookPoints = map[HookPoint]bool{
	HookPreSession:  true,
	HookPreTask:     true,
	HookPostTask:    true,
	HookPostStory:   true,
	HookPostEpic:    true,
	HookPostSession: true,
	HookPreCommit:   true,
	HookOnBlocker:   true,
}

// ActionKind controls failure semantics: a failing fatal action aborts the
// hook point, a failing advisory action is logged and execution continues.
type ActionKind string

const (
	ActionFatal    ActionKind = "fatal"
	ActionAdvisory ActionKind = "advisory"
)

// ActionSpec describes one configured hook action. Actions must tolerate
// re-application after crash recovery (at-least-once execution), so sync is
// a reconciliation rather than an append.
type ActionSpec struct {
	Name    string        `yaml:"name" mapstructure:"name"`
	Kind    ActionKind    `yaml:"kind,omitempty" mapstructure:"kind"`
	Command string        `yaml:"command,omitempty" mapstructure:"command"`
	Timeout time.Duration `yaml:"timeout,omitempty" mapstructure:"timeout"`
	// Modes restricts the action to specific session modes. Empty means all.
	Modes []Mode `yaml:"modes,omitempty" mapstructure:"modes"`
	// Disabled skips the action without removing it from the table.
	Disabled bool `yaml:"disabled,omitempty" mapstructure:"disabled"`
}

// RunsIn reports whether the action is active for the given mode.
func (a ActionSpec) RunsIn(mode Mode) bool {
	if a.Disabled {
		return false
	}
	if len(a.Modes) == 0 {
		return true
	}
	for _, m := range a.Modes {
		if m == mode {
			return true
		}
	}
	return false
}

// HookTable maps each lifecycle point to its ordered action list. It is
// project-owned configuration, resolved once per session and immutable
// during a run.
type HookTable map[HookPoint][]ActionSpec

// DefaultHookTable returns the built-in hook configuration. Individual
// actions can be disabled or overridden via project config.
func DefaultHookTable() HookTable {
	return HookTable{
		HookPreSession: {
			{Name: "verify-clean", Kind: ActionAdvisory},
		},
		HookPreTask: {
			{Name: "check-blockers", Kind: ActionFatal},
			{Name: "suggest-skills", Kind: ActionAdvisory},
		},
		HookPostTask: {
			{Name: "sync", Kind: ActionFatal},
			{Name: "commit", Kind: ActionFatal, Modes: []Mode{ModeSemiAuto, ModeAutonomous}},
			{Name: "detect-spike", Kind: ActionAdvisory},
			{Name: "capture-knowledge", Kind: ActionAdvisory},
		},
		HookPostStory: {
			{Name: "test", Kind: ActionFatal},
			{Name: "audit", Kind: ActionFatal},
		},
		HookPostEpic: {
			{Name: "audit", Kind: ActionFatal},
		},
		HookPostSession: {
			{Name: "sync", Kind: ActionAdvisory},
			{Name: "session-summary", Kind: ActionAdvisory},
		},
		HookPreCommit: {
			{Name: "lint", Kind: ActionFatal},
		},
		HookOnBlocker: {
			{Name: "notify-blocker", Kind: ActionAdvisory},
		},
	}
}

// ActionResult records the outcome of one executed action.
type ActionResult struct {
	Action   string        `yaml:"action"`
	Status   string        `yaml:"status"` // success, warning, failed, timeout, skipped
	Output   string        `yaml:"output,omitempty"`
	Err      string        `yaml:"error,omitempty"`
	Duration time.Duration `yaml:"duration,omitempty"`
}

// HookResult is the outcome of running all actions at a hook point.
// Warnings collect advisory failures; they never block progress.
type HookResult struct {
	Point    HookPoint      `yaml:"point"`
	Results  []ActionResult `yaml:"results"`
	Warnings []string       `yaml:"warnings,omitempty"`
}
