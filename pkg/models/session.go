package models

import "time"

// Mode is the session-level policy controlling how often the driver pauses
// for human confirmation.
type Mode string

const (
	ModeSupervised Mode = "supervised"
	ModeSemiAuto   Mode = "semi-auto"
	ModeAutonomous Mode = "autonomous"
)

// ValidModes is the set of allowed Mode values.
var ValidModes = map[Mode]bool{
	ModeSupervised: true,
	ModeSemiAuto:   true,
	ModeAutonomous: true,
}

// Boundary is a completion granularity the driver crosses after finishing work.
type Boundary string

const (
	BoundaryTask  Boundary = "task"
	BoundaryStory Boundary = "story"
	BoundaryEpic  Boundary = "epic"
)

// Blocker records an obstacle hit during a session.
type Blocker struct {
	TaskID string    `yaml:"task_id"`
	Reason string    `yaml:"reason"`
	Time   time.Time `yaml:"time"`
}

// ActivityEntry is one ordered entry in the session log.
type ActivityEntry struct {
	Time   time.Time `yaml:"time"`
	Kind   string    `yaml:"kind"` // e.g. "task.started", "hook.run", "checkpoint"
	TaskID string    `yaml:"task_id,omitempty"`
	Detail string    `yaml:"detail,omitempty"`
}

// SessionContext is the in-progress state of one active session. Created at
// session start, mutated by the driver loop on every transition, persisted
// on every checkpoint, archived at clean session end.
type SessionContext struct {
	SessionID     string          `yaml:"session_id"`
	StartedAt     time.Time       `yaml:"started_at"`
	Mode          Mode            `yaml:"mode"`
	CurrentTaskID string          `yaml:"current_task_id,omitempty"`
	Blockers      []Blocker       `yaml:"blockers,omitempty"`
	Log           []ActivityEntry `yaml:"log,omitempty"`
	Cancelled     bool            `yaml:"cancelled,omitempty"`
}

// SessionSnapshot is a durable serialization of a SessionContext, enabling
// handoff and crash recovery.
type SessionSnapshot struct {
	SessionID     string          `yaml:"session_id"`
	TakenAt       time.Time       `yaml:"taken_at"`
	StartedAt     time.Time       `yaml:"started_at"`
	Mode          Mode            `yaml:"mode"`
	CurrentTaskID string          `yaml:"current_task_id,omitempty"`
	Blockers      []Blocker       `yaml:"blockers,omitempty"`
	Log           []ActivityEntry `yaml:"log,omitempty"`
	Cancelled     bool            `yaml:"cancelled,omitempty"`
}

// BoundaryStatus describes which boundaries a completed task closed out,
// and whether the driver should pause for confirmation.
type BoundaryStatus struct {
	TaskID         string   `yaml:"task_id"`
	StoryCompleted bool     `yaml:"story_completed"`
	EpicCompleted  bool     `yaml:"epic_completed"`
	StoryID        string   `yaml:"story_id,omitempty"`
	EpicID         string   `yaml:"epic_id,omitempty"`
	Pause          bool     `yaml:"pause"`
	PauseBoundary  Boundary `yaml:"pause_boundary,omitempty"`
}
