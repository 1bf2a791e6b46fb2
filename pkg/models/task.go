package models

import "time"

// TaskType represents the kind of work a task involves.
type TaskType string

const (
	TaskTypeFeature  TaskType = "feature"
	TaskTypeBug      TaskType = "bug"
	TaskTypeChore    TaskType = "chore"
	TaskTypeDocs     TaskType = "docs"
	TaskTypeSpike    TaskType = "spike"
	TaskTypeResearch TaskType = "research"
	TaskTypeSecurity TaskType = "security"
)

// TaskStatus represents the current lifecycle state of a task.
type TaskStatus string

const (
	StatusPending    TaskStatus = "pending"
	StatusInProgress TaskStatus = "in_progress"
	StatusBlocked    TaskStatus = "blocked"
	StatusDone       TaskStatus = "done"
)

// Priority represents the urgency level of a task. P0 is highest.
type Priority string

const (
	P0 Priority = "P0"
	P1 Priority = "P1"
	P2 Priority = "P2"
	P3 Priority = "P3"
)

// PriorityRank maps a priority to a sortable rank (lower is more urgent).
// Unknown priorities sort last.
func PriorityRank(p Priority) int {
	switch p {
	case P0:
		return 0
	case P1:
		return 1
	case P2:
		return 2
	case P3:
		return 3
	default:
		return 4
	}
}

// Note is a single append-only log entry on a task.
type Note struct {
	Time time.Time `yaml:"time"`
	Text string    `yaml:"text"`
}

// Task represents a unit of work identified by a unique TASK-XXXXX ID,
// tracked through the pending/in_progress/blocked/done state machine.
// A done task is immutable except for appended notes.
type Task struct {
	ID            string       `yaml:"id"`
	Title         string       `yaml:"title"`
	Type          TaskType     `yaml:"type"`
	Status        TaskStatus   `yaml:"status"`
	Priority      Priority     `yaml:"priority"`
	EstimateHours float64      `yaml:"estimate_hours,omitempty"`
	StoryID       string       `yaml:"story_id,omitempty"`
	EpicID        string       `yaml:"epic_id,omitempty"`
	BlockedReason string       `yaml:"blocked_reason,omitempty"`
	Notes         []Note       `yaml:"notes,omitempty"`
	Spike         *SpikeBudget `yaml:"spike,omitempty"`
	Created       time.Time    `yaml:"created"`
	Updated       time.Time    `yaml:"updated"`
}

// Edge is a directed dependency: From must be done before To may start.
type Edge struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// TaskFilter specifies criteria for listing tasks.
// All specified fields use AND logic: a task must match every criterion.
type TaskFilter struct {
	Status   []TaskStatus
	Type     []TaskType
	Priority []Priority
	StoryID  string
	EpicID   string
}

// ValidTaskTypes is the set of allowed TaskType values.
var ValidTaskTypes = map[TaskType]bool{
	TaskTypeFeature:  true,
	TaskTypeBug:      true,
	TaskTypeChore:    true,
	TaskTypeDocs:     true,
	TaskTypeSpike:    true,
	TaskTypeResearch: true,
	TaskTypeSecurity: true,
}

// ValidPriorities is the set of allowed Priority values.
var ValidPriorities = map[Priority]bool{
	P0: true,
	P1: true,
	P2: true,
	P3: true,
}
