package models

import "time"

// SpikeDecision is the mandatory conclusion of a time-boxed spike.
type SpikeDecision string

const (
	DecisionGo       SpikeDecision = "GO"
	DecisionNoGo     SpikeDecision = "NO-GO"
	DecisionPivot    SpikeDecision = "PIVOT"
	DecisionMoreInfo SpikeDecision = "MORE-INFO"
)

// ValidSpikeDecisions is the set of allowed SpikeDecision values.
var ValidSpikeDecisions = map[SpikeDecision]bool{
	DecisionGo:       true,
	DecisionNoGo:     true,
	DecisionPivot:    true,
	DecisionMoreInfo: true,
}

// SpikeBudget tracks the time box attached to a spike task. A spike cannot
// transition to done without a recorded decision; MORE-INFO may spawn at
// most one follow-up spike per lineage.
type SpikeBudget struct {
	TimeBoxHours  float64       `yaml:"time_box_hours"`
	StartedAt     time.Time     `yaml:"started_at,omitempty"`
	CheckpointAt  time.Time     `yaml:"checkpoint_at,omitempty"`
	MustConclude  time.Time     `yaml:"must_conclude_by,omitempty"`
	Decision      SpikeDecision `yaml:"decision,omitempty"`
	ParentSpikeID string        `yaml:"parent_spike_id,omitempty"`
	ChildSpikeID  string        `yaml:"child_spike_id,omitempty"`
}

// Started reports whether the spike clock has been started.
func (b *SpikeBudget) Started() bool {
	return b != nil && !b.StartedAt.IsZero()
}

// Concluded reports whether a decision has been recorded.
func (b *SpikeBudget) Concluded() bool {
	return b != nil && b.Decision != ""
}

// SpikeStatus is a point-in-time view of a running spike. OnTrack means the
// clock is still inside the time box; PastCheckpoint flips at the 50% mark
// and is a nudge to conclude early, not a failure state.
type SpikeStatus struct {
	TaskID         string        `yaml:"task_id"`
	OnTrack        bool          `yaml:"on_track"`
	PastCheckpoint bool          `yaml:"past_checkpoint"`
	Overdue        bool          `yaml:"overdue"`
	Remaining      time.Duration `yaml:"remaining"`
	Elapsed        time.Duration `yaml:"elapsed"`
}
