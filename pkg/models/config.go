package models

import "time"

// EngineConfig holds the resolved engine configuration loaded from .ohnorc
// at session start. The hook table is resolved once and passed explicitly
// into the driver loop; it is immutable during a run.
type EngineConfig struct {
	DefaultMode          Mode          `yaml:"default_mode" mapstructure:"default_mode"`
	TaskIDPrefix         string        `yaml:"task_id_prefix" mapstructure:"task_id_prefix"`
	TaskIDPadWidth       int           `yaml:"task_id_pad_width" mapstructure:"task_id_pad_width"`
	DefaultPriority      Priority      `yaml:"default_priority" mapstructure:"default_priority"`
	ActionTimeout        time.Duration `yaml:"action_timeout" mapstructure:"action_timeout"`
	SpikeDefaultHours    float64       `yaml:"spike_default_hours" mapstructure:"spike_default_hours"`
	Hooks                HookTable     `yaml:"hooks" mapstructure:"hooks"`
	ClassifierRules      []SkillRule   `yaml:"classifier_rules" mapstructure:"classifier_rules"`
	BlockedAlertHours    float64       `yaml:"blocked_alert_hours" mapstructure:"blocked_alert_hours"`
	MaxPendingAlertCount int           `yaml:"max_pending_alert_count" mapstructure:"max_pending_alert_count"`
}

// SkillRule maps task text keywords to a skill the driver may consult.
type SkillRule struct {
	Skill    string   `yaml:"skill" mapstructure:"skill"`
	Keywords []string `yaml:"keywords" mapstructure:"keywords"`
}
