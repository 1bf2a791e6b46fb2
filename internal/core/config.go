// Package core contains the engine logic: the dependency graph, hook
// runner, mode controller, spike timer, session manager, and the driver
// loop that ties them together.
package core

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/srstomp/ohno/pkg/models"
)

// validPrefixPattern matches uppercase alphanumeric prefixes between 1 and 10 characters.
var validPrefixPattern = regexp.MustCompile(`^[A-Z0-9]{1,10}$`)

// ConfigLoader loads and validates the engine configuration from the
// project's .ohnorc file.
type ConfigLoader interface {
	Load() (*models.EngineConfig, error)
	Validate(cfg *models.EngineConfig) error
}

// viperConfigLoader implements ConfigLoader using Viper for reading the
// YAML configuration file.
type viperConfigLoader struct {
	basePath string
}

// NewConfigLoader creates a ConfigLoader that reads .ohnorc from basePath.
func NewConfigLoader(basePath string) ConfigLoader {
	return &viperConfigLoader{basePath: basePath}
}

// DefaultEngineConfig returns an EngineConfig populated with sensible defaults.
func DefaultEngineConfig() *models.EngineConfig {
	return &models.EngineConfig{
		DefaultMode:          models.ModeSupervised,
		TaskIDPrefix:         "TASK",
		TaskIDPadWidth:       5,
		DefaultPriority:      models.P2,
		ActionTimeout:        2 * time.Minute,
		SpikeDefaultHours:    4,
		Hooks:                models.DefaultHookTable(),
		ClassifierRules:      DefaultSkillRules(),
		BlockedAlertHours:    24,
		MaxPendingAlertCount: 50,
	}
}

// Load reads the .ohnorc file from the base path. A missing file yields the
// defaults. Hook overrides replace the action list of the named point only;
// unnamed points keep their built-in actions.
func (l *viperConfigLoader) Load() (*models.EngineConfig, error) {
	cfg := DefaultEngineConfig()

	v := viper.New()
	v.SetConfigName(".ohnorc")
	v.SetConfigType("yaml")
	v.AddConfigPath(l.basePath)

	v.SetDefault("default_mode", string(cfg.DefaultMode))
	v.SetDefault("task_id.prefix", cfg.TaskIDPrefix)
	v.SetDefault("task_id.pad_width", cfg.TaskIDPadWidth)
	v.SetDefault("defaults.priority", string(cfg.DefaultPriority))
	v.SetDefault("hooks.action_timeout", cfg.ActionTimeout.String())
	v.SetDefault("spike.default_hours", cfg.SpikeDefaultHours)
	v.SetDefault("alerts.blocked_hours", cfg.BlockedAlertHours)
	v.SetDefault("alerts.max_pending", cfg.MaxPendingAlertCount)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading .ohnorc: %w", err)
	}

	cfg.DefaultMode = models.Mode(v.GetString("default_mode"))
	cfg.TaskIDPrefix = v.GetString("task_id.prefix")
	if v.IsSet("task_id.pad_width") {
		cfg.TaskIDPadWidth = v.GetInt("task_id.pad_width")
	}
	cfg.DefaultPriority = models.Priority(v.GetString("defaults.priority"))
	cfg.ActionTimeout = v.GetDuration("hooks.action_timeout")
	cfg.SpikeDefaultHours = v.GetFloat64("spike.default_hours")
	cfg.BlockedAlertHours = v.GetFloat64("alerts.blocked_hours")
	cfg.MaxPendingAlertCount = v.GetInt("alerts.max_pending")

	for point := range models.ValidHookPoints {
		key := "hooks.table." + string(point)
		if !v.IsSet(key) {
			continue
		}
		var specs []models.ActionSpec
		if err := v.UnmarshalKey(key, &specs); err != nil {
			return nil, fmt.Errorf("reading .ohnorc: hooks for %s: %w", point, err)
		}
		cfg.Hooks[point] = specs
	}

	if v.IsSet("classifier_rules") {
		var rules []models.SkillRule
		if err := v.UnmarshalKey("classifier_rules", &rules); err != nil {
			return nil, fmt.Errorf("reading .ohnorc: classifier rules: %w", err)
		}
		cfg.ClassifierRules = rules
	}

	return cfg, nil
}

// Validate checks an EngineConfig for invalid values and returns a clear
// error message identifying every problem found.
func (l *viperConfigLoader) Validate(cfg *models.EngineConfig) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}

	var errs []string

	if !models.ValidModes[cfg.DefaultMode] {
		errs = append(errs, fmt.Sprintf(
			"default_mode %q is invalid, must be one of: supervised, semi-auto, autonomous",
			cfg.DefaultMode,
		))
	}

	if cfg.TaskIDPrefix == "" || !validPrefixPattern.MatchString(cfg.TaskIDPrefix) {
		errs = append(errs, fmt.Sprintf(
			"task_id.prefix %q is invalid, must match [A-Z0-9]{1,10}",
			cfg.TaskIDPrefix,
		))
	}

	if cfg.TaskIDPadWidth < 0 || cfg.TaskIDPadWidth > 10 {
		errs = append(errs, fmt.Sprintf(
			"task_id.pad_width %d is invalid, must be between 0 and 10",
			cfg.TaskIDPadWidth,
		))
	}

	if cfg.DefaultPriority != "" && !models.ValidPriorities[cfg.DefaultPriority] {
		errs = append(errs, fmt.Sprintf(
			"defaults.priority %q is invalid, must be one of: P0, P1, P2, P3",
			cfg.DefaultPriority,
		))
	}

	if cfg.ActionTimeout < 0 {
		errs = append(errs, fmt.Sprintf(
			"hooks.action_timeout must be non-negative, got %s", cfg.ActionTimeout,
		))
	}

	if cfg.SpikeDefaultHours <= 0 {
		errs = append(errs, fmt.Sprintf(
			"spike.default_hours must be positive, got %g", cfg.SpikeDefaultHours,
		))
	}

	for point, specs := range cfg.Hooks {
		if !models.ValidHookPoints[point] {
			errs = append(errs, fmt.Sprintf("hooks.table key %q is not a valid hook point", point))
			continue
		}
		for _, spec := range specs {
			if spec.Name == "" {
				errs = append(errs, fmt.Sprintf("hooks.table.%s contains an action with no name", point))
			}
			if spec.Kind != "" && spec.Kind != models.ActionFatal && spec.Kind != models.ActionAdvisory {
				errs = append(errs, fmt.Sprintf(
					"hooks.table.%s action %q has invalid kind %q, must be fatal or advisory",
					point, spec.Name, spec.Kind,
				))
			}
			for _, m := range spec.Modes {
				if !models.ValidModes[m] {
					errs = append(errs, fmt.Sprintf(
						"hooks.table.%s action %q restricts to unknown mode %q",
						point, spec.Name, m,
					))
				}
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("engine config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
