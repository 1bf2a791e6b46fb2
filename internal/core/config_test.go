package core

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/srstomp/ohno/pkg/models"
)

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, ".ohnorc"), []byte(content), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
}

func TestConfigLoad_MissingFileYieldsDefaults(t *testing.T) {
	loader := NewConfigLoader(t.TempDir())

	cfg, err := loader.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DefaultMode != models.ModeSupervised {
		t.Fatalf("expected supervised default, got %s", cfg.DefaultMode)
	}
	if cfg.TaskIDPrefix != "TASK" || cfg.TaskIDPadWidth != 5 {
		t.Fatalf("expected TASK/5 ID defaults, got %s/%d", cfg.TaskIDPrefix, cfg.TaskIDPadWidth)
	}
	if cfg.ActionTimeout != 2*time.Minute {
		t.Fatalf("expected 2m action timeout, got %s", cfg.ActionTimeout)
	}
	if cfg.SpikeDefaultHours != 4 {
		t.Fatalf("expected 4h spike default, got %g", cfg.SpikeDefaultHours)
	}
	if len(cfg.Hooks[models.HookPreTask]) == 0 {
		t.Fatal("expected built-in pre-task actions")
	}
}

func TestConfigLoad_Overrides(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
default_mode: semi-auto
task_id:
  prefix: OH
  pad_width: 4
defaults:
  priority: P1
hooks:
  action_timeout: 30s
spike:
  default_hours: 2
alerts:
  blocked_hours: 8
  max_pending: 10
`)
	loader := NewConfigLoader(dir)

	cfg, err := loader.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DefaultMode != models.ModeSemiAuto {
		t.Fatalf("expected semi-auto, got %s", cfg.DefaultMode)
	}
	if cfg.TaskIDPrefix != "OH" || cfg.TaskIDPadWidth != 4 {
		t.Fatalf("expected OH/4, got %s/%d", cfg.TaskIDPrefix, cfg.TaskIDPadWidth)
	}
	if cfg.DefaultPriority != models.P1 {
		t.Fatalf("expected P1, got %s", cfg.DefaultPriority)
	}
	if cfg.ActionTimeout != 30*time.Second {
		t.Fatalf("expected 30s, got %s", cfg.ActionTimeout)
	}
	if cfg.SpikeDefaultHours != 2 {
		t.Fatalf("expected 2h, got %g", cfg.SpikeDefaultHours)
	}
	if cfg.BlockedAlertHours != 8 || cfg.MaxPendingAlertCount != 10 {
		t.Fatalf("expected 8/10 alert thresholds, got %g/%d", cfg.BlockedAlertHours, cfg.MaxPendingAlertCount)
	}
}

func TestConfigLoad_HookTableOverrideReplacesPointOnly(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
hooks:
  table:
    post-task:
      - name: custom-sync
        kind: fatal
        command: ./sync.sh
`)
	loader := NewConfigLoader(dir)

	cfg, err := loader.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	postTask := cfg.Hooks[models.HookPostTask]
	if len(postTask) != 1 || postTask[0].Name != "custom-sync" {
		t.Fatalf("expected post-task replaced with custom-sync, got %+v", postTask)
	}
	if postTask[0].Kind != models.ActionFatal || postTask[0].Command != "./sync.sh" {
		t.Fatalf("expected kind/command carried, got %+v", postTask[0])
	}

	// Unnamed points keep the built-in actions.
	if len(cfg.Hooks[models.HookPreTask]) != len(models.DefaultHookTable()[models.HookPreTask]) {
		t.Fatalf("expected pre-task untouched, got %+v", cfg.Hooks[models.HookPreTask])
	}
}

func TestConfigValidate(t *testing.T) {
	loader := NewConfigLoader(t.TempDir())

	if err := loader.Validate(DefaultEngineConfig()); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*models.EngineConfig)
		want   string
	}{
		{"invalid mode", func(c *models.EngineConfig) { c.DefaultMode = "yolo" }, "default_mode"},
		{"empty prefix", func(c *models.EngineConfig) { c.TaskIDPrefix = "" }, "task_id.prefix"},
		{"lowercase prefix", func(c *models.EngineConfig) { c.TaskIDPrefix = "task" }, "task_id.prefix"},
		{"pad width out of range", func(c *models.EngineConfig) { c.TaskIDPadWidth = 11 }, "pad_width"},
		{"invalid priority", func(c *models.EngineConfig) { c.DefaultPriority = "P9" }, "defaults.priority"},
		{"negative timeout", func(c *models.EngineConfig) { c.ActionTimeout = -time.Second }, "action_timeout"},
		{"zero spike hours", func(c *models.EngineConfig) { c.SpikeDefaultHours = 0 }, "default_hours"},
		{"unknown hook point", func(c *models.EngineConfig) {
			c.Hooks[models.HookPoint("mid-task")] = []models.ActionSpec{{Name: "x"}}
		}, "hook point"},
		{"unnamed action", func(c *models.EngineConfig) {
			c.Hooks[models.HookPreTask] = []models.ActionSpec{{Kind: models.ActionFatal}}
		}, "no name"},
		{"invalid kind", func(c *models.EngineConfig) {
			c.Hooks[models.HookPreTask] = []models.ActionSpec{{Name: "x", Kind: "severe"}}
		}, "invalid kind"},
		{"unknown action mode", func(c *models.EngineConfig) {
			c.Hooks[models.HookPreTask] = []models.ActionSpec{{Name: "x", Modes: []models.Mode{"turbo"}}}
		}, "unknown mode"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultEngineConfig()
			tt.mutate(cfg)
			err := loader.Validate(cfg)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}
}

func TestConfigValidate_CollectsAllProblems(t *testing.T) {
	loader := NewConfigLoader(t.TempDir())
	cfg := DefaultEngineConfig()
	cfg.DefaultMode = "yolo"
	cfg.TaskIDPrefix = ""
	cfg.SpikeDefaultHours = -1

	err := loader.Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"default_mode", "task_id.prefix", "default_hours"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected error to mention %q, got %v", want, err)
		}
	}
}
