package core

import (
	"os"
	"path/filepath"
	"testing"
)

func TestGenerateTaskID_Sequential(t *testing.T) {
	gen := NewTaskIDGenerator(t.TempDir(), "TASK", 5)

	first, err := gen.GenerateTaskID()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := gen.GenerateTaskID()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if first != "TASK-00001" || second != "TASK-00002" {
		t.Fatalf("expected TASK-00001 then TASK-00002, got %s then %s", first, second)
	}
}

func TestGenerateTaskID_CustomPrefixAndPad(t *testing.T) {
	gen := NewTaskIDGenerator(t.TempDir(), "OH", 3)

	id, err := gen.GenerateTaskID()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "OH-001" {
		t.Fatalf("expected OH-001, got %s", id)
	}
}

func TestGenerateTaskID_NoPadding(t *testing.T) {
	gen := NewTaskIDGenerator(t.TempDir(), "TASK", 0)

	id, err := gen.GenerateTaskID()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "TASK-1" {
		t.Fatalf("expected TASK-1, got %s", id)
	}
}

func TestGenerateTaskID_ResumesFromCounterFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".task_counter"), []byte("41"), 0o600); err != nil {
		t.Fatalf("seeding counter: %v", err)
	}

	gen := NewTaskIDGenerator(dir, "TASK", 5)
	id, err := gen.GenerateTaskID()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "TASK-00042" {
		t.Fatalf("expected TASK-00042, got %s", id)
	}
}

func TestGenerateTaskID_CorruptCounter(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".task_counter"), []byte("not-a-number"), 0o600); err != nil {
		t.Fatalf("seeding counter: %v", err)
	}

	gen := NewTaskIDGenerator(dir, "TASK", 5)
	if _, err := gen.GenerateTaskID(); err == nil {
		t.Fatal("expected error for corrupt counter file")
	}
}

func TestGenerateTaskID_EmptyPrefixDefaults(t *testing.T) {
	gen := NewTaskIDGenerator(t.TempDir(), "", 5)

	id, err := gen.GenerateTaskID()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "TASK-00001" {
		t.Fatalf("expected TASK-00001, got %s", id)
	}
}
