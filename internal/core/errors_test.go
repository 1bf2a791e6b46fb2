package core

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/srstomp/ohno/pkg/models"
)

func TestErrorChains(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"not found", &NotFoundError{Kind: "task", ID: "TASK-00001"}, ErrNotFound},
		{"cycle", &CycleDetectedError{From: "a", To: "b"}, ErrCycleDetected},
		{"in progress", &AlreadyInProgressError{ActiveTaskID: "a", RequestedTaskID: "b"}, ErrAlreadyInProgress},
		{"hook failed", &HookFailedError{Point: models.HookPreTask, Action: "x", Cause: errors.New("boom")}, ErrHookFailed},
		{"decision required", &DecisionRequiredError{TaskID: "a", Elapsed: time.Hour}, ErrDecisionRequired},
		{"max respike", &MaxRespikeExceededError{TaskID: "a", ParentSpikeID: "b"}, ErrMaxRespikeExceeded},
		{"stale snapshot", &StaleSnapshotError{SessionID: "s", MissingTaskIDs: []string{"a"}}, ErrStaleSnapshot},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.sentinel) {
				t.Fatalf("errors.Is(%T, sentinel) = false", tt.err)
			}
			// The chain survives fmt.Errorf wrapping.
			wrapped := fmt.Errorf("outer context: %w", tt.err)
			if !errors.Is(wrapped, tt.sentinel) {
				t.Fatalf("wrapped chain broken for %T", tt.err)
			}
		})
	}
}

func TestRemediationFor(t *testing.T) {
	err := fmt.Errorf("starting task: %w", &AlreadyInProgressError{
		ActiveTaskID:    "TASK-00001",
		RequestedTaskID: "TASK-00002",
	})

	hint := RemediationFor(err)
	if !strings.Contains(hint, "TASK-00001") {
		t.Fatalf("expected hint naming the active task, got %q", hint)
	}
}

func TestRemediationFor_PlainError(t *testing.T) {
	if hint := RemediationFor(errors.New("nothing special")); hint != "" {
		t.Fatalf("expected empty hint, got %q", hint)
	}
}

func TestCycleDetectedError_MessageIncludesPath(t *testing.T) {
	err := &CycleDetectedError{
		From: "TASK-00003",
		To:   "TASK-00001",
		Path: []string{"TASK-00003", "TASK-00001", "TASK-00002", "TASK-00003"},
	}
	msg := err.Error()
	if !strings.Contains(msg, "TASK-00003 -> TASK-00001 -> TASK-00002 -> TASK-00003") {
		t.Fatalf("expected the cycle path in the message, got %q", msg)
	}
}
