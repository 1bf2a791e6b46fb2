package observability

import (
	"testing"
	"time"
)

func TestMetricsCalculate(t *testing.T) {
	log, _ := newTestEventLog(t)
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	seed := []Event{
		{Type: "session.started"},
		{Type: "task.started"},
		{Type: "hook.run"},
		{Type: "task.done"},
		{Type: "task.started"},
		{Type: "task.blocked"},
		{Type: "hook.failed"},
		{Type: "task.force_completed"},
		{Type: "spike.concluded", Data: map[string]any{"decision": "GO"}},
		{Type: "spike.concluded", Data: map[string]any{"decision": "MORE-INFO"}},
		{Type: "spike.concluded", Data: map[string]any{"decision": "GO"}},
		{Type: "session.checkpoint"},
	}
	for i, event := range seed {
		event.Time = base.Add(time.Duration(i) * time.Minute)
		if err := log.Write(event); err != nil {
			t.Fatalf("writing event: %v", err)
		}
	}

	calc := NewMetricsCalculator(log)
	m, err := calc.Calculate(base.Add(-time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if m.TasksStarted != 2 || m.TasksCompleted != 1 || m.TasksBlocked != 1 || m.TasksForced != 1 {
		t.Fatalf("task counters wrong: %+v", m)
	}
	if m.HooksRun != 1 || m.HooksFailed != 1 {
		t.Fatalf("hook counters wrong: %+v", m)
	}
	if m.Sessions != 1 || m.Checkpoints != 1 {
		t.Fatalf("session counters wrong: %+v", m)
	}
	if m.SpikesConcluded["GO"] != 2 || m.SpikesConcluded["MORE-INFO"] != 1 {
		t.Fatalf("spike decisions wrong: %+v", m.SpikesConcluded)
	}
	if m.EventCount != len(seed) {
		t.Fatalf("expected %d events counted, got %d", len(seed), m.EventCount)
	}
	if m.OldestEvent == nil || m.NewestEvent == nil {
		t.Fatal("expected oldest/newest timestamps set")
	}
	if !m.OldestEvent.Equal(base) || !m.NewestEvent.Equal(base.Add(11*time.Minute)) {
		t.Fatalf("timestamps wrong: %v / %v", m.OldestEvent, m.NewestEvent)
	}
}

func TestMetricsCalculate_SinceWindow(t *testing.T) {
	log, _ := newTestEventLog(t)
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		if err := log.Write(Event{Time: base.Add(time.Duration(i) * time.Hour), Type: "task.started"}); err != nil {
			t.Fatalf("writing event: %v", err)
		}
	}

	calc := NewMetricsCalculator(log)
	m, err := calc.Calculate(base.Add(2 * time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.TasksStarted != 2 {
		t.Fatalf("expected 2 starts inside the window, got %d", m.TasksStarted)
	}
}

func TestMetricsCalculate_EmptyLog(t *testing.T) {
	log, _ := newTestEventLog(t)

	calc := NewMetricsCalculator(log)
	m, err := calc.Calculate(time.Time{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.EventCount != 0 || m.OldestEvent != nil {
		t.Fatalf("expected empty metrics, got %+v", m)
	}
}
