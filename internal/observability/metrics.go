package observability

import (
	"fmt"
	"time"
)

// Metrics holds calculated metrics derived from the event log.
type Metrics struct {
	TasksStarted    int            `json:"tasks_started"`
	TasksCompleted  int            `json:"tasks_completed"`
	TasksBlocked    int            `json:"tasks_blocked"`
	TasksForced     int            `json:"tasks_forced"`
	SpikesConcluded map[string]int `json:"spikes_concluded"`
	HooksRun        int            `json:"hooks_run"`
	HooksFailed     int            `json:"hooks_failed"`
	Sessions        int            `json:"sessions"`
	Checkpoints     int            `json:"checkpoints"`
	EventCount      int            `json:"event_count"`
	OldestEvent     *time.Time     `json:"oldest_event,omitempty"`
	NewestEvent     *time.Time     `json:"newest_event,omitempty"`
}

// MetricsCalculator derives metrics from the event log.
type MetricsCalculator interface {
	Calculate(since time.Time) (*Metrics, error)
}

type metricsCalculator struct {
	eventLog EventLog
}

// NewMetricsCalculator creates a MetricsCalculator that reads from the given EventLog.
func NewMetricsCalculator(eventLog EventLog) MetricsCalculator {
	return &metricsCalculator{eventLog: eventLog}
}

// Calculate reads all events since the given time and aggregates them.
func (mc *metricsCalculator) Calculate(since time.Time) (*Metrics, error) {
	events, err := mc.eventLog.Read(EventFilter{Since: &since})
	if err != nil {
		return nil, fmt.Errorf("reading events for metrics: %w", err)
	}

	m := &Metrics{
		SpikesConcluded: make(map[string]int),
	}
	m.EventCount = len(events)

	for i, event := range events {
		if i == 0 {
			t := event.Time
			m.OldestEvent = &t
		}
		t := event.Time
		m.NewestEvent = &t

		switch event.Type {
		case "task.started":
			m.TasksStarted++
		case "task.done":
			m.TasksCompleted++
		case "task.blocked":
			m.TasksBlocked++
		case "task.force_completed":
			m.TasksForced++
		case "spike.concluded":
			if decision, ok := event.Data["decision"].(string); ok {
				m.SpikesConcluded[decision]++
			}
		case "hook.run":
			m.HooksRun++
		case "hook.failed":
			m.HooksFailed++
		case "session.started":
			m.Sessions++
		case "session.checkpoint":
			m.Checkpoints++
		}
	}
	return m, nil
}
