package observability

import (
	"fmt"
	"time"

	"github.com/srstomp/ohno/pkg/models"
)

// AlertSeverity represents the urgency of an alert.
type AlertSeverity string

const (
	SeverityHigh   AlertSeverity = "high"
	SeverityMedium AlertSeverity = "medium"
	SeverityLow    AlertSeverity = "low"
)

// Alert represents a triggered alert condition.
type Alert struct {
	ID          string        `json:"id"`
	Condition   string        `json:"condition"`
	Severity    AlertSeverity `json:"severity"`
	Message     string        `json:"message"`
	TriggeredAt time.Time     `json:"triggered_at"`
}

// AlertThresholds configures when alerts should fire.
type AlertThresholds struct {
	BlockedHours   float64 `yaml:"blocked_threshold_hours" json:"blocked_threshold_hours"`
	MaxPendingSize int     `yaml:"max_pending_size" json:"max_pending_size"`
}

// DefaultAlertThresholds returns sensible defaults for alert thresholds.
func DefaultAlertThresholds() AlertThresholds {
	return AlertThresholds{
		BlockedHours:   24,
		MaxPendingSize: 50,
	}
}

// TaskLister is the read-only task access the alert engine needs.
type TaskLister interface {
	List(filter models.TaskFilter) ([]models.Task, error)
}

// AlertEngine evaluates alert conditions against current task state.
type AlertEngine interface {
	Evaluate() ([]Alert, error)
}

// alertEngine implements AlertEngine by checking the task store against
// thresholds. It only reads, so it is safe to run alongside a session.
type alertEngine struct {
	tasks      TaskLister
	thresholds AlertThresholds
	now        func() time.Time
}

// NewAlertEngine creates an AlertEngine over the task store.
func NewAlertEngine(tasks TaskLister, thresholds AlertThresholds) AlertEngine {
	return &alertEngine{tasks: tasks, thresholds: thresholds, now: time.Now}
}

// Evaluate checks all alert conditions, returning any triggered alerts.
func (ae *alertEngine) Evaluate() ([]Alert, error) {
	now := ae.now().UTC()
	var alerts []Alert

	blockedAlerts, err := ae.checkBlockedTasks(now)
	if err != nil {
		return nil, fmt.Errorf("checking blocked tasks: %w", err)
	}
	alerts = append(alerts, blockedAlerts...)

	spikeAlerts, err := ae.checkOverdueSpikes(now)
	if err != nil {
		return nil, fmt.Errorf("checking overdue spikes: %w", err)
	}
	alerts = append(alerts, spikeAlerts...)

	backlogAlerts, err := ae.checkPendingSize(now)
	if err != nil {
		return nil, fmt.Errorf("checking pending backlog size: %w", err)
	}
	alerts = append(alerts, backlogAlerts...)

	return alerts, nil
}

// checkBlockedTasks flags tasks blocked longer than the threshold, using the
// last update time as the moment the block started.
func (ae *alertEngine) checkBlockedTasks(now time.Time) ([]Alert, error) {
	blocked, err := ae.tasks.List(models.TaskFilter{Status: []models.TaskStatus{models.StatusBlocked}})
	if err != nil {
		return nil, err
	}

	threshold := time.Duration(ae.thresholds.BlockedHours * float64(time.Hour))
	var alerts []Alert
	for _, t := range blocked {
		if now.Sub(t.Updated) > threshold {
			alerts = append(alerts, Alert{
				ID:          fmt.Sprintf("blocked-%s", t.ID),
				Condition:   "task_blocked_too_long",
				Severity:    SeverityHigh,
				Message:     fmt.Sprintf("task %s has been blocked for more than %.0f hours: %s", t.ID, ae.thresholds.BlockedHours, t.BlockedReason),
				TriggeredAt: now,
			})
		}
	}
	return alerts, nil
}

// checkOverdueSpikes flags started spikes past their must-conclude time
// without a recorded decision.
func (ae *alertEngine) checkOverdueSpikes(now time.Time) ([]Alert, error) {
	spikes, err := ae.tasks.List(models.TaskFilter{
		Type:   []models.TaskType{models.TaskTypeSpike, models.TaskTypeResearch},
		Status: []models.TaskStatus{models.StatusInProgress},
	})
	if err != nil {
		return nil, err
	}

	var alerts []Alert
	for _, t := range spikes {
		if !t.Spike.Started() || t.Spike.Concluded() {
			continue
		}
		if now.After(t.Spike.MustConclude) {
			overBy := now.Sub(t.Spike.MustConclude).Round(time.Minute)
			alerts = append(alerts, Alert{
				ID:          fmt.Sprintf("spike-overdue-%s", t.ID),
				Condition:   "spike_overdue",
				Severity:    SeverityHigh,
				Message:     fmt.Sprintf("spike %s is %s past its time box without a decision", t.ID, overBy),
				TriggeredAt: now,
			})
		}
	}
	return alerts, nil
}

// checkPendingSize flags a pending backlog over the configured maximum.
func (ae *alertEngine) checkPendingSize(now time.Time) ([]Alert, error) {
	pending, err := ae.tasks.List(models.TaskFilter{Status: []models.TaskStatus{models.StatusPending}})
	if err != nil {
		return nil, err
	}

	var alerts []Alert
	if len(pending) > ae.thresholds.MaxPendingSize {
		alerts = append(alerts, Alert{
			ID:          "pending-size",
			Condition:   "pending_backlog_too_large",
			Severity:    SeverityLow,
			Message:     fmt.Sprintf("pending backlog has %d tasks, exceeding the maximum of %d", len(pending), ae.thresholds.MaxPendingSize),
			TriggeredAt: now,
		})
	}
	return alerts, nil
}
