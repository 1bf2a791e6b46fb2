package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/srstomp/ohno/pkg/models"
)

// Sentinel errors for programmatic checking via errors.Is().
var (
	// ErrNotFound indicates an unknown task or session id.
	ErrNotFound = errors.New("not found")

	// ErrCycleDetected indicates an edge that would make the dependency graph cyclic.
	ErrCycleDetected = errors.New("cycle detected")

	// ErrAlreadyInProgress indicates a violation of the single-active-task discipline.
	ErrAlreadyInProgress = errors.New("task already in progress")

	// ErrHookFailed indicates a fatal hook action failure.
	ErrHookFailed = errors.New("hook failed")

	// ErrDecisionRequired indicates a spike past its time box without a conclusion.
	ErrDecisionRequired = errors.New("spike decision required")

	// ErrMaxRespikeExceeded indicates a second MORE-INFO on the same spike lineage.
	ErrMaxRespikeExceeded = errors.New("max respike exceeded")

	// ErrStaleSnapshot indicates a snapshot referencing tasks that no longer exist.
	ErrStaleSnapshot = errors.New("stale snapshot")
)

// NotFoundError reports an unknown task or session id.
type NotFoundError struct {
	Kind string // "task" or "session"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Kind, e.ID, ErrNotFound.Error())
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// Remediation returns a short human-facing hint.
func (e *NotFoundError) Remediation() string {
	return fmt.Sprintf("list %ss to find a valid id", e.Kind)
}

// CycleDetectedError reports a rejected dependency edge. The graph is never
// mutated when this error is returned.
type CycleDetectedError struct {
	From string
	To   string
	Path []string
}

func (e *CycleDetectedError) Error() string {
	if len(e.Path) > 0 {
		return fmt.Sprintf("%s: adding edge %s -> %s would close cycle %s",
			ErrCycleDetected.Error(), e.From, e.To, strings.Join(e.Path, " -> "))
	}
	return fmt.Sprintf("%s: adding edge %s -> %s", ErrCycleDetected.Error(), e.From, e.To)
}

func (e *CycleDetectedError) Unwrap() error { return ErrCycleDetected }

func (e *CycleDetectedError) Remediation() string {
	return "remove one of the conflicting dependencies before retrying"
}

// AlreadyInProgressError reports an attempt to start a second task while
// another is active within the session.
type AlreadyInProgressError struct {
	ActiveTaskID    string
	RequestedTaskID string
}

func (e *AlreadyInProgressError) Error() string {
	return fmt.Sprintf("%s: %s is active, cannot start %s",
		ErrAlreadyInProgress.Error(), e.ActiveTaskID, e.RequestedTaskID)
}

func (e *AlreadyInProgressError) Unwrap() error { return ErrAlreadyInProgress }

func (e *AlreadyInProgressError) Remediation() string {
	return fmt.Sprintf("complete or block %s before starting another task", e.ActiveTaskID)
}

// HookFailedError reports a fatal action failure at a hook point. The
// lifecycle transition that triggered the hook is aborted; the task stays in
// its pre-hook state.
type HookFailedError struct {
	Point  models.HookPoint
	Action string
	Cause  error
}

func (e *HookFailedError) Error() string {
	return fmt.Sprintf("%s: %s action %q: %v", ErrHookFailed.Error(), e.Point, e.Action, e.Cause)
}

func (e *HookFailedError) Unwrap() error { return ErrHookFailed }

func (e *HookFailedError) Remediation() string {
	return fmt.Sprintf("fix the %q action and retry the hook, or force-override", e.Action)
}

// DecisionRequiredError reports a spike whose time box elapsed without a
// recorded decision. The engine never auto-kills the task.
type DecisionRequiredError struct {
	TaskID  string
	Elapsed time.Duration
}

func (e *DecisionRequiredError) Error() string {
	return fmt.Sprintf("%s: spike %s ran %s past its time box",
		ErrDecisionRequired.Error(), e.TaskID, e.Elapsed.Round(time.Minute))
}

func (e *DecisionRequiredError) Unwrap() error { return ErrDecisionRequired }

func (e *DecisionRequiredError) Remediation() string {
	return "conclude the spike with GO, NO-GO, PIVOT, or MORE-INFO"
}

// MaxRespikeExceededError reports a second MORE-INFO conclusion on the same
// spike lineage.
type MaxRespikeExceededError struct {
	TaskID        string
	ParentSpikeID string
}

func (e *MaxRespikeExceededError) Error() string {
	return fmt.Sprintf("%s: spike %s already descends from %s",
		ErrMaxRespikeExceeded.Error(), e.TaskID, e.ParentSpikeID)
}

func (e *MaxRespikeExceededError) Unwrap() error { return ErrMaxRespikeExceeded }

func (e *MaxRespikeExceededError) Remediation() string {
	return "conclude with GO, NO-GO, or PIVOT; the lineage has used its follow-up"
}

// StaleSnapshotError reports a snapshot whose referenced tasks no longer
// exist in the task store.
type StaleSnapshotError struct {
	SessionID      string
	MissingTaskIDs []string
}

func (e *StaleSnapshotError) Error() string {
	return fmt.Sprintf("%s: session %s references missing tasks %s",
		ErrStaleSnapshot.Error(), e.SessionID, strings.Join(e.MissingTaskIDs, ", "))
}

func (e *StaleSnapshotError) Unwrap() error { return ErrStaleSnapshot }

func (e *StaleSnapshotError) Remediation() string {
	return "re-read the current session context instead of resuming this snapshot"
}

// Remediator is implemented by errors that carry a human-facing hint.
type Remediator interface {
	Remediation() string
}

// RemediationFor extracts the remediation hint from an error chain, or
// returns an empty string when none is available.
func RemediationFor(err error) string {
	var r Remediator
	if errors.As(err, &r) {
		return r.Remediation()
	}
	return ""
}
