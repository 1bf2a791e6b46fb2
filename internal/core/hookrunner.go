package core

import (
	"context"
	"fmt"
	"time"

	"github.com/srstomp/ohno/pkg/models"
)

// HookContext carries the engine state an action may need when it runs.
type HookContext struct {
	Point     models.HookPoint
	Mode      models.Mode
	SessionID string
	TaskID    string
	// Extra carries point-specific values, e.g. the blocker reason for
	// on-blocker or the story ID for post-story.
	Extra map[string]string
}

// ActionExecutor executes a single configured action. The production
// implementation shells out; tests inject fakes. Execute must honour ctx
// cancellation and report timeouts in the returned result.
type ActionExecutor interface {
	Execute(ctx context.Context, spec models.ActionSpec, hctx HookContext) models.ActionResult
}

// HookRunner runs the configured actions for a lifecycle point in declared
// order. A failing fatal action aborts the remaining actions and surfaces
// HookFailed; a failing advisory action becomes a warning and execution
// continues. The table is resolved once at construction and never mutated.
type HookRunner struct {
	table          models.HookTable
	executor       ActionExecutor
	defaultTimeout time.Duration
}

// NewHookRunner creates a HookRunner over the given table. defaultTimeout
// applies to actions that do not set their own.
func NewHookRunner(table models.HookTable, executor ActionExecutor, defaultTimeout time.Duration) *HookRunner {
	if defaultTimeout <= 0 {
		defaultTimeout = 2 * time.Minute
	}
	return &HookRunner{
		table:          table,
		executor:       executor,
		defaultTimeout: defaultTimeout,
	}
}

// Actions returns the configured action list for a point. Unknown points
// yield an empty list, which Run treats as a no-op.
func (r *HookRunner) Actions(point models.HookPoint) []models.ActionSpec {
	specs := r.table[point]
	out := make([]models.ActionSpec, len(specs))
	copy(out, specs)
	return out
}

// Run executes all actions configured at the point. The returned HookResult
// covers every action reached, including the failing one; on a fatal failure
// the error is a HookFailedError and the task transition in flight must not
// commit.
func (r *HookRunner) Run(ctx context.Context, point models.HookPoint, hctx HookContext) (*models.HookResult, error) {
	if !models.ValidHookPoints[point] {
		return nil, fmt.Errorf("running hook: unknown point %q", point)
	}
	hctx.Point = point

	result := &models.HookResult{Point: point}
	for _, spec := range r.table[point] {
		if !spec.RunsIn(hctx.Mode) {
			result.Results = append(result.Results, models.ActionResult{
				Action: spec.Name,
				Status: "skipped",
			})
			continue
		}

		if err := ctx.Err(); err != nil {
			return result, &HookFailedError{Point: point, Action: spec.Name, Cause: err}
		}

		actionResult := r.runOne(ctx, spec, hctx)
		result.Results = append(result.Results, actionResult)

		if actionResult.Status == "failed" || actionResult.Status == "timeout" {
			if spec.Kind == models.ActionFatal {
				return result, &HookFailedError{
					Point:  point,
					Action: spec.Name,
					Cause:  fmt.Errorf("%s", actionResult.Err),
				}
			}
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("%s: %s", spec.Name, actionResult.Err))
		}
	}
	return result, nil
}

func (r *HookRunner) runOne(ctx context.Context, spec models.ActionSpec, hctx HookContext) models.ActionResult {
	timeout := spec.Timeout
	if timeout <= 0 {
		timeout = r.defaultTimeout
	}
	actionCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	result := r.executor.Execute(actionCtx, spec, hctx)
	result.Action = spec.Name
	if result.Duration == 0 {
		result.Duration = time.Since(start)
	}
	if result.Status == "" {
		result.Status = "success"
	}
	return result
}
