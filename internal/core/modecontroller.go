package core

import "github.com/srstomp/ohno/pkg/models"

// ShouldPause reports whether the driver loop should suspend and return
// control to the external actor after crossing the given boundary in the
// given mode. It is a pure function: identical inputs always yield identical
// outputs. "Pause" is a structured status for the caller, not a blocking
// wait inside the engine.
//
// supervised pauses at every boundary; semi-auto continues through task
// boundaries; autonomous continues through task and story boundaries and
// pauses only at epics. Unknown modes pause everywhere, which is the safest
// reading of a misconfigured session.
func ShouldPause(mode models.Mode, boundary models.Boundary) bool {
	switch mode {
	case models.ModeSupervised:
		return true
	case models.ModeSemiAuto:
		return boundary != models.BoundaryTask
	case models.ModeAutonomous:
		return boundary == models.BoundaryEpic
	default:
		return true
	}
}
