package core

import (
	"testing"

	"github.com/srstomp/ohno/pkg/models"
)

func TestShouldPause(t *testing.T) {
	tests := []struct {
		mode     models.Mode
		boundary models.Boundary
		want     bool
	}{
		{models.ModeSupervised, models.BoundaryTask, true},
		{models.ModeSupervised, models.BoundaryStory, true},
		{models.ModeSupervised, models.BoundaryEpic, true},
		{models.ModeSemiAuto, models.BoundaryTask, false},
		{models.ModeSemiAuto, models.BoundaryStory, true},
		{models.ModeSemiAuto, models.BoundaryEpic, true},
		{models.ModeAutonomous, models.BoundaryTask, false},
		{models.ModeAutonomous, models.BoundaryStory, false},
		{models.ModeAutonomous, models.BoundaryEpic, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.mode)+"/"+string(tt.boundary), func(t *testing.T) {
			if got := ShouldPause(tt.mode, tt.boundary); got != tt.want {
				t.Fatalf("ShouldPause(%s, %s) = %v, want %v", tt.mode, tt.boundary, got, tt.want)
			}
		})
	}
}

func TestShouldPause_UnknownModePausesEverywhere(t *testing.T) {
	for _, boundary := range []models.Boundary{models.BoundaryTask, models.BoundaryStory, models.BoundaryEpic} {
		if !ShouldPause(models.Mode("typo"), boundary) {
			t.Fatalf("unknown mode must pause at %s", boundary)
		}
	}
}

func TestShouldPause_Pure(t *testing.T) {
	// Identical inputs always yield identical outputs.
	for i := 0; i < 3; i++ {
		if ShouldPause(models.ModeSemiAuto, models.BoundaryTask) {
			t.Fatal("result changed between calls")
		}
	}
}
