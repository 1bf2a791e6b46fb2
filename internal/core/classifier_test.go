package core

import (
	"testing"

	"github.com/srstomp/ohno/pkg/models"
)

func TestClassify(t *testing.T) {
	classifier := NewSkillClassifier(nil)

	tests := []struct {
		name  string
		title string
		notes []string
		want  []string
	}{
		{"no match", "Write release announcement", nil, nil},
		{"single match", "Fix flaky integration suite", nil, []string{"testing"}},
		{"case insensitive", "Rotate AUTH tokens", nil, []string{"security"}},
		{"multiple sorted", "Add index to speed up slow query", nil, []string{"database", "performance"}},
		{"matches in notes", "Investigate checkout", []string{"suspect the sql migration"}, []string{"database"}},
		{"one skill per rule", "test the test of tests", nil, []string{"testing"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := &models.Task{Title: tt.title}
			for _, n := range tt.notes {
				task.Notes = append(task.Notes, models.Note{Text: n})
			}

			got := classifier.Classify(task)
			if len(got) != len(tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Fatalf("expected %v, got %v", tt.want, got)
				}
			}
		})
	}
}

func TestClassify_CustomRules(t *testing.T) {
	classifier := NewSkillClassifier([]models.SkillRule{
		{Skill: "frontend", Keywords: []string{"css", "layout"}},
	})

	got := classifier.Classify(&models.Task{Title: "Fix layout jump on scroll"})
	if len(got) != 1 || got[0] != "frontend" {
		t.Fatalf("expected [frontend], got %v", got)
	}

	// Custom rules fully replace the defaults.
	got = classifier.Classify(&models.Task{Title: "Fix flaky test"})
	if len(got) != 0 {
		t.Fatalf("expected no match with custom rules, got %v", got)
	}
}
