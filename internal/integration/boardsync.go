package integration

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/srstomp/ohno/internal/core"
	"github.com/srstomp/ohno/pkg/models"
)

// boardColumns fixes the column order of the exported board.
var boardColumns = []models.TaskStatus{
	models.StatusPending,
	models.StatusInProgress,
	models.StatusBlocked,
	models.StatusDone,
}

var columnTitles = map[models.TaskStatus]string{
	models.StatusPending:    "Backlog",
	models.StatusInProgress: "In Progress",
	models.StatusBlocked:    "Blocked",
	models.StatusDone:       "Done",
}

// BoardExporter writes a read-only markdown snapshot of the task board. It
// only consumes store state and never mutates it, so it is safe to run from
// the sync hook action or on a timer alongside an active session.
type BoardExporter struct {
	tasks core.TaskReader
	now   func() time.Time
}

// NewBoardExporter creates a BoardExporter over the task store.
func NewBoardExporter(tasks core.TaskReader) *BoardExporter {
	return &BoardExporter{tasks: tasks, now: time.Now}
}

// Export writes the board snapshot to the given path, creating parent
// directories as needed.
func (b *BoardExporter) Export(path string) error {
	rendered, err := b.Render()
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("exporting board: creating directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(rendered), 0o600); err != nil {
		return fmt.Errorf("exporting board: writing %s: %w", path, err)
	}
	return nil
}

// Render produces the markdown board from the current store state.
func (b *BoardExporter) Render() (string, error) {
	var sb strings.Builder
	sb.WriteString("# Task Board\n\n")
	sb.WriteString(fmt.Sprintf("_Updated %s_\n", b.now().Format(time.RFC3339)))

	for _, status := range boardColumns {
		tasks, err := b.tasks.List(models.TaskFilter{Status: []models.TaskStatus{status}})
		if err != nil {
			return "", fmt.Errorf("rendering board: listing %s tasks: %w", status, err)
		}

		sb.WriteString(fmt.Sprintf("\n## %s (%d)\n\n", columnTitles[status], len(tasks)))
		if len(tasks) == 0 {
			sb.WriteString("_empty_\n")
			continue
		}
		for _, t := range tasks {
			sb.WriteString(renderCard(t))
		}
	}
	return sb.String(), nil
}

func renderCard(t models.Task) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("- **%s** [%s] %s", t.ID, t.Priority, t.Title))
	if t.StoryID != "" {
		sb.WriteString(fmt.Sprintf(" (story %s)", t.StoryID))
	}
	if t.Status == models.StatusBlocked && t.BlockedReason != "" {
		sb.WriteString(fmt.Sprintf(" (blocked: %s)", t.BlockedReason))
	}
	if t.Spike.Concluded() {
		sb.WriteString(fmt.Sprintf(" [spike: %s]", t.Spike.Decision))
	}
	sb.WriteString("\n")
	return sb.String()
}
