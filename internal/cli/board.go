package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/srstomp/ohno/pkg/models"
)

// Board column indices, in lifecycle order.
var boardStatuses = []models.TaskStatus{
	models.StatusPending,
	models.StatusInProgress,
	models.StatusBlocked,
	models.StatusDone,
}

var boardTitles = map[models.TaskStatus]string{
	models.StatusPending:    "Backlog",
	models.StatusInProgress: "In Progress",
	models.StatusBlocked:    "Blocked",
	models.StatusDone:       "Done",
}

type boardModel struct {
	activeCol int
	width     int
	height    int

	columns map[models.TaskStatus][]models.Task

	loading bool
	err     error
}

// boardLoadedMsg carries freshly loaded columns back to the model.
type boardLoadedMsg struct {
	columns map[models.TaskStatus][]models.Task
	err     error
}

var (
	boardTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	boardColStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(1, 2)

	boardActiveColStyle = lipgloss.NewStyle().
				BorderStyle(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("62")).
				Padding(1, 2)

	boardHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("62")).
				MarginBottom(1)

	cardInProgress = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	cardDone       = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	cardBlocked    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	cardPending    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))

	boardHelpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func newBoardModel() boardModel {
	return boardModel{
		loading: true,
		columns: make(map[models.TaskStatus][]models.Task),
	}
}

func (m boardModel) Init() tea.Cmd {
	return loadBoard
}

func (m boardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case "tab", "right", "l":
			m.activeCol = (m.activeCol + 1) % len(boardStatuses)
			return m, nil
		case "shift+tab", "left", "h":
			m.activeCol = (m.activeCol - 1 + len(boardStatuses)) % len(boardStatuses)
			return m, nil
		case "r":
			m.loading = true
			return m, loadBoard
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case boardLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.columns = msg.columns
		m.err = nil
		return m, nil
	}

	return m, nil
}

func (m boardModel) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	title := boardTitleStyle.Render(" ohno Board ")
	help := boardHelpStyle.Render("tab/arrows: switch column | r: refresh | q: quit")

	if m.loading {
		return fmt.Sprintf("%s\n\n  Loading board...\n\n%s", title, help)
	}
	if m.err != nil {
		return fmt.Sprintf("%s\n\n  Error: %s\n\n%s", title, m.err, help)
	}

	colWidth := (m.width-2)/len(boardStatuses) - 4
	if colWidth < 18 {
		colWidth = 18
	}

	rendered := make([]string, len(boardStatuses))
	for i, status := range boardStatuses {
		style := boardColStyle
		if i == m.activeCol {
			style = boardActiveColStyle
		}
		rendered[i] = style.Width(colWidth).Render(m.renderColumn(status, colWidth))
	}
	body := lipgloss.JoinHorizontal(lipgloss.Top, rendered...)

	return fmt.Sprintf("%s\n\n%s\n\n%s", title, body, help)
}

func (m boardModel) renderColumn(status models.TaskStatus, width int) string {
	tasks := m.columns[status]

	var b strings.Builder
	b.WriteString(boardHeaderStyle.Render(fmt.Sprintf("%s (%d)", boardTitles[status], len(tasks))))
	b.WriteString("\n")

	if len(tasks) == 0 {
		b.WriteString("  -")
		return b.String()
	}

	style := styleForCard(status)
	for _, t := range tasks {
		label := fmt.Sprintf("%s [%s]", t.ID, t.Priority)
		b.WriteString(style.Render(label))
		b.WriteString("\n")
		b.WriteString("  " + truncate(t.Title, width-4))
		b.WriteString("\n")
		if status == models.StatusBlocked && t.BlockedReason != "" {
			b.WriteString("  " + truncate("! "+t.BlockedReason, width-4))
			b.WriteString("\n")
		}
	}
	return b.String()
}

func styleForCard(status models.TaskStatus) lipgloss.Style {
	switch status {
	case models.StatusInProgress:
		return cardInProgress
	case models.StatusDone:
		return cardDone
	case models.StatusBlocked:
		return cardBlocked
	default:
		return cardPending
	}
}

func truncate(s string, max int) string {
	if max < 4 || len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

// loadBoard reloads stores from disk and groups tasks by status. The board
// only reads, so it can run alongside an active session.
func loadBoard() tea.Msg {
	result := boardLoadedMsg{columns: make(map[models.TaskStatus][]models.Task)}

	if ReloadStores != nil {
		if err := ReloadStores(); err != nil {
			result.err = fmt.Errorf("reloading stores: %w", err)
			return result
		}
	}

	for _, status := range boardStatuses {
		tasks, err := Tasks.List(models.TaskFilter{Status: []models.TaskStatus{status}})
		if err != nil {
			result.err = fmt.Errorf("loading %s tasks: %w", status, err)
			return result
		}
		result.columns[status] = tasks
	}
	return result
}

var boardSnapshotPath string

var boardCmd = &cobra.Command{
	Use:   "board",
	Short: "Interactive kanban board of the task graph",
	Long: `Launch a terminal kanban board grouping tasks by lifecycle status.
The board is a read-only view: it never mutates the stores, so it can run
alongside an active session.

With --snapshot, write a markdown snapshot to the given path instead of
launching the TUI.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if boardSnapshotPath != "" {
			if err := BoardExp.Export(boardSnapshotPath); err != nil {
				return err
			}
			fmt.Printf("Board snapshot written to %s\n", boardSnapshotPath)
			return nil
		}

		p := tea.NewProgram(newBoardModel(), tea.WithAltScreen())
		_, err := p.Run()
		return err
	},
}

func init() {
	boardCmd.Flags().StringVar(&boardSnapshotPath, "snapshot", "", "Write a markdown board snapshot to this path instead of launching the TUI")
	rootCmd.AddCommand(boardCmd)
}
