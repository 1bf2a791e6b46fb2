package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/srstomp/ohno/internal/core"
	"github.com/srstomp/ohno/pkg/models"
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage tasks (create, list, next, start, done, block, note, dep)",
	Long: `Unified task management commands.

Create tasks, inspect the backlog, pick the next ready task, and move
tasks through the lifecycle with hooks enforced.`,
}

var (
	taskCreateType     string
	taskCreatePriority string
	taskCreateEstimate float64
	taskCreateStory    string
	taskCreateEpic     string
	taskCreateSpikeHrs float64
	taskCreateDeps     []string
)

var taskCreateCmd = &cobra.Command{
	Use:   "create <title>",
	Short: "Create a new task",
	Long: `Create a new task with the given title.

Use --type to pick the task type (default: feature) and --depends-on to
declare dependencies at creation time. Spike and research tasks get a
time box; override the default with --time-box.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Tasks == nil {
			return fmt.Errorf("task store not initialized")
		}

		taskType := models.TaskType(taskCreateType)
		if !models.ValidTaskTypes[taskType] {
			return fmt.Errorf("invalid type %q: must be one of feature, bug, chore, docs, spike, research, security", taskCreateType)
		}

		priority := models.Priority(taskCreatePriority)
		if taskCreatePriority == "" {
			priority = Config.DefaultPriority
		} else if !models.ValidPriorities[priority] {
			return fmt.Errorf("invalid priority %q: must be one of P0, P1, P2, P3", taskCreatePriority)
		}

		id, err := IDGen.GenerateTaskID()
		if err != nil {
			return fmt.Errorf("generating task id: %w", err)
		}

		task := models.Task{
			ID:            id,
			Title:         args[0],
			Type:          taskType,
			Status:        models.StatusPending,
			Priority:      priority,
			EstimateHours: taskCreateEstimate,
			StoryID:       taskCreateStory,
			EpicID:        taskCreateEpic,
		}
		if taskType == models.TaskTypeSpike || taskType == models.TaskTypeResearch {
			hours := taskCreateSpikeHrs
			if hours <= 0 {
				hours = Config.SpikeDefaultHours
			}
			task.Spike = &models.SpikeBudget{TimeBoxHours: hours}
		}

		created, warning, err := Tasks.Create(task)
		if err != nil {
			return fmt.Errorf("creating %s task: %w", taskType, err)
		}

		for _, dep := range taskCreateDeps {
			if err := Graph.AddEdge(dep, created.ID); err != nil {
				return fmt.Errorf("adding dependency %s: %w", dep, err)
			}
		}

		fmt.Printf("Created task %s\n", created.ID)
		fmt.Printf("  Title:    %s\n", created.Title)
		fmt.Printf("  Type:     %s\n", created.Type)
		fmt.Printf("  Priority: %s\n", created.Priority)
		if created.StoryID != "" {
			fmt.Printf("  Story:    %s\n", created.StoryID)
		}
		if created.EpicID != "" {
			fmt.Printf("  Epic:     %s\n", created.EpicID)
		}
		if created.Spike != nil {
			fmt.Printf("  Time box: %.1fh\n", created.Spike.TimeBoxHours)
		}
		if len(taskCreateDeps) > 0 {
			fmt.Printf("  Depends:  %s\n", strings.Join(taskCreateDeps, ", "))
		}
		if warning != "" {
			fmt.Printf("Warning: %s\n", warning)
		}
		return nil
	},
}

var (
	taskListStatus string
	taskListStory  string
	taskListEpic   string
)

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks with optional filters",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		filter := models.TaskFilter{StoryID: taskListStory, EpicID: taskListEpic}
		if taskListStatus != "" {
			filter.Status = []models.TaskStatus{models.TaskStatus(taskListStatus)}
		}

		tasks, err := Tasks.List(filter)
		if err != nil {
			return fmt.Errorf("listing tasks: %w", err)
		}
		if len(tasks) == 0 {
			fmt.Println("No tasks found.")
			return nil
		}

		for _, t := range tasks {
			printTaskLine(t)
		}
		return nil
	},
}

var taskNextCmd = &cobra.Command{
	Use:   "next",
	Short: "Show the highest-priority ready task",
	Long: `Show the next task to work on: the highest-priority pending task
whose dependencies are all done. Ties break on creation time, then ID.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		task, err := Engine.NextTask()
		if err != nil {
			return err
		}
		if task == nil {
			fmt.Println("No ready tasks.")
			return nil
		}
		printTaskLine(*task)
		return nil
	},
}

var taskStartCmd = &cobra.Command{
	Use:   "start <task-id>",
	Short: "Start a task (runs pre-task hooks first)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		task, hookResult, err := Engine.Start(cmd.Context(), args[0])
		if err != nil {
			return remediate(err)
		}
		fmt.Printf("Started %s: %s\n", task.ID, task.Title)
		printWarnings(hookResult)
		if task.Spike.Started() {
			fmt.Printf("Spike clock running, conclude by %s\n", task.Spike.MustConclude.Format(time.RFC3339))
		}
		return nil
	},
}

var taskDoneNote string

var taskDoneCmd = &cobra.Command{
	Use:   "done <task-id>",
	Short: "Complete a task (runs post-task and boundary hooks)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		task, boundary, hookResults, err := Engine.Done(cmd.Context(), args[0], taskDoneNote)
		if err != nil {
			return remediate(err)
		}

		fmt.Printf("Completed %s: %s\n", task.ID, task.Title)
		for i := range hookResults {
			for _, w := range hookResults[i].Warnings {
				fmt.Printf("Warning: %s\n", w)
			}
		}
		if boundary != nil {
			if boundary.StoryCompleted {
				fmt.Printf("Story %s completed.\n", boundary.StoryID)
			}
			if boundary.EpicCompleted {
				fmt.Printf("Epic %s completed.\n", boundary.EpicID)
			}
			if boundary.Pause {
				fmt.Printf("Pausing at %s boundary for confirmation.\n", boundary.PauseBoundary)
			}
		}
		return nil
	},
}

var taskBlockReason string

var taskBlockCmd = &cobra.Command{
	Use:   "block <task-id>",
	Short: "Mark a task blocked with a reason",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if taskBlockReason == "" {
			return fmt.Errorf("--reason is required")
		}
		task, hookResult, err := Engine.Block(cmd.Context(), args[0], taskBlockReason)
		if err != nil {
			return remediate(err)
		}
		fmt.Printf("Blocked %s: %s\n", task.ID, task.BlockedReason)
		printWarnings(hookResult)
		return nil
	},
}

var taskUnblockCmd = &cobra.Command{
	Use:   "unblock <task-id>",
	Short: "Return a blocked task to pending",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		task, err := Engine.Unblock(args[0])
		if err != nil {
			return remediate(err)
		}
		fmt.Printf("Unblocked %s, now pending.\n", task.ID)
		return nil
	},
}

var taskNoteCmd = &cobra.Command{
	Use:   "note <task-id> <text>",
	Short: "Append a note to a task",
	Long: `Append a timestamped note to a task. Notes are the only mutation
allowed on a done task.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		task, err := Tasks.AppendNote(args[0], args[1])
		if err != nil {
			return remediate(err)
		}
		fmt.Printf("Noted on %s (%d notes).\n", task.ID, len(task.Notes))
		return nil
	},
}

var taskForceReason string

var taskForceCmd = &cobra.Command{
	Use:   "force-done <task-id>",
	Short: "Complete a task bypassing hooks and the spike gate",
	Long: `Mark a task done without running post-task hooks or requiring a spike
decision. The override reason is recorded on the task.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if taskForceReason == "" {
			return fmt.Errorf("--reason is required")
		}
		task, err := Engine.ForceComplete(args[0], taskForceReason)
		if err != nil {
			return remediate(err)
		}
		fmt.Printf("Force-completed %s.\n", task.ID)
		return nil
	},
}

var taskShowCmd = &cobra.Command{
	Use:   "show <task-id>",
	Short: "Show full task details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		task, err := Tasks.Get(args[0])
		if err != nil {
			return remediate(err)
		}

		fmt.Printf("%s  %s\n", task.ID, task.Title)
		fmt.Printf("  Type:     %s\n", task.Type)
		fmt.Printf("  Status:   %s\n", task.Status)
		fmt.Printf("  Priority: %s\n", task.Priority)
		if task.EstimateHours > 0 {
			fmt.Printf("  Estimate: %.1fh\n", task.EstimateHours)
		}
		if task.StoryID != "" {
			fmt.Printf("  Story:    %s\n", task.StoryID)
		}
		if task.EpicID != "" {
			fmt.Printf("  Epic:     %s\n", task.EpicID)
		}
		if task.BlockedReason != "" {
			fmt.Printf("  Blocked:  %s\n", task.BlockedReason)
		}
		deps, err := Graph.Dependencies(task.ID)
		if err == nil && len(deps) > 0 {
			fmt.Printf("  Depends:  %s\n", strings.Join(deps, ", "))
		}
		if task.Spike != nil {
			fmt.Printf("  Time box: %.1fh\n", task.Spike.TimeBoxHours)
			if task.Spike.Concluded() {
				fmt.Printf("  Decision: %s\n", task.Spike.Decision)
			}
			if task.Spike.ParentSpikeID != "" {
				fmt.Printf("  Respike of: %s\n", task.Spike.ParentSpikeID)
			}
			if task.Spike.ChildSpikeID != "" {
				fmt.Printf("  Follow-up:  %s\n", task.Spike.ChildSpikeID)
			}
		}
		for _, n := range task.Notes {
			fmt.Printf("  [%s] %s\n", n.Time.Format("2006-01-02 15:04"), n.Text)
		}
		return nil
	},
}

var taskDepCmd = &cobra.Command{
	Use:   "dep <from-id> <to-id>",
	Short: "Add a dependency edge: from must finish before to may start",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := Graph.AddEdge(args[0], args[1]); err != nil {
			return remediate(err)
		}
		fmt.Printf("Added dependency %s -> %s\n", args[0], args[1])
		return nil
	},
}

func printTaskLine(t models.Task) {
	marker := " "
	switch t.Status {
	case models.StatusInProgress:
		marker = ">"
	case models.StatusBlocked:
		marker = "!"
	case models.StatusDone:
		marker = "x"
	}
	line := fmt.Sprintf("%s %s [%s] %-11s %s", marker, t.ID, t.Priority, t.Status, t.Title)
	if t.BlockedReason != "" {
		line += fmt.Sprintf(" (blocked: %s)", t.BlockedReason)
	}
	if t.Spike.Concluded() {
		line += fmt.Sprintf(" [%s]", t.Spike.Decision)
	}
	fmt.Println(line)
}

func printWarnings(r *models.HookResult) {
	if r == nil {
		return
	}
	for _, w := range r.Warnings {
		fmt.Printf("Warning: %s\n", w)
	}
}

// remediate appends the remediation hint carried by engine errors.
func remediate(err error) error {
	if hint := core.RemediationFor(err); hint != "" {
		return fmt.Errorf("%w\n  hint: %s", err, hint)
	}
	return err
}

func init() {
	taskCreateCmd.Flags().StringVar(&taskCreateType, "type", "feature", "Task type: feature, bug, chore, docs, spike, research, or security")
	taskCreateCmd.Flags().StringVar(&taskCreatePriority, "priority", "", "Task priority (P0, P1, P2, P3)")
	taskCreateCmd.Flags().Float64Var(&taskCreateEstimate, "estimate", 0, "Estimated hours")
	taskCreateCmd.Flags().StringVar(&taskCreateStory, "story", "", "Story this task belongs to")
	taskCreateCmd.Flags().StringVar(&taskCreateEpic, "epic", "", "Epic this task belongs to")
	taskCreateCmd.Flags().Float64Var(&taskCreateSpikeHrs, "time-box", 0, "Spike time box in hours (spike/research only)")
	taskCreateCmd.Flags().StringSliceVar(&taskCreateDeps, "depends-on", nil, "Task IDs this task depends on")

	taskListCmd.Flags().StringVar(&taskListStatus, "status", "", "Filter by status (pending, in_progress, blocked, done)")
	taskListCmd.Flags().StringVar(&taskListStory, "story", "", "Filter by story ID")
	taskListCmd.Flags().StringVar(&taskListEpic, "epic", "", "Filter by epic ID")

	taskDoneCmd.Flags().StringVar(&taskDoneNote, "note", "", "Completion note appended to the task")
	taskBlockCmd.Flags().StringVar(&taskBlockReason, "reason", "", "Why the task cannot proceed (required)")
	taskForceCmd.Flags().StringVar(&taskForceReason, "reason", "", "Why the override is justified (required)")

	taskCmd.AddCommand(taskCreateCmd)
	taskCmd.AddCommand(taskListCmd)
	taskCmd.AddCommand(taskNextCmd)
	taskCmd.AddCommand(taskStartCmd)
	taskCmd.AddCommand(taskDoneCmd)
	taskCmd.AddCommand(taskBlockCmd)
	taskCmd.AddCommand(taskUnblockCmd)
	taskCmd.AddCommand(taskNoteCmd)
	taskCmd.AddCommand(taskForceCmd)
	taskCmd.AddCommand(taskShowCmd)
	taskCmd.AddCommand(taskDepCmd)

	rootCmd.AddCommand(taskCmd)
}
