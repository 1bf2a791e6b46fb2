package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/srstomp/ohno/pkg/models"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage sessions (start, checkpoint, restore, end, cancel)",
	Long: `A session is one continuous working period in a chosen mode. The mode
decides how often the driver pauses: supervised pauses at every task,
semi-auto at story boundaries, autonomous only at epics.

Checkpoints make the session context durable so another session can pick
up where this one left off.`,
}

var sessionStartMode string

var sessionStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start a new session (runs pre-session hooks)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		mode := models.Mode(sessionStartMode)
		if sessionStartMode == "" {
			mode = Config.DefaultMode
		}
		if !models.ValidModes[mode] {
			return fmt.Errorf("invalid mode %q: must be one of supervised, semi-auto, autonomous", sessionStartMode)
		}

		sess, hookResult, err := Engine.StartSession(cmd.Context(), mode)
		if err != nil {
			return remediate(err)
		}
		fmt.Printf("Session %s started in %s mode.\n", sess.SessionID, sess.Mode)
		printWarnings(hookResult)
		return nil
	},
}

var sessionCheckpointCmd = &cobra.Command{
	Use:   "checkpoint",
	Short: "Persist the current session context",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		snapshot, err := Engine.Checkpoint()
		if err != nil {
			return remediate(err)
		}
		fmt.Printf("Checkpointed session %s at %s.\n", snapshot.SessionID, snapshot.TakenAt.Format(time.RFC3339))
		return nil
	},
}

var sessionRestoreCmd = &cobra.Command{
	Use:   "restore [session-id]",
	Short: "Resume a checkpointed session (latest if no ID given)",
	Long: `Resume a checkpointed session. Every task the snapshot references must
still exist; a stale snapshot is rejected without mutating anything.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionID := ""
		if len(args) == 1 {
			sessionID = args[0]
		}

		sess, err := Engine.Restore(sessionID)
		if err != nil {
			return remediate(err)
		}
		fmt.Printf("Restored session %s (%s mode).\n", sess.SessionID, sess.Mode)
		if sess.CurrentTaskID != "" {
			fmt.Printf("  Current task: %s\n", sess.CurrentTaskID)
		}
		for _, b := range sess.Blockers {
			fmt.Printf("  Blocker: %s: %s\n", b.TaskID, b.Reason)
		}
		return nil
	},
}

var sessionEndCmd = &cobra.Command{
	Use:   "end",
	Short: "End the session cleanly (runs post-session hooks, archives)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		hookResult, err := Engine.EndSession(cmd.Context())
		if err != nil {
			return remediate(err)
		}
		printWarnings(hookResult)
		fmt.Println("Session ended and archived.")
		return nil
	},
}

var sessionCancelCmd = &cobra.Command{
	Use:   "cancel",
	Short: "Stop the session from picking up new tasks",
	Long: `Mark the session cancelled. No new tasks start after this; anything
already in flight is left to finish cleanly.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		Engine.Cancel()
		fmt.Println("Session cancelled, no new tasks will start.")
		return nil
	},
}

var sessionShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the active session context",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sess := Sessions.Current()
		if sess == nil {
			fmt.Println("No active session.")
			return nil
		}

		fmt.Printf("Session %s (%s mode), started %s\n", sess.SessionID, sess.Mode, sess.StartedAt.Format(time.RFC3339))
		if sess.Cancelled {
			fmt.Println("  Cancelled.")
		}
		if sess.CurrentTaskID != "" {
			fmt.Printf("  Current task: %s\n", sess.CurrentTaskID)
		}
		for _, b := range sess.Blockers {
			fmt.Printf("  Blocker: %s: %s\n", b.TaskID, b.Reason)
		}
		for _, entry := range sess.Log {
			line := fmt.Sprintf("  [%s] %s", entry.Time.Format("15:04:05"), entry.Kind)
			if entry.TaskID != "" {
				line += " " + entry.TaskID
			}
			if entry.Detail != "" {
				line += ": " + entry.Detail
			}
			fmt.Println(line)
		}
		return nil
	},
}

func init() {
	sessionStartCmd.Flags().StringVar(&sessionStartMode, "mode", "", "Session mode: supervised, semi-auto, or autonomous")

	sessionCmd.AddCommand(sessionStartCmd)
	sessionCmd.AddCommand(sessionCheckpointCmd)
	sessionCmd.AddCommand(sessionRestoreCmd)
	sessionCmd.AddCommand(sessionEndCmd)
	sessionCmd.AddCommand(sessionCancelCmd)
	sessionCmd.AddCommand(sessionShowCmd)

	rootCmd.AddCommand(sessionCmd)
}
