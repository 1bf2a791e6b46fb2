// Package cli implements the ohno command tree.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	appVersion = "dev"
	appCommit  = "none"
	appDate    = "unknown"
)

// SetVersionInfo sets the version information injected via ldflags.
func SetVersionInfo(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date
}

var rootCmd = &cobra.Command{
	Use:   "ohno",
	Short: "ohno - task and session orchestration for agent-driven development",
	Long: `ohno tracks a graph of tasks through a pending/in_progress/blocked/done
state machine, enforces lifecycle hooks at task, story, epic, and session
boundaries, time-boxes spikes, and checkpoints session context so work can
be handed off between sessions.

An external driver (a human or an AI coding agent) asks ohno what to do
next; ohno enforces the discipline around it.`,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("ohno %s\ncommit: %s\nbuilt:  %s\n", appVersion, appCommit, appDate)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
