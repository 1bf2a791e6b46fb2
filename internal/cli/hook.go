package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/srstomp/ohno/pkg/models"
)

var hookCmd = &cobra.Command{
	Use:   "hook",
	Short: "Run lifecycle hooks on demand",
}

var hookRunTask string

var hookRunCmd = &cobra.Command{
	Use:   "run <point>",
	Short: "Run the actions configured at a lifecycle point",
	Long: `Run the actions at a hook point outside any task transition. Points:
pre-session, pre-task, post-task, post-story, post-epic, post-session,
pre-commit, on-blocker. Fatal failures are reported but no task state
changes.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		point := models.HookPoint(args[0])
		if !models.ValidHookPoints[point] {
			return fmt.Errorf("unknown hook point %q", args[0])
		}

		result, err := Engine.RunHook(cmd.Context(), point, hookRunTask)
		if result != nil {
			for _, r := range result.Results {
				line := fmt.Sprintf("  %-20s %s", r.Action, r.Status)
				if r.Err != "" {
					line += ": " + r.Err
				}
				fmt.Println(line)
			}
		}
		if err != nil {
			return remediate(err)
		}
		printWarnings(result)
		return nil
	},
}

func init() {
	hookRunCmd.Flags().StringVar(&hookRunTask, "task", "", "Task ID to run the hook against")

	hookCmd.AddCommand(hookRunCmd)
	rootCmd.AddCommand(hookCmd)
}
