package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Evaluate and print active alerts",
	Long: `Check alert conditions against current task state: tasks blocked past
the threshold, spikes past their time box without a decision, and an
oversized pending backlog.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if AlertEngine == nil {
			return fmt.Errorf("alert engine not initialized (observability may be disabled)")
		}

		alerts, err := AlertEngine.Evaluate()
		if err != nil {
			return fmt.Errorf("evaluating alerts: %w", err)
		}
		if len(alerts) == 0 {
			fmt.Println("No active alerts.")
			return nil
		}

		for _, a := range alerts {
			fmt.Printf("[%s] %s\n", strings.ToUpper(string(a.Severity)), a.Message)
		}
		fmt.Printf("\n%d alert(s) at %s\n", len(alerts), time.Now().UTC().Format(time.RFC3339))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(alertsCmd)
}
