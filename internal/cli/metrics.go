package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var metricsSince string

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Print engine metrics aggregated from the event log",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if MetricsCalc == nil {
			return fmt.Errorf("metrics calculator not initialized (observability may be disabled)")
		}

		window, err := time.ParseDuration(metricsSince)
		if err != nil {
			return fmt.Errorf("invalid --since duration %q: %w", metricsSince, err)
		}

		m, err := MetricsCalc.Calculate(time.Now().UTC().Add(-window))
		if err != nil {
			return fmt.Errorf("calculating metrics: %w", err)
		}

		fmt.Printf("Metrics (last %s)\n", metricsSince)
		fmt.Printf("  Events:      %d\n", m.EventCount)
		fmt.Printf("  Started:     %d\n", m.TasksStarted)
		fmt.Printf("  Completed:   %d\n", m.TasksCompleted)
		fmt.Printf("  Blocked:     %d\n", m.TasksBlocked)
		fmt.Printf("  Forced:      %d\n", m.TasksForced)
		fmt.Printf("  Hooks run:   %d (%d failed)\n", m.HooksRun, m.HooksFailed)
		fmt.Printf("  Sessions:    %d (%d checkpoints)\n", m.Sessions, m.Checkpoints)
		for decision, count := range m.SpikesConcluded {
			fmt.Printf("  Spike %-9s %d\n", decision+":", count)
		}
		return nil
	},
}

func init() {
	metricsCmd.Flags().StringVar(&metricsSince, "since", "168h", "Time window for metrics (Go duration, e.g. 24h)")
	rootCmd.AddCommand(metricsCmd)
}
