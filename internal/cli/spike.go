package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/srstomp/ohno/pkg/models"
)

var spikeCmd = &cobra.Command{
	Use:   "spike",
	Short: "Manage spike time boxes (status, conclude)",
	Long: `Spike tasks carry a time box. The clock starts when the task starts;
at the 50% mark the status turns to a checkpoint warning, and past the box
the spike is overdue. A spike cannot complete without a decision.`,
}

var spikeStatusCmd = &cobra.Command{
	Use:   "status <task-id>",
	Short: "Show the spike clock for a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		status, err := Engine.SpikeStatus(args[0])
		if err != nil {
			return remediate(err)
		}

		fmt.Printf("Spike %s\n", status.TaskID)
		fmt.Printf("  Elapsed:   %s\n", status.Elapsed.Round(time.Minute))
		if status.Overdue {
			fmt.Printf("  OVERDUE by %s, conclude now\n", (-status.Remaining).Round(time.Minute))
		} else {
			fmt.Printf("  Remaining: %s\n", status.Remaining.Round(time.Minute))
			if status.PastCheckpoint {
				fmt.Println("  Past the 50% checkpoint: can this conclude early?")
			} else {
				fmt.Println("  On track.")
			}
		}
		return nil
	},
}

var spikeConcludeSummary string

var spikeConcludeCmd = &cobra.Command{
	Use:   "conclude <task-id> <decision>",
	Short: "Record the spike decision (GO, NO-GO, PIVOT, MORE-INFO)",
	Long: `Record the mandatory spike conclusion. MORE-INFO spawns one follow-up
spike; a lineage gets at most one follow-up, so the second MORE-INFO in a
row is rejected.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		decision := models.SpikeDecision(args[1])
		if !models.ValidSpikeDecisions[decision] {
			return fmt.Errorf("invalid decision %q: must be one of GO, NO-GO, PIVOT, MORE-INFO", args[1])
		}

		task, followUp, err := Engine.ConcludeSpike(args[0], decision, spikeConcludeSummary)
		if err != nil {
			return remediate(err)
		}

		fmt.Printf("Spike %s concluded: %s\n", task.ID, decision)
		if followUp != nil {
			fmt.Printf("Follow-up spike created: %s (%.1fh box)\n", followUp.ID, followUp.Spike.TimeBoxHours)
		}
		return nil
	},
}

func init() {
	spikeConcludeCmd.Flags().StringVar(&spikeConcludeSummary, "summary", "", "What the spike learned, appended as a note")

	spikeCmd.AddCommand(spikeStatusCmd)
	spikeCmd.AddCommand(spikeConcludeCmd)

	rootCmd.AddCommand(spikeCmd)
}
