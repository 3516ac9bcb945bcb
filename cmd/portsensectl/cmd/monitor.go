package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// cycleResult mirrors the API cycle summary.
type cycleResult struct {
	Processed     int           `json:"processed"`
	Updated       int           `json:"updated"`
	Unchanged     int           `json:"unchanged"`
	Skipped       int           `json:"skipped"`
	Errors        int           `json:"errors"`
	AlertsCreated int           `json:"alerts_created"`
	Duration      time.Duration `json:"duration"`
}

type monitorStatus struct {
	Running bool         `json:"running"`
	Last    *cycleResult `json:"last"`
}

// monitorCmd represents the monitor command group
var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Monitoring cycle commands",
	Long: `Trigger and inspect the server's monitoring cycle.

Examples:
  # Run a cycle now instead of waiting for the scheduler
  portsensectl monitor run

  # Check whether a cycle is in flight
  portsensectl monitor status`,
}

var monitorRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Trigger a monitoring cycle",
	RunE: func(cmd *cobra.Command, args []string) error {
		var result cycleResult
		if err := apiRequest("POST", "/api/v1/monitor/run", nil, &result); err != nil {
			return err
		}
		printCycleResult(&result)
		return nil
	},
}

var monitorStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show monitoring cycle status",
	RunE: func(cmd *cobra.Command, args []string) error {
		var status monitorStatus
		if err := apiRequest("GET", "/api/v1/monitor/status", nil, &status); err != nil {
			return err
		}

		if status.Running {
			fmt.Println("Cycle: running")
		} else {
			fmt.Println("Cycle: idle")
		}
		if status.Last != nil {
			fmt.Println("Last cycle:")
			printCycleResult(status.Last)
		}
		return nil
	},
}

func printCycleResult(r *cycleResult) {
	fmt.Printf("  processed: %d\n", r.Processed)
	fmt.Printf("  updated:   %d\n", r.Updated)
	fmt.Printf("  unchanged: %d\n", r.Unchanged)
	fmt.Printf("  skipped:   %d\n", r.Skipped)
	fmt.Printf("  errors:    %d\n", r.Errors)
	fmt.Printf("  alerts:    %d\n", r.AlertsCreated)
	fmt.Printf("  duration:  %s\n", r.Duration)
}

func init() {
	monitorCmd.AddCommand(monitorRunCmd)
	monitorCmd.AddCommand(monitorStatusCmd)
	rootCmd.AddCommand(monitorCmd)
}
