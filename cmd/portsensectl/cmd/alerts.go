package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// alertInfo mirrors the API alert representation.
type alertInfo struct {
	ID             string     `json:"id"`
	ContainerID    string     `json:"container_id"`
	RuleID         string     `json:"rule_id"`
	AlertType      string     `json:"alert_type"`
	Severity       string     `json:"severity"`
	Title          string     `json:"title"`
	CreatedAt      time.Time  `json:"created_at"`
	AcknowledgedAt *time.Time `json:"acknowledged_at"`
}

var alertLimit int

// alertsCmd represents the alerts command group
var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Alert commands",
	Long: `Inspect and acknowledge alerts. Requires --user to identify
whose alerts to operate on.

Examples:
  # List recent alerts
  portsensectl alerts list --user alice

  # Acknowledge one
  portsensectl alerts ack 9f3c... --user alice`,
}

var alertsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent alerts",
	RunE: func(cmd *cobra.Command, args []string) error {
		if userID == "" {
			return fmt.Errorf("--user is required")
		}

		var alerts []alertInfo
		path := fmt.Sprintf("/api/v1/alerts?limit=%d", alertLimit)
		if err := apiRequest("GET", path, nil, &alerts); err != nil {
			return err
		}

		if len(alerts) == 0 {
			fmt.Println("No alerts found.")
			return nil
		}

		fmt.Printf("\n%-36s  %-8s  %-9s  %-4s  %-17s  %s\n",
			"ID", "SEVERITY", "TYPE", "ACK", "CREATED", "TITLE")
		fmt.Println(strings.Repeat("-", 110))
		for _, a := range alerts {
			ack := "-"
			if a.AcknowledgedAt != nil {
				ack = "yes"
			}
			fmt.Printf("%-36s  %-8s  %-9s  %-4s  %-17s  %s\n",
				a.ID, a.Severity, a.AlertType, ack,
				a.CreatedAt.Format("2006-01-02 15:04"), a.Title)
		}
		fmt.Printf("\nTotal: %d alert(s)\n", len(alerts))
		return nil
	},
}

var alertsAckCmd = &cobra.Command{
	Use:   "ack <alert-id>",
	Short: "Acknowledge an alert",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if userID == "" {
			return fmt.Errorf("--user is required")
		}
		if err := apiRequest("POST", "/api/v1/alerts/"+args[0]+"/acknowledge", nil, nil); err != nil {
			return err
		}
		fmt.Printf("Alert acknowledged: %s\n", args[0])
		return nil
	},
}

func init() {
	alertsListCmd.Flags().IntVar(&alertLimit, "limit", 50, "maximum alerts to list")

	alertsCmd.AddCommand(alertsListCmd)
	alertsCmd.AddCommand(alertsAckCmd)
	rootCmd.AddCommand(alertsCmd)
}
