package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// ruleInfo mirrors the API rule representation.
type ruleInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Severity    string `json:"severity"`
	AlertType   string `json:"alert_type"`
	Cooldown    string `json:"cooldown"`
	Enabled     bool   `json:"enabled"`
}

// rulesCmd represents the rules command group
var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Alert rule commands",
	Long: `Inspect and toggle the server's alert rules at runtime.

Examples:
  # Show the rule table
  portsensectl rules list

  # Silence a noisy rule until the server restarts
  portsensectl rules disable minor-delay-12h

  # Re-enable it
  portsensectl rules enable minor-delay-12h`,
}

var rulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List alert rules",
	RunE: func(cmd *cobra.Command, args []string) error {
		var rules []ruleInfo
		if err := apiRequest("GET", "/api/v1/rules", nil, &rules); err != nil {
			return err
		}

		fmt.Printf("\n%-22s  %-8s  %-9s  %-9s  %-8s  %s\n",
			"ID", "SEVERITY", "TYPE", "COOLDOWN", "ENABLED", "NAME")
		fmt.Println(strings.Repeat("-", 95))
		for _, r := range rules {
			fmt.Printf("%-22s  %-8s  %-9s  %-9s  %-8t  %s\n",
				r.ID, r.Severity, r.AlertType, r.Cooldown, r.Enabled, r.Name)
		}
		fmt.Printf("\nTotal: %d rule(s)\n", len(rules))
		return nil
	},
}

var rulesEnableCmd = &cobra.Command{
	Use:   "enable <rule-id>",
	Short: "Enable an alert rule",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setRuleEnabled(args[0], true)
	},
}

var rulesDisableCmd = &cobra.Command{
	Use:   "disable <rule-id>",
	Short: "Disable an alert rule",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setRuleEnabled(args[0], false)
	},
}

func setRuleEnabled(id string, enabled bool) error {
	body := map[string]bool{"enabled": enabled}
	if err := apiRequest("PUT", "/api/v1/rules/"+id, body, nil); err != nil {
		return err
	}
	state := "disabled"
	if enabled {
		state = "enabled"
	}
	fmt.Printf("Rule %s %s\n", id, state)
	return nil
}

func init() {
	rulesCmd.AddCommand(rulesListCmd)
	rulesCmd.AddCommand(rulesEnableCmd)
	rulesCmd.AddCommand(rulesDisableCmd)
	rootCmd.AddCommand(rulesCmd)
}
