// Package cmd contains the CLI commands for portsensectl.
package cmd

import (
	"github.com/spf13/cobra"
)

var (
	// Used for flags
	serverURL string
	userID    string
	verbose   bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "portsensectl",
	Short: "PortSense control - manage a running PortSense server",
	Long: `portsensectl administers a PortSense container tracking server.

Container registration operates directly on the database file; runtime
operations (rules, alerts, monitoring) talk to the HTTP API.

Examples:
  # Register a container for tracking
  portsensectl container add --container-id MSKU1234567 --owner alice

  # List tracked containers
  portsensectl container list --owner alice

  # Disable a noisy rule at runtime
  portsensectl rules disable minor-delay-12h

  # Trigger a monitoring cycle now
  portsensectl monitor run`,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&serverURL, "server", "s", "http://localhost:8080", "PortSense API base URL")
	rootCmd.PersistentFlags().StringVarP(&userID, "user", "u", "", "user id sent as the viewer identity")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
