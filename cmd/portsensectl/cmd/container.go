package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/portsense/portsense/internal/models"
	"github.com/portsense/portsense/internal/storage"
)

// defaultDBPath is the default database path, can be overridden via
// PORTSENSE_DB_PATH env var.
var defaultDBPath = "data/portsense.db"

func init() {
	if envPath := os.Getenv("PORTSENSE_DB_PATH"); envPath != "" {
		defaultDBPath = envPath
	}
}

var (
	containerDBPath   string
	containerRef      string
	containerOwner    string
	containerCarrier  string
	containerStatus   string
	containerETA      string
	containerLocation string
)

// containerCmd represents the container command group
var containerCmd = &cobra.Command{
	Use:   "container",
	Short: "Container management commands",
	Long: `Commands for registering and inspecting tracked containers.

These commands operate directly on the database file, so they work even
when the server is down. Use PORTSENSE_DB_PATH or --db to point at the
database.

Examples:
  # Register a container
  portsensectl container add --container-id MSKU1234567 --owner alice --carrier Maersk

  # List a user's containers
  portsensectl container list --owner alice

  # Stop tracking a container
  portsensectl container deactivate --container-id MSKU1234567 --owner alice`,
}

// containerAddCmd registers a container for tracking
var containerAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Register a container for tracking",
	Long: `Register a container for tracking.

The container id is the carrier reference (e.g. MSKU1234567). The ETA,
if given, becomes the original ETA that delay is measured against.

Example:
  portsensectl container add --container-id MSKU1234567 --owner alice \
    --carrier Maersk --eta 2026-09-15T08:00:00Z`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if containerRef == "" {
			return fmt.Errorf("--container-id is required")
		}
		if containerOwner == "" {
			return fmt.Errorf("--owner is required")
		}

		store, err := openDB()
		if err != nil {
			return err
		}
		defer store.Close()

		now := time.Now()
		c := &models.Container{
			ID:          uuid.New().String(),
			ContainerID: strings.ToUpper(strings.TrimSpace(containerRef)),
			UserID:      containerOwner,
			Status:      containerStatus,
			Carrier:     containerCarrier,
			RiskLevel:   models.RiskLow,
			IsActive:    true,
			LastUpdated: now,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if c.Status == "" {
			c.Status = "registered"
		}
		if containerLocation != "" {
			c.CurrentLocation = containerLocation
		}
		if containerETA != "" {
			eta, err := time.Parse(time.RFC3339, containerETA)
			if err != nil {
				return fmt.Errorf("invalid --eta (want RFC3339): %w", err)
			}
			c.ETA = &eta
			c.OriginalETA = &eta
		}

		if err := store.Containers().Create(context.Background(), c); err != nil {
			return fmt.Errorf("create container: %w", err)
		}

		fmt.Printf("Container registered: %s (%s)\n", c.ContainerID, c.ID)
		return nil
	},
}

// containerListCmd lists tracked containers
var containerListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tracked containers",
	Long: `List tracked containers for a user.

Example:
  portsensectl container list --owner alice`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if containerOwner == "" {
			return fmt.Errorf("--owner is required")
		}

		store, err := openDB()
		if err != nil {
			return err
		}
		defer store.Close()

		containers, err := store.Containers().ListByUser(context.Background(), containerOwner)
		if err != nil {
			return fmt.Errorf("list containers: %w", err)
		}

		if len(containers) == 0 {
			fmt.Println("No containers found.")
			return nil
		}

		fmt.Printf("\n%-13s  %-18s  %-24s  %-6s  %-7s  %s\n",
			"CONTAINER", "STATUS", "LOCATION", "DELAY", "RISK", "UPDATED")
		fmt.Println(strings.Repeat("-", 90))

		for _, c := range containers {
			location := c.CurrentLocation
			if location == "" {
				location = "-"
			}
			fmt.Printf("%-13s  %-18s  %-24s  %4dh  %-7s  %s\n",
				c.ContainerID,
				truncate(c.Status, 18),
				truncate(location, 24),
				c.DelayHours,
				c.RiskLevel,
				c.LastUpdated.Format("2006-01-02 15:04"),
			)
		}
		fmt.Printf("\nTotal: %d container(s)\n", len(containers))
		return nil
	},
}

// containerDeactivateCmd stops tracking a container
var containerDeactivateCmd = &cobra.Command{
	Use:   "deactivate",
	Short: "Stop tracking a container",
	RunE: func(cmd *cobra.Command, args []string) error {
		if containerRef == "" {
			return fmt.Errorf("--container-id is required")
		}
		if containerOwner == "" {
			return fmt.Errorf("--owner is required")
		}

		store, err := openDB()
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := context.Background()
		containers, err := store.Containers().ListByUser(ctx, containerOwner)
		if err != nil {
			return fmt.Errorf("list containers: %w", err)
		}

		ref := strings.ToUpper(strings.TrimSpace(containerRef))
		for _, c := range containers {
			if c.ContainerID == ref {
				if err := store.Containers().SetActive(ctx, c.ID, false); err != nil {
					return fmt.Errorf("deactivate container: %w", err)
				}
				fmt.Printf("Container deactivated: %s\n", ref)
				return nil
			}
		}
		return fmt.Errorf("container not found: %s", ref)
	},
}

func openDB() (storage.Storage, error) {
	store := storage.NewSQLiteStorage(containerDBPath)
	if err := store.Open(); err != nil {
		return nil, fmt.Errorf("open database %s: %w", containerDBPath, err)
	}
	if err := store.Migrate(); err != nil {
		store.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return store, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-2] + ".."
}

func init() {
	containerCmd.PersistentFlags().StringVar(&containerDBPath, "db", defaultDBPath, "database file path")
	containerCmd.PersistentFlags().StringVar(&containerRef, "container-id", "", "carrier container reference")
	containerCmd.PersistentFlags().StringVar(&containerOwner, "owner", "", "owning user id")
	containerAddCmd.Flags().StringVar(&containerCarrier, "carrier", "", "carrier name")
	containerAddCmd.Flags().StringVar(&containerStatus, "status", "", "initial status (default: registered)")
	containerAddCmd.Flags().StringVar(&containerETA, "eta", "", "original ETA in RFC3339")
	containerAddCmd.Flags().StringVar(&containerLocation, "location", "", "initial location name")

	containerCmd.AddCommand(containerAddCmd)
	containerCmd.AddCommand(containerListCmd)
	containerCmd.AddCommand(containerDeactivateCmd)
	rootCmd.AddCommand(containerCmd)
}
