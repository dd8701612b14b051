package cmd

import (
	"fmt"
	"log/slog"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/solatis/importgate/internal/core/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending audit store migrations",
	RunE:  runMigrate,
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show applied and pending migrations",
	RunE:  runMigrateStatus,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateStatusCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Store.DatabaseURL == "" {
		return fmt.Errorf("--db-url or store.database_url required")
	}
	database, err := db.Open(cfg.Store.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	ran, err := db.MigrateUp(database)
	if err != nil {
		return err
	}
	for _, id := range ran {
		slog.Info("migration applied", "migration_id", id)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d migrations applied\n", len(ran))
	return nil
}

func runMigrateStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Store.DatabaseURL == "" {
		return fmt.Errorf("--db-url or store.database_url required")
	}
	database, err := db.Open(cfg.Store.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	statuses, err := db.MigrateStatus(database)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "MIGRATION\tAPPLIED\tEXECUTION MS")
	for _, s := range statuses {
		fmt.Fprintf(w, "%s\t%t\t%d\n", s.ID, s.Applied, s.ExecutionMs)
	}
	return w.Flush()
}
