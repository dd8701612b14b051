package cmd

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/solatis/importgate/internal/types"
)

var importsCmd = &cobra.Command{
	Use:   "imports",
	Short: "Browse recorded imports in the audit store",
}

var importsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent imports",
	RunE:  runImportsList,
}

var importsShowCmd = &cobra.Command{
	Use:   "show IMPORT_ID",
	Short: "Print a recorded import result",
	Args:  cobra.ExactArgs(1),
	RunE:  runImportsShow,
}

func init() {
	rootCmd.AddCommand(importsCmd)
	importsCmd.AddCommand(importsListCmd, importsShowCmd)
	importsListCmd.Flags().String("entity", "", "only list imports of this entity type")
	importsListCmd.Flags().Int("limit", 20, "maximum number of imports")
}

func runImportsList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, database, err := openStore(cfg.Store.DatabaseURL)
	if err != nil {
		return err
	}
	defer database.Close()

	entity, _ := cmd.Flags().GetString("entity")
	limit, _ := cmd.Flags().GetInt("limit")
	summaries, err := store.ListImports(cmd.Context(), entity, limit)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "IMPORT\tENTITY\tSTRATEGY\tSTARTED\tVALID\tINVALID\tSKIPPED\tPROCEED")
	for _, s := range summaries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%d\t%t\n",
			s.ImportID, s.EntityType, s.Strategy, s.StartedAt().Format(time.RFC3339),
			s.ValidRecords, s.InvalidRecords, s.SkippedRecords, s.CanProceed)
	}
	return w.Flush()
}

func runImportsShow(cmd *cobra.Command, args []string) error {
	id, err := types.ParseImportID(args[0])
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, database, err := openStore(cfg.Store.DatabaseURL)
	if err != nil {
		return err
	}
	defer database.Close()

	result, err := store.GetImportResult(cmd.Context(), id)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
