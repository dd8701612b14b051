package cmd

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/solatis/importgate/internal/rules"
	"github.com/solatis/importgate/internal/validation"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Inspect rule sets",
}

var rulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered rules with their metadata",
	RunE:  runRulesList,
}

var rulesCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Load rule sets and verify every entity type resolves",
	RunE:  runRulesCheck,
}

func init() {
	rootCmd.AddCommand(rulesCmd)
	rulesCmd.AddCommand(rulesListCmd, rulesCheckCmd)
	rulesCmd.PersistentFlags().StringSlice("rules", nil, "rule set YAML files, appended to rules.files")
	rulesCmd.PersistentFlags().Bool("builtin", true, "load the embedded rule sets")
	rulesListCmd.Flags().String("entity", "", "only list rules of this entity type")
	rulesListCmd.Flags().Bool("json", false, "print metadata as JSON")
}

func registryFromFlags(cmd *cobra.Command) (*rules.Registry, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	builtin := cfg.Rules.Builtin
	if cmd.Flags().Changed("builtin") {
		builtin, _ = cmd.Flags().GetBool("builtin")
	}
	extra, _ := cmd.Flags().GetStringSlice("rules")
	return buildRegistry(builtin, append(cfg.Rules.Files, extra...))
}

func runRulesList(cmd *cobra.Command, args []string) error {
	registry, err := registryFromFlags(cmd)
	if err != nil {
		return err
	}
	entity, _ := cmd.Flags().GetString("entity")

	var list []rules.RuleMetadata
	for _, m := range registry.GetAllRuleMetadata() {
		if entity == "" || m.EntityType == entity || m.Kind != rules.KindValidation {
			list = append(list, m)
		}
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(list)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tKIND\tENTITY\tTYPE\tVERSION\tENABLED\tDEPENDS ON")
	for _, m := range list {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%t\t%s\n",
			m.ID, m.Kind, m.EntityType, m.Type, m.Version, m.Enabled, strings.Join(m.Dependencies, ","))
	}
	return w.Flush()
}

func runRulesCheck(cmd *cobra.Command, args []string) error {
	registry, err := registryFromFlags(cmd)
	if err != nil {
		return err
	}
	engine := validation.NewEngine(registry)
	for _, entity := range registry.EntityTypes() {
		plan, err := engine.Prepare(entity)
		if err != nil {
			return fmt.Errorf("entity %s: %w", entity, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d active rules\n", entity, plan.RuleCount())
	}
	return nil
}
