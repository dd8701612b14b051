package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/solatis/importgate/internal/pipeline"
	"github.com/solatis/importgate/internal/quality"
	"github.com/solatis/importgate/internal/types"
	"github.com/solatis/importgate/internal/validation"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a batch of records and report whether the import may proceed",
	Long: `Validate reads records from a JSON file, runs them through the staged
import pipeline and prints the result. Exits with status 2 when the
strategy does not allow the import to proceed.`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
	f := validateCmd.Flags()
	f.String("entity", "", "entity type of the records (required)")
	f.String("input", "-", "JSON input file, - for stdin")
	f.StringSlice("rules", nil, "rule set YAML files, appended to rules.files")
	f.Bool("builtin", true, "load the embedded rule sets")
	f.String("strategy", "", "STRICT, LENIENT or PROGRESSIVE (default from config)")
	f.Bool("stop-on-error", false, "stop at the first failure (STRICT only)")
	f.Int("max-errors", 0, "cap on collected errors (default from config)")
	f.Int("concurrency", 0, "parallel record validation (default from config)")
	f.StringSlice("dedup", nil, "fields compared for duplicate detection")
	f.String("import-id", "", "import id (default: generated UUIDv7)")
	f.Bool("record", false, "save the result to the audit store")
	f.String("metrics-file", "", "write Prometheus metrics to this file after the run")
	f.String("output", "json", "output format (json, summary)")
	_ = validateCmd.MarkFlagRequired("entity")
}

func runValidate(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	flags := cmd.Flags()

	entity, _ := flags.GetString("entity")
	importCfg := cfg.ImportConfig(entity)
	if flags.Changed("strategy") {
		s, _ := flags.GetString("strategy")
		if importCfg.Strategy, err = pipeline.ParseStrategy(strings.ToUpper(s)); err != nil {
			return err
		}
	}
	if flags.Changed("stop-on-error") {
		importCfg.StopOnError, _ = flags.GetBool("stop-on-error")
	}
	if flags.Changed("max-errors") {
		importCfg.MaxErrorsToCollect, _ = flags.GetInt("max-errors")
	}
	if flags.Changed("concurrency") {
		importCfg.Concurrency, _ = flags.GetInt("concurrency")
	}
	if flags.Changed("dedup") {
		importCfg.DedupFields, _ = flags.GetStringSlice("dedup")
	}

	builtin := cfg.Rules.Builtin
	if flags.Changed("builtin") {
		builtin, _ = flags.GetBool("builtin")
	}
	extra, _ := flags.GetStringSlice("rules")
	registry, err := buildRegistry(builtin, append(cfg.Rules.Files, extra...))
	if err != nil {
		return err
	}

	input, _ := flags.GetString("input")
	records, err := readRecords(input, cmd.InOrStdin())
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	metrics, err := pipeline.NewMetrics(reg)
	if err != nil {
		return err
	}

	logger := slog.Default()
	engine := validation.NewEngine(registry, validation.WithLogger(logger))
	scorer := quality.NewScorer(quality.WithConfig(cfg.Quality))
	p := pipeline.New(engine, scorer, pipeline.WithLogger(logger), pipeline.WithMetrics(metrics))

	var importID types.ImportID
	if s, _ := flags.GetString("import-id"); s != "" {
		if importID, err = types.ParseImportID(s); err != nil {
			return err
		}
	}
	result, err := p.ValidateBulkImport(ctx, importID, records, importCfg, nil)
	if err != nil {
		return err
	}

	record := cfg.Store.Record
	if flags.Changed("record") {
		record, _ = flags.GetBool("record")
	}
	if record {
		store, database, err := openStore(cfg.Store.DatabaseURL)
		if err != nil {
			return err
		}
		defer database.Close()
		if err := store.SaveImport(ctx, result); err != nil {
			return err
		}
	}

	if path, _ := flags.GetString("metrics-file"); path != "" {
		if err := prometheus.WriteToTextfile(path, reg); err != nil {
			return fmt.Errorf("failed to write metrics: %w", err)
		}
	}

	output, _ := flags.GetString("output")
	if err := printResult(cmd, output, result); err != nil {
		return err
	}

	if !pipeline.CanProceedWithImport(result) {
		return &ExitError{Code: 2, Msg: "import cannot proceed"}
	}
	return nil
}

type validateOutput struct {
	Statistics pipeline.ImportStatistics            `json:"statistics"`
	Result     *pipeline.BulkImportValidationResult `json:"result"`
}

func printResult(cmd *cobra.Command, format string, result *pipeline.BulkImportValidationResult) error {
	stats := pipeline.GetImportStatistics(result)
	out := cmd.OutOrStdout()

	switch format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(validateOutput{Statistics: stats, Result: result})
	case "summary":
		fmt.Fprintf(out, "import %s (%s, %s)\n", stats.ImportID, stats.EntityType, stats.Strategy)
		fmt.Fprintf(out, "  records: %d total, %d valid, %d invalid, %d skipped\n",
			stats.TotalRecords, stats.ValidRecords, stats.InvalidRecords, stats.SkippedRecords)
		fmt.Fprintf(out, "  success rate: %.2f%%, errors: %d, warnings: %d, duration: %s\n",
			stats.SuccessRate, stats.TotalErrors, stats.TotalWarnings, stats.Duration)
		if result.QualityScore != nil {
			fmt.Fprintf(out, "  quality: %.2f (%s)\n", result.QualityScore.Overall, result.QualityScore.Band)
		}
		for _, e := range result.Errors {
			fmt.Fprintf(out, "  row %d: %s %s: %s\n", e.Row, e.Type, strings.Join(e.ImplicatedFields(), ","), e.Message)
		}
		fmt.Fprintf(out, "  can proceed: %t\n", stats.CanProceed)
		return nil
	default:
		return fmt.Errorf("invalid output format %q (expected json or summary)", format)
	}
}
