package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/solatis/importgate/internal/pipeline"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "importgate.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := LoadConfig("")
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if cfg.Pipeline.Strategy != pipeline.StrategyStrict {
			t.Errorf("expected strategy STRICT, got %s", cfg.Pipeline.Strategy)
		}
		if cfg.Pipeline.MaxErrorsToCollect != 0 {
			t.Errorf("expected unbounded max_errors_to_collect, got %d", cfg.Pipeline.MaxErrorsToCollect)
		}
		importCfg := cfg.ImportConfig("PART")
		if want := pipeline.DefaultConfig("PART"); importCfg.MaxErrorsToCollect != want.MaxErrorsToCollect {
			t.Errorf("ImportConfig max errors = %d, pipeline default = %d",
				importCfg.MaxErrorsToCollect, want.MaxErrorsToCollect)
		}
		if cfg.Pipeline.Concurrency != 1 {
			t.Errorf("expected concurrency 1, got %d", cfg.Pipeline.Concurrency)
		}
		if cfg.Quality.Weights.Completeness != 0.3 || cfg.Quality.Weights.Accuracy != 0.2 {
			t.Errorf("unexpected default weights %+v", cfg.Quality.Weights)
		}
		if cfg.Quality.Bands.Excellent != 95 {
			t.Errorf("expected excellent band 95, got %v", cfg.Quality.Bands.Excellent)
		}
		if !cfg.Rules.Builtin {
			t.Error("expected builtin rules enabled by default")
		}
		if cfg.Store.DatabaseURL != "" || cfg.Store.Record {
			t.Errorf("expected store disabled, got %+v", cfg.Store)
		}
	})

	t.Run("config file", func(t *testing.T) {
		path := writeConfig(t, `
pipeline:
  strategy: progressive
  stop_on_error: true
  concurrency: 4
  dedup_fields: [partNumber, revision]
quality:
  weights:
    completeness: 0.4
    validity: 0.2
rules:
  builtin: false
  files: [rules/part.yaml]
store:
  database_url: ./data/audit.db
  record: true
`)
		cfg, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if cfg.Pipeline.Strategy != pipeline.StrategyProgressive {
			t.Errorf("expected strategy PROGRESSIVE, got %s", cfg.Pipeline.Strategy)
		}
		if !cfg.Pipeline.StopOnError || cfg.Pipeline.Concurrency != 4 {
			t.Errorf("unexpected pipeline config %+v", cfg.Pipeline)
		}
		if !reflect.DeepEqual(cfg.Pipeline.DedupFields, []string{"partNumber", "revision"}) {
			t.Errorf("unexpected dedup fields %v", cfg.Pipeline.DedupFields)
		}
		if cfg.Quality.Weights.Completeness != 0.4 || cfg.Quality.Weights.Consistency != 0.2 {
			t.Errorf("unexpected weights %+v", cfg.Quality.Weights)
		}
		if cfg.Rules.Builtin || len(cfg.Rules.Files) != 1 {
			t.Errorf("unexpected rules config %+v", cfg.Rules)
		}
		if cfg.Store.DatabaseURL != "./data/audit.db" || !cfg.Store.Record {
			t.Errorf("unexpected store config %+v", cfg.Store)
		}
	})

	t.Run("environment override", func(t *testing.T) {
		t.Setenv("IG_PIPELINE_STRATEGY", "LENIENT")
		t.Setenv("IG_PIPELINE_MAX_ERRORS_TO_COLLECT", "25")

		cfg, err := LoadConfig("")
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if cfg.Pipeline.Strategy != pipeline.StrategyLenient {
			t.Errorf("expected strategy LENIENT, got %s", cfg.Pipeline.Strategy)
		}
		if cfg.Pipeline.MaxErrorsToCollect != 25 {
			t.Errorf("expected max_errors_to_collect 25, got %d", cfg.Pipeline.MaxErrorsToCollect)
		}
	})

	t.Run("unknown strategy", func(t *testing.T) {
		t.Setenv("IG_PIPELINE_STRATEGY", "EVENTUAL")

		if _, err := LoadConfig(""); err == nil {
			t.Error("expected error for unknown strategy")
		}
	})

	t.Run("invalid negative values", func(t *testing.T) {
		t.Setenv("IG_PIPELINE_MAX_ERRORS_TO_COLLECT", "-1")

		if _, err := LoadConfig(""); err == nil {
			t.Error("expected error for negative max_errors_to_collect")
		}
	})

	t.Run("invalid bands", func(t *testing.T) {
		t.Setenv("IG_QUALITY_BANDS_GOOD", "99")

		if _, err := LoadConfig(""); err == nil {
			t.Error("expected error for good band above excellent")
		}
	})

	t.Run("record without store", func(t *testing.T) {
		t.Setenv("IG_STORE_RECORD", "true")

		if _, err := LoadConfig(""); err == nil {
			t.Error("expected error for store.record without database_url")
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
			t.Error("expected error for missing config file")
		}
	})
}

func TestImportConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Pipeline.Strategy = pipeline.StrategyLenient
	cfg.Pipeline.DedupFields = []string{"partNumber"}
	cfg.Pipeline.GenerateReport = false

	got := cfg.ImportConfig("PART")
	if got.EntityType != "PART" || got.Strategy != pipeline.StrategyLenient {
		t.Fatalf("ImportConfig() = %+v", got)
	}
	if !got.ValidatePreImport || !got.ValidatePerRecord || !got.ValidatePostImport || !got.ValidateBeforeCommit {
		t.Errorf("expected every stage enabled, got %+v", got)
	}
	if got.GenerateReport {
		t.Error("expected report disabled")
	}
	if err := got.Validate(); err != nil {
		t.Errorf("Validate() error = %v, want nil", err)
	}

	got.DedupFields[0] = "mutated"
	if cfg.Pipeline.DedupFields[0] != "partNumber" {
		t.Error("ImportConfig must copy dedup fields")
	}
}
