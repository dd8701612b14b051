package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/viper"

	"github.com/solatis/importgate/internal/pipeline"
	"github.com/solatis/importgate/internal/quality"
)

// LoadConfig loads configuration from file using viper.
// CLI flags > environment > config file > defaults precedence.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	// Load config file if provided
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Credentials must come from the environment, never from config files.
	// Checked before env binding so only file values are inspected.
	if err := validateNoSecretsInConfig(v); err != nil {
		return nil, err
	}

	// Bind environment variables with IG_ prefix
	v.SetEnvPrefix("IG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	strategy, err := pipeline.ParseStrategy(strings.ToUpper(v.GetString("pipeline.strategy")))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Pipeline: PipelineConfig{
			Strategy:              strategy,
			StopOnError:           v.GetBool("pipeline.stop_on_error"),
			MaxErrorsToCollect:    v.GetInt("pipeline.max_errors_to_collect"),
			Concurrency:           v.GetInt("pipeline.concurrency"),
			DedupFields:           v.GetStringSlice("pipeline.dedup_fields"),
			TotalFieldCount:       v.GetInt("pipeline.total_field_count"),
			CalculateQualityScore: v.GetBool("pipeline.calculate_quality_score"),
			GenerateReport:        v.GetBool("pipeline.generate_report"),
		},
		Quality: quality.Config{
			Weights: quality.Weights{
				Completeness: v.GetFloat64("quality.weights.completeness"),
				Validity:     v.GetFloat64("quality.weights.validity"),
				Consistency:  v.GetFloat64("quality.weights.consistency"),
				Accuracy:     v.GetFloat64("quality.weights.accuracy"),
			},
			Bands: quality.Bands{
				Excellent:  v.GetFloat64("quality.bands.excellent"),
				Good:       v.GetFloat64("quality.bands.good"),
				Acceptable: v.GetFloat64("quality.bands.acceptable"),
				Poor:       v.GetFloat64("quality.bands.poor"),
			},
			MinConfidence:  v.GetFloat64("quality.min_confidence"),
			ErrorPenalty:   v.GetFloat64("quality.error_penalty"),
			WarningPenalty: v.GetFloat64("quality.warning_penalty"),
		},
		Rules: RulesConfig{
			Files:   v.GetStringSlice("rules.files"),
			Builtin: v.GetBool("rules.builtin"),
		},
		Store: StoreConfig{
			DatabaseURL: v.GetString("store.database_url"),
			Record:      v.GetBool("store.record"),
		},
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setDefaults registers every key so AutomaticEnv can resolve it.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("pipeline.strategy", string(d.Pipeline.Strategy))
	v.SetDefault("pipeline.stop_on_error", d.Pipeline.StopOnError)
	v.SetDefault("pipeline.max_errors_to_collect", d.Pipeline.MaxErrorsToCollect)
	v.SetDefault("pipeline.concurrency", d.Pipeline.Concurrency)
	v.SetDefault("pipeline.dedup_fields", []string{})
	v.SetDefault("pipeline.total_field_count", d.Pipeline.TotalFieldCount)
	v.SetDefault("pipeline.calculate_quality_score", d.Pipeline.CalculateQualityScore)
	v.SetDefault("pipeline.generate_report", d.Pipeline.GenerateReport)

	v.SetDefault("quality.weights.completeness", d.Quality.Weights.Completeness)
	v.SetDefault("quality.weights.validity", d.Quality.Weights.Validity)
	v.SetDefault("quality.weights.consistency", d.Quality.Weights.Consistency)
	v.SetDefault("quality.weights.accuracy", d.Quality.Weights.Accuracy)
	v.SetDefault("quality.bands.excellent", d.Quality.Bands.Excellent)
	v.SetDefault("quality.bands.good", d.Quality.Bands.Good)
	v.SetDefault("quality.bands.acceptable", d.Quality.Bands.Acceptable)
	v.SetDefault("quality.bands.poor", d.Quality.Bands.Poor)
	v.SetDefault("quality.min_confidence", d.Quality.MinConfidence)
	v.SetDefault("quality.error_penalty", d.Quality.ErrorPenalty)
	v.SetDefault("quality.warning_penalty", d.Quality.WarningPenalty)

	v.SetDefault("rules.files", []string{})
	v.SetDefault("rules.builtin", d.Rules.Builtin)

	v.SetDefault("store.database_url", "")
	v.SetDefault("store.record", false)
}

// validateConfig checks pipeline limits and the quality model.
func validateConfig(cfg *Config) error {
	if cfg.Pipeline.MaxErrorsToCollect < 0 {
		return fmt.Errorf("max_errors_to_collect must not be negative, got %d", cfg.Pipeline.MaxErrorsToCollect)
	}
	if cfg.Pipeline.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive, got %d", cfg.Pipeline.Concurrency)
	}
	if cfg.Pipeline.TotalFieldCount < 0 {
		return fmt.Errorf("total_field_count must not be negative, got %d", cfg.Pipeline.TotalFieldCount)
	}
	if cfg.Store.Record && cfg.Store.DatabaseURL == "" {
		return fmt.Errorf("store.record requires store.database_url")
	}
	return cfg.Quality.Validate()
}

// validateNoSecretsInConfig enforces environment-only credentials (12-factor principle).
func validateNoSecretsInConfig(v *viper.Viper) error {
	if !v.InConfig("store.database_url") {
		return nil
	}
	u, err := url.Parse(v.GetString("store.database_url"))
	if err != nil || u.User == nil {
		return nil
	}
	if _, hasPassword := u.User.Password(); hasPassword {
		return fmt.Errorf("database passwords not allowed in config files (use IG_STORE_DATABASE_URL environment variable)")
	}
	return nil
}
