// Package config provides configuration management for importgate.
package config

import (
	"github.com/solatis/importgate/internal/pipeline"
	"github.com/solatis/importgate/internal/quality"
)

// Config is the complete importgate configuration.
type Config struct {
	Pipeline PipelineConfig
	Quality  quality.Config
	Rules    RulesConfig
	Store    StoreConfig
}

// PipelineConfig holds the import defaults applied to every entity type.
type PipelineConfig struct {
	Strategy              pipeline.Strategy
	StopOnError           bool
	MaxErrorsToCollect    int
	Concurrency           int
	DedupFields           []string
	TotalFieldCount       int
	CalculateQualityScore bool
	GenerateReport        bool
}

// RulesConfig selects the rule sets loaded at startup.
type RulesConfig struct {
	Files   []string
	Builtin bool
}

// StoreConfig configures the import audit store.
type StoreConfig struct {
	// DatabaseURL is a sqlite path or postgres:// URL; empty disables the store.
	DatabaseURL string
	Record      bool
}

// DefaultConfig returns configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		Pipeline: PipelineConfig{
			Strategy:              pipeline.StrategyStrict,
			Concurrency:           1,
			CalculateQualityScore: true,
			GenerateReport:        true,
		},
		Quality: quality.DefaultConfig(),
		Rules: RulesConfig{
			Builtin: true,
		},
	}
}

// ImportConfig builds the pipeline configuration for one entity type with
// every stage enabled.
func (c *Config) ImportConfig(entityType string) pipeline.Config {
	cfg := pipeline.DefaultConfig(entityType)
	cfg.Strategy = c.Pipeline.Strategy
	cfg.StopOnError = c.Pipeline.StopOnError
	cfg.MaxErrorsToCollect = c.Pipeline.MaxErrorsToCollect
	cfg.Concurrency = c.Pipeline.Concurrency
	cfg.DedupFields = append([]string(nil), c.Pipeline.DedupFields...)
	cfg.TotalFieldCount = c.Pipeline.TotalFieldCount
	cfg.CalculateQualityScore = c.Pipeline.CalculateQualityScore
	cfg.GenerateReport = c.Pipeline.GenerateReport
	return cfg
}
