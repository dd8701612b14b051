// Package quality turns validation outcomes into 0-100 quality scores per
// record and per dataset, across four dimensions, and renders reports.
package quality

import (
	"fmt"

	"github.com/solatis/importgate/internal/types"
)

// Band is a named quality tier.
type Band string

const (
	BandExcellent  Band = "EXCELLENT"
	BandGood       Band = "GOOD"
	BandAcceptable Band = "ACCEPTABLE"
	BandPoor       Band = "POOR"
	BandCritical   Band = "CRITICAL"
)

// Weights are the per-dimension weights of the overall score.
type Weights struct {
	Completeness float64 `mapstructure:"completeness" json:"completeness"`
	Validity     float64 `mapstructure:"validity" json:"validity"`
	Consistency  float64 `mapstructure:"consistency" json:"consistency"`
	Accuracy     float64 `mapstructure:"accuracy" json:"accuracy"`
}

// Of returns the weight of dim.
func (w Weights) Of(dim types.Dimension) float64 {
	switch dim {
	case types.DimensionCompleteness:
		return w.Completeness
	case types.DimensionValidity:
		return w.Validity
	case types.DimensionConsistency:
		return w.Consistency
	case types.DimensionAccuracy:
		return w.Accuracy
	default:
		return 0
	}
}

// Sum returns the total weight.
func (w Weights) Sum() float64 {
	return w.Completeness + w.Validity + w.Consistency + w.Accuracy
}

// Bands are the minimum scores of each tier; anything below Poor is CRITICAL.
type Bands struct {
	Excellent  float64 `mapstructure:"excellent" json:"excellent"`
	Good       float64 `mapstructure:"good" json:"good"`
	Acceptable float64 `mapstructure:"acceptable" json:"acceptable"`
	Poor       float64 `mapstructure:"poor" json:"poor"`
}

// Classify returns the first band, in descending order, whose threshold
// score meets or exceeds.
func (b Bands) Classify(score float64) Band {
	switch {
	case score >= b.Excellent:
		return BandExcellent
	case score >= b.Good:
		return BandGood
	case score >= b.Acceptable:
		return BandAcceptable
	case score >= b.Poor:
		return BandPoor
	default:
		return BandCritical
	}
}

// Config holds scoring parameters.
type Config struct {
	Weights        Weights `mapstructure:"weights" json:"weights"`
	Bands          Bands   `mapstructure:"bands" json:"bands"`
	MinConfidence  float64 `mapstructure:"min_confidence" json:"minConfidence"`
	ErrorPenalty   float64 `mapstructure:"error_penalty" json:"errorPenalty"`
	WarningPenalty float64 `mapstructure:"warning_penalty" json:"warningPenalty"`
}

// DefaultConfig returns weights 0.3/0.3/0.2/0.2 and bands 95/80/60/40.
func DefaultConfig() Config {
	return Config{
		Weights: Weights{
			Completeness: 0.3,
			Validity:     0.3,
			Consistency:  0.2,
			Accuracy:     0.2,
		},
		Bands: Bands{
			Excellent:  95,
			Good:       80,
			Acceptable: 60,
			Poor:       40,
		},
		MinConfidence:  0.3,
		ErrorPenalty:   0.1,
		WarningPenalty: 0.05,
	}
}

// Validate checks ranges. Weights are not required to sum to 1.
func (c Config) Validate() error {
	for _, dim := range types.Dimensions {
		if c.Weights.Of(dim) < 0 {
			return fmt.Errorf("%w: weight for %s must not be negative", types.ErrInvalidConfig, dim)
		}
	}
	b := c.Bands
	if !(b.Excellent >= b.Good && b.Good >= b.Acceptable && b.Acceptable >= b.Poor) {
		return fmt.Errorf("%w: band thresholds must be descending, got %v/%v/%v/%v",
			types.ErrInvalidConfig, b.Excellent, b.Good, b.Acceptable, b.Poor)
	}
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		return fmt.Errorf("%w: min confidence %v outside [0, 1]", types.ErrInvalidConfig, c.MinConfidence)
	}
	if c.ErrorPenalty < 0 || c.WarningPenalty < 0 {
		return fmt.Errorf("%w: penalties must not be negative", types.ErrInvalidConfig)
	}
	return nil
}

// ConfigUpdate is a partial update; nil fields keep their current value.
type ConfigUpdate struct {
	Completeness   *float64
	Validity       *float64
	Consistency    *float64
	Accuracy       *float64
	Excellent      *float64
	Good           *float64
	Acceptable     *float64
	Poor           *float64
	MinConfidence  *float64
	ErrorPenalty   *float64
	WarningPenalty *float64
}

// apply merges u into c.
func (u ConfigUpdate) apply(c Config) Config {
	set := func(dst *float64, src *float64) {
		if src != nil {
			*dst = *src
		}
	}
	set(&c.Weights.Completeness, u.Completeness)
	set(&c.Weights.Validity, u.Validity)
	set(&c.Weights.Consistency, u.Consistency)
	set(&c.Weights.Accuracy, u.Accuracy)
	set(&c.Bands.Excellent, u.Excellent)
	set(&c.Bands.Good, u.Good)
	set(&c.Bands.Acceptable, u.Acceptable)
	set(&c.Bands.Poor, u.Poor)
	set(&c.MinConfidence, u.MinConfidence)
	set(&c.ErrorPenalty, u.ErrorPenalty)
	set(&c.WarningPenalty, u.WarningPenalty)
	return c
}
