package scoring

import (
	"github.com/soilicd/soilicd/pkg/deviation"
	"github.com/soilicd/soilicd/pkg/icd"
	"github.com/soilicd/soilicd/pkg/thresholds"
)

// DefaultModelScore is the model_forecast score of a variable without forecast.
const DefaultModelScore = 0.6

// Options are the per-request scoring parameters. They are always passed
// explicitly; the engine keeps no mutable defaults.
type Options struct {
	BandTable thresholds.BandTableID
	// Weights per source. Nil means an equal-weight mean.
	Weights icd.Weights
	// Scale is the z distance at which a deviation score reaches 0.
	Scale float64
	// RelativeScale is the relative distance at which a relative score reaches 0.
	RelativeScale float64
	// MinSamples is the smallest subset a reference may be built from.
	MinSamples int
	// ModelDefault scores the model_forecast source when no forecast
	// covers the variable.
	ModelDefault float64

	// Penalties for the rule-based component.
	WarningPenalty float64
	SeverePenalty  float64
}

// DefaultSimulatorOptions returns the options of the single-value simulator.
func DefaultSimulatorOptions() Options {
	return Options{
		BandTable: thresholds.BandTableSimulator,
		Weights: icd.Weights{
			icd.SourceNational:  0.40,
			icd.SourceRegional:  0.30,
			icd.SourceModel:     0.30,
			icd.SourceRuleBased: 0,
		},
		Scale:          deviation.DefaultScale,
		RelativeScale:  deviation.DefaultRelativeScale,
		MinSamples:     1,
		ModelDefault:   DefaultModelScore,
		WarningPenalty: 0.10,
		SeverePenalty:  0.25,
	}
}

// DefaultValidationOptions returns the options of sample validation.
func DefaultValidationOptions() Options {
	return Options{
		BandTable:      thresholds.BandTableValidation,
		Scale:          deviation.DefaultScale,
		RelativeScale:  deviation.DefaultRelativeScale,
		MinSamples:     1,
		WarningPenalty: 0.10,
		SeverePenalty:  0.25,
	}
}
