// Package deviation scores how far a measured value sits from a reference
// distribution. Scores are normalized to [0,1]: 1 means the value matches the
// reference center, 0 means it is at or beyond the configured scale.
package deviation

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/soilicd/soilicd/pkg/soil"
	"github.com/soilicd/soilicd/pkg/thresholds"
)

const (
	// DefaultScale is the number of standard deviations at which the score reaches 0.
	DefaultScale = 3.0
	// DefaultRelativeScale is the relative distance (fraction of |center|) at
	// which the relative score reaches 0.
	DefaultRelativeScale = 1.0
	// NeutralScore is returned when a distribution carries no usable variance.
	NeutralScore = 0.5
	// Epsilon keeps the relative variant finite when the center is 0.
	Epsilon = 1e-6
)

var (
	// ErrDegenerateDistribution marks a reference whose std is zero or NaN.
	ErrDegenerateDistribution = errors.New("degenerate distribution")
	// ErrInsufficientData marks a reference built from too few samples.
	ErrInsufficientData = errors.New("insufficient data")
)

// Reference summarizes the historical distribution of one variable.
type Reference struct {
	Variable    soil.Variable `json:"variable"`
	Mean        float64       `json:"mean"`
	Std         float64       `json:"std"`
	SampleCount int           `json:"sample_count"`
}

// Degenerate reports whether the reference has no usable spread.
func (r Reference) Degenerate() bool {
	return math.IsNaN(r.Std) || r.Std == 0
}

// Validate returns ErrDegenerateDistribution for degenerate references.
func (r Reference) Validate() error {
	if math.IsNaN(r.Mean) {
		return fmt.Errorf("%w: %s has no mean", ErrDegenerateDistribution, r.Variable)
	}
	if r.Degenerate() {
		return fmt.Errorf("%w: %s (n=%d)", ErrDegenerateDistribution, r.Variable, r.SampleCount)
	}
	return nil
}

// NewReference derives a reference from raw samples. NaN samples are dropped.
// A single remaining sample yields std NaN; fewer than minSamples (at least 1)
// returns ErrInsufficientData.
func NewReference(v soil.Variable, samples []float64, minSamples int) (Reference, error) {
	if minSamples < 1 {
		minSamples = 1
	}
	clean := make([]float64, 0, len(samples))
	for _, s := range samples {
		if !math.IsNaN(s) && !math.IsInf(s, 0) {
			clean = append(clean, s)
		}
	}
	if len(clean) < minSamples {
		return Reference{}, fmt.Errorf("%w: %s has %d samples, need %d", ErrInsufficientData, v, len(clean), minSamples)
	}

	ref := Reference{Variable: v, SampleCount: len(clean)}
	if len(clean) == 1 {
		ref.Mean = clean[0]
		ref.Std = math.NaN()
		return ref, nil
	}
	ref.Mean, ref.Std = stat.MeanStdDev(clean, nil)
	return ref, nil
}

// ScoreDeviation returns max(0, 1 - min(|value-mean|/std/scale, 1)).
// A NaN value yields 0, even against a degenerate reference; otherwise
// degenerate references yield NeutralScore. A non-positive scale falls back
// to DefaultScale.
func ScoreDeviation(value float64, ref Reference, scale float64) float64 {
	if math.IsNaN(value) {
		return 0
	}
	if ref.Degenerate() || math.IsNaN(ref.Mean) {
		return NeutralScore
	}
	if scale <= 0 || math.IsNaN(scale) {
		scale = DefaultScale
	}
	z := math.Abs(value-ref.Mean) / ref.Std
	return decay(z, scale)
}

// ScoreRelative is the distance variant used when no std is available: the
// absolute difference is normalized by |center| + Epsilon instead of std.
// A NaN value or center yields 0.
func ScoreRelative(value, center, scale float64) float64 {
	if math.IsNaN(value) || math.IsNaN(center) {
		return 0
	}
	if scale <= 0 || math.IsNaN(scale) {
		scale = DefaultRelativeScale
	}
	d := math.Abs(value-center) / (math.Abs(center) + Epsilon)
	return decay(d, scale)
}

func decay(distance, scale float64) float64 {
	if math.IsInf(distance, 0) {
		return 0
	}
	return math.Max(0, 1-math.Min(distance/scale, 1))
}

// Scorer applies the threshold table's plausible ranges before scoring.
type Scorer struct {
	Table         *thresholds.Table
	Scale         float64
	RelativeScale float64
}

// NewScorer returns a Scorer over table with default scales.
func NewScorer(table *thresholds.Table) *Scorer {
	return &Scorer{Table: table, Scale: DefaultScale, RelativeScale: DefaultRelativeScale}
}

func (s *Scorer) clip(v soil.Variable, value float64) float64 {
	if s == nil || s.Table == nil {
		return value
	}
	if e, ok := s.Table.Variable(v); ok {
		return e.Clip(value)
	}
	return value
}

// Score clips value into the variable's plausible range and scores it against ref.
func (s *Scorer) Score(value float64, ref Reference) float64 {
	return ScoreDeviation(s.clip(ref.Variable, value), ref, s.scale())
}

// Relative clips value and scores it against a single center point.
func (s *Scorer) Relative(v soil.Variable, value, center float64) float64 {
	return ScoreRelative(s.clip(v, value), center, s.relativeScale())
}

func (s *Scorer) scale() float64 {
	if s == nil {
		return DefaultScale
	}
	return s.Scale
}

func (s *Scorer) relativeScale() float64 {
	if s == nil {
		return DefaultRelativeScale
	}
	return s.RelativeScale
}
