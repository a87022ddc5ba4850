// Package icd aggregates per-source conformity scores into the composite
// Data Quality Index (Índice de Calidad del Dato) and maps it to a band.
package icd

import (
	"errors"
	"fmt"
	"math"

	"github.com/soilicd/soilicd/pkg/soil"
	"github.com/soilicd/soilicd/pkg/thresholds"
)

// Source identifies where a score component comes from.
type Source string

const (
	SourceNational  Source = "deviation_national"
	SourceRegional  Source = "deviation_regional"
	SourceModel     Source = "model_forecast"
	SourceRuleBased Source = "rule_based"
)

// Sources lists every source in display order.
var Sources = []Source{SourceNational, SourceRegional, SourceModel, SourceRuleBased}

var (
	// ErrInsufficientData is returned when nothing carries weight.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrInvalidWeight is returned for negative or NaN weights.
	ErrInvalidWeight = errors.New("invalid weight")
)

// Component is one per-source conformity score in [0,1].
type Component struct {
	Source   Source        `json:"source"`
	Variable soil.Variable `json:"variable,omitempty"`
	Value    float64       `json:"value"`
	Weight   float64       `json:"weight"` // effective weight after renormalization
	Note     string        `json:"note,omitempty"`
}

// Weights maps a source to its relative weight. A nil Weights means every
// component counts equally.
type Weights map[Source]float64

// Validate rejects negative and NaN weights.
func (w Weights) Validate() error {
	for src, v := range w {
		if math.IsNaN(v) || v < 0 {
			return fmt.Errorf("%w: %s = %g", ErrInvalidWeight, src, v)
		}
	}
	return nil
}

// Composite is the aggregated result.
type Composite struct {
	Score      float64                `json:"composite_score"`
	Band       thresholds.Band        `json:"band"`
	BandTable  thresholds.BandTableID `json:"band_table"`
	Components []Component            `json:"components"`
}

// Aggregate computes the weighted composite over components and classifies it
// with the band table named by table.
//
// With nil weights the composite is the mean of all component values.
// Otherwise each component contributes weights[source]·value, and the sum is
// divided by the total weight of the components actually present, so a
// missing optional source does not drag the score down. The composite is
// clamped to [0,1] and rounded to 3 decimals.
func Aggregate(components []Component, weights Weights, table thresholds.BandTableID) (Composite, error) {
	bands, err := thresholds.LookupBandTable(table)
	if err != nil {
		return Composite{}, err
	}
	if len(components) == 0 {
		return Composite{}, fmt.Errorf("%w: no score components", ErrInsufficientData)
	}
	if err := weights.Validate(); err != nil {
		return Composite{}, err
	}

	out := make([]Component, len(components))
	var sum, total float64
	for i, c := range components {
		c.Value = clamp01(c.Value)
		w := 1.0
		if weights != nil {
			w = weights[c.Source]
		}
		c.Weight = w
		sum += w * c.Value
		total += w
		out[i] = c
	}
	if total <= 0 {
		return Composite{}, fmt.Errorf("%w: no component carries weight", ErrInsufficientData)
	}
	for i := range out {
		out[i].Weight = Round(out[i].Weight/total, 3)
	}

	score := Round(clamp01(sum/total), 3)
	return Composite{
		Score:      score,
		Band:       bands.Classify(score),
		BandTable:  bands.ID,
		Components: out,
	}, nil
}

// Classify maps an already computed score to a band. A NaN score, such as
// the mean of an empty series, is thresholds.BandNoData.
func Classify(score float64, table thresholds.BandTableID) (thresholds.Band, error) {
	bands, err := thresholds.LookupBandTable(table)
	if err != nil {
		return "", err
	}
	if math.IsNaN(score) {
		return thresholds.BandNoData, nil
	}
	return bands.Classify(Round(clamp01(score), 3)), nil
}

// Round rounds x half away from zero to the given number of decimals.
func Round(x float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(x*p) / p
}

// clamp01 forces v into [0,1]; NaN counts as fully non-conforming.
func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
