// Package alerts implements the agronomic rule engine. Each rule evaluates a
// cation ratio, a saturation index or a single-variable threshold and emits
// zero or more alerts. Rules run in a fixed order so output is deterministic.
package alerts

import (
	"errors"
	"fmt"
	"strings"

	"github.com/soilicd/soilicd/pkg/soil"
)

// Severity grades an alert.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeveritySevere  Severity = "severe"
)

// Category is the machine-readable identity of an alert. Recommendation
// lookups switch on it; the message text is for humans only.
type Category string

const (
	CategoryCaMgLow           Category = "ca_mg_low"
	CategoryCaMgHigh          Category = "ca_mg_high"
	CategoryKSaturation       Category = "k_saturation"
	CategoryKSaturationSevere Category = "k_saturation_severe"
	CategoryKMgHigh           Category = "k_mg_high"
	CategoryKMgSevere         Category = "k_mg_severe"
	CategoryAcidity           Category = "acidity_saturation"
	CategoryAciditySevere     Category = "acidity_saturation_severe"
	CategoryAluminum          Category = "aluminum_toxicity"
	CategoryAluminumSevere    Category = "aluminum_toxicity_severe"
	CategorySalinity          Category = "salinity"
	CategorySalinitySevere    Category = "salinity_severe"
	CategoryPhosphorusDeficit Category = "phosphorus_deficiency"
	CategoryBoronDeficit      Category = "boron_deficiency"
)

// Alert is a single finding. Alerts are produced fresh per evaluation.
type Alert struct {
	Category  Category        `json:"category"`
	Severity  Severity        `json:"severity"`
	Message   string          `json:"message"`
	Variables []soil.Variable `json:"variables"`
	Value     float64         `json:"value"`     // the evaluated ratio or value
	Threshold float64         `json:"threshold"` // the bound that was crossed
}

// Involves reports whether v is one of the alert's triggering variables.
func (a Alert) Involves(v soil.Variable) bool {
	for _, x := range a.Variables {
		if x == v {
			return true
		}
	}
	return false
}

// SkippedRule records a rule that could not be evaluated.
type SkippedRule struct {
	Rule    string          `json:"rule"`
	Missing []soil.Variable `json:"missing,omitempty"`
	Reason  string          `json:"reason"`
}

var (
	// ErrMissingVariable marks a rule skipped because an input was absent.
	ErrMissingVariable = errors.New("missing variable")
	// ErrUndefinedRatio marks a rule skipped because its denominator was not positive.
	ErrUndefinedRatio = errors.New("undefined ratio")
)

// MissingVariableError names the absent inputs of a rule.
type MissingVariableError struct {
	Rule      string
	Variables []soil.Variable
}

func (e *MissingVariableError) Error() string {
	names := make([]string, len(e.Variables))
	for i, v := range e.Variables {
		names[i] = string(v)
	}
	return fmt.Sprintf("%s: %v: %s", e.Rule, ErrMissingVariable, strings.Join(names, ", "))
}

func (e *MissingVariableError) Unwrap() error { return ErrMissingVariable }

// Report is the full output of an engine run.
type Report struct {
	Alerts  []Alert       `json:"alerts"`
	Skipped []SkippedRule `json:"skipped,omitempty"`
}

// Counts returns the number of warning and severe alerts.
func (r Report) Counts() (warnings, severe int) {
	for _, a := range r.Alerts {
		switch a.Severity {
		case SeveritySevere:
			severe++
		default:
			warnings++
		}
	}
	return warnings, severe
}
