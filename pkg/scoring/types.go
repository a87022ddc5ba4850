// Package scoring implements the ICD scoring engine. It combines deviation
// scores, agronomic alerts and recommendations into an explainable result
// for a single simulated value or a submitted sample.
package scoring

import (
	"github.com/soilicd/soilicd/pkg/alerts"
	"github.com/soilicd/soilicd/pkg/icd"
	"github.com/soilicd/soilicd/pkg/soil"
	"github.com/soilicd/soilicd/pkg/thresholds"
)

// Mode names the scoring workflow.
type Mode string

const (
	ModeSimulator  Mode = "simulator"
	ModeValidation Mode = "validation"
)

// Result is the complete output of one evaluation. It is a value object:
// nothing in it refers back to the engine.
type Result struct {
	Mode            Mode                   `json:"mode"`
	BandTable       thresholds.BandTableID `json:"band_table"`
	CompositeScore  float64                `json:"composite_score"`
	Band            thresholds.Band        `json:"band"`
	Components      []icd.Component        `json:"components"`
	Alerts          []alerts.Alert         `json:"alerts"`
	Recommendations []string               `json:"recommendations"`
	SkippedRules    []alerts.SkippedRule   `json:"skipped_rules,omitempty"`
	Diagnostics     []Diagnostic           `json:"diagnostics,omitempty"`
}

// AlertCounts returns the number of warning and severe alerts.
func (r *Result) AlertCounts() (warnings, severe int) {
	return alerts.Report{Alerts: r.Alerts}.Counts()
}

// DiagnosticCode classifies a diagnostic.
type DiagnosticCode string

const (
	DiagDegenerateDistribution DiagnosticCode = "degenerate_distribution"
	DiagRelativeFallback       DiagnosticCode = "relative_fallback"
	DiagMissingNational        DiagnosticCode = "missing_national_reference"
	DiagMissingRegional        DiagnosticCode = "missing_regional_series"
	DiagMissingForecast        DiagnosticCode = "missing_forecast"
	DiagMethodColumn           DiagnosticCode = "method_column"
)

// Diagnostic explains a substitution or omission made while scoring.
type Diagnostic struct {
	Code     DiagnosticCode `json:"code"`
	Source   icd.Source     `json:"source,omitempty"`
	Variable soil.Variable  `json:"variable,omitempty"`
	Message  string         `json:"message"`
}
