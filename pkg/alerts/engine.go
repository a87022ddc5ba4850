package alerts

import (
	"errors"

	"github.com/soilicd/soilicd/pkg/soil"
	"github.com/soilicd/soilicd/pkg/thresholds"
)

// Rule is the interface all agronomic rules implement.
type Rule interface {
	// Key returns the machine-readable rule identifier.
	Key() string
	// Name returns the human-readable rule name.
	Name() string
	// Evaluate returns the alerts fired for m. A rule that cannot run returns
	// an error wrapping ErrMissingVariable or ErrUndefinedRatio.
	Evaluate(m soil.Measurements) ([]Alert, error)
}

// Engine runs rules in declaration order.
type Engine struct {
	rules []Rule
}

// NewEngine creates an engine with the given rules.
func NewEngine(rules ...Rule) *Engine {
	return &Engine{rules: rules}
}

// Rules returns the engine's rules in evaluation order.
func (e *Engine) Rules() []Rule {
	return append([]Rule(nil), e.rules...)
}

// Evaluate runs every rule against m. Rules that cannot run are recorded in
// Report.Skipped; they never abort the run and never synthesize alerts.
func (e *Engine) Evaluate(m soil.Measurements) Report {
	report := Report{Alerts: []Alert{}}
	for _, r := range e.rules {
		fired, err := r.Evaluate(m)
		if err != nil {
			skip := SkippedRule{Rule: r.Key(), Reason: err.Error()}
			var mv *MissingVariableError
			if errors.As(err, &mv) {
				skip.Missing = mv.Variables
			}
			report.Skipped = append(report.Skipped, skip)
			continue
		}
		report.Alerts = append(report.Alerts, fired...)
	}
	return report
}

var defaultEngine = NewEngine(DefaultRules(thresholds.Default())...)

// EvaluateAlerts runs the default rule set over values and returns the alerts
// in rule order.
func EvaluateAlerts(values soil.Measurements) []Alert {
	return defaultEngine.Evaluate(values).Alerts
}

func require(rule string, m soil.Measurements, vars ...soil.Variable) error {
	if missing := m.Missing(vars...); len(missing) > 0 {
		return &MissingVariableError{Rule: rule, Variables: missing}
	}
	return nil
}
