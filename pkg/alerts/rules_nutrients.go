package alerts

import (
	"fmt"

	"github.com/soilicd/soilicd/pkg/soil"
)

// PhosphorusRule flags available phosphorus below Min.
type PhosphorusRule struct {
	Min float64
}

func (r *PhosphorusRule) Key() string  { return "phosphorus_deficiency" }
func (r *PhosphorusRule) Name() string { return "Deficiencia de fósforo" }

func (r *PhosphorusRule) Evaluate(m soil.Measurements) ([]Alert, error) {
	return deficiency(r.Key(), m, soil.Phosphorus, r.Min, CategoryPhosphorusDeficit,
		"Fósforo disponible bajo (%.1f < %g mg/kg)")
}

// BoronRule flags available boron below Min.
type BoronRule struct {
	Min float64
}

func (r *BoronRule) Key() string  { return "boron_deficiency" }
func (r *BoronRule) Name() string { return "Deficiencia de boro" }

func (r *BoronRule) Evaluate(m soil.Measurements) ([]Alert, error) {
	return deficiency(r.Key(), m, soil.Boron, r.Min, CategoryBoronDeficit,
		"Boro disponible bajo (%.2f < %g mg/kg)")
}

func deficiency(key string, m soil.Measurements, v soil.Variable, floor float64, cat Category, msg string) ([]Alert, error) {
	if err := require(key, m, v); err != nil {
		return nil, err
	}
	x, _ := m.Get(v)
	if x >= floor {
		return nil, nil
	}
	return []Alert{{
		Category:  cat,
		Severity:  SeverityWarning,
		Message:   fmt.Sprintf(msg, x, floor),
		Variables: []soil.Variable{v},
		Value:     x,
		Threshold: floor,
	}}, nil
}
