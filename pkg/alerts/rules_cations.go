package alerts

import (
	"fmt"

	"github.com/soilicd/soilicd/pkg/soil"
)

// CaMgRule checks the Ca/Mg cation balance.
type CaMgRule struct {
	Low  float64 // ratio below this fires ca_mg_low
	High float64 // ratio above this fires ca_mg_high
}

func (r *CaMgRule) Key() string  { return "ca_mg_ratio" }
func (r *CaMgRule) Name() string { return "Relación Ca/Mg" }

func (r *CaMgRule) Evaluate(m soil.Measurements) ([]Alert, error) {
	if err := require(r.Key(), m, soil.Calcium, soil.Magnesium); err != nil {
		return nil, err
	}
	ca, _ := m.Get(soil.Calcium)
	mg, _ := m.Get(soil.Magnesium)
	if mg <= 0 {
		return nil, fmt.Errorf("%s: %w: Mg = %g", r.Key(), ErrUndefinedRatio, mg)
	}

	ratio := ca / mg
	vars := []soil.Variable{soil.Calcium, soil.Magnesium}
	switch {
	case ratio < r.Low:
		return []Alert{{
			Category:  CategoryCaMgLow,
			Severity:  SeverityWarning,
			Message:   fmt.Sprintf("Relación Ca/Mg baja (%.2f < %g): posible exceso de magnesio", ratio, r.Low),
			Variables: vars,
			Value:     ratio,
			Threshold: r.Low,
		}}, nil
	case ratio > r.High:
		return []Alert{{
			Category:  CategoryCaMgHigh,
			Severity:  SeverityWarning,
			Message:   fmt.Sprintf("Relación Ca/Mg alta (%.2f > %g): posible deficiencia de magnesio", ratio, r.High),
			Variables: vars,
			Value:     ratio,
			Threshold: r.High,
		}}, nil
	}
	return nil, nil
}

// KSaturationRule checks K/(Ca+Mg). Both bands may fire: a severe finding
// is reported alongside the warning, not instead of it.
type KSaturationRule struct {
	Warning float64
	Severe  float64
}

func (r *KSaturationRule) Key() string  { return "k_saturation" }
func (r *KSaturationRule) Name() string { return "Saturación de potasio" }

func (r *KSaturationRule) Evaluate(m soil.Measurements) ([]Alert, error) {
	if err := require(r.Key(), m, soil.Potassium, soil.Calcium, soil.Magnesium); err != nil {
		return nil, err
	}
	k, _ := m.Get(soil.Potassium)
	ca, _ := m.Get(soil.Calcium)
	mg, _ := m.Get(soil.Magnesium)
	base := ca + mg
	if base <= 0 {
		return nil, fmt.Errorf("%s: %w: Ca+Mg = %g", r.Key(), ErrUndefinedRatio, base)
	}

	ratio := k / base
	vars := []soil.Variable{soil.Potassium, soil.Calcium, soil.Magnesium}
	var out []Alert
	if ratio > r.Warning {
		out = append(out, Alert{
			Category:  CategoryKSaturation,
			Severity:  SeverityWarning,
			Message:   fmt.Sprintf("K/(Ca+Mg) elevado (%.3f > %g): riesgo de desbalance catiónico", ratio, r.Warning),
			Variables: vars,
			Value:     ratio,
			Threshold: r.Warning,
		})
	}
	if ratio > r.Severe {
		out = append(out, Alert{
			Category:  CategoryKSaturationSevere,
			Severity:  SeveritySevere,
			Message:   fmt.Sprintf("K/(Ca+Mg) muy elevado (%.3f > %g): antagonismo con Ca y Mg", ratio, r.Severe),
			Variables: vars,
			Value:     ratio,
			Threshold: r.Severe,
		})
	}
	return out, nil
}

// KMgRule checks the K/Mg ratio with the same double-fire behavior as
// KSaturationRule.
type KMgRule struct {
	Warning float64
	Severe  float64
}

func (r *KMgRule) Key() string  { return "k_mg_ratio" }
func (r *KMgRule) Name() string { return "Relación K/Mg" }

func (r *KMgRule) Evaluate(m soil.Measurements) ([]Alert, error) {
	if err := require(r.Key(), m, soil.Potassium, soil.Magnesium); err != nil {
		return nil, err
	}
	k, _ := m.Get(soil.Potassium)
	mg, _ := m.Get(soil.Magnesium)
	if mg <= 0 {
		return nil, fmt.Errorf("%s: %w: Mg = %g", r.Key(), ErrUndefinedRatio, mg)
	}

	ratio := k / mg
	vars := []soil.Variable{soil.Potassium, soil.Magnesium}
	var out []Alert
	if ratio > r.Warning {
		out = append(out, Alert{
			Category:  CategoryKMgHigh,
			Severity:  SeverityWarning,
			Message:   fmt.Sprintf("Relación K/Mg alta (%.2f > %g)", ratio, r.Warning),
			Variables: vars,
			Value:     ratio,
			Threshold: r.Warning,
		})
	}
	if ratio > r.Severe {
		out = append(out, Alert{
			Category:  CategoryKMgSevere,
			Severity:  SeveritySevere,
			Message:   fmt.Sprintf("Relación K/Mg muy alta (%.2f > %g): deficiencia inducida de magnesio", ratio, r.Severe),
			Variables: vars,
			Value:     ratio,
			Threshold: r.Severe,
		})
	}
	return out, nil
}
