package alerts

import (
	"fmt"

	"github.com/soilicd/soilicd/pkg/soil"
)

// AciditySaturationRule checks (H+Al + Al)/CIC. Only the highest band fires.
type AciditySaturationRule struct {
	Warning float64
	Severe  float64
}

func (r *AciditySaturationRule) Key() string  { return "acidity_saturation" }
func (r *AciditySaturationRule) Name() string { return "Saturación de acidez" }

func (r *AciditySaturationRule) Evaluate(m soil.Measurements) ([]Alert, error) {
	if err := require(r.Key(), m, soil.ExchAcidity, soil.Aluminum, soil.CIC); err != nil {
		return nil, err
	}
	hal, _ := m.Get(soil.ExchAcidity)
	al, _ := m.Get(soil.Aluminum)
	cic, _ := m.Get(soil.CIC)
	if cic <= 0 {
		return nil, fmt.Errorf("%s: %w: CIC = %g", r.Key(), ErrUndefinedRatio, cic)
	}

	sat := (hal + al) / cic
	vars := []soil.Variable{soil.ExchAcidity, soil.Aluminum, soil.CIC}
	switch {
	case sat > r.Severe:
		return []Alert{{
			Category:  CategoryAciditySevere,
			Severity:  SeveritySevere,
			Message:   fmt.Sprintf("Saturación de acidez severa (%.0f%% > %.0f%%)", sat*100, r.Severe*100),
			Variables: vars,
			Value:     sat,
			Threshold: r.Severe,
		}}, nil
	case sat > r.Warning:
		return []Alert{{
			Category:  CategoryAcidity,
			Severity:  SeverityWarning,
			Message:   fmt.Sprintf("Saturación de acidez moderada (%.0f%% > %.0f%%)", sat*100, r.Warning*100),
			Variables: vars,
			Value:     sat,
			Threshold: r.Warning,
		}}, nil
	}
	return nil, nil
}

// bandedRule fires a single alert for the highest crossed band of one variable.
type bandedRule struct {
	key             string
	variable        soil.Variable
	warning, severe float64
	warnCat, sevCat Category
	warnMsg, sevMsg string
}

func (r bandedRule) evaluate(m soil.Measurements) ([]Alert, error) {
	if err := require(r.key, m, r.variable); err != nil {
		return nil, err
	}
	v, _ := m.Get(r.variable)
	vars := []soil.Variable{r.variable}
	switch {
	case v > r.severe:
		return []Alert{{
			Category:  r.sevCat,
			Severity:  SeveritySevere,
			Message:   fmt.Sprintf(r.sevMsg, v, r.severe),
			Variables: vars,
			Value:     v,
			Threshold: r.severe,
		}}, nil
	case v > r.warning:
		return []Alert{{
			Category:  r.warnCat,
			Severity:  SeverityWarning,
			Message:   fmt.Sprintf(r.warnMsg, v, r.warning),
			Variables: vars,
			Value:     v,
			Threshold: r.warning,
		}}, nil
	}
	return nil, nil
}

// AluminumRule checks exchangeable aluminum for toxicity.
type AluminumRule struct {
	Warning float64
	Severe  float64
}

func (r *AluminumRule) Key() string  { return "aluminum_toxicity" }
func (r *AluminumRule) Name() string { return "Toxicidad por aluminio" }

func (r *AluminumRule) Evaluate(m soil.Measurements) ([]Alert, error) {
	return bandedRule{
		key: r.Key(), variable: soil.Aluminum,
		warning: r.Warning, severe: r.Severe,
		warnCat: CategoryAluminum, sevCat: CategoryAluminumSevere,
		warnMsg: "Aluminio intercambiable alto (%.2f > %g cmol(+)/kg)",
		sevMsg:  "Toxicidad severa por aluminio (%.2f > %g cmol(+)/kg)",
	}.evaluate(m)
}

// SalinityRule checks electrical conductivity.
type SalinityRule struct {
	Warning float64
	Severe  float64
}

func (r *SalinityRule) Key() string  { return "salinity" }
func (r *SalinityRule) Name() string { return "Salinidad" }

func (r *SalinityRule) Evaluate(m soil.Measurements) ([]Alert, error) {
	return bandedRule{
		key: r.Key(), variable: soil.Conductivity,
		warning: r.Warning, severe: r.Severe,
		warnCat: CategorySalinity, sevCat: CategorySalinitySevere,
		warnMsg: "Conductividad eléctrica elevada (%.2f > %g dS/m): suelo ligeramente salino",
		sevMsg:  "Salinidad severa (%.2f > %g dS/m)",
	}.evaluate(m)
}
