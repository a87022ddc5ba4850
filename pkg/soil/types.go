// Package soil defines the shared vocabulary for soil laboratory measurements.
// Every other package speaks in these variable identifiers.
package soil

import (
	"math"
	"sort"
	"strings"
)

// Variable is a canonical soil variable identifier.
type Variable string

const (
	PH            Variable = "ph"
	OrganicMatter Variable = "mo"
	Phosphorus    Variable = "p"
	Sulfur        Variable = "s"
	Calcium       Variable = "ca"
	Magnesium     Variable = "mg"
	Potassium     Variable = "k"
	Sodium        Variable = "na"
	CIC           Variable = "cic"
	Conductivity  Variable = "ce"
	Iron          Variable = "fe"
	Copper        Variable = "cu"
	Manganese     Variable = "mn"
	Zinc          Variable = "zn"
	Boron         Variable = "b"
	ExchAcidity   Variable = "h_al" // exchangeable acidity (H + Al)
	Aluminum      Variable = "al"
)

// Known lists every variable in display order.
var Known = []Variable{
	PH, OrganicMatter, Phosphorus, Sulfur, Calcium, Magnesium, Potassium, Sodium,
	CIC, Conductivity, Iron, Copper, Manganese, Zinc, Boron, ExchAcidity, Aluminum,
}

var labels = map[Variable]string{
	PH:            "pH",
	OrganicMatter: "Materia orgánica (%)",
	Phosphorus:    "Fósforo (mg/kg)",
	Sulfur:        "Azufre (mg/kg)",
	Calcium:       "Calcio (cmol(+)/kg)",
	Magnesium:     "Magnesio (cmol(+)/kg)",
	Potassium:     "Potasio (cmol(+)/kg)",
	Sodium:        "Sodio (cmol(+)/kg)",
	CIC:           "CIC (cmol(+)/kg)",
	Conductivity:  "Conductividad eléctrica (dS/m)",
	Iron:          "Hierro (mg/kg)",
	Copper:        "Cobre (mg/kg)",
	Manganese:     "Manganeso (mg/kg)",
	Zinc:          "Zinc (mg/kg)",
	Boron:         "Boro (mg/kg)",
	ExchAcidity:   "Acidez intercambiable (cmol(+)/kg)",
	Aluminum:      "Aluminio (cmol(+)/kg)",
}

// Label returns the human-readable name of the variable.
func (v Variable) Label() string {
	if l, ok := labels[v]; ok {
		return l
	}
	return string(v)
}

// IsKnown reports whether v is one of the canonical variables.
func (v Variable) IsKnown() bool {
	_, ok := labels[v]
	return ok
}

// ParseVariable resolves a loosely written identifier ("Ca", " H_AL ") to a Variable.
func ParseVariable(s string) (Variable, bool) {
	v := Variable(strings.ToLower(strings.TrimSpace(s)))
	return v, v.IsKnown()
}

// Measurements holds the values submitted for a single sample.
// A NaN value is treated the same as an absent one.
type Measurements map[Variable]float64

// Get returns the value for v and whether it is present.
func (m Measurements) Get(v Variable) (float64, bool) {
	x, ok := m[v]
	if !ok || math.IsNaN(x) {
		return 0, false
	}
	return x, true
}

// Has reports whether every listed variable is present.
func (m Measurements) Has(vars ...Variable) bool {
	for _, v := range vars {
		if _, ok := m.Get(v); !ok {
			return false
		}
	}
	return true
}

// Missing returns the subset of vars that are absent, in the given order.
func (m Measurements) Missing(vars ...Variable) []Variable {
	var missing []Variable
	for _, v := range vars {
		if _, ok := m.Get(v); !ok {
			missing = append(missing, v)
		}
	}
	return missing
}

// Variables returns the present variables sorted in Known order,
// followed by any unknown identifiers sorted lexically.
func (m Measurements) Variables() []Variable {
	var vars []Variable
	for v := range m {
		if _, ok := m.Get(v); ok {
			vars = append(vars, v)
		}
	}
	sortVariables(vars)
	return vars
}

// Keys returns every submitted variable, NaN entries included, in the same
// order as Variables.
func (m Measurements) Keys() []Variable {
	vars := make([]Variable, 0, len(m))
	for v := range m {
		vars = append(vars, v)
	}
	sortVariables(vars)
	return vars
}

func sortVariables(vars []Variable) {
	rank := make(map[Variable]int, len(Known))
	for i, v := range Known {
		rank[v] = i
	}
	sort.Slice(vars, func(i, j int) bool {
		ri, iok := rank[vars[i]]
		rj, jok := rank[vars[j]]
		switch {
		case iok && jok:
			return ri < rj
		case iok != jok:
			return iok
		default:
			return vars[i] < vars[j]
		}
	})
}
