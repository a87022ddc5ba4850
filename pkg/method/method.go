// Package method picks the laboratory extraction method column for
// micronutrients. Crops on the Olsen allow-list read the Olsen-modified
// extraction; every other crop reads the double-acid (Mehlich-1) column.
package method

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/soilicd/soilicd/pkg/soil"
)

// Method is an extraction method.
type Method string

const (
	Olsen      Method = "olsen"
	DoubleAcid Method = "doble_acido"
)

// Label returns the display name of the method.
func (m Method) Label() string {
	switch m {
	case Olsen:
		return "Olsen modificado"
	case DoubleAcid:
		return "Doble ácido"
	}
	return string(m)
}

var (
	// ErrUnknownElement is returned for elements outside Fe, Mn, Zn, Cu.
	ErrUnknownElement = errors.New("unknown element")
	// ErrUnknownCropCategory is returned for a blank crop.
	ErrUnknownCropCategory = errors.New("unknown crop category")
)

// Elements are the micronutrients with method-dependent columns.
var Elements = []soil.Variable{soil.Iron, soil.Manganese, soil.Zinc, soil.Copper}

// DefaultOlsenCrops is the built-in Olsen allow-list.
var DefaultOlsenCrops = []string{
	"CAFÉ", "CACAO", "AGUACATE", "CÍTRICOS", "PLÁTANO", "BANANO", "PALMA DE ACEITE",
}

// Column identifies a dataset column, e.g. "zn_olsen". LabName is the same
// column in the processed laboratory exports, e.g. "zinc_olsen".
type Column struct {
	Element soil.Variable `json:"element"`
	Method  Method        `json:"method"`
	Name    string        `json:"column"`
	LabName string        `json:"lab_column"`
}

// Olsen copper is exported as plain "cobre_disponible".
var labColumns = map[string]string{
	"fe_olsen":       "hierro_olsen",
	"cu_olsen":       "cobre_disponible",
	"mn_olsen":       "manganeso_olsen",
	"zn_olsen":       "zinc_olsen",
	"fe_doble_acido": "hierro_doble_acido",
	"cu_doble_acido": "cobre_disponible_doble_acido",
	"mn_doble_acido": "manganeso_doble_acido",
	"zn_doble_acido": "zinc_doble_acido",
}

// Selector resolves micronutrient columns against an allow-list.
type Selector struct {
	olsen map[string]bool
}

// NewSelector builds a selector. Crop names are matched ignoring case and accents.
func NewSelector(olsenCrops []string) *Selector {
	s := &Selector{olsen: make(map[string]bool, len(olsenCrops))}
	for _, c := range olsenCrops {
		if k := soil.NormalizeName(c); k != "" {
			s.olsen[k] = true
		}
	}
	return s
}

// MethodFor returns the extraction method used for crop.
func (s *Selector) MethodFor(crop string) (Method, error) {
	key := soil.NormalizeName(crop)
	if key == "" {
		return "", fmt.Errorf("%w: blank crop", ErrUnknownCropCategory)
	}
	if s.olsen[key] {
		return Olsen, nil
	}
	return DoubleAcid, nil
}

// Select returns the column to read for element under crop.
func (s *Selector) Select(crop string, element soil.Variable) (Column, error) {
	el, err := ParseElement(string(element))
	if err != nil {
		return Column{}, err
	}
	m, err := s.MethodFor(crop)
	if err != nil {
		return Column{}, err
	}
	return newColumn(el, m), nil
}

func newColumn(el soil.Variable, m Method) Column {
	name := ColumnName(el, m)
	return Column{Element: el, Method: m, Name: name, LabName: labColumns[name]}
}

// Crops returns the normalized allow-list, sorted.
func (s *Selector) Crops() []string {
	out := make([]string, 0, len(s.olsen))
	for c := range s.olsen {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// ParseElement accepts "Zn", "zn" or " ZN ".
func ParseElement(s string) (soil.Variable, error) {
	v := soil.Variable(strings.ToLower(strings.TrimSpace(s)))
	for _, e := range Elements {
		if v == e {
			return v, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownElement, s)
}

// ColumnName builds the dataset column identifier.
func ColumnName(element soil.Variable, m Method) string {
	return string(element) + "_" + string(m)
}

// ParseColumn resolves a method-qualified column written either way:
// "zn_olsen" or the laboratory export name "zinc_olsen".
func ParseColumn(name string) (Column, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, el := range Elements {
		for _, m := range []Method{Olsen, DoubleAcid} {
			c := newColumn(el, m)
			if name == c.Name || name == c.LabName {
				return c, true
			}
		}
	}
	return Column{}, false
}

var defaultSelector = NewSelector(DefaultOlsenCrops)

// SelectMicronutrientColumn resolves the column with the default allow-list.
func SelectMicronutrientColumn(crop string, element soil.Variable) (Column, error) {
	return defaultSelector.Select(crop, element)
}
