// Package recommend turns alerts into agronomic guidance. Lookups switch on
// the alert category; message text is never inspected.
package recommend

import (
	"github.com/soilicd/soilicd/pkg/alerts"
	"github.com/soilicd/soilicd/pkg/soil"
	"github.com/soilicd/soilicd/pkg/thresholds"
)

// ForCategory returns the canned guidance for an alert category, in display order.
func ForCategory(c alerts.Category) []string {
	switch c {
	case alerts.CategoryCaMgLow:
		return []string{
			"Aplicar cal agrícola (CaCO3) para elevar el calcio intercambiable.",
			"Evitar fuentes magnésicas como cal dolomita hasta corregir la relación Ca/Mg.",
		}
	case alerts.CategoryCaMgHigh:
		return []string{
			"Aplicar fuentes de magnesio como sulfato de magnesio o cal dolomita.",
		}
	case alerts.CategoryKSaturation:
		return []string{
			"Reducir la fertilización potásica en el siguiente ciclo.",
		}
	case alerts.CategoryKSaturationSevere:
		return []string{
			"Suspender aplicaciones de potasio y reponer calcio y magnesio.",
			"Repetir el análisis de bases intercambiables para confirmar el desbalance.",
		}
	case alerts.CategoryKMgHigh:
		return []string{
			"Aplicar sulfato de magnesio para equilibrar la relación K/Mg.",
		}
	case alerts.CategoryKMgSevere:
		return []string{
			"Suspender el potasio y aplicar magnesio al suelo y vía foliar.",
		}
	case alerts.CategoryAcidity:
		return []string{
			"Encalar según el requerimiento de cal calculado a partir de la acidez intercambiable.",
		}
	case alerts.CategoryAciditySevere:
		return []string{
			"Encalado correctivo urgente con cal agrícola o dolomita.",
			"Incorporar materia orgánica para amortiguar la acidez.",
		}
	case alerts.CategoryAluminum:
		return []string{
			"Aplicar cal para neutralizar el aluminio intercambiable.",
		}
	case alerts.CategoryAluminumSevere:
		return []string{
			"Aplicar cal y yeso agrícola para reducir la toxicidad por aluminio en profundidad.",
			"Preferir variedades tolerantes al aluminio.",
		}
	case alerts.CategorySalinity:
		return []string{
			"Mejorar el drenaje y vigilar la calidad del agua de riego.",
		}
	case alerts.CategorySalinitySevere:
		return []string{
			"Realizar lavado de sales con riego abundante y drenaje adecuado.",
			"Aplicar yeso agrícola si el sodio intercambiable es alto.",
		}
	case alerts.CategoryPhosphorusDeficit:
		return []string{
			"Aplicar fuentes fosfatadas como DAP, MAP o roca fosfórica.",
		}
	case alerts.CategoryBoronDeficit:
		return []string{
			"Aplicar bórax o ácido bórico al suelo o vía foliar.",
		}
	}
	return nil
}

// ForBand returns the overall guidance for a composite band, or "" for a
// band without guidance.
func ForBand(b thresholds.Band) string {
	switch b {
	case thresholds.BandExcellent:
		return "Excelente: la muestra es altamente confiable."
	case thresholds.BandGood:
		return "Buena: puede usarse sin restricciones, aunque se recomienda monitorear la variabilidad."
	case thresholds.BandModerate:
		return "Regular: úsela con precaución y considere validar con una muestra adicional."
	case thresholds.BandHighRisk, thresholds.BandCritical:
		return "Deficiente: la muestra no es confiable. Se sugiere repetir el muestreo o revisar el proceso analítico."
	}
	return ""
}

// Overlay holds crop-specific guidance keyed by the variable an alert involves.
type Overlay map[soil.Variable]string

// Mapper attaches guidance to alerts. Crop overlays are keyed by
// soil.NormalizeName of the crop.
type Mapper struct {
	overlays map[string]Overlay
}

// NewMapper creates a mapper with the given crop overlays. Keys are
// normalized, so "Café" and "CAFE" address the same overlay.
func NewMapper(overlays map[string]Overlay) *Mapper {
	m := &Mapper{overlays: make(map[string]Overlay, len(overlays))}
	for crop, o := range overlays {
		m.overlays[soil.NormalizeName(crop)] = o
	}
	return m
}

// Map returns the recommendations for as, in alert order. For each alert the
// category guidance comes first, then the crop overlay entry for the first
// alert variable that has one. Exact duplicates keep their first position.
func (m *Mapper) Map(as []alerts.Alert, crop string) []string {
	overlay := m.overlays[soil.NormalizeName(crop)]
	seen := make(map[string]bool)
	out := []string{}
	add := func(s string) {
		if s == "" || seen[s] {
			return
		}
		seen[s] = true
		out = append(out, s)
	}
	for _, a := range as {
		for _, s := range ForCategory(a.Category) {
			add(s)
		}
		if overlay == nil {
			continue
		}
		for _, v := range a.Variables {
			if s, ok := overlay[v]; ok {
				add(s)
				break
			}
		}
	}
	return out
}

// Crops returns the normalized crop keys that carry an overlay.
func (m *Mapper) Crops() []string {
	crops := make([]string, 0, len(m.overlays))
	for c := range m.overlays {
		crops = append(crops, c)
	}
	return crops
}

var defaultMapper = NewMapper(DefaultOverlays())

// MapRecommendations maps alerts to guidance using the default crop overlays.
func MapRecommendations(as []alerts.Alert, crop string) []string {
	return defaultMapper.Map(as, crop)
}
