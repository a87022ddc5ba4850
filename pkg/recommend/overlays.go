package recommend

import "github.com/soilicd/soilicd/pkg/soil"

// DefaultOverlays returns the built-in crop overlays.
func DefaultOverlays() map[string]Overlay {
	return map[string]Overlay{
		"CAFE": {
			soil.Magnesium:  "En café, mantener Mg intercambiable por encima de 1 cmol(+)/kg para evitar amarillamiento de hojas.",
			soil.Potassium:  "En café, fraccionar el potasio en dos o tres aplicaciones durante el llenado de grano.",
			soil.Aluminum:   "En café, encalar antes de la siembra o renovación; el cultivo tolera hasta 60% de saturación de aluminio.",
			soil.Phosphorus: "En café, concentrar el fósforo en el hoyo de siembra y en almácigo.",
			soil.Boron:      "En café, aplicar boro foliar antes de la floración principal.",
		},
		"CACAO": {
			soil.Calcium:     "En cacao, priorizar calcio y magnesio antes de la floración.",
			soil.ExchAcidity: "En cacao, corregir la acidez en la zona de raíces con cal incorporada en la corona.",
			soil.Boron:       "En cacao, el boro favorece el cuajado de mazorcas; aplicar vía foliar.",
		},
		"AGUACATE": {
			soil.Conductivity: "En aguacate, el cultivo es muy sensible a sales; evitar fertilizantes con cloruro.",
			soil.Boron:        "En aguacate, aplicar boro antes de la floración para mejorar el cuajado.",
		},
		"PLATANO": {
			soil.Potassium: "En plátano, el potasio es el nutriente de mayor demanda; ajustar la dosis sin suspenderla.",
		},
		"BANANO": {
			soil.Potassium: "En banano, ajustar la dosis de potasio sin suspenderla; el cultivo la demanda en alta cantidad.",
		},
		"ARROZ": {
			soil.Conductivity: "En arroz, mantener lámina de agua para diluir sales durante el macollamiento.",
			soil.Phosphorus:   "En arroz, aplicar el fósforo en presiembra incorporado.",
		},
		"PAPA": {
			soil.Phosphorus: "En papa, localizar el fósforo en banda al momento de la siembra.",
			soil.Aluminum:   "En papa, el cultivo tolera acidez moderada; encalar solo si el aluminio supera 2 cmol(+)/kg.",
		},
		"MAIZ": {
			soil.Aluminum:   "En maíz, usar híbridos tolerantes al aluminio en suelos de Orinoquía.",
			soil.Phosphorus: "En maíz, aplicar el fósforo al fondo del surco.",
		},
	}
}
