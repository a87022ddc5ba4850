package dataset

import (
	"strings"

	"github.com/soilicd/soilicd/pkg/soil"
)

// Region is one of Colombia's natural regions.
type Region string

const (
	RegionAndina    Region = "Andina"
	RegionCaribe    Region = "Caribe"
	RegionPacifica  Region = "Pacífica"
	RegionOrinoquia Region = "Orinoquía"
	RegionAmazonia  Region = "Amazonía"
)

// Regions lists every region.
var Regions = []Region{RegionAndina, RegionCaribe, RegionPacifica, RegionOrinoquia, RegionAmazonia}

var departmentRegions = map[string]Region{
	"ANTIOQUIA":          RegionAndina,
	"BOYACA":             RegionAndina,
	"CALDAS":             RegionAndina,
	"CUNDINAMARCA":       RegionAndina,
	"HUILA":              RegionAndina,
	"NORTE DE SANTANDER": RegionAndina,
	"QUINDIO":            RegionAndina,
	"RISARALDA":          RegionAndina,
	"SANTANDER":          RegionAndina,
	"TOLIMA":             RegionAndina,
	"BOGOTA":             RegionAndina,
	"BOGOTA DC":          RegionAndina,

	"ATLANTICO":  RegionCaribe,
	"BOLIVAR":    RegionCaribe,
	"CESAR":      RegionCaribe,
	"CORDOBA":    RegionCaribe,
	"LA GUAJIRA": RegionCaribe,
	"GUAJIRA":    RegionCaribe,
	"MAGDALENA":  RegionCaribe,
	"SUCRE":      RegionCaribe,
	"SAN ANDRES": RegionCaribe,
	"ARCHIPIELAGO DE SAN ANDRES PROVIDENCIA Y SANTA CATALINA": RegionCaribe,

	"CHOCO":           RegionPacifica,
	"VALLE DEL CAUCA": RegionPacifica,
	"VALLE":           RegionPacifica,
	"CAUCA":           RegionPacifica,
	"NARINO":          RegionPacifica,

	"ARAUCA":   RegionOrinoquia,
	"CASANARE": RegionOrinoquia,
	"META":     RegionOrinoquia,
	"VICHADA":  RegionOrinoquia,

	"AMAZONAS": RegionAmazonia,
	"CAQUETA":  RegionAmazonia,
	"GUAINIA":  RegionAmazonia,
	"GUAVIARE": RegionAmazonia,
	"PUTUMAYO": RegionAmazonia,
	"VAUPES":   RegionAmazonia,
}

// RegionOf returns the natural region of department, or "" when unknown.
func RegionOf(department string) Region {
	return departmentRegions[departmentKey(department)]
}

// ParseRegion resolves a region name ignoring case and accents.
func ParseRegion(s string) (Region, bool) {
	key := soil.NormalizeName(s)
	for _, r := range Regions {
		if soil.NormalizeName(string(r)) == key {
			return r, true
		}
	}
	return "", false
}

func departmentKey(s string) string {
	s = strings.NewReplacer(".", "", ",", " ").Replace(s)
	return soil.NormalizeName(s)
}
