package thresholds

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// Band is the categorical interpretation of a composite ICD score.
type Band string

const (
	BandExcellent Band = "Excellent"
	BandGood      Band = "Good"
	BandModerate  Band = "Moderate"
	BandHighRisk  Band = "HighRisk"
	BandCritical  Band = "Critical"
	// BandNoData marks a territory or score with nothing to classify.
	BandNoData Band = "NoData"
)

var bandLabels = map[Band]string{
	BandExcellent: "Excelente",
	BandGood:      "Buena",
	BandModerate:  "Moderada",
	BandHighRisk:  "Riesgo alto",
	BandCritical:  "Crítica",
	BandNoData:    "Sin datos",
}

// Label returns the Spanish display label used by the dashboards.
func (b Band) Label() string {
	if l, ok := bandLabels[b]; ok {
		return l
	}
	return string(b)
}

// BandTableID names one of the band tables. Callers always pick one
// explicitly; there is no implicit default at this level.
type BandTableID string

const (
	// BandTableSimulator uses the 0.95/0.85/0.70 breakpoints of the
	// single-sample simulator screen.
	BandTableSimulator BandTableID = "simulator"
	// BandTableValidation uses the 0.90/0.75/0.60/0.45 breakpoints of the
	// sample validation and territorial screens.
	BandTableValidation BandTableID = "validation"
)

// ErrUnknownBandTable is returned when a band table identifier is not registered.
var ErrUnknownBandTable = errors.New("unknown band table")

// Breakpoint maps every score >= Min to Band.
type Breakpoint struct {
	Min  float64 `json:"min"`
	Band Band    `json:"band"`
}

// BandTable is an ordered list of breakpoints, highest first, plus the
// band used for scores below the last breakpoint.
type BandTable struct {
	ID          BandTableID  `json:"id"`
	Breakpoints []Breakpoint `json:"breakpoints"`
	Floor       Band         `json:"floor"`
}

// Classify returns the band for score. Lower bounds are inclusive; a NaN
// score is BandNoData.
func (t BandTable) Classify(score float64) Band {
	if math.IsNaN(score) {
		return BandNoData
	}
	for _, bp := range t.Breakpoints {
		if score >= bp.Min {
			return bp.Band
		}
	}
	return t.Floor
}

var bandTables = map[BandTableID]BandTable{
	BandTableSimulator: {
		ID: BandTableSimulator,
		Breakpoints: []Breakpoint{
			{Min: 0.95, Band: BandExcellent},
			{Min: 0.85, Band: BandGood},
			{Min: 0.70, Band: BandModerate},
		},
		Floor: BandHighRisk,
	},
	BandTableValidation: {
		ID: BandTableValidation,
		Breakpoints: []Breakpoint{
			{Min: 0.90, Band: BandExcellent},
			{Min: 0.75, Band: BandGood},
			{Min: 0.60, Band: BandModerate},
			{Min: 0.45, Band: BandHighRisk},
		},
		Floor: BandCritical,
	},
}

// LookupBandTable returns the band table registered under id.
func LookupBandTable(id BandTableID) (BandTable, error) {
	t, ok := bandTables[id]
	if !ok {
		return BandTable{}, fmt.Errorf("%w: %q", ErrUnknownBandTable, id)
	}
	// Copy the breakpoints so callers cannot alter the shared table.
	t.Breakpoints = append([]Breakpoint(nil), t.Breakpoints...)
	return t, nil
}

// BandTableIDs lists the registered identifiers, sorted.
func BandTableIDs() []BandTableID {
	ids := make([]BandTableID, 0, len(bandTables))
	for id := range bandTables {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
