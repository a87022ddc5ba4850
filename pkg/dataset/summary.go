package dataset

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/soilicd/soilicd/pkg/icd"
	"github.com/soilicd/soilicd/pkg/soil"
	"github.com/soilicd/soilicd/pkg/thresholds"
)

// GroupBy selects the territorial level of a summary.
type GroupBy string

const (
	ByRegion       GroupBy = "region"
	ByDepartment   GroupBy = "department"
	ByMunicipality GroupBy = "municipality"
)

// Summary is the mean precomputed ICD of one territory.
type Summary struct {
	Region       Region          `json:"region,omitempty"`
	Department   string          `json:"department,omitempty"`
	Municipality string          `json:"municipality,omitempty"`
	Samples      int             `json:"samples"`
	MeanICD      float64         `json:"mean_icd"`
	Band         thresholds.Band `json:"band"`
}

// Summarize averages icd_total_<v> per territory and classifies each mean
// with the band table named by table. Territories are ranked by mean ICD,
// highest first, ties broken by name. Territories whose records carry no ICD
// value for v come last with thresholds.BandNoData and zero samples.
func (d *Dataset) Summarize(v soil.Variable, by GroupBy, f Filter, table thresholds.BandTableID) ([]Summary, error) {
	if _, err := thresholds.LookupBandTable(table); err != nil {
		return nil, err
	}
	type group struct {
		s      Summary
		values []float64
	}
	groups := make(map[string]*group)
	for _, r := range d.Records(f) {
		var key string
		s := Summary{Region: r.Region()}
		switch by {
		case ByRegion:
			if s.Region == "" {
				continue
			}
			key = soil.NormalizeName(string(s.Region))
		case ByDepartment:
			s.Department = r.Department
			key = soil.NormalizeName(r.Department)
		case ByMunicipality:
			s.Department, s.Municipality = r.Department, r.Municipality
			key = soil.NormalizeName(r.Department) + "/" + soil.NormalizeName(r.Municipality)
		default:
			return nil, fmt.Errorf("unknown grouping %q", by)
		}
		if key == "" {
			continue
		}
		g, ok := groups[key]
		if !ok {
			g = &group{s: s}
			groups[key] = g
		}
		if x, ok := r.ICD[v]; ok && !math.IsNaN(x) {
			g.values = append(g.values, x)
		}
	}

	out := make([]Summary, 0, len(groups))
	for _, g := range groups {
		mean := math.NaN()
		if len(g.values) > 0 {
			mean = icd.Round(stat.Mean(g.values, nil), 3)
		}
		band, err := icd.Classify(mean, table)
		if err != nil {
			return nil, err
		}
		g.s.Samples = len(g.values)
		g.s.Band = band
		if !math.IsNaN(mean) {
			g.s.MeanICD = mean
		}
		out = append(out, g.s)
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if (a.Samples > 0) != (b.Samples > 0) {
			return a.Samples > 0
		}
		if a.MeanICD != b.MeanICD {
			return a.MeanICD > b.MeanICD
		}
		return territoryKey(a) < territoryKey(b)
	})
	return out, nil
}

// HasData reports whether the summary averaged at least one ICD value.
func (s Summary) HasData() bool {
	return s.Samples > 0
}

func territoryKey(s Summary) string {
	return soil.NormalizeName(string(s.Region)) + "/" + soil.NormalizeName(s.Department) + "/" + soil.NormalizeName(s.Municipality)
}
