// Package dataset holds the historical laboratory records used as the
// reference population for deviation scoring, together with the forecast
// series and the territorial ICD summaries.
package dataset

import (
	"sort"

	"github.com/soilicd/soilicd/pkg/deviation"
	"github.com/soilicd/soilicd/pkg/soil"
)

// Record is one laboratory sample.
type Record struct {
	Department   string            `json:"department"`
	Municipality string            `json:"municipality"`
	Crop         string            `json:"crop,omitempty"`
	Values       soil.Measurements `json:"values"`
	// NaturalRegion is the region column of the export, when present.
	NaturalRegion Region `json:"region,omitempty"`
	// Columns holds method-qualified readings such as "zn_olsen".
	Columns map[string]float64 `json:"columns,omitempty"`
	// ICD holds the precomputed icd_total_<variable> scores.
	ICD map[soil.Variable]float64 `json:"icd,omitempty"`
}

// Value returns the reading for v, checking canonical values first and then
// method-qualified columns.
func (r Record) Value(v soil.Variable) (float64, bool) {
	if x, ok := r.Values.Get(v); ok {
		return x, true
	}
	x, ok := r.Columns[string(v)]
	return x, ok
}

// Region returns the record's natural region: the region column when the
// export carries one, otherwise the region of its department.
func (r Record) Region() Region {
	if r.NaturalRegion != "" {
		return r.NaturalRegion
	}
	return RegionOf(r.Department)
}

// Filter selects records by territory and crop. Empty fields match anything.
// Matching ignores case and accents.
type Filter struct {
	Region       Region `json:"region,omitempty"`
	Department   string `json:"department,omitempty"`
	Municipality string `json:"municipality,omitempty"`
	Crop         string `json:"crop,omitempty"`
}

// IsZero reports whether the filter matches every record.
func (f Filter) IsZero() bool {
	return f == Filter{}
}

// Match reports whether r passes the filter.
func (f Filter) Match(r Record) bool {
	if f.Region != "" && r.Region() != f.Region {
		return false
	}
	if !sameName(f.Department, r.Department) {
		return false
	}
	if !sameName(f.Municipality, r.Municipality) {
		return false
	}
	return sameName(f.Crop, r.Crop)
}

func sameName(want, got string) bool {
	if want == "" {
		return true
	}
	return soil.NormalizeName(want) == soil.NormalizeName(got)
}

// Dataset is an immutable collection of records.
type Dataset struct {
	records []Record
}

// New wraps records in a Dataset. The slice is not copied.
func New(records []Record) *Dataset {
	return &Dataset{records: records}
}

// Len returns the number of records.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.records)
}

// Records returns the records matching f.
func (d *Dataset) Records(f Filter) []Record {
	if d == nil {
		return nil
	}
	if f.IsZero() {
		return d.records
	}
	var out []Record
	for _, r := range d.records {
		if f.Match(r) {
			out = append(out, r)
		}
	}
	return out
}

// Samples returns the present readings of v among records matching f.
func (d *Dataset) Samples(v soil.Variable, f Filter) []float64 {
	var out []float64
	for _, r := range d.Records(f) {
		if x, ok := r.Value(v); ok {
			out = append(out, x)
		}
	}
	return out
}

// Reference derives the reference distribution of v over the records
// matching f. See deviation.NewReference for the sample rules.
func (d *Dataset) Reference(v soil.Variable, f Filter, minSamples int) (deviation.Reference, error) {
	return deviation.NewReference(v, d.Samples(v, f), minSamples)
}

// Departments returns the distinct department names, sorted.
func (d *Dataset) Departments() []string {
	return d.distinct(func(r Record) string { return r.Department })
}

// Crops returns the distinct crop names, sorted.
func (d *Dataset) Crops() []string {
	return d.distinct(func(r Record) string { return r.Crop })
}

func (d *Dataset) distinct(field func(Record) string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range d.Records(Filter{}) {
		s := field(r)
		key := soil.NormalizeName(s)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
