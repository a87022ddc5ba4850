// Package thresholds holds the static agronomic threshold tables and the
// interpretive band tables for composite ICD scores. Tables are built once
// and only read afterwards; callers wanting different numbers build a new
// table with Override rather than mutating a shared one.
package thresholds

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/soilicd/soilicd/pkg/soil"
)

// Direction tells how a threshold entry should be read.
type Direction string

const (
	// HigherIsBetter entries flag values that fall below Low (and Critical).
	HigherIsBetter Direction = "higher_is_better"
	// LowerIsBetter entries flag values that rise above Low (warning) and High (severe).
	LowerIsBetter Direction = "lower_is_better"
	// Range entries flag values outside [Low, High].
	Range Direction = "range"
)

// Ratio keys for the multi-variable diagnostics. Single variables use their
// soil.Variable identifier as key.
const (
	CaMgRatio         = "ca_mg"
	KSaturation       = "k_saturation"
	KMgRatio          = "k_mg"
	AciditySaturation = "acidity_saturation"
	AluminumToxicity  = string(soil.Aluminum)
	Salinity          = string(soil.Conductivity)
	PhosphorusDeficit = string(soil.Phosphorus)
	BoronDeficit      = string(soil.Boron)
)

// ErrInvalidEntry is returned by Validate when an entry breaks the ordering invariant.
var ErrInvalidEntry = errors.New("invalid threshold entry")

// Entry is one row of the threshold table.
type Entry struct {
	Key       string    `json:"key" yaml:"key"`
	Direction Direction `json:"direction" yaml:"direction"`
	Critical  float64   `json:"critical,omitempty" yaml:"critical"`
	Low       float64   `json:"low" yaml:"low"`
	High      float64   `json:"high" yaml:"high"`
	// Min and Max bound physically plausible values. Zero-valued bounds
	// with Max <= Min mean "no bound".
	Min float64 `json:"min,omitempty" yaml:"min"`
	Max float64 `json:"max,omitempty" yaml:"max"`
}

// Validate checks the ordering invariant for the entry's direction.
func (e Entry) Validate() error {
	if math.IsNaN(e.Low) || math.IsNaN(e.High) || math.IsNaN(e.Critical) {
		return fmt.Errorf("%w: %s has NaN bounds", ErrInvalidEntry, e.Key)
	}
	switch e.Direction {
	case HigherIsBetter:
		if !(e.Critical < e.Low && e.Low <= e.High) {
			return fmt.Errorf("%w: %s requires critical < low <= high (got %g, %g, %g)",
				ErrInvalidEntry, e.Key, e.Critical, e.Low, e.High)
		}
	case LowerIsBetter, Range:
		if e.Low > e.High {
			return fmt.Errorf("%w: %s requires low <= high (got %g, %g)", ErrInvalidEntry, e.Key, e.Low, e.High)
		}
	default:
		return fmt.Errorf("%w: %s has unknown direction %q", ErrInvalidEntry, e.Key, e.Direction)
	}
	return nil
}

// Bounded reports whether the entry carries a plausible physical range.
func (e Entry) Bounded() bool { return e.Max > e.Min }

// Clip forces v into the plausible range when the entry has one.
func (e Entry) Clip(v float64) float64 {
	if !e.Bounded() || math.IsNaN(v) {
		return v
	}
	return math.Max(e.Min, math.Min(v, e.Max))
}

// Level is the interpretation of a single value against an entry.
type Level string

const (
	LevelCritical Level = "critical"
	LevelLow      Level = "low"
	LevelOptimal  Level = "optimal"
	LevelHigh     Level = "high"
	LevelSevere   Level = "severe"
)

// Classify interprets v against the entry.
func (e Entry) Classify(v float64) Level {
	switch e.Direction {
	case HigherIsBetter:
		switch {
		case v < e.Critical:
			return LevelCritical
		case v < e.Low:
			return LevelLow
		case v > e.High:
			return LevelHigh
		}
	case LowerIsBetter:
		switch {
		case v > e.High:
			return LevelSevere
		case v > e.Low:
			return LevelHigh
		}
	case Range:
		switch {
		case v < e.Low:
			return LevelLow
		case v > e.High:
			return LevelHigh
		}
	}
	return LevelOptimal
}

// Table maps keys to entries.
type Table struct {
	entries map[string]Entry
}

// NewTable builds a table from entries, validating each one.
func NewTable(entries ...Entry) (*Table, error) {
	t := &Table{entries: make(map[string]Entry, len(entries))}
	for _, e := range entries {
		if err := e.Validate(); err != nil {
			return nil, err
		}
		t.entries[e.Key] = e
	}
	return t, nil
}

// Lookup returns the entry for key.
func (t *Table) Lookup(key string) (Entry, bool) {
	if t == nil {
		return Entry{}, false
	}
	e, ok := t.entries[key]
	return e, ok
}

// Variable is Lookup keyed by a soil variable.
func (t *Table) Variable(v soil.Variable) (Entry, bool) {
	return t.Lookup(string(v))
}

// Keys returns all keys, sorted.
func (t *Table) Keys() []string {
	keys := make([]string, 0, len(t.entries))
	for k := range t.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Override returns a copy of t with the given entries replaced or added.
// The receiver is left untouched.
func (t *Table) Override(entries ...Entry) (*Table, error) {
	merged := make([]Entry, 0, len(t.entries)+len(entries))
	for _, e := range t.entries {
		merged = append(merged, e)
	}
	merged = append(merged, entries...)
	return NewTable(merged...)
}
