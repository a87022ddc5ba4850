package thresholds

import "github.com/soilicd/soilicd/pkg/soil"

// Defaults returns the ICA/AGROSAVIA reference entries used across the engine.
func Defaults() []Entry {
	return []Entry{
		// Cation balance and saturation ratios
		{Key: CaMgRatio, Direction: Range, Low: 2, High: 8},
		{Key: KSaturation, Direction: LowerIsBetter, Low: 0.10, High: 0.15},
		{Key: KMgRatio, Direction: LowerIsBetter, Low: 0.30, High: 0.60},
		{Key: AciditySaturation, Direction: LowerIsBetter, Low: 0.30, High: 0.60, Min: 0, Max: 1},

		// Toxicity and salinity
		{Key: string(soil.Aluminum), Direction: LowerIsBetter, Low: 1, High: 2, Min: 0, Max: 30},
		{Key: string(soil.Conductivity), Direction: LowerIsBetter, Low: 2, High: 4, Min: 0, Max: 50},
		{Key: string(soil.Sodium), Direction: LowerIsBetter, Low: 0.5, High: 1, Min: 0, Max: 50},
		{Key: string(soil.ExchAcidity), Direction: LowerIsBetter, Low: 1, High: 2.5, Min: 0, Max: 30},

		// Nutrients
		{Key: string(soil.Phosphorus), Direction: HigherIsBetter, Critical: 5, Low: 10, High: 40, Min: 0, Max: 1000},
		{Key: string(soil.Boron), Direction: HigherIsBetter, Critical: 0.1, Low: 0.2, High: 0.6, Min: 0, Max: 20},
		{Key: string(soil.Calcium), Direction: HigherIsBetter, Critical: 1.5, Low: 3, High: 6, Min: 0, Max: 100},
		{Key: string(soil.Magnesium), Direction: HigherIsBetter, Critical: 0.5, Low: 1.5, High: 2.5, Min: 0, Max: 60},
		{Key: string(soil.Potassium), Direction: HigherIsBetter, Critical: 0.1, Low: 0.2, High: 0.4, Min: 0, Max: 20},
		{Key: string(soil.Sulfur), Direction: HigherIsBetter, Critical: 5, Low: 10, High: 20, Min: 0, Max: 1000},
		{Key: string(soil.Iron), Direction: HigherIsBetter, Critical: 10, Low: 25, High: 50, Min: 0, Max: 3000},
		{Key: string(soil.Manganese), Direction: HigherIsBetter, Critical: 2, Low: 5, High: 10, Min: 0, Max: 1000},
		{Key: string(soil.Zinc), Direction: HigherIsBetter, Critical: 1, Low: 1.5, High: 3, Min: 0, Max: 500},
		{Key: string(soil.Copper), Direction: HigherIsBetter, Critical: 0.5, Low: 1, High: 3, Min: 0, Max: 500},
		{Key: string(soil.OrganicMatter), Direction: HigherIsBetter, Critical: 1, Low: 2, High: 5, Min: 0, Max: 100},
		{Key: string(soil.CIC), Direction: HigherIsBetter, Critical: 5, Low: 10, High: 20, Min: 0, Max: 200},

		// pH is a range: strongly acid and alkaline soils are both flagged.
		{Key: string(soil.PH), Direction: Range, Low: 5.5, High: 7.3, Min: 0, Max: 14},
	}
}

var defaultTable *Table

func init() {
	t, err := NewTable(Defaults()...)
	if err != nil {
		panic("thresholds: invalid default table: " + err.Error())
	}
	defaultTable = t
}

// Default returns the process-wide read-only default table.
func Default() *Table { return defaultTable }
