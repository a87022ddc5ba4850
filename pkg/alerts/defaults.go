package alerts

import "github.com/soilicd/soilicd/pkg/thresholds"

// DefaultRules returns the eight agronomic rules in their fixed evaluation
// order, reading bounds from table. Keys absent from table fall back to the
// reference values of thresholds.Defaults.
func DefaultRules(table *thresholds.Table) []Rule {
	b := bounds(table)
	caMg := b(thresholds.CaMgRatio)
	kSat := b(thresholds.KSaturation)
	kMg := b(thresholds.KMgRatio)
	acid := b(thresholds.AciditySaturation)
	al := b(thresholds.AluminumToxicity)
	ce := b(thresholds.Salinity)
	p := b(thresholds.PhosphorusDeficit)
	boron := b(thresholds.BoronDeficit)

	return []Rule{
		&CaMgRule{Low: caMg.Low, High: caMg.High},
		&KSaturationRule{Warning: kSat.Low, Severe: kSat.High},
		&KMgRule{Warning: kMg.Low, Severe: kMg.High},
		&AciditySaturationRule{Warning: acid.Low, Severe: acid.High},
		&AluminumRule{Warning: al.Low, Severe: al.High},
		&SalinityRule{Warning: ce.Low, Severe: ce.High},
		&PhosphorusRule{Min: p.Low},
		&BoronRule{Min: boron.Low},
	}
}

func bounds(table *thresholds.Table) func(key string) thresholds.Entry {
	fallback := make(map[string]thresholds.Entry)
	for _, e := range thresholds.Defaults() {
		fallback[e.Key] = e
	}
	return func(key string) thresholds.Entry {
		if e, ok := table.Lookup(key); ok {
			return e
		}
		return fallback[key]
	}
}
