package scoring_test

import (
	"errors"
	"math"
	"os"
	"testing"
	"time"

	"github.com/soilicd/soilicd/pkg/alerts"
	"github.com/soilicd/soilicd/pkg/dataset"
	"github.com/soilicd/soilicd/pkg/deviation"
	"github.com/soilicd/soilicd/pkg/icd"
	"github.com/soilicd/soilicd/pkg/recommend"
	"github.com/soilicd/soilicd/pkg/scoring"
	"github.com/soilicd/soilicd/pkg/soil"
	"github.com/soilicd/soilicd/pkg/thresholds"
)

func record(dept string, ca float64) dataset.Record {
	return dataset.Record{Department: dept, Values: soil.Measurements{soil.Calcium: ca}}
}

// National Ca: 4, 6, 5, 8, 2, 2 (mean 4.5). Huila: 4, 6 (mean 5, std √2).
// Meta has a single record; Cauca has two identical values.
func fixture() *dataset.Dataset {
	return dataset.New([]dataset.Record{
		record("Huila", 4),
		record("Huila", 6),
		record("Tolima", 5),
		record("Meta", 8),
		record("Cauca", 2),
		record("Cauca", 2),
	})
}

func component(t *testing.T, r *scoring.Result, src icd.Source) icd.Component {
	t.Helper()
	for _, c := range r.Components {
		if c.Source == src {
			return c
		}
	}
	t.Fatalf("no %s component in %+v", src, r.Components)
	return icd.Component{}
}

func hasDiagnostic(r *scoring.Result, code scoring.DiagnosticCode) bool {
	for _, d := range r.Diagnostics {
		if d.Code == code {
			return true
		}
	}
	return false
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func forecastPoints(kind dataset.Kind, values ...float64) *dataset.Forecast {
	var points []dataset.Point
	for i, v := range values {
		points = append(points, dataset.Point{
			Variable: soil.Calcium,
			Date:     time.Date(2024+i, 1, 1, 0, 0, 0, 0, time.UTC),
			Kind:     kind,
			Value:    v,
		})
	}
	return dataset.NewForecast(points)
}

var huilaRegional = 1 - 0.5/(3*math.Sqrt2)

func TestSimulateNationalAndRegional(t *testing.T) {
	engine := scoring.NewEngine(fixture(), nil)
	res, err := engine.Simulate(scoring.SimulateRequest{
		Variable: soil.Calcium,
		Value:    4.5,
		Context:  scoring.Context{Department: "Huila"},
	}, scoring.DefaultSimulatorOptions())
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}

	if got := component(t, res, icd.SourceNational).Value; got != 1 {
		t.Errorf("national = %v, want 1", got)
	}
	reg := component(t, res, icd.SourceRegional)
	if !near(reg.Value, huilaRegional) || reg.Note != "Huila" {
		t.Errorf("regional = %+v, want %v from Huila", reg, huilaRegional)
	}
	model := component(t, res, icd.SourceModel)
	if model.Value != scoring.DefaultModelScore || model.Weight != 0.3 {
		t.Errorf("model_forecast = %+v, want the 0.6 default at weight 0.3", model)
	}
	// 0.4*1 + 0.3*0.8821 + 0.3*0.6
	if res.CompositeScore != 0.845 {
		t.Errorf("composite = %v, want 0.845", res.CompositeScore)
	}
	if res.Band != thresholds.BandModerate || res.BandTable != thresholds.BandTableSimulator {
		t.Errorf("band = %s (%s), want Moderate (simulator)", res.Band, res.BandTable)
	}
	if !hasDiagnostic(res, scoring.DiagMissingForecast) {
		t.Error("expected missing_forecast diagnostic")
	}
	if rb := component(t, res, icd.SourceRuleBased); rb.Weight != 0 || rb.Value != 1 {
		t.Errorf("rule_based = %+v, want value 1 with weight 0", rb)
	}
	if len(res.Recommendations) != 1 || res.Recommendations[0] != recommend.ForBand(thresholds.BandModerate) {
		t.Errorf("recommendations = %v, want only the band guidance", res.Recommendations)
	}
}

func TestSimulateModelDefaultIsConfigurable(t *testing.T) {
	engine := scoring.NewEngine(fixture(), nil)
	opts := scoring.DefaultSimulatorOptions()
	opts.ModelDefault = 1
	res, err := engine.Simulate(scoring.SimulateRequest{
		Variable: soil.Calcium, Value: 4.5, Context: scoring.Context{Department: "Huila"},
	}, opts)
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	if res.CompositeScore != 0.965 {
		t.Errorf("composite = %v, want 0.965", res.CompositeScore)
	}
}

func TestSimulateWithForecast(t *testing.T) {
	tests := []struct {
		name     string
		forecast *dataset.Forecast
		value    float64
		want     float64
	}{
		{"single point scores by relative distance", forecastPoints(dataset.KindForecast, 4.5), 4.5, 1},
		{"mean and population spread", forecastPoints(dataset.KindForecast, 4, 6), 6, 1 - 1.0/3},
		{"historical points when nothing is forecast", forecastPoints(dataset.KindHistorical, 4, 6), 6, 1 - 1.0/3},
		{"identical points use relative distance", forecastPoints(dataset.KindForecast, 4, 4), 5, 1 - 1/(4+1e-6)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			engine := scoring.NewEngine(fixture(), tc.forecast)
			res, err := engine.Simulate(scoring.SimulateRequest{
				Variable: soil.Calcium,
				Value:    tc.value,
				Context:  scoring.Context{Department: "Huila"},
			}, scoring.DefaultSimulatorOptions())
			if err != nil {
				t.Fatalf("Simulate: %v", err)
			}
			if got := component(t, res, icd.SourceModel).Value; !near(got, tc.want) {
				t.Errorf("model_forecast = %v, want %v", got, tc.want)
			}
			if hasDiagnostic(res, scoring.DiagMissingForecast) {
				t.Error("unexpected missing_forecast diagnostic")
			}
		})
	}

	engine := scoring.NewEngine(fixture(), forecastPoints(dataset.KindForecast, 4.5))
	res, err := engine.Simulate(scoring.SimulateRequest{
		Variable: soil.Calcium,
		Value:    4.5,
		Context:  scoring.Context{Department: "Huila", Date: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
	}, scoring.DefaultSimulatorOptions())
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	if res.CompositeScore != 0.965 || res.Band != thresholds.BandExcellent {
		t.Errorf("composite = %v (%s), want 0.965 Excellent", res.CompositeScore, res.Band)
	}
	if note := component(t, res, icd.SourceModel).Note; note != "pronóstico medio 4.5 (n=1), 2024-03-01: 4.5" {
		t.Errorf("model note = %q", note)
	}
}

func TestSimulateRegionalFallbacks(t *testing.T) {
	engine := scoring.NewEngine(fixture(), nil)
	opts := scoring.DefaultSimulatorOptions()

	t.Run("single record uses relative distance", func(t *testing.T) {
		res, err := engine.Simulate(scoring.SimulateRequest{
			Variable: soil.Calcium, Value: 6, Context: scoring.Context{Department: "Meta"},
		}, opts)
		if err != nil {
			t.Fatal(err)
		}
		reg := component(t, res, icd.SourceRegional)
		if !near(reg.Value, 1-2.0/(8+1e-6)) || reg.Note != "relative" {
			t.Errorf("regional = %+v", reg)
		}
		if !hasDiagnostic(res, scoring.DiagRelativeFallback) {
			t.Error("expected relative_fallback diagnostic")
		}
	})

	t.Run("zero spread uses relative distance", func(t *testing.T) {
		res, err := engine.Simulate(scoring.SimulateRequest{
			Variable: soil.Calcium, Value: 2.5, Context: scoring.Context{Department: "cauca"},
		}, opts)
		if err != nil {
			t.Fatal(err)
		}
		if got := component(t, res, icd.SourceRegional).Value; !near(got, 1-0.5/(2+1e-6)) {
			t.Errorf("regional = %v, want %v", got, 1-0.5/(2+1e-6))
		}
		if !hasDiagnostic(res, scoring.DiagRelativeFallback) {
			t.Error("expected relative_fallback diagnostic")
		}
	})

	t.Run("series is the department, not the region", func(t *testing.T) {
		ds := dataset.New([]dataset.Record{
			record("Huila", 4), record("Huila", 4),
			record("Tolima", 100), record("Tolima", 120),
		})
		res, err := scoring.NewEngine(ds, nil).Simulate(scoring.SimulateRequest{
			Variable: soil.Calcium, Value: 4, Context: scoring.Context{Department: "Huila"},
		}, opts)
		if err != nil {
			t.Fatal(err)
		}
		if got := component(t, res, icd.SourceRegional).Value; got != 1 {
			t.Errorf("regional = %v, want 1", got)
		}
	})

	for _, dept := range []string{"Atlantis", ""} {
		t.Run("no series is neutral/"+dept, func(t *testing.T) {
			res, err := engine.Simulate(scoring.SimulateRequest{
				Variable: soil.Calcium, Value: 4.5, Context: scoring.Context{Department: dept},
			}, opts)
			if err != nil {
				t.Fatal(err)
			}
			if got := component(t, res, icd.SourceRegional).Value; got != deviation.NeutralScore {
				t.Errorf("regional = %v, want 0.5", got)
			}
			if !hasDiagnostic(res, scoring.DiagMissingRegional) {
				t.Error("expected missing_regional_series diagnostic")
			}
			// 0.4*1 + 0.3*0.5 + 0.3*0.6
			if res.CompositeScore != 0.73 {
				t.Errorf("composite = %v, want 0.73", res.CompositeScore)
			}
		})
	}
}

func TestSimulateAlertsAndRecommendations(t *testing.T) {
	engine := scoring.NewEngine(fixture(), nil)
	res, err := engine.Simulate(scoring.SimulateRequest{
		Variable: soil.Calcium,
		Value:    9,
		Values:   soil.Measurements{soil.Magnesium: 1},
		Context:  scoring.Context{Department: "Huila", Crop: "café"},
	}, scoring.DefaultSimulatorOptions())
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	if len(res.Alerts) != 1 || res.Alerts[0].Category != alerts.CategoryCaMgHigh {
		t.Fatalf("alerts = %+v, want ca_mg_high", res.Alerts)
	}
	if len(res.Recommendations) != 3 {
		t.Fatalf("expected category guidance, coffee overlay and band guidance, got %v", res.Recommendations)
	}
	if last := res.Recommendations[2]; last != recommend.ForBand(res.Band) {
		t.Errorf("band guidance should come last, got %q", last)
	}
	if rb := component(t, res, icd.SourceRuleBased); !near(rb.Value, 0.9) {
		t.Errorf("rule_based = %v, want 0.9", rb.Value)
	}
	if len(res.SkippedRules) == 0 {
		t.Error("rules lacking inputs should be recorded as skipped")
	}
}

func TestSimulateErrors(t *testing.T) {
	engine := scoring.NewEngine(fixture(), nil)

	_, err := engine.Simulate(scoring.SimulateRequest{Variable: "unobtainium", Value: 1}, scoring.DefaultSimulatorOptions())
	if !errors.Is(err, scoring.ErrUnknownVariable) {
		t.Errorf("got %v, want ErrUnknownVariable", err)
	}

	_, err = engine.Simulate(scoring.SimulateRequest{Variable: soil.Boron, Value: 1}, scoring.DefaultSimulatorOptions())
	if !errors.Is(err, deviation.ErrInsufficientData) {
		t.Errorf("no references: got %v, want ErrInsufficientData", err)
	}

	opts := scoring.DefaultSimulatorOptions()
	opts.BandTable = "dashboard"
	_, err = engine.Simulate(scoring.SimulateRequest{Variable: soil.Calcium, Value: 4}, opts)
	if !errors.Is(err, thresholds.ErrUnknownBandTable) {
		t.Errorf("got %v, want ErrUnknownBandTable", err)
	}
}

func TestSimulateNaNValueScoresZero(t *testing.T) {
	engine := scoring.NewEngine(fixture(), nil)
	res, err := engine.Simulate(scoring.SimulateRequest{
		Variable: soil.Calcium, Value: math.NaN(), Context: scoring.Context{Department: "Huila"},
	}, scoring.DefaultSimulatorOptions())
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	if got := component(t, res, icd.SourceNational).Value; got != 0 {
		t.Errorf("national = %v, want 0", got)
	}
	// Only the 0.6 model default contributes: 0.3*0.6
	if res.CompositeScore != 0.18 || res.Band != thresholds.BandHighRisk {
		t.Errorf("composite = %v (%s), want 0.18 HighRisk", res.CompositeScore, res.Band)
	}
}

func TestSimulateIsDeterministic(t *testing.T) {
	engine := scoring.NewEngine(fixture(), nil)
	req := scoring.SimulateRequest{Variable: soil.Calcium, Value: 3.7, Context: scoring.Context{Department: "Tolima"}}
	a, err := engine.Simulate(req, scoring.DefaultSimulatorOptions())
	if err != nil {
		t.Fatal(err)
	}
	b, _ := engine.Simulate(req, scoring.DefaultSimulatorOptions())
	if a.CompositeScore != b.CompositeScore || len(a.Components) != len(b.Components) {
		t.Errorf("results differ: %+v vs %+v", a, b)
	}
}

func TestValidate(t *testing.T) {
	engine := scoring.NewEngine(fixture(), nil)
	res, err := engine.Validate(scoring.ValidateRequest{
		Values: soil.Measurements{soil.Calcium: 4.5, soil.Aluminum: 3},
	}, scoring.DefaultValidationOptions())
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if res.Mode != scoring.ModeValidation || res.BandTable != thresholds.BandTableValidation {
		t.Errorf("mode = %s, table = %s", res.Mode, res.BandTable)
	}
	if len(res.Components) != 1 || res.Components[0].Variable != soil.Calcium {
		t.Errorf("components = %+v, want a single Ca component", res.Components)
	}
	if res.CompositeScore != 1 || res.Band != thresholds.BandExcellent {
		t.Errorf("composite = %v (%s)", res.CompositeScore, res.Band)
	}
	if len(res.Alerts) != 1 || res.Alerts[0].Severity != alerts.SeveritySevere {
		t.Errorf("alerts = %+v, want one severe aluminum alert", res.Alerts)
	}
	if !hasDiagnostic(res, scoring.DiagMissingNational) {
		t.Error("aluminum has no reference and should be reported")
	}
	if n := len(res.Recommendations); n == 0 || res.Recommendations[n-1] != recommend.ForBand(thresholds.BandExcellent) {
		t.Errorf("recommendations = %v, want band guidance last", res.Recommendations)
	}
}

func TestValidateScoresNaNValues(t *testing.T) {
	engine := scoring.NewEngine(fixture(), nil)
	res, err := engine.Validate(scoring.ValidateRequest{
		Values: soil.Measurements{soil.Calcium: math.NaN()},
	}, scoring.DefaultValidationOptions())
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if len(res.Components) != 1 || res.Components[0].Value != 0 {
		t.Errorf("components = %+v, want a single zero Ca component", res.Components)
	}
	if res.CompositeScore != 0 || res.Band != thresholds.BandCritical {
		t.Errorf("composite = %v (%s), want 0 Critical", res.CompositeScore, res.Band)
	}

	// A NaN against a degenerate reference still scores 0.
	single := dataset.New([]dataset.Record{record("Huila", 4)})
	res, err = scoring.NewEngine(single, nil).Validate(scoring.ValidateRequest{
		Values: soil.Measurements{soil.Calcium: math.NaN(), soil.Magnesium: math.NaN()},
	}, scoring.DefaultValidationOptions())
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if res.CompositeScore != 0 || hasDiagnostic(res, scoring.DiagDegenerateDistribution) {
		t.Errorf("composite = %v, diagnostics = %+v", res.CompositeScore, res.Diagnostics)
	}
}

func TestValidateEqualWeights(t *testing.T) {
	ds := dataset.New([]dataset.Record{
		{Values: soil.Measurements{soil.Calcium: 4, soil.Magnesium: 1}},
		{Values: soil.Measurements{soil.Calcium: 6, soil.Magnesium: 3}},
	})
	engine := scoring.NewEngine(ds, nil)
	res, err := engine.Validate(scoring.ValidateRequest{
		Values: soil.Measurements{soil.Calcium: 5, soil.Magnesium: 100},
	}, scoring.DefaultValidationOptions())
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	// Ca scores 1, Mg is clipped to its plausible maximum and scores 0.
	if res.CompositeScore != 0.5 || res.Band != thresholds.BandHighRisk {
		t.Errorf("composite = %v (%s), want 0.5 HighRisk", res.CompositeScore, res.Band)
	}
}

func TestValidateNothingScorable(t *testing.T) {
	engine := scoring.NewEngine(fixture(), nil)
	_, err := engine.Validate(scoring.ValidateRequest{Values: soil.Measurements{soil.Zinc: 2}}, scoring.DefaultValidationOptions())
	if !errors.Is(err, icd.ErrInsufficientData) {
		t.Errorf("got %v, want ErrInsufficientData", err)
	}
}

func TestMicronutrientMethodColumn(t *testing.T) {
	f, err := os.Open("../../testdata/lab_samples.csv")
	if err != nil {
		t.Fatalf("opening fixture: %v", err)
	}
	defer f.Close()
	ds, _, err := dataset.DecodeCSV(f)
	if err != nil {
		t.Fatalf("DecodeCSV: %v", err)
	}

	engine := scoring.NewEngine(ds, nil)
	res, err := engine.Simulate(scoring.SimulateRequest{
		Variable: soil.Zinc, Value: 2.0, Context: scoring.Context{Department: "Huila", Crop: "CAFÉ"},
	}, scoring.DefaultSimulatorOptions())
	if err != nil {
		t.Fatalf("Simulate: %v", err)
	}
	if !hasDiagnostic(res, scoring.DiagMethodColumn) {
		t.Errorf("expected the Olsen column to be used, diagnostics = %+v", res.Diagnostics)
	}
	if res.CompositeScore <= 0 || res.CompositeScore > 1 {
		t.Errorf("composite %v out of range", res.CompositeScore)
	}
}
