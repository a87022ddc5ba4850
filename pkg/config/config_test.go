package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/soilicd/soilicd/pkg/icd"
	"github.com/soilicd/soilicd/pkg/soil"
	"github.com/soilicd/soilicd/pkg/thresholds"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Scoring.Simulator.BandTable != "simulator" {
		t.Errorf("expected simulator band table, got %q", cfg.Scoring.Simulator.BandTable)
	}
	if cfg.Scoring.Validation.BandTable != "validation" {
		t.Errorf("expected validation band table, got %q", cfg.Scoring.Validation.BandTable)
	}
	if len(cfg.Methods.OlsenCrops) != 7 {
		t.Errorf("expected 7 default Olsen crops, got %d", len(cfg.Methods.OlsenCrops))
	}
	if cfg.Overlays == nil {
		t.Error("expected Overlays map to be initialized, got nil")
	}

	opts, err := cfg.SimulatorOptions()
	if err != nil {
		t.Fatalf("SimulatorOptions: %v", err)
	}
	if opts.Weights[icd.SourceNational] != 0.40 || opts.Weights[icd.SourceRuleBased] != 0 {
		t.Errorf("unexpected default weights %v", opts.Weights)
	}
	vopts, err := cfg.ValidationOptions()
	if err != nil {
		t.Fatalf("ValidationOptions: %v", err)
	}
	if vopts.Weights != nil {
		t.Errorf("validation should use equal weights, got %v", vopts.Weights)
	}
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr bool
		check   func(t *testing.T, cfg *Config)
	}{
		{
			name: "non-existent file returns defaults",
			yaml: "", // signal: don't create a file
			check: func(t *testing.T, cfg *Config) {
				if cfg.Scoring.Simulator.BandTable != "simulator" {
					t.Errorf("expected default band table, got %q", cfg.Scoring.Simulator.BandTable)
				}
			},
		},
		{
			name: "valid YAML overrides defaults",
			yaml: `
scoring:
  simulator:
    weights:
      model_forecast: 0
      rule_based: 0.2
    scale: 2.5
methods:
  olsen_crops:
    - Soya
data:
  dataset: s3://suelos/lab.csv
  forecast: ./forecast.csv
`,
			check: func(t *testing.T, cfg *Config) {
				opts, err := cfg.SimulatorOptions()
				if err != nil {
					t.Fatalf("SimulatorOptions: %v", err)
				}
				if opts.Weights[icd.SourceModel] != 0 || opts.Weights[icd.SourceRuleBased] != 0.2 {
					t.Errorf("weights not merged: %v", opts.Weights)
				}
				if opts.Weights[icd.SourceNational] != 0.40 {
					t.Errorf("unset weights should keep defaults: %v", opts.Weights)
				}
				if opts.Scale != 2.5 {
					t.Errorf("expected scale 2.5, got %v", opts.Scale)
				}
				if opts.BandTable != thresholds.BandTableSimulator {
					t.Errorf("band table should keep default, got %s", opts.BandTable)
				}
				if len(cfg.Methods.OlsenCrops) != 1 {
					t.Errorf("expected 1 Olsen crop, got %d", len(cfg.Methods.OlsenCrops))
				}
				if cfg.Data.Dataset != "s3://suelos/lab.csv" {
					t.Errorf("expected dataset URI, got %q", cfg.Data.Dataset)
				}
			},
		},
		{
			name:    "invalid YAML returns error",
			yaml:    "{{invalid yaml",
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, "config.yaml")

			if tc.yaml == "" {
				// Don't create file - test loading non-existent path
				cfg, err := Load(path)
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				tc.check(t, cfg)
				return
			}

			if err := os.WriteFile(path, []byte(tc.yaml), 0o644); err != nil {
				t.Fatalf("write test config: %v", err)
			}

			cfg, err := Load(path)
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tc.check != nil {
				tc.check(t, cfg)
			}
		})
	}
}

func TestModeConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		mode ModeConfig
		want error
	}{
		{name: "unknown band table", mode: ModeConfig{BandTable: "dashboard"}, want: thresholds.ErrUnknownBandTable},
		{name: "negative weight", mode: ModeConfig{Weights: map[string]float64{"deviation_national": -1}}, want: icd.ErrInvalidWeight},
		{name: "unknown source", mode: ModeConfig{Weights: map[string]float64{"satellite": 1}}},
		{name: "model default above one", mode: ModeConfig{ModelDefault: ptr(1.5)}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Scoring.Simulator = tc.mode
			_, err := cfg.SimulatorOptions()
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if tc.want != nil && !errors.Is(err, tc.want) {
				t.Errorf("got %v, want %v", err, tc.want)
			}
		})
	}
}

func ptr(f float64) *float64 { return &f }

func TestModelDefault(t *testing.T) {
	cfg := DefaultConfig()
	opts, err := cfg.SimulatorOptions()
	if err != nil {
		t.Fatalf("SimulatorOptions: %v", err)
	}
	if opts.ModelDefault != 0.6 {
		t.Errorf("default model score = %v, want 0.6", opts.ModelDefault)
	}

	cfg.Scoring.Simulator.ModelDefault = ptr(0)
	opts, err = cfg.SimulatorOptions()
	if err != nil {
		t.Fatalf("SimulatorOptions: %v", err)
	}
	if opts.ModelDefault != 0 {
		t.Errorf("explicit zero should be kept, got %v", opts.ModelDefault)
	}
}

func TestSummaryTable(t *testing.T) {
	cfg := DefaultConfig()
	got, err := cfg.SummaryTable()
	if err != nil || got != thresholds.BandTableSimulator {
		t.Errorf("SummaryTable() = %q, %v; want simulator", got, err)
	}

	cfg.Scoring.SummaryBandTable = "validation"
	if got, _ := cfg.SummaryTable(); got != thresholds.BandTableValidation {
		t.Errorf("SummaryTable() = %q, want validation", got)
	}

	cfg.Scoring.SummaryBandTable = "dashboard"
	if _, err := cfg.SummaryTable(); !errors.Is(err, thresholds.ErrUnknownBandTable) {
		t.Errorf("got %v, want ErrUnknownBandTable", err)
	}
}

func TestThresholdOverrides(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Thresholds = []thresholds.Entry{
		{Key: "al", Direction: thresholds.LowerIsBetter, Low: 0.5, High: 1.5},
	}
	table, err := cfg.ThresholdTable()
	if err != nil {
		t.Fatalf("ThresholdTable: %v", err)
	}
	e, ok := table.Lookup("al")
	if !ok || e.Low != 0.5 {
		t.Errorf("override not applied: %+v", e)
	}
	if def, _ := thresholds.Default().Lookup("al"); def.Low != 1 {
		t.Errorf("default table was mutated: %+v", def)
	}

	engine, err := cfg.NewEngine(nil, nil)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	report := engine.Rules.Evaluate(soil.Measurements{soil.Aluminum: 1.2})
	if len(report.Alerts) != 1 || report.Alerts[0].Threshold != 0.5 {
		t.Errorf("engine should use overridden thresholds, got %+v", report.Alerts)
	}

	cfg.Thresholds = []thresholds.Entry{{Key: "al", Direction: thresholds.LowerIsBetter, Low: 3, High: 1}}
	if _, err := cfg.ThresholdTable(); !errors.Is(err, thresholds.ErrInvalidEntry) {
		t.Errorf("got %v, want ErrInvalidEntry", err)
	}
}

func TestCropOverlays(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Overlays = map[string]map[string]string{
		"Soya": {"P": "En soya, inocular y aplicar fósforo en banda."},
	}
	overlays, err := cfg.CropOverlays()
	if err != nil {
		t.Fatalf("CropOverlays: %v", err)
	}
	if overlays["SOYA"][soil.Phosphorus] == "" {
		t.Error("configured overlay missing")
	}
	if overlays["CAFE"] == nil {
		t.Error("built-in overlays should be kept")
	}

	cfg.Overlays = map[string]map[string]string{"Soya": {"kryptonite": "x"}}
	if _, err := cfg.CropOverlays(); err == nil {
		t.Error("expected error for unknown variable")
	}
}

func TestCachePath(t *testing.T) {
	tests := []struct {
		uri  string
		want string
	}{
		{uri: "s3://suelos/2024/lab.csv", want: "2024_lab.csv"},
		{uri: "gs://suelos/lab.csv", want: "suelos_lab.csv"},
		{uri: "/data/forecast.csv", want: "data_forecast.csv"},
		{uri: "lab.csv", want: "lab.csv"},
	}
	for _, tc := range tests {
		got := CachePath(tc.uri)
		if !strings.HasSuffix(got, filepath.Join("soilicd", tc.want)) {
			t.Errorf("CachePath(%q) = %q, want suffix %q", tc.uri, got, tc.want)
		}
	}
}

func TestFindConfigFile(t *testing.T) {
	t.Run("found in current directory", func(t *testing.T) {
		root := t.TempDir()
		configDir := filepath.Join(root, ".soilicd")
		if err := os.MkdirAll(configDir, 0o755); err != nil {
			t.Fatalf("create config dir: %v", err)
		}
		configPath := filepath.Join(configDir, "config.yaml")
		if err := os.WriteFile(configPath, []byte("{}"), 0o644); err != nil {
			t.Fatalf("write config: %v", err)
		}

		got := FindConfigFile(root)
		if got != configPath {
			t.Errorf("FindConfigFile = %q, want %q", got, configPath)
		}
	})

	t.Run("found in parent directory", func(t *testing.T) {
		root := t.TempDir()
		configDir := filepath.Join(root, ".soilicd")
		if err := os.MkdirAll(configDir, 0o755); err != nil {
			t.Fatalf("create config dir: %v", err)
		}
		configPath := filepath.Join(configDir, "config.yaml")
		if err := os.WriteFile(configPath, []byte("{}"), 0o644); err != nil {
			t.Fatalf("write config: %v", err)
		}

		sub := filepath.Join(root, "a", "b", "c")
		if err := os.MkdirAll(sub, 0o755); err != nil {
			t.Fatalf("create sub: %v", err)
		}

		got := FindConfigFile(sub)
		if got != configPath {
			t.Errorf("FindConfigFile = %q, want %q", got, configPath)
		}
	})

	t.Run("not found", func(t *testing.T) {
		root := t.TempDir()
		got := FindConfigFile(root)
		if got != "" {
			t.Errorf("FindConfigFile = %q, want empty", got)
		}
	})
}
