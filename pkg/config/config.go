// Package config handles loading and managing soilicd configuration.
package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/soilicd/soilicd/pkg/alerts"
	"github.com/soilicd/soilicd/pkg/icd"
	"github.com/soilicd/soilicd/pkg/method"
	"github.com/soilicd/soilicd/pkg/recommend"
	"github.com/soilicd/soilicd/pkg/scoring"
	"github.com/soilicd/soilicd/pkg/soil"
	"github.com/soilicd/soilicd/pkg/thresholds"
)

// Config is the top-level configuration for soilicd.
type Config struct {
	Scoring    ScoringConfig      `yaml:"scoring"`
	Thresholds []thresholds.Entry `yaml:"thresholds"`
	Methods    MethodsConfig      `yaml:"methods"`
	// Overlays adds or replaces crop guidance: crop -> variable -> text.
	Overlays map[string]map[string]string `yaml:"overlays"`
	Data     DataConfig                   `yaml:"data"`
}

// ScoringConfig holds the per-mode scoring options.
type ScoringConfig struct {
	Simulator  ModeConfig `yaml:"simulator"`
	Validation ModeConfig `yaml:"validation"`
	// SummaryBandTable classifies territorial ICD rankings.
	SummaryBandTable string `yaml:"summary_band_table"`
}

// ModeConfig controls one scoring mode. Zero values keep the built-in defaults.
type ModeConfig struct {
	BandTable      string             `yaml:"band_table"`
	Weights        map[string]float64 `yaml:"weights"`
	Scale          float64            `yaml:"scale"`
	RelativeScale  float64            `yaml:"relative_scale"`
	MinSamples     int                `yaml:"min_samples"`
	WarningPenalty float64            `yaml:"warning_penalty"`
	SeverePenalty  float64            `yaml:"severe_penalty"`
	// ModelDefault scores the model_forecast source when no forecast exists
	// for the variable. Nil keeps the built-in default.
	ModelDefault *float64 `yaml:"model_default"`
}

// MethodsConfig controls the micronutrient method selector.
type MethodsConfig struct {
	OlsenCrops []string `yaml:"olsen_crops"`
}

// DataConfig points at the reference data. Values are URIs understood by
// internal/source: a path, file://, s3:// or gs://.
type DataConfig struct {
	Dataset  string `yaml:"dataset"`
	Forecast string `yaml:"forecast"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Scoring: ScoringConfig{
			Simulator:        ModeConfig{BandTable: string(thresholds.BandTableSimulator)},
			Validation:       ModeConfig{BandTable: string(thresholds.BandTableValidation)},
			SummaryBandTable: string(thresholds.BandTableSimulator),
		},
		Methods: MethodsConfig{
			OlsenCrops: append([]string(nil), method.DefaultOlsenCrops...),
		},
		Overlays: map[string]map[string]string{},
	}
}

// Load reads a config file from the given path.
// If the file does not exist, it returns the default config.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// FindConfigFile looks for .soilicd/config.yaml in the given directory
// and its parents, returning the path if found, or "" if not.
func FindConfigFile(dir string) string {
	for {
		candidate := filepath.Join(dir, ".soilicd", "config.yaml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// SimulatorOptions returns the simulator options with config overrides applied.
func (c *Config) SimulatorOptions() (scoring.Options, error) {
	return c.Scoring.Simulator.apply(scoring.DefaultSimulatorOptions())
}

// ValidationOptions returns the validation options with config overrides applied.
func (c *Config) ValidationOptions() (scoring.Options, error) {
	return c.Scoring.Validation.apply(scoring.DefaultValidationOptions())
}

func (m ModeConfig) apply(opts scoring.Options) (scoring.Options, error) {
	if m.BandTable != "" {
		id := thresholds.BandTableID(m.BandTable)
		if _, err := thresholds.LookupBandTable(id); err != nil {
			return opts, err
		}
		opts.BandTable = id
	}
	if len(m.Weights) > 0 {
		w := icd.Weights{}
		for src, v := range opts.Weights {
			w[src] = v
		}
		for name, v := range m.Weights {
			src, err := parseSource(name)
			if err != nil {
				return opts, err
			}
			w[src] = v
		}
		if err := w.Validate(); err != nil {
			return opts, err
		}
		opts.Weights = w
	}
	if m.Scale > 0 {
		opts.Scale = m.Scale
	}
	if m.RelativeScale > 0 {
		opts.RelativeScale = m.RelativeScale
	}
	if m.MinSamples > 0 {
		opts.MinSamples = m.MinSamples
	}
	if m.WarningPenalty > 0 {
		opts.WarningPenalty = m.WarningPenalty
	}
	if m.SeverePenalty > 0 {
		opts.SeverePenalty = m.SeverePenalty
	}
	if m.ModelDefault != nil {
		d := *m.ModelDefault
		if math.IsNaN(d) || d < 0 || d > 1 {
			return opts, fmt.Errorf("model_default %g outside [0,1]", d)
		}
		opts.ModelDefault = d
	}
	return opts, nil
}

// SummaryTable returns the band table used for territorial rankings.
func (c *Config) SummaryTable() (thresholds.BandTableID, error) {
	id := thresholds.BandTableID(c.Scoring.SummaryBandTable)
	if id == "" {
		id = thresholds.BandTableSimulator
	}
	if _, err := thresholds.LookupBandTable(id); err != nil {
		return "", err
	}
	return id, nil
}

func parseSource(name string) (icd.Source, error) {
	s := icd.Source(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range icd.Sources {
		if s == known {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown score source %q in weights", name)
}

// ThresholdTable returns the default table with the configured entries applied.
func (c *Config) ThresholdTable() (*thresholds.Table, error) {
	if len(c.Thresholds) == 0 {
		return thresholds.Default(), nil
	}
	table, err := thresholds.Default().Override(c.Thresholds...)
	if err != nil {
		return nil, fmt.Errorf("thresholds: %w", err)
	}
	return table, nil
}

// CropOverlays merges the configured overlays over the built-in ones.
func (c *Config) CropOverlays() (map[string]recommend.Overlay, error) {
	merged := recommend.DefaultOverlays()
	for crop, entries := range c.Overlays {
		key := soil.NormalizeName(crop)
		o := merged[key]
		if o == nil {
			o = recommend.Overlay{}
			merged[key] = o
		}
		for name, text := range entries {
			v, ok := soil.ParseVariable(name)
			if !ok {
				return nil, fmt.Errorf("overlay %s: unknown variable %q", crop, name)
			}
			o[v] = text
		}
	}
	return merged, nil
}

// NewEngine builds a scoring engine wired with the configured threshold
// table, overlays and Olsen allow-list.
func (c *Config) NewEngine(refs scoring.ReferenceSource, forecast scoring.Forecaster) (*scoring.Engine, error) {
	table, err := c.ThresholdTable()
	if err != nil {
		return nil, err
	}
	overlays, err := c.CropOverlays()
	if err != nil {
		return nil, err
	}
	e := scoring.NewEngine(refs, forecast)
	e.Thresholds = table
	e.Rules = alerts.NewEngine(alerts.DefaultRules(table)...)
	e.Mapper = recommend.NewMapper(overlays)
	e.Methods = method.NewSelector(c.Methods.OlsenCrops)
	return e, nil
}

// CacheDir returns the local cache directory for downloaded reference data.
func CacheDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to temp dir if HOME isn't available
		home = os.TempDir()
	}
	return filepath.Join(home, ".cache", "soilicd")
}

// CachePath returns where a remote source is cached locally.
func CachePath(uri string) string {
	return filepath.Join(CacheDir(), sourceSlug(uri))
}

// sourceSlug creates a filesystem-safe identifier from a source URI.
// Uses the last two path components (e.g., "lab_bucket_suelos.csv").
func sourceSlug(uri string) string {
	uri = strings.TrimSuffix(uri, "/")
	if i := strings.Index(uri, "://"); i >= 0 {
		uri = uri[i+3:]
	}
	dir := filepath.Base(filepath.Dir(uri))
	base := filepath.Base(uri)
	if dir == "." || dir == "/" {
		return base
	}
	return dir + "_" + base
}
