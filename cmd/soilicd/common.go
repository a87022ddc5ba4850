package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cast"
	"github.com/spf13/cobra"

	"github.com/soilicd/soilicd/internal/source"
	"github.com/soilicd/soilicd/pkg/config"
	"github.com/soilicd/soilicd/pkg/dataset"
	"github.com/soilicd/soilicd/pkg/scoring"
	"github.com/soilicd/soilicd/pkg/soil"
	"github.com/soilicd/soilicd/pkg/surface"
)

// globalOpts are the persistent flags shared by every command.
type globalOpts struct {
	configPath string
	datasetURI string
	forecast   string
	outputFmt  string
	outPath    string
	debug      bool
}

func (g *globalOpts) register(cmd *cobra.Command) {
	f := cmd.PersistentFlags()
	f.StringVar(&g.configPath, "config", "", "Path to config file (default: search for .soilicd/config.yaml)")
	f.StringVar(&g.datasetURI, "dataset", "", "Reference dataset URI: path, file://, s3:// or gs://")
	f.StringVar(&g.forecast, "forecast", "", "Forecast table URI")
	f.StringVar(&g.outputFmt, "output", "text", "Output format: "+strings.Join(surface.Formats, ", "))
	f.StringVar(&g.outPath, "out", "", "Write output to this file instead of stdout")
	f.BoolVar(&g.debug, "debug", false, "Enable debug logging")
}

// loadConfig reads the explicit config file, or the nearest
// .soilicd/config.yaml, falling back to defaults.
func (g *globalOpts) loadConfig() *config.Config {
	path := g.configPath
	if path == "" {
		wd, err := os.Getwd()
		if err == nil {
			path = config.FindConfigFile(wd)
		}
	}
	if path == "" {
		return config.DefaultConfig()
	}
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to load config: %v\n", err)
		return config.DefaultConfig()
	}
	return cfg
}

func newFetcher() *source.Fetcher {
	return source.NewFetcher(source.S3Config{
		Region:    os.Getenv("AWS_REGION"),
		Endpoint:  os.Getenv("S3_ENDPOINT"),
		AccessKey: os.Getenv("AWS_ACCESS_KEY_ID"),
		SecretKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
	})
}

// loadDataset fetches the reference dataset named by --dataset or the config.
func (g *globalOpts) loadDataset(ctx context.Context, cfg *config.Config, fetcher *source.Fetcher) (*dataset.Dataset, error) {
	uri := firstNonEmpty(g.datasetURI, cfg.Data.Dataset)
	if uri == "" {
		return nil, fmt.Errorf("no reference dataset: pass --dataset or set data.dataset in the config")
	}
	fmt.Fprintf(os.Stderr, "Loading dataset %s...\n", uri)
	d, warnings, err := fetcher.LoadDataset(ctx, uri)
	if err != nil {
		return nil, err
	}
	for _, w := range warnings {
		fmt.Fprintf(os.Stderr, "  Warning: %s\n", w)
	}
	fmt.Fprintf(os.Stderr, "  %d records\n", d.Len())
	return d, nil
}

// loadEngine builds the scoring engine over the reference dataset and the
// optional forecast table.
func (g *globalOpts) loadEngine(ctx context.Context, cfg *config.Config) (*scoring.Engine, error) {
	fetcher := newFetcher()
	d, err := g.loadDataset(ctx, cfg, fetcher)
	if err != nil {
		return nil, err
	}

	var forecast scoring.Forecaster
	if uri := firstNonEmpty(g.forecast, cfg.Data.Forecast); uri != "" {
		fc, err := fetcher.LoadForecast(ctx, uri)
		if err != nil {
			return nil, err
		}
		forecast = fc
	}
	return cfg.NewEngine(d, forecast)
}

// output opens the --out file, or stdout.
func (g *globalOpts) output() (io.Writer, func() error, error) {
	if g.outPath == "" {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(g.outPath)
	if err != nil {
		return nil, nil, fmt.Errorf("creating output file: %w", err)
	}
	return f, f.Close, nil
}

// render writes results with the renderer chosen by --output.
func (g *globalOpts) render(results ...*scoring.Result) error {
	renderer, err := surface.ForFormat(g.outputFmt)
	if err != nil {
		return err
	}
	w, closeFn, err := g.output()
	if err != nil {
		return err
	}
	for _, res := range results {
		if err := renderer.Render(w, res); err != nil {
			closeFn()
			return fmt.Errorf("rendering: %w", err)
		}
	}
	if err := closeFn(); err != nil {
		return err
	}
	if g.outPath != "" {
		fmt.Fprintf(os.Stderr, "Output written: %s\n", g.outPath)
	}
	return nil
}

// parseValues turns "ca=4.5,mg=1" flag pairs into measurements. The flag
// splits on commas, so values need a dot decimal separator.
func parseValues(pairs map[string]string) (soil.Measurements, error) {
	m := make(soil.Measurements, len(pairs))
	for name, raw := range pairs {
		v, ok := soil.ParseVariable(name)
		if !ok {
			return nil, fmt.Errorf("%w: %q", scoring.ErrUnknownVariable, name)
		}
		x, present, err := dataset.ParseValue(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		if present {
			m[v] = x
		}
	}
	return m, nil
}

func parseDate(s string) (time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return time.Time{}, nil
	}
	t, err := cast.ToTimeE(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
