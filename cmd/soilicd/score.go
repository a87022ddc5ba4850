package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/soilicd/soilicd/pkg/dataset"
	"github.com/soilicd/soilicd/pkg/scoring"
	"github.com/soilicd/soilicd/pkg/soil"
)

type sampleFlags struct {
	crop         string
	department   string
	municipality string
	date         string
	values       map[string]string
}

func (s *sampleFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&s.crop, "crop", "", "Crop name (e.g. CAFÉ)")
	cmd.Flags().StringVar(&s.department, "department", "", "Department of the sample")
	cmd.Flags().StringVar(&s.municipality, "municipality", "", "Municipality of the sample")
	cmd.Flags().StringVar(&s.date, "date", "", "Sample date (YYYY-MM-DD)")
	cmd.Flags().StringToStringVar(&s.values, "values", nil, "Measurements as variable=value pairs (e.g. ca=4.5,mg=1)")
}

func (s *sampleFlags) context() (scoring.Context, error) {
	date, err := parseDate(s.date)
	if err != nil {
		return scoring.Context{}, err
	}
	return scoring.Context{
		Crop:         s.crop,
		Department:   s.department,
		Municipality: s.municipality,
		Date:         date,
	}, nil
}

func newSimulateCmd(g *globalOpts) *cobra.Command {
	var (
		variable string
		value    string
		sample   sampleFlags
	)

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Score a single value against the reference distributions",
		Long: `Scores one variable value against the national and regional reference
distributions and the forecast, runs the agronomic rules and prints the
composite ICD with its band.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulate(cmd.Context(), g, simulateOpts{
				variable: variable,
				value:    value,
				sample:   sample,
			})
		},
	}

	cmd.Flags().StringVar(&variable, "variable", "", "Soil variable identifier, e.g. ca, p, zn (required)")
	cmd.Flags().StringVar(&value, "value", "", "Value to score (required)")
	sample.register(cmd)
	_ = cmd.MarkFlagRequired("variable")
	_ = cmd.MarkFlagRequired("value")

	return cmd
}

type simulateOpts struct {
	variable string
	value    string
	sample   sampleFlags
}

func runSimulate(ctx context.Context, g *globalOpts, opts simulateOpts) error {
	v, ok := soil.ParseVariable(opts.variable)
	if !ok {
		return fmt.Errorf("%w: %q", scoring.ErrUnknownVariable, opts.variable)
	}
	x, present, err := dataset.ParseValue(opts.value)
	if err != nil {
		return fmt.Errorf("--value: %w", err)
	}
	if !present {
		return fmt.Errorf("--value is empty")
	}
	values, err := parseValues(opts.sample.values)
	if err != nil {
		return err
	}
	sctx, err := opts.sample.context()
	if err != nil {
		return err
	}

	cfg := g.loadConfig()
	simOpts, err := cfg.SimulatorOptions()
	if err != nil {
		return err
	}
	engine, err := g.loadEngine(ctx, cfg)
	if err != nil {
		return err
	}

	result, err := engine.Simulate(scoring.SimulateRequest{
		Variable: v,
		Value:    x,
		Context:  sctx,
		Values:   values,
	}, simOpts)
	if err != nil {
		return fmt.Errorf("scoring: %w", err)
	}
	return g.render(result)
}

func newValidateCmd(g *globalOpts) *cobra.Command {
	var (
		samplesURI string
		sample     sampleFlags
	)

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Score a full laboratory sample",
		Long: `Scores every submitted variable against its national reference and
averages the per-variable scores. Pass the sample with --values, or a lab
CSV with --samples to validate each row.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd.Context(), g, validateOpts{samplesURI: samplesURI, sample: sample})
		},
	}

	cmd.Flags().StringVar(&samplesURI, "samples", "", "Lab CSV with one sample per row")
	sample.register(cmd)
	return cmd
}

type validateOpts struct {
	samplesURI string
	sample     sampleFlags
}

func runValidate(ctx context.Context, g *globalOpts, opts validateOpts) error {
	var requests []scoring.ValidateRequest
	if opts.samplesURI != "" {
		samples, warnings, err := newFetcher().LoadDataset(ctx, opts.samplesURI)
		if err != nil {
			return err
		}
		for _, w := range warnings {
			fmt.Fprintf(os.Stderr, "  Warning: %s\n", w)
		}
		date, err := parseDate(opts.sample.date)
		if err != nil {
			return err
		}
		for _, r := range samples.Records(dataset.Filter{}) {
			requests = append(requests, scoring.ValidateRequest{
				Values: r.Values,
				Context: scoring.Context{
					Crop:         firstNonEmpty(opts.sample.crop, r.Crop),
					Department:   r.Department,
					Municipality: r.Municipality,
					Date:         date,
				},
			})
		}
	} else {
		values, err := parseValues(opts.sample.values)
		if err != nil {
			return err
		}
		if len(values) == 0 {
			return fmt.Errorf("nothing to validate: pass --values or --samples")
		}
		sctx, err := opts.sample.context()
		if err != nil {
			return err
		}
		requests = append(requests, scoring.ValidateRequest{Values: values, Context: sctx})
	}

	cfg := g.loadConfig()
	valOpts, err := cfg.ValidationOptions()
	if err != nil {
		return err
	}
	engine, err := g.loadEngine(ctx, cfg)
	if err != nil {
		return err
	}

	results := make([]*scoring.Result, 0, len(requests))
	for i, req := range requests {
		result, err := engine.Validate(req, valOpts)
		if err != nil {
			return fmt.Errorf("sample %d: %w", i+1, err)
		}
		results = append(results, result)
	}
	return g.render(results...)
}
