package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/soilicd/soilicd/pkg/dataset"
	"github.com/soilicd/soilicd/pkg/soil"
	"github.com/soilicd/soilicd/pkg/surface"
)

func newSummaryCmd(g *globalOpts) *cobra.Command {
	var opts summaryOpts

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Mean precomputed ICD per territory",
		Long: `Averages the icd_total_<variable> column of the reference dataset per
region, department or municipality, ranks the territories from the
highest mean down and classifies each mean with the scoring.summary_band_table
band table (simulator by default). Territories without ICD values are
listed last as "Sin datos".`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSummary(cmd.Context(), g, opts)
		},
	}

	cmd.Flags().StringVar(&opts.variable, "variable", "", "Soil variable identifier (required)")
	cmd.Flags().StringVar(&opts.groupBy, "by", string(dataset.ByDepartment), "Grouping: region, department or municipality")
	cmd.Flags().StringVar(&opts.region, "region", "", "Only this natural region")
	cmd.Flags().StringVar(&opts.department, "department", "", "Only this department")
	cmd.Flags().StringVar(&opts.crop, "crop", "", "Only samples of this crop")
	_ = cmd.MarkFlagRequired("variable")

	return cmd
}

type summaryOpts struct {
	variable   string
	groupBy    string
	region     string
	department string
	crop       string
}

func runSummary(ctx context.Context, g *globalOpts, opts summaryOpts) error {
	v, ok := soil.ParseVariable(opts.variable)
	if !ok {
		return fmt.Errorf("unknown variable %q", opts.variable)
	}
	filter := dataset.Filter{Department: opts.department, Crop: opts.crop}
	if opts.region != "" {
		region, ok := dataset.ParseRegion(opts.region)
		if !ok {
			return fmt.Errorf("unknown region %q", opts.region)
		}
		filter.Region = region
	}

	cfg := g.loadConfig()
	d, err := g.loadDataset(ctx, cfg, newFetcher())
	if err != nil {
		return err
	}
	table, err := cfg.SummaryTable()
	if err != nil {
		return err
	}
	rows, err := d.Summarize(v, dataset.GroupBy(opts.groupBy), filter, table)
	if err != nil {
		return err
	}

	renderer, err := surface.ForFormat(g.outputFmt)
	if err != nil {
		return err
	}
	w, closeFn, err := g.output()
	if err != nil {
		return err
	}
	if err := renderer.RenderSummary(w, v, rows); err != nil {
		closeFn()
		return fmt.Errorf("rendering: %w", err)
	}
	if err := closeFn(); err != nil {
		return err
	}
	if g.outPath != "" {
		fmt.Fprintf(os.Stderr, "Output written: %s\n", g.outPath)
	}
	return nil
}
