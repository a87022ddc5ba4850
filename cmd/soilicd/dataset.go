package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/soilicd/soilicd/pkg/dataset"
)

func newDatasetCmd(g *globalOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dataset",
		Short: "Inspect and convert reference datasets",
	}
	cmd.AddCommand(newDatasetImportCmd(g), newDatasetInfoCmd(g))
	return cmd
}

func newDatasetImportCmd(g *globalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "import <src> <dst>",
		Short: "Decode a laboratory CSV and store it as a JSON snapshot",
		Long: `Reads a laboratory CSV from a path, file://, s3:// or gs:// URI, resolves its
columns and writes a JSON snapshot that loads faster on later runs.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDatasetImport(cmd.Context(), args[0], args[1])
		},
	}
}

func runDatasetImport(ctx context.Context, src, dst string) error {
	fetcher := newFetcher()
	fmt.Fprintf(os.Stderr, "Importing %s...\n", src)
	d, warnings, err := fetcher.LoadDataset(ctx, src)
	if err != nil {
		return err
	}
	for _, w := range warnings {
		fmt.Fprintf(os.Stderr, "  Warning: %s\n", w)
	}

	data, err := dataset.Marshal(d)
	if err != nil {
		return err
	}
	if err := fetcher.Put(ctx, dst, data); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Snapshot saved: %s (%d records)\n", dst, d.Len())
	return nil
}

func newDatasetInfoCmd(g *globalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show departments and crops in the reference dataset",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			d, err := g.loadDataset(ctx, g.loadConfig(), newFetcher())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Registros: %d\n", d.Len())
			fmt.Fprintf(out, "Departamentos (%d):\n", len(d.Departments()))
			for _, dept := range d.Departments() {
				region := dataset.RegionOf(dept)
				if region == "" {
					region = "?"
				}
				fmt.Fprintf(out, "  %-28s %s\n", dept, region)
			}
			fmt.Fprintf(out, "Cultivos (%d):\n", len(d.Crops()))
			for _, crop := range d.Crops() {
				fmt.Fprintf(out, "  %s\n", crop)
			}
			return nil
		},
	}
}
