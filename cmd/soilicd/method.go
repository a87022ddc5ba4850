package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/soilicd/soilicd/pkg/method"
)

func newMethodCmd(g *globalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "method <crop> <element>",
		Short: "Show which micronutrient extraction column applies to a crop",
		Long: `Resolves the extraction method (Olsen or doble ácido) for Fe, Mn, Zn or Cu
under the given crop, using the configured Olsen allow-list.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMethod(cmd.OutOrStdout(), g, args[0], args[1])
		},
	}
}

func runMethod(stdout io.Writer, g *globalOpts, crop, element string) error {
	el, err := method.ParseElement(element)
	if err != nil {
		return err
	}
	cfg := g.loadConfig()
	col, err := method.NewSelector(cfg.Methods.OlsenCrops).Select(crop, el)
	if err != nil {
		return err
	}

	if g.outputFmt == "json" {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(col)
	}
	fmt.Fprintf(stdout, "%s (%s): columna %s\n", col.Element.Label(), col.Method.Label(), col.Name)
	return nil
}
