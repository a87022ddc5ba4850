// Package main provides the soilicd CLI entry point.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/soilicd/soilicd/internal/log"
)

var version = "dev"

func main() {
	g := &globalOpts{}
	rootCmd := &cobra.Command{
		Use:   "soilicd",
		Short: "Data quality index for soil laboratory results",
		Long: `soilicd scores soil laboratory values against national and regional
reference distributions, raises agronomic alerts and maps them to
crop-aware recommendations.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return log.Init(g.debug)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			log.Sync()
		},
	}
	g.register(rootCmd)

	rootCmd.AddCommand(
		newSimulateCmd(g),
		newValidateCmd(g),
		newAlertsCmd(g),
		newMethodCmd(g),
		newSummaryCmd(g),
		newDatasetCmd(g),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
