package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/soilicd/soilicd/pkg/alerts"
)

func newAlertsCmd(g *globalOpts) *cobra.Command {
	var (
		crop   string
		values map[string]string
	)

	cmd := &cobra.Command{
		Use:   "alerts",
		Short: "Run the agronomic rules over a set of measurements",
		Long:  `Evaluates cation balance, toxicity and deficiency rules and maps the alerts to recommendations. No reference dataset is needed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAlerts(cmd.OutOrStdout(), g, crop, values)
		},
	}

	cmd.Flags().StringVar(&crop, "crop", "", "Crop name for crop-specific guidance")
	cmd.Flags().StringToStringVar(&values, "values", nil, "Measurements as variable=value pairs (e.g. ca=9,mg=1)")
	_ = cmd.MarkFlagRequired("values")
	return cmd
}

type alertsOutput struct {
	Alerts          []alerts.Alert       `json:"alerts"`
	Recommendations []string             `json:"recommendations"`
	SkippedRules    []alerts.SkippedRule `json:"skipped_rules,omitempty"`
}

func runAlerts(stdout io.Writer, g *globalOpts, crop string, pairs map[string]string) error {
	values, err := parseValues(pairs)
	if err != nil {
		return err
	}

	cfg := g.loadConfig()
	engine, err := cfg.NewEngine(nil, nil)
	if err != nil {
		return err
	}
	report := engine.Rules.Evaluate(values)
	out := alertsOutput{
		Alerts:          report.Alerts,
		Recommendations: engine.Mapper.Map(report.Alerts, crop),
		SkippedRules:    report.Skipped,
	}
	if out.Alerts == nil {
		out.Alerts = []alerts.Alert{}
	}

	if g.outputFmt == "json" {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			return fmt.Errorf("encoding JSON: %w", err)
		}
		return nil
	}

	if len(out.Alerts) == 0 {
		fmt.Fprintln(stdout, "Sin alertas agronómicas.")
	}
	for _, a := range out.Alerts {
		fmt.Fprintf(stdout, "[%s] %s: %s\n", a.Severity, a.Category, a.Message)
	}
	for _, rec := range out.Recommendations {
		fmt.Fprintf(stdout, "  - %s\n", rec)
	}
	for _, s := range out.SkippedRules {
		fmt.Fprintf(stdout, "  (omitida) %s: %s\n", s.Rule, s.Reason)
	}
	return nil
}
