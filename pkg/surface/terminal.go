package surface

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"

	"github.com/soilicd/soilicd/pkg/alerts"
	"github.com/soilicd/soilicd/pkg/dataset"
	"github.com/soilicd/soilicd/pkg/scoring"
	"github.com/soilicd/soilicd/pkg/soil"
	"github.com/soilicd/soilicd/pkg/thresholds"
)

// TerminalRenderer renders results as colored terminal output.
type TerminalRenderer struct {
	// NoColor disables ANSI colors regardless of the terminal.
	NoColor bool
}

func bandAttrs(b thresholds.Band) []color.Attribute {
	switch b {
	case thresholds.BandExcellent, thresholds.BandGood:
		return []color.Attribute{color.FgGreen}
	case thresholds.BandModerate:
		return []color.Attribute{color.FgYellow}
	case thresholds.BandHighRisk, thresholds.BandCritical:
		return []color.Attribute{color.FgRed}
	default:
		return nil
	}
}

func noColorEnv() bool {
	_, ok := os.LookupEnv("NO_COLOR")
	return ok
}

func (r *TerminalRenderer) paint(s string, attrs ...color.Attribute) string {
	if len(attrs) == 0 {
		return s
	}
	c := color.New(attrs...)
	if r.NoColor || noColorEnv() {
		c.DisableColor()
	}
	return c.Sprint(s)
}

func (r *TerminalRenderer) bold(s string) string { return r.paint(s, color.Bold) }
func (r *TerminalRenderer) dim(s string) string  { return r.paint(s, color.Faint) }

func (r *TerminalRenderer) Render(w io.Writer, result *scoring.Result) error {
	// Header
	band := fmt.Sprintf("%s (%s)", result.Band.Label(), result.Band)
	fmt.Fprintf(w, "%s\n\n",
		r.bold(fmt.Sprintf("ICD %.3f: %s", result.CompositeScore,
			r.paint(band, bandAttrs(result.Band)...))))
	fmt.Fprintf(w, "Modo: %s / tabla de bandas: %s\n\n", result.Mode, result.BandTable)

	// Components
	fmt.Fprintln(w, "Componentes:")
	for _, c := range result.Components {
		name := sourceLabel(string(c.Source))
		if c.Variable != "" && result.Mode == scoring.ModeValidation {
			name = c.Variable.Label()
		}
		fmt.Fprintf(w, "  %-34s %.3f  %s", name, c.Value, r.dim(fmt.Sprintf("peso %.3f", c.Weight)))
		if c.Note != "" {
			fmt.Fprintf(w, "  %s", r.dim(c.Note))
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintln(w)

	// Alerts
	if len(result.Alerts) == 0 {
		fmt.Fprintln(w, "Sin alertas agronómicas.")
		fmt.Fprintln(w)
	} else {
		fmt.Fprintln(w, "Alertas:")
		for _, a := range result.Alerts {
			marker := r.paint("●", color.FgYellow)
			if a.Severity == alerts.SeveritySevere {
				marker = r.paint("●", color.FgRed)
			}
			fmt.Fprintf(w, "  %s %s\n", marker, a.Message)
		}
		fmt.Fprintln(w)
	}

	// Recommendations
	if len(result.Recommendations) > 0 {
		fmt.Fprintln(w, "Recomendaciones:")
		for _, rec := range result.Recommendations {
			lines := wrapText(rec, 70)
			for i, line := range lines {
				prefix := "    "
				if i == 0 {
					prefix = "  • "
				}
				fmt.Fprintf(w, "%s%s\n", prefix, line)
			}
		}
		fmt.Fprintln(w)
	}

	// Diagnostics
	if len(result.Diagnostics) > 0 {
		fmt.Fprintln(w, r.dim("Diagnóstico:"))
		for _, d := range result.Diagnostics {
			fmt.Fprintf(w, "  %s\n", r.dim(d.Message))
		}
		fmt.Fprintln(w)
	}

	return nil
}

func (r *TerminalRenderer) RenderSummary(w io.Writer, v soil.Variable, rows []dataset.Summary) error {
	fmt.Fprintf(w, "%s\n\n", r.bold("ICD por territorio: "+v.Label()))
	if len(rows) == 0 {
		fmt.Fprintln(w, "Sin datos.")
		return nil
	}
	for _, s := range rows {
		name := territory(s)
		fmt.Fprintf(w, "  %-40s %6s  %-12s %s\n", name, meanICD(s),
			r.paint(s.Band.Label(), bandAttrs(s.Band)...), r.dim(fmt.Sprintf("n=%d", s.Samples)))
	}
	return nil
}

// meanICD formats a summary mean, or "-" for a territory without ICD values.
func meanICD(s dataset.Summary) string {
	if !s.HasData() {
		return "-"
	}
	return fmt.Sprintf("%.3f", s.MeanICD)
}

func territory(s dataset.Summary) string {
	switch {
	case s.Municipality != "":
		return s.Department + " / " + s.Municipality
	case s.Department != "":
		return s.Department
	}
	return string(s.Region)
}

// wrapText wraps a string at the given width, returning lines.
func wrapText(s string, width int) []string {
	words := strings.Fields(s)
	if len(words) == 0 {
		return nil
	}

	var lines []string
	current := words[0]

	for _, word := range words[1:] {
		if len(current)+1+len(word) > width {
			lines = append(lines, current)
			current = word
		} else {
			current += " " + word
		}
	}
	lines = append(lines, current)
	return lines
}
