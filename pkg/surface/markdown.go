package surface

import (
	"fmt"
	"io"
	"strings"

	"github.com/soilicd/soilicd/pkg/alerts"
	"github.com/soilicd/soilicd/pkg/dataset"
	"github.com/soilicd/soilicd/pkg/scoring"
	"github.com/soilicd/soilicd/pkg/soil"
	"github.com/soilicd/soilicd/pkg/thresholds"
)

// MarkdownRenderer produces a Markdown report suitable for tickets and
// laboratory notes.
type MarkdownRenderer struct{}

func (r *MarkdownRenderer) Render(w io.Writer, result *scoring.Result) error {
	_, err := io.WriteString(w, BuildMarkdown(result))
	return err
}

// BuildMarkdown renders result as a Markdown document.
func BuildMarkdown(result *scoring.Result) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "## ICD %.3f %s %s\n\n", result.CompositeScore, bandIcon(result.Band), result.Band.Label())
	fmt.Fprintf(&sb, "_Modo %s, tabla de bandas %s_\n\n", result.Mode, result.BandTable)

	sb.WriteString("### Componentes\n\n")
	sb.WriteString("| Fuente | Variable | Puntaje | Peso |\n|--------|----------|---------|------|\n")
	for _, c := range result.Components {
		v := "-"
		if c.Variable != "" {
			v = c.Variable.Label()
		}
		fmt.Fprintf(&sb, "| %s | %s | %.3f | %.3f |\n", sourceLabel(string(c.Source)), v, c.Value, c.Weight)
	}
	sb.WriteString("\n")

	sb.WriteString("### Alertas\n\n")
	if len(result.Alerts) == 0 {
		sb.WriteString("Sin alertas.\n")
	}
	for _, a := range result.Alerts {
		fmt.Fprintf(&sb, "- %s **%s**: %s\n", severityIcon(a.Severity), a.Category, a.Message)
	}
	sb.WriteString("\n")

	if len(result.Recommendations) > 0 {
		sb.WriteString("### Recomendaciones\n\n")
		for _, rec := range result.Recommendations {
			fmt.Fprintf(&sb, "- %s\n", rec)
		}
		sb.WriteString("\n")
	}

	if len(result.Diagnostics) > 0 {
		sb.WriteString("<details><summary>Diagnóstico</summary>\n\n")
		for _, d := range result.Diagnostics {
			fmt.Fprintf(&sb, "- `%s` %s\n", d.Code, d.Message)
		}
		sb.WriteString("\n</details>\n")
	}

	return sb.String()
}

func (r *MarkdownRenderer) RenderSummary(w io.Writer, v soil.Variable, rows []dataset.Summary) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "## ICD por territorio: %s\n\n", v.Label())
	sb.WriteString("| Territorio | ICD | Banda | Muestras |\n|------------|-----|-------|----------|\n")
	for _, s := range rows {
		fmt.Fprintf(&sb, "| %s | %s | %s %s | %d |\n", territory(s), meanICD(s), bandIcon(s.Band), s.Band.Label(), s.Samples)
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

func bandIcon(b thresholds.Band) string {
	switch b {
	case thresholds.BandExcellent, thresholds.BandGood:
		return ":green_circle:"
	case thresholds.BandModerate:
		return ":yellow_circle:"
	case thresholds.BandHighRisk:
		return ":orange_circle:"
	case thresholds.BandNoData:
		return ":white_circle:"
	default:
		return ":red_circle:"
	}
}

func severityIcon(sev alerts.Severity) string {
	if sev == alerts.SeveritySevere {
		return ":red_circle:"
	}
	return ":orange_circle:"
}
