// Package surface defines output rendering for soilicd results.
// Implementations handle different output targets: terminal, JSON, Markdown
// and XLSX workbooks.
package surface

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/soilicd/soilicd/pkg/dataset"
	"github.com/soilicd/soilicd/pkg/scoring"
	"github.com/soilicd/soilicd/pkg/soil"
)

// Renderer produces formatted output from scoring results.
type Renderer interface {
	// Render writes the formatted result to the writer.
	Render(w io.Writer, result *scoring.Result) error
	// RenderSummary writes a territorial ICD summary for one variable.
	RenderSummary(w io.Writer, v soil.Variable, rows []dataset.Summary) error
}

// Envelope is a result as published by the CLI and the service. The
// evaluation ID and timestamp live here, outside the deterministic result.
type Envelope struct {
	EvaluationID string    `json:"evaluation_id"`
	GeneratedAt  time.Time `json:"generated_at"`
	*scoring.Result
}

// NewEnvelope wraps result with a fresh evaluation ID.
func NewEnvelope(result *scoring.Result) Envelope {
	return Envelope{
		EvaluationID: uuid.NewString(),
		GeneratedAt:  time.Now().UTC(),
		Result:       result,
	}
}

// Formats lists the supported output formats.
var Formats = []string{"text", "json", "markdown", "xlsx"}

// ForFormat returns the renderer for a format name.
func ForFormat(format string) (Renderer, error) {
	switch strings.ToLower(format) {
	case "", "text":
		return &TerminalRenderer{}, nil
	case "json":
		return &JSONRenderer{}, nil
	case "markdown", "md":
		return &MarkdownRenderer{}, nil
	case "xlsx", "excel":
		return &ExcelRenderer{}, nil
	}
	return nil, fmt.Errorf("unknown output format %q (want one of %s)", format, strings.Join(Formats, ", "))
}

func sourceLabel(s string) string {
	switch s {
	case "deviation_national":
		return "Desviación nacional"
	case "deviation_regional":
		return "Desviación regional"
	case "model_forecast":
		return "Pronóstico"
	case "rule_based":
		return "Reglas agronómicas"
	}
	return s
}
