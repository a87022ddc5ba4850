package surface

import (
	"encoding/json"
	"io"

	"github.com/soilicd/soilicd/pkg/dataset"
	"github.com/soilicd/soilicd/pkg/scoring"
	"github.com/soilicd/soilicd/pkg/soil"
)

// JSONRenderer marshals results to indented JSON.
type JSONRenderer struct{}

func (r *JSONRenderer) Render(w io.Writer, result *scoring.Result) error {
	return encode(w, NewEnvelope(result))
}

func (r *JSONRenderer) RenderSummary(w io.Writer, v soil.Variable, rows []dataset.Summary) error {
	return encode(w, struct {
		Variable  soil.Variable     `json:"variable"`
		Summaries []dataset.Summary `json:"summaries"`
	}{v, rows})
}

func encode(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
