package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cast"

	"github.com/soilicd/soilicd/pkg/alerts"
	"github.com/soilicd/soilicd/pkg/dataset"
	"github.com/soilicd/soilicd/pkg/scoring"
	"github.com/soilicd/soilicd/pkg/soil"
	"github.com/soilicd/soilicd/pkg/surface"
)

var errBadValue = errors.New("invalid value")

// contextRequest carries the optional sample context shared by all
// scoring requests.
type contextRequest struct {
	Crop         string `json:"crop"`
	Department   string `json:"department"`
	Municipality string `json:"municipality"`
	Date         string `json:"date"`
}

func (c contextRequest) toContext() (scoring.Context, error) {
	ctx := scoring.Context{Crop: c.Crop, Department: c.Department, Municipality: c.Municipality}
	if strings.TrimSpace(c.Date) != "" {
		d, err := cast.ToTimeE(c.Date)
		if err != nil {
			return ctx, fmt.Errorf("%w: date %q", errBadValue, c.Date)
		}
		ctx.Date = d
	}
	return ctx, nil
}

type simulateRequest struct {
	contextRequest
	Variable string         `json:"variable"`
	Value    any            `json:"value"`
	Values   map[string]any `json:"values"`
}

type validateRequest struct {
	contextRequest
	Values map[string]any `json:"values"`
}

type alertsResponse struct {
	Alerts          []alerts.Alert       `json:"alerts"`
	Recommendations []string             `json:"recommendations"`
	SkippedRules    []alerts.SkippedRule `json:"skipped_rules,omitempty"`
}

// parseNumber accepts JSON numbers and numeric strings. Strings are read
// like laboratory cells, so "1.234,5" is 1234.5 and "ND" is absent. Null and
// blank strings report absent.
func parseNumber(v any) (float64, bool, error) {
	switch x := v.(type) {
	case nil:
		return 0, false, nil
	case string:
		f, present, err := dataset.ParseValue(x)
		if err != nil {
			return 0, false, fmt.Errorf("%w: %q", errBadValue, x)
		}
		return f, present, nil
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return 0, false, fmt.Errorf("%w: %v", errBadValue, v)
	}
	return f, true, nil
}

func parseMeasurements(raw map[string]any) (soil.Measurements, error) {
	m := make(soil.Measurements, len(raw))
	for name, v := range raw {
		variable, ok := soil.ParseVariable(name)
		if !ok {
			return nil, fmt.Errorf("%w: %q", scoring.ErrUnknownVariable, name)
		}
		f, present, err := parseNumber(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		if present {
			m[variable] = f
		}
	}
	return m, nil
}

func (h *Handler) handleSimulate(w http.ResponseWriter, r *http.Request) {
	var req simulateRequest
	if !decodeBody(w, r, &req) {
		return
	}

	variable, ok := soil.ParseVariable(req.Variable)
	if !ok {
		writeErr(w, fmt.Errorf("%w: %q", scoring.ErrUnknownVariable, req.Variable))
		return
	}
	value, present, err := parseNumber(req.Value)
	if err == nil && !present {
		err = fmt.Errorf("%w: value is required", errBadValue)
	}
	if err != nil {
		writeErr(w, err)
		return
	}
	values, err := parseMeasurements(req.Values)
	if err != nil {
		writeErr(w, err)
		return
	}
	sctx, err := req.toContext()
	if err != nil {
		writeErr(w, err)
		return
	}

	result, err := h.engine.Simulate(scoring.SimulateRequest{
		Variable: variable,
		Value:    value,
		Context:  sctx,
		Values:   values,
	}, h.opts.Simulator)
	if err != nil {
		writeErr(w, err)
		return
	}
	h.metrics.observeResult(result)
	writeJSON(w, http.StatusOK, surface.NewEnvelope(result))
}

func (h *Handler) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	values, err := parseMeasurements(req.Values)
	if err != nil {
		writeErr(w, err)
		return
	}
	sctx, err := req.toContext()
	if err != nil {
		writeErr(w, err)
		return
	}

	result, err := h.engine.Validate(scoring.ValidateRequest{Values: values, Context: sctx}, h.opts.Validation)
	if err != nil {
		writeErr(w, err)
		return
	}
	h.metrics.observeResult(result)
	writeJSON(w, http.StatusOK, surface.NewEnvelope(result))
}

func (h *Handler) handleAlerts(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	values, err := parseMeasurements(req.Values)
	if err != nil {
		writeErr(w, err)
		return
	}

	report := h.engine.Rules.Evaluate(values)
	resp := alertsResponse{
		Alerts:          report.Alerts,
		Recommendations: h.engine.Mapper.Map(report.Alerts, req.Crop),
		SkippedRules:    report.Skipped,
	}
	if resp.Alerts == nil {
		resp.Alerts = []alerts.Alert{}
	}
	writeJSON(w, http.StatusOK, resp)
}
