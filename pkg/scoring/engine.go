package scoring

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/soilicd/soilicd/pkg/alerts"
	"github.com/soilicd/soilicd/pkg/dataset"
	"github.com/soilicd/soilicd/pkg/deviation"
	"github.com/soilicd/soilicd/pkg/icd"
	"github.com/soilicd/soilicd/pkg/method"
	"github.com/soilicd/soilicd/pkg/recommend"
	"github.com/soilicd/soilicd/pkg/soil"
	"github.com/soilicd/soilicd/pkg/thresholds"
)

// ErrUnknownVariable is returned when the simulated variable is not a soil variable.
var ErrUnknownVariable = errors.New("unknown variable")

// ReferenceSource derives reference distributions. *dataset.Dataset
// implements it; the API wraps it in a cache.
type ReferenceSource interface {
	Reference(v soil.Variable, f dataset.Filter, minSamples int) (deviation.Reference, error)
}

// Forecaster exposes a forecast series. *dataset.Forecast implements it.
type Forecaster interface {
	// Reference summarizes the forecast points of v.
	Reference(v soil.Variable) (deviation.Reference, bool)
	// At returns the forecast value of v nearest to date.
	At(v soil.Variable, date time.Time) (float64, bool)
}

// Context is where and for what crop a sample was taken.
type Context struct {
	Crop         string    `json:"crop,omitempty"`
	Department   string    `json:"department,omitempty"`
	Municipality string    `json:"municipality,omitempty"`
	Date         time.Time `json:"date,omitempty"`
}

// SimulateRequest asks for the ICD of a single value.
type SimulateRequest struct {
	Variable soil.Variable
	Value    float64
	Context  Context
	// Values are optional companion measurements used by the alert rules.
	Values soil.Measurements
}

// ValidateRequest asks for the ICD of a full sample.
type ValidateRequest struct {
	Values  soil.Measurements
	Context Context
}

// Engine evaluates requests. All collaborators are read-only, so one engine
// may serve concurrent callers.
type Engine struct {
	References ReferenceSource
	Forecast   Forecaster
	Thresholds *thresholds.Table
	Rules      *alerts.Engine
	Mapper     *recommend.Mapper
	Methods    *method.Selector
}

// NewEngine creates an engine with the default threshold table, rules,
// crop overlays and Olsen allow-list. forecast may be nil.
func NewEngine(refs ReferenceSource, forecast Forecaster) *Engine {
	table := thresholds.Default()
	return &Engine{
		References: refs,
		Forecast:   forecast,
		Thresholds: table,
		Rules:      alerts.NewEngine(alerts.DefaultRules(table)...),
		Mapper:     recommend.NewMapper(recommend.DefaultOverlays()),
		Methods:    method.NewSelector(method.DefaultOlsenCrops),
	}
}

// evaluation accumulates one request's components and diagnostics.
type evaluation struct {
	scorer      *deviation.Scorer
	opts        Options
	components  []icd.Component
	diagnostics []Diagnostic
}

func (ev *evaluation) add(c icd.Component) {
	ev.components = append(ev.components, c)
}

func (ev *evaluation) diag(code DiagnosticCode, src icd.Source, v soil.Variable, format string, args ...any) {
	ev.diagnostics = append(ev.diagnostics, Diagnostic{
		Code:     code,
		Source:   src,
		Variable: v,
		Message:  fmt.Sprintf(format, args...),
	})
}

func (e *Engine) newEvaluation(opts Options) *evaluation {
	sc := deviation.NewScorer(e.Thresholds)
	if opts.Scale > 0 {
		sc.Scale = opts.Scale
	}
	if opts.RelativeScale > 0 {
		sc.RelativeScale = opts.RelativeScale
	}
	return &evaluation{scorer: sc, opts: opts}
}

// Simulate scores one value against the national reference distribution,
// the series of the sample's department and the forecast, and runs the alert
// rules over it.
func (e *Engine) Simulate(req SimulateRequest, opts Options) (*Result, error) {
	if !req.Variable.IsKnown() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownVariable, req.Variable)
	}
	if e.References == nil {
		return nil, fmt.Errorf("simulate: no reference dataset configured")
	}
	ev := e.newEvaluation(opts)
	target := e.referenceVariable(ev, req.Variable, req.Context.Crop)

	// A variable the dataset never reports cannot be simulated.
	ref, err := e.References.Reference(target, dataset.Filter{}, opts.MinSamples)
	if err != nil {
		return nil, fmt.Errorf("simulate %s: %w", req.Variable, err)
	}
	ev.national(req.Variable, req.Value, ref)
	e.regional(ev, req, target)
	e.model(ev, req, target)

	values := make(soil.Measurements, len(req.Values)+1)
	for v, x := range req.Values {
		values[v] = x
	}
	values[req.Variable] = req.Value
	report := e.Rules.Evaluate(values)
	ev.add(ruleBased(report, opts))

	return e.finish(ModeSimulator, ev, report, req.Context.Crop)
}

// Validate scores every submitted variable against its national reference
// and averages the per-variable scores. A submitted NaN is scored, not
// skipped; the alert rules treat it as absent.
func (e *Engine) Validate(req ValidateRequest, opts Options) (*Result, error) {
	if e.References == nil {
		return nil, fmt.Errorf("validate: no reference dataset configured")
	}
	ev := e.newEvaluation(opts)
	for _, v := range req.Values.Keys() {
		if !v.IsKnown() {
			continue
		}
		target := e.referenceVariable(ev, v, req.Context.Crop)
		ref, err := e.References.Reference(target, dataset.Filter{}, opts.MinSamples)
		if err != nil {
			ev.diag(DiagMissingNational, icd.SourceNational, v, "sin referencia nacional: %v", err)
			continue
		}
		ev.national(v, req.Values[v], ref)
	}

	report := e.Rules.Evaluate(req.Values)
	return e.finish(ModeValidation, ev, report, req.Context.Crop)
}

func (e *Engine) finish(mode Mode, ev *evaluation, report alerts.Report, crop string) (*Result, error) {
	composite, err := icd.Aggregate(ev.components, ev.opts.Weights, ev.opts.BandTable)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", mode, err)
	}
	recs := e.Mapper.Map(report.Alerts, crop)
	if s := recommend.ForBand(composite.Band); s != "" {
		recs = append(recs, s)
	}
	return &Result{
		Mode:            mode,
		BandTable:       composite.BandTable,
		CompositeScore:  composite.Score,
		Band:            composite.Band,
		Components:      composite.Components,
		Alerts:          report.Alerts,
		Recommendations: recs,
		SkippedRules:    report.Skipped,
		Diagnostics:     ev.diagnostics,
	}, nil
}

// national adds the deviation of value from the national reference.
func (ev *evaluation) national(v soil.Variable, value float64, ref deviation.Reference) {
	c := icd.Component{Source: icd.SourceNational, Variable: v, Value: ev.scorer.Score(value, ref)}
	if ref.Degenerate() && !math.IsNaN(value) {
		ev.diag(DiagDegenerateDistribution, icd.SourceNational, v,
			"distribución nacional degenerada (n=%d), puntaje neutro", ref.SampleCount)
		c.Note = "neutral"
	}
	ev.add(c)
}

// regional scores the value against the records of the sample's department.
// A series without spread (a single record or identical values) is scored by
// relative distance to its mean. No series at all gives the neutral score.
func (e *Engine) regional(ev *evaluation, req SimulateRequest, target soil.Variable) {
	neutral := icd.Component{Source: icd.SourceRegional, Variable: req.Variable, Value: deviation.NeutralScore, Note: "neutral"}
	dept := strings.TrimSpace(req.Context.Department)
	if dept == "" {
		ev.diag(DiagMissingRegional, icd.SourceRegional, req.Variable, "sin departamento, puntaje regional neutro")
		ev.add(neutral)
		return
	}
	ref, err := e.References.Reference(target, dataset.Filter{Department: dept}, ev.opts.MinSamples)
	switch {
	case err != nil:
		ev.diag(DiagMissingRegional, icd.SourceRegional, req.Variable,
			"sin serie de %s para %s, puntaje neutro: %v", req.Variable, dept, err)
		ev.add(neutral)
	case ref.Degenerate():
		ev.diag(DiagRelativeFallback, icd.SourceRegional, req.Variable,
			"serie de %s sin dispersión (n=%d), se usa distancia relativa", dept, ref.SampleCount)
		ev.add(icd.Component{
			Source:   icd.SourceRegional,
			Variable: req.Variable,
			Value:    ev.scorer.Relative(req.Variable, req.Value, ref.Mean),
			Note:     "relative",
		})
	default:
		ev.add(icd.Component{Source: icd.SourceRegional, Variable: req.Variable, Value: ev.scorer.Score(req.Value, ref),
			Note: dept})
	}
}

// model scores the value against the mean of the forecast points, scaled by
// their population spread, or by relative distance when the points do not
// spread. Without a forecast the ModelDefault score stands in.
func (e *Engine) model(ev *evaluation, req SimulateRequest, target soil.Variable) {
	ref, ok := e.forecastReference(target)
	if !ok && target != req.Variable {
		ref, ok = e.forecastReference(req.Variable)
	}
	if !ok {
		ev.diag(DiagMissingForecast, icd.SourceModel, req.Variable,
			"sin pronóstico para %s, puntaje por defecto %.2f", req.Variable, ev.opts.ModelDefault)
		ev.add(icd.Component{Source: icd.SourceModel, Variable: req.Variable, Value: ev.opts.ModelDefault, Note: "default"})
		return
	}

	note := fmt.Sprintf("pronóstico medio %.3g (n=%d)", ref.Mean, ref.SampleCount)
	if date := req.Context.Date; !date.IsZero() {
		if x, ok := e.Forecast.At(ref.Variable, date); ok {
			note += fmt.Sprintf(", %s: %.3g", date.Format("2006-01-02"), x)
		}
	}
	value := ev.scorer.Score(req.Value, ref)
	if ref.Degenerate() {
		value = ev.scorer.Relative(req.Variable, req.Value, ref.Mean)
	}
	ev.add(icd.Component{Source: icd.SourceModel, Variable: req.Variable, Value: value, Note: note})
}

// referenceVariable returns the dataset column to build references from.
// Micronutrients are read from the extraction method column chosen for the
// crop when the dataset carries it.
func (e *Engine) referenceVariable(ev *evaluation, v soil.Variable, crop string) soil.Variable {
	if e.Methods == nil || crop == "" {
		return v
	}
	col, err := e.Methods.Select(crop, v)
	if err != nil {
		return v
	}
	column := soil.Variable(col.Name)
	if _, err := e.References.Reference(column, dataset.Filter{}, 1); err != nil {
		return v
	}
	ev.diag(DiagMethodColumn, "", v, "%s leído de la columna %s (%s)", v, col.Name, col.Method.Label())
	return column
}

func (e *Engine) forecastReference(v soil.Variable) (deviation.Reference, bool) {
	if e.Forecast == nil {
		return deviation.Reference{}, false
	}
	return e.Forecast.Reference(v)
}

// ruleBased turns alert counts into a conformity score.
func ruleBased(report alerts.Report, opts Options) icd.Component {
	warnings, severe := report.Counts()
	score := 1 - opts.WarningPenalty*float64(warnings) - opts.SeverePenalty*float64(severe)
	return icd.Component{
		Source: icd.SourceRuleBased,
		Value:  math.Max(0, score),
		Note:   fmt.Sprintf("%d advertencias, %d severas", warnings, severe),
	}
}
