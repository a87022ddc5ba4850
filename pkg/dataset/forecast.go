package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cast"
	"gonum.org/v1/gonum/stat"

	"github.com/soilicd/soilicd/pkg/deviation"
	"github.com/soilicd/soilicd/pkg/soil"
)

// Kind tells observed points from projected ones.
type Kind string

const (
	KindHistorical Kind = "historical"
	KindForecast   Kind = "forecast"
)

// ParseKind accepts the English and Spanish spellings.
func ParseKind(s string) (Kind, bool) {
	switch soil.NormalizeName(s) {
	case "HISTORICAL", "HISTORICO", "OBSERVADO":
		return KindHistorical, true
	case "FORECAST", "PRONOSTICO", "PREDICCION":
		return KindForecast, true
	}
	return "", false
}

// Point is one value of a time series.
type Point struct {
	Variable soil.Variable `json:"variable"`
	Date     time.Time     `json:"fecha"`
	Kind     Kind          `json:"tipo"`
	Value    float64       `json:"valor"`
}

// Forecast holds per-variable series sorted by date. It is consumed only;
// producing forecasts happens elsewhere.
type Forecast struct {
	series map[soil.Variable][]Point
}

// NewForecast groups points by variable.
func NewForecast(points []Point) *Forecast {
	f := &Forecast{series: make(map[soil.Variable][]Point)}
	for _, p := range points {
		f.series[p.Variable] = append(f.series[p.Variable], p)
	}
	for _, s := range f.series {
		sort.SliceStable(s, func(i, j int) bool { return s[i].Date.Before(s[j].Date) })
	}
	return f
}

// Series returns every point of v in date order.
func (f *Forecast) Series(v soil.Variable) []Point {
	if f == nil {
		return nil
	}
	return f.series[v]
}

// Variables returns the variables that have a series.
func (f *Forecast) Variables() []soil.Variable {
	if f == nil {
		return nil
	}
	m := make(soil.Measurements, len(f.series))
	for v := range f.series {
		m[v] = 0
	}
	return m.Variables()
}

// At returns the forecast value of v nearest to date. A zero date selects
// the first forecast point. Ties go to the earlier point.
func (f *Forecast) At(v soil.Variable, date time.Time) (float64, bool) {
	var (
		best  Point
		found bool
		gap   time.Duration
	)
	for _, p := range f.Series(v) {
		if p.Kind != KindForecast {
			continue
		}
		if date.IsZero() {
			return p.Value, true
		}
		d := p.Date.Sub(date)
		if d < 0 {
			d = -d
		}
		if !found || d < gap {
			best, gap, found = p, d, true
		}
	}
	return best.Value, found
}

// Reference summarizes the forecast points of v as a distribution with the
// population standard deviation. When v has no point of kind forecast every
// point of the series is used instead.
func (f *Forecast) Reference(v soil.Variable) (deviation.Reference, bool) {
	series := f.Series(v)
	var values, all []float64
	for _, p := range series {
		all = append(all, p.Value)
		if p.Kind == KindForecast {
			values = append(values, p.Value)
		}
	}
	if len(values) == 0 {
		values = all
	}
	if len(values) == 0 {
		return deviation.Reference{}, false
	}
	ref := deviation.Reference{Variable: v, SampleCount: len(values)}
	if len(values) == 1 {
		ref.Mean = values[0]
		return ref, true
	}
	ref.Mean, ref.Std = stat.PopMeanStdDev(values, nil)
	return ref, true
}

// DecodeForecastCSV reads a table with columns variable, fecha, valor and
// optionally tipo. Variables may use any name ResolveVariable accepts. Rows
// with an unknown variable, an unparseable date or value, or an unknown tipo
// are skipped and reported in the returned warnings.
func DecodeForecastCSV(r io.Reader) (*Forecast, []string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, ErrNoHeader
		}
		return nil, nil, fmt.Errorf("reading forecast header: %w", err)
	}
	idx := map[string]int{}
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	for _, want := range []string{"variable", "fecha", "valor"} {
		if _, ok := idx[want]; !ok {
			return nil, nil, fmt.Errorf("forecast csv: missing column %q", want)
		}
	}

	var (
		points   []Point
		warnings []string
		line     = 1
	)
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, warnings, fmt.Errorf("reading forecast line %d: %w", line, err)
		}
		cell := func(name string) string {
			if i, ok := idx[name]; ok && i < len(row) {
				return row[i]
			}
			return ""
		}
		skip := func(format string, args ...any) {
			warnings = append(warnings, fmt.Sprintf("forecast line %d: ", line)+fmt.Sprintf(format, args...))
		}

		v, ok := ResolveVariable(cell("variable"))
		if !ok {
			skip("unknown variable %q", cell("variable"))
			continue
		}
		date, err := cast.ToTimeE(strings.TrimSpace(cell("fecha")))
		if err != nil {
			skip("%v", err)
			continue
		}
		kind := KindHistorical
		if tipo := cell("tipo"); strings.TrimSpace(tipo) != "" {
			if kind, ok = ParseKind(tipo); !ok {
				skip("unknown tipo %q", tipo)
				continue
			}
		}
		val, present, err := ParseValue(cell("valor"))
		if err != nil {
			skip("%v", err)
			continue
		}
		if !present {
			continue
		}
		points = append(points, Point{Variable: v, Date: date, Kind: kind, Value: val})
	}
	return NewForecast(points), warnings, nil
}
