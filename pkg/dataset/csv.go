package dataset

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/spf13/cast"

	"github.com/soilicd/soilicd/pkg/method"
	"github.com/soilicd/soilicd/pkg/soil"
)

// ErrNoHeader is returned when a CSV input has no header row.
var ErrNoHeader = errors.New("csv has no header")

type columnKind int

const (
	colIgnored columnKind = iota
	colDepartment
	colMunicipality
	colCrop
	colValue
	colMethod
	colICD
	colRegion
)

type column struct {
	kind     columnKind
	variable soil.Variable
	name     string // method-qualified column name, e.g. "fe_olsen"
}

// Symbols as they appear in laboratory headers: "Calcio (Ca) intercambiable".
var headerSymbols = map[string]soil.Variable{
	"MO":   soil.OrganicMatter,
	"P":    soil.Phosphorus,
	"S":    soil.Sulfur,
	"CA":   soil.Calcium,
	"MG":   soil.Magnesium,
	"K":    soil.Potassium,
	"NA":   soil.Sodium,
	"CIC":  soil.CIC,
	"CICE": soil.CIC,
	"CE":   soil.Conductivity,
	"FE":   soil.Iron,
	"CU":   soil.Copper,
	"MN":   soil.Manganese,
	"ZN":   soil.Zinc,
	"B":    soil.Boron,
	"AL+H": soil.ExchAcidity,
	"H+AL": soil.ExchAcidity,
	"AL":   soil.Aluminum,
}

// Column names of the processed laboratory exports.
var labVariables = map[string]soil.Variable{
	"ph_agua_suelo":              soil.PH,
	"materia_organica":           soil.OrganicMatter,
	"fosforo_bray_ii":            soil.Phosphorus,
	"azufre_fosfato_monocalcico": soil.Sulfur,
	"acidez_intercambiable":      soil.ExchAcidity,
	"aluminio_intercambiable":    soil.Aluminum,
	"calcio_intercambiable":      soil.Calcium,
	"magnesio_intercambiable":    soil.Magnesium,
	"potasio_intercambiable":     soil.Potassium,
	"sodio_intercambiable":       soil.Sodium,
	"conductividad_electrica":    soil.Conductivity,
	"boro_disponible":            soil.Boron,
}

// ResolveVariable maps a column or variable name to the identifier records
// are keyed by: canonical ("ca"), laboratory export ("calcio_intercambiable")
// or method-qualified ("zinc_olsen" and "zn_olsen" both give "zn_olsen").
func ResolveVariable(name string) (soil.Variable, bool) {
	c := resolveName(strings.ToLower(strings.TrimSpace(name)))
	switch c.kind {
	case colValue:
		return c.variable, true
	case colMethod:
		return soil.Variable(c.name), true
	}
	return "", false
}

func resolveName(lower string) column {
	if v, ok := soil.ParseVariable(lower); ok {
		return column{kind: colValue, variable: v}
	}
	if v, ok := labVariables[lower]; ok {
		return column{kind: colValue, variable: v}
	}
	if c, ok := method.ParseColumn(lower); ok {
		return column{kind: colMethod, variable: c.Element, name: c.Name}
	}
	return column{}
}

func resolveColumn(header string) column {
	key := soil.NormalizeName(header)
	switch key {
	case "DEPARTAMENTO", "DEPARTMENT", "DEP_NORM":
		return column{kind: colDepartment, name: key}
	case "MUNICIPIO", "MUNICIPALITY":
		return column{kind: colMunicipality}
	case "CULTIVO", "CROP":
		return column{kind: colCrop}
	case "REGION":
		return column{kind: colRegion}
	}

	lower := strings.ToLower(strings.TrimSpace(header))
	if rest, ok := strings.CutPrefix(lower, "icd_total_"); ok {
		if v, ok := ResolveVariable(rest); ok {
			return column{kind: colICD, variable: v}
		}
		return column{}
	}
	if c := resolveName(lower); c.kind != colIgnored {
		return c
	}

	if strings.HasPrefix(key, "PH") {
		return column{kind: colValue, variable: soil.PH}
	}
	lo, hi := strings.Index(key, "("), strings.Index(key, ")")
	if lo < 0 || hi <= lo {
		return column{}
	}
	sym := strings.ReplaceAll(key[lo+1:hi], " ", "")
	v, ok := headerSymbols[sym]
	if !ok {
		return column{}
	}
	switch {
	case strings.Contains(key, "OLSEN"):
		return column{kind: colMethod, variable: v, name: string(v) + "_olsen"}
	case strings.Contains(key, "DOBLE"):
		return column{kind: colMethod, variable: v, name: string(v) + "_doble_acido"}
	}
	return column{kind: colValue, variable: v}
}

// ParseValue decodes a laboratory cell. Empty cells and "ND" are absent,
// "<x" (below detection limit) reads as x, and a comma decimal separator
// is accepted.
func ParseValue(cell string) (float64, bool, error) {
	s := strings.TrimSpace(cell)
	switch strings.ToUpper(strings.ReplaceAll(s, ".", "")) {
	case "", "ND", "NA", "-":
		return 0, false, nil
	}
	s = strings.TrimSpace(strings.TrimPrefix(s, "<"))
	if strings.Contains(s, ",") {
		if strings.Contains(s, ".") {
			s = strings.ReplaceAll(s, ".", "")
		}
		s = strings.ReplaceAll(s, ",", ".")
	}
	v, err := cast.ToFloat64E(s)
	if err != nil {
		return 0, false, fmt.Errorf("parsing %q: %w", cell, err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false, nil
	}
	return v, true, nil
}

// DecodeCSV reads laboratory records from r. The delimiter (',' ';' or tab)
// is detected from the header line. Cells that fail to parse are treated as
// absent and counted in the returned warnings.
func DecodeCSV(r io.Reader) (*Dataset, []string, error) {
	br := bufio.NewReader(r)
	first, err := br.Peek(4096)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, nil, fmt.Errorf("reading csv: %w", err)
	}

	cr := csv.NewReader(br)
	cr.Comma = sniffDelimiter(first)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, ErrNoHeader
		}
		return nil, nil, fmt.Errorf("reading csv header: %w", err)
	}
	cols := make([]column, len(header))
	for i, h := range header {
		cols[i] = resolveColumn(strings.TrimPrefix(h, "\ufeff"))
	}
	preferNormalizedDepartment(cols)

	var (
		records  []Record
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
			return nil, warnings, fmt.Errorf("reading csv line %d: %w", line, err)
		}
		rec := Record{Values: soil.Measurements{}}
		for i, cell := range row {
			if i >= len(cols) {
				break
			}
			c := cols[i]
			switch c.kind {
			case colDepartment:
				rec.Department = strings.TrimSpace(cell)
			case colMunicipality:
				rec.Municipality = strings.TrimSpace(cell)
			case colCrop:
				rec.Crop = strings.TrimSpace(cell)
			case colRegion:
				rec.NaturalRegion = parseRegionCell(cell)
			case colValue, colMethod, colICD:
				v, ok, err := ParseValue(cell)
				if err != nil {
					warnings = append(warnings, fmt.Sprintf("line %d, column %q: %v", line, header[i], err))
					continue
				}
				if !ok {
					continue
				}
				switch c.kind {
				case colValue:
					rec.Values[c.variable] = v
				case colMethod:
					if rec.Columns == nil {
						rec.Columns = make(map[string]float64)
					}
					rec.Columns[c.name] = v
				case colICD:
					if rec.ICD == nil {
						rec.ICD = make(map[soil.Variable]float64)
					}
					rec.ICD[c.variable] = v
				}
			}
		}
		records = append(records, rec)
	}
	return New(records), warnings, nil
}

// preferNormalizedDepartment keeps a single department column, preferring
// the normalized dep_norm export column over the raw one.
func preferNormalizedDepartment(cols []column) {
	best := -1
	for i, c := range cols {
		if c.kind != colDepartment {
			continue
		}
		if best < 0 || (c.name != "DEPARTAMENTO" && c.name != "DEPARTMENT") {
			best = i
		}
	}
	for i := range cols {
		if cols[i].kind == colDepartment && i != best {
			cols[i] = column{}
		}
	}
}

func parseRegionCell(cell string) Region {
	s := strings.TrimSpace(cell)
	if r, ok := ParseRegion(s); ok {
		return r
	}
	return Region(s)
}

func sniffDelimiter(sample []byte) rune {
	line := sample
	if i := bytes.IndexByte(sample, '\n'); i >= 0 {
		line = sample[:i]
	}
	best, bestCount := ',', bytes.Count(line, []byte{','})
	for _, d := range []rune{';', '\t'} {
		if n := bytes.Count(line, []byte(string(d))); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}
