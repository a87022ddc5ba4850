package surface

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/soilicd/soilicd/pkg/dataset"
	"github.com/soilicd/soilicd/pkg/scoring"
	"github.com/soilicd/soilicd/pkg/soil"
)

// ExcelRenderer writes results as an XLSX workbook.
type ExcelRenderer struct{}

const (
	sheetICD     = "ICD"
	sheetAlerts  = "Alertas"
	sheetRecs    = "Recomendaciones"
	sheetSummary = "Resumen"
)

// workbook wraps an excelize file with the shared header style.
type workbook struct {
	file        *excelize.File
	headerStyle int
}

func newWorkbook(first string) (*workbook, error) {
	file := excelize.NewFile()

	// Rename the default sheet
	if err := file.SetSheetName("Sheet1", first); err != nil {
		return nil, fmt.Errorf("renaming sheet: %w", err)
	}
	style, err := file.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4E7D3A"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}
	return &workbook{file: file, headerStyle: style}, nil
}

// table writes a header row and data rows, freezing the header.
func (b *workbook) table(sheet string, header []string, rows [][]any) error {
	if idx, _ := b.file.GetSheetIndex(sheet); idx < 0 {
		if _, err := b.file.NewSheet(sheet); err != nil {
			return fmt.Errorf("failed to create sheet: %w", err)
		}
	}
	for i, h := range header {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := b.file.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
		if err := b.file.SetCellStyle(sheet, cell, cell, b.headerStyle); err != nil {
			return err
		}
	}
	for r, row := range rows {
		for c, v := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if err := b.file.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
	}
	lastCol, _ := excelize.ColumnNumberToName(len(header))
	if err := b.file.SetColWidth(sheet, "A", lastCol, 24); err != nil {
		return err
	}

	// Freeze header row
	return b.file.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func (b *workbook) write(w io.Writer) error {
	defer b.file.Close()
	return b.file.Write(w)
}

func (r *ExcelRenderer) Render(w io.Writer, result *scoring.Result) error {
	b, err := newWorkbook(sheetICD)
	if err != nil {
		return err
	}
	env := NewEnvelope(result)

	rows := [][]any{
		{"evaluation_id", env.EvaluationID, "", ""},
		{"modo", string(result.Mode), "", ""},
		{"tabla_bandas", string(result.BandTable), "", ""},
		{"icd", result.CompositeScore, "", ""},
		{"banda", result.Band.Label(), "", ""},
	}
	for _, c := range result.Components {
		rows = append(rows, []any{string(c.Source), string(c.Variable), c.Value, c.Weight})
	}
	if err := b.table(sheetICD, []string{"Campo", "Valor / Variable", "Puntaje", "Peso"}, rows); err != nil {
		return err
	}

	alertRows := make([][]any, 0, len(result.Alerts))
	for _, a := range result.Alerts {
		alertRows = append(alertRows, []any{string(a.Category), string(a.Severity), a.Value, a.Threshold, a.Message})
	}
	if err := b.table(sheetAlerts, []string{"Categoría", "Severidad", "Valor", "Umbral", "Mensaje"}, alertRows); err != nil {
		return err
	}

	recRows := make([][]any, 0, len(result.Recommendations))
	for _, rec := range result.Recommendations {
		recRows = append(recRows, []any{rec})
	}
	if err := b.table(sheetRecs, []string{"Recomendación"}, recRows); err != nil {
		return err
	}

	return b.write(w)
}

func (r *ExcelRenderer) RenderSummary(w io.Writer, v soil.Variable, rows []dataset.Summary) error {
	b, err := newWorkbook(sheetSummary)
	if err != nil {
		return err
	}
	data := make([][]any, 0, len(rows))
	for _, s := range rows {
		var mean any
		if s.HasData() {
			mean = s.MeanICD
		}
		data = append(data, []any{string(s.Region), s.Department, s.Municipality, string(v), mean, s.Band.Label(), s.Samples})
	}
	header := []string{"Región", "Departamento", "Municipio", "Variable", "ICD", "Banda", "Muestras"}
	if err := b.table(sheetSummary, header, data); err != nil {
		return err
	}
	return b.write(w)
}
