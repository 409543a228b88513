package services

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Header rows expected on the first sheet of import workbooks
var (
	MaterialHeaders = []string{"Código", "Nombre", "Unidad de Medida"}
	ProductHeaders  = []string{
		"Código", "Nombre", "Potencia (kVA)", "Pérdidas Po (W)", "Pérdidas Pcc (W)", "Ucc (%)",
		"Largo (mm)", "Ancho (mm)", "Alto (mm)", "Diámetro (mm)", "Peso (Kg)",
	}
)

// MaterialRow is one data row of a materials workbook
type MaterialRow struct {
	Row  int
	Code string
	Name string
	Unit string
}

// ProductRow is one data row of a products workbook, cells still unparsed
type ProductRow struct {
	Row         int
	Code        string
	Name        string
	PotenciaKVA string
	PerdidasPo  string
	PerdidasPcc string
	Ucc         string
	Largo       string
	Ancho       string
	Alto        string
	Diametro    string
	Peso        string
}

type sheetRow struct {
	number int // 1-based row number in the sheet
	cells  []string
}

func (r sheetRow) cell(i int) string {
	if i < len(r.cells) {
		return strings.TrimSpace(r.cells[i])
	}
	return ""
}

// ReadMaterialRows parses a materials workbook
func ReadMaterialRows(content []byte) ([]MaterialRow, error) {
	rows, err := readSheet(content, MaterialHeaders)
	if err != nil {
		return nil, err
	}

	materials := make([]MaterialRow, 0, len(rows))
	for _, r := range rows {
		materials = append(materials, MaterialRow{
			Row:  r.number,
			Code: r.cell(0),
			Name: r.cell(1),
			Unit: r.cell(2),
		})
	}
	return materials, nil
}

// ReadProductRows parses a products workbook
func ReadProductRows(content []byte) ([]ProductRow, error) {
	rows, err := readSheet(content, ProductHeaders)
	if err != nil {
		return nil, err
	}

	products := make([]ProductRow, 0, len(rows))
	for _, r := range rows {
		products = append(products, ProductRow{
			Row:         r.number,
			Code:        r.cell(0),
			Name:        r.cell(1),
			PotenciaKVA: r.cell(2),
			PerdidasPo:  r.cell(3),
			PerdidasPcc: r.cell(4),
			Ucc:         r.cell(5),
			Largo:       r.cell(6),
			Ancho:       r.cell(7),
			Alto:        r.cell(8),
			Diametro:    r.cell(9),
			Peso:        r.cell(10),
		})
	}
	return products, nil
}

// readSheet returns the non-blank data rows of the first sheet after checking
// its header row case-insensitively
func readSheet(content []byte, headers []string) ([]sheetRow, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, newValidationError("file", "is not a readable .xlsx workbook")
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, newValidationError("file", "has no worksheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}

	if len(rows) == 0 || !headersMatch(rows[0], headers) {
		return nil, newValidationError("file", "header row must be: "+strings.Join(headers, " | "))
	}

	data := make([]sheetRow, 0, len(rows)-1)
	for i, cells := range rows[1:] {
		if isBlank(cells) {
			continue
		}
		data = append(data, sheetRow{number: i + 2, cells: cells})
	}
	return data, nil
}

func headersMatch(row, headers []string) bool {
	if len(row) < len(headers) {
		return false
	}
	for i, h := range headers {
		if !strings.EqualFold(strings.TrimSpace(row[i]), h) {
			return false
		}
	}
	return true
}

func isBlank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// WriteWorkbook builds a single-sheet workbook with a bold header row
func WriteWorkbook(sheet string, headers []string, rows [][]interface{}) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	boldStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
	})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}

	for i, h := range headers {
		col, _ := excelize.ColumnNumberToName(i + 1)
		cell := col + "1"
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return nil, err
		}
		if err := f.SetCellStyle(sheet, cell, cell, boldStyle); err != nil {
			return nil, err
		}
		if err := f.SetColWidth(sheet, col, col, float64(len(h)+4)); err != nil {
			return nil, err
		}
	}

	for r, values := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, r+2)
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return nil, fmt.Errorf("write row %d: %w", r+2, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// MaterialTemplate returns an empty materials import workbook
func MaterialTemplate() ([]byte, error) {
	return WriteWorkbook("Materiales", MaterialHeaders, nil)
}

// ProductTemplate returns an empty products import workbook
func ProductTemplate() ([]byte, error) {
	return WriteWorkbook("Productos", ProductHeaders, nil)
}
