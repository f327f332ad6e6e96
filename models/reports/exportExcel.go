package reports

import (
	"io"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const ExcelContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ExcelExporter interface {
	GetCellValues() []interface{}
}

// workbook wraps an excelize file with the header and money styles every export shares.
type workbook struct {
	f           *excelize.File
	headerStyle int
	moneyStyle  int
	totalStyle  int
	sheets      int
}

func newWorkbook() (*workbook, error) {
	f := excelize.NewFile()
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#D9E1F2"}, Pattern: 1},
	})
	if err != nil {
		return nil, err
	}
	moneyFmt := "#,##0.00"
	moneyStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &moneyFmt})
	if err != nil {
		return nil, err
	}
	totalStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}, CustomNumFmt: &moneyFmt})
	if err != nil {
		return nil, err
	}
	return &workbook{f: f, headerStyle: headerStyle, moneyStyle: moneyStyle, totalStyle: totalStyle}, nil
}

// addSheet writes headings in row 1 and one row per record. The first sheet reuses excelize's
// default "Sheet1". It returns the next free row number.
func (wb *workbook) addSheet(name string, headings []string, data []ExcelExporter) (int, error) {
	if wb.sheets == 0 {
		if err := wb.f.SetSheetName("Sheet1", name); err != nil {
			return 0, err
		}
	} else if _, err := wb.f.NewSheet(name); err != nil {
		return 0, err
	}
	wb.sheets++

	if err := wb.f.SetSheetRow(name, "A1", &headings); err != nil {
		return 0, err
	}
	last, _ := excelize.CoordinatesToCellName(len(headings), 1)
	if err := wb.f.SetCellStyle(name, "A1", last, wb.headerStyle); err != nil {
		return 0, err
	}
	_ = wb.f.SetPanes(name, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})

	rowNo := 2
	for _, d := range data {
		values := toCellValues(d.GetCellValues())
		cell, _ := excelize.CoordinatesToCellName(1, rowNo)
		if err := wb.f.SetSheetRow(name, cell, &values); err != nil {
			return 0, err
		}
		rowNo++
	}
	return rowNo, nil
}

// setMoneyColumns applies the two-decimal format to the given 1-based columns.
func (wb *workbook) setMoneyColumns(sheet string, lastRow int, cols ...int) error {
	if lastRow < 2 {
		return nil
	}
	for _, col := range cols {
		from, _ := excelize.CoordinatesToCellName(col, 2)
		to, _ := excelize.CoordinatesToCellName(col, lastRow)
		if err := wb.f.SetCellStyle(sheet, from, to, wb.moneyStyle); err != nil {
			return err
		}
	}
	return nil
}

// addTotalsRow writes "Total" in the first column and the given values at their columns.
func (wb *workbook) addTotalsRow(sheet string, rowNo int, totals map[int]decimal.Decimal) error {
	first, _ := excelize.CoordinatesToCellName(1, rowNo)
	if err := wb.f.SetCellValue(sheet, first, "Total"); err != nil {
		return err
	}
	maxCol := 1
	for col, v := range totals {
		cell, _ := excelize.CoordinatesToCellName(col, rowNo)
		if err := wb.f.SetCellValue(sheet, cell, v.InexactFloat64()); err != nil {
			return err
		}
		if col > maxCol {
			maxCol = col
		}
	}
	last, _ := excelize.CoordinatesToCellName(maxCol, rowNo)
	return wb.f.SetCellStyle(sheet, first, last, wb.totalStyle)
}

func (wb *workbook) write(w io.Writer) error {
	defer wb.f.Close()
	return wb.f.Write(w)
}

// toCellValues turns decimals into numbers so the sheet can sum them.
func toCellValues(values []interface{}) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		switch d := v.(type) {
		case decimal.Decimal:
			out[i] = d.InexactFloat64()
		case *decimal.Decimal:
			if d == nil {
				out[i] = ""
			} else {
				out[i] = d.InexactFloat64()
			}
		default:
			out[i] = v
		}
	}
	return out
}
