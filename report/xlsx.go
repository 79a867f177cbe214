package report

import (
	"github.com/xuri/excelize/v2"

	"github.com/YuminosukeSato/riskml/pkg/errors"
	"github.com/YuminosukeSato/riskml/pkg/log"
	"github.com/YuminosukeSato/riskml/selection"
)

// Sheet is a table that can be written as a worksheet.
type Sheet interface {
	SheetName() string
	Header() []string
	Values() [][]interface{}
}

// maxSheetName は Excel のシート名の上限
const maxSheetName = 31

// WriteXLSX writes every sheet to a new workbook at path, in order.
// Sheet names must be unique and at most 31 characters long.
func WriteXLSX(path string, sheets ...Sheet) (err error) {
	if len(sheets) == 0 {
		return errors.NewValueError("WriteXLSX", "no sheets to write")
	}
	seen := make(map[string]bool, len(sheets))
	for _, s := range sheets {
		name := s.SheetName()
		if name == "" || len(name) > maxSheetName {
			return errors.NewValidationError("sheet_name", "must be 1 to 31 characters", name)
		}
		if seen[name] {
			return errors.NewValidationError("sheet_name", "duplicate sheet", name)
		}
		seen[name] = true
	}

	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = errors.Wrap(cerr, "close workbook")
		}
	}()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return errors.Wrap(err, "create header style")
	}

	for i, s := range sheets {
		name := s.SheetName()
		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				return errors.Wrapf(err, "rename sheet %q", name)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return errors.Wrapf(err, "create sheet %q", name)
		}
		if err := writeSheet(f, name, s, bold); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return errors.Wrapf(err, "save %s", path)
	}
	log.GetLoggerWithName("report").Info("workbook written", "path", path, "sheets", len(sheets))
	return nil
}

func writeSheet(f *excelize.File, name string, s Sheet, headerStyle int) error {
	header := s.Header()
	row := make([]interface{}, len(header))
	for i, h := range header {
		row[i] = h
	}
	if err := f.SetSheetRow(name, "A1", &row); err != nil {
		return errors.Wrapf(err, "write header of %q", name)
	}
	if len(header) > 0 {
		last, err := excelize.CoordinatesToCellName(len(header), 1)
		if err != nil {
			return errors.WithStack(err)
		}
		if err := f.SetCellStyle(name, "A1", last, headerStyle); err != nil {
			return errors.Wrapf(err, "style header of %q", name)
		}
	}
	for r, values := range s.Values() {
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return errors.WithStack(err)
		}
		values := values
		if err := f.SetSheetRow(name, cell, &values); err != nil {
			return errors.Wrapf(err, "write row %d of %q", r+1, name)
		}
	}
	return f.SetColWidth(name, "A", "A", 24)
}

// summarySheet は selection.SummaryTable を Sheet として扱う
type summarySheet struct {
	name  string
	table *selection.SummaryTable
}

// SummarySheet wraps a logistic summary table as a worksheet.
func SummarySheet(name string, t *selection.SummaryTable) Sheet {
	if name == "" {
		name = "Logistic summary"
	}
	return summarySheet{name: name, table: t}
}

func (s summarySheet) SheetName() string { return s.name }

func (s summarySheet) Header() []string {
	return []string{"Variable", "2.5%", "97.5%", "Odds Ratio", "p-value"}
}

func (s summarySheet) Values() [][]interface{} {
	out := make([][]interface{}, len(s.table.Rows))
	for i, r := range s.table.Rows {
		out[i] = []interface{}{r.Name, r.Lower2_5, r.Upper97_5, r.OddsRatio, r.PValue}
	}
	return out
}
