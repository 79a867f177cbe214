// Package report renders model-evaluation results as text tables and
// exports them to Excel workbooks.
package report

import (
	"fmt"
	"strings"
)

// ComparisonRow holds the hold-out scores of one model on the positive class.
type ComparisonRow struct {
	Model     string
	Accuracy  float64
	Precision float64
	Recall    float64
	F1        float64
}

// ComparisonTable is the model-by-metric result of a model comparison.
// Rows keep the order in which the models were evaluated.
type ComparisonTable struct {
	Rows []ComparisonRow
}

var comparisonHeader = []string{"Model", "Accuracy", "Precision", "Recall", "F1-Score"}

// Add appends a row.
func (t *ComparisonTable) Add(row ComparisonRow) {
	t.Rows = append(t.Rows, row)
}

// Row returns the row of the named model.
func (t *ComparisonTable) Row(model string) (ComparisonRow, bool) {
	for _, r := range t.Rows {
		if r.Model == model {
			return r, true
		}
	}
	return ComparisonRow{}, false
}

// Best returns the row with the highest value of metric ("Accuracy",
// "Precision", "Recall" or "F1-Score"). The first row wins ties.
func (t *ComparisonTable) Best(metric string) (ComparisonRow, bool) {
	var best ComparisonRow
	found := false
	for _, r := range t.Rows {
		v, ok := r.metric(metric)
		if !ok {
			return ComparisonRow{}, false
		}
		if b, _ := best.metric(metric); !found || v > b {
			best, found = r, true
		}
	}
	return best, found
}

func (r ComparisonRow) metric(name string) (float64, bool) {
	switch name {
	case "Accuracy":
		return r.Accuracy, true
	case "Precision":
		return r.Precision, true
	case "Recall":
		return r.Recall, true
	case "F1-Score":
		return r.F1, true
	}
	return 0, false
}

// String renders the table like a printed pandas DataFrame.
func (t *ComparisonTable) String() string {
	width := 0
	for _, r := range t.Rows {
		if len(r.Model) > width {
			width = len(r.Model)
		}
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-*s", width, "")
	for _, h := range comparisonHeader[1:] {
		fmt.Fprintf(&b, "  %9s", h)
	}
	b.WriteString("\n")
	for _, r := range t.Rows {
		fmt.Fprintf(&b, "%-*s  %9.6f  %9.6f  %9.6f  %9.6f\n", width, r.Model, r.Accuracy, r.Precision, r.Recall, r.F1)
	}
	return b.String()
}

// SheetName implements Sheet.
func (t *ComparisonTable) SheetName() string { return "Model comparison" }

// Header implements Sheet.
func (t *ComparisonTable) Header() []string { return comparisonHeader }

// Values implements Sheet.
func (t *ComparisonTable) Values() [][]interface{} {
	out := make([][]interface{}, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = []interface{}{r.Model, r.Accuracy, r.Precision, r.Recall, r.F1}
	}
	return out
}

// WriteXLSX writes the table to a single-sheet workbook.
func (t *ComparisonTable) WriteXLSX(path string) error {
	return WriteXLSX(path, t)
}
