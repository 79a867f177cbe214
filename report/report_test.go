package report

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/YuminosukeSato/riskml/pkg/errors"
	"github.com/YuminosukeSato/riskml/selection"
)

func sampleTable() *ComparisonTable {
	t := &ComparisonTable{}
	t.Add(ComparisonRow{Model: "Logistic Regression", Accuracy: 0.75, Precision: 0.5, Recall: 0.25, F1: 0.125})
	t.Add(ComparisonRow{Model: "Random Forest", Accuracy: 0.875, Precision: 0.75, Recall: 0.5, F1: 0.625})
	t.Add(ComparisonRow{Model: "XGBoost", Accuracy: 0.875, Precision: 0.5, Recall: 0.75, F1: 0.5})
	return t
}

func TestComparisonTable_String(t *testing.T) {
	out := sampleTable().String()
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "F1-Score")
	assert.True(t, strings.HasPrefix(lines[1], "Logistic Regression"))
	assert.Contains(t, lines[2], "0.875000")
}

func TestComparisonTable_Best(t *testing.T) {
	tbl := sampleTable()
	best, ok := tbl.Best("Accuracy")
	require.True(t, ok)
	assert.Equal(t, "Random Forest", best.Model, "first row wins ties")

	best, ok = tbl.Best("Recall")
	require.True(t, ok)
	assert.Equal(t, "XGBoost", best.Model)

	_, ok = tbl.Best("AUC")
	assert.False(t, ok)

	row, ok := tbl.Row("Random Forest")
	require.True(t, ok)
	assert.Equal(t, 0.625, row.F1)
}

func TestWriteXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.xlsx")
	summary := &selection.SummaryTable{Rows: []selection.SummaryRow{
		{Name: "const", Lower2_5: -2.5, Upper97_5: -1.25, OddsRatio: 0.15, PValue: 0},
		{Name: "DEBTINC", Lower2_5: 0.5, Upper97_5: 0.75, OddsRatio: 1.75, PValue: 0.001},
	}}
	require.NoError(t, WriteXLSX(path, sampleTable(), SummarySheet("", summary)))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Model comparison", "Logistic summary"}, f.GetSheetList())

	rows, err := f.GetRows("Model comparison")
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"Model", "Accuracy", "Precision", "Recall", "F1-Score"}, rows[0])
	assert.Equal(t, []string{"Random Forest", "0.875", "0.75", "0.5", "0.625"}, rows[2])

	rows, err = f.GetRows("Logistic summary")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "DEBTINC", rows[2][0])
	assert.Equal(t, "1.75", rows[2][3])
}

func TestWriteXLSX_Errors(t *testing.T) {
	dir := t.TempDir()
	var ve *errors.ValidationError

	err := WriteXLSX(filepath.Join(dir, "dup.xlsx"), sampleTable(), sampleTable())
	assert.True(t, errors.As(err, &ve), "duplicate sheet names should be rejected")

	long := SummarySheet(strings.Repeat("x", 32), &selection.SummaryTable{})
	err = WriteXLSX(filepath.Join(dir, "long.xlsx"), long)
	assert.True(t, errors.As(err, &ve))

	assert.Error(t, WriteXLSX(filepath.Join(dir, "empty.xlsx")))
}

func TestComparisonTable_WriteXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cmp.xlsx")
	require.NoError(t, sampleTable().WriteXLSX(path))
	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	v, err := f.GetCellValue("Model comparison", "A4")
	require.NoError(t, err)
	assert.Equal(t, "XGBoost", v)
}
