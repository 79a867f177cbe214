package dataset

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/riskml/pkg/errors"
)

const hmeqSample = `BAD,LOAN,MORTDUE,DEBTINC,JOB
1,1100,25860,,Other
1,1300,70053,37.1,Other
0,1500,13500,31.5,Mgr
0,1700,97800,29.2,Office
1,2000,64536,,Sales
`

func TestReadCSV(t *testing.T) {
	f, err := ReadCSV(strings.NewReader(hmeqSample))
	require.NoError(t, err)

	assert.Equal(t, []string{"BAD", "LOAN", "MORTDUE", "DEBTINC", "JOB"}, f.Names())
	assert.Equal(t, 5, f.Nrow())
	assert.True(t, f.HasColumn("DEBTINC"))
	assert.False(t, f.HasColumn("CLAGE"))
	assert.Equal(t, []string{"LOAN", "MORTDUE", "DEBTINC", "JOB"}, f.FeatureNames("BAD"))
}

func TestFrame_MatrixAndTarget(t *testing.T) {
	f, err := ReadCSV(strings.NewReader(hmeqSample))
	require.NoError(t, err)

	X, err := f.Matrix([]string{"LOAN", "MORTDUE"})
	require.NoError(t, err)
	r, c := X.Dims()
	assert.Equal(t, 5, r)
	assert.Equal(t, 2, c)
	assert.Equal(t, 1300.0, X.At(1, 0))
	assert.Equal(t, 70053.0, X.At(1, 1))

	y, err := f.Target("BAD")
	require.NoError(t, err)
	assert.Equal(t, 5, y.Len())
	assert.Equal(t, 0.0, y.AtVec(2))

	_, err = f.Target("LOAN")
	assert.True(t, errors.Is(err, errors.ErrNotBinary))

	_, err = f.Matrix([]string{"CLAGE"})
	assert.True(t, errors.Is(err, errors.ErrUnknownColumn))

	_, err = f.Matrix([]string{"JOB"})
	assert.Error(t, err, "string columns cannot be used as features")
}

func TestFrame_DropNA(t *testing.T) {
	f, err := ReadCSV(strings.NewReader(hmeqSample))
	require.NoError(t, err)

	clean, err := f.DropNA("DEBTINC")
	require.NoError(t, err)
	assert.Equal(t, 3, clean.Nrow())

	dropped, err := clean.Drop([]string{"JOB"})
	require.NoError(t, err)
	assert.Equal(t, []string{"BAD", "LOAN", "MORTDUE", "DEBTINC"}, dropped.Names())
}

func TestFromColumns(t *testing.T) {
	f, err := FromColumns(map[string][]float64{
		"y":  {0, 1, 0},
		"x1": {1, 2, 3},
	}, []string{"x1", "y"})
	require.NoError(t, err)
	assert.Equal(t, []string{"x1", "y"}, f.Names())

	_, err = FromColumns(map[string][]float64{"x1": {1, 2}, "y": {0}}, []string{"x1", "y"})
	assert.Error(t, err)

	_, err = FromColumns(map[string][]float64{"x1": {1}}, []string{"x2"})
	assert.True(t, errors.Is(err, errors.ErrUnknownColumn))
}

const hmeqCategorical = `BAD,LOAN,REASON,JOB
1,1100,HomeImp,Other
1,1300,HomeImp,Other
0,1500,DebtCon,Mgr
0,1700,,Office
1,2000,DebtCon,Other
`

func TestFrame_Dummies(t *testing.T) {
	f, err := ReadCSV(strings.NewReader(hmeqCategorical))
	require.NoError(t, err)
	assert.Equal(t, []string{"REASON", "JOB"}, f.CategoricalNames())

	_, err = f.Matrix(f.FeatureNames("BAD"))
	require.Error(t, err, "string columns are not numeric")

	enc, err := f.Dummies()
	require.NoError(t, err)
	assert.Equal(t, []string{"BAD", "LOAN", "REASON_HomeImp", "JOB_Office", "JOB_Other"}, enc.Names())
	assert.Empty(t, enc.CategoricalNames())

	home, err := enc.Column("REASON_HomeImp")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 1, 0, 0, 0}, home, "missing REASON encodes as zeros")
	other, err := enc.Column("JOB_Other")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 1, 0, 0, 1}, other)

	X, err := enc.Matrix(enc.FeatureNames("BAD"))
	require.NoError(t, err)
	r, c := X.Dims()
	assert.Equal(t, 5, r)
	assert.Equal(t, 4, c)
}

func TestFrame_DummiesErrors(t *testing.T) {
	f, err := ReadCSV(strings.NewReader(hmeqCategorical))
	require.NoError(t, err)

	_, err = f.Dummies("LOAN")
	var valErr *errors.ValueError
	assert.True(t, errors.As(err, &valErr))

	_, err = f.Dummies("CLAGE")
	assert.True(t, errors.Is(err, errors.ErrUnknownColumn))

	numeric, err := FromColumns(map[string][]float64{"x": {1, 2}}, []string{"x"})
	require.NoError(t, err)
	same, err := numeric.Dummies()
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, same.Names())
}
