package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func makeImbalanced(n int) (*mat.Dense, *mat.VecDense) {
	X := mat.NewDense(n, 2, nil)
	y := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		X.Set(i, 0, float64(i))
		X.Set(i, 1, float64(i%7))
		if i%5 == 0 {
			y.SetVec(i, 1)
		}
	}
	return X, y
}

func TestTrainTestSplit_Sizes(t *testing.T) {
	X, y := makeImbalanced(100)

	s, err := TrainTestSplit(X, y, 0.2, 999, false)
	require.NoError(t, err)

	r, _ := s.XTest.Dims()
	assert.Equal(t, 20, r)
	assert.Equal(t, 20, s.YTest.Len())
	r, _ = s.XTrain.Dims()
	assert.Equal(t, 80, r)

	// 行と特徴量の対応が保たれていること
	for i := 0; i < s.YTrain.Len(); i++ {
		orig := int(s.XTrain.At(i, 0))
		assert.Equal(t, y.AtVec(orig), s.YTrain.AtVec(i))
	}
}

func TestTrainTestSplit_Stratified(t *testing.T) {
	X, y := makeImbalanced(100)

	s, err := TrainTestSplit(X, y, 0.2, 999, true)
	require.NoError(t, err)

	pos := 0
	for i := 0; i < s.YTest.Len(); i++ {
		if s.YTest.AtVec(i) == 1 {
			pos++
		}
	}
	assert.Equal(t, 20, s.YTest.Len())
	assert.Equal(t, 4, pos, "20%% positives should be kept in the hold-out")
}

func TestTrainTestSplit_Deterministic(t *testing.T) {
	X, y := makeImbalanced(50)
	a, err := TrainTestSplit(X, y, 0.2, 7, false)
	require.NoError(t, err)
	b, err := TrainTestSplit(X, y, 0.2, 7, false)
	require.NoError(t, err)
	assert.True(t, mat.Equal(a.XTest, b.XTest))
}

func TestTrainTestSplit_Invalid(t *testing.T) {
	X, y := makeImbalanced(10)
	_, err := TrainTestSplit(X, y, 1.5, 1, false)
	assert.Error(t, err)
	_, err = TrainTestSplit(X, mat.NewVecDense(3, nil), 0.2, 1, false)
	assert.Error(t, err)
}
