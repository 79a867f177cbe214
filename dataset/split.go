package dataset

import (
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/riskml/pkg/errors"
)

// Split is the result of TrainTestSplit.
type Split struct {
	XTrain, XTest *mat.Dense
	YTrain, YTest *mat.VecDense
}

// TrainTestSplit shuffles the rows with seed and holds out testSize of
// them. With stratify the hold-out keeps the class proportions of y.
func TrainTestSplit(X mat.Matrix, y mat.Vector, testSize float64, seed int64, stratify bool) (*Split, error) {
	n, _ := X.Dims()
	if n == 0 {
		return nil, errors.WithStack(errors.ErrEmptyData)
	}
	if y.Len() != n {
		return nil, errors.NewDimensionError("TrainTestSplit", n, y.Len(), 0)
	}
	if testSize <= 0 || testSize >= 1 {
		return nil, errors.NewValidationError("test_size", "must be in (0, 1)", testSize)
	}

	rng := rand.New(rand.NewSource(seed))
	nTest := int(math.Ceil(testSize * float64(n)))
	if nTest >= n {
		return nil, errors.NewValidationError("test_size", "leaves no training samples", testSize)
	}

	var testIdx []int
	if stratify {
		byClass := map[float64][]int{}
		var classes []float64
		for i := 0; i < n; i++ {
			c := y.AtVec(i)
			if _, ok := byClass[c]; !ok {
				classes = append(classes, c)
			}
			byClass[c] = append(byClass[c], i)
		}
		sort.Float64s(classes)
		remaining := nTest
		for k, c := range classes {
			idx := byClass[c]
			rng.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
			take := int(math.Round(testSize * float64(len(idx))))
			if k == len(classes)-1 {
				take = remaining
			}
			if take > len(idx) {
				take = len(idx)
			}
			if take > remaining {
				take = remaining
			}
			testIdx = append(testIdx, idx[:take]...)
			remaining -= take
		}
	} else {
		testIdx = rng.Perm(n)[:nTest]
	}

	inTest := make([]bool, n)
	for _, i := range testIdx {
		inTest[i] = true
	}
	trainIdx := make([]int, 0, n-len(testIdx))
	for i := 0; i < n; i++ {
		if !inTest[i] {
			trainIdx = append(trainIdx, i)
		}
	}

	return &Split{
		XTrain: Rows(X, trainIdx),
		XTest:  Rows(X, testIdx),
		YTrain: VecRows(y, trainIdx),
		YTest:  VecRows(y, testIdx),
	}, nil
}

// Rows copies the given rows of X into a new matrix.
func Rows(X mat.Matrix, idx []int) *mat.Dense {
	_, p := X.Dims()
	if len(idx) == 0 || p == 0 {
		return &mat.Dense{}
	}
	out := mat.NewDense(len(idx), p, nil)
	for r, i := range idx {
		for j := 0; j < p; j++ {
			out.Set(r, j, X.At(i, j))
		}
	}
	return out
}

// VecRows copies the given elements of y into a new vector.
func VecRows(y mat.Vector, idx []int) *mat.VecDense {
	if len(idx) == 0 {
		return &mat.VecDense{}
	}
	out := mat.NewVecDense(len(idx), nil)
	for r, i := range idx {
		out.SetVec(r, y.AtVec(i))
	}
	return out
}

// Labels returns y as a slice.
func Labels(y mat.Vector) []float64 {
	out := make([]float64, y.Len())
	for i := range out {
		out[i] = y.AtVec(i)
	}
	return out
}
