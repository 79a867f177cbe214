package model

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/riskml/pkg/errors"
)

// CheckXY validates a design matrix and an n x 1 label matrix and returns
// the labels, which must be 0 or 1.
func CheckXY(op string, X, y mat.Matrix) ([]float64, error) {
	if X == nil || y == nil {
		return nil, errors.NewValueError(op, "nil input")
	}
	n, p := X.Dims()
	if n == 0 || p == 0 {
		return nil, errors.NewModelError(op, "empty data", errors.ErrEmptyData)
	}
	yr, yc := y.Dims()
	if yr != n {
		return nil, errors.NewDimensionError(op, n, yr, 0)
	}
	if yc != 1 {
		return nil, errors.NewDimensionError(op, 1, yc, 1)
	}
	labels := make([]float64, n)
	for i := 0; i < n; i++ {
		v := y.At(i, 0)
		if v != 0 && v != 1 {
			return nil, errors.Wrapf(errors.ErrNotBinary, "%s: label %v at row %d", op, v, i)
		}
		labels[i] = v
	}
	return labels, nil
}

// BalancedWeights returns n / (2 * n_c) for every sample of class c, the
// class_weight="balanced" heuristic.
func BalancedWeights(labels []float64) []float64 {
	var pos float64
	for _, v := range labels {
		pos += v
	}
	n := float64(len(labels))
	w := [2]float64{1, 1}
	if neg := n - pos; neg > 0 {
		w[0] = n / (2 * neg)
	}
	if pos > 0 {
		w[1] = n / (2 * pos)
	}
	out := make([]float64, len(labels))
	for i, v := range labels {
		out[i] = w[int(v)]
	}
	return out
}

// ProbaFromPositive builds the n x 2 PredictProba matrix from P(y = 1).
func ProbaFromPositive(pos []float64) *mat.Dense {
	out := mat.NewDense(len(pos), 2, nil)
	for i, p := range pos {
		out.Set(i, 0, 1-p)
		out.Set(i, 1, p)
	}
	return out
}

// LabelsFromPositive thresholds P(y = 1) at 0.5 into an n x 1 matrix.
func LabelsFromPositive(pos []float64) *mat.Dense {
	out := mat.NewDense(len(pos), 1, nil)
	for i, p := range pos {
		if p > 0.5 {
			out.Set(i, 0, 1)
		}
	}
	return out
}
