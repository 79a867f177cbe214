package metrics

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/riskml/pkg/errors"
)

// ROCCurve computes the receiver operating characteristic of a binary
// score. Thresholds are the distinct scores in decreasing order, preceded
// by +Inf so the curve starts at (0, 0). Tied scores share one point.
func ROCCurve(yTrue, yScore *mat.VecDense) (fpr, tpr, thresholds []float64, err error) {
	n, err := validatePair("ROCCurve", yTrue, yScore)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := checkBinary("ROCCurve", yTrue); err != nil {
		return nil, nil, nil, err
	}

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return yScore.AtVec(idx[a]) > yScore.AtVec(idx[b])
	})

	var nPos, nNeg float64
	for i := 0; i < n; i++ {
		if yTrue.AtVec(i) == 1 {
			nPos++
		} else {
			nNeg++
		}
	}

	fpr = []float64{0}
	tpr = []float64{0}
	thresholds = []float64{math.Inf(1)}
	var tp, fp float64
	for k := 0; k < n; k++ {
		i := idx[k]
		if yTrue.AtVec(i) == 1 {
			tp++
		} else {
			fp++
		}
		// 同点のスコアはまとめて1点にする
		if k+1 < n && yScore.AtVec(idx[k+1]) == yScore.AtVec(i) {
			continue
		}
		fpr = append(fpr, ratio(fp, nNeg))
		tpr = append(tpr, ratio(tp, nPos))
		thresholds = append(thresholds, yScore.AtVec(i))
	}
	return fpr, tpr, thresholds, nil
}

func ratio(a, b float64) float64 {
	if b == 0 {
		return math.NaN()
	}
	return a / b
}

// AUC computes the area under the ROC curve as the Mann-Whitney statistic:
// the probability that a random positive scores above a random negative,
// ties counting one half.
//
// When yTrue holds a single class the AUC is undefined; 0.5 is returned
// together with an UndefinedMetricWarning.
func AUC(yTrue, yScore *mat.VecDense) (float64, error) {
	n, err := validatePair("AUC", yTrue, yScore)
	if err != nil {
		return 0, err
	}
	if err := checkBinary("AUC", yTrue); err != nil {
		return 0, err
	}

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool {
		return yScore.AtVec(idx[a]) < yScore.AtVec(idx[b])
	})

	// 同順位は平均順位を割り当てる
	var rankSumPos, nPos float64
	for start := 0; start < n; {
		end := start + 1
		for end < n && yScore.AtVec(idx[end]) == yScore.AtVec(idx[start]) {
			end++
		}
		avgRank := float64(start+end+1) / 2 // 1-based ranks start+1 .. end
		for k := start; k < end; k++ {
			if yTrue.AtVec(idx[k]) == 1 {
				rankSumPos += avgRank
				nPos++
			}
		}
		start = end
	}

	nNeg := float64(n) - nPos
	if nPos == 0 || nNeg == 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("roc_auc", "only one class present in y_true", 0.5))
		return 0.5, nil
	}

	auc := (rankSumPos - nPos*(nPos+1)/2) / (nPos * nNeg)
	return errors.ClipValue(auc, 0, 1), nil
}

// AUCMatrix computes AUC from the first column of n x k matrices, so the
// output of Predict or a column vector can be passed directly.
func AUCMatrix(yTrue, yScore mat.Matrix) (float64, error) {
	yt, err := firstColumn("AUCMatrix", yTrue)
	if err != nil {
		return 0, err
	}
	ys, err := firstColumn("AUCMatrix", yScore)
	if err != nil {
		return 0, err
	}
	return AUC(yt, ys)
}

// PositiveColumn extracts P(y = 1) from an n x 2 PredictProba result.
// An n x 1 matrix is taken as the positive score itself.
func PositiveColumn(proba mat.Matrix) (*mat.VecDense, error) {
	if proba == nil {
		return nil, errors.NewValueError("PositiveColumn", "nil matrix")
	}
	r, c := proba.Dims()
	if r == 0 || c == 0 {
		return nil, errors.NewValueError("PositiveColumn", "empty matrix")
	}
	col := c - 1
	out := mat.NewVecDense(r, nil)
	for i := 0; i < r; i++ {
		out.SetVec(i, proba.At(i, col))
	}
	return out, nil
}

func firstColumn(op string, m mat.Matrix) (*mat.VecDense, error) {
	if m == nil {
		return nil, errors.NewValueError(op, "nil matrix")
	}
	r, c := m.Dims()
	if r == 0 || c == 0 {
		return nil, errors.NewValueError(op, "empty matrix")
	}
	out := mat.NewVecDense(r, nil)
	for i := 0; i < r; i++ {
		out.SetVec(i, m.At(i, 0))
	}
	return out, nil
}

// TrapezoidAUC integrates y over x with the trapezoidal rule. x must be
// monotone; a decreasing x yields the area with its sign flipped back.
func TrapezoidAUC(x, y []float64) (float64, error) {
	if len(x) != len(y) {
		return 0, errors.NewDimensionError("TrapezoidAUC", len(x), len(y), 0)
	}
	if len(x) < 2 {
		return 0, errors.NewValueError("TrapezoidAUC", "at least 2 points are required")
	}
	direction := 1.0
	for i := 1; i < len(x); i++ {
		if x[i] < x[i-1] {
			direction = -1
			break
		}
	}
	var area float64
	for i := 1; i < len(x); i++ {
		dx := x[i] - x[i-1]
		if dx*direction < 0 {
			return 0, errors.NewValueError("TrapezoidAUC", "x is neither increasing nor decreasing")
		}
		area += dx * (y[i] + y[i-1]) / 2
	}
	return area * direction, nil
}
