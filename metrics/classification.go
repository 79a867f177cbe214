// Package metrics provides classification metrics for binary credit-risk
// models: accuracy, precision/recall/F1, confusion matrices, log loss,
// ROC curves and AUC.
package metrics

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/riskml/pkg/errors"
)

// Average selects how per-class scores are combined.
type Average string

const (
	// AverageBinary reports the score of the positive class (label 1).
	AverageBinary Average = "binary"
	// AverageMacro is the unweighted mean over classes 0 and 1.
	AverageMacro Average = "macro"
	// AverageWeighted weights each class by its support.
	AverageWeighted Average = "weighted"
)

// validatePair checks that both vectors are non-nil, non-empty and of equal length.
func validatePair(op string, yTrue, yPred *mat.VecDense) (int, error) {
	if yTrue == nil || yPred == nil {
		return 0, errors.NewValueError(op, "nil vector")
	}
	n := yTrue.Len()
	if n == 0 {
		return 0, errors.NewValueError(op, "empty vector")
	}
	if yPred.Len() != n {
		return 0, errors.NewDimensionError(op, n, yPred.Len(), 0)
	}
	return n, nil
}

func checkBinary(op string, y *mat.VecDense) error {
	for i := 0; i < y.Len(); i++ {
		if v := y.AtVec(i); v != 0 && v != 1 {
			return errors.Wrapf(errors.ErrNotBinary, "%s: label %v at index %d", op, v, i)
		}
	}
	return nil
}

// Accuracy は正解率を計算する。多クラスラベルも受け付ける
func Accuracy(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := validatePair("Accuracy", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	correct := 0
	for i := 0; i < n; i++ {
		if yTrue.AtVec(i) == yPred.AtVec(i) {
			correct++
		}
	}
	return float64(correct) / float64(n), nil
}

// ClassificationError は誤分類率 (1 - accuracy) を計算する
func ClassificationError(yTrue, yPred *mat.VecDense) (float64, error) {
	acc, err := Accuracy(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return 1 - acc, nil
}

// ConfusionMatrix は2値ラベルの混同行列を返す。行が実測、列が予測
//
//	[[TN FP]
//	 [FN TP]]
func ConfusionMatrix(yTrue, yPred *mat.VecDense) (*mat.Dense, error) {
	n, err := validatePair("ConfusionMatrix", yTrue, yPred)
	if err != nil {
		return nil, err
	}
	if err := checkBinary("ConfusionMatrix", yTrue); err != nil {
		return nil, err
	}
	if err := checkBinary("ConfusionMatrix", yPred); err != nil {
		return nil, err
	}
	cm := mat.NewDense(2, 2, nil)
	for i := 0; i < n; i++ {
		a, p := int(yTrue.AtVec(i)), int(yPred.AtVec(i))
		cm.Set(a, p, cm.At(a, p)+1)
	}
	return cm, nil
}

// classScores holds precision, recall, f1 and support for labels 0 and 1.
type classScores struct {
	precision, recall, f1 [2]float64
	support               [2]int
}

func scoresFromConfusion(cm *mat.Dense, warn bool) classScores {
	var s classScores
	for c := 0; c < 2; c++ {
		tp := cm.At(c, c)
		predicted := cm.At(0, c) + cm.At(1, c)
		actual := cm.At(c, 0) + cm.At(c, 1)
		s.support[c] = int(actual)

		if predicted > 0 {
			s.precision[c] = tp / predicted
		} else if warn {
			errors.Warn(errors.NewUndefinedMetricWarning("precision", "no predicted samples", 0))
		}
		if actual > 0 {
			s.recall[c] = tp / actual
		} else if warn {
			errors.Warn(errors.NewUndefinedMetricWarning("recall", "no true samples", 0))
		}
		if s.precision[c]+s.recall[c] > 0 {
			s.f1[c] = 2 * s.precision[c] * s.recall[c] / (s.precision[c] + s.recall[c])
		}
	}
	return s
}

func combine(values [2]float64, support [2]int, average Average) (float64, error) {
	switch average {
	case AverageBinary, "":
		return values[1], nil
	case AverageMacro:
		return (values[0] + values[1]) / 2, nil
	case AverageWeighted:
		total := support[0] + support[1]
		if total == 0 {
			return 0, nil
		}
		return (values[0]*float64(support[0]) + values[1]*float64(support[1])) / float64(total), nil
	default:
		return 0, errors.NewValidationError("average", "must be binary, macro or weighted", string(average))
	}
}

func binaryScores(yTrue, yPred *mat.VecDense) (classScores, error) {
	cm, err := ConfusionMatrix(yTrue, yPred)
	if err != nil {
		return classScores{}, err
	}
	return scoresFromConfusion(cm, true), nil
}

// Precision は適合率 TP / (TP + FP) を計算する。
// 予測陽性が0件の場合は0を返し UndefinedMetricWarning を発生させる
func Precision(yTrue, yPred *mat.VecDense, average Average) (float64, error) {
	s, err := binaryScores(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return combine(s.precision, s.support, average)
}

// Recall は再現率 TP / (TP + FN) を計算する
func Recall(yTrue, yPred *mat.VecDense, average Average) (float64, error) {
	s, err := binaryScores(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return combine(s.recall, s.support, average)
}

// F1 は適合率と再現率の調和平均を計算する
func F1(yTrue, yPred *mat.VecDense, average Average) (float64, error) {
	s, err := binaryScores(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return combine(s.f1, s.support, average)
}

// BinaryLogLoss は2値交差エントロピーを計算する。確率は [1e-15, 1-1e-15] にクリップされる
func BinaryLogLoss(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := validatePair("BinaryLogLoss", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	if err := checkBinary("BinaryLogLoss", yTrue); err != nil {
		return 0, err
	}

	var sum float64
	for i := 0; i < n; i++ {
		p := errors.ClipValue(yPred.AtVec(i), 0, 1)
		if yTrue.AtVec(i) == 1 {
			sum -= errors.StabilizeLog(p)
		} else {
			sum -= errors.StabilizeLog(1 - p)
		}
	}
	return sum / float64(n), nil
}
