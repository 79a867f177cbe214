package model_selection

import (
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/riskml/core/model"
	"github.com/YuminosukeSato/riskml/metrics"
	"github.com/YuminosukeSato/riskml/pkg/errors"
)

// Scorer evaluates a fitted classifier on held-out data. Larger is better.
type Scorer func(est model.Classifier, X mat.Matrix, y *mat.VecDense) (float64, error)

var scorers = map[string]Scorer{
	"roc_auc": func(est model.Classifier, X mat.Matrix, y *mat.VecDense) (float64, error) {
		pos, err := positiveScores(est, X)
		if err != nil {
			return 0, err
		}
		return metrics.AUC(y, pos)
	},
	"neg_log_loss": func(est model.Classifier, X mat.Matrix, y *mat.VecDense) (float64, error) {
		pos, err := positiveScores(est, X)
		if err != nil {
			return 0, err
		}
		loss, err := metrics.BinaryLogLoss(y, pos)
		return -loss, err
	},
	"accuracy":  labelScorer(metrics.Accuracy),
	"f1":        labelScorer(averaged(metrics.F1)),
	"precision": labelScorer(averaged(metrics.Precision)),
	"recall":    labelScorer(averaged(metrics.Recall)),
}

// GetScorer looks up a scorer by its scikit-learn name.
func GetScorer(name string) (Scorer, error) {
	s, ok := scorers[name]
	if !ok {
		return nil, errors.NewValidationError("scoring", "unknown scorer", name)
	}
	return s, nil
}

// ScorerNames returns the registered scorer names in sorted order.
func ScorerNames() []string {
	names := make([]string, 0, len(scorers))
	for n := range scorers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func positiveScores(est model.Classifier, X mat.Matrix) (*mat.VecDense, error) {
	proba, err := est.PredictProba(X)
	if err != nil {
		return nil, err
	}
	return metrics.PositiveColumn(proba)
}

func averaged(f func(yTrue, yPred *mat.VecDense, avg metrics.Average) (float64, error)) func(yTrue, yPred *mat.VecDense) (float64, error) {
	return func(yTrue, yPred *mat.VecDense) (float64, error) {
		return f(yTrue, yPred, metrics.AverageBinary)
	}
}

func labelScorer(f func(yTrue, yPred *mat.VecDense) (float64, error)) Scorer {
	return func(est model.Classifier, X mat.Matrix, y *mat.VecDense) (float64, error) {
		pred, err := est.Predict(X)
		if err != nil {
			return 0, err
		}
		n, _ := pred.Dims()
		labels := mat.NewVecDense(n, nil)
		for i := 0; i < n; i++ {
			labels.SetVec(i, pred.At(i, 0))
		}
		return f(y, labels)
	}
}
