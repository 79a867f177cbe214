package model_selection

import (
	"context"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/riskml/core/model"
	"github.com/YuminosukeSato/riskml/dataset"
	"github.com/YuminosukeSato/riskml/pkg/errors"
	"github.com/YuminosukeSato/riskml/pkg/log"
)

// CrossValScore fits a clone of est on every training fold and scores it on
// the matching test fold. Folds run concurrently on at most nJobs
// goroutines (nJobs <= 0 means one per CPU, 1 is sequential). Scores are
// returned in fold order.
func CrossValScore(ctx context.Context, est model.Estimator, X mat.Matrix, y mat.Vector, cv Splitter, scoring string, nJobs int) ([]float64, error) {
	if est == nil || X == nil || y == nil {
		return nil, errors.NewValueError("CrossValScore", "nil input")
	}
	scorer, err := GetScorer(scoring)
	if err != nil {
		return nil, err
	}
	n, _ := X.Dims()
	if y.Len() != n {
		return nil, errors.NewDimensionError("CrossValScore", n, y.Len(), 0)
	}
	folds, err := cv.Split(X, y)
	if err != nil {
		return nil, err
	}

	if nJobs <= 0 {
		nJobs = runtime.NumCPU()
	}
	logger := log.GetLoggerWithName("CrossValScore")
	scores := make([]float64, len(folds))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(nJobs)
	for i, fold := range folds {
		i, fold := i, fold
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			m := est.Clone()
			if err := m.Fit(dataset.Rows(X, fold.Train), dataset.VecRows(y, fold.Train)); err != nil {
				return errors.Wrapf(err, "fold %d", i)
			}
			s, err := scorer(m, dataset.Rows(X, fold.Test), dataset.VecRows(y, fold.Test))
			if err != nil {
				return errors.Wrapf(err, "fold %d", i)
			}
			scores[i] = s
			logger.Debug("fold scored", log.FoldKey, i, log.ScoringKey, scoring, log.ValueKey, s)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return scores, nil
}

// Mean returns the arithmetic mean of the scores.
func Mean(scores []float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	return stat.Mean(scores, nil)
}

// Std returns the population standard deviation, like numpy's std.
func Std(scores []float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	_, v := stat.PopMeanVariance(scores, nil)
	return math.Sqrt(v)
}
