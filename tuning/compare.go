package tuning

import (
	"context"

	"github.com/YuminosukeSato/riskml/core/model"
	"github.com/YuminosukeSato/riskml/dataset"
	"github.com/YuminosukeSato/riskml/gbm/xgboost"
	"github.com/YuminosukeSato/riskml/metrics"
	"github.com/YuminosukeSato/riskml/pkg/errors"
	"github.com/YuminosukeSato/riskml/pkg/log"
	"github.com/YuminosukeSato/riskml/report"
	"github.com/YuminosukeSato/riskml/sklearn/ensemble"
	"github.com/YuminosukeSato/riskml/sklearn/linear_model"
	"github.com/YuminosukeSato/riskml/sklearn/tree"
)

type candidate struct {
	name string
	est  func() (model.Classifier, error)
}

func comparisonModels() []candidate {
	return []candidate{
		{"Logistic Regression", func() (model.Classifier, error) {
			return linear_model.NewLogisticRegression(linear_model.WithLRMaxIter(1000)), nil
		}},
		{"Decision Tree", func() (model.Classifier, error) {
			return tree.NewDecisionTreeClassifier(tree.WithRandomState(RefitSeed)), nil
		}},
		{"Random Forest", func() (model.Classifier, error) {
			return ensemble.NewRandomForestClassifier(ensemble.WithForestRandomState(RefitSeed)), nil
		}},
		{"Gradient Boosting", func() (model.Classifier, error) {
			return ensemble.NewGradientBoostingClassifier(ensemble.WithGBRandomState(RefitSeed)), nil
		}},
		{"XGBoost", func() (model.Classifier, error) {
			return xgboost.NewXGBClassifier(xgboost.WithEvalMetric("logloss"))
		}},
	}
}

// CompareModels fits the five default classifiers on a plain 80/20 split
// (seed 999) of the frame and tabulates accuracy, precision, recall and F1
// of the positive class on the test part.
func CompareModels(ctx context.Context, frame *dataset.Frame, vars []string, target string, opts ...Option) (*report.ComparisonTable, error) {
	cfg := newConfig(opts)
	X, err := frame.Matrix(vars)
	if err != nil {
		return nil, err
	}
	y, err := frame.Target(target)
	if err != nil {
		return nil, err
	}
	split, err := dataset.TrainTestSplit(X, y, TestSize, RefitSeed, false)
	if err != nil {
		return nil, err
	}

	table := &report.ComparisonTable{}
	for _, c := range comparisonModels() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		est, err := c.est()
		if err != nil {
			return nil, err
		}
		if err := est.Fit(split.XTrain, split.YTrain); err != nil {
			return nil, errors.Wrapf(err, "fit %s", c.name)
		}
		out, err := est.Predict(split.XTest)
		if err != nil {
			return nil, err
		}
		pred := column(out)

		row := report.ComparisonRow{Model: c.name}
		if row.Accuracy, err = metrics.Accuracy(split.YTest, pred); err != nil {
			return nil, err
		}
		if row.Precision, err = metrics.Precision(split.YTest, pred, metrics.AverageBinary); err != nil {
			return nil, err
		}
		if row.Recall, err = metrics.Recall(split.YTest, pred, metrics.AverageBinary); err != nil {
			return nil, err
		}
		if row.F1, err = metrics.F1(split.YTest, pred, metrics.AverageBinary); err != nil {
			return nil, err
		}
		table.Add(row)
		cfg.logger.Info("model evaluated",
			log.ModelNameKey, c.name,
			log.AccuracyKey, row.Accuracy,
			log.F1Key, row.F1,
		)
	}
	return table, nil
}
