// Package tuning searches hyperparameters of the credit-risk models:
// cross-validated AUC objectives for the gradient-boosted families, their
// optimizer drivers, and the grid searches and model comparison of the
// modeling workflow.
package tuning

import (
	"context"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/riskml/core/model"
	"github.com/YuminosukeSato/riskml/gbm/catboost"
	"github.com/YuminosukeSato/riskml/gbm/lightgbm"
	"github.com/YuminosukeSato/riskml/gbm/xgboost"
	"github.com/YuminosukeSato/riskml/optimize"
	"github.com/YuminosukeSato/riskml/pkg/log"
	"github.com/YuminosukeSato/riskml/sklearn/model_selection"
)

// Space samples one configuration of a model family.
type Space func(t optimize.Trial) (map[string]interface{}, error)

// family ties a search space to its estimator and cross-validation.
type family struct {
	name     string
	space    Space
	newModel func(params map[string]interface{}) (model.Estimator, error)
	cv       func() model_selection.Splitter
}

var (
	xgboostFamily = family{
		name:  "XGBoost",
		space: XGBoostSpace,
		newModel: func(p map[string]interface{}) (model.Estimator, error) {
			return xgboost.NewXGBClassifier(xgboost.WithParams(p))
		},
		cv: func() model_selection.Splitter { return model_selection.NewStratifiedKFold(10, true, 999) },
	}
	lightgbmFamily = family{
		name:  "LightGBM",
		space: LightGBMSpace,
		newModel: func(p map[string]interface{}) (model.Estimator, error) {
			return lightgbm.NewLGBMClassifier(lightgbm.WithParams(p))
		},
		cv: func() model_selection.Splitter { return model_selection.NewStratifiedKFold(5, true, 99) },
	}
	catboostFamily = family{
		name:  "CatBoost",
		space: CatBoostSpace,
		newModel: func(p map[string]interface{}) (model.Estimator, error) {
			return catboost.NewCatBoostClassifier(catboost.WithParams(p))
		},
		cv: func() model_selection.Splitter { return model_selection.NewStratifiedKFold(5, true, 999) },
	}
)

// objective は1トライアルの構成を交差検証し、平均AUCを返す
func (f family) objective(ctx context.Context, X mat.Matrix, y mat.Vector, cvJobs int, logger log.Logger) optimize.Objective {
	return func(t optimize.Trial) (float64, error) {
		params, err := f.space(t)
		if err != nil {
			return 0, err
		}
		est, err := f.newModel(params)
		if err != nil {
			return 0, err
		}
		scores, err := model_selection.CrossValScore(ctx, est, X, y, f.cv(), "roc_auc", cvJobs)
		if err != nil {
			return 0, err
		}
		auc := model_selection.Mean(scores)
		logger.Debug("objective evaluated",
			log.ModelNameKey, f.name,
			log.TrialKey, t.Number(),
			log.AUCKey, auc,
		)
		return auc, nil
	}
}

// XGBoostObjective returns the mean ROC AUC over a shuffled 10-fold
// StratifiedKFold (seed 999) of an XGBClassifier sampled from XGBoostSpace.
func XGBoostObjective(X mat.Matrix, y mat.Vector, opts ...Option) optimize.Objective {
	cfg := newConfig(opts)
	return xgboostFamily.objective(context.Background(), X, y, cfg.cvJobs, cfg.logger)
}

// LightGBMObjective returns the mean ROC AUC over a shuffled 5-fold
// StratifiedKFold (seed 99) of an LGBMClassifier sampled from LightGBMSpace.
func LightGBMObjective(X mat.Matrix, y mat.Vector, opts ...Option) optimize.Objective {
	cfg := newConfig(opts)
	return lightgbmFamily.objective(context.Background(), X, y, cfg.cvJobs, cfg.logger)
}

// CatBoostObjective returns the mean ROC AUC over a shuffled 5-fold
// StratifiedKFold (seed 999) of a CatBoostClassifier sampled from
// CatBoostSpace.
func CatBoostObjective(X mat.Matrix, y mat.Vector, opts ...Option) optimize.Objective {
	cfg := newConfig(opts)
	return catboostFamily.objective(context.Background(), X, y, cfg.cvJobs, cfg.logger)
}
