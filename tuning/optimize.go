package tuning

import (
	"context"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/riskml/core/model"
	"github.com/YuminosukeSato/riskml/optimize"
	"github.com/YuminosukeSato/riskml/pkg/errors"
	"github.com/YuminosukeSato/riskml/pkg/log"
)

// TuningResult is the refitted best model of a study.
type TuningResult struct {
	Model      model.Estimator
	BestParams map[string]interface{}
	BestValue  float64
	Study      *optimize.Study
}

// OptimizeXGBoost maximizes XGBoostObjective and refits the best model.
func OptimizeXGBoost(ctx context.Context, X mat.Matrix, y mat.Vector, opts ...Option) (*TuningResult, error) {
	return run(ctx, xgboostFamily, X, y, opts)
}

// OptimizeLightGBM maximizes LightGBMObjective and refits the best model.
func OptimizeLightGBM(ctx context.Context, X mat.Matrix, y mat.Vector, opts ...Option) (*TuningResult, error) {
	return run(ctx, lightgbmFamily, X, y, opts)
}

// OptimizeCatBoost maximizes CatBoostObjective and refits the best model.
func OptimizeCatBoost(ctx context.Context, X mat.Matrix, y mat.Vector, opts ...Option) (*TuningResult, error) {
	return run(ctx, catboostFamily, X, y, opts)
}

func run(ctx context.Context, f family, X mat.Matrix, y mat.Vector, opts []Option) (*TuningResult, error) {
	cfg := newConfig(opts)
	logger := cfg.logger.With(log.ModelNameKey, f.name)

	studyOpts := []optimize.StudyOption{
		optimize.WithDirection(optimize.Maximize),
		optimize.WithSeed(cfg.seed),
		optimize.WithStudyName(f.name),
		optimize.WithLogger(logger),
	}
	if cfg.sampler != nil {
		studyOpts = append(studyOpts, optimize.WithSampler(cfg.sampler))
	}
	study := optimize.NewStudy(studyOpts...)
	if err := study.Optimize(ctx, f.objective(ctx, X, y, cfg.cvJobs, logger), cfg.trials); err != nil {
		return nil, err
	}

	best, err := study.BestTrial()
	if err != nil {
		return nil, errors.Wrapf(err, "%s study", f.name)
	}
	logger.Info("best hyperparameters",
		log.HyperParamsKey, best.Params,
		log.AUCKey, best.Value,
		log.TrialKey, best.Number,
	)

	m, err := refit(f, best.Params, X, y)
	if err != nil {
		return nil, err
	}
	return &TuningResult{Model: m, BestParams: best.Params, BestValue: best.Value, Study: study}, nil
}

// refit は最良トライアルのパラメータを空間に再生して固定部分も含めた
// 構成を復元し、random_state 999 で全学習データに当てはめる
func refit(f family, bestParams map[string]interface{}, X mat.Matrix, y mat.Vector) (model.Estimator, error) {
	params, err := f.space(optimize.NewFixedTrial(bestParams))
	if err != nil {
		return nil, errors.Wrapf(err, "rebuild %s configuration", f.name)
	}
	params["random_state"] = RefitSeed
	m, err := f.newModel(params)
	if err != nil {
		return nil, err
	}
	if err := m.Fit(X, y); err != nil {
		return nil, errors.Wrapf(err, "refit %s", f.name)
	}
	return m, nil
}
