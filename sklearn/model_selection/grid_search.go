package model_selection

import (
	"context"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/riskml/core/model"
	"github.com/YuminosukeSato/riskml/pkg/errors"
	"github.com/YuminosukeSato/riskml/pkg/log"
)

// ParamGrid maps a hyperparameter name to the values to try.
type ParamGrid map[string][]interface{}

// Candidates expands the grid into its cartesian product. Keys are visited
// in sorted order and the last key varies fastest, like scikit-learn's
// ParameterGrid.
func (g ParamGrid) Candidates() []map[string]interface{} {
	keys := make([]string, 0, len(g))
	for k := range g {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := []map[string]interface{}{{}}
	for _, k := range keys {
		next := make([]map[string]interface{}, 0, len(out)*len(g[k]))
		for _, base := range out {
			for _, v := range g[k] {
				c := model.CopyParams(base)
				c[k] = v
				next = append(next, c)
			}
		}
		out = next
	}
	return out
}

// Size は候補数を返す
func (g ParamGrid) Size() int {
	n := 1
	for _, vs := range g {
		n *= len(vs)
	}
	return n
}

// CVResult is the cross-validation outcome of one candidate.
type CVResult struct {
	Params    map[string]interface{}
	Scores    []float64
	MeanScore float64
	StdScore  float64
	Rank      int
}

// GridSearchCV evaluates every candidate of a ParamGrid with
// cross-validation and optionally refits the best one on the full data.
type GridSearchCV struct {
	estimator model.Estimator
	grid      ParamGrid
	cv        Splitter
	scoring   string
	refit     bool
	nJobs     int

	results       []CVResult
	bestIndex     int
	bestEstimator model.Estimator
	fitted        bool

	logger log.Logger
}

// GridSearchOption configures a GridSearchCV.
type GridSearchOption func(*GridSearchCV)

// WithCV sets the splitter. Default: 5-fold StratifiedKFold without shuffle.
func WithCV(cv Splitter) GridSearchOption {
	return func(gs *GridSearchCV) { gs.cv = cv }
}

// WithScoring sets the scorer name. Default: accuracy.
func WithScoring(name string) GridSearchOption {
	return func(gs *GridSearchCV) { gs.scoring = name }
}

// WithRefit controls whether the best candidate is refitted on all data.
func WithRefit(refit bool) GridSearchOption {
	return func(gs *GridSearchCV) { gs.refit = refit }
}

// WithNJobs bounds the number of folds evaluated concurrently.
func WithNJobs(n int) GridSearchOption {
	return func(gs *GridSearchCV) { gs.nJobs = n }
}

// WithLogger sets the logger.
func WithLogger(l log.Logger) GridSearchOption {
	return func(gs *GridSearchCV) { gs.logger = l }
}

// NewGridSearchCV creates a grid search over est.
func NewGridSearchCV(est model.Estimator, grid ParamGrid, opts ...GridSearchOption) *GridSearchCV {
	gs := &GridSearchCV{
		estimator: est,
		grid:      grid,
		cv:        NewStratifiedKFold(5, false, 0),
		scoring:   "accuracy",
		refit:     true,
		nJobs:     1,
		bestIndex: -1,
	}
	for _, opt := range opts {
		opt(gs)
	}
	if gs.logger == nil {
		gs.logger = log.GetLoggerWithName("GridSearchCV")
	}
	return gs
}

// Fit runs the search. A tie in mean score keeps the earlier candidate.
func (gs *GridSearchCV) Fit(ctx context.Context, X mat.Matrix, y mat.Vector) error {
	if gs.estimator == nil {
		return errors.NewValueError("GridSearchCV.Fit", "nil estimator")
	}
	if _, err := GetScorer(gs.scoring); err != nil {
		return err
	}
	candidates := gs.grid.Candidates()
	if len(candidates) == 0 {
		return errors.NewValidationError("param_grid", "grid has no candidates", gs.grid)
	}

	gs.results = make([]CVResult, 0, len(candidates))
	gs.bestIndex = -1
	best := math.Inf(-1)
	for i, params := range candidates {
		if err := ctx.Err(); err != nil {
			return err
		}
		est := gs.estimator.Clone()
		if err := est.SetParams(params); err != nil {
			return errors.Wrapf(err, "candidate %d", i)
		}
		scores, err := CrossValScore(ctx, est, X, y, gs.cv, gs.scoring, gs.nJobs)
		if err != nil {
			return errors.Wrapf(err, "candidate %d", i)
		}
		res := CVResult{Params: params, Scores: scores, MeanScore: Mean(scores), StdScore: Std(scores)}
		gs.results = append(gs.results, res)
		if res.MeanScore > best {
			best = res.MeanScore
			gs.bestIndex = i
		}
		gs.logger.Debug("candidate evaluated",
			log.HyperParamsKey, params,
			log.ScoringKey, gs.scoring,
			log.ValueKey, res.MeanScore,
		)
	}
	gs.rank()

	if gs.refit {
		est := gs.estimator.Clone()
		if err := est.SetParams(gs.results[gs.bestIndex].Params); err != nil {
			return err
		}
		if err := est.Fit(X, y); err != nil {
			return errors.Wrap(err, "refit best estimator")
		}
		gs.bestEstimator = est
	}
	gs.fitted = true

	gs.logger.Info("grid search finished",
		"candidates", len(candidates),
		log.HyperParamsKey, gs.results[gs.bestIndex].Params,
		log.ScoringKey, gs.scoring,
		log.ValueKey, best,
	)
	return nil
}

// rank は平均スコアの降順で順位を振る（同点は同順位）
func (gs *GridSearchCV) rank() {
	for i := range gs.results {
		r := 1
		for j := range gs.results {
			if gs.results[j].MeanScore > gs.results[i].MeanScore {
				r++
			}
		}
		gs.results[i].Rank = r
	}
}

// BestParams returns the parameters of the best candidate.
func (gs *GridSearchCV) BestParams() map[string]interface{} {
	if gs.bestIndex < 0 {
		return nil
	}
	return model.CopyParams(gs.results[gs.bestIndex].Params)
}

// BestScore returns the mean cross-validated score of the best candidate.
func (gs *GridSearchCV) BestScore() float64 {
	if gs.bestIndex < 0 {
		return math.NaN()
	}
	return gs.results[gs.bestIndex].MeanScore
}

// BestEstimator returns the refitted best model, or nil without refit.
func (gs *GridSearchCV) BestEstimator() model.Estimator { return gs.bestEstimator }

// Results returns one CVResult per candidate in grid order.
func (gs *GridSearchCV) Results() []CVResult {
	return append([]CVResult(nil), gs.results...)
}

// Predict delegates to the refitted best estimator.
func (gs *GridSearchCV) Predict(X mat.Matrix) (mat.Matrix, error) {
	if gs.bestEstimator == nil {
		return nil, errors.NewNotFittedError("GridSearchCV", "Predict")
	}
	return gs.bestEstimator.Predict(X)
}

// PredictProba delegates to the refitted best estimator.
func (gs *GridSearchCV) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if gs.bestEstimator == nil {
		return nil, errors.NewNotFittedError("GridSearchCV", "PredictProba")
	}
	return gs.bestEstimator.PredictProba(X)
}
