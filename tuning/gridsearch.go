package tuning

import (
	"context"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/riskml/core/model"
	"github.com/YuminosukeSato/riskml/dataset"
	"github.com/YuminosukeSato/riskml/metrics"
	"github.com/YuminosukeSato/riskml/pkg/errors"
	"github.com/YuminosukeSato/riskml/pkg/log"
	"github.com/YuminosukeSato/riskml/sklearn/ensemble"
	"github.com/YuminosukeSato/riskml/sklearn/linear_model"
	"github.com/YuminosukeSato/riskml/sklearn/model_selection"
)

// GridSearchReport evaluates the best grid-search model on the hold-out set.
type GridSearchReport struct {
	Name           string
	BestModel      model.Estimator
	BestParams     map[string]interface{}
	BestCVScore    float64
	Report         *metrics.Report
	Accuracy       float64
	PrecisionMacro float64
	RecallMacro    float64
	F1Macro        float64
	Confusion      *mat.Dense
}

// DefaultLogisticGrid is the penalty x C grid of the logistic search.
func DefaultLogisticGrid() model_selection.ParamGrid {
	return model_selection.ParamGrid{
		"penalty": {"l1", "l2", "elasticnet"},
		"C":       {0.05, 0.5, 1.0},
		"solver":  {"saga"},
	}
}

// DefaultForestGrid is the 162-candidate random forest grid.
func DefaultForestGrid() model_selection.ParamGrid {
	return model_selection.ParamGrid{
		"n_estimators":      {300, 400, 500},
		"max_depth":         {20, 30, 40},
		"min_samples_split": {2, 5, 10},
		"min_samples_leaf":  {2, 3, 5},
		"bootstrap":         {true, false},
	}
}

// LogisticRegressionGridSearch tunes a LogisticRegression(max_iter=1000)
// by k-fold grid search on F1 over a stratified 80/20 split (seed 999),
// and reports the best model on the test part.
func LogisticRegressionGridSearch(ctx context.Context, frame *dataset.Frame, vars []string, target string, opts ...Option) (*GridSearchReport, error) {
	cfg := newConfig(opts)
	grid := cfg.grid
	if grid == nil {
		grid = DefaultLogisticGrid()
	}
	est := linear_model.NewLogisticRegression(linear_model.WithLRMaxIter(1000))
	return gridSearch(ctx, "Logistic regression", est, grid, "f1", frame, vars, target, cfg)
}

// RandomForestGridSearch tunes a RandomForestClassifier(random_state=999)
// by k-fold grid search on ROC AUC over a stratified 80/20 split.
func RandomForestGridSearch(ctx context.Context, frame *dataset.Frame, vars []string, target string, opts ...Option) (*GridSearchReport, error) {
	cfg := newConfig(opts)
	grid := cfg.grid
	if grid == nil {
		grid = DefaultForestGrid()
	}
	est := ensemble.NewRandomForestClassifier(ensemble.WithForestRandomState(RefitSeed))
	return gridSearch(ctx, "Random forest", est, grid, "roc_auc", frame, vars, target, cfg)
}

func gridSearch(ctx context.Context, name string, est model.Estimator, grid model_selection.ParamGrid, scoring string,
	frame *dataset.Frame, vars []string, target string, cfg *config) (*GridSearchReport, error) {
	X, err := frame.Matrix(vars)
	if err != nil {
		return nil, err
	}
	y, err := frame.Target(target)
	if err != nil {
		return nil, err
	}
	split, err := dataset.TrainTestSplit(X, y, TestSize, RefitSeed, true)
	if err != nil {
		return nil, err
	}

	gs := model_selection.NewGridSearchCV(est, grid,
		model_selection.WithCV(model_selection.NewStratifiedKFold(cfg.kFolds, false, 0)),
		model_selection.WithScoring(scoring),
		model_selection.WithNJobs(cfg.cvJobs),
		model_selection.WithLogger(cfg.logger),
	)
	if err := gs.Fit(ctx, split.XTrain, split.YTrain); err != nil {
		return nil, errors.Wrapf(err, "%s grid search", name)
	}
	cfg.logger.Info("best hyperparameters",
		log.ModelNameKey, name,
		log.HyperParamsKey, gs.BestParams(),
		log.ScoringKey, scoring,
		log.ValueKey, gs.BestScore(),
	)

	best := gs.BestEstimator()
	out, err := best.Predict(split.XTest)
	if err != nil {
		return nil, err
	}
	pred := column(out)

	r := &GridSearchReport{
		Name:        name,
		BestModel:   best,
		BestParams:  gs.BestParams(),
		BestCVScore: gs.BestScore(),
	}
	if r.Report, err = metrics.ClassificationReport(split.YTest, pred); err != nil {
		return nil, err
	}
	if r.Confusion, err = metrics.ConfusionMatrix(split.YTest, pred); err != nil {
		return nil, err
	}
	if r.Accuracy, err = metrics.Accuracy(split.YTest, pred); err != nil {
		return nil, err
	}
	if r.PrecisionMacro, err = metrics.Precision(split.YTest, pred, metrics.AverageMacro); err != nil {
		return nil, err
	}
	if r.RecallMacro, err = metrics.Recall(split.YTest, pred, metrics.AverageMacro); err != nil {
		return nil, err
	}
	if r.F1Macro, err = metrics.F1(split.YTest, pred, metrics.AverageMacro); err != nil {
		return nil, err
	}
	return r, nil
}

func column(m mat.Matrix) *mat.VecDense {
	n, _ := m.Dims()
	v := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		v.SetVec(i, m.At(i, 0))
	}
	return v
}

// String renders the best parameters, the classification report and the
// macro scores.
func (r *GridSearchReport) String() string {
	s := fmt.Sprintf("Best hyperparameters: %v\n\nClassification report on the test set:\n%s\n", r.BestParams, r.Report)
	s += fmt.Sprintf("accuracy score : %v\nprecision score : %v\nrecall score : %v\nf1 score : %v\n",
		r.Accuracy, r.PrecisionMacro, r.RecallMacro, r.F1Macro)
	return s
}

// SheetName implements report.Sheet.
func (r *GridSearchReport) SheetName() string {
	name := r.Name + " grid search"
	if len(name) > 31 {
		name = name[:31]
	}
	return name
}

// Header implements report.Sheet.
func (r *GridSearchReport) Header() []string { return []string{"Item", "Value"} }

// Values implements report.Sheet: best parameters in sorted order, then
// the hold-out scores and the confusion matrix cells.
func (r *GridSearchReport) Values() [][]interface{} {
	keys := make([]string, 0, len(r.BestParams))
	for k := range r.BestParams {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var rows [][]interface{}
	for _, k := range keys {
		rows = append(rows, []interface{}{"param " + k, fmt.Sprint(r.BestParams[k])})
	}
	rows = append(rows,
		[]interface{}{"cv score", r.BestCVScore},
		[]interface{}{"accuracy", r.Accuracy},
		[]interface{}{"precision (macro)", r.PrecisionMacro},
		[]interface{}{"recall (macro)", r.RecallMacro},
		[]interface{}{"f1 (macro)", r.F1Macro},
	)
	if r.Confusion != nil {
		for i := 0; i < 2; i++ {
			for j := 0; j < 2; j++ {
				rows = append(rows, []interface{}{fmt.Sprintf("confusion actual %d predicted %d", i, j), r.Confusion.At(i, j)})
			}
		}
	}
	return rows
}
