// Package riskml provides the modeling toolkit of a credit-risk workflow for
// Go: statistical variable selection, binary classifiers with a
// scikit-learn-like API, gradient-boosted trees in the XGBoost, LightGBM and
// CatBoost flavors, hyperparameter search, and the metrics, charts and
// spreadsheets that report on them.
//
// # Installation
//
//	go get github.com/YuminosukeSato/riskml
//
// # Quick Start
//
// Stepwise selection followed by a logistic summary:
//
//	package main
//
//	import (
//	    "fmt"
//	    "log"
//	    "os"
//
//	    "github.com/YuminosukeSato/riskml/dataset"
//	    "github.com/YuminosukeSato/riskml/selection"
//	)
//
//	func main() {
//	    f, err := os.Open("hmeq.csv")
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    defer f.Close()
//
//	    frame, err := dataset.ReadCSV(f)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    frame, _ = frame.DropNA()
//	    frame, _ = frame.Dummies() // REASON, JOB -> 0/1 columns
//
//	    res, err := selection.StepwiseSelection(frame, "BAD")
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    summary, err := selection.LogisticSummary(frame, res.Selected, "BAD")
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println(summary)
//	}
//
// # Packages
//
// The library is organized into several packages:
//
//   - dataset: gota-backed frames, CSV loading and train/test splits
//   - preprocessing: StandardScaler and frame normalization
//   - statsmodels/discrete: maximum-likelihood Logit with inference
//   - selection: stepwise selection and the logistic summary table
//   - sklearn/linear_model, sklearn/tree, sklearn/ensemble: classifiers
//   - sklearn/cluster: KMeans and the elbow curve
//   - sklearn/model_selection: k-fold splitters, cross_val_score, GridSearchCV
//   - gbm: the shared histogram boosting engine, with xgboost, lightgbm
//     and catboost parameter facades
//   - optimize: studies, trials and the TPE sampler
//   - tuning: search spaces, objectives, grid searches and model comparison
//   - metrics: classification scores, ROC curve and AUC
//   - plot, report: PNG/SVG/PDF charts and xlsx workbooks
//   - core/model, core/parallel: estimator interfaces and parallel helpers
//
// # Hyperparameter Search
//
//	res, err := tuning.OptimizeLightGBM(ctx, X, y, tuning.WithTrials(50))
//	if err != nil {
//	    return err
//	}
//	proba, err := res.Model.PredictProba(XTest)
//
// # Errors and Logging
//
// Errors are built with cockroachdb/errors and carry stack traces; typed
// errors (ValidationError, DimensionError, NotFittedError, ...) are matched
// with errors.As. Components log through a zerolog provider in pkg/log, and
// warnings such as convergence failures are routed to it.
//
// # License
//
// riskml is released under the MIT License.
package riskml
