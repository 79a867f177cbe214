// Package ensemble provides tree ensembles with scikit-learn semantics.
package ensemble

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/riskml/core/model"
	"github.com/YuminosukeSato/riskml/core/parallel"
	"github.com/YuminosukeSato/riskml/pkg/errors"
	"github.com/YuminosukeSato/riskml/pkg/log"
	"github.com/YuminosukeSato/riskml/sklearn/tree"
)

// RandomForestClassifier averages the class probabilities of bagged
// decision trees, each split drawing max_features candidate features.
type RandomForestClassifier struct {
	state *model.StateManager

	nEstimators     int
	criterion       string
	maxDepth        int
	minSamplesSplit int
	minSamplesLeaf  int
	maxFeatures     string // "sqrt", "log2", "all"
	bootstrap       bool
	randomState     int64
	nJobs           int

	trees  []*tree.DecisionTreeClassifier
	logger log.Logger
}

// ForestOption configures a RandomForestClassifier.
type ForestOption func(*RandomForestClassifier)

// NewRandomForestClassifier returns a forest with scikit-learn defaults.
func NewRandomForestClassifier(opts ...ForestOption) *RandomForestClassifier {
	rf := &RandomForestClassifier{
		state:           model.NewStateManager(),
		nEstimators:     100,
		criterion:       "gini",
		minSamplesSplit: 2,
		minSamplesLeaf:  1,
		maxFeatures:     "sqrt",
		bootstrap:       true,
		randomState:     -1,
		nJobs:           1,
	}
	for _, opt := range opts {
		opt(rf)
	}
	rf.logger = log.GetLoggerWithName("RandomForestClassifier")
	return rf
}

func WithNEstimators(n int) ForestOption {
	return func(rf *RandomForestClassifier) { rf.nEstimators = n }
}

func WithForestMaxDepth(d int) ForestOption {
	return func(rf *RandomForestClassifier) { rf.maxDepth = d }
}

func WithForestMinSamplesSplit(n int) ForestOption {
	return func(rf *RandomForestClassifier) { rf.minSamplesSplit = n }
}

func WithForestMinSamplesLeaf(n int) ForestOption {
	return func(rf *RandomForestClassifier) { rf.minSamplesLeaf = n }
}

// WithMaxFeatures sets "sqrt", "log2" or "all".
func WithMaxFeatures(s string) ForestOption {
	return func(rf *RandomForestClassifier) { rf.maxFeatures = s }
}

func WithBootstrap(b bool) ForestOption {
	return func(rf *RandomForestClassifier) { rf.bootstrap = b }
}

func WithForestRandomState(seed int64) ForestOption {
	return func(rf *RandomForestClassifier) { rf.randomState = seed }
}

// WithNJobs sets the number of trees built concurrently; <= 0 uses all cores.
func WithNJobs(n int) ForestOption {
	return func(rf *RandomForestClassifier) { rf.nJobs = n }
}

func (rf *RandomForestClassifier) featuresPerSplit(p int) (int, error) {
	var k int
	switch rf.maxFeatures {
	case "sqrt":
		k = int(math.Sqrt(float64(p)))
	case "log2":
		k = int(math.Log2(float64(p)))
	case "all", "None", "":
		k = p
	default:
		return 0, errors.NewValidationError("max_features", "must be sqrt, log2 or all", rf.maxFeatures)
	}
	if k < 1 {
		k = 1
	}
	return k, nil
}

// Fit grows n_estimators trees in parallel.
func (rf *RandomForestClassifier) Fit(X, y mat.Matrix) error {
	if rf.nEstimators < 1 {
		return errors.NewValidationError("n_estimators", "must be >= 1", rf.nEstimators)
	}
	if _, err := model.CheckXY("RandomForestClassifier.Fit", X, y); err != nil {
		return err
	}
	n, p := X.Dims()
	k, err := rf.featuresPerSplit(p)
	if err != nil {
		return err
	}

	// 木ごとのシードは逐次に決めるので並列度に依らず再現できる
	seed := rf.randomState
	if seed < 0 {
		seed = rand.Int63()
	}
	master := rand.New(rand.NewSource(seed))
	seeds := make([]int64, rf.nEstimators)
	for i := range seeds {
		seeds[i] = master.Int63()
	}

	Xd := mat.DenseCopyOf(X)
	trees := make([]*tree.DecisionTreeClassifier, rf.nEstimators)
	errs := make([]error, rf.nEstimators)
	parallel.ParallelizeN(rf.nEstimators, rf.nJobs, func(start, end int) {
		for t := start; t < end; t++ {
			rng := rand.New(rand.NewSource(seeds[t]))
			idx := make([]int, n)
			for i := range idx {
				if rf.bootstrap {
					idx[i] = rng.Intn(n)
				} else {
					idx[i] = i
				}
			}
			dt := tree.NewDecisionTreeClassifier(
				tree.WithCriterion(rf.criterion),
				tree.WithMaxDepth(rf.maxDepth),
				tree.WithMinSamplesSplit(rf.minSamplesSplit),
				tree.WithMinSamplesLeaf(rf.minSamplesLeaf),
				tree.WithMaxFeatures(k),
				tree.WithRandomState(rng.Int63()),
			)
			errs[t] = dt.FitIndices(Xd, y, idx)
			trees[t] = dt
		}
	})
	for _, err := range errs {
		if err != nil {
			return err
		}
	}

	rf.trees = trees
	rf.state.SetDimensions(p, n)
	rf.state.SetFitted()
	rf.logger.Debug("forest fitted",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, n,
		log.FeaturesKey, p,
		"n_estimators", rf.nEstimators,
	)
	return nil
}

// PositiveProba returns the mean tree probability of class 1.
func (rf *RandomForestClassifier) PositiveProba(X mat.Matrix) ([]float64, error) {
	if err := rf.state.RequireFitted("RandomForestClassifier", "PredictProba"); err != nil {
		return nil, err
	}
	n, p := X.Dims()
	if err := rf.state.CheckFeatures("RandomForestClassifier.PredictProba", p); err != nil {
		return nil, err
	}
	out := make([]float64, n)
	for _, dt := range rf.trees {
		pt, err := dt.PositiveProba(X)
		if err != nil {
			return nil, err
		}
		for i, v := range pt {
			out[i] += v
		}
	}
	for i := range out {
		out[i] /= float64(len(rf.trees))
	}
	return out, nil
}

// PredictProba returns the n x 2 averaged probabilities.
func (rf *RandomForestClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	p, err := rf.PositiveProba(X)
	if err != nil {
		return nil, err
	}
	return model.ProbaFromPositive(p), nil
}

// Predict returns the class with the highest averaged probability.
func (rf *RandomForestClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	p, err := rf.PositiveProba(X)
	if err != nil {
		return nil, err
	}
	return model.LabelsFromPositive(p), nil
}

// FeatureImportances averages the normalized tree importances.
func (rf *RandomForestClassifier) FeatureImportances() []float64 {
	if len(rf.trees) == 0 {
		return nil
	}
	p, _ := rf.state.GetDimensions()
	out := make([]float64, p)
	for _, dt := range rf.trees {
		for j, v := range dt.GetFeatureImportances() {
			out[j] += v
		}
	}
	var total float64
	for _, v := range out {
		total += v
	}
	if total > 0 {
		for j := range out {
			out[j] /= total
		}
	}
	return out
}

// Estimators returns the fitted trees.
func (rf *RandomForestClassifier) Estimators() []*tree.DecisionTreeClassifier { return rf.trees }

// IsFitted reports whether Fit has been called.
func (rf *RandomForestClassifier) IsFitted() bool { return rf.state.IsFitted() }

// GetParams returns the hyperparameters.
func (rf *RandomForestClassifier) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"n_estimators":      rf.nEstimators,
		"criterion":         rf.criterion,
		"max_depth":         rf.maxDepth,
		"min_samples_split": rf.minSamplesSplit,
		"min_samples_leaf":  rf.minSamplesLeaf,
		"max_features":      rf.maxFeatures,
		"bootstrap":         rf.bootstrap,
		"random_state":      rf.randomState,
		"n_jobs":            rf.nJobs,
	}
}

// SetParams updates hyperparameters by sklearn name.
func (rf *RandomForestClassifier) SetParams(params map[string]interface{}) error {
	for key, value := range params {
		var err error
		switch key {
		case "n_estimators":
			rf.nEstimators, err = model.ParamInt(key, value)
		case "criterion":
			rf.criterion, err = model.ParamString(key, value)
		case "max_depth":
			rf.maxDepth, err = model.ParamInt(key, value)
		case "min_samples_split":
			rf.minSamplesSplit, err = model.ParamInt(key, value)
		case "min_samples_leaf":
			rf.minSamplesLeaf, err = model.ParamInt(key, value)
		case "max_features":
			rf.maxFeatures, err = model.ParamString(key, value)
		case "bootstrap":
			rf.bootstrap, err = model.ParamBool(key, value)
		case "random_state":
			var seed int
			seed, err = model.ParamInt(key, value)
			rf.randomState = int64(seed)
		case "n_jobs":
			rf.nJobs, err = model.ParamInt(key, value)
		default:
			return errors.NewValidationError(key, "unknown parameter", value)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Clone returns an unfitted copy with the same hyperparameters.
func (rf *RandomForestClassifier) Clone() model.Estimator {
	c := NewRandomForestClassifier()
	_ = c.SetParams(rf.GetParams())
	return c
}
