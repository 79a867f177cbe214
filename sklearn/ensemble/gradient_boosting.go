package ensemble

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/riskml/core/model"
	"github.com/YuminosukeSato/riskml/gbm"
	"github.com/YuminosukeSato/riskml/pkg/errors"
)

// GradientBoostingClassifier is scikit-learn's GradientBoostingClassifier
// (log-loss, Newton leaf values) on the histogram engine.
type GradientBoostingClassifier struct {
	nEstimators     int
	learningRate    float64
	maxDepth        int
	subsample       float64
	minSamplesSplit int
	minSamplesLeaf  int
	randomState     int64

	booster *gbm.Booster
}

// BoostingOption configures a GradientBoostingClassifier.
type BoostingOption func(*GradientBoostingClassifier)

// NewGradientBoostingClassifier returns a classifier with scikit-learn
// defaults: 100 estimators, learning_rate 0.1, max_depth 3, subsample 1.
func NewGradientBoostingClassifier(opts ...BoostingOption) *GradientBoostingClassifier {
	gb := &GradientBoostingClassifier{
		nEstimators:     100,
		learningRate:    0.1,
		maxDepth:        3,
		subsample:       1.0,
		minSamplesSplit: 2,
		minSamplesLeaf:  1,
	}
	for _, opt := range opts {
		opt(gb)
	}
	return gb
}

func WithGBNEstimators(n int) BoostingOption {
	return func(gb *GradientBoostingClassifier) { gb.nEstimators = n }
}

func WithGBLearningRate(lr float64) BoostingOption {
	return func(gb *GradientBoostingClassifier) { gb.learningRate = lr }
}

func WithGBMaxDepth(d int) BoostingOption {
	return func(gb *GradientBoostingClassifier) { gb.maxDepth = d }
}

func WithGBSubsample(s float64) BoostingOption {
	return func(gb *GradientBoostingClassifier) { gb.subsample = s }
}

func WithGBRandomState(seed int64) BoostingOption {
	return func(gb *GradientBoostingClassifier) { gb.randomState = seed }
}

func (gb *GradientBoostingClassifier) engineParams() (gbm.Params, error) {
	if gb.minSamplesSplit < 2 {
		return gbm.Params{}, errors.NewValidationError("min_samples_split", "must be >= 2", gb.minSamplesSplit)
	}
	p := gbm.DefaultParams()
	p.NumIterations = gb.nEstimators
	p.LearningRate = gb.learningRate
	p.GrowPolicy = gbm.Depthwise
	p.MaxDepth = gb.maxDepth
	p.NumLeaves = 0
	p.MinDataInLeaf = gb.minSamplesLeaf
	// min_samples_split は両側の葉に必要な最小数として近似する
	if half := (gb.minSamplesSplit + 1) / 2; half > p.MinDataInLeaf {
		p.MinDataInLeaf = half
	}
	p.MinChildWeight = 0
	if gb.subsample < 1 {
		p.Bootstrap = gbm.BootstrapBernoulli
		p.Subsample = gb.subsample
	}
	p.Seed = gb.randomState
	return p, nil
}

// Fit trains the boosted ensemble.
func (gb *GradientBoostingClassifier) Fit(X, y mat.Matrix) error {
	p, err := gb.engineParams()
	if err != nil {
		return err
	}
	b := gbm.NewBooster(p)
	if err := b.Fit(X, y); err != nil {
		return err
	}
	gb.booster = b
	return nil
}

func (gb *GradientBoostingClassifier) fitted(method string) (*gbm.Booster, error) {
	if gb.booster == nil {
		return nil, errors.NewNotFittedError("GradientBoostingClassifier", method)
	}
	return gb.booster, nil
}

// Predict returns 0/1 labels.
func (gb *GradientBoostingClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	b, err := gb.fitted("Predict")
	if err != nil {
		return nil, err
	}
	return b.Predict(X)
}

// PredictProba returns the n x 2 class probabilities.
func (gb *GradientBoostingClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	b, err := gb.fitted("PredictProba")
	if err != nil {
		return nil, err
	}
	return b.PredictProba(X)
}

// FeatureImportances returns the normalized split gains.
func (gb *GradientBoostingClassifier) FeatureImportances() []float64 {
	if gb.booster == nil {
		return nil
	}
	return gb.booster.FeatureImportance()
}

// IsFitted reports whether Fit has been called.
func (gb *GradientBoostingClassifier) IsFitted() bool { return gb.booster != nil }

// GetParams returns the hyperparameters.
func (gb *GradientBoostingClassifier) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"n_estimators":      gb.nEstimators,
		"learning_rate":     gb.learningRate,
		"max_depth":         gb.maxDepth,
		"subsample":         gb.subsample,
		"min_samples_split": gb.minSamplesSplit,
		"min_samples_leaf":  gb.minSamplesLeaf,
		"random_state":      gb.randomState,
	}
}

// SetParams updates hyperparameters by sklearn name.
func (gb *GradientBoostingClassifier) SetParams(params map[string]interface{}) error {
	for key, value := range params {
		var err error
		switch key {
		case "n_estimators":
			gb.nEstimators, err = model.ParamInt(key, value)
		case "learning_rate":
			gb.learningRate, err = model.ParamFloat(key, value)
		case "max_depth":
			gb.maxDepth, err = model.ParamInt(key, value)
		case "subsample":
			gb.subsample, err = model.ParamFloat(key, value)
		case "min_samples_split":
			gb.minSamplesSplit, err = model.ParamInt(key, value)
		case "min_samples_leaf":
			gb.minSamplesLeaf, err = model.ParamInt(key, value)
		case "random_state":
			var seed int
			seed, err = model.ParamInt(key, value)
			gb.randomState = int64(seed)
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
func (gb *GradientBoostingClassifier) Clone() model.Estimator {
	c := NewGradientBoostingClassifier()
	_ = c.SetParams(gb.GetParams())
	return c
}
