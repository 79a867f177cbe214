// Package lightgbm exposes the gbm engine under LightGBM's parameter names.
package lightgbm

import (
	"github.com/YuminosukeSato/riskml/core/model"
	"github.com/YuminosukeSato/riskml/gbm"
	"github.com/YuminosukeSato/riskml/pkg/errors"
)

var paramDefs = map[string]gbm.ParamDef{
	"objective":         {Kind: gbm.StringParam, Default: "binary"},
	"boosting":          {Kind: gbm.StringParam, Default: "gbdt"},
	"metric":            {Kind: gbm.StringParam, Default: "binary_logloss"},
	"n_estimators":      {Kind: gbm.IntParam, Default: 100},
	"num_leaves":        {Kind: gbm.IntParam, Default: 31},
	"max_depth":         {Kind: gbm.IntParam, Default: -1},
	"learning_rate":     {Kind: gbm.FloatParam, Default: 0.1},
	"min_child_samples": {Kind: gbm.IntParam, Default: 20},
	"min_child_weight":  {Kind: gbm.FloatParam, Default: 1e-3},
	"min_split_gain":    {Kind: gbm.FloatParam, Default: 0.0},
	"feature_fraction":  {Kind: gbm.FloatParam, Default: 1.0},
	"bagging_fraction":  {Kind: gbm.FloatParam, Default: 1.0},
	"bagging_freq":      {Kind: gbm.IntParam, Default: 0},
	"lambda_l1":         {Kind: gbm.FloatParam, Default: 0.0},
	"lambda_l2":         {Kind: gbm.FloatParam, Default: 0.0},
	"max_bin":           {Kind: gbm.IntParam, Default: 255},
	"path_smooth":       {Kind: gbm.FloatParam, Default: 0.0},
	"is_unbalance":      {Kind: gbm.BoolParam, Default: false},
	"scale_pos_weight":  {Kind: gbm.FloatParam, Default: 1.0},
	"random_state":      {Kind: gbm.IntParam, Default: 0},
	"n_jobs":            {Kind: gbm.IntParam, Default: 1},
	"verbosity":         {Kind: gbm.IntParam, Default: -1},
}

func build(v gbm.Values) (gbm.Params, error) {
	if obj := v.String("objective"); obj != "binary" {
		return gbm.Params{}, errors.NewValidationError("objective", "only binary is supported", obj)
	}
	if b := v.String("boosting"); b != "gbdt" {
		return gbm.Params{}, errors.NewValidationError("boosting", "only gbdt is supported", b)
	}
	switch m := v.String("metric"); m {
	case "binary_logloss", "auc", "binary_error":
	default:
		return gbm.Params{}, errors.NewValidationError("metric", "must be binary_logloss, auc or binary_error", m)
	}
	// LightGBM は is_unbalance と scale_pos_weight の併用を許さない
	if v.Bool("is_unbalance") && v.Float("scale_pos_weight") != 1 {
		return gbm.Params{}, errors.NewValidationError("is_unbalance", "cannot be combined with scale_pos_weight", true)
	}

	p := gbm.DefaultParams()
	p.NumIterations = v.Int("n_estimators")
	p.LearningRate = v.Float("learning_rate")
	p.GrowPolicy = gbm.Lossguide
	p.NumLeaves = v.Int("num_leaves")
	if d := v.Int("max_depth"); d > 0 {
		p.MaxDepth = d
	}
	p.MaxBin = v.Int("max_bin")
	p.MinDataInLeaf = v.Int("min_child_samples")
	p.MinChildWeight = v.Float("min_child_weight")
	p.MinSplitGain = v.Float("min_split_gain")
	p.FeatureFraction = v.Float("feature_fraction")
	p.BaggingFraction = v.Float("bagging_fraction")
	p.BaggingFreq = v.Int("bagging_freq")
	p.LambdaL1 = v.Float("lambda_l1")
	p.LambdaL2 = v.Float("lambda_l2")
	p.PathSmooth = v.Float("path_smooth")
	p.IsUnbalance = v.Bool("is_unbalance")
	p.ScalePosWeight = v.Float("scale_pos_weight")
	p.NumThreads = v.Int("n_jobs")
	p.Seed = int64(v.Int("random_state"))
	return p, nil
}

// LGBMClassifier is a binary classifier with LightGBM defaults
// (leaf-wise growth, 31 leaves, learning_rate 0.1).
type LGBMClassifier struct {
	*gbm.Classifier
}

// Option sets a parameter at construction time.
type Option func(params map[string]interface{})

// WithParams sets several parameters by name.
func WithParams(params map[string]interface{}) Option {
	return func(dst map[string]interface{}) {
		for k, v := range params {
			dst[k] = v
		}
	}
}

// WithNumLeaves sets num_leaves.
func WithNumLeaves(n int) Option {
	return func(dst map[string]interface{}) { dst["num_leaves"] = n }
}

// WithNEstimators sets the number of boosting rounds.
func WithNEstimators(n int) Option {
	return func(dst map[string]interface{}) { dst["n_estimators"] = n }
}

// WithRandomState sets the seed.
func WithRandomState(seed int) Option {
	return func(dst map[string]interface{}) { dst["random_state"] = seed }
}

// NewLGBMClassifier returns an unfitted classifier.
func NewLGBMClassifier(opts ...Option) (*LGBMClassifier, error) {
	c := &LGBMClassifier{Classifier: gbm.NewClassifier("LGBMClassifier", paramDefs, build, nil)}
	params := map[string]interface{}{}
	for _, opt := range opts {
		opt(params)
	}
	if err := c.SetParams(params); err != nil {
		return nil, err
	}
	return c, nil
}

// Clone returns an unfitted copy with the same explicit parameters.
func (c *LGBMClassifier) Clone() model.Estimator {
	return &LGBMClassifier{Classifier: c.CloneClassifier()}
}
