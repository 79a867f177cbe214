// Package xgboost exposes the gbm engine under XGBoost's scikit-learn
// parameter names.
package xgboost

import (
	"github.com/YuminosukeSato/riskml/core/model"
	"github.com/YuminosukeSato/riskml/gbm"
	"github.com/YuminosukeSato/riskml/pkg/errors"
)

var paramDefs = map[string]gbm.ParamDef{
	"n_estimators":     {Kind: gbm.IntParam, Default: 100},
	"max_depth":        {Kind: gbm.IntParam, Default: 6},
	"learning_rate":    {Kind: gbm.FloatParam, Default: 0.3},
	"min_child_weight": {Kind: gbm.FloatParam, Default: 1.0},
	"gamma":            {Kind: gbm.FloatParam, Default: 0.0},
	"subsample":        {Kind: gbm.FloatParam, Default: 1.0},
	"colsample_bytree": {Kind: gbm.FloatParam, Default: 1.0},
	"reg_alpha":        {Kind: gbm.FloatParam, Default: 0.0},
	"reg_lambda":       {Kind: gbm.FloatParam, Default: 1.0},
	"scale_pos_weight": {Kind: gbm.FloatParam, Default: 1.0},
	"max_bin":          {Kind: gbm.IntParam, Default: 256},
	"random_state":     {Kind: gbm.IntParam, Default: 0},
	"n_jobs":           {Kind: gbm.IntParam, Default: 1},
	"objective":        {Kind: gbm.StringParam, Default: "binary:logistic"},
	"eval_metric":      {Kind: gbm.StringParam, Default: "logloss"},
}

func build(v gbm.Values) (gbm.Params, error) {
	if obj := v.String("objective"); obj != "binary:logistic" {
		return gbm.Params{}, errors.NewValidationError("objective", "only binary:logistic is supported", obj)
	}
	switch m := v.String("eval_metric"); m {
	case "logloss", "auc", "error":
	default:
		return gbm.Params{}, errors.NewValidationError("eval_metric", "must be logloss, auc or error", m)
	}

	p := gbm.DefaultParams()
	p.NumIterations = v.Int("n_estimators")
	p.LearningRate = v.Float("learning_rate")
	p.GrowPolicy = gbm.Depthwise
	p.MaxDepth = v.Int("max_depth")
	p.NumLeaves = 0
	p.MaxBin = v.Int("max_bin")
	p.MinDataInLeaf = 0
	p.MinChildWeight = v.Float("min_child_weight")
	p.MinSplitGain = v.Float("gamma")
	p.LambdaL1 = v.Float("reg_alpha")
	p.LambdaL2 = v.Float("reg_lambda")
	p.FeatureFraction = v.Float("colsample_bytree")
	if s := v.Float("subsample"); s < 1 {
		p.Bootstrap = gbm.BootstrapBernoulli
		p.Subsample = s
	}
	p.ScalePosWeight = v.Float("scale_pos_weight")
	p.NumThreads = v.Int("n_jobs")
	p.Seed = int64(v.Int("random_state"))
	return p, nil
}

// XGBClassifier is a binary classifier with XGBoost defaults
// (depth-wise trees, learning_rate 0.3, reg_lambda 1).
type XGBClassifier struct {
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

// WithNEstimators sets the number of boosting rounds.
func WithNEstimators(n int) Option {
	return func(dst map[string]interface{}) { dst["n_estimators"] = n }
}

// WithMaxDepth sets the tree depth.
func WithMaxDepth(d int) Option {
	return func(dst map[string]interface{}) { dst["max_depth"] = d }
}

// WithLearningRate sets the shrinkage.
func WithLearningRate(lr float64) Option {
	return func(dst map[string]interface{}) { dst["learning_rate"] = lr }
}

// WithEvalMetric sets eval_metric.
func WithEvalMetric(m string) Option {
	return func(dst map[string]interface{}) { dst["eval_metric"] = m }
}

// WithRandomState sets the seed.
func WithRandomState(seed int) Option {
	return func(dst map[string]interface{}) { dst["random_state"] = seed }
}

// NewXGBClassifier returns an unfitted classifier. Invalid options are
// reported by SetParams or Fit.
func NewXGBClassifier(opts ...Option) (*XGBClassifier, error) {
	c := &XGBClassifier{Classifier: gbm.NewClassifier("XGBClassifier", paramDefs, build, nil)}
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
func (c *XGBClassifier) Clone() model.Estimator {
	return &XGBClassifier{Classifier: c.CloneClassifier()}
}
