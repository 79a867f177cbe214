// Package catboost exposes the gbm engine under CatBoost's parameter
// names, including its conditional options (boosting_type, grow_policy,
// sampling_frequency, bootstrap_type).
package catboost

import (
	"github.com/YuminosukeSato/riskml/core/model"
	"github.com/YuminosukeSato/riskml/gbm"
	"github.com/YuminosukeSato/riskml/pkg/errors"
)

var paramDefs = map[string]gbm.ParamDef{
	"iterations":          {Kind: gbm.IntParam, Default: 1000},
	"depth":               {Kind: gbm.IntParam, Default: 6},
	"learning_rate":       {Kind: gbm.FloatParam, Default: 0.03},
	"l2_leaf_reg":         {Kind: gbm.FloatParam, Default: 3.0},
	"objective":           {Kind: gbm.StringParam, Default: "Logloss"},
	"boosting_type":       {Kind: gbm.StringParam, Default: "Plain"},
	"grow_policy":         {Kind: gbm.StringParam, Default: "SymmetricTree"},
	"sampling_frequency":  {Kind: gbm.StringParam, Default: "PerTreeLevel"},
	"bootstrap_type":      {Kind: gbm.StringParam, Default: "MVS"},
	"bagging_temperature": {Kind: gbm.FloatParam, Default: 1.0},
	"subsample":           {Kind: gbm.FloatParam, Default: 0.8},
	"random_strength":     {Kind: gbm.FloatParam, Default: 1.0},
	"max_bin":             {Kind: gbm.IntParam, Default: 254},
	"min_data_in_leaf":    {Kind: gbm.IntParam, Default: 1},
	"max_leaves":          {Kind: gbm.IntParam, Default: 31},
	"auto_class_weights":  {Kind: gbm.StringParam, Default: "None"},
	"random_state":        {Kind: gbm.IntParam, Default: 0},
	"thread_count":        {Kind: gbm.IntParam, Default: 1},
}

// Bernoulli の既定 subsample は 0.66、MVS は 0.8
const bernoulliSubsample = 0.66

func visible(v gbm.Values, name string) bool {
	bootstrap := v.String("bootstrap_type")
	switch name {
	case "bagging_temperature":
		return bootstrap == string(gbm.BootstrapBayesian)
	case "subsample":
		return bootstrap == string(gbm.BootstrapBernoulli) || bootstrap == string(gbm.BootstrapMVS)
	case "max_leaves":
		return v.String("grow_policy") == string(gbm.Lossguide)
	}
	return true
}

func build(v gbm.Values) (gbm.Params, error) {
	if obj := v.String("objective"); obj != "Logloss" && obj != "CrossEntropy" {
		return gbm.Params{}, errors.NewValidationError("objective", "must be Logloss or CrossEntropy", obj)
	}

	p := gbm.DefaultParams()
	p.NumIterations = v.Int("iterations")
	p.LearningRate = v.Float("learning_rate")
	p.MaxDepth = v.Int("depth")
	p.LambdaL2 = v.Float("l2_leaf_reg")
	p.MaxBin = v.Int("max_bin")
	p.MinDataInLeaf = v.Int("min_data_in_leaf")
	p.MinChildWeight = 0
	p.RandomStrength = v.Float("random_strength")
	p.NumThreads = v.Int("thread_count")
	p.Seed = int64(v.Int("random_state"))

	p.BoostingType = gbm.BoostingType(v.String("boosting_type"))
	p.GrowPolicy = gbm.GrowPolicy(v.String("grow_policy"))
	p.NumLeaves = 0
	if p.GrowPolicy == gbm.Lossguide {
		p.NumLeaves = v.Int("max_leaves")
	}

	p.SamplingFrequency = gbm.SamplingFrequency(v.String("sampling_frequency"))
	if p.GrowPolicy == gbm.Lossguide && !v.IsSet("sampling_frequency") {
		p.SamplingFrequency = gbm.PerTree
	}

	p.Bootstrap = gbm.BootstrapType(v.String("bootstrap_type"))
	switch p.Bootstrap {
	case gbm.BootstrapBayesian:
		p.BaggingTemperature = v.Float("bagging_temperature")
		if v.IsSet("subsample") {
			p.Subsample = v.Float("subsample")
		}
	case gbm.BootstrapBernoulli, gbm.BootstrapMVS:
		p.Subsample = v.Float("subsample")
		if p.Bootstrap == gbm.BootstrapBernoulli && !v.IsSet("subsample") {
			p.Subsample = bernoulliSubsample
		}
		if v.IsSet("bagging_temperature") {
			p.BaggingTemperature = v.Float("bagging_temperature")
		}
	}

	switch w := v.String("auto_class_weights"); w {
	case "None", "":
	case "Balanced":
		p.ClassWeights = gbm.ClassWeightsBalanced
	case "SqrtBalanced":
		p.ClassWeights = gbm.ClassWeightsSqrtBalanced
	default:
		return gbm.Params{}, errors.NewValidationError("auto_class_weights", "must be None, Balanced or SqrtBalanced", w)
	}
	return p, nil
}

// CatBoostClassifier is a binary classifier with CatBoost defaults
// (oblivious trees of depth 6, 1000 iterations, learning_rate 0.03).
type CatBoostClassifier struct {
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

// WithIterations sets the number of trees.
func WithIterations(n int) Option {
	return func(dst map[string]interface{}) { dst["iterations"] = n }
}

// WithDepth sets the tree depth.
func WithDepth(d int) Option {
	return func(dst map[string]interface{}) { dst["depth"] = d }
}

// WithRandomState sets the seed.
func WithRandomState(seed int) Option {
	return func(dst map[string]interface{}) { dst["random_state"] = seed }
}

// NewCatBoostClassifier returns an unfitted classifier.
func NewCatBoostClassifier(opts ...Option) (*CatBoostClassifier, error) {
	c := &CatBoostClassifier{Classifier: gbm.NewClassifier("CatBoostClassifier", paramDefs, build, visible)}
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
func (c *CatBoostClassifier) Clone() model.Estimator {
	return &CatBoostClassifier{Classifier: c.CloneClassifier()}
}
