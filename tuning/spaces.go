package tuning

import (
	"github.com/YuminosukeSato/riskml/optimize"
)

// suggester は最初のエラーを保持しながら連続してサジェストする
type suggester struct {
	t      optimize.Trial
	params map[string]interface{}
	err    error
}

func newSuggester(t optimize.Trial) *suggester {
	return &suggester{t: t, params: make(map[string]interface{})}
}

func (s *suggester) int(name string, low, high int) int {
	if s.err != nil {
		return 0
	}
	v, err := s.t.SuggestInt(name, low, high)
	s.err = err
	s.params[name] = v
	return v
}

func (s *suggester) float(name string, low, high float64) float64 {
	if s.err != nil {
		return 0
	}
	v, err := s.t.SuggestFloat(name, low, high)
	s.err = err
	s.params[name] = v
	return v
}

func (s *suggester) logFloat(name string, low, high float64) float64 {
	if s.err != nil {
		return 0
	}
	v, err := s.t.SuggestLogUniform(name, low, high)
	s.err = err
	s.params[name] = v
	return v
}

func (s *suggester) categorical(name string, choices ...string) string {
	if s.err != nil {
		return ""
	}
	cs := make([]interface{}, len(choices))
	for i, c := range choices {
		cs[i] = c
	}
	v, err := s.t.SuggestCategorical(name, cs)
	if err != nil {
		s.err = err
		return ""
	}
	str, _ := v.(string)
	s.params[name] = str
	return str
}

func (s *suggester) set(name string, v interface{}) {
	s.params[name] = v
}

// XGBoostSpace samples an XGBClassifier configuration. The fixed part
// (random_state 1234, eval_metric logloss) is included.
func XGBoostSpace(t optimize.Trial) (map[string]interface{}, error) {
	s := newSuggester(t)
	s.int("n_estimators", 150, 250)
	s.int("max_depth", 1, 5)
	s.logFloat("learning_rate", 1e-4, 0.1)
	s.int("min_child_weight", 4, 6)
	s.logFloat("gamma", 1e-4, 1.0)
	s.float("subsample", 0.5, 1.0)
	s.float("colsample_bytree", 0.5, 1.0)
	s.logFloat("reg_alpha", 1e-5, 0.1)
	s.logFloat("reg_lambda", 0.1, 5.0)
	s.set("random_state", 1234)
	s.set("eval_metric", "logloss")
	return s.params, s.err
}

// LightGBMSpace samples an LGBMClassifier configuration for an
// unbalanced binary target.
func LightGBMSpace(t optimize.Trial) (map[string]interface{}, error) {
	s := newSuggester(t)
	s.set("objective", "binary")
	s.set("metric", "auc")
	s.set("is_unbalance", true)
	s.set("boosting", "gbdt")
	s.int("num_leaves", 20, 150)
	s.float("feature_fraction", 0.4, 1.0)
	s.float("bagging_fraction", 0.4, 1.0)
	s.int("bagging_freq", 1, 50)
	s.logFloat("learning_rate", 1e-3, 1e-1)
	s.logFloat("lambda_l1", 1e-8, 10.0)
	s.logFloat("lambda_l2", 1e-8, 10.0)
	s.int("min_child_samples", 5, 100)
	s.int("max_depth", 3, 15)
	s.set("verbosity", 0)
	s.int("max_bin", 63, 255)
	s.float("path_smooth", 0.0, 1.0)
	return s.params, s.err
}

// CatBoostSpace samples a CatBoostClassifier configuration with its
// conditional structure:
//
//	boosting_type Ordered      => grow_policy SymmetricTree (not sampled)
//	grow_policy Lossguide      => sampling_frequency PerTree (not sampled)
//	bootstrap_type Bayesian    => bagging_temperature in [0, 5]
//	bootstrap_type Bernoulli/MVS => subsample in [0.5, 1]
func CatBoostSpace(t optimize.Trial) (map[string]interface{}, error) {
	s := newSuggester(t)
	boosting := s.categorical("boosting_type", "Ordered", "Plain")

	grow := "SymmetricTree"
	if boosting != "Ordered" {
		grow = s.categorical("grow_policy", "SymmetricTree", "Depthwise", "Lossguide")
	}
	sampling := "PerTree"
	if grow != "Lossguide" {
		sampling = s.categorical("sampling_frequency", "PerTree", "PerTreeLevel")
	}

	s.int("iterations", 200, 1000)
	s.int("depth", 3, 10)
	s.logFloat("learning_rate", 1e-4, 0.1)
	s.logFloat("l2_leaf_reg", 0.1, 100)
	s.set("objective", "Logloss")
	s.set("boosting_type", boosting)
	s.set("grow_policy", grow)
	s.set("sampling_frequency", sampling)
	bootstrap := s.categorical("bootstrap_type", "Bayesian", "Bernoulli", "MVS")
	s.float("random_strength", 0.0, 10.0)
	s.int("max_bin", 32, 255)
	s.int("min_data_in_leaf", 1, 50)
	s.set("auto_class_weights", "SqrtBalanced")

	switch bootstrap {
	case "Bayesian":
		s.float("bagging_temperature", 0.0, 5.0)
	case "Bernoulli", "MVS":
		s.float("subsample", 0.5, 1.0)
	}
	return s.params, s.err
}
