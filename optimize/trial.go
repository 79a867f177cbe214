package optimize

import (
	"time"

	"github.com/YuminosukeSato/riskml/pkg/errors"
)

// Trial is the handle an objective uses to sample hyperparameters.
type Trial interface {
	// Number is the 0-based index of the trial within its study.
	Number() int
	SuggestInt(name string, low, high int, opts ...SuggestOption) (int, error)
	SuggestFloat(name string, low, high float64, opts ...SuggestOption) (float64, error)
	// SuggestUniform is SuggestFloat on a linear scale.
	SuggestUniform(name string, low, high float64) (float64, error)
	// SuggestLogUniform is SuggestFloat with Log().
	SuggestLogUniform(name string, low, high float64) (float64, error)
	SuggestCategorical(name string, choices []interface{}) (interface{}, error)
	// Params returns the values suggested so far.
	Params() map[string]interface{}
}

// SuggestOption modifies a numeric suggestion.
type SuggestOption func(*suggestConfig)

type suggestConfig struct {
	log bool
}

// Log samples the parameter uniformly in log space.
func Log() SuggestOption {
	return func(c *suggestConfig) { c.log = true }
}

func applySuggest(opts []SuggestOption) suggestConfig {
	var c suggestConfig
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// TrialState is the lifecycle state of a trial.
type TrialState int

const (
	// TrialRunning is a trial whose objective has not returned yet.
	TrialRunning TrialState = iota
	// TrialComplete is a trial that returned a finite value.
	TrialComplete
	// TrialPruned is a trial whose objective returned ErrTrialPruned.
	TrialPruned
	// TrialFail is a trial that errored, panicked or returned NaN/Inf.
	TrialFail
)

// String returns the optuna name of the state, e.g. "COMPLETE".
func (s TrialState) String() string {
	switch s {
	case TrialRunning:
		return "RUNNING"
	case TrialComplete:
		return "COMPLETE"
	case TrialPruned:
		return "PRUNED"
	case TrialFail:
		return "FAIL"
	}
	return "UNKNOWN"
}

// FrozenTrial is the immutable record of a finished trial.
type FrozenTrial struct {
	Number        int
	State         TrialState
	Value         float64
	Params        map[string]interface{}
	Distributions map[string]Distribution
	Err           error
	Start         time.Time
	Duration      time.Duration
}

// studyTrial はStudyが生成する実行中のトライアル
type studyTrial struct {
	study  *Study
	number int
	params map[string]interface{}
	dists  map[string]Distribution
}

func (t *studyTrial) Number() int { return t.number }

func (t *studyTrial) Params() map[string]interface{} {
	out := make(map[string]interface{}, len(t.params))
	for k, v := range t.params {
		out[k] = v
	}
	return out
}

func (t *studyTrial) suggest(name string, dist Distribution) (interface{}, error) {
	if prev, ok := t.dists[name]; ok {
		if !sameDistribution(prev, dist) {
			return nil, errors.NewValidationError(name,
				"suggested again with a different distribution", dist.String())
		}
		return t.params[name], nil
	}
	v := t.study.sampler.Sample(t.study.completed(), t.study.direction, name, dist)
	t.dists[name] = dist
	t.params[name] = v
	return v, nil
}

func (t *studyTrial) SuggestInt(name string, low, high int, opts ...SuggestOption) (int, error) {
	d, err := newIntDistribution(name, low, high, applySuggest(opts).log)
	if err != nil {
		return 0, err
	}
	v, err := t.suggest(name, d)
	if err != nil {
		return 0, err
	}
	return v.(int), nil
}

func (t *studyTrial) SuggestFloat(name string, low, high float64, opts ...SuggestOption) (float64, error) {
	d, err := newFloatDistribution(name, low, high, applySuggest(opts).log)
	if err != nil {
		return 0, err
	}
	v, err := t.suggest(name, d)
	if err != nil {
		return 0, err
	}
	return v.(float64), nil
}

func (t *studyTrial) SuggestUniform(name string, low, high float64) (float64, error) {
	return t.SuggestFloat(name, low, high)
}

func (t *studyTrial) SuggestLogUniform(name string, low, high float64) (float64, error) {
	return t.SuggestFloat(name, low, high, Log())
}

func (t *studyTrial) SuggestCategorical(name string, choices []interface{}) (interface{}, error) {
	if len(choices) == 0 {
		return nil, errors.NewValidationError(name, "choices must not be empty", choices)
	}
	return t.suggest(name, CategoricalDistribution{Choices: append([]interface{}(nil), choices...)})
}

// FixedTrial replays a fixed parameter map through the Trial interface.
// It is used to rebuild a model from the best parameters of a study.
type FixedTrial struct {
	number int
	params map[string]interface{}
	used   map[string]interface{}
}

// NewFixedTrial returns a Trial that answers every suggestion from params.
func NewFixedTrial(params map[string]interface{}) *FixedTrial {
	p := make(map[string]interface{}, len(params))
	for k, v := range params {
		p[k] = v
	}
	return &FixedTrial{params: p, used: make(map[string]interface{})}
}

func (t *FixedTrial) Number() int { return t.number }

// Params returns only the parameters the objective actually asked for.
func (t *FixedTrial) Params() map[string]interface{} {
	out := make(map[string]interface{}, len(t.used))
	for k, v := range t.used {
		out[k] = v
	}
	return out
}

func (t *FixedTrial) lookup(name string) (interface{}, error) {
	v, ok := t.params[name]
	if !ok {
		return nil, errors.NewValueError("FixedTrial", "parameter '"+name+"' is not fixed")
	}
	t.used[name] = v
	return v, nil
}

func (t *FixedTrial) SuggestInt(name string, _, _ int, _ ...SuggestOption) (int, error) {
	v, err := t.lookup(name)
	if err != nil {
		return 0, err
	}
	switch x := v.(type) {
	case int:
		return x, nil
	case int64:
		return int(x), nil
	case float64:
		if x == float64(int(x)) {
			return int(x), nil
		}
	}
	return 0, errors.NewValidationError(name, "fixed value is not an integer", v)
}

func (t *FixedTrial) SuggestFloat(name string, _, _ float64, _ ...SuggestOption) (float64, error) {
	v, err := t.lookup(name)
	if err != nil {
		return 0, err
	}
	switch x := v.(type) {
	case float64:
		return x, nil
	case int:
		return float64(x), nil
	}
	return 0, errors.NewValidationError(name, "fixed value is not a float", v)
}

func (t *FixedTrial) SuggestUniform(name string, low, high float64) (float64, error) {
	return t.SuggestFloat(name, low, high)
}

func (t *FixedTrial) SuggestLogUniform(name string, low, high float64) (float64, error) {
	return t.SuggestFloat(name, low, high, Log())
}

func (t *FixedTrial) SuggestCategorical(name string, choices []interface{}) (interface{}, error) {
	v, err := t.lookup(name)
	if err != nil {
		return nil, err
	}
	if !(CategoricalDistribution{Choices: choices}).Contains(v) {
		return nil, errors.NewValidationError(name, "fixed value is not one of the choices", v)
	}
	return v, nil
}
