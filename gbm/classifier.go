package gbm

import (
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/riskml/core/model"
	"github.com/YuminosukeSato/riskml/pkg/errors"
	"github.com/YuminosukeSato/riskml/pkg/log"
)

// ParamKind is the value type of a library parameter.
type ParamKind int

const (
	IntParam ParamKind = iota
	FloatParam
	BoolParam
	StringParam
)

// ParamDef declares one parameter of a library vocabulary.
type ParamDef struct {
	Kind    ParamKind
	Default interface{}
}

// Values resolves parameters against their defaults.
type Values struct {
	defs map[string]ParamDef
	set  map[string]interface{}
}

func (v Values) get(name string) interface{} {
	if x, ok := v.set[name]; ok {
		return x
	}
	return v.defs[name].Default
}

// IsSet reports whether name was given explicitly.
func (v Values) IsSet(name string) bool {
	_, ok := v.set[name]
	return ok
}

func (v Values) Int(name string) int {
	x, _ := model.ParamInt(name, v.get(name))
	return x
}

func (v Values) Float(name string) float64 {
	x, _ := model.ParamFloat(name, v.get(name))
	return x
}

func (v Values) Bool(name string) bool {
	x, _ := model.ParamBool(name, v.get(name))
	return x
}

func (v Values) String(name string) string {
	x, _ := model.ParamString(name, v.get(name))
	return x
}

// Builder maps library parameters onto engine Params.
type Builder func(v Values) (Params, error)

// Visibility reports whether a parameter applies to the current
// configuration; hidden parameters are left out of GetParams.
type Visibility func(v Values, name string) bool

// Classifier adapts the engine to a library's parameter vocabulary. It
// implements fit/predict/params; facades add Clone.
type Classifier struct {
	name    string
	defs    map[string]ParamDef
	set     map[string]interface{}
	build   Builder
	visible Visibility

	booster *Booster
	logger  log.Logger
}

// NewClassifier returns an adapter for the given vocabulary.
func NewClassifier(name string, defs map[string]ParamDef, build Builder, visible Visibility) *Classifier {
	return &Classifier{
		name:    name,
		defs:    defs,
		set:     map[string]interface{}{},
		build:   build,
		visible: visible,
		logger:  log.GetLoggerWithName(name),
	}
}

// Name returns the estimator name, e.g. "XGBClassifier".
func (c *Classifier) Name() string { return c.name }

func (c *Classifier) values() Values { return Values{defs: c.defs, set: c.set} }

// SetParams validates and stores explicit parameter values.
func (c *Classifier) SetParams(params map[string]interface{}) error {
	// 部分適用を避けるため先に全て検証する
	coerced := make(map[string]interface{}, len(params))
	for name, value := range params {
		def, ok := c.defs[name]
		if !ok {
			return errors.NewValidationError(name, "unknown parameter for "+c.name, value)
		}
		var (
			x   interface{}
			err error
		)
		switch def.Kind {
		case IntParam:
			x, err = model.ParamInt(name, value)
		case FloatParam:
			x, err = model.ParamFloat(name, value)
		case BoolParam:
			x, err = model.ParamBool(name, value)
		default:
			x, err = model.ParamString(name, value)
		}
		if err != nil {
			return err
		}
		coerced[name] = x
	}
	for name, x := range coerced {
		c.set[name] = x
	}
	return nil
}

// GetParams returns every applicable parameter with its effective value.
func (c *Classifier) GetParams() map[string]interface{} {
	v := c.values()
	out := make(map[string]interface{}, len(c.defs))
	for name := range c.defs {
		if c.visible != nil && !c.visible(v, name) {
			continue
		}
		out[name] = v.get(name)
	}
	return out
}

// ParamNames returns the vocabulary in sorted order.
func (c *Classifier) ParamNames() []string {
	names := make([]string, 0, len(c.defs))
	for name := range c.defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// EngineParams returns the engine configuration for the current values.
func (c *Classifier) EngineParams() (Params, error) {
	p, err := c.build(c.values())
	if err != nil {
		return Params{}, err
	}
	return p, p.Validate()
}

// Fit trains a new booster.
func (c *Classifier) Fit(X, y mat.Matrix) error {
	p, err := c.EngineParams()
	if err != nil {
		return err
	}
	b := NewBooster(p)
	if err := b.Fit(X, y); err != nil {
		return err
	}
	c.booster = b
	c.logger.Debug("classifier fitted", log.ModelNameKey, c.name, log.HyperParamsKey, c.set)
	return nil
}

func (c *Classifier) fitted(method string) (*Booster, error) {
	if c.booster == nil {
		return nil, errors.NewNotFittedError(c.name, method)
	}
	return c.booster, nil
}

// Predict returns 0/1 labels.
func (c *Classifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	b, err := c.fitted("Predict")
	if err != nil {
		return nil, err
	}
	return b.Predict(X)
}

// PredictProba returns the n x 2 class probabilities.
func (c *Classifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	b, err := c.fitted("PredictProba")
	if err != nil {
		return nil, err
	}
	return b.PredictProba(X)
}

// Booster returns the fitted engine, nil before Fit.
func (c *Classifier) Booster() *Booster { return c.booster }

// IsFitted reports whether Fit succeeded.
func (c *Classifier) IsFitted() bool { return c.booster != nil }

// CloneClassifier copies the explicit parameters into a new unfitted adapter.
func (c *Classifier) CloneClassifier() *Classifier {
	n := NewClassifier(c.name, c.defs, c.build, c.visible)
	for k, v := range c.set {
		n.set[k] = v
	}
	return n
}
