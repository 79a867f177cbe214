package optimize

import (
	"fmt"
	"math"
	"math/rand"
	"reflect"

	"github.com/YuminosukeSato/riskml/pkg/errors"
)

// Distribution describes the domain a parameter is sampled from.
type Distribution interface {
	// Contains reports whether v is a valid value of the distribution.
	Contains(v interface{}) bool
	// sample draws a value uniformly from the domain (log-uniformly when Log).
	sample(rng *rand.Rand) interface{}
	// toInternal maps a value to the float representation used by samplers:
	// log space for Log distributions, the choice index for categoricals.
	toInternal(v interface{}) float64
	fromInternal(x float64) interface{}
	String() string
}

// IntDistribution samples integers in [Low, High].
type IntDistribution struct {
	Low, High int
	Log       bool
}

// FloatDistribution samples floats in [Low, High].
type FloatDistribution struct {
	Low, High float64
	Log       bool
}

// CategoricalDistribution samples one of Choices.
type CategoricalDistribution struct {
	Choices []interface{}
}

func newIntDistribution(name string, low, high int, logScale bool) (IntDistribution, error) {
	if low > high {
		return IntDistribution{}, errors.NewValidationError(name, "low must not exceed high", [2]int{low, high})
	}
	if logScale && low < 1 {
		return IntDistribution{}, errors.NewValidationError(name, "log scale requires low >= 1", low)
	}
	return IntDistribution{Low: low, High: high, Log: logScale}, nil
}

func newFloatDistribution(name string, low, high float64, logScale bool) (FloatDistribution, error) {
	if !(low <= high) {
		return FloatDistribution{}, errors.NewValidationError(name, "low must not exceed high", [2]float64{low, high})
	}
	if logScale && low <= 0 {
		return FloatDistribution{}, errors.NewValidationError(name, "log scale requires low > 0", low)
	}
	return FloatDistribution{Low: low, High: high, Log: logScale}, nil
}

func (d IntDistribution) Contains(v interface{}) bool {
	i, ok := v.(int)
	return ok && i >= d.Low && i <= d.High
}

func (d IntDistribution) bounds() (float64, float64) {
	lo, hi := float64(d.Low)-0.5, float64(d.High)+0.5
	if d.Log {
		lo, hi = math.Log(float64(d.Low)-0.5), math.Log(float64(d.High)+0.5)
	}
	return lo, hi
}

func (d IntDistribution) sample(rng *rand.Rand) interface{} {
	if !d.Log {
		return d.Low + rng.Intn(d.High-d.Low+1)
	}
	lo, hi := d.bounds()
	return d.fromInternal(lo + rng.Float64()*(hi-lo))
}

func (d IntDistribution) toInternal(v interface{}) float64 {
	x := float64(v.(int))
	if d.Log {
		return math.Log(x)
	}
	return x
}

func (d IntDistribution) fromInternal(x float64) interface{} {
	if d.Log {
		x = math.Exp(x)
	}
	i := int(math.Round(x))
	if i < d.Low {
		i = d.Low
	}
	if i > d.High {
		i = d.High
	}
	return i
}

func (d IntDistribution) String() string {
	return fmt.Sprintf("IntDistribution(low=%d, high=%d, log=%v)", d.Low, d.High, d.Log)
}

func (d FloatDistribution) Contains(v interface{}) bool {
	f, ok := v.(float64)
	return ok && f >= d.Low && f <= d.High
}

func (d FloatDistribution) bounds() (float64, float64) {
	if d.Log {
		return math.Log(d.Low), math.Log(d.High)
	}
	return d.Low, d.High
}

func (d FloatDistribution) sample(rng *rand.Rand) interface{} {
	lo, hi := d.bounds()
	return d.fromInternal(lo + rng.Float64()*(hi-lo))
}

func (d FloatDistribution) toInternal(v interface{}) float64 {
	if d.Log {
		return math.Log(v.(float64))
	}
	return v.(float64)
}

func (d FloatDistribution) fromInternal(x float64) interface{} {
	if d.Log {
		x = math.Exp(x)
	}
	return math.Min(math.Max(x, d.Low), d.High)
}

func (d FloatDistribution) String() string {
	return fmt.Sprintf("FloatDistribution(low=%g, high=%g, log=%v)", d.Low, d.High, d.Log)
}

func (d CategoricalDistribution) Contains(v interface{}) bool {
	return d.index(v) >= 0
}

func (d CategoricalDistribution) index(v interface{}) int {
	for i, c := range d.Choices {
		if c == v {
			return i
		}
	}
	return -1
}

func (d CategoricalDistribution) sample(rng *rand.Rand) interface{} {
	return d.Choices[rng.Intn(len(d.Choices))]
}

func (d CategoricalDistribution) toInternal(v interface{}) float64 {
	return float64(d.index(v))
}

func (d CategoricalDistribution) fromInternal(x float64) interface{} {
	return d.Choices[int(x)]
}

func (d CategoricalDistribution) String() string {
	return fmt.Sprintf("CategoricalDistribution(choices=%v)", d.Choices)
}

// sameDistribution は再サジェスト時に分布が一致するかを判定する
func sameDistribution(a, b Distribution) bool {
	return reflect.DeepEqual(a, b)
}
