package model

import (
	"math"

	"github.com/YuminosukeSato/riskml/pkg/errors"
)

// ParamFloat coerces a numeric hyperparameter to float64.
func ParamFloat(name string, v interface{}) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int64:
		return float64(x), nil
	default:
		return 0, errors.NewValidationError(name, "expected a number", v)
	}
}

// ParamInt coerces a hyperparameter to int. Floats are accepted only when
// they hold an integral value, which is what a FixedTrial replays.
func ParamInt(name string, v interface{}) (int, error) {
	switch x := v.(type) {
	case int:
		return x, nil
	case int64:
		return int(x), nil
	case float64:
		if x != math.Trunc(x) {
			return 0, errors.NewValidationError(name, "expected an integer", v)
		}
		return int(x), nil
	default:
		return 0, errors.NewValidationError(name, "expected an integer", v)
	}
}

// ParamBool coerces a hyperparameter to bool.
func ParamBool(name string, v interface{}) (bool, error) {
	b, ok := v.(bool)
	if !ok {
		return false, errors.NewValidationError(name, "expected a bool", v)
	}
	return b, nil
}

// ParamString coerces a hyperparameter to string.
func ParamString(name string, v interface{}) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", errors.NewValidationError(name, "expected a string", v)
	}
	return s, nil
}

// CopyParams returns a shallow copy of params.
func CopyParams(params map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(params))
	for k, v := range params {
		out[k] = v
	}
	return out
}
