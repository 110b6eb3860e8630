package model

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/samber/lo"

	"github.com/YuminosukeSato/rftune/pkg/errors"
)

// Params stores one set of hyperparameters, keyed by their scikit-learn names.
//
//	model.Params{
//	    "n_estimators":      100,
//	    "max_depth":         nil,
//	    "min_samples_split": 5,
//	}
type Params map[string]interface{}

// Copy hyper-parameters.
func (p Params) Copy() Params {
	newParams := make(Params, len(p))
	for k, v := range p {
		newParams[k] = v
	}
	return newParams
}

// Overwrite returns a copy of p updated with the entries of other.
func (p Params) Overwrite(other Params) Params {
	merged := p.Copy()
	for k, v := range other {
		merged[k] = v
	}
	return merged
}

// Keys returns the parameter names in lexicographic order.
func (p Params) Keys() []string {
	keys := lo.Keys(p)
	slices.Sort(keys)
	return keys
}

// String formats the parameters as "{a: 1, b: nil}" with sorted keys.
func (p Params) String() string {
	parts := lo.Map(p.Keys(), func(k string, _ int) string {
		return fmt.Sprintf("%s: %s", k, FormatValue(p[k]))
	})
	return "{" + strings.Join(parts, ", ") + "}"
}

// FormatValue renders a single hyperparameter value.
func FormatValue(v interface{}) string {
	if v == nil {
		return "nil"
	}
	if s, ok := v.(string); ok {
		return fmt.Sprintf("%q", s)
	}
	return fmt.Sprintf("%v", v)
}

// ParamGrid contains the candidate values for exhaustive grid search.
type ParamGrid map[string][]interface{}

// Keys returns the grid's parameter names in lexicographic order.
func (g ParamGrid) Keys() []string {
	keys := lo.Keys(g)
	slices.Sort(keys)
	return keys
}

// NumCombinations returns the size of the cartesian product of the grid.
func (g ParamGrid) NumCombinations() int {
	if len(g) == 0 {
		return 0
	}
	count := 1
	for _, values := range g {
		count *= len(values)
	}
	return count
}

// Validate rejects an empty grid and parameters without candidate values.
func (g ParamGrid) Validate() error {
	if len(g) == 0 {
		return errors.NewValueError("ParamGrid", "parameter grid is empty")
	}
	for _, name := range g.Keys() {
		if len(g[name]) == 0 {
			return errors.NewValidationError(name, "parameter grid lists no candidate values", g[name])
		}
	}
	return nil
}

// Combinations enumerates every parameter set of the grid. Parameter names are
// visited in lexicographic order, values in the order they are listed, the last
// name varying fastest.
func (g ParamGrid) Combinations() []Params {
	names := g.Keys()
	results := make([]Params, 0, g.NumCombinations())
	if len(names) == 0 {
		return results
	}
	var dfs func(deep int, params Params)
	dfs = func(deep int, params Params) {
		if deep == len(names) {
			results = append(results, params.Copy())
			return
		}
		name := names[deep]
		for _, val := range g[name] {
			params[name] = val
			dfs(deep+1, params)
		}
	}
	dfs(0, make(Params, len(names)))
	return results
}

// ===========================================================================
//
//	SetParams 用の型変換ヘルパー
//
// ===========================================================================

// ToInt converts a hyperparameter value to int. Integral floats are accepted
// because configuration files decoded from JSON carry every number as float64.
func ToInt(name string, v interface{}) (int, error) {
	switch val := v.(type) {
	case int:
		return val, nil
	case int32:
		return int(val), nil
	case int64:
		return int(val), nil
	case uint:
		return int(val), nil
	case float32:
		return floatToInt(name, float64(val))
	case float64:
		return floatToInt(name, val)
	default:
		return 0, errors.NewValidationError(name, "expected an integer", v)
	}
}

func floatToInt(name string, f float64) (int, error) {
	if f != math.Trunc(f) || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, errors.NewValidationError(name, "expected an integer", f)
	}
	return int(f), nil
}

// ToOptionalInt is ToInt where nil means "unset" and maps to 0.
func ToOptionalInt(name string, v interface{}) (int, error) {
	if v == nil {
		return 0, nil
	}
	return ToInt(name, v)
}

// ToFloat converts a hyperparameter value to float64.
func ToFloat(name string, v interface{}) (float64, error) {
	switch val := v.(type) {
	case float64:
		return val, nil
	case float32:
		return float64(val), nil
	case int:
		return float64(val), nil
	case int64:
		return float64(val), nil
	default:
		return 0, errors.NewValidationError(name, "expected a number", v)
	}
}

// ToString converts a hyperparameter value to string.
func ToString(name string, v interface{}) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", errors.NewValidationError(name, "expected a string", v)
	}
	return s, nil
}

// ToBool converts a hyperparameter value to bool.
func ToBool(name string, v interface{}) (bool, error) {
	b, ok := v.(bool)
	if !ok {
		return false, errors.NewValidationError(name, "expected a boolean", v)
	}
	return b, nil
}

// ToOptionalInt64 converts a seed-like value; nil means "unset".
func ToOptionalInt64(name string, v interface{}) (*int64, error) {
	if v == nil {
		return nil, nil
	}
	n, err := ToInt(name, v)
	if err != nil {
		return nil, err
	}
	seed := int64(n)
	return &seed, nil
}

// UnknownParamError reports a hyperparameter name the estimator does not define.
func UnknownParamError(estimator, name string, value interface{}) error {
	return errors.NewValidationError(name, fmt.Sprintf("invalid parameter for estimator %s", estimator), value)
}
