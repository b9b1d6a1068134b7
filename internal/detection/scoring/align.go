package scoring

import (
	"math"

	"github.com/spf13/cast"
)

// FeatureVector is the raw counter mapping supplied for one sample. Values may
// be any numeric type, a numeric string or a bool; a nil value counts as absent.
type FeatureVector map[string]any

// Align lays the vector out in schema order. Schema features missing from the
// vector are 0, keys outside the schema are dropped without being inspected,
// and a schema value that cannot be read as a number is an InvalidFeatureError.
func Align(features FeatureVector, schema Schema) ([]float64, error) {
	row := make([]float64, len(schema))
	for i, name := range schema {
		v, ok := features[name]
		if !ok {
			continue
		}
		f, err := toFloat(name, v)
		if err != nil {
			return nil, err
		}
		row[i] = f
	}
	return row, nil
}

// Value returns a feature as a number, 0 when absent
func (fv FeatureVector) Value(name string) (float64, error) {
	v, ok := fv[name]
	if !ok {
		return 0, nil
	}
	return toFloat(name, v)
}

func toFloat(name string, v any) (float64, error) {
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return 0, &InvalidFeatureError{Feature: name, Value: v, Reason: "not a number"}
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, &InvalidFeatureError{Feature: name, Value: v, Reason: "not a finite number"}
	}
	return f, nil
}
