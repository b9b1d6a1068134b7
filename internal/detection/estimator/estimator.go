// Package estimator holds the fitted model objects the scoring engine runs:
// binary classifiers, feature scalers and label encoders, decoded from the
// JSON artifacts exported at training time.
package estimator

import (
	"encoding/json"
	"fmt"
	"math"
)

// Classifier is a fitted classifier that scores a single scaled row
type Classifier interface {
	// Predict returns the predicted class index
	Predict(row []float64) (int, error)
	// PredictProba returns one probability per class, in class-index order
	PredictProba(row []float64) ([]float64, error)
	NumFeatures() int
	NumClasses() int
}

// Scaler is a fitted feature scaler
type Scaler interface {
	Transform(row []float64) ([]float64, error)
	NumFeatures() int
}

// Kind identifies a serialized estimator implementation
type Kind string

const (
	KindLogisticRegression Kind = "logistic_regression"
	KindRandomForest       Kind = "random_forest"
	KindStandardScaler     Kind = "standard"
	KindMinMaxScaler       Kind = "minmax"
)

type envelope struct {
	Type Kind `json:"type"`
}

// DecodeClassifier decodes a serialized classifier
func DecodeClassifier(data []byte) (Classifier, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to decode classifier: %w", err)
	}

	switch env.Type {
	case KindLogisticRegression:
		var m LogisticRegression
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("failed to decode logistic regression: %w", err)
		}
		if err := m.validate(); err != nil {
			return nil, err
		}
		return &m, nil
	case KindRandomForest:
		var spec forestSpec
		if err := json.Unmarshal(data, &spec); err != nil {
			return nil, fmt.Errorf("failed to decode random forest: %w", err)
		}
		return newRandomForest(spec)
	case "":
		return nil, fmt.Errorf("classifier type is missing")
	default:
		return nil, fmt.Errorf("unsupported classifier type %q", env.Type)
	}
}

// DecodeScaler decodes a serialized scaler
func DecodeScaler(data []byte) (Scaler, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to decode scaler: %w", err)
	}

	switch env.Type {
	case KindStandardScaler:
		var s StandardScaler
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("failed to decode standard scaler: %w", err)
		}
		if err := s.validate(); err != nil {
			return nil, err
		}
		return &s, nil
	case KindMinMaxScaler:
		var s MinMaxScaler
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("failed to decode minmax scaler: %w", err)
		}
		if err := s.validate(); err != nil {
			return nil, err
		}
		return &s, nil
	case "":
		return nil, fmt.Errorf("scaler type is missing")
	default:
		return nil, fmt.Errorf("unsupported scaler type %q", env.Type)
	}
}

func checkWidth(row []float64, want int) error {
	if len(row) != want {
		return fmt.Errorf("expected %d features, got %d", want, len(row))
	}
	return nil
}

func checkFinite(name string, values []float64) error {
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%s[%d] is not finite", name, i)
		}
	}
	return nil
}

// argmax returns the index of the largest value; ties go to the lowest index
func argmax(values []float64) int {
	best := 0
	for i := 1; i < len(values); i++ {
		if values[i] > values[best] {
			best = i
		}
	}
	return best
}
