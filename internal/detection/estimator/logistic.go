package estimator

import (
	"fmt"
	"math"
)

// LogisticRegression is a fitted binary logistic regression.
// P(class 1) = sigmoid(coef·x + intercept).
type LogisticRegression struct {
	Type      Kind      `json:"type"`
	Coef      []float64 `json:"coef"`
	Intercept float64   `json:"intercept"`
}

func (m *LogisticRegression) validate() error {
	if len(m.Coef) == 0 {
		return fmt.Errorf("logistic regression has no coefficients")
	}
	if err := checkFinite("coef", m.Coef); err != nil {
		return err
	}
	if math.IsNaN(m.Intercept) || math.IsInf(m.Intercept, 0) {
		return fmt.Errorf("intercept is not finite")
	}
	return nil
}

// NumFeatures returns the expected row width
func (m *LogisticRegression) NumFeatures() int { return len(m.Coef) }

// NumClasses is always 2
func (m *LogisticRegression) NumClasses() int { return 2 }

func (m *LogisticRegression) decision(row []float64) (float64, error) {
	if err := checkWidth(row, len(m.Coef)); err != nil {
		return 0, err
	}
	z := m.Intercept
	for i, w := range m.Coef {
		z += w * row[i]
	}
	return z, nil
}

// PredictProba returns [P(0), P(1)]
func (m *LogisticRegression) PredictProba(row []float64) ([]float64, error) {
	z, err := m.decision(row)
	if err != nil {
		return nil, err
	}
	p1 := sigmoid(z)
	return []float64{1 - p1, p1}, nil
}

// Predict returns 1 when the decision function is positive, otherwise 0
func (m *LogisticRegression) Predict(row []float64) (int, error) {
	z, err := m.decision(row)
	if err != nil {
		return 0, err
	}
	if z > 0 {
		return 1, nil
	}
	return 0, nil
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}
