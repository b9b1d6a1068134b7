package estimator

import (
	"fmt"
)

// StandardScaler standardizes each feature: (x - mean) / scale.
// A missing mean centers nothing; a missing scale divides by one.
type StandardScaler struct {
	Type  Kind      `json:"type"`
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
	Width int       `json:"n_features"`
}

func (s *StandardScaler) validate() error {
	if s.Width <= 0 {
		s.Width = max(len(s.Mean), len(s.Scale))
	}
	if s.Width == 0 {
		return fmt.Errorf("standard scaler has no features")
	}
	if s.Mean != nil && len(s.Mean) != s.Width {
		return fmt.Errorf("standard scaler mean has %d values, want %d", len(s.Mean), s.Width)
	}
	if s.Scale != nil && len(s.Scale) != s.Width {
		return fmt.Errorf("standard scaler scale has %d values, want %d", len(s.Scale), s.Width)
	}
	if err := checkFinite("mean", s.Mean); err != nil {
		return err
	}
	if err := checkFinite("scale", s.Scale); err != nil {
		return err
	}
	for i, v := range s.Scale {
		if v == 0 {
			return fmt.Errorf("standard scaler scale[%d] is zero", i)
		}
	}
	return nil
}

// NumFeatures returns the expected row width
func (s *StandardScaler) NumFeatures() int { return s.Width }

// Transform scales a single row into a new slice
func (s *StandardScaler) Transform(row []float64) ([]float64, error) {
	if err := checkWidth(row, s.Width); err != nil {
		return nil, err
	}
	out := make([]float64, len(row))
	for i, x := range row {
		if s.Mean != nil {
			x -= s.Mean[i]
		}
		if s.Scale != nil {
			x /= s.Scale[i]
		}
		out[i] = x
	}
	return out, nil
}

// MinMaxScaler maps each feature with x*scale + min
type MinMaxScaler struct {
	Type  Kind      `json:"type"`
	Min   []float64 `json:"min"`
	Scale []float64 `json:"scale"`
}

func (s *MinMaxScaler) validate() error {
	if len(s.Scale) == 0 {
		return fmt.Errorf("minmax scaler has no features")
	}
	if len(s.Min) != len(s.Scale) {
		return fmt.Errorf("minmax scaler min has %d values, want %d", len(s.Min), len(s.Scale))
	}
	if err := checkFinite("min", s.Min); err != nil {
		return err
	}
	return checkFinite("scale", s.Scale)
}

// NumFeatures returns the expected row width
func (s *MinMaxScaler) NumFeatures() int { return len(s.Scale) }

// Transform scales a single row into a new slice
func (s *MinMaxScaler) Transform(row []float64) ([]float64, error) {
	if err := checkWidth(row, len(s.Scale)); err != nil {
		return nil, err
	}
	out := make([]float64, len(row))
	for i, x := range row {
		out[i] = x*s.Scale[i] + s.Min[i]
	}
	return out, nil
}
