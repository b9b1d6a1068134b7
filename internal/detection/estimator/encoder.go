package estimator

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// LabelEncoder maps between class labels and their integer codes.
// Code i is Classes[i].
type LabelEncoder struct {
	Classes []string `json:"classes"`
}

// Transform returns the code of a label
func (e *LabelEncoder) Transform(label string) (int, error) {
	for i, c := range e.Classes {
		if c == label {
			return i, nil
		}
	}
	return 0, fmt.Errorf("label %q was not seen during training", label)
}

// InverseTransform returns the label for a code
func (e *LabelEncoder) InverseTransform(code int) (string, error) {
	if code < 0 || code >= len(e.Classes) {
		return "", fmt.Errorf("code %d is outside the %d known classes", code, len(e.Classes))
	}
	return e.Classes[code], nil
}

func (e *LabelEncoder) validate() error {
	if len(e.Classes) == 0 {
		return fmt.Errorf("label encoder has no classes")
	}
	seen := make(map[string]struct{}, len(e.Classes))
	for _, c := range e.Classes {
		if _, dup := seen[c]; dup {
			return fmt.Errorf("label encoder class %q is duplicated", c)
		}
		seen[c] = struct{}{}
	}
	return nil
}

// LabelEncoders holds the categorical encoders keyed by feature name
type LabelEncoders map[string]*LabelEncoder

// DecodeLabelEncoder decodes a target encoder. A JSON null yields (nil, nil).
func DecodeLabelEncoder(data []byte) (*LabelEncoder, error) {
	if isNull(data) {
		return nil, nil
	}
	var e LabelEncoder
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("failed to decode label encoder: %w", err)
	}
	if err := e.validate(); err != nil {
		return nil, err
	}
	return &e, nil
}

// DecodeLabelEncoders decodes the per-feature encoders. A JSON null yields an empty set.
func DecodeLabelEncoders(data []byte) (LabelEncoders, error) {
	encoders := LabelEncoders{}
	if isNull(data) {
		return encoders, nil
	}
	if err := json.Unmarshal(data, &encoders); err != nil {
		return nil, fmt.Errorf("failed to decode label encoders: %w", err)
	}
	for name, e := range encoders {
		if e == nil {
			delete(encoders, name)
			continue
		}
		if err := e.validate(); err != nil {
			return nil, fmt.Errorf("encoder %q: %w", name, err)
		}
	}
	return encoders, nil
}

func isNull(data []byte) bool {
	trimmed := bytes.TrimSpace(data)
	return bytes.Equal(trimmed, []byte("null"))
}
