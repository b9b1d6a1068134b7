// Package scoringtest provides artifact fixtures and estimator doubles for
// tests that need a scoring bundle.
package scoringtest

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"ransomguard/internal/detection/estimator"
	"ransomguard/internal/detection/scoring"
	"ransomguard/internal/domain/models"
)

// Classifier is a classifier double returning fixed outputs
type Classifier struct {
	Class int
	Proba []float64
	Width int
}

func (c *Classifier) Predict(row []float64) (int, error) { return c.Class, nil }

func (c *Classifier) PredictProba(row []float64) ([]float64, error) {
	return append([]float64(nil), c.Proba...), nil
}

func (c *Classifier) NumFeatures() int { return c.Width }
func (c *Classifier) NumClasses() int  { return 2 }

// IdentityScaler returns rows unchanged
type IdentityScaler struct {
	Width int
}

func (s *IdentityScaler) Transform(row []float64) ([]float64, error) {
	return append([]float64(nil), row...), nil
}

func (s *IdentityScaler) NumFeatures() int { return s.Width }

// FixedBundle builds a bundle over the standard counters whose classifier
// always predicts class with probabilities [p0, p1]. decoder may be nil.
func FixedBundle(t testing.TB, class int, p0, p1 float64, decoder scoring.LabelDecoder) *scoring.Bundle {
	t.Helper()
	width := len(models.CounterNames)
	b, err := scoring.NewBundle(
		&Classifier{Class: class, Proba: []float64{p0, p1}, Width: width},
		&IdentityScaler{Width: width},
		scoring.Schema(models.CounterNames),
		nil,
		decoder,
	)
	if err != nil {
		t.Fatalf("failed to build bundle: %v", err)
	}
	return b
}

// weights of the fixture logistic regression, by counter
var weights = map[string]float64{
	models.FeatureRegistryTotal:       1.0,
	models.FeatureNetworkThreats:      1.0,
	models.FeatureProcessesMalicious:  1.0,
	models.FeatureProcessesSuspicious: 0.5,
	models.FeatureFilesMalicious:      1.0,
	models.FeatureFilesSuspicious:     0.5,
}

// Artifacts returns the JSON files of a small working model keyed by file
// name. Benign-looking counters score low and malicious ones score high.
// The target encoder decodes 0 to "Benign" and 1 to "Malware".
func Artifacts() map[string]string {
	n := len(models.CounterNames)
	coef := make([]float64, n)
	mean := make([]float64, n)
	scale := make([]float64, n)
	for i, name := range models.CounterNames {
		coef[i] = weights[name]
		scale[i] = 1
	}
	// registry_total is centred on typical benign activity
	for i, name := range models.CounterNames {
		if name == models.FeatureRegistryTotal {
			mean[i] = 5
			scale[i] = 10
		}
	}

	return map[string]string{
		scoring.ModelFile: mustJSON(map[string]any{
			"type":      estimator.KindLogisticRegression,
			"coef":      coef,
			"intercept": -2.0,
		}),
		scoring.ScalerFile: mustJSON(map[string]any{
			"type":  estimator.KindStandardScaler,
			"mean":  mean,
			"scale": scale,
		}),
		scoring.FeatureNamesFile:  mustJSON(models.CounterNames),
		scoring.LabelEncodersFile: `{}`,
		scoring.TargetEncoderFile: `{"classes":["Benign","Malware"]}`,
	}
}

// WriteArtifacts writes the fixture artifacts into dir. overrides replace
// file contents; an override of "-" leaves the file out.
func WriteArtifacts(t testing.TB, dir string, overrides map[string]string) {
	t.Helper()
	files := Artifacts()
	for name, content := range overrides {
		files[name] = content
	}
	for name, content := range files {
		if content == "-" {
			continue
		}
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(b)
}
