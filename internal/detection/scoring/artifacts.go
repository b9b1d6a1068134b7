package scoring

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	"ransomguard/internal/detection/estimator"
)

// DefaultArtifactDir is used when no artifact directory is configured
const DefaultArtifactDir = "ml_models"

// Artifact file names inside the artifact directory
const (
	ModelFile         = "ransomware_detection_model_data2.json"
	ScalerFile        = "scaler_data2.json"
	FeatureNamesFile  = "feature_names_data2.json"
	LabelEncodersFile = "label_encoders_data2.json"
	TargetEncoderFile = "target_encoder_data2.json"
)

// Artifact names used in LoadError
const (
	ArtifactModel         = "model"
	ArtifactScaler        = "scaler"
	ArtifactFeatureNames  = "feature names"
	ArtifactLabelEncoders = "label encoders"
	ArtifactTargetEncoder = "target encoder"
	ArtifactBundle        = "bundle"
)

// Schema is the ordered feature list a trained model expects
type Schema []string

// LabelDecoder maps a predicted class index back to its label
type LabelDecoder interface {
	InverseTransform(code int) (string, error)
}

// Bundle is an immutable, co-versioned set of fitted artifacts. It is safe
// for concurrent use as long as its classifier and scaler are read-only.
type Bundle struct {
	Classifier    estimator.Classifier
	Scaler        estimator.Scaler
	Features      Schema
	LabelEncoders estimator.LabelEncoders
	TargetEncoder LabelDecoder // nil when the model was trained without one

	Dir      string
	Version  string
	LoadedAt time.Time
}

// NewBundle validates the parts and assembles a bundle
func NewBundle(clf estimator.Classifier, scaler estimator.Scaler, features Schema, encoders estimator.LabelEncoders, target LabelDecoder) (*Bundle, error) {
	b := &Bundle{
		Classifier:    clf,
		Scaler:        scaler,
		Features:      append(Schema(nil), features...),
		LabelEncoders: encoders,
		TargetEncoder: target,
		LoadedAt:      time.Now().UTC(),
	}
	if b.LabelEncoders == nil {
		b.LabelEncoders = estimator.LabelEncoders{}
	}
	if err := b.validate(); err != nil {
		return nil, &LoadError{Artifact: ArtifactBundle, Err: err}
	}
	return b, nil
}

func (b *Bundle) validate() error {
	if b.Classifier == nil {
		return errors.New("classifier is missing")
	}
	if b.Scaler == nil {
		return errors.New("scaler is missing")
	}
	if len(b.Features) == 0 {
		return errors.New("feature schema is empty")
	}
	seen := make(map[string]struct{}, len(b.Features))
	for _, name := range b.Features {
		if name == "" {
			return errors.New("feature schema has an empty name")
		}
		if _, dup := seen[name]; dup {
			return errors.Errorf("feature %q appears twice in the schema", name)
		}
		seen[name] = struct{}{}
	}
	if n := b.Scaler.NumFeatures(); n != len(b.Features) {
		return errors.Errorf("scaler expects %d features, schema has %d", n, len(b.Features))
	}
	if n := b.Classifier.NumFeatures(); n != len(b.Features) {
		return errors.Errorf("classifier expects %d features, schema has %d", n, len(b.Features))
	}
	if n := b.Classifier.NumClasses(); n != 2 {
		return errors.Errorf("classifier has %d classes, only binary models are supported", n)
	}
	if b.TargetEncoder != nil {
		for code := 0; code < b.Classifier.NumClasses(); code++ {
			if _, err := b.TargetEncoder.InverseTransform(code); err != nil {
				return errors.Wrap(err, "target encoder does not cover the classifier classes")
			}
		}
	}
	return nil
}

// LoadArtifacts reads the five artifact files from dir. Any missing or
// corrupt file fails the whole load; no partial bundle is returned.
func LoadArtifacts(dir string) (*Bundle, error) {
	if dir == "" {
		dir = DefaultArtifactDir
	}

	hash := sha256.New()
	read := func(artifact, name string) ([]byte, string, error) {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, path, &LoadError{Artifact: artifact, Path: path, Err: errors.Wrap(err, "read failed")}
		}
		hash.Write(data)
		return data, path, nil
	}

	data, path, err := read(ArtifactModel, ModelFile)
	if err != nil {
		return nil, err
	}
	clf, err := estimator.DecodeClassifier(data)
	if err != nil {
		return nil, &LoadError{Artifact: ArtifactModel, Path: path, Err: errors.WithStack(err)}
	}

	data, path, err = read(ArtifactScaler, ScalerFile)
	if err != nil {
		return nil, err
	}
	scaler, err := estimator.DecodeScaler(data)
	if err != nil {
		return nil, &LoadError{Artifact: ArtifactScaler, Path: path, Err: errors.WithStack(err)}
	}

	data, path, err = read(ArtifactFeatureNames, FeatureNamesFile)
	if err != nil {
		return nil, err
	}
	var features Schema
	if err := json.Unmarshal(data, &features); err != nil {
		return nil, &LoadError{Artifact: ArtifactFeatureNames, Path: path, Err: errors.Wrap(err, "decode failed")}
	}

	data, path, err = read(ArtifactLabelEncoders, LabelEncodersFile)
	if err != nil {
		return nil, err
	}
	encoders, err := estimator.DecodeLabelEncoders(data)
	if err != nil {
		return nil, &LoadError{Artifact: ArtifactLabelEncoders, Path: path, Err: errors.WithStack(err)}
	}

	data, path, err = read(ArtifactTargetEncoder, TargetEncoderFile)
	if err != nil {
		return nil, err
	}
	targetEnc, err := estimator.DecodeLabelEncoder(data)
	if err != nil {
		return nil, &LoadError{Artifact: ArtifactTargetEncoder, Path: path, Err: errors.WithStack(err)}
	}

	// keep a nil *LabelEncoder out of the interface
	var target LabelDecoder
	if targetEnc != nil {
		target = targetEnc
	}

	bundle, err := NewBundle(clf, scaler, features, encoders, target)
	if err != nil {
		var le *LoadError
		if errors.As(err, &le) {
			le.Path = dir
		}
		return nil, err
	}
	bundle.Dir = dir
	bundle.Version = hex.EncodeToString(hash.Sum(nil))[:12]
	return bundle, nil
}

// Describe returns a short human-readable description of the bundle
func (b *Bundle) Describe() string {
	target := "none"
	if b.TargetEncoder != nil {
		target = "present"
	}
	return fmt.Sprintf("%d features, target encoder %s, version %s", len(b.Features), target, b.Version)
}
