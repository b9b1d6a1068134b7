package scoring_test

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ransomguard/internal/detection/scoring"
	"ransomguard/internal/detection/scoring/scoringtest"
	"ransomguard/internal/domain/models"
	"ransomguard/pkg/logger"
)

func TestLoadArtifacts(t *testing.T) {
	dir := t.TempDir()
	scoringtest.WriteArtifacts(t, dir, nil)

	bundle, err := scoring.LoadArtifacts(dir)
	require.NoError(t, err)

	assert.Equal(t, scoring.Schema(models.CounterNames), bundle.Features)
	assert.Equal(t, len(models.CounterNames), bundle.Classifier.NumFeatures())
	assert.Equal(t, len(models.CounterNames), bundle.Scaler.NumFeatures())
	assert.Empty(t, bundle.LabelEncoders)
	assert.NotNil(t, bundle.TargetEncoder)
	assert.Equal(t, dir, bundle.Dir)
	assert.Len(t, bundle.Version, 12)
	assert.Contains(t, bundle.Describe(), "18 features")
}

func TestLoadArtifacts_NullTargetEncoder(t *testing.T) {
	dir := t.TempDir()
	scoringtest.WriteArtifacts(t, dir, map[string]string{
		scoring.TargetEncoderFile: "null",
	})

	bundle, err := scoring.LoadArtifacts(dir)
	require.NoError(t, err)
	assert.Nil(t, bundle.TargetEncoder)
	assert.Contains(t, bundle.Describe(), "target encoder none")

	// without a target encoder the fallback labels apply
	v, err := scoring.Score(scoring.FeatureVector{models.FeatureNetworkThreats: 20}, bundle)
	require.NoError(t, err)
	assert.Equal(t, models.LabelBenign, v.Prediction)
	assert.Equal(t, models.RiskLevelHigh, v.RiskLevel)
}

func TestLoadArtifacts_VersionTracksContent(t *testing.T) {
	a, b := t.TempDir(), t.TempDir()
	scoringtest.WriteArtifacts(t, a, nil)
	scoringtest.WriteArtifacts(t, b, map[string]string{
		scoring.TargetEncoderFile: `{"classes":["benign","ransomware"]}`,
	})

	first, err := scoring.LoadArtifacts(a)
	require.NoError(t, err)
	second, err := scoring.LoadArtifacts(b)
	require.NoError(t, err)
	again, err := scoring.LoadArtifacts(a)
	require.NoError(t, err)

	assert.NotEqual(t, first.Version, second.Version)
	assert.Equal(t, first.Version, again.Version)
}

func TestLoadArtifacts_Failures(t *testing.T) {
	tests := []struct {
		name      string
		overrides map[string]string
		artifact  string
	}{
		{"missing model", map[string]string{scoring.ModelFile: "-"}, scoring.ArtifactModel},
		{"missing scaler", map[string]string{scoring.ScalerFile: "-"}, scoring.ArtifactScaler},
		{"missing feature names", map[string]string{scoring.FeatureNamesFile: "-"}, scoring.ArtifactFeatureNames},
		{"missing label encoders", map[string]string{scoring.LabelEncodersFile: "-"}, scoring.ArtifactLabelEncoders},
		{"missing target encoder", map[string]string{scoring.TargetEncoderFile: "-"}, scoring.ArtifactTargetEncoder},
		{"corrupt model", map[string]string{scoring.ModelFile: "{not json"}, scoring.ArtifactModel},
		{"unknown model type", map[string]string{scoring.ModelFile: `{"type":"svm"}`}, scoring.ArtifactModel},
		{"corrupt scaler", map[string]string{scoring.ScalerFile: ""}, scoring.ArtifactScaler},
		{"corrupt feature names", map[string]string{scoring.FeatureNamesFile: `{"a":1}`}, scoring.ArtifactFeatureNames},
		{"empty target encoder", map[string]string{scoring.TargetEncoderFile: ""}, scoring.ArtifactTargetEncoder},
		{"width mismatch", map[string]string{scoring.FeatureNamesFile: `["registry_read","registry_write"]`}, scoring.ArtifactBundle},
		{"duplicate feature", map[string]string{
			scoring.FeatureNamesFile: `["a","a","c","d","e","f","g","h","i","j","k","l","m","n","o","p","q","r"]`,
		}, scoring.ArtifactBundle},
		{"target encoder too small", map[string]string{scoring.TargetEncoderFile: `{"classes":["Benign"]}`}, scoring.ArtifactBundle},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			scoringtest.WriteArtifacts(t, dir, tt.overrides)

			bundle, err := scoring.LoadArtifacts(dir)
			require.Error(t, err)
			assert.Nil(t, bundle)

			var le *scoring.LoadError
			require.True(t, errors.As(err, &le), "expected LoadError, got %v", err)
			assert.Equal(t, tt.artifact, le.Artifact)
			assert.NotEmpty(t, le.Path)
		})
	}
}

func TestEngine_Unavailable(t *testing.T) {
	engine := scoring.LoadEngine(t.TempDir(), logger.NewNop())

	assert.False(t, engine.Available())
	assert.Nil(t, engine.Bundle())

	var le *scoring.LoadError
	require.True(t, errors.As(engine.LoadErr(), &le))
	assert.Equal(t, scoring.ArtifactModel, le.Artifact)

	_, err := engine.Score(scoring.FeatureVector{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, scoring.ErrModelUnavailable))
	assert.True(t, errors.As(err, &le))
}

func TestEngine_Reload(t *testing.T) {
	good := t.TempDir()
	scoringtest.WriteArtifacts(t, good, nil)

	engine := scoring.LoadEngine(good, logger.NewNop())
	require.True(t, engine.Available())
	before := engine.Bundle()

	broken := t.TempDir()
	scoringtest.WriteArtifacts(t, broken, map[string]string{scoring.ScalerFile: "-"})

	_, err := engine.Reload(broken)
	require.Error(t, err)
	assert.True(t, engine.Available())
	assert.Same(t, before, engine.Bundle())
	assert.NoError(t, engine.LoadErr())

	v, err := engine.Score(scoring.FeatureVector{models.FeatureRegistryTotal: 3})
	require.NoError(t, err)
	assert.Equal(t, models.RiskLevelLow, v.RiskLevel)

	next := t.TempDir()
	scoringtest.WriteArtifacts(t, next, map[string]string{scoring.TargetEncoderFile: "null"})

	bundle, err := engine.Reload(next)
	require.NoError(t, err)
	assert.Same(t, bundle, engine.Bundle())
	assert.NotSame(t, before, engine.Bundle())
}

func TestEngine_ReloadRecoversFromUnavailable(t *testing.T) {
	dir := t.TempDir()
	engine := scoring.LoadEngine(dir, logger.NewNop())
	require.False(t, engine.Available())

	scoringtest.WriteArtifacts(t, dir, nil)
	_, err := engine.Reload(dir)
	require.NoError(t, err)

	assert.True(t, engine.Available())
	assert.NoError(t, engine.LoadErr())

	_, err = engine.Score(scoring.FeatureVector{})
	assert.NoError(t, err)
}

func TestNewEngine(t *testing.T) {
	bundle := scoringtest.FixedBundle(t, 1, 0.2, 0.8, nil)
	engine := scoring.NewEngine(bundle, logger.NewNop())

	v, err := engine.Score(scoring.FeatureVector{})
	require.NoError(t, err)
	assert.Equal(t, models.RiskLevelHigh, v.RiskLevel)
	assert.InDelta(t, 80.0, v.Confidence, 1e-9)
}
