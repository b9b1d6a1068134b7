package scoring_test

import (
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ransomguard/internal/detection/estimator"
	"ransomguard/internal/detection/scoring"
	"ransomguard/internal/detection/scoring/scoringtest"
	"ransomguard/internal/domain/models"
)

func TestAlign(t *testing.T) {
	schema := scoring.Schema{"a", "b", "c"}

	row, err := scoring.Align(scoring.FeatureVector{
		"c":     int64(3),
		"a":     "1.5",
		"extra": "not a number",
	}, schema)
	require.NoError(t, err)
	assert.Equal(t, []float64{1.5, 0, 3}, row)

	row, err = scoring.Align(scoring.FeatureVector{}, schema)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 0}, row)

	row, err = scoring.Align(scoring.FeatureVector{"b": nil, "c": true}, schema)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 1}, row)
}

func TestAlign_InvalidValues(t *testing.T) {
	schema := scoring.Schema{"a"}

	tests := []struct {
		name  string
		value any
	}{
		{"text", "abc"},
		{"nan", math.NaN()},
		{"inf", math.Inf(1)},
		{"slice", []int{1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := scoring.Align(scoring.FeatureVector{"a": tt.value}, schema)
			require.Error(t, err)

			var ife *scoring.InvalidFeatureError
			require.ErrorAs(t, err, &ife)
			assert.Equal(t, "a", ife.Feature)
		})
	}
}

func TestRiskLevelFor(t *testing.T) {
	tests := []struct {
		prob float64
		want models.RiskLevel
	}{
		{0, models.RiskLevelLow},
		{0.05, models.RiskLevelLow},
		{0.4, models.RiskLevelLow},
		{0.40001, models.RiskLevelMedium},
		{0.55, models.RiskLevelMedium},
		{0.7, models.RiskLevelMedium},
		{0.70001, models.RiskLevelHigh},
		{0.9, models.RiskLevelHigh},
		{1, models.RiskLevelHigh},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, scoring.RiskLevelFor(tt.prob), "probability %v", tt.prob)
	}
}

func TestResolveLabel(t *testing.T) {
	label, err := scoring.ResolveLabel(1, nil)
	require.NoError(t, err)
	assert.Equal(t, models.LabelBenign, label)

	label, err = scoring.ResolveLabel(0, nil)
	require.NoError(t, err)
	assert.Equal(t, models.LabelMalware, label)

	enc := &estimator.LabelEncoder{Classes: []string{"Benign", "Ransomware"}}
	label, err = scoring.ResolveLabel(1, enc)
	require.NoError(t, err)
	assert.Equal(t, "Ransomware", label)

	_, err = scoring.ResolveLabel(5, enc)
	var ife *scoring.InvalidFeatureError
	assert.ErrorAs(t, err, &ife)
}

func TestRecommendationFor(t *testing.T) {
	assert.Equal(t, models.RecommendationAllow, scoring.RecommendationFor(0))
	assert.Equal(t, models.RecommendationQuarantine, scoring.RecommendationFor(1))
}

func TestDetailsFor(t *testing.T) {
	d, err := scoring.DetailsFor(scoring.FeatureVector{models.FeatureRegistryTotal: 6})
	require.NoError(t, err)
	assert.Equal(t, models.VerdictDetails{HighRegistryActivity: true}, d)

	d, err = scoring.DetailsFor(scoring.FeatureVector{
		models.FeatureRegistryTotal:      5,
		models.FeatureNetworkThreats:     "1",
		models.FeatureProcessesMalicious: 2.0,
		models.FeatureFilesMalicious:     int64(1),
	})
	require.NoError(t, err)
	assert.Equal(t, models.VerdictDetails{
		SuspiciousNetwork:  true,
		MaliciousProcesses: true,
		SuspiciousFiles:    true,
	}, d)

	d, err = scoring.DetailsFor(scoring.FeatureVector{})
	require.NoError(t, err)
	assert.Equal(t, models.VerdictDetails{}, d)
}

func TestPostProcess_NonBinary(t *testing.T) {
	_, err := scoring.PostProcess(0, []float64{0.2, 0.3, 0.5}, nil, nil)
	var ife *scoring.InvalidFeatureError
	assert.ErrorAs(t, err, &ife)
}

func TestScore_BenignProfile(t *testing.T) {
	bundle := scoringtest.FixedBundle(t, 0, 0.95, 0.05, nil)

	v, err := scoring.Score(scoring.FeatureVector{
		models.FeatureRegistryRead:  2,
		models.FeatureRegistryTotal: 3,
		models.FeatureAPIs:          40,
	}, bundle)
	require.NoError(t, err)

	assert.Equal(t, models.LabelMalware, v.Prediction)
	assert.Equal(t, models.RiskLevelLow, v.RiskLevel)
	assert.Equal(t, models.RecommendationAllow, v.Recommendation)
	assert.InDelta(t, 95.0, v.Confidence, 1e-9)
	assert.InDelta(t, 5.0, v.MalwareProbability, 1e-9)
	assert.InDelta(t, 95.0, v.BenignProbability, 1e-9)
	assert.Equal(t, models.VerdictDetails{}, v.Details)
}

func TestScore_MalwareProfile(t *testing.T) {
	bundle := scoringtest.FixedBundle(t, 1, 0.1, 0.9, nil)

	v, err := scoring.Score(scoring.FeatureVector{
		models.FeatureRegistryTotal:      26,
		models.FeatureNetworkThreats:     3,
		models.FeatureProcessesMalicious: 2,
		models.FeatureFilesMalicious:     4,
	}, bundle)
	require.NoError(t, err)

	assert.Equal(t, models.LabelBenign, v.Prediction)
	assert.Equal(t, models.RiskLevelHigh, v.RiskLevel)
	assert.Equal(t, models.RecommendationQuarantine, v.Recommendation)
	assert.InDelta(t, 90.0, v.Confidence, 1e-9)
	assert.InDelta(t, 90.0, v.MalwareProbability, 1e-9)
	assert.InDelta(t, 10.0, v.BenignProbability, 1e-9)
	assert.Equal(t, models.VerdictDetails{
		HighRegistryActivity: true,
		SuspiciousNetwork:    true,
		MaliciousProcesses:   true,
		SuspiciousFiles:      true,
	}, v.Details)
}

func TestScore_TargetEncoder(t *testing.T) {
	enc := &estimator.LabelEncoder{Classes: []string{"Benign", "Malware"}}
	bundle := scoringtest.FixedBundle(t, 1, 0.3, 0.7, enc)

	v, err := scoring.Score(scoring.FeatureVector{}, bundle)
	require.NoError(t, err)
	assert.Equal(t, "Malware", v.Prediction)
	assert.Equal(t, models.RiskLevelMedium, v.RiskLevel)
	assert.InDelta(t, 70.0, v.Confidence, 1e-9)
}

func TestScore_ConfidenceIsMaxProbability(t *testing.T) {
	for _, p1 := range []float64{0, 0.25, 0.5, 0.75, 1} {
		bundle := scoringtest.FixedBundle(t, 0, 1-p1, p1, nil)
		v, err := scoring.Score(scoring.FeatureVector{}, bundle)
		require.NoError(t, err)

		assert.InDelta(t, 100.0, v.MalwareProbability+v.BenignProbability, 1e-9)
		assert.InDelta(t, math.Max(v.MalwareProbability, v.BenignProbability), v.Confidence, 1e-9)
		assert.GreaterOrEqual(t, v.Confidence, 50.0)
	}
}

func TestScore_InvalidFeature(t *testing.T) {
	bundle := scoringtest.FixedBundle(t, 0, 0.5, 0.5, nil)

	_, err := scoring.Score(scoring.FeatureVector{models.FeatureAPIs: "many"}, bundle)
	var ife *scoring.InvalidFeatureError
	require.ErrorAs(t, err, &ife)
	assert.Equal(t, models.FeatureAPIs, ife.Feature)
}

func TestScore_NilBundle(t *testing.T) {
	_, err := scoring.Score(scoring.FeatureVector{}, nil)
	assert.True(t, errors.Is(err, scoring.ErrModelUnavailable))
}

func TestScore_RealModel(t *testing.T) {
	dir := t.TempDir()
	scoringtest.WriteArtifacts(t, dir, nil)

	bundle, err := scoring.LoadArtifacts(dir)
	require.NoError(t, err)

	benign, err := scoring.Score(scoring.FeatureVector{
		models.FeatureRegistryRead:  2,
		models.FeatureRegistryTotal: 3,
	}, bundle)
	require.NoError(t, err)
	assert.Equal(t, "Benign", benign.Prediction)
	assert.Equal(t, models.RiskLevelLow, benign.RiskLevel)
	assert.Equal(t, models.RecommendationAllow, benign.Recommendation)

	malware, err := scoring.Score(scoring.FeatureVector{
		models.FeatureRegistryTotal:       26,
		models.FeatureNetworkThreats:      3,
		models.FeatureProcessesMalicious:  2,
		models.FeatureProcessesSuspicious: 3,
		models.FeatureFilesMalicious:      4,
		models.FeatureFilesSuspicious:     3,
	}, bundle)
	require.NoError(t, err)
	assert.Equal(t, "Malware", malware.Prediction)
	assert.Equal(t, models.RiskLevelHigh, malware.RiskLevel)
	assert.Equal(t, models.RecommendationQuarantine, malware.Recommendation)
}
