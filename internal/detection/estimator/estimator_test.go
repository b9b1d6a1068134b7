package estimator

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeClassifier_LogisticRegression(t *testing.T) {
	m, err := DecodeClassifier([]byte(`{"type":"logistic_regression","coef":[1,-1],"intercept":0}`))
	require.NoError(t, err)
	assert.Equal(t, 2, m.NumFeatures())
	assert.Equal(t, 2, m.NumClasses())

	probs, err := m.PredictProba([]float64{2, 0})
	require.NoError(t, err)
	require.Len(t, probs, 2)
	assert.InDelta(t, 1/(1+math.Exp(-2)), probs[1], 1e-12)
	assert.InDelta(t, 1.0, probs[0]+probs[1], 1e-12)

	cls, err := m.Predict([]float64{2, 0})
	require.NoError(t, err)
	assert.Equal(t, 1, cls)

	// decision exactly zero falls to class 0
	cls, err = m.Predict([]float64{1, 1})
	require.NoError(t, err)
	assert.Equal(t, 0, cls)

	_, err = m.PredictProba([]float64{1})
	assert.Error(t, err)
}

func TestSigmoid_LargeMagnitudes(t *testing.T) {
	assert.InDelta(t, 1.0, sigmoid(800), 1e-12)
	assert.InDelta(t, 0.0, sigmoid(-800), 1e-12)
	assert.False(t, math.IsNaN(sigmoid(-800)))
}

const forestJSON = `{
  "type": "random_forest",
  "n_features": 2,
  "n_classes": 2,
  "trees": [
    {
      "children_left":  [1, -1, -1],
      "children_right": [2, -1, -1],
      "feature":        [0, -2, -2],
      "threshold":      [0.5, -2, -2],
      "value":          [[10, 10], [9, 1], [1, 9]]
    },
    {
      "children_left":  [1, -1, -1],
      "children_right": [2, -1, -1],
      "feature":        [1, -2, -2],
      "threshold":      [3.0, -2, -2],
      "value":          [[4, 4], [0.5, 0.5], [0, 1]]
    }
  ]
}`

func TestDecodeClassifier_RandomForest(t *testing.T) {
	m, err := DecodeClassifier([]byte(forestJSON))
	require.NoError(t, err)
	assert.Equal(t, 2, m.NumFeatures())

	tests := []struct {
		name string
		row  []float64
		p1   float64
		cls  int
	}{
		{"both left", []float64{0.5, 3.0}, (0.1 + 0.5) / 2, 0},
		{"both right", []float64{1, 4}, (0.9 + 1.0) / 2, 1},
		{"split", []float64{1, 0}, (0.9 + 0.5) / 2, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			probs, err := m.PredictProba(tt.row)
			require.NoError(t, err)
			assert.InDelta(t, tt.p1, probs[1], 1e-12)
			assert.InDelta(t, 1.0, probs[0]+probs[1], 1e-12)

			cls, err := m.Predict(tt.row)
			require.NoError(t, err)
			assert.Equal(t, tt.cls, cls)
		})
	}
}

func TestDecodeClassifier_RandomForestInvalid(t *testing.T) {
	cases := map[string]string{
		"no trees":       `{"type":"random_forest","n_features":2,"n_classes":2,"trees":[]}`,
		"one class":      `{"type":"random_forest","n_features":2,"n_classes":1,"trees":[]}`,
		"backward child": `{"type":"random_forest","n_features":1,"n_classes":2,"trees":[{"children_left":[0],"children_right":[0],"feature":[0],"threshold":[1],"value":[[1,1]]}]}`,
		"bad feature":    `{"type":"random_forest","n_features":1,"n_classes":2,"trees":[{"children_left":[1,-1,-1],"children_right":[2,-1,-1],"feature":[5,-2,-2],"threshold":[1,0,0],"value":[[1,1],[1,0],[0,1]]}]}`,
		"empty leaf":     `{"type":"random_forest","n_features":1,"n_classes":2,"trees":[{"children_left":[-1],"children_right":[-1],"feature":[-2],"threshold":[-2],"value":[[0,0]]}]}`,
	}
	for name, data := range cases {
		_, err := DecodeClassifier([]byte(data))
		assert.Error(t, err, name)
	}
}

func TestDecodeClassifier_UnknownType(t *testing.T) {
	_, err := DecodeClassifier([]byte(`{"type":"svm"}`))
	assert.ErrorContains(t, err, "unsupported classifier type")

	_, err = DecodeClassifier([]byte(`{}`))
	assert.ErrorContains(t, err, "missing")

	_, err = DecodeClassifier([]byte(`not json`))
	assert.Error(t, err)
}

func TestDecodeScaler_Standard(t *testing.T) {
	s, err := DecodeScaler([]byte(`{"type":"standard","mean":[1,2],"scale":[2,4]}`))
	require.NoError(t, err)
	assert.Equal(t, 2, s.NumFeatures())

	row := []float64{3, 10}
	out, err := s.Transform(row)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, out)
	assert.Equal(t, []float64{3, 10}, row, "input row must not be modified")

	_, err = s.Transform([]float64{1})
	assert.Error(t, err)
}

func TestDecodeScaler_StandardWithoutMean(t *testing.T) {
	s, err := DecodeScaler([]byte(`{"type":"standard","scale":[2,4]}`))
	require.NoError(t, err)
	out, err := s.Transform([]float64{4, 4})
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 1}, out)
}

func TestDecodeScaler_MinMax(t *testing.T) {
	s, err := DecodeScaler([]byte(`{"type":"minmax","min":[0,-1],"scale":[0.5,0.1]}`))
	require.NoError(t, err)
	out, err := s.Transform([]float64{2, 20})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{1, 1}, out, 1e-12)
}

func TestDecodeScaler_Invalid(t *testing.T) {
	cases := []string{
		`{"type":"standard"}`,
		`{"type":"standard","mean":[1],"scale":[1,2]}`,
		`{"type":"standard","scale":[0]}`,
		`{"type":"minmax","min":[1],"scale":[]}`,
		`{"type":"robust"}`,
	}
	for _, data := range cases {
		_, err := DecodeScaler([]byte(data))
		assert.Error(t, err, data)
	}
}

func TestLabelEncoder(t *testing.T) {
	e, err := DecodeLabelEncoder([]byte(`{"classes":["Benign","Malware"]}`))
	require.NoError(t, err)
	require.NotNil(t, e)

	label, err := e.InverseTransform(1)
	require.NoError(t, err)
	assert.Equal(t, "Malware", label)

	code, err := e.Transform("Benign")
	require.NoError(t, err)
	assert.Equal(t, 0, code)

	_, err = e.InverseTransform(2)
	assert.Error(t, err)
	_, err = e.Transform("Adware")
	assert.Error(t, err)
}

func TestDecodeLabelEncoder_Null(t *testing.T) {
	e, err := DecodeLabelEncoder([]byte(" null\n"))
	require.NoError(t, err)
	assert.Nil(t, e)

	_, err = DecodeLabelEncoder([]byte(""))
	assert.Error(t, err)

	_, err = DecodeLabelEncoder([]byte(`{"classes":["a","a"]}`))
	assert.Error(t, err)
}

func TestDecodeLabelEncoders(t *testing.T) {
	encs, err := DecodeLabelEncoders([]byte(`{"family":{"classes":["locky","wannacry"]},"unused":null}`))
	require.NoError(t, err)
	assert.Len(t, encs, 1)
	assert.Equal(t, []string{"locky", "wannacry"}, encs["family"].Classes)

	encs, err = DecodeLabelEncoders([]byte(`null`))
	require.NoError(t, err)
	assert.Empty(t, encs)
}
