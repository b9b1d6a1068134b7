package handlers

import (
	"encoding/json"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ransomguard/internal/domain/models"
)

func TestCountersFromForm(t *testing.T) {
	form := url.Values{}
	form.Set(models.FeatureRegistryRead, "12")
	form.Set(models.FeatureTotalProcesses, " 7 ")
	form.Set(models.FeatureAPIs, "")
	form.Set("unrelated", "-5")

	c, err := countersFromForm(form)
	require.NoError(t, err)
	assert.Equal(t, int64(12), c.RegistryRead)
	assert.Equal(t, int64(7), c.TotalProcesses)
	assert.Zero(t, c.APIs)
	assert.Zero(t, c.NetworkDNS)
}

func TestCountersFromForm_Invalid(t *testing.T) {
	for _, raw := range []string{"-1", "2.5", "abc", "1e3"} {
		form := url.Values{}
		form.Set(models.FeatureDLLCalls, raw)

		_, err := countersFromForm(form)
		var ce *CounterError
		require.ErrorAs(t, err, &ce, raw)
		assert.Equal(t, models.FeatureDLLCalls, ce.Field)
	}
}

func decodeBody(t *testing.T, body string) map[string]any {
	t.Helper()
	var m map[string]any
	dec := json.NewDecoder(strings.NewReader(body))
	dec.UseNumber()
	require.NoError(t, dec.Decode(&m))
	return m
}

func TestCountersFromJSON(t *testing.T) {
	c, err := countersFromJSON(decodeBody(t, `{"registry_write":3,"network_http":"4","files_text":2.0,"apis":null,"extra":"ignored"}`))
	require.NoError(t, err)
	assert.Equal(t, int64(3), c.RegistryWrite)
	assert.Equal(t, int64(4), c.NetworkHTTP)
	assert.Equal(t, int64(2), c.FilesText)
	assert.Zero(t, c.APIs)
}

func TestCountersFromJSON_Invalid(t *testing.T) {
	tests := map[string]string{
		"negative": `{"apis":-2}`,
		"fraction": `{"apis":0.5}`,
		"string":   `{"apis":"lots"}`,
		"bool":     `{"apis":false}`,
		"object":   `{"apis":{}}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := countersFromJSON(decodeBody(t, body))
			var ce *CounterError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, models.FeatureAPIs, ce.Field)
		})
	}
}
