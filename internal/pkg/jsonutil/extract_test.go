package jsonutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractJSON_Bare(t *testing.T) {
	out, ok := ExtractJSON(`{"direction":"LONG","conviction":0.62}`)
	assert.True(t, ok)
	assert.Equal(t, `{"direction":"LONG","conviction":0.62}`, out)
}

func TestExtractJSON_Fenced(t *testing.T) {
	raw := "Here is my decision:\n```json\n{\"direction\":\"SHORT\"}\n```\nGood luck."
	out, ok := ExtractJSON(raw)
	assert.True(t, ok)
	assert.Equal(t, `{"direction":"SHORT"}`, out)
}

func TestExtractJSON_SurroundingProse(t *testing.T) {
	raw := `Based on the analysis {"direction":"NO_POSITION","reasoning":"choppy {range}"} end`
	out, ok := ExtractJSON(raw)
	assert.True(t, ok)
	assert.Equal(t, `{"direction":"NO_POSITION","reasoning":"choppy {range}"}`, out)
}

func TestExtractJSON_BracesInsideStrings(t *testing.T) {
	raw := `{"reasoning":"support at {48k}, resistance \"above\""}`
	out, ok := ExtractJSON(raw)
	assert.True(t, ok)
	assert.Equal(t, raw, out)
}

func TestExtractJSON_None(t *testing.T) {
	_, ok := ExtractJSON("no json here")
	assert.False(t, ok)
	_, ok = ExtractJSON("")
	assert.False(t, ok)
}
