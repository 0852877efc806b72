package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

func TestFilterValidSources(t *testing.T) {
	sources := map[string]string{
		"Macro": "https://feeds.example.com/macro.xml",
		"Tech":  "feeds.example.com/tech.xml",
		"Empty": "",
	}

	got := FilterValidSources(sources, arbor.NewLogger())

	assert.Equal(t, map[string]string{"Macro": "https://feeds.example.com/macro.xml"}, got)
	// Input is left untouched
	assert.Len(t, sources, 3)
}

func TestFilterValidSources_ThenValidate(t *testing.T) {
	config := NewDefaultConfig()
	config.Gemini.APIKey = "key"

	config.Sources = FilterValidSources(map[string]string{
		"Macro": "https://feeds.example.com/macro.xml",
		"Tech":  "feeds.example.com/tech.xml",
	}, arbor.NewLogger())
	require.NoError(t, config.Validate())
	assert.Len(t, config.Sources, 1)

	config.Sources = FilterValidSources(map[string]string{"Tech": "feeds.example.com/tech.xml"}, arbor.NewLogger())
	err := config.Validate()
	assert.ErrorIs(t, err, ErrNoSources)
	assert.Equal(t, ExitNoSources, ExitCode(err))
}
