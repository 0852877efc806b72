package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/marketbrief/internal/common"
	"github.com/ternarybob/marketbrief/internal/interfaces"
)

func newTestFactory(provider common.LLMProvider) *ProviderFactory {
	config := common.NewDefaultConfig()
	config.LLM.DefaultProvider = provider
	return NewProviderFactory(&config.Gemini, &config.Claude, &config.LLM, arbor.NewLogger())
}

func TestProviderFactory_DetectProvider(t *testing.T) {
	factory := newTestFactory(common.LLMProviderGemini)

	tests := []struct {
		model string
		want  ProviderType
	}{
		{"", ProviderGemini},
		{"gemini-2.5-flash", ProviderGemini},
		{"google/gemini-2.5-pro", ProviderGemini},
		{"claude-sonnet-4-5", ProviderClaude},
		{"Claude/claude-haiku-4-5", ProviderClaude},
		{"anthropic/claude-opus-4-1", ProviderClaude},
		{"some-other-model", ProviderGemini},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			assert.Equal(t, tt.want, factory.DetectProvider(tt.model))
		})
	}

	assert.Equal(t, ProviderClaude, newTestFactory(common.LLMProviderClaude).DetectProvider(""))
}

func TestProviderFactory_NormalizeModel(t *testing.T) {
	factory := newTestFactory(common.LLMProviderGemini)

	assert.Equal(t, "gemini-2.5-flash", factory.NormalizeModel("gemini/gemini-2.5-flash"))
	assert.Equal(t, "claude-sonnet-4-5", factory.NormalizeModel("Anthropic/claude-sonnet-4-5"))
	assert.Equal(t, "gemini-2.5-flash", factory.NormalizeModel("gemini-2.5-flash"))
}

func TestProviderFactory_MissingKey(t *testing.T) {
	request := &interfaces.ContentRequest{
		Messages: []interfaces.Message{{Role: "user", Content: "hi"}},
	}

	_, err := newTestFactory(common.LLMProviderGemini).GenerateContent(context.Background(), request)
	assert.ErrorIs(t, err, common.ErrMissingAPIKey)

	_, err = newTestFactory(common.LLMProviderClaude).GenerateContent(context.Background(), request)
	assert.ErrorIs(t, err, common.ErrMissingAPIKey)
}

func TestProviderFactory_ModelRoutesToProvider(t *testing.T) {
	config := common.NewDefaultConfig()
	config.Gemini.APIKey = "gemini-key"
	factory := NewProviderFactory(&config.Gemini, &config.Claude, &config.LLM, arbor.NewLogger())

	// Default provider is Gemini, but the model prefix selects Claude, whose key is missing
	_, err := factory.GenerateContent(context.Background(), &interfaces.ContentRequest{
		Messages: []interfaces.Message{{Role: "user", Content: "hi"}},
		Model:    "claude-sonnet-4-5",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrMissingAPIKey)
	assert.Contains(t, err.Error(), "ANTHROPIC_API_KEY")
}

func TestConvertMessages(t *testing.T) {
	messages := []interfaces.Message{
		{Role: "user", Content: "question"},
		{Role: "user", Content: "follow-up"},
	}

	contents, err := convertMessagesToGemini(messages)
	require.NoError(t, err)
	require.Len(t, contents, 2)
	assert.Equal(t, "user", contents[0].Role)

	claudeMessages, err := convertMessagesToClaude(messages)
	require.NoError(t, err)
	assert.Len(t, claudeMessages, 2)

	_, err = convertMessagesToGemini(nil)
	assert.Error(t, err)

	_, err = convertMessagesToClaude([]interfaces.Message{{Role: "system", Content: "only"}})
	assert.Error(t, err)
}
