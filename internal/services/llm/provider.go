package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/marketbrief/internal/common"
	"github.com/ternarybob/marketbrief/internal/interfaces"
	"google.golang.org/genai"
)

// ProviderType represents the AI provider type
type ProviderType string

const (
	// ProviderGemini uses Google Gemini API
	ProviderGemini ProviderType = "gemini"
	// ProviderClaude uses Anthropic Claude API
	ProviderClaude ProviderType = "claude"
)

// ProviderFactory creates provider clients lazily and dispatches each request to one of them.
// It makes exactly one API call per request.
type ProviderFactory struct {
	geminiConfig *common.GeminiConfig
	claudeConfig *common.ClaudeConfig
	llmConfig    *common.LLMConfig
	logger       arbor.ILogger
	geminiClient *genai.Client
	claudeClient *anthropic.Client
}

// NewProviderFactory creates a new provider factory
func NewProviderFactory(
	geminiConfig *common.GeminiConfig,
	claudeConfig *common.ClaudeConfig,
	llmConfig *common.LLMConfig,
	logger arbor.ILogger,
) *ProviderFactory {
	return &ProviderFactory{
		geminiConfig: geminiConfig,
		claudeConfig: claudeConfig,
		llmConfig:    llmConfig,
		logger:       logger,
	}
}

// DetectProvider determines the provider type from a model string.
// Model strings can be:
// - "claude-sonnet-4-5" or "claude/claude-sonnet-4-5" -> Claude
// - "gemini-2.5-flash" or "gemini/gemini-2.5-flash" -> Gemini
// - Empty string -> uses default provider from config
func (f *ProviderFactory) DetectProvider(model string) ProviderType {
	return ProviderType(common.ProviderForModel(model, f.llmConfig.DefaultProvider))
}

// NormalizeModel removes provider prefix from model name if present
func (f *ProviderFactory) NormalizeModel(model string) string {
	for _, prefix := range []string{"claude/", "anthropic/", "gemini/", "google/"} {
		if strings.HasPrefix(strings.ToLower(model), prefix) {
			return model[len(prefix):]
		}
	}
	return model
}

// GetGeminiClient returns a Gemini client, creating one if necessary
func (f *ProviderFactory) GetGeminiClient(ctx context.Context) (*genai.Client, error) {
	if f.geminiClient != nil {
		return f.geminiClient, nil
	}

	if f.geminiConfig.APIKey == "" {
		return nil, fmt.Errorf("%w: GEMINI_API_KEY", common.ErrMissingAPIKey)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  f.geminiConfig.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	f.geminiClient = client
	return client, nil
}

// GetClaudeClient returns a Claude client, creating one if necessary
func (f *ProviderFactory) GetClaudeClient() (*anthropic.Client, error) {
	if f.claudeClient != nil {
		return f.claudeClient, nil
	}

	if f.claudeConfig.APIKey == "" {
		return nil, fmt.Errorf("%w: ANTHROPIC_API_KEY", common.ErrMissingAPIKey)
	}

	client := anthropic.NewClient(
		option.WithAPIKey(f.claudeConfig.APIKey),
	)

	f.claudeClient = &client
	return f.claudeClient, nil
}

// GenerateContent generates content using the appropriate provider based on model
func (f *ProviderFactory) GenerateContent(ctx context.Context, request *interfaces.ContentRequest) (*interfaces.ContentResponse, error) {
	provider := f.DetectProvider(request.Model)
	model := f.NormalizeModel(request.Model)

	f.logger.Debug().
		Str("provider", string(provider)).
		Str("model", model).
		Int("message_count", len(request.Messages)).
		Msg("Generating content with provider")

	switch provider {
	case ProviderClaude:
		return f.generateWithClaude(ctx, request, model)
	default:
		return f.generateWithGemini(ctx, request, model)
	}
}

// generateWithClaude generates content using Claude API
func (f *ProviderFactory) generateWithClaude(ctx context.Context, request *interfaces.ContentRequest, model string) (*interfaces.ContentResponse, error) {
	client, err := f.GetClaudeClient()
	if err != nil {
		return nil, err
	}

	if model == "" {
		model = f.claudeConfig.Model
	}

	claudeMessages, err := convertMessagesToClaude(request.Messages)
	if err != nil {
		return nil, fmt.Errorf("failed to convert messages: %w", err)
	}

	maxTokens := f.claudeConfig.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 8192
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(maxTokens),
		Messages:  claudeMessages,
	}
	if f.claudeConfig.Temperature > 0 {
		params.Temperature = anthropic.Float(float64(f.claudeConfig.Temperature))
	}

	callCtx, cancel := context.WithTimeout(ctx, common.Duration(f.claudeConfig.Timeout, 5*time.Minute))
	defer cancel()

	resp, err := client.Messages.New(callCtx, params)
	if err != nil {
		return nil, fmt.Errorf("Claude API call failed: %w", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	if text.Len() == 0 {
		return nil, fmt.Errorf("%w: Claude returned no text", ErrEmptyReply)
	}

	return &interfaces.ContentResponse{
		Text:     text.String(),
		Provider: string(ProviderClaude),
		Model:    model,
	}, nil
}

// generateWithGemini generates content using Gemini API
func (f *ProviderFactory) generateWithGemini(ctx context.Context, request *interfaces.ContentRequest, model string) (*interfaces.ContentResponse, error) {
	client, err := f.GetGeminiClient(ctx)
	if err != nil {
		return nil, err
	}

	if model == "" {
		model = f.geminiConfig.Model
	}

	geminiContents, err := convertMessagesToGemini(request.Messages)
	if err != nil {
		return nil, fmt.Errorf("failed to convert messages: %w", err)
	}

	config := &genai.GenerateContentConfig{}
	if f.geminiConfig.Temperature > 0 {
		config.Temperature = genai.Ptr(f.geminiConfig.Temperature)
	}

	if request.JSONOutput {
		config.ResponseMIMEType = "application/json"
	}

	callCtx, cancel := context.WithTimeout(ctx, common.Duration(f.geminiConfig.Timeout, 5*time.Minute))
	defer cancel()

	resp, err := client.Models.GenerateContent(callCtx, model, geminiContents, config)
	if err != nil {
		return nil, fmt.Errorf("Gemini API call failed: %w", err)
	}

	if resp == nil || len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("%w: Gemini returned no candidates", ErrEmptyReply)
	}

	responseText := resp.Text()
	if responseText == "" {
		return nil, fmt.Errorf("%w: Gemini returned no text", ErrEmptyReply)
	}

	return &interfaces.ContentResponse{
		Text:     responseText,
		Provider: string(ProviderGemini),
		Model:    model,
	}, nil
}

// Close releases provider clients
func (f *ProviderFactory) Close() error {
	f.geminiClient = nil
	f.claudeClient = nil
	return nil
}

// convertMessagesToGemini converts user messages to Gemini contents
func convertMessagesToGemini(messages []interfaces.Message) ([]*genai.Content, error) {
	if err := requireUserMessages(messages); err != nil {
		return nil, err
	}

	contents := make([]*genai.Content, 0, len(messages))
	for _, msg := range messages {
		contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))
	}
	return contents, nil
}

// convertMessagesToClaude converts user messages to Claude message params
func convertMessagesToClaude(messages []interfaces.Message) ([]anthropic.MessageParam, error) {
	if err := requireUserMessages(messages); err != nil {
		return nil, err
	}

	claudeMessages := make([]anthropic.MessageParam, 0, len(messages))
	for _, msg := range messages {
		claudeMessages = append(claudeMessages, anthropic.NewUserMessage(
			anthropic.NewTextBlock(msg.Content),
		))
	}
	return claudeMessages, nil
}

func requireUserMessages(messages []interfaces.Message) error {
	if len(messages) == 0 {
		return fmt.Errorf("messages cannot be empty")
	}
	for _, msg := range messages {
		if msg.Role != "user" {
			return fmt.Errorf("unsupported message role %q", msg.Role)
		}
	}
	return nil
}
