package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/marketbrief/internal/interfaces"
	"github.com/ternarybob/marketbrief/internal/models"
)

var (
	// ErrNoContent is returned when there is nothing to analyze
	ErrNoContent = errors.New("no news items to analyze")
	// ErrEmptyReply is returned when the model reply contains no text
	ErrEmptyReply = errors.New("model returned an empty reply")
	// ErrMalformedReply is returned when the reply holds no decodable JSON object
	ErrMalformedReply = errors.New("model reply is not a JSON object")
)

// AnalysisService turns the run's news digest into a structured market analysis
type AnalysisService struct {
	generator interfaces.ContentGenerator
	model     string // Empty uses the default provider's configured model
	options   PromptOptions
	logger    arbor.ILogger
}

// NewAnalysisService creates a new analysis service. model may carry a provider
// prefix ("claude-...", "gemini/...") to route the request.
func NewAnalysisService(generator interfaces.ContentGenerator, model string, options PromptOptions, logger arbor.ILogger) *AnalysisService {
	return &AnalysisService{
		generator: generator,
		model:     model,
		options:   options.withDefaults(),
		logger:    logger,
	}
}

// Analyze sends the digest to the model once and parses the reply.
// It either returns a complete result or an error, never a partial result.
func (s *AnalysisService) Analyze(ctx context.Context, catalog interfaces.NewsCatalog) (*models.AnalysisResult, error) {
	prompt := BuildAnalysisPrompt(catalog.SerializeForPrompt(), s.options)
	if prompt == "" {
		return nil, ErrNoContent
	}

	s.logger.Info().
		Int("items", catalog.Len()).
		Int("prompt_chars", len(prompt)).
		Msg("Requesting market analysis")

	start := time.Now()
	resp, err := s.generator.GenerateContent(ctx, &interfaces.ContentRequest{
		Messages: []interfaces.Message{
			{Role: "user", Content: prompt},
		},
		Model:      s.model,
		JSONOutput: true,
	})
	if err != nil {
		return nil, fmt.Errorf("analysis request failed: %w", err)
	}
	if resp == nil || strings.TrimSpace(resp.Text) == "" {
		return nil, ErrEmptyReply
	}

	result, err := ParseAnalysis(resp.Text)
	if err != nil {
		s.logger.Debug().Str("reply", resp.Text).Msg("Unparsable analysis reply")
		return nil, err
	}

	s.logger.Info().
		Str("provider", resp.Provider).
		Str("model", resp.Model).
		Str("score", result.SentimentScore.String()).
		Str("label", result.SentimentLabel).
		Int("top_picks", len(result.TopPicks)).
		Int64("elapsed_ms", time.Since(start).Milliseconds()).
		Msg("Market analysis complete")

	return result, nil
}

// ParseAnalysis decodes a model reply into an AnalysisResult.
// Code fences and text around the outermost JSON object are ignored.
// Missing fields take their defaults; a reply without a JSON object is an error.
func ParseAnalysis(raw string) (*models.AnalysisResult, error) {
	cleaned := cleanJSONResponse(raw)
	if cleaned == "" {
		return nil, ErrEmptyReply
	}

	var result models.AnalysisResult
	if err := json.Unmarshal([]byte(cleaned), &result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedReply, err)
	}

	return &result, nil
}

// cleanJSONResponse removes markdown code fences and keeps the text from the
// first '{' to the last '}'. Returns the trimmed text unchanged when no object is found.
func cleanJSONResponse(response string) string {
	response = strings.ReplaceAll(response, "```json", "")
	response = strings.ReplaceAll(response, "```JSON", "")
	response = strings.ReplaceAll(response, "```", "")
	response = strings.TrimSpace(response)

	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start >= 0 && end > start {
		return response[start : end+1]
	}

	return response
}
