package interfaces

import (
	"context"
)

// Message represents a single message in a model conversation
type Message struct {
	// Role identifies the message sender; only "user" is sent
	Role string

	// Content contains the text content of the message
	Content string
}

// ContentRequest represents a provider-agnostic content generation request.
// Sampling settings come from the provider configuration.
type ContentRequest struct {
	Messages   []Message
	Model      string // Optional; "gemini/..." or "claude-..." prefixes select the provider
	JSONOutput bool   // Ask the provider for a bare JSON reply where supported
}

// ContentResponse represents a provider-agnostic content generation response
type ContentResponse struct {
	Text     string
	Provider string
	Model    string
}

// ContentGenerator performs a single model call. Implementations do not retry.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, request *ContentRequest) (*ContentResponse, error)
}
