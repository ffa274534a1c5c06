// Package llm talks to hosted text-generation services and shapes their
// output into short Spanish answers.
package llm

import (
	"context"
	"time"
)

// Generation is one completed generation call.
type Generation struct {
	Text    string
	Model   string
	Elapsed time.Duration
}

// Generator produces an answer from a system prompt and the user's question.
type Generator interface {
	Generate(ctx context.Context, system, user string) (Generation, error)
	// Name identifies the backend in logs, e.g. "xai/grok-3-mini".
	Name() string
}

// ProviderType selects a generation backend.
type ProviderType string

const (
	ProviderXAI    ProviderType = "xai"
	ProviderOpenAI ProviderType = "openai"
	ProviderGemini ProviderType = "gemini"
)

// ValidProviders returns the supported generation providers.
func ValidProviders() []ProviderType {
	return []ProviderType{ProviderXAI, ProviderOpenAI, ProviderGemini}
}

// Default endpoints and models.
const (
	DefaultXAIBaseURL    = "https://api.x.ai/v1"
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	DefaultXAIModel      = "grok-3-mini"
	DefaultOpenAIModel   = "gpt-4o-mini"
	DefaultGeminiModel   = "gemini-2.0-flash"
	DefaultTimeout       = 120 * time.Second
)
