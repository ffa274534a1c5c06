package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	saeserrors "github.com/Aman-CERP/saesagent/internal/errors"
)

// GeminiConfig configures the Gemini API backend.
type GeminiConfig struct {
	// APIKey is a Google AI Studio key (required).
	APIKey string
	Model  string
	Guard  GuardConfig
}

// GeminiGenerator generates through google.golang.org/genai.
type GeminiGenerator struct {
	client *genai.Client
	model  string
	label  string
	guard  *guard
}

var _ Generator = (*GeminiGenerator)(nil)

// NewGeminiGenerator creates the genai client. No request is made.
func NewGeminiGenerator(ctx context.Context, cfg GeminiConfig) (*GeminiGenerator, error) {
	if cfg.APIKey == "" {
		return nil, saeserrors.ConfigError("gemini: API key is required", nil).
			WithSuggestion("set GEMINI_API_KEY or generation.api_key")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultGeminiModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, saeserrors.ConfigError("create gemini client", err)
	}

	label := string(ProviderGemini) + "/" + cfg.Model
	return &GeminiGenerator{
		client: client,
		model:  cfg.Model,
		label:  label,
		guard:  newGuard(label, cfg.Guard),
	}, nil
}

// Name implements Generator.
func (g *GeminiGenerator) Name() string { return g.label }

// Generate implements Generator. The system prompt travels as the system
// instruction.
func (g *GeminiGenerator) Generate(ctx context.Context, system, user string) (Generation, error) {
	start := time.Now()
	text, err := g.guard.run(ctx, func(ctx context.Context) (string, error) {
		return g.generate(ctx, system, user)
	})
	if err != nil {
		return Generation{}, err
	}
	return Generation{Text: strings.TrimSpace(text), Model: g.model, Elapsed: time.Since(start)}, nil
}

func (g *GeminiGenerator) generate(ctx context.Context, system, user string) (string, error) {
	content := genai.NewContentFromText(user, genai.RoleUser)
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, []*genai.Content{content}, config)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", saeserrors.New(saeserrors.ErrCodeGenerationFailed, fmt.Sprintf("gemini: %v", err), err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", permanent(saeserrors.New(saeserrors.ErrCodeGenerationFailed, "no response candidates from gemini", nil))
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" {
			sb.WriteString(part.Text)
		}
	}
	return sb.String(), nil
}

// CircuitState reports the backend's circuit breaker state.
func (g *GeminiGenerator) CircuitState() string { return g.guard.state().String() }
