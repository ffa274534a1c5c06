package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	saeserrors "github.com/Aman-CERP/saesagent/internal/errors"
)

// OpenAIConfig configures an OpenAI-compatible chat completions backend.
// xAI's Grok API speaks the same protocol.
type OpenAIConfig struct {
	// APIKey is required.
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
	// Provider labels the backend in logs.
	Provider ProviderType
	Guard    GuardConfig
}

// OpenAIGenerator calls POST {BaseURL}/chat/completions.
type OpenAIGenerator struct {
	client  *http.Client
	baseURL string
	apiKey  string
	model   string
	label   string
	guard   *guard
}

var _ Generator = (*OpenAIGenerator)(nil)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// NewOpenAIGenerator validates cfg and fills in provider defaults.
func NewOpenAIGenerator(cfg OpenAIConfig) (*OpenAIGenerator, error) {
	if cfg.Provider == "" {
		cfg.Provider = ProviderXAI
	}
	if cfg.APIKey == "" {
		return nil, saeserrors.ConfigError(fmt.Sprintf("%s: API key is required", cfg.Provider), nil).
			WithSuggestion("set XAI_API_KEY or generation.api_key")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultXAIBaseURL
		if cfg.Provider == ProviderOpenAI {
			cfg.BaseURL = DefaultOpenAIBaseURL
		}
	}
	if cfg.Model == "" {
		cfg.Model = DefaultXAIModel
		if cfg.Provider == ProviderOpenAI {
			cfg.Model = DefaultOpenAIModel
		}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	label := string(cfg.Provider) + "/" + cfg.Model
	return &OpenAIGenerator{
		client:  &http.Client{Timeout: cfg.Timeout},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		label:   label,
		guard:   newGuard(label, cfg.Guard),
	}, nil
}

// Name implements Generator.
func (g *OpenAIGenerator) Name() string { return g.label }

// Generate implements Generator.
func (g *OpenAIGenerator) Generate(ctx context.Context, system, user string) (Generation, error) {
	start := time.Now()
	text, err := g.guard.run(ctx, func(ctx context.Context) (string, error) {
		return g.chat(ctx, system, user)
	})
	if err != nil {
		return Generation{}, err
	}
	return Generation{Text: strings.TrimSpace(text), Model: g.model, Elapsed: time.Since(start)}, nil
}

func (g *OpenAIGenerator) chat(ctx context.Context, system, user string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: g.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", saeserrors.New(saeserrors.ErrCodeGenerationFailed, "send generation request", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", saeserrors.New(saeserrors.ErrCodeGenerationFailed, "read generation response", err)
	}

	var out chatResponse
	decodeErr := json.Unmarshal(raw, &out)

	if resp.StatusCode != http.StatusOK {
		return "", statusError(resp.StatusCode, out, raw)
	}
	if decodeErr != nil {
		return "", saeserrors.New(saeserrors.ErrCodeGenerationFailed, "decode generation response", decodeErr)
	}
	if out.Error != nil {
		return "", permanent(saeserrors.New(saeserrors.ErrCodeGenerationFailed, out.Error.Message, nil))
	}
	if len(out.Choices) == 0 {
		return "", permanent(saeserrors.New(saeserrors.ErrCodeGenerationFailed, "no choices in generation response", nil))
	}
	return out.Choices[0].Message.Content, nil
}

func statusError(status int, out chatResponse, raw []byte) error {
	msg := strings.TrimSpace(string(raw))
	if out.Error != nil && out.Error.Message != "" {
		msg = out.Error.Message
	}
	if len(msg) > 300 {
		msg = msg[:300]
	}
	text := fmt.Sprintf("generation service returned %d: %s", status, msg)

	switch {
	case status == http.StatusTooManyRequests:
		return saeserrors.New(saeserrors.ErrCodeRateLimited, text, nil)
	case status >= 500:
		return saeserrors.New(saeserrors.ErrCodeGenerationFailed, text, nil)
	default:
		return permanent(saeserrors.New(saeserrors.ErrCodeGenerationFailed, text, nil))
	}
}

// permanent marks an upstream error as not worth retrying.
func permanent(e *saeserrors.SAESError) *saeserrors.SAESError {
	e.Retryable = false
	return e
}

// CircuitState reports the backend's circuit breaker state.
func (g *OpenAIGenerator) CircuitState() string { return g.guard.state().String() }
