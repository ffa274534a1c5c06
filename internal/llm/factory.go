package llm

import (
	"context"
	"fmt"
	"slices"
	"time"

	saeserrors "github.com/Aman-CERP/saesagent/internal/errors"
)

// Config selects and configures a generation backend.
type Config struct {
	Provider ProviderType
	Model    string
	BaseURL  string
	APIKey   string
	Timeout  time.Duration
	Guard    GuardConfig
}

// New builds the Generator named by cfg.Provider.
func New(ctx context.Context, cfg Config) (Generator, error) {
	if !slices.Contains(ValidProviders(), cfg.Provider) {
		return nil, saeserrors.ConfigError(fmt.Sprintf("unknown generation provider %q", cfg.Provider), nil).
			WithSuggestion(fmt.Sprintf("use one of %v", ValidProviders()))
	}

	switch cfg.Provider {
	case ProviderGemini:
		return NewGeminiGenerator(ctx, GeminiConfig{
			APIKey: cfg.APIKey,
			Model:  cfg.Model,
			Guard:  cfg.Guard,
		})
	default:
		return NewOpenAIGenerator(OpenAIConfig{
			APIKey:   cfg.APIKey,
			BaseURL:  cfg.BaseURL,
			Model:    cfg.Model,
			Timeout:  cfg.Timeout,
			Provider: cfg.Provider,
			Guard:    cfg.Guard,
		})
	}
}
