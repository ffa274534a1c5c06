package embed

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// ProviderType names an embedding backend.
type ProviderType string

const (
	ProviderOllama ProviderType = "ollama"
	ProviderOpenAI ProviderType = "openai"
	ProviderStatic ProviderType = "static"
)

// String returns the provider name.
func (p ProviderType) String() string { return string(p) }

// ParseProvider maps a config string to a provider; unknown names mean Ollama.
func ParseProvider(s string) ProviderType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "openai", "openai-compatible":
		return ProviderOpenAI
	case "static", "hash":
		return ProviderStatic
	default:
		return ProviderOllama
	}
}

// ValidProviders returns all provider names.
func ValidProviders() []string {
	return []string{string(ProviderOllama), string(ProviderOpenAI), string(ProviderStatic)}
}

// IsValidProvider reports whether s names a known provider.
func IsValidProvider(s string) bool {
	lower := strings.ToLower(s)
	for _, p := range ValidProviders() {
		if lower == p {
			return true
		}
	}
	return false
}

// Options selects and configures an embedder.
type Options struct {
	Provider   string
	Model      string
	Host       string // Ollama host or OpenAI-compatible base URL
	APIKey     string
	Dimensions int
	Timeout    time.Duration
	CacheSize  int // <0 disables the query cache
}

// NewEmbedder builds the configured embedder wrapped in a query cache.
func NewEmbedder(opts Options) (Embedder, error) {
	var inner Embedder
	switch ParseProvider(opts.Provider) {
	case ProviderStatic:
		s, err := NewStaticEmbedder(opts.Dimensions)
		if err != nil {
			return nil, err
		}
		inner = s
	case ProviderOpenAI:
		o, err := NewOpenAIEmbedder(OpenAIConfig{
			APIKey:     opts.APIKey,
			BaseURL:    opts.Host,
			Model:      opts.Model,
			Dimensions: opts.Dimensions,
			Timeout:    opts.Timeout,
			MaxRetries: DefaultMaxRetries,
		})
		if err != nil {
			return nil, fmt.Errorf("openai embedder: %w", err)
		}
		inner = o
	default:
		cfg := DefaultOllamaConfig()
		if opts.Host != "" {
			cfg.Host = opts.Host
		}
		if opts.Model != "" {
			cfg.Model = opts.Model
		}
		if opts.Timeout > 0 {
			cfg.Timeout = opts.Timeout
		}
		cfg.Dimensions = opts.Dimensions
		inner = NewOllamaEmbedder(cfg)
	}

	slog.Debug("embedder_created",
		slog.String("provider", ParseProvider(opts.Provider).String()),
		slog.String("model", inner.ModelName()))

	if opts.CacheSize < 0 {
		return inner, nil
	}
	return NewCachedEmbedder(inner, opts.CacheSize), nil
}
