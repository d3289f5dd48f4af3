package embedder

import "fmt"

// Config selects and configures an embedding provider.
type Config struct {
	Provider  string // "ollama" or "openai"
	Host      string // Ollama host URL
	BaseURL   string // OpenAI-compatible base URL
	APIKey    string
	Model     string
	CacheSize int
}

// New creates an embedder from config.
func New(cfg Config) (Embedder, error) {
	switch cfg.Provider {
	case ProviderOllama, "":
		return NewOllamaProvider(cfg.Host, cfg.Model, cfg.CacheSize), nil
	case ProviderOpenAI:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("%w: openai requires an API key", ErrNoProviderEnabled)
		}
		return NewOpenAIProvider(cfg.BaseURL, cfg.APIKey, cfg.Model, cfg.CacheSize), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProvider, cfg.Provider)
	}
}
