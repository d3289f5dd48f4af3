package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"
)

// Provider names
const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

// Provider defaults
const (
	DefaultOllamaHost  = "http://127.0.0.1:11434"
	DefaultOllamaModel = "nomic-embed-text"
	DefaultOpenAIURL   = "https://api.openai.com/v1"
	DefaultOpenAIModel = "text-embedding-3-small"
	ollamaTimeout      = 60 * time.Second
	openAITimeout      = 30 * time.Second
)

// OllamaProvider embeds text through a local Ollama instance.
type OllamaProvider struct {
	host      string
	model     string
	client    *http.Client
	cache     *Cache
	retry     RetryConfig
	dimension atomic.Int64
}

// NewOllamaProvider creates an Ollama-backed embedder.
func NewOllamaProvider(host, model string, cacheSize int) *OllamaProvider {
	if host == "" {
		host = DefaultOllamaHost
	}
	if model == "" {
		model = DefaultOllamaModel
	}
	return &OllamaProvider{
		host:   host,
		model:  model,
		client: &http.Client{Timeout: ollamaTimeout},
		cache:  NewCache(cacheSize),
		retry:  DefaultRetryConfig(),
	}
}

type ollamaEmbedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbedResponse struct {
	Embedding []float64 `json:"embedding"`
}

// Embed returns the embedding for text, consulting the cache first.
func (p *OllamaProvider) Embed(ctx context.Context, text string) ([]float64, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	hash := ComputeHash(text)
	if vec, ok := p.cache.Get(hash); ok {
		return vec, nil
	}

	vec, err := retryWithBackoff(ctx, p.retry, func() ([]float64, error) {
		return p.callAPI(ctx, text)
	})
	if err != nil {
		return nil, err
	}

	p.dimension.Store(int64(len(vec)))
	p.cache.Set(hash, vec)
	return vec, nil
}

func (p *OllamaProvider) callAPI(ctx context.Context, text string) ([]float64, error) {
	body, err := json.Marshal(ollamaEmbedRequest{Model: p.model, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.host+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("%w: status %d: %s", ErrProviderFailed, resp.StatusCode, data)
	}

	var out ollamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(out.Embedding) == 0 {
		return nil, ErrEmptyEmbedding
	}
	return out.Embedding, nil
}

// Ping checks that the Ollama instance answers before a batch job starts.
func (p *OllamaProvider) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.host+"/api/tags", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("ollama unreachable at %s: %w", p.host, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama health check failed: status %d", resp.StatusCode)
	}
	return nil
}

// Dimension returns the vector length seen so far, 0 before any call.
func (p *OllamaProvider) Dimension() int { return int(p.dimension.Load()) }

// Provider returns "ollama".
func (p *OllamaProvider) Provider() string { return ProviderOllama }

// Model returns the configured model name.
func (p *OllamaProvider) Model() string { return p.model }

// Close releases provider resources.
func (p *OllamaProvider) Close() error {
	p.client.CloseIdleConnections()
	return nil
}

// OpenAIProvider embeds text through an OpenAI-compatible embeddings API.
type OpenAIProvider struct {
	baseURL   string
	apiKey    string
	model     string
	client    *http.Client
	cache     *Cache
	retry     RetryConfig
	dimension atomic.Int64
}

// NewOpenAIProvider creates an OpenAI-compatible embedder.
func NewOpenAIProvider(baseURL, apiKey, model string, cacheSize int) *OpenAIProvider {
	if baseURL == "" {
		baseURL = DefaultOpenAIURL
	}
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAIProvider{
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
		client:  &http.Client{Timeout: openAITimeout},
		cache:   NewCache(cacheSize),
		retry:   DefaultRetryConfig(),
	}
}

type openAIEmbedRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type openAIEmbedResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}

// Embed returns the embedding for text, consulting the cache first.
func (p *OpenAIProvider) Embed(ctx context.Context, text string) ([]float64, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	hash := ComputeHash(text)
	if vec, ok := p.cache.Get(hash); ok {
		return vec, nil
	}

	vec, err := retryWithBackoff(ctx, p.retry, func() ([]float64, error) {
		return p.callAPI(ctx, text)
	})
	if err != nil {
		return nil, err
	}

	p.dimension.Store(int64(len(vec)))
	p.cache.Set(hash, vec)
	return vec, nil
}

func (p *OpenAIProvider) callAPI(ctx context.Context, text string) ([]float64, error) {
	body, err := json.Marshal(openAIEmbedRequest{Input: []string{text}, Model: p.model})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("%w: status %d: %s", ErrProviderFailed, resp.StatusCode, data)
	}

	var out openAIEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(out.Data) == 0 || len(out.Data[0].Embedding) == 0 {
		return nil, ErrEmptyEmbedding
	}
	return out.Data[0].Embedding, nil
}

// Dimension returns the vector length seen so far, 0 before any call.
func (p *OpenAIProvider) Dimension() int { return int(p.dimension.Load()) }

// Provider returns "openai".
func (p *OpenAIProvider) Provider() string { return ProviderOpenAI }

// Model returns the configured model name.
func (p *OpenAIProvider) Model() string { return p.model }

// Close releases provider resources.
func (p *OpenAIProvider) Close() error {
	p.client.CloseIdleConnections()
	return nil
}
