package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// Judge names
const (
	JudgeLocal  = "local"
	JudgeHosted = "deepseek"
)

// Judge defaults
const (
	DefaultLocalHost   = "http://127.0.0.1:1234"
	DefaultLocalModel  = "qwen2.5-7b-instruct"
	DefaultHostedURL   = "https://router.huggingface.co"
	DefaultHostedModel = "deepseek-ai/DeepSeek-V3.2:novita"

	// Local inference can be very slow on CPU.
	localJudgeTimeout  = 6 * time.Minute
	hostedJudgeTimeout = 2 * time.Minute

	judgeTemperature = 0.3
	judgeMaxTokens   = 50
)

// Common errors
var (
	ErrUnsupportedJudge = errors.New("unsupported judge provider")
	ErrMissingAPIKey    = errors.New("hosted judge requires an API key")
	ErrEmptyReply       = errors.New("judge returned empty reply")
)

// Judge is a text-completion backend used for relevance judgments.
type Judge interface {
	// Complete sends a system and user prompt and returns the reply text.
	Complete(ctx context.Context, system, user string) (string, error)
}

// Config selects and configures a judge backend.
type Config struct {
	Provider string // "local" or "deepseek"
	Host     string // local chat endpoint base URL
	BaseURL  string // hosted router base URL
	APIKey   string
	Model    string
}

// NewJudge creates a judge from config.
func NewJudge(cfg Config) (Judge, error) {
	switch cfg.Provider {
	case JudgeLocal, "":
		return newChatJudge(coalesce(cfg.Host, DefaultLocalHost), "",
			coalesce(cfg.Model, DefaultLocalModel), localJudgeTimeout), nil
	case JudgeHosted:
		key := cfg.APIKey
		if key == "" {
			key = os.Getenv("HF_TOKEN")
		}
		if key == "" {
			return nil, ErrMissingAPIKey
		}
		return newChatJudge(coalesce(cfg.BaseURL, DefaultHostedURL), key,
			coalesce(cfg.Model, DefaultHostedModel), hostedJudgeTimeout), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedJudge, cfg.Provider)
	}
}

func coalesce(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}

// chatJudge talks to any OpenAI-compatible chat completions endpoint. The
// local and hosted judges differ only in base URL, auth and timeout.
type chatJudge struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

func newChatJudge(baseURL, apiKey, model string, timeout time.Duration) *chatJudge {
	return &chatJudge{
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
		client:  &http.Client{Timeout: timeout},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete implements Judge.
func (j *chatJudge) Complete(ctx context.Context, system, user string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: j.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: judgeTemperature,
		MaxTokens:   judgeMaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		j.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if j.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+j.apiKey)
	}

	resp, err := j.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("judge request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("judge returned status %d: %s", resp.StatusCode, data)
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if len(out.Choices) == 0 || out.Choices[0].Message.Content == "" {
		return "", ErrEmptyReply
	}
	return out.Choices[0].Message.Content, nil
}
