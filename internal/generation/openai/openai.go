package openai

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"chapterqa/internal/domain"
)

// Client is an OpenAI-compatible chat completions backend.
type Client struct {
	client      openai.Client
	model       string
	temperature float64
	maxTokens   int
}

// Config configures the chat completions backend.
type Config struct {
	BaseURL     string
	APIKeyEnv   string
	Model       string
	Timeout     time.Duration
	MaxRetries  int
	Temperature float64
	MaxTokens   int
}

// NewClient creates a new chat client using the provided configuration.
func NewClient(cfg Config) (*Client, error) {
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &Client{
		client: openai.NewClient(
			option.WithAPIKey(key),
			option.WithBaseURL(cfg.BaseURL),
			option.WithRequestTimeout(cfg.Timeout),
			option.WithMaxRetries(cfg.MaxRetries),
		),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}, nil
}

// Name returns the identifier of this backend.
func (c *Client) Name() string { return "openai" }

// Complete sends the role framing as the system message and the rest of the
// prompt as the user message.
func (c *Client) Complete(ctx context.Context, p domain.Prompt) (string, error) {
	var msgs []openai.ChatCompletionMessageParamUnion
	if p.Role != "" {
		msgs = append(msgs, openai.SystemMessage(p.Role))
	}
	msgs = append(msgs, openai.UserMessage(p.Body()))

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.model),
		Messages: msgs,
	}
	if c.temperature > 0 {
		params.Temperature = openai.Float(c.temperature)
	}
	if c.maxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(c.maxTokens))
	}
	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("%w: openai chat: %v", domain.ErrGenerationUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices returned", domain.ErrGenerationUnavailable)
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("%w: empty completion", domain.ErrGenerationUnavailable)
	}
	return text, nil
}
