package openai

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"golang.org/x/time/rate"

	"chapterqa/internal/domain"
)

// Client is an OpenAI-compatible embeddings client.
type Client struct {
	client     openai.Client
	model      string
	dimensions int
	dimension  atomic.Int64
	limiter    *rate.Limiter
}

// Config configures the OpenAI-compatible embeddings client.
type Config struct {
	BaseURL           string
	APIKeyEnv         string
	Model             string
	Timeout           time.Duration
	MaxRetries        int
	RequestsPerSecond float64
	// Dimensions asks the model to shorten its vectors; 0 keeps the default.
	Dimensions int
}

// NewClient creates a new embeddings client using the provided configuration.
func NewClient(cfg Config) (*Client, error) {
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "text-embedding-3-small"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	c := &Client{
		client: openai.NewClient(
			option.WithAPIKey(key),
			option.WithBaseURL(cfg.BaseURL),
			option.WithRequestTimeout(cfg.Timeout),
			option.WithMaxRetries(cfg.MaxRetries),
		),
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
	}
	if cfg.RequestsPerSecond > 0 {
		burst := int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	return c, nil
}

// Name returns the identifier of this embedder implementation.
func (c *Client) Name() string { return "openai" }

// Dimension returns the vector length seen so far (0 before the first call).
func (c *Client) Dimension() int { return int(c.dimension.Load()) }

// Embed returns an embedding vector for the given text.
func (c *Client) Embed(ctx context.Context, text string) ([]float64, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: rate limit wait: %v", domain.ErrEmbeddingUnavailable, err)
		}
	}
	params := openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfString: openai.String(text)},
		Model: openai.EmbeddingModel(c.model),
	}
	if c.dimensions > 0 {
		params.Dimensions = openai.Int(int64(c.dimensions))
	}
	resp, err := c.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("%w: openai embeddings: %v", domain.ErrEmbeddingUnavailable, err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("%w: no embedding returned", domain.ErrEmbeddingUnavailable)
	}
	v := resp.Data[0].Embedding
	c.dimension.CompareAndSwap(0, int64(len(v)))
	return v, nil
}
