// Package openai adapts any OpenAI-compatible API (OpenAI, Ollama, vLLM) to
// the embedding and generation capabilities.
package openai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"docqa/internal/domain"
)

const (
	DefaultBaseURL    = "https://api.openai.com/v1"
	DefaultEmbedModel = "text-embedding-3-small"
	DefaultChatModel  = "gpt-4o-mini"

	provider = "openai"
)

// Config configures the OpenAI-compatible client.
type Config struct {
	BaseURL     string
	APIKey      string
	EmbedModel  string
	ChatModel   string
	Timeout     time.Duration
	MaxRetries  int
	Temperature float64
}

// Client implements domain.Embedder and domain.Generator on top of the SDK.
type Client struct {
	client      openai.Client
	embedModel  string
	chatModel   string
	temperature float64
}

// NewClient creates a new client using the provided configuration. Local
// servers such as Ollama accept any key, so an empty key is allowed when
// BaseURL is set.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" && cfg.BaseURL == "" {
		return nil, errors.New("openai: missing API key")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.EmbedModel == "" {
		cfg.EmbedModel = DefaultEmbedModel
	}
	if cfg.ChatModel == "" {
		cfg.ChatModel = DefaultChatModel
	}
	t := cfg.Timeout
	if t == 0 {
		t = 30 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.7
	}
	key := cfg.APIKey
	if key == "" {
		key = "unused"
	}
	c := openai.NewClient(
		option.WithAPIKey(key),
		option.WithBaseURL(cfg.BaseURL),
		option.WithRequestTimeout(t),
		option.WithMaxRetries(cfg.MaxRetries),
	)
	return &Client{
		client:      c,
		embedModel:  cfg.EmbedModel,
		chatModel:   cfg.ChatModel,
		temperature: cfg.Temperature,
	}, nil
}

// Embed returns an embedding vector for the given text.
func (c *Client) Embed(ctx context.Context, text string) ([]float64, error) {
	resp, err := c.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfString: openai.String(text)},
		Model: openai.EmbeddingModel(c.embedModel),
	})
	if err != nil {
		return nil, wrap(err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, &domain.ServiceError{Provider: provider, Err: errors.New("no embedding returned")}
	}
	return resp.Data[0].Embedding, nil
}

// Generate runs a chat completion over messages. Model turns are sent as
// assistant messages.
func (c *Client) Generate(ctx context.Context, messages []domain.Message) (string, error) {
	params := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case domain.RoleModel:
			params = append(params, openai.AssistantMessage(m.Content))
		default:
			params = append(params, openai.UserMessage(m.Content))
		}
	}
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages:    params,
		Model:       openai.ChatModel(c.chatModel),
		Temperature: openai.Float(c.temperature),
	})
	if err != nil {
		return "", wrap(err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "No response generated", nil
	}
	return resp.Choices[0].Message.Content, nil
}

func wrap(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return &domain.ServiceError{Provider: provider, StatusCode: apiErr.StatusCode, Body: apiErr.Message, Err: err}
	}
	return &domain.ServiceError{Provider: provider, Err: fmt.Errorf("request: %w", err)}
}
