// Package gemini talks to the Google Generative Language REST API for both
// embeddings and chat generation.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"docqa/internal/domain"
)

const (
	DefaultBaseURL    = "https://generativelanguage.googleapis.com/v1beta"
	DefaultEmbedModel = "text-embedding-004"
	DefaultChatModel  = "gemini-2.5-flash"

	// NoResponse is returned as the answer when the model produced no text.
	NoResponse = "No response generated"

	provider = "gemini"
)

// Config configures the client. Zero values fall back to the defaults.
type Config struct {
	BaseURL    string
	APIKey     string
	EmbedModel string
	ChatModel  string
	Timeout    time.Duration
	MaxRetries int
	RetryBase  time.Duration

	Temperature     float64
	TopK            int
	TopP            float64
	MaxOutputTokens int

	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client implements domain.Embedder and domain.Generator.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

// NewClient creates a client using the provided configuration.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini: missing API key")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.EmbedModel == "" {
		cfg.EmbedModel = DefaultEmbedModel
	}
	if cfg.ChatModel == "" {
		cfg.ChatModel = DefaultChatModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryBase == 0 {
		cfg.RetryBase = 200 * time.Millisecond
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.7
	}
	if cfg.TopK == 0 {
		cfg.TopK = 40
	}
	if cfg.TopP == 0 {
		cfg.TopP = 0.95
	}
	if cfg.MaxOutputTokens == 0 {
		cfg.MaxOutputTokens = 2048
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{cfg: cfg, http: hc, logger: logger}, nil
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	TopK            int     `json:"topK"`
	TopP            float64 `json:"topP"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

// Embed returns the embedding of text from the embedContent endpoint.
func (c *Client) Embed(ctx context.Context, text string) ([]float64, error) {
	req := struct {
		Content content `json:"content"`
	}{Content: content{Parts: []part{{Text: text}}}}

	var out struct {
		Embedding struct {
			Values []float64 `json:"values"`
		} `json:"embedding"`
	}
	if err := c.post(ctx, c.cfg.EmbedModel+":embedContent", req, &out); err != nil {
		return nil, err
	}
	return out.Embedding.Values, nil
}

// Generate sends the conversation to generateContent and returns the first
// candidate's text.
func (c *Client) Generate(ctx context.Context, messages []domain.Message) (string, error) {
	contents := make([]content, len(messages))
	for i, m := range messages {
		contents[i] = content{Role: string(m.Role), Parts: []part{{Text: m.Content}}}
	}
	req := struct {
		Contents         []content        `json:"contents"`
		GenerationConfig generationConfig `json:"generationConfig"`
	}{
		Contents: contents,
		GenerationConfig: generationConfig{
			Temperature:     c.cfg.Temperature,
			TopK:            c.cfg.TopK,
			TopP:            c.cfg.TopP,
			MaxOutputTokens: c.cfg.MaxOutputTokens,
		},
	}

	var out struct {
		Candidates []struct {
			Content      content `json:"content"`
			FinishReason string  `json:"finishReason"`
		} `json:"candidates"`
	}
	if err := c.post(ctx, c.cfg.ChatModel+":generateContent", req, &out); err != nil {
		return "", err
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 || out.Candidates[0].Content.Parts[0].Text == "" {
		return NoResponse, nil
	}
	return out.Candidates[0].Content.Parts[0].Text, nil
}

// post sends body to models/{method} and decodes the JSON reply into out.
// Transport errors, 429 and 5xx are retried with capped exponential backoff;
// a Retry-After header adds to the wait.
func (c *Client) post(ctx context.Context, method string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("gemini: encode request: %w", err)
	}
	url := fmt.Sprintf("%s/models/%s", c.cfg.BaseURL, method)

	backoff := retry.WithCappedDuration(5*time.Second,
		retry.WithMaxRetries(uint64(c.cfg.MaxRetries), retry.NewExponential(c.cfg.RetryBase)))

	attempt := 0
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-goog-api-key", c.cfg.APIKey)

		resp, err := c.http.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Warn("gemini request failed", "method", method, "attempt", attempt, "err", err)
			return retry.RetryableError(&domain.ServiceError{Provider: provider, Err: err})
		}
		payload, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			return retry.RetryableError(&domain.ServiceError{Provider: provider, StatusCode: resp.StatusCode, Err: err})
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			c.logger.Warn("gemini request throttled or failed", "method", method, "attempt", attempt, "status", resp.StatusCode)
			if err := waitRetryAfter(ctx, resp.Header.Get("Retry-After")); err != nil {
				return err
			}
			return retry.RetryableError(&domain.ServiceError{Provider: provider, StatusCode: resp.StatusCode, Body: string(payload)})
		}
		if resp.StatusCode >= 300 {
			return &domain.ServiceError{Provider: provider, StatusCode: resp.StatusCode, Body: string(payload)}
		}
		if err := json.Unmarshal(payload, out); err != nil {
			return &domain.ServiceError{Provider: provider, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
		}
		return nil
	})
}

func waitRetryAfter(ctx context.Context, header string) error {
	secs, err := strconv.Atoi(strings.TrimSpace(header))
	if err != nil || secs <= 0 {
		return nil
	}
	t := time.NewTimer(time.Duration(secs) * time.Second)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
