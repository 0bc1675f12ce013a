package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/domain"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewClient(Config{BaseURL: srv.URL + "/", APIKey: "sk-test", EmbedModel: "nomic-embed-text", ChatModel: "llama3"})
	require.NoError(t, err)
	return c
}

func TestNewClient_NeedsKeyOrBaseURL(t *testing.T) {
	_, err := NewClient(Config{})
	assert.Error(t, err)

	_, err = NewClient(Config{BaseURL: "http://localhost:11434/v1/"})
	assert.NoError(t, err)
}

func TestEmbed(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "nomic-embed-text", body["model"])
		assert.Equal(t, "hello", body["input"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"object":"list","data":[{"object":"embedding","index":0,"embedding":[0.5,0.25]}],"model":"nomic-embed-text","usage":{"prompt_tokens":1,"total_tokens":1}}`)
	})
	vec, err := c.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, 0.25}, vec)
}

func TestEmbed_ConcurrentCallsShareClient(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"object":"list","data":[{"object":"embedding","index":0,"embedding":[1,0,0]}],"model":"nomic-embed-text","usage":{"prompt_tokens":1,"total_tokens":1}}`)
	})
	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = c.Embed(context.Background(), "chunk")
		}()
	}
	wg.Wait()
	for _, err := range errs {
		assert.NoError(t, err)
	}
}

func TestGenerate_MapsRoles(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		var body struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "llama3", body.Model)
		require.Len(t, body.Messages, 3)
		assert.Equal(t, "user", body.Messages[0].Role)
		assert.Equal(t, "assistant", body.Messages[1].Role)
		assert.Equal(t, "user", body.Messages[2].Role)
		assert.Equal(t, "final", body.Messages[2].Content)

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"c1","object":"chat.completion","created":1,"model":"llama3","choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"grounded answer"}}]}`)
	})
	out, err := c.Generate(context.Background(), []domain.Message{
		{Role: domain.RoleUser, Content: "first"},
		{Role: domain.RoleModel, Content: "reply"},
		{Role: domain.RoleUser, Content: "final"},
	})
	require.NoError(t, err)
	assert.Equal(t, "grounded answer", out)
}

func TestAPIErrorBecomesServiceError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":{"message":"invalid key","type":"auth","code":"invalid_api_key"}}`)
	})
	_, err := c.Embed(context.Background(), "x")
	var se *domain.ServiceError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "openai", se.Provider)
	assert.Equal(t, http.StatusUnauthorized, se.StatusCode)
}
