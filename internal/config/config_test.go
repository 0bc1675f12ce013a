package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "tfidf", cfg.Embedder.Type)
	assert.Equal(t, 1024, cfg.Embedder.TFIDF.Dimension)
	assert.Equal(t, "extractive", cfg.Generator.Type)
	assert.Equal(t, 800, cfg.Chunker.ChunkSize)
	assert.Equal(t, 200, cfg.Chunker.Overlap)
	assert.Equal(t, 3, cfg.Retrieval.TopK)
	assert.Equal(t, 100*time.Millisecond, cfg.Pacing.Interval())
	assert.NoError(t, cfg.Validate())
}

func TestLoad_ProviderDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
embedder:
  type: gemini
generator:
  type: openai
  openai:
    base_url: http://localhost:11434/v1
    chat_model: llama3
chunker:
  chunk_size: 400
  overlap: 50
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NotNil(t, cfg.Embedder.Gemini)
	assert.Equal(t, "GEMINI_API_KEY", cfg.Embedder.Gemini.APIKeyEnv)
	assert.Equal(t, "text-embedding-004", cfg.Embedder.Gemini.EmbedModel)
	assert.Equal(t, 30*time.Second, cfg.Embedder.Gemini.Timeout())

	require.NotNil(t, cfg.Generator.OpenAI)
	assert.Equal(t, "http://localhost:11434/v1", cfg.Generator.OpenAI.BaseURL)
	assert.Equal(t, "llama3", cfg.Generator.OpenAI.ChatModel)
	assert.Equal(t, "OPENAI_API_KEY", cfg.Generator.OpenAI.APIKeyEnv)

	assert.Equal(t, 400, cfg.Chunker.ChunkSize)
	assert.Equal(t, 50, cfg.Chunker.Overlap)
}

func TestLoad_Invalid(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("embedder: [unclosed"), 0o644))
	_, err := Load(bad)
	assert.Error(t, err)

	unknown := filepath.Join(dir, "unknown.yaml")
	require.NoError(t, os.WriteFile(unknown, []byte("embedder:\n  type: word2vec\n"), 0o644))
	_, err = Load(unknown)
	assert.ErrorContains(t, err, "word2vec")

	negative := filepath.Join(dir, "negative.yaml")
	require.NoError(t, os.WriteFile(negative, []byte("chunker:\n  overlap: -1\n"), 0o644))
	_, err = Load(negative)
	assert.ErrorContains(t, err, "overlap")
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := defaultConfig()
	cfg.Retrieval.TopK = 7
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestResolveAPIKey(t *testing.T) {
	t.Setenv("DOCQA_TEST_KEY", "secret")
	key, err := ResolveAPIKey(&ProviderConfig{APIKeyEnv: "DOCQA_TEST_KEY"})
	require.NoError(t, err)
	assert.Equal(t, "secret", key)

	t.Setenv("DOCQA_EMPTY_KEY", "")
	_, err = ResolveAPIKey(&ProviderConfig{APIKeyEnv: "DOCQA_EMPTY_KEY"})
	assert.ErrorContains(t, err, "DOCQA_EMPTY_KEY")

	_, err = ResolveAPIKey(nil)
	assert.Error(t, err)
}

func TestLoadDefault_WritesUserConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Chdir(t.TempDir())

	cfg, path, err := LoadDefault()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".config", "docqa", "config.yaml"), path)
	assert.Equal(t, "tfidf", cfg.Embedder.Type)
	_, err = os.Stat(path)
	assert.NoError(t, err)
}
