package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"path/filepath"
	"strings"

	"docqa/internal/config"
	"docqa/internal/domain"
	"docqa/internal/embedding"
	"docqa/internal/embedding/tfidf"
	"docqa/internal/generation/extractive"
	"docqa/internal/ingest"
	"docqa/internal/llm/gemini"
	"docqa/internal/llm/openai"
	"docqa/internal/service"
	"docqa/internal/summarizer"
)

func newLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func newGeminiClient(p *config.ProviderConfig, logger *slog.Logger) (*gemini.Client, error) {
	key, err := config.ResolveAPIKey(p)
	if err != nil {
		return nil, err
	}
	return gemini.NewClient(gemini.Config{
		BaseURL:         p.BaseURL,
		APIKey:          key,
		EmbedModel:      p.EmbedModel,
		ChatModel:       p.ChatModel,
		Timeout:         p.Timeout(),
		MaxRetries:      p.MaxRetries,
		Temperature:     p.Temperature,
		TopK:            p.TopK,
		TopP:            p.TopP,
		MaxOutputTokens: p.MaxOutputTokens,
		Logger:          logger,
	})
}

func newOpenAIClient(p *config.ProviderConfig) (*openai.Client, error) {
	key, err := config.ResolveAPIKey(p)
	// local OpenAI-compatible servers run without a key
	if err != nil && (p.BaseURL == "" || p.BaseURL == openai.DefaultBaseURL) {
		return nil, err
	}
	return openai.NewClient(openai.Config{
		BaseURL:     p.BaseURL,
		APIKey:      key,
		EmbedModel:  p.EmbedModel,
		ChatModel:   p.ChatModel,
		Timeout:     p.Timeout(),
		MaxRetries:  p.MaxRetries,
		Temperature: p.Temperature,
	})
}

func buildEmbedder(cfg *config.AppConfig, logger *slog.Logger) (domain.Embedder, error) {
	switch cfg.Embedder.Type {
	case "tfidf", "":
		dim := 0
		if cfg.Embedder.TFIDF != nil {
			dim = cfg.Embedder.TFIDF.Dimension
		}
		return tfidf.NewEmbedder(dim), nil
	case "gemini":
		if cfg.Embedder.Gemini == nil {
			return nil, fmt.Errorf("gemini embedder config missing")
		}
		c, err := newGeminiClient(cfg.Embedder.Gemini, logger)
		if err != nil {
			return nil, err
		}
		return c, nil
	case "openai":
		if cfg.Embedder.OpenAI == nil {
			return nil, fmt.Errorf("openai embedder config missing")
		}
		c, err := newOpenAIClient(cfg.Embedder.OpenAI)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown embedder: %s", cfg.Embedder.Type)
	}
}

func buildGenerator(cfg *config.AppConfig, logger *slog.Logger) (domain.Generator, error) {
	switch cfg.Generator.Type {
	case "extractive", "":
		n := 0
		if cfg.Generator.Extractive != nil {
			n = cfg.Generator.Extractive.MaxSentences
		}
		return extractive.New(summarizer.NewFrequencySummarizer(), n), nil
	case "gemini":
		if cfg.Generator.Gemini == nil {
			return nil, fmt.Errorf("gemini generator config missing")
		}
		c, err := newGeminiClient(cfg.Generator.Gemini, logger)
		if err != nil {
			return nil, err
		}
		return c, nil
	case "openai":
		if cfg.Generator.OpenAI == nil {
			return nil, fmt.Errorf("openai generator config missing")
		}
		c, err := newOpenAIClient(cfg.Generator.OpenAI)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown generator: %s", cfg.Generator.Type)
	}
}

func buildWorkspace(cfg *config.AppConfig, logger *slog.Logger) (*service.Workspace, error) {
	emb, err := buildEmbedder(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("embedder init failed: %w", err)
	}
	gen, err := buildGenerator(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("generator init failed: %w", err)
	}
	var sum service.Summarizer
	switch cfg.Summarizer.Type {
	case "frequency", "":
		sum = summarizer.NewFrequencySummarizer()
	default:
		return nil, fmt.Errorf("unknown summarizer: %s", cfg.Summarizer.Type)
	}
	return service.NewWorkspace(emb, gen,
		service.WithChunking(cfg.Chunker.ChunkSize, cfg.Chunker.Overlap),
		service.WithRetrievalTopK(cfg.Retrieval.TopK),
		service.WithEmbeddingPacer(embedding.NewRatePacer(cfg.Pacing.Interval())),
		service.WithSummarizer(sum, cfg.Summarizer.MaxSentences),
		service.WithLogger(logger),
	), nil
}

// expandInputs resolves globs; URLs pass through unchanged.
func expandInputs(inputs []string) []string {
	var out []string
	for _, in := range inputs {
		if ingest.ValidURL(in) {
			out = append(out, in)
			continue
		}
		matches, _ := filepath.Glob(in)
		if matches == nil {
			matches = []string{in}
		}
		out = append(out, matches...)
	}
	return out
}

func loadInput(ctx context.Context, scraper ingest.Scraper, in string) (domain.Document, error) {
	if ingest.ValidURL(in) {
		return ingest.FromURL(ctx, scraper, in)
	}
	return ingest.LoadFile(in)
}

// ingestInputs adds every input to ws, printing progress to out. It returns
// the summaries of the documents that became ready.
func ingestInputs(ctx context.Context, ws *service.Workspace, scraper ingest.Scraper, inputs []string, out io.Writer) ([]string, error) {
	var summaries []string
	for _, in := range expandInputs(inputs) {
		doc, err := loadInput(ctx, scraper, in)
		if err != nil {
			return summaries, fmt.Errorf("load %s: %w", in, err)
		}
		st, err := ws.Add(ctx, doc, func(p service.Progress) {
			fmt.Fprintf(out, "\r%-40s %3.0f%%", ingest.Preview(doc.Name, 40), p.Percent)
		})
		fmt.Fprintln(out)
		if err != nil {
			return summaries, fmt.Errorf("process %s: %w", doc.Name, err)
		}
		fmt.Fprintf(out, "%s: %d chunks, %d embedded\n", st.Name, st.ChunkCount, st.EmbeddedCount)
		if st.Summary != "" {
			summaries = append(summaries, st.Name+": "+st.Summary)
		}
	}
	if len(ws.Documents()) == 0 {
		return nil, fmt.Errorf("no documents found")
	}
	return summaries, nil
}

func loadConfig(path string) *config.AppConfig {
	var cfg *config.AppConfig
	var err error
	if path == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(path)
	}
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}
