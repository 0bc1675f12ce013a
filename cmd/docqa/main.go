package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"docqa/internal/chunker"
	"docqa/internal/config"
	"docqa/internal/httpapi"
	"docqa/internal/ingest"
	"docqa/internal/tui"
)

func main() {
	_ = godotenv.Load()

	var (
		cfgPath string
		cfg     *config.AppConfig
	)

	rootCmd := &cobra.Command{
		Use:          "docqa",
		Short:        "Ask questions about your documents and web pages",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cfg = loadConfig(cfgPath)
		},
	}
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/docqa/config.yaml if not provided)")

	chatCmd := &cobra.Command{
		Use:   "chat <file|url>...",
		Short: "Ingest documents and chat about them in the terminal",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd.Context(), cfg, args)
		},
	}

	var question string
	askCmd := &cobra.Command{
		Use:   "ask -q <question> <file|url>...",
		Short: "Ingest documents and answer a single question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsk(cmd.Context(), cfg, question, args)
		},
	}
	askCmd.Flags().StringVarP(&question, "question", "q", "", "Question to answer")
	_ = askCmd.MarkFlagRequired("question")

	var addr string
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the document Q&A REST API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				cfg.Server.Addr = addr
			}
			return runServe(cmd.Context(), cfg)
		},
	}
	serveCmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides server.addr)")

	chunkCmd := &cobra.Command{
		Use:   "chunk <file>",
		Short: "Print the chunks a document is split into",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChunk(cfg, args[0])
		},
	}

	rootCmd.AddCommand(chatCmd, askCmd, serveCmd, chunkCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func runChat(ctx context.Context, cfg *config.AppConfig, inputs []string) error {
	logger := newLogger(cfg.Log, os.Stderr)
	ws, err := buildWorkspace(cfg, logger)
	if err != nil {
		log.Fatalf("%v", err)
	}
	summaries, err := ingestInputs(ctx, ws, ingest.NewHTTPScraper(0), inputs, os.Stderr)
	if err != nil {
		return err
	}

	m := tui.New(ws, strings.Join(summaries, "\n"), 0)
	if _, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil {
		return err
	}
	return nil
}

func runAsk(ctx context.Context, cfg *config.AppConfig, question string, inputs []string) error {
	logger := newLogger(cfg.Log, os.Stderr)
	ws, err := buildWorkspace(cfg, logger)
	if err != nil {
		log.Fatalf("%v", err)
	}
	if _, err := ingestInputs(ctx, ws, ingest.NewHTTPScraper(0), inputs, os.Stderr); err != nil {
		return err
	}

	resp, err := ws.Ask(ctx, question, nil)
	if err != nil {
		return err
	}
	fmt.Println(resp.Answer)
	if len(resp.Sources) > 0 {
		fmt.Println()
		fmt.Println("Sources:")
		for i, s := range resp.Sources {
			fmt.Printf("  [%d] %s (similarity %.3f): %s\n", i+1, s.Chunk.DocumentName, s.Similarity, ingest.Preview(s.Chunk.Text, 80))
		}
	}
	return nil
}

func runServe(ctx context.Context, cfg *config.AppConfig) error {
	logger := newLogger(cfg.Log, os.Stderr)
	ws, err := buildWorkspace(cfg, logger)
	if err != nil {
		log.Fatalf("%v", err)
	}
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           httpapi.NewServer(ws, ingest.NewHTTPScraper(0), logger).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", cfg.Server.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type chunkView struct {
	ID      string `json:"id"`
	Length  int    `json:"length"`
	Preview string `json:"preview"`
}

func runChunk(cfg *config.AppConfig, path string) error {
	doc, err := ingest.LoadFile(path)
	if err != nil {
		return err
	}
	chunks := chunker.NewSentenceChunker(cfg.Chunker.ChunkSize, cfg.Chunker.Overlap).Chunk(doc)
	views := make([]chunkView, len(chunks))
	for i, ch := range chunks {
		views[i] = chunkView{ID: ch.ID, Length: len([]rune(ch.Text)), Preview: ingest.Preview(ch.Text, 80)}
	}
	fmt.Fprintf(os.Stderr, "%s: %d sentences, %d chunks\n", doc.Name, len(chunker.Split(doc.Text)), len(chunks))
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(views)
}
