package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/spf13/cobra"

	"github.com/klob0t/chloe/internal/config"
	"github.com/klob0t/chloe/internal/image"
	"github.com/klob0t/chloe/internal/llm"
	"github.com/klob0t/chloe/internal/logger"
	"github.com/klob0t/chloe/internal/search"
	"github.com/klob0t/chloe/internal/store"
	"github.com/klob0t/chloe/internal/webui"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the chloe HTTP server",
	Run:   runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Listen port (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) {
	cfg, err := config.Load()
	if err != nil {
		logger.Warn("[Serve] failed to load config, using defaults: %v", err)
		cfg = config.DefaultConfig()
	}

	port := cfg.Port
	if servePort != 0 {
		port = servePort
	}

	searcher := search.NewAggregator(cfg.Search)
	images := image.NewClient(cfg.Image)
	completer := llm.NewClient(cfg.LLM, []openai.Tool{search.ToolDefinition()}, searcher)

	var kv store.KV
	if cfg.Storage.Path != "" {
		kv, err = store.OpenKV(cfg.Storage.Path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening storage: %v\n", err)
			os.Exit(1)
		}
		defer kv.Close()
	} else {
		logger.Info("[Serve] no storage path configured, conversations are memory-only")
	}

	st := store.New(kv, completer, images)
	st.SetTitleModel(cfg.LLM.TitleModel)

	var sweeper *store.Sweeper
	if cfg.Titles.BackfillSchedule != "" {
		sweeper, err = store.NewSweeper(st, cfg.Titles.BackfillSchedule)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error scheduling title backfill: %v\n", err)
			os.Exit(1)
		}
		sweeper.Start()
		defer sweeper.Stop()
	}

	server := webui.NewServer(st, searcher, images, completer)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           server.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("[Serve] listening on http://127.0.0.1:%d", port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("[Serve] server error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(ctx)
	st.WaitForTitles()
}
