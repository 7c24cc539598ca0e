package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/klob0t/chloe/internal/config"
	"github.com/klob0t/chloe/internal/logger"
	"github.com/klob0t/chloe/internal/search"
)

var searchCategory string

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Run a one-shot web search",
	Args:  cobra.MinimumNArgs(1),
	Run:   runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().StringVar(&searchCategory, "category", "general", "Search category")
}

func runSearch(cmd *cobra.Command, args []string) {
	cfg, err := config.Load()
	if err != nil {
		logger.Warn("[Search] failed to load config, using defaults: %v", err)
		cfg = config.DefaultConfig()
	}

	searcher := search.NewAggregator(cfg.Search)
	resp, err := searcher.Search(context.Background(), strings.Join(args, " "), searchCategory)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Search error: %v\n", err)
		os.Exit(1)
	}

	out, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Encode error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
}
