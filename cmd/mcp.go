package cmd

import (
	"fmt"
	"os"

	srv "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/klob0t/chloe/internal/config"
	"github.com/klob0t/chloe/internal/image"
	"github.com/klob0t/chloe/internal/logger"
	"github.com/klob0t/chloe/internal/search"
	"github.com/klob0t/chloe/internal/tools"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Expose search and image tools over MCP stdio",
	Run:   runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) {
	cfg, err := config.Load()
	if err != nil {
		logger.Warn("[MCP] failed to load config, using defaults: %v", err)
		cfg = config.DefaultConfig()
	}

	registry := tools.NewRegistry(
		search.NewAggregator(cfg.Search),
		image.NewClient(cfg.Image),
	)

	if err := srv.ServeStdio(registry.NewServer("chloe", version)); err != nil {
		fmt.Fprintf(os.Stderr, "MCP server error: %v\n", err)
		os.Exit(1)
	}
}
