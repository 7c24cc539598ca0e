package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/klob0t/chloe/internal/logger"
)

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "chloe",
	Short: "chloe chat assistant backend",
	Long: `chloe is a chat assistant backend with web search and image generation.

Modes:
  chloe            Run the HTTP server (default)
  chloe serve      Run the HTTP server
  chloe search     Run a one-shot web search
  chloe imagine    Generate an image from a prompt
  chloe mcp        Expose the tools over MCP stdio`,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	Run: runServe,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := logger.ParseLevel(logLevel)
		if err != nil {
			return err
		}
		logger.SetLevel(level)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "info",
		"Log level: trace, debug, info, warn, error, fatal, panic")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
