package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/klob0t/chloe/internal/config"
	"github.com/klob0t/chloe/internal/image"
	"github.com/klob0t/chloe/internal/logger"
)

var (
	imagineSeed     int64
	imagineSteps    int
	imagineGuidance float64
	imagineModel    string
)

var imagineCmd = &cobra.Command{
	Use:   "imagine <prompt>",
	Short: "Generate an image from a prompt",
	Args:  cobra.MinimumNArgs(1),
	Run:   runImagine,
}

func init() {
	rootCmd.AddCommand(imagineCmd)
	imagineCmd.Flags().Int64Var(&imagineSeed, "seed", 0, "Deterministic seed")
	imagineCmd.Flags().IntVar(&imagineSteps, "steps", 0, "Inference steps")
	imagineCmd.Flags().Float64Var(&imagineGuidance, "guidance", 0, "Guidance scale")
	imagineCmd.Flags().StringVar(&imagineModel, "model", "", "Backend image model")
}

func runImagine(cmd *cobra.Command, args []string) {
	cfg, err := config.Load()
	if err != nil {
		logger.Warn("[Imagine] failed to load config, using defaults: %v", err)
		cfg = config.DefaultConfig()
	}

	req := image.Request{
		Prompt: strings.Join(args, " "),
		Model:  imagineModel,
	}
	if cmd.Flags().Changed("seed") {
		req.Seed = &imagineSeed
	}
	if cmd.Flags().Changed("steps") {
		req.InferenceSteps = &imagineSteps
	}
	if cmd.Flags().Changed("guidance") {
		req.GuidanceScale = &imagineGuidance
	}

	client := image.NewClient(cfg.Image)
	result, err := client.Generate(context.Background(), req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Image generation error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(result.URL)
}
