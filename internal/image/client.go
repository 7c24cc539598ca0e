package image

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/klob0t/chloe/internal/config"
	"github.com/klob0t/chloe/internal/logger"
)

// Request carries an image prompt plus optional generation overrides.
// Nil pointer fields mean "let the backend decide".
type Request struct {
	Prompt         string
	Seed           *int64
	GuidanceScale  *float64
	InferenceSteps *int
	Model          string
	Width          int
	Height         int
}

// Metadata echoes the parameters the image was generated with.
type Metadata struct {
	Provider       string   `json:"provider"`
	Model          string   `json:"model"`
	Width          int      `json:"width"`
	Height         int      `json:"height"`
	Seed           *int64   `json:"seed,omitempty"`
	InferenceSteps *int     `json:"inferenceSteps,omitempty"`
	GuidanceScale  *float64 `json:"guidanceScale,omitempty"`
	Source         string   `json:"source"`
}

type Result struct {
	URL      string   `json:"response"`
	Metadata Metadata `json:"metadata"`
}

// Client generates images through the Pollinations prompt-URL endpoint.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	width      int
	height     int
	retries    int
}

func NewClient(cfg config.ImageConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://image.pollinations.ai/prompt/"
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &Client{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		width:      cfg.Width,
		height:     cfg.Height,
		retries:    cfg.Retries,
	}
}

// Generate builds the prompt URL, verifies the backend serves it, and
// returns the URL plus echoed metadata. Request values win over client
// defaults.
func (c *Client) Generate(ctx context.Context, req Request) (*Result, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return nil, fmt.Errorf("image prompt is required")
	}

	model := req.Model
	if model == "" {
		model = c.model
	}
	width := req.Width
	if width <= 0 {
		width = c.width
	}
	height := req.Height
	if height <= 0 {
		height = c.height
	}

	requestURL := c.buildURL(prompt, model, width, height, req)

	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if err := c.verify(ctx, requestURL); err != nil {
			lastErr = err
			logger.Debug("[Image] attempt %d failed: %v", attempt+1, err)
			continue
		}
		lastErr = nil
		break
	}
	if lastErr != nil {
		return nil, fmt.Errorf("image generation request failed: %w", lastErr)
	}

	return &Result{
		URL: requestURL,
		Metadata: Metadata{
			Provider:       "pollinations",
			Model:          model,
			Width:          width,
			Height:         height,
			Seed:           req.Seed,
			InferenceSteps: req.InferenceSteps,
			GuidanceScale:  req.GuidanceScale,
			Source:         requestURL,
		},
	}, nil
}

func (c *Client) buildURL(prompt, model string, width, height int, req Request) string {
	params := url.Values{}
	if model != "" {
		params.Set("model", model)
	}
	if width > 0 {
		params.Set("width", strconv.Itoa(width))
	}
	if height > 0 {
		params.Set("height", strconv.Itoa(height))
	}
	if req.Seed != nil {
		params.Set("seed", strconv.FormatInt(*req.Seed, 10))
	}
	if req.InferenceSteps != nil {
		params.Set("steps", strconv.Itoa(*req.InferenceSteps))
	}
	if req.GuidanceScale != nil {
		params.Set("guidance", strconv.FormatFloat(*req.GuidanceScale, 'f', -1, 64))
	}
	params.Set("enhance", "true")
	params.Set("safe", "false")
	params.Set("nologo", "true")

	return c.baseURL + url.PathEscape(prompt) + "?" + params.Encode()
}

// verify issues the GET the caller would and checks the backend answers
// with an image before the URL is handed to the conversation.
func (c *Client) verify(ctx context.Context, requestURL string) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return err
	}
	httpReq.Header.Set("Accept", "image/*")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("image backend returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}
