package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

var (
	exeDirCache string
)

// getExecutableDir returns the directory where the executable is located
func getExecutableDir() string {
	if exeDirCache != "" {
		return exeDirCache
	}
	execPath, err := os.Executable()
	if err != nil {
		exeDirCache = "."
		return exeDirCache
	}
	execPath, err = filepath.EvalSymlinks(execPath)
	if err != nil {
		exeDirCache = "."
		return exeDirCache
	}
	exeDirCache = filepath.Dir(execPath)
	return exeDirCache
}

type Config struct {
	Port    int           `yaml:"port"`
	Logging LoggingConfig `yaml:"logging"`
	Search  SearchConfig  `yaml:"search,omitempty"`
	LLM     LLMConfig     `yaml:"llm,omitempty"`
	Image   ImageConfig   `yaml:"image,omitempty"`
	Storage StorageConfig `yaml:"storage,omitempty"`
	Titles  TitlesConfig  `yaml:"titles,omitempty"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file,omitempty"`
}

// SearchConfig configures the searx scraping aggregator.
type SearchConfig struct {
	Instances      []string `yaml:"instances"`
	TimeoutSeconds int      `yaml:"timeout_seconds,omitempty"`
	MaxResults     int      `yaml:"max_results,omitempty"`
	UserAgent      string   `yaml:"user_agent,omitempty"`
}

// Timeout returns the per-attempt scrape timeout.
func (c SearchConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 12 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

type LLMConfig struct {
	BaseURL    string `yaml:"base_url,omitempty"`
	APIKey     string `yaml:"api_key,omitempty"`
	Model      string `yaml:"model,omitempty"`
	TitleModel string `yaml:"title_model,omitempty"`
	MaxTokens  int    `yaml:"max_tokens,omitempty"`
}

type ImageConfig struct {
	BaseURL string `yaml:"base_url,omitempty"`
	APIKey  string `yaml:"api_key,omitempty"`
	Model   string `yaml:"model,omitempty"`
	Width   int    `yaml:"width,omitempty"`
	Height  int    `yaml:"height,omitempty"`
	Retries int    `yaml:"retries,omitempty"`
}

type StorageConfig struct {
	// Path to the sqlite database. Empty means memory-only operation.
	Path string `yaml:"path,omitempty"`
}

type TitlesConfig struct {
	// BackfillSchedule is a cron expression for the title backfill sweep.
	// Empty disables the sweeper.
	BackfillSchedule string `yaml:"backfill_schedule,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		Port: 3000,
		Logging: LoggingConfig{
			Level: "info",
		},
		Search: SearchConfig{
			Instances: []string{
				"https://searx.be",
				"https://search.brave4u.com",
				"https://priv.au",
				"https://searx.tiekoetter.com",
			},
			TimeoutSeconds: 12,
			MaxResults:     8,
			UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		},
		LLM: LLMConfig{
			BaseURL:   "https://text.pollinations.ai/openai",
			Model:     "openai",
			MaxTokens: 1000,
		},
		Image: ImageConfig{
			BaseURL: "https://image.pollinations.ai/prompt/",
			Model:   "gptimage",
			Width:   1080,
			Height:  1350,
			Retries: 1,
		},
		Storage: StorageConfig{
			Path: filepath.Join(DataDir(), "chloe.db"),
		},
		Titles: TitlesConfig{
			BackfillSchedule: "@every 5m",
		},
	}
}

func DataDir() string {
	exeDir := getExecutableDir()
	return filepath.Join(exeDir, ".chloe")
}

func ConfigPath() string {
	exeDir := getExecutableDir()
	return filepath.Join(exeDir, ".chloe.yaml")
}

func Load() (*Config, error) {
	return LoadFromPath(ConfigPath())
}

func LoadFromPath(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Save() error {
	if err := os.MkdirAll(DataDir(), 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(ConfigPath(), data, 0600)
}
