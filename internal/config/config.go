package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the naturescout API configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Database   DatabaseConfig   `yaml:"database"`
	Source     SourceConfig     `yaml:"source"`
	Extraction ExtractionConfig `yaml:"extraction"`
	Places     PlacesConfig     `yaml:"places"`
	Pipeline   PipelineConfig   `yaml:"pipeline"`
	Auth       AuthConfig       `yaml:"auth"`
	Storage    StorageConfig    `yaml:"storage"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings for mutating endpoints.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds cache store connection settings.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// SourceConfig holds discussion source settings.
type SourceConfig struct {
	BaseURL        string `yaml:"base_url"`
	UserAgent      string `yaml:"user_agent"`
	CommentLimit   int    `yaml:"comment_limit"`
	MinCommentLen  int    `yaml:"min_comment_len"`
	TimeoutSec     int    `yaml:"timeout_sec"`
	RetryAttempts  int    `yaml:"retry_attempts"`
}

// ExtractionConfig holds LLM extraction provider settings.
type ExtractionConfig struct {
	APIKey        string `yaml:"api_key"`
	BaseURL       string `yaml:"base_url"`
	Model         string `yaml:"model"`
	MaxTokens     int    `yaml:"max_tokens"`
	TimeoutSec    int    `yaml:"timeout_sec"`
	RetryAttempts int    `yaml:"retry_attempts"`
	SummaryModel  string `yaml:"summary_model"`
}

// PlacesConfig holds places lookup settings, including the locality guard.
type PlacesConfig struct {
	APIKey           string  `yaml:"api_key"`
	BaseURL          string  `yaml:"base_url"`
	PhotoMaxWidthPx  int     `yaml:"photo_max_width_px"`
	MaxPhotos        int     `yaml:"max_photos"`
	TimeoutSec       int     `yaml:"timeout_sec"`
	RetryAttempts    int     `yaml:"retry_attempts"`
	LocalityMatch    string  `yaml:"locality_match"` // strict | radius
	LocalityRadiusKm float64 `yaml:"locality_radius_km"`
}

// PipelineConfig holds orchestration knobs: external-call caps, scoring
// weights, and bounded concurrency limits.
type PipelineConfig struct {
	TopK                   int     `yaml:"top_k"`
	CommunityWeight        float64 `yaml:"community_weight"`
	RatingWeight           float64 `yaml:"rating_weight"`
	ExtractionConcurrency  int     `yaml:"extraction_concurrency"`
	VerifyConcurrency      int     `yaml:"verify_concurrency"`
	RunTimeoutSec          int     `yaml:"run_timeout_sec"`
}

// StorageConfig holds cache key settings.
type StorageConfig struct {
	KeyPrefix string `yaml:"key_prefix"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR} / ${VAR:-default}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		// Pipeline runs block on several upstream calls; give writes room.
		c.HTTP.WriteTimeoutSec = 120
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Source.BaseURL == "" {
		c.Source.BaseURL = "https://www.reddit.com"
	}
	if c.Source.UserAgent == "" {
		c.Source.UserAgent = "naturescout/1.0"
	}
	if c.Source.CommentLimit <= 0 {
		c.Source.CommentLimit = 25
	}
	if c.Source.MinCommentLen <= 0 {
		c.Source.MinCommentLen = 20
	}
	if c.Source.TimeoutSec <= 0 {
		c.Source.TimeoutSec = 15
	}
	if c.Source.RetryAttempts <= 0 {
		c.Source.RetryAttempts = 3
	}
	if c.Extraction.Model == "" {
		c.Extraction.Model = "gpt-4o-mini"
	}
	if c.Extraction.SummaryModel == "" {
		c.Extraction.SummaryModel = c.Extraction.Model
	}
	if c.Extraction.MaxTokens <= 0 {
		c.Extraction.MaxTokens = 600
	}
	if c.Extraction.TimeoutSec <= 0 {
		c.Extraction.TimeoutSec = 30
	}
	if c.Extraction.RetryAttempts <= 0 {
		c.Extraction.RetryAttempts = 3
	}
	if c.Places.BaseURL == "" {
		c.Places.BaseURL = "https://places.googleapis.com/v1"
	}
	if c.Places.PhotoMaxWidthPx <= 0 {
		c.Places.PhotoMaxWidthPx = 800
	}
	if c.Places.MaxPhotos <= 0 {
		c.Places.MaxPhotos = 3
	}
	if c.Places.TimeoutSec <= 0 {
		c.Places.TimeoutSec = 15
	}
	if c.Places.RetryAttempts <= 0 {
		c.Places.RetryAttempts = 3
	}
	if c.Places.LocalityMatch == "" {
		c.Places.LocalityMatch = "strict"
	}
	if c.Places.LocalityRadiusKm <= 0 {
		c.Places.LocalityRadiusKm = 50
	}
	if c.Pipeline.TopK <= 0 {
		c.Pipeline.TopK = 10
	}
	if c.Pipeline.CommunityWeight <= 0 && c.Pipeline.RatingWeight <= 0 {
		c.Pipeline.CommunityWeight = 0.6
		c.Pipeline.RatingWeight = 0.4
	}
	if c.Pipeline.ExtractionConcurrency <= 0 {
		c.Pipeline.ExtractionConcurrency = 3
	}
	if c.Pipeline.VerifyConcurrency <= 0 {
		c.Pipeline.VerifyConcurrency = 3
	}
	if c.Pipeline.RunTimeoutSec <= 0 {
		c.Pipeline.RunTimeoutSec = 120
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "naturescout:"
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	switch c.Places.LocalityMatch {
	case "strict", "radius":
	default:
		return fmt.Errorf(
			"places.locality_match must be \"strict\" or \"radius\", got %q",
			c.Places.LocalityMatch,
		)
	}
	sum := c.Pipeline.CommunityWeight + c.Pipeline.RatingWeight
	if sum < 0.999 || sum > 1.001 {
		return fmt.Errorf(
			"pipeline.community_weight + pipeline.rating_weight must equal 1, got %v",
			sum,
		)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
