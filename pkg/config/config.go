package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for pusharc
type Config struct {
	// Pushshift API settings
	Pushshift PushshiftConfig `yaml:"pushshift" json:"pushshift"`

	// Fetch settings
	Fetch FetchConfig `yaml:"fetch" json:"fetch"`

	// Retry behavior for server timeouts
	Retry RetryConfig `yaml:"retry" json:"retry"`

	// Output settings
	Output OutputConfig `yaml:"output" json:"output"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// PushshiftConfig holds Pushshift API configuration
type PushshiftConfig struct {
	BaseURL        string        `yaml:"base_url" json:"base_url"`
	APIToken       string        `yaml:"api_token" json:"api_token"`
	UserAgent      string        `yaml:"user_agent" json:"user_agent"`
	RequestTimeout time.Duration `yaml:"request_timeout" json:"request_timeout"`
}

// FetchConfig holds pagination settings
type FetchConfig struct {
	// PageSize is the number of submissions requested per page
	PageSize int `yaml:"page_size" json:"page_size"`
	// Cutoff is the upper created_utc bound applied when --stop-early
	// is requested. Defaults to Jan 1, 2020 UTC.
	Cutoff int64 `yaml:"cutoff" json:"cutoff"`
}

// RetryConfig holds retry behavior for timed-out page fetches
type RetryConfig struct {
	MaxRetries int           `yaml:"max_retries" json:"max_retries"`
	Delay      time.Duration `yaml:"delay" json:"delay"`
}

// OutputConfig holds output directory configuration
type OutputConfig struct {
	BaseDirectory string `yaml:"base_directory" json:"base_directory"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Pushshift: PushshiftConfig{
			BaseURL:        "https://api.pushshift.io",
			UserAgent:      "pusharc/1.0 (subreddit archiver)",
			RequestTimeout: 90 * time.Second,
		},
		Fetch: FetchConfig{
			PageSize: 1000,
			Cutoff:   1577862000, // Jan 1, 2020
		},
		Retry: RetryConfig{
			MaxRetries: 7,
			Delay:      5 * time.Second,
		},
		Output: OutputConfig{
			BaseDirectory: "./raw_json",
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	if token := os.Getenv("PUSHARC_API_TOKEN"); token != "" {
		c.Pushshift.APIToken = token
	}
	if baseURL := os.Getenv("PUSHARC_BASE_URL"); baseURL != "" {
		c.Pushshift.BaseURL = baseURL
	}
	if userAgent := os.Getenv("PUSHARC_USER_AGENT"); userAgent != "" {
		c.Pushshift.UserAgent = userAgent
	}
	if outDir := os.Getenv("PUSHARC_OUT_DIR"); outDir != "" {
		c.Output.BaseDirectory = outDir
	}
	if pageSize := os.Getenv("PUSHARC_PAGE_SIZE"); pageSize != "" {
		if val, err := strconv.Atoi(pageSize); err == nil && val > 0 {
			c.Fetch.PageSize = val
		}
	}
	if maxRetries := os.Getenv("PUSHARC_MAX_RETRIES"); maxRetries != "" {
		if val, err := strconv.Atoi(maxRetries); err == nil && val >= 0 {
			c.Retry.MaxRetries = val
		}
	}
	if logLevel := os.Getenv("PUSHARC_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}

	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	locations := []string{
		".pusharc.yaml",
		".pusharc.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "pusharc", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".config", "pusharc", "config.yml"),
		filepath.Join(os.Getenv("HOME"), ".pusharc.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.Pushshift.BaseURL == "" {
		errs = append(errs, errors.New("pushshift base URL is required"))
	}
	if c.Pushshift.RequestTimeout <= 0 {
		errs = append(errs, errors.New("request timeout must be positive"))
	}

	if c.Fetch.PageSize <= 0 {
		errs = append(errs, errors.New("page size must be positive"))
	}
	if c.Fetch.PageSize > 1000 {
		errs = append(errs, errors.New("page size cannot exceed 1000"))
	}

	if c.Retry.MaxRetries < 0 {
		errs = append(errs, errors.New("max retries cannot be negative"))
	}
	if c.Retry.Delay < 0 {
		errs = append(errs, errors.New("retry delay cannot be negative"))
	}

	if c.Output.BaseDirectory == "" {
		errs = append(errs, errors.New("output directory is required"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if outDir, ok := flags["out-dir"].(string); ok && outDir != "" {
		c.Output.BaseDirectory = outDir
	}
	if pageSize, ok := flags["page-size"].(int); ok && pageSize > 0 {
		c.Fetch.PageSize = pageSize
	}
	if maxRetries, ok := flags["max-retries"].(int); ok && maxRetries >= 0 {
		c.Retry.MaxRetries = maxRetries
	}
	if delay, ok := flags["retry-delay"].(time.Duration); ok && delay > 0 {
		c.Retry.Delay = delay
	}
	if token, ok := flags["api-token"].(string); ok && token != "" {
		c.Pushshift.APIToken = token
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".pusharc.env"))

	// Start with defaults
	config := DefaultConfig()

	// Load from config file
	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	// Override with environment variables (includes values from .env)
	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Override with command line flags
	config.MergeCommandLineFlags(flags)

	// Validate final configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
