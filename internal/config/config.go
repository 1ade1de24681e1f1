package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Storage    StorageConfig    `yaml:"storage"`
	Worker     WorkerConfig     `yaml:"worker"`
	OpenRouter OpenRouterConfig `yaml:"openrouter"`
	HeyGen     HeyGenConfig     `yaml:"heygen"`
	Vimeo      VimeoConfig      `yaml:"vimeo"`
	Auth       AuthConfig       `yaml:"auth"`
	Download   DownloadConfig   `yaml:"download"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host         string        `yaml:"host" envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port         int           `yaml:"port" envconfig:"SERVER_PORT" default:"8093"`
	ReadTimeout  time.Duration `yaml:"read_timeout" envconfig:"SERVER_READ_TIMEOUT" default:"30s"`
	WriteTimeout time.Duration `yaml:"write_timeout" envconfig:"SERVER_WRITE_TIMEOUT" default:"2m"`
}

// StorageConfig holds filesystem and database storage configuration.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path" envconfig:"DATABASE_PATH" default:"/data/scriptcast.db"`
	TempPath     string `yaml:"temp_path" envconfig:"STORAGE_TEMP_PATH" default:"/data/temp"`
}

// WorkerConfig holds worker pool configuration.
type WorkerConfig struct {
	Count        int           `yaml:"count" envconfig:"WORKER_COUNT" default:"4"`
	PollInterval time.Duration `yaml:"poll_interval" envconfig:"WORKER_POLL_INTERVAL" default:"2s"`
	LeaseTTL     time.Duration `yaml:"lease_ttl" envconfig:"WORKER_LEASE_TTL" default:"30m"`
}

// OpenRouterConfig holds chat completion API configuration.
type OpenRouterConfig struct {
	APIKey          string        `yaml:"api_key" envconfig:"OPENROUTER_API_KEY"`
	BaseURL         string        `yaml:"base_url" envconfig:"OPENROUTER_BASE_URL" default:"https://openrouter.ai/api/v1"`
	Timeout         time.Duration `yaml:"timeout" envconfig:"OPENROUTER_TIMEOUT" default:"60s"`
	DefaultModel    string        `yaml:"default_model" envconfig:"OPENROUTER_DEFAULT_MODEL" default:"google/gemini-2.5-flash-lite"`
	ExtractionModel string        `yaml:"extraction_model" envconfig:"OPENROUTER_EXTRACTION_MODEL" default:"openai/gpt-4.1-mini"`
	Referer         string        `yaml:"referer" envconfig:"OPENROUTER_REFERER" default:"https://scriptcast.local"`
	AppTitle        string        `yaml:"app_title" envconfig:"OPENROUTER_APP_TITLE" default:"Scriptcast"`
}

// HeyGenConfig holds video generation API configuration.
type HeyGenConfig struct {
	APIKey       string        `yaml:"api_key" envconfig:"HEYGEN_API_KEY"`
	BaseURL      string        `yaml:"base_url" envconfig:"HEYGEN_BASE_URL" default:"https://api.heygen.com"`
	TemplateID   string        `yaml:"template_id" envconfig:"HEYGEN_TEMPLATE_ID"`
	Timeout      time.Duration `yaml:"timeout" envconfig:"HEYGEN_TIMEOUT" default:"30s"`
	PollInterval time.Duration `yaml:"poll_interval" envconfig:"HEYGEN_POLL_INTERVAL" default:"10s"`
	PollAttempts int           `yaml:"poll_attempts" envconfig:"HEYGEN_POLL_ATTEMPTS" default:"150"`
}

// VimeoConfig holds video hosting API configuration.
type VimeoConfig struct {
	Token   string        `yaml:"token" envconfig:"VIMEO_TOKEN"`
	BaseURL string        `yaml:"base_url" envconfig:"VIMEO_BASE_URL" default:"https://api.vimeo.com"`
	Timeout time.Duration `yaml:"timeout" envconfig:"VIMEO_TIMEOUT" default:"10m"`
}

// AuthConfig holds external authenticator configuration.
type AuthConfig struct {
	VerifyURL string        `yaml:"verify_url" envconfig:"AUTH_VERIFY_URL"`
	Timeout   time.Duration `yaml:"timeout" envconfig:"AUTH_TIMEOUT" default:"10s"`
}

// DownloadConfig holds media download configuration.
type DownloadConfig struct {
	Timeout       time.Duration `yaml:"timeout" envconfig:"DOWNLOAD_TIMEOUT" default:"10m"`
	RetryDelay    time.Duration `yaml:"retry_delay" envconfig:"DOWNLOAD_RETRY_DELAY" default:"5s"`
	MaxRetryDelay time.Duration `yaml:"max_retry_delay" envconfig:"DOWNLOAD_MAX_RETRY_DELAY" default:"60s"`
}

// Load reads configuration from file and environment variables.
// Environment variables override file values.
func Load(configPath string) (*Config, error) {
	cfg := &Config{}

	// Load from YAML file if provided
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	// Override with environment variables
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}

	// Validate
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration values are set.
func (c *Config) Validate() error {
	if c.OpenRouter.APIKey == "" {
		return fmt.Errorf("OPENROUTER_API_KEY is required")
	}
	if c.HeyGen.APIKey == "" {
		return fmt.Errorf("HEYGEN_API_KEY is required")
	}
	if c.HeyGen.TemplateID == "" {
		return fmt.Errorf("HEYGEN_TEMPLATE_ID is required")
	}
	if c.Vimeo.Token == "" {
		return fmt.Errorf("VIMEO_TOKEN is required")
	}
	if c.Auth.VerifyURL == "" {
		return fmt.Errorf("AUTH_VERIFY_URL is required")
	}
	if c.Storage.DatabasePath == "" {
		return fmt.Errorf("DATABASE_PATH is required")
	}
	return nil
}

// Address returns the server address in host:port format.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
