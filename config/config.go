// Package config provides configuration management for jobscout.
// Values come from a YAML file, an optional .env file, and environment
// variables, in increasing order of precedence.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the application configuration.
type Config struct {
	LLM     LLMConfig     `yaml:"llm"`
	Cache   CacheConfig   `yaml:"cache"`
	Store   StoreConfig   `yaml:"store"`
	Crawler CrawlerConfig `yaml:"crawler"`
}

// LLMConfig selects and configures the provider.
type LLMConfig struct {
	// Provider is "local" or "cloud" (case-insensitive).
	Provider string `yaml:"provider"`

	MaxRetries      int           `yaml:"max_retries"`
	RetryBaseDelay  time.Duration `yaml:"retry_base_delay"`
	RetryMultiplier float64       `yaml:"retry_multiplier"`

	Local LocalProviderConfig `yaml:"local"`
	Cloud CloudProviderConfig `yaml:"cloud"`
}

// LocalProviderConfig configures the local (Ollama) provider.
type LocalProviderConfig struct {
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// CloudProviderConfig configures the cloud (OpenAI-compatible) provider.
type CloudProviderConfig struct {
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
	APIKey  string `yaml:"api_key"`
}

// CacheConfig configures the parse cache.
type CacheConfig struct {
	// Backend is "sqlite" (default) or "redis".
	Backend string        `yaml:"backend"`
	TTL     time.Duration `yaml:"ttl"`
	// RedisURL is required when Backend is "redis".
	RedisURL string `yaml:"redis_url"`
}

// StoreConfig configures the durable storage.
type StoreConfig struct {
	Path          string `yaml:"path"`
	RetentionDays int    `yaml:"retention_days"`
}

// CrawlerConfig configures crawl cycles.
type CrawlerConfig struct {
	Keywords  []string `yaml:"keywords"`
	Location  string   `yaml:"location"`
	PageLimit int      `yaml:"page_limit"`
}

// Load reads configuration from the YAML file at path (skipped when the
// file does not exist), overlays environment variables, and applies
// defaults. A .env file in the working directory is loaded first.
func Load(path string) (*Config, error) {
	// Optional; absence is not an error.
	_ = godotenv.Load()

	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overlays well-known environment variables. Env values always
// win over YAML values.
func (c *Config) applyEnv() {
	setString(&c.LLM.Provider, "JOBSCOUT_PROVIDER")
	setString(&c.LLM.Local.BaseURL, "OLLAMA_BASE_URL")
	setString(&c.LLM.Local.Model, "OLLAMA_MODEL")
	setString(&c.LLM.Cloud.BaseURL, "OPENAI_BASE_URL")
	setString(&c.LLM.Cloud.Model, "OPENAI_MODEL")
	setString(&c.LLM.Cloud.APIKey, "OPENAI_API_KEY")
	setString(&c.Cache.Backend, "JOBSCOUT_CACHE_BACKEND")
	setString(&c.Cache.RedisURL, "JOBSCOUT_REDIS_URL")
	setString(&c.Store.Path, "JOBSCOUT_DB_PATH")

	if v := os.Getenv("JOBSCOUT_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.LLM.MaxRetries = n
		}
	}
}

func setString(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}

// applyDefaults fills in unset values.
func (c *Config) applyDefaults() {
	if c.LLM.Provider == "" {
		c.LLM.Provider = "local"
	}
	if c.LLM.RetryBaseDelay <= 0 {
		c.LLM.RetryBaseDelay = 1 * time.Second
	}
	if c.LLM.RetryMultiplier <= 0 {
		c.LLM.RetryMultiplier = 2.0
	}
	if c.Cache.Backend == "" {
		c.Cache.Backend = "sqlite"
	}
	if c.Cache.TTL <= 0 {
		c.Cache.TTL = 7 * 24 * time.Hour
	}
	if c.Store.Path == "" {
		c.Store.Path = ".jobscout/jobscout.db"
	}
	if c.Store.RetentionDays <= 0 {
		c.Store.RetentionDays = 90
	}
	if c.Crawler.PageLimit <= 0 {
		c.Crawler.PageLimit = 3
	}
}

// validate rejects configurations no component can act on.
func (c *Config) validate() error {
	if c.LLM.MaxRetries < 0 {
		return fmt.Errorf("llm.max_retries must be >= 0, got %d", c.LLM.MaxRetries)
	}
	switch c.Cache.Backend {
	case "sqlite":
	case "redis":
		if c.Cache.RedisURL == "" {
			return fmt.Errorf("cache.redis_url is required when cache.backend is redis")
		}
	default:
		return fmt.Errorf("unknown cache backend: %s", c.Cache.Backend)
	}
	return nil
}
