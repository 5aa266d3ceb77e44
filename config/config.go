// ABOUTME: Application configuration loaded with viper from cardstream.yaml, CARDSTREAM_* env vars, and defaults.
// ABOUTME: Validate checks the producer choice and the values the server and stream client depend on.

// Package config loads cardstream settings.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Producer kinds.
const (
	ProducerNone   = "none"
	ProducerOpenAI = "openai"
	ProducerReplay = "replay"
)

// Config is the full application configuration.
type Config struct {
	Listen         string         `mapstructure:"listen"`
	UpstreamURL    string         `mapstructure:"upstream_url"` // empty: this server's own /api
	IdleTimeout    time.Duration  `mapstructure:"idle_timeout"`
	HistoryDB      string         `mapstructure:"history_db"` // empty disables history
	ToolsFile      string         `mapstructure:"tools_file"`
	RenderCacheTTL time.Duration  `mapstructure:"render_cache_ttl"`
	SubmitRate     float64        `mapstructure:"submit_rate"` // submissions per minute, 0 = unlimited
	Producer       ProducerConfig `mapstructure:"producer"`
}

// ProducerConfig selects and configures the built-in chat producer.
type ProducerConfig struct {
	Kind   string       `mapstructure:"kind"` // none, openai, or replay
	OpenAI OpenAIConfig `mapstructure:"openai"`
	Replay ReplayConfig `mapstructure:"replay"`
}

// OpenAIConfig configures an OpenAI-compatible chat completion backend.
type OpenAIConfig struct {
	APIKey       string `mapstructure:"api_key"`
	BaseURL      string `mapstructure:"base_url"`
	Model        string `mapstructure:"model"`
	SystemPrompt string `mapstructure:"system_prompt"`
}

// ReplayConfig configures the scripted producer.
type ReplayConfig struct {
	File  string  `mapstructure:"file"` // empty: built-in demo script
	Speed float64 `mapstructure:"speed"`
}

// EnvPrefix prefixes environment overrides, e.g. CARDSTREAM_PRODUCER_KIND.
const EnvPrefix = "CARDSTREAM"

const defaultSystemPrompt = "You are a financial research assistant. Answer in Markdown. " +
	"Use ## sections with an emoji before each title, two-column metric tables, " +
	"and finish with a > **conclusion** blockquote."

// Load reads configuration. An explicit path must exist; without one,
// cardstream.yaml is looked up in the working directory and the user config
// directory, and a missing file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("cardstream")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "cardstream"))
		}
	}

	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if cfg.Producer.OpenAI.APIKey == "" {
		cfg.Producer.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("listen", "127.0.0.1:8080")
	v.SetDefault("upstream_url", "")
	v.SetDefault("idle_timeout", "60s")
	v.SetDefault("history_db", "")
	v.SetDefault("tools_file", "")
	v.SetDefault("render_cache_ttl", "5m")
	v.SetDefault("submit_rate", 30)
	v.SetDefault("producer.kind", ProducerReplay)
	v.SetDefault("producer.openai.api_key", "")
	v.SetDefault("producer.openai.base_url", "")
	v.SetDefault("producer.openai.model", "gpt-4o-mini")
	v.SetDefault("producer.openai.system_prompt", defaultSystemPrompt)
	v.SetDefault("producer.replay.file", "")
	v.SetDefault("producer.replay.speed", 1.0)
}

// Validate reports the first configuration problem found.
func (c *Config) Validate() error {
	switch c.Producer.Kind {
	case ProducerNone:
		if c.UpstreamURL == "" {
			return errors.New("upstream_url is required when producer.kind is none")
		}
	case ProducerOpenAI:
		if c.Producer.OpenAI.APIKey == "" {
			return errors.New("producer.openai.api_key (or OPENAI_API_KEY) is required for the openai producer")
		}
	case ProducerReplay:
		if c.Producer.Replay.Speed < 0 {
			return errors.New("producer.replay.speed must not be negative")
		}
	default:
		return fmt.Errorf("unknown producer.kind %q (want none, openai, or replay)", c.Producer.Kind)
	}
	if c.IdleTimeout <= 0 {
		return errors.New("idle_timeout must be positive")
	}
	if c.SubmitRate < 0 {
		return errors.New("submit_rate must not be negative")
	}
	if c.Listen == "" {
		return errors.New("listen address is required")
	}
	return nil
}

// StreamBaseURL is the base URL the stream client connects to: the configured
// upstream, or this server's own address when it hosts the producer.
func (c *Config) StreamBaseURL() string {
	if c.UpstreamURL != "" {
		return c.UpstreamURL
	}
	host := c.Listen
	if strings.HasPrefix(host, ":") {
		host = "127.0.0.1" + host
	}
	return "http://" + host
}
