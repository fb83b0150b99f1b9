// Package config provides configuration management for the paper mention bot.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix shared by every environment variable the service reads.
const EnvPrefix = "PAPERBOT"

// Config holds all configuration for the paper mention bot.
type Config struct {
	// Server contains inbound HTTP server settings.
	Server ServerConfig `mapstructure:"server"`
	// Logging contains structured logging settings.
	Logging LoggingConfig `mapstructure:"logging"`
	// Metrics contains Prometheus metrics exposure settings.
	Metrics MetricsConfig `mapstructure:"metrics"`
	// Dispatch contains worker pool and command parsing settings.
	Dispatch DispatchConfig `mapstructure:"dispatch"`
	// Cache contains the entry bound of each memo cache.
	Cache CacheConfig `mapstructure:"cache"`
	// ArXiv contains arXiv metadata API settings.
	ArXiv ArXivConfig `mapstructure:"arxiv"`
	// Twitter contains mention search settings.
	Twitter TwitterConfig `mapstructure:"twitter"`
	// Translation contains DeepL translation settings.
	Translation TranslationConfig `mapstructure:"translation"`
	// Slack contains chat reply settings.
	Slack SlackConfig `mapstructure:"slack"`
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	// Host is the address to bind the server to (default: 0.0.0.0).
	Host string `mapstructure:"host"`
	// HTTPPort is the events HTTP server port (default: 8080).
	HTTPPort int `mapstructure:"http_port"`
	// MetricsPort is the metrics server port (default: 9091).
	MetricsPort int `mapstructure:"metrics_port"`
	// ReadTimeout is the maximum duration for reading request body.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// WriteTimeout is the maximum duration for writing response.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// IdleTimeout is the keep-alive idle timeout.
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`
	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the log level (trace, debug, info, warn, error, fatal, panic).
	Level string `mapstructure:"level"`
	// Format is the log format (json, console).
	Format string `mapstructure:"format"`
	// Output is the log output destination (stdout, stderr).
	Output string `mapstructure:"output"`
	// AddSource adds source file and line to log output.
	AddSource bool `mapstructure:"add_source"`
	// TimeFormat is the timestamp format.
	TimeFormat string `mapstructure:"time_format"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	// Enabled enables metrics collection and exposure.
	Enabled bool `mapstructure:"enabled"`
	// Path is the HTTP path for metrics endpoint.
	Path string `mapstructure:"path"`
	// Namespace prefixes every metric name.
	Namespace string `mapstructure:"namespace"`
}

// DispatchConfig holds event dispatch settings.
type DispatchConfig struct {
	// Workers bounds the number of lookups running at once.
	Workers int `mapstructure:"workers"`
	// TaskTimeout bounds a single lookup end to end.
	TaskTimeout time.Duration `mapstructure:"task_timeout"`
	// Command is the leading word that requests a ranking.
	Command string `mapstructure:"command"`
	// DefaultTop is the ranking size when the command carries no count.
	DefaultTop int `mapstructure:"default_top"`
	// BotUserID is the bot's own chat user id.
	BotUserID string `mapstructure:"bot_user_id"`
}

// CacheConfig holds memo cache bounds.
type CacheConfig struct {
	TranslationSize int `mapstructure:"translation_size"`
	MetadataSize    int `mapstructure:"metadata_size"`
	MentionsSize    int `mapstructure:"mentions_size"`
}

// ArXivConfig holds arXiv metadata API configuration.
type ArXivConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	RateLimit float64       `mapstructure:"rate_limit"`
	Burst     int           `mapstructure:"burst"`
	// ChunkSize is the number of identifiers per metadata request.
	ChunkSize int `mapstructure:"chunk_size"`
	// Concurrency bounds the chunk requests in flight.
	Concurrency int `mapstructure:"concurrency"`
	// CategoryFilter restricts ranked papers (empty disables filtering).
	CategoryFilter string `mapstructure:"category_filter"`
}

// TwitterConfig holds mention search configuration.
type TwitterConfig struct {
	// APIKey is the consumer key (loaded from PAPERBOT_TWITTER_API_KEY).
	APIKey string `mapstructure:"-"`
	// APISecretKey is the consumer secret (loaded from PAPERBOT_TWITTER_API_SECRET_KEY).
	APISecretKey string `mapstructure:"-"`

	BaseURL   string        `mapstructure:"base_url"`
	TokenURL  string        `mapstructure:"token_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	RateLimit float64       `mapstructure:"rate_limit"`
	Burst     int           `mapstructure:"burst"`
	// MaxPages caps the search pages read per count.
	MaxPages int `mapstructure:"max_pages"`
	// PageSize is the number of results per page (at most 100).
	PageSize int `mapstructure:"page_size"`
	// GenericQuery is the query used for rankings.
	GenericQuery string `mapstructure:"generic_query"`
}

// TranslationConfig holds DeepL configuration. Auth keys are never stored
// here; they are resolved per requester at call time.
type TranslationConfig struct {
	// BaseURL overrides endpoint selection by key type when set.
	BaseURL    string        `mapstructure:"base_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
	RateLimit  float64       `mapstructure:"rate_limit"`
	TargetLang string        `mapstructure:"target_lang"`
	// CredentialPrefix names the env variables holding auth keys.
	CredentialPrefix string `mapstructure:"credential_prefix"`
}

// SlackConfig holds chat reply configuration.
type SlackConfig struct {
	// BotToken is the bot OAuth token (loaded from PAPERBOT_SLACK_BOT_TOKEN).
	BotToken string `mapstructure:"-"`

	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	RateLimit float64       `mapstructure:"rate_limit"`
}

// HTTPAddress returns the events HTTP server address.
func (c *ServerConfig) HTTPAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.HTTPPort)
}

// MetricsAddress returns the metrics server address.
func (c *ServerConfig) MetricsAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.MetricsPort)
}

// Load loads configuration from environment variables and config files.
func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Read from environment variables
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file if present
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/paperbot")

	if err := v.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Secrets use mapstructure:"-" and come from the environment only.
	loadSecrets(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadSecrets populates secret fields exclusively from environment variables.
func loadSecrets(cfg *Config) {
	cfg.Slack.BotToken = os.Getenv(EnvPrefix + "_SLACK_BOT_TOKEN")
	cfg.Twitter.APIKey = os.Getenv(EnvPrefix + "_TWITTER_API_KEY")
	cfg.Twitter.APISecretKey = os.Getenv(EnvPrefix + "_TWITTER_API_SECRET_KEY")
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.metrics_port", 9091)
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "10s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "30s")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("metrics.namespace", "paperbot")

	// Dispatch defaults
	v.SetDefault("dispatch.workers", 8)
	v.SetDefault("dispatch.task_timeout", "15m")
	v.SetDefault("dispatch.command", "toptweets")
	v.SetDefault("dispatch.default_top", 5)
	v.SetDefault("dispatch.bot_user_id", "")

	// Cache defaults
	v.SetDefault("cache.translation_size", 128)
	v.SetDefault("cache.metadata_size", 128)
	v.SetDefault("cache.mentions_size", 128)

	// arXiv asks clients to stay at or below one request every three seconds.
	v.SetDefault("arxiv.base_url", "https://export.arxiv.org/api")
	v.SetDefault("arxiv.timeout", "60s")
	v.SetDefault("arxiv.rate_limit", 1.0/3.0)
	v.SetDefault("arxiv.burst", 1)
	v.SetDefault("arxiv.chunk_size", 200)
	v.SetDefault("arxiv.concurrency", 1)
	v.SetDefault("arxiv.category_filter", "cat:cs.CV OR cat:cs.AI OR cat:cs.LG OR cat:cs.CL OR cat:cs.NE OR cat:stat.ML")

	// Twitter defaults. Credentials come from loadSecrets.
	v.SetDefault("twitter.base_url", "https://api.twitter.com/1.1")
	v.SetDefault("twitter.token_url", "https://api.twitter.com/oauth2/token")
	v.SetDefault("twitter.timeout", "30s")
	v.SetDefault("twitter.rate_limit", 0.5)
	v.SetDefault("twitter.burst", 5)
	v.SetDefault("twitter.max_pages", 100)
	v.SetDefault("twitter.page_size", 100)
	v.SetDefault("twitter.generic_query", `"arxiv.org"`)

	// Translation defaults
	v.SetDefault("translation.base_url", "")
	v.SetDefault("translation.timeout", "30s")
	v.SetDefault("translation.rate_limit", 5.0)
	v.SetDefault("translation.target_lang", "JA")
	v.SetDefault("translation.credential_prefix", "DEEPL_AUTH_KEY")

	// Slack defaults. The bot token comes from loadSecrets.
	v.SetDefault("slack.base_url", "https://slack.com/api")
	v.SetDefault("slack.timeout", "30s")
	v.SetDefault("slack.rate_limit", 1.0)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	// Validate server ports
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.Server.HTTPPort)
	}
	if c.Server.MetricsPort <= 0 || c.Server.MetricsPort > 65535 {
		return fmt.Errorf("invalid metrics port: %d", c.Server.MetricsPort)
	}
	if c.Metrics.Enabled && c.Server.MetricsPort == c.Server.HTTPPort {
		return fmt.Errorf("metrics port must differ from HTTP port: %d", c.Server.MetricsPort)
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	// Validate dispatch config
	if c.Dispatch.Workers <= 0 {
		return fmt.Errorf("dispatch workers must be positive")
	}
	if c.Dispatch.TaskTimeout <= 0 {
		return fmt.Errorf("dispatch task_timeout must be positive")
	}
	if strings.TrimSpace(c.Dispatch.Command) == "" {
		return fmt.Errorf("dispatch command is required")
	}
	if c.Dispatch.DefaultTop < 1 || c.Dispatch.DefaultTop > 10 {
		return fmt.Errorf("dispatch default_top must be between 1 and 10: %d", c.Dispatch.DefaultTop)
	}

	// Validate provider limits
	if c.ArXiv.RateLimit <= 0 || c.Twitter.RateLimit <= 0 || c.Translation.RateLimit <= 0 || c.Slack.RateLimit <= 0 {
		return fmt.Errorf("provider rate limits must be positive")
	}
	if c.ArXiv.ChunkSize <= 0 {
		return fmt.Errorf("arxiv chunk_size must be positive")
	}
	if c.Twitter.MaxPages <= 0 {
		return fmt.Errorf("twitter max_pages must be positive")
	}
	if c.Twitter.PageSize <= 0 || c.Twitter.PageSize > 100 {
		return fmt.Errorf("twitter page_size must be between 1 and 100: %d", c.Twitter.PageSize)
	}
	if c.Translation.TargetLang == "" {
		return fmt.Errorf("translation target_lang is required")
	}

	// Validate secrets
	if c.Slack.BotToken == "" {
		return fmt.Errorf("%s_SLACK_BOT_TOKEN must be set", EnvPrefix)
	}
	if c.Twitter.APIKey == "" || c.Twitter.APISecretKey == "" {
		return fmt.Errorf("%s_TWITTER_API_KEY and %s_TWITTER_API_SECRET_KEY must be set", EnvPrefix, EnvPrefix)
	}

	return nil
}
