package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredSecrets(t *testing.T) {
	t.Helper()
	t.Setenv("PAPERBOT_SLACK_BOT_TOKEN", "xoxb-test")
	t.Setenv("PAPERBOT_TWITTER_API_KEY", "consumer-key")
	t.Setenv("PAPERBOT_TWITTER_API_SECRET_KEY", "consumer-secret")
}

func TestLoad_Defaults(t *testing.T) {
	clearEnvVars(t)
	setRequiredSecrets(t)

	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	// Server defaults
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.HTTPPort)
	assert.Equal(t, 9091, cfg.Server.MetricsPort)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)

	// Logging defaults
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)

	// Metrics defaults
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.Equal(t, "paperbot", cfg.Metrics.Namespace)

	// Dispatch defaults
	assert.Equal(t, 8, cfg.Dispatch.Workers)
	assert.Equal(t, 15*time.Minute, cfg.Dispatch.TaskTimeout)
	assert.Equal(t, "toptweets", cfg.Dispatch.Command)
	assert.Equal(t, 5, cfg.Dispatch.DefaultTop)

	// Cache defaults
	assert.Equal(t, 128, cfg.Cache.TranslationSize)
	assert.Equal(t, 128, cfg.Cache.MetadataSize)
	assert.Equal(t, 128, cfg.Cache.MentionsSize)

	// Provider defaults
	assert.Equal(t, "https://export.arxiv.org/api", cfg.ArXiv.BaseURL)
	assert.InDelta(t, 1.0/3.0, cfg.ArXiv.RateLimit, 1e-9)
	assert.Equal(t, 200, cfg.ArXiv.ChunkSize)
	assert.Contains(t, cfg.ArXiv.CategoryFilter, "cat:cs.LG")
	assert.Equal(t, 100, cfg.Twitter.MaxPages)
	assert.Equal(t, 100, cfg.Twitter.PageSize)
	assert.Equal(t, `"arxiv.org"`, cfg.Twitter.GenericQuery)
	assert.Equal(t, "JA", cfg.Translation.TargetLang)
	assert.Equal(t, "DEEPL_AUTH_KEY", cfg.Translation.CredentialPrefix)
	assert.Equal(t, "https://slack.com/api", cfg.Slack.BaseURL)
}

func TestLoad_EnvironmentOverride(t *testing.T) {
	clearEnvVars(t)
	setRequiredSecrets(t)

	t.Setenv("PAPERBOT_SERVER_HTTP_PORT", "8888")
	t.Setenv("PAPERBOT_LOGGING_LEVEL", "debug")
	t.Setenv("PAPERBOT_DISPATCH_WORKERS", "2")
	t.Setenv("PAPERBOT_DISPATCH_COMMAND", "hot")
	t.Setenv("PAPERBOT_DISPATCH_BOT_USER_ID", "UBOT")
	t.Setenv("PAPERBOT_ARXIV_CATEGORY_FILTER", "cat:hep-th")
	t.Setenv("PAPERBOT_TWITTER_MAX_PAGES", "3")
	t.Setenv("PAPERBOT_TRANSLATION_TARGET_LANG", "DE")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8888, cfg.Server.HTTPPort)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 2, cfg.Dispatch.Workers)
	assert.Equal(t, "hot", cfg.Dispatch.Command)
	assert.Equal(t, "UBOT", cfg.Dispatch.BotUserID)
	assert.Equal(t, "cat:hep-th", cfg.ArXiv.CategoryFilter)
	assert.Equal(t, 3, cfg.Twitter.MaxPages)
	assert.Equal(t, "DE", cfg.Translation.TargetLang)
}

func TestLoad_ConfigFile(t *testing.T) {
	clearEnvVars(t)
	setRequiredSecrets(t)

	dir := t.TempDir()
	yaml := strings.Join([]string{
		"dispatch:",
		"  default_top: 7",
		"twitter:",
		"  page_size: 50",
		"slack:",
		"  base_url: http://slack.internal/api",
	}, "\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600))
	t.Chdir(dir)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Dispatch.DefaultTop)
	assert.Equal(t, 50, cfg.Twitter.PageSize)
	assert.Equal(t, "http://slack.internal/api", cfg.Slack.BaseURL)
}

func TestLoad_SecretsFromEnvOnly(t *testing.T) {
	clearEnvVars(t)
	setRequiredSecrets(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "xoxb-test", cfg.Slack.BotToken)
	assert.Equal(t, "consumer-key", cfg.Twitter.APIKey)
	assert.Equal(t, "consumer-secret", cfg.Twitter.APISecretKey)
}

func TestLoad_MissingSecrets(t *testing.T) {
	clearEnvVars(t)

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PAPERBOT_SLACK_BOT_TOKEN")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name        string
		modifyFunc  func(*Config)
		expectedErr string
	}{
		{
			name:        "valid config",
			modifyFunc:  func(c *Config) {},
			expectedErr: "",
		},
		{
			name:        "HTTP port zero",
			modifyFunc:  func(c *Config) { c.Server.HTTPPort = 0 },
			expectedErr: "invalid HTTP port",
		},
		{
			name:        "metrics port too high",
			modifyFunc:  func(c *Config) { c.Server.MetricsPort = 70000 },
			expectedErr: "invalid metrics port",
		},
		{
			name:        "metrics port clashes with HTTP port",
			modifyFunc:  func(c *Config) { c.Server.MetricsPort = c.Server.HTTPPort },
			expectedErr: "metrics port must differ",
		},
		{
			name:        "unknown log level",
			modifyFunc:  func(c *Config) { c.Logging.Level = "verbose" },
			expectedErr: "invalid log level",
		},
		{
			name:        "no workers",
			modifyFunc:  func(c *Config) { c.Dispatch.Workers = 0 },
			expectedErr: "dispatch workers must be positive",
		},
		{
			name:        "blank command",
			modifyFunc:  func(c *Config) { c.Dispatch.Command = "  " },
			expectedErr: "dispatch command is required",
		},
		{
			name:        "default top out of range",
			modifyFunc:  func(c *Config) { c.Dispatch.DefaultTop = 11 },
			expectedErr: "default_top must be between 1 and 10",
		},
		{
			name:        "zero rate limit",
			modifyFunc:  func(c *Config) { c.ArXiv.RateLimit = 0 },
			expectedErr: "rate limits must be positive",
		},
		{
			name:        "page size over API maximum",
			modifyFunc:  func(c *Config) { c.Twitter.PageSize = 101 },
			expectedErr: "page_size must be between 1 and 100",
		},
		{
			name:        "missing twitter secret",
			modifyFunc:  func(c *Config) { c.Twitter.APISecretKey = "" },
			expectedErr: "PAPERBOT_TWITTER_API_SECRET_KEY",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modifyFunc(cfg)

			err := cfg.Validate()
			if tt.expectedErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedErr)
			}
		})
	}
}

func TestServerConfig_Addresses(t *testing.T) {
	cfg := ServerConfig{Host: "127.0.0.1", HTTPPort: 8080, MetricsPort: 9091}
	assert.Equal(t, "127.0.0.1:8080", cfg.HTTPAddress())
	assert.Equal(t, "127.0.0.1:9091", cfg.MetricsAddress())
}

// clearEnvVars unsets every PAPERBOT_ variable for the duration of the test.
func clearEnvVars(t *testing.T) {
	t.Helper()
	for _, env := range os.Environ() {
		key, _, _ := strings.Cut(env, "=")
		if strings.HasPrefix(key, EnvPrefix+"_") {
			t.Setenv(key, "")
			os.Unsetenv(key)
		}
	}
}

// validConfig returns a valid configuration for testing
func validConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			HTTPPort:    8080,
			MetricsPort: 9091,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{Enabled: true},
		Dispatch: DispatchConfig{
			Workers:     8,
			TaskTimeout: 15 * time.Minute,
			Command:     "toptweets",
			DefaultTop:  5,
		},
		ArXiv: ArXivConfig{
			RateLimit: 1.0 / 3.0,
			ChunkSize: 200,
		},
		Twitter: TwitterConfig{
			APIKey:       "k",
			APISecretKey: "s",
			RateLimit:    0.5,
			MaxPages:     100,
			PageSize:     100,
		},
		Translation: TranslationConfig{
			RateLimit:  5,
			TargetLang: "JA",
		},
		Slack: SlackConfig{
			BotToken:  "xoxb",
			RateLimit: 1,
		},
	}
}
