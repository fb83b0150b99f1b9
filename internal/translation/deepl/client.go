// Package deepl implements translation.Provider against the DeepL v2 API.
package deepl

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/helixir/paperbot/internal/domain"
	"github.com/helixir/paperbot/internal/papersources"
	"github.com/helixir/paperbot/internal/translation"
)

const (
	// DefaultBaseURL serves paid-plan keys.
	DefaultBaseURL = "https://api.deepl.com"

	// FreeBaseURL serves free-plan keys, which end in ":fx".
	FreeBaseURL = "https://api-free.deepl.com"

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultRateLimit is the default requests per second.
	DefaultRateLimit = 5.0

	sourceName = "DeepL"
)

// Config holds configuration for the DeepL client.
type Config struct {
	// BaseURL overrides endpoint selection by key type when set.
	BaseURL   string
	Timeout   time.Duration
	RateLimit float64
	BurstSize int
}

func (c *Config) applyDefaults() {
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.RateLimit == 0 {
		c.RateLimit = DefaultRateLimit
	}
	if c.BurstSize == 0 {
		c.BurstSize = int(c.RateLimit)
	}
}

// Client calls the /v2/translate endpoint.
type Client struct {
	config     Config
	httpClient *papersources.HTTPClient
}

var _ translation.Provider = (*Client)(nil)

// New creates a new DeepL client.
func New(cfg Config, recorder papersources.RequestRecorder) *Client {
	cfg.applyDefaults()
	httpClient := papersources.NewHTTPClient(papersources.HTTPClientConfig{
		Source:    papersources.SourceDeepL,
		Timeout:   cfg.Timeout,
		RateLimit: cfg.RateLimit,
		BurstSize: cfg.BurstSize,
		Recorder:  recorder,
	})
	return &Client{config: cfg, httpClient: httpClient}
}

// NewWithHTTPClient creates a client with a custom HTTP client.
// This is useful for testing with mock servers.
func NewWithHTTPClient(cfg Config, httpClient *papersources.HTTPClient) *Client {
	cfg.applyDefaults()
	return &Client{config: cfg, httpClient: httpClient}
}

type translateResponse struct {
	Translations []struct {
		DetectedSourceLanguage string `json:"detected_source_language"`
		Text                   string `json:"text"`
	} `json:"translations"`
}

// Translate translates text into targetLang using authKey.
func (c *Client) Translate(ctx context.Context, authKey, text, targetLang string) (string, error) {
	if authKey == "" {
		return "", domain.ErrNoCredential
	}

	form := url.Values{}
	form.Set("text", text)
	form.Set("target_lang", targetLang)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(authKey), strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "DeepL-Auth-Key "+authKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", domain.NewExternalAPIError(
			sourceName,
			resp.StatusCode,
			papersources.ReadErrorBody(resp),
			nil,
		)
	}

	var body translateResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 10<<20)).Decode(&body); err != nil {
		return "", fmt.Errorf("decoding response: %w: %w", domain.ErrMalformedResponse, err)
	}
	if len(body.Translations) == 0 {
		return "", fmt.Errorf("response has no translations: %w", domain.ErrMalformedResponse)
	}
	return body.Translations[0].Text, nil
}

func (c *Client) endpoint(authKey string) string {
	base := c.config.BaseURL
	if base == "" {
		base = DefaultBaseURL
		if strings.HasSuffix(authKey, ":fx") {
			base = FreeBaseURL
		}
	}
	return strings.TrimRight(base, "/") + "/v2/translate"
}
