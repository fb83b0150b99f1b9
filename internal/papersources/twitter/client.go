// Package twitter implements mentions.Pager against the Twitter standard
// search API with app-only authentication.
package twitter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2/clientcredentials"

	"github.com/helixir/paperbot/internal/domain"
	"github.com/helixir/paperbot/internal/mentions"
	"github.com/helixir/paperbot/internal/papersources"
)

const (
	// DefaultBaseURL is the standard v1.1 API root.
	DefaultBaseURL = "https://api.twitter.com/1.1"

	// DefaultTokenURL issues app-only bearer tokens.
	DefaultTokenURL = "https://api.twitter.com/oauth2/token"

	// DefaultRateLimit keeps well inside 450 searches per 15 minutes.
	DefaultRateLimit = 0.5

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 5

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 30 * time.Second

	sourceName = "Twitter"
)

// Config holds configuration for the Twitter client.
type Config struct {
	BaseURL  string
	TokenURL string

	// APIKey and APISecretKey are the app consumer credentials.
	APIKey       string
	APISecretKey string

	Timeout   time.Duration
	RateLimit float64
	BurstSize int
}

func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.TokenURL == "" {
		c.TokenURL = DefaultTokenURL
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.RateLimit == 0 {
		c.RateLimit = DefaultRateLimit
	}
	if c.BurstSize == 0 {
		c.BurstSize = DefaultBurstSize
	}
}

// Client pages through recent search results.
type Client struct {
	config     Config
	httpClient *papersources.HTTPClient
}

var _ mentions.Pager = (*Client)(nil)

// New creates a client that obtains a bearer token with the consumer
// credentials on first use and refreshes it as needed.
func New(cfg Config, recorder papersources.RequestRecorder) *Client {
	cfg.applyDefaults()

	oauth := clientcredentials.Config{
		ClientID:     cfg.APIKey,
		ClientSecret: cfg.APISecretKey,
		TokenURL:     cfg.TokenURL,
	}
	base := oauth.Client(context.Background())
	base.Timeout = cfg.Timeout

	httpClient := papersources.NewHTTPClient(papersources.HTTPClientConfig{
		Source:    papersources.SourceTwitter,
		RateLimit: cfg.RateLimit,
		BurstSize: cfg.BurstSize,
		Base:      base,
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

// searchResponse is the subset of search/tweets.json the client reads.
type searchResponse struct {
	Statuses []json.RawMessage `json:"statuses"`
	Metadata struct {
		NextResults string `json:"next_results"`
	} `json:"search_metadata"`
}

// SearchPage fetches one page of recent results. The cursor is the max_id
// of the next page; each result is the full status JSON so that expanded
// link URLs in entities are scanned too.
func (c *Client) SearchPage(ctx context.Context, req mentions.PageRequest) (mentions.Page, error) {
	searchURL, err := c.buildSearchURL(req)
	if err != nil {
		return mentions.Page{}, fmt.Errorf("building search URL: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return mentions.Page{}, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return mentions.Page{}, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return mentions.Page{}, domain.NewExternalAPIError(
			sourceName,
			resp.StatusCode,
			papersources.ReadErrorBody(resp),
			nil,
		)
	}

	var body searchResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 20<<20)).Decode(&body); err != nil {
		return mentions.Page{}, fmt.Errorf("decoding response: %w: %w", domain.ErrMalformedResponse, err)
	}

	page := mentions.Page{
		Results:    make([]string, 0, len(body.Statuses)),
		NextCursor: nextMaxID(body.Metadata.NextResults),
	}
	for _, status := range body.Statuses {
		page.Results = append(page.Results, unescapeSlashes(string(status)))
	}
	return page, nil
}

func (c *Client) buildSearchURL(req mentions.PageRequest) (string, error) {
	baseURL, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parsing base URL: %w", err)
	}
	baseURL.Path = strings.TrimRight(baseURL.Path, "/") + "/search/tweets.json"

	pageSize := req.PageSize
	if pageSize <= 0 || pageSize > mentions.DefaultPageSize {
		pageSize = mentions.DefaultPageSize
	}

	query := url.Values{}
	query.Set("q", req.Query)
	query.Set("count", strconv.Itoa(pageSize))
	query.Set("result_type", "recent")
	query.Set("tweet_mode", "extended")
	query.Set("include_entities", "true")
	if req.Cursor != "" {
		query.Set("max_id", req.Cursor)
	}

	baseURL.RawQuery = query.Encode()
	return baseURL.String(), nil
}

// nextMaxID pulls max_id out of search_metadata.next_results, which looks
// like "?max_id=1234&q=arxiv.org&count=100". Empty means no further page.
func nextMaxID(nextResults string) string {
	if nextResults == "" {
		return ""
	}
	values, err := url.ParseQuery(strings.TrimPrefix(nextResults, "?"))
	if err != nil {
		return ""
	}
	return values.Get("max_id")
}

// unescapeSlashes undoes the "\/" escaping the API applies inside JSON
// strings so URL patterns match the raw payload.
func unescapeSlashes(s string) string {
	return strings.ReplaceAll(s, `\/`, "/")
}
