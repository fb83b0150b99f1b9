package arxiv

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/helixir/paperbot/internal/domain"
	"github.com/helixir/paperbot/internal/papersources"
)

const (
	// DefaultBaseURL is the default arXiv API base URL.
	DefaultBaseURL = "https://export.arxiv.org/api"

	// DefaultRateLimit is one request every three seconds, as the arXiv API
	// terms of use ask.
	DefaultRateLimit = 1.0 / 3.0

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 1

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 60 * time.Second

	// sourceName is the human-readable name for this source.
	sourceName = "arXiv"
)

// entryIDRegex extracts the versioned identifier from an entry URL such as
// "http://arxiv.org/abs/2301.12345v1". Error entries use a different path
// and do not match.
var entryIDRegex = regexp.MustCompile(`arxiv\.org/abs/([^/]+)$`)

// Config holds configuration for the arXiv client.
type Config struct {
	// BaseURL is the arXiv API base URL.
	BaseURL string

	// Timeout is the request timeout.
	Timeout time.Duration

	// RateLimit is the maximum requests per second.
	RateLimit float64

	// BurstSize is the maximum burst of requests allowed.
	BurstSize int
}

// applyDefaults sets default values for unset configuration fields.
func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
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

// Client looks up paper metadata in the arXiv API.
type Client struct {
	config     Config
	httpClient *papersources.HTTPClient
}

// New creates a new arXiv client with the given configuration.
func New(cfg Config, recorder papersources.RequestRecorder) *Client {
	cfg.applyDefaults()

	httpClient := papersources.NewHTTPClient(papersources.HTTPClientConfig{
		Source:    papersources.SourceArXiv,
		Timeout:   cfg.Timeout,
		RateLimit: cfg.RateLimit,
		BurstSize: cfg.BurstSize,
		Recorder:  recorder,
	})

	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// NewWithHTTPClient creates a new arXiv client with a custom HTTP client.
// This is useful for testing with mock servers.
func NewWithHTTPClient(cfg Config, httpClient *papersources.HTTPClient) *Client {
	cfg.applyDefaults()

	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// Lookup fetches metadata for ids in one request. When filterQuery is not
// empty only entries that also match it are returned, so the result may be
// shorter than ids. Entries come back in provider order.
func (c *Client) Lookup(ctx context.Context, ids []string, filterQuery string) ([]domain.Paper, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	lookupURL, err := c.buildLookupURL(ids, filterQuery)
	if err != nil {
		return nil, fmt.Errorf("building lookup URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, lookupURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, domain.NewExternalAPIError(
			sourceName,
			resp.StatusCode,
			papersources.ReadErrorBody(resp),
			nil,
		)
	}

	// Parse the Atom XML response (limit body to 50MB; 200 abstracts fit easily).
	var feed Feed
	if err := xml.NewDecoder(io.LimitReader(resp.Body, 50<<20)).Decode(&feed); err != nil {
		return nil, fmt.Errorf("decoding response: %w: %w", domain.ErrMalformedResponse, err)
	}

	papers := make([]domain.Paper, 0, len(feed.Entries))
	for i := range feed.Entries {
		if paper, ok := entryToPaper(&feed.Entries[i]); ok {
			papers = append(papers, paper)
		}
	}
	return papers, nil
}

// buildLookupURL constructs the arXiv query URL for an id list.
func (c *Client) buildLookupURL(ids []string, filterQuery string) (string, error) {
	baseURL, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parsing base URL: %w", err)
	}

	baseURL.Path = strings.TrimRight(baseURL.Path, "/") + "/query"

	query := url.Values{}
	query.Set("id_list", strings.Join(ids, ","))
	if filterQuery != "" {
		query.Set("search_query", filterQuery)
	}
	query.Set("max_results", strconv.Itoa(len(ids)))

	baseURL.RawQuery = query.Encode()
	return baseURL.String(), nil
}

// entryToPaper converts an arXiv Atom entry to a domain Paper.
func entryToPaper(entry *Entry) (domain.Paper, bool) {
	id := extractArXivID(entry.ID)
	if id == "" {
		return domain.Paper{}, false
	}

	paper := domain.NewPaper(id)
	paper.Title = normalizeWhitespace(entry.Title)
	paper.Summary = normalizeWhitespace(entry.Summary)
	paper.Published = parseTime(entry.Published)
	paper.Updated = parseTime(entry.Updated)

	paper.Authors = make([]string, 0, len(entry.Authors))
	for _, a := range entry.Authors {
		if name := strings.TrimSpace(a.Name); name != "" {
			paper.Authors = append(paper.Authors, name)
		}
	}

	paper.AddCategory(entry.PrimaryCategory.Term)
	for _, cat := range entry.Categories {
		paper.AddCategory(cat.Term)
	}

	if comment := normalizeWhitespace(entry.Comment); comment != "" {
		paper.Comment = &comment
	}

	return paper, true
}

// extractArXivID extracts the versioned arXiv ID from the full entry URL.
// Input: "http://arxiv.org/abs/2301.12345v1" -> "2301.12345v1"
func extractArXivID(entryURL string) string {
	matches := entryIDRegex.FindStringSubmatch(strings.TrimSpace(entryURL))
	if len(matches) < 2 {
		return ""
	}
	return matches[1]
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}
	}
	return t
}

// normalizeWhitespace trims and collapses runs of whitespace, including
// the hard line breaks arXiv puts in titles and abstracts.
func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
