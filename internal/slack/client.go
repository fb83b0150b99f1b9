// Package slack posts threaded replies through the Slack Web API.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/helixir/paperbot/internal/domain"
	"github.com/helixir/paperbot/internal/papersources"
)

const (
	// DefaultBaseURL is the Web API root.
	DefaultBaseURL = "https://slack.com/api"

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 10 * time.Second

	// DefaultRateLimit follows the chat.postMessage guidance of about one
	// message per second per channel.
	DefaultRateLimit = 1.0

	sourceName = "Slack"
)

// Poster sends a reply into a message thread.
type Poster interface {
	PostReply(ctx context.Context, channel, threadTS, text string) error
}

// ReplyRecorder is notified of post outcomes. observability.Metrics satisfies it.
type ReplyRecorder interface {
	RecordReplyPosted()
	RecordReplyFailed()
}

type nopReplyRecorder struct{}

func (nopReplyRecorder) RecordReplyPosted() {}
func (nopReplyRecorder) RecordReplyFailed() {}

// Config holds configuration for the Slack client.
type Config struct {
	BaseURL   string
	BotToken  string
	Timeout   time.Duration
	RateLimit float64
	BurstSize int
}

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
		c.BurstSize = 3
	}
}

// Client implements Poster with chat.postMessage.
type Client struct {
	config     Config
	httpClient *papersources.HTTPClient
	recorder   ReplyRecorder
	logger     zerolog.Logger
}

var _ Poster = (*Client)(nil)

// New creates a Slack client. recorder may be nil.
func New(cfg Config, requests papersources.RequestRecorder, recorder ReplyRecorder, logger zerolog.Logger) *Client {
	cfg.applyDefaults()
	httpClient := papersources.NewHTTPClient(papersources.HTTPClientConfig{
		Source:       papersources.SourceSlack,
		Timeout:      cfg.Timeout,
		RateLimit:    cfg.RateLimit,
		BurstSize:    cfg.BurstSize,
		APIKey:       "Bearer " + cfg.BotToken,
		APIKeyHeader: "Authorization",
		Recorder:     requests,
	})
	return NewWithHTTPClient(cfg, httpClient, recorder, logger)
}

// NewWithHTTPClient creates a client with a custom HTTP client.
// This is useful for testing with mock servers.
func NewWithHTTPClient(cfg Config, httpClient *papersources.HTTPClient, recorder ReplyRecorder, logger zerolog.Logger) *Client {
	cfg.applyDefaults()
	if recorder == nil {
		recorder = nopReplyRecorder{}
	}
	return &Client{
		config:     cfg,
		httpClient: httpClient,
		recorder:   recorder,
		logger:     logger.With().Str("component", "slack").Logger(),
	}
}

type postMessageRequest struct {
	Channel     string `json:"channel"`
	Text        string `json:"text"`
	ThreadTS    string `json:"thread_ts,omitempty"`
	UnfurlLinks bool   `json:"unfurl_links"`
}

type postMessageResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// PostReply posts text into the thread rooted at threadTS. Failures are
// logged here; the error is returned for callers that want it.
func (c *Client) PostReply(ctx context.Context, channel, threadTS, text string) error {
	err := c.post(ctx, postMessageRequest{
		Channel:  channel,
		Text:     text,
		ThreadTS: threadTS,
	})
	if err != nil {
		c.recorder.RecordReplyFailed()
		c.logger.Error().
			Err(err).
			Str("channel", channel).
			Str("thread_ts", threadTS).
			Msg("failed to post reply")
		return err
	}
	c.recorder.RecordReplyPosted()
	return nil
}

func (c *Client) post(ctx context.Context, msg postMessageRequest) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encoding message: %w", err)
	}

	endpoint := strings.TrimRight(c.config.BaseURL, "/") + "/chat.postMessage"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.NewExternalAPIError(sourceName, resp.StatusCode, papersources.ReadErrorBody(resp), nil)
	}

	var body postMessageResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&body); err != nil {
		return fmt.Errorf("decoding response: %w: %w", domain.ErrMalformedResponse, err)
	}
	if !body.OK {
		return domain.NewExternalAPIError(sourceName, resp.StatusCode, body.Error, nil)
	}
	return nil
}
