// Package mentions counts how often papers are referenced by social search
// results.
package mentions

import (
	"context"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/helixir/paperbot/internal/cache"
	"github.com/helixir/paperbot/internal/domain"
)

const (
	// DefaultMaxPages bounds the pages consumed per query.
	DefaultMaxPages = 100

	// DefaultPageSize is the number of results requested per page.
	DefaultPageSize = 100
)

// PageRequest asks a Pager for one page of results.
type PageRequest struct {
	Query    string
	PageSize int

	// Cursor is empty for the first page and otherwise the NextCursor of
	// the previous page.
	Cursor string
}

// Page is one page of search results.
type Page struct {
	// Results holds the raw payload of each result; identifiers are
	// extracted from the whole payload text.
	Results []string

	// NextCursor is empty when there are no further pages.
	NextCursor string
}

// Pager fetches pages of social search results in recency order.
type Pager interface {
	SearchPage(ctx context.Context, req PageRequest) (Page, error)
}

// PageRecorder receives per-page telemetry. observability.Metrics satisfies it.
type PageRecorder interface {
	RecordMentionPage(mentions int)
}

type nopPageRecorder struct{}

func (nopPageRecorder) RecordMentionPage(int) {}

// Counter builds frequency tables from paginated search and memoizes them
// by exact query string.
type Counter struct {
	pager    Pager
	memo     *cache.Memo[cache.Key, *FrequencyTable]
	recorder PageRecorder
	logger   zerolog.Logger
}

// NewCounter creates a Counter. recorder may be nil.
func NewCounter(pager Pager, memo *cache.Memo[cache.Key, *FrequencyTable], recorder PageRecorder, logger zerolog.Logger) *Counter {
	if recorder == nil {
		recorder = nopPageRecorder{}
	}
	return &Counter{
		pager:    pager,
		memo:     memo,
		recorder: recorder,
		logger:   logger.With().Str("component", "mention_counter").Logger(),
	}
}

// CountMentions scans up to maxPages*pageSize results for query and counts
// each result's distinct identifiers once. Pages are consumed in order.
// A provider error ends the scan and the partial table is returned; the
// error is only logged.
//
// The table is memoized by query and limits, except when the very first
// page fails, so a transient outage does not pin an empty table.
func (c *Counter) CountMentions(ctx context.Context, query string, maxPages, pageSize int) *FrequencyTable {
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	key := cache.Fingerprint(query, strconv.Itoa(maxPages), strconv.Itoa(pageSize))
	return c.memo.Load(key, func() (*FrequencyTable, bool) {
		return c.scan(ctx, query, maxPages, pageSize)
	})
}

func (c *Counter) scan(ctx context.Context, query string, maxPages, pageSize int) (*FrequencyTable, bool) {
	log := c.logger.With().Str("query", query).Logger()
	table := NewFrequencyTable()
	limit := maxPages * pageSize

	seen := 0
	pages := 0
	cursor := ""
	for seen < limit {
		page, err := c.pager.SearchPage(ctx, PageRequest{
			Query:    query,
			PageSize: pageSize,
			Cursor:   cursor,
		})
		if err != nil {
			log.Warn().
				Err(err).
				Int("pages", pages).
				Int("results", seen).
				Msg("mention search stopped early; returning partial counts")
			return table, pages > 0
		}
		pages++
		if len(page.Results) == 0 {
			break
		}

		mentions := 0
		for _, raw := range page.Results {
			if seen >= limit {
				break
			}
			seen++
			ids := domain.ExtractAllUnique(raw)
			table.AddResult(ids)
			mentions += len(ids)
		}
		c.recorder.RecordMentionPage(mentions)

		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}

	log.Debug().
		Int("pages", pages).
		Int("results", seen).
		Int("papers", table.Len()).
		Msg("mentions counted")
	return table, true
}
