// Package ranking joins mention counts with paper metadata and orders the
// result by how often each paper was mentioned.
package ranking

import (
	"context"
	"sort"

	"github.com/rs/zerolog"

	"github.com/helixir/paperbot/internal/domain"
	"github.com/helixir/paperbot/internal/mentions"
)

const (
	// MinCount and MaxCount bound the number of papers in a ranking.
	MinCount = 1
	MaxCount = 10

	// DefaultCount is used when a request names no count.
	DefaultCount = 5
)

// ClampCount limits n to [MinCount, MaxCount].
func ClampCount(n int) int {
	return max(MinCount, min(n, MaxCount))
}

// MetadataFetcher retrieves metadata for a list of ids.
// *arxiv.Fetcher implements it.
type MetadataFetcher interface {
	FetchByIDs(ctx context.Context, ids []string, filterQuery string, chunkSize int) []domain.Paper
}

// Ranker produces top-N paper lists from mention tables.
type Ranker struct {
	fetcher MetadataFetcher
	logger  zerolog.Logger
}

// NewRanker creates a Ranker.
func NewRanker(fetcher MetadataFetcher, logger zerolog.Logger) *Ranker {
	return &Ranker{
		fetcher: fetcher,
		logger:  logger.With().Str("component", "ranker").Logger(),
	}
}

// RankTop returns at most ClampCount(requested) papers from table, most
// mentioned first, keeping provider order among equal counts. Only papers
// for which metadata was found (and which match filterQuery) appear.
//
// Metadata is requested only for ids in table, so every returned paper has
// a count from the table.
func (r *Ranker) RankTop(ctx context.Context, table *mentions.FrequencyTable, filterQuery string, maxChunk, requested int) []domain.Paper {
	count := ClampCount(requested)
	if table.Len() == 0 {
		return nil
	}

	papers := r.fetcher.FetchByIDs(ctx, table.Keys(), filterQuery, maxChunk)
	if len(papers) == 0 {
		r.logger.Info().
			Int("counted", table.Len()).
			Str("filter", filterQuery).
			Msg("no metadata for counted papers")
		return nil
	}

	ranked := make([]domain.Paper, len(papers))
	copy(ranked, papers)
	for i := range ranked {
		ranked[i].MentionCount = table.Get(ranked[i].IDNoVersion)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].MentionCount > ranked[j].MentionCount
	})

	if len(ranked) > count {
		ranked = ranked[:count]
	}
	return ranked
}
