package arxiv

import (
	"context"
	"strconv"
	"sync/atomic"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/helixir/paperbot/internal/cache"
	"github.com/helixir/paperbot/internal/domain"
)

const (
	// DefaultChunkSize is the number of ids sent per lookup request.
	DefaultChunkSize = 200

	// DefaultConcurrency is the number of chunk requests in flight at once.
	DefaultConcurrency = 1
)

// Looker performs one batch metadata lookup. *Client implements it.
type Looker interface {
	Lookup(ctx context.Context, ids []string, filterQuery string) ([]domain.Paper, error)
}

// FetcherConfig configures a Fetcher.
type FetcherConfig struct {
	// ChunkSize is used when FetchByIDs is called with chunkSize <= 0.
	ChunkSize int

	// Concurrency bounds the number of chunk lookups in flight.
	Concurrency int
}

// Fetcher retrieves metadata for arbitrarily long id lists by splitting them
// into chunks, and memoizes whole-list results.
type Fetcher struct {
	looker Looker
	memo   *cache.Memo[cache.Key, []domain.Paper]
	config FetcherConfig
	logger zerolog.Logger
}

// NewFetcher creates a Fetcher over looker. memo may be shared only with
// other Fetchers over the same provider.
func NewFetcher(looker Looker, memo *cache.Memo[cache.Key, []domain.Paper], cfg FetcherConfig, logger zerolog.Logger) *Fetcher {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	return &Fetcher{
		looker: looker,
		memo:   memo,
		config: cfg,
		logger: logger.With().Str("component", "arxiv_fetcher").Logger(),
	}
}

// FetchByIDs returns metadata for ids, restricted to filterQuery when it is
// not empty. Ids are sent in chunks of at most chunkSize; chunk results are
// concatenated in chunk order. A chunk that fails is logged and contributes
// nothing, and the overall result is then not memoized.
func (f *Fetcher) FetchByIDs(ctx context.Context, ids []string, filterQuery string, chunkSize int) []domain.Paper {
	if len(ids) == 0 {
		return nil
	}
	if chunkSize <= 0 {
		chunkSize = f.config.ChunkSize
	}

	key := cache.NewBuilder().
		AddAll(ids).
		Add(filterQuery).
		Add(strconv.Itoa(chunkSize)).
		Key()

	return f.memo.Load(key, func() ([]domain.Paper, bool) {
		return f.fetchChunks(ctx, ids, filterQuery, chunkSize)
	})
}

// FetchSingle returns metadata for one identifier. A missing entry or a
// failed lookup is reported as a *domain.NotFoundError.
func (f *Fetcher) FetchSingle(ctx context.Context, id string) (*domain.Paper, error) {
	papers := f.FetchByIDs(ctx, []string{id}, "", f.config.ChunkSize)
	if len(papers) == 0 {
		return nil, domain.NewNotFoundError("paper", id)
	}
	paper := papers[0]
	return &paper, nil
}

func (f *Fetcher) fetchChunks(ctx context.Context, ids []string, filterQuery string, chunkSize int) ([]domain.Paper, bool) {
	chunks := splitChunks(ids, chunkSize)
	results := make([][]domain.Paper, len(chunks))
	var failed atomic.Bool

	var g errgroup.Group
	g.SetLimit(f.config.Concurrency)
	for i, chunk := range chunks {
		g.Go(func() error {
			papers, err := f.looker.Lookup(ctx, chunk, filterQuery)
			if err != nil {
				failed.Store(true)
				f.logger.Warn().
					Err(err).
					Int("chunk", i).
					Int("chunk_size", len(chunk)).
					Str("first_id", chunk[0]).
					Msg("metadata chunk lookup failed; skipping chunk")
				return nil
			}
			results[i] = papers
			return nil
		})
	}
	_ = g.Wait()

	total := 0
	for _, r := range results {
		total += len(r)
	}
	papers := make([]domain.Paper, 0, total)
	for _, r := range results {
		papers = append(papers, r...)
	}

	f.logger.Debug().
		Int("ids", len(ids)).
		Int("chunks", len(chunks)).
		Int("papers", len(papers)).
		Bool("partial", failed.Load()).
		Msg("metadata fetched")

	return papers, !failed.Load()
}

// splitChunks partitions ids into consecutive slices of at most size
// elements. It never produces an empty trailing chunk.
func splitChunks(ids []string, size int) [][]string {
	chunks := make([][]string, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		end := min(start+size, len(ids))
		chunks = append(chunks, ids[start:end])
	}
	return chunks
}
