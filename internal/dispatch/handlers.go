package dispatch

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/helixir/paperbot/internal/domain"
	"github.com/helixir/paperbot/internal/mentions"
	"github.com/helixir/paperbot/internal/observability"
	"github.com/helixir/paperbot/internal/reply"
)

const (
	// DefaultGenericQuery matches any post linking arXiv.
	DefaultGenericQuery = `"arxiv.org"`

	// DefaultCategoryFilter restricts top lookups to machine learning and
	// neighbouring categories.
	DefaultCategoryFilter = "cat:cs.CV OR cat:cs.AI OR cat:cs.LG OR cat:cs.CL OR cat:cs.NE OR cat:stat.ML"

	// replyTimeout bounds one reply post. Replies run on a context detached
	// from the task so an answer computed just before the task deadline is
	// still delivered.
	replyTimeout = 30 * time.Second
)

// PaperFetcher looks up a single paper. *arxiv.Fetcher implements it.
type PaperFetcher interface {
	FetchSingle(ctx context.Context, id string) (*domain.Paper, error)
}

// MentionCounter builds mention tables. *mentions.Counter implements it.
type MentionCounter interface {
	CountMentions(ctx context.Context, query string, maxPages, pageSize int) *mentions.FrequencyTable
}

// Ranker orders counted papers. *ranking.Ranker implements it.
type Ranker interface {
	RankTop(ctx context.Context, table *mentions.FrequencyTable, filterQuery string, maxChunk, requested int) []domain.Paper
}

// Formatter renders a paper as a reply. *reply.Formatter implements it.
type Formatter interface {
	Format(ctx context.Context, requesterID string, paper domain.Paper) string
}

// Poster sends replies. *slack.Client implements it.
type Poster interface {
	PostReply(ctx context.Context, channel, threadTS, text string) error
}

// LookupConfig tunes the lookups run by Lookups.
type LookupConfig struct {
	GenericQuery   string
	CategoryFilter string
	MaxPages       int
	PageSize       int
	ChunkSize      int
}

// Lookups implements Handler by wiring metadata, mention counting,
// ranking, formatting, and posting together.
type Lookups struct {
	config    LookupConfig
	fetcher   PaperFetcher
	counter   MentionCounter
	ranker    Ranker
	formatter Formatter
	poster    Poster
	logger    zerolog.Logger
}

var _ Handler = (*Lookups)(nil)

// NewLookups creates the Handler used in production.
func NewLookups(cfg LookupConfig, fetcher PaperFetcher, counter MentionCounter, ranker Ranker, formatter Formatter, poster Poster, logger zerolog.Logger) *Lookups {
	if cfg.GenericQuery == "" {
		cfg.GenericQuery = DefaultGenericQuery
	}
	return &Lookups{
		config:    cfg,
		fetcher:   fetcher,
		counter:   counter,
		ranker:    ranker,
		formatter: formatter,
		poster:    poster,
		logger:    logger.With().Str("component", "lookups").Logger(),
	}
}

// HandleSingle replies with the metadata and mention count of one paper.
func (l *Lookups) HandleSingle(ctx context.Context, ev domain.ChatEvent, paperID string) {
	log := observability.WithPaperContext(observability.Logger(ctx, l.logger), paperID)

	paper, err := l.fetcher.FetchSingle(ctx, paperID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			log.Info().Err(err).Msg("paper not found")
		} else {
			log.Warn().Err(err).Msg("paper lookup failed")
		}
		l.post(ctx, ev, reply.NoResultFor(paperID))
		return
	}

	table := l.counter.CountMentions(ctx, domain.MentionSearchQuery(paperID), l.config.MaxPages, l.config.PageSize)
	paper.MentionCount = table.Get(paper.IDNoVersion)

	l.post(ctx, ev, l.formatter.Format(ctx, ev.AuthorID, *paper))
}

// HandleTop replies with the count most mentioned papers, one message each.
func (l *Lookups) HandleTop(ctx context.Context, ev domain.ChatEvent, count int) {
	log := observability.WithQueryContext(observability.Logger(ctx, l.logger), l.config.GenericQuery, "twitter")

	table := l.counter.CountMentions(ctx, l.config.GenericQuery, l.config.MaxPages, l.config.PageSize)
	if table.Len() == 0 {
		log.Info().Msg("no mentions found")
		l.post(ctx, ev, reply.NoMentionResult)
		return
	}

	papers := l.ranker.RankTop(ctx, table, l.config.CategoryFilter, l.config.ChunkSize, count)
	if len(papers) == 0 {
		log.Info().Int("counted", table.Len()).Msg("no metadata for mentioned papers")
		l.post(ctx, ev, reply.NoMetadataResult)
		return
	}

	log.Info().
		Int("counted", table.Len()).
		Int("replies", len(papers)).
		Msg("posting ranked papers")
	for _, paper := range papers {
		l.post(ctx, ev, l.formatter.Format(ctx, ev.AuthorID, paper))
	}
}

// post replies in the event's thread. The poster logs its own failures.
func (l *Lookups) post(ctx context.Context, ev domain.ChatEvent, text string) {
	postCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), replyTimeout)
	defer cancel()
	_ = l.poster.PostReply(postCtx, ev.Channel, ev.Timestamp, text)
}
