package arxiv

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/paperbot/internal/cache"
	"github.com/helixir/paperbot/internal/domain"
)

type fakeLooker struct {
	mu     sync.Mutex
	calls  [][]string
	filter []string
	fail   func(ids []string) bool
}

func (f *fakeLooker) Lookup(_ context.Context, ids []string, filterQuery string) ([]domain.Paper, error) {
	f.mu.Lock()
	f.calls = append(f.calls, append([]string(nil), ids...))
	f.filter = append(f.filter, filterQuery)
	f.mu.Unlock()

	if f.fail != nil && f.fail(ids) {
		return nil, errors.New("boom")
	}
	papers := make([]domain.Paper, 0, len(ids))
	for _, id := range ids {
		papers = append(papers, domain.NewPaper(id+"v1"))
	}
	return papers, nil
}

func (f *fakeLooker) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func newTestFetcher(t *testing.T, looker Looker, concurrency int) *Fetcher {
	t.Helper()
	memo, err := cache.New[cache.Key, []domain.Paper]("metadata", 16, nil)
	require.NoError(t, err)
	return NewFetcher(looker, memo, FetcherConfig{Concurrency: concurrency}, zerolog.Nop())
}

func makeIDs(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("2301.%05d", i)
	}
	return ids
}

func TestFetcher_FetchByIDs(t *testing.T) {
	t.Run("splits into ordered chunks", func(t *testing.T) {
		looker := &fakeLooker{}
		f := newTestFetcher(t, looker, 1)
		ids := makeIDs(450)

		papers := f.FetchByIDs(context.Background(), ids, "cat:cs.CV", 200)

		require.Len(t, looker.calls, 3)
		assert.Len(t, looker.calls[0], 200)
		assert.Len(t, looker.calls[1], 200)
		assert.Len(t, looker.calls[2], 50)
		assert.Equal(t, []string{"cat:cs.CV", "cat:cs.CV", "cat:cs.CV"}, looker.filter)

		require.Len(t, papers, 450)
		for i, p := range papers {
			assert.Equal(t, ids[i], p.IDNoVersion)
		}
	})

	t.Run("exact multiple has no trailing empty chunk", func(t *testing.T) {
		looker := &fakeLooker{}
		f := newTestFetcher(t, looker, 1)

		f.FetchByIDs(context.Background(), makeIDs(400), "", 200)
		assert.Equal(t, 2, looker.callCount())
	})

	t.Run("preserves chunk order with concurrency", func(t *testing.T) {
		looker := &fakeLooker{}
		f := newTestFetcher(t, looker, 4)
		ids := makeIDs(95)

		papers := f.FetchByIDs(context.Background(), ids, "", 10)

		assert.Equal(t, 10, looker.callCount())
		require.Len(t, papers, 95)
		for i, p := range papers {
			assert.Equal(t, ids[i], p.IDNoVersion)
		}
	})

	t.Run("skips a failed chunk and does not memoize", func(t *testing.T) {
		looker := &fakeLooker{fail: func(ids []string) bool { return ids[0] == "2301.00200" }}
		f := newTestFetcher(t, looker, 1)
		ids := makeIDs(450)

		papers := f.FetchByIDs(context.Background(), ids, "", 200)
		require.Len(t, papers, 250)
		assert.Equal(t, ids[0], papers[0].IDNoVersion)
		assert.Equal(t, ids[400], papers[200].IDNoVersion)

		f.FetchByIDs(context.Background(), ids, "", 200)
		assert.Equal(t, 6, looker.callCount())
	})

	t.Run("memoizes identical requests", func(t *testing.T) {
		looker := &fakeLooker{}
		f := newTestFetcher(t, looker, 1)
		ids := makeIDs(5)

		first := f.FetchByIDs(context.Background(), ids, "q", 200)
		second := f.FetchByIDs(context.Background(), ids, "q", 200)
		assert.Equal(t, first, second)
		assert.Equal(t, 1, looker.callCount())

		f.FetchByIDs(context.Background(), ids, "other", 200)
		assert.Equal(t, 2, looker.callCount())
	})

	t.Run("empty ids", func(t *testing.T) {
		looker := &fakeLooker{}
		f := newTestFetcher(t, looker, 1)

		assert.Empty(t, f.FetchByIDs(context.Background(), nil, "", 200))
		assert.Equal(t, 0, looker.callCount())
	})
}

func TestFetcher_FetchSingle(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		looker := &fakeLooker{}
		f := newTestFetcher(t, looker, 1)

		p, err := f.FetchSingle(context.Background(), "2301.12345")
		require.NoError(t, err)
		assert.Equal(t, "2301.12345v1", p.ID)
		assert.Equal(t, []string{""}, looker.filter)
	})

	t.Run("not found", func(t *testing.T) {
		looker := &fakeLooker{fail: func([]string) bool { return true }}
		f := newTestFetcher(t, looker, 1)

		p, err := f.FetchSingle(context.Background(), "2301.12345")
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.Equal(t, "paper not found: 2301.12345", err.Error())
		assert.Nil(t, p)
	})
}

func TestSplitChunks(t *testing.T) {
	assert.Empty(t, splitChunks(nil, 3))
	assert.Equal(t, [][]string{{"a", "b"}, {"c"}}, splitChunks([]string{"a", "b", "c"}, 2))
	assert.Equal(t, [][]string{{"a", "b"}}, splitChunks([]string{"a", "b"}, 2))
}
