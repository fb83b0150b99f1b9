package dispatch

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/paperbot/internal/domain"
	"github.com/helixir/paperbot/internal/observability"
)

// blockingHandler records calls and blocks each one until release is closed.
type blockingHandler struct {
	mu        sync.Mutex
	singles   []string
	tops      []int
	requestID []string
	started   chan struct{}
	release   chan struct{}
}

func newBlockingHandler() *blockingHandler {
	return &blockingHandler{
		started: make(chan struct{}, 16),
		release: make(chan struct{}),
	}
}

func (h *blockingHandler) record(ctx context.Context) {
	h.mu.Lock()
	h.requestID = append(h.requestID, observability.RequestIDFromContext(ctx))
	h.mu.Unlock()
	h.started <- struct{}{}
	select {
	case <-h.release:
	case <-ctx.Done():
	}
}

func (h *blockingHandler) HandleSingle(ctx context.Context, _ domain.ChatEvent, paperID string) {
	h.mu.Lock()
	h.singles = append(h.singles, paperID)
	h.mu.Unlock()
	h.record(ctx)
}

func (h *blockingHandler) HandleTop(ctx context.Context, _ domain.ChatEvent, count int) {
	h.mu.Lock()
	h.tops = append(h.tops, count)
	h.mu.Unlock()
	h.record(ctx)
}

type outcomeRecorder struct {
	mu       sync.Mutex
	outcomes []string
	finished []string
}

func (r *outcomeRecorder) RecordEvent(outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
}

func (r *outcomeRecorder) RecordTaskStarted() {}

func (r *outcomeRecorder) RecordTaskFinished(kind string, _ float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished = append(r.finished, kind)
}

func event(text string) domain.ChatEvent {
	return domain.ChatEvent{Text: text, AuthorID: "U123", Channel: "C1", Timestamp: "1.0"}
}

func waitStarted(t *testing.T, h *blockingHandler) {
	t.Helper()
	select {
	case <-h.started:
	case <-time.After(2 * time.Second):
		t.Fatal("handler did not start")
	}
}

func TestDispatcher_OnMessage(t *testing.T) {
	t.Run("dispatches single lookup without blocking", func(t *testing.T) {
		h := newBlockingHandler()
		rec := &outcomeRecorder{}
		d := New(Config{Workers: 2}, h, rec, zerolog.Nop())

		outcome := d.OnMessage(event("https://arxiv.org/abs/2301.12345v1"))
		assert.Equal(t, domain.OutcomeDispatchedSingle, outcome)
		waitStarted(t, h)

		close(h.release)
		require.NoError(t, d.Wait(context.Background()))

		assert.Equal(t, []string{"2301.12345v1"}, h.singles)
		require.Len(t, h.requestID, 1)
		assert.NotEmpty(t, h.requestID[0])
		assert.Equal(t, []string{"dispatched_single"}, rec.outcomes)
		assert.Equal(t, []string{"single"}, rec.finished)
	})

	t.Run("dispatches top lookup with clamped count", func(t *testing.T) {
		h := newBlockingHandler()
		close(h.release)
		d := New(Config{}, h, nil, zerolog.Nop())

		assert.Equal(t, domain.OutcomeDispatchedTop, d.OnMessage(event("toptweets 42")))
		require.NoError(t, d.Wait(context.Background()))
		assert.Equal(t, []int{10}, h.tops)
	})

	t.Run("rejects at the boundary", func(t *testing.T) {
		h := newBlockingHandler()
		close(h.release)
		d := New(Config{BotUserID: "UBOT"}, h, nil, zerolog.Nop())

		bot := event("toptweets")
		bot.IsBot = true
		assert.Equal(t, domain.OutcomeRejectedBot, d.OnMessage(bot))

		self := event("toptweets")
		self.AuthorID = "UBOT"
		assert.Equal(t, domain.OutcomeRejectedBot, d.OnMessage(self))

		anonymous := event("toptweets")
		anonymous.AuthorID = ""
		assert.Equal(t, domain.OutcomeRejectedBot, d.OnMessage(anonymous))

		retry := event("toptweets")
		retry.RetryNum = 1
		retry.RetryReason = "http_timeout"
		assert.Equal(t, domain.OutcomeRejectedRetry, d.OnMessage(retry))

		assert.Equal(t, domain.OutcomeIgnored, d.OnMessage(event("hello")))

		require.NoError(t, d.Wait(context.Background()))
		assert.Empty(t, h.tops)
		assert.Empty(t, h.singles)
	})

	t.Run("rejects when all workers are busy", func(t *testing.T) {
		h := newBlockingHandler()
		rec := &outcomeRecorder{}
		d := New(Config{Workers: 1}, h, rec, zerolog.Nop())

		assert.Equal(t, domain.OutcomeDispatchedTop, d.OnMessage(event("toptweets")))
		waitStarted(t, h)

		assert.Equal(t, domain.OutcomeSaturated, d.OnMessage(event("toptweets 2")))

		close(h.release)
		require.NoError(t, d.Wait(context.Background()))

		// The freed worker accepts new work.
		assert.Equal(t, domain.OutcomeDispatchedTop, d.OnMessage(event("toptweets 3")))
		require.NoError(t, d.Wait(context.Background()))

		assert.Equal(t, []int{5, 3}, h.tops)
		assert.Equal(t, []string{"dispatched_top", "saturated", "dispatched_top"}, rec.outcomes)
	})

	t.Run("recovers from a panicking handler", func(t *testing.T) {
		d := New(Config{}, panicHandler{}, nil, zerolog.Nop())

		assert.Equal(t, domain.OutcomeDispatchedTop, d.OnMessage(event("toptweets")))
		require.NoError(t, d.Wait(context.Background()))
	})
}

type panicHandler struct{}

func (panicHandler) HandleSingle(context.Context, domain.ChatEvent, string) { panic("boom") }
func (panicHandler) HandleTop(context.Context, domain.ChatEvent, int)       { panic("boom") }

func TestDispatcher_Wait(t *testing.T) {
	t.Run("cancels running tasks when the deadline passes", func(t *testing.T) {
		h := newBlockingHandler()
		d := New(Config{}, h, nil, zerolog.Nop())

		d.OnMessage(event("toptweets"))
		waitStarted(t, h)

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		assert.ErrorIs(t, d.Wait(ctx), context.DeadlineExceeded)

		// Canceled tasks unblock and drain.
		require.NoError(t, d.Wait(context.Background()))
	})

	t.Run("task timeout bounds each task", func(t *testing.T) {
		h := newBlockingHandler()
		d := New(Config{TaskTimeout: 20 * time.Millisecond}, h, nil, zerolog.Nop())

		d.OnMessage(event("toptweets"))
		waitStarted(t, h)

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		require.NoError(t, d.Wait(ctx))
	})
}
